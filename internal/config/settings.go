package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Settings are the resolved global options.
type Settings struct {
	LogFile       string
	LogLevel      string
	LogMaxSizeMB  int
	LogMaxFiles   int
	LogBufferSize int

	StorageBackend string
	StorageDir     string

	CanvasWidth  float64
	CanvasHeight float64
	AspectRatio  float64

	HistoryMaxEntries int
	Locale            string

	PlayerStart float64
	PlayerEnd   float64
	PlayerSkip  string
}

// Settings resolves every global option of c. Values that fail to parse
// are reported together.
func (s *ConfigSchema) Settings(c *Config) (Settings, error) {
	var errs []error
	str := func(key string) string { return strings.TrimSpace(s.Resolve(c, key)) }
	integer := func(key string) int {
		v, err := strconv.Atoi(str(key))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: expected int, got %q", key, str(key)))
		}
		return v
	}
	float := func(key string) float64 {
		v, err := strconv.ParseFloat(str(key), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: expected float, got %q", key, str(key)))
		}
		return v
	}

	out := Settings{
		LogFile:           str("log.file"),
		LogLevel:          str("log.level"),
		LogMaxSizeMB:      integer("log.max-size-mb"),
		LogMaxFiles:       integer("log.max-files"),
		LogBufferSize:     integer("log.buffer-size"),
		StorageBackend:    str("storage.backend"),
		StorageDir:        str("storage.dir"),
		CanvasWidth:       float("canvas.width"),
		CanvasHeight:      float("canvas.height"),
		HistoryMaxEntries: integer("history.max-entries"),
		Locale:            str("locale"),
		PlayerStart:       float("player.start"),
		PlayerEnd:         float("player.end"),
		PlayerSkip:        str("player.skip"),
	}
	ratio, err := ParseRatio(str("canvas.aspect-ratio"))
	if err != nil {
		errs = append(errs, fmt.Errorf("canvas.aspect-ratio: %w", err))
	}
	out.AspectRatio = ratio
	if out.CanvasWidth <= 0 || out.CanvasHeight <= 0 {
		errs = append(errs, fmt.Errorf("canvas size must be positive, got %gx%g", out.CanvasWidth, out.CanvasHeight))
	}
	if out.PlayerEnd < out.PlayerStart {
		errs = append(errs, fmt.Errorf("player.end %g is before player.start %g", out.PlayerEnd, out.PlayerStart))
	}
	return out, errors.Join(errs...)
}
