package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
)

// OptionType is the expected type of an option value.
type OptionType string

const (
	TypeString OptionType = "string"
	TypeBool   OptionType = "bool"
	TypeInt    OptionType = "int"
	TypeFloat  OptionType = "float"
	// TypeRatio is a width:height pair such as 16:9.
	TypeRatio OptionType = "ratio"
)

// ConfigOption declares one option.
type ConfigOption struct {
	// Key is the option name as written in the file.
	Key         string
	Type        OptionType
	Default     string
	Description string
	// Section is "" for global options.
	Section string
	// EnvVar overrides the option when set.
	EnvVar string
}

// ConfigSchema is the set of known options.
type ConfigSchema struct {
	options   []*ConfigOption
	byKey     map[string]*ConfigOption
	bySection map[string]map[string]*ConfigOption
}

// NewSchema returns an empty schema.
func NewSchema() *ConfigSchema {
	return &ConfigSchema{
		byKey:     make(map[string]*ConfigOption),
		bySection: make(map[string]map[string]*ConfigOption),
	}
}

// Register adds opt; a later registration of the same key wins.
func (s *ConfigSchema) Register(opt ConfigOption) {
	ref := &opt
	s.options = append(s.options, ref)
	if opt.Section == "" {
		s.byKey[opt.Key] = ref
		return
	}
	if s.bySection[opt.Section] == nil {
		s.bySection[opt.Section] = make(map[string]*ConfigOption)
	}
	s.bySection[opt.Section][opt.Key] = ref
}

// RegisterAll registers each of opts.
func (s *ConfigSchema) RegisterAll(opts []ConfigOption) {
	for _, opt := range opts {
		s.Register(opt)
	}
}

// Options returns every registered option in registration order.
func (s *ConfigSchema) Options() []ConfigOption {
	out := make([]ConfigOption, len(s.options))
	for i, o := range s.options {
		out[i] = *o
	}
	return out
}

// Lookup returns the option for key in section ("" for global), or nil.
func (s *ConfigSchema) Lookup(section, key string) *ConfigOption {
	if section == "" {
		return s.byKey[key]
	}
	return s.bySection[section][key]
}

// IsKnown reports whether key may appear in section. Global keys are known
// in every section.
func (s *ConfigSchema) IsKnown(section, key string) bool {
	return s.Lookup(section, key) != nil || s.byKey[key] != nil
}

// SectionOptions returns the options of section in registration order.
func (s *ConfigSchema) SectionOptions(section string) []ConfigOption {
	var out []ConfigOption
	for _, o := range s.options {
		if o.Section == section {
			out = append(out, *o)
		}
	}
	return out
}

// Sections returns the sorted non-global section names.
func (s *ConfigSchema) Sections() []string {
	out := make([]string, 0, len(s.bySection))
	for sec := range s.bySection {
		out = append(out, sec)
	}
	slices.Sort(out)
	return out
}

// Resolve returns the effective value of a global key: its environment
// variable when non-empty, then the file, then the schema default.
func (s *ConfigSchema) Resolve(c *Config, key string) string {
	opt := s.Lookup("", key)
	if opt != nil && opt.EnvVar != "" {
		if v := os.Getenv(opt.EnvVar); v != "" {
			return v
		}
	}
	if v, ok := c.GetGlobalOption(key); ok {
		return v
	}
	if opt != nil {
		return opt.Default
	}
	return ""
}

// ResolveCommand returns a command section value, falling back to the
// global option of the same key, then the section default.
func (s *ConfigSchema) ResolveCommand(c *Config, command, key string) string {
	if v, ok := c.Commands[command][key]; ok {
		return v
	}
	if s.byKey[key] != nil {
		return s.Resolve(c, key)
	}
	if opt := s.Lookup(command, key); opt != nil {
		return opt.Default
	}
	return ""
}

// ValidateConfig returns the sorted list of unknown options and type
// mismatches in c.
func ValidateConfig(c *Config, s *ConfigSchema) []string {
	var issues []string
	for key, value := range c.Global {
		opt := s.Lookup("", key)
		if opt == nil {
			issues = append(issues, fmt.Sprintf("unknown global option: %q (value: %q)", key, value))
			continue
		}
		if err := validateType(opt.Type, value); err != nil {
			issues = append(issues, fmt.Sprintf("global option %q: %v", key, err))
		}
	}
	for section, opts := range c.Commands {
		for key, value := range opts {
			opt := s.Lookup(section, key)
			if opt == nil {
				opt = s.Lookup("", key)
			}
			if opt == nil {
				issues = append(issues, fmt.Sprintf("unknown option for command %q: %q (value: %q)", section, key, value))
				continue
			}
			if err := validateType(opt.Type, value); err != nil {
				issues = append(issues, fmt.Sprintf("option %q in [%s]: %v", key, section, err))
			}
		}
	}
	slices.Sort(issues)
	return issues
}

func validateType(t OptionType, value string) error {
	var err error
	switch t {
	case TypeString, "":
	case TypeBool:
		_, err = parseBool(value)
	case TypeInt:
		_, err = strconv.Atoi(value)
	case TypeFloat:
		_, err = strconv.ParseFloat(value, 64)
	case TypeRatio:
		_, err = ParseRatio(value)
	default:
		return fmt.Errorf("unknown option type %q", t)
	}
	if err != nil {
		return fmt.Errorf("expected %s, got %q", t, value)
	}
	return nil
}

// ParseRatio reads "W:H", "W/H" or a plain number.
func ParseRatio(s string) (float64, error) {
	s = strings.TrimSpace(s)
	for _, sep := range []string{":", "/"} {
		if w, h, ok := strings.Cut(s, sep); ok {
			wf, err1 := strconv.ParseFloat(strings.TrimSpace(w), 64)
			hf, err2 := strconv.ParseFloat(strings.TrimSpace(h), 64)
			if err1 != nil || err2 != nil || wf <= 0 || hf <= 0 {
				return 0, fmt.Errorf("invalid ratio %q", s)
			}
			return wf / hf, nil
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid ratio %q", s)
	}
	return v, nil
}

// FormatHelp lists the options grouped by section.
func (s *ConfigSchema) FormatHelp() string {
	var b strings.Builder
	if globals := s.SectionOptions(""); len(globals) > 0 {
		b.WriteString("Global Options:\n")
		for _, o := range globals {
			writeOptionHelp(&b, o)
		}
	}
	for _, sec := range s.Sections() {
		fmt.Fprintf(&b, "\n[%s] Options:\n", sec)
		for _, o := range s.SectionOptions(sec) {
			writeOptionHelp(&b, o)
		}
	}
	return b.String()
}

func writeOptionHelp(b *strings.Builder, o ConfigOption) {
	fmt.Fprintf(b, "  %-24s %s", o.Key, o.Description)
	var parts []string
	if o.Type != "" && o.Type != TypeString {
		parts = append(parts, "type: "+string(o.Type))
	}
	if o.Default != "" {
		parts = append(parts, "default: "+o.Default)
	}
	if o.EnvVar != "" {
		parts = append(parts, "env: "+o.EnvVar)
	}
	if len(parts) > 0 {
		fmt.Fprintf(b, " (%s)", strings.Join(parts, ", "))
	}
	b.WriteByte('\n')
}

// DefaultSchema declares every option the annotator reads.
func DefaultSchema() *ConfigSchema {
	s := NewSchema()
	s.RegisterAll([]ConfigOption{
		{Key: "log.file", Description: "Log file path (JSON lines)", EnvVar: "ANNOTATOR_LOG_FILE"},
		{Key: "log.level", Default: "info", Description: "Log level: debug, info, warn, error", EnvVar: "ANNOTATOR_LOG_LEVEL"},
		{Key: "log.max-size-mb", Type: TypeInt, Default: "10", Description: "Log file size in MB before rotation"},
		{Key: "log.max-files", Type: TypeInt, Default: "5", Description: "Rotated log files kept"},
		{Key: "log.buffer-size", Type: TypeInt, Default: "1000", Description: "In-memory log entries kept for the log command"},

		{Key: "storage.backend", Default: "fs", Description: "Annotation storage: fs or memory", EnvVar: "ANNOTATOR_STORAGE"},
		{Key: "storage.dir", Description: "Annotation directory", EnvVar: "ANNOTATOR_STORAGE_DIR"},

		{Key: "canvas.width", Type: TypeFloat, Default: "960", Description: "Player area width in pixels"},
		{Key: "canvas.height", Type: TypeFloat, Default: "540", Description: "Player area height in pixels"},
		{Key: "canvas.aspect-ratio", Type: TypeRatio, Default: "16:9", Description: "Video aspect ratio fitted inside the player area"},

		{Key: "history.max-entries", Type: TypeInt, Default: "0", Description: "Undo entries kept, 0 for unbounded"},
		{Key: "locale", Default: "en", Description: "Notification language", EnvVar: "ANNOTATOR_LOCALE"},

		{Key: "player.start", Type: TypeFloat, Default: "0", Description: "Playback window start in seconds"},
		{Key: "player.end", Type: TypeFloat, Default: "3600", Description: "Playback window end in seconds"},
		{Key: "player.skip", Description: "Skipped segments, comma separated start-end seconds"},

		{Key: "columns", Section: "show", Type: TypeInt, Default: "0", Description: "Preview width, 0 to follow the terminal"},
		{Key: "color", Section: "show", Default: "auto", Description: "Colour mode: auto, always, never"},
		{Key: "legend", Section: "show", Type: TypeBool, Default: "true", Description: "List items under the preview"},

		{Key: "name", Section: "serve", Default: "inline-annotator", Description: "Implementation name announced to MCP clients"},
	})
	return s
}
