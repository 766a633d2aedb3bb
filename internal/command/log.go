package command

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joeycumines/inline-annotator/internal/logging"
)

// LogCommand prints the end of the log file, optionally following it.
type LogCommand struct {
	*BaseCommand
	env    *Env
	follow bool
	lines  int
	file   string
	level  string
	grep   string

	poll    time.Duration
	waitFor time.Duration
	parent  context.Context
}

// NewLogCommand returns the log command.
func NewLogCommand(env *Env) *LogCommand {
	return &LogCommand{
		BaseCommand: NewBaseCommand("log", "Print or follow the log file", "log [tail] [options]"),
		env:         env,
		poll:        200 * time.Millisecond,
		waitFor:     30 * time.Second,
	}
}

func (c *LogCommand) SetupFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.follow, "f", false, "Follow the log file")
	fs.BoolVar(&c.follow, "follow", false, "Follow the log file")
	fs.IntVar(&c.lines, "n", 10, "Number of lines to print from the end")
	fs.StringVar(&c.file, "file", "", "Log file to read (default: log.file)")
	fs.StringVar(&c.level, "level", "", "Only print records at or above this level")
	fs.StringVar(&c.grep, "grep", "", "Only print lines containing this text")
}

// Execute prints the log. "log tail" is "log --follow".
func (c *LogCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 && args[0] == "tail" {
		c.follow = true
		args = args[1:]
	}
	if len(args) > 0 {
		_, _ = fmt.Fprintf(stderr, "unknown subcommand: %s\n", args[0])
		return fmt.Errorf("unknown subcommand: %s", args[0])
	}

	path := c.file
	if path == "" {
		path = c.env.schema().Resolve(c.env.config(), "log.file")
	}
	if path == "" {
		_, _ = fmt.Fprintln(stderr, "No log file configured. Use --file or set log.file.")
		return errors.New("no log file configured")
	}
	keep, err := c.filter()
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) && c.follow {
		_, _ = fmt.Fprintf(stderr, "Waiting for log file: %s\n", path)
		f, err = c.wait(context.Background(), path)
	}
	if errors.Is(err, os.ErrNotExist) {
		_, _ = fmt.Fprintf(stderr, "Log file does not exist: %s\n", path)
		return fmt.Errorf("log file not found: %s", path)
	}
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	for _, line := range lastLines(f, c.lines, keep) {
		_, _ = fmt.Fprintln(stdout, line)
	}
	if !c.follow {
		return f.Close()
	}

	parent := c.parent
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()
	err = c.followFile(ctx, f, path, keep, stdout, stderr)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// filter returns the line predicate for the level and grep flags. Lines
// that are not JSON records pass the level check.
func (c *LogCommand) filter() (func(string) bool, error) {
	var minLevel *slog.Level
	if c.level != "" {
		lvl, err := logging.ParseLevel(c.level)
		if err != nil {
			return nil, err
		}
		minLevel = &lvl
	}
	return func(line string) bool {
		if c.grep != "" && !strings.Contains(line, c.grep) {
			return false
		}
		if minLevel == nil {
			return true
		}
		name, ok := recordLevel(line)
		if !ok {
			return true
		}
		got, err := logging.ParseLevel(name)
		return err != nil || got >= *minLevel
	}, nil
}

// recordLevel finds the "level" field of a JSON log line.
func recordLevel(line string) (string, bool) {
	const key = `"level":"`
	i := strings.Index(line, key)
	if i < 0 {
		return "", false
	}
	rest := line[i+len(key):]
	j := strings.IndexByte(rest, '"')
	if j < 0 {
		return "", false
	}
	return rest[:j], true
}

// lastLines returns the last n lines of r that keep accepts.
func lastLines(r io.Reader, n int, keep func(string) bool) []string {
	if n <= 0 {
		return nil
	}
	ring := make([]string, 0, n)
	next := 0
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if keep != nil && !keep(line) {
			continue
		}
		if len(ring) < n {
			ring = append(ring, line)
			continue
		}
		ring[next] = line
		next = (next + 1) % n
	}
	return append(ring[next:], ring[:next]...)
}

// followFile prints lines appended to f until ctx is done. A file that
// shrinks or disappears was rotated and is reopened from the start.
func (c *LogCommand) followFile(ctx context.Context, f *os.File, path string, keep func(string) bool, stdout, stderr io.Writer) error {
	pos, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to seek to end: %w", err)
	}
	defer func() { _ = f.Close() }()

	reader := bufio.NewReader(f)
	var partial string
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		info, err := os.Stat(path)
		switch {
		case err != nil:
			_ = f.Close()
			_, _ = fmt.Fprintln(stderr, "Log file rotated, waiting for the new file...")
			if f, err = c.wait(ctx, path); err != nil {
				return err
			}
			reader, pos, partial = bufio.NewReader(f), 0, ""
		case info.Size() < pos:
			next, err := os.Open(path)
			if err != nil {
				continue
			}
			_ = f.Close()
			f = next
			reader, pos, partial = bufio.NewReader(f), 0, ""
		}

		for {
			chunk, err := reader.ReadString('\n')
			pos += int64(len(chunk))
			if err != nil {
				partial += chunk
				break
			}
			line := strings.TrimSuffix(partial+chunk, "\n")
			partial = ""
			if keep == nil || keep(line) {
				_, _ = fmt.Fprintln(stdout, line)
			}
		}
	}
}

// wait polls for path to appear.
func (c *LogCommand) wait(ctx context.Context, path string) (*os.File, error) {
	ctx, cancel := context.WithTimeout(ctx, c.waitFor)
	defer cancel()
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()
	for {
		f, err := os.Open(path)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("timed out waiting for log file: %s", path)
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
