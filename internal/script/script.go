// Package script drives an editor from text: one command per line, as used
// by the apply command and the MCP run tool.
package script

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/joeycumines/inline-annotator/internal/editor"
	"github.com/joeycumines/inline-annotator/internal/render"
)

// ErrUnknownCommand is returned for a line naming no known command.
var ErrUnknownCommand = errors.New("unknown command")

// ErrExpectation is returned by a failed expect line.
var ErrExpectation = errors.New("expectation failed")

// Target runs controller calls, typically a *session.Session.
type Target interface {
	Do(ctx context.Context, fn func(*editor.Controller) error) error
	Save(ctx context.Context) error
}

// Runner executes script lines against a Target.
type Runner struct {
	Target Target
	// Forms answers the forms that add and edit open.
	Forms *editor.QueuedForms
	// Player serves seek, play and pause; nil disables them.
	Player editor.Player
	Out    io.Writer
	Render render.Options
	Logger *slog.Logger
	// KeepGoing runs the remaining lines after a failure.
	KeepGoing bool
}

// LineError reports the script line a command failed on.
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e *LineError) Error() string { return fmt.Sprintf("line %d: %s: %v", e.Line, e.Text, e.Err) }
func (e *LineError) Unwrap() error { return e.Err }

// Run executes every line of src.
func (r *Runner) Run(ctx context.Context, src io.Reader) error {
	var errs []error
	sc := bufio.NewScanner(src)
	n := 0
	for sc.Scan() {
		n++
		text := strings.TrimSpace(sc.Text())
		if err := r.Exec(ctx, text); err != nil {
			lerr := &LineError{Line: n, Text: text, Err: err}
			if !r.KeepGoing {
				return lerr
			}
			r.logger().WarnContext(ctx, "script line failed", "line", n, "error", err)
			errs = append(errs, lerr)
		}
	}
	if err := sc.Err(); err != nil {
		errs = append(errs, fmt.Errorf("failed to read script: %w", err))
	}
	return errors.Join(errs...)
}

// Exec executes one line. Blank and comment lines do nothing.
func (r *Runner) Exec(ctx context.Context, line string) error {
	toks, err := Split(line)
	if err != nil {
		return err
	}
	if len(toks) == 0 {
		return nil
	}
	name := strings.ToLower(toks[0].Text)
	cmd, ok := commands()[name]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownCommand, toks[0].Text)
	}
	args := toks[1:]
	if len(args) < cmd.min || (cmd.max >= 0 && len(args) > cmd.max) {
		return fmt.Errorf("usage: %s", cmd.usage)
	}
	r.logger().DebugContext(ctx, "script command", "command", name, "args", len(args))
	return cmd.run(ctx, r, args)
}

// Usage lists the command synopses in name order.
func Usage() []string {
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	slices.Sort(names)
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = cmds[name].usage
	}
	return out
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *Runner) printf(format string, args ...any) {
	if r.Out != nil {
		fmt.Fprintf(r.Out, format, args...)
	}
}

func (r *Runner) do(ctx context.Context, fn func(*editor.Controller) error) error {
	return r.Target.Do(ctx, fn)
}

func (r *Runner) view(ctx context.Context) (editor.View, error) {
	var v editor.View
	err := r.do(ctx, func(c *editor.Controller) error {
		v = c.Snapshot()
		return nil
	})
	return v, err
}
