package command

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/joeycumines/inline-annotator/internal/render"
	"github.com/joeycumines/inline-annotator/internal/script"
)

// ApplyCommand runs editing scripts against an annotation.
type ApplyCommand struct {
	*BaseCommand
	env       *Env
	id        int64
	at        float64
	save      bool
	keepGoing bool
	quiet     bool
}

// NewApplyCommand returns the apply command.
func NewApplyCommand(env *Env) *ApplyCommand {
	return &ApplyCommand{
		BaseCommand: NewBaseCommand("apply", "Run an editing script against an annotation", "apply --id N [options] [script...]"),
		env:         env,
	}
}

func (c *ApplyCommand) SetupFlags(fs *flag.FlagSet) {
	fs.Int64Var(&c.id, "id", 0, "Annotation to edit (required)")
	fs.Float64Var(&c.at, "at", 0, "Playback second the annotation belongs to")
	fs.BoolVar(&c.save, "save", false, "Save once every script ran")
	fs.BoolVar(&c.keepGoing, "keep-going", false, "Keep running after a failed line")
	fs.BoolVar(&c.quiet, "quiet", false, "Do not print notifications")
}

// Execute runs each named script in order, or stdin when none is named.
func (c *ApplyCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if c.id <= 0 {
		_, _ = fmt.Fprintln(stderr, "apply needs --id")
		return fmt.Errorf("missing annotation id")
	}
	ctx := context.Background()
	var notices io.Writer = stderr
	if c.quiet {
		notices = nil
	}
	w, err := c.env.open(ctx, c.id, c.at, notices)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.close(ctx); cerr != nil {
			c.env.slog().Warn("failed to close annotation", "annotation", c.id, "error", cerr)
		}
	}()

	r := &script.Runner{
		Target:    w.session,
		Forms:     w.forms,
		Player:    w.player,
		Out:       stdout,
		Render:    render.Options{Legend: true},
		Logger:    c.env.slog(),
		KeepGoing: c.keepGoing,
	}
	var errs []error
	if len(args) == 0 {
		in := c.env.Stdin
		if in == nil {
			in = os.Stdin
		}
		errs = append(errs, r.Run(ctx, in))
	}
	for _, path := range args {
		if err := runFile(ctx, r, path); err != nil {
			errs = append(errs, err)
			if !c.keepGoing {
				break
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	if c.save {
		if err := w.session.Save(ctx); err != nil {
			return fmt.Errorf("failed to save annotation %d: %w", c.id, err)
		}
	}
	v, err := w.session.View(ctx)
	if err != nil {
		return err
	}
	if v.Dirty {
		_, _ = fmt.Fprintf(stderr, "annotation %d has unsaved changes; add a save line or pass --save\n", c.id)
	}
	return nil
}

func runFile(ctx context.Context, r *script.Runner, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open script: %w", err)
	}
	defer f.Close()
	if err := r.Run(ctx, f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
