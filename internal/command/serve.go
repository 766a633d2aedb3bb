package command

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/joeycumines/inline-annotator/internal/mcpserver"
	"github.com/joeycumines/inline-annotator/internal/render"
)

// ServeCommand serves one annotation to an MCP client over stdio.
type ServeCommand struct {
	*BaseCommand
	env        *Env
	version    string
	id         int64
	at         float64
	saveOnExit bool
	transport  mcp.Transport
	parent     context.Context
}

// NewServeCommand returns the serve command.
func NewServeCommand(env *Env, version string) *ServeCommand {
	return &ServeCommand{
		BaseCommand: NewBaseCommand("serve", "Serve an annotation as MCP tools over stdio", "serve --id N [options]"),
		env:         env,
		version:     version,
	}
}

func (c *ServeCommand) SetupFlags(fs *flag.FlagSet) {
	fs.Int64Var(&c.id, "id", 0, "Annotation to serve (required)")
	fs.Float64Var(&c.at, "at", 0, "Playback second the annotation belongs to")
	fs.BoolVar(&c.saveOnExit, "save-on-exit", false, "Save unsaved changes when the client disconnects")
}

func (c *ServeCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		_, _ = fmt.Fprintf(stderr, "unexpected arguments: %v\n", args)
		return fmt.Errorf("unexpected arguments")
	}
	if c.id <= 0 {
		_, _ = fmt.Fprintln(stderr, "serve needs --id")
		return fmt.Errorf("missing annotation id")
	}

	parent := c.parent
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// stdout carries the protocol, so notifications only reach the log
	w, err := c.env.open(ctx, c.id, c.at, nil)
	if err != nil {
		return err
	}
	logger := c.env.slog().With("annotation", c.id)

	opts := mcpserver.Options{
		Name:    c.env.schema().ResolveCommand(c.env.config(), "serve", "name"),
		Version: c.version,
		Target:  w.session,
		Forms:   w.forms,
		Player:  w.player,
		Render:  render.Options{Legend: true},
		Logger:  logger,
	}
	if c.env.Logger != nil {
		opts.Logs = c.env.Logger.Ring
	}
	srv, err := mcpserver.New(opts)
	if err != nil {
		_ = w.close(ctx)
		return err
	}

	transport := c.transport
	if transport == nil {
		transport = &mcp.StdioTransport{}
	}
	logger.Info("serving annotation")
	runErr := srv.Run(ctx, transport)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	done := context.WithoutCancel(ctx)
	if c.saveOnExit {
		v, err := w.session.View(done)
		if err == nil && v.Dirty {
			err = w.session.Save(done)
		}
		if err != nil {
			runErr = errors.Join(runErr, fmt.Errorf("failed to save on exit: %w", err))
		}
	}
	logger.Info("annotation server stopped")
	return errors.Join(runErr, w.close(done))
}
