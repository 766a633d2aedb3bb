package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joeycumines/inline-annotator/internal/command"
	"github.com/joeycumines/inline-annotator/internal/config"
	"github.com/joeycumines/inline-annotator/internal/logging"
)

const version = "0.1.0"

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Warning: ignoring configuration: %v\n", err)
		cfg = config.NewConfig()
	}
	schema := config.DefaultSchema()

	logger, err := newLogger(cfg, schema, stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()
	slog.SetDefault(logger.Logger)

	env := &command.Env{Config: cfg, Schema: schema, Logger: logger, Stdin: stdin}
	registry := command.NewRegistry()
	help := command.NewHelpCommand(registry)
	registry.Register(help)
	registry.Register(command.NewVersionCommand(version))
	registry.Register(command.NewConfigCommand(cfg, ""))
	registry.Register(command.NewShowCommand(env))
	registry.Register(command.NewApplyCommand(env))
	registry.Register(command.NewServeCommand(env, version))
	registry.Register(command.NewLogCommand(env))

	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" {
		return help.Execute(nil, stdout, stderr)
	}

	cmd, err := registry.Get(args[0])
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		_, _ = fmt.Fprintln(stderr, "Use 'annotator help' to see available commands.")
		return err
	}

	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "Usage: annotator %s\n", cmd.Usage())
		_, _ = fmt.Fprintf(stderr, "\n%s\n\n", cmd.Description())
		_, _ = fmt.Fprintln(stderr, "Options:")
		fs.PrintDefaults()
	}
	cmd.SetupFlags(fs)
	if err := fs.Parse(args[1:]); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}
	logger.Debug("running command", "command", cmd.Name(), "args", fs.Args())
	return cmd.Execute(fs.Args(), stdout, stderr)
}

// newLogger builds the process logger from the log.* options. Without a
// log file, warnings and errors go to stderr.
func newLogger(cfg *config.Config, schema *config.ConfigSchema, stderr io.Writer) (*logging.Logger, error) {
	st, err := schema.Settings(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	level, err := logging.ParseLevel(st.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Options{
		Level:      level,
		File:       st.LogFile,
		MaxSizeMB:  st.LogMaxSizeMB,
		MaxFiles:   st.LogMaxFiles,
		BufferSize: st.LogBufferSize,
		Stderr:     stderr,
	})
}
