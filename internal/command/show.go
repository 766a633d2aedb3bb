package command

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"github.com/joeycumines/inline-annotator/internal/editor"
	"github.com/joeycumines/inline-annotator/internal/render"
	"github.com/joeycumines/inline-annotator/internal/storage"
)

// ShowCommand lists stored annotations or draws one.
type ShowCommand struct {
	*BaseCommand
	env      *Env
	id       int64
	columns  int
	color    string
	edit     bool
	noLegend bool
}

// NewShowCommand returns the show command.
func NewShowCommand(env *Env) *ShowCommand {
	return &ShowCommand{
		BaseCommand: NewBaseCommand("show", "List stored annotations, or draw one", "show [--id N] [options]"),
		env:         env,
	}
}

func (c *ShowCommand) SetupFlags(fs *flag.FlagSet) {
	fs.Int64Var(&c.id, "id", 0, "Annotation to draw; lists every annotation when unset")
	fs.IntVar(&c.columns, "columns", 0, "Width of the drawing in cells (default: [show] columns, then the terminal)")
	fs.StringVar(&c.color, "color", "", "Color output: auto, always or never (default: [show] color)")
	fs.BoolVar(&c.edit, "edit", false, "Draw as the editor sees it, without view normalization")
	fs.BoolVar(&c.noLegend, "no-legend", false, "Omit the item legend")
}

func (c *ShowCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		_, _ = fmt.Fprintf(stderr, "unexpected arguments: %v\n", args)
		return fmt.Errorf("unexpected arguments")
	}
	st, err := c.env.settings()
	if err != nil {
		return err
	}
	if c.id == 0 {
		return c.list(stdout)
	}

	var rec *storage.Record
	switch st.StorageBackend {
	case "memory":
		b, err := storage.GetBackend(st.StorageBackend, c.id)
		if err != nil {
			return err
		}
		rec, err = b.Load(c.id)
		if err != nil {
			return err
		}
	default:
		rec, err = storage.ReadRecord(c.id)
		if err != nil {
			return err
		}
	}
	if rec == nil {
		return fmt.Errorf("annotation %d has not been saved", c.id)
	}

	ctrl, err := editor.New(editor.Options{
		Annotation: editor.Annotation{ID: c.id, DraftAssetID: rec.DraftAssetID},
		Canvas:     canvasSize(st),
		View:       !c.edit,
		Logger:     c.env.slog(),
	})
	if err != nil {
		return err
	}
	if err := ctrl.Open(context.Background(), rec.Content); err != nil {
		return err
	}
	opts, err := c.renderOptions(stdout)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, render.View(ctrl.Snapshot(), opts))
	return err
}

func (c *ShowCommand) list(stdout io.Writer) error {
	infos, err := storage.ScanAnnotations()
	if err != nil {
		return fmt.Errorf("failed to scan annotations: %w", err)
	}
	if len(infos) == 0 {
		_, _ = fmt.Fprintln(stdout, "No annotations stored.")
		return nil
	}
	w := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tREVISION\tUPDATED\tSIZE\tSTATUS")
	for _, info := range infos {
		status := "idle"
		if info.Active {
			status = "open"
		}
		updated := "-"
		if !info.UpdatedAt.IsZero() {
			updated = info.UpdatedAt.Local().Format(time.DateTime)
		}
		_, _ = fmt.Fprintf(w, "%d\t%d\t%s\t%d\t%s\n", info.ID, info.Revision, updated, info.Size, status)
	}
	return w.Flush()
}

func (c *ShowCommand) renderOptions(stdout io.Writer) (render.Options, error) {
	schema, cfg := c.env.schema(), c.env.config()
	fd, isTerm := terminal(stdout)

	cols := c.columns
	if cols <= 0 {
		v, err := strconv.Atoi(schema.ResolveCommand(cfg, "show", "columns"))
		if err != nil {
			return render.Options{}, fmt.Errorf("invalid [show] columns: %w", err)
		}
		cols = v
	}
	if cols <= 0 {
		cols = render.DefaultColumns
		if isTerm {
			cols = render.TerminalColumns(fd, render.DefaultColumns) - 2
		}
	}

	mode := c.color
	if mode == "" {
		mode = schema.ResolveCommand(cfg, "show", "color")
	}
	var color bool
	switch mode {
	case "auto", "":
		color = isTerm && os.Getenv("NO_COLOR") == ""
	case "always":
		color = true
	case "never":
	default:
		return render.Options{}, errors.New("color must be auto, always or never")
	}

	legend := !c.noLegend
	if legend {
		if v, err := strconv.ParseBool(schema.ResolveCommand(cfg, "show", "legend")); err == nil {
			legend = v
		}
	}
	return render.Options{Columns: max(cols, 4), Color: color, Legend: legend}, nil
}

func terminal(w io.Writer) (uintptr, bool) {
	f, ok := w.(*os.File)
	if !ok {
		return 0, false
	}
	return f.Fd(), term.IsTerminal(int(f.Fd()))
}
