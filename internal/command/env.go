package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/joeycumines/inline-annotator/internal/config"
	"github.com/joeycumines/inline-annotator/internal/editor"
	"github.com/joeycumines/inline-annotator/internal/geometry"
	"github.com/joeycumines/inline-annotator/internal/item"
	"github.com/joeycumines/inline-annotator/internal/logging"
	"github.com/joeycumines/inline-annotator/internal/notify"
	"github.com/joeycumines/inline-annotator/internal/player"
	"github.com/joeycumines/inline-annotator/internal/session"
	"github.com/joeycumines/inline-annotator/internal/storage"
)

// Env is what the annotation commands share: configuration and the process
// logger.
type Env struct {
	Config *config.Config
	Schema *config.ConfigSchema
	Logger *logging.Logger
	// Stdin feeds commands that read scripts when no file is named.
	Stdin io.Reader

	// clock seeds item and group ids; nil uses the wall clock.
	clock func() int64
}

func (e *Env) schema() *config.ConfigSchema {
	if e.Schema == nil {
		return config.DefaultSchema()
	}
	return e.Schema
}

func (e *Env) config() *config.Config {
	if e.Config == nil {
		return config.NewConfig()
	}
	return e.Config
}

func (e *Env) slog() *slog.Logger {
	if e.Logger == nil || e.Logger.Logger == nil {
		return slog.Default()
	}
	return e.Logger.Logger
}

func (e *Env) settings() (config.Settings, error) {
	st, err := e.schema().Settings(e.config())
	if err != nil {
		return st, err
	}
	if st.StorageDir != "" {
		storage.SetDirectory(st.StorageDir)
	}
	return st, nil
}

// canvasSize fits the configured ratio into the configured canvas.
func canvasSize(st config.Settings) geometry.Size {
	ratio := st.AspectRatio
	if ratio <= 0 {
		ratio = geometry.DefaultAspectRatio
	}
	r := geometry.FitAspect(geometry.Size{Width: st.CanvasWidth, Height: st.CanvasHeight}, ratio)
	return geometry.Size{Width: r.Width, Height: r.Height}
}

// workspace is an annotation opened for editing.
type workspace struct {
	store   *storage.Store
	session *session.Session
	forms   *editor.QueuedForms
	player  *player.Simulated
	stored  *storage.Record
}

// open locks annotation id and starts a session on it. Notifications are
// logged and written to notices, if not nil.
func (e *Env) open(ctx context.Context, id int64, at float64, notices io.Writer) (*workspace, error) {
	if id <= 0 {
		return nil, fmt.Errorf("annotation id must be positive, got %d", id)
	}
	st, err := e.settings()
	if err != nil {
		return nil, err
	}
	backend, err := storage.GetBackend(st.StorageBackend, id)
	if err != nil {
		return nil, err
	}
	store := storage.NewStore(backend, id)
	rec, err := store.Load(ctx)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	skips, err := player.ParseSegments(st.PlayerSkip)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	catalog, err := notify.NewCatalog(st.Locale)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	var ids, groups *item.Sequence
	if e.clock != nil {
		ids, groups = item.NewSequence(e.clock), item.NewSequence(e.clock)
	}

	logger := e.slog()
	notifier := notify.Multi{notify.LogNotifier{Logger: logger}}
	if notices != nil {
		notifier = append(notifier, &notify.WriterNotifier{W: notices})
	}
	w := &workspace{
		store:  store,
		forms:  &editor.QueuedForms{},
		player: player.NewSimulated(player.Window{Start: st.PlayerStart, End: st.PlayerEnd}, skips...),
		stored: rec,
	}
	w.session, err = session.Start(ctx, session.Options{
		Editor: editor.Options{
			Annotation: editor.Annotation{ID: id, Timestamp: at, DraftAssetID: rec.DraftAssetID},
			Canvas:     canvasSize(st),
			MaxHistory: st.HistoryMaxEntries,
			Forms:      w.forms,
			Saver:      store,
			Player:     w.player,
			Notifier:   notifier,
			Catalog:    catalog,
			Logger:     logger,
			IDs:        ids,
			Groups:     groups,
		},
		Stored: rec.Content,
		Logger: logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return w, nil
}

// close stops the session without confirming unsaved changes, then
// releases the annotation.
func (w *workspace) close(ctx context.Context) error {
	return errors.Join(w.session.Shutdown(ctx), w.store.Close())
}
