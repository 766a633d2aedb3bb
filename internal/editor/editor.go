// Package editor implements the interaction controller of the annotation
// canvas: the state machine that turns gestures and commands into changes to
// the item model, and bridges to the form, persistence, player and
// notification collaborators.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/joeycumines/inline-annotator/internal/geometry"
	"github.com/joeycumines/inline-annotator/internal/history"
	"github.com/joeycumines/inline-annotator/internal/item"
	"github.com/joeycumines/inline-annotator/internal/notify"
	"github.com/joeycumines/inline-annotator/internal/player"
	"github.com/joeycumines/inline-annotator/internal/selection"
)

var (
	ErrClosed                 = errors.New("editor is closed")
	ErrBusy                   = errors.New("editor is busy")
	ErrViewOnly               = errors.New("editor is in view mode")
	ErrNoSelection            = errors.New("no item selected")
	ErrSingleSelection        = errors.New("exactly one item must be selected")
	ErrFormCancelled          = errors.New("form cancelled")
	ErrTimestampOutsideWindow = errors.New("timestamp outside the playback window")
	ErrTimestampInSkipSegment = errors.New("timestamp inside a skip segment")
	ErrSaveInFlight           = errors.New("a save is already in flight")
	ErrCloseCancelled         = errors.New("close cancelled")
	ErrUnsavedChanges         = errors.New("unsaved changes")
	ErrNoSaver                = errors.New("no persistence configured")
)

// State is the controller's interaction state.
type State int

const (
	StateIdle State = iota
	StateDragging
	StateResizing
	StateEditingForm
	StateKeyboardNudge
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDragging:
		return "dragging"
	case StateResizing:
		return "resizing"
	case StateEditingForm:
		return "editing-form"
	case StateKeyboardNudge:
		return "keyboard-nudge"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Annotation identifies the annotation being edited.
type Annotation struct {
	ID int64
	// Timestamp is the playback second the canvas belongs to.
	Timestamp    float64
	DraftAssetID int64
}

// FormRequest asks the form collaborator for a property bag.
type FormRequest struct {
	// Kind names the form, see item.Type.FormKind.
	Kind         string
	Type         item.Type
	AnnotationID int64
	// ItemID is zero when adding.
	ItemID  item.ID
	Initial item.Properties
}

// FormProvider collects item properties from the user. Open returns
// ErrFormCancelled when the user dismisses the form.
type FormProvider interface {
	Open(ctx context.Context, req FormRequest) (item.Properties, error)
}

// SaveRequest is the payload sent to the persistence collaborator. Items is
// the item list JSON with < and > HTML escaped.
type SaveRequest struct {
	AnnotationID int64  `json:"id"`
	Items        string `json:"value"`
	DraftAssetID int64  `json:"draftitemid"`
}

// SaveResult is the stored record returned by a successful save.
type SaveResult struct {
	AnnotationID int64     `json:"id"`
	Items        string    `json:"value"`
	DraftAssetID int64     `json:"draftitemid"`
	Revision     int64     `json:"revision"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Saver persists an annotation's items.
type Saver interface {
	Save(ctx context.Context, req SaveRequest) (*SaveResult, error)
}

// Choice is the answer to the unsaved changes prompt.
type Choice int

const (
	ChoiceCancel Choice = iota
	ChoiceSave
	ChoiceDiscard
)

// Confirmer asks the user what to do with unsaved changes.
type Confirmer interface {
	Confirm(ctx context.Context, title, message string) (Choice, error)
}

// Player is the video player and timeline the canvas is attached to.
type Player interface {
	CurrentTime(ctx context.Context) (float64, error)
	Seek(ctx context.Context, t float64) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Subscribe(fn func(player.Event)) (cancel func())
	InPlaybackWindow(t float64) bool
	InSkipSegment(t float64) bool
	Window() player.Window
}

// Options configures a Controller.
type Options struct {
	Annotation Annotation
	// Canvas is the canvas size in pixels.
	Canvas geometry.Size
	// View opens the canvas read-only, with display normalization applied.
	View       bool
	MaxHistory int

	Forms     FormProvider
	Saver     Saver
	Player    Player
	Notifier  notify.Notifier
	Catalog   *notify.Catalog
	Confirmer Confirmer
	Logger    *slog.Logger

	IDs    *item.Sequence
	Groups *item.Sequence
	// Rand returns values in [0, 1) used to scatter new items.
	Rand func() float64
	// Dispatch runs callbacks arriving from other goroutines, such as
	// player events, on the goroutine that owns the controller.
	Dispatch func(func())
}

// Controller owns one editor session. It is not safe for concurrent use;
// see the session package for a loop that serializes access.
type Controller struct {
	annotation Annotation
	canvas     geometry.Size
	editing    bool
	hidden     bool
	state      State

	items     *item.Registry
	selection *selection.Set
	history   *history.History

	forms     FormProvider
	saver     Saver
	player    Player
	notifier  notify.Notifier
	catalog   *notify.Catalog
	confirmer Confirmer
	logger    *slog.Logger
	rand      func() float64
	dispatch  func(func())

	revision      uint64
	savedRevision uint64
	savedItems    []byte
	saveSem       *semaphore.Weighted

	drag   *dragSession
	resize *resizeSession

	unsubscribe func()
	listeners   map[int]func(Event)
	nextHandle  int
}

// New returns a controller with an empty canvas. Call Open to hydrate it.
func New(opts Options) (*Controller, error) {
	if opts.Canvas.Width <= 0 || opts.Canvas.Height <= 0 {
		return nil, fmt.Errorf("invalid canvas size %vx%v", opts.Canvas.Width, opts.Canvas.Height)
	}
	c := &Controller{
		annotation: opts.Annotation,
		canvas:     opts.Canvas,
		editing:    !opts.View,
		items:      item.NewRegistry(opts.IDs, opts.Groups),
		selection:  selection.NewSet(),
		forms:      opts.Forms,
		saver:      opts.Saver,
		player:     opts.Player,
		notifier:   opts.Notifier,
		catalog:    opts.Catalog,
		confirmer:  opts.Confirmer,
		logger:     opts.Logger,
		rand:       opts.Rand,
		dispatch:   opts.Dispatch,
		saveSem:    semaphore.NewWeighted(1),
		listeners:  make(map[int]func(Event)),
	}
	var hopts []history.Option
	if opts.MaxHistory != 0 {
		hopts = append(hopts, history.WithMaxEntries(opts.MaxHistory))
	}
	c.history = history.New(hopts...)
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("annotation", opts.Annotation.ID)
	if c.notifier == nil {
		c.notifier = notify.LogNotifier{Logger: c.logger}
	}
	if c.catalog == nil {
		cat, err := notify.NewCatalog("")
		if err != nil {
			return nil, fmt.Errorf("failed to build message catalog: %w", err)
		}
		c.catalog = cat
	}
	if c.rand == nil {
		c.rand = rand.Float64
	}
	if c.dispatch == nil {
		c.dispatch = func(fn func()) { fn() }
	}
	return c, nil
}

// Open hydrates the canvas from stored item JSON (escaped as written by
// Save) and records the initial state as the undo floor.
func (c *Controller) Open(ctx context.Context, stored string) error {
	if c.state == StateClosed {
		return ErrClosed
	}
	items, err := item.DecodeStored(stored)
	if err != nil {
		return fmt.Errorf("failed to open annotation: %w", err)
	}
	if err := c.items.Load(items); err != nil {
		return fmt.Errorf("failed to open annotation: %w", err)
	}
	c.selection.Clear()
	c.history.Clear()
	if err := c.history.Seed(c.items.Items()); err != nil {
		return fmt.Errorf("failed to open annotation: %w", err)
	}
	if c.savedItems, err = item.Encode(c.items.Items()); err != nil {
		return fmt.Errorf("failed to open annotation: %w", err)
	}
	c.revision, c.savedRevision = 0, 0
	if c.player != nil && c.unsubscribe == nil {
		c.unsubscribe = c.player.Subscribe(func(e player.Event) {
			c.dispatch(func() { c.HandlePlayerEvent(ctx, e) })
		})
	}
	c.logger.DebugContext(ctx, "annotation opened", "items", c.items.Len(), "editing", c.editing)
	c.emit(Event{Type: EventChanged})
	return nil
}

// State returns the interaction state.
func (c *Controller) State() State { return c.state }

// Editing reports whether the canvas is in edit mode.
func (c *Controller) Editing() bool { return c.editing }

// Dirty reports whether there are changes not yet saved. Undoing or redoing
// back to the saved items is not a change.
func (c *Controller) Dirty() bool { return c.revision != c.savedRevision }

// Items returns copies of the live items.
func (c *Controller) Items() []item.Item { return c.items.Items() }

// Selection returns the active ids in selection order.
func (c *Controller) Selection() []item.ID { return c.selection.IDs() }

// CanUndo reports whether Undo would change anything.
func (c *Controller) CanUndo() bool { return c.history.CanUndo() }

// CanRedo reports whether Redo would change anything.
func (c *Controller) CanRedo() bool { return c.history.CanRedo() }

// HistoryLen is the number of history entries.
func (c *Controller) HistoryLen() int { return c.history.Len() }

// Canvas returns the canvas size.
func (c *Controller) Canvas() geometry.Size { return c.canvas }

// ready guards commands that need an idle, open controller.
func (c *Controller) ready(needEdit bool) error {
	switch {
	case c.state == StateClosed:
		return ErrClosed
	case c.state != StateIdle:
		return fmt.Errorf("%w: %s", ErrBusy, c.state)
	case needEdit && !c.editing:
		return ErrViewOnly
	}
	return nil
}

// commit snapshots the model into history and marks it changed.
func (c *Controller) commit(ctx context.Context, actives []item.ID) error {
	if err := c.history.Commit(c.items.Items(), actives); err != nil {
		return err
	}
	c.revision++
	c.logger.DebugContext(ctx, "history committed", "entries", c.history.Len(), "actives", actives)
	c.emit(Event{Type: EventChanged})
	return nil
}

func (c *Controller) notify(ctx context.Context, level notify.Level, key notify.Key, args ...any) {
	if err := c.notifier.Notify(ctx, c.catalog.New(level, key, args...)); err != nil {
		c.logger.WarnContext(ctx, "failed to deliver notification", "key", string(key), "error", err)
	}
}
