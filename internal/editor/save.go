package editor

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/joeycumines/inline-annotator/internal/item"
	"github.com/joeycumines/inline-annotator/internal/notify"
)

// PendingSave is a save that has been started with BeginSave and must be
// finished with CompleteSave.
type PendingSave struct {
	Request  SaveRequest
	revision uint64
	items    []byte
	done     bool
}

// BeginSave snapshots the items into a save request. Only one save may be
// in flight; a second call fails with ErrSaveInFlight until CompleteSave.
func (c *Controller) BeginSave(ctx context.Context) (*PendingSave, error) {
	if c.state == StateClosed {
		return nil, ErrClosed
	}
	if !c.saveSem.TryAcquire(1) {
		return nil, ErrSaveInFlight
	}
	items := c.items.Items()
	value, err := item.EncodeForStorage(items)
	if err != nil {
		c.saveSem.Release(1)
		return nil, fmt.Errorf("failed to save: %w", err)
	}
	snapshot, err := item.Encode(items)
	if err != nil {
		c.saveSem.Release(1)
		return nil, fmt.Errorf("failed to save: %w", err)
	}
	return &PendingSave{
		Request: SaveRequest{
			AnnotationID: c.annotation.ID,
			Items:        value,
			DraftAssetID: c.annotation.DraftAssetID,
		},
		revision: c.revision,
		items:    snapshot,
	}, nil
}

// CompleteSave finishes p with the outcome of the persistence call. On
// success the history is cleared, and the changes captured by p are no
// longer dirty. On failure the user is notified and the editor stays dirty.
func (c *Controller) CompleteSave(ctx context.Context, p *PendingSave, res *SaveResult, saveErr error) error {
	if p == nil || p.done {
		return errors.New("save already completed")
	}
	p.done = true
	defer c.saveSem.Release(1)

	if saveErr != nil {
		c.logger.ErrorContext(ctx, "failed to save annotation", "error", saveErr)
		c.notify(ctx, notify.LevelDanger, notify.KeySaveFailed, saveErr.Error())
		return fmt.Errorf("failed to save: %w", saveErr)
	}
	if c.state != StateClosed {
		c.history.Clear()
	}
	if res != nil && res.DraftAssetID != 0 {
		c.annotation.DraftAssetID = res.DraftAssetID
	}
	c.savedItems = p.items
	c.savedRevision = p.revision
	if current, err := item.Encode(c.items.Items()); err == nil && bytes.Equal(current, p.items) {
		c.savedRevision = c.revision
	}
	c.logger.InfoContext(ctx, "annotation saved", "dirty", c.Dirty())
	c.notify(ctx, notify.LevelInfo, notify.KeySaved)
	c.emit(Event{Type: EventAnnotationUpdated, Result: res})
	return nil
}

// SaveInFlight reports whether a save has begun and not completed.
func (c *Controller) SaveInFlight() bool {
	if c.saveSem.TryAcquire(1) {
		c.saveSem.Release(1)
		return false
	}
	return true
}

// Save persists the items through the configured Saver. It fails with
// ErrSaveInFlight while a save started with BeginSave is pending.
func (c *Controller) Save(ctx context.Context) error {
	if c.saver == nil {
		return ErrNoSaver
	}
	p, err := c.BeginSave(ctx)
	if err != nil {
		return err
	}
	res, err := c.saver.Save(ctx, p.Request)
	return c.CompleteSave(ctx, p, res, err)
}

// Close ends the session. Unsaved changes are confirmed first: saving
// closes only once the save succeeded, discarding closes immediately and
// cancelling keeps the editor open.
func (c *Controller) Close(ctx context.Context) error {
	if c.state == StateClosed {
		return nil
	}
	if c.state != StateIdle {
		return fmt.Errorf("%w: %s", ErrBusy, c.state)
	}
	if c.Dirty() {
		if c.confirmer == nil {
			return ErrUnsavedChanges
		}
		choice, err := c.confirmer.Confirm(ctx,
			c.catalog.Text(notify.KeyUnsavedChange),
			c.catalog.Text(notify.KeyUnsavedChangeQuery))
		if err != nil {
			return fmt.Errorf("failed to confirm close: %w", err)
		}
		switch choice {
		case ChoiceSave:
			if err := c.Save(ctx); err != nil {
				return err
			}
		case ChoiceDiscard:
		default:
			return ErrCloseCancelled
		}
	}
	c.teardown(ctx, "closed")
	return nil
}

// teardown discards the editor state. Saves already in flight still
// complete.
func (c *Controller) teardown(ctx context.Context, reason string) {
	if c.state == StateClosed {
		return
	}
	if c.Dirty() {
		c.logger.WarnContext(ctx, "discarding unsaved changes", "reason", reason)
	}
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	c.drag, c.resize = nil, nil
	c.selection.Clear()
	c.history.Clear()
	c.state = StateClosed
	c.logger.InfoContext(ctx, "editor torn down", "reason", reason)
	c.emit(Event{Type: EventTornDown, Reason: reason})
}
