package editor

import (
	"context"
	"fmt"
	"math"

	"github.com/joeycumines/inline-annotator/internal/geometry"
	"github.com/joeycumines/inline-annotator/internal/item"
	"github.com/joeycumines/inline-annotator/internal/notify"
	"github.com/joeycumines/inline-annotator/internal/player"
)

// CheckTimestamp validates a timestamp field value against the player's
// playback window and skip segments, notifying the user on rejection. An
// empty value is accepted.
func (c *Controller) CheckTimestamp(ctx context.Context, value string) error {
	t, err := geometry.ParseTimestamp(value)
	if err != nil {
		c.notify(ctx, notify.LevelDanger, notify.KeyInvalidTimestamp, value)
		return err
	}
	if t == geometry.NoTimestamp || c.player == nil {
		return nil
	}
	if !c.player.InPlaybackWindow(t) {
		w := c.player.Window()
		c.notify(ctx, notify.LevelDanger, notify.KeyTimeOutsideWindow,
			geometry.FormatTimestamp(w.Start), geometry.FormatTimestamp(w.End))
		return fmt.Errorf("%w: %s", ErrTimestampOutsideWindow, value)
	}
	if c.player.InSkipSegment(t) {
		c.notify(ctx, notify.LevelDanger, notify.KeyInSkipSegment)
		return fmt.Errorf("%w: %s", ErrTimestampInSkipSegment, value)
	}
	return nil
}

// reviewTimestamp reverts a rejected timestamp field of a submitted form
// to its prior value.
func (c *Controller) reviewTimestamp(ctx context.Context, t item.Type, props item.Properties, prior string) item.Properties {
	if !t.Timestamped() {
		return props
	}
	value := props.String("timestamp")
	if value == prior {
		return props
	}
	if err := c.CheckTimestamp(ctx, value); err != nil {
		c.logger.WarnContext(ctx, "timestamp rejected", "value", value, "error", err)
		if prior == "" {
			delete(props, "timestamp")
		} else {
			props["timestamp"] = prior
		}
	}
	return props
}

// HandlePlayerEvent tears the canvas down when playback seeks or plays away
// from the annotation's second.
func (c *Controller) HandlePlayerEvent(ctx context.Context, e player.Event) {
	if c.state == StateClosed {
		return
	}
	switch e.Type {
	case player.EventSeek, player.EventPlay:
	default:
		return
	}
	if math.Floor(e.Time) == math.Floor(c.annotation.Timestamp) {
		return
	}
	c.teardown(ctx, fmt.Sprintf("playback moved to %s", geometry.FormatTimestamp(e.Time)))
}

// Activate handles a click on an item in view mode: items with a timestamp
// seek the player there and resume playback. It reports whether the player
// was moved.
func (c *Controller) Activate(ctx context.Context, id item.ID) (bool, error) {
	if c.state == StateClosed {
		return false, ErrClosed
	}
	if c.editing {
		return false, fmt.Errorf("activate requires view mode")
	}
	it, err := c.items.Get(id)
	if err != nil {
		return false, err
	}
	t, err := it.Properties.Timestamp()
	if err != nil {
		return false, fmt.Errorf("failed to activate item %d: %w", id, err)
	}
	if t == geometry.NoTimestamp || c.player == nil {
		return false, nil
	}
	if err := c.player.Seek(ctx, t); err != nil {
		return false, fmt.Errorf("failed to seek: %w", err)
	}
	if err := c.player.Play(ctx); err != nil {
		return false, fmt.Errorf("failed to play: %w", err)
	}
	return true, nil
}
