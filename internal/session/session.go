// Package session hosts an editor controller on its own event loop, so
// callers on any goroutine can drive it.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	eventloop "github.com/joeycumines/go-eventloop"
	"golang.org/x/sync/semaphore"

	"github.com/joeycumines/inline-annotator/internal/editor"
)

// ErrClosed is returned after the session has shut down.
var ErrClosed = errors.New("session is closed")

// Options configure Start.
type Options struct {
	// Editor configures the hosted controller. Its Dispatch is replaced by
	// the session loop.
	Editor editor.Options
	// Stored is the stored item JSON the controller opens with.
	Stored string
	Logger *slog.Logger
}

// Session owns one controller. Every controller call runs as a task on the
// session's loop; persistence runs off the loop.
type Session struct {
	loop   *eventloop.Loop
	ctrl   *editor.Controller
	saver  editor.Saver
	logger *slog.Logger
	saves  *semaphore.Weighted
	done   chan struct{}
	runErr error
}

// Start creates the loop and the controller and opens the stored items.
func Start(ctx context.Context, opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	loop, err := eventloop.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create event loop: %w", err)
	}
	s := &Session{
		loop:   loop,
		saver:  opts.Editor.Saver,
		logger: logger.With("annotation", opts.Editor.Annotation.ID),
		saves:  semaphore.NewWeighted(1),
		done:   make(chan struct{}),
	}

	eopts := opts.Editor
	if eopts.Logger == nil {
		eopts.Logger = logger
	}
	eopts.Dispatch = s.dispatch
	ctrl, err := editor.New(eopts)
	if err != nil {
		_ = loop.Close()
		return nil, err
	}
	s.ctrl = ctrl

	go func() {
		defer close(s.done)
		if err := loop.Run(context.Background()); err != nil && !errors.Is(err, eventloop.ErrLoopTerminated) {
			s.runErr = err
		}
	}()

	if err := s.Do(ctx, func(c *editor.Controller) error { return c.Open(ctx, opts.Stored) }); err != nil {
		_ = s.Shutdown(context.Background())
		return nil, err
	}
	return s, nil
}

// dispatch queues fn on the loop. Player callbacks arrive through here.
func (s *Session) dispatch(fn func()) {
	if err := s.loop.Submit(fn); err != nil {
		s.logger.Warn("dropped event loop task", "error", err)
	}
}

// Do runs fn on the loop and waits for it. It must not be called from a
// task already running on the loop.
func (s *Session) Do(ctx context.Context, fn func(*editor.Controller) error) error {
	result := make(chan error, 1)
	task := func() {
		defer func() {
			if r := recover(); r != nil {
				result <- fmt.Errorf("panic in session task: %v", r)
			}
		}()
		result <- fn(s.ctrl)
	}
	if err := s.loop.Submit(task); err != nil {
		if errors.Is(err, eventloop.ErrLoopTerminated) {
			return ErrClosed
		}
		return fmt.Errorf("failed to submit task: %w", err)
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		select {
		case err := <-result:
			return err
		default:
			return ErrClosed
		}
	}
}

// View returns a snapshot of the controller.
func (s *Session) View(ctx context.Context) (editor.View, error) {
	var v editor.View
	err := s.Do(ctx, func(c *editor.Controller) error {
		v = c.Snapshot()
		return nil
	})
	return v, err
}

// Save persists the items. Concurrent callers are served one at a time;
// the persistence call runs off the loop, so other tasks keep running
// while it is in flight.
func (s *Session) Save(ctx context.Context) error {
	if s.saver == nil {
		return editor.ErrNoSaver
	}
	if err := s.saves.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.saves.Release(1)

	var pending *editor.PendingSave
	if err := s.Do(ctx, func(c *editor.Controller) (err error) {
		pending, err = c.BeginSave(ctx)
		return err
	}); err != nil {
		return err
	}
	res, saveErr := s.saver.Save(ctx, pending.Request)
	// completion must land even if ctx is done, or the save stays in flight
	return s.Do(context.WithoutCancel(ctx), func(c *editor.Controller) error {
		return c.CompleteSave(ctx, pending, res, saveErr)
	})
}

// Subscribe registers fn for controller events. fn runs on the loop.
func (s *Session) Subscribe(ctx context.Context, fn func(editor.Event)) (func(), error) {
	var cancel func()
	err := s.Do(ctx, func(c *editor.Controller) error {
		cancel = c.OnEvent(fn)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return func() { s.dispatch(cancel) }, nil
}

// Close closes the controller, confirming unsaved changes, and shuts the
// loop down once it closed.
func (s *Session) Close(ctx context.Context) error {
	if err := s.Do(ctx, func(c *editor.Controller) error { return c.Close(ctx) }); err != nil {
		return err
	}
	return s.Shutdown(ctx)
}

// Shutdown stops the loop after queued tasks ran, without touching the
// controller.
func (s *Session) Shutdown(ctx context.Context) error {
	err := s.loop.Shutdown(ctx)
	if errors.Is(err, eventloop.ErrLoopTerminated) {
		err = nil
	}
	select {
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return errors.Join(err, s.runErr)
}

// Done is closed when the loop has stopped.
func (s *Session) Done() <-chan struct{} { return s.done }
