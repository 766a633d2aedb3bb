package editor

import "slices"

// EventType classifies controller events.
type EventType string

const (
	// EventChanged follows every change to the items or selection.
	EventChanged EventType = "changed"
	// EventAnnotationUpdated follows a successful save.
	EventAnnotationUpdated EventType = "annotation-updated"
	// EventTornDown follows teardown of the canvas.
	EventTornDown EventType = "torn-down"
)

// Event is delivered to listeners registered with OnEvent.
type Event struct {
	Type   EventType
	Result *SaveResult
	Reason string
}

// OnEvent registers fn and returns a func that removes it. Listeners run
// synchronously on the controller's goroutine, in registration order.
func (c *Controller) OnEvent(fn func(Event)) func() {
	id := c.nextHandle
	c.nextHandle++
	c.listeners[id] = fn
	return func() { delete(c.listeners, id) }
}

func (c *Controller) emit(e Event) {
	ids := make([]int, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if fn, ok := c.listeners[id]; ok {
			fn(e)
		}
	}
}
