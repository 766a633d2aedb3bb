package editor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/joeycumines/inline-annotator/internal/item"
)

// ErrInvalidProperties rejects a form submission that breaks the type's
// field rules.
var ErrInvalidProperties = errors.New("invalid properties")

// StopwatchStyles are the accepted stopwatch button styles.
var StopwatchStyles = []string{
	"btn-danger", "btn-warning", "btn-success", "btn-primary",
	"btn-secondary", "btn-info", "btn-light", "btn-dark",
	"btn-outline-danger", "btn-outline-warning", "btn-outline-success", "btn-outline-primary",
	"btn-outline-secondary", "btn-outline-info", "btn-outline-light", "btn-outline-dark",
	"btn-transparent",
}

// Defaults returns the initial form values for a new item of type t.
func Defaults(t item.Type) item.Properties {
	switch t {
	case item.TypeStopwatch:
		return item.Properties{
			"duration":   1.0,
			"allowpause": false,
			"style":      "btn-danger",
			"rounded":    false,
			"shadow":     false,
			"playalarmsound": map[string]any{
				"playsoundatend":      1.0,
				"playsoundatinterval": 1.0,
				"intervaltime":        1.0,
			},
		}
	case item.TypeTextblock, item.TypeNavigation, item.TypeFile, item.TypeAudio:
		return item.Properties{
			"label":       "",
			"bold":        false,
			"italic":      false,
			"underline":   false,
			"textcolor":   "#fff",
			"bgcolor":     "rgba(0,0,0,0.3)",
			"bordercolor": "transparent",
			"borderwidth": 1.0,
			"shadow":      false,
		}
	default:
		return item.Properties{}
	}
}

// Validate applies the field rules of t's form to props.
func Validate(t item.Type, props item.Properties) error {
	switch t {
	case item.TypeStopwatch:
		d, ok := number(props["duration"])
		if !ok || d <= 0 || d != float64(int64(d)) {
			return fmt.Errorf("%w: duration must be a whole number of minutes above zero", ErrInvalidProperties)
		}
		if s := props.String("style"); s != "" && !slices.Contains(StopwatchStyles, s) {
			return fmt.Errorf("%w: unknown style %q", ErrInvalidProperties, s)
		}
		if alarm, ok := props["playalarmsound"].(map[string]any); ok {
			if v, set := alarm["intervaltime"]; set {
				n, ok := number(v)
				if !ok || n <= 0 {
					return fmt.Errorf("%w: interval time must be above zero", ErrInvalidProperties)
				}
			}
		}
	case item.TypeTextblock, item.TypeNavigation, item.TypeFile, item.TypeAudio:
		if t == item.TypeTextblock && strings.TrimSpace(props.String("label")) == "" {
			return fmt.Errorf("%w: label is required", ErrInvalidProperties)
		}
		if v, set := props["borderwidth"]; set {
			n, ok := number(v)
			if !ok || n < 0 || n > 5 {
				return fmt.Errorf("%w: border width must be between 0 and 5", ErrInvalidProperties)
			}
		}
	}
	return nil
}

func number(v any) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

// QueuedForms answers form requests from queued submissions, for headless
// surfaces. Each submission is merged over the request's initial values and
// validated. With nothing queued the initial values are submitted as is.
type QueuedForms struct {
	mu      sync.Mutex
	pending []submission
}

type submission struct {
	props  item.Properties
	cancel bool
}

// Submit queues a submission for the next form.
func (q *QueuedForms) Submit(props item.Properties) {
	q.mu.Lock()
	q.pending = append(q.pending, submission{props: props.Clone()})
	q.mu.Unlock()
}

// Cancel queues a dismissal for the next form.
func (q *QueuedForms) Cancel() {
	q.mu.Lock()
	q.pending = append(q.pending, submission{cancel: true})
	q.mu.Unlock()
}

// Reset drops queued submissions.
func (q *QueuedForms) Reset() {
	q.mu.Lock()
	q.pending = nil
	q.mu.Unlock()
}

// Open implements FormProvider.
func (q *QueuedForms) Open(ctx context.Context, req FormRequest) (item.Properties, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q.mu.Lock()
	var next submission
	if len(q.pending) > 0 {
		next = q.pending[0]
		q.pending = q.pending[1:]
	}
	q.mu.Unlock()
	if next.cancel {
		return nil, ErrFormCancelled
	}
	props := req.Initial.Clone()
	if props == nil {
		props = item.Properties{}
	}
	for k, v := range next.props {
		if v == nil {
			delete(props, k)
			continue
		}
		props[k] = v
	}
	if err := Validate(req.Type, props); err != nil {
		return nil, err
	}
	return props, nil
}
