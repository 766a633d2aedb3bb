// Package item holds the annotation item model: the typed, positioned and
// layered elements placed on an annotation canvas, and the registry that owns
// the live list for one annotation.
package item

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/joeycumines/inline-annotator/internal/geometry"
)

var (
	// ErrNotFound is returned when an operation names an id that is not in
	// the registry.
	ErrNotFound = errors.New("item not found")
	// ErrStopwatchExists rejects a second stopwatch on one annotation.
	ErrStopwatchExists = errors.New("only one stopwatch allowed")
	// ErrDuplicateID rejects inserting an id that is already live.
	ErrDuplicateID = errors.New("duplicate item id")
	// ErrUnknownType rejects an unrecognised item type.
	ErrUnknownType = errors.New("unknown item type")
)

// ID identifies an item within one annotation.
type ID int64

// GroupID links items that move and select together. Zero means ungrouped.
type GroupID int64

// Type is the kind of element. It never changes after creation.
type Type string

const (
	TypeImage      Type = "image"
	TypeVideo      Type = "video"
	TypeAudio      Type = "audio"
	TypeFile       Type = "file"
	TypeNavigation Type = "navigation"
	TypeStopwatch  Type = "stopwatch"
	TypeTextblock  Type = "textblock"
	TypeShape      Type = "shape"
	TypeHotspot    Type = "hotspot"
)

// Types lists every item type in toolbar order.
var Types = []Type{
	TypeImage,
	TypeVideo,
	TypeAudio,
	TypeFile,
	TypeNavigation,
	TypeStopwatch,
	TypeTextblock,
	TypeShape,
	TypeHotspot,
}

// ParseType validates s as an item type.
func ParseType(s string) (Type, error) {
	t := Type(strings.TrimSpace(s))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
	return t, nil
}

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	for _, v := range Types {
		if v == t {
			return true
		}
	}
	return false
}

// Button reports whether the type renders as a labelled button.
func (t Type) Button() bool {
	switch t {
	case TypeFile, TypeAudio, TypeStopwatch, TypeNavigation:
		return true
	}
	return false
}

// TextBearing reports whether the item's text scales with its height.
func (t Type) TextBearing() bool {
	return t.Button() || t == TypeTextblock
}

// Media reports whether the type embeds an uploaded file.
func (t Type) Media() bool {
	switch t {
	case TypeImage, TypeVideo, TypeAudio, TypeFile:
		return true
	}
	return false
}

// Timestamped reports whether the type's form carries a seek timestamp that
// must fall inside the playback window.
func (t Type) Timestamped() bool {
	switch t {
	case TypeNavigation, TypeImage, TypeShape:
		return true
	}
	return false
}

// FormKind names the form used to collect the type's properties.
func (t Type) FormKind() string {
	if t.Media() {
		return "media"
	}
	return string(t)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(b []byte) error {
	v, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Position is an item's box, layer and group membership.
type Position struct {
	geometry.Frame
	ZIndex     int
	Group      GroupID
	FontSize   geometry.Length
	LineHeight geometry.Length
}

// Grouped reports whether the position carries a group id.
func (p Position) Grouped() bool { return p.Group != 0 }

// Properties is the type-specific payload collected by the item's form.
type Properties map[string]any

// String returns the value at key as a string. Numbers are formatted and
// missing values yield "".
func (p Properties) String(key string) string {
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// Timestamp parses the "timestamp" property, see geometry.ParseTimestamp.
func (p Properties) Timestamp() (float64, error) {
	return geometry.ParseTimestamp(p.String("timestamp"))
}

// Clone deep copies p.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	return cloneValue(map[string]any(p)).(map[string]any)
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(v))
		for k, e := range v {
			m[k] = cloneValue(e)
		}
		return m
	case Properties:
		return Properties(cloneValue(map[string]any(v)).(map[string]any))
	case []any:
		s := make([]any, len(v))
		for i, e := range v {
			s[i] = cloneValue(e)
		}
		return s
	default:
		return v
	}
}

// Item is one placed annotation element.
type Item struct {
	ID         ID         `json:"id"`
	Type       Type       `json:"type"`
	Position   Position   `json:"position"`
	Properties Properties `json:"properties"`
}

// Clone returns a deep copy of it.
func (it Item) Clone() Item {
	it.Properties = it.Properties.Clone()
	return it
}

// TextRows is the number of rendered text rows: the non-blank lines of a
// textblock's label, or one for everything else.
func (it Item) TextRows() int {
	if it.Type != TypeTextblock {
		return 1
	}
	label := it.Properties.String("formattedlabel")
	if label == "" {
		label = it.Properties.String("label")
	}
	rows := 0
	for _, line := range strings.Split(strings.ReplaceAll(label, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) != "" {
			rows++
		}
	}
	return max(rows, 1)
}
