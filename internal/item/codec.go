package item

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/joeycumines/inline-annotator/internal/geometry"
)

type positionJSON struct {
	Left       geometry.Length `json:"left,omitzero"`
	Top        geometry.Length `json:"top,omitzero"`
	Width      geometry.Length `json:"width,omitzero"`
	Height     geometry.Length `json:"height,omitzero"`
	ZIndex     looseInt        `json:"z-index"`
	Group      looseInt        `json:"group,omitzero"`
	FontSize   geometry.Length `json:"fontSize,omitzero"`
	LineHeight geometry.Length `json:"lineHeight,omitzero"`
}

// MarshalJSON writes the persisted position shape.
func (p Position) MarshalJSON() ([]byte, error) {
	return json.Marshal(positionJSON{
		Left:       p.Left,
		Top:        p.Top,
		Width:      p.Width,
		Height:     p.Height,
		ZIndex:     looseInt(p.ZIndex),
		Group:      looseInt(p.Group),
		FontSize:   p.FontSize,
		LineHeight: p.LineHeight,
	})
}

// UnmarshalJSON reads the persisted position shape. Older records store
// z-index and group as strings, which are accepted.
func (p *Position) UnmarshalJSON(b []byte) error {
	var v positionJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*p = Position{
		Frame: geometry.Frame{
			Left:   v.Left,
			Top:    v.Top,
			Width:  v.Width,
			Height: v.Height,
		},
		ZIndex:     int(v.ZIndex),
		Group:      GroupID(v.Group),
		FontSize:   v.FontSize,
		LineHeight: v.LineHeight,
	}
	return nil
}

// looseInt decodes from a JSON number, a numeric string, "" or null.
type looseInt int64

func (n looseInt) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, int64(n), 10), nil
}

func (n *looseInt) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*n = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %s", b)
	}
	*n = looseInt(f)
	return nil
}

var (
	markupEscaper   = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	markupUnescaper = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">")
)

// Encode serializes items as the persisted JSON array. Markup characters
// are left as is; see EncodeForStorage.
func Encode(items []Item) ([]byte, error) {
	if items == nil {
		items = []Item{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(items); err != nil {
		return nil, fmt.Errorf("failed to encode items: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Decode parses a persisted JSON array. Blank input yields no items.
// Duplicate ids are rejected.
func Decode(data []byte) ([]Item, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to decode items: %w", err)
	}
	seen := make(map[ID]struct{}, len(items))
	for _, it := range items {
		if _, ok := seen[it.ID]; ok {
			return nil, fmt.Errorf("failed to decode items: %w: %d", ErrDuplicateID, it.ID)
		}
		seen[it.ID] = struct{}{}
	}
	return items, nil
}

// EncodeForStorage serializes items with &, < and > HTML escaped, the form
// accepted by the persistence endpoint. Escaping & keeps entities the user
// typed literally intact through DecodeStored.
func EncodeForStorage(items []Item) (string, error) {
	b, err := Encode(items)
	if err != nil {
		return "", err
	}
	return markupEscaper.Replace(string(b)), nil
}

// DecodeStored reverses EncodeForStorage.
func DecodeStored(s string) ([]Item, error) {
	return Decode([]byte(markupUnescaper.Replace(s)))
}
