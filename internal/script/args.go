package script

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joeycumines/inline-annotator/internal/item"
)

func parseID(t Token) (item.ID, error) {
	v, err := strconv.ParseInt(t.Text, 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid item id %q", t.Text)
	}
	return item.ID(v), nil
}

func parseNumber(t Token) (float64, error) {
	v, err := strconv.ParseFloat(t.Text, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", t.Text)
	}
	return v, nil
}

// flag reports whether name is among toks, returning the rest.
func flag(toks []Token, name string) ([]Token, bool) {
	out := toks[:0:0]
	found := false
	for _, t := range toks {
		if !t.Quoted && strings.EqualFold(t.Text, name) {
			found = true
			continue
		}
		out = append(out, t)
	}
	return out, found
}

// parseProperties reads key=value words. Dotted keys nest into maps and
// -key removes a key. Unquoted true, false and numbers are typed; anything
// quoted stays a string.
func parseProperties(toks []Token) (item.Properties, error) {
	props := item.Properties{}
	for _, t := range toks {
		if strings.HasPrefix(t.Text, "-") && !t.Quoted && !strings.Contains(t.Text, "=") {
			if err := setPath(props, t.Text[1:], nil); err != nil {
				return nil, err
			}
			continue
		}
		key, raw, ok := strings.Cut(t.Text, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", t.Text)
		}
		if err := setPath(props, key, typed(raw, t.Quoted)); err != nil {
			return nil, err
		}
	}
	return props, nil
}

func typed(raw string, quoted bool) any {
	if quoted {
		return raw
	}
	switch raw {
	case "true":
		return true
	case "false":
		return false
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return v
	}
	return raw
}

func setPath(props item.Properties, key string, value any) error {
	parts := strings.Split(key, ".")
	m := map[string]any(props)
	for _, p := range parts[:len(parts)-1] {
		if p == "" {
			return fmt.Errorf("invalid property key %q", key)
		}
		next, ok := m[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[p] = next
		}
		m = next
	}
	last := parts[len(parts)-1]
	if last == "" {
		return fmt.Errorf("invalid property key %q", key)
	}
	m[last] = value
	return nil
}
