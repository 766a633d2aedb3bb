package item

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/inline-annotator/internal/geometry"
)

func TestEncodeShape(t *testing.T) {
	items := []Item{{
		ID:   1700000000001,
		Type: TypeTextblock,
		Position: Position{
			Frame: geometry.Frame{
				Left:   geometry.Percent(10),
				Top:    geometry.Percent(0),
				Width:  geometry.Percent(30),
				Height: geometry.Auto(),
			},
			ZIndex:   6,
			FontSize: geometry.Pixels(16),
		},
		Properties: Properties{"label": "<b>hi</b>"},
	}}

	b, err := Encode(items)
	require.NoError(t, err)
	assert.JSONEq(t, `[{
		"id": 1700000000001,
		"type": "textblock",
		"position": {"left": "10%", "top": "0%", "width": "30%", "height": "auto", "z-index": 6, "fontSize": "16px"},
		"properties": {"label": "<b>hi</b>"}
	}]`, string(b))

	stored, err := EncodeForStorage(items)
	require.NoError(t, err)
	assert.Contains(t, stored, `&lt;b&gt;hi&lt;/b&gt;`)
	assert.NotContains(t, stored, "<")

	back, err := DecodeStored(stored)
	require.NoError(t, err)
	assert.Equal(t, items, back)
}

func TestEncodeEmpty(t *testing.T) {
	b, err := Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))
}

func TestDecodeLegacyPosition(t *testing.T) {
	tests := []struct {
		name  string
		input string
		z     int
		group GroupID
	}{
		{"numbers", `[{"id":1,"type":"shape","position":{"z-index":7,"group":42},"properties":{}}]`, 7, 42},
		{"strings", `[{"id":1,"type":"shape","position":{"z-index":"7","group":"42"},"properties":{}}]`, 7, 42},
		{"empty group", `[{"id":1,"type":"shape","position":{"z-index":"8","group":""},"properties":{}}]`, 8, 0},
		{"null group", `[{"id":1,"type":"shape","position":{"z-index":9,"group":null},"properties":{}}]`, 9, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := Decode([]byte(tt.input))
			require.NoError(t, err)
			require.Len(t, items, 1)
			assert.Equal(t, tt.z, items[0].Position.ZIndex)
			assert.Equal(t, tt.group, items[0].Position.Group)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", `{`},
		{"unknown type", `[{"id":1,"type":"sticker","position":{},"properties":{}}]`},
		{"bad length", `[{"id":1,"type":"shape","position":{"left":"wide"},"properties":{}}]`},
		{"bad z", `[{"id":1,"type":"shape","position":{"z-index":"top"},"properties":{}}]`},
		{"duplicate id", `[{"id":1,"type":"shape"},{"id":1,"type":"image"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestDecodeBlank(t *testing.T) {
	items, err := Decode([]byte("  \n"))
	require.NoError(t, err)
	assert.Nil(t, items)
}

func TestGroupOmittedWhenUnset(t *testing.T) {
	b, err := Encode([]Item{{ID: 1, Type: TypeShape, Properties: Properties{}}})
	require.NoError(t, err)
	assert.NotContains(t, string(b), "group")
	assert.Contains(t, string(b), `"z-index":0`)
}

func TestStoredRoundTripKeepsLiteralEntities(t *testing.T) {
	for _, label := range []string{
		"use &lt;b&gt; for bold",
		"a &amp; b",
		"<i>x</i> & y",
		"&&lt;&gt;>",
	} {
		t.Run(label, func(t *testing.T) {
			items := []Item{{ID: 1, Type: TypeTextblock, Properties: Properties{"label": label}}}

			stored, err := EncodeForStorage(items)
			require.NoError(t, err)
			assert.NotContains(t, stored, "<")
			assert.NotContains(t, stored, ">")

			back, err := DecodeStored(stored)
			require.NoError(t, err)
			assert.Equal(t, items, back)
		})
	}
}

func TestEncodeForStorageEscapesAmpersand(t *testing.T) {
	stored, err := EncodeForStorage([]Item{{ID: 1, Type: TypeShape, Properties: Properties{"label": "a &lt; b"}}})
	require.NoError(t, err)
	assert.Contains(t, stored, `a &amp;lt; b`)
}
