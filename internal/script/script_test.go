package script

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/inline-annotator/internal/editor"
	"github.com/joeycumines/inline-annotator/internal/geometry"
	"github.com/joeycumines/inline-annotator/internal/item"
	"github.com/joeycumines/inline-annotator/internal/notify"
	"github.com/joeycumines/inline-annotator/internal/player"
	"github.com/joeycumines/inline-annotator/internal/render"
	"github.com/joeycumines/inline-annotator/internal/session"
	"github.com/joeycumines/inline-annotator/internal/storage"
	"github.com/joeycumines/inline-annotator/internal/testutil"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []Token
	}{
		{"empty", "   ", nil},
		{"words", "add  shape\tat", []Token{{"add", 1, false}, {"shape", 6, false}, {"at", 12, false}}},
		{"double quotes", `label="two words"`, []Token{{"label=two words", 1, true}}},
		{"single quotes literal", `'a\"b'`, []Token{{`a\"b`, 1, true}}},
		{"escaped quote", `"say \"hi\""`, []Token{{`say "hi"`, 1, true}}},
		{"unknown escape kept in double quotes", `"a\nb"`, []Token{{`a\nb`, 1, true}}},
		{"bare escape", `a\ b`, []Token{{"a b", 1, false}}},
		{"comment", "undo # not this", []Token{{"undo", 1, false}}},
		{"hash inside word", "textcolor=#fff", []Token{{"textcolor=#fff", 1, false}}},
		{"empty quotes", `label=""`, []Token{{"label=", 1, true}}},
		{"unicode columns", "é x", []Token{{"é", 1, false}, {"x", 3, false}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Split(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitErrors(t *testing.T) {
	_, err := Split(`label="open`)
	assert.ErrorIs(t, err, ErrUnterminatedQuote)

	_, err = Split(`undo \`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trailing backslash")
}

func TestParseProperties(t *testing.T) {
	toks, err := Split(`label=Hi bold=true borderwidth=2 code="12" playalarmsound.intervaltime=3 -shadow`)
	require.NoError(t, err)
	got, err := parseProperties(toks)
	require.NoError(t, err)
	assert.Equal(t, item.Properties{
		"label":          "Hi",
		"bold":           true,
		"borderwidth":    2.0,
		"code":           "12",
		"playalarmsound": map[string]any{"intervaltime": 3.0},
		"shadow":         nil,
	}, got)

	for _, bad := range []string{"label", "=x", "a..b=1", "a.=1"} {
		t.Run(bad, func(t *testing.T) {
			_, err := parseProperties([]Token{{Text: bad}})
			assert.Error(t, err)
		})
	}
}

func TestMerge(t *testing.T) {
	dst := map[string]any{
		"label":  "a",
		"shadow": true,
		"nested": map[string]any{"x": 1.0, "y": 2.0},
	}
	merge(dst, map[string]any{
		"label":  "b",
		"shadow": nil,
		"nested": map[string]any{"y": 3.0},
	})
	assert.Equal(t, map[string]any{
		"label":  "b",
		"nested": map[string]any{"x": 1.0, "y": 3.0},
	}, dst)
}

func TestParseKey(t *testing.T) {
	tests := []struct {
		in      string
		want    editor.Key
		wantErr bool
	}{
		{in: "ctrl+d", want: editor.Key{Name: "d", Ctrl: true}},
		{in: "Meta+D", want: editor.Key{Name: "D", Meta: true}},
		{in: "delete", want: editor.Key{Name: "Delete"}},
		{in: "left", want: editor.Key{Name: "ArrowLeft"}},
		{in: "ArrowUp", want: editor.Key{Name: "ArrowUp"}},
		{in: "shift+x", wantErr: true},
		{in: "ctrl+", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKey(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type fixture struct {
	id     int64
	r      *Runner
	s      *session.Session
	store  *storage.Store
	player *player.Simulated
	out    *bytes.Buffer
}

func newFixture(t *testing.T, stored string) *fixture {
	t.Helper()
	id := testutil.AnnotationID()
	backend, err := storage.NewInMemoryBackend(id)
	require.NoError(t, err)
	f := &fixture{
		id:     id,
		store:  storage.NewStore(backend, id),
		player: player.NewSimulated(player.Window{Start: 0, End: 120}),
		out:    &bytes.Buffer{},
	}
	forms := &editor.QueuedForms{}
	s, err := session.Start(t.Context(), session.Options{
		Editor: editor.Options{
			Annotation: editor.Annotation{ID: id, Timestamp: 5},
			IDs:        item.NewSequence(func() int64 { return 0 }),
			Canvas:     geometry.Size{Width: 800, Height: 400},
			Forms:      forms,
			Saver:      f.store,
			Player:     f.player,
			Notifier:   &notify.Recorder{},
		},
		Stored: stored,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	f.s = s
	f.r = &Runner{
		Target: s,
		Forms:  forms,
		Player: f.player,
		Out:    f.out,
		Render: render.Options{Columns: 40},
	}
	return f
}

func (f *fixture) items(t *testing.T) []editor.ItemView {
	t.Helper()
	v, err := f.s.View(t.Context())
	require.NoError(t, err)
	return v.Items
}

func TestRunScript(t *testing.T) {
	f := newFixture(t, "")
	src := `
# build two items and group them
add shape at 80 40 label="First box"
add textblock at 400 200 label=Second bold=true
expect items 2
edit label="Renamed" -bold
select 1 2
group
expect selected 2
drag 1 80 0
deselect
click 2
expect selected 2
up
save
expect dirty false
`
	require.NoError(t, f.r.Run(t.Context(), strings.NewReader(src)))
	assert.Contains(t, f.out.String(), "added shape #1")
	assert.Contains(t, f.out.String(), "added textblock #2")

	items := f.items(t)
	require.Len(t, items, 2)
	byID := map[item.ID]editor.ItemView{}
	for _, it := range items {
		byID[it.ID] = it
	}
	assert.InDelta(t, 160, byID[1].Rect.Left, 0.01)
	assert.InDelta(t, 480, byID[2].Rect.Left, 0.01)
	assert.Equal(t, "Renamed", byID[2].Properties["label"])
	assert.NotContains(t, byID[2].Properties, "bold")
	assert.Equal(t, byID[1].Position.Group, byID[2].Position.Group)

	rec, err := f.store.Load(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.Revision)
	assert.Contains(t, rec.Content, "Renamed")
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	f := newFixture(t, "")
	err := f.r.Run(t.Context(), strings.NewReader("add shape\nfrobnicate\nadd shape\n"))
	var lerr *LineError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, 2, lerr.Line)
	assert.ErrorIs(t, err, ErrUnknownCommand)
	assert.Len(t, f.items(t), 1)
}

func TestRunKeepGoing(t *testing.T) {
	f := newFixture(t, "")
	f.r.KeepGoing = true
	err := f.r.Run(t.Context(), strings.NewReader("add shape\nclick nope\nexpect items 5\nadd shape\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExpectation)
	assert.Contains(t, err.Error(), "line 2")
	assert.Contains(t, err.Error(), "line 3")
	assert.Len(t, f.items(t), 2)
}

func TestExecUsage(t *testing.T) {
	f := newFixture(t, "")
	tests := []struct {
		line string
		want string
	}{
		{"click", "usage: click ID [ctrl]"},
		{"canvas 100", "usage: canvas WIDTH HEIGHT"},
		{"add shape at 10", "usage: add TYPE"},
		{"add banner", "invalid item type"},
		{"nudge sideways", "invalid direction"},
		{"expect colour red", "cannot expect"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			err := f.r.Exec(t.Context(), tt.line)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestExecCancelAndUndo(t *testing.T) {
	f := newFixture(t, "")
	ctx := t.Context()
	require.NoError(t, f.r.Exec(ctx, "cancel"))
	assert.ErrorIs(t, f.r.Exec(ctx, "add shape"), editor.ErrFormCancelled)
	assert.Empty(t, f.items(t))

	require.NoError(t, f.r.Exec(ctx, "add shape"))
	require.NoError(t, f.r.Exec(ctx, "key ctrl+d"))
	assert.Len(t, f.items(t), 2)
	require.NoError(t, f.r.Exec(ctx, "undo"))
	assert.Len(t, f.items(t), 1)
	require.NoError(t, f.r.Exec(ctx, "redo"))
	assert.Len(t, f.items(t), 2)
}

func TestExecNudgeAndResize(t *testing.T) {
	f := newFixture(t, `[{"id":1,"type":"shape","position":{"left":"10%","top":"10%","width":"10%","height":"10%","z-index":6},"properties":{}}]`)
	ctx := t.Context()
	require.NoError(t, f.r.Exec(ctx, "click 1"))
	require.NoError(t, f.r.Exec(ctx, "nudge right 3"))
	assert.InDelta(t, 83, f.items(t)[0].Rect.Left, 0.01)

	require.NoError(t, f.r.Exec(ctx, "resize 1 100 50 200 100"))
	got := f.items(t)[0].Rect
	assert.InDelta(t, 200, got.Width, 0.01)
	assert.InDelta(t, 100, got.Height, 0.01)
}

func TestExecPlayer(t *testing.T) {
	f := newFixture(t, "")
	ctx := t.Context()
	require.NoError(t, f.r.Exec(ctx, "seek 30"))
	now, err := f.player.CurrentTime(ctx)
	require.NoError(t, err)
	assert.Equal(t, 30.0, now)
	require.NoError(t, f.r.Exec(ctx, "play"))
	assert.True(t, f.player.Playing())
	require.NoError(t, f.r.Exec(ctx, "pause"))
	assert.False(t, f.player.Playing())

	f.r.Player = nil
	assert.Error(t, f.r.Exec(ctx, "play"))
}

func TestExecShowAndHelp(t *testing.T) {
	f := newFixture(t, "")
	ctx := t.Context()
	require.NoError(t, f.r.Exec(ctx, "add shape label=Box"))
	f.out.Reset()
	require.NoError(t, f.r.Exec(ctx, "show"))
	assert.Contains(t, f.out.String(), fmt.Sprintf("annotation %d", f.id))
	assert.Contains(t, f.out.String(), "Box")

	f.out.Reset()
	require.NoError(t, f.r.Exec(ctx, "help"))
	assert.Contains(t, f.out.String(), "  add TYPE [at X Y] [key=value...]\n")
	assert.Equal(t, len(Usage()), strings.Count(f.out.String(), "\n"))

	f.out.Reset()
	require.NoError(t, f.r.Exec(ctx, `echo hello "big world"`))
	assert.Equal(t, "hello big world\n", f.out.String())
}
