package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/inline-annotator/internal/editor"
	"github.com/joeycumines/inline-annotator/internal/geometry"
	"github.com/joeycumines/inline-annotator/internal/item"
	"github.com/joeycumines/inline-annotator/internal/logging"
	"github.com/joeycumines/inline-annotator/internal/notify"
	"github.com/joeycumines/inline-annotator/internal/player"
	"github.com/joeycumines/inline-annotator/internal/render"
	"github.com/joeycumines/inline-annotator/internal/session"
	"github.com/joeycumines/inline-annotator/internal/storage"
	"github.com/joeycumines/inline-annotator/internal/testutil"
)

type fixture struct {
	id    int64
	cs    *mcp.ClientSession
	s     *session.Session
	store *storage.Store
}

func connect(t *testing.T) *fixture {
	t.Helper()
	ctx := t.Context()
	id := testutil.AnnotationID()
	backend, err := storage.NewInMemoryBackend(id)
	require.NoError(t, err)
	store := storage.NewStore(backend, id)
	forms := &editor.QueuedForms{}
	sim := player.NewSimulated(player.Window{Start: 0, End: 60})
	s, err := session.Start(ctx, session.Options{
		Editor: editor.Options{
			Annotation: editor.Annotation{ID: id, Timestamp: 4},
			IDs:        item.NewSequence(func() int64 { return 0 }),
			Canvas:     geometry.Size{Width: 600, Height: 300},
			Forms:      forms,
			Saver:      store,
			Player:     sim,
			Notifier:   &notify.Recorder{},
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })

	ring := logging.NewRingHandler(50, slog.LevelInfo)
	srv, err := New(Options{
		Target:  s,
		Forms:   forms,
		Player:  sim,
		Render:  render.Options{Columns: 30},
		Version: "test",
		Logger:  slog.New(ring),
		Logs:    ring,
	})
	require.NoError(t, err)
	st, ct := mcp.NewInMemoryTransports()
	ss, err := srv.Connect(ctx, st, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "v0"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return &fixture{id: id, cs: cs, s: s, store: store}
}

func (f *fixture) call(t *testing.T, name string, args map[string]any) (string, bool) {
	t.Helper()
	res, err := f.cs.CallTool(t.Context(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return tc.Text, res.IsError
}

func (f *fixture) view(t *testing.T) editor.View {
	t.Helper()
	v, err := f.s.View(t.Context())
	require.NoError(t, err)
	return v
}

func TestNewRequiresTarget(t *testing.T) {
	_, err := New(Options{Forms: &editor.QueuedForms{}})
	assert.Error(t, err)
}

func TestListTools(t *testing.T) {
	f := connect(t)
	res, err := f.cs.ListTools(t.Context(), nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"view", "add_item", "edit_item", "select", "move", "resize", "arrange", "save", "run_script"}, names)
}

func TestEditingFlow(t *testing.T) {
	f := connect(t)

	out, isErr := f.call(t, "add_item", map[string]any{"type": "shape", "x": 30, "y": 30, "properties": map[string]any{"label": "Box"}})
	require.False(t, isErr, out)
	assert.Equal(t, "added shape #1", out)

	out, isErr = f.call(t, "edit_item", map[string]any{"properties": map[string]any{"label": "Renamed"}})
	require.False(t, isErr, out)

	out, isErr = f.call(t, "move", map[string]any{"id": 1, "dx": 20, "dy": 10})
	require.False(t, isErr, out)

	out, isErr = f.call(t, "arrange", map[string]any{"action": "copy"})
	require.False(t, isErr, out)
	assert.Equal(t, "copy: done", out)

	v := f.view(t)
	require.Len(t, v.Items, 2)
	assert.Equal(t, "Renamed", v.Items[0].Properties["label"])
	assert.InDelta(t, 50, v.Items[0].Rect.Left, 0.01)
	assert.InDelta(t, 40, v.Items[0].Rect.Top, 0.01)

	out, isErr = f.call(t, "arrange", map[string]any{"action": "undo"})
	require.False(t, isErr, out)
	assert.Len(t, f.view(t).Items, 1)

	out, isErr = f.call(t, "save", map[string]any{})
	require.False(t, isErr, out)
	rec, err := f.store.Load(t.Context())
	require.NoError(t, err)
	assert.Contains(t, rec.Content, "Renamed")
}

func TestToolErrors(t *testing.T) {
	f := connect(t)
	tests := []struct {
		name string
		tool string
		args map[string]any
		want string
	}{
		{"bad type", "add_item", map[string]any{"type": "banner"}, "unknown item type"},
		{"edit without selection", "edit_item", map[string]any{"properties": map[string]any{}}, "exactly one item"},
		{"bad action", "arrange", map[string]any{"action": "spin"}, "unknown action"},
		{"script failure", "run_script", map[string]any{"script": "frobnicate"}, "unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, isErr := f.call(t, tt.tool, tt.args)
			assert.True(t, isErr)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestSelectAndResize(t *testing.T) {
	f := connect(t)
	out, isErr := f.call(t, "run_script", map[string]any{"script": "add shape at 0 0\nadd shape at 300 100\ndeselect"})
	require.False(t, isErr, out)

	out, isErr = f.call(t, "select", map[string]any{"ids": []int64{1, 2}})
	require.False(t, isErr, out)
	assert.Equal(t, "selected [1 2]", out)
	assert.Len(t, f.view(t).Selection, 2)

	out, isErr = f.call(t, "resize", map[string]any{"id": 1, "left": 10, "top": 10, "width": 100, "height": 50})
	require.False(t, isErr, out)
	r := f.view(t).Items[0].Rect
	assert.InDelta(t, 100, r.Width, 0.01)
	assert.InDelta(t, 50, r.Height, 0.01)

	out, isErr = f.call(t, "select", map[string]any{"ids": []int64{}})
	require.False(t, isErr, out)
	assert.Empty(t, f.view(t).Selection)
}

func TestViewToolAndResource(t *testing.T) {
	f := connect(t)
	_, isErr := f.call(t, "add_item", map[string]any{"type": "hotspot"})
	require.False(t, isErr)

	res, err := f.cs.CallTool(t.Context(), &mcp.CallToolParams{Name: "view", Arguments: map[string]any{}})
	require.NoError(t, err)
	require.Len(t, res.Content, 2)
	assert.Contains(t, res.Content[0].(*mcp.TextContent).Text, "annotation 9")
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.Content[1].(*mcp.TextContent).Text), &v))
	assert.Len(t, v["items"], 1)
	assert.Equal(t, "idle", v["state"])

	rr, err := f.cs.ReadResource(t.Context(), &mcp.ReadResourceParams{URI: ViewURI})
	require.NoError(t, err)
	require.Len(t, rr.Contents, 1)
	assert.Equal(t, "application/json", rr.Contents[0].MIMEType)
	assert.Contains(t, rr.Contents[0].Text, fmt.Sprintf(`"annotationId":%d`, f.id))
}

func TestLogsResource(t *testing.T) {
	f := connect(t)
	rr, err := f.cs.ReadResource(t.Context(), &mcp.ReadResourceParams{URI: LogsURI})
	require.NoError(t, err)
	require.Len(t, rr.Contents, 1)
	var entries []logging.Entry
	require.NoError(t, json.Unmarshal([]byte(rr.Contents[0].Text), &entries))

	res, err := f.cs.ListResources(t.Context(), nil)
	require.NoError(t, err)
	var uris []string
	for _, r := range res.Resources {
		uris = append(uris, r.URI)
	}
	assert.ElementsMatch(t, []string{ViewURI, LogsURI}, uris)
}
