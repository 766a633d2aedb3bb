// Package mcpserver exposes an editing session as Model Context Protocol
// tools, so an agent can lay out annotations.
package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/joeycumines/inline-annotator/internal/editor"
	"github.com/joeycumines/inline-annotator/internal/geometry"
	"github.com/joeycumines/inline-annotator/internal/item"
	"github.com/joeycumines/inline-annotator/internal/logging"
	"github.com/joeycumines/inline-annotator/internal/render"
	"github.com/joeycumines/inline-annotator/internal/script"
)

const (
	// ViewURI is the resource holding the current view as JSON.
	ViewURI = "annotation://view"
	// LogsURI holds recent log records as JSON, when Options.Logs is set.
	LogsURI = "annotation://logs"
)

// Options configure New.
type Options struct {
	Name    string
	Version string
	Target  script.Target
	Forms   *editor.QueuedForms
	Player  editor.Player
	Render  render.Options
	Logger  *slog.Logger
	// Logs backs the logs resource.
	Logs *logging.RingHandler
}

type server struct {
	target script.Target
	forms  *editor.QueuedForms
	player editor.Player
	render render.Options
	logger *slog.Logger
}

// New builds an MCP server over opts.Target. Run it with a transport, such
// as &mcp.StdioTransport{}.
func New(opts Options) (*mcp.Server, error) {
	if opts.Target == nil {
		return nil, fmt.Errorf("mcpserver: nil target")
	}
	if opts.Forms == nil {
		return nil, fmt.Errorf("mcpserver: nil forms")
	}
	name := opts.Name
	if name == "" {
		name = "inline-annotator"
	}
	s := &server{
		target: opts.Target,
		forms:  opts.Forms,
		player: opts.Player,
		render: opts.Render,
		logger: opts.Logger,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	srv := mcp.NewServer(&mcp.Implementation{Name: name, Version: opts.Version}, nil)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "view",
		Description: "Show the annotation canvas: a text rendering followed by the view as JSON.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, s.view)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "add_item",
		Description: "Add an item of the given type, optionally at a pixel origin. The new item becomes the selection.",
	}, s.addItem)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "edit_item",
		Description: "Edit the single selected item's properties. Null values remove keys.",
	}, s.editItem)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "select",
		Description: "Replace the selection with the given items and their groups. An empty list clears it.",
	}, s.selectItems)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "move",
		Description: "Drag an item (and the selection it belongs to) by a pixel delta, kept inside the canvas.",
	}, s.move)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "resize",
		Description: "Resize an item to a pixel box, kept inside the canvas.",
	}, s.resize)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "arrange",
		Description: "Apply an action to the selection: up, down, group, ungroup, copy, delete, undo or redo.",
	}, s.arrange)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "save",
		Description: "Persist the annotation.",
	}, s.save)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "run_script",
		Description: "Run editor script lines, one command per line. Send 'help' for the command list.",
	}, s.runScript)

	srv.AddResource(&mcp.Resource{
		URI:         ViewURI,
		Name:        "view",
		Description: "The current annotation view.",
		MIMEType:    "application/json",
	}, s.readView)
	if opts.Logs != nil {
		ring := opts.Logs
		srv.AddResource(&mcp.Resource{
			URI:         LogsURI,
			Name:        "logs",
			Description: "Recent log records of this server.",
			MIMEType:    "application/json",
		}, func(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			data, err := json.Marshal(ring.Entries())
			if err != nil {
				return nil, err
			}
			return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(data),
			}}}, nil
		})
	}
	return srv, nil
}

func text(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}}}
}

func (s *server) snapshot(ctx context.Context) (editor.View, error) {
	var v editor.View
	err := s.target.Do(ctx, func(c *editor.Controller) error {
		v = c.Snapshot()
		return nil
	})
	return v, err
}

type viewIn struct{}

func (s *server) view(ctx context.Context, _ *mcp.CallToolRequest, _ viewIn) (*mcp.CallToolResult, any, error) {
	v, err := s.snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{Content: []mcp.Content{
		&mcp.TextContent{Text: render.View(v, s.render)},
		&mcp.TextContent{Text: string(data)},
	}}, nil, nil
}

func (s *server) readView(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	v, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{{
		URI:      req.Params.URI,
		MIMEType: "application/json",
		Text:     string(data),
	}}}, nil
}

type addIn struct {
	Type       string         `json:"type" jsonschema:"item type: image, video, audio, file, navigation, stopwatch, textblock, shape or hotspot"`
	X          *float64       `json:"x,omitempty" jsonschema:"left edge in pixels"`
	Y          *float64       `json:"y,omitempty" jsonschema:"top edge in pixels"`
	Properties map[string]any `json:"properties,omitempty" jsonschema:"item properties merged over the type defaults"`
}

func (s *server) addItem(ctx context.Context, _ *mcp.CallToolRequest, in addIn) (*mcp.CallToolResult, any, error) {
	t, err := item.ParseType(in.Type)
	if err != nil {
		return nil, nil, err
	}
	var origin *geometry.Point
	if in.X != nil || in.Y != nil {
		origin = &geometry.Point{}
		if in.X != nil {
			origin.X = *in.X
		}
		if in.Y != nil {
			origin.Y = *in.Y
		}
	}
	props := editor.Defaults(t)
	for k, v := range in.Properties {
		props[k] = v
	}
	var added item.Item
	err = s.target.Do(ctx, func(c *editor.Controller) error {
		s.forms.Submit(props)
		var err error
		added, err = c.Add(ctx, t, origin)
		return err
	})
	if err != nil {
		s.forms.Reset()
		return nil, nil, err
	}
	s.logger.DebugContext(ctx, "mcp item added", "item", added.ID)
	return text("added %s #%d", added.Type, added.ID), nil, nil
}

type editIn struct {
	Properties map[string]any `json:"properties" jsonschema:"properties to set; null removes a key"`
}

func (s *server) editItem(ctx context.Context, _ *mcp.CallToolRequest, in editIn) (*mcp.CallToolResult, any, error) {
	var edited item.Item
	err := s.target.Do(ctx, func(c *editor.Controller) error {
		s.forms.Submit(item.Properties(in.Properties))
		var err error
		edited, err = c.Edit(ctx)
		return err
	})
	if err != nil {
		s.forms.Reset()
		return nil, nil, err
	}
	return text("edited %s #%d", edited.Type, edited.ID), nil, nil
}

type selectIn struct {
	IDs []int64 `json:"ids" jsonschema:"item ids to select"`
}

func (s *server) selectItems(ctx context.Context, _ *mcp.CallToolRequest, in selectIn) (*mcp.CallToolResult, any, error) {
	var sel []item.ID
	err := s.target.Do(ctx, func(c *editor.Controller) error {
		if err := c.ClickCanvas(ctx); err != nil {
			return err
		}
		for _, raw := range in.IDs {
			id := item.ID(raw)
			if contains(c.Selection(), id) {
				continue
			}
			if err := c.Click(ctx, id, true); err != nil {
				return err
			}
		}
		sel = c.Selection()
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return text("selected %v", sel), nil, nil
}

func contains(ids []item.ID, id item.ID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

type moveIn struct {
	ID       int64   `json:"id" jsonschema:"item to drag"`
	DX       float64 `json:"dx" jsonschema:"horizontal delta in pixels"`
	DY       float64 `json:"dy" jsonschema:"vertical delta in pixels"`
	Additive bool    `json:"additive,omitempty" jsonschema:"ctrl-drag, adding the item to the selection"`
}

func (s *server) move(ctx context.Context, _ *mcp.CallToolRequest, in moveIn) (*mcp.CallToolResult, any, error) {
	err := s.target.Do(ctx, func(c *editor.Controller) error {
		if err := c.BeginDrag(ctx, item.ID(in.ID), in.Additive); err != nil {
			return err
		}
		if err := c.DragTo(ctx, in.DX, in.DY); err != nil {
			_ = c.CancelDrag(ctx)
			return err
		}
		return c.EndDrag(ctx)
	})
	if err != nil {
		return nil, nil, err
	}
	return text("moved #%d", in.ID), nil, nil
}

type resizeIn struct {
	ID        int64   `json:"id"`
	Left      float64 `json:"left"`
	Top       float64 `json:"top"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	KeepRatio bool    `json:"keepRatio,omitempty" jsonschema:"keep a shape's aspect ratio"`
}

func (s *server) resize(ctx context.Context, _ *mcp.CallToolRequest, in resizeIn) (*mcp.CallToolResult, any, error) {
	rect := geometry.Rect{Left: in.Left, Top: in.Top, Width: in.Width, Height: in.Height}
	err := s.target.Do(ctx, func(c *editor.Controller) error {
		if err := c.BeginResize(ctx, item.ID(in.ID)); err != nil {
			return err
		}
		if err := c.ResizeTo(ctx, rect, editor.Modifiers{Ctrl: in.KeepRatio}); err != nil {
			return err
		}
		return c.EndResize(ctx)
	})
	if err != nil {
		return nil, nil, err
	}
	return text("resized #%d", in.ID), nil, nil
}

type arrangeIn struct {
	Action string `json:"action" jsonschema:"up, down, group, ungroup, copy, delete, undo or redo"`
}

func (s *server) arrange(ctx context.Context, _ *mcp.CallToolRequest, in arrangeIn) (*mcp.CallToolResult, any, error) {
	var msg string
	err := s.target.Do(ctx, func(c *editor.Controller) error {
		var (
			changed bool
			err     error
		)
		switch strings.ToLower(in.Action) {
		case "up":
			changed, err = c.Reorder(ctx, editor.DirUp)
		case "down":
			changed, err = c.Reorder(ctx, editor.DirDown)
		case "group":
			var g item.GroupID
			g, err = c.Group(ctx)
			changed = g != 0
		case "ungroup":
			changed, err = c.Ungroup(ctx)
		case "copy":
			var ids []item.ID
			ids, err = c.Copy(ctx)
			changed = len(ids) > 0
		case "delete":
			err = c.Delete(ctx)
			changed = err == nil
		case "undo":
			changed, err = c.Undo(ctx)
		case "redo":
			changed, err = c.Redo(ctx)
		default:
			return fmt.Errorf("unknown action %q", in.Action)
		}
		if err != nil {
			return err
		}
		if changed {
			msg = in.Action + ": done"
		} else {
			msg = in.Action + ": nothing changed"
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return text("%s", msg), nil, nil
}

type saveIn struct{}

func (s *server) save(ctx context.Context, _ *mcp.CallToolRequest, _ saveIn) (*mcp.CallToolResult, any, error) {
	if err := s.target.Save(ctx); err != nil {
		return nil, nil, err
	}
	return text("saved"), nil, nil
}

type scriptIn struct {
	Script    string `json:"script" jsonschema:"newline separated commands"`
	KeepGoing bool   `json:"keepGoing,omitempty" jsonschema:"continue after a failing line"`
}

func (s *server) runScript(ctx context.Context, _ *mcp.CallToolRequest, in scriptIn) (*mcp.CallToolResult, any, error) {
	var out bytes.Buffer
	r := &script.Runner{
		Target:    s.target,
		Forms:     s.forms,
		Player:    s.player,
		Out:       &out,
		Render:    s.render,
		Logger:    s.logger,
		KeepGoing: in.KeepGoing,
	}
	if err := r.Run(ctx, strings.NewReader(in.Script)); err != nil {
		res := text("%s%v", out.String(), err)
		res.IsError = true
		return res, nil, nil
	}
	return text("%s", out.String()), nil, nil
}
