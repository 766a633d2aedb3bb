package script

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/joeycumines/inline-annotator/internal/editor"
	"github.com/joeycumines/inline-annotator/internal/geometry"
	"github.com/joeycumines/inline-annotator/internal/item"
	"github.com/joeycumines/inline-annotator/internal/render"
)

type command struct {
	usage    string
	min, max int
	run      func(ctx context.Context, r *Runner, args []Token) error
}

var (
	commandsOnce  sync.Once
	commandsTable map[string]command
)

// commands is built lazily since help reads the table.
func commands() map[string]command {
	commandsOnce.Do(func() {
		commandsTable = map[string]command{
			"add":      {usage: "add TYPE [at X Y] [key=value...]", min: 1, max: -1, run: runAdd},
			"edit":     {usage: "edit [key=value|-key...]", min: 0, max: -1, run: runEdit},
			"cancel":   {usage: "cancel", run: runCancel},
			"copy":     {usage: "copy", run: simple(func(ctx context.Context, c *editor.Controller) error { _, err := c.Copy(ctx); return err })},
			"delete":   {usage: "delete", run: simple(func(ctx context.Context, c *editor.Controller) error { return c.Delete(ctx) })},
			"click":    {usage: "click ID [ctrl]", min: 1, max: 2, run: runClick},
			"deselect": {usage: "deselect", run: simple(func(ctx context.Context, c *editor.Controller) error { return c.ClickCanvas(ctx) })},
			"select":   {usage: "select ID...", min: 1, max: -1, run: runSelect},
			"drag":     {usage: "drag ID DX DY [ctrl]", min: 3, max: 4, run: runDrag},
			"resize":   {usage: "resize ID LEFT TOP WIDTH HEIGHT [ctrl] [shift]", min: 5, max: 7, run: runResize},
			"nudge":    {usage: "nudge up|down|left|right [COUNT]", min: 1, max: 2, run: runNudge},
			"key":      {usage: "key [ctrl+|meta+]NAME", min: 1, max: 1, run: runKey},
			"up":       {usage: "up", run: reorder(editor.DirUp)},
			"down":     {usage: "down", run: reorder(editor.DirDown)},
			"group":    {usage: "group", run: simple(func(ctx context.Context, c *editor.Controller) error { _, err := c.Group(ctx); return err })},
			"ungroup":  {usage: "ungroup", run: simple(func(ctx context.Context, c *editor.Controller) error { _, err := c.Ungroup(ctx); return err })},
			"undo":     {usage: "undo", run: simple(func(ctx context.Context, c *editor.Controller) error { _, err := c.Undo(ctx); return err })},
			"redo":     {usage: "redo", run: simple(func(ctx context.Context, c *editor.Controller) error { _, err := c.Redo(ctx); return err })},
			"toggle":   {usage: "toggle", run: simple(func(_ context.Context, c *editor.Controller) error { c.ToggleVisibility(); return nil })},
			"activate": {usage: "activate ID", min: 1, max: 1, run: runActivate},
			"canvas":   {usage: "canvas WIDTH HEIGHT", min: 2, max: 2, run: runCanvas},
			"save":     {usage: "save", run: func(ctx context.Context, r *Runner, _ []Token) error { return r.Target.Save(ctx) }},
			"close":    {usage: "close", run: simple(func(ctx context.Context, c *editor.Controller) error { return c.Close(ctx) })},
			"seek":     {usage: "seek SECONDS", min: 1, max: 1, run: runSeek},
			"play":     {usage: "play", run: runPlay},
			"pause":    {usage: "pause", run: runPause},
			"show":     {usage: "show", run: runShow},
			"echo":     {usage: "echo TEXT...", min: 0, max: -1, run: runEcho},
			"expect":   {usage: "expect items|selected N | expect dirty|editing true|false", min: 2, max: 2, run: runExpect},
			"help":     {usage: "help", run: runHelp},
		}
	})
	return commandsTable
}

func simple(fn func(context.Context, *editor.Controller) error) func(context.Context, *Runner, []Token) error {
	return func(ctx context.Context, r *Runner, _ []Token) error {
		return r.do(ctx, func(c *editor.Controller) error { return fn(ctx, c) })
	}
}

func reorder(dir editor.Direction) func(context.Context, *Runner, []Token) error {
	return simple(func(ctx context.Context, c *editor.Controller) error {
		_, err := c.Reorder(ctx, dir)
		return err
	})
}

// submit queues props for the next form.
func (r *Runner) submit(props item.Properties) error {
	if r.Forms == nil {
		return fmt.Errorf("no form provider configured")
	}
	r.Forms.Submit(props)
	return nil
}

func runAdd(ctx context.Context, r *Runner, args []Token) error {
	t, err := item.ParseType(args[0].Text)
	if err != nil {
		return err
	}
	rest := args[1:]
	var origin *geometry.Point
	if len(rest) > 0 && !rest[0].Quoted && strings.EqualFold(rest[0].Text, "at") {
		if len(rest) < 3 {
			return fmt.Errorf("usage: %s", commands()["add"].usage)
		}
		x, err := parseNumber(rest[1])
		if err != nil {
			return err
		}
		y, err := parseNumber(rest[2])
		if err != nil {
			return err
		}
		origin = &geometry.Point{X: x, Y: y}
		rest = rest[3:]
	}
	props, err := parseProperties(rest)
	if err != nil {
		return err
	}
	merged := editor.Defaults(t)
	merge(merged, props)
	if err := r.submit(merged); err != nil {
		return err
	}
	var added item.Item
	err = r.do(ctx, func(c *editor.Controller) error {
		added, err = c.Add(ctx, t, origin)
		return err
	})
	if err != nil {
		r.Forms.Reset()
		return err
	}
	if added.ID != 0 {
		r.printf("added %s #%d\n", added.Type, added.ID)
	}
	return nil
}

func runEdit(ctx context.Context, r *Runner, args []Token) error {
	changes, err := parseProperties(args)
	if err != nil {
		return err
	}
	if r.Forms == nil {
		return fmt.Errorf("no form provider configured")
	}
	// nil entries remove keys from the form's initial values
	err = r.do(ctx, func(c *editor.Controller) error {
		sel := c.Selection()
		if len(sel) != 1 {
			return editor.ErrSingleSelection
		}
		for _, it := range c.Items() {
			if it.ID == sel[0] {
				props := it.Properties.Clone()
				if props == nil {
					props = item.Properties{}
				}
				merge(props, changes)
				for k, v := range changes {
					if v == nil {
						props[k] = nil
					}
				}
				r.Forms.Submit(props)
			}
		}
		_, err := c.Edit(ctx)
		return err
	})
	if err != nil {
		r.Forms.Reset()
	}
	return err
}

// merge applies changes onto dst, nil values removing keys.
func merge(dst, changes map[string]any) {
	for k, v := range changes {
		switch v := v.(type) {
		case nil:
			delete(dst, k)
		case map[string]any:
			sub, ok := dst[k].(map[string]any)
			if !ok {
				sub = map[string]any{}
			}
			merge(sub, v)
			dst[k] = sub
		default:
			dst[k] = v
		}
	}
}

func runCancel(_ context.Context, r *Runner, _ []Token) error {
	if r.Forms == nil {
		return fmt.Errorf("no form provider configured")
	}
	r.Forms.Cancel()
	return nil
}

func runClick(ctx context.Context, r *Runner, args []Token) error {
	args, additive := flag(args, "ctrl")
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", commands()["click"].usage)
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	return r.do(ctx, func(c *editor.Controller) error { return c.Click(ctx, id, additive) })
}

func runSelect(ctx context.Context, r *Runner, args []Token) error {
	ids := make([]item.ID, len(args))
	for i, a := range args {
		id, err := parseID(a)
		if err != nil {
			return err
		}
		ids[i] = id
	}
	return r.do(ctx, func(c *editor.Controller) error {
		if err := c.ClickCanvas(ctx); err != nil {
			return err
		}
		for _, id := range ids {
			if containsID(c.Selection(), id) {
				continue
			}
			if err := c.Click(ctx, id, true); err != nil {
				return err
			}
		}
		return nil
	})
}

func containsID(ids []item.ID, id item.ID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func runDrag(ctx context.Context, r *Runner, args []Token) error {
	args, additive := flag(args, "ctrl")
	if len(args) != 3 {
		return fmt.Errorf("usage: %s", commands()["drag"].usage)
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	dx, err := parseNumber(args[1])
	if err != nil {
		return err
	}
	dy, err := parseNumber(args[2])
	if err != nil {
		return err
	}
	return r.do(ctx, func(c *editor.Controller) error {
		if err := c.BeginDrag(ctx, id, additive); err != nil {
			return err
		}
		if err := c.DragTo(ctx, dx, dy); err != nil {
			_ = c.CancelDrag(ctx)
			return err
		}
		return c.EndDrag(ctx)
	})
}

func runResize(ctx context.Context, r *Runner, args []Token) error {
	args, ctrl := flag(args, "ctrl")
	args, shift := flag(args, "shift")
	if len(args) != 5 {
		return fmt.Errorf("usage: %s", commands()["resize"].usage)
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	var v [4]float64
	for i := range v {
		if v[i], err = parseNumber(args[i+1]); err != nil {
			return err
		}
	}
	rect := geometry.Rect{Left: v[0], Top: v[1], Width: v[2], Height: v[3]}
	return r.do(ctx, func(c *editor.Controller) error {
		if err := c.BeginResize(ctx, id); err != nil {
			return err
		}
		if err := c.ResizeTo(ctx, rect, editor.Modifiers{Ctrl: ctrl, Shift: shift}); err != nil {
			return err
		}
		return c.EndResize(ctx)
	})
}

var directions = map[string]editor.Direction{
	"up":    editor.DirUp,
	"down":  editor.DirDown,
	"left":  editor.DirLeft,
	"right": editor.DirRight,
}

func runNudge(ctx context.Context, r *Runner, args []Token) error {
	dir, ok := directions[strings.ToLower(args[0].Text)]
	if !ok {
		return fmt.Errorf("invalid direction %q", args[0].Text)
	}
	count := 1
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1].Text)
		if err != nil || n < 1 {
			return fmt.Errorf("invalid count %q", args[1].Text)
		}
		count = n
	}
	return r.do(ctx, func(c *editor.Controller) error {
		for range count {
			moved, err := c.Nudge(ctx, dir)
			if err != nil {
				return err
			}
			if !moved {
				break
			}
		}
		return nil
	})
}

// keyNames maps lower case script names to key names.
var keyNames = map[string]string{
	"up":        "ArrowUp",
	"down":      "ArrowDown",
	"left":      "ArrowLeft",
	"right":     "ArrowRight",
	"delete":    "Delete",
	"del":       "Delete",
	"backspace": "Backspace",
	"escape":    "Escape",
}

// ParseKey reads forms like "ctrl+d", "meta+D" and "delete".
func ParseKey(s string) (editor.Key, error) {
	var k editor.Key
	parts := strings.Split(s, "+")
	for _, mod := range parts[:len(parts)-1] {
		switch strings.ToLower(mod) {
		case "ctrl", "control":
			k.Ctrl = true
		case "meta", "cmd":
			k.Meta = true
		default:
			return editor.Key{}, fmt.Errorf("invalid key modifier %q", mod)
		}
	}
	name := parts[len(parts)-1]
	if name == "" {
		return editor.Key{}, fmt.Errorf("invalid key %q", s)
	}
	if mapped, ok := keyNames[strings.ToLower(name)]; ok {
		name = mapped
	}
	k.Name = name
	return k, nil
}

func runKey(ctx context.Context, r *Runner, args []Token) error {
	k, err := ParseKey(args[0].Text)
	if err != nil {
		return err
	}
	return r.do(ctx, func(c *editor.Controller) error {
		handled, err := c.HandleKey(ctx, k)
		if err == nil && !handled {
			r.printf("key %s ignored\n", args[0].Text)
		}
		return err
	})
}

func runActivate(ctx context.Context, r *Runner, args []Token) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	return r.do(ctx, func(c *editor.Controller) error {
		_, err := c.Activate(ctx, id)
		return err
	})
}

func runCanvas(ctx context.Context, r *Runner, args []Token) error {
	w, err := parseNumber(args[0])
	if err != nil {
		return err
	}
	h, err := parseNumber(args[1])
	if err != nil {
		return err
	}
	return r.do(ctx, func(c *editor.Controller) error {
		return c.SetCanvasSize(ctx, geometry.Size{Width: w, Height: h})
	})
}

func (r *Runner) player() (editor.Player, error) {
	if r.Player == nil {
		return nil, fmt.Errorf("no player attached")
	}
	return r.Player, nil
}

func runSeek(ctx context.Context, r *Runner, args []Token) error {
	p, err := r.player()
	if err != nil {
		return err
	}
	t, err := parseNumber(args[0])
	if err != nil {
		return err
	}
	return p.Seek(ctx, t)
}

func runPlay(ctx context.Context, r *Runner, _ []Token) error {
	p, err := r.player()
	if err != nil {
		return err
	}
	return p.Play(ctx)
}

func runPause(ctx context.Context, r *Runner, _ []Token) error {
	p, err := r.player()
	if err != nil {
		return err
	}
	return p.Pause(ctx)
}

func runShow(ctx context.Context, r *Runner, _ []Token) error {
	v, err := r.view(ctx)
	if err != nil {
		return err
	}
	r.printf("%s\n", render.View(v, r.Render))
	return nil
}

func runEcho(_ context.Context, r *Runner, args []Token) error {
	words := make([]string, len(args))
	for i, a := range args {
		words[i] = a.Text
	}
	r.printf("%s\n", strings.Join(words, " "))
	return nil
}

func runExpect(ctx context.Context, r *Runner, args []Token) error {
	v, err := r.view(ctx)
	if err != nil {
		return err
	}
	what, want := strings.ToLower(args[0].Text), args[1].Text
	var got string
	switch what {
	case "items":
		got = strconv.Itoa(len(v.Items))
	case "selected":
		got = strconv.Itoa(len(v.Selection))
	case "dirty":
		got = strconv.FormatBool(v.Dirty)
	case "editing":
		got = strconv.FormatBool(v.Editing)
	default:
		return fmt.Errorf("cannot expect %q", args[0].Text)
	}
	if got != want {
		return fmt.Errorf("%w: %s is %s, want %s", ErrExpectation, what, got, want)
	}
	return nil
}

func runHelp(_ context.Context, r *Runner, _ []Token) error {
	for _, u := range Usage() {
		r.printf("  %s\n", u)
	}
	return nil
}
