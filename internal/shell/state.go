// Package shell defines the workshop front-end's application state and the
// reducer that evolves it.
//
// The shell has a center-left container showing one of three views, a
// column of right-hand panels that the bottom menu toggles, a search box, an
// article feed whose entries expand and collapse, and a power button.
package shell

import (
	"fmt"
	"slices"

	"github.com/roach88/unistore/internal/ir"
)

// View is the content shown in the center-left container.
type View string

const (
	ViewArticles View = "articles"
	ViewOrders   View = "orders"
	ViewTasks    View = "tasks"
)

// Views lists every valid view in menu order.
var Views = []View{ViewArticles, ViewOrders, ViewTasks}

// Valid reports whether v is one of Views.
func (v View) Valid() bool {
	return slices.Contains(Views, v)
}

// Panel names a right-hand panel.
type Panel string

const (
	PanelMenu  Panel = "menu"
	PanelTodos Panel = "todos"
	PanelChat  Panel = "chat"
)

// Panels lists every panel in bottom-menu order.
var Panels = []Panel{PanelMenu, PanelTodos, PanelChat}

// PanelSet records which right-hand panels are visible.
type PanelSet struct {
	Menu  bool `json:"menu"`
	Todos bool `json:"todos"`
	Chat  bool `json:"chat"`
}

// State is the whole shell state. Values are treated as immutable: the
// reducer always returns a fresh copy and never edits Expanded in place.
type State struct {
	CenterView View     `json:"center_view"`
	Panels     PanelSet `json:"panels"`
	Search     string   `json:"search"`
	Expanded   []string `json:"expanded"`
	Powered    bool     `json:"powered"`
}

// Default is the state a fresh shell starts in: articles in the center, the
// main menu open, power on.
func Default() State {
	return State{
		CenterView: ViewArticles,
		Panels:     PanelSet{Menu: true},
		Expanded:   []string{},
		Powered:    true,
	}
}

// Visible reports whether panel p is shown.
func (p PanelSet) Visible(panel Panel) bool {
	switch panel {
	case PanelMenu:
		return p.Menu
	case PanelTodos:
		return p.Todos
	case PanelChat:
		return p.Chat
	}
	return false
}

// Validate checks that the state is internally consistent.
func (s State) Validate() error {
	if !s.CenterView.Valid() {
		return fmt.Errorf("center_view: unknown view %q", s.CenterView)
	}
	if !slices.IsSorted(s.Expanded) {
		return fmt.Errorf("expanded: ids must be sorted")
	}
	if len(slices.Compact(slices.Clone(s.Expanded))) != len(s.Expanded) {
		return fmt.Errorf("expanded: duplicate ids")
	}
	return nil
}

// Snapshot renders the state as a canonical object for hashing and display.
func (s State) Snapshot() ir.Object {
	return ir.Object{
		"center_view": ir.String(s.CenterView),
		"panels": ir.Object{
			"menu":  ir.Bool(s.Panels.Menu),
			"todos": ir.Bool(s.Panels.Todos),
			"chat":  ir.Bool(s.Panels.Chat),
		},
		"search":   ir.String(s.Search),
		"expanded": ir.Strings(s.Expanded...),
		"powered":  ir.Bool(s.Powered),
	}
}

// FromSnapshot is the inverse of Snapshot. Every key is required and
// unknown keys are rejected.
func FromSnapshot(obj ir.Object) (State, error) {
	var s State
	known := map[string]bool{"center_view": true, "panels": true, "search": true, "expanded": true, "powered": true}
	for k := range obj {
		if !known[k] {
			return s, fmt.Errorf("snapshot: unknown key %q", k)
		}
	}

	view, ok := obj.GetString("center_view")
	if !ok {
		return s, fmt.Errorf("snapshot: center_view must be a string")
	}
	s.CenterView = View(view)

	panels, ok := obj.GetObject("panels")
	if !ok {
		return s, fmt.Errorf("snapshot: panels must be an object")
	}
	for _, p := range Panels {
		v, ok := panels.GetBool(string(p))
		if !ok {
			return s, fmt.Errorf("snapshot: panels.%s must be a bool", p)
		}
		s.Panels = s.Panels.with(p, v)
	}

	if s.Search, ok = obj.GetString("search"); !ok {
		return s, fmt.Errorf("snapshot: search must be a string")
	}

	expanded, ok := obj.GetArray("expanded")
	if !ok {
		return s, fmt.Errorf("snapshot: expanded must be an array")
	}
	s.Expanded = make([]string, 0, len(expanded))
	for i, v := range expanded {
		id, ok := v.(ir.String)
		if !ok {
			return s, fmt.Errorf("snapshot: expanded[%d] must be a string", i)
		}
		s.Expanded = append(s.Expanded, string(id))
	}
	slices.Sort(s.Expanded)

	if s.Powered, ok = obj.GetBool("powered"); !ok {
		return s, fmt.Errorf("snapshot: powered must be a bool")
	}

	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("snapshot: %w", err)
	}
	return s, nil
}

func (p PanelSet) with(panel Panel, visible bool) PanelSet {
	switch panel {
	case PanelMenu:
		p.Menu = visible
	case PanelTodos:
		p.Todos = visible
	case PanelChat:
		p.Chat = visible
	}
	return p
}
