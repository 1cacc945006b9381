package shell

import "github.com/roach88/unistore/internal/ir"

// Action types understood by Reduce.
const (
	TypeShowCenter    = "center/show"
	TypeTogglePanel   = "panel/toggle"
	TypeSearchInput   = "search/input"
	TypeToggleArticle = "article/toggle"
	TypePowerOff      = "power/off"
)

// ActionTypes lists every action type Reduce handles.
var ActionTypes = []string{TypeShowCenter, TypeTogglePanel, TypeSearchInput, TypeToggleArticle, TypePowerOff}

// ShowCenter switches the center-left container to view v.
func ShowCenter(v View) ir.Action {
	return ir.NewAction(TypeShowCenter, ir.Object{"view": ir.String(v)})
}

// TogglePanel shows or hides one right-hand panel.
func TogglePanel(p Panel) ir.Action {
	return ir.NewAction(TypeTogglePanel, ir.Object{"panel": ir.String(p)})
}

// SearchInput records the current contents of the search box.
func SearchInput(text string) ir.Action {
	return ir.NewAction(TypeSearchInput, ir.Object{"text": ir.String(text)})
}

// ToggleArticle expands or collapses one article's text section.
func ToggleArticle(id string) ir.Action {
	return ir.NewAction(TypeToggleArticle, ir.Object{"id": ir.String(id)})
}

// PowerOff shuts the shell down; every later action is rejected.
func PowerOff() ir.Action {
	return ir.NewAction(TypePowerOff, nil)
}
