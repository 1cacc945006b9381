package shell

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/unistore/internal/ir"
	"github.com/roach88/unistore/internal/state"
)

// ErrPoweredOff rejects every action dispatched after power/off.
var ErrPoweredOff = errors.New("shell is powered off")

// PayloadError reports a missing or malformed payload field.
type PayloadError struct {
	Action  string
	Field   string
	Message string
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("%s: payload.%s: %s", e.Action, e.Field, e.Message)
}

// Reducer is Reduce as a state.Reducer.
var Reducer state.Reducer[State, ir.Action] = Reduce

// NewStore creates a store over the shell reducer.
func NewStore(initial State) *state.Store[State, ir.Action] {
	return state.New(Reducer, initial)
}

// Reduce handles all shell state transitions. It is pure: s is never
// modified, and unknown action types return s unchanged.
func Reduce(s State, a ir.Action) (State, error) {
	if !s.Powered {
		return s, fmt.Errorf("%s: %w", a.Type, ErrPoweredOff)
	}

	switch a.Type {
	case TypeShowCenter:
		view, err := stringField(a, "view")
		if err != nil {
			return s, err
		}
		if !View(view).Valid() {
			return s, &PayloadError{Action: a.Type, Field: "view", Message: fmt.Sprintf("unknown view %q", view)}
		}
		s.CenterView = View(view)

	case TypeTogglePanel:
		name, err := stringField(a, "panel")
		if err != nil {
			return s, err
		}
		panel := Panel(name)
		if !slices.Contains(Panels, panel) {
			return s, &PayloadError{Action: a.Type, Field: "panel", Message: fmt.Sprintf("unknown panel %q", name)}
		}
		s.Panels = s.Panels.with(panel, !s.Panels.Visible(panel))

	case TypeSearchInput:
		text, err := stringField(a, "text")
		if err != nil {
			return s, err
		}
		s.Search = text

	case TypeToggleArticle:
		id, err := stringField(a, "id")
		if err != nil {
			return s, err
		}
		if id == "" {
			return s, &PayloadError{Action: a.Type, Field: "id", Message: "must not be empty"}
		}
		s.Expanded = toggleSorted(s.Expanded, id)

	case TypePowerOff:
		s.Powered = false
	}

	return s, nil
}

func stringField(a ir.Action, field string) (string, error) {
	v, present := a.Payload[field]
	if !present {
		return "", &PayloadError{Action: a.Type, Field: field, Message: "required"}
	}
	s, ok := v.(ir.String)
	if !ok {
		return "", &PayloadError{Action: a.Type, Field: field, Message: fmt.Sprintf("must be a string, got %T", v)}
	}
	return string(s), nil
}

// toggleSorted returns a new sorted slice with id added or removed.
func toggleSorted(ids []string, id string) []string {
	i, found := slices.BinarySearch(ids, id)
	out := make([]string, 0, len(ids)+1)
	out = append(out, ids[:i]...)
	if !found {
		out = append(out, id)
		return append(out, ids[i:]...)
	}
	return append(out, ids[i+1:]...)
}
