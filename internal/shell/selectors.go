package shell

import "slices"

// Selectors read the slices of state the view components are bound to.

// RightMenuVisible feeds the right main menu.
func RightMenuVisible(s State) bool { return s.Panels.Menu }

// RightTodoVisible feeds the right todo panel.
func RightTodoVisible(s State) bool { return s.Panels.Todos }

// RightChatVisible feeds the right chat panel.
func RightChatVisible(s State) bool { return s.Panels.Chat }

// CenterLeft feeds the center-left container.
func CenterLeft(s State) View { return s.CenterView }

// SearchResult feeds the search input's title.
func SearchResult(s State) string { return s.Search }

// ArticleOpen reports whether article id shows its text section.
func ArticleOpen(s State, id string) bool {
	_, found := slices.BinarySearch(s.Expanded, id)
	return found
}

// Display maps visibility onto the CSS display value the panels use.
func Display(visible bool) string {
	if visible {
		return "block"
	}
	return "none"
}
