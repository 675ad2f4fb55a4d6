package parser

import (
	"regexp"
	"strings"

	"github.com/BilalMagg/Auralia-sub000/internal/action"
)

var (
	urlPattern = regexp.MustCompile(`(?i)^(?:https?://)?(?:www\.)?[a-z0-9-]+(?:\.[a-z0-9-]+)*\.[a-z]{2,}(?::\d+)?(?:[/?#]\S*)?$`)
	// searchFieldWords identify a text field that submits on enter.
	searchFieldWords = []string{"search", "url", "address", "web", "find"}
)

// LooksLikeURL reports whether text is a bare domain or URL.
func LooksLikeURL(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" || strings.ContainsAny(text, " \t\n") {
		return false
	}
	return urlPattern.MatchString(text)
}

func isSearchField(label string) bool {
	label = strings.ToLower(label)
	for _, w := range searchFieldWords {
		if strings.Contains(label, w) {
			return true
		}
	}
	return false
}

// needsSubmit reports whether the Type at index i enters a URL or a query
// into a search field.
func needsSubmit(actions []action.Action, i int) bool {
	t, ok := actions[i].(action.Type)
	if !ok || strings.TrimSpace(t.Text) == "" {
		return false
	}
	if LooksLikeURL(t.Text) {
		return true
	}
	for j := i - 1; j >= 0; j-- {
		switch prev := actions[j].(type) {
		case action.Wait:
			continue
		case action.ClickOnText:
			return isSearchField(prev.Text)
		}
		return false
	}
	return false
}

// submitted reports whether the first non-Wait action after i submits or
// moves focus away from the typed text.
func submitted(actions []action.Action, i int) (next int, ok bool) {
	for j := i + 1; j < len(actions); j++ {
		switch actions[j].(type) {
		case action.Wait:
			continue
		case action.PressEnter, action.ClickOnText:
			return j, true
		}
		return j, false
	}
	return len(actions), false
}

// Repair makes sure every Type carrying a URL or search query is submitted.
// When the next meaningful action is neither PressEnter nor ClickOnText a
// PressEnter is inserted right after the Type; a trailing Type gets one
// appended. Sequences that already comply come back unchanged.
func Repair(seq action.Sequence) action.Sequence {
	out := action.Sequence{Description: seq.Description, Actions: make([]action.Action, 0, len(seq.Actions)+1)}
	appendEnter := false
	for i, a := range seq.Actions {
		out.Actions = append(out.Actions, a)
		if !needsSubmit(seq.Actions, i) {
			continue
		}
		next, ok := submitted(seq.Actions, i)
		if ok {
			continue
		}
		if next == len(seq.Actions) {
			// Trailing Type, possibly followed by waits: submit at the very end.
			appendEnter = true
			continue
		}
		out.Actions = append(out.Actions, action.PressEnter{})
	}
	if appendEnter {
		out.Actions = append(out.Actions, action.PressEnter{})
	}
	return out
}
