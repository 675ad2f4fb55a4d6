package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/BilalMagg/Auralia-sub000/internal/action"
)

func TestLooksLikeURL(t *testing.T) {
	for _, s := range []string{"google.com", "www.example.com", "https://news.ycombinator.com/item?id=1", "localhost.dev:8080/x"} {
		assert.True(t, LooksLikeURL(s), s)
	}
	for _, s := range []string{"", "hello world", "3.14", "cats", "google . com"} {
		assert.False(t, LooksLikeURL(s), s)
	}
}

func TestRepair(t *testing.T) {
	tests := []struct {
		name string
		in   []action.Action
		want []action.Action
	}{
		{
			name: "trailing url type gets enter appended",
			in:   []action.Action{action.Type{Text: "www.example.com"}},
			want: []action.Action{action.Type{Text: "www.example.com"}, action.PressEnter{}},
		},
		{
			name: "trailing waits keep the enter at the end",
			in:   []action.Action{action.Type{Text: "example.org"}, action.Wait{Milliseconds: 100}},
			want: []action.Action{action.Type{Text: "example.org"}, action.Wait{Milliseconds: 100}, action.PressEnter{}},
		},
		{
			name: "insert before unrelated action",
			in:   []action.Action{action.Type{Text: "github.com"}, action.Screenshot{}},
			want: []action.Action{action.Type{Text: "github.com"}, action.PressEnter{}, action.Screenshot{}},
		},
		{
			name: "already followed by enter through a wait",
			in:   []action.Action{action.Type{Text: "google.com"}, action.Wait{Milliseconds: 300}, action.PressEnter{}},
			want: []action.Action{action.Type{Text: "google.com"}, action.Wait{Milliseconds: 300}, action.PressEnter{}},
		},
		{
			name: "followed by click on text",
			in:   []action.Action{action.Type{Text: "google.com"}, action.ClickOnText{Text: "Go"}},
			want: []action.Action{action.Type{Text: "google.com"}, action.ClickOnText{Text: "Go"}},
		},
		{
			name: "query typed into search field",
			in:   []action.Action{action.ClickOnText{Text: "Search YouTube"}, action.Wait{Milliseconds: 200}, action.Type{Text: "lofi beats"}},
			want: []action.Action{action.ClickOnText{Text: "Search YouTube"}, action.Wait{Milliseconds: 200}, action.Type{Text: "lofi beats"}, action.PressEnter{}},
		},
		{
			name: "plain text into a message box is left alone",
			in:   []action.Action{action.ClickOnText{Text: "Message"}, action.Type{Text: "see you soon"}},
			want: []action.Action{action.ClickOnText{Text: "Message"}, action.Type{Text: "see you soon"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Repair(action.NewSequence("test", tt.in...))
			if diff := cmp.Diff(tt.want, got.Actions); diff != "" {
				t.Errorf("Repair mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, "test", got.Description)
		})
	}
}

// After repair, every URL or query Type is eventually submitted.
func TestRepair_Invariant(t *testing.T) {
	inputs := [][]action.Action{
		{action.Type{Text: "a.com"}, action.Type{Text: "b.com"}},
		{action.GoHome{}, action.Type{Text: "c.io"}, action.Wait{Milliseconds: 1}, action.GoBack{}, action.Type{Text: "d.io"}},
		{action.ClickOnText{Text: "Search"}, action.Type{Text: "weather"}, action.Scroll{Direction: action.Down}},
	}
	for _, in := range inputs {
		out := Repair(action.NewSequence("", in...)).Actions
		for i := range out {
			if !needsSubmit(out, i) {
				continue
			}
			_, ok := submitted(out, i)
			assert.True(t, ok, "Type at %d not submitted in %v", i, action.NewSequence("", out...))
		}
	}
}

func TestRepair_IsIdempotent(t *testing.T) {
	seq := action.NewSequence("", action.Type{Text: "example.com"}, action.GoBack{})
	once := Repair(seq)
	twice := Repair(once)
	assert.Equal(t, once.Actions, twice.Actions)
}
