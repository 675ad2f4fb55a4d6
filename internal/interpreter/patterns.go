package interpreter

import (
	"strings"

	"github.com/BilalMagg/Auralia-sub000/internal/action"
)

// pattern maps fixed phrases to a ready-made plan. Phrases match whole words
// anywhere in the command unless exact is set.
type pattern struct {
	name    string
	phrases []string
	exact   bool
	build   func() action.Sequence
}

func single(description string, a action.Action) func() action.Sequence {
	return func() action.Sequence { return action.NewSequence(description, a) }
}

// instantPatterns is evaluated top to bottom and the first match wins, so
// more specific phrases come first.
var instantPatterns = []pattern{
	{
		name:    "notifications",
		phrases: []string{"open notifications", "open the notifications", "show notifications", "show my notifications", "open notification panel", "pull down notifications"},
		build:   single("open notifications", action.OpenNotifications{}),
	},
	{
		name:    "screenshot",
		phrases: []string{"take a screenshot", "take screenshot", "capture the screen", "capture screen", "screenshot"},
		build:   single("take screenshot", action.Screenshot{}),
	},
	{
		name:    "home",
		phrases: []string{"go to the home screen", "go to home screen", "go home", "go to home", "home screen"},
		build:   single("go home", action.GoHome{}),
	},
	{
		name:    "back",
		phrases: []string{"go back", "navigate back", "previous screen"},
		build:   single("go back", action.GoBack{}),
	},
	{
		name:    "scroll down",
		phrases: []string{"scroll down", "page down"},
		build:   single("scroll down", action.Scroll{Direction: action.Down}),
	},
	{
		name:    "scroll up",
		phrases: []string{"scroll up", "page up"},
		build:   single("scroll up", action.Scroll{Direction: action.Up}),
	},
	{
		name:    "scroll left",
		phrases: []string{"scroll left"},
		build:   single("scroll left", action.Scroll{Direction: action.Left}),
	},
	{
		name:    "scroll right",
		phrases: []string{"scroll right"},
		build:   single("scroll right", action.Scroll{Direction: action.Right}),
	},
	{
		name:    "enter",
		phrases: []string{"press enter", "hit enter"},
		build:   single("press enter", action.PressEnter{}),
	},
	{
		name:    "bare home",
		phrases: []string{"home"},
		exact:   true,
		build:   single("go home", action.GoHome{}),
	},
	{
		name:    "bare back",
		phrases: []string{"back"},
		exact:   true,
		build:   single("go back", action.GoBack{}),
	},
	{
		name:    "bare enter",
		phrases: []string{"enter", "submit"},
		exact:   true,
		build:   single("press enter", action.PressEnter{}),
	},
	{
		name:    "bare wait",
		phrases: []string{"wait", "wait a second"},
		exact:   true,
		build:   single("wait", action.Wait{Milliseconds: 1000}),
	},
}

// matchPattern returns the plan of the first pattern that matches the
// normalized command.
func matchPattern(command string) (action.Sequence, string, bool) {
	padded := " " + command + " "
	for _, p := range instantPatterns {
		for _, phrase := range p.phrases {
			if p.exact && command == phrase || !p.exact && strings.Contains(padded, " "+phrase+" ") {
				return p.build(), p.name, true
			}
		}
	}
	return action.Sequence{}, "", false
}
