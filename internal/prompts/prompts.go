// Package prompts builds the planner prompts for single-shot interpretation
// and for agent turns.
package prompts

import (
	"fmt"
	"strings"
)

// Exchange is a previously interpreted command and its outcome.
type Exchange struct {
	Command string
	Plan    string
	Success bool
}

// actionCatalog lists every action the executor understands, with the exact
// JSON fields the parser accepts.
const actionCatalog = `
Available action types (JSON "type" tag and fields):
    - Click: tap a screen coordinate. {"type": "Click", "x": 540, "y": 1200}
    - ClickOnText: tap the element whose visible text or description matches. {"type": "ClickOnText", "text": "Settings"}
    - Scroll: scroll the screen. {"type": "Scroll", "direction": "UP" | "DOWN" | "LEFT" | "RIGHT"}
    - Type: enter text into the focused field. {"type": "Type", "text": "hello"}
    - PressEnter: submit the focused field. {"type": "PressEnter"}
    - Screenshot: capture the screen. {"type": "Screenshot"}
    - GoBack: system back. {"type": "GoBack"}
    - GoHome: go to the home screen. {"type": "GoHome"}
    - OpenNotifications: pull down the notification shade. {"type": "OpenNotifications"}
    - Wait: pause. {"type": "Wait", "milliseconds": 1000}
    - OpenApp: launch an app by package id or common name. {"type": "OpenApp", "packageId": "com.android.settings"}
    - SetAlarm: set an alarm (24h clock). {"type": "SetAlarm", "hour": 7, "minute": 30}
    - Complete: finish the task. {"type": "Complete", "success": true, "message": "done"}`

const commandGuidance = `

    Guidance:
    - Start from the home screen (GoHome) when the command involves another app.
    - Add a Wait after opening apps (2000 ms) and between taps (300-500 ms).
    - After typing a URL or a search query, add PressEnter.
    - Use "browser" as the packageId to open the default web browser.`

// CommandSystemPrompt is the instruction set for turning one command into a
// complete plan.
func CommandSystemPrompt() string {
	return `You are the planner of a voice assistant that operates an Android phone on behalf of the user.
Translate the user's command into an ordered list of UI actions that accomplishes it.
` + actionCatalog + commandGuidance + `

    Respond with a single JSON object and nothing else:
    {"success": true, "message": "<short summary>", "description": "<plan description>", "actions": [ ... ]}
    If the command cannot be done on the phone, set "success" to false and explain in "message".`
}

// ShortCommandPrompt is used for brief utterances.
func ShortCommandPrompt(command string, recent []Exchange) string {
	return fmt.Sprintf("%sCommand: %s\nRespond with the JSON plan only.", recentBlock(recent), command)
}

// DetailedCommandPrompt is used for longer, multi-step commands.
func DetailedCommandPrompt(command string, recent []Exchange) string {
	return fmt.Sprintf(`%sCommand: %s

    This command may need several steps. Break it down in the order a person would perform it on the phone,
    opening each app before interacting with it and waiting for screens to load.

    Determine the full plan. Respond with a single JSON object.`, recentBlock(recent), command)
}

func recentBlock(recent []Exchange) string {
	if len(recent) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Recent commands (oldest first):\n")
	for _, ex := range recent {
		outcome := "ok"
		if !ex.Success {
			outcome = "failed"
		}
		fmt.Fprintf(&b, "    - %q -> %s (%s)\n", ex.Command, ex.Plan, outcome)
	}
	b.WriteString("\n")
	return b.String()
}

// AgentSystemPrompt is the instruction set for the iterative agent, which
// picks exactly one action per turn.
func AgentSystemPrompt() string {
	return `You are an autonomous agent operating an Android phone to accomplish the user's task.
You work one step at a time. Each turn you receive the task, the text currently visible on the screen and the recent actions with their outcomes.
` + actionCatalog + `

    **Error Handling**:
    A failed action is reported with an error code.
    - ` + "`ELEMENT_NOT_FOUND`" + `: the text was not on screen. The clickable elements that were visible are listed; pick one of them, scroll, or navigate elsewhere.
    - ` + "`APP_LAUNCH_FAILED`" + `: the app is not installed. Try another app that can do the job.
    - ` + "`INVALID_ACTION`" + `: the action had missing or invalid fields. Correct them.
    - ` + "`SURFACE_ERROR`" + `: the phone rejected the gesture. Wait, then try again or take another route.

    When the task is done, or cannot be done, respond with Complete and set "success" accordingly.
    Set "requiresScreenshot" to true when you need to see the screen after this action.

    Respond with a single JSON object and nothing else:
    {"action": {"type": "...", ...}, "reasoning": "<why>", "confidence": 0.0-1.0, "requiresScreenshot": false}`
}

// AgentTurnPrompt is the per-iteration user prompt.
func AgentTurnPrompt(task, screenText string, history []string, iteration, maxIterations int) string {
	screen := strings.TrimSpace(screenText)
	if screen == "" {
		screen = "(no text recognized)"
	}
	steps := "(none yet)"
	if len(history) > 0 {
		var b strings.Builder
		for i, h := range history {
			fmt.Fprintf(&b, "\n    %d. %s", i+1, h)
		}
		steps = b.String()
	}
	return fmt.Sprintf(`Task: %s
    Iteration: %d of %d

    Screen text:
    %s

    Recent actions:%s

    Determine the next action. Respond with a single JSON object.`, task, iteration, maxIterations, screen, leadingSpace(steps))
}

func leadingSpace(s string) string {
	if strings.HasPrefix(s, "\n") {
		return s
	}
	return " " + s
}
