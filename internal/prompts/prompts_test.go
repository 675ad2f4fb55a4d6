package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandPrompts(t *testing.T) {
	recent := []Exchange{
		{Command: "open camera", Plan: "[GoHome, Wait(300), OpenApp(\"camera\")]", Success: true},
		{Command: "call mom", Plan: "[Screenshot]", Success: false},
	}

	short := ShortCommandPrompt("turn on wifi", recent)
	assert.Contains(t, short, "Command: turn on wifi")
	assert.Contains(t, short, `"open camera" -> [GoHome`)
	assert.Contains(t, short, "(failed)")

	detailed := DetailedCommandPrompt("open settings then turn on wifi and bluetooth", nil)
	assert.NotContains(t, detailed, "Recent commands")
	assert.Contains(t, detailed, "several steps")

	system := CommandSystemPrompt()
	for _, tag := range []string{"ClickOnText", "OpenApp", "SetAlarm", "PressEnter", "Complete"} {
		assert.Contains(t, system, tag)
	}
}

func TestAgentPrompts(t *testing.T) {
	p := AgentTurnPrompt("send a message", "", nil, 1, 20)
	assert.Contains(t, p, "Iteration: 1 of 20")
	assert.Contains(t, p, "(no text recognized)")
	assert.Contains(t, p, "Recent actions: (none yet)")

	p = AgentTurnPrompt("send a message", "Messages\nStart chat", []string{"GoHome -> ok", `ClickOnText("Chat") -> failed`}, 3, 20)
	assert.Contains(t, p, "Start chat")
	assert.Contains(t, p, "1. GoHome -> ok")
	assert.Contains(t, p, `2. ClickOnText("Chat") -> failed`)

	assert.Contains(t, AgentSystemPrompt(), "ELEMENT_NOT_FOUND")
}
