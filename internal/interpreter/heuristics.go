package interpreter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/BilalMagg/Auralia-sub000/internal/action"
	"github.com/BilalMagg/Auralia-sub000/internal/appdir"
)

// browserSearchField is the label of the address bar in the default browser.
const browserSearchField = "Search or type URL"

// heuristic extracts parameters from a command and builds a plan for it.
type heuristic struct {
	name  string
	build func(command string, apps *appdir.Directory) (action.Sequence, bool)
}

// heuristics run in order after the instant patterns.
var heuristics = []heuristic{
	{name: "set alarm", build: alarmHeuristic},
	{name: "web", build: webHeuristic},
	{name: "open app", build: openAppHeuristic},
	{name: "type text", build: typeHeuristic},
}

func matchHeuristic(command string, apps *appdir.Directory) (action.Sequence, string, bool) {
	for _, h := range heuristics {
		if seq, ok := h.build(command, apps); ok {
			return seq, h.name, true
		}
	}
	return action.Sequence{}, "", false
}

var alarmRe = regexp.MustCompile(`\b(?:(?:set|create|add|schedule)\s+(?:an?\s+|my\s+|the\s+)?alarm|wake\s+me(?:\s+up)?)\s+(?:for\s+|at\s+)?(\d{1,2})(?:[:.h](\d{2}))?\s*(am|pm|a\.m\.?|p\.m\.?)?(?:\s|$)`)

func alarmHeuristic(command string, _ *appdir.Directory) (action.Sequence, bool) {
	m := alarmRe.FindStringSubmatch(command)
	if m == nil {
		return action.Sequence{}, false
	}
	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	switch strings.ReplaceAll(m[3], ".", "") {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	if hour > 23 || minute > 59 {
		return action.Sequence{}, false
	}
	return action.NewSequence(fmt.Sprintf("set alarm for %02d:%02d", hour, minute),
		action.SetAlarm{Hour: hour, Minute: minute}), true
}

// knownSites maps spoken site names to the address typed into the browser.
var knownSites = map[string]string{
	"google":    "google.com",
	"youtube":   "youtube.com",
	"facebook":  "facebook.com",
	"twitter":   "twitter.com",
	"wikipedia": "wikipedia.org",
	"amazon":    "amazon.com",
	"reddit":    "reddit.com",
	"github":    "github.com",
	"instagram": "instagram.com",
	"linkedin":  "linkedin.com",
	"netflix":   "netflix.com",
	"gmail":     "gmail.com",
}

var (
	siteRe  = regexp.MustCompile(`^(?:search|visit|browse|go to|navigate to)\s+(?:the\s+)?(?:site\s+|website\s+)?(google|youtube|facebook|twitter|wikipedia|amazon|reddit|github|instagram|linkedin|netflix|gmail)(?:\.(?:com|org))?(?:\s+(?:site|website))?$`)
	urlRe   = regexp.MustCompile(`^(?:go to|visit|open|browse|navigate to|load)\s+(?:the\s+)?(?:site\s+|website\s+|page\s+)?((?:https?://)?(?:www\.)?[a-z0-9-]+(?:\.[a-z0-9-]+)*\.[a-z]{2,}(?:/\S*)?)$`)
	queryRe = regexp.MustCompile(`^(?:search|google|look up)\s+(?:the web\s+|online\s+)?(?:for\s+)?(.+?)(?:\s+on\s+(?:google|the web|the internet|the browser))?$`)
)

func webHeuristic(command string, _ *appdir.Directory) (action.Sequence, bool) {
	if m := siteRe.FindStringSubmatch(command); m != nil {
		site := knownSites[m[1]]
		return browseTo("open "+site, site), true
	}
	if m := urlRe.FindStringSubmatch(command); m != nil {
		return browseTo("open "+m[1], m[1]), true
	}
	if m := queryRe.FindStringSubmatch(command); m != nil {
		return browseTo("search the web for "+m[1], m[1]), true
	}
	return action.Sequence{}, false
}

// browseTo opens the browser and submits text in its address bar.
func browseTo(description, text string) action.Sequence {
	return action.NewSequence(description,
		action.GoHome{},
		action.Wait{Milliseconds: 300},
		action.OpenApp{PackageID: "browser"},
		action.Wait{Milliseconds: 2000},
		action.ClickOnText{Text: browserSearchField},
		action.Wait{Milliseconds: 500},
		action.Type{Text: text},
		action.Wait{Milliseconds: 300},
		action.PressEnter{},
	)
}

var openRe = regexp.MustCompile(`^(?:please\s+)?(?:open|launch|start|run)\s+(?:the\s+|my\s+)?(.+?)(?:\s+app(?:lication)?)?$`)

// compound commands are left to the planner.
var compoundRe = regexp.MustCompile(`\b(?:and|then|to|with|on|in)\b`)

func openAppHeuristic(command string, apps *appdir.Directory) (action.Sequence, bool) {
	m := openRe.FindStringSubmatch(command)
	if m == nil {
		return action.Sequence{}, false
	}
	name := m[1]
	if len(strings.Fields(name)) > 3 || compoundRe.MatchString(name) {
		return action.Sequence{}, false
	}
	return action.NewSequence("open "+name,
		action.GoHome{},
		action.Wait{Milliseconds: 300},
		action.OpenApp{PackageID: apps.PackageFor(name)},
	), true
}

var typeRe = regexp.MustCompile(`^(?:type|write|enter text|input)\s+(.+)$`)

func typeHeuristic(command string, _ *appdir.Directory) (action.Sequence, bool) {
	m := typeRe.FindStringSubmatch(command)
	if m == nil {
		return action.Sequence{}, false
	}
	return action.NewSequence("type text", action.Type{Text: m[1]}), true
}
