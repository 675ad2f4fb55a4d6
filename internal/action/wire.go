package action

import (
	"errors"
	"fmt"
	"math"
	"strings"

	json "github.com/json-iterator/go"
)

// WireAction is the JSON shape of one action as exchanged with the planner.
// Numeric fields are decoded as floats because models routinely emit 300.0
// where an integer is meant.
type WireAction struct {
	Type         string   `json:"type"`
	X            *float64 `json:"x,omitempty"`
	Y            *float64 `json:"y,omitempty"`
	Text         string   `json:"text,omitempty"`
	Direction    string   `json:"direction,omitempty"`
	Milliseconds *float64 `json:"milliseconds,omitempty"`
	PackageID    string   `json:"packageId,omitempty"`
	Hour         *float64 `json:"hour,omitempty"`
	Minute       *float64 `json:"minute,omitempty"`
	Success      *bool    `json:"success,omitempty"`
	Message      string   `json:"message,omitempty"`

	// Aliases seen in the wild; only consulted in lenient mode.
	Package  string   `json:"package,omitempty"`
	Duration *float64 `json:"duration,omitempty"`
}

// WirePlan is the envelope of a full command plan.
type WirePlan struct {
	Success     *bool        `json:"success,omitempty"`
	Message     string       `json:"message,omitempty"`
	Description string       `json:"description,omitempty"`
	Actions     []WireAction `json:"actions"`
}

// WireTurn is the envelope of a single agent turn.
type WireTurn struct {
	Action             *WireAction `json:"action"`
	Reasoning          string      `json:"reasoning,omitempty"`
	Confidence         float64     `json:"confidence,omitempty"`
	RequiresScreenshot bool        `json:"requiresScreenshot,omitempty"`
}

// Decoding errors.
var (
	ErrUnknownType  = errors.New("unknown action type")
	ErrMissingField = errors.New("required field missing")
	ErrNotInteger   = errors.New("value is not an integer")
	ErrOutOfRange   = errors.New("value is out of range")
)

// tagAliases maps a squashed, lower-cased tag to its canonical kind. Canonical
// names are added in init.
var tagAliases = map[string]Kind{
	"tap":               KindClick,
	"clickat":           KindClick,
	"tapontext":         KindClickOnText,
	"taptext":           KindClickOnText,
	"clicktext":         KindClickOnText,
	"clickelement":      KindClickOnText,
	"swipe":             KindScroll,
	"typetext":          KindType,
	"input":             KindType,
	"inputtext":         KindType,
	"enter":             KindPressEnter,
	"submit":            KindPressEnter,
	"takescreenshot":    KindScreenshot,
	"back":              KindGoBack,
	"home":              KindGoHome,
	"notifications":     KindOpenNotifications,
	"shownotifications": KindOpenNotifications,
	"sleep":             KindWait,
	"delay":             KindWait,
	"launchapp":         KindOpenApp,
	"openapplication":   KindOpenApp,
	"launch":            KindOpenApp,
	"alarm":             KindSetAlarm,
	"done":              KindComplete,
	"finish":            KindComplete,
	"finished":          KindComplete,
}

func init() {
	for _, k := range AllKinds() {
		tagAliases[squash(string(k))] = k
	}
}

func squash(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if r == '_' || r == '-' || r == ' ' || r == '.' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NormalizeKind resolves a loosely written tag such as "click_on_text" or
// "CLICK-ON-TEXT" to its canonical kind.
func NormalizeKind(tag string) (Kind, bool) {
	k, ok := tagAliases[squash(tag)]
	return k, ok
}

func isCanonical(tag string) (Kind, bool) {
	for _, k := range AllKinds() {
		if string(k) == tag {
			return k, true
		}
	}
	return "", false
}

func toInt(field string, f *float64, strict bool) (int, error) {
	if f == nil {
		return 0, fmt.Errorf("%w: %s", ErrMissingField, field)
	}
	if math.IsNaN(*f) || math.IsInf(*f, 0) {
		return 0, fmt.Errorf("%w: %s", ErrNotInteger, field)
	}
	if strict && *f != math.Trunc(*f) {
		return 0, fmt.Errorf("%w: %s=%v", ErrNotInteger, field, *f)
	}
	if math.Abs(*f) > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %s=%v", ErrOutOfRange, field, *f)
	}
	return int(math.Round(*f)), nil
}

// FromWire converts a decoded wire action into its variant and validates it.
// In strict mode only canonical tags and canonical field names are accepted.
func FromWire(w WireAction, strict bool) (Action, error) {
	var (
		kind Kind
		ok   bool
	)
	if strict {
		kind, ok = isCanonical(w.Type)
	} else {
		kind, ok = NormalizeKind(w.Type)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, w.Type)
	}

	act, err := buildAction(kind, w, strict)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	if err := Validate(act); err != nil {
		return nil, err
	}
	return act, nil
}

func buildAction(kind Kind, w WireAction, strict bool) (Action, error) {
	switch kind {
	case KindClick:
		x, err := toInt("x", w.X, strict)
		if err != nil {
			return nil, err
		}
		y, err := toInt("y", w.Y, strict)
		if err != nil {
			return nil, err
		}
		return Click{X: x, Y: y}, nil
	case KindClickOnText:
		return ClickOnText{Text: w.Text}, nil
	case KindScroll:
		dir, ok := ParseDirection(w.Direction)
		if !ok {
			if strict {
				return nil, fmt.Errorf("%w: got %q", ErrBadDirection, w.Direction)
			}
			dir = Down
		}
		return Scroll{Direction: dir}, nil
	case KindType:
		return Type{Text: w.Text}, nil
	case KindPressEnter:
		return PressEnter{}, nil
	case KindScreenshot:
		return Screenshot{}, nil
	case KindGoBack:
		return GoBack{}, nil
	case KindGoHome:
		return GoHome{}, nil
	case KindOpenNotifications:
		return OpenNotifications{}, nil
	case KindWait:
		ms := w.Milliseconds
		if ms == nil && !strict {
			ms = w.Duration
		}
		v, err := toInt("milliseconds", ms, strict)
		if err != nil {
			return nil, err
		}
		return Wait{Milliseconds: v}, nil
	case KindOpenApp:
		pkg := w.PackageID
		if pkg == "" && !strict {
			pkg = w.Package
		}
		return OpenApp{PackageID: pkg}, nil
	case KindSetAlarm:
		hour, err := toInt("hour", w.Hour, strict)
		if err != nil {
			return nil, err
		}
		minute := 0
		if w.Minute != nil {
			if minute, err = toInt("minute", w.Minute, strict); err != nil {
				return nil, err
			}
		}
		return SetAlarm{Hour: hour, Minute: minute}, nil
	case KindComplete:
		success := true
		if w.Success != nil {
			success = *w.Success
		} else if strict {
			return nil, fmt.Errorf("%w: success", ErrMissingField)
		}
		return Complete{Success: success, Message: w.Message}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, kind)
}

func ptr[T any](v T) *T { return &v }

// ToWire converts a variant into its canonical wire form.
func ToWire(a Action) WireAction {
	w := WireAction{Type: string(a.Kind())}
	switch v := a.(type) {
	case Click:
		w.X, w.Y = ptr(float64(v.X)), ptr(float64(v.Y))
	case ClickOnText:
		w.Text = v.Text
	case Scroll:
		w.Direction = string(v.Direction)
	case Type:
		w.Text = v.Text
	case Wait:
		w.Milliseconds = ptr(float64(v.Milliseconds))
	case OpenApp:
		w.PackageID = v.PackageID
	case SetAlarm:
		w.Hour, w.Minute = ptr(float64(v.Hour)), ptr(float64(v.Minute))
	case Complete:
		w.Success = ptr(v.Success)
		w.Message = v.Message
	}
	return w
}

// MarshalResult encodes a command result in the planner's envelope format.
func MarshalResult(r CommandResult) ([]byte, error) {
	plan := WirePlan{
		Success:     ptr(r.Success),
		Message:     r.Message,
		Description: r.Actions.Description,
		Actions:     make([]WireAction, 0, len(r.Actions.Actions)),
	}
	for _, a := range r.Actions.Actions {
		plan.Actions = append(plan.Actions, ToWire(a))
	}
	return json.MarshalIndent(plan, "", "  ")
}
