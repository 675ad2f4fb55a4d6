// Package action defines the closed set of UI operations the engine can plan
// and execute, along with the containers that carry them between layers.
package action

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the wire tag of an action variant.
type Kind string

const (
	KindClick             Kind = "Click"
	KindClickOnText       Kind = "ClickOnText"
	KindScroll            Kind = "Scroll"
	KindType              Kind = "Type"
	KindPressEnter        Kind = "PressEnter"
	KindScreenshot        Kind = "Screenshot"
	KindGoBack            Kind = "GoBack"
	KindGoHome            Kind = "GoHome"
	KindOpenNotifications Kind = "OpenNotifications"
	KindWait              Kind = "Wait"
	KindOpenApp           Kind = "OpenApp"
	KindSetAlarm          Kind = "SetAlarm"
	KindComplete          Kind = "Complete"
)

// AllKinds lists every variant in declaration order.
func AllKinds() []Kind {
	return []Kind{
		KindClick, KindClickOnText, KindScroll, KindType, KindPressEnter,
		KindScreenshot, KindGoBack, KindGoHome, KindOpenNotifications,
		KindWait, KindOpenApp, KindSetAlarm, KindComplete,
	}
}

// Direction of a scroll gesture, named by where the content moves into view.
type Direction string

const (
	Up    Direction = "UP"
	Down  Direction = "DOWN"
	Left  Direction = "LEFT"
	Right Direction = "RIGHT"
)

// ParseDirection accepts any casing of the four directions.
func ParseDirection(s string) (Direction, bool) {
	switch d := Direction(strings.ToUpper(strings.TrimSpace(s))); d {
	case Up, Down, Left, Right:
		return d, true
	}
	return "", false
}

// Action is one executable UI operation. The set of implementations is closed;
// code that switches over it must handle every variant.
//
//sumtype:decl
type Action interface {
	Kind() Kind
	isAction()
}

// Click taps an absolute screen coordinate.
type Click struct {
	X int
	Y int
}

// ClickOnText taps the element whose label matches Text.
type ClickOnText struct {
	Text string
}

type Scroll struct {
	Direction Direction
}

// Type enters Text into the focused input field.
type Type struct {
	Text string
}

type PressEnter struct{}

type Screenshot struct{}

type GoBack struct{}

type GoHome struct{}

type OpenNotifications struct{}

// Wait pauses execution. Milliseconds is never negative.
type Wait struct {
	Milliseconds int
}

// OpenApp launches an application by package id or by a well-known alias
// such as "browser".
type OpenApp struct {
	PackageID string
}

// SetAlarm schedules an alarm on the device clock.
type SetAlarm struct {
	Hour   int
	Minute int
}

// Complete ends an agent task. It has no effect on the device.
type Complete struct {
	Success bool
	Message string
}

func (Click) Kind() Kind             { return KindClick }
func (ClickOnText) Kind() Kind       { return KindClickOnText }
func (Scroll) Kind() Kind            { return KindScroll }
func (Type) Kind() Kind              { return KindType }
func (PressEnter) Kind() Kind        { return KindPressEnter }
func (Screenshot) Kind() Kind        { return KindScreenshot }
func (GoBack) Kind() Kind            { return KindGoBack }
func (GoHome) Kind() Kind            { return KindGoHome }
func (OpenNotifications) Kind() Kind { return KindOpenNotifications }
func (Wait) Kind() Kind              { return KindWait }
func (OpenApp) Kind() Kind           { return KindOpenApp }
func (SetAlarm) Kind() Kind          { return KindSetAlarm }
func (Complete) Kind() Kind          { return KindComplete }

func (Click) isAction()             {}
func (ClickOnText) isAction()       {}
func (Scroll) isAction()            {}
func (Type) isAction()              {}
func (PressEnter) isAction()        {}
func (Screenshot) isAction()        {}
func (GoBack) isAction()            {}
func (GoHome) isAction()            {}
func (OpenNotifications) isAction() {}
func (Wait) isAction()              {}
func (OpenApp) isAction()           {}
func (SetAlarm) isAction()          {}
func (Complete) isAction()          {}

// Validation errors.
var (
	ErrNilAction          = errors.New("nil action")
	ErrNegativeWait       = errors.New("wait duration must not be negative")
	ErrWaitTooLong        = fmt.Errorf("wait duration must not exceed %dms", MaxWaitMilliseconds)
	ErrHourRange          = errors.New("alarm hour must be within 0-23")
	ErrMinuteRange        = errors.New("alarm minute must be within 0-59")
	ErrBadDirection       = errors.New("scroll direction must be one of UP, DOWN, LEFT, RIGHT")
	ErrEmptyTarget        = errors.New("click target text is empty")
	ErrEmptyPackage       = errors.New("package id is empty")
	ErrNegativeCoordinate = errors.New("click coordinates must not be negative")
)

// MaxWaitMilliseconds bounds a single Wait action.
const MaxWaitMilliseconds = 60_000

// Validate checks the invariants of a single action.
func Validate(a Action) error {
	switch v := a.(type) {
	case nil:
		return ErrNilAction
	case Wait:
		if v.Milliseconds < 0 {
			return fmt.Errorf("%w: got %d", ErrNegativeWait, v.Milliseconds)
		}
		if v.Milliseconds > MaxWaitMilliseconds {
			return fmt.Errorf("%w: got %d", ErrWaitTooLong, v.Milliseconds)
		}
	case SetAlarm:
		if v.Hour < 0 || v.Hour > 23 {
			return fmt.Errorf("%w: got %d", ErrHourRange, v.Hour)
		}
		if v.Minute < 0 || v.Minute > 59 {
			return fmt.Errorf("%w: got %d", ErrMinuteRange, v.Minute)
		}
	case Scroll:
		if _, ok := ParseDirection(string(v.Direction)); !ok {
			return fmt.Errorf("%w: got %q", ErrBadDirection, v.Direction)
		}
	case ClickOnText:
		if strings.TrimSpace(v.Text) == "" {
			return ErrEmptyTarget
		}
	case OpenApp:
		if strings.TrimSpace(v.PackageID) == "" {
			return ErrEmptyPackage
		}
	case Click:
		if v.X < 0 || v.Y < 0 {
			return fmt.Errorf("%w: (%d,%d)", ErrNegativeCoordinate, v.X, v.Y)
		}
	}
	return nil
}

// Describe renders an action for logs and prompts, e.g. `Type("google.com")`.
func Describe(a Action) string {
	switch v := a.(type) {
	case Click:
		return fmt.Sprintf("Click(%d, %d)", v.X, v.Y)
	case ClickOnText:
		return fmt.Sprintf("ClickOnText(%q)", v.Text)
	case Scroll:
		return fmt.Sprintf("Scroll(%s)", v.Direction)
	case Type:
		return fmt.Sprintf("Type(%q)", v.Text)
	case Wait:
		return fmt.Sprintf("Wait(%d)", v.Milliseconds)
	case OpenApp:
		return fmt.Sprintf("OpenApp(%q)", v.PackageID)
	case SetAlarm:
		return fmt.Sprintf("SetAlarm(%02d:%02d)", v.Hour, v.Minute)
	case Complete:
		return fmt.Sprintf("Complete(%t, %q)", v.Success, v.Message)
	case nil:
		return "<nil>"
	default:
		return string(a.Kind())
	}
}
