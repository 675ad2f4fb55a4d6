package schemas

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNoTaskContext is returned by a TaskContextStore when it is empty.
var ErrNoTaskContext = errors.New("no task context stored")

// Point is a screen coordinate in device pixels.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Rect is a bounding box in device pixels. Right and Bottom are exclusive.
type Rect struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Point {
	return Point{X: (r.Left + r.Right) / 2, Y: (r.Top + r.Bottom) / 2}
}

// Width of the rectangle, never negative.
func (r Rect) Width() int {
	if r.Right < r.Left {
		return 0
	}
	return r.Right - r.Left
}

// Height of the rectangle, never negative.
func (r Rect) Height() int {
	if r.Bottom < r.Top {
		return 0
	}
	return r.Bottom - r.Top
}

// Empty reports whether the rectangle covers no pixels.
func (r Rect) Empty() bool {
	return r.Width() == 0 || r.Height() == 0
}

// UINode is a read-only snapshot of one element of the accessibility tree.
// Snapshots belong to the surface that produced them and go stale as soon as
// any action runs; callers re-query instead of holding on to them.
type UINode struct {
	Text               string    `json:"text,omitempty"`
	ContentDescription string    `json:"content_desc,omitempty"`
	ResourceID         string    `json:"resource_id,omitempty"`
	ClassName          string    `json:"class,omitempty"`
	Package            string    `json:"package,omitempty"`
	Bounds             Rect      `json:"bounds"`
	Clickable          bool      `json:"clickable"`
	Children           []*UINode `json:"children,omitempty"`
}

// Label is the human readable name of the node: its text, else its description.
func (n *UINode) Label() string {
	if n == nil {
		return ""
	}
	if n.Text != "" {
		return n.Text
	}
	return n.ContentDescription
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// stops the walk.
func (n *UINode) Walk(fn func(*UINode) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}
	for _, child := range n.Children {
		if !child.Walk(fn) {
			return false
		}
	}
	return true
}

// VisibleText lists the labels of the tree in reading order, one per line,
// without consecutive duplicates.
func (n *UINode) VisibleText() string {
	var lines []string
	n.Walk(func(node *UINode) bool {
		label := strings.TrimSpace(node.Label())
		if label != "" && (len(lines) == 0 || lines[len(lines)-1] != label) {
			lines = append(lines, label)
		}
		return true
	})
	return strings.Join(lines, "\n")
}

// GlobalAction is a system level navigation gesture.
type GlobalAction string

const (
	GlobalBack          GlobalAction = "back"
	GlobalHome          GlobalAction = "home"
	GlobalRecents       GlobalAction = "recents"
	GlobalNotifications GlobalAction = "notifications"
	GlobalScreenshot    GlobalAction = "screenshot"
	GlobalImeEnter      GlobalAction = "ime_enter" // Submits the focused input field.
)

// UISurface is the device UI that actions are performed against. It is owned
// by the platform; the engine only ever borrows it for one operation at a time.
//
//go:generate mockery --name UISurface --output ../../internal/mocks --outpkg mocks
type UISurface interface {
	// Available reports whether the surface is connected and can take input.
	Available() bool
	// CurrentTree returns a fresh snapshot of the active window.
	CurrentTree(ctx context.Context) (*UINode, error)
	// Tap performs a single tap at the given coordinate.
	Tap(ctx context.Context, x, y int) error
	// Activate invokes the node's native click action.
	Activate(ctx context.Context, node *UINode) error
	// Swipe drags from one point to another over the given duration.
	Swipe(ctx context.Context, from, to Point, d time.Duration) error
	// InputText enters text into the focused field.
	InputText(ctx context.Context, text string) error
	GlobalAction(ctx context.Context, kind GlobalAction) error
	// LaunchApp starts the application with the given package id.
	LaunchApp(ctx context.Context, packageID string) bool
	// ScheduleAlarm asks the platform clock to set an alarm directly.
	ScheduleAlarm(ctx context.Context, hour, minute int) bool
}

// ScreenCapturer grabs an encoded image (PNG) of the current screen.
type ScreenCapturer interface {
	Capture(ctx context.Context) ([]byte, error)
}
