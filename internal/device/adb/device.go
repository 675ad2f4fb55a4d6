// Package adb drives an Android device through the adb command line tool.
// It provides the UI surface, screen capture and a tree-text recognizer used
// by the sequencer and the agent.
package adb

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BilalMagg/Auralia-sub000/api/schemas"
	"github.com/BilalMagg/Auralia-sub000/internal/config"
)

// Android key codes used for global actions.
const (
	keycodeHome      = 3
	keycodeBack      = 4
	keycodeEnter     = 66
	keycodeSysRq     = 120 // Takes a screenshot.
	keycodeAppSwitch = 187
)

const (
	defaultDumpPath     = "/sdcard/auralia_window.xml"
	availabilityTimeout = 3 * time.Second
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

// Device is a schemas.UISurface and schemas.ScreenCapturer backed by adb.
type Device struct {
	runner   Runner
	logger   *zap.Logger
	dumpPath string
}

var (
	_ schemas.UISurface      = (*Device)(nil)
	_ schemas.ScreenCapturer = (*Device)(nil)
)

type Option func(*Device)

// WithRunner replaces the adb process runner.
func WithRunner(r Runner) Option {
	return func(d *Device) {
		d.runner = r
	}
}

// New creates a Device for the configured adb binary and serial.
func New(cfg config.DeviceConfig, logger *zap.Logger, opts ...Option) *Device {
	path := cfg.ADBPath
	if path == "" {
		path = "adb"
	}
	dumpPath := cfg.DumpPath
	if dumpPath == "" {
		dumpPath = defaultDumpPath
	}

	d := &Device{
		runner:   &execRunner{path: path, serial: cfg.Serial, timeout: cfg.CommandTimeout},
		logger:   logger.Named("adb").With(zap.String("serial", cfg.Serial)),
		dumpPath: dumpPath,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Device) shell(ctx context.Context, args ...string) ([]byte, error) {
	return d.runner.Run(ctx, append([]string{"shell"}, args...)...)
}

// Available reports whether adb sees the device in the "device" state.
func (d *Device) Available() bool {
	ctx, cancel := context.WithTimeout(context.Background(), availabilityTimeout)
	defer cancel()

	out, err := d.runner.Run(ctx, "get-state")
	if err != nil {
		d.logger.Debug("Device not available.", zap.Error(err))
		return false
	}
	return strings.TrimSpace(string(out)) == "device"
}

// CurrentTree dumps the active window hierarchy.
func (d *Device) CurrentTree(ctx context.Context) (*schemas.UINode, error) {
	cmd := fmt.Sprintf("uiautomator dump %s && cat %s", d.dumpPath, d.dumpPath)
	out, err := d.shell(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to dump window hierarchy: %w", err)
	}
	return parseHierarchy(out)
}

func (d *Device) Tap(ctx context.Context, x, y int) error {
	_, err := d.shell(ctx, "input", "tap", strconv.Itoa(x), strconv.Itoa(y))
	return err
}

// Activate taps the node's center; adb has no direct click on a view.
func (d *Device) Activate(ctx context.Context, node *schemas.UINode) error {
	if node == nil || node.Bounds.Empty() {
		return fmt.Errorf("node has no on-screen bounds")
	}
	c := node.Bounds.Center()
	return d.Tap(ctx, c.X, c.Y)
}

func (d *Device) Swipe(ctx context.Context, from, to schemas.Point, dur time.Duration) error {
	_, err := d.shell(ctx, "input", "swipe",
		strconv.Itoa(from.X), strconv.Itoa(from.Y),
		strconv.Itoa(to.X), strconv.Itoa(to.Y),
		strconv.FormatInt(dur.Milliseconds(), 10))
	return err
}

// InputText types into the focused field.
func (d *Device) InputText(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	_, err := d.shell(ctx, "input", "text", escapeInputText(text))
	return err
}

func (d *Device) GlobalAction(ctx context.Context, kind schemas.GlobalAction) error {
	var err error
	switch kind {
	case schemas.GlobalBack:
		err = d.keyevent(ctx, keycodeBack)
	case schemas.GlobalHome:
		err = d.keyevent(ctx, keycodeHome)
	case schemas.GlobalRecents:
		err = d.keyevent(ctx, keycodeAppSwitch)
	case schemas.GlobalImeEnter:
		err = d.keyevent(ctx, keycodeEnter)
	case schemas.GlobalScreenshot:
		err = d.keyevent(ctx, keycodeSysRq)
	case schemas.GlobalNotifications:
		_, err = d.shell(ctx, "cmd", "statusbar", "expand-notifications")
	default:
		return fmt.Errorf("unsupported global action %q", kind)
	}
	return err
}

func (d *Device) keyevent(ctx context.Context, code int) error {
	_, err := d.shell(ctx, "input", "keyevent", strconv.Itoa(code))
	return err
}

// LaunchApp starts the package's launcher activity through monkey.
func (d *Device) LaunchApp(ctx context.Context, packageID string) bool {
	out, err := d.shell(ctx, "monkey", "-p", packageID, "-c", "android.intent.category.LAUNCHER", "1")
	if err != nil {
		d.logger.Debug("Launch failed.", zap.String("package", packageID), zap.Error(err))
		return false
	}
	text := string(out)
	if strings.Contains(text, "No activities found") || strings.Contains(text, "monkey aborted") {
		d.logger.Debug("Package has no launcher activity.", zap.String("package", packageID))
		return false
	}
	return true
}

// ScheduleAlarm fires the SET_ALARM intent with the clock UI skipped.
func (d *Device) ScheduleAlarm(ctx context.Context, hour, minute int) bool {
	out, err := d.shell(ctx, "am", "start",
		"-a", "android.intent.action.SET_ALARM",
		"--ei", "android.intent.extra.alarm.HOUR", strconv.Itoa(hour),
		"--ei", "android.intent.extra.alarm.MINUTES", strconv.Itoa(minute),
		"--ez", "android.intent.extra.alarm.SKIP_UI", "true")
	if err != nil {
		d.logger.Debug("Alarm intent failed.", zap.Error(err))
		return false
	}
	return !strings.Contains(string(out), "Error")
}

// Capture returns a PNG screenshot.
func (d *Device) Capture(ctx context.Context) ([]byte, error) {
	out, err := d.runner.Run(ctx, "exec-out", "screencap", "-p")
	if err != nil {
		return nil, fmt.Errorf("failed to capture screen: %w", err)
	}
	if !bytes.HasPrefix(out, pngMagic) {
		return nil, fmt.Errorf("screencap returned %d bytes that are not a PNG image", len(out))
	}
	return out, nil
}

// escapeInputText prepares text for "input text", which runs through the
// device shell and treats %s as a space.
func escapeInputText(text string) string {
	var b strings.Builder
	for _, r := range text {
		switch r {
		case ' ':
			b.WriteString("%s")
		case '\\', '"', '\'', '`', '$', '&', '|', ';', '<', '>', '(', ')', '*', '?', '~', '#', '!', '[', ']', '{', '}', '%':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
