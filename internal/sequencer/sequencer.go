// Package sequencer executes planned actions against a UI surface, one step
// at a time, containing failures at the step boundary.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BilalMagg/Auralia-sub000/api/schemas"
	"github.com/BilalMagg/Auralia-sub000/internal/action"
	"github.com/BilalMagg/Auralia-sub000/internal/appdir"
	"github.com/BilalMagg/Auralia-sub000/internal/config"
	"github.com/BilalMagg/Auralia-sub000/internal/metrics"
	"github.com/BilalMagg/Auralia-sub000/internal/resolver"
)

// Error codes attached to failed steps.
const (
	ErrCodeElementNotFound = "ELEMENT_NOT_FOUND"
	ErrCodeLaunchFailed    = "APP_LAUNCH_FAILED"
	ErrCodeSurface         = "SURFACE_ERROR"
	ErrCodeInvalidAction   = "INVALID_ACTION"
	ErrCodePanic           = "STEP_PANIC"
	ErrCodeCancelled       = "CANCELLED"
)

var (
	ErrLaunchFailed    = errors.New("no candidate package could be launched")
	ErrUnhandledAction = errors.New("unhandled action variant")
)

// Sleeper pauses for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the real Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// StepResult describes the outcome of one action.
type StepResult struct {
	Action    action.Action
	OK        bool
	ErrorCode string
	Err       error
	Duration  time.Duration
	// Available lists clickable labels when a ClickOnText target was missing.
	Available []string
}

// Summary renders the result for prompts and logs.
func (r StepResult) Summary() string {
	if r.OK {
		return action.Describe(r.Action) + " -> ok"
	}
	msg := action.Describe(r.Action) + " -> failed"
	if r.ErrorCode != "" {
		msg += " [" + r.ErrorCode + "]"
	}
	if r.Err != nil {
		msg += ": " + r.Err.Error()
	}
	if len(r.Available) > 0 {
		msg += fmt.Sprintf(" (clickable: %v)", r.Available)
	}
	return msg
}

// Sequencer runs actions strictly in order.
type Sequencer struct {
	logger   *zap.Logger
	surface  schemas.UISurface
	resolver *resolver.Resolver
	apps     *appdir.Directory
	cfg      config.SequencerConfig
	metrics  *metrics.Metrics
	sleep    Sleeper
}

// Option customizes a Sequencer.
type Option func(*Sequencer)

// WithMetrics reports step outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sequencer) { s.metrics = m }
}

// WithAppDirectory replaces the built-in app directory.
func WithAppDirectory(d *appdir.Directory) Option {
	return func(s *Sequencer) { s.apps = d }
}

// WithSleeper replaces the real clock, mainly for tests.
func WithSleeper(fn Sleeper) Option {
	return func(s *Sequencer) { s.sleep = fn }
}

// New creates a sequencer bound to a surface. A zero poll timeout or settle
// delay disables that wait; a zero poll interval or swipe duration takes its
// default.
func New(logger *zap.Logger, surface schemas.UISurface, cfg config.SequencerConfig, opts ...Option) *Sequencer {
	if cfg.AppPollInterval <= 0 {
		cfg.AppPollInterval = 250 * time.Millisecond
	}
	if cfg.SwipeDuration <= 0 {
		cfg.SwipeDuration = 300 * time.Millisecond
	}
	s := &Sequencer{
		logger:   logger.Named("sequencer"),
		surface:  surface,
		resolver: resolver.New(logger, surface, cfg.MaxListedElements),
		apps:     appdir.Default(),
		cfg:      cfg,
		sleep:    SleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Available reports whether the underlying surface can take input.
func (s *Sequencer) Available() bool {
	return s.surface != nil && s.surface.Available()
}

// Execute runs every action of seq in order and returns true only if all of
// them succeeded. A failed step never stops the sequence; cancellation of ctx
// is honored between steps.
func (s *Sequencer) Execute(ctx context.Context, seq action.Sequence) bool {
	s.logger.Info("Executing sequence.",
		zap.String("description", seq.Description),
		zap.Int("steps", seq.Len()))

	allOK := true
	for i, act := range seq.Actions {
		if i > 0 {
			if err := s.sleep(ctx, s.cfg.SettleDelay); err != nil {
				s.logger.Warn("Sequence cancelled between steps.", zap.Int("completed", i), zap.Int("remaining", seq.Len()-i))
				return false
			}
		}
		if err := ctx.Err(); err != nil {
			s.logger.Warn("Sequence cancelled before step.", zap.Int("step", i), zap.Error(err))
			return false
		}
		res := s.Step(ctx, act)
		if !res.OK {
			allOK = false
		}
	}
	s.logger.Info("Sequence finished.", zap.String("description", seq.Description), zap.Bool("success", allOK))
	return allOK
}

// ExecuteStep runs a single action and reports whether it succeeded.
func (s *Sequencer) ExecuteStep(ctx context.Context, act action.Action) bool {
	return s.Step(ctx, act).OK
}

// Step runs a single action. Errors and panics are converted into a failed
// result; they never escape.
func (s *Sequencer) Step(ctx context.Context, act action.Action) (res StepResult) {
	start := time.Now()
	res.Action = act

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Action panicked.", zap.String("action", action.Describe(act)), zap.Any("panic", r))
			res.OK = false
			res.ErrorCode = ErrCodePanic
			res.Err = fmt.Errorf("panic: %v", r)
		}
		res.Duration = time.Since(start)
		if act != nil {
			s.metrics.ObserveStep(string(act.Kind()), res.OK)
		}
	}()

	if err := action.Validate(act); err != nil {
		res.ErrorCode, res.Err = ErrCodeInvalidAction, err
		s.logger.Warn("Rejected invalid action.", zap.Error(err))
		return res
	}

	available, err := s.run(ctx, act)
	res.Available = available
	if err != nil {
		res.Err = err
		res.ErrorCode = classify(err)
		s.logger.Warn("Action failed.",
			zap.String("action", action.Describe(act)),
			zap.String("error_code", res.ErrorCode),
			zap.Error(err))
		return res
	}
	res.OK = true
	s.logger.Debug("Action succeeded.", zap.String("action", action.Describe(act)))
	return res
}

func classify(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrCodeCancelled
	case errors.Is(err, resolver.ErrNotFound):
		return ErrCodeElementNotFound
	case errors.Is(err, ErrLaunchFailed):
		return ErrCodeLaunchFailed
	case errors.Is(err, ErrUnhandledAction):
		return ErrCodeInvalidAction
	default:
		return ErrCodeSurface
	}
}

// run dispatches on the action variant. The switch covers the closed set.
func (s *Sequencer) run(ctx context.Context, act action.Action) ([]string, error) {
	switch a := act.(type) {
	case action.Click:
		return nil, s.surface.Tap(ctx, a.X, a.Y)
	case action.ClickOnText:
		return s.clickOnText(ctx, a.Text)
	case action.Scroll:
		return nil, s.scroll(ctx, a.Direction)
	case action.Type:
		return nil, s.surface.InputText(ctx, a.Text)
	case action.PressEnter:
		return nil, s.surface.GlobalAction(ctx, schemas.GlobalImeEnter)
	case action.Screenshot:
		return nil, s.surface.GlobalAction(ctx, schemas.GlobalScreenshot)
	case action.GoBack:
		return nil, s.surface.GlobalAction(ctx, schemas.GlobalBack)
	case action.GoHome:
		return nil, s.surface.GlobalAction(ctx, schemas.GlobalHome)
	case action.OpenNotifications:
		return nil, s.surface.GlobalAction(ctx, schemas.GlobalNotifications)
	case action.Wait:
		return nil, s.sleep(ctx, time.Duration(a.Milliseconds)*time.Millisecond)
	case action.OpenApp:
		return nil, s.openApp(ctx, a.PackageID)
	case action.SetAlarm:
		return nil, s.setAlarm(ctx, a.Hour, a.Minute)
	case action.Complete:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnhandledAction, act)
	}
}

func (s *Sequencer) clickOnText(ctx context.Context, text string) ([]string, error) {
	res := s.resolver.ClickOnText(ctx, text)
	if res.Activated {
		return nil, nil
	}
	return res.Available, res.Err
}

func (s *Sequencer) screenBounds(ctx context.Context) schemas.Rect {
	root, err := s.surface.CurrentTree(ctx)
	if err != nil || root == nil || root.Bounds.Empty() {
		return schemas.Rect{Right: 1080, Bottom: 2400}
	}
	return root.Bounds
}

// scroll swipes across the middle of the screen. The direction names where
// the viewport moves, so DOWN drags content upward.
func (s *Sequencer) scroll(ctx context.Context, dir action.Direction) error {
	b := s.screenBounds(ctx)
	c := b.Center()
	w, h := b.Width(), b.Height()
	var from, to schemas.Point
	switch dir {
	case action.Down:
		from, to = schemas.Point{X: c.X, Y: b.Top + h*7/10}, schemas.Point{X: c.X, Y: b.Top + h*3/10}
	case action.Up:
		from, to = schemas.Point{X: c.X, Y: b.Top + h*3/10}, schemas.Point{X: c.X, Y: b.Top + h*7/10}
	case action.Right:
		from, to = schemas.Point{X: b.Left + w*8/10, Y: c.Y}, schemas.Point{X: b.Left + w*2/10, Y: c.Y}
	case action.Left:
		from, to = schemas.Point{X: b.Left + w*2/10, Y: c.Y}, schemas.Point{X: b.Left + w*8/10, Y: c.Y}
	default:
		return fmt.Errorf("%w: %q", action.ErrBadDirection, dir)
	}
	return s.surface.Swipe(ctx, from, to, s.cfg.SwipeDuration)
}

// openApp launches the first package that accepts, waits for its window,
// then gives it time to settle.
func (s *Sequencer) openApp(ctx context.Context, id string) error {
	candidates := s.apps.Candidates(id)
	launched := ""
	for _, pkg := range candidates {
		if s.surface.LaunchApp(ctx, pkg) {
			launched = pkg
			break
		}
		s.logger.Debug("Launch attempt rejected.", zap.String("package", pkg))
	}
	if launched == "" {
		return fmt.Errorf("%w: %q (tried %v)", ErrLaunchFailed, id, candidates)
	}
	s.logger.Info("Application launched.", zap.String("requested", id), zap.String("package", launched))

	if !s.waitForWindow(ctx, launched) {
		s.logger.Warn("Application window did not appear before timeout.",
			zap.String("package", launched),
			zap.Duration("timeout", s.cfg.AppPollTimeout))
	}
	return s.sleep(ctx, s.cfg.AppLaunchSettle)
}

// waitForWindow polls the tree until a node of pkg is visible.
func (s *Sequencer) waitForWindow(ctx context.Context, pkg string) bool {
	if s.cfg.AppPollTimeout <= 0 {
		return true
	}
	attempts := int(s.cfg.AppPollTimeout / s.cfg.AppPollInterval)
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		if root, err := s.surface.CurrentTree(ctx); err == nil && showsPackage(root, pkg) {
			return true
		}
		if err := s.sleep(ctx, s.cfg.AppPollInterval); err != nil {
			return false
		}
	}
	return false
}

func showsPackage(root *schemas.UINode, pkg string) bool {
	found := false
	root.Walk(func(n *schemas.UINode) bool {
		if n.Package == pkg {
			found = true
			return false
		}
		return true
	})
	return found
}

// setAlarm asks the platform directly and only navigates the clock UI when
// that is rejected.
func (s *Sequencer) setAlarm(ctx context.Context, hour, minute int) error {
	if s.surface.ScheduleAlarm(ctx, hour, minute) {
		s.logger.Info("Alarm scheduled directly.", zap.Int("hour", hour), zap.Int("minute", minute))
		return nil
	}
	s.logger.Info("Direct alarm scheduling rejected, navigating the clock app.")
	if !s.Execute(ctx, AlarmFallback(hour, minute)) {
		return fmt.Errorf("alarm fallback navigation failed for %02d:%02d", hour, minute)
	}
	return nil
}

// AlarmFallback is the tap-based route through the clock app.
func AlarmFallback(hour, minute int) action.Sequence {
	return action.NewSequence(fmt.Sprintf("set alarm %02d:%02d via clock app", hour, minute),
		action.OpenApp{PackageID: "clock"},
		action.ClickOnText{Text: "Alarm"},
		action.ClickOnText{Text: "Add alarm"},
		action.Type{Text: fmt.Sprintf("%02d:%02d", hour, minute)},
		action.ClickOnText{Text: "OK"},
	)
}
