// Package agent runs the iterative observe, decide, act loop: each turn the
// planner sees the task, the screen text and the recent actions, and picks
// exactly one action to execute.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BilalMagg/Auralia-sub000/api/schemas"
	"github.com/BilalMagg/Auralia-sub000/internal/action"
	"github.com/BilalMagg/Auralia-sub000/internal/config"
	"github.com/BilalMagg/Auralia-sub000/internal/metrics"
	"github.com/BilalMagg/Auralia-sub000/internal/parser"
	"github.com/BilalMagg/Auralia-sub000/internal/prompts"
	"github.com/BilalMagg/Auralia-sub000/internal/sequencer"
)

// Agent drives one task at a time against a registered executor.
type Agent struct {
	logger   *zap.Logger
	planner  schemas.LLMClient
	parser   *parser.Parser
	cfg      config.AgentConfig
	store    schemas.TaskContextStore
	capturer schemas.ScreenCapturer
	ocr      schemas.OCRService
	tree     TreeSource
	metrics  *metrics.Metrics
	sleep    sequencer.Sleeper
	now      func() time.Time

	stop atomic.Bool

	mu       sync.Mutex
	executor Executor
	state    State
	done     chan struct{}
	last     TaskResult
}

// Option customizes an Agent.
type Option func(*Agent)

// WithTaskStore persists task progress.
func WithTaskStore(s schemas.TaskContextStore) Option {
	return func(a *Agent) { a.store = s }
}

// WithScreenReader observes the screen by capturing it and running OCR.
func WithScreenReader(c schemas.ScreenCapturer, ocr schemas.OCRService) Option {
	return func(a *Agent) { a.capturer, a.ocr = c, ocr }
}

// WithTreeSource uses the UI tree text when OCR is absent or finds nothing.
func WithTreeSource(t TreeSource) Option {
	return func(a *Agent) { a.tree = t }
}

// WithMetrics reports iteration counts and task outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Agent) { a.metrics = m }
}

// WithSleeper replaces the real clock between iterations.
func WithSleeper(fn sequencer.Sleeper) Option {
	return func(a *Agent) { a.sleep = fn }
}

// New creates an idle agent. An executor must be registered before tasks can
// start.
func New(logger *zap.Logger, planner schemas.LLMClient, cfg config.AgentConfig, opts ...Option) *Agent {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 20
	}
	if cfg.PlannerTimeout <= 0 {
		cfg.PlannerTimeout = 30 * time.Second
	}
	a := &Agent{
		logger:  logger.Named("agent"),
		planner: planner,
		parser:  parser.New(logger),
		cfg:     cfg,
		sleep:   sequencer.SleepContext,
		now:     time.Now,
		state:   StateIdle,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RegisterExecutor sets the executor used by subsequent tasks.
func (a *Agent) RegisterExecutor(e Executor) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.executor = e
}

// State reports the current lifecycle phase.
func (a *Agent) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// StartTask begins a task in the background. It returns false, after logging
// the reason, when the agent is busy, has no usable executor, or the task is
// empty.
func (a *Agent) StartTask(ctx context.Context, req TaskRequest) bool {
	exec, done, err := a.begin(req)
	if err != nil {
		a.logger.Warn("Task not started.", zap.String("task", req.Task), zap.Error(err))
		return false
	}
	go func() {
		a.finish(a.execute(ctx, exec, req), done)
	}()
	return true
}

// Run executes a task on the calling goroutine and returns its outcome.
func (a *Agent) Run(ctx context.Context, req TaskRequest) TaskResult {
	exec, done, err := a.begin(req)
	if err != nil {
		a.logger.Warn("Task not started.", zap.String("task", req.Task), zap.Error(err))
		return TaskResult{Task: req.Task, Success: false, Message: err.Error()}
	}
	res := a.execute(ctx, exec, req)
	a.finish(res, done)
	return res
}

// Wait blocks until the current or most recent task has finished.
func (a *Agent) Wait(ctx context.Context) (TaskResult, error) {
	a.mu.Lock()
	done := a.done
	a.mu.Unlock()
	if done == nil {
		return TaskResult{}, ErrNoTask
	}
	select {
	case <-done:
		a.mu.Lock()
		defer a.mu.Unlock()
		return a.last, nil
	case <-ctx.Done():
		return TaskResult{}, ctx.Err()
	}
}

// StopTask asks the running task to end. The flag is checked between
// iterations, so the action in progress completes first.
func (a *Agent) StopTask() {
	if a.State() != StateRunning {
		return
	}
	a.logger.Info("Stop requested.")
	a.stop.Store(true)
}

// Resume restarts the task recorded in the task store from its stored step
// index. It returns false when there is nothing to resume or the task cannot
// start.
func (a *Agent) Resume(ctx context.Context) bool {
	if a.store == nil {
		a.logger.Warn("Resume requested without a task store.")
		return false
	}
	tc, err := a.store.Get(ctx)
	if err != nil {
		if errors.Is(err, schemas.ErrNoTaskContext) {
			a.logger.Info("No task to resume.")
		} else {
			a.logger.Warn("Failed to load task context.", zap.Error(err))
		}
		return false
	}
	a.logger.Info("Resuming task.", zap.String("task_id", tc.TaskID), zap.Int("step", tc.StepIndex))
	return a.StartTask(ctx, TaskRequest{
		ID:        tc.TaskID,
		Task:      tc.OriginalCommand,
		TaskType:  tc.TaskType,
		StartStep: tc.StepIndex,
	})
}

func (a *Agent) begin(req TaskRequest) (Executor, chan struct{}, error) {
	if strings.TrimSpace(req.Task) == "" {
		return nil, nil, ErrEmptyTask
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	switch {
	case a.state == StateRunning:
		return nil, nil, ErrAlreadyRunning
	case a.executor == nil:
		return nil, nil, ErrNoExecutor
	case !a.executor.Available():
		return nil, nil, ErrExecutorUnavailable
	}
	a.state = StateRunning
	a.stop.Store(false)
	a.done = make(chan struct{})
	return a.executor, a.done, nil
}

func (a *Agent) finish(res TaskResult, done chan struct{}) {
	a.mu.Lock()
	a.last = res
	if res.Success || res.Message == MsgStopped {
		a.state = StateIdle
	} else {
		a.state = StateFailed
	}
	a.mu.Unlock()
	a.metrics.ObserveTask(res.Iterations, res.Success)
	close(done)
}

// execute is the task loop. It never panics. The stored task context is
// cleared when the task ends, unless ctx was cancelled first: an interrupted
// task stays resumable.
func (a *Agent) execute(ctx context.Context, exec Executor, req TaskRequest) (res TaskResult) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.TaskType == "" {
		req.TaskType = DefaultTaskType
	}
	logger := a.logger.With(zap.String("task_id", req.ID))
	res = TaskResult{TaskID: req.ID, Task: req.Task, StartedAt: a.now()}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Task loop panicked.", zap.Any("panic", r))
			res.Success = false
			res.Message = fmt.Sprintf("internal error: %v", r)
		}
		if res.Message == MsgCancelled {
			logger.Info("Task interrupted, keeping its context for resume.")
		} else {
			a.clearContext(ctx, logger)
		}
		res.FinishedAt = a.now()
		res.Duration = res.FinishedAt.Sub(res.StartedAt)
		logger.Info("Task finished.",
			zap.Bool("success", res.Success),
			zap.String("message", res.Message),
			zap.Int("iterations", res.Iterations))
	}()

	logger.Info("Task started.", zap.String("task", req.Task), zap.Int("start_step", req.StartStep))
	tc := schemas.TaskContext{
		TaskID:          req.ID,
		TaskType:        req.TaskType,
		OriginalCommand: req.Task,
		StepIndex:       req.StartStep,
	}
	a.saveContext(ctx, &tc, logger)

	var (
		screen     string
		haveScreen bool
	)
	for iter := req.StartStep + 1; iter <= a.cfg.MaxIterations; iter++ {
		if a.stop.Load() {
			res.Message = MsgStopped
			return res
		}
		if ctx.Err() != nil {
			res.Message = MsgCancelled
			return res
		}

		if !haveScreen {
			screen = a.observe(ctx, logger)
		}
		history := a.window(res.History)

		resp, err := a.decide(ctx, req.Task, screen, history, iter)
		if err != nil && ctx.Err() != nil {
			res.Message = MsgCancelled
			return res
		}
		if err != nil {
			logger.Error("Planner failed, ending task.", zap.Int("iteration", iter), zap.Error(err))
			res.Message = fmt.Sprintf("planner failed: %v", err)
			return res
		}

		out := exec.Step(ctx, resp.Action)
		res.Iterations++
		res.History = append(res.History, Step{
			Iteration:  iter,
			Action:     resp.Action,
			Reasoning:  resp.Reasoning,
			Confidence: resp.Confidence,
			OK:         out.OK,
			ErrorCode:  out.ErrorCode,
			Summary:    out.Summary(),
		})
		logger.Debug("Iteration complete.",
			zap.Int("iteration", iter),
			zap.String("action", action.Describe(resp.Action)),
			zap.Bool("ok", out.OK),
			zap.String("reasoning", resp.Reasoning))

		tc.StepIndex = iter
		a.saveContext(ctx, &tc, logger)

		if c, ok := resp.Action.(action.Complete); ok {
			res.Success = c.Success
			res.Message = c.Message
			if res.Message == "" {
				res.Message = "task complete"
			}
			return res
		}

		_, screenshot := resp.Action.(action.Screenshot)
		haveScreen = screenshot || resp.RequiresScreenshot
		if haveScreen {
			screen = a.observe(ctx, logger)
		}

		if err := a.sleep(ctx, a.cfg.IterationDelay); err != nil {
			res.Message = MsgCancelled
			return res
		}
	}
	res.Message = MsgMaxIterations
	return res
}

// window returns the summaries of the most recent steps.
func (a *Agent) window(history []Step) []string {
	n := a.cfg.HistoryWindow
	if n <= 0 || n > len(history) {
		n = len(history)
	}
	out := make([]string, 0, n)
	for _, s := range history[len(history)-n:] {
		out = append(out, s.Summary)
	}
	return out
}

func (a *Agent) decide(ctx context.Context, task, screen string, history []string, iter int) (action.ModelResponse, error) {
	if a.planner == nil {
		return action.ModelResponse{}, errors.New("no planner configured")
	}
	pctx, cancel := context.WithTimeout(ctx, a.cfg.PlannerTimeout)
	defer cancel()

	raw, err := a.planner.Generate(pctx, schemas.GenerationRequest{
		SystemPrompt: prompts.AgentSystemPrompt(),
		UserPrompt:   prompts.AgentTurnPrompt(task, screen, history, iter, a.cfg.MaxIterations),
		Tier:         schemas.TierFast,
		Options:      schemas.GenerationOptions{ForceJSONFormat: true, Temperature: 0.2},
	})
	if err != nil {
		return action.ModelResponse{}, fmt.Errorf("llm generation failed: %w", err)
	}
	return a.parser.ParseModelResponse(raw)
}

func (a *Agent) saveContext(ctx context.Context, tc *schemas.TaskContext, logger *zap.Logger) {
	if a.store == nil {
		return
	}
	tc.UpdatedAt = a.now().UTC()
	if err := a.store.Set(ctx, *tc); err != nil {
		logger.Warn("Failed to persist task context.", zap.Int("step", tc.StepIndex), zap.Error(err))
	}
}

func (a *Agent) clearContext(ctx context.Context, logger *zap.Logger) {
	if a.store == nil {
		return
	}
	if err := a.store.Clear(ctx); err != nil {
		logger.Warn("Failed to clear task context.", zap.Error(err))
	}
}
