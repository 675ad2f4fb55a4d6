// Package interpreter turns a spoken or typed command into a plan of UI
// actions. Cheap local layers are tried before the planner model:
// cache, instant patterns, heuristics, then the planner under a hard timeout.
package interpreter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/BilalMagg/Auralia-sub000/api/schemas"
	"github.com/BilalMagg/Auralia-sub000/internal/action"
	"github.com/BilalMagg/Auralia-sub000/internal/appdir"
	"github.com/BilalMagg/Auralia-sub000/internal/config"
	"github.com/BilalMagg/Auralia-sub000/internal/metrics"
	"github.com/BilalMagg/Auralia-sub000/internal/parser"
	"github.com/BilalMagg/Auralia-sub000/internal/prompts"
)

var (
	ErrPlannerTimeout = errors.New("planner timed out")
	ErrNoPlanner      = errors.New("no planner configured")
	ErrEmptyCommand   = errors.New("empty command")
)

// Interpreter resolves commands into CommandResults. It is safe for
// concurrent use.
type Interpreter struct {
	logger  *zap.Logger
	planner schemas.LLMClient
	parser  *parser.Parser
	apps    *appdir.Directory
	cfg     config.InterpreterConfig
	cache   *resultCache
	group   singleflight.Group
	metrics *metrics.Metrics

	mu     sync.Mutex
	recent []prompts.Exchange
}

// Option customizes an Interpreter.
type Option func(*Interpreter)

// WithMetrics reports layer hits and planner latency.
func WithMetrics(m *metrics.Metrics) Option {
	return func(i *Interpreter) { i.metrics = m }
}

// WithAppDirectory replaces the built-in app directory.
func WithAppDirectory(d *appdir.Directory) Option {
	return func(i *Interpreter) { i.apps = d }
}

// New creates an interpreter. planner may be nil, in which case commands not
// handled locally resolve to the fallback plan.
func New(logger *zap.Logger, planner schemas.LLMClient, cfg config.InterpreterConfig, opts ...Option) *Interpreter {
	if cfg.PlannerTimeout <= 0 {
		cfg.PlannerTimeout = 4 * time.Second
	}
	if cfg.ShortPromptMaxRunes <= 0 {
		cfg.ShortPromptMaxRunes = 40
	}
	i := &Interpreter{
		logger:  logger.Named("interpreter"),
		planner: planner,
		parser:  parser.New(logger),
		apps:    appdir.Default(),
		cfg:     cfg,
		cache:   newResultCache(cfg.CacheTTL),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Normalize is the cache identity of a command: lower case, trimmed, inner
// whitespace collapsed and trailing sentence punctuation removed.
func Normalize(command string) string {
	s := strings.Join(strings.Fields(strings.ToLower(command)), " ")
	return strings.TrimSpace(strings.TrimRight(s, ".!?,;"))
}

// Interpret resolves a command. It always returns a result; failures are
// reported through Success and Message.
func (i *Interpreter) Interpret(ctx context.Context, command string) action.CommandResult {
	key := Normalize(command)
	if key == "" {
		return action.CommandResult{Success: false, Message: ErrEmptyCommand.Error(), Source: action.SourceFallback}
	}

	res, hit := i.cache.Get(key)
	if hit {
		res.Source = action.SourceCache
		i.logger.Debug("Cache hit.", zap.String("command", key))
	} else {
		// One resolution per key at a time. The shared call must not be
		// cut short by one caller going away, so it is detached from ctx
		// and bounded by the planner timeout instead.
		v, _, shared := i.group.Do(key, func() (interface{}, error) {
			if cached, ok := i.cache.Get(key); ok {
				cached.Source = action.SourceCache
				return cached, nil
			}
			r := i.resolve(context.WithoutCancel(ctx), key)
			i.store(key, r)
			return r, nil
		})
		res = v.(action.CommandResult)
		res.Actions = res.Actions.Clone()
		if shared {
			i.logger.Debug("Joined in-flight interpretation.", zap.String("command", key))
		}
	}

	i.remember(key, res)
	i.metrics.ObserveInterpretation(string(res.Source))
	i.logger.Info("Command interpreted.",
		zap.String("command", key),
		zap.String("source", string(res.Source)),
		zap.Bool("success", res.Success),
		zap.Stringer("plan", res.Actions))
	return res
}

func (i *Interpreter) resolve(ctx context.Context, key string) action.CommandResult {
	if seq, name, ok := matchPattern(key); ok {
		i.logger.Debug("Instant pattern matched.", zap.String("pattern", name))
		return action.CommandResult{Success: true, Message: seq.Description, Actions: seq, Source: action.SourcePattern}
	}
	if seq, name, ok := matchHeuristic(key, i.apps); ok {
		i.logger.Debug("Heuristic matched.", zap.String("heuristic", name))
		return action.CommandResult{Success: true, Message: seq.Description, Actions: seq, Source: action.SourceHeuristic}
	}

	res, err := i.plan(ctx, key)
	if err != nil {
		i.logger.Warn("Planner unavailable, using fallback plan.", zap.String("command", key), zap.Error(err))
		return action.FallbackResult(fmt.Sprintf("could not interpret %q: %v", key, err))
	}
	return res
}

type plannerReply struct {
	text string
	err  error
}

// plan asks the planner model, giving up after the configured timeout even if
// the client ignores cancellation.
func (i *Interpreter) plan(ctx context.Context, key string) (action.CommandResult, error) {
	if i.planner == nil {
		return action.CommandResult{}, ErrNoPlanner
	}
	req := i.buildRequest(key)

	pctx, cancel := context.WithTimeout(ctx, i.cfg.PlannerTimeout)
	defer cancel()

	start := time.Now()
	replies := make(chan plannerReply, 1)
	go func() {
		text, err := i.planner.Generate(pctx, req)
		replies <- plannerReply{text: text, err: err}
	}()

	select {
	case r := <-replies:
		i.metrics.ObservePlanner(time.Since(start))
		if r.err != nil {
			if errors.Is(r.err, context.DeadlineExceeded) {
				return action.CommandResult{}, fmt.Errorf("%w after %s: %w", ErrPlannerTimeout, i.cfg.PlannerTimeout, r.err)
			}
			return action.CommandResult{}, fmt.Errorf("planner request failed: %w", r.err)
		}
		res, mode := i.parser.ParseWithMode(r.text)
		i.logger.Debug("Planner response parsed.", zap.String("mode", string(mode)), zap.Duration("latency", time.Since(start)))
		return res, nil
	case <-pctx.Done():
		i.metrics.ObservePlanner(time.Since(start))
		return action.CommandResult{}, fmt.Errorf("%w after %s", ErrPlannerTimeout, i.cfg.PlannerTimeout)
	}
}

func (i *Interpreter) buildRequest(key string) schemas.GenerationRequest {
	recent := i.recentContext()
	req := schemas.GenerationRequest{
		SystemPrompt: prompts.CommandSystemPrompt(),
		Options:      schemas.GenerationOptions{ForceJSONFormat: true, Temperature: 0.1},
	}
	if utf8.RuneCountInString(key) <= i.cfg.ShortPromptMaxRunes {
		req.UserPrompt = prompts.ShortCommandPrompt(key, recent)
		req.Tier = schemas.TierFast
	} else {
		req.UserPrompt = prompts.DetailedCommandPrompt(key, recent)
		req.Tier = schemas.TierPowerful
	}
	return req
}

func (i *Interpreter) store(key string, res action.CommandResult) {
	if res.Source == action.SourceFallback {
		if !i.cfg.CacheFallbacks {
			return
		}
		i.logger.Warn("Caching fallback plan; later identical commands will not reach the planner.",
			zap.String("command", key))
	}
	i.cache.Put(key, res)
	i.metrics.SetCacheEntries(i.cache.Len())
}

func (i *Interpreter) remember(key string, res action.CommandResult) {
	if i.cfg.ContextWindow <= 0 {
		return
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.recent = append(i.recent, prompts.Exchange{Command: key, Plan: res.Actions.String(), Success: res.Success})
	if over := len(i.recent) - i.cfg.ContextWindow; over > 0 {
		i.recent = append(i.recent[:0:0], i.recent[over:]...)
	}
}

func (i *Interpreter) recentContext() []prompts.Exchange {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]prompts.Exchange(nil), i.recent...)
}

// Forget evicts the cached result for a command and reports whether there was
// one.
func (i *Interpreter) Forget(command string) bool {
	ok := i.cache.Delete(Normalize(command))
	i.metrics.SetCacheEntries(i.cache.Len())
	return ok
}

// Flush empties the cache.
func (i *Interpreter) Flush() {
	i.cache.Flush()
	i.metrics.SetCacheEntries(0)
}

// CacheLen reports the number of cached results.
func (i *Interpreter) CacheLen() int {
	return i.cache.Len()
}
