package interpreter

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/BilalMagg/Auralia-sub000/api/schemas"
	"github.com/BilalMagg/Auralia-sub000/internal/action"
	"github.com/BilalMagg/Auralia-sub000/internal/appdir"
	"github.com/BilalMagg/Auralia-sub000/internal/config"
	"github.com/BilalMagg/Auralia-sub000/internal/metrics"
	"github.com/BilalMagg/Auralia-sub000/internal/mocks"
)

func testConfig() config.InterpreterConfig {
	return config.InterpreterConfig{
		PlannerTimeout:      time.Second,
		ShortPromptMaxRunes: 40,
		CacheFallbacks:      true,
		ContextWindow:       3,
	}
}

func newTestInterpreter(t *testing.T, planner schemas.LLMClient, cfg config.InterpreterConfig, opts ...Option) (*Interpreter, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	return New(zap.New(core), planner, cfg, opts...), logs
}

func assertPlan(t *testing.T, want []action.Action, got action.Sequence) {
	t.Helper()
	if diff := cmp.Diff(want, got.Actions); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}
}

const wifiPlan = `{"success": true, "message": "turning on wifi", "actions": [
	{"type": "GoHome"},
	{"type": "OpenApp", "packageId": "com.android.settings"},
	{"type": "ClickOnText", "text": "Network & internet"}
]}`

func TestNormalize(t *testing.T) {
	assert.Equal(t, "search google", Normalize("  Search   GOOGLE.  "))
	assert.Equal(t, "open example.com", Normalize("open example.com"))
	assert.Equal(t, "", Normalize(" \t "))
}

func TestInterpret_SearchGoogle(t *testing.T) {
	planner := new(mocks.MockLLMClient)
	in, _ := newTestInterpreter(t, planner, testConfig())

	res := in.Interpret(context.Background(), "search google")

	require.True(t, res.Success)
	assert.Equal(t, action.SourceHeuristic, res.Source)
	assertPlan(t, []action.Action{
		action.GoHome{},
		action.Wait{Milliseconds: 300},
		action.OpenApp{PackageID: "browser"},
		action.Wait{Milliseconds: 2000},
		action.ClickOnText{Text: "Search or type URL"},
		action.Wait{Milliseconds: 500},
		action.Type{Text: "google.com"},
		action.Wait{Milliseconds: 300},
		action.PressEnter{},
	}, res.Actions)
	planner.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestInterpret_PatternsBeforeHeuristics(t *testing.T) {
	in, _ := newTestInterpreter(t, nil, testConfig())

	res := in.Interpret(context.Background(), "Open notifications")
	assert.Equal(t, action.SourcePattern, res.Source)
	assertPlan(t, []action.Action{action.OpenNotifications{}}, res.Actions)

	res = in.Interpret(context.Background(), "please take a screenshot")
	assert.Equal(t, action.SourcePattern, res.Source)
	assertPlan(t, []action.Action{action.Screenshot{}}, res.Actions)
}

func TestInterpret_LocalLayers(t *testing.T) {
	browse := func(text string) []action.Action {
		return browseTo("", text).Actions
	}
	tests := []struct {
		command string
		source  action.Source
		want    []action.Action
	}{
		{"go home", action.SourcePattern, []action.Action{action.GoHome{}}},
		{"back", action.SourcePattern, []action.Action{action.GoBack{}}},
		{"scroll down please", action.SourcePattern, []action.Action{action.Scroll{Direction: action.Down}}},
		{"scroll left", action.SourcePattern, []action.Action{action.Scroll{Direction: action.Left}}},
		{"press enter", action.SourcePattern, []action.Action{action.PressEnter{}}},
		{"set an alarm for 7:30 pm", action.SourceHeuristic, []action.Action{action.SetAlarm{Hour: 19, Minute: 30}}},
		{"set alarm at 6", action.SourceHeuristic, []action.Action{action.SetAlarm{Hour: 6}}},
		{"wake me up at 12 a.m.", action.SourceHeuristic, []action.Action{action.SetAlarm{Hour: 0}}},
		{"set alarm for 7.05 am", action.SourceHeuristic, []action.Action{action.SetAlarm{Hour: 7, Minute: 5}}},
		{"visit wikipedia", action.SourceHeuristic, browse("wikipedia.org")},
		{"go to www.example.com", action.SourceHeuristic, browse("www.example.com")},
		{"search for cheap flights on google", action.SourceHeuristic, browse("cheap flights")},
		{"open youtube", action.SourceHeuristic, []action.Action{action.GoHome{}, action.Wait{Milliseconds: 300}, action.OpenApp{PackageID: "com.google.android.youtube"}}},
		{"launch the camera app", action.SourceHeuristic, []action.Action{action.GoHome{}, action.Wait{Milliseconds: 300}, action.OpenApp{PackageID: "camera"}}},
		{"open chrome", action.SourceHeuristic, []action.Action{action.GoHome{}, action.Wait{Milliseconds: 300}, action.OpenApp{PackageID: "browser"}}},
		{"type hello world", action.SourceHeuristic, []action.Action{action.Type{Text: "hello world"}}},
	}
	in, _ := newTestInterpreter(t, nil, testConfig())
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			res := in.Interpret(context.Background(), tt.command)
			assert.True(t, res.Success)
			assert.Equal(t, tt.source, res.Source)
			assertPlan(t, tt.want, res.Actions)
		})
	}
}

func TestInterpret_HeuristicsDeferToPlanner(t *testing.T) {
	for _, cmd := range []string{
		"set an alarm for 25",
		"open settings and turn on bluetooth",
	} {
		_, _, ok := matchHeuristic(Normalize(cmd), appdir.Default())
		assert.False(t, ok, cmd)
	}
}

func TestInterpret_CacheIsIdempotent(t *testing.T) {
	planner := new(mocks.MockLLMClient)
	planner.On("Generate", mock.Anything, mock.Anything).Return(wifiPlan, nil).Once()
	m := metrics.New(nil)
	in, _ := newTestInterpreter(t, planner, testConfig(), WithMetrics(m))

	first := in.Interpret(context.Background(), "Turn on WiFi")
	second := in.Interpret(context.Background(), "  turn on   wifi ")

	planner.AssertNumberOfCalls(t, "Generate", 1)
	assert.Equal(t, action.SourcePlanner, first.Source)
	assert.Equal(t, action.SourceCache, second.Source)
	assert.Equal(t, first.Success, second.Success)
	assert.Equal(t, first.Message, second.Message)
	assertPlan(t, first.Actions.Actions, second.Actions)
	assert.Equal(t, 1, in.CacheLen())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InterpretTotal.WithLabelValues("cache")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheEntries))
}

func TestInterpret_CachedPlanIsNotAliased(t *testing.T) {
	in, _ := newTestInterpreter(t, nil, testConfig())

	first := in.Interpret(context.Background(), "open youtube")
	first.Actions.Actions[0] = action.GoBack{}

	second := in.Interpret(context.Background(), "open youtube")
	assert.Equal(t, action.GoHome{}, second.Actions.Actions[0])
}

func TestInterpret_PlannerTimeout(t *testing.T) {
	blocking := func(args mock.Arguments) {
		<-args.Get(0).(context.Context).Done()
	}

	t.Run("falls back and caches the fallback", func(t *testing.T) {
		planner := new(mocks.MockLLMClient)
		planner.On("Generate", mock.Anything, mock.Anything).Run(blocking).Return("", context.DeadlineExceeded)
		cfg := testConfig()
		cfg.PlannerTimeout = 20 * time.Millisecond
		in, logs := newTestInterpreter(t, planner, cfg)

		res := in.Interpret(context.Background(), "order a pizza")

		assert.False(t, res.Success)
		assert.Equal(t, action.SourceFallback, res.Source)
		assertPlan(t, []action.Action{action.Screenshot{}}, res.Actions)
		assert.Contains(t, res.Message, ErrPlannerTimeout.Error())
		assert.Equal(t, 1, logs.FilterMessageSnippet("Caching fallback plan").Len())

		again := in.Interpret(context.Background(), "order a pizza")
		assert.Equal(t, action.SourceCache, again.Source)
		assert.False(t, again.Success)
		planner.AssertNumberOfCalls(t, "Generate", 1)
	})

	t.Run("fallbacks can be left uncached", func(t *testing.T) {
		planner := new(mocks.MockLLMClient)
		planner.On("Generate", mock.Anything, mock.Anything).Run(blocking).Return("", context.DeadlineExceeded)
		cfg := testConfig()
		cfg.PlannerTimeout = 20 * time.Millisecond
		cfg.CacheFallbacks = false
		in, _ := newTestInterpreter(t, planner, cfg)

		in.Interpret(context.Background(), "order a pizza")
		in.Interpret(context.Background(), "order a pizza")

		planner.AssertNumberOfCalls(t, "Generate", 2)
		assert.Zero(t, in.CacheLen())
	})

	t.Run("gives up on a client that ignores cancellation", func(t *testing.T) {
		release := make(chan struct{})
		t.Cleanup(func() { close(release) })
		planner := new(mocks.MockLLMClient)
		planner.On("Generate", mock.Anything, mock.Anything).Run(func(mock.Arguments) { <-release }).Return(wifiPlan, nil)
		cfg := testConfig()
		cfg.PlannerTimeout = 20 * time.Millisecond
		in, _ := newTestInterpreter(t, planner, cfg)

		start := time.Now()
		res := in.Interpret(context.Background(), "turn on wifi")

		assert.Less(t, time.Since(start), time.Second)
		assert.Equal(t, action.SourceFallback, res.Source)
	})
}

func TestInterpret_PlannerFailures(t *testing.T) {
	t.Run("transport error", func(t *testing.T) {
		planner := new(mocks.MockLLMClient)
		planner.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("503 service unavailable")).Once()
		in, _ := newTestInterpreter(t, planner, testConfig())

		res := in.Interpret(context.Background(), "order a pizza")
		assert.False(t, res.Success)
		assert.Equal(t, action.SourceFallback, res.Source)
		assert.Contains(t, res.Message, "503")
	})

	t.Run("no planner", func(t *testing.T) {
		in, _ := newTestInterpreter(t, nil, testConfig())
		res := in.Interpret(context.Background(), "order a pizza")
		assert.False(t, res.Success)
		assert.Contains(t, res.Message, ErrNoPlanner.Error())
	})
}

func TestInterpret_PlannerOutputIsRepaired(t *testing.T) {
	planner := new(mocks.MockLLMClient)
	planner.On("Generate", mock.Anything, mock.Anything).
		Return("```json\n{\"actions\": [{\"type\": \"Type\", \"text\": \"www.example.com\"}]}\n```", nil).Once()
	in, _ := newTestInterpreter(t, planner, testConfig())

	res := in.Interpret(context.Background(), "fill the address with example")

	assert.True(t, res.Success)
	assertPlan(t, []action.Action{action.Type{Text: "www.example.com"}, action.PressEnter{}}, res.Actions)
}

func TestInterpret_PromptSelection(t *testing.T) {
	var (
		mu       sync.Mutex
		requests []schemas.GenerationRequest
	)
	planner := new(mocks.MockLLMClient)
	planner.On("Generate", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		mu.Lock()
		defer mu.Unlock()
		requests = append(requests, args.Get(1).(schemas.GenerationRequest))
	}).Return(wifiPlan, nil)
	in, _ := newTestInterpreter(t, planner, testConfig())

	in.Interpret(context.Background(), "turn on wifi")
	in.Interpret(context.Background(), "open the settings, find the bluetooth section and pair my headphones")

	require.Len(t, requests, 2)
	assert.Equal(t, schemas.TierFast, requests[0].Tier)
	assert.True(t, requests[0].Options.ForceJSONFormat)
	assert.NotContains(t, requests[0].UserPrompt, "Recent commands")

	assert.Equal(t, schemas.TierPowerful, requests[1].Tier)
	assert.Contains(t, requests[1].UserPrompt, "several steps")
	assert.Contains(t, requests[1].UserPrompt, `"turn on wifi" -> [GoHome, OpenApp("com.android.settings")`)
	assert.Contains(t, requests[1].SystemPrompt, "ClickOnText")
}

func TestInterpret_ContextWindowIsBounded(t *testing.T) {
	cfg := testConfig()
	cfg.ContextWindow = 2
	in, _ := newTestInterpreter(t, nil, cfg)

	for _, c := range []string{"go home", "go back", "scroll up"} {
		in.Interpret(context.Background(), c)
	}

	recent := in.recentContext()
	require.Len(t, recent, 2)
	assert.Equal(t, "go back", recent[0].Command)
	assert.Equal(t, "scroll up", recent[1].Command)
}

func TestInterpret_ConcurrentCallsShareOnePlannerCall(t *testing.T) {
	planner := new(mocks.MockLLMClient)
	planner.On("Generate", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { time.Sleep(30 * time.Millisecond) }).
		Return(wifiPlan, nil)
	in, _ := newTestInterpreter(t, planner, testConfig())

	const callers = 16
	var wg sync.WaitGroup
	results := make([]action.CommandResult, callers)
	for n := 0; n < callers; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			results[n] = in.Interpret(context.Background(), "turn on wifi")
		}(n)
	}
	wg.Wait()

	planner.AssertNumberOfCalls(t, "Generate", 1)
	for _, r := range results {
		assert.True(t, r.Success)
		assert.Equal(t, 3, r.Actions.Len())
	}
}

func TestInterpret_EmptyCommand(t *testing.T) {
	planner := new(mocks.MockLLMClient)
	in, _ := newTestInterpreter(t, planner, testConfig())

	res := in.Interpret(context.Background(), "   ")

	assert.False(t, res.Success)
	assert.Equal(t, ErrEmptyCommand.Error(), res.Message)
	assert.Zero(t, in.CacheLen())
	planner.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestForgetAndFlush(t *testing.T) {
	planner := new(mocks.MockLLMClient)
	planner.On("Generate", mock.Anything, mock.Anything).Return(wifiPlan, nil).Twice()
	in, _ := newTestInterpreter(t, planner, testConfig())

	in.Interpret(context.Background(), "turn on wifi")
	assert.True(t, in.Forget("TURN ON WIFI"))
	assert.False(t, in.Forget("turn on wifi"))

	res := in.Interpret(context.Background(), "turn on wifi")
	assert.Equal(t, action.SourcePlanner, res.Source)
	planner.AssertNumberOfCalls(t, "Generate", 2)

	in.Interpret(context.Background(), "go home")
	assert.Equal(t, 2, in.CacheLen())
	in.Flush()
	assert.Zero(t, in.CacheLen())
}

func TestResultCache_TTL(t *testing.T) {
	c := newResultCache(10 * time.Millisecond)
	c.Put("go home", action.CommandResult{Success: true, Actions: action.NewSequence("", action.GoHome{})})

	_, ok := c.Get("go home")
	require.True(t, ok)

	assert.Eventually(t, func() bool {
		_, ok := c.Get("go home")
		return !ok && c.Len() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestPatternTableOrder(t *testing.T) {
	seen := make(map[string]string)
	for _, p := range instantPatterns {
		for _, phrase := range p.phrases {
			prev, dup := seen[phrase]
			assert.False(t, dup, "phrase %q in both %q and %q", phrase, prev, p.name)
			seen[phrase] = p.name
			assert.Equal(t, strings.ToLower(phrase), phrase)
		}
	}
}
