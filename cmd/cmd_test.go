// File: cmd/cmd_test.go
package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BilalMagg/Auralia-sub000/api/schemas"
	"github.com/BilalMagg/Auralia-sub000/internal/action"
	"github.com/BilalMagg/Auralia-sub000/internal/agent"
	"github.com/BilalMagg/Auralia-sub000/internal/config"
	"github.com/BilalMagg/Auralia-sub000/internal/mocks"
	"github.com/BilalMagg/Auralia-sub000/internal/observability"
	"github.com/BilalMagg/Auralia-sub000/internal/taskstore"
)

const testConfigYAML = `
logger:
  level: fatal
sequencer:
  settle_delay: 0s
  app_launch_settle: 0s
agent:
  iteration_delay: 0s
`

// fakeDevice records what the commands do to it.
type fakeDevice struct {
	mu        sync.Mutex
	available bool
	globals   []schemas.GlobalAction
	captures  int
}

var _ Device = (*fakeDevice)(nil)

func (d *fakeDevice) Available() bool { return d.available }

func (d *fakeDevice) CurrentTree(context.Context) (*schemas.UINode, error) {
	return &schemas.UINode{Text: "Home", Clickable: true, Bounds: schemas.Rect{Right: 100, Bottom: 100}}, nil
}

func (d *fakeDevice) Tap(context.Context, int, int) error { return nil }
func (d *fakeDevice) Activate(context.Context, *schemas.UINode) error { return nil }
func (d *fakeDevice) InputText(context.Context, string) error { return nil }
func (d *fakeDevice) LaunchApp(context.Context, string) bool { return true }
func (d *fakeDevice) ScheduleAlarm(context.Context, int, int) bool { return true }
func (d *fakeDevice) Capture(context.Context) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.captures++
	return []byte("png"), nil
}
func (d *fakeDevice) Swipe(context.Context, schemas.Point, schemas.Point, time.Duration) error {
	return nil
}

func (d *fakeDevice) GlobalAction(_ context.Context, kind schemas.GlobalAction) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.globals = append(d.globals, kind)
	return nil
}

func (d *fakeDevice) performed() []schemas.GlobalAction {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]schemas.GlobalAction(nil), d.globals...)
}

// testHarness runs the root command against fake dependencies.
type testHarness struct {
	planner *mocks.MockLLMClient
	device  *fakeDevice
	store   *taskstore.Memory
	// plannerErr makes the planner factory fail.
	plannerErr error
	cfgPath    string
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	observability.ResetForTest()
	t.Cleanup(observability.ResetForTest)

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("AURALIA_LLM_API_KEY", "")
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfigYAML), 0o600))

	planner := new(mocks.MockLLMClient)
	planner.On("Close").Return(nil).Maybe()
	return &testHarness{
		planner: planner,
		device:  &fakeDevice{available: true},
		store:   taskstore.NewMemory(),
		cfgPath: path,
	}
}

func (h *testHarness) factories() factories {
	return factories{
		planner: func(config.LLMRouterConfig, *zap.Logger) (schemas.LLMClient, error) {
			if h.plannerErr != nil {
				return nil, h.plannerErr
			}
			return h.planner, nil
		},
		device: func(config.DeviceConfig, *zap.Logger) Device { return h.device },
		store: func(context.Context, config.TaskStoreConfig, *zap.Logger) (taskstore.Store, error) {
			return h.store, nil
		},
	}
}

func (h *testHarness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(h.factories())
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config", h.cfgPath}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func decodePlan(t *testing.T, out string) action.WirePlan {
	t.Helper()
	var plan action.WirePlan
	require.NoError(t, json.Unmarshal([]byte(out), &plan))
	return plan
}

func TestVersionCommand(t *testing.T) {
	h := newHarness(t)
	out, err := h.run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestPlanCommand_InstantPattern(t *testing.T) {
	h := newHarness(t)
	out, err := h.run(t, "plan", "go", "home")
	require.NoError(t, err)

	plan := decodePlan(t, out)
	require.NotNil(t, plan.Success)
	assert.True(t, *plan.Success)
	require.Len(t, plan.Actions, 1)
	assert.Equal(t, string(action.KindGoHome), plan.Actions[0].Type)
	h.planner.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestPlanCommand_PlannerUnavailableFallsBack(t *testing.T) {
	h := newHarness(t)
	h.plannerErr = errors.New("no api key")

	out, err := h.run(t, "plan", "order a pizza with extra cheese")
	require.NoError(t, err)

	plan := decodePlan(t, out)
	require.NotNil(t, plan.Success)
	assert.False(t, *plan.Success)
	require.Len(t, plan.Actions, 1)
	assert.Equal(t, string(action.KindScreenshot), plan.Actions[0].Type)
}

func TestPlanCommand_RequiresCommand(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "plan")
	assert.Error(t, err)
}

func TestDoCommand_ExecutesPlan(t *testing.T) {
	h := newHarness(t)
	out, err := h.run(t, "do", "go", "home")
	require.NoError(t, err)

	assert.True(t, *decodePlan(t, out).Success)
	assert.Equal(t, []schemas.GlobalAction{schemas.GlobalHome}, h.device.performed())
}

func TestDoCommand_DeviceUnavailable(t *testing.T) {
	h := newHarness(t)
	h.device.available = false

	_, err := h.run(t, "do", "go", "home")
	assert.ErrorIs(t, err, errDeviceUnavailable)
	assert.Empty(t, h.device.performed())
}

func TestDoCommand_FallbackStillCapturesScreen(t *testing.T) {
	h := newHarness(t)
	h.plannerErr = errors.New("no api key")

	_, err := h.run(t, "do", "order a pizza with extra cheese")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command not understood")
	assert.Equal(t, []schemas.GlobalAction{schemas.GlobalScreenshot}, h.device.performed())
}

func TestConfigFile_Invalid(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.WriteFile(h.cfgPath, []byte("agent:\n  max_iterations: 0\n"), 0o600))

	_, err := h.run(t, "plan", "go", "home")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_iterations")
}

func TestConfigFile_Missing(t *testing.T) {
	h := newHarness(t)
	h.cfgPath = filepath.Join(t.TempDir(), "nope.yaml")

	_, err := h.run(t, "plan", "go", "home")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize configuration")
}

func TestAgentCommand_Completes(t *testing.T) {
	h := newHarness(t)
	seesTree := mock.MatchedBy(func(req schemas.GenerationRequest) bool {
		return strings.Contains(req.UserPrompt, "Home")
	})
	h.planner.On("Generate", mock.Anything, seesTree).
		Return(`{"action": {"type": "Complete", "success": true, "message": "done"}, "confidence": 0.9}`, nil).Once()

	out, err := h.run(t, "agent", "open", "settings")
	require.NoError(t, err)

	var res agent.TaskResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Success)
	assert.Equal(t, "open settings", res.Task)
	assert.Equal(t, 1, res.Iterations)
	assert.Zero(t, h.device.captures, "screen text comes from the UI tree")

	_, err = h.store.Get(context.Background())
	assert.ErrorIs(t, err, schemas.ErrNoTaskContext)
}

func TestAgentCommand_ReportsFailure(t *testing.T) {
	h := newHarness(t)
	h.planner.On("Generate", mock.Anything, mock.Anything).
		Return(`{"action": {"type": "Complete", "success": false, "message": "no such contact"}}`, nil).Once()

	_, err := h.run(t, "agent", "call", "Sam")
	assert.ErrorIs(t, err, errTaskFailed)
	assert.Contains(t, err.Error(), "no such contact")
}

func TestAgentCommand_NeedsPlanner(t *testing.T) {
	h := newHarness(t)
	h.plannerErr = errors.New("no api key")

	_, err := h.run(t, "agent", "open", "settings")
	assert.ErrorIs(t, err, errNoPlanner)
}

func TestAgentCommand_DeviceUnavailable(t *testing.T) {
	h := newHarness(t)
	h.device.available = false

	_, err := h.run(t, "agent", "open", "settings")
	assert.ErrorIs(t, err, errDeviceUnavailable)
}

func TestResumeCommand(t *testing.T) {
	t.Run("NothingToResume", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.run(t, "resume")
		assert.ErrorIs(t, err, errNothingToRun)
	})

	t.Run("ContinuesStoredTask", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.store.Set(context.Background(), schemas.TaskContext{
			TaskID:          "task-42",
			TaskType:        agent.DefaultTaskType,
			OriginalCommand: "send a message to mom",
			StepIndex:       3,
		}))
		h.planner.On("Generate", mock.Anything, mock.Anything).
			Return(`{"action": {"type": "Complete", "success": true, "message": "sent"}}`, nil).Once()

		out, err := h.run(t, "resume")
		require.NoError(t, err)

		var res agent.TaskResult
		require.NoError(t, json.Unmarshal([]byte(out), &res))
		assert.True(t, res.Success)
		assert.Equal(t, "task-42", res.TaskID)
		assert.Equal(t, "send a message to mom", res.Task)
	})
}
