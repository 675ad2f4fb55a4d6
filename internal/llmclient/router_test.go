package llmclient

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/BilalMagg/Auralia-sub000/api/schemas"
)

// setupRouter creates an LLMRouter over two mocks, along with a log observer.
func setupRouter(t *testing.T) (*LLMRouter, *MockLLMClient, *MockLLMClient, *observer.ObservedLogs) {
	t.Helper()
	loggerCore, observedLogs := observer.New(zap.DebugLevel)
	logger := zap.New(loggerCore)

	fastClient := &MockLLMClient{Name: "FastClient"}
	powerfulClient := &MockLLMClient{Name: "PowerfulClient"}

	router, err := NewLLMRouter(logger, fastClient, powerfulClient)
	require.NoError(t, err, "NewLLMRouter should initialize successfully")
	return router, fastClient, powerfulClient, observedLogs
}

func TestNewLLMRouter_Success(t *testing.T) {
	router, fastClient, powerfulClient, _ := setupRouter(t)
	require.NotNil(t, router)
	assert.Same(t, fastClient, router.fast)
	assert.Same(t, powerfulClient, router.powerful)
}

func TestNewLLMRouter_Failure_MissingClients(t *testing.T) {
	logger := setupTestLogger(t)
	validClient := new(MockLLMClient)

	tests := []struct {
		name     string
		fast     schemas.LLMClient
		powerful schemas.LLMClient
	}{
		{"Missing Fast Client", nil, validClient},
		{"Missing Powerful Client", validClient, nil},
		{"Missing Both Clients", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, err := NewLLMRouter(logger, tt.fast, tt.powerful)
			assert.Nil(t, router)
			assert.ErrorIs(t, err, ErrMissingTierClient)
		})
	}
}

func TestLLMRouter_Generate_Routing(t *testing.T) {
	tests := []struct {
		name     string
		tier     schemas.ModelTier
		wantFast bool
		wantLog  string
	}{
		{"Fast tier", schemas.TierFast, true, "fast"},
		{"Powerful tier", schemas.TierPowerful, false, "powerful"},
		{"Empty tier defaults to powerful", "", false, "powerful"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, fastClient, powerfulClient, logs := setupRouter(t)
			ctx := context.Background()
			req := schemas.GenerationRequest{UserPrompt: "open settings", Tier: tt.tier}

			target, other := powerfulClient, fastClient
			if tt.wantFast {
				target, other = fastClient, powerfulClient
			}
			target.On("Generate", ctx, req).Return(`{"action":{"type":"GoHome"}}`, nil).Once()

			out, err := router.Generate(ctx, req)
			require.NoError(t, err)
			assert.Equal(t, `{"action":{"type":"GoHome"}}`, out)

			target.AssertExpectations(t)
			other.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)

			entries := logs.FilterMessage("Routing LLM request").All()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.wantLog, entries[0].ContextMap()["tier"])
		})
	}
}

func TestLLMRouter_Generate_Errors(t *testing.T) {
	t.Run("Propagates client errors", func(t *testing.T) {
		router, fastClient, _, _ := setupRouter(t)
		boom := errors.New("quota exhausted")
		fastClient.On("Generate", mock.Anything, mock.Anything).Return("", boom).Once()

		_, err := router.Generate(context.Background(), schemas.GenerationRequest{Tier: schemas.TierFast})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("Unknown tier", func(t *testing.T) {
		router, fastClient, powerfulClient, _ := setupRouter(t)

		_, err := router.Generate(context.Background(), schemas.GenerationRequest{Tier: "experimental"})
		assert.ErrorIs(t, err, ErrUnknownTier)
		assert.Contains(t, err.Error(), "experimental")
		fastClient.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
		powerfulClient.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
	})
}

func TestLLMRouter_Close(t *testing.T) {
	t.Run("Closes each client and joins errors", func(t *testing.T) {
		router, fastClient, powerfulClient, _ := setupRouter(t)
		fastClient.On("Close").Return(nil).Once()
		powerfulClient.On("Close").Return(errors.New("socket busy")).Once()

		err := router.Close()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "closing powerful client: socket busy")
		fastClient.AssertExpectations(t)
		powerfulClient.AssertExpectations(t)
	})

	t.Run("Shared client is closed once", func(t *testing.T) {
		shared := &MockLLMClient{Name: "Shared"}
		shared.On("Close").Return(nil).Once()

		router, err := NewLLMRouter(setupTestLogger(t), shared, shared)
		require.NoError(t, err)
		require.NoError(t, router.Close())
		shared.AssertNumberOfCalls(t, "Close", 1)
	})
}
