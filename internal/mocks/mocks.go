// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/BilalMagg/Auralia-sub000/api/schemas"
)

// -- LLM Client Mock --

// MockLLMClient mocks the schemas.LLMClient interface.
type MockLLMClient struct {
	mock.Mock
}

func (m *MockLLMClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockLLMClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

// -- UI Surface Mock --

// MockUISurface mocks schemas.UISurface.
type MockUISurface struct {
	mock.Mock
}

func (m *MockUISurface) Available() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockUISurface) CurrentTree(ctx context.Context) (*schemas.UINode, error) {
	args := m.Called(ctx)
	var root *schemas.UINode
	if v := args.Get(0); v != nil {
		root = v.(*schemas.UINode)
	}
	return root, args.Error(1)
}

func (m *MockUISurface) Tap(ctx context.Context, x, y int) error {
	args := m.Called(ctx, x, y)
	return args.Error(0)
}

func (m *MockUISurface) Activate(ctx context.Context, node *schemas.UINode) error {
	args := m.Called(ctx, node)
	return args.Error(0)
}

func (m *MockUISurface) Swipe(ctx context.Context, from, to schemas.Point, d time.Duration) error {
	args := m.Called(ctx, from, to, d)
	return args.Error(0)
}

func (m *MockUISurface) InputText(ctx context.Context, text string) error {
	args := m.Called(ctx, text)
	return args.Error(0)
}

func (m *MockUISurface) GlobalAction(ctx context.Context, kind schemas.GlobalAction) error {
	args := m.Called(ctx, kind)
	return args.Error(0)
}

func (m *MockUISurface) LaunchApp(ctx context.Context, packageID string) bool {
	args := m.Called(ctx, packageID)
	return args.Bool(0)
}

func (m *MockUISurface) ScheduleAlarm(ctx context.Context, hour, minute int) bool {
	args := m.Called(ctx, hour, minute)
	return args.Bool(0)
}

// -- Observation Mocks --

// MockScreenCapturer mocks schemas.ScreenCapturer.
type MockScreenCapturer struct {
	mock.Mock
}

func (m *MockScreenCapturer) Capture(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	var img []byte
	if v := args.Get(0); v != nil {
		img = v.([]byte)
	}
	return img, args.Error(1)
}

// MockOCRService mocks schemas.OCRService.
type MockOCRService struct {
	mock.Mock
}

func (m *MockOCRService) Recognize(ctx context.Context, image []byte) (schemas.OCRResult, error) {
	args := m.Called(ctx, image)
	return args.Get(0).(schemas.OCRResult), args.Error(1)
}

// -- Task Context Store Mock --

// MockTaskContextStore mocks schemas.TaskContextStore.
type MockTaskContextStore struct {
	mock.Mock
}

func (m *MockTaskContextStore) Get(ctx context.Context) (schemas.TaskContext, error) {
	args := m.Called(ctx)
	return args.Get(0).(schemas.TaskContext), args.Error(1)
}

func (m *MockTaskContextStore) Set(ctx context.Context, tc schemas.TaskContext) error {
	args := m.Called(ctx, tc)
	return args.Error(0)
}

func (m *MockTaskContextStore) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

var (
	_ schemas.LLMClient        = (*MockLLMClient)(nil)
	_ schemas.UISurface        = (*MockUISurface)(nil)
	_ schemas.ScreenCapturer   = (*MockScreenCapturer)(nil)
	_ schemas.OCRService       = (*MockOCRService)(nil)
	_ schemas.TaskContextStore = (*MockTaskContextStore)(nil)
)
