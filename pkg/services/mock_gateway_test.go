package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/leoxtc/jsm-tui/pkg/jsm"
	"github.com/leoxtc/jsm-tui/pkg/models"
)

// MockGateway is a mock implementation of the jsm.Gateway interface
type MockGateway struct {
	mock.Mock
}

// Ensure MockGateway implements Gateway
var _ jsm.Gateway = (*MockGateway)(nil)

func (m *MockGateway) ListOpenAlerts(ctx context.Context) ([]models.Alert, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Alert), args.Error(1)
}

func (m *MockGateway) GetAlert(ctx context.Context, id string) (models.Alert, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Alert), args.Error(1)
}

func (m *MockGateway) AcknowledgeAlert(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockGateway) CloseAlert(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// fakeSink records pushes from the scheduler/coordinator and signals them on
// channels so tests can wait for async dispatches without sleeping.
type fakeSink struct {
	rendered chan models.Snapshot
	notices  chan string
	details  chan models.Alert
}

func newFakeSink() *fakeSink {
	return &fakeSink{
		rendered: make(chan models.Snapshot, 16),
		notices:  make(chan string, 16),
		details:  make(chan models.Alert, 16),
	}
}

func (f *fakeSink) RenderSnapshot(snapshot models.Snapshot) { f.rendered <- snapshot }
func (f *fakeSink) Notify(_ Severity, message string)       { f.notices <- message }
func (f *fakeSink) ShowDetails(alert models.Alert)          { f.details <- alert }

func (f *fakeSink) waitSnapshot(timeout time.Duration) (models.Snapshot, bool) {
	select {
	case snapshot := <-f.rendered:
		return snapshot, true
	case <-time.After(timeout):
		return models.Snapshot{}, false
	}
}

func (f *fakeSink) waitNotice(timeout time.Duration) (string, bool) {
	select {
	case message := <-f.notices:
		return message, true
	case <-time.After(timeout):
		return "", false
	}
}
