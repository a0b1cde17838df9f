package jsm

import (
	"context"

	"github.com/leoxtc/jsm-tui/pkg/models"
)

// Gateway defines the interface to the remote JSM alert API
// This allows us to mock the gateway for testing
type Gateway interface {
	// ListOpenAlerts fetches the current page of alerts, newest first,
	// with closed/resolved entries filtered out.
	ListOpenAlerts(ctx context.Context) ([]models.Alert, error)

	// GetAlert fetches the full record for one alert, including its
	// description.
	GetAlert(ctx context.Context, id string) (models.Alert, error)

	// AcknowledgeAlert marks the alert acknowledged by the caller
	AcknowledgeAlert(ctx context.Context, id string) error

	// CloseAlert closes the alert
	CloseAlert(ctx context.Context, id string) error
}

// Ensure Client implements Gateway
var _ Gateway = (*Client)(nil)
