package services

import "github.com/leoxtc/jsm-tui/pkg/models"

// Severity classifies user-facing notices
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// RenderSink is the push boundary toward the presentation layer. The
// scheduler and coordinator hand it fresh snapshots and notices; it never
// mutates the store. Implementations must tolerate calls from multiple
// goroutines.
type RenderSink interface {
	// RenderSnapshot replaces the displayed table with a new snapshot
	RenderSnapshot(snapshot models.Snapshot)

	// Notify surfaces a short status message without blocking the table
	Notify(severity Severity, message string)

	// ShowDetails opens the detail view for a fully fetched alert
	ShowDetails(alert models.Alert)
}
