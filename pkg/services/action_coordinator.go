package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/leoxtc/jsm-tui/pkg/jsm"
	"github.com/leoxtc/jsm-tui/pkg/models"
)

// ActionKind identifies the operator intents the coordinator accepts
type ActionKind string

const (
	ActionAcknowledge ActionKind = "acknowledge"
	ActionClose       ActionKind = "close"
)

// ActionCoordinator accepts operator actions, applies them optimistically to
// the store, dispatches the gateway call without blocking the caller, and
// reconciles the outcome through the store.
type ActionCoordinator struct {
	gateway jsm.Gateway
	store   *AlertStore
	sink    RenderSink
	timeout time.Duration

	// actor labels optimistic acknowledgements until the server reports
	// the real acknowledger
	actor string
}

// NewActionCoordinator creates a coordinator bound to the given store/sink
func NewActionCoordinator(gateway jsm.Gateway, store *AlertStore, sink RenderSink, timeout time.Duration, actor string) *ActionCoordinator {
	return &ActionCoordinator{
		gateway: gateway,
		store:   store,
		sink:    sink,
		timeout: timeout,
		actor:   actor,
	}
}

// SetSink installs the render sink. The presentation adapter is constructed
// after the coordinator it issues intents through, so the sink is wired in a
// second step; it must be set before any action is requested.
func (ac *ActionCoordinator) SetSink(sink RenderSink) {
	ac.sink = sink
}

// RequestAction validates and applies the action optimistically, returning
// the new snapshot synchronously so the caller can re-render immediately.
// The gateway call runs in the background; its outcome is pushed to the sink.
func (ac *ActionCoordinator) RequestAction(ctx context.Context, id string, kind ActionKind) (models.Snapshot, error) {
	var intended models.Status
	var ackedBy string

	switch kind {
	case ActionAcknowledge:
		intended = models.StatusAcknowledged
		ackedBy = ac.actor
	case ActionClose:
		intended = models.StatusClosed
	default:
		return ac.store.CurrentSnapshot(), fmt.Errorf("unsupported action kind %q", kind)
	}

	snapshot, ref, err := ac.store.ApplyOptimistic(id, intended, ackedBy)
	if err != nil {
		logrus.Warnf("Rejected %s on alert %s: %v", kind, id, err)
		return snapshot, err
	}

	go ac.dispatch(ctx, id, kind, ref)
	return snapshot, nil
}

func (ac *ActionCoordinator) dispatch(ctx context.Context, id string, kind ActionKind, ref PatchRef) {
	callCtx, cancel := context.WithTimeout(ctx, ac.timeout)
	defer cancel()

	logrus.Infof("Dispatching %s for alert %s", kind, id)

	var err error
	switch kind {
	case ActionAcknowledge:
		err = ac.gateway.AcknowledgeAlert(callCtx, id)
	case ActionClose:
		err = ac.gateway.CloseAlert(callCtx, id)
	}

	snapshot := ac.store.ConfirmOrFail(ref, ActionOutcome{Err: err})
	ac.sink.RenderSnapshot(snapshot)

	if err != nil {
		logrus.Errorf("Failed to %s alert %s: %v", kind, id, err)
		ac.sink.Notify(SeverityError, fmt.Sprintf("Failed to %s alert %s: %v", kind, id, err))
		return
	}
	ac.sink.Notify(SeverityInfo, fmt.Sprintf("%s alert %s", pastTense(kind), id))
}

// RequestDetails fetches the full alert record in the background and pushes
// it to the sink's detail view.
func (ac *ActionCoordinator) RequestDetails(ctx context.Context, id string) {
	go func() {
		callCtx, cancel := context.WithTimeout(ctx, ac.timeout)
		defer cancel()

		logrus.Debugf("Fetching alert details for %s", id)
		alert, err := ac.gateway.GetAlert(callCtx, id)
		if err != nil {
			logrus.Errorf("Failed to fetch alert details for %s: %v", id, err)
			ac.sink.Notify(SeverityError, fmt.Sprintf("Failed to fetch details for %s: %v", id, err))
			return
		}
		ac.sink.ShowDetails(alert)
	}()
}

func pastTense(kind ActionKind) string {
	if kind == ActionClose {
		return "Closed"
	}
	return "Acknowledged"
}
