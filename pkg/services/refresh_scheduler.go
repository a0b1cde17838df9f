package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/leoxtc/jsm-tui/pkg/jsm"
)

const (
	defaultBackoffMin = 2 * time.Second
	defaultBackoffMax = 120 * time.Second
)

// RefreshScheduler drives periodic and on-demand alert list fetches. All
// fetching happens inside Run's loop, so there is never more than one
// in-flight listAlerts call; manual refresh intents arriving while a fetch
// is in progress are coalesced away.
type RefreshScheduler struct {
	gateway        jsm.Gateway
	store          *AlertStore
	sink           RenderSink
	interval       time.Duration
	requestTimeout time.Duration
	backoffMin     time.Duration
	backoffMax     time.Duration

	manual chan struct{}
}

// NewRefreshScheduler creates a scheduler that feeds the given store and sink
func NewRefreshScheduler(gateway jsm.Gateway, store *AlertStore, sink RenderSink, interval, requestTimeout time.Duration) *RefreshScheduler {
	return &RefreshScheduler{
		gateway:        gateway,
		store:          store,
		sink:           sink,
		interval:       interval,
		requestTimeout: requestTimeout,
		backoffMin:     defaultBackoffMin,
		backoffMax:     defaultBackoffMax,
		manual:         make(chan struct{}, 1),
	}
}

// SetSink installs the render sink. Must be called before Run.
func (rs *RefreshScheduler) SetSink(sink RenderSink) {
	rs.sink = sink
}

// RequestRefresh asks for an immediate fetch. Never blocks; requests made
// while a fetch is already queued or running are coalesced.
func (rs *RefreshScheduler) RequestRefresh() {
	select {
	case rs.manual <- struct{}{}:
	default:
	}
}

// Run executes the refresh loop until the context is cancelled or an auth
// failure halts polling. The first fetch happens immediately.
func (rs *RefreshScheduler) Run(ctx context.Context) error {
	logrus.Infof("Auto-refresh enabled every %s", rs.interval)

	timer := time.NewTimer(0)
	defer timer.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		case <-rs.manual:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}

		err := rs.fetchOnce(ctx)

		// Manual intents that arrived while fetching are already
		// satisfied by the fetch that just completed.
		select {
		case <-rs.manual:
		default:
		}

		switch {
		case err == nil:
			failures = 0
			timer.Reset(rs.interval)
		case errors.Is(err, context.Canceled):
			return ctx.Err()
		case jsm.IsAuth(err):
			logrus.Errorf("Halting refresh loop on auth failure: %v", err)
			rs.sink.Notify(SeverityError, fmt.Sprintf("Authentication failed, polling stopped: %v", err))
			return err
		default:
			failures++
			delay := rs.backoffDuration(failures)
			logrus.Warnf("Refresh failed (attempt %d), backing off %s: %v", failures, delay, err)
			rs.sink.Notify(SeverityWarning, fmt.Sprintf("Refresh failed, retrying in %s", delay.Round(time.Second)))
			timer.Reset(delay)
		}
	}
}

func (rs *RefreshScheduler) fetchOnce(ctx context.Context) error {
	logrus.Debug("Refreshing open alerts")

	fetchCtx, cancel := context.WithTimeout(ctx, rs.requestTimeout)
	defer cancel()

	alerts, err := rs.gateway.ListOpenAlerts(fetchCtx)
	if err != nil {
		return err
	}

	logrus.Infof("Refresh completed with %d open alerts", len(alerts))
	rs.sink.RenderSnapshot(rs.store.ApplyRefresh(alerts))
	return nil
}

// backoffDuration calculates capped exponential backoff
func (rs *RefreshScheduler) backoffDuration(failures int) time.Duration {
	if failures < 1 {
		return rs.backoffMin
	}
	delay := rs.backoffMin << (failures - 1)
	if delay > rs.backoffMax || delay <= 0 {
		return rs.backoffMax
	}
	return delay
}
