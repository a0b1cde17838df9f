package services

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/leoxtc/jsm-tui/pkg/models"
)

// DefaultConflictRefreshLimit is how many consecutive conflicting refreshes
// a pending patch survives before the authoritative value wins.
const DefaultConflictRefreshLimit = 3

var (
	// ErrActionPending is returned when an action is requested on an alert
	// that already has an unresolved optimistic patch.
	ErrActionPending = errors.New("an action is already pending for this alert")

	// ErrUnknownAlert is returned for alert IDs not present in the store
	ErrUnknownAlert = errors.New("unknown alert")

	// ErrInvalidTransition is returned when the requested status does not
	// move the alert forward (e.g. closing an already-closed alert).
	ErrInvalidTransition = errors.New("invalid status transition")
)

// PatchState tracks the lifecycle of an optimistic patch
type PatchState string

const (
	PatchPending    PatchState = "pending"
	PatchConfirmed  PatchState = "confirmed"
	PatchFailed     PatchState = "failed"
	PatchSuperseded PatchState = "superseded"
)

// OptimisticPatch is a locally applied mutation awaiting server truth
type OptimisticPatch struct {
	ID              string
	AlertID         string
	IntendedStatus  models.Status
	IntendedAckedBy string
	IssuedAt        time.Time
	State           PatchState

	// consecutive refreshes whose authoritative status conflicted with
	// the intent
	conflicts int
}

// PatchRef identifies a patch across the async boundary. A ref from a
// torn-down store epoch, or whose patch was already resolved by a refresh,
// makes ConfirmOrFail a no-op.
type PatchRef struct {
	id      string
	alertID string
	epoch   uint64
}

// ActionOutcome carries the result of a dispatched gateway action back into
// the store. A nil Err is success; Echo optionally holds an alert record the
// gateway returned with the response.
type ActionOutcome struct {
	Err  error
	Echo *models.Alert
}

// AlertStore owns the authoritative alert set and all optimistic patches.
// All mutations are serialized behind one mutex so every Snapshot is an
// atomic view; everything handed out is a copy.
type AlertStore struct {
	mu sync.Mutex

	byID  map[string]models.Alert
	order []string

	// at most one patch per alert ID
	patches map[string]*OptimisticPatch

	conflictLimit int
	epoch         uint64
	closed        bool
	lastFailure   string
	fetchedAt     time.Time

	// generation increments on every state mutation, never on reads, so
	// snapshot consumers can order pushes arriving from different goroutines
	generation uint64

	now func() time.Time
}

// NewAlertStore creates an empty store. conflictLimit <= 0 selects the
// default staleness window.
func NewAlertStore(conflictLimit int) *AlertStore {
	if conflictLimit <= 0 {
		conflictLimit = DefaultConflictRefreshLimit
	}
	return &AlertStore{
		byID:          make(map[string]models.Alert),
		patches:       make(map[string]*OptimisticPatch),
		conflictLimit: conflictLimit,
		now:           time.Now,
	}
}

// ApplyRefresh replaces the authoritative set wholesale with a freshly
// fetched page and reconciles every pending patch against it. Alerts absent
// from the new set are dropped; their patches are superseded. A fetch landing
// after Close is a no-op.
func (s *AlertStore) ApplyRefresh(alerts []models.Alert) models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		logrus.Debug("Ignoring refresh completion against a torn-down store")
		return s.snapshotLocked()
	}

	s.byID = make(map[string]models.Alert, len(alerts))
	s.order = s.order[:0]
	for _, alert := range alerts {
		if alert.ID == "" {
			continue
		}
		if _, dup := s.byID[alert.ID]; dup {
			continue
		}
		s.byID[alert.ID] = alert
		s.order = append(s.order, alert.ID)
	}
	s.fetchedAt = s.now()
	s.generation++

	for id, patch := range s.patches {
		authoritative, present := s.byID[id]
		switch {
		case !present:
			// The alert left the open-alert page; server truth wins.
			patch.State = PatchSuperseded
			delete(s.patches, id)
			logrus.Debugf("Patch %s superseded: alert %s no longer present", patch.ID, id)
		case authoritative.Status.Rank() >= patch.IntendedStatus.Rank():
			patch.State = PatchConfirmed
			delete(s.patches, id)
			logrus.Debugf("Patch %s confirmed by refresh: alert %s is %s", patch.ID, id, authoritative.Status)
		default:
			patch.conflicts++
			if patch.conflicts >= s.conflictLimit {
				patch.State = PatchSuperseded
				delete(s.patches, id)
				logrus.Warnf("Patch %s superseded after %d conflicting refreshes: alert %s stayed %s against intent %s",
					patch.ID, patch.conflicts, id, authoritative.Status, patch.IntendedStatus)
			}
		}
	}

	return s.snapshotLocked()
}

// ApplyOptimistic records an intended mutation and overlays it on the next
// snapshots until a refresh or outcome resolves it. Fails with
// ErrActionPending when a patch is already pending for the alert, and with
// ErrInvalidTransition when the intent does not move the alert forward.
func (s *AlertStore) ApplyOptimistic(id string, intended models.Status, ackedBy string) (models.Snapshot, PatchRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	alert, ok := s.byID[id]
	if !ok {
		return s.snapshotLocked(), PatchRef{}, ErrUnknownAlert
	}
	if _, pending := s.patches[id]; pending {
		return s.snapshotLocked(), PatchRef{}, ErrActionPending
	}
	if intended.Rank() <= alert.Status.Rank() {
		return s.snapshotLocked(), PatchRef{}, ErrInvalidTransition
	}

	patch := &OptimisticPatch{
		ID:              uuid.New().String(),
		AlertID:         id,
		IntendedStatus:  intended,
		IntendedAckedBy: ackedBy,
		IssuedAt:        s.now(),
		State:           PatchPending,
	}
	s.patches[id] = patch
	s.generation++
	logrus.Infof("Applied optimistic patch %s: alert %s -> %s", patch.ID, id, intended)

	return s.snapshotLocked(), PatchRef{id: patch.ID, alertID: id, epoch: s.epoch}, nil
}

// ConfirmOrFail reconciles a completed gateway action. On failure the patch
// is removed and the overlay reverts to the authoritative value. On success
// the patch stays pending until a refresh confirms it, unless the gateway
// echoed an alert that already satisfies the intent. Stale refs are no-ops.
func (s *AlertStore) ConfirmOrFail(ref PatchRef, outcome ActionOutcome) models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || ref.epoch != s.epoch {
		logrus.Debugf("Ignoring action outcome for stale patch ref %s", ref.id)
		return s.snapshotLocked()
	}

	patch, ok := s.patches[ref.alertID]
	if !ok || patch.ID != ref.id {
		// Already confirmed or superseded by a refresh in the meantime.
		return s.snapshotLocked()
	}

	if outcome.Err != nil {
		patch.State = PatchFailed
		delete(s.patches, ref.alertID)
		s.lastFailure = outcome.Err.Error()
		s.generation++
		logrus.Warnf("Patch %s failed, reverting alert %s to authoritative state: %v",
			patch.ID, ref.alertID, outcome.Err)
		return s.snapshotLocked()
	}

	if outcome.Echo != nil {
		if outcome.Echo.Status.Rank() >= patch.IntendedStatus.Rank() {
			patch.State = PatchConfirmed
			delete(s.patches, ref.alertID)
			if _, present := s.byID[ref.alertID]; present {
				s.byID[ref.alertID] = *outcome.Echo
			}
			s.generation++
			logrus.Infof("Patch %s confirmed by gateway echo for alert %s", patch.ID, ref.alertID)
		}
		return s.snapshotLocked()
	}

	// Success without an echoed record: authoritative confirmation is
	// still awaited on the next refresh.
	return s.snapshotLocked()
}

// CurrentSnapshot returns the current view without side effects
func (s *AlertStore) CurrentSnapshot() models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// LastFailure returns the most recent action failure reason, if any
func (s *AlertStore) LastFailure() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFailure
}

// PendingCount returns how many optimistic patches are unresolved
func (s *AlertStore) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.patches)
}

// Close tears the store down. Outcomes of gateway calls still in flight
// become no-ops against the new epoch, and late list fetches are ignored.
func (s *AlertStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.epoch++
	s.patches = make(map[string]*OptimisticPatch)
	s.byID = make(map[string]models.Alert)
	s.order = nil
	s.generation++
}

func (s *AlertStore) snapshotLocked() models.Snapshot {
	alerts := make([]models.Alert, 0, len(s.order))
	for _, id := range s.order {
		alert, ok := s.byID[id]
		if !ok {
			continue
		}
		if patch, pending := s.patches[id]; pending {
			alert.Status = patch.IntendedStatus
			if patch.IntendedAckedBy != "" {
				alert.AckedBy = patch.IntendedAckedBy
			}
			alert.Pending = true
		}
		if alert.Tags != nil {
			alert.Tags = append([]string(nil), alert.Tags...)
		}
		alerts = append(alerts, alert)
	}

	return models.Snapshot{
		Alerts:     alerts,
		Generation: s.generation,
		TakenAt:    s.now(),
	}
}
