package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leoxtc/jsm-tui/pkg/models"
)

func openAlert(id string) models.Alert {
	return models.Alert{
		ID:        id,
		Priority:  "P2",
		Status:    models.StatusOpen,
		Message:   "alert " + id,
		CreatedAt: time.Now().Add(-time.Hour),
	}
}

func ackedAlert(id string) models.Alert {
	alert := openAlert(id)
	alert.Status = models.StatusAcknowledged
	alert.AckedBy = "someone"
	return alert
}

func closedAlert(id string) models.Alert {
	alert := openAlert(id)
	alert.Status = models.StatusClosed
	return alert
}

func TestApplyRefreshIsIdempotent(t *testing.T) {
	store := NewAlertStore(0)
	alerts := []models.Alert{openAlert("a"), ackedAlert("b")}

	first := store.ApplyRefresh(alerts)
	second := store.ApplyRefresh(alerts)

	assert.Equal(t, first.Alerts, second.Alerts)
}

func TestApplyRefreshPreservesServerOrder(t *testing.T) {
	store := NewAlertStore(0)

	snapshot := store.ApplyRefresh([]models.Alert{openAlert("b"), openAlert("a"), openAlert("c")})

	require.Len(t, snapshot.Alerts, 3)
	assert.Equal(t, "b", snapshot.Alerts[0].ID)
	assert.Equal(t, "a", snapshot.Alerts[1].ID)
	assert.Equal(t, "c", snapshot.Alerts[2].ID)
}

func TestOptimisticThenConfirm(t *testing.T) {
	store := NewAlertStore(0)
	store.ApplyRefresh([]models.Alert{openAlert("a")})

	snapshot, _, err := store.ApplyOptimistic("a", models.StatusAcknowledged, "me@example.com")
	require.NoError(t, err)

	row, ok := snapshot.Get("a")
	require.True(t, ok)
	assert.Equal(t, models.StatusAcknowledged, row.Status)
	assert.Equal(t, "me@example.com", row.AckedBy)
	assert.True(t, row.Pending)

	// Server confirms on the next refresh: patch resolves, overlay gone.
	confirmed := store.ApplyRefresh([]models.Alert{ackedAlert("a")})
	row, ok = confirmed.Get("a")
	require.True(t, ok)
	assert.Equal(t, models.StatusAcknowledged, row.Status)
	assert.False(t, row.Pending)
	assert.Zero(t, store.PendingCount())
}

func TestOptimisticThenFailReverts(t *testing.T) {
	store := NewAlertStore(0)
	store.ApplyRefresh([]models.Alert{ackedAlert("a")})

	snapshot, ref, err := store.ApplyOptimistic("a", models.StatusClosed, "")
	require.NoError(t, err)
	row, _ := snapshot.Get("a")
	assert.Equal(t, models.StatusClosed, row.Status)

	reverted := store.ConfirmOrFail(ref, ActionOutcome{Err: errors.New("server said no")})
	row, ok := reverted.Get("a")
	require.True(t, ok)
	assert.Equal(t, models.StatusAcknowledged, row.Status)
	assert.False(t, row.Pending)
	assert.Equal(t, "server said no", store.LastFailure())
}

func TestSecondActionConflicts(t *testing.T) {
	store := NewAlertStore(0)
	store.ApplyRefresh([]models.Alert{openAlert("a")})

	first, _, err := store.ApplyOptimistic("a", models.StatusAcknowledged, "")
	require.NoError(t, err)

	second, _, err := store.ApplyOptimistic("a", models.StatusClosed, "")
	assert.ErrorIs(t, err, ErrActionPending)
	assert.Equal(t, first.Alerts, second.Alerts)
}

func TestInvalidTransitionRejected(t *testing.T) {
	store := NewAlertStore(0)
	store.ApplyRefresh([]models.Alert{closedAlert("a"), ackedAlert("b")})

	_, _, err := store.ApplyOptimistic("a", models.StatusClosed, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, _, err = store.ApplyOptimistic("b", models.StatusAcknowledged, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, _, err = store.ApplyOptimistic("missing", models.StatusClosed, "")
	assert.ErrorIs(t, err, ErrUnknownAlert)
}

func TestPatchSurvivesConflictingRefreshesUntilLimit(t *testing.T) {
	store := NewAlertStore(3)
	store.ApplyRefresh([]models.Alert{openAlert("a")})

	_, _, err := store.ApplyOptimistic("a", models.StatusAcknowledged, "me")
	require.NoError(t, err)

	// First two conflicting refreshes keep the optimistic overlay.
	for i := 0; i < 2; i++ {
		snapshot := store.ApplyRefresh([]models.Alert{openAlert("a")})
		row, _ := snapshot.Get("a")
		assert.Equal(t, models.StatusAcknowledged, row.Status, "refresh %d", i+1)
		assert.True(t, row.Pending)
	}

	// The third conflict supersedes the patch; authoritative wins.
	snapshot := store.ApplyRefresh([]models.Alert{openAlert("a")})
	row, _ := snapshot.Get("a")
	assert.Equal(t, models.StatusOpen, row.Status)
	assert.False(t, row.Pending)
	assert.Zero(t, store.PendingCount())
}

func TestRefreshDropsAbsentAlertsAndTheirPatches(t *testing.T) {
	store := NewAlertStore(0)
	store.ApplyRefresh([]models.Alert{openAlert("a"), openAlert("b")})

	_, _, err := store.ApplyOptimistic("b", models.StatusClosed, "")
	require.NoError(t, err)

	snapshot := store.ApplyRefresh([]models.Alert{openAlert("a")})

	require.Len(t, snapshot.Alerts, 1)
	assert.Equal(t, "a", snapshot.Alerts[0].ID)
	assert.Zero(t, store.PendingCount())
}

func TestConfirmOrFailIgnoresPatchResolvedByRefresh(t *testing.T) {
	store := NewAlertStore(0)
	store.ApplyRefresh([]models.Alert{openAlert("a")})

	_, ref, err := store.ApplyOptimistic("a", models.StatusAcknowledged, "")
	require.NoError(t, err)

	// Refresh already confirmed the patch before the gateway call landed.
	store.ApplyRefresh([]models.Alert{ackedAlert("a")})

	snapshot := store.ConfirmOrFail(ref, ActionOutcome{Err: errors.New("late failure")})
	row, _ := snapshot.Get("a")
	assert.Equal(t, models.StatusAcknowledged, row.Status)
	assert.Empty(t, store.LastFailure())
}

func TestConfirmOrFailNoOpAfterClose(t *testing.T) {
	store := NewAlertStore(0)
	store.ApplyRefresh([]models.Alert{openAlert("a")})

	_, ref, err := store.ApplyOptimistic("a", models.StatusClosed, "")
	require.NoError(t, err)

	store.Close()

	snapshot := store.ConfirmOrFail(ref, ActionOutcome{Err: errors.New("too late")})
	assert.Empty(t, store.LastFailure())
	assert.NotNil(t, snapshot.Alerts)
}

func TestConfirmOrFailShortCircuitsOnEcho(t *testing.T) {
	store := NewAlertStore(0)
	store.ApplyRefresh([]models.Alert{openAlert("a")})

	_, ref, err := store.ApplyOptimistic("a", models.StatusAcknowledged, "me")
	require.NoError(t, err)

	echo := ackedAlert("a")
	snapshot := store.ConfirmOrFail(ref, ActionOutcome{Echo: &echo})

	row, _ := snapshot.Get("a")
	assert.Equal(t, models.StatusAcknowledged, row.Status)
	assert.False(t, row.Pending)
	assert.Zero(t, store.PendingCount())
}

func TestSuccessWithoutEchoStaysPendingUntilRefresh(t *testing.T) {
	store := NewAlertStore(0)
	store.ApplyRefresh([]models.Alert{openAlert("a")})

	_, ref, err := store.ApplyOptimistic("a", models.StatusAcknowledged, "me")
	require.NoError(t, err)

	snapshot := store.ConfirmOrFail(ref, ActionOutcome{})
	row, _ := snapshot.Get("a")
	assert.Equal(t, models.StatusAcknowledged, row.Status)
	assert.True(t, row.Pending)
	assert.Equal(t, 1, store.PendingCount())
}

func TestRefreshAfterCloseIsNoOp(t *testing.T) {
	store := NewAlertStore(0)
	store.ApplyRefresh([]models.Alert{openAlert("a"), openAlert("b")})

	store.Close()

	// A list fetch that was in flight when the store tore down must not
	// repopulate it.
	snapshot := store.ApplyRefresh([]models.Alert{openAlert("a"), openAlert("b")})
	assert.Empty(t, snapshot.Alerts)
	assert.Empty(t, store.CurrentSnapshot().Alerts)
	assert.Zero(t, store.PendingCount())
}

func TestCurrentSnapshotDoesNotAdvanceGeneration(t *testing.T) {
	store := NewAlertStore(0)
	refreshed := store.ApplyRefresh([]models.Alert{openAlert("a")})

	first := store.CurrentSnapshot()
	second := store.CurrentSnapshot()
	assert.Equal(t, refreshed.Generation, first.Generation)
	assert.Equal(t, first.Generation, second.Generation)

	mutated, _, err := store.ApplyOptimistic("a", models.StatusAcknowledged, "")
	require.NoError(t, err)
	assert.Greater(t, mutated.Generation, first.Generation)
}

func TestGenerationOrdersOptimisticAndRevertSnapshots(t *testing.T) {
	store := NewAlertStore(0)
	store.ApplyRefresh([]models.Alert{openAlert("a")})

	optimistic, ref, err := store.ApplyOptimistic("a", models.StatusAcknowledged, "")
	require.NoError(t, err)

	reverted := store.ConfirmOrFail(ref, ActionOutcome{Err: errors.New("rejected")})
	assert.Greater(t, reverted.Generation, optimistic.Generation)
}

func TestScenarioTwoAlertsAckAndRefresh(t *testing.T) {
	store := NewAlertStore(0)

	snapshot := store.ApplyRefresh([]models.Alert{openAlert("A"), ackedAlert("B")})
	require.Len(t, snapshot.Alerts, 2)
	assert.Equal(t, "A", snapshot.Alerts[0].ID)
	assert.Equal(t, "B", snapshot.Alerts[1].ID)
	assert.NotEqual(t, "-", snapshot.Alerts[0].Age(time.Now()))

	snapshot, _, err := store.ApplyOptimistic("A", models.StatusAcknowledged, "op")
	require.NoError(t, err)
	row, _ := snapshot.Get("A")
	assert.Equal(t, models.StatusAcknowledged, row.Status)

	snapshot = store.ApplyRefresh([]models.Alert{ackedAlert("A"), closedAlert("B")})
	rowA, _ := snapshot.Get("A")
	rowB, _ := snapshot.Get("B")
	assert.Equal(t, models.StatusAcknowledged, rowA.Status)
	assert.False(t, rowA.Pending)
	assert.Equal(t, models.StatusClosed, rowB.Status)
}

func TestSnapshotIsImmutableCopy(t *testing.T) {
	store := NewAlertStore(0)
	alert := openAlert("a")
	alert.Tags = []string{"prod"}
	store.ApplyRefresh([]models.Alert{alert})

	snapshot := store.CurrentSnapshot()
	snapshot.Alerts[0].Status = models.StatusClosed
	snapshot.Alerts[0].Tags[0] = "mutated"

	fresh := store.CurrentSnapshot()
	assert.Equal(t, models.StatusOpen, fresh.Alerts[0].Status)
	assert.Equal(t, []string{"prod"}, fresh.Alerts[0].Tags)
}
