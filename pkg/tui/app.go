package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/leoxtc/jsm-tui/pkg/models"
	"github.com/leoxtc/jsm-tui/pkg/services"
)

// Intents is the slice of the action coordinator the dashboard issues
// operator intents through.
type Intents interface {
	RequestAction(ctx context.Context, id string, kind services.ActionKind) (models.Snapshot, error)
	RequestDetails(ctx context.Context, id string)
}

// Refresher triggers an on-demand refresh
type Refresher interface {
	RequestRefresh()
}

type notice struct {
	severity services.Severity
	message  string
	setAt    time.Time
}

type modal struct {
	alert      models.Alert
	runbookURL string
}

// App is the terminal dashboard. It renders snapshots pushed by the
// scheduler and coordinator and translates keypresses into intents; it never
// touches the store directly.
type App struct {
	intents   Intents
	refresher Refresher
	out       io.Writer
	in        io.Reader

	mu       sync.Mutex
	snapshot models.Snapshot
	cursor   int
	modal    *modal
	notice   notice

	redraw   chan struct{}
	quit     chan struct{}
	quitOnce sync.Once
}

// Ensure App satisfies the render boundary
var _ services.RenderSink = (*App)(nil)

// NewApp creates the dashboard reading keys from stdin and drawing to stdout
func NewApp(intents Intents, refresher Refresher) *App {
	return &App{
		intents:   intents,
		refresher: refresher,
		out:       os.Stdout,
		in:        os.Stdin,
		redraw:    make(chan struct{}, 1),
		quit:      make(chan struct{}),
	}
}

// RenderSnapshot replaces the displayed table. Safe to call from any
// goroutine. The refresh and action goroutines push concurrently, so a
// snapshot may arrive after a newer one; generations that do not move the
// view forward are dropped.
func (a *App) RenderSnapshot(snapshot models.Snapshot) {
	a.mu.Lock()
	if snapshot.Generation <= a.snapshot.Generation {
		a.mu.Unlock()
		return
	}
	a.snapshot = snapshot
	a.clampCursorLocked()
	a.mu.Unlock()
	a.requestRedraw()
}

// Notify surfaces a short message in the status line
func (a *App) Notify(severity services.Severity, message string) {
	a.mu.Lock()
	a.notice = notice{severity: severity, message: message, setAt: time.Now()}
	a.mu.Unlock()
	a.requestRedraw()
}

// ShowDetails opens the detail modal for the alert
func (a *App) ShowDetails(alert models.Alert) {
	a.mu.Lock()
	a.modal = &modal{alert: alert, runbookURL: ExtractRunbookURL(alert.Description)}
	a.mu.Unlock()
	a.requestRedraw()
}

// Run owns the terminal until quit or context cancellation
func (a *App) Run(ctx context.Context) error {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("failed to enter raw terminal mode: %w", err)
	}
	defer func() {
		_ = term.Restore(fd, oldState)
		fmt.Fprint(a.out, showCursor+ansiReset+"\r\n")
	}()
	fmt.Fprint(a.out, hideCursor)

	keys := make(chan keyEvent, 8)
	go readKeys(a.in, keys)

	// Periodic redraw keeps ages current and expires stale notices.
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	a.draw()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-a.quit:
			return nil
		case <-a.redraw:
			a.draw()
		case <-ticker.C:
			a.draw()
		case key, ok := <-keys:
			if !ok {
				return nil
			}
			a.handleKey(ctx, key)
		}
	}
}

func (a *App) requestRedraw() {
	select {
	case a.redraw <- struct{}{}:
	default:
	}
}

func (a *App) handleKey(ctx context.Context, key keyEvent) {
	if key == keyQuit {
		a.quitOnce.Do(func() { close(a.quit) })
		return
	}

	a.mu.Lock()
	modalOpen := a.modal != nil
	a.mu.Unlock()

	if modalOpen {
		a.handleModalKey(key)
		return
	}

	switch key {
	case 'q':
		a.quitOnce.Do(func() { close(a.quit) })
	case 'r':
		a.refresher.RequestRefresh()
		a.Notify(services.SeverityInfo, "Refreshing...")
	case 'a':
		a.requestAction(ctx, services.ActionAcknowledge)
	case 'c':
		a.requestAction(ctx, services.ActionClose)
	case 'v', keyEnter:
		if alert, ok := a.selectedAlert(); ok {
			a.Notify(services.SeverityInfo, "Loading details...")
			a.intents.RequestDetails(ctx, alert.ID)
		}
	case 'j', keyDown:
		a.moveCursor(1)
	case 'k', keyUp:
		a.moveCursor(-1)
	}
}

func (a *App) handleModalKey(key keyEvent) {
	switch key {
	case 'q', 'd', 'v', keyEscape, keyEnter:
		a.mu.Lock()
		a.modal = nil
		a.mu.Unlock()
		a.requestRedraw()
	case 'o':
		a.mu.Lock()
		url := ""
		if a.modal != nil {
			url = a.modal.runbookURL
		}
		a.mu.Unlock()
		if url == "" {
			a.Notify(services.SeverityWarning, "No runbook URL found")
			return
		}
		if err := openURL(url); err != nil {
			logrus.Errorf("Failed to open runbook %s: %v", url, err)
			a.Notify(services.SeverityError, fmt.Sprintf("Failed to open runbook: %v", err))
			return
		}
		a.Notify(services.SeverityInfo, "Opened runbook in browser")
	}
}

func (a *App) requestAction(ctx context.Context, kind services.ActionKind) {
	alert, ok := a.selectedAlert()
	if !ok {
		a.Notify(services.SeverityWarning, "Select an alert first")
		return
	}
	if alert.Pending {
		a.Notify(services.SeverityWarning, "An action is already pending for this alert")
		return
	}

	snapshot, err := a.intents.RequestAction(ctx, alert.ID, kind)
	if err != nil {
		a.Notify(services.SeverityWarning, fmt.Sprintf("Cannot %s alert %s: %v", kind, alert.ID, err))
		return
	}
	a.RenderSnapshot(snapshot)
}

func (a *App) selectedAlert() (models.Alert, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.snapshot.Alerts) == 0 || a.cursor < 0 || a.cursor >= len(a.snapshot.Alerts) {
		return models.Alert{}, false
	}
	return a.snapshot.Alerts[a.cursor], true
}

func (a *App) moveCursor(delta int) {
	a.mu.Lock()
	a.cursor += delta
	a.clampCursorLocked()
	a.mu.Unlock()
	a.requestRedraw()
}

func (a *App) clampCursorLocked() {
	if a.cursor >= len(a.snapshot.Alerts) {
		a.cursor = len(a.snapshot.Alerts) - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
}
