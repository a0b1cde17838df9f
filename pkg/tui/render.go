package tui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/leoxtc/jsm-tui/pkg/models"
	"github.com/leoxtc/jsm-tui/pkg/services"
)

const (
	clearScreen = "\033[2J\033[H"
	hideCursor  = "\033[?25l"
	showCursor  = "\033[?25h"

	ansiReset   = "\033[0m"
	ansiBold    = "\033[1m"
	ansiDim     = "\033[2m"
	ansiInverse = "\033[7m"
	ansiRed     = "\033[31m"
	ansiGreen   = "\033[32m"
	ansiYellow  = "\033[33m"
	ansiCyan    = "\033[36m"

	noticeLifetime = 6 * time.Second
)

// draw renders the whole screen from a consistent copy of the UI state
func (a *App) draw() {
	a.mu.Lock()
	snapshot := a.snapshot
	cursor := a.cursor
	modalView := a.modal
	currentNotice := a.notice
	a.mu.Unlock()

	width, height := terminalSize()

	var b strings.Builder
	b.WriteString(clearScreen)

	if modalView != nil {
		renderModal(&b, modalView, width, height)
	} else {
		renderTable(&b, snapshot, cursor, width, height)
	}

	renderStatusLine(&b, snapshot, currentNotice, width)
	renderFooter(&b, modalView != nil, width)

	fmt.Fprint(a.out, b.String())
}

func renderTable(b *strings.Builder, snapshot models.Snapshot, cursor, width, height int) {
	title := " JSM Alerts"
	clock := time.Now().Format("15:04:05") + " "
	pad := width - len(title) - len(clock)
	if pad < 1 {
		pad = 1
	}
	fmt.Fprintf(b, "%s%s%s%s%s%s\r\n", ansiBold, ansiCyan, title, strings.Repeat(" ", pad), clock, ansiReset)

	messageWidth := width - 58
	if messageWidth < 10 {
		messageWidth = 10
	}
	fmt.Fprintf(b, "%s %-5s %-13s %-5s %-16s %-12s %s%s\r\n",
		ansiBold, "PRIO", "STATUS", "AGE", "ACKED BY", "TAGS", "MESSAGE", ansiReset)

	rows := height - 4
	if rows < 1 {
		rows = 1
	}
	top := 0
	if cursor >= rows {
		top = cursor - rows + 1
	}

	now := time.Now()
	for i := top; i < len(snapshot.Alerts) && i < top+rows; i++ {
		alert := snapshot.Alerts[i]

		marker := " "
		if alert.Pending {
			marker = "*"
		}
		line := fmt.Sprintf("%s%-5s %s%-13s%s %-5s %-16s %-12s %s",
			marker,
			truncateCell(alert.Priority, 5),
			statusColor(alert.Status),
			truncateCell(string(alert.Status), 13),
			currentRowReset(i == cursor),
			alert.Age(now),
			truncateCell(alert.AckedBy, 16),
			truncateCell(alert.TagsDisplay(), 12),
			truncateCell(alert.Message, messageWidth),
		)
		if i == cursor {
			fmt.Fprintf(b, "%s%s%s\r\n", ansiInverse, line, ansiReset)
		} else {
			fmt.Fprintf(b, "%s\r\n", line)
		}
	}

	if len(snapshot.Alerts) == 0 {
		fmt.Fprintf(b, "%s  (no open alerts)%s\r\n", ansiDim, ansiReset)
	}
}

func renderModal(b *strings.Builder, m *modal, width, height int) {
	alert := m.alert

	fmt.Fprintf(b, "%s%s Alert %s: %s%s\r\n", ansiBold, ansiCyan,
		alert.ID, truncateCell(alert.Message, width-12-len(alert.ID)), ansiReset)
	fmt.Fprintf(b, "%s Prio %s  |  Age %s  |  Acked By %s%s\r\n",
		ansiDim, alert.Priority, alert.Age(time.Now()), alert.AckedBy, ansiReset)
	fmt.Fprintf(b, " Status: %s%s%s\r\n", statusColor(alert.Status),
		strings.ToUpper(string(alert.Status)), ansiReset)
	fmt.Fprintf(b, " %s\r\n", strings.Repeat("-", max(width-2, 10)))

	bodyRows := height - 8
	if bodyRows < 3 {
		bodyRows = 3
	}
	for i, line := range wrapText(alert.Description, width-4) {
		if i >= bodyRows {
			fmt.Fprintf(b, " %s...%s\r\n", ansiDim, ansiReset)
			break
		}
		fmt.Fprintf(b, "  %s\r\n", line)
	}

	if m.runbookURL != "" {
		fmt.Fprintf(b, "\r\n %sRunbook:%s %s\r\n", ansiBold, ansiReset, truncateCell(m.runbookURL, width-12))
	}
}

func renderStatusLine(b *strings.Builder, snapshot models.Snapshot, n notice, width int) {
	left := fmt.Sprintf(" Open alerts: %d", len(snapshot.Alerts))

	right := ""
	if n.message != "" && time.Since(n.setAt) < noticeLifetime {
		right = truncateCell(n.message, width-len(left)-3)
		switch n.severity {
		case services.SeverityError:
			right = ansiRed + right + ansiReset
		case services.SeverityWarning:
			right = ansiYellow + right + ansiReset
		default:
			right = ansiGreen + right + ansiReset
		}
	}

	fmt.Fprintf(b, "\r\n%s%s%s  %s\r\n", ansiDim, left, ansiReset, right)
}

func renderFooter(b *strings.Builder, modalOpen bool, width int) {
	hints := "r refresh | a ack | c close | v view | j/k move | q quit"
	if modalOpen {
		hints = "o open runbook | d/esc close | ctrl-c quit"
	}
	fmt.Fprintf(b, "%s %s%s", ansiDim, truncateCell(hints, width-2), ansiReset)
}

func statusColor(status models.Status) string {
	switch status {
	case models.StatusAcknowledged:
		return ansiGreen
	case models.StatusOpen:
		return ansiRed
	default:
		return ansiYellow
	}
}

// currentRowReset keeps inverse video intact across the status color reset
// on the selected row.
func currentRowReset(selected bool) string {
	if selected {
		return ansiReset + ansiInverse
	}
	return ansiReset
}

func terminalSize() (int, int) {
	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 || height <= 0 {
		return 120, 40
	}
	return width, height
}

func truncateCell(value string, maxLen int) string {
	if maxLen < 1 {
		return ""
	}
	if len(value) <= maxLen {
		return value
	}
	if maxLen <= 3 {
		return strings.Repeat(".", maxLen)
	}
	return value[:maxLen-3] + "..."
}

func wrapText(text string, width int) []string {
	if width < 10 {
		width = 10
	}
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		paragraph = strings.TrimRight(paragraph, "\r")
		if paragraph == "" {
			lines = append(lines, "")
			continue
		}
		line := ""
		for _, word := range strings.Fields(paragraph) {
			switch {
			case line == "":
				line = word
			case len(line)+1+len(word) <= width:
				line += " " + word
			default:
				lines = append(lines, line)
				line = word
			}
		}
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
