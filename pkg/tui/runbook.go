package tui

import (
	"os/exec"
	"regexp"
	"runtime"
	"strings"
)

var (
	urlPattern             = regexp.MustCompile(`https?://[^\s<>)]+`)
	runbookMarkdownPattern = regexp.MustCompile(`(?i)\[[^\]]*runbook[^\]]*\]\((https?://[^)\s]+)\)`)
	runbookPlainPattern    = regexp.MustCompile(`(?i)runbook\s*[:=-]?\s*(https?://[^\s<>)]+)`)
)

// ExtractRunbookURL finds the runbook link inside an alert description. It
// prefers a markdown link whose label mentions "runbook", then a plain
// "runbook: <url>" form, then falls back to the first URL in the text.
func ExtractRunbookURL(text string) string {
	if m := runbookMarkdownPattern.FindStringSubmatch(text); m != nil {
		return cleanURL(m[1])
	}
	if m := runbookPlainPattern.FindStringSubmatch(text); m != nil {
		return cleanURL(m[1])
	}
	if m := urlPattern.FindString(text); m != "" {
		return cleanURL(m)
	}
	return ""
}

func cleanURL(url string) string {
	return strings.TrimRight(url, ".,;:")
}

// openURL launches the platform browser without waiting for it
func openURL(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
