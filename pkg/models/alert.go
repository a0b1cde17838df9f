package models

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle state of an alert
type Status string

const (
	StatusOpen         Status = "open"
	StatusAcknowledged Status = "acknowledged"
	StatusClosed       Status = "closed"
)

// ParseStatus normalizes the status strings the JSM API is known to return
func ParseStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "acked", "acknowledged":
		return StatusAcknowledged
	case "closed", "resolved":
		return StatusClosed
	case "open", "":
		return StatusOpen
	default:
		return Status(strings.ToLower(strings.TrimSpace(raw)))
	}
}

// Rank orders statuses along the forward lifecycle. Unrecognized statuses
// rank alongside open so an optimistic intent is never confirmed by them.
func (s Status) Rank() int {
	switch s {
	case StatusAcknowledged:
		return 1
	case StatusClosed:
		return 2
	default:
		return 0
	}
}

// Alert represents a single JSM alert as shown in the dashboard
type Alert struct {
	ID          string    `json:"id"`
	Priority    string    `json:"priority"`
	Status      Status    `json:"status"`
	Message     string    `json:"message"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt,omitzero"`
	AckedBy     string    `json:"ackedBy"`
	Tags        []string  `json:"tags,omitempty"`

	// Pending marks a snapshot row carrying an unconfirmed local mutation
	Pending bool `json:"pending,omitempty"`
}

// AlertFromPayload builds an Alert from a raw API payload. The JSM API is
// inconsistent about field names across endpoints and tenant versions, so
// every field is resolved through a fallback chain.
func AlertFromPayload(payload map[string]interface{}) Alert {
	createdAt := parseTimestamp(firstPresent(payload,
		"createdAt", "created_at", "insertedAt", "lastOccurredAt"))

	ackedBy := firstNonEmpty(
		personName(payload["acknowledgedBy"]),
		personName(payload["acknowledged_by"]),
		personName(payload["acknowledgers"]),
		personName(payload["acknowledgedByUser"]),
		personName(payload["owner"]),
	)
	ackedBy = formatAckedBy(ackedBy)

	message := stringValue(payload["message"])
	if message == "" {
		message = stringValue(payload["alias"])
	}
	if message == "" {
		message = "(no message)"
	}

	description := stringValue(payload["description"])
	if description == "" {
		description = stringValue(payload["details"])
	}
	if description == "" {
		description = message
	}

	id := stringValue(payload["id"])
	if id == "" {
		id = stringValue(payload["tinyId"])
	}

	priority := stringValue(payload["priority"])
	if priority == "" {
		priority = "unknown"
	}

	return Alert{
		ID:          id,
		Priority:    strings.ToUpper(priority),
		Status:      ParseStatus(stringValue(payload["status"])),
		Message:     message,
		Description: description,
		CreatedAt:   createdAt,
		AckedBy:     ackedBy,
		Tags:        extractTags(payload),
	}
}

// Age renders how long the alert has been open, bucketed to the largest
// non-zero unit the way the dashboard column expects ("3d", "5h", "12m").
func (a Alert) Age(now time.Time) string {
	if a.CreatedAt.IsZero() {
		return "-"
	}

	seconds := int(now.Sub(a.CreatedAt).Seconds())
	if seconds < 0 {
		seconds = 0
	}

	days := seconds / 86400
	hours := (seconds % 86400) / 3600
	minutes := (seconds % 3600) / 60

	if days > 0 {
		return fmt.Sprintf("%dd", days)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dm", minutes)
}

// IsOpen reports whether the alert still belongs in the open-alert table
func (a Alert) IsOpen() bool {
	return a.Status != StatusClosed
}

// TagsDisplay renders the tag list for a table cell
func (a Alert) TagsDisplay() string {
	if len(a.Tags) == 0 {
		return "-"
	}
	return strings.Join(a.Tags, ", ")
}

func firstPresent(payload map[string]interface{}, keys ...string) interface{} {
	for _, key := range keys {
		if value, ok := payload[key]; ok && value != nil {
			if s, isString := value.(string); isString && s == "" {
				continue
			}
			return value
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return "-"
}

func stringValue(value interface{}) string {
	s, ok := value.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// personName resolves the many shapes the API uses for a person reference:
// a plain string, an object with one of several name keys, or a list of
// either.
func personName(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]interface{}:
		for _, key := range []string{"fullName", "displayName", "name", "username", "email", "emailAddress"} {
			if name := stringValue(v[key]); name != "" {
				return name
			}
		}
	case []interface{}:
		var names []string
		for _, item := range v {
			name := strings.TrimSpace(personName(item))
			if name == "" || name == "-" || contains(names, name) {
				continue
			}
			names = append(names, name)
		}
		return strings.Join(names, ", ")
	}
	return ""
}

func extractTags(payload map[string]interface{}) []string {
	for _, key := range []string{"tags", "alertTags", "labels"} {
		raw, ok := payload[key].([]interface{})
		if !ok {
			continue
		}
		var tags []string
		for _, item := range raw {
			tag := tagName(item)
			if tag != "" && !contains(tags, tag) {
				tags = append(tags, tag)
			}
		}
		if len(tags) > 0 {
			return tags
		}
	}
	return nil
}

func tagName(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]interface{}:
		for _, key := range []string{"name", "label", "value", "key"} {
			if tag := stringValue(v[key]); tag != "" {
				return tag
			}
		}
	}
	return ""
}

func parseTimestamp(raw interface{}) time.Time {
	s, ok := raw.(string)
	if !ok || s == "" {
		return time.Time{}
	}
	// API returns RFC3339 timestamps.
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// formatAckedBy shortens email addresses to their local part so the column
// stays readable.
func formatAckedBy(value string) string {
	var normalized []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if at := strings.Index(part, "@"); at > 0 {
			part = part[:at]
		}
		normalized = append(normalized, part)
	}
	if len(normalized) == 0 {
		return "-"
	}
	return strings.Join(normalized, ", ")
}

func contains(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
