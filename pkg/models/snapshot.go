package models

import "time"

// Snapshot is an immutable view of the alert table: the last authoritative
// fetch with any pending optimistic mutations overlaid. A new Snapshot is
// produced on every state change; holders must never mutate one.
type Snapshot struct {
	Alerts     []Alert   `json:"alerts"`
	Generation uint64    `json:"generation"`
	TakenAt    time.Time `json:"takenAt"`
}

// Get returns the alert with the given ID, if present
func (s Snapshot) Get(id string) (Alert, bool) {
	for _, alert := range s.Alerts {
		if alert.ID == id {
			return alert, true
		}
	}
	return Alert{}, false
}

// OpenCount counts the rows not yet closed
func (s Snapshot) OpenCount() int {
	count := 0
	for _, alert := range s.Alerts {
		if alert.IsOpen() {
			count++
		}
	}
	return count
}
