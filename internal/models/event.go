package models

import "time"

// Event types delivered on the state-change stream.
const (
	EventHello      = "hello"
	EventAppAdded   = "app_added"
	EventAppUpdated = "app_updated"
	EventAppRemoved = "app_removed"
	EventDrift      = "drift"
	EventRestart    = "restart"
)

// Event is one notification on the state-change stream. App carries the full
// updated record where one exists; AppID alone identifies removals and
// process-level events.
type Event struct {
	Timestamp time.Time   `json:"timestamp"`
	App       *TrackedApp `json:"app,omitempty"`
	Type      string      `json:"type"`
	AppID     string      `json:"app_id,omitempty"`
	Message   string      `json:"message,omitempty"`
}
