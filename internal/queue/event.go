// Package queue defines the message payloads exchanged over the broker
// and the background consumer that turns them into the activity log.
package queue

// Activity event types published to the crew.activity queue.
const (
	EventRegistrationConfirmed = "registration.confirmed"
	EventRegistrationCancelled = "registration.cancelled"
	EventSessionsClosed        = "sessions.closed"
)

// ActivityEvent is published whenever session participation changes or
// the sweeper closes expired sessions.  It carries enough context for
// downstream consumers to log or notify without querying the primary
// database.
type ActivityEvent struct {
	Type       string `json:"type"`
	SessionID  uint64 `json:"session_id,omitempty"`
	UserID     uint64 `json:"user_id,omitempty"`
	Count      int    `json:"count,omitempty"`
	Capacity   uint32 `json:"capacity,omitempty"`
	Closed     int64  `json:"closed,omitempty"`
	OccurredAt string `json:"occurred_at"`
}
