// Package journal records developer-facing diagnostics from the bridge core:
// protocol violations, host exceptions and subscriber panics.
package journal

import "time"

// Kind classifies a journal entry.
type Kind string

const (
	// KindProtocolViolation marks a callback the bridge could not match to a
	// pending call (unknown or already resolved id, or no recoverable id).
	KindProtocolViolation Kind = "protocol_violation"
	// KindHostException marks a host function that failed synchronously.
	KindHostException Kind = "host_exception"
	// KindHandlerPanic marks an event subscriber that panicked.
	KindHandlerPanic Kind = "handler_panic"
	// KindEventDropped marks a push notification that could not be decoded or routed.
	KindEventDropped Kind = "event_dropped"
)

// Entry is one diagnostic record.
type Entry struct {
	Kind           Kind      `json:"kind"`
	CallID         int64     `json:"callId,omitempty"`
	SubscriptionID string    `json:"subscriptionId,omitempty"`
	EventType      string    `json:"eventType,omitempty"`
	Message        string    `json:"message"`
	Raw            string    `json:"raw,omitempty"`
	Created        time.Time `json:"created"`
}
