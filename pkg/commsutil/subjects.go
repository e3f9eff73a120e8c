package commsutil

import (
	"fmt"
	"strings"
)

// Default COMMS subjects.
const (
	// SubjectHostPrefix prefixes host calls: <prefix>.<method>.
	SubjectHostPrefix = "viverse.sdk.call"
	// SubjectHostEvents carries push notifications from the host: <subject>.<category>.
	SubjectHostEvents = "viverse.sdk.events"
	// SubjectForwardPrefix prefixes republished events: <prefix>.<category>.<type>.
	SubjectForwardPrefix = "viverse.event"
	// SubjectForwardAll receives every republished event.
	SubjectForwardAll = "viverse.event"
)

// BuildHostSubject builds the subject a host call for method is published on.
func BuildHostSubject(prefix, method string) string {
	return fmt.Sprintf("%s.%s", prefix, method)
}

// MethodFromSubject recovers the method name from a host call subject.
func MethodFromSubject(prefix, subject string) string {
	return strings.TrimPrefix(subject, prefix+".")
}

// BuildReplySubject builds the per-call reply subject under inbox.
func BuildReplySubject(inbox string, taskID int64) string {
	return fmt.Sprintf("%s.%d", inbox, taskID)
}

// BuildHostEventSubject builds the subject a host push event for category is published on.
func BuildHostEventSubject(subject, category string) string {
	if category == "" {
		category = "legacy"
	}
	return fmt.Sprintf("%s.%s", subject, category)
}

// BuildEventSubject builds a granular republished event subject.
func BuildEventSubject(prefix, category, eventType string) string {
	return fmt.Sprintf("%s.%s.%s", prefix, category, eventType)
}
