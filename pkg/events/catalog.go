// Package events delivers unsolicited host push notifications (room, player,
// network and auth state changes) to subscribers.
package events

import "strings"

// Event categories.
const (
	CategoryMatchmaking = "matchmaking"
	CategoryMultiplayer = "multiplayer"
	CategoryNetwork     = "network"
	CategoryAuth        = "auth"
)

// Recognised event types per category.
var catalog = map[string][]string{
	CategoryMatchmaking: {
		"RoomCreated", "RoomJoined", "RoomLeft", "RoomClosed",
		"ActorJoined", "ActorLeft", "RoomListUpdated", "MasterChanged",
	},
	CategoryMultiplayer: {
		"Connected", "Disconnected", "MessageReceived", "PlayerJoined", "PlayerLeft",
	},
	CategoryNetwork: {
		"ConnectionStateChanged", "Reconnected", "NetworkError",
	},
	CategoryAuth: {
		"LoginCompleted", "LogoutCompleted", "TokenRefreshed",
	},
}

// categoryOf maps each event type to its category. Event type names are
// unique across categories.
var categoryOf = func() map[string]string {
	m := make(map[string]string)
	for cat, types := range catalog {
		for _, t := range types {
			m[t] = cat
		}
	}
	return m
}()

// Key builds the composite subscription key for a category and type.
func Key(category, eventType string) string {
	return category + ":" + eventType
}

// Categories returns the recognised categories.
func Categories() []string {
	return []string{CategoryMatchmaking, CategoryMultiplayer, CategoryNetwork, CategoryAuth}
}

// CategoryOf returns the category of a recognised event type.
func CategoryOf(eventType string) (string, bool) {
	c, ok := categoryOf[eventType]
	return c, ok
}

// normalizeKey resolves a subscription key to either an exact "category:Type"
// key or a bare category. ok is false for anything not in the catalog.
func normalizeKey(key string) (normalized string, categoryWide bool, ok bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false, false
	}
	if cat, typ, found := strings.Cut(key, ":"); found {
		if c, known := categoryOf[typ]; known && c == cat {
			return key, false, true
		}
		return "", false, false
	}
	if _, known := catalog[key]; known {
		return key, true, true
	}
	if c, known := categoryOf[key]; known {
		return Key(c, key), false, true
	}
	return "", false, false
}
