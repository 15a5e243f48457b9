// Package sse carries engine events to in-process listeners and to browsers over Server-Sent Events.
package sse

import (
	"time"
)

// EventType represents the type of an engine event.
type EventType string

const (
	// EventConnected is sent once when a stream opens.
	EventConnected EventType = "connected"
	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"

	// EventCollectionChanged is emitted after a full snapshot replaced a cached collection.
	EventCollectionChanged EventType = "collection.changed"
	// EventIndexRebuilt is emitted after the derived indexes were recomputed.
	EventIndexRebuilt EventType = "index.rebuilt"
	// EventViewDirty marks views whose current page must be re-resolved.
	EventViewDirty EventType = "view.dirty"
	// EventViewLoading asks presentation to show a skeleton for a view.
	EventViewLoading EventType = "view.loading"

	// EventNotification is a user-facing toast.
	EventNotification EventType = "notification"

	// EventMutationReverted is emitted when an optimistic change was rolled back.
	EventMutationReverted EventType = "mutation.reverted"
)

// Level is the severity of a notification.
type Level string

// Notification levels.
const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Event represents an engine event.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`

	// UserID restricts delivery to streams opened by that user. Empty means everyone.
	UserID string `json:"-"`
}

// CollectionChangedEventData names the collection a snapshot replaced.
type CollectionChangedEventData struct {
	Collection string `json:"collection"`
	Scope      string `json:"scope,omitempty"`
	Count      int    `json:"count"`
}

// IndexRebuiltEventData reports the sizes of the rebuilt indexes.
type IndexRebuiltEventData struct {
	Ranking    int `json:"ranking"`
	Recency    int `json:"recency"`
	Favorites  int `json:"favorites"`
	AdminManga int `json:"admin_manga"`
	AdminGame  int `json:"admin_game"`
	AdminOther int `json:"admin_unknown"`
}

// ViewDirtyEventData lists the views to re-resolve.
type ViewDirtyEventData struct {
	Views []string `json:"views"`
}

// ViewLoadingEventData asks for a skeleton of PageSize cards.
type ViewLoadingEventData struct {
	View     string `json:"view"`
	PageSize int    `json:"page_size"`
}

// NotificationEventData is the payload of a toast.
type NotificationEventData struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// MutationRevertedEventData describes a rolled back optimistic change.
type MutationRevertedEventData struct {
	Kind   string `json:"kind"`
	Target string `json:"target"`
	Reason string `json:"reason"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewCollectionChangedEvent reports a replaced collection.
func NewCollectionChangedEvent(collection, scope string, count int) Event {
	return Event{
		Type:      EventCollectionChanged,
		Timestamp: time.Now(),
		Data:      CollectionChangedEventData{Collection: collection, Scope: scope, Count: count},
	}
}

// NewIndexRebuiltEvent reports rebuilt index sizes.
func NewIndexRebuiltEvent(data IndexRebuiltEventData) Event {
	return Event{Type: EventIndexRebuilt, Timestamp: time.Now(), Data: data}
}

// NewViewDirtyEvent marks views for re-resolution.
func NewViewDirtyEvent(views ...string) Event {
	return Event{Type: EventViewDirty, Timestamp: time.Now(), Data: ViewDirtyEventData{Views: views}}
}

// NewViewLoadingEvent asks for a skeleton.
func NewViewLoadingEvent(view string, pageSize int) Event {
	return Event{
		Type:      EventViewLoading,
		Timestamp: time.Now(),
		Data:      ViewLoadingEventData{View: view, PageSize: pageSize},
	}
}

// NewNotificationEvent creates a toast for one user, or for everyone when userID is empty.
func NewNotificationEvent(userID string, level Level, message string) Event {
	return Event{
		Type:      EventNotification,
		Timestamp: time.Now(),
		Data:      NotificationEventData{Level: level, Message: message},
		UserID:    userID,
	}
}

// NewMutationRevertedEvent reports a rollback to the user who made the change.
func NewMutationRevertedEvent(userID, kind, target, reason string) Event {
	return Event{
		Type:      EventMutationReverted,
		Timestamp: time.Now(),
		Data:      MutationRevertedEventData{Kind: kind, Target: target, Reason: reason},
		UserID:    userID,
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	return Event{
		Type:      EventHeartbeat,
		Timestamp: time.Now(),
		Data:      HeartbeatEventData{ServerTime: time.Now()},
	}
}
