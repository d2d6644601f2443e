// Package sse streams a client instance's repaints, search overlay changes and
// notices to its browser tab as Server-Sent Events.
package sse

import (
	"time"

	"github.com/flashcardexchange/flashcards/internal/client"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventConnected is sent once when a stream opens.
	EventConnected EventType = "connected"
	// EventRegionPainted carries a repainted region's markup and patch.
	EventRegionPainted EventType = "region.painted"
	// EventSearchOverlay carries the search overlay's visibility and hit count.
	EventSearchOverlay EventType = "search.overlay"
	// EventNotice carries a blocking message for the user.
	EventNotice EventType = "notice"
	// EventHeartbeat keeps idle connections open.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`

	// ClientID routes the event to the streams of one client instance.
	// Empty means every stream.
	ClientID string `json:"-"`
}

// RegionPaintedData is the payload of region.painted.
type RegionPaintedData struct {
	Region  string   `json:"region"`
	Gen     uint64   `json:"gen"`
	HTML    string   `json:"html"`
	Added   []string `json:"added,omitempty"`
	Changed []string `json:"changed,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewRegionPaintedEvent creates a region.painted event for clientID.
func NewRegionPaintedEvent(clientID string, e client.RenderEvent) Event {
	return Event{
		Type:     EventRegionPainted,
		ClientID: clientID,
		Data: RegionPaintedData{
			Region:  e.Region,
			Gen:     e.Gen,
			HTML:    e.HTML,
			Added:   e.Patch.Added,
			Changed: e.Patch.Changed,
			Removed: e.Patch.Removed,
		},
		Timestamp: time.Now(),
	}
}

// NewSearchOverlayEvent creates a search.overlay event for clientID.
func NewSearchOverlayEvent(clientID string, e client.SearchEvent) Event {
	return Event{
		Type:      EventSearchOverlay,
		ClientID:  clientID,
		Data:      e,
		Timestamp: time.Now(),
	}
}

// NewNoticeEvent creates a notice event for clientID.
func NewNoticeEvent(clientID string, n client.Notice) Event {
	return Event{
		Type:      EventNotice,
		ClientID:  clientID,
		Data:      n,
		Timestamp: time.Now(),
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	return Event{
		Type: EventHeartbeat,
		Data: HeartbeatEventData{
			ServerTime: time.Now(),
		},
		Timestamp: time.Now(),
	}
}
