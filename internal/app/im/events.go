/*
Package im implements the real-time presence and messaging core: the connection
registry, the in-memory presence tracker, the per-connection session state
machine, and the hub that routes messages and fans presence events out to
buddies.

This file defines the wire events. Every event is a flat JSON object with a
"type" discriminator. Client to server: authenticate, typing, message. Server
to client: new_message, typing, status_change, user_online, user_offline.
*/
package im

import "retroim/internal/app/user"

// EventType discriminates the wire event variants.
type EventType string

const (
	// Client -> server.
	EventAuthenticate EventType = "authenticate"
	EventTyping       EventType = "typing"
	EventMessage      EventType = "message"

	// Server -> client. EventTyping is used in both directions.
	EventNewMessage   EventType = "new_message"
	EventStatusChange EventType = "status_change"
	EventUserOnline   EventType = "user_online"
	EventUserOffline  EventType = "user_offline"
)

// AlertSettings is an observer's notification preference for one subject:
// whether the observer wants a sign-on alert for that buddy and which sound
// variant to play.
type AlertSettings struct {
	EnableAlerts     bool   `json:"enableAlerts"`
	CustomSoundAlert string `json:"customSoundAlert,omitempty"`
}

// DefaultAlertSettings is used when an observer has no stored preference for a
// subject, or the preference lookup fails mid-broadcast.
func DefaultAlertSettings() AlertSettings {
	return AlertSettings{EnableAlerts: true}
}

// Inbound payloads. The full frame is unmarshaled twice: once for the type
// discriminator, once into the variant struct.

type authenticatePayload struct {
	UserID int64 `json:"userId"`
}

type typingPayload struct {
	ToUserID int64 `json:"toUserId"`
	IsTyping bool  `json:"isTyping"`
}

type messagePayload struct {
	ToUserID   int64       `json:"toUserId"`
	Content    string      `json:"content"`
	Formatting *Formatting `json:"formatting,omitempty"`
	ImageURL   string      `json:"imageUrl,omitempty"`
}

// TypingEvent tells a recipient that a buddy started or stopped typing to them.
type TypingEvent struct {
	Type       EventType `json:"type"`
	FromUserID int64     `json:"fromUserId"`
	IsTyping   bool      `json:"isTyping"`
}

// NewMessageEvent pushes a freshly stored message to a live connection. The
// resolved sender record rides along for denormalized display fields; it is
// omitted when the sender lookup failed during delivery.
type NewMessageEvent struct {
	Type    EventType  `json:"type"`
	Message Message    `json:"message"`
	Sender  *user.User `json:"sender,omitempty"`
}

// StatusChangeEvent notifies buddies that a user changed their advertised
// status or away message.
type StatusChangeEvent struct {
	Type        EventType   `json:"type"`
	UserID      int64       `json:"userId"`
	Status      user.Status `json:"status"`
	AwayMessage string      `json:"awayMessage,omitempty"`
}

// PresenceEvent notifies buddies that a user signed on or off. AlertSettings
// is populated per recipient on user_online only; sign-off events carry no
// alert metadata.
type PresenceEvent struct {
	Type          EventType      `json:"type"`
	UserID        int64          `json:"userId"`
	ScreenName    string         `json:"screenName"`
	AlertSettings *AlertSettings `json:"alertSettings,omitempty"`
}
