package im

import "time"

// MaxContentBytes is the maximum allowed size (in bytes) of message content.
const MaxContentBytes = 5000

// Formatting carries the rich-text attributes a client attached to a message.
// The server treats it as opaque: it is stored and relayed, never interpreted.
type Formatting struct {
	Bold       bool   `json:"bold,omitempty"`
	Italic     bool   `json:"italic,omitempty"`
	Underline  bool   `json:"underline,omitempty"`
	Color      string `json:"color,omitempty"`
	FontFamily string `json:"fontFamily,omitempty"`
	FontSize   int    `json:"fontSize,omitempty"`
}

// IncomingMessage is a message as submitted by a sender, before it has been
// assigned an id and timestamp by the store.
type IncomingMessage struct {
	FromUserID int64       `json:"fromUserId"`
	ToUserID   int64       `json:"toUserId"`
	Content    string      `json:"content"`
	Formatting *Formatting `json:"formatting,omitempty"`
	ImageURL   string      `json:"imageUrl,omitempty"`
}

// Message is the canonical stored form of an instant message, as returned to
// the submitting caller and pushed to live recipients.
type Message struct {
	ID         string      `json:"id"`
	FromUserID int64       `json:"fromUserId"`
	ToUserID   int64       `json:"toUserId"`
	Content    string      `json:"content"`
	Formatting *Formatting `json:"formatting,omitempty"`
	ImageURL   string      `json:"imageUrl,omitempty"`
	Read       bool        `json:"read"`
	SentAt     time.Time   `json:"sentAt"`
}
