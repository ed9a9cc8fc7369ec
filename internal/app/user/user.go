/*
Package user contains core data structures related to user identity and presence status.

It defines the basic representation of a messenger account (the User struct),
used for passing user information both internally and to clients.
*/
package user

import "time"

// Status is the presence state a user advertises to their buddies.
type Status string

const (
	StatusOnline    Status = "online"
	StatusAway      Status = "away"
	StatusInvisible Status = "invisible"
)

// ValidStatus reports whether s is one of the recognized presence states.
func ValidStatus(s Status) bool {
	switch s {
	case StatusOnline, StatusAway, StatusInvisible:
		return true
	}
	return false
}

// User represents a messenger account. Fields use JSON tags for serialization
// in WebSocket events and API responses. The password hash never leaves the
// store layer.
type User struct {
	// ID is the numeric account identifier.
	ID int64 `json:"id"`

	// ScreenName is the unique handle shown on buddy lists and chat windows.
	ScreenName string `json:"screenName"`

	// Status is the advertised presence state (online, away, invisible).
	Status Status `json:"status"`

	// AwayMessage is the free-form text shown while the user is away.
	AwayMessage string `json:"awayMessage,omitempty"`

	// ProfileText is the user's profile blurb.
	ProfileText string `json:"profileText,omitempty"`

	// BuddyIconURL points at the user's buddy icon, if one was uploaded.
	BuddyIconURL string `json:"buddyIconUrl,omitempty"`

	// CreatedAt is the account creation time.
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// BuddyEntry is one row of a buddy list: the buddy's identity plus the
// owner's per-buddy preferences and the buddy's durable presence fields.
type BuddyEntry struct {
	User

	// GroupName is the buddy-list group the entry is filed under.
	GroupName string `json:"groupName"`

	// EnableAlerts controls whether the owner hears an alert when this buddy
	// signs on.
	EnableAlerts bool `json:"enableAlerts"`

	// CustomSoundAlert optionally names the alert sound variant for this buddy.
	CustomSoundAlert string `json:"customSoundAlert,omitempty"`

	// Online is the live in-memory presence of the buddy, filled in by the
	// request layer from the Presence Tracker.
	Online bool `json:"online"`
}
