/*
Package im implements the real-time presence and messaging core.

This file defines the Hub, the injected service object that owns the Registry
and Tracker and coordinates authentication, message delivery, typing relay and
presence fan-out. One Hub serves the whole process; tests construct isolated
instances.
*/
package im

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"retroim/internal/app/user"
	"retroim/internal/pkg/logx"
)

const (
	// budget for the fire-and-forget forwarding call.
	forwardTimeout = 5 * time.Second

	// budget for store writes performed during teardown, which runs outside
	// any request context.
	teardownTimeout = 5 * time.Second
)

// Store is the slice of the storage collaborator the core needs. Misses are
// reported through errors; the hub treats every lookup failure as a soft
// outcome except message persistence, which is the one hard guarantee.
type Store interface {
	GetUser(ctx context.Context, id int64) (user.User, error)
	GetBuddyList(ctx context.Context, userID int64) ([]user.BuddyEntry, error)
	GetBuddyAlertSettings(ctx context.Context, observerID, subjectID int64) (AlertSettings, error)
	SaveMessage(ctx context.Context, in IncomingMessage) (Message, error)
	SetUserOnline(ctx context.Context, id int64) error
	SetUserOffline(ctx context.Context, id int64) error
}

// Forwarder is the best-effort offline forwarding collaborator. Its failure
// never blocks persistence or delivery.
type Forwarder interface {
	ForwardMessageIfNeeded(ctx context.Context, toUserID int64, fromScreenName, content string) error
}

// Hub coordinates all live sessions. Lifecycle: NewHub, serve connections,
// Shutdown.
type Hub struct {
	registry  *Registry
	tracker   *Tracker
	store     Store
	forwarder Forwarder
	logger    zerolog.Logger
}

// NewHub constructs a Hub with an empty registry and tracker.
func NewHub(st Store, fwd Forwarder) *Hub {
	return &Hub{
		registry:  NewRegistry(),
		tracker:   NewTracker(),
		store:     st,
		forwarder: fwd,
		logger:    logx.Logger().With().Str("component", "hub").Logger(),
	}
}

// IsOnline reports live in-memory presence for userID.
func (h *Hub) IsOnline(userID int64) bool {
	return h.tracker.IsOnline(userID)
}

// OnlineCount returns the number of users currently online.
func (h *Hub) OnlineCount() int {
	return h.tracker.OnlineCount()
}

// Authenticate resolves the claimed user id and, on success, binds the session
// to that identity, registers it for fan-out, marks the user online and
// notifies their buddies. An unknown user id leaves the session
// unauthenticated with no reply; the protocol defines no auth-failure event.
func (h *Hub) Authenticate(ctx context.Context, s *Session, userID int64) {
	u, err := h.store.GetUser(ctx, userID)
	if err != nil {
		h.logger.Warn().Err(err).Int64("user_id", userID).Msg("Authenticate failed to resolve user; session stays unauthenticated")
		return
	}

	s.bind(u)
	h.registry.Register(u.ID, s)
	h.tracker.MarkOnline(u.ID)

	if err := h.store.SetUserOnline(ctx, u.ID); err != nil {
		h.logger.Warn().Err(err).Int64("user_id", u.ID).Msg("Durable online flag update failed")
	}

	h.logger.Info().Int64("user_id", u.ID).Str("screen_name", u.ScreenName).Msg("Session authenticated")

	h.broadcastSignOn(ctx, u)
}

// Teardown runs the disconnect path for a session. It is idempotent: presence
// and registry side effects happen at most once, and a session that was
// replaced by a newer connection for the same user produces none at all.
func (h *Hub) Teardown(s *Session) {
	s.shutdown()

	u, wasAuthenticated := s.closeIdentity()
	if !wasAuthenticated {
		return
	}

	if !h.registry.UnregisterSession(u.ID, s) {
		h.logger.Info().Int64("user_id", u.ID).Msg("Stale session teardown; user is connected elsewhere")
		return
	}

	h.tracker.MarkOffline(u.ID)

	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()

	if err := h.store.SetUserOffline(ctx, u.ID); err != nil {
		h.logger.Warn().Err(err).Int64("user_id", u.ID).Msg("Durable offline flag update failed")
	}

	h.logger.Info().Int64("user_id", u.ID).Msg("Session torn down")

	h.broadcastToBuddies(ctx, u.ID, PresenceEvent{
		Type:       EventUserOffline,
		UserID:     u.ID,
		ScreenName: u.ScreenName,
	})
}

// RelayTyping forwards a typing signal to the target's live session, if any.
// Typing indicators are best effort: a miss or a full queue drops the signal,
// and nothing is persisted or retried.
func (h *Hub) RelayTyping(fromUserID, toUserID int64, isTyping bool) {
	target, ok := h.registry.Lookup(toUserID)
	if !ok {
		return
	}

	target.Enqueue(TypingEvent{
		Type:       EventTyping,
		FromUserID: fromUserID,
		IsTyping:   isTyping,
	})
}

// DeliverMessage is the message delivery pipeline, shared by the HTTP and
// WebSocket submission paths. It persists the message and then pushes it to
// the recipient's live session and back to the sender's (for multi-window
// consistency). Persistence failure is fatal to the submission; live delivery
// failure never is.
func (h *Hub) DeliverMessage(ctx context.Context, in IncomingMessage) (Message, error) {
	var sender *user.User
	if u, err := h.store.GetUser(ctx, in.FromUserID); err != nil {
		// Denormalized sender fields are a nicety; the send still proceeds.
		h.logger.Warn().Err(err).Int64("from_user_id", in.FromUserID).Msg("Sender lookup failed during delivery")
	} else {
		sender = &u
	}

	fromScreenName := ""
	if sender != nil {
		fromScreenName = sender.ScreenName
	}

	go func() {
		fctx, cancel := context.WithTimeout(context.Background(), forwardTimeout)
		defer cancel()

		if err := h.forwarder.ForwardMessageIfNeeded(fctx, in.ToUserID, fromScreenName, in.Content); err != nil {
			h.logger.Warn().Err(err).Int64("to_user_id", in.ToUserID).Msg("Offline forwarding failed")
		}
	}()

	stored, err := h.store.SaveMessage(ctx, in)
	if err != nil {
		return Message{}, fmt.Errorf("save message: %w", err)
	}

	event := NewMessageEvent{
		Type:    EventNewMessage,
		Message: stored,
		Sender:  sender,
	}

	if recipient, ok := h.registry.Lookup(in.ToUserID); ok {
		recipient.Enqueue(event)
	}

	if echo, ok := h.registry.Lookup(in.FromUserID); ok {
		echo.Enqueue(event)
	}

	return stored, nil
}

// NotifyStatusChange fans a status_change event out to the user's buddies.
// Called by the request layer after the durable status update.
func (h *Hub) NotifyStatusChange(ctx context.Context, userID int64, status user.Status, awayMessage string) {
	h.broadcastToBuddies(ctx, userID, StatusChangeEvent{
		Type:        EventStatusChange,
		UserID:      userID,
		Status:      status,
		AwayMessage: awayMessage,
	})
}

// broadcastToBuddies sends one event verbatim to every connected buddy of the
// subject. The buddy list is resolved at call time; fan-out is not
// transactional with respect to concurrent list changes.
func (h *Hub) broadcastToBuddies(ctx context.Context, subjectID int64, event any) {
	buddies, err := h.store.GetBuddyList(ctx, subjectID)
	if err != nil {
		h.logger.Warn().Err(err).Int64("subject_id", subjectID).Msg("Buddy list fetch failed; fan-out skipped")
		return
	}

	for _, b := range buddies {
		target, ok := h.registry.Lookup(b.ID)
		if !ok {
			continue
		}
		target.Enqueue(event)
	}
}

// broadcastSignOn is the alert-aware fan-out variant: every connected buddy
// receives a user_online event enriched with that buddy's own alert preference
// for the subject. A failed preference lookup falls back to defaults and never
// aborts the broadcast.
func (h *Hub) broadcastSignOn(ctx context.Context, subject user.User) {
	buddies, err := h.store.GetBuddyList(ctx, subject.ID)
	if err != nil {
		h.logger.Warn().Err(err).Int64("subject_id", subject.ID).Msg("Buddy list fetch failed; sign-on fan-out skipped")
		return
	}

	for _, b := range buddies {
		target, ok := h.registry.Lookup(b.ID)
		if !ok {
			continue
		}

		settings, err := h.store.GetBuddyAlertSettings(ctx, b.ID, subject.ID)
		if err != nil {
			h.logger.Debug().Err(err).Int64("observer_id", b.ID).Int64("subject_id", subject.ID).Msg("Alert settings fetch failed; using defaults")
			settings = DefaultAlertSettings()
		}

		target.Enqueue(PresenceEvent{
			Type:          EventUserOnline,
			UserID:        subject.ID,
			ScreenName:    subject.ScreenName,
			AlertSettings: &settings,
		})
	}
}

// Shutdown closes every live session and resets the registry and tracker.
func (h *Hub) Shutdown() {
	h.logger.Info().Int("sessions", h.registry.ActiveCount()).Msg("Shutting down hub")

	for _, s := range h.registry.snapshot() {
		s.shutdown()
	}

	h.registry.clear()
	h.tracker.clear()

	h.logger.Info().Msg("Hub shutdown complete")
}
