/*
Package im implements the real-time presence and messaging core.

This file defines the Session struct, the per-connection state machine. A
session is created unauthenticated on transport connect, becomes bound to a
user identity on a valid authenticate event, and is torn down exactly once on
transport close. It owns its connection; the Registry only holds a non-owning
reference for fan-out.
*/
package im

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"retroim/internal/app/user"
	"retroim/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxFrameSize = 8192

	// capacity of the per-session outbound queue.
	sendQueueSize = 256
)

// Conn is the subset of *websocket.Conn the session uses. Narrowing the
// dependency keeps the state machine testable without a network.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

type sessionState int

const (
	stateUnauthenticated sessionState = iota
	stateAuthenticated
	stateClosed
)

// Session represents one WebSocket connection and, after authentication, its
// associated user identity.
type Session struct {
	hub  *Hub
	conn Conn

	// mu guards state, identity and closed. Reads/writes of the state machine
	// happen on the read-pump goroutine, but Enqueue and Teardown may be
	// called from any goroutine.
	mu       sync.Mutex
	state    sessionState
	identity user.User
	closed   bool

	// send is the buffered queue drained by WritePump.
	send chan []byte

	logger zerolog.Logger
}

// NewSession constructs an unauthenticated Session for a freshly upgraded
// connection.
func NewSession(hub *Hub, conn Conn) *Session {
	return &Session{
		hub:    hub,
		conn:   conn,
		state:  stateUnauthenticated,
		send:   make(chan []byte, sendQueueSize),
		logger: logx.Logger().With().Str("component", "session").Logger(),
	}
}

// UserID returns the bound user id, or 0 while unauthenticated.
func (s *Session) UserID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateAuthenticated {
		return 0
	}
	return s.identity.ID
}

// Identity returns the bound user record and whether the session is authenticated.
func (s *Session) Identity() (user.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.identity, s.state == stateAuthenticated
}

// bind associates the session with a resolved user identity and moves it to
// the authenticated state.
func (s *Session) bind(u user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.identity = u
	s.state = stateAuthenticated
	s.logger = s.logger.With().Int64("user_id", u.ID).Str("screen_name", u.ScreenName).Logger()
}

// closeIdentity transitions the session to CLOSED and reports the identity it
// held, with wasAuthenticated true only on the first call that finds the
// session authenticated. This is what makes teardown side effects happen at
// most once.
func (s *Session) closeIdentity() (u user.User, wasAuthenticated bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wasAuthenticated = s.state == stateAuthenticated
	u = s.identity
	s.state = stateClosed
	return u, wasAuthenticated
}

// Enqueue marshals the event and queues it for delivery. It reports false when
// the session is closed or its queue is full; callers treat that as "recipient
// not reachable" and drop the event.
func (s *Session) Enqueue(event any) bool {
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error marshaling outbound event")
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	select {
	case s.send <- data:
		return true
	default:
		s.logger.Warn().Int("queue_len", len(s.send)).Msg("Session send queue full, dropping event")
		return false
	}
}

// shutdown closes the outbound queue and the transport. Safe to call more than
// once.
func (s *Session) shutdown() {
	s.mu.Lock()
	alreadyClosed := s.closed
	s.closed = true
	s.mu.Unlock()

	if alreadyClosed {
		return
	}

	close(s.send)

	if err := s.conn.Close(); err != nil {
		s.logger.Debug().Err(err).Msg("Session connection close error")
	}
}

// ReadPump reads frames from the connection until it fails or closes, feeding
// each into the inbound dispatch. It performs the teardown path on exit, so
// transport errors and clean closes resolve identically.
func (s *Session) ReadPump() {
	defer s.hub.Teardown(s)

	s.conn.SetReadLimit(maxFrameSize)

	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Info().Err(err).Msg("Error reading frame (client close/going away)")
			}
			break
		}

		s.handleInbound(frame)
	}
}

// handleInbound dispatches one raw inbound frame according to the session
// state. Malformed frames are logged and dropped; they never close the
// connection and never produce a reply.
func (s *Session) handleInbound(frame []byte) {
	var envelope struct {
		Type EventType `json:"type"`
	}

	if err := json.Unmarshal(frame, &envelope); err != nil {
		s.logger.Warn().Err(err).Bytes("frame", frame).Msg("Client sent invalid JSON")
		return
	}

	switch envelope.Type {
	case EventAuthenticate:
		s.handleAuthenticate(frame)

	case EventTyping:
		s.handleTyping(frame)

	case EventMessage:
		s.handleMessage(frame)

	default:
		s.logger.Warn().Str("event_type", string(envelope.Type)).Msg("Client sent unsupported event type")
	}
}

func (s *Session) handleAuthenticate(frame []byte) {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	if state != stateUnauthenticated {
		s.logger.Warn().Msg("Authenticate event on an active session ignored")
		return
	}

	var p authenticatePayload
	if err := json.Unmarshal(frame, &p); err != nil {
		s.logger.Warn().Err(err).Msg("Client sent invalid authenticate payload")
		return
	}

	s.hub.Authenticate(context.Background(), s, p.UserID)
}

func (s *Session) handleTyping(frame []byte) {
	from, ok := s.Identity()
	if !ok {
		s.logger.Debug().Msg("Typing event from unauthenticated session ignored")
		return
	}

	var p typingPayload
	if err := json.Unmarshal(frame, &p); err != nil {
		s.logger.Warn().Err(err).Msg("Client sent invalid typing payload")
		return
	}

	s.hub.RelayTyping(from.ID, p.ToUserID, p.IsTyping)
}

func (s *Session) handleMessage(frame []byte) {
	from, ok := s.Identity()
	if !ok {
		s.logger.Debug().Msg("Message event from unauthenticated session ignored")
		return
	}

	var p messagePayload
	if err := json.Unmarshal(frame, &p); err != nil {
		s.logger.Warn().Err(err).Msg("Client sent invalid message payload")
		return
	}

	if len(p.Content) > MaxContentBytes {
		s.logger.Warn().Int("content_bytes", len(p.Content)).Msg("Message content over limit dropped")
		return
	}

	incoming := IncomingMessage{
		FromUserID: from.ID,
		ToUserID:   p.ToUserID,
		Content:    p.Content,
		Formatting: p.Formatting,
		ImageURL:   p.ImageURL,
	}

	// The WS submission path has no failure reply; durability errors are
	// logged and the sender finds out through the HTTP path or history.
	if _, err := s.hub.DeliverMessage(context.Background(), incoming); err != nil {
		s.logger.Error().Err(err).Int64("to_user_id", p.ToUserID).Msg("Failed to deliver message from session")
	}
}

// WritePump drains the send queue onto the connection and keeps the heartbeat
// alive. It exits when the queue is closed or a write fails.
func (s *Session) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := s.conn.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("Session connection close error in WritePump")
		}
	}()

	for {
		select {
		case data, ok := <-s.send:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				s.logger.Error().Err(err).Msg("Failed to set write deadline")
				return
			}

			if !ok {
				if err := s.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					s.logger.Debug().Err(err).Msg("Error writing close message")
				}
				return
			}

			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Warn().Err(err).Msg("Error writing event")
				return
			}

		case <-ticker.C:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				s.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
				return
			}

			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logger.Debug().Err(err).Msg("Error writing ping")
				return
			}
		}
	}
}
