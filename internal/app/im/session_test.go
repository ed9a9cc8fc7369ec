package im

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retroim/internal/app/user"
)

func TestSessionStartsUnauthenticated(t *testing.T) {
	h := NewHub(newFakeStore(), &fakeForwarder{})
	s, _ := newTestSession(h)

	assert.Equal(t, int64(0), s.UserID())

	_, authed := s.Identity()
	assert.False(t, authed)
}

func TestHandleInboundMalformedFrameIsDropped(t *testing.T) {
	st := newFakeStore()
	h := NewHub(st, &fakeForwarder{})
	s, conn := newTestSession(h)

	s.handleInbound([]byte(`{"type": "message", "toUserId": `))
	s.handleInbound([]byte(`not json at all`))
	s.handleInbound([]byte(`{"type": "frobnicate"}`))

	// malformed input never closes the connection and never produces a reply
	assert.False(t, conn.isClosed())
	assert.Empty(t, drainEvents(t, s))
	assert.Empty(t, st.savedMessages())
}

func TestHandleInboundAuthenticateBindsIdentity(t *testing.T) {
	st := newFakeStore()
	st.addUser(user.User{ID: 5, ScreenName: "smarterchild"})

	h := NewHub(st, &fakeForwarder{})
	s, _ := newTestSession(h)

	s.handleInbound([]byte(`{"type": "authenticate", "userId": 5}`))

	identity, authed := s.Identity()
	require.True(t, authed)
	assert.Equal(t, "smarterchild", identity.ScreenName)
	assert.True(t, h.IsOnline(5))
}

func TestAuthenticateOnActiveSessionIgnored(t *testing.T) {
	st := newFakeStore()
	st.addUser(user.User{ID: 5, ScreenName: "smarterchild"})
	st.addUser(user.User{ID: 6, ScreenName: "intruder"})

	h := NewHub(st, &fakeForwarder{})
	s, _ := newTestSession(h)

	s.handleInbound([]byte(`{"type": "authenticate", "userId": 5}`))
	s.handleInbound([]byte(`{"type": "authenticate", "userId": 6}`))

	identity, authed := s.Identity()
	require.True(t, authed)
	assert.Equal(t, int64(5), identity.ID, "a bound session must not switch identity")
	assert.False(t, h.IsOnline(6))
}

func TestUnauthenticatedTypingAndMessageIgnored(t *testing.T) {
	st := newFakeStore()
	st.addUser(user.User{ID: 2, ScreenName: "bobcat"})

	h := NewHub(st, &fakeForwarder{})

	bobSession, _ := newTestSession(h)
	h.Authenticate(context.Background(), bobSession, 2)
	drainEvents(t, bobSession)

	anon, _ := newTestSession(h)
	anon.handleInbound([]byte(`{"type": "typing", "toUserId": 2, "isTyping": true}`))
	anon.handleInbound([]byte(`{"type": "message", "toUserId": 2, "content": "hi"}`))

	assert.Empty(t, drainEvents(t, bobSession))
	assert.Empty(t, st.savedMessages())
}

func TestMessageEventDeliversThroughPipeline(t *testing.T) {
	st := newFakeStore()
	st.addUser(user.User{ID: 1, ScreenName: "alice77"})
	st.addUser(user.User{ID: 2, ScreenName: "bobcat"})

	h := NewHub(st, &fakeForwarder{})

	aliceSession, _ := newTestSession(h)
	h.Authenticate(context.Background(), aliceSession, 1)
	bobSession, _ := newTestSession(h)
	h.Authenticate(context.Background(), bobSession, 2)
	drainEvents(t, aliceSession)
	drainEvents(t, bobSession)

	aliceSession.handleInbound([]byte(`{"type": "message", "toUserId": 2, "content": "wanna trade warez?"}`))

	saved := st.savedMessages()
	require.Len(t, saved, 1)
	assert.Equal(t, int64(1), saved[0].FromUserID)
	assert.Equal(t, int64(2), saved[0].ToUserID)

	events := drainEvents(t, bobSession)
	require.Len(t, events, 1)
	assert.Equal(t, "new_message", events[0]["type"])
}

func TestMessageOverContentLimitDropped(t *testing.T) {
	st := newFakeStore()
	st.addUser(user.User{ID: 1, ScreenName: "alice77"})

	h := NewHub(st, &fakeForwarder{})

	s, _ := newTestSession(h)
	h.Authenticate(context.Background(), s, 1)

	frame := fmt.Sprintf(`{"type": "message", "toUserId": 2, "content": %q}`,
		strings.Repeat("x", MaxContentBytes+1))
	s.handleInbound([]byte(frame))

	assert.Empty(t, st.savedMessages())
}

func TestEnqueueOnClosedSessionReportsFalse(t *testing.T) {
	h := NewHub(newFakeStore(), &fakeForwarder{})
	s, _ := newTestSession(h)

	s.shutdown()

	assert.False(t, s.Enqueue(TypingEvent{Type: EventTyping, FromUserID: 1, IsTyping: true}))
}

func TestEnqueueDropsWhenQueueFull(t *testing.T) {
	h := NewHub(newFakeStore(), &fakeForwarder{})
	s, _ := newTestSession(h)

	event := TypingEvent{Type: EventTyping, FromUserID: 1, IsTyping: true}

	for i := 0; i < sendQueueSize; i++ {
		require.True(t, s.Enqueue(event))
	}

	assert.False(t, s.Enqueue(event), "a full queue drops instead of blocking")
}

func TestShutdownIsSafeToRepeat(t *testing.T) {
	h := NewHub(newFakeStore(), &fakeForwarder{})
	s, conn := newTestSession(h)

	s.shutdown()
	s.shutdown()

	assert.True(t, conn.isClosed())
}
