package im

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retroim/internal/app/user"
)

// fakeConn satisfies Conn without a network.
type fakeConn struct {
	mu     sync.Mutex
	closed bool
}

func (c *fakeConn) ReadMessage() (int, []byte, error) { return 0, nil, errors.New("fakeConn: no reads") }
func (c *fakeConn) WriteMessage(int, []byte) error    { return nil }
func (c *fakeConn) SetReadLimit(int64)                {}
func (c *fakeConn) SetReadDeadline(time.Time) error   { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error  { return nil }
func (c *fakeConn) SetPongHandler(func(string) error) {}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type alertKey struct {
	observer int64
	subject  int64
}

// fakeStore is an in-memory Store with per-call error injection.
type fakeStore struct {
	mu sync.Mutex

	users   map[int64]user.User
	buddies map[int64][]user.BuddyEntry
	alerts  map[alertKey]AlertSettings

	saveErr  error
	alertErr error

	saved      []IncomingMessage
	setOnline  []int64
	setOffline []int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   make(map[int64]user.User),
		buddies: make(map[int64][]user.BuddyEntry),
		alerts:  make(map[alertKey]AlertSettings),
	}
}

func (f *fakeStore) addUser(u user.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = u
}

func (f *fakeStore) addBuddy(ownerID int64, buddy user.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buddies[ownerID] = append(f.buddies[ownerID], user.BuddyEntry{User: buddy})
}

func (f *fakeStore) GetUser(_ context.Context, id int64) (user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[id]
	if !ok {
		return user.User{}, errors.New("fakeStore: user not found")
	}
	return u, nil
}

func (f *fakeStore) GetBuddyList(_ context.Context, userID int64) ([]user.BuddyEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buddies[userID], nil
}

func (f *fakeStore) GetBuddyAlertSettings(_ context.Context, observerID, subjectID int64) (AlertSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.alertErr != nil {
		return AlertSettings{}, f.alertErr
	}

	s, ok := f.alerts[alertKey{observerID, subjectID}]
	if !ok {
		return DefaultAlertSettings(), nil
	}
	return s, nil
}

func (f *fakeStore) SaveMessage(_ context.Context, in IncomingMessage) (Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.saveErr != nil {
		return Message{}, f.saveErr
	}

	f.saved = append(f.saved, in)

	return Message{
		ID:         "msg-1",
		FromUserID: in.FromUserID,
		ToUserID:   in.ToUserID,
		Content:    in.Content,
		Formatting: in.Formatting,
		ImageURL:   in.ImageURL,
		SentAt:     time.Now(),
	}, nil
}

func (f *fakeStore) SetUserOnline(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setOnline = append(f.setOnline, id)
	return nil
}

func (f *fakeStore) SetUserOffline(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setOffline = append(f.setOffline, id)
	return nil
}

func (f *fakeStore) offlineCalls() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.setOffline...)
}

func (f *fakeStore) savedMessages() []IncomingMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]IncomingMessage(nil), f.saved...)
}

type fakeForwarder struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeForwarder) ForwardMessageIfNeeded(context.Context, int64, string, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil
}

// drainEvents empties the session's send queue, decoding each frame.
func drainEvents(t *testing.T, s *Session) []map[string]any {
	t.Helper()

	var out []map[string]any
	for {
		select {
		case data, ok := <-s.send:
			if !ok {
				return out
			}
			var m map[string]any
			require.NoError(t, json.Unmarshal(data, &m))
			out = append(out, m)
		default:
			return out
		}
	}
}

func newTestSession(h *Hub) (*Session, *fakeConn) {
	conn := &fakeConn{}
	return NewSession(h, conn), conn
}

func TestAuthenticateUnknownUserStaysUnauthenticated(t *testing.T) {
	st := newFakeStore()
	h := NewHub(st, &fakeForwarder{})

	s, _ := newTestSession(h)
	h.Authenticate(context.Background(), s, 99)

	_, authed := s.Identity()
	assert.False(t, authed)
	assert.False(t, h.IsOnline(99))
	assert.Equal(t, 0, h.registry.ActiveCount())

	// no reply of any kind goes back on an auth miss
	assert.Empty(t, drainEvents(t, s))
}

func TestAuthenticateBindsRegistersAndNotifiesBuddies(t *testing.T) {
	st := newFakeStore()

	alice := user.User{ID: 1, ScreenName: "alice77", Status: user.StatusOnline}
	bob := user.User{ID: 2, ScreenName: "bobcat", Status: user.StatusOnline}
	carol := user.User{ID: 3, ScreenName: "carol", Status: user.StatusOnline}
	dave := user.User{ID: 4, ScreenName: "dave", Status: user.StatusOnline}
	eve := user.User{ID: 5, ScreenName: "eve", Status: user.StatusOnline}
	st.addUser(alice)
	st.addUser(bob)
	st.addUser(carol)
	st.addUser(dave)
	st.addUser(eve)

	// bob and carol are connected buddies, dave is a disconnected buddy,
	// eve is connected but not on alice's list
	st.addBuddy(1, bob)
	st.addBuddy(1, carol)
	st.addBuddy(1, dave)
	st.alerts[alertKey{2, 1}] = AlertSettings{EnableAlerts: true, CustomSoundAlert: "moo"}

	h := NewHub(st, &fakeForwarder{})

	bobSession, _ := newTestSession(h)
	h.Authenticate(context.Background(), bobSession, 2)
	carolSession, _ := newTestSession(h)
	h.Authenticate(context.Background(), carolSession, 3)
	eveSession, _ := newTestSession(h)
	h.Authenticate(context.Background(), eveSession, 5)
	drainEvents(t, bobSession)
	drainEvents(t, carolSession)
	drainEvents(t, eveSession)

	aliceSession, _ := newTestSession(h)
	h.Authenticate(context.Background(), aliceSession, 1)

	identity, authed := aliceSession.Identity()
	require.True(t, authed)
	assert.Equal(t, int64(1), identity.ID)
	assert.True(t, h.IsOnline(1))

	got, ok := h.registry.Lookup(1)
	require.True(t, ok)
	assert.Same(t, aliceSession, got)

	bobEvents := drainEvents(t, bobSession)
	require.Len(t, bobEvents, 1)
	assert.Equal(t, "user_online", bobEvents[0]["type"])
	assert.Equal(t, float64(1), bobEvents[0]["userId"])
	assert.Equal(t, "alice77", bobEvents[0]["screenName"])

	bobSettings, ok := bobEvents[0]["alertSettings"].(map[string]any)
	require.True(t, ok, "user_online must carry the observer's alert settings")
	assert.Equal(t, true, bobSettings["enableAlerts"])
	assert.Equal(t, "moo", bobSettings["customSoundAlert"])

	// carol has no stored preference, so her copy differs only in alertSettings
	carolEvents := drainEvents(t, carolSession)
	require.Len(t, carolEvents, 1)
	assert.Equal(t, "user_online", carolEvents[0]["type"])

	carolSettings, ok := carolEvents[0]["alertSettings"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, carolSettings["enableAlerts"])
	_, hasSound := carolSettings["customSoundAlert"]
	assert.False(t, hasSound)

	// fan-out reaches the subject's buddy list only
	assert.Empty(t, drainEvents(t, eveSession))
}

func TestSignOnAlertLookupFailureFallsBackToDefaults(t *testing.T) {
	st := newFakeStore()

	alice := user.User{ID: 1, ScreenName: "alice77"}
	bob := user.User{ID: 2, ScreenName: "bobcat"}
	st.addUser(alice)
	st.addUser(bob)
	st.addBuddy(1, bob)
	st.alertErr = errors.New("boom")

	h := NewHub(st, &fakeForwarder{})

	bobSession, _ := newTestSession(h)
	h.Authenticate(context.Background(), bobSession, 2)
	drainEvents(t, bobSession)

	aliceSession, _ := newTestSession(h)
	h.Authenticate(context.Background(), aliceSession, 1)

	events := drainEvents(t, bobSession)
	require.Len(t, events, 1)

	settings, ok := events[0]["alertSettings"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, settings["enableAlerts"])
	_, hasSound := settings["customSoundAlert"]
	assert.False(t, hasSound)
}

func TestTeardownIsIdempotent(t *testing.T) {
	st := newFakeStore()

	alice := user.User{ID: 1, ScreenName: "alice77"}
	bob := user.User{ID: 2, ScreenName: "bobcat"}
	st.addUser(alice)
	st.addUser(bob)
	st.addBuddy(1, bob)

	h := NewHub(st, &fakeForwarder{})

	bobSession, _ := newTestSession(h)
	h.Authenticate(context.Background(), bobSession, 2)
	drainEvents(t, bobSession)

	aliceSession, conn := newTestSession(h)
	h.Authenticate(context.Background(), aliceSession, 1)
	drainEvents(t, bobSession)

	h.Teardown(aliceSession)
	h.Teardown(aliceSession)

	assert.True(t, conn.isClosed())
	assert.False(t, h.IsOnline(1))
	assert.Equal(t, []int64{1}, st.offlineCalls())

	events := drainEvents(t, bobSession)
	require.Len(t, events, 1, "buddies must see exactly one sign-off")
	assert.Equal(t, "user_offline", events[0]["type"])
	assert.Equal(t, float64(1), events[0]["userId"])

	_, hasSettings := events[0]["alertSettings"]
	assert.False(t, hasSettings, "sign-off events carry no alert metadata")
}

func TestTeardownUnauthenticatedSessionHasNoSideEffects(t *testing.T) {
	st := newFakeStore()
	h := NewHub(st, &fakeForwarder{})

	s, conn := newTestSession(h)
	h.Teardown(s)

	assert.True(t, conn.isClosed())
	assert.Empty(t, st.offlineCalls())
	assert.Equal(t, 0, h.OnlineCount())
}

func TestReplacedSessionTeardownKeepsUserOnline(t *testing.T) {
	st := newFakeStore()

	alice := user.User{ID: 1, ScreenName: "alice77"}
	bob := user.User{ID: 2, ScreenName: "bobcat"}
	st.addUser(alice)
	st.addUser(bob)
	st.addBuddy(1, bob)

	h := NewHub(st, &fakeForwarder{})

	bobSession, _ := newTestSession(h)
	h.Authenticate(context.Background(), bobSession, 2)

	first, _ := newTestSession(h)
	h.Authenticate(context.Background(), first, 1)

	second, _ := newTestSession(h)
	h.Authenticate(context.Background(), second, 1)
	drainEvents(t, bobSession)

	// the old connection dies after being replaced
	h.Teardown(first)

	assert.True(t, h.IsOnline(1), "teardown of a replaced session must not mark the user offline")
	assert.Empty(t, st.offlineCalls())

	got, ok := h.registry.Lookup(1)
	require.True(t, ok)
	assert.Same(t, second, got)

	assert.Empty(t, drainEvents(t, bobSession), "no sign-off fan-out for a stale teardown")

	h.Teardown(second)

	assert.False(t, h.IsOnline(1))
	assert.Equal(t, []int64{1}, st.offlineCalls())
}

func TestDeliverMessagePushesToRecipientAndEchoesSender(t *testing.T) {
	st := newFakeStore()

	alice := user.User{ID: 1, ScreenName: "alice77"}
	bob := user.User{ID: 2, ScreenName: "bobcat"}
	st.addUser(alice)
	st.addUser(bob)

	h := NewHub(st, &fakeForwarder{})

	aliceSession, _ := newTestSession(h)
	h.Authenticate(context.Background(), aliceSession, 1)
	bobSession, _ := newTestSession(h)
	h.Authenticate(context.Background(), bobSession, 2)
	drainEvents(t, aliceSession)
	drainEvents(t, bobSession)

	stored, err := h.DeliverMessage(context.Background(), IncomingMessage{
		FromUserID: 1,
		ToUserID:   2,
		Content:    "hey there",
	})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", stored.ID)
	assert.False(t, stored.SentAt.IsZero())

	recipientEvents := drainEvents(t, bobSession)
	require.Len(t, recipientEvents, 1)
	assert.Equal(t, "new_message", recipientEvents[0]["type"])

	msg, ok := recipientEvents[0]["message"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hey there", msg["content"])

	sender, ok := recipientEvents[0]["sender"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "alice77", sender["screenName"])

	echoEvents := drainEvents(t, aliceSession)
	require.Len(t, echoEvents, 1, "sender's own session gets the echo")
	assert.Equal(t, "new_message", echoEvents[0]["type"])
}

func TestDeliverMessageOfflineRecipientStillPersists(t *testing.T) {
	st := newFakeStore()
	st.addUser(user.User{ID: 1, ScreenName: "alice77"})
	st.addUser(user.User{ID: 2, ScreenName: "bobcat"})

	h := NewHub(st, &fakeForwarder{})

	stored, err := h.DeliverMessage(context.Background(), IncomingMessage{
		FromUserID: 1,
		ToUserID:   2,
		Content:    "you there?",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, stored.ID)
	require.Len(t, st.savedMessages(), 1)
}

func TestDeliverMessagePersistenceFailureIsFatal(t *testing.T) {
	st := newFakeStore()
	st.addUser(user.User{ID: 1, ScreenName: "alice77"})
	st.addUser(user.User{ID: 2, ScreenName: "bobcat"})
	st.saveErr = errors.New("disk on fire")

	h := NewHub(st, &fakeForwarder{})

	bobSession, _ := newTestSession(h)
	h.Authenticate(context.Background(), bobSession, 2)
	drainEvents(t, bobSession)

	_, err := h.DeliverMessage(context.Background(), IncomingMessage{
		FromUserID: 1,
		ToUserID:   2,
		Content:    "hello",
	})
	require.Error(t, err)

	assert.Empty(t, drainEvents(t, bobSession), "nothing is pushed when persistence fails")
}

func TestRelayTyping(t *testing.T) {
	st := newFakeStore()
	st.addUser(user.User{ID: 2, ScreenName: "bobcat"})

	h := NewHub(st, &fakeForwarder{})

	bobSession, _ := newTestSession(h)
	h.Authenticate(context.Background(), bobSession, 2)
	drainEvents(t, bobSession)

	h.RelayTyping(1, 2, true)

	events := drainEvents(t, bobSession)
	require.Len(t, events, 1)
	assert.Equal(t, "typing", events[0]["type"])
	assert.Equal(t, float64(1), events[0]["fromUserId"])
	assert.Equal(t, true, events[0]["isTyping"])

	// offline target is a silent drop
	h.RelayTyping(1, 42, true)

	assert.Empty(t, st.savedMessages(), "typing signals are never persisted")
}

func TestNotifyStatusChangeFansOutToConnectedBuddies(t *testing.T) {
	st := newFakeStore()

	alice := user.User{ID: 1, ScreenName: "alice77"}
	bob := user.User{ID: 2, ScreenName: "bobcat"}
	carol := user.User{ID: 3, ScreenName: "carol"}
	st.addUser(alice)
	st.addUser(bob)
	st.addUser(carol)
	st.addBuddy(1, bob)
	st.addBuddy(1, carol)

	h := NewHub(st, &fakeForwarder{})

	bobSession, _ := newTestSession(h)
	h.Authenticate(context.Background(), bobSession, 2)
	drainEvents(t, bobSession)

	h.NotifyStatusChange(context.Background(), 1, user.StatusAway, "gone fishing")

	events := drainEvents(t, bobSession)
	require.Len(t, events, 1)
	assert.Equal(t, "status_change", events[0]["type"])
	assert.Equal(t, float64(1), events[0]["userId"])
	assert.Equal(t, "away", events[0]["status"])
	assert.Equal(t, "gone fishing", events[0]["awayMessage"])
}

func TestShutdownClosesEverySession(t *testing.T) {
	st := newFakeStore()
	st.addUser(user.User{ID: 1, ScreenName: "alice77"})
	st.addUser(user.User{ID: 2, ScreenName: "bobcat"})

	h := NewHub(st, &fakeForwarder{})

	s1, c1 := newTestSession(h)
	h.Authenticate(context.Background(), s1, 1)
	s2, c2 := newTestSession(h)
	h.Authenticate(context.Background(), s2, 2)

	h.Shutdown()

	assert.True(t, c1.isClosed())
	assert.True(t, c2.isClosed())
	assert.Equal(t, 0, h.registry.ActiveCount())
	assert.Equal(t, 0, h.OnlineCount())
}
