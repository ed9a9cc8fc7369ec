package im

import "testing"

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()

	s := &Session{}
	r.Register(7, s)

	got, ok := r.Lookup(7)
	if !ok {
		t.Fatal("expected session for user 7")
	}
	if got != s {
		t.Fatal("lookup returned a different session")
	}

	if _, ok := r.Lookup(8); ok {
		t.Fatal("expected miss for unregistered user")
	}

	if n := r.ActiveCount(); n != 1 {
		t.Fatalf("ActiveCount = %d, want 1", n)
	}
}

func TestRegistryRegisterReplacesPriorEntry(t *testing.T) {
	r := NewRegistry()

	first := &Session{}
	second := &Session{}

	r.Register(7, first)
	r.Register(7, second)

	got, ok := r.Lookup(7)
	if !ok || got != second {
		t.Fatal("expected the later registration to win")
	}

	if n := r.ActiveCount(); n != 1 {
		t.Fatalf("ActiveCount = %d, want 1", n)
	}
}

func TestRegistryUnregister(t *testing.T) {
	r := NewRegistry()

	r.Register(7, &Session{})
	r.Unregister(7)

	if _, ok := r.Lookup(7); ok {
		t.Fatal("expected user 7 to be gone")
	}

	// absent id is a no-op
	r.Unregister(42)
}

func TestRegistryUnregisterSessionComparesIdentity(t *testing.T) {
	r := NewRegistry()

	replaced := &Session{}
	current := &Session{}

	r.Register(7, replaced)
	r.Register(7, current)

	if r.UnregisterSession(7, replaced) {
		t.Fatal("replaced session must not evict its successor")
	}

	if got, ok := r.Lookup(7); !ok || got != current {
		t.Fatal("current session should still be registered")
	}

	if !r.UnregisterSession(7, current) {
		t.Fatal("current session should unregister itself")
	}

	if _, ok := r.Lookup(7); ok {
		t.Fatal("expected user 7 to be gone")
	}
}

func TestRegistryUnregisterSessionMiss(t *testing.T) {
	r := NewRegistry()

	if r.UnregisterSession(7, &Session{}) {
		t.Fatal("unregistering an absent entry should report false")
	}
}
