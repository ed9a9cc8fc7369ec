package im

import "testing"

func TestTrackerMarkOnlineOffline(t *testing.T) {
	tr := NewTracker()

	if tr.IsOnline(1) {
		t.Fatal("new tracker should report everyone offline")
	}

	tr.MarkOnline(1)
	tr.MarkOnline(2)

	if !tr.IsOnline(1) || !tr.IsOnline(2) {
		t.Fatal("marked users should be online")
	}
	if n := tr.OnlineCount(); n != 2 {
		t.Fatalf("OnlineCount = %d, want 2", n)
	}

	tr.MarkOffline(1)

	if tr.IsOnline(1) {
		t.Fatal("user 1 should be offline")
	}
	if !tr.IsOnline(2) {
		t.Fatal("user 2 should still be online")
	}
}

func TestTrackerIdempotent(t *testing.T) {
	tr := NewTracker()

	tr.MarkOnline(1)
	tr.MarkOnline(1)

	if n := tr.OnlineCount(); n != 1 {
		t.Fatalf("OnlineCount = %d, want 1", n)
	}

	tr.MarkOffline(1)
	tr.MarkOffline(1)

	if n := tr.OnlineCount(); n != 0 {
		t.Fatalf("OnlineCount = %d, want 0", n)
	}
}
