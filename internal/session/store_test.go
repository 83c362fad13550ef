package session

import (
	"testing"
	"time"
)

func TestStorePutGetRemove(t *testing.T) {
	t.Parallel()

	st := NewStore(StoreConfig{})
	sess := New("Acme", "engineer")

	st.Put(sess)
	if got := st.Get(sess.ID); got != sess {
		t.Fatalf("Get returned %v", got)
	}
	if st.Len() != 1 {
		t.Fatalf("Len = %d, want 1", st.Len())
	}

	st.Remove(sess.ID)
	if st.Get(sess.ID) != nil {
		t.Fatal("session still present after Remove")
	}
	if st.Len() != 0 {
		t.Fatalf("Len = %d, want 0", st.Len())
	}
}

func TestStoreGetUnknown(t *testing.T) {
	t.Parallel()

	st := NewStore(StoreConfig{})
	if st.Get("no-such-id") != nil {
		t.Fatal("Get of unknown ID returned a session")
	}
}

func TestStoreEvictsIdleSessions(t *testing.T) {
	t.Parallel()

	var evicted []string
	st := NewStore(StoreConfig{
		IdleAfter: 10 * time.Minute,
		OnEvict:   func(s *Session) { evicted = append(evicted, s.ID) },
	})

	now := time.Now().UTC()
	stale := New("Acme", "engineer")
	stale.lastActivity.Store(now.Add(-11 * time.Minute).UnixNano())
	fresh := New("Acme", "engineer")
	fresh.lastActivity.Store(now.Add(-9 * time.Minute).UnixNano())
	st.Put(stale)
	st.Put(fresh)

	st.evictIdle(now)

	if st.Get(stale.ID) != nil {
		t.Error("stale session survived the sweep")
	}
	if st.Get(fresh.ID) == nil {
		t.Error("fresh session was evicted")
	}
	if len(evicted) != 1 || evicted[0] != stale.ID {
		t.Errorf("eviction callbacks = %v", evicted)
	}
}

func TestStoreActivityDefersEviction(t *testing.T) {
	t.Parallel()

	st := NewStore(StoreConfig{IdleAfter: 10 * time.Minute})
	sess := New("Acme", "engineer")
	st.Put(sess)

	// Touch resets the idle clock relative to wall time; sweeping with a
	// deadline just past creation must keep the session.
	sess.Touch()
	st.evictIdle(sess.CreatedAt.Add(5 * time.Minute))

	if st.Get(sess.ID) == nil {
		t.Fatal("recently active session evicted")
	}
}

// The eviction sweep runs on its own goroutine while each session's
// orchestrator keeps mutating activity and state. Run both sides hard so
// the race detector can catch any unguarded field access.
func TestStoreSweepConcurrentWithLiveSession(t *testing.T) {
	t.Parallel()

	st := NewStore(StoreConfig{IdleAfter: 10 * time.Minute})
	sess := New("Acme", "engineer")
	st.Put(sess)

	done := make(chan struct{})
	go func() {
		defer close(done)
		states := []State{StateAskingQuestion, StateInterviewerSpeaking, StateWaitingForCandidate}
		for i := 0; i < 1000; i++ {
			sess.setState(states[i%len(states)])
			sess.Touch()
		}
	}()

	for i := 0; i < 1000; i++ {
		st.evictIdle(time.Now().UTC())
		if got := sess.ObservedState(); !got.IsValid() {
			t.Fatalf("observed state = %q", got)
		}
	}
	<-done

	if st.Get(sess.ID) == nil {
		t.Fatal("active session evicted by concurrent sweep")
	}
}
