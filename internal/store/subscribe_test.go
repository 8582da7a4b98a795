package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chatdata/internal/domain"
	"chatdata/internal/kv/memory"
)

func newFastStore(t *testing.T) *Store {
	t.Helper()
	return New(memory.New(), Options{
		InitialDelay: 5 * time.Millisecond,
		PollInterval: 20 * time.Millisecond,
	})
}

type snapshotRecorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *snapshotRecorder) record(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *snapshotRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func (r *snapshotRecorder) latest() (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snaps) == 0 {
		return nil, false
	}
	return r.snaps[len(r.snaps)-1], true
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestSubscribeInitialDeliveryIsAsynchronous(t *testing.T) {
	ctx := context.Background()
	s := newFastStore(t)

	_, err := s.AppendMessage(ctx, "a_b", domain.Message{Text: "hi", SenderID: "a"})
	require.NoError(t, err)

	c, err := s.Collection(KindMessages, "a_b")
	require.NoError(t, err)

	rec := &snapshotRecorder{}
	cancel := c.Subscribe(rec.record)
	defer cancel()

	// nothing may arrive before the current task yields
	require.Equal(t, 0, rec.count())

	waitFor(t, func() bool { return rec.count() >= 1 })
	snap, ok := rec.latest()
	require.True(t, ok)
	require.Len(t, snap, 1)
	require.Equal(t, "hi", snap[0].Data()["text"])
}

func TestSubscribeSeesLaterWrites(t *testing.T) {
	ctx := context.Background()
	s := newFastStore(t)

	c, err := s.Collection(KindMessages, "a_b")
	require.NoError(t, err)

	rec := &snapshotRecorder{}
	cancel := c.Subscribe(rec.record)
	defer cancel()

	waitFor(t, func() bool { return rec.count() >= 1 })

	_, err = s.AppendMessage(ctx, "a_b", domain.Message{Text: "late", SenderID: "a"})
	require.NoError(t, err)

	waitFor(t, func() bool {
		snap, ok := rec.latest()
		return ok && len(snap) == 1
	})
	snap, _ := rec.latest()
	require.Equal(t, "late", snap[0].Data()["text"])
}

func TestUnsubscribeStopsDeliveryAndIsIdempotent(t *testing.T) {
	s := newFastStore(t)

	c, err := s.Collection(KindMessages, "a_b")
	require.NoError(t, err)

	rec := &snapshotRecorder{}
	cancel := c.Subscribe(rec.record)

	waitFor(t, func() bool { return rec.count() >= 2 })
	cancel()
	cancel() // second call is a no-op

	settled := rec.count()
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, settled, rec.count())
}

func TestUnsubscribeFromInsideCallback(t *testing.T) {
	s := newFastStore(t)

	c, err := s.Collection(KindMessages, "a_b")
	require.NoError(t, err)

	var (
		mu     sync.Mutex
		calls  int
		cancel func()
	)
	done := make(chan struct{})
	cancel = c.Subscribe(func(Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			cancel()
			close(done)
		}
	})

	<-done
	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, calls)
}

func TestSubscribeUserSubcollections(t *testing.T) {
	ctx := context.Background()
	s := newFastStore(t)
	require.NoError(t, s.CreateUser(ctx, domain.UserWithPassword{User: domain.User{UID: "user_alice", Username: "alice"}}))
	require.NoError(t, s.CreateUser(ctx, domain.UserWithPassword{User: domain.User{UID: "user_bob", Username: "bob"}}))

	reqs, err := s.Collection(KindFriendRequests, "user_alice")
	require.NoError(t, err)

	rec := &snapshotRecorder{}
	cancel := reqs.Subscribe(rec.record)
	defer cancel()

	_, err = s.AddFriendRequest(ctx, "user_bob", "user_alice", "bob")
	require.NoError(t, err)

	waitFor(t, func() bool {
		snap, ok := rec.latest()
		return ok && len(snap) == 1
	})
	snap, _ := rec.latest()

	var r domain.FriendRequest
	require.NoError(t, snap[0].DataTo(&r))
	require.Equal(t, "user_bob", r.FromUID)
}
