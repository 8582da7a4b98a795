// Package store implements the social-chat document engine: five entity maps
// persisted through the key-value substrate, a collection/document facade
// with equality queries, polling snapshot subscriptions, and the friend-graph
// operations layered on top.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"chatdata/internal/domain"
	"chatdata/internal/kv"
)

// Substrate keys. These match the original client's persisted key set, so an
// existing installation's data is picked up as-is.
const (
	keyUsers          = "mockUsers"
	keyFriendRequests = "mockFriendRequests"
	keyNotifications  = "mockNotifications"
	keyChats          = "mockChats"
	keyLastMessages   = "mockLastMessages"
	keyCurrentUser    = "currentUser"
)

var allKeys = []string{keyUsers, keyFriendRequests, keyNotifications, keyChats, keyLastMessages, keyCurrentUser}

// entityMap is one named collection: an in-memory map flushed to a single
// substrate key as a unit. Loading is lazy and idempotent; every mutation
// happens with mu held and is followed by a flush before it is acknowledged.
type entityMap[V any] struct {
	key    string
	mu     sync.Mutex
	loaded bool
	items  map[string]V
}

// Options tune the store; zero values select the defaults.
type Options struct {
	Logger *slog.Logger
	// PollInterval is the snapshot re-delivery period (default 1s).
	PollInterval time.Duration
	// InitialDelay is the pause before a subscription's first snapshot
	// (default 100ms). Initial delivery is never synchronous.
	InitialDelay time.Duration
}

// Store owns the five entity maps. Construct one per process and hand it to
// the facades; there is no ambient global state.
type Store struct {
	kv           kv.Store
	logger       *slog.Logger
	pollInterval time.Duration
	initialDelay time.Duration

	users    entityMap[domain.UserWithPassword] // by uid
	requests entityMap[[]domain.FriendRequest]  // by recipient uid
	notifs   entityMap[[]domain.Notification]   // by recipient uid
	chats    entityMap[[]domain.Message]        // by chat id, arrival order
	last     entityMap[domain.LastMessage]      // by chat id, derived
}

func New(backend kv.Store, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	initialDelay := opts.InitialDelay
	if initialDelay <= 0 {
		initialDelay = 100 * time.Millisecond
	}

	s := &Store{
		kv:           backend,
		logger:       logger,
		pollInterval: pollInterval,
		initialDelay: initialDelay,
	}
	s.users.key = keyUsers
	s.requests.key = keyFriendRequests
	s.notifs.key = keyNotifications
	s.chats.key = keyChats
	s.last.key = keyLastMessages
	return s
}

// loadMap populates m from the substrate on first use. Caller holds m.mu.
// A second call is a no-op; already-populated state is never reset.
func loadMap[V any](ctx context.Context, s *Store, m *entityMap[V]) error {
	if m.loaded {
		return nil
	}
	blob, ok, err := s.kv.Get(ctx, m.key)
	if err != nil {
		return fmt.Errorf("%w: load %s: %v", domain.ErrPersistence, m.key, err)
	}
	items := make(map[string]V)
	if ok {
		if err := decodeEntries(blob, items); err != nil {
			return fmt.Errorf("%w: decode %s: %v", domain.ErrPersistence, m.key, err)
		}
	}
	m.items = items
	m.loaded = true
	return nil
}

// flushMap writes m back to the substrate. Caller holds m.mu. A flush
// failure is logged and the in-memory mutation stands: for the running
// session memory is the source of truth and durability is best-effort.
func flushMap[V any](ctx context.Context, s *Store, m *entityMap[V]) {
	blob, err := encodeEntries(m.items)
	if err != nil {
		s.logger.Error("encode entity map failed", "key", m.key, "err", err)
		return
	}
	if err := s.kv.Set(ctx, m.key, blob); err != nil {
		s.logger.Error("persist entity map failed", "key", m.key, "err", err)
	}
}

// encodeEntries serializes a map as a JSON array of [key, value] pairs, the
// wire format the original client used for Map persistence. Keys are sorted
// so the blob is deterministic.
func encodeEntries[V any](items map[string]V) ([]byte, error) {
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([][2]json.RawMessage, 0, len(items))
	for _, k := range keys {
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(items[k])
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", k, err)
		}
		entries = append(entries, [2]json.RawMessage{kb, vb})
	}
	return json.Marshal(entries)
}

func decodeEntries[V any](blob []byte, into map[string]V) error {
	var entries [][2]json.RawMessage
	if err := json.Unmarshal(blob, &entries); err != nil {
		return err
	}
	for _, e := range entries {
		var k string
		if err := json.Unmarshal(e[0], &k); err != nil {
			return err
		}
		var v V
		if err := json.Unmarshal(e[1], &v); err != nil {
			return fmt.Errorf("entry %q: %w", k, err)
		}
		into[k] = v
	}
	return nil
}

// Reset wipes every entity map and the persisted key set. Debug/dev helper.
func (s *Store) Reset(ctx context.Context) error {
	maps := []func(){
		func() { s.users.mu.Lock(); s.users.items = map[string]domain.UserWithPassword{}; s.users.loaded = true; s.users.mu.Unlock() },
		func() { s.requests.mu.Lock(); s.requests.items = map[string][]domain.FriendRequest{}; s.requests.loaded = true; s.requests.mu.Unlock() },
		func() { s.notifs.mu.Lock(); s.notifs.items = map[string][]domain.Notification{}; s.notifs.loaded = true; s.notifs.mu.Unlock() },
		func() { s.chats.mu.Lock(); s.chats.items = map[string][]domain.Message{}; s.chats.loaded = true; s.chats.mu.Unlock() },
		func() { s.last.mu.Lock(); s.last.items = map[string]domain.LastMessage{}; s.last.loaded = true; s.last.mu.Unlock() },
	}
	for _, clear := range maps {
		clear()
	}
	if err := s.kv.DeleteMany(ctx, allKeys); err != nil {
		return fmt.Errorf("%w: clear state: %v", domain.ErrPersistence, err)
	}
	return nil
}
