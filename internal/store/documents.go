package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"chatdata/internal/domain"
)

// Kind identifies a collection. Addressing is typed: a kind plus an explicit
// parent id, validated up front, instead of parsing hierarchy out of path
// strings deep in the engine.
type Kind string

const (
	KindUsers          Kind = "users"
	KindFriendRequests Kind = "friendRequests"
	KindNotifications  Kind = "notifications"
	KindMessages       Kind = "messages"
)

// Collection addresses one entity-map bucket: the users map, or a
// per-parent list (a user's requests or notifications, a chat's messages).
type Collection struct {
	s      *Store
	kind   Kind
	parent string
}

// Collection validates the kind/parent pair. Users is the only top-level
// collection; the rest require a parent id (recipient uid or chat id).
func (s *Store) Collection(kind Kind, parent string) (*Collection, error) {
	switch kind {
	case KindUsers:
		if parent != "" {
			return nil, domain.NewValidationError(map[string]string{"parent": "users is a top-level collection"})
		}
	case KindFriendRequests, KindNotifications:
		if parent == "" {
			return nil, domain.NewValidationError(map[string]string{"parent": "recipient uid required"})
		}
	case KindMessages:
		if parent == "" {
			return nil, domain.NewValidationError(map[string]string{"parent": "chat id required"})
		}
	default:
		return nil, domain.NewValidationError(map[string]string{"kind": fmt.Sprintf("unknown collection %q", kind)})
	}
	return &Collection{s: s, kind: kind, parent: parent}, nil
}

// CollectionFromPath translates the legacy slash-delimited addressing
// ("users", "users/{uid}/friendRequests", "users/{uid}/notifications",
// "chats/{chatId}/messages") used by older callers into a typed collection.
func (s *Store) CollectionFromPath(path string) (*Collection, error) {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case len(segs) == 1 && segs[0] == "users":
		return s.Collection(KindUsers, "")
	case len(segs) == 3 && segs[0] == "users" && segs[2] == "friendRequests":
		return s.Collection(KindFriendRequests, segs[1])
	case len(segs) == 3 && segs[0] == "users" && segs[2] == "notifications":
		return s.Collection(KindNotifications, segs[1])
	case len(segs) == 3 && segs[0] == "chats" && segs[2] == "messages":
		return s.Collection(KindMessages, segs[1])
	}
	return nil, domain.NewValidationError(map[string]string{"path": fmt.Sprintf("unsupported collection path %q", path)})
}

// Document wraps one stored document so consumers can take the id and the
// field data independently. The data map is a private copy.
type Document struct {
	ID   string
	data map[string]any
}

// Data returns the document's fields.
func (d Document) Data() map[string]any { return d.data }

// DataTo decodes the fields into v, typically a domain struct.
func (d Document) DataTo(v any) error {
	blob, err := json.Marshal(d.data)
	if err != nil {
		return err
	}
	return json.Unmarshal(blob, v)
}

// Add stores a new document with a generated id and returns the id. Users
// cannot be created through Add; registration assigns the uid explicitly via
// Doc(...).Set.
func (c *Collection) Add(ctx context.Context, data map[string]any) (string, error) {
	switch c.kind {
	case KindMessages:
		var m domain.Message
		if err := decodeInto(data, &m); err != nil {
			return "", err
		}
		m.ID = ""
		stored, err := c.s.AppendMessage(ctx, c.parent, m)
		if err != nil {
			return "", err
		}
		return stored.ID, nil
	case KindFriendRequests:
		var r domain.FriendRequest
		if err := decodeInto(data, &r); err != nil {
			return "", err
		}
		req, err := c.s.AddFriendRequest(ctx, r.FromUID, c.parent, r.FromUsername)
		if err != nil {
			return "", err
		}
		if req == nil {
			// duplicate pending request: report the existing one's id
			existing, err := c.s.FriendRequests(ctx, c.parent)
			if err != nil {
				return "", err
			}
			for _, e := range existing {
				if e.FromUID == r.FromUID {
					return e.ID, nil
				}
			}
			return "", domain.ErrNotFound
		}
		return req.ID, nil
	case KindNotifications:
		var n domain.Notification
		if err := decodeInto(data, &n); err != nil {
			return "", err
		}
		n.ID = ""
		stored, err := c.s.AppendNotification(ctx, c.parent, n)
		if err != nil {
			return "", err
		}
		return stored.ID, nil
	}
	return "", domain.NewValidationError(map[string]string{"kind": "users documents are created with an explicit uid"})
}

// Get materializes the whole collection. Message lists come back sorted
// ascending by creation time.
func (c *Collection) Get(ctx context.Context) ([]Document, error) {
	switch c.kind {
	case KindUsers:
		users, err := c.s.Users(ctx)
		if err != nil {
			return nil, err
		}
		docs := make([]Document, 0, len(users))
		for _, u := range users {
			d, err := docFromValue(u.UID, u)
			if err != nil {
				return nil, err
			}
			docs = append(docs, d)
		}
		return docs, nil
	case KindMessages:
		msgs, err := c.s.Messages(ctx, c.parent)
		if err != nil {
			return nil, err
		}
		docs := make([]Document, 0, len(msgs))
		for _, m := range msgs {
			d, err := docFromValue(m.ID, m)
			if err != nil {
				return nil, err
			}
			docs = append(docs, d)
		}
		return docs, nil
	case KindFriendRequests:
		reqs, err := c.s.FriendRequests(ctx, c.parent)
		if err != nil {
			return nil, err
		}
		docs := make([]Document, 0, len(reqs))
		for _, r := range reqs {
			d, err := docFromValue(r.ID, r)
			if err != nil {
				return nil, err
			}
			docs = append(docs, d)
		}
		return docs, nil
	case KindNotifications:
		notifs, err := c.s.Notifications(ctx, c.parent)
		if err != nil {
			return nil, err
		}
		docs := make([]Document, 0, len(notifs))
		for _, n := range notifs {
			d, err := docFromValue(n.ID, n)
			if err != nil {
				return nil, err
			}
			docs = append(docs, d)
		}
		return docs, nil
	}
	return nil, domain.NewValidationError(map[string]string{"kind": fmt.Sprintf("unknown collection %q", c.kind)})
}

// Query is an equality filter over a collection. Only the == operator
// exists; that is the whole query surface the client needs (username and
// usercode lookups).
type Query struct {
	c     *Collection
	field string
	op    string
	value any
}

func (c *Collection) Where(field, op string, value any) *Query {
	return &Query{c: c, field: field, op: op, value: value}
}

func (q *Query) Get(ctx context.Context) ([]Document, error) {
	if q.op != "==" {
		return nil, domain.NewValidationError(map[string]string{"op": fmt.Sprintf("unsupported operator %q", q.op)})
	}
	want, err := json.Marshal(q.value)
	if err != nil {
		return nil, err
	}
	docs, err := q.c.Get(ctx)
	if err != nil {
		return nil, err
	}
	out := docs[:0:0]
	for _, d := range docs {
		got, err := json.Marshal(d.data[q.field])
		if err != nil {
			return nil, err
		}
		if bytes.Equal(got, want) {
			out = append(out, d)
		}
	}
	return out, nil
}

// Doc addresses a single document by id.
type Doc struct {
	c  *Collection
	id string
}

func (c *Collection) Doc(id string) *Doc { return &Doc{c: c, id: id} }

// Get returns the document or ErrNotFound.
func (d *Doc) Get(ctx context.Context) (Document, error) {
	docs, err := d.c.Get(ctx)
	if err != nil {
		return Document{}, err
	}
	for _, doc := range docs {
		if doc.ID == d.id {
			return doc, nil
		}
	}
	return Document{}, domain.ErrNotFound
}

// Set upserts: fields in data replace the stored fields of the same name,
// everything else survives, and the identity key always wins over whatever
// data says.
func (d *Doc) Set(ctx context.Context, data map[string]any) error {
	switch d.c.kind {
	case KindUsers:
		return d.setUser(ctx, data)
	case KindMessages:
		return d.setMessage(ctx, data)
	case KindFriendRequests, KindNotifications:
		return domain.NewValidationError(map[string]string{"kind": fmt.Sprintf("%s documents are append-only", d.c.kind)})
	}
	return domain.NewValidationError(map[string]string{"kind": fmt.Sprintf("unknown collection %q", d.c.kind)})
}

func (d *Doc) setUser(ctx context.Context, data map[string]any) error {
	s := d.c.s
	s.users.mu.Lock()
	defer s.users.mu.Unlock()
	if err := loadMap(ctx, s, &s.users); err != nil {
		return err
	}
	existing := s.users.items[d.id] // zero value when creating
	merged, err := mergeIntoValue(existing, data)
	if err != nil {
		return err
	}
	merged.UID = d.id
	s.users.items[d.id] = merged
	flushMap(ctx, s, &s.users)
	return nil
}

func (d *Doc) setMessage(ctx context.Context, data map[string]any) error {
	s := d.c.s
	s.chats.mu.Lock()
	if err := loadMap(ctx, s, &s.chats); err != nil {
		s.chats.mu.Unlock()
		return err
	}
	msgs := s.chats.items[d.c.parent]
	idx := -1
	for i, m := range msgs {
		if m.ID == d.id {
			idx = i
			break
		}
	}
	var existing domain.Message
	if idx >= 0 {
		existing = msgs[idx]
	}
	merged, err := mergeIntoValue(existing, data)
	if err != nil {
		s.chats.mu.Unlock()
		return err
	}
	merged.ID = d.id
	if merged.CreatedAt.IsZero() {
		merged.CreatedAt = time.Now().UTC()
	}
	if idx >= 0 {
		msgs[idx] = merged
	} else {
		msgs = append(msgs, merged)
	}
	s.chats.items[d.c.parent] = msgs
	remaining := append([]domain.Message(nil), msgs...)
	flushMap(ctx, s, &s.chats)
	s.chats.mu.Unlock()

	return s.refreshLastMessage(ctx, d.c.parent, remaining)
}

// Delete removes the document. Message deletes refresh the chat's
// last-message index; user documents are never deleted.
func (d *Doc) Delete(ctx context.Context) error {
	switch d.c.kind {
	case KindMessages:
		return d.c.s.DeleteMessage(ctx, d.c.parent, d.id)
	case KindFriendRequests:
		return d.c.s.RemoveFriendRequest(ctx, d.c.parent, d.id)
	case KindNotifications:
		return d.c.s.deleteNotification(ctx, d.c.parent, d.id)
	case KindUsers:
		return domain.NewValidationError(map[string]string{"kind": "users are never deleted"})
	}
	return domain.NewValidationError(map[string]string{"kind": fmt.Sprintf("unknown collection %q", d.c.kind)})
}

func (s *Store) deleteNotification(ctx context.Context, uid, id string) error {
	s.notifs.mu.Lock()
	defer s.notifs.mu.Unlock()
	if err := loadMap(ctx, s, &s.notifs); err != nil {
		return err
	}
	list := s.notifs.items[uid]
	filtered := list[:0:0]
	for _, n := range list {
		if n.ID != id {
			filtered = append(filtered, n)
		}
	}
	if len(filtered) == len(list) {
		return nil
	}
	s.notifs.items[uid] = filtered
	flushMap(ctx, s, &s.notifs)
	return nil
}

// docFromValue renders a domain value as a Document through a JSON round
// trip; the resulting map shares nothing with stored state.
func docFromValue(id string, v any) (Document, error) {
	blob, err := json.Marshal(v)
	if err != nil {
		return Document{}, err
	}
	var data map[string]any
	if err := json.Unmarshal(blob, &data); err != nil {
		return Document{}, err
	}
	return Document{ID: id, data: data}, nil
}

func decodeInto(data map[string]any, v any) error {
	blob, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(blob, v); err != nil {
		return domain.NewValidationError(map[string]string{"data": err.Error()})
	}
	return nil
}

// mergeIntoValue overlays data onto the JSON rendering of existing and
// decodes the result back into the typed value.
func mergeIntoValue[T any](existing T, data map[string]any) (T, error) {
	var zero T
	doc, err := docFromValue("", existing)
	if err != nil {
		return zero, err
	}
	for k, v := range data {
		doc.data[k] = v
	}
	var merged T
	if err := decodeInto(doc.data, &merged); err != nil {
		return zero, err
	}
	return merged, nil
}

// newID builds document ids from a prefix, the current unix milliseconds,
// and a short random suffix so two adds in the same millisecond never
// collide.
func newID(prefix string) string {
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixMilli(), uuid.NewString()[:8])
}
