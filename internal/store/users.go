package store

import (
	"context"
	"sort"

	"chatdata/internal/domain"
)

// CreateUser stores a new user keyed by uid. Usernames are unique across the
// map; a clash reports ErrUsernameTaken.
func (s *Store) CreateUser(ctx context.Context, u domain.UserWithPassword) error {
	s.users.mu.Lock()
	defer s.users.mu.Unlock()
	if err := loadMap(ctx, s, &s.users); err != nil {
		return err
	}
	for _, existing := range s.users.items {
		if existing.Username == u.Username {
			return domain.ErrUsernameTaken
		}
	}
	s.users.items[u.UID] = cloneUser(u)
	flushMap(ctx, s, &s.users)
	return nil
}

func (s *Store) UserByID(ctx context.Context, uid string) (domain.UserWithPassword, error) {
	s.users.mu.Lock()
	defer s.users.mu.Unlock()
	if err := loadMap(ctx, s, &s.users); err != nil {
		return domain.UserWithPassword{}, err
	}
	u, ok := s.users.items[uid]
	if !ok {
		return domain.UserWithPassword{}, domain.ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (domain.UserWithPassword, error) {
	return s.findUser(ctx, func(u domain.UserWithPassword) bool { return u.Username == username })
}

func (s *Store) UserByUsercode(ctx context.Context, usercode string) (domain.UserWithPassword, error) {
	return s.findUser(ctx, func(u domain.UserWithPassword) bool { return u.Usercode == usercode })
}

func (s *Store) findUser(ctx context.Context, match func(domain.UserWithPassword) bool) (domain.UserWithPassword, error) {
	s.users.mu.Lock()
	defer s.users.mu.Unlock()
	if err := loadMap(ctx, s, &s.users); err != nil {
		return domain.UserWithPassword{}, err
	}
	for _, u := range s.users.items {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return domain.UserWithPassword{}, domain.ErrNotFound
}

// UpdateUser applies mutate to the stored user under the users lock and
// flushes once. The uid cannot be changed through this path.
func (s *Store) UpdateUser(ctx context.Context, uid string, mutate func(*domain.UserWithPassword)) (domain.UserWithPassword, error) {
	s.users.mu.Lock()
	defer s.users.mu.Unlock()
	if err := loadMap(ctx, s, &s.users); err != nil {
		return domain.UserWithPassword{}, err
	}
	u, ok := s.users.items[uid]
	if !ok {
		return domain.UserWithPassword{}, domain.ErrNotFound
	}
	updated := cloneUser(u)
	mutate(&updated)
	updated.UID = uid
	s.users.items[uid] = cloneUser(updated)
	flushMap(ctx, s, &s.users)
	return updated, nil
}

// Users returns every stored user, ordered by uid.
func (s *Store) Users(ctx context.Context) ([]domain.UserWithPassword, error) {
	s.users.mu.Lock()
	defer s.users.mu.Unlock()
	if err := loadMap(ctx, s, &s.users); err != nil {
		return nil, err
	}
	out := make([]domain.UserWithPassword, 0, len(s.users.items))
	for _, u := range s.users.items {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

func cloneUser(u domain.UserWithPassword) domain.UserWithPassword {
	cp := u
	cp.Friends = append([]string(nil), u.Friends...)
	return cp
}
