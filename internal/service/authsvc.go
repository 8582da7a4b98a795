package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"chatdata/internal/auth"
	"chatdata/internal/domain"
)

type AuthUsersStore interface {
	CreateUser(ctx context.Context, u domain.UserWithPassword) error
	UserByUsername(ctx context.Context, username string) (domain.UserWithPassword, error)
	UserByUsercode(ctx context.Context, usercode string) (domain.UserWithPassword, error)
}

type SessionsStore interface {
	SaveSession(ctx context.Context, sess domain.Session) error
	LoadSession(ctx context.Context) (domain.Session, bool, error)
	ClearSession(ctx context.Context) error
}

// usercodeAttempts bounds the random-collision retry before falling back to
// a timestamp-derived code.
const usercodeAttempts = 5

// AuthService is the synthetic sign-up/sign-in facade. It is a two-state
// machine (signed out / signed in); every transition persists the session
// and fans out to the registered listeners.
type AuthService struct {
	Users    AuthUsersStore
	Sessions SessionsStore
	Logger   *slog.Logger
	Now      func() time.Time

	// GenerateUsercode overrides the random 6-digit code source, for tests.
	GenerateUsercode func() string

	mu        sync.Mutex
	restored  bool
	current   *domain.Session
	listeners map[string]func(*domain.Session)
}

// Register creates the user, signs it in, and notifies listeners. A taken
// username reports ErrUsernameTaken.
func (s *AuthService) Register(ctx context.Context, username, password string) (domain.Session, error) {
	if s.Now == nil {
		s.Now = time.Now
	}

	username = strings.TrimSpace(username)
	if username == "" {
		return domain.Session{}, domain.NewValidationError(map[string]string{"username": "required"})
	}
	if password == "" {
		return domain.Session{}, domain.NewValidationError(map[string]string{"password": "required"})
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.Session{}, err
	}

	usercode, err := s.uniqueUsercode(ctx)
	if err != nil {
		return domain.Session{}, err
	}

	now := s.Now().UTC()
	u := domain.UserWithPassword{
		User: domain.User{
			UID:         fmt.Sprintf("user_%d_%s", now.UnixMilli(), uuid.NewString()[:8]),
			Username:    username,
			Usercode:    usercode,
			DisplayName: username,
			Friends:     []string{},
			CreatedAt:   now,
		},
		PasswordHash: hash,
	}
	if err := s.Users.CreateUser(ctx, u); err != nil {
		return domain.Session{}, err
	}

	return s.establish(ctx, domain.Session{UID: u.UID, DisplayName: username})
}

// SignIn reports ErrNotFound for an unknown username and
// ErrInvalidCredentials for a password mismatch.
func (s *AuthService) SignIn(ctx context.Context, username, password string) (domain.Session, error) {
	username = strings.TrimSpace(username)

	u, err := s.Users.UserByUsername(ctx, username)
	if err != nil {
		return domain.Session{}, err
	}

	ok, err := auth.VerifyPassword(u.PasswordHash, password)
	if err != nil {
		return domain.Session{}, err
	}
	if !ok {
		return domain.Session{}, domain.ErrInvalidCredentials
	}

	return s.establish(ctx, domain.Session{UID: u.UID, DisplayName: u.DisplayName})
}

// SignOut clears the session, persists the cleared state, and notifies
// listeners with the signed-out value.
func (s *AuthService) SignOut(ctx context.Context) error {
	if err := s.Sessions.ClearSession(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.current = nil
	s.restored = true
	s.mu.Unlock()
	s.notify()
	return nil
}

// CurrentSession returns the signed-in identity, restoring it from the
// persisted state on first call. nil means signed out.
func (s *AuthService) CurrentSession(ctx context.Context) (*domain.Session, error) {
	if err := s.restore(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSession(s.current), nil
}

// OnAuthStateChanged registers listener, invokes it immediately with the
// current (restored) session, and again on every future transition. The
// returned unsubscribe removes only this listener; calling it twice is a
// no-op.
func (s *AuthService) OnAuthStateChanged(ctx context.Context, listener func(*domain.Session)) (func(), error) {
	if err := s.restore(ctx); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	s.mu.Lock()
	if s.listeners == nil {
		s.listeners = make(map[string]func(*domain.Session))
	}
	s.listeners[id] = listener
	current := cloneSession(s.current)
	s.mu.Unlock()

	listener(current)

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}, nil
}

func (s *AuthService) establish(ctx context.Context, sess domain.Session) (domain.Session, error) {
	if err := s.Sessions.SaveSession(ctx, sess); err != nil {
		return domain.Session{}, err
	}
	if s.Logger != nil {
		s.Logger.Debug("session established", "uid", sess.UID)
	}
	s.mu.Lock()
	s.current = &sess
	s.restored = true
	s.mu.Unlock()
	s.notify()
	return sess, nil
}

func (s *AuthService) restore(ctx context.Context) error {
	s.mu.Lock()
	if s.restored {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	sess, ok, err := s.Sessions.LoadSession(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if !s.restored {
		if ok {
			s.current = &sess
		}
		s.restored = true
	}
	s.mu.Unlock()
	return nil
}

// notify fans the current session out to every listener. Listeners run
// outside the lock so they may unsubscribe from within the callback.
func (s *AuthService) notify() {
	s.mu.Lock()
	current := s.current
	fns := make([]func(*domain.Session), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(cloneSession(current))
	}
}

func (s *AuthService) uniqueUsercode(ctx context.Context) (string, error) {
	generate := s.GenerateUsercode
	if generate == nil {
		generate = randomUsercode
	}

	for i := 0; i < usercodeAttempts; i++ {
		code := generate()
		_, err := s.Users.UserByUsercode(ctx, code)
		if errors.Is(err, domain.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}

	// timestamp-derived fallback, 7 digits
	return fmt.Sprintf("%07d", s.Now().UnixMilli()%10_000_000), nil
}

func randomUsercode() string {
	return fmt.Sprintf("%06d", 100000+rand.Intn(900000))
}

func cloneSession(sess *domain.Session) *domain.Session {
	if sess == nil {
		return nil
	}
	cp := *sess
	return &cp
}
