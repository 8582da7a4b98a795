package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chatdata/internal/domain"
	"chatdata/internal/kv/memory"
	"chatdata/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAuthService(t *testing.T) (*AuthService, *store.Store) {
	t.Helper()
	st := store.New(memory.New(), store.Options{Logger: testLogger()})
	svc := &AuthService{
		Users:    st,
		Sessions: st,
		Logger:   testLogger(),
		Now:      func() time.Time { return time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC) },
	}
	return svc, st
}

func TestRegisterSignsIn(t *testing.T) {
	ctx := context.Background()
	svc, st := newAuthService(t)

	sess, err := svc.Register(ctx, "alice", "hunter2")
	require.NoError(t, err)
	require.NotEmpty(t, sess.UID)
	require.Equal(t, "alice", sess.DisplayName)

	current, err := svc.CurrentSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	require.Equal(t, sess.UID, current.UID)

	u, err := st.UserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, sess.UID, u.UID)
	require.Len(t, u.Usercode, 6)
	require.NotEqual(t, "hunter2", u.PasswordHash)
}

func TestRegisterUsernameTaken(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t)

	_, err := svc.Register(ctx, "alice", "hunter2")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice", "other")
	require.ErrorIs(t, err, domain.ErrUsernameTaken)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t)

	_, err := svc.Register(ctx, "   ", "pw")
	require.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.Register(ctx, "alice", "")
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestSignInWrongPassword(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t)

	_, err := svc.Register(ctx, "alice", "hunter2")
	require.NoError(t, err)
	require.NoError(t, svc.SignOut(ctx))

	_, err = svc.SignIn(ctx, "alice", "wrong")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestSignInUnknownUsername(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t)

	_, err := svc.SignIn(ctx, "nobody", "pw")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSignOutClearsSession(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t)

	_, err := svc.Register(ctx, "alice", "hunter2")
	require.NoError(t, err)

	require.NoError(t, svc.SignOut(ctx))

	current, err := svc.CurrentSession(ctx)
	require.NoError(t, err)
	require.Nil(t, current)
}

func TestSessionRestoredAcrossInstances(t *testing.T) {
	ctx := context.Background()
	st := store.New(memory.New(), store.Options{Logger: testLogger()})

	first := &AuthService{Users: st, Sessions: st}
	sess, err := first.Register(ctx, "alice", "hunter2")
	require.NoError(t, err)

	second := &AuthService{Users: st, Sessions: st}
	current, err := second.CurrentSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	require.Equal(t, sess.UID, current.UID)
}

func TestOnAuthStateChanged(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t)

	var got []*domain.Session
	unsub, err := svc.OnAuthStateChanged(ctx, func(s *domain.Session) {
		got = append(got, s)
	})
	require.NoError(t, err)

	// invoked immediately with the signed-out state
	require.Len(t, got, 1)
	require.Nil(t, got[0])

	sess, err := svc.Register(ctx, "alice", "hunter2")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.NotNil(t, got[1])
	require.Equal(t, sess.UID, got[1].UID)

	require.NoError(t, svc.SignOut(ctx))
	require.Len(t, got, 3)
	require.Nil(t, got[2])

	unsub()
	unsub() // idempotent
	_, err = svc.SignIn(ctx, "alice", "hunter2")
	require.NoError(t, err)
	require.Len(t, got, 3)
}

func TestUsercodeCollisionFallsBack(t *testing.T) {
	ctx := context.Background()
	svc, st := newAuthService(t)
	svc.GenerateUsercode = func() string { return "111111" }

	_, err := svc.Register(ctx, "alice", "pw")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "bob", "pw")
	require.NoError(t, err)

	bob, err := st.UserByUsername(ctx, "bob")
	require.NoError(t, err)
	require.NotEqual(t, "111111", bob.Usercode)
	require.Len(t, bob.Usercode, 7)
}
