package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTripAndRestart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "mockChats", []byte(`[["a_b",[]]]`)))
	require.NoError(t, s.Close())

	// a fresh store over the same dir sees the data
	s2, err := New(dir)
	require.NoError(t, err)
	blob, ok, err := s2.Get(ctx, "mockChats")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `[["a_b",[]]]`, string(blob))
}

func TestOverwriteLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, "currentUser", []byte(`{"uid":"u1"}`)))
	require.NoError(t, s.Set(ctx, "currentUser", []byte(`{"uid":"u2"}`)))

	blob, ok, err := s.Get(ctx, "currentUser")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"uid":"u2"}`, string(blob))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "currentUser.json", entries[0].Name())
}

func TestInvalidKeysRejected(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../escape", "a/b", `a\b`} {
		require.Error(t, s.Set(ctx, key, []byte("{}")), "key %q", key)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, "mockUsers", []byte("[]")))
	require.NoError(t, s.Delete(ctx, "mockUsers"))
	require.NoError(t, s.Delete(ctx, "mockUsers")) // absent is fine

	_, err = os.Stat(filepath.Join(dir, "mockUsers.json"))
	require.True(t, os.IsNotExist(err))
}
