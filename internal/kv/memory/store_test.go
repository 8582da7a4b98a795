package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, ok, err := s.Get(ctx, "mockUsers")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, "mockUsers", []byte(`[["u1",{}]]`)))
	blob, ok, err := s.Get(ctx, "mockUsers")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `[["u1",{}]]`, string(blob))

	// returned blob is a copy
	blob[0] = 'X'
	again, _, err := s.Get(ctx, "mockUsers")
	require.NoError(t, err)
	require.Equal(t, `[["u1",{}]]`, string(again))
}

func TestDeleteMany(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, s.Set(ctx, k, []byte("{}")))
	}
	require.NoError(t, s.DeleteMany(ctx, []string{"a", "c", "missing"}))
	require.Equal(t, 1, s.Len())

	_, ok, err := s.Get(ctx, "b")
	require.NoError(t, err)
	require.True(t, ok)
}
