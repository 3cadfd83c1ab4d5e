package memory

import (
	"context"
	"testing"

	"nilor/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ repository.Store = (*Store)(nil)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Load(ctx)
	require.ErrorIs(t, err, repository.ErrNoDocument)

	data := []byte(`{"nodes":[],"edges":[]}`)
	require.NoError(t, s.Save(ctx, data))
	data[0] = 'x'

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"nodes":[],"edges":[]}`, string(got), "store keeps its own copy")
	assert.Equal(t, 1, s.Saves())

	require.NoError(t, s.Clear(ctx))
	_, err = s.Load(ctx)
	assert.ErrorIs(t, err, repository.ErrNoDocument)
}
