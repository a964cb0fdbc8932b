package blobs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()

	v, err := r.Get(ctx, "ns", "k")
	require.NoError(t, err)
	assert.Nil(t, v)

	in := []byte("hello")
	require.NoError(t, r.Put(ctx, "ns", "k", in))
	in[0] = 'j'

	v, err = r.Get(ctx, "ns", "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), v)

	v[0] = 'x'
	again, _ := r.Get(ctx, "ns", "k")
	assert.Equal(t, []byte("hello"), again, "Get must return a copy")

	other, err := r.Get(ctx, "other", "k")
	require.NoError(t, err)
	assert.Nil(t, other, "namespaces are isolated")

	require.NoError(t, r.Put(ctx, "ns", "empty", nil))
	empty, err := r.Get(ctx, "ns", "empty")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	assert.NoError(t, r.Ping(ctx))
}
