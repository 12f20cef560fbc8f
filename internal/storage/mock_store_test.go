package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockStore(t *testing.T) {
	store := NewMockStore(zerolog.Nop(), "")
	ctx := context.Background()

	stored, err := store.Put(ctx, Object{Key: "galleries/g1/p1.jpg", Body: strings.NewReader("hello")})
	require.NoError(t, err)
	assert.Equal(t, "https://media.invalid/mock/galleries/g1/p1.jpg", stored.URL)
	assert.Equal(t, "galleries/g1/p1.jpg", stored.Handle)
	assert.EqualValues(t, 5, stored.Size)
	assert.Equal(t, 1, store.Len())

	require.NoError(t, store.Remove(ctx, stored.Handle))
	require.NoError(t, store.Remove(ctx, stored.Handle), "missing objects are not an error")
	assert.Zero(t, store.Len())
	assert.NoError(t, store.Ping(ctx))
}
