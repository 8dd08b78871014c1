package cartstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/sindri/internal/domain"
)

func TestMemory_GetPutDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	_, err := store.Get(ctx, "user-1")
	assert.ErrorIs(t, err, domain.ErrCartNotFound)

	cart := domain.NewCart("user-1")
	require.NoError(t, cart.AddItem(1, 2500, 2))
	require.NoError(t, store.Put(ctx, cart))

	got, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(5400), got.TotalCents)
	assert.Len(t, got.Lines, 1)

	require.NoError(t, store.Delete(ctx, "user-1"))
	_, err = store.Get(ctx, "user-1")
	assert.ErrorIs(t, err, domain.ErrCartNotFound)
}

func TestMemory_CopiesOnReadAndWrite(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	cart := domain.NewCart("user-1")
	require.NoError(t, cart.AddItem(1, 2500, 2))
	require.NoError(t, store.Put(ctx, cart))

	// Mutating the original after Put must not affect the stored copy.
	cart.Lines[0].Quantity = 99

	got, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), got.Lines[0].Quantity)

	// Mutating a read result must not affect subsequent reads.
	got.Lines[0].Quantity = 7

	again, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), again.Lines[0].Quantity)
}

func TestMemory_DeleteUnknownOwner(t *testing.T) {
	store := NewMemory()
	assert.NoError(t, store.Delete(context.Background(), "nobody"))
}
