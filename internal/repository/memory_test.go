package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookstore/internal/models"
)

func TestMemoryUsers(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)

	u := &models.User{ID: "u1", Username: "alice", Email: "alice@x.com", PasswordHash: "h1", Role: "customer"}
	require.NoError(t, store.Users.Create(ctx, u))
	assert.ErrorIs(t, store.Users.Create(ctx, &models.User{ID: "u2", Email: "alice@x.com"}), ErrDuplicate)

	got, err := store.Users.GetByEmail(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)

	got.Username = "mutated"
	again, err := store.Users.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice", again.Username, "returned users must be copies")

	require.NoError(t, store.Users.Update(ctx, &models.User{ID: "u1", Username: "alice2", PasswordHash: "h2", UpdatedAt: time.Now()}))
	again, err = store.Users.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice2", again.Username)
	assert.Equal(t, "alice@x.com", again.Email)

	assert.ErrorIs(t, store.Users.Update(ctx, &models.User{ID: "ghost"}), ErrNotFound)
	_, err = store.Users.GetByID(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryOrders(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)

	o := &models.Order{ID: "o1", UserID: "u1", IdempotencyKey: "k1", Items: []models.OrderItem{{BookID: "b1", Quantity: 1}}}
	require.NoError(t, store.Orders.Create(ctx, o))
	require.NoError(t, store.Orders.Create(ctx, &models.Order{ID: "o2", UserID: "u2", IdempotencyKey: "k1"}))
	require.NoError(t, store.Orders.Create(ctx, &models.Order{ID: "o3", UserID: "u1"}))
	require.NoError(t, store.Orders.Create(ctx, &models.Order{ID: "o4", UserID: "u1"}))
	assert.ErrorIs(t, store.Orders.Create(ctx, &models.Order{ID: "o5", UserID: "u1", IdempotencyKey: "k1"}), ErrDuplicate)

	o.Items[0].Quantity = 99
	got, err := store.Orders.GetByIdempotencyKey(ctx, "u1", "k1")
	require.NoError(t, err)
	assert.Equal(t, "o1", got.ID)
	assert.Equal(t, 1, got.Items[0].Quantity)

	mine, err := store.Orders.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, mine, 3)

	all, err := store.Orders.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	none, err := store.Orders.ListByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryBooks(t *testing.T) {
	store := NewMemoryStore([]models.Book{{ID: "b1", Name: "One", Price: 1.5, Stock: 3}})

	books, err := store.Books.GetByIDs(context.Background(), []string{"b1", "missing"})
	require.NoError(t, err)
	assert.Len(t, books, 1)
	assert.Equal(t, 1.5, books["b1"].Price)
	assert.NoError(t, store.Close())
}
