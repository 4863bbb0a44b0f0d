// Package repository persists users, orders and the book catalog.
package repository

import (
	"context"
	"errors"

	"bookstore/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type UserRepository interface {
	// Create stores u. A taken email yields ErrDuplicate.
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// Update overwrites username and password hash. Last write wins.
	Update(ctx context.Context, u *models.User) error
}

type OrderRepository interface {
	// Create stores o with its items. A reused (user, idempotency key) pair yields ErrDuplicate.
	Create(ctx context.Context, o *models.Order) error
	GetByIdempotencyKey(ctx context.Context, userID, key string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
	ListAll(ctx context.Context) ([]models.Order, error)
}

type BookRepository interface {
	// GetByIDs returns the books found, keyed by id. Missing ids are absent from the map.
	GetByIDs(ctx context.Context, ids []string) (map[string]models.Book, error)
}

// Store bundles the repositories behind one backend.
type Store struct {
	Users  UserRepository
	Orders OrderRepository
	Books  BookRepository

	closeFn func() error
}

func (s *Store) Close() error {
	if s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}
