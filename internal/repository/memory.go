package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"bookstore/internal/models"
)

// NewMemoryStore returns a process-local store seeded with books.
func NewMemoryStore(books []models.Book) *Store {
	catalog := &memoryBooks{books: make(map[string]models.Book, len(books))}
	for _, b := range books {
		catalog.books[b.ID] = b
	}
	return &Store{
		Users:  &memoryUsers{byID: make(map[string]models.User), byEmail: make(map[string]string)},
		Orders: &memoryOrders{},
		Books:  catalog,
	}
}

type memoryUsers struct {
	mu      sync.RWMutex
	byID    map[string]models.User
	byEmail map[string]string
}

func (m *memoryUsers) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.byEmail[u.Email]; taken {
		return fmt.Errorf("repository.users.Create: %w", ErrDuplicate)
	}
	m.byID[u.ID] = *u
	m.byEmail[u.Email] = u.ID
	return nil
}

func (m *memoryUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("repository.users.GetByID: %w", ErrNotFound)
	}
	return &u, nil
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("repository.users.GetByEmail: %w", ErrNotFound)
	}
	u := m.byID[id]
	return &u, nil
}

func (m *memoryUsers) Update(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.byID[u.ID]
	if !ok {
		return fmt.Errorf("repository.users.Update: %w", ErrNotFound)
	}
	current.Username = u.Username
	current.PasswordHash = u.PasswordHash
	current.UpdatedAt = u.UpdatedAt
	m.byID[u.ID] = current
	return nil
}

type memoryOrders struct {
	mu     sync.RWMutex
	orders []models.Order
}

func (m *memoryOrders) Create(_ context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if o.IdempotencyKey != "" {
		for _, existing := range m.orders {
			if existing.UserID == o.UserID && existing.IdempotencyKey == o.IdempotencyKey {
				return fmt.Errorf("repository.orders.Create: %w", ErrDuplicate)
			}
		}
	}
	m.orders = append(m.orders, cloneOrder(*o))
	return nil
}

func (m *memoryOrders) GetByIdempotencyKey(_ context.Context, userID, key string) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, o := range m.orders {
		if o.UserID == userID && o.IdempotencyKey == key {
			c := cloneOrder(o)
			return &c, nil
		}
	}
	return nil, fmt.Errorf("repository.orders.GetByIdempotencyKey: %w", ErrNotFound)
}

func (m *memoryOrders) ListByUser(_ context.Context, userID string) ([]models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, cloneOrder(o))
		}
	}
	return out, nil
}

func (m *memoryOrders) ListAll(_ context.Context) ([]models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, cloneOrder(o))
	}
	return out, nil
}

func cloneOrder(o models.Order) models.Order {
	o.Items = slices.Clone(o.Items)
	return o
}

type memoryBooks struct {
	mu    sync.RWMutex
	books map[string]models.Book
}

func (m *memoryBooks) GetByIDs(_ context.Context, ids []string) (map[string]models.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]models.Book, len(ids))
	for _, id := range ids {
		if b, ok := m.books[id]; ok {
			out[id] = b
		}
	}
	return out, nil
}
