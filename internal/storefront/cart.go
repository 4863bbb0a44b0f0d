package storefront

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"bookstore/internal/models"

	"github.com/google/uuid"
)

var (
	ErrMustAuthenticate = errors.New("must authenticate")
	ErrStockLimit       = errors.New("stock limit reached")
	ErrOutOfStock       = errors.New("out of stock")
)

// CartItem is one cart line. Stock is what the catalog reported when it was added.
type CartItem struct {
	BookID   string  `json:"bookId"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Stock    int     `json:"stock"`
}

type cartState struct {
	Items []CartItem `json:"items"`
	// CheckoutKey is reused for every checkout attempt of unchanged contents.
	CheckoutKey string `json:"checkoutKey,omitempty"`
}

// Authenticator gates cart additions.
type Authenticator interface {
	Authenticated(now time.Time) bool
}

type Cart struct {
	mu      sync.Mutex
	auth    Authenticator
	storage Storage
	now     func() time.Time
	state   cartState
}

// LoadCart restores the persisted cart, or starts empty when there is none.
func LoadCart(auth Authenticator, storage Storage) (*Cart, error) {
	c := &Cart{auth: auth, storage: storage, now: time.Now}

	raw, ok, err := storage.Get(KeyCart)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if ok {
		if err := json.Unmarshal(raw, &c.state); err != nil {
			return nil, fmt.Errorf("decode cart: %w", err)
		}
	}
	return c, nil
}

// Add puts one copy of book in the cart.
func (c *Cart) Add(book models.Book) error {
	if !c.auth.Authenticated(c.now()) {
		return ErrMustAuthenticate
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.copyItems()
	i := indexOf(next, book.ID)
	switch {
	case i >= 0:
		if next[i].Quantity >= book.Stock {
			return ErrStockLimit
		}
		next[i].Quantity++
	case book.Stock > 0:
		next = append(next, CartItem{
			BookID:   book.ID,
			Name:     book.Name,
			Price:    book.Price,
			Quantity: 1,
			Stock:    book.Stock,
		})
	default:
		return ErrOutOfStock
	}

	return c.commit(next)
}

// UpdateQuantity sets the quantity of a line. Values below 1 and unknown
// books are ignored; use Remove to drop a line.
func (c *Cart) UpdateQuantity(bookID string, quantity int) error {
	if quantity < 1 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.copyItems()
	i := indexOf(next, bookID)
	if i < 0 {
		return nil
	}
	if quantity > next[i].Stock {
		return ErrStockLimit
	}
	next[i].Quantity = quantity
	return c.commit(next)
}

func (c *Cart) Remove(bookID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.copyItems()
	i := indexOf(next, bookID)
	if i < 0 {
		return nil
	}
	return c.commit(append(next[:i], next[i+1:]...))
}

func (c *Cart) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commit(nil)
}

func (c *Cart) Items() []CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyItems()
}

// Total is the sum of price times quantity, rounded to cents.
func (c *Cart) Total() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var cents int64
	for _, it := range c.state.Items {
		cents += int64(math.Round(it.Price*100)) * int64(it.Quantity)
	}
	return float64(cents) / 100
}

// checkoutKey returns the idempotency key for the current contents, minting
// and persisting one on first use.
func (c *Cart) checkoutKey() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.CheckoutKey != "" {
		return c.state.CheckoutKey, nil
	}
	next := cartState{Items: c.copyItems(), CheckoutKey: uuid.NewString()}
	if err := c.save(next); err != nil {
		return "", err
	}
	c.state = next
	return next.CheckoutKey, nil
}

// commit persists items and only then makes them current. Any change of
// contents drops the pending checkout key.
func (c *Cart) commit(items []CartItem) error {
	next := cartState{Items: items}
	if err := c.save(next); err != nil {
		return err
	}
	c.state = next
	return nil
}

func (c *Cart) save(state cartState) error {
	if state.Items == nil {
		state.Items = []CartItem{}
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := c.storage.Set(KeyCart, raw); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (c *Cart) copyItems() []CartItem {
	if len(c.state.Items) == 0 {
		return nil
	}
	return append([]CartItem(nil), c.state.Items...)
}

func indexOf(items []CartItem, bookID string) int {
	for i, it := range items {
		if it.BookID == bookID {
			return i
		}
	}
	return -1
}
