package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"bookstore/internal/apperrors"
	"bookstore/internal/metrics"
	"bookstore/internal/models"
	"bookstore/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	maxIdempotencyKeyLength = 64
	// maxLineQuantity bounds a merged line well below int overflow.
	maxLineQuantity = 10000
)

type OrderService struct {
	orders repository.OrderRepository
	books  repository.BookRepository
	logger zerolog.Logger
}

func NewOrderService(orders repository.OrderRepository, books repository.BookRepository, logger zerolog.Logger) *OrderService {
	return &OrderService{
		orders: orders,
		books:  books,
		logger: logger,
	}
}

// CreateOrder prices req against the catalog and writes it to the ledger.
// A non-empty idempotencyKey already used by userID returns the stored order and created=false.
func (s *OrderService) CreateOrder(ctx context.Context, userID string, req *models.CreateOrderRequest, idempotencyKey string) (order *models.Order, created bool, err error) {
	if len(idempotencyKey) > maxIdempotencyKeyLength {
		return nil, false, apperrors.Validation("Idempotency-Key is too long")
	}
	if idempotencyKey != "" {
		existing, err := s.orders.GetByIdempotencyKey(ctx, userID, idempotencyKey)
		if err == nil {
			s.logger.Info().Str("user_id", userID).Str("order_id", existing.ID).Msg("Replayed order for idempotency key")
			return existing, false, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("Error looking up idempotency key")
			return nil, false, fmt.Errorf("database error: %w", err)
		}
	}

	if !models.PaymentMethod(req.PaymentMethod).Valid() {
		return nil, false, apperrors.Validation("unsupported payment method")
	}

	items, err := mergeItems(req.Items)
	if err != nil {
		return nil, false, err
	}

	priced, totalCents, err := s.priceItems(ctx, items)
	if err != nil {
		return nil, false, err
	}
	if toCents(req.TotalAmount) != totalCents {
		s.logger.Warn().
			Str("user_id", userID).
			Float64("supplied", req.TotalAmount).
			Float64("computed", fromCents(totalCents)).
			Msg("Order total mismatch")
		return nil, false, apperrors.Validation("totalAmount does not match the sum of the items")
	}

	order = &models.Order{
		ID:             uuid.NewString(),
		UserID:         userID,
		Items:          priced,
		PaymentMethod:  req.PaymentMethod,
		TotalAmount:    fromCents(totalCents),
		Status:         string(models.OrderStatusPending),
		IdempotencyKey: idempotencyKey,
		CreatedAt:      time.Now().UTC().Truncate(time.Second),
	}

	err = s.orders.Create(ctx, order)
	if errors.Is(err, repository.ErrDuplicate) && idempotencyKey != "" {
		// A concurrent request with the same key won the insert.
		existing, getErr := s.orders.GetByIdempotencyKey(ctx, userID, idempotencyKey)
		if getErr != nil {
			return nil, false, fmt.Errorf("database error: %w", getErr)
		}
		return existing, false, nil
	}
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Error creating order")
		return nil, false, fmt.Errorf("failed to create order: %w", err)
	}

	metrics.RecordOrderCreated(order.PaymentMethod)
	s.logger.Info().
		Str("order_id", order.ID).
		Str("user_id", userID).
		Float64("total_amount", order.TotalAmount).
		Int("items", len(order.Items)).
		Msg("Order created")

	return order, true, nil
}

func (s *OrderService) ListUserOrders(ctx context.Context, userID string) ([]models.Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Error fetching orders")
		return nil, fmt.Errorf("database error: %w", err)
	}
	if len(orders) == 0 {
		return nil, apperrors.NotFound("No orders found for this user")
	}
	return orders, nil
}

func (s *OrderService) ListAllOrders(ctx context.Context) ([]models.Order, error) {
	orders, err := s.orders.ListAll(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error fetching all orders")
		return nil, fmt.Errorf("database error: %w", err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

// mergeItems validates line items and folds repeated books into one line.
func mergeItems(items []models.OrderItem) ([]models.OrderItem, error) {
	if len(items) == 0 {
		return nil, apperrors.Validation("order must contain at least one item")
	}

	var merged []models.OrderItem
	index := make(map[string]int, len(items))
	for _, item := range items {
		if item.BookID == "" {
			return nil, apperrors.Validation("every item needs a bookId")
		}
		if item.Quantity < 1 {
			return nil, apperrors.Validation(fmt.Sprintf("quantity for %s must be at least 1", item.BookID))
		}
		if item.Quantity > maxLineQuantity {
			return nil, apperrors.Validation(fmt.Sprintf("quantity for %s must be at most %d", item.BookID, maxLineQuantity))
		}
		if pos, ok := index[item.BookID]; ok {
			if merged[pos].Quantity > maxLineQuantity-item.Quantity {
				return nil, apperrors.Validation(fmt.Sprintf("quantity for %s must be at most %d", item.BookID, maxLineQuantity))
			}
			merged[pos].Quantity += item.Quantity
			continue
		}
		index[item.BookID] = len(merged)
		merged = append(merged, models.OrderItem{BookID: item.BookID, Quantity: item.Quantity})
	}
	return merged, nil
}

// priceItems replaces client names and prices with catalog values and returns the total in cents.
func (s *OrderService) priceItems(ctx context.Context, items []models.OrderItem) ([]models.OrderItem, int64, error) {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.BookID
	}

	books, err := s.books.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error loading catalog prices")
		return nil, 0, fmt.Errorf("database error: %w", err)
	}

	var total int64
	priced := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		book, ok := books[item.BookID]
		if !ok {
			return nil, 0, apperrors.Validation(fmt.Sprintf("unknown book %s", item.BookID))
		}
		if item.Quantity < 1 || item.Quantity > book.Stock {
			return nil, 0, apperrors.Validation(fmt.Sprintf("only %d of %s in stock", book.Stock, book.Name))
		}
		total += toCents(book.Price) * int64(item.Quantity)
		priced = append(priced, models.OrderItem{
			BookID:   book.ID,
			Name:     book.Name,
			Price:    book.Price,
			Quantity: item.Quantity,
		})
	}
	return priced, total, nil
}

func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func fromCents(cents int64) float64 {
	return float64(cents) / 100
}
