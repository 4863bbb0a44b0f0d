package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"bookstore/internal/models"
)

type MySQLOrderRepository struct {
	db *sql.DB
}

const orderSelect = `
	SELECT o.id, o.user_id, o.payment_method, o.total_amount, o.status, o.idempotency_key, o.created_at,
		i.book_id, i.name, i.price, i.quantity
	FROM orders o
	LEFT JOIN order_items i ON i.order_id = o.id`

func (r *MySQLOrderRepository) Create(ctx context.Context, o *models.Order) error {
	const op = "repository.orders.Create"

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO orders (id, user_id, payment_method, total_amount, status, idempotency_key, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		o.ID, o.UserID, o.PaymentMethod, o.TotalAmount, o.Status, nullString(o.IdempotencyKey), o.CreatedAt,
	)
	if isDuplicateEntry(err) {
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("%s: insert order: %w", op, err)
	}

	for _, item := range o.Items {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO order_items (order_id, book_id, name, price, quantity) VALUES (?, ?, ?, ?, ?)",
			o.ID, item.BookID, item.Name, item.Price, item.Quantity,
		)
		if err != nil {
			return fmt.Errorf("%s: insert item %s: %w", op, item.BookID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}

func (r *MySQLOrderRepository) GetByIdempotencyKey(ctx context.Context, userID, key string) (*models.Order, error) {
	const op = "repository.orders.GetByIdempotencyKey"

	orders, err := r.query(ctx, orderSelect+" WHERE o.user_id = ? AND o.idempotency_key = ? ORDER BY i.id", userID, key)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(orders) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return &orders[0], nil
}

func (r *MySQLOrderRepository) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	orders, err := r.query(ctx, orderSelect+" WHERE o.user_id = ? ORDER BY o.created_at, o.id, i.id", userID)
	if err != nil {
		return nil, fmt.Errorf("repository.orders.ListByUser: %w", err)
	}
	return orders, nil
}

func (r *MySQLOrderRepository) ListAll(ctx context.Context) ([]models.Order, error) {
	orders, err := r.query(ctx, orderSelect+" ORDER BY o.created_at, o.id, i.id")
	if err != nil {
		return nil, fmt.Errorf("repository.orders.ListAll: %w", err)
	}
	return orders, nil
}

// query folds joined order/item rows into orders, keeping row order.
func (r *MySQLOrderRepository) query(ctx context.Context, query string, args ...any) ([]models.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []models.Order
	index := make(map[string]int)

	for rows.Next() {
		var (
			o        models.Order
			key      sql.NullString
			bookID   sql.NullString
			name     sql.NullString
			price    sql.NullFloat64
			quantity sql.NullInt64
		)
		if err := rows.Scan(
			&o.ID, &o.UserID, &o.PaymentMethod, &o.TotalAmount, &o.Status, &key, &o.CreatedAt,
			&bookID, &name, &price, &quantity,
		); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}

		pos, seen := index[o.ID]
		if !seen {
			o.IdempotencyKey = key.String
			o.Items = []models.OrderItem{}
			orders = append(orders, o)
			pos = len(orders) - 1
			index[o.ID] = pos
		}
		if bookID.Valid {
			orders[pos].Items = append(orders[pos].Items, models.OrderItem{
				BookID:   bookID.String,
				Name:     name.String,
				Price:    price.Float64,
				Quantity: int(quantity.Int64),
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

type MySQLBookRepository struct {
	db *sql.DB
}

func (r *MySQLBookRepository) GetByIDs(ctx context.Context, ids []string) (map[string]models.Book, error) {
	const op = "repository.books.GetByIDs"

	books := make(map[string]models.Book, len(ids))
	if len(ids) == 0 {
		return books, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, "SELECT id, name, price, stock FROM books WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var b models.Book
		if err := rows.Scan(&b.ID, &b.Name, &b.Price, &b.Stock); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		books[b.ID] = b
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return books, nil
}
