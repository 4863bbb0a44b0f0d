package db

import (
	"context"
	"database/sql"
	"fmt"

	"bookstore/internal/models"
)

// DefaultCatalog is inserted into an empty books table on startup.
var DefaultCatalog = []models.Book{
	{ID: "b1", Name: "The Pragmatic Programmer", Price: 14.99, Stock: 2},
	{ID: "b2", Name: "Designing Data-Intensive Applications", Price: 39.50, Stock: 5},
	{ID: "b3", Name: "The Go Programming Language", Price: 29.99, Stock: 10},
	{ID: "b4", Name: "Structure and Interpretation of Computer Programs", Price: 24.00, Stock: 0},
}

func SeedBooks(ctx context.Context, db *sql.DB, books []models.Book) (int, error) {
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM books").Scan(&count); err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	for _, b := range books {
		if _, err := db.ExecContext(ctx,
			"INSERT INTO books (id, name, price, stock) VALUES (?, ?, ?, ?)",
			b.ID, b.Name, b.Price, b.Stock,
		); err != nil {
			return 0, fmt.Errorf("seed book %s: %w", b.ID, err)
		}
	}
	return len(books), nil
}
