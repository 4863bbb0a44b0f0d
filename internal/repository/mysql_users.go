package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bookstore/internal/models"
)

type MySQLUserRepository struct {
	db *sql.DB
}

func (r *MySQLUserRepository) Create(ctx context.Context, u *models.User) error {
	const op = "repository.users.Create"

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO users (id, username, email, password_hash, role, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		u.ID, u.Username, u.Email, u.PasswordHash, u.Role, u.CreatedAt, u.UpdatedAt,
	)
	if isDuplicateEntry(err) {
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *MySQLUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, "repository.users.GetByID",
		"SELECT id, username, email, password_hash, role, created_at, updated_at FROM users WHERE id = ?", id)
}

func (r *MySQLUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, "repository.users.GetByEmail",
		"SELECT id, username, email, password_hash, role, created_at, updated_at FROM users WHERE email = ?", email)
}

func (r *MySQLUserRepository) getOne(ctx context.Context, op, query string, arg any) (*models.User, error) {
	var u models.User
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &u, nil
}

func (r *MySQLUserRepository) Update(ctx context.Context, u *models.User) error {
	const op = "repository.users.Update"

	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET username = ?, password_hash = ?, updated_at = ? WHERE id = ?",
		u.Username, u.PasswordHash, u.UpdatedAt, u.ID,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	// MySQL reports 0 affected rows when nothing changed, so only a missing row is an error.
	if n == 0 {
		if _, err := r.GetByID(ctx, u.ID); err != nil {
			return err
		}
	}
	return nil
}
