package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrationsExecutesAll(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	for range migrations {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, RunMigrations(context.Background(), conn))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrationsStopsOnError(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS books").WillReturnError(errors.New("disk full"))

	err = RunMigrations(context.Background(), conn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migration 2")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedBooksOnlyWhenEmpty(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	for _, b := range DefaultCatalog {
		mock.ExpectExec("INSERT INTO books").
			WithArgs(b.ID, b.Name, b.Price, b.Stock).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}

	n, err := SeedBooks(context.Background(), conn, DefaultCatalog)
	require.NoError(t, err)
	assert.Equal(t, len(DefaultCatalog), n)

	mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	n, err = SeedBooks(context.Background(), conn, DefaultCatalog)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNormalizeDSNForcesParseTime(t *testing.T) {
	for _, in := range []string{
		"shop:secret@tcp(localhost:3306)/bookstore",
		"shop:secret@tcp(localhost:3306)/bookstore?parseTime=false&loc=Local",
	} {
		out, err := normalizeDSN(in)
		require.NoError(t, err)

		cfg, err := mysql.ParseDSN(out)
		require.NoError(t, err)
		assert.True(t, cfg.ParseTime, out)
		assert.Equal(t, time.UTC, cfg.Loc)
		assert.Equal(t, "bookstore", cfg.DBName)
		assert.Equal(t, "shop", cfg.User)
	}
}

func TestNormalizeDSNRejectsGarbage(t *testing.T) {
	_, err := normalizeDSN("not a dsn")
	assert.Error(t, err)
}
