package repository

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

const mysqlDuplicateEntry = 1062

func NewMySQLStore(db *sql.DB) *Store {
	return &Store{
		Users:   &MySQLUserRepository{db: db},
		Orders:  &MySQLOrderRepository{db: db},
		Books:   &MySQLBookRepository{db: db},
		closeFn: db.Close,
	}
}

func isDuplicateEntry(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
