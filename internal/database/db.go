package database

import (
	"database/sql"

	_ "github.com/lib/pq"
)

// New opens a postgres connection pool and verifies connectivity. The
// pool is safe for concurrent use by many request handlers.
func New(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
