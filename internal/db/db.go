package db

import (
	"database/sql"
	"log"

	_ "github.com/lib/pq"
)

// Connect opens and pings the Postgres database behind the contact store
// and the dispatcher-owned mirror tables.
func Connect(dsn string) (*sql.DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		return nil, err
	}
	log.Println("✅ Connected to database")
	return conn, nil
}
