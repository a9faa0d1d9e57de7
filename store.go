package main

import (
	"context"
	"database/sql"
	"log"
	"sync"
	"time"

	_ "github.com/lib/pq"
)

const schemaAdvisoryLockID int64 = 557201991

// Store owns the database handle. It is constructed once in main and handed
// to every handler; connecting is lazy so the health probe can report
// "initializing" instead of the process failing hard at boot.
type Store struct {
	mu  sync.Mutex
	url string
	db  *sql.DB
	err error
}

func NewStore(databaseURL string) *Store {
	return &Store{url: databaseURL}
}

// Ensure opens the connection and bootstraps the schema on first use.
// Subsequent calls return the cached handle. Safe for concurrent callers.
func (s *Store) Ensure() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return s.db, nil
	}

	db, err := sql.Open("postgres", s.url)
	if err != nil {
		s.err = err
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		s.err = err
		return nil, err
	}

	if err := initSchemaWithLock(context.Background(), db); err != nil {
		_ = db.Close()
		s.err = err
		return nil, err
	}

	log.Println("Connected to PostgreSQL")
	s.db = db
	s.err = nil
	return db, nil
}

// Connected reports whether the handle is live without triggering a connect.
func (s *Store) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db != nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// initSchemaWithLock serializes DDL across instances so two pods starting at
// once don't race CREATE TABLE.
func initSchemaWithLock(ctx context.Context, db *sql.DB) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, schemaAdvisoryLockID); err != nil {
		return err
	}
	defer func() {
		_, _ = conn.ExecContext(ctx, `SELECT pg_advisory_unlock($1)`, schemaAdvisoryLockID)
	}()

	return ensureSchema(db)
}
