// Package docstore keeps one JSON document per (collection, user) in
// SQLite. It backs the document server and can be used directly as a sync
// remote for a shared database file.
package docstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

// ErrNotFound is returned when no document exists for a key.
var ErrNotFound = errors.New("document not found")

// Document is a stored body with its revision.
type Document struct {
	Collection string
	UserID     string
	Body       []byte
	Revision   string
	UpdatedAt  time.Time
}

type key struct {
	collection string
	user       string
}

type subscriber struct {
	id int
	fn func(Document)
}

// Store handles database operations
type Store struct {
	db *sql.DB

	mu     sync.Mutex
	subs   map[key][]subscriber
	nextID int
}

// New opens (and if needed creates) the database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, subs: make(map[key][]subscriber)}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the document for (collection, user).
func (s *Store) Get(ctx context.Context, collection, user string) (Document, error) {
	doc := Document{Collection: collection, UserID: user}
	err := s.db.QueryRowContext(ctx,
		"SELECT body, revision, updated_at FROM documents WHERE collection = ? AND user_id = ?",
		collection, user,
	).Scan(&doc.Body, &doc.Revision, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// Revision returns only the current revision of a document.
func (s *Store) Revision(ctx context.Context, collection, user string) (string, error) {
	var rev string
	err := s.db.QueryRowContext(ctx,
		"SELECT revision FROM documents WHERE collection = ? AND user_id = ?",
		collection, user,
	).Scan(&rev)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get revision: %w", err)
	}
	return rev, nil
}

// Put replaces the document body, assigns a new revision and notifies
// subscribers of that key.
func (s *Store) Put(ctx context.Context, collection, user string, body []byte) (Document, error) {
	doc := Document{
		Collection: collection,
		UserID:     user,
		Body:       append([]byte(nil), body...),
		Revision:   uuid.New().String(),
		UpdatedAt:  time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, user_id, body, revision, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (collection, user_id) DO UPDATE SET
			body = excluded.body,
			revision = excluded.revision,
			updated_at = excluded.updated_at`,
		doc.Collection, doc.UserID, doc.Body, doc.Revision, doc.UpdatedAt,
	)
	if err != nil {
		return Document{}, fmt.Errorf("put document: %w", err)
	}
	s.notify(doc)
	return doc, nil
}

// Delete removes a document.
func (s *Store) Delete(ctx context.Context, collection, user string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE collection = ? AND user_id = ?",
		collection, user,
	)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Subscribe calls fn after every Put to (collection, user) made through
// this Store. fn runs on the writer's goroutine. The returned function
// removes the subscription.
func (s *Store) Subscribe(collection, user string, fn func(Document)) func() {
	k := key{collection, user}
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs[k] = append(s.subs[k], subscriber{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		subs := s.subs[k]
		for i, sub := range subs {
			if sub.id == id {
				s.subs[k] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
		if len(s.subs[k]) == 0 {
			delete(s.subs, k)
		}
	}
}

func (s *Store) notify(doc Document) {
	s.mu.Lock()
	subs := append([]subscriber(nil), s.subs[key{doc.Collection, doc.UserID}]...)
	s.mu.Unlock()
	for _, sub := range subs {
		sub.fn(doc)
	}
}
