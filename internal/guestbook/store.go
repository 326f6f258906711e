// Package guestbook persists visitor entries left through the telnet session.
package guestbook

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ziadkadry99/telewiki/internal/db"
)

// ErrEmptyName is returned when an entry has no name.
var ErrEmptyName = errors.New("guestbook entry needs a name")

// Entry is a single guestbook signature.
type Entry struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Name      string    `json:"name"`
	Comment   string    `json:"comment"`
}

// Store reads and writes guestbook entries.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Add inserts a new entry. If entry.ID is empty a UUID is generated; a zero
// CreatedAt is set to the current time.
func (s *Store) Add(ctx context.Context, entry Entry) (*Entry, error) {
	entry.Name = strings.TrimSpace(entry.Name)
	entry.Comment = strings.TrimSpace(entry.Comment)
	if entry.Name == "" {
		return nil, ErrEmptyName
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	entry.CreatedAt = entry.CreatedAt.UTC().Truncate(time.Second)

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO guestbook_entries (id, created_at, name, comment) VALUES (?, ?, ?, ?)",
		entry.ID,
		entry.CreatedAt.Format(time.DateTime),
		entry.Name,
		entry.Comment,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting guestbook entry: %w", err)
	}
	return &entry, nil
}

// List returns up to limit entries, newest first. A limit of zero or less
// returns every entry.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := "SELECT id, created_at, name, comment FROM guestbook_entries ORDER BY created_at DESC, rowid DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying guestbook entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanInto(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Get retrieves a single entry.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, created_at, name, comment FROM guestbook_entries WHERE id = ?", id)
	return scanInto(row)
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanInto(sc scanner) (*Entry, error) {
	var (
		e       Entry
		ts      string
		comment sql.NullString
	)
	if err := sc.Scan(&e.ID, &ts, &e.Name, &comment); err != nil {
		return nil, err
	}
	e.Comment = comment.String

	if t, parseErr := time.Parse(time.DateTime, ts); parseErr == nil {
		e.CreatedAt = t
	} else if t, parseErr := time.Parse(time.RFC3339, ts); parseErr == nil {
		e.CreatedAt = t
	}
	return &e, nil
}

// Lines renders entries for the terminal pager.
func Lines(entries []Entry) []string {
	lines := make([]string, 0, len(entries)*3)
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%s  %s", e.CreatedAt.Format("2006-01-02 15:04"), e.Name))
		if e.Comment != "" {
			lines = append(lines, "  "+e.Comment)
		}
		lines = append(lines, "")
	}
	return lines
}
