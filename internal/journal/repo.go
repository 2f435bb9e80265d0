package journal

import (
	"fmt"
	"time"
)

// Entry is one submitted command and how it was answered.
type Entry struct {
	ID       int64     `json:"id"`
	Session  string    `json:"session"`
	At       time.Time `json:"at"`
	Command  string    `json:"command"`
	Input    string    `json:"input"`
	Outcome  string    `json:"outcome"`
	Response string    `json:"response"`
}

// Journal is the read/write surface used by the interpreter and the API.
type Journal interface {
	Record(e Entry) error
	Recent(limit int) ([]Entry, error)
	Search(term string, limit int) ([]Entry, error)
	Close() error
}

// Verify *DB satisfies Journal at compile time.
var _ Journal = (*DB)(nil)

const defaultLimit = 20

// Record appends e. A zero At is stamped with the current time.
func (db *DB) Record(e Entry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := db.conn.Exec(`
		INSERT INTO entries (session, at, command, input, outcome, response)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.Session, e.At.UTC(), e.Command, e.Input, e.Outcome, e.Response)
	if err != nil {
		return fmt.Errorf("journal: record: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (db *DB) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	return db.query(`
		SELECT id, session, at, command, input, outcome, response
		FROM entries
		ORDER BY id DESC
		LIMIT ?
	`, limit)
}

// Search returns up to limit entries whose input contains term, newest first.
func (db *DB) Search(term string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	return db.query(`
		SELECT id, session, at, command, input, outcome, response
		FROM entries
		WHERE instr(input, ?) > 0
		ORDER BY id DESC
		LIMIT ?
	`, term, limit)
}

func (db *DB) query(q string, args ...any) ([]Entry, error) {
	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: query: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Session, &e.At, &e.Command, &e.Input, &e.Outcome, &e.Response); err != nil {
			return nil, err
		}
		e.At = e.At.Local()
		out = append(out, e)
	}
	return out, rows.Err()
}
