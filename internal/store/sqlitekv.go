package store

import (
	"database/sql"
	"errors"
	"fmt"

	apperrors "perp-trader/internal/errors"
)

// SQLiteKV implements KeyValueStore on the kv_store table. Unlike
// MemoryStore it is durable: settings saved by one process are seen by the
// next, and the performance snapshot (including the consecutive-loss
// counter) survives a restart. Update serializes writers through an
// immediate write transaction, so the read-modify-write is atomic across
// processes, not just goroutines.
type SQLiteKV struct {
	db *sql.DB
}

// Get returns the value for key, or ErrKeyNotFound.
func (s *SQLiteKV) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv_store WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperrors.ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("kv get %q: %w", key, err)
	}
	return value, nil
}

// Set stores the value for key.
func (s *SQLiteKV) Set(key string, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO kv_store (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		return fmt.Errorf("kv set %q: %w", key, err)
	}
	return nil
}

// Delete removes the key. Deleting an absent key is not an error.
func (s *SQLiteKV) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM kv_store WHERE key = ?`, key); err != nil {
		return fmt.Errorf("kv delete %q: %w", key, err)
	}
	return nil
}

// Keys returns all keys with the given prefix.
func (s *SQLiteKV) Keys(prefix string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT key FROM kv_store WHERE key LIKE ? ESCAPE '\'`,
		likePrefix(prefix))
	if err != nil {
		return nil, fmt.Errorf("kv keys %q: %w", prefix, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("kv keys %q: %w", prefix, err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// likePrefix escapes LIKE metacharacters so a prefix matches literally.
func likePrefix(prefix string) string {
	escaped := make([]byte, 0, len(prefix)+1)
	for i := 0; i < len(prefix); i++ {
		switch prefix[i] {
		case '%', '_', '\\':
			escaped = append(escaped, '\\')
		}
		escaped = append(escaped, prefix[i])
	}
	return string(escaped) + "%"
}

// Update applies fn atomically to the key inside one write transaction.
// fn receives the current value and whether it exists, and returns the new
// value and whether to keep the key; returning keep=false deletes it. An
// error from fn aborts the update and rolls the transaction back.
func (s *SQLiteKV) Update(key string, fn func(current string, exists bool) (string, bool, error)) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("kv update %q: %w", key, err)
	}
	defer tx.Rollback()

	var current string
	exists := true
	err = tx.QueryRow(`SELECT value FROM kv_store WHERE key = ?`, key).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		exists = false
	} else if err != nil {
		return fmt.Errorf("kv update %q: %w", key, err)
	}

	next, keep, err := fn(current, exists)
	if err != nil {
		return err
	}

	if keep {
		_, err = tx.Exec(`
			INSERT INTO kv_store (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET
				value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
			key, next)
	} else {
		_, err = tx.Exec(`DELETE FROM kv_store WHERE key = ?`, key)
	}
	if err != nil {
		return fmt.Errorf("kv update %q: %w", key, err)
	}
	return tx.Commit()
}
