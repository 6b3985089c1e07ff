// Package trading implements the position lifecycle manager: the keyed
// position book, exit-condition evaluation, the trailing-stop ratchet and
// the concurrent monitoring loop.
package trading

import (
	"encoding/json"
	"strings"

	apperrors "perp-trader/internal/errors"
	"perp-trader/internal/models"
	"perp-trader/internal/store"
)

// PositionBook is the typed boundary over the key-value store for position
// records. The symbol is the unique key; all mutation goes through the
// store's per-key atomic update so concurrent workers never interleave a
// read-modify-write on the same position.
type PositionBook struct {
	kv store.KeyValueStore
}

// NewPositionBook creates a position book over the given store.
func NewPositionBook(kv store.KeyValueStore) *PositionBook {
	return &PositionBook{kv: kv}
}

// Get returns the position for symbol, or ErrPositionNotFound.
func (b *PositionBook) Get(symbol string) (*models.Position, error) {
	raw, err := b.kv.Get(store.PositionKey(symbol))
	if err != nil {
		if apperrors.Is(err, apperrors.ErrKeyNotFound) {
			return nil, apperrors.ErrPositionNotFound
		}
		return nil, err
	}
	var pos models.Position
	if err := json.Unmarshal([]byte(raw), &pos); err != nil {
		return nil, apperrors.Wrapf(err, "corrupt position record for %s", symbol)
	}
	return &pos, nil
}

// Create stores a new position, failing with ErrPositionExists when a record
// for the symbol is already present.
func (b *PositionBook) Create(pos *models.Position) error {
	return b.kv.Update(store.PositionKey(pos.Symbol), func(current string, exists bool) (string, bool, error) {
		if exists {
			return current, true, apperrors.ErrPositionExists
		}
		raw, err := json.Marshal(pos)
		if err != nil {
			return "", false, err
		}
		return string(raw), true, nil
	})
}

// Mutate applies fn to the stored position under the symbol's key lock.
// fn receives the current record and returns the updated one; returning an
// error leaves the record unchanged.
func (b *PositionBook) Mutate(symbol string, fn func(pos *models.Position) error) error {
	return b.kv.Update(store.PositionKey(symbol), func(current string, exists bool) (string, bool, error) {
		if !exists {
			return "", false, apperrors.ErrPositionNotFound
		}
		var pos models.Position
		if err := json.Unmarshal([]byte(current), &pos); err != nil {
			return current, true, apperrors.Wrapf(err, "corrupt position record for %s", symbol)
		}
		if err := fn(&pos); err != nil {
			return current, true, err
		}
		raw, err := json.Marshal(&pos)
		if err != nil {
			return current, true, err
		}
		return string(raw), true, nil
	})
}

// Delete removes the position record for symbol. Deleting an absent record
// is not an error; removal must always succeed during close.
func (b *PositionBook) Delete(symbol string) error {
	return b.kv.Delete(store.PositionKey(symbol))
}

// Symbols returns every symbol with an open position.
func (b *PositionBook) Symbols() ([]string, error) {
	keys, err := b.kv.Keys(store.KeyPrefixPosition)
	if err != nil {
		return nil, err
	}
	symbols := make([]string, 0, len(keys))
	for _, k := range keys {
		symbols = append(symbols, strings.TrimPrefix(k, store.KeyPrefixPosition))
	}
	return symbols, nil
}
