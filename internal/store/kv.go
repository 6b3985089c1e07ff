// Package store provides data persistence for positions, performance
// counters, and market data.
package store

import (
	"strings"
	"sync"

	apperrors "perp-trader/internal/errors"
)

// KeyValueStore is the fast keyed store backing positions, performance stats,
// cached prices, and last-signal timestamps. Implementations must serialize
// access per key: Update runs its mutation function atomically with respect
// to all other operations on the same key.
type KeyValueStore interface {
	Get(key string) (string, error)
	Set(key string, value string) error
	Delete(key string) error
	Keys(prefix string) ([]string, error)
	Update(key string, fn func(current string, exists bool) (string, bool, error)) error
}

// Key prefixes shared by the signal engine and the lifecycle manager.
const (
	KeyPrefixPosition   = "position:"
	KeyPrefixPrice      = "price:"
	KeyPrefixLastSignal = "last_signal:"
	KeyPerformance      = "performance"
	KeyTradingSettings  = "trading_settings"
)

// PositionKey returns the store key for a symbol's position record.
func PositionKey(symbol string) string {
	return KeyPrefixPosition + symbol
}

// PriceKey returns the store key for a symbol's cached price.
func PriceKey(symbol string) string {
	return KeyPrefixPrice + symbol
}

// ATRKey returns the store key for a symbol's live ATR reading.
func ATRKey(symbol string) string {
	return KeyPrefixPrice + symbol + ":atr"
}

// LastSignalKey returns the store key for a symbol's last evaluation time.
func LastSignalKey(symbol string) string {
	return KeyPrefixLastSignal + symbol
}

// MemoryStore is an in-process KeyValueStore with per-key serialization.
type MemoryStore struct {
	mu    sync.RWMutex
	data  map[string]string
	locks map[string]*sync.Mutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:  make(map[string]string),
		locks: make(map[string]*sync.Mutex),
	}
}

func (s *MemoryStore) keyLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// Get returns the value for key, or ErrKeyNotFound.
func (s *MemoryStore) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return "", apperrors.ErrKeyNotFound
	}
	return v, nil
}

// Set stores the value for key.
func (s *MemoryStore) Set(key string, value string) error {
	l := s.keyLock(key)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	s.data[key] = value
	s.mu.Unlock()
	return nil
}

// Delete removes the key. Deleting an absent key is not an error.
func (s *MemoryStore) Delete(key string) error {
	l := s.keyLock(key)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

// Keys returns all keys with the given prefix.
func (s *MemoryStore) Keys(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Update applies fn atomically to the key. fn receives the current value and
// whether it exists, and returns the new value and whether to keep the key;
// returning keep=false deletes it. An error from fn aborts the update.
func (s *MemoryStore) Update(key string, fn func(current string, exists bool) (string, bool, error)) error {
	l := s.keyLock(key)
	l.Lock()
	defer l.Unlock()

	s.mu.RLock()
	current, exists := s.data[key]
	s.mu.RUnlock()

	next, keep, err := fn(current, exists)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if keep {
		s.data[key] = next
	} else {
		delete(s.data, key)
	}
	s.mu.Unlock()
	return nil
}
