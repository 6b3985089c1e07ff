package signal

import (
	"sync"

	"perp-trader/internal/models"
)

// History is a fixed-capacity ring buffer of emitted signals, kept for
// observability. Oldest entries are silently dropped.
type History struct {
	mu      sync.RWMutex
	entries []*models.TradingSignal
	next    int
	full    bool
}

// NewHistory creates a ring buffer holding up to capacity signals.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{entries: make([]*models.TradingSignal, capacity)}
}

// Append records a signal, evicting the oldest when full.
func (h *History) Append(sig *models.TradingSignal) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[h.next] = sig
	h.next = (h.next + 1) % len(h.entries)
	if h.next == 0 {
		h.full = true
	}
}

// Recent returns up to n signals, newest first.
func (h *History) Recent(n int) []*models.TradingSignal {
	h.mu.RLock()
	defer h.mu.RUnlock()

	size := h.next
	if h.full {
		size = len(h.entries)
	}
	if n > size {
		n = size
	}

	out := make([]*models.TradingSignal, 0, n)
	for i := 1; i <= n; i++ {
		idx := (h.next - i + len(h.entries)) % len(h.entries)
		out = append(out, h.entries[idx])
	}
	return out
}

// Len returns the number of stored signals.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.full {
		return len(h.entries)
	}
	return h.next
}
