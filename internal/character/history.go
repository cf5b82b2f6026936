package character

import (
	"fmt"
	"strings"
	"sync"

	"github.com/bottega-vr/bottega/pkg/types"
)

// DefaultHistoryDepth is how many exchanges a character remembers when
// no depth is configured.
const DefaultHistoryDepth = 3

// History is a bounded FIFO of completed exchanges. When full, adding an
// exchange evicts the oldest. Safe for concurrent use.
type History struct {
	mu        sync.RWMutex
	max       int
	speaker   string
	exchanges []types.Exchange
}

// NewHistory creates a history remembering up to max exchanges, rendered
// with the given character speaker label. max values below 1 use
// DefaultHistoryDepth.
func NewHistory(speaker string, max int) *History {
	if max < 1 {
		max = DefaultHistoryDepth
	}
	if speaker == "" {
		speaker = "Leonardo"
	}
	return &History{max: max, speaker: speaker}
}

// Add appends a completed exchange, evicting the oldest entries beyond
// the configured depth.
func (h *History) Add(visitor, reply string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.exchanges = append(h.exchanges, types.Exchange{Visitor: visitor, Character: reply})
	if n := len(h.exchanges) - h.max; n > 0 {
		h.exchanges = append(h.exchanges[:0], h.exchanges[n:]...)
	}
}

// Len returns the number of remembered exchanges.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.exchanges)
}

// Exchanges returns a copy of the remembered exchanges, oldest first.
func (h *History) Exchanges() []types.Exchange {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]types.Exchange, len(h.exchanges))
	copy(out, h.exchanges)
	return out
}

// Formatted renders the history as a prompt section. Empty history
// renders as the empty string.
func (h *History) Formatted() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.exchanges) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Recent conversation history (remember this context):\n")
	for _, ex := range h.exchanges {
		fmt.Fprintf(&b, "Visitor: %s\n%s: %s\n\n", ex.Visitor, h.speaker, ex.Character)
	}
	return b.String()
}

// Clear forgets all exchanges.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.exchanges = nil
}
