package character

import (
	"strings"
	"testing"
)

func TestHistoryBounded(t *testing.T) {
	h := NewHistory("Leonardo", 3)
	h.Add("q1", "a1")
	h.Add("q2", "a2")
	h.Add("q3", "a3")
	h.Add("q4", "a4")

	if h.Len() != 3 {
		t.Fatalf("Len = %d, want 3", h.Len())
	}
	ex := h.Exchanges()
	if ex[0].Visitor != "q2" || ex[2].Visitor != "q4" {
		t.Errorf("oldest exchange not evicted: %+v", ex)
	}
}

func TestHistoryFormatted(t *testing.T) {
	h := NewHistory("Leonardo", 3)
	if h.Formatted() != "" {
		t.Error("empty history should render as empty string")
	}

	h.Add("What are you painting?", "La Gioconda, of course.")
	got := h.Formatted()
	if !strings.HasPrefix(got, "Recent conversation history (remember this context):\n") {
		t.Errorf("missing header: %q", got)
	}
	if !strings.Contains(got, "Visitor: What are you painting?\n") {
		t.Errorf("missing visitor line: %q", got)
	}
	if !strings.Contains(got, "Leonardo: La Gioconda, of course.\n") {
		t.Errorf("missing character line: %q", got)
	}
}

func TestHistoryClear(t *testing.T) {
	h := NewHistory("Leonardo", 3)
	h.Add("q", "a")
	h.Clear()
	if h.Len() != 0 {
		t.Errorf("Len after Clear = %d", h.Len())
	}
	if h.Formatted() != "" {
		t.Error("Formatted after Clear should be empty")
	}
}

func TestHistoryDefaults(t *testing.T) {
	h := NewHistory("", 0)
	for i := 0; i < DefaultHistoryDepth+2; i++ {
		h.Add("q", "a")
	}
	if h.Len() != DefaultHistoryDepth {
		t.Errorf("Len = %d, want %d", h.Len(), DefaultHistoryDepth)
	}
}
