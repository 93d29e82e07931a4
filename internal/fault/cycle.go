package fault

import (
	"sync"
	"time"
)

const (
	// DefaultLookback bounds how many recent messages are kept per
	// conversation and scanned for cycles.
	DefaultLookback = 6

	// compareLength truncates message contents before comparison, so that
	// long responses differing only in a trailing detail still count as
	// repeats.
	compareLength = 100

	// repeatThreshold flags a cycle when a single message appears this many
	// times among the last four entries.
	repeatThreshold = 3
)

// Message is one recorded conversational exchange.
type Message struct {
	Operation string
	Content   string
	At        time.Time
}

// MessageHistory is a bounded, ordered record of recent message contents for
// one conversation. Older entries drop FIFO once the lookback cap is
// reached. It exists solely to feed the cycle detector and is discarded with
// the scenario that owns it.
type MessageHistory struct {
	mu      sync.Mutex
	max     int
	entries []Message
}

// NewMessageHistory creates a history capped at max entries.
// Non-positive max falls back to DefaultLookback.
func NewMessageHistory(max int) *MessageHistory {
	if max <= 0 {
		max = DefaultLookback
	}
	return &MessageHistory{max: max}
}

// Append records a message, truncating its content to the comparison length
// and evicting the oldest entry if the history is full.
func (h *MessageHistory) Append(operation, content string, at time.Time) {
	runes := []rune(content)
	if len(runes) > compareLength {
		content = string(runes[:compareLength])
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, Message{Operation: operation, Content: content, At: at})
	if len(h.entries) > h.max {
		h.entries = h.entries[len(h.entries)-h.max:]
	}
}

// Len returns the number of recorded messages.
func (h *MessageHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Contents returns a copy of the recorded message contents, oldest first.
func (h *MessageHistory) Contents() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.entries))
	for i, m := range h.entries {
		out[i] = m.Content
	}
	return out
}

// DetectCycle reports whether the history contains a non-productive
// repeating pattern.
//
// Two signals, first match wins:
//
//  1. For pattern lengths k = 2..⌊N/2⌋, any k-length window that exactly
//     equals the immediately following k-length window.
//  2. Any single content appearing at least three times among the last four
//     entries.
//
// Detection is a boolean, not a count. Fewer than three messages can never
// cycle.
func DetectCycle(h *MessageHistory) bool {
	if detectCycleIn(h.Contents()) {
		cyclesDetected.Inc()
		return true
	}
	return false
}

// detectCycleIn runs the scan over a plain content slice.
func detectCycleIn(contents []string) bool {
	n := len(contents)
	if n < repeatThreshold {
		return false
	}

	for k := 2; k <= n/2; k++ {
		for start := 0; start+2*k <= n; start++ {
			if windowsEqual(contents[start:start+k], contents[start+k:start+2*k]) {
				return true
			}
		}
	}

	// Exact repetitions among the last four entries.
	tail := contents
	if n > 4 {
		tail = contents[n-4:]
	}
	counts := make(map[string]int, len(tail))
	for _, content := range tail {
		counts[content]++
		if counts[content] >= repeatThreshold {
			return true
		}
	}
	return false
}

// windowsEqual compares two equal-length content windows.
func windowsEqual(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
