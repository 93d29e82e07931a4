package fault

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func historyOf(contents ...string) *MessageHistory {
	h := NewMessageHistory(DefaultLookback)
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for _, content := range contents {
		h.Append("respond", content, at)
		at = at.Add(time.Second)
	}
	return h
}

func TestDetectCycle_Alternation(t *testing.T) {
	assert.True(t, DetectCycle(historyOf("A", "B", "A", "B")))
}

func TestDetectCycle_NoRepetition(t *testing.T) {
	assert.False(t, DetectCycle(historyOf("A", "B", "C", "D")))
}

func TestDetectCycle_ImmediateRepetition(t *testing.T) {
	assert.True(t, DetectCycle(historyOf("X", "X", "X")))
}

func TestDetectCycle_TooShort(t *testing.T) {
	assert.False(t, DetectCycle(historyOf()))
	assert.False(t, DetectCycle(historyOf("A")))
	assert.False(t, DetectCycle(historyOf("A", "A")))
}

func TestDetectCycle_LongerPeriod(t *testing.T) {
	// Period three, repeated twice across a six-deep history.
	assert.True(t, DetectCycle(historyOf("A", "B", "C", "A", "B", "C")))
}

func TestDetectCycle_ThreeOfLastFour(t *testing.T) {
	// No contiguous pattern repeat, but the same content dominates the tail.
	assert.True(t, DetectCycle(historyOf("A", "B", "X", "X", "C", "X")))
	assert.False(t, DetectCycle(historyOf("A", "B", "X", "X", "C", "D")))
}

func TestMessageHistory_EvictsOldest(t *testing.T) {
	h := NewMessageHistory(3)
	at := time.Now()
	for _, content := range []string{"one", "two", "three", "four"} {
		h.Append("respond", content, at)
	}
	assert.Equal(t, 3, h.Len())
	assert.Equal(t, []string{"two", "three", "four"}, h.Contents())
}

func TestMessageHistory_TruncatesForComparison(t *testing.T) {
	h := NewMessageHistory(6)
	at := time.Now()
	prefix := strings.Repeat("p", compareLength)

	// Two messages that differ only beyond the comparison length count as
	// the same message.
	h.Append("respond", prefix+"first tail", at)
	h.Append("respond", "break", at)
	h.Append("respond", prefix+"second tail", at)
	h.Append("respond", "break", at)

	assert.True(t, DetectCycle(h))
}

func TestMessageHistory_DefaultLookback(t *testing.T) {
	h := NewMessageHistory(0)
	at := time.Now()
	for i := 0; i < 10; i++ {
		h.Append("respond", strings.Repeat("m", i+1), at)
	}
	assert.Equal(t, DefaultLookback, h.Len())
}
