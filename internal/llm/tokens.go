package llm

import "sync"

// TokenUsage is aggregated token accounting for one client.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// TokenTracker accumulates API-reported token usage across calls.
// Safe for concurrent use; every completion in every wave reports here.
type TokenTracker struct {
	mu    sync.Mutex
	usage TokenUsage
}

// NewTokenTracker creates an empty tracker.
func NewTokenTracker() *TokenTracker {
	return &TokenTracker{}
}

// Add records the usage from one API response.
func (t *TokenTracker) Add(input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.usage.InputTokens += input
	t.usage.OutputTokens += output
	t.usage.TotalTokens += input + output
}

// Usage returns a snapshot of the accumulated counts.
func (t *TokenTracker) Usage() TokenUsage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.usage
}
