package shared

import (
	"time"
)

// TokenUsage tracks the tokens a model call consumed.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Model            string
}

// CallMeta describes one call to an external model: who made it, what it
// cost and how long it took.
type CallMeta struct {
	Component string
	Usage     TokenUsage
	Latency   time.Duration
}
