package domain

import "context"

// Pattern is one entry in the fraud-pattern library used for similarity
// retrieval.
type Pattern struct {
	ID          string    `json:"id"`
	Sector      Sector    `json:"sector"`
	Description string    `json:"description"`
	RiskLevel   RiskLevel `json:"riskLevel"`
	Score       float64   `json:"score"`
}

// PatternMatch pairs a pattern with its similarity to the query.
type PatternMatch struct {
	Pattern
	Similarity float64 `json:"similarity"`
}

// PatternContext is what the scoring pipeline consumes from retrieval: prose
// context for prompts and deterministic rescaling, plus the match count.
type PatternContext struct {
	Context  string         `json:"context"`
	Count    int            `json:"count"`
	Patterns []PatternMatch `json:"patterns,omitempty"`
}

// PatternSearcher retrieves similar fraud patterns for a query text.
type PatternSearcher interface {
	Query(ctx context.Context, sector Sector, queryText string, topK int) (*PatternContext, error)

	// Add inserts a pattern into the library.
	Add(ctx context.Context, p *Pattern) error

	// Count returns the number of stored patterns for a sector ("" = all).
	Count(ctx context.Context, sector Sector) (int, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}
