package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/openrisk-labs/kestrel/internal/domain"
)

// NoPatternsContext is returned when no similar patterns exist for a query.
const NoPatternsContext = "No similar patterns found."

// Searcher retrieves similar fraud patterns from the persistent library using
// deterministic hash embeddings and in-memory cosine ranking.
type Searcher struct {
	store    *store
	embedder *Embedder
	topK     int
}

// New opens the pattern store and optionally seeds the built-in library.
// cache may be nil to disable embedding caching.
func New(cfg domain.RetrievalConfig, cache domain.Cache) (*Searcher, error) {
	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	topK := cfg.TopK
	if topK <= 0 {
		topK = 5
	}

	s := &Searcher{
		store:    st,
		embedder: NewEmbedder(cfg.Dimensions, cache),
		topK:     topK,
	}

	if cfg.SeedDefaults {
		if err := s.seedIfEmpty(context.Background()); err != nil {
			st.close()
			return nil, fmt.Errorf("failed to seed pattern library: %w", err)
		}
	}

	return s, nil
}

// seedIfEmpty loads the built-in pattern library on first run only.
func (s *Searcher) seedIfEmpty(ctx context.Context) error {
	n, err := s.store.count(ctx, "")
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	seeded := 0
	for sector, patterns := range defaultPatterns() {
		for _, p := range patterns {
			pattern := p
			pattern.Sector = sector
			if err := s.Add(ctx, &pattern); err != nil {
				return err
			}
			seeded++
		}
	}

	slog.Info("seeded pattern library", "patterns", seeded)
	return nil
}

// Query embeds the query text and returns the top-K most similar patterns for
// the sector, formatted as prompt context.
func (s *Searcher) Query(ctx context.Context, sector domain.Sector, queryText string, topK int) (*domain.PatternContext, error) {
	if topK <= 0 {
		topK = s.topK
	}

	queryVec := s.embedder.Embed(ctx, string(sector), queryText)

	stored, err := s.store.bySector(ctx, sector)
	if err != nil {
		return nil, fmt.Errorf("failed to load patterns: %w", err)
	}

	if len(stored) == 0 {
		return &domain.PatternContext{Context: NoPatternsContext}, nil
	}

	matches := make([]domain.PatternMatch, 0, len(stored))
	for _, p := range stored {
		matches = append(matches, domain.PatternMatch{
			Pattern:    p.Pattern,
			Similarity: cosineSimilarity(queryVec, p.embedding),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}

	return &domain.PatternContext{
		Context:  formatContext(matches),
		Count:    len(matches),
		Patterns: matches,
	}, nil
}

// Add inserts a pattern into the library, embedding its description.
func (s *Searcher) Add(ctx context.Context, p *domain.Pattern) error {
	if p.Description == "" {
		return fmt.Errorf("pattern description is required")
	}
	if p.Sector == "" {
		return fmt.Errorf("pattern sector is required")
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.RiskLevel == "" {
		p.RiskLevel = domain.RiskLevelFor(p.Score)
	}

	embedding := s.embedder.Embed(ctx, string(p.Sector), p.Description)
	return s.store.insert(ctx, p, embedding)
}

// Count returns the number of stored patterns for a sector ("" = all).
func (s *Searcher) Count(ctx context.Context, sector domain.Sector) (int, error) {
	return s.store.count(ctx, sector)
}

// Ping checks store connectivity.
func (s *Searcher) Ping(ctx context.Context) error {
	return s.store.ping(ctx)
}

// Close closes the pattern store.
func (s *Searcher) Close() error {
	return s.store.close()
}

// formatContext renders the top matches as the prompt context block. Only the
// strongest three are spelled out.
func formatContext(matches []domain.PatternMatch) string {
	if len(matches) == 0 {
		return NoPatternsContext
	}

	parts := []string{"Similar fraud patterns from database:"}
	for i, m := range matches {
		if i >= 3 {
			break
		}
		parts = append(parts, fmt.Sprintf("%d. [%s RISK] %s (similarity: %.2f)",
			i+1, m.RiskLevel, m.Description, m.Similarity))
	}
	return strings.Join(parts, "\n")
}
