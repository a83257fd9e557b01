package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// SearchParams configures a search query.
type SearchParams struct {
	Query  string
	Limit  int
	Offset int
}

// DefaultSearchParams returns sensible defaults.
func DefaultSearchParams() SearchParams {
	return SearchParams{Limit: 20}
}

// SearchResult represents the search results.
type SearchResult struct {
	Query  string      `json:"query"`
	Total  uint64      `json:"total"`
	TookMs int64       `json:"tookMs"`
	Hits   []SearchHit `json:"hits"`
}

// SearchHit is one matching room.
type SearchHit struct {
	Slug       string    `json:"slug"`
	Score      float64   `json:"score"`
	PixelCount int       `json:"pixelCount"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Search finds rooms whose slug matches the query. An empty query lists
// rooms by pixel count.
func (s *SearchIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	if params.Limit <= 0 {
		params.Limit = DefaultSearchParams().Limit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	searchRequest := bleve.NewSearchRequestOptions(buildSearchQuery(params.Query), params.Limit, params.Offset, false)
	if strings.TrimSpace(params.Query) == "" {
		searchRequest.SortBy([]string{"-pixel_count", "-updated_at", "slug"})
	} else {
		searchRequest.SortBy([]string{"-_score", "-pixel_count", "slug"})
	}
	searchRequest.Fields = []string{"slug", "pixel_count", "updated_at"}

	searchResult, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		Query:  params.Query,
		Total:  searchResult.Total,
		TookMs: searchResult.Took.Milliseconds(),
		Hits:   make([]SearchHit, 0, len(searchResult.Hits)),
	}

	for _, hit := range searchResult.Hits {
		searchHit := SearchHit{
			Slug:  hit.ID,
			Score: hit.Score,
		}
		if pc, ok := hit.Fields["pixel_count"].(float64); ok {
			searchHit.PixelCount = int(pc)
		}
		if ua, ok := hit.Fields["updated_at"].(string); ok {
			if t, err := time.Parse(time.RFC3339, ua); err == nil {
				searchHit.UpdatedAt = t
			}
		}
		result.Hits = append(result.Hits, searchHit)
	}

	return result, nil
}

// buildSearchQuery constructs the Bleve query for a free-text room search.
func buildSearchQuery(q string) query.Query {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return bleve.NewMatchAllQuery()
	}

	var textQueries []query.Query

	// Exact slug match ranks highest.
	exact := bleve.NewTermQuery(strings.ReplaceAll(q, " ", "-"))
	exact.SetField("slug")
	exact.SetBoost(5.0)
	textQueries = append(textQueries, exact)

	// Autocomplete on the slug itself.
	prefix := bleve.NewPrefixQuery(strings.ReplaceAll(q, " ", "-"))
	prefix.SetField("slug")
	prefix.SetBoost(2.0)
	textQueries = append(textQueries, prefix)

	// Word matches anywhere in the slug.
	words := bleve.NewMatchQuery(strings.ReplaceAll(q, "-", " "))
	words.SetField("words")
	textQueries = append(textQueries, words)

	// Typo tolerance per word.
	for _, w := range strings.FieldsFunc(q, func(r rune) bool { return r == ' ' || r == '-' }) {
		if len(w) < 3 {
			continue
		}
		fuzzy := bleve.NewFuzzyQuery(w)
		fuzzy.SetFuzziness(1)
		fuzzy.SetField("words")
		fuzzy.SetBoost(0.5)
		textQueries = append(textQueries, fuzzy)
	}

	return bleve.NewDisjunctionQuery(textQueries...)
}
