package listing

import (
	"context"
	"fmt"
	"strings"

	"github.com/nomadnest/nomadnest/internal/logging"
)

const maxSuggestions = 8

type SearchOutcome int

const (
	OutcomeEmptyQuery SearchOutcome = iota
	OutcomeFound
	OutcomeNoResults
)

// SuggestionRow holds the fields suggestions are drawn from.
type SuggestionRow struct {
	Location string
	Country  string
	Title    string
}

// SearchStore is the persistence search and suggestions read from.
type SearchStore interface {
	// SearchAny returns listings where any text field contains any of the
	// terms, newest first.
	SearchAny(ctx context.Context, terms []string) ([]*Listing, error)
	// SuggestionRows returns rows where location, country or title
	// contains q.
	SuggestionRows(ctx context.Context, q string) ([]SuggestionRow, error)
}

// SearchResult is one search outcome. Tier is 1 for a whole phrase match
// and 2 for a match on any single word.
type SearchResult struct {
	Term     string
	Outcome  SearchOutcome
	Tier     int
	Listings []*Listing
	Message  string
}

func (r *SearchResult) Count() int { return len(r.Listings) }

type SearchEngine struct {
	store SearchStore
}

// NewSearchEngine returns an engine reading from store.
func NewSearchEngine(store SearchStore) *SearchEngine {
	return &SearchEngine{store: store}
}

// Search matches the whole phrase first and falls back to matching any
// single word of it.
func (e *SearchEngine) Search(ctx context.Context, raw string) (*SearchResult, error) {
	term := strings.TrimSpace(raw)
	if term == "" {
		return &SearchResult{Outcome: OutcomeEmptyQuery, Message: "Please enter a search term"}, nil
	}

	listings, err := e.store.SearchAny(ctx, []string{term})
	if err != nil {
		return nil, fmt.Errorf("phrase search: %w", err)
	}
	if len(listings) > 0 {
		return &SearchResult{Term: term, Outcome: OutcomeFound, Tier: 1, Listings: listings}, nil
	}

	words := strings.Fields(term)
	if len(words) > 1 {
		listings, err = e.store.SearchAny(ctx, words)
		if err != nil {
			return nil, fmt.Errorf("word search: %w", err)
		}
		if len(listings) > 0 {
			return &SearchResult{Term: term, Outcome: OutcomeFound, Tier: 2, Listings: listings}, nil
		}
	}

	return &SearchResult{
		Term:    term,
		Outcome: OutcomeNoResults,
		Message: fmt.Sprintf("No listings found for %q", term),
	}, nil
}

// Suggestions never fails; store errors are logged and yield no suggestions.
func (e *SearchEngine) Suggestions(ctx context.Context, raw string) []string {
	q := strings.TrimSpace(raw)
	if q == "" {
		return []string{}
	}

	rows, err := e.store.SuggestionRows(ctx, q)
	if err != nil {
		logging.GetLoggerFromContext(ctx).Error("suggestions query failed", "error", err)
		return []string{}
	}

	return buildSuggestions(q, rows)
}

// buildSuggestions concatenates matching locations, countries and titles,
// in that order, without duplicates.
func buildSuggestions(q string, rows []SuggestionRow) []string {
	needle := strings.ToLower(q)

	var locations, countries, titles []string
	for _, row := range rows {
		locations = append(locations, row.Location)
		countries = append(countries, row.Country)
		titles = append(titles, row.Title)
	}

	out := make([]string, 0, maxSuggestions)
	seen := make(map[string]struct{})
	for _, group := range [][]string{locations, countries, titles} {
		for _, v := range group {
			if len(out) == maxSuggestions {
				return out
			}
			if _, dup := seen[v]; dup || !strings.Contains(strings.ToLower(v), needle) {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
