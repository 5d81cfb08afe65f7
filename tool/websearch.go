package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// searchDomains are the synthetic domains cycled through by the web search
// stub. The stub produces deterministic output for a given query.
var searchDomains = []string{
	"wikipedia.org",
	"github.com",
	"stackoverflow.com",
	"docs.python.org",
	"example.com",
}

// SearchResult is one entry in the web search stub output.
type SearchResult struct {
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	Snippet   string  `json:"snippet"`
	Domain    string  `json:"domain"`
	Relevance float64 `json:"relevance"`
}

// generateSearchResults builds the deterministic result list for a query.
// Relevance decays by 0.1 per position, rounded to two decimals.
func generateSearchResults(query string, maxResults int) []SearchResult {
	slug := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(query)), " ", "-")
	results := make([]SearchResult, 0, maxResults)
	for i := 0; i < maxResults; i++ {
		domain := searchDomains[i%len(searchDomains)]
		relevance := math.Round((1.0-0.1*float64(i))*100) / 100
		if relevance < 0 {
			relevance = 0
		}
		results = append(results, SearchResult{
			Title:     fmt.Sprintf("Result %d for '%s'", i+1, query),
			URL:       fmt.Sprintf("https://%s/search/%s/%d", domain, slug, i+1),
			Snippet:   fmt.Sprintf("This is a synthetic summary for '%s' from %s.", query, domain),
			Domain:    domain,
			Relevance: relevance,
		})
	}
	return results
}

// NewWebSearchSpec creates the web_search tool. This is a stub capability: it
// returns synthetic results deterministically and never touches the network.
func NewWebSearchSpec() *Spec {
	return &Spec{
		Name:        "web_search",
		Description: "Search the web for a query. Returns a list of results with title, url, snippet and relevance.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Search query.",
					"minLength":   1,
				},
				"max_results": map[string]any{
					"type":        "integer",
					"description": "Maximum number of results to return. Defaults to 5, clamped to [1, 20].",
				},
			},
			"required": []string{"query"},
		},
		Handler: func(ctx context.Context, args map[string]any) Result {
			query, _ := args["query"].(string)
			if strings.TrimSpace(query) == "" {
				return Err(CodeInvalidArguments, "query must not be empty")
			}

			maxResults := 5
			if raw, ok := args["max_results"]; ok {
				switch v := raw.(type) {
				case float64:
					maxResults = int(v)
				case int:
					maxResults = v
				}
			}
			if maxResults < 1 {
				maxResults = 1
			}
			if maxResults > 20 {
				maxResults = 20
			}

			payload, err := json.MarshalIndent(map[string]any{
				"query":   query,
				"results": generateSearchResults(query, maxResults),
			}, "", "  ")
			if err != nil {
				return Errf(CodeExecutionError, "failed to encode results: %v", err)
			}
			return Ok(string(payload))
		},
	}
}
