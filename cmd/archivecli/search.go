package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/convoarchive/convoarchive/internal/search"
)

var (
	searchDSL   bool
	searchLimit int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search archived conversations",
	Long: `Search runs a full-text or prefix query against the archive by
default. Pass --dsl to use the filtered query language instead, e.g.:

  archivecli search --dsl "provider:claude model:claude-3-opus role:user after:2024-01-01 rollout"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().BoolVar(&searchDSL, "dsl", false, "parse the query as provider:/role:/model:/after:/before: filters plus free text")
	searchCmd.Flags().IntVar(&searchLimit, "limit", search.DefaultLimit, "maximum number of results")
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	query := strings.Join(args, " ")
	ctx := context.Background()

	results, _, err := searchWithCache(ctx, a, query)
	if err != nil {
		if _, empty := err.(search.ErrEmptyQuery); empty {
			return fmt.Errorf("archivecli: %w", err)
		}
		return err
	}

	if len(results) == 0 {
		fmt.Println("no results")
		return nil
	}
	for _, r := range results {
		fmt.Printf("[%s] %s — %s (score %.3f)\n", r.ConversationUID, r.Title, r.Snippet, r.Score)
	}
	return nil
}

// searchWithCache fronts the engine with the search-results cache, keyed
// by the lowercased query string.
func searchWithCache(ctx context.Context, a *app, query string) ([]search.SearchResult, string, error) {
	key := strings.ToLower(strings.TrimSpace(query))
	if key == "" {
		return nil, key, search.ErrEmptyQuery{}
	}
	if cached, ok := a.searchCache.Get(key); ok {
		return cached, key, nil
	}

	var results []search.SearchResult
	var err error
	if searchDSL {
		results, err = a.engine.AdvancedSearch(ctx, query, searchLimit)
	} else {
		results, err = a.engine.Search(ctx, query, searchLimit)
	}
	if err != nil {
		return nil, key, err
	}
	a.searchCache.Set(key, results)
	return results, key, nil
}
