package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/convoarchive/convoarchive/internal/search"
)

var suggestLimit int

var suggestCmd = &cobra.Command{
	Use:   "suggest <prefix>",
	Short: "List conversation titles starting with a prefix",
	Long: `Suggest returns conversation titles beginning with prefix, most
recently created first — a lightweight autocomplete over titles rather
than a full-text search.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSuggest,
}

func init() {
	suggestCmd.Flags().IntVar(&suggestLimit, "limit", search.DefaultLimit, "maximum number of suggestions")
	rootCmd.AddCommand(suggestCmd)
}

func runSuggest(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	prefix := strings.Join(args, " ")
	titles, err := a.engine.GetSearchSuggestions(context.Background(), prefix, suggestLimit)
	if err != nil {
		return fmt.Errorf("archivecli: %w", err)
	}
	if len(titles) == 0 {
		fmt.Println("no suggestions")
		return nil
	}
	for _, t := range titles {
		fmt.Println(t)
	}
	return nil
}
