package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/convoarchive/convoarchive/internal/store"
)

var showCmd = &cobra.Command{
	Use:   "show <conversation-id>",
	Short: "Print a conversation and its messages",
	Long: `Show resolves a conversation by the stable id search prints
(the bracketed value in each result line) and prints its messages in
order, fronting the lookup with the conversation preview cache.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	row, err := showWithCache(ctx, a, args[0])
	if err != nil {
		return fmt.Errorf("archivecli: %w", err)
	}

	fmt.Printf("[%s] %s (%s, %s)\n", row.ID, row.Title, row.Provider, row.Model)
	for _, m := range row.Messages {
		fmt.Printf("-- %s (%s) --\n%s\n\n", m.Role, m.Timestamp.Format("2006-01-02 15:04:05"), m.Content)
	}
	return nil
}

// showWithCache fronts GetConversation/GetMessages with the conversation
// preview cache, keyed by the conversation's integer row id. The row id
// has to be resolved by uid first, since that is the only identifier a
// caller has in hand; the resolved row is what gets cached and served on
// subsequent hits.
func showWithCache(ctx context.Context, a *app, uid string) (store.ConversationRow, error) {
	conv, err := a.store.GetConversation(ctx, uid)
	if err != nil {
		return store.ConversationRow{}, err
	}

	if cached, ok := a.previewCache.Get(conv.RowID); ok {
		return cached, nil
	}

	messages, err := a.store.GetMessages(ctx, uid)
	if err != nil {
		return store.ConversationRow{}, err
	}
	conv.Messages = messages

	a.previewCache.Set(conv.RowID, *conv)
	return *conv, nil
}
