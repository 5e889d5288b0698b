// Command archivecli imports conversation exports into a local archive
// and searches them.
//
// Usage:
//
//	archivecli import [provider] <path>
//	archivecli search <query>
//	archivecli search --dsl "provider:claude after:2024-01-01 rollout"
//	archivecli show <conversation-id>
//	archivecli suggest <prefix>
//	archivecli serve
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/convoarchive/convoarchive/internal/cache"
	"github.com/convoarchive/convoarchive/internal/canonical"
	"github.com/convoarchive/convoarchive/internal/config"
	"github.com/convoarchive/convoarchive/internal/logging"
	"github.com/convoarchive/convoarchive/internal/maintenance"
	"github.com/convoarchive/convoarchive/internal/registry"
	"github.com/convoarchive/convoarchive/internal/search"
	"github.com/convoarchive/convoarchive/internal/store"
)

var version = "dev"

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "archivecli",
	Short:   "Import and search archived AI chat conversations",
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (optional)")
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(serveCmd)
}

// app bundles the wiring every subcommand needs, built once per
// invocation from config.
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	store    *store.Store
	registry *registry.Registry
	engine   *search.Engine

	searchCache  *cache.Cache[string, []search.SearchResult]
	previewCache *cache.Cache[int64, store.ConversationRow]
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logCfg := logging.NewDefaultConfig()
	logger, err := logging.NewLogger(logCfg, nil)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	st, err := store.Open(cfg.Store.Path, cfg.Store.MaxOpenConns, cfg.Store.CachePages)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	searchCache := cache.New[string, []search.SearchResult](
		"search_results",
		cfg.Cache.SearchResults.TTL.Duration(),
		cfg.Cache.SearchResults.Capacity,
		cloneSearchResults,
	)
	previewCache := cache.New[int64, store.ConversationRow](
		"conversation_preview",
		cfg.Cache.ConversationPreview.TTL.Duration(),
		cfg.Cache.ConversationPreview.Capacity,
		cloneConversationRow,
	)

	return &app{
		cfg:          cfg,
		logger:       logger,
		store:        st,
		registry:     registry.New(),
		engine:       search.New(st.DB()).WithSnippetLength(cfg.Search.SnippetLength),
		searchCache:  searchCache,
		previewCache: previewCache,
	}, nil
}

func (a *app) Close() {
	_ = a.logger.Sync()
	_ = a.store.Close()
}

func cloneSearchResults(in []search.SearchResult) []search.SearchResult {
	out := make([]search.SearchResult, len(in))
	copy(out, in)
	return out
}

func cloneConversationRow(in store.ConversationRow) store.ConversationRow {
	out := in
	out.Messages = append([]canonical.Message(nil), in.Messages...)
	return out
}

// signalContext returns a context cancelled on SIGINT/SIGTERM, grounded
// on the daemon's own shutdown pattern.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx, cancel
}

func startMaintenance(a *app) *maintenance.Runner {
	runner := maintenance.New(
		[]maintenance.Evictor{a.searchCache, a.previewCache},
		a.store,
		a.cfg.Store.Path,
		a.cfg.Maintenance.Interval.Duration(),
		a.logger.Underlying(),
	)
	return runner
}
