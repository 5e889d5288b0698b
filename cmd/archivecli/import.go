package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/convoarchive/convoarchive/internal/canonical"
	"github.com/convoarchive/convoarchive/internal/importer"
	"github.com/convoarchive/convoarchive/internal/logging"
	"github.com/convoarchive/convoarchive/internal/metrics"
	"github.com/convoarchive/convoarchive/internal/registry"
)

var importCmd = &cobra.Command{
	Use:   "import [provider] <path>",
	Short: "Import a provider export file or directory into the archive",
	Long: `Import reads one provider's export (a single JSON file, or a
directory the provider's own file-discovery rules apply to) and loads
every conversation it contains into the archive.

If provider is omitted, the registry sniffs the file to find the first
parser willing to handle it.

Examples:
  archivecli import claude ~/Downloads/claude-export/conversations.json
  archivecli import ~/Downloads/chatgpt-export`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	var providerName, target string
	if len(args) == 2 {
		providerName, target = args[0], args[1]
	} else {
		target = args[0]
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	files, provider, err := resolveFiles(a.registry, target, providerName)
	if err != nil {
		return err
	}

	ctx := logging.WithRequestID(context.Background(), uuid.NewString())
	for _, file := range files {
		if err := importOneFile(ctx, a, provider, file); err != nil {
			return err
		}
	}
	return nil
}

// resolveFiles figures out which files to import: if target is a
// directory, it delegates to the registry's FindFiles; otherwise target
// itself is the one file to import and provider must be named or
// sniffable directly.
func resolveFiles(reg *registry.Registry, target, providerName string) ([]string, string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, "", fmt.Errorf("archivecli: %w", err)
	}
	if info.IsDir() {
		files, name, err := reg.FindFiles(target, providerName)
		if err != nil {
			return nil, "", err
		}
		if len(files) == 0 {
			return nil, "", fmt.Errorf("archivecli: no importable files found in %s", target)
		}
		return files, name, nil
	}

	if providerName != "" {
		p := reg.ParserByName(providerName)
		if p == nil {
			return nil, "", registry.ErrUnknownProvider
		}
		return []string{target}, p.Name(), nil
	}

	p := reg.FindProvider(target)
	if p == nil {
		return nil, "", fmt.Errorf("archivecli: could not detect a provider for %s", target)
	}
	return []string{target}, p.Name(), nil
}

func importOneFile(ctx context.Context, a *app, providerName, file string) error {
	parser := a.registry.ParserByName(providerName)
	if parser == nil {
		return registry.ErrUnknownProvider
	}

	eventID, err := a.store.LogImportStart(ctx, providerName, file)
	if err != nil {
		return fmt.Errorf("archivecli: logging import start: %w", err)
	}

	imp := importer.New(parser, a.cfg.Importer.BatchSize)

	start := time.Now()
	sink := func(ctx context.Context, batch importer.Batch) (int, error) {
		accepted, err := a.store.ProcessConversationBatch(ctx, batch.Conversations)
		if err != nil {
			return accepted, err
		}
		metrics.ImportConversationsTotal.WithLabelValues(providerName).Add(float64(accepted))
		messages := 0
		for _, conv := range batch.Conversations {
			messages += len(conv.Messages)
		}
		metrics.ImportMessagesTotal.WithLabelValues(providerName).Add(float64(messages))
		return accepted, nil
	}

	stats, importErr := imp.ImportFile(ctx, file, sink)
	metrics.ImportDurationSeconds.WithLabelValues(providerName).Observe(time.Since(start).Seconds())
	status := "success"
	if importErr != nil {
		status = "failure"
	}
	metrics.ImportsTotal.WithLabelValues(providerName, status).Inc()

	completeErr := a.store.LogImportComplete(ctx, eventID, toCanonicalStats(stats), importErr)
	if completeErr != nil {
		a.logger.Warn(ctx, "failed to record import completion", zap.Error(completeErr))
	}

	if importErr != nil {
		return fmt.Errorf("archivecli: importing %s: %w", file, importErr)
	}

	fmt.Printf("%s: imported %d conversations (%d errors, %d warnings) in %s\n",
		file, stats.Imported, len(stats.Errors), len(stats.Warnings), time.Since(start).Round(time.Millisecond))
	return nil
}

func toCanonicalStats(s *importer.Stats) *canonical.ImportStats {
	out := canonical.NewImportStats()
	if s == nil {
		return out
	}
	out.AddImported(s.Imported)
	for _, e := range s.Errors {
		out.AddError(e)
	}
	for _, w := range s.Warnings {
		out.AddWarning(w)
	}
	return out
}
