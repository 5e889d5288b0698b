// Package importer streams arbitrarily large provider exports as a
// lazy sequence of canonical conversations and batches them for the
// persistence layer.
package importer

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/convoarchive/convoarchive/internal/canonical"
	"github.com/convoarchive/convoarchive/internal/providers"
)

// DefaultBatchSize is the number of conversations buffered before a batch
// is handed to the sink, absent caller configuration.
const DefaultBatchSize = 100

// Batch is one unit of work handed to the sink: consecutive
// conversations of the file, in file order.
type Batch struct {
	Conversations []canonical.Conversation
}

// Sink accepts a batch and returns the number of conversations it
// accepted. A sink error aborts the import.
type Sink func(ctx context.Context, batch Batch) (accepted int, err error)

// Stats carries the number of conversations the sink accepted (Imported)
// together with the errors and warnings recorded during the import.
type Stats struct {
	Imported int
	Errors   []canonical.ImportError
	Warnings []canonical.ImportWarning
}

// Importer drives the streaming import pipeline for one provider parser.
type Importer struct {
	parser    providers.Parser
	batchSize int
}

// New returns an Importer for parser with the given batch size (0 uses
// DefaultBatchSize).
func New(parser providers.Parser, batchSize int) *Importer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Importer{parser: parser, batchSize: batchSize}
}

// ImportFile streams path's top-level conversations array through the
// scanner and the parser, batches the results, and calls sink for each
// full (or final partial) batch.
//
// Cancellation is honored between conversations, never mid-JSON-object:
// the importer checks ctx.Err() only at conversation boundaries so a
// half-scanned object is never abandoned mid-parse, and a half-built
// batch is never committed to the sink after cancellation — it is
// dropped instead.
func (imp *Importer) ImportFile(ctx context.Context, path string, sink Sink) (*Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("importer: opening %s: %w", path, err)
	}
	defer f.Close()

	stats := canonical.NewImportStats()
	scanner := newArrayScanner(f)

	var pending []canonical.Conversation
	index := 0

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		accepted, err := sink(ctx, Batch{Conversations: pending})
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStore, err)
		}
		stats.AddImported(accepted)
		pending = pending[:0]
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return imp.collect(stats), ErrCancelled
		default:
		}

		raw, err := scanner.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return imp.collect(stats), fmt.Errorf("%w: %v", ErrFileFormat, err)
		}

		obj, err := decodeObject(raw)
		if err != nil {
			stats.AddWarning(canonical.ImportWarning{Provider: imp.parser.Name(), FilePath: path, Message: "malformed object discarded: " + err.Error()})
			continue
		}

		conv, err := imp.parser.ConvertOne(obj, path, index)
		index++
		if err != nil {
			stats.AddError(canonical.ImportError{Provider: imp.parser.Name(), FilePath: path, Index: index, Message: err.Error()})
			continue
		}
		if conv == nil {
			stats.AddWarning(canonical.ImportWarning{Provider: imp.parser.Name(), FilePath: path, Message: "conversation has no messages after filtering"})
			continue
		}

		pending = append(pending, *conv)
		if len(pending) >= imp.batchSize {
			if err := flush(); err != nil {
				return imp.collect(stats), err
			}
		}
	}

	if err := flush(); err != nil {
		return imp.collect(stats), err
	}

	return imp.collect(stats), nil
}

func (imp *Importer) collect(stats *canonical.ImportStats) *Stats {
	return &Stats{
		Imported: stats.Imported(),
		Errors:   stats.Errors(),
		Warnings: stats.Warnings(),
	}
}
