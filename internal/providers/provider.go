// Package providers implements one parser per vendor export format,
// translating each provider's idiosyncratic JSON shape into the
// canonical conversation model.
package providers

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/convoarchive/convoarchive/internal/canonical"
)

// Parser is the capability set every vendor parser satisfies. The
// registry holds a fixed list of Parsers and dispatches to the first one
// whose CanHandle accepts a given file.
type Parser interface {
	// Name is the parser's display name.
	Name() string

	// FindFiles returns the ordered list of files this parser will
	// consume from dir.
	FindFiles(dir string) ([]string, error)

	// CanHandle performs a cheap structural sniff of file.
	CanHandle(file string) bool

	// ExtractConversations produces every canonical conversation of file
	// at once, as a slice (it does not stream them), recording warnings
	// and errors into stats.
	ExtractConversations(file string, stats *canonical.ImportStats) ([]canonical.Conversation, error)

	// ConvertOne converts a single already-decoded conversation object
	// (one element of a Bulk array, or the Single root object) into the
	// canonical model. The streaming importer uses this directly on
	// objects it has scanned out of a large array without holding the
	// whole file in memory.
	ConvertOne(obj map[string]any, file string, index int) (*canonical.Conversation, error)
}

// bulkExportNames are the canonical bulk-export filenames; if present in a
// directory, FindFiles returns that file alone.
var bulkExportNames = []string{"conversations.json", "conversations"}

// skipSubstrings mark obvious non-chat files that findFilesDefault should
// skip even if they parse as valid JSON.
var skipSubstrings = []string{"feedback", "user"}

// findFilesDefault implements the shared FindFiles algorithm described in
// spec §4.3: prefer a canonical bulk-export filename, otherwise
// content-sniff every *.json file in dir via canHandle.
func findFilesDefault(dir string, canHandle func(string) bool) ([]string, error) {
	for _, name := range bulkExportNames {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return []string{p}, nil
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if filepath.Ext(name) != ".json" {
			continue
		}
		lower := strings.ToLower(name)
		skip := false
		for _, sub := range skipSubstrings {
			if strings.Contains(lower, sub) {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		full := filepath.Join(dir, name)
		if canHandle(full) {
			files = append(files, full)
		}
	}
	return files, nil
}

// readJSON reads and unmarshals file's contents into v.
func readJSON(file string, v any) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// sniffJSON reports whether file contains valid JSON at all, the cheapest
// possible CanHandle check shared by every vendor parser before they probe
// for discriminating keys.
func sniffJSON(file string) (any, bool) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, false
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, false
	}
	return v, true
}

// roleMap canonicalizes a provider's raw role string. ok is false for an
// unrecognized sender; the parsers skip such a message without recording
// a warning.
type roleMap map[string]canonical.Role

func (m roleMap) lookup(raw string) (canonical.Role, bool) {
	r, ok := m[strings.ToLower(raw)]
	return r, ok
}
