// Package registry holds the fixed list of provider parsers and
// dispatches files to the first one that accepts them.
package registry

import (
	"github.com/convoarchive/convoarchive/internal/providers"
)

// Registry holds parsers in a fixed iteration order, immutable after
// construction.
type Registry struct {
	parsers []providers.Parser
}

// New returns a Registry seeded with the five known provider parsers, in
// the fixed order they are probed.
func New() *Registry {
	return &Registry{
		parsers: []providers.Parser{
			providers.NewChatGPTParser(),
			providers.NewClaudeParser(),
			providers.NewGeminiParser(),
			providers.NewGrokParser(),
			providers.NewZedParser(),
		},
	}
}

// NewWithParsers builds a Registry over an explicit parser list, primarily
// for tests that want to control probe order.
func NewWithParsers(parsers []providers.Parser) *Registry {
	return &Registry{parsers: parsers}
}

// FindProvider sniffs file and returns the first parser willing to handle
// it, calling CanHandle in registration order.
func (r *Registry) FindProvider(file string) providers.Parser {
	for _, p := range r.parsers {
		if p.CanHandle(file) {
			return p
		}
	}
	return nil
}

// ParserByName returns the parser with the given Name(), or nil.
func (r *Registry) ParserByName(name string) providers.Parser {
	for _, p := range r.parsers {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// FindFiles delegates directory-level discovery to the named provider's
// own FindFiles. If provider is empty, the first parser whose FindFiles
// returns a non-empty list wins.
func (r *Registry) FindFiles(dir, provider string) ([]string, string, error) {
	if provider != "" {
		p := r.ParserByName(provider)
		if p == nil {
			return nil, "", ErrUnknownProvider
		}
		files, err := p.FindFiles(dir)
		return files, p.Name(), err
	}

	for _, p := range r.parsers {
		files, err := p.FindFiles(dir)
		if err != nil {
			continue
		}
		if len(files) > 0 {
			return files, p.Name(), nil
		}
	}
	return nil, "", nil
}
