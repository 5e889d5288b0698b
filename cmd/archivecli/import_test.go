package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/convoarchive/convoarchive/internal/canonical"
	"github.com/convoarchive/convoarchive/internal/importer"
	"github.com/convoarchive/convoarchive/internal/registry"
)

func TestResolveFiles_SingleFileWithExplicitProvider(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "export.json")
	if err := os.WriteFile(file, []byte(`[]`), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	files, provider, err := resolveFiles(registry.New(), file, "claude")
	if err != nil {
		t.Fatalf("resolveFiles() error = %v", err)
	}
	if len(files) != 1 || files[0] != file {
		t.Errorf("resolveFiles() files = %v, want [%s]", files, file)
	}
	if provider != "claude" {
		t.Errorf("resolveFiles() provider = %q, want %q", provider, "claude")
	}
}

func TestResolveFiles_SingleFileUnknownProvider(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "export.json")
	if err := os.WriteFile(file, []byte(`[]`), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, _, err := resolveFiles(registry.New(), file, "not-a-provider"); err != registry.ErrUnknownProvider {
		t.Errorf("resolveFiles() error = %v, want ErrUnknownProvider", err)
	}
}

func TestResolveFiles_SingleFileSniffed(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "export.json")
	content := `[{"uuid":"x","chat_messages":[{"uuid":"m1","sender":"human","text":"hi","created_at":"2024-01-01T10:00:00Z"}]}]`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	_, provider, err := resolveFiles(registry.New(), file, "")
	if err != nil {
		t.Fatalf("resolveFiles() error = %v", err)
	}
	if provider != "claude" {
		t.Errorf("resolveFiles() provider = %q, want %q", provider, "claude")
	}
}

func TestResolveFiles_MissingPath(t *testing.T) {
	if _, _, err := resolveFiles(registry.New(), filepath.Join(t.TempDir(), "missing.json"), ""); err == nil {
		t.Error("resolveFiles() error = nil, want error for missing path")
	}
}

func TestToCanonicalStats_NilIsEmpty(t *testing.T) {
	s := toCanonicalStats(nil)
	if s.Imported() != 0 || len(s.Errors()) != 0 || len(s.Warnings()) != 0 {
		t.Errorf("toCanonicalStats(nil) = %+v, want empty", s)
	}
}

func TestToCanonicalStats_CarriesCounts(t *testing.T) {
	in := &importer.Stats{
		Imported: 2,
		Errors:   []canonical.ImportError{{Provider: "claude", Message: "boom"}},
		Warnings: []canonical.ImportWarning{{Provider: "claude", Message: "empty"}},
	}
	out := toCanonicalStats(in)
	if out.Imported() != 2 {
		t.Errorf("Imported() = %d, want 2", out.Imported())
	}
	if len(out.Errors()) != 1 || len(out.Warnings()) != 1 {
		t.Errorf("Errors()/Warnings() = %v/%v, want 1 each", out.Errors(), out.Warnings())
	}
}
