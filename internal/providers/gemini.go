package providers

import (
	"fmt"
	"strings"
	"time"

	"github.com/convoarchive/convoarchive/internal/canonical"
	"github.com/convoarchive/convoarchive/internal/normalize"
)

var geminiRoles = roleMap{
	"user":      canonical.RoleUser,
	"model":     canonical.RoleAssistant,
	"assistant": canonical.RoleAssistant,
	"system":    canonical.RoleSystem,
}

// GeminiParser implements Parser for Gemini conversation exports, which
// appear as Single, Multiple, or Wrapped root shapes with either
// "messages" or "turns" holding the sequence.
type GeminiParser struct{}

func NewGeminiParser() *GeminiParser { return &GeminiParser{} }

func (p *GeminiParser) Name() string { return "gemini" }

func (p *GeminiParser) FindFiles(dir string) ([]string, error) {
	return findFilesDefault(dir, p.CanHandle)
}

func (p *GeminiParser) CanHandle(file string) bool {
	v, ok := sniffJSON(file)
	if !ok {
		return false
	}
	return geminiRootLooksLikeGemini(v)
}

func geminiRootLooksLikeGemini(v any) bool {
	switch root := v.(type) {
	case []any:
		for _, item := range root {
			if obj, ok := item.(map[string]any); ok && geminiObjectHasMarkers(obj) {
				return true
			}
		}
		return false
	case map[string]any:
		if geminiObjectHasMarkers(root) {
			return true
		}
		if convs, ok := root["conversations"].([]any); ok {
			for _, item := range convs {
				if obj, ok := item.(map[string]any); ok && geminiObjectHasMarkers(obj) {
					return true
				}
			}
		}
		return false
	default:
		return false
	}
}

func geminiObjectHasMarkers(obj map[string]any) bool {
	if _, ok := obj["turns"]; ok {
		return true
	}
	msgs, ok := obj["messages"].([]any)
	if !ok {
		return false
	}
	for _, m := range msgs {
		mo, ok := m.(map[string]any)
		if !ok {
			continue
		}
		if parts, ok := mo["parts"].([]any); ok {
			for _, part := range parts {
				if po, ok := part.(map[string]any); ok {
					if _, ok := po["inline_data"]; ok {
						return true
					}
				}
			}
		}
	}
	return false
}

type geminiConversation struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Model      string         `json:"model"`
	CreateTime float64        `json:"create_time"`
	Messages   []geminiTurn   `json:"messages"`
	Turns      []geminiTurn   `json:"turns"`
}

type geminiTurn struct {
	Role       string      `json:"role"`
	Timestamp  any         `json:"timestamp"`
	Parts      []any       `json:"parts"`
}

func (p *GeminiParser) ExtractConversations(file string, stats *canonical.ImportStats) ([]canonical.Conversation, error) {
	var root any
	if err := readJSON(file, &root); err != nil {
		return nil, &FileFormatError{File: file, Err: err}
	}

	raw, err := classifyRoot(root, "conversations")
	if err != nil {
		return nil, &FileFormatError{File: file, Err: err}
	}

	var out []canonical.Conversation
	for i, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			stats.AddError(canonical.ImportError{Provider: p.Name(), FilePath: file, Index: i, Message: "conversation entry is not an object"})
			continue
		}
		conv, err := p.ConvertOne(obj, file, i)
		if err != nil {
			stats.AddError(canonical.ImportError{Provider: p.Name(), FilePath: file, Index: i, Message: err.Error()})
			continue
		}
		if conv == nil {
			stats.AddWarning(canonical.ImportWarning{Provider: p.Name(), FilePath: file, Message: "conversation has no messages after filtering"})
			continue
		}
		out = append(out, *conv)
	}
	return out, nil
}

func (p *GeminiParser) ConvertOne(obj map[string]any, file string, index int) (*canonical.Conversation, error) {
	gc, err := decodeInto[geminiConversation](obj)
	if err != nil {
		return nil, err
	}

	source := gc.Turns
	if len(source) == 0 {
		source = gc.Messages
	}

	conv := &canonical.Conversation{
		ExternalID: gc.ID,
		Title:      gc.Title,
		Provider:   p.Name(),
		Model:      gc.Model,
	}
	conv.ID = canonical.DeriveID(p.Name(), gc.ID, file, index)

	convBase := time.Time{}
	if gc.CreateTime > 0 {
		convBase, _ = normalize.ParseTimestamp(gc.CreateTime)
	}

	prev := time.Time{}
	for _, turn := range source {
		role, ok := geminiRoles.lookup(turn.Role)
		if !ok {
			continue
		}
		text := joinGeminiParts(turn.Parts)
		if strings.TrimSpace(text) == "" {
			continue
		}
		ts, err := resolveTimestamp(turn.Timestamp, prev, convBase)
		if err != nil {
			continue
		}
		prev = ts
		conv.Messages = append(conv.Messages, canonical.Message{Role: role, Content: text, Timestamp: ts})
	}

	if len(conv.Messages) == 0 {
		return nil, nil
	}
	conv.Normalize()
	return conv, nil
}

func joinGeminiParts(parts []any) string {
	var lines []string
	for _, p := range parts {
		switch v := p.(type) {
		case string:
			if v != "" {
				lines = append(lines, v)
			}
		case map[string]any:
			if text, ok := v["text"].(string); ok && text != "" {
				lines = append(lines, text)
				continue
			}
			if inline, ok := v["inline_data"].(map[string]any); ok {
				mime, _ := inline["mime_type"].(string)
				lines = append(lines, fmt.Sprintf("[Attached: %s]", mime))
			}
		}
	}
	return strings.Join(lines, "\n")
}
