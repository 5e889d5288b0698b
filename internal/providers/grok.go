package providers

import (
	"strings"
	"time"

	"github.com/convoarchive/convoarchive/internal/canonical"
	"github.com/convoarchive/convoarchive/internal/normalize"
)

var grokRoles = roleMap{
	"user":      canonical.RoleUser,
	"human":     canonical.RoleUser,
	"question":  canonical.RoleUser,
	"grok":      canonical.RoleAssistant,
	"assistant": canonical.RoleAssistant,
	"ai":        canonical.RoleAssistant,
	"model":     canonical.RoleAssistant,
	"answer":    canonical.RoleAssistant,
	"system":    canonical.RoleSystem,
}

// GrokParser implements Parser for xAI/Grok conversation exports, which
// accept four root variants: Direct, List, Wrapped-list, and
// Wrapped-data-with-inner-variants.
type GrokParser struct{}

func NewGrokParser() *GrokParser { return &GrokParser{} }

func (p *GrokParser) Name() string { return "grok" }

func (p *GrokParser) FindFiles(dir string) ([]string, error) {
	return findFilesDefault(dir, p.CanHandle)
}

func (p *GrokParser) CanHandle(file string) bool {
	v, ok := sniffJSON(file)
	if !ok {
		return false
	}
	return grokRootLooksLikeGrok(v)
}

func grokRootLooksLikeGrok(v any) bool {
	switch root := v.(type) {
	case []any:
		for _, item := range root {
			if obj, ok := item.(map[string]any); ok && grokObjectHasMarkers(obj) {
				return true
			}
		}
		return false
	case map[string]any:
		if grokObjectHasMarkers(root) {
			return true
		}
		if data, ok := root["data"].(map[string]any); ok && grokObjectHasMarkers(data) {
			return true
		}
		if convs, ok := root["conversations"].([]any); ok {
			for _, item := range convs {
				if obj, ok := item.(map[string]any); ok && grokObjectHasMarkers(obj) {
					return true
				}
			}
		}
		return false
	default:
		return false
	}
}

func grokObjectHasMarkers(obj map[string]any) bool {
	if _, ok := obj["responses"]; ok {
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
		if role, ok := mo["role"].(string); ok {
			if _, known := grokRoles.lookup(role); known {
				return true
			}
		}
	}
	return false
}

type grokConversation struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Model      string          `json:"model"`
	CreateTime float64         `json:"create_time"`
	Messages   []grokMessage   `json:"messages"`
	Responses  []grokMessage   `json:"responses"`
}

type grokMessage struct {
	Role       string  `json:"role"`
	Content    string  `json:"content"`
	Timestamp  any     `json:"timestamp"`
	TokenCount float64 `json:"token_count"`
	Tokens     float64 `json:"tokens"`
}

func (p *GrokParser) ExtractConversations(file string, stats *canonical.ImportStats) ([]canonical.Conversation, error) {
	var root any
	if err := readJSON(file, &root); err != nil {
		return nil, &FileFormatError{File: file, Err: err}
	}

	var raw []any
	var classifyErr error
	switch v := root.(type) {
	case map[string]any:
		if data, ok := v["data"].(map[string]any); ok {
			raw, classifyErr = classifyRoot(data, "conversations")
		} else {
			raw, classifyErr = classifyRoot(v, "conversations")
		}
	default:
		raw, classifyErr = classifyRoot(root, "conversations")
	}
	if classifyErr != nil {
		return nil, &FileFormatError{File: file, Err: classifyErr}
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

func (p *GrokParser) ConvertOne(obj map[string]any, file string, index int) (*canonical.Conversation, error) {
	gc, err := decodeInto[grokConversation](obj)
	if err != nil {
		return nil, err
	}

	source := gc.Responses
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
	for _, m := range source {
		role, ok := grokRoles.lookup(m.Role)
		if !ok {
			continue
		}
		text := strings.TrimSpace(m.Content)
		if text == "" {
			continue
		}
		ts, err := resolveTimestamp(m.Timestamp, prev, convBase)
		if err != nil {
			continue
		}
		prev = ts

		meta := map[string]any{}
		if m.TokenCount > 0 {
			meta["token_count"] = m.TokenCount
		} else if m.Tokens > 0 {
			meta["token_count"] = m.Tokens
		}
		if len(meta) == 0 {
			meta = nil
		}

		conv.Messages = append(conv.Messages, canonical.Message{
			Role:      role,
			Content:   text,
			Timestamp: ts,
			Metadata:  meta,
		})
	}

	if len(conv.Messages) == 0 {
		return nil, nil
	}
	conv.Normalize()
	return conv, nil
}
