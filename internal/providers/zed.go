package providers

import (
	"fmt"
	"strings"
	"time"

	"github.com/convoarchive/convoarchive/internal/canonical"
	"github.com/convoarchive/convoarchive/internal/normalize"
)

var zedRoles = roleMap{
	"user":      canonical.RoleUser,
	"human":     canonical.RoleUser,
	"developer": canonical.RoleUser,
	"assistant": canonical.RoleAssistant,
	"ai":        canonical.RoleAssistant,
	"zed":       canonical.RoleAssistant,
	"system":    canonical.RoleSystem,
}

// ZedParser implements Parser for Zed editor assistant-panel exports.
// Per-message context.file/context.selection are prepended to the content
// as a bracketed header; a code block is appended as a fenced block with
// language; diagnostics and suggestions are kept in the message's
// Metadata, not in its attachments.
type ZedParser struct{}

func NewZedParser() *ZedParser { return &ZedParser{} }

func (p *ZedParser) Name() string { return "zed" }

func (p *ZedParser) FindFiles(dir string) ([]string, error) {
	return findFilesDefault(dir, p.CanHandle)
}

func (p *ZedParser) CanHandle(file string) bool {
	v, ok := sniffJSON(file)
	if !ok {
		return false
	}
	return zedRootLooksLikeZed(v)
}

func zedRootLooksLikeZed(v any) bool {
	switch root := v.(type) {
	case []any:
		for _, item := range root {
			if obj, ok := item.(map[string]any); ok && zedObjectHasMarkers(obj) {
				return true
			}
		}
		return false
	case map[string]any:
		if zedObjectHasMarkers(root) {
			return true
		}
		if convs, ok := root["conversations"].([]any); ok {
			for _, item := range convs {
				if obj, ok := item.(map[string]any); ok && zedObjectHasMarkers(obj) {
					return true
				}
			}
		}
		return false
	default:
		return false
	}
}

func zedObjectHasMarkers(obj map[string]any) bool {
	msgs, ok := obj["messages"].([]any)
	if !ok {
		return false
	}
	for _, m := range msgs {
		mo, ok := m.(map[string]any)
		if !ok {
			continue
		}
		ctx, ok := mo["context"].(map[string]any)
		if !ok {
			continue
		}
		if _, hasFile := ctx["file"]; hasFile {
			return true
		}
		if _, hasSelection := ctx["selection"]; hasSelection {
			return true
		}
	}
	return false
}

type zedConversation struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	Model      string        `json:"model"`
	CreateTime float64       `json:"create_time"`
	Messages   []zedMessage  `json:"messages"`
}

type zedMessage struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	Timestamp any        `json:"timestamp"`
	Context   zedContext `json:"context"`
	Code      zedCode    `json:"code"`
}

type zedContext struct {
	File      string `json:"file"`
	Selection string `json:"selection"`
}

type zedCode struct {
	Language    string   `json:"language"`
	Text        string   `json:"text"`
	Diagnostics []string `json:"diagnostics"`
	Suggestions []string `json:"suggestions"`
}

func (p *ZedParser) ExtractConversations(file string, stats *canonical.ImportStats) ([]canonical.Conversation, error) {
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

func (p *ZedParser) ConvertOne(obj map[string]any, file string, index int) (*canonical.Conversation, error) {
	zc, err := decodeInto[zedConversation](obj)
	if err != nil {
		return nil, err
	}

	conv := &canonical.Conversation{
		ExternalID: zc.ID,
		Title:      zc.Title,
		Provider:   p.Name(),
		Model:      zc.Model,
	}
	conv.ID = canonical.DeriveID(p.Name(), zc.ID, file, index)

	convBase := time.Time{}
	if zc.CreateTime > 0 {
		convBase, _ = normalize.ParseTimestamp(zc.CreateTime)
	}

	prev := time.Time{}
	for _, m := range zc.Messages {
		role, ok := zedRoles.lookup(m.Role)
		if !ok {
			continue
		}

		body := zedBody(m)
		if strings.TrimSpace(body) == "" {
			continue
		}

		ts, err := resolveTimestamp(m.Timestamp, prev, convBase)
		if err != nil {
			continue
		}
		prev = ts

		var meta map[string]any
		if len(m.Code.Diagnostics) > 0 || len(m.Code.Suggestions) > 0 {
			meta = map[string]any{}
			if len(m.Code.Diagnostics) > 0 {
				meta["diagnostics"] = m.Code.Diagnostics
			}
			if len(m.Code.Suggestions) > 0 {
				meta["suggestions"] = m.Code.Suggestions
			}
		}

		conv.Messages = append(conv.Messages, canonical.Message{
			Role:      role,
			Content:   body,
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

func zedBody(m zedMessage) string {
	var b strings.Builder
	if m.Context.File != "" || m.Context.Selection != "" {
		b.WriteString(fmt.Sprintf("[%s]", strings.TrimSpace(strings.Join(nonEmpty(m.Context.File, m.Context.Selection), " "))))
		b.WriteString("\n")
	}
	b.WriteString(m.Content)
	if m.Code.Text != "" {
		b.WriteString("\n```")
		b.WriteString(m.Code.Language)
		b.WriteString("\n")
		b.WriteString(m.Code.Text)
		b.WriteString("\n```")
	}
	return b.String()
}

func nonEmpty(values ...string) []string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
