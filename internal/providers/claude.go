package providers

import (
	"strings"
	"time"

	"github.com/convoarchive/convoarchive/internal/canonical"
)

// claudeRoles maps Claude's sender strings to the canonical role set.
var claudeRoles = roleMap{
	"human":     canonical.RoleUser,
	"user":      canonical.RoleUser,
	"assistant": canonical.RoleAssistant,
	"model":     canonical.RoleAssistant,
	"system":    canonical.RoleSystem,
}

// ClaudeParser implements Parser for Claude conversation exports.
type ClaudeParser struct{}

// NewClaudeParser returns a ready-to-use Claude parser.
func NewClaudeParser() *ClaudeParser { return &ClaudeParser{} }

func (p *ClaudeParser) Name() string { return "claude" }

func (p *ClaudeParser) FindFiles(dir string) ([]string, error) {
	return findFilesDefault(dir, p.CanHandle)
}

func (p *ClaudeParser) CanHandle(file string) bool {
	v, ok := sniffJSON(file)
	if !ok {
		return false
	}
	return claudeRootLooksLikeClaude(v)
}

func claudeRootLooksLikeClaude(v any) bool {
	switch root := v.(type) {
	case []any:
		for _, item := range root {
			if obj, ok := item.(map[string]any); ok && claudeObjectHasMarkers(obj) {
				return true
			}
		}
		return false
	case map[string]any:
		if claudeObjectHasMarkers(root) {
			return true
		}
		if convs, ok := root["conversations"].([]any); ok {
			for _, item := range convs {
				if obj, ok := item.(map[string]any); ok && claudeObjectHasMarkers(obj) {
					return true
				}
			}
		}
		return false
	default:
		return false
	}
}

func claudeObjectHasMarkers(obj map[string]any) bool {
	_, hasUUID := obj["uuid"]
	_, hasChatMessages := obj["chat_messages"]
	_, hasTranscript := obj["transcript"]
	return hasUUID && (hasChatMessages || hasTranscript)
}

type claudeConversation struct {
	UUID         string           `json:"uuid"`
	Name         string           `json:"name"`
	Model        string           `json:"model"`
	CreatedAt    string           `json:"created_at"`
	UpdatedAt    string           `json:"updated_at"`
	ChatMessages []claudeMessage  `json:"chat_messages"`
	Transcript   []claudeMessage  `json:"transcript"`
	Messages     []claudeMessage  `json:"messages"`
}

type claudeMessage struct {
	UUID        string               `json:"uuid"`
	Sender      string               `json:"sender"`
	Role        string               `json:"role"`
	Text        string               `json:"text"`
	CreatedAt   string               `json:"created_at"`
	Content     []claudeContentBlock `json:"content"`
	Attachments []claudeAttachment   `json:"attachments"`
}

type claudeContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type claudeAttachment struct {
	FileName         string `json:"file_name"`
	ExtractedContent string `json:"extracted_content"`
	FileType         string `json:"file_type"`
	FileSize         int64  `json:"file_size"`
}

func (p *ClaudeParser) ExtractConversations(file string, stats *canonical.ImportStats) ([]canonical.Conversation, error) {
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

func (p *ClaudeParser) ConvertOne(obj map[string]any, file string, index int) (*canonical.Conversation, error) {
	cc, err := decodeInto[claudeConversation](obj)
	if err != nil {
		return nil, err
	}

	source := cc.ChatMessages
	if len(source) == 0 {
		source = cc.Transcript
	}
	if len(source) == 0 {
		source = cc.Messages
	}

	conv := &canonical.Conversation{
		ExternalID: cc.UUID,
		Title:      cc.Name,
		Provider:   p.Name(),
		Model:      cc.Model,
	}
	conv.ID = canonical.DeriveID(p.Name(), cc.UUID, file, index)

	convBase, _ := resolveTimestamp(cc.CreatedAt, time.Time{}, time.Time{})

	var prevTS time.Time
	for msgIndex, m := range source {
		role, ok := claudeRoles.lookup(firstNonEmpty(m.Sender, m.Role))
		if !ok {
			continue
		}

		text := m.Text
		if text == "" && len(m.Content) > 0 {
			var parts []string
			for _, block := range m.Content {
				if block.Type == "text" && block.Text != "" {
					parts = append(parts, block.Text)
				}
			}
			text = strings.Join(parts, "\n")
		}

		ts, err := resolveTimestamp(m.CreatedAt, prevTS, convBase)
		if err != nil {
			continue
		}
		prevTS = ts

		media := buildClaudeMediaFiles(m, text, p.Name(), cc.UUID, msgIndex)
		if strings.TrimSpace(text) == "" && len(media) == 0 {
			continue
		}

		conv.Messages = append(conv.Messages, canonical.Message{
			Role:       role,
			Content:    text,
			Timestamp:  ts,
			MediaFiles: media,
		})
	}

	if len(conv.Messages) == 0 {
		return nil, nil
	}
	conv.Normalize()
	return conv, nil
}

func buildClaudeMediaFiles(m claudeMessage, body, provider, convExtID string, msgIndex int) []canonical.MediaFile {
	var out []canonical.MediaFile
	for _, a := range m.Attachments {
		extracted := a.ExtractedContent
		if extracted != "" && body != "" && strings.Contains(body, extracted) {
			extracted = ""
		}
		out = append(out, canonical.MediaFile{
			Filename:         a.FileName,
			LogicalPath:      canonical.LogicalPathFor(provider, convExtID, msgIndexOrUUID(m.UUID, msgIndex), a.FileName),
			MimeType:         a.FileType,
			SizeBytes:        a.FileSize,
			HasSize:          a.FileSize > 0,
			ExtractedContent: extracted,
		})
	}
	return out
}

func msgIndexOrUUID(uuid string, index int) string {
	if uuid != "" {
		return uuid
	}
	return itoa(index)
}
