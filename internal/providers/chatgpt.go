package providers

import (
	"sort"
	"strings"
	"time"

	"github.com/convoarchive/convoarchive/internal/canonical"
	"github.com/convoarchive/convoarchive/internal/normalize"
)

var chatgptRoles = roleMap{
	"user":      canonical.RoleUser,
	"assistant": canonical.RoleAssistant,
	"system":    canonical.RoleSystem,
	"tool":      canonical.RoleTool,
}

// modelSlugAliases normalizes ChatGPT's internal model slugs to their
// public names.
var modelSlugAliases = map[string]string{
	"text-davinci-002-render-sha": "gpt-3.5-turbo",
	"gpt-4-gizmo":                 "gpt-4",
}

func normalizeModelSlug(slug string) string {
	if alias, ok := modelSlugAliases[slug]; ok {
		return alias
	}
	return slug
}

// ChatGPTParser implements Parser for ChatGPT conversation exports, in
// both the mapping/DAG form and the flat message-array form.
type ChatGPTParser struct{}

func NewChatGPTParser() *ChatGPTParser { return &ChatGPTParser{} }

func (p *ChatGPTParser) Name() string { return "chatgpt" }

func (p *ChatGPTParser) FindFiles(dir string) ([]string, error) {
	return findFilesDefault(dir, p.CanHandle)
}

func (p *ChatGPTParser) CanHandle(file string) bool {
	v, ok := sniffJSON(file)
	if !ok {
		return false
	}
	return chatgptRootLooksLikeChatGPT(v)
}

func chatgptRootLooksLikeChatGPT(v any) bool {
	switch root := v.(type) {
	case []any:
		for _, item := range root {
			if obj, ok := item.(map[string]any); ok && chatgptObjectHasMarkers(obj) {
				return true
			}
		}
		return false
	case map[string]any:
		if chatgptObjectHasMarkers(root) {
			return true
		}
		if convs, ok := root["conversations"].([]any); ok {
			for _, item := range convs {
				if obj, ok := item.(map[string]any); ok && chatgptObjectHasMarkers(obj) {
					return true
				}
			}
		}
		return false
	default:
		return false
	}
}

func chatgptObjectHasMarkers(obj map[string]any) bool {
	if _, ok := obj["mapping"]; ok {
		return true
	}
	if _, hasConvID := obj["conversation_id"]; hasConvID {
		if _, hasMapping := obj["mapping"]; !hasMapping {
			if _, hasMessages := obj["messages"]; hasMessages {
				return true
			}
		}
	}
	return false
}

type chatgptNode struct {
	ID       string             `json:"id"`
	Message  *chatgptMessage    `json:"message"`
	Parent   *string            `json:"parent"`
	Children []string           `json:"children"`
}

type chatgptMessage struct {
	ID         string         `json:"id"`
	Author     chatgptAuthor  `json:"author"`
	CreateTime float64        `json:"create_time"`
	Content    map[string]any `json:"content"`
	Metadata   map[string]any `json:"metadata"`
}

type chatgptAuthor struct {
	Role string `json:"role"`
}

type chatgptConversation struct {
	ConversationID  string                  `json:"conversation_id"`
	Title           string                  `json:"title"`
	CreateTime      float64                 `json:"create_time"`
	DefaultModel    string                  `json:"default_model_slug"`
	Mapping         map[string]chatgptNode  `json:"mapping"`
	Messages        []chatgptFlatMessage    `json:"messages"`
}

type chatgptFlatMessage struct {
	Author     chatgptAuthor  `json:"author"`
	Content    map[string]any `json:"content"`
	CreateTime float64        `json:"create_time"`
	Metadata   map[string]any `json:"metadata"`
}

func (p *ChatGPTParser) ExtractConversations(file string, stats *canonical.ImportStats) ([]canonical.Conversation, error) {
	var root any
	if err := readJSON(file, &root); err != nil {
		return nil, &FileFormatError{File: file, Err: err}
	}

	raw, err := classifyRoot(root, "conversations", "items")
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

func (p *ChatGPTParser) ConvertOne(obj map[string]any, file string, index int) (*canonical.Conversation, error) {
	cc, err := decodeInto[chatgptConversation](obj)
	if err != nil {
		return nil, err
	}

	conv := &canonical.Conversation{
		ExternalID: cc.ConversationID,
		Title:      cc.Title,
		Provider:   p.Name(),
		Model:      normalizeModelSlug(cc.DefaultModel),
	}
	conv.ID = canonical.DeriveID(p.Name(), cc.ConversationID, file, index)

	convBase := time.Time{}
	if cc.CreateTime > 0 {
		convBase, _ = normalize.ParseTimestamp(cc.CreateTime)
	}

	var msgs []canonical.Message
	if len(cc.Mapping) > 0 {
		msgs = p.walkMapping(cc.Mapping, convBase)
	} else {
		msgs = p.walkFlat(cc.Messages, convBase)
	}

	if len(msgs) == 0 {
		return nil, nil
	}

	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].Timestamp.Before(msgs[j].Timestamp) })

	if msgs[0].Role == canonical.RoleSystem {
		conv.SystemPrompt = msgs[0].Content
		msgs = msgs[1:]
	}
	if len(msgs) == 0 {
		return nil, nil
	}

	conv.Messages = msgs
	conv.Normalize()
	return conv, nil
}

// walkMapping performs the DFS traversal described in spec §4.3 and §9:
// find the root node (parent nil or "ROOT", else the earliest
// create_time), then visit children in declared order with an explicit
// visited set so a malformed graph can never cause infinite recursion.
func (p *ChatGPTParser) walkMapping(mapping map[string]chatgptNode, convBase time.Time) []canonical.Message {
	rootID := findMappingRoot(mapping)
	if rootID == "" {
		return nil
	}

	var msgs []canonical.Message
	visited := make(map[string]bool)
	prev := time.Time{}

	var stack []string
	stack = append(stack, rootID)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[id] {
			continue
		}
		visited[id] = true

		node, ok := mapping[id]
		if !ok {
			continue
		}

		if node.Message != nil {
			if msg, ok := chatgptMessageToCanonical(*node.Message, convBase, prev); ok {
				prev = msg.Timestamp
				msgs = append(msgs, msg)
			}
		}

		for i := len(node.Children) - 1; i >= 0; i-- {
			stack = append(stack, node.Children[i])
		}
	}

	return msgs
}

func findMappingRoot(mapping map[string]chatgptNode) string {
	for id, node := range mapping {
		if node.Parent == nil || *node.Parent == "ROOT" || *node.Parent == "" {
			return id
		}
	}

	var bestID string
	var bestTime float64 = -1
	for id, node := range mapping {
		if node.Message == nil {
			continue
		}
		if bestTime < 0 || node.Message.CreateTime < bestTime {
			bestTime = node.Message.CreateTime
			bestID = id
		}
	}
	return bestID
}

func chatgptMessageToCanonical(m chatgptMessage, convBase, prev time.Time) (canonical.Message, bool) {
	role, ok := chatgptRoles.lookup(m.Author.Role)
	if !ok {
		return canonical.Message{}, false
	}

	text := normalize.ExtractText(m.Content)
	if strings.TrimSpace(text) == "" {
		return canonical.Message{}, false
	}

	var rawTS any
	if m.CreateTime > 0 {
		rawTS = m.CreateTime
	}
	ts, err := resolveTimestamp(rawTS, prev, convBase)
	if err != nil {
		return canonical.Message{}, false
	}

	model := ""
	if m.Metadata != nil {
		if slug, ok := m.Metadata["model_slug"].(string); ok {
			model = normalizeModelSlug(slug)
		}
	}

	return canonical.Message{
		Role:      role,
		Content:   text,
		Timestamp: ts,
		Model:     model,
	}, true
}

func (p *ChatGPTParser) walkFlat(messages []chatgptFlatMessage, convBase time.Time) []canonical.Message {
	var msgs []canonical.Message
	prev := time.Time{}
	for _, m := range messages {
		cm := chatgptMessage{Author: m.Author, CreateTime: m.CreateTime, Content: m.Content, Metadata: m.Metadata}
		if msg, ok := chatgptMessageToCanonical(cm, convBase, prev); ok {
			prev = msg.Timestamp
			msgs = append(msgs, msg)
		}
	}
	return msgs
}
