// Package canonical defines the provider-independent conversation model
// shared by every parser, the streaming importer, and the persistence
// layer. It carries no I/O.
package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"
)

// Role is the canonical sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Valid reports whether r is one of the four canonical roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem, RoleTool:
		return true
	default:
		return false
	}
}

// MediaFile is an attachment referenced by a Message.
//
// LogicalPath is synthesized as
// "<provider>_attachments/<conv-ext-id>/<msg-id-or-index>/<filename>" so
// that two messages referencing the same attachment by identical logical
// path share one entry.
type MediaFile struct {
	Filename         string
	LogicalPath      string
	MimeType         string
	SizeBytes        int64
	HasSize          bool
	ExtractedContent string
}

// LogicalPathFor builds the synthetic storage key for an attachment.
func LogicalPathFor(provider, convExternalID, msgIDOrIndex, filename string) string {
	return fmt.Sprintf("%s_attachments/%s/%s/%s", provider, convExternalID, msgIDOrIndex, filename)
}

// Message is one canonical turn in a Conversation.
//
// Invariant: Content is non-empty after trimming, or MediaFiles is
// non-empty. Timestamp is always populated.
type Message struct {
	Role       Role
	Content    string
	Timestamp  time.Time
	Model      string
	Metadata   map[string]any
	MediaFiles []MediaFile
}

// Conversation is the canonical, provider-independent unit of import.
//
// Invariants: Messages are sorted non-decreasing by Timestamp;
// StartTime <= EndTime; StartTime <= Messages[0].Timestamp;
// EndTime >= Messages[len-1].Timestamp.
type Conversation struct {
	ID            string
	ExternalID    string
	Title         string
	Provider      string
	Messages      []Message
	SystemPrompt  string
	Model         string
	StartTime     time.Time
	EndTime       time.Time
	Metadata      map[string]any
	RawJSON       string
}

// DeriveID computes the deterministic conversation id: "<provider>_<external_uuid>"
// when an external id is known, else a hash of (provider, filePath, indexInFile).
func DeriveID(provider, externalID, filePath string, indexInFile int) string {
	if externalID != "" {
		return provider + "_" + externalID
	}
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", provider, filePath, indexInFile)))
	return provider + "_" + hex.EncodeToString(h[:])[:32]
}

// Normalize sorts Messages by Timestamp and tightens StartTime/EndTime to
// satisfy the conversation invariants. It is a no-op on an empty
// conversation.
func (c *Conversation) Normalize() {
	if len(c.Messages) == 0 {
		return
	}
	sort.SliceStable(c.Messages, func(i, j int) bool {
		return c.Messages[i].Timestamp.Before(c.Messages[j].Timestamp)
	})
	first := c.Messages[0].Timestamp
	last := c.Messages[len(c.Messages)-1].Timestamp
	if c.StartTime.IsZero() || c.StartTime.After(first) {
		c.StartTime = first
	}
	if c.EndTime.IsZero() || c.EndTime.Before(last) {
		c.EndTime = last
	}
}

// NextMonotonicTimestamp returns a timestamp guaranteed to be strictly
// after prev, used when a source message omits its own timestamp.
func NextMonotonicTimestamp(prev time.Time) time.Time {
	return prev.Add(time.Microsecond)
}
