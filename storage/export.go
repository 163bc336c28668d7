package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-runewidth"

	"botchat/activity"
	"botchat/config"
	"botchat/transcript"
)

// ExportedMessage is one finalized message in a transcript export.
type ExportedMessage struct {
	ID          string                `json:"id"`
	Role        activity.Role         `json:"role"`
	Text        string                `json:"text"`
	Timestamp   time.Time             `json:"timestamp"`
	Attachments []activity.Attachment `json:"attachments,omitempty"`
	Citations   []transcript.Citation `json:"citations,omitempty"`
}

// Export is the JSON document written by ExportTranscript.
type Export struct {
	ConversationID string            `json:"conversation_id"`
	ExportedAt     time.Time         `json:"exported_at"`
	Messages       []ExportedMessage `json:"messages"`
}

// NewConversationID returns a fresh id for a locally started conversation.
func NewConversationID() string {
	return uuid.New().String()
}

// ExportTranscript writes the finalized messages of model to path as
// indented JSON. An in-progress stream is not part of the export.
func ExportTranscript(path, conversationID string, model transcript.RenderModel) error {
	export := Export{
		ConversationID: conversationID,
		ExportedAt:     time.Now().UTC(),
		Messages:       make([]ExportedMessage, 0, len(model.Messages)),
	}
	for _, m := range model.Messages {
		export.Messages = append(export.Messages, ExportedMessage{
			ID:          m.ID,
			Role:        m.Role,
			Text:        m.Text,
			Timestamp:   m.Timestamp,
			Attachments: m.Attachments,
			Citations:   m.Citations,
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	// 0600: transcripts contain conversation history
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[storage] exported %d messages of %s to %s", len(export.Messages), conversationID, path)
	}
	return nil
}

// ReadExport loads a file written by ExportTranscript.
func ReadExport(path string) (*Export, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read export: %w", err)
	}
	var export Export
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("failed to unmarshal export: %w", err)
	}
	return &export, nil
}

// SanitizeFilename removes or replaces characters that are invalid in filenames
func SanitizeFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ', '\n', '\r', '\t':
			return '-'
		}
		return r
	}, name)
	name = strings.Trim(name, "-.")

	if len(name) > 50 {
		name = runewidth.Truncate(name, 50, "")
	}
	if name == "" {
		name = "conversation"
	}
	return name
}

// GenerateExportPath returns the default export location for a conversation.
func GenerateExportPath(title string) string {
	downloadsDir := filepath.Join(config.GetHomeDir(), "Downloads")
	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("botchat-transcript-%s-%s.json", SanitizeFilename(title), timestamp)
	return filepath.Join(downloadsDir, filename)
}

// GenerateTitle derives a conversation title from its first user message
func GenerateTitle(firstMessage string) string {
	name := strings.Join(strings.Fields(firstMessage), " ")
	if name == "" {
		return fmt.Sprintf("Conversation %s", time.Now().Format("Jan 2, 3:04 PM"))
	}
	return runewidth.Truncate(name, 33, "...")
}
