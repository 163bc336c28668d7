package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"botchat/activity"
	"botchat/config"
)

// ConversationMetadata describes one logged conversation.
type ConversationMetadata struct {
	ID            string
	Backend       string
	Title         string
	StartedAt     time.Time
	UpdatedAt     time.Time
	ActivityCount int
}

// ActivityLog keeps every activity a chat view received, per conversation,
// in arrival order. Replaying a conversation through the reconciler gives
// back the transcript that was on screen.
type ActivityLog struct {
	db *sql.DB
}

func NewActivityLog(dataDir string) (*ActivityLog, error) {
	dbPath := filepath.Join(dataDir, "activity.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// single connection: concurrent appends queue instead of failing with SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log := &ActivityLog{db: db}
	if err := log.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return log, nil
}

func (l *ActivityLog) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		backend TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		started_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS activities (
		conversation_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		activity_id TEXT NOT NULL DEFAULT '',
		payload TEXT NOT NULL,
		received_at DATETIME NOT NULL,
		PRIMARY KEY (conversation_id, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_updated ON conversations(updated_at);
	`
	_, err := l.db.Exec(schema)
	return err
}

// StartConversation records a conversation and the backend it runs against.
// Starting an existing conversation is a no-op.
func (l *ActivityLog) StartConversation(conversationID, backend string) error {
	now := time.Now()
	_, err := l.db.Exec(`
	INSERT OR IGNORE INTO conversations (id, backend, title, started_at, updated_at)
	VALUES (?, ?, '', ?, ?)
	`, conversationID, backend, now, now)
	if err != nil {
		return fmt.Errorf("failed to start conversation: %w", err)
	}
	return nil
}

// Append stores a at the end of the conversation. The first user message
// with text names the conversation.
func (l *ActivityLog) Append(conversationID string, a activity.Activity) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal activity: %w", err)
	}

	tx, err := l.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	if _, err := tx.Exec(`
	INSERT OR IGNORE INTO conversations (id, backend, title, started_at, updated_at)
	VALUES (?, '', '', ?, ?)
	`, conversationID, now, now); err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}

	if _, err := tx.Exec(`
	INSERT INTO activities (conversation_id, seq, activity_id, payload, received_at)
	VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM activities WHERE conversation_id = ?), ?, ?, ?)
	`, conversationID, conversationID, a.ID, string(payload), now); err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}

	if _, err := tx.Exec(`UPDATE conversations SET updated_at = ? WHERE id = ?`, now, conversationID); err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	if a.IsUser() && a.IsMessage() && a.Text != "" {
		if _, err := tx.Exec(`UPDATE conversations SET title = ? WHERE id = ? AND title = ''`,
			GenerateTitle(a.Text), conversationID); err != nil {
			return fmt.Errorf("failed to set conversation title: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit activity: %w", err)
	}
	return nil
}

// Load returns the activities of a conversation in arrival order. Rows that
// no longer decode are skipped.
func (l *ActivityLog) Load(conversationID string) ([]activity.Activity, error) {
	rows, err := l.db.Query(`
	SELECT seq, payload FROM activities
	WHERE conversation_id = ?
	ORDER BY seq
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer rows.Close()

	var acts []activity.Activity
	for rows.Next() {
		var seq int
		var payload string
		if err := rows.Scan(&seq, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		a, err := activity.Decode([]byte(payload))
		if err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[storage] skipping activity %d of %s: %v", seq, conversationID, err)
			}
			continue
		}
		acts = append(acts, a)
	}
	return acts, rows.Err()
}

// Conversations lists every conversation, most recently updated first.
func (l *ActivityLog) Conversations() ([]ConversationMetadata, error) {
	rows, err := l.db.Query(`
	SELECT c.id, c.backend, c.title, c.started_at, c.updated_at,
		(SELECT COUNT(*) FROM activities a WHERE a.conversation_id = c.id)
	FROM conversations c
	ORDER BY c.updated_at DESC, c.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var convs []ConversationMetadata
	for rows.Next() {
		var c ConversationMetadata
		if err := rows.Scan(&c.ID, &c.Backend, &c.Title, &c.StartedAt, &c.UpdatedAt, &c.ActivityCount); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

// Conversation returns the metadata of one conversation, or nil when it is
// not in the log.
func (l *ActivityLog) Conversation(conversationID string) (*ConversationMetadata, error) {
	var c ConversationMetadata
	err := l.db.QueryRow(`
	SELECT c.id, c.backend, c.title, c.started_at, c.updated_at,
		(SELECT COUNT(*) FROM activities a WHERE a.conversation_id = c.id)
	FROM conversations c
	WHERE c.id = ?
	`, conversationID).Scan(&c.ID, &c.Backend, &c.Title, &c.StartedAt, &c.UpdatedAt, &c.ActivityCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	return &c, nil
}

// Delete removes a conversation and its activities together.
func (l *ActivityLog) Delete(conversationID string) error {
	tx, err := l.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM activities WHERE conversation_id = ?`, conversationID); err != nil {
		return fmt.Errorf("failed to delete activities: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM conversations WHERE id = ?`, conversationID); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

func (l *ActivityLog) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}
