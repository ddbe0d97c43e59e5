package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kidchat/kidchat-api/internal/models"
)

// HistoryRepository handles the durable conversation log: an append-only
// audit trail distinct from session messages, retained indefinitely and
// never read back into prompts.
type HistoryRepository struct {
	db *DB
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// AppendTurn records one turn in the child's open conversation, creating
// the conversation header lazily.
func (r *HistoryRepository) AppendTurn(ctx context.Context, childID uuid.UUID, role models.MessageRole, content string, wasFiltered bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var conversationID uuid.UUID
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM conversations
		WHERE child_id = $1 AND ended_at IS NULL
		ORDER BY started_at DESC
		LIMIT 1
	`, childID).Scan(&conversationID)

	if err == sql.ErrNoRows {
		conversationID = uuid.New()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO conversations (id, child_id, started_at)
			VALUES ($1, $2, $3)
		`, conversationID, childID, time.Now())
		if err != nil {
			return fmt.Errorf("failed to create conversation: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to get open conversation: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, role, content, was_filtered, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.New(), conversationID, role, content, wasFiltered, time.Now())
	if err != nil {
		return fmt.Errorf("failed to append history turn: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit history turn: %w", err)
	}

	return nil
}

// EndConversation closes the child's open conversation, if any.
func (r *HistoryRepository) EndConversation(ctx context.Context, childID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE conversations
		SET ended_at = $2
		WHERE child_id = $1 AND ended_at IS NULL
	`, childID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to end conversation: %w", err)
	}
	return nil
}
