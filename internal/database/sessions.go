package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kidchat/kidchat-api/internal/models"
)

// SessionRepository handles conversation session and session message
// database operations.
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// GetOrCreateActive returns the child's active session, creating one if
// none exists. An active session idle past idleTimeout is closed and
// replaced in the same transaction. The child row is locked for the
// duration, which serializes concurrent calls for the same child and keeps
// the one-active-session invariant under concurrent message submission.
func (r *SessionRepository) GetOrCreateActive(ctx context.Context, childID uuid.UUID, idleTimeout time.Duration) (*models.ConversationSession, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Per-child serialization point.
	var lockedID uuid.UUID
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM children WHERE id = $1 FOR UPDATE`, childID,
	).Scan(&lockedID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("child %s: %w", childID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock child: %w", err)
	}

	session := &models.ConversationSession{}
	err = tx.QueryRowContext(ctx, `
		SELECT id, child_id, started_at, ended_at, is_active, message_count, last_activity
		FROM conversation_sessions
		WHERE child_id = $1 AND is_active = TRUE
		ORDER BY last_activity DESC
		LIMIT 1
	`, childID).Scan(
		&session.ID,
		&session.ChildID,
		&session.StartedAt,
		&session.EndedAt,
		&session.IsActive,
		&session.MessageCount,
		&session.LastActivity,
	)

	switch {
	case err == sql.ErrNoRows:
		session = nil
	case err != nil:
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}

	now := time.Now()
	if session != nil && session.IdleSince(now.Add(-idleTimeout)) {
		_, err = tx.ExecContext(ctx, `
			UPDATE conversation_sessions
			SET is_active = FALSE, ended_at = $2
			WHERE id = $1
		`, session.ID, now)
		if err != nil {
			return nil, fmt.Errorf("failed to close idle session: %w", err)
		}
		session = nil
	}

	if session == nil {
		session = &models.ConversationSession{
			ID:           uuid.New(),
			ChildID:      childID,
			StartedAt:    now,
			IsActive:     true,
			LastActivity: now,
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO conversation_sessions (id, child_id, started_at, is_active, message_count, last_activity)
			VALUES ($1, $2, $3, TRUE, 0, $4)
		`, session.ID, session.ChildID, session.StartedAt, session.LastActivity)
		if err != nil {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit session: %w", err)
	}

	return session, nil
}

// AppendMessage appends a turn to the session and bumps message_count and
// last_activity in one transaction, keeping the count equal to the number
// of rows.
func (r *SessionRepository) AppendMessage(ctx context.Context, sessionID uuid.UUID, role models.MessageRole, content string, flagged bool) (*models.SessionMessage, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	msg := &models.SessionMessage{
		ID:        uuid.New(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Flagged:   flagged,
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO session_messages (id, session_id, role, content, flagged, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, msg.ID, msg.SessionID, msg.Role, msg.Content, msg.Flagged, time.Now()).Scan(&msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert session message: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE conversation_sessions
		SET message_count = message_count + 1, last_activity = $2
		WHERE id = $1
	`, sessionID, msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update session activity: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit message: %w", err)
	}

	return msg, nil
}

// RecentMessages returns up to limit messages for the session in
// chronological order, most recent last.
func (r *SessionRepository) RecentMessages(ctx context.Context, sessionID uuid.UUID, limit int) ([]*models.SessionMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, role, content, flagged, created_at
		FROM session_messages
		WHERE session_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.SessionMessage
	for rows.Next() {
		msg := &models.SessionMessage{}
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &msg.Flagged, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session messages: %w", err)
	}

	// Query returns newest first; flip to chronological.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// GetByID returns a session regardless of its active state.
func (r *SessionRepository) GetByID(ctx context.Context, sessionID uuid.UUID) (*models.ConversationSession, error) {
	session := &models.ConversationSession{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, child_id, started_at, ended_at, is_active, message_count, last_activity
		FROM conversation_sessions
		WHERE id = $1
	`, sessionID).Scan(
		&session.ID,
		&session.ChildID,
		&session.StartedAt,
		&session.EndedAt,
		&session.IsActive,
		&session.MessageCount,
		&session.LastActivity,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// End closes a session explicitly.
func (r *SessionRepository) End(ctx context.Context, sessionID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE conversation_sessions
		SET is_active = FALSE, ended_at = $2
		WHERE id = $1 AND is_active = TRUE
	`, sessionID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("active session %s: %w", sessionID, ErrNotFound)
	}
	return nil
}

// CloseIdle closes every active session whose last activity predates the
// cutoff. Idempotent: already-closed sessions are untouched.
func (r *SessionRepository) CloseIdle(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE conversation_sessions
		SET is_active = FALSE, ended_at = last_activity
		WHERE is_active = TRUE AND last_activity < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to close idle sessions: %w", err)
	}
	return result.RowsAffected()
}

// PurgeMessages deletes session messages belonging to sessions that ended
// before the cutoff.
func (r *SessionRepository) PurgeMessages(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM session_messages
		WHERE session_id IN (
			SELECT id FROM conversation_sessions
			WHERE is_active = FALSE AND ended_at < $1
		)
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge session messages: %w", err)
	}
	return result.RowsAffected()
}

// PurgeSessions deletes closed sessions that ended before the cutoff.
// Remaining messages go with them via cascade.
func (r *SessionRepository) PurgeSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM conversation_sessions
		WHERE is_active = FALSE AND ended_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	return result.RowsAffected()
}
