package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kidchat/kidchat-api/internal/models"
)

// AlertRepository handles parent alert database operations
type AlertRepository struct {
	db *DB
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create creates a new parent alert
func (r *AlertRepository) Create(ctx context.Context, alert *models.ParentAlert) error {
	query := `
		INSERT INTO parent_alerts
			(id, child_id, alert_type, severity, title, content, original_message, assistant_response, was_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, $9)
		RETURNING created_at
	`

	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}
	err := r.db.QueryRowContext(ctx, query,
		alert.ID,
		alert.ChildID,
		alert.AlertType,
		alert.Severity,
		alert.Title,
		alert.Content,
		alert.OriginalMessage,
		alert.AssistantResponse,
		time.Now(),
	).Scan(&alert.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}

	return nil
}

// ListUnread returns the parent's unread alerts, newest first.
func (r *AlertRepository) ListUnread(ctx context.Context, parentID uuid.UUID) ([]*models.ParentAlert, error) {
	query := `
		SELECT pa.id, pa.child_id, c.name, pa.alert_type, pa.severity, pa.title,
		       pa.content, pa.original_message, pa.assistant_response,
		       pa.was_read, pa.read_at, pa.created_at
		FROM parent_alerts pa
		JOIN children c ON pa.child_id = c.id
		WHERE c.parent_id = $1 AND pa.was_read = FALSE
		ORDER BY pa.created_at DESC
	`
	return r.queryAlerts(ctx, query, parentID)
}

// ListAll returns the parent's alerts, newest first, capped at limit.
func (r *AlertRepository) ListAll(ctx context.Context, parentID uuid.UUID, limit int) ([]*models.ParentAlert, error) {
	query := `
		SELECT pa.id, pa.child_id, c.name, pa.alert_type, pa.severity, pa.title,
		       pa.content, pa.original_message, pa.assistant_response,
		       pa.was_read, pa.read_at, pa.created_at
		FROM parent_alerts pa
		JOIN children c ON pa.child_id = c.id
		WHERE c.parent_id = $1
		ORDER BY pa.created_at DESC
		LIMIT $2
	`
	return r.queryAlerts(ctx, query, parentID, limit)
}

// MarkRead acknowledges one alert, scoped to the owning parent.
func (r *AlertRepository) MarkRead(ctx context.Context, alertID, parentID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE parent_alerts pa
		SET was_read = TRUE, read_at = $3
		FROM children c
		WHERE pa.child_id = c.id AND pa.id = $1 AND c.parent_id = $2
	`, alertID, parentID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark alert read: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("alert %s: %w", alertID, ErrNotFound)
	}
	return nil
}

// MarkAllRead acknowledges every unread alert for the parent and returns
// how many were updated.
func (r *AlertRepository) MarkAllRead(ctx context.Context, parentID uuid.UUID) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE parent_alerts pa
		SET was_read = TRUE, read_at = $2
		FROM children c
		WHERE pa.child_id = c.id AND c.parent_id = $1 AND pa.was_read = FALSE
	`, parentID, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to mark alerts read: %w", err)
	}
	return result.RowsAffected()
}

func (r *AlertRepository) queryAlerts(ctx context.Context, query string, args ...any) ([]*models.ParentAlert, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*models.ParentAlert
	for rows.Next() {
		alert := &models.ParentAlert{}
		err := rows.Scan(
			&alert.ID,
			&alert.ChildID,
			&alert.ChildName,
			&alert.AlertType,
			&alert.Severity,
			&alert.Title,
			&alert.Content,
			&alert.OriginalMessage,
			&alert.AssistantResponse,
			&alert.WasRead,
			&alert.ReadAt,
			&alert.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}

	return alerts, nil
}
