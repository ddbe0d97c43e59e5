package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kidchat/kidchat-api/internal/models"
)

// ChildRepository handles child profile database operations
type ChildRepository struct {
	db *DB
}

// NewChildRepository creates a new child repository
func NewChildRepository(db *DB) *ChildRepository {
	return &ChildRepository{db: db}
}

// Create creates a new child profile
func (r *ChildRepository) Create(ctx context.Context, child *models.Child) error {
	query := `
		INSERT INTO children (id, parent_id, name, age, avatar, memory_context, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	contextJSON, err := json.Marshal(child.MemoryContext)
	if err != nil {
		return fmt.Errorf("failed to marshal memory context: %w", err)
	}

	now := time.Now()
	err = r.db.QueryRowContext(ctx, query,
		child.ID,
		child.ParentID,
		child.Name,
		child.Age,
		child.Avatar,
		contextJSON,
		child.IsActive,
		now,
		now,
	).Scan(&child.CreatedAt, &child.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create child: %w", err)
	}

	return nil
}

// GetByID retrieves a child profile by ID
func (r *ChildRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Child, error) {
	query := `
		SELECT id, parent_id, name, age, avatar, memory_context, is_active, created_at, updated_at
		FROM children
		WHERE id = $1
	`
	return r.scanChild(r.db.QueryRowContext(ctx, query, id))
}

// GetByParentID retrieves active child profiles for a parent
func (r *ChildRepository) GetByParentID(ctx context.Context, parentID uuid.UUID) ([]*models.Child, error) {
	query := `
		SELECT id, parent_id, name, age, avatar, memory_context, is_active, created_at, updated_at
		FROM children
		WHERE parent_id = $1 AND is_active = TRUE
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query children: %w", err)
	}
	defer rows.Close()

	var children []*models.Child
	for rows.Next() {
		child, err := r.scanChild(rows)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating children: %w", err)
	}

	return children, nil
}

// Update updates a child profile's editable fields
func (r *ChildRepository) Update(ctx context.Context, child *models.Child) error {
	query := `
		UPDATE children
		SET name = $2, age = $3, avatar = $4, updated_at = $5
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		child.ID,
		child.Name,
		child.Age,
		child.Avatar,
		time.Now(),
	).Scan(&child.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("child %s: %w", child.ID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update child: %w", err)
	}

	return nil
}

// SoftDelete deactivates a child profile. The row is retained; cascade
// removal only happens when the parent account is deleted.
func (r *ChildRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE children SET is_active = FALSE, updated_at = $2 WHERE id = $1`,
		id, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate child: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("child %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetMemoryContext reads the durable memory context for a child. Profile
// name and age backfill empty context fields so prompts always know them.
func (r *ChildRepository) GetMemoryContext(ctx context.Context, childID uuid.UUID) (models.MemoryContext, error) {
	var contextJSON []byte
	var name string
	var age int

	query := `SELECT memory_context, name, age FROM children WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, childID).Scan(&contextJSON, &name, &age)
	if err == sql.ErrNoRows {
		return models.MemoryContext{}, fmt.Errorf("child %s: %w", childID, ErrNotFound)
	}
	if err != nil {
		return models.MemoryContext{}, fmt.Errorf("failed to get memory context: %w", err)
	}

	mc := models.NewMemoryContext()
	if len(contextJSON) > 0 {
		if err := json.Unmarshal(contextJSON, &mc); err != nil {
			// A corrupt blob loses learned facts but must not break chat.
			mc = models.NewMemoryContext()
		}
	}
	if mc.Name == "" {
		mc.Name = name
	}
	if mc.Age == 0 {
		mc.Age = age
	}

	return mc, nil
}

// MergeMemoryContext applies updates to the stored context atomically using
// a row lock, so concurrent extractions cannot lose each other's writes.
func (r *ChildRepository) MergeMemoryContext(ctx context.Context, childID uuid.UUID, updates models.MemoryContext) (models.MemoryContext, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.MemoryContext{}, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var contextJSON []byte
	err = tx.QueryRowContext(ctx,
		`SELECT memory_context FROM children WHERE id = $1 FOR UPDATE`,
		childID,
	).Scan(&contextJSON)
	if err == sql.ErrNoRows {
		return models.MemoryContext{}, fmt.Errorf("child %s: %w", childID, ErrNotFound)
	}
	if err != nil {
		return models.MemoryContext{}, fmt.Errorf("failed to lock memory context: %w", err)
	}

	current := models.NewMemoryContext()
	if len(contextJSON) > 0 {
		if err := json.Unmarshal(contextJSON, &current); err != nil {
			current = models.NewMemoryContext()
		}
	}

	merged := current.Merge(updates)
	mergedJSON, err := json.Marshal(merged)
	if err != nil {
		return models.MemoryContext{}, fmt.Errorf("failed to marshal memory context: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE children SET memory_context = $2, updated_at = $3 WHERE id = $1`,
		childID, mergedJSON, time.Now(),
	)
	if err != nil {
		return models.MemoryContext{}, fmt.Errorf("failed to update memory context: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.MemoryContext{}, fmt.Errorf("failed to commit memory context: %w", err)
	}

	return merged, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *ChildRepository) scanChild(row rowScanner) (*models.Child, error) {
	child := &models.Child{}
	var contextJSON []byte

	err := row.Scan(
		&child.ID,
		&child.ParentID,
		&child.Name,
		&child.Age,
		&child.Avatar,
		&contextJSON,
		&child.IsActive,
		&child.CreatedAt,
		&child.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("child: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan child: %w", err)
	}

	child.MemoryContext = models.NewMemoryContext()
	if len(contextJSON) > 0 {
		if err := json.Unmarshal(contextJSON, &child.MemoryContext); err != nil {
			child.MemoryContext = models.NewMemoryContext()
		}
	}

	return child, nil
}
