package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kidchat/kidchat-api/internal/models"
	"github.com/lib/pq"
)

// ErrNotFound is returned when a queried row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a unique constraint.
var ErrDuplicate = errors.New("already exists")

// ParentRepository handles parent account database operations
type ParentRepository struct {
	db *DB
}

// NewParentRepository creates a new parent repository
func NewParentRepository(db *DB) *ParentRepository {
	return &ParentRepository{db: db}
}

// Create creates a new parent account
func (r *ParentRepository) Create(ctx context.Context, parent *models.Parent) error {
	query := `
		INSERT INTO parents (id, email, password_hash, name, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		parent.ID,
		parent.Email,
		parent.PasswordHash,
		parent.Name,
		parent.Role,
		parent.IsActive,
		now,
		now,
	).Scan(&parent.CreatedAt, &parent.UpdatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("parent %s: %w", parent.Email, ErrDuplicate)
		}
		return fmt.Errorf("failed to create parent: %w", err)
	}

	return nil
}

// GetByID retrieves a parent by ID
func (r *ParentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Parent, error) {
	parent := &models.Parent{}
	query := `
		SELECT id, email, password_hash, name, role, is_active, created_at, updated_at
		FROM parents
		WHERE id = $1
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&parent.ID,
		&parent.Email,
		&parent.PasswordHash,
		&parent.Name,
		&parent.Role,
		&parent.IsActive,
		&parent.CreatedAt,
		&parent.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("parent %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get parent: %w", err)
	}

	return parent, nil
}

// GetByEmail retrieves a parent by email
func (r *ParentRepository) GetByEmail(ctx context.Context, email string) (*models.Parent, error) {
	parent := &models.Parent{}
	query := `
		SELECT id, email, password_hash, name, role, is_active, created_at, updated_at
		FROM parents
		WHERE email = $1
	`

	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&parent.ID,
		&parent.Email,
		&parent.PasswordHash,
		&parent.Name,
		&parent.Role,
		&parent.IsActive,
		&parent.CreatedAt,
		&parent.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("parent %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get parent by email: %w", err)
	}

	return parent, nil
}

// Delete hard-deletes a parent. Child profiles, sessions, and alerts go
// with it via cascade.
func (r *ParentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM parents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete parent: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("parent %s: %w", id, ErrNotFound)
	}
	return nil
}
