package repositories

import (
	"context"
	"errors"
	"strings"

	"autoparts/internal/models"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write violates a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
)

// PartRepository defines the interface for part data access.
type PartRepository interface {
	List(ctx context.Context, filter models.PartFilter) ([]models.Part, error)
	GetByID(ctx context.Context, id uint) (*models.Part, error)
	Create(ctx context.Context, part *models.Part) error
	Update(ctx context.Context, part *models.Part) error
	Delete(ctx context.Context, id uint) error
}

// matchesSearch reports whether the name or brand of p contains term, ignoring
// case. term must already be lower-cased.
func matchesSearch(p models.Part, term string) bool {
	return strings.Contains(strings.ToLower(p.Name), term) || strings.Contains(strings.ToLower(p.Brand), term)
}
