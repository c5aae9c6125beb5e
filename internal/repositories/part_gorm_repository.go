package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"autoparts/internal/models"

	"gorm.io/gorm"
)

// GORMPartRepository is a GORM implementation of PartRepository.
type GORMPartRepository struct {
	db *gorm.DB
}

// NewGORMPartRepository creates a new instance of GORMPartRepository.
func NewGORMPartRepository(db *gorm.DB) *GORMPartRepository {
	return &GORMPartRepository{
		db: db,
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// List retrieves the parts matching filter ordered by id.
func (r *GORMPartRepository) List(ctx context.Context, filter models.PartFilter) ([]models.Part, error) {
	q := r.db.WithContext(ctx).Model(&models.Part{})
	if filter.HasCategory() {
		q = q.Where("category = ?", filter.Category)
	}
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	// SQLite's LOWER only folds ASCII, so there the search runs after the query.
	foldLocally := search != "" && r.db.Dialector.Name() == "sqlite"
	if search != "" && !foldLocally {
		term := "%" + likeEscaper.Replace(search) + "%"
		q = q.Where(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(brand) LIKE ? ESCAPE '\')`, term, term)
	}

	parts := []models.Part{}
	if err := q.Order("id ASC").Find(&parts).Error; err != nil {
		return nil, fmt.Errorf("failed to list parts: %w", err)
	}
	if !foldLocally {
		return parts, nil
	}
	matched := parts[:0]
	for _, p := range parts {
		if matchesSearch(p, search) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

// GetByID retrieves a single part by its ID.
func (r *GORMPartRepository) GetByID(ctx context.Context, id uint) (*models.Part, error) {
	var part models.Part
	if err := r.db.WithContext(ctx).First(&part, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("part %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get part %d: %w", id, err)
	}
	return &part, nil
}

// Create inserts a new part and fills in its generated fields.
func (r *GORMPartRepository) Create(ctx context.Context, part *models.Part) error {
	if err := r.db.WithContext(ctx).Create(part).Error; err != nil {
		return fmt.Errorf("failed to create part: %w", translate(err))
	}
	return nil
}

// Update overwrites every column of an existing part except created_at.
func (r *GORMPartRepository) Update(ctx context.Context, part *models.Part) error {
	res := r.db.WithContext(ctx).Model(part).Select("*").Omit("id", "created_at").Updates(part)
	if res.Error != nil {
		return fmt.Errorf("failed to update part %d: %w", part.ID, translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("part %d: %w", part.ID, ErrNotFound)
	}
	return nil
}

// Delete deletes a part by its ID.
func (r *GORMPartRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Part{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete part %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("part %d: %w", id, ErrNotFound)
	}
	return nil
}

// translate maps driver errors surfaced by gorm's TranslateError onto the
// repository sentinels.
func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}
