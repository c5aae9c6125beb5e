package repositories

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"autoparts/internal/models"
)

// MockPartRepository is an in-memory implementation of PartRepository.
type MockPartRepository struct {
	parts  map[uint]models.Part
	nextID uint
	mu     sync.RWMutex
}

// NewMockPartRepository creates a new instance of MockPartRepository.
func NewMockPartRepository() *MockPartRepository {
	return &MockPartRepository{
		parts:  make(map[uint]models.Part),
		nextID: 1,
	}
}

// List returns the parts matching filter ordered by id.
func (r *MockPartRepository) List(_ context.Context, filter models.PartFilter) ([]models.Part, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	partList := make([]models.Part, 0, len(r.parts))
	for _, p := range r.parts {
		if filter.HasCategory() && p.Category != filter.Category {
			continue
		}
		if search != "" && !matchesSearch(p, search) {
			continue
		}
		partList = append(partList, clonePart(p))
	}
	sort.Slice(partList, func(i, j int) bool { return partList[i].ID < partList[j].ID })
	return partList, nil
}

// GetByID returns a part by its ID.
func (r *MockPartRepository) GetByID(_ context.Context, id uint) (*models.Part, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	part, ok := r.parts[id]
	if !ok {
		return nil, fmt.Errorf("part %d: %w", id, ErrNotFound)
	}
	part = clonePart(part)
	return &part, nil
}

// Create adds a new part.
func (r *MockPartRepository) Create(_ context.Context, part *models.Part) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	part.ID = r.nextID
	r.nextID++
	now := time.Now()
	part.CreatedAt = now
	part.UpdatedAt = now
	r.parts[part.ID] = clonePart(*part)
	return nil
}

// Update modifies an existing part.
func (r *MockPartRepository) Update(_ context.Context, part *models.Part) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.parts[part.ID]
	if !ok {
		return fmt.Errorf("part %d: %w", part.ID, ErrNotFound)
	}
	part.CreatedAt = existing.CreatedAt
	part.UpdatedAt = time.Now()
	r.parts[part.ID] = clonePart(*part)
	return nil
}

// Delete removes a part by its ID.
func (r *MockPartRepository) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.parts[id]; !ok {
		return fmt.Errorf("part %d: %w", id, ErrNotFound)
	}
	delete(r.parts, id)
	return nil
}

// clonePart copies the optional fields so callers never share pointers with
// the stored row.
func clonePart(p models.Part) models.Part {
	if p.Description != nil {
		d := *p.Description
		p.Description = &d
	}
	if p.ImageURL != nil {
		u := *p.ImageURL
		p.ImageURL = &u
	}
	return p
}
