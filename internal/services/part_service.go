package services

import (
	"context"
	"errors"
	"io"

	"autoparts/internal/apperr"
	"autoparts/internal/metrics"
	"autoparts/internal/models"
	"autoparts/internal/repositories"
	"autoparts/internal/validation"

	"go.uber.org/zap"
)

const (
	msgPartNotFound  = "Part not found"
	msgUploadedImage = "Image URL cannot point to another part's uploaded image"
)

// ImageStore persists uploaded part images.
type ImageStore interface {
	Save(r io.Reader) (string, error)
	Remove(name string) error
	URL(baseURL, name string) string
	FilenameFromURL(raw string) (string, bool)
	Sweep(referenced map[string]bool) ([]string, error)
}

// EventPublisher receives part events after successful mutations.
type EventPublisher interface {
	PublishPartEvent(event models.PartEvent) error
}

// ImageUpload is an image submitted with a part form.
type ImageUpload struct {
	Body io.Reader
	Size int64
	// BaseURL is the scheme and host the request reached, used to build the
	// public image URL.
	BaseURL string
}

// PartService handles business logic related to parts.
type PartService struct {
	repo      repositories.PartRepository
	images    ImageStore
	validator *validation.Validator
	events    EventPublisher
	metrics   *metrics.Metrics
	log       *zap.Logger
}

// PartOption configures a PartService.
type PartOption func(*PartService)

// WithEvents publishes part events to p.
func WithEvents(p EventPublisher) PartOption {
	return func(s *PartService) { s.events = p }
}

// WithMetrics records mutations and uploads on m.
func WithMetrics(m *metrics.Metrics) PartOption {
	return func(s *PartService) { s.metrics = m }
}

// NewPartService creates a new PartService.
func NewPartService(repo repositories.PartRepository, images ImageStore, v *validation.Validator, log *zap.Logger, opts ...PartOption) *PartService {
	if log == nil {
		log = zap.NewNop()
	}
	s := &PartService{
		repo:      repo,
		images:    images,
		validator: v,
		log:       log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List retrieves the parts matching filter.
func (s *PartService) List(ctx context.Context, filter models.PartFilter) ([]models.Part, error) {
	parts, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch parts", err)
	}
	return parts, nil
}

// Get retrieves a single part.
func (s *PartService) Get(ctx context.Context, id uint) (*models.Part, error) {
	part, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(err, "Failed to fetch part")
	}
	return part, nil
}

// Create validates the form, stores the optional image and persists the part.
// The image is removed again if the part cannot be saved.
func (s *PartService) Create(ctx context.Context, in models.PartInput, image *ImageUpload) (*models.Part, error) {
	payload, err := s.validator.Part(in)
	if err != nil {
		return nil, err
	}
	if err := s.checkImageURL(payload, image, ""); err != nil {
		return nil, err
	}
	part := payload.NewPart()

	stored, err := s.storeImage(part, image)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, part); err != nil {
		s.discard(stored)
		return nil, apperr.Internal("Failed to create part", err)
	}

	s.mutated("create", models.PartCreated, part, image)
	return part, nil
}

// Update validates the form and overwrites an existing part. A replaced
// uploaded image is removed once the new row is saved.
func (s *PartService) Update(ctx context.Context, id uint, in models.PartInput, image *ImageUpload) (*models.Part, error) {
	payload, err := s.validator.Part(in)
	if err != nil {
		return nil, err
	}
	part, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(err, "Failed to update part")
	}

	previous := ""
	if part.ImageURL != nil {
		previous = *part.ImageURL
	}
	if err := s.checkImageURL(payload, image, previous); err != nil {
		return nil, err
	}
	payload.ApplyTo(part)

	stored, err := s.storeImage(part, image)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, part); err != nil {
		s.discard(stored)
		return nil, s.lookupError(err, "Failed to update part")
	}

	if previous != "" && (part.ImageURL == nil || *part.ImageURL != previous) {
		s.removeByURL(previous)
	}
	s.mutated("update", models.PartUpdated, part, image)
	return part, nil
}

// Delete removes a part and its uploaded image.
func (s *PartService) Delete(ctx context.Context, id uint) error {
	part, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return s.lookupError(err, "Failed to delete part")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.lookupError(err, "Failed to delete part")
	}
	if part.ImageURL != nil {
		s.removeByURL(*part.ImageURL)
	}
	s.mutated("delete", models.PartDeleted, part, nil)
	return nil
}

// ReconcileImages removes uploaded images no part refers to, such as files
// left behind when the process died between storing an image and saving its
// row. It returns the number of files removed.
func (s *PartService) ReconcileImages(ctx context.Context) (int, error) {
	parts, err := s.repo.List(ctx, models.PartFilter{})
	if err != nil {
		return 0, apperr.Internal("Failed to fetch parts", err)
	}
	referenced := make(map[string]bool, len(parts))
	for _, p := range parts {
		if p.ImageURL == nil {
			continue
		}
		if name, ok := s.images.FilenameFromURL(*p.ImageURL); ok {
			referenced[name] = true
		}
	}
	removed, err := s.images.Sweep(referenced)
	if err != nil {
		return 0, err
	}
	if len(removed) > 0 {
		s.log.Info("removed orphaned images", zap.Int("count", len(removed)), zap.Strings("files", removed))
	}
	return len(removed), nil
}

// storeImage saves image, if any, and points part at it. It returns the
// stored file name.
func (s *PartService) storeImage(part *models.Part, image *ImageUpload) (string, error) {
	if image == nil {
		return "", nil
	}
	name, err := s.images.Save(image.Body)
	if err != nil {
		return "", err
	}
	url := s.images.URL(image.BaseURL, name)
	part.ImageURL = &url
	return name, nil
}

// checkImageURL rejects an image_url naming a file in the upload store unless
// it is the part's current image. Uploaded files belong to a single part.
func (s *PartService) checkImageURL(payload models.PartPayload, image *ImageUpload, current string) error {
	if image != nil || payload.ImageURL == nil || *payload.ImageURL == current {
		return nil
	}
	if _, ours := s.images.FilenameFromURL(*payload.ImageURL); ours {
		return apperr.Validation("image_url", msgUploadedImage)
	}
	return nil
}

func (s *PartService) removeByURL(raw string) {
	if name, ok := s.images.FilenameFromURL(raw); ok {
		s.discard(name)
	}
}

// discard removes a stored image. Failures are logged and never returned.
func (s *PartService) discard(name string) {
	if name == "" {
		return
	}
	if err := s.images.Remove(name); err != nil {
		s.metrics.CleanupFailed()
		s.log.Warn("failed to remove image", zap.String("file", name), zap.Error(err))
	}
}

func (s *PartService) mutated(action, eventType string, part *models.Part, image *ImageUpload) {
	s.metrics.PartMutated(action)
	if image != nil {
		s.metrics.ImageStored(image.Size)
	}
	s.log.Info("part "+action+"d", zap.Uint("part_id", part.ID))
	if s.events == nil {
		return
	}
	if err := s.events.PublishPartEvent(models.NewPartEvent(eventType, part)); err != nil {
		s.log.Warn("failed to publish part event", zap.String("type", eventType), zap.Uint("part_id", part.ID), zap.Error(err))
	}
}

func (s *PartService) lookupError(err error, msg string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apperr.NotFound(msgPartNotFound)
	}
	return apperr.Internal(msg, err)
}
