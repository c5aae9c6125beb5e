package models

import "time"

// Part is an inventory item.
type Part struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"type:varchar(100);not null"`
	Brand       string    `json:"brand" gorm:"type:varchar(50);not null"`
	Price       float64   `json:"price" gorm:"type:decimal(10,2);not null"`
	Stock       int       `json:"stock" gorm:"not null;default:0"`
	Category    string    `json:"category" gorm:"type:varchar(50);not null;index"`
	Description *string   `json:"description" gorm:"type:text"`
	ImageURL    *string   `json:"image_url" gorm:"type:varchar(255)"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PartFilter narrows a part listing. Empty fields do not filter.
type PartFilter struct {
	// Category is matched exactly; "all" disables the filter.
	Category string
	// Search is matched case-insensitively against name or brand.
	Search string
}

// HasCategory reports whether the filter restricts the category.
func (f PartFilter) HasCategory() bool {
	return f.Category != "" && f.Category != "all"
}

// PartInput is a part form as submitted, before coercion and validation.
// Price and Stock keep their textual form so malformed numbers can be
// reported per field.
type PartInput struct {
	Name        string
	Brand       string
	Price       string
	Stock       string
	Category    string
	Description *string
	ImageURL    *string
}

// PartPayload is a validated part form.
type PartPayload struct {
	Name        string  `json:"name" validate:"required,min=2,max=100"`
	Brand       string  `json:"brand" validate:"required,min=2,max=50"`
	Price       float64 `json:"price" validate:"gt=0"`
	Stock       int     `json:"stock" validate:"gte=0"`
	Category    string  `json:"category" validate:"required,min=2,max=50"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	ImageURL    *string `json:"image_url" validate:"omitempty,url"`
}

// NewPart builds a part from the payload.
func (p PartPayload) NewPart() *Part {
	part := &Part{}
	p.ApplyTo(part)
	return part
}

// ApplyTo overwrites the validated fields of part. Description and ImageURL
// are only replaced when the payload carries them.
func (p PartPayload) ApplyTo(part *Part) {
	part.Name = p.Name
	part.Brand = p.Brand
	part.Price = p.Price
	part.Stock = p.Stock
	part.Category = p.Category
	if p.Description != nil {
		d := *p.Description
		part.Description = &d
	}
	if p.ImageURL != nil {
		u := *p.ImageURL
		part.ImageURL = &u
	}
}

// Part event types published after successful mutations.
const (
	PartCreated = "part.created"
	PartUpdated = "part.updated"
	PartDeleted = "part.deleted"
)

// PartEvent describes a change to a part.
type PartEvent struct {
	Type       string    `json:"type"`
	PartID     uint      `json:"part_id"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	Stock      int       `json:"stock"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewPartEvent returns an event of the given type for part.
func NewPartEvent(eventType string, part *Part) PartEvent {
	return PartEvent{
		Type:       eventType,
		PartID:     part.ID,
		Name:       part.Name,
		Category:   part.Category,
		Stock:      part.Stock,
		OccurredAt: time.Now().UTC(),
	}
}
