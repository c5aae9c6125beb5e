package web

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"autoparts/internal/apperr"
	"autoparts/internal/inventory"
	"autoparts/internal/models"
	"autoparts/pkg/client"

	"github.com/gofiber/fiber/v2"
)

// partForm is the state of the part editor.
type partForm struct {
	Action      string
	Submit      string
	Name        string
	Brand       string
	Price       string
	Stock       string
	Category    string
	Description string
	ImageURL    string
	Categories  []inventory.Category
}

// newPartForm returns the editor for part, or an empty create form when part
// is nil.
func newPartForm(part *models.Part) partForm {
	if part == nil {
		return partForm{Action: "/dashboard/parts", Submit: "Add Part", Categories: inventory.Categories}
	}
	desc := ""
	if part.Description != nil {
		desc = *part.Description
	}
	imageURL := ""
	if part.ImageURL != nil {
		imageURL = *part.ImageURL
	}
	return partForm{
		Action:      fmt.Sprintf("/dashboard/parts/%d", part.ID),
		Submit:      "Update Part",
		Name:        part.Name,
		Brand:       part.Brand,
		Price:       strconv.FormatFloat(part.Price, 'f', 2, 64),
		Stock:       strconv.Itoa(part.Stock),
		Category:    part.Category,
		Description: desc,
		ImageURL:    imageURL,
		Categories:  inventory.Categories,
	}
}

// formFromInput refills the editor with what the user submitted.
func formFromInput(in models.PartInput, action, submit string) partForm {
	f := partForm{
		Action:     action,
		Submit:     submit,
		Name:       in.Name,
		Brand:      in.Brand,
		Price:      in.Price,
		Stock:      in.Stock,
		Category:   in.Category,
		Categories: inventory.Categories,
	}
	if in.Description != nil {
		f.Description = *in.Description
	}
	return f
}

// readPartForm reads the part editor. The image is optional; an empty file
// input counts as no image. The existing image is kept unless a new one is
// uploaded.
func readPartForm(c *fiber.Ctx) (models.PartInput, *client.Image, error) {
	desc := c.FormValue("description")
	in := models.PartInput{
		Name:        strings.TrimSpace(c.FormValue("name")),
		Brand:       strings.TrimSpace(c.FormValue("brand")),
		Price:       strings.TrimSpace(c.FormValue("price")),
		Stock:       strings.TrimSpace(c.FormValue("stock")),
		Category:    c.FormValue("category"),
		Description: &desc,
	}

	fh, err := c.FormFile("image")
	if err != nil || fh.Size == 0 {
		return in, nil, nil
	}
	if fh.Size > maxUploadBytes {
		return in, nil, apperr.Validation("image", "Image exceeds maximum size")
	}
	f, err := fh.Open()
	if err != nil {
		return in, nil, fmt.Errorf("failed to read image: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return in, nil, fmt.Errorf("failed to read image: %w", err)
	}
	return in, &client.Image{Name: fh.Filename, Content: data}, nil
}
