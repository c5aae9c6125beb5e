package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"strings"

	"autoparts/internal/apperr"
	"autoparts/internal/models"
	"autoparts/internal/services"

	"github.com/gofiber/fiber/v2"
)

const imageField = "image"

// PartHandler handles HTTP requests for parts.
type PartHandler struct {
	partService *services.PartService
}

// NewPartHandler creates a new PartHandler.
func NewPartHandler(partService *services.PartService) *PartHandler {
	return &PartHandler{
		partService: partService,
	}
}

// RegisterRoutes registers the part routes. Reads are public; mutations
// require authRequired to pass.
func (h *PartHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	partRoutes := router.Group("/parts")
	partRoutes.Get("/", h.HandleList)
	partRoutes.Get("/:id", h.HandleGet)
	partRoutes.Post("/", authRequired, h.HandleCreate)
	partRoutes.Put("/:id", authRequired, h.HandleUpdate)
	partRoutes.Delete("/:id", authRequired, h.HandleDelete)
}

// HandleList lists parts, optionally filtered by category and search term.
func (h *PartHandler) HandleList(c *fiber.Ctx) error {
	parts, err := h.partService.List(c.UserContext(), models.PartFilter{
		Category: c.Query("category"),
		Search:   c.Query("search"),
	})
	if err != nil {
		return err
	}
	count := len(parts)
	return c.JSON(Response{Success: true, Data: parts, Count: &count})
}

// HandleGet returns a single part.
func (h *PartHandler) HandleGet(c *fiber.Ctx) error {
	id, err := partID(c)
	if err != nil {
		return err
	}
	part, err := h.partService.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(Response{Success: true, Data: part})
}

// HandleCreate creates a part from a multipart, urlencoded or JSON form.
func (h *PartHandler) HandleCreate(c *fiber.Ctx) error {
	in, image, closeImage, err := readPartForm(c)
	if err != nil {
		return err
	}
	defer closeImage()

	part, err := h.partService.Create(c.UserContext(), in, image)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(Response{
		Success: true,
		Message: "Part created successfully",
		Data:    part,
	})
}

// HandleUpdate overwrites a part.
func (h *PartHandler) HandleUpdate(c *fiber.Ctx) error {
	id, err := partID(c)
	if err != nil {
		return err
	}
	in, image, closeImage, err := readPartForm(c)
	if err != nil {
		return err
	}
	defer closeImage()

	part, err := h.partService.Update(c.UserContext(), id, in, image)
	if err != nil {
		return err
	}
	return c.JSON(Response{
		Success: true,
		Message: "Part updated successfully",
		Data:    part,
	})
}

// HandleDelete deletes a part.
func (h *PartHandler) HandleDelete(c *fiber.Ctx) error {
	id, err := partID(c)
	if err != nil {
		return err
	}
	if err := h.partService.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(Response{Success: true, Message: "Part deleted successfully"})
}

// partID reads the :id parameter. Ids that cannot exist are reported as a
// missing part.
func partID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, apperr.NotFound("Part not found")
	}
	return uint(id), nil
}

var partFields = []string{"name", "brand", "price", "stock", "category", "description", "image_url"}

// readPartForm reads the submitted part fields and the optional image. The
// returned close func releases the image and is always safe to call.
func readPartForm(c *fiber.Ctx) (models.PartInput, *services.ImageUpload, func(), error) {
	noop := func() {}
	ctype := string(c.Request().Header.ContentType())

	switch {
	case strings.HasPrefix(ctype, fiber.MIMEMultipartForm):
		form, err := c.MultipartForm()
		if err != nil {
			return models.PartInput{}, nil, noop, apperr.Validation("body", "Invalid request body")
		}
		in := partInputFrom(func(key string) (string, bool) {
			vals, ok := form.Value[key]
			if !ok || len(vals) == 0 {
				return "", false
			}
			return vals[0], true
		})
		fh, err := singleImage(form)
		if err != nil || fh == nil {
			return in, nil, noop, err
		}
		f, err := fh.Open()
		if err != nil {
			return in, nil, noop, apperr.Internal("Failed to read uploaded image", err)
		}
		image := &services.ImageUpload{Body: f, Size: fh.Size, BaseURL: c.BaseURL()}
		return in, image, func() { _ = f.Close() }, nil

	case strings.HasPrefix(ctype, fiber.MIMEApplicationForm):
		args := c.Request().PostArgs()
		return partInputFrom(func(key string) (string, bool) {
			if !args.Has(key) {
				return "", false
			}
			return string(args.Peek(key)), true
		}), nil, noop, nil

	default:
		in, err := jsonPartInput(c.Body())
		return in, nil, noop, err
	}
}

// singleImage returns the one uploaded image, or nil when none was sent.
func singleImage(form *multipart.Form) (*multipart.FileHeader, error) {
	total := 0
	for field, files := range form.File {
		if field != imageField && len(files) > 0 {
			return nil, apperr.Validation(imageField, "Only one image file is allowed")
		}
		total += len(files)
	}
	if total > 1 {
		return nil, apperr.Validation(imageField, "Only one image file is allowed")
	}
	if total == 0 {
		return nil, nil
	}
	return form.File[imageField][0], nil
}

func partInputFrom(lookup func(key string) (string, bool)) models.PartInput {
	get := func(key string) string {
		v, _ := lookup(key)
		return v
	}
	optional := func(key string) *string {
		if v, ok := lookup(key); ok {
			return &v
		}
		return nil
	}
	return models.PartInput{
		Name:        get("name"),
		Brand:       get("brand"),
		Price:       get("price"),
		Stock:       get("stock"),
		Category:    get("category"),
		Description: optional("description"),
		ImageURL:    optional("image_url"),
	}
}

// jsonPartInput reads a JSON part body. Numbers and numeric strings are both
// accepted for price and stock; a null optional field counts as absent.
func jsonPartInput(body []byte) (models.PartInput, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return models.PartInput{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	raw := map[string]any{}
	if err := dec.Decode(&raw); err != nil {
		return models.PartInput{}, apperr.Validation("body", "Invalid request body")
	}

	values := make(map[string]string, len(partFields))
	for _, key := range partFields {
		switch v := raw[key].(type) {
		case nil:
		case string:
			values[key] = v
		case json.Number:
			values[key] = v.String()
		default:
			values[key] = fmt.Sprint(v)
		}
	}
	return partInputFrom(func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}), nil
}
