// Package validation checks request payloads before they reach persistence.
//
// Struct rules are declared with go-playground/validator tags on the model
// types. Failures are reported as apperr validation errors carrying the first
// failing field in declaration order, with the same wording the web client
// shows to users.
package validation

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"autoparts/internal/apperr"
	"autoparts/internal/models"

	"github.com/go-playground/validator/v10"
)

// Validator validates auth and part payloads.
type Validator struct {
	validate   *validator.Validate
	categories []string
}

// Option configures a Validator.
type Option func(*Validator)

// WithCategories restricts part categories to the given set.
func WithCategories(categories []string) Option {
	return func(v *Validator) {
		v.categories = append([]string(nil), categories...)
	}
}

// New returns a Validator.
func New(opts ...Option) *Validator {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v := &Validator{validate: validate}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Register validates a registration request and normalizes the email.
func (v *Validator) Register(in *models.RegisterInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	return v.check(in, nil, nil)
}

// Login validates a login request and normalizes the email.
func (v *Validator) Login(in *models.LoginInput) error {
	in.Email = normalizeEmail(in.Email)
	return v.check(in, nil, nil)
}

// Profile validates a profile update.
func (v *Validator) Profile(in *models.ProfileInput) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		in.Name = &name
	}
	return v.check(in, nil, nil)
}

var partFieldOrder = []string{"name", "brand", "price", "stock", "category", "description", "image_url"}

// Part coerces and validates a submitted part form.
func (v *Validator) Part(in models.PartInput) (models.PartPayload, error) {
	payload := models.PartPayload{
		Name:        in.Name,
		Brand:       in.Brand,
		Category:    in.Category,
		Description: in.Description,
		ImageURL:    in.ImageURL,
	}
	if payload.ImageURL != nil && strings.TrimSpace(*payload.ImageURL) == "" {
		payload.ImageURL = nil
	}

	coerced := map[string]string{}
	price, msg := parsePrice(in.Price)
	if msg != "" {
		coerced["price"] = msg
	}
	payload.Price = price
	stock, msg := parseStock(in.Stock)
	if msg != "" {
		coerced["stock"] = msg
	}
	payload.Stock = stock

	if err := v.check(&payload, partFieldOrder, coerced); err != nil {
		return models.PartPayload{}, err
	}
	if len(v.categories) > 0 && !slices.Contains(v.categories, payload.Category) {
		return models.PartPayload{}, apperr.Validation("category",
			fmt.Sprintf("Category must be one of: %s", strings.Join(v.categories, ", ")))
	}
	return payload, nil
}

// check runs the struct rules on s. Field errors found before struct
// validation (pre) take precedence over struct errors on the same field.
// The reported field is the first failing one in order, or in struct
// declaration order when order is nil.
func (v *Validator) check(s any, order []string, pre map[string]string) error {
	fields := map[string]string{}
	var seen []string
	for field, msg := range pre {
		fields[field] = msg
	}

	err := v.validate.Struct(s)
	var verrs validator.ValidationErrors
	switch {
	case err == nil:
	case errors.As(err, &verrs):
		for _, fe := range verrs {
			seen = append(seen, fe.Field())
			if _, ok := fields[fe.Field()]; ok {
				continue
			}
			fields[fe.Field()] = message(fe)
		}
	default:
		return apperr.Internal("Validation failed", err)
	}

	if len(fields) == 0 {
		return nil
	}
	if order == nil {
		order = seen
	}
	for _, field := range order {
		if msg, ok := fields[field]; ok {
			verr := apperr.Validation(field, msg)
			verr.Fields = fields
			return verr
		}
	}
	return apperr.Validation("", "Validation failed")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// parsePrice reads a price and rounds it to cents.
func parsePrice(raw string) (float64, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, "Price is required"
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, "Price must be a valid number"
	}
	return math.Round(f*100) / 100, ""
}

func parseStock(raw string) (int, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, "Stock is required"
	}
	n, err := strconv.Atoi(raw)
	if err == nil {
		return n, ""
	}
	if f, ferr := strconv.ParseFloat(raw, 64); ferr == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		if f == math.Trunc(f) && math.Abs(f) < math.MaxInt32 {
			return int(f), ""
		}
		return 0, "Stock must be a whole number"
	}
	return 0, "Stock must be a valid number"
}
