package validation

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// messages maps "<Struct>.<json field>.<tag>" to the text shown to users.
var messages = map[string]string{
	"RegisterInput.name.required":     "Name is required",
	"RegisterInput.name.min":          "Name must be at least 2 characters long",
	"RegisterInput.name.max":          "Name cannot exceed 50 characters",
	"RegisterInput.email.required":    "Email is required",
	"RegisterInput.email.email":       "Please provide a valid email address",
	"RegisterInput.password.required": "Password is required",
	"RegisterInput.password.min":      "Password must be at least 6 characters long",

	"LoginInput.email.required":    "Email is required",
	"LoginInput.email.email":       "Please provide a valid email address",
	"LoginInput.password.required": "Password is required",

	"ProfileInput.name.min":     "Name must be at least 2 characters long",
	"ProfileInput.name.max":     "Name cannot exceed 50 characters",
	"ProfileInput.password.min": "Password must be at least 6 characters long",

	"PartPayload.name.required":     "Part name is required",
	"PartPayload.name.min":          "Part name must be at least 2 characters long",
	"PartPayload.name.max":          "Part name cannot exceed 100 characters",
	"PartPayload.brand.required":    "Brand is required",
	"PartPayload.brand.min":         "Brand must be at least 2 characters long",
	"PartPayload.brand.max":         "Brand cannot exceed 50 characters",
	"PartPayload.price.gt":          "Price must be a positive number",
	"PartPayload.stock.gte":         "Stock cannot be negative",
	"PartPayload.category.required": "Category is required",
	"PartPayload.category.min":      "Category must be at least 2 characters long",
	"PartPayload.category.max":      "Category cannot exceed 50 characters",
	"PartPayload.description.max":   "Description cannot exceed 500 characters",
	"PartPayload.image_url.url":     "Image URL must be a valid URL",
}

func message(fe validator.FieldError) string {
	if msg, ok := messages[fe.Namespace()+"."+fe.Tag()]; ok {
		return msg
	}
	if fe.Param() != "" {
		return fmt.Sprintf("%q failed the %s=%s rule", fe.Field(), fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%q failed the %s rule", fe.Field(), fe.Tag())
}
