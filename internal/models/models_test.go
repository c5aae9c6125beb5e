package models_test

import (
	"encoding/json"
	"testing"

	"autoparts/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	models.PasswordCost = bcrypt.MinCost
}

func TestUserHashesOnlyStagedPassword(t *testing.T) {
	u := &models.User{Name: "Admin", Email: "admin@example.com"}
	u.SetPassword("admin123")
	require.NoError(t, u.HashPendingPassword())

	assert.NotEqual(t, "admin123", u.PasswordHash)
	assert.True(t, u.CheckPassword("admin123"))
	assert.False(t, u.CheckPassword("wrong"))

	first := u.PasswordHash
	require.NoError(t, u.HashPendingPassword())
	assert.Equal(t, first, u.PasswordHash, "hash must not change without a new password")

	u.SetPassword("changed1")
	require.NoError(t, u.HashPendingPassword())
	assert.NotEqual(t, first, u.PasswordHash)
	assert.True(t, u.CheckPassword("changed1"))
}

func TestUserBeforeSaveRequiresPassword(t *testing.T) {
	u := &models.User{Name: "No Pass", Email: "nopass@example.com"}
	assert.Error(t, u.BeforeSave(nil))
}

func TestUserJSONOmitsHash(t *testing.T) {
	u := models.User{ID: 1, Name: "Admin", Email: "admin@example.com", PasswordHash: "$2a$hash"}
	b, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "hash")
	assert.NotContains(t, string(b), "password")
}

func TestPartJSONNullsAbsentOptionalFields(t *testing.T) {
	p := models.Part{ID: 1, Name: "Oil Filter", Brand: "Bosch", Price: 12.99, Stock: 45, Category: "filters"}
	b, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"image_url":null`)
	assert.Contains(t, string(b), `"description":null`)
}

func TestPayloadApplyKeepsOmittedOptionalFields(t *testing.T) {
	desc := "old description"
	url := "http://localhost:5000/uploads/image-1.png"
	part := &models.Part{ID: 7, Name: "Old", Description: &desc, ImageURL: &url}

	models.PartPayload{Name: "Brake Pads", Brand: "Brembo", Price: 89.99, Stock: 23, Category: "brakes"}.ApplyTo(part)

	assert.Equal(t, uint(7), part.ID)
	assert.Equal(t, "Brake Pads", part.Name)
	assert.Equal(t, 89.99, part.Price)
	require.NotNil(t, part.Description)
	assert.Equal(t, "old description", *part.Description)
	require.NotNil(t, part.ImageURL)
	assert.Equal(t, url, *part.ImageURL)

	empty := ""
	models.PartPayload{Name: "Brake Pads", Brand: "Brembo", Price: 89.99, Stock: 23, Category: "brakes", Description: &empty}.ApplyTo(part)
	require.NotNil(t, part.Description)
	assert.Equal(t, "", *part.Description)
}

func TestPartFilterCategory(t *testing.T) {
	assert.False(t, models.PartFilter{}.HasCategory())
	assert.False(t, models.PartFilter{Category: "all"}.HasCategory())
	assert.True(t, models.PartFilter{Category: "brakes"}.HasCategory())
}
