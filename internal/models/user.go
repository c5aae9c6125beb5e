package models

import (
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// PasswordCost is the bcrypt cost used when hashing passwords.
var PasswordCost = bcrypt.DefaultCost

// User is an account that may authenticate against the API.
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"type:varchar(50);not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	PasswordHash string    `json:"-" gorm:"column:password_hash;type:varchar(255);not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// password holds a plaintext password until it is hashed on save.
	password string
}

// SetPassword stages a new plaintext password. It is hashed before the user
// is written; nothing is hashed when no password is staged.
func (u *User) SetPassword(plain string) {
	u.password = plain
}

// HashPendingPassword replaces a staged plaintext password with its bcrypt hash.
func (u *User) HashPendingPassword() error {
	if u.password == "" {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(u.password), PasswordCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	u.password = ""
	return nil
}

// CheckPassword reports whether plain matches the stored hash.
func (u *User) CheckPassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plain)) == nil
}

// BeforeSave hashes a staged password on create and update.
func (u *User) BeforeSave(tx *gorm.DB) error {
	if err := u.HashPendingPassword(); err != nil {
		return err
	}
	if u.PasswordHash == "" {
		return fmt.Errorf("user %q has no password", u.Email)
	}
	return nil
}

// RegisterInput is the body of POST /api/auth/register.
type RegisterInput struct {
	Name     string `json:"name" form:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required,min=6"`
}

// LoginInput is the body of POST /api/auth/login.
type LoginInput struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

// ProfileInput is the body of PUT /api/auth/me. Nil fields are left unchanged.
type ProfileInput struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=2,max=50"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=6"`
}
