package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents an operator account for the management API
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Name         string    `json:"name" db:"name"`
	IsAdmin      bool      `json:"isAdmin" db:"is_admin"`
	IsActive     bool      `json:"isActive" db:"is_active"`
}
