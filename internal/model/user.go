package model

import "time"

// User is a local account. Password is nil for accounts created through an
// OAuth provider; it is never serialized to clients.
type User struct {
	ID        int64      `json:"id" db:"id"`
	Email     string     `json:"email" db:"email"`
	Password  *string    `json:"-" db:"password"`
	Name      *string    `json:"name" db:"name"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt *time.Time `json:"updatedAt" db:"updated_at"`
}
