package entity

import "time"

// Account represents a row in the `accounts` table.
// HashedPassword is a bcrypt string ($2a$/$2b$ tagged), never the plaintext.
type Account struct {
	ID             int64     `db:"id" json:"id"`
	Email          string    `db:"email" json:"email"`
	Username       string    `db:"username" json:"username"`
	HashedPassword string    `db:"hashed_password" json:"-"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
