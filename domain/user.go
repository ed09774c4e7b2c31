package domain

import "time"

// User is an account identified by email. PasswordHash is a bcrypt digest and
// never leaves the server.
type User struct {
	ID           string    `json:"_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
