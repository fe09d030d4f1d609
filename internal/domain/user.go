package domain

import "time"

// User is an account. PasswordHash holds the bcrypt digest; plaintext is
// never stored. Users are created once and not updated afterwards.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}
