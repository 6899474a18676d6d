package domain

import "time"

type UserID int64

// User is an account as persisted by the store. It never changes once created.
type User struct {
	ID           UserID
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}
