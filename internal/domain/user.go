package domain

import "time"

// User is the externally provisioned identity that submits scores.
type User struct {
	ID        string
	Username  string
	CreatedAt time.Time
}
