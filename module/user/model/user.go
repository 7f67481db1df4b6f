package model

import "time"

// User is the account master record. Credentials stay server side; the
// JSON shape below is what list/profile endpoints return.
type User struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	Username       string    `json:"username"`
	HashedPassword string    `json:"-"`
	ProfilePhoto   string    `json:"profile_photo,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
