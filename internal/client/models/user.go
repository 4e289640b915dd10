package models

import (
	"strings"
	"time"
)

// User is a directory record as returned by the backend. The password is
// write-only and therefore never part of this type.
type User struct {
	ID         int64      `json:"id"`
	Email      string     `json:"email"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	Phone      string     `json:"phone,omitempty"`
	DateJoined *time.Time `json:"date_joined,omitempty"`
}

// FullName joins first and last name, skipping empty parts.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// UserDraft is the payload for creating a user.
type UserDraft struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone,omitempty"`
	Password  string `json:"password"`
}

// UserPatch is the payload for updating a user. An empty Password is left
// out of the request so the stored password stays unchanged.
type UserPatch struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Password  string `json:"password,omitempty"`
}
