package models

import (
	"fmt"
	"strings"
)

// User carries the profile fields the platform exposes for a participant.
type User struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
}

// Participant ties a user id to an optional profile record.
type Participant struct {
	UserID int64 `json:"user_id"`
	User   *User `json:"user,omitempty"`
}

// DisplayName resolves a human-readable name for the participant:
// "First Last", else "First", else "User {id}".
func (p Participant) DisplayName() string {
	if p.User != nil {
		first := strings.TrimSpace(p.User.FirstName)
		last := strings.TrimSpace(p.User.LastName)
		switch {
		case first != "" && last != "":
			return first + " " + last
		case first != "":
			return first
		}
	}
	return fmt.Sprintf("User %d", p.UserID)
}
