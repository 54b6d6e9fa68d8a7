package models

// User represents a chat participant. The current user is a locally
// fabricated identity; there is no account system behind it.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}
