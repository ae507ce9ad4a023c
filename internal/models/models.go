package models

import (
	"encoding/json"
	"time"
)

// Session is the identity the client currently holds. Empty strings mean absent.
type Session struct {
	Token string `json:"token,omitempty"`
	User  string `json:"user,omitempty"`
}

// Authenticated reports whether the backend accepted the token for a named user.
func (s Session) Authenticated() bool {
	return s.Token != "" && s.User != ""
}

// Post is the content entity. Fields the client does not know about are kept
// in Extra and written back unchanged.
type Post struct {
	ID        string    `db:"post_id"`
	AuthorID  string    `db:"author_id"`
	Title     string    `db:"title"`
	Body      string    `db:"body"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	Extra map[string]json.RawMessage `db:"-"`
}

// PostDraft is the payload of the create and edit forms.
type PostDraft struct {
	Title string `json:"title" validate:"required,max=200"`
	Body  string `json:"body" validate:"max=20000"`
}

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type Registration struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// User is the account record kept by the development backend.
type User struct {
	UserID       string    `json:"userId" db:"user_id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}
