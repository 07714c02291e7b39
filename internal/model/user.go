package model

import (
	"strings"

	"github.com/google/uuid"
)

// User is a clinic staff member who can chat.
type User struct {
	ID   string
	Name string
	Type string
}

// Label returns "Name (Type)" or the best available subset.
func (u User) Label() string {
	name := u.Name
	if name == "" {
		name = u.ID
	}
	if u.Type == "" {
		return name
	}
	return name + " (" + u.Type + ")"
}

// IsAnonymous reports whether the user was generated locally.
func (u User) IsAnonymous() bool {
	return strings.HasPrefix(u.ID, "ANON-")
}

// AnonymousUser returns a locally generated identity used until a real
// user is chosen.
func AnonymousUser() User {
	id := "ANON-" + uuid.NewString()[:8]
	return User{ID: id, Name: id}
}

// UserFromConfig converts the configured user; ok is false when no id is set.
func UserFromConfig(c UserConfig) (User, bool) {
	if strings.TrimSpace(c.ID) == "" {
		return User{}, false
	}
	return User{ID: c.ID, Name: c.Name, Type: c.Type}, true
}
