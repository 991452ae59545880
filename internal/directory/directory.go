// Package directory resolves platform user ids to email recipients.
package directory

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownUser is returned when a user id has no known email address.
var ErrUnknownUser = errors.New("directory: unknown user")

// User is one directory entry.
type User struct {
	ID    string `yaml:"-"`
	Email string `yaml:"email"`
	Name  string `yaml:"name"`
}

// Resolver looks up the email recipient for a user id.
type Resolver interface {
	Resolve(ctx context.Context, userID string) (User, error)
}

// usersFile is the on-disk YAML layout:
//
//	users:
//	  user_1:
//	    email: ana@example.com
//	    name: Ana
type usersFile struct {
	Users map[string]User `yaml:"users"`
}

// Directory resolves users from a static table, optionally falling back to
// "<userId>@<domain>" for ids that are not listed.
type Directory struct {
	users          map[string]User
	fallbackDomain string
}

// New creates a Directory from an in-memory table.
func New(users map[string]User, fallbackDomain string) *Directory {
	d := &Directory{
		users:          make(map[string]User, len(users)),
		fallbackDomain: strings.TrimPrefix(strings.TrimSpace(fallbackDomain), "@"),
	}
	for id, u := range users {
		u.ID = id
		d.users[id] = u
	}
	return d
}

// Load reads the users YAML file at filePath. An empty path or a missing file
// yields an empty table (not an error), so the fallback domain alone can be used.
func Load(filePath, fallbackDomain string) (*Directory, error) {
	if filePath == "" {
		return New(nil, fallbackDomain), nil
	}

	data, err := os.ReadFile(filePath) //nolint:gosec // path is admin-configured
	if err != nil {
		if os.IsNotExist(err) {
			return New(nil, fallbackDomain), nil
		}
		return nil, fmt.Errorf("reading users file %q: %w", filePath, err)
	}

	var f usersFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing users file %q: %w", filePath, err)
	}

	for id, u := range f.Users {
		if _, err := mail.ParseAddress(u.Email); err != nil {
			return nil, fmt.Errorf("users file %q: user %q has invalid email %q: %w", filePath, id, u.Email, err)
		}
	}
	return New(f.Users, fallbackDomain), nil
}

// Len returns the number of explicitly listed users.
func (d *Directory) Len() int { return len(d.users) }

// Resolve returns the user for userID.
func (d *Directory) Resolve(_ context.Context, userID string) (User, error) {
	if u, ok := d.users[userID]; ok {
		return u, nil
	}
	if d.fallbackDomain != "" && userID != "" && !strings.ContainsAny(userID, " \t\r\n<>@,;\"") {
		addr := userID + "@" + d.fallbackDomain
		if _, err := mail.ParseAddress(addr); err == nil {
			return User{ID: userID, Email: addr}, nil
		}
	}
	return User{}, fmt.Errorf("%w: %q", ErrUnknownUser, userID)
}
