// Package auth holds the storefront's demo login table. It is a stand-in for a
// real identity provider and makes no attempt at hardening.
package auth

import (
	"crypto/subtle"
	"errors"
	"strings"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

var ErrInvalidCredentials = errors.New("auth: invalid credentials")

type User struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

type credential struct {
	password string
	role     Role
}

// Directory is a fixed username to credential table.
type Directory struct {
	entries map[string]credential
}

// Demo returns the two accounts the storefront login page advertises.
func Demo() *Directory {
	return &Directory{entries: map[string]credential{
		"user123":  {password: "pass123", role: RoleUser},
		"admin123": {password: "pass123", role: RoleAdmin},
	}}
}

// Login returns ErrInvalidCredentials for an unknown user or wrong password.
func (d *Directory) Login(username, password string) (User, error) {
	username = strings.TrimSpace(username)
	c, ok := d.entries[username]
	if !ok || subtle.ConstantTimeCompare([]byte(c.password), []byte(password)) != 1 {
		return User{}, ErrInvalidCredentials
	}
	return User{Username: username, Role: c.role}, nil
}

// Admins returns username to password for every admin entry, the shape
// chi's BasicAuth middleware expects.
func (d *Directory) Admins() map[string]string {
	out := make(map[string]string)
	for name, c := range d.entries {
		if c.role == RoleAdmin {
			out[name] = c.password
		}
	}
	return out
}
