package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Role is a permission code carried by users and access tokens.
type Role int

// Known roles. The numeric codes are stable and appear in issued tokens.
const (
	RoleEditor Role = 1984
	RoleUser   Role = 2001
	RoleAdmin  Role = 5150
)

var roleNames = map[Role]string{
	RoleAdmin:  "admin",
	RoleEditor: "editor",
	RoleUser:   "user",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return strconv.Itoa(int(r))
}

// ParseRole accepts a role name (case-insensitive) or its numeric code.
func ParseRole(s string) (Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for role, name := range roleNames {
		if name == s {
			return role, nil
		}
	}
	if code, err := strconv.Atoi(s); err == nil {
		if _, ok := roleNames[Role(code)]; ok {
			return Role(code), nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

// RolePolicy decides which roles a new account starts with.
type RolePolicy struct {
	Default Role
}

// DefaultRolePolicy grants every new account the plain user role.
var DefaultRolePolicy = RolePolicy{Default: RoleUser}

// InitialRoles returns the role set for a freshly registered user.
func (p RolePolicy) InitialRoles() []Role {
	if p.Default == 0 {
		return []Role{RoleUser}
	}
	return []Role{p.Default}
}

// HasAnyRole reports whether held contains at least one of allowed.
func HasAnyRole(held []Role, allowed ...Role) bool {
	for _, h := range held {
		for _, a := range allowed {
			if h == a {
				return true
			}
		}
	}
	return false
}
