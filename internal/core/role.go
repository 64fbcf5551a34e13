// Package core provides the domain model for the finance tracker.
//
// This file defines the role enumeration, the profile record, and the
// single role-to-capability mapping every screen and handler consults.
// Role checks must go through CapabilitiesFor; nothing else in the
// codebase compares raw role strings.
package core

import (
	"errors"
	"strings"
	"time"
)

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

type (
	// Role is the closed three-level access enumeration.
	Role string

	// Profile is the role-bearing record for an authenticated principal.
	// Exactly one profile exists per provisioned principal; a missing
	// profile means "not yet provisioned" and grants nothing.
	Profile struct {
		ID        string // principal identifier from the identity provider
		FullName  string
		Role      Role
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// Capabilities is the derived permission set for a role. It is never
	// persisted and must be re-derived from the profile on every check.
	Capabilities struct {
		Read      bool
		Write     bool
		Delete    bool
		DeleteOwn bool
		Provision bool
	}
)

var (
	ErrUnknownRole = errors.New("unknown role")

	// ErrProfileNotFound means the principal authenticated but has no
	// profile row: not yet provisioned, no capabilities.
	ErrProfileNotFound = errors.New("profile not found")
)

// ValidRole reports whether s is one of the three role values.
func ValidRole(s string) bool {
	switch Role(s) {
	case RoleViewer, RoleEditor, RoleAdmin:
		return true
	}
	return false
}

// ParseRole converts a string to a Role, rejecting anything outside the
// closed enumeration.
func ParseRole(s string) (Role, error) {
	r := Role(strings.TrimSpace(s))
	if !ValidRole(string(r)) {
		return "", ErrUnknownRole
	}
	return r, nil
}

// NormalizeRole returns the requested role for provisioning: a valid role
// passes through unchanged, anything absent or unrecognized defaults to
// viewer. Defaulting applies only at provisioning time; everywhere else an
// unknown role is an error.
func NormalizeRole(s string) Role {
	if r, err := ParseRole(s); err == nil {
		return r
	}
	return RoleViewer
}

// CapabilitiesFor maps a role to its fixed capability set:
//
//	viewer -> read
//	editor -> read, write, delete own records
//	admin  -> read, write, delete, provision principals
//
// The mapping is pure: the same role always yields the same set. An
// unknown or empty role yields the zero (most restrictive) set.
func CapabilitiesFor(r Role) Capabilities {
	switch r {
	case RoleViewer:
		return Capabilities{Read: true}
	case RoleEditor:
		return Capabilities{Read: true, Write: true, DeleteOwn: true}
	case RoleAdmin:
		return Capabilities{Read: true, Write: true, Delete: true, DeleteOwn: true, Provision: true}
	default:
		return Capabilities{}
	}
}

// CanWrite reports whether the capability set permits creating or editing
// records.
func (c Capabilities) CanWrite() bool {
	return c.Write
}

// CanAdminister reports whether the capability set permits principal
// provisioning.
func (c Capabilities) CanAdminister() bool {
	return c.Provision
}

func (p Profile) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("profile id is required")
	}
	if strings.TrimSpace(p.FullName) == "" {
		return ErrEmptyName
	}
	if !ValidRole(string(p.Role)) {
		return ErrUnknownRole
	}
	return nil
}
