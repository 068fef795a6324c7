// Package shared holds filter and error types common to the masterdata
// subpackages.
package shared

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/meridian-crm/meridian/internal/profiles"
	"github.com/meridian-crm/meridian/internal/roles"
)

const (
	DefaultLimit = 50
	MaxLimit     = 1000
)

var (
	ErrNotFound = errors.New("masterdata: record not found")
	// ErrInUse refuses deletion of records still referenced by customers.
	ErrInUse = errors.New("masterdata: record still referenced")
)

// InUseError carries the reference count blocking a delete.
type InUseError struct {
	Count int
}

func (e *InUseError) Error() string {
	return fmt.Sprintf("masterdata: record referenced by %d rows", e.Count)
}

func (e *InUseError) Unwrap() error { return ErrInUse }

// ListFilters represents standard list filters.
type ListFilters struct {
	Search string
	Limit  int
	Offset int
}

// Normalize clamps pagination to sane bounds.
func (f *ListFilters) Normalize() {
	if f.Limit <= 0 || f.Limit > MaxLimit {
		f.Limit = DefaultLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// ActorResolver yields the effective acting profile for a request.
type ActorResolver interface {
	ActingProfile(r *http.Request) (*profiles.Profile, bool, error)
}

// CanWrite reports whether the role may mutate master data. Reads are open
// to any provisioned role.
func CanWrite(role *roles.Role) bool {
	if role == nil {
		return false
	}
	switch *role {
	case roles.RoleSuperadmin, roles.RoleOwner, roles.RoleManager:
		return true
	}
	return false
}
