// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package unit

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyUnitName is returned when a unit is registered without a name.
	ErrEmptyUnitName = errors.New("unit name must not be empty")
	// ErrDuplicateUnit is returned when a unit identity is registered twice.
	ErrDuplicateUnit = errors.New("unit already registered")
)

// Registry holds the known units. Iteration follows registration order, so
// resolution is deterministic. Registration happens once at startup and the
// registry is read-only afterwards.
type Registry struct {
	units map[string]Unit
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		units: make(map[string]Unit),
	}
}

// Register adds a unit. The identity (trimmed name) must be non-empty and
// unique.
func (r *Registry) Register(u Unit) error {
	id := u.Identity()
	if id == "" {
		return ErrEmptyUnitName
	}

	if _, exists := r.units[id]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateUnit, id)
	}

	r.units[id] = u
	r.order = append(r.order, id)

	return nil
}

// Get returns the unit registered under the given identity.
func (r *Registry) Get(identity string) (Unit, bool) {
	u, ok := r.units[identity]
	return u, ok
}

// Units returns every registered unit in registration order.
func (r *Registry) Units() []Unit {
	out := make([]Unit, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.units[id])
	}

	return out
}

// Names returns every registered identity in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)

	return out
}

// Len returns the number of registered units.
func (r *Registry) Len() int {
	return len(r.order)
}
