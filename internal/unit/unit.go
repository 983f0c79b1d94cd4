// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package unit defines the schedulable unit of work, the registry that
// holds the known units, and the resolver that turns operator input into an
// ordered execution plan.
package unit

import (
	"context"
	"slices"
	"strings"
)

const (
	// TagIgnored marks a unit that is registered but should not run.
	// The batch runner skips tagged units and reports them as such.
	TagIgnored = "ignored"
	// TagCustom marks a unit that was selected explicitly by the operator.
	TagCustom = "custom"
)

// Action is the invocable work of a unit. Implementations must honour
// context cancellation: the batch runner will not start the next unit until
// the action returns.
type Action func(ctx context.Context) error

// Unit is a single schedulable entry: a stable identity, the action it runs
// and optional metadata tags.
type Unit struct {
	// Name is the canonical name; its trimmed form is the identity used
	// for lock files and report entries.
	Name string
	// Description is free text shown in listings.
	Description string
	// Action performs the work.
	Action Action
	// Tags carries metadata such as TagIgnored or TagCustom.
	Tags []string
}

// Identity returns the stable string key the unit is locked and reported
// under.
func (u Unit) Identity() string {
	return strings.TrimSpace(u.Name)
}

// HasTag reports whether the unit carries the given tag.
func (u Unit) HasTag(tag string) bool {
	return slices.Contains(u.Tags, tag)
}

// WithTag returns a copy of the unit carrying the given tag. The receiver is
// not modified.
func (u Unit) WithTag(tag string) Unit {
	if u.HasTag(tag) {
		return u
	}

	tags := make([]string, 0, len(u.Tags)+1)
	tags = append(tags, u.Tags...)
	tags = append(tags, tag)
	u.Tags = tags

	return u
}
