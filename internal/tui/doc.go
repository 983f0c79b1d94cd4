// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package tui renders live batch progress with bubbletea: one row per unit,
// a spinner while a unit is locking or running, and a summary once the
// batch completes.
package tui
