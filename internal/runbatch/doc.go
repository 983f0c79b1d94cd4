// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package runbatch executes a resolved plan of units one at a time.
// Each unit acquires its lease before running and releases it before the
// next unit starts, so a failure or held lock affects only that unit.
// The runner returns an outcome per attempted unit and emits progress
// events as units move through their lifecycle.
package runbatch
