// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package report assembles per-unit outcomes into a batch report and
// renders it as text, JSON or a binary file for later inspection.
// The process exit status is derived from the report: a batch fails only
// when at least one unit failed, never because units were skipped.
package report
