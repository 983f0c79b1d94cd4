// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package progress provides real-time progress reporting for batch execution.
// The batch runner emits an event as each unit moves through its lifecycle,
// enabling live TUI updates and outcome aggregation without coupling the
// runner to either consumer.
package progress
