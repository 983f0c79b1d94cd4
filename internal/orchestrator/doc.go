// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package orchestrator sequences one full run: configuration validation,
// the environment refresh, plan resolution, optional lock clearing, batch
// execution and report assembly.
package orchestrator
