// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package scriptexec turns manifest script definitions into runnable unit
// actions. Scripts run via the platform shell with the process environment
// plus any per-script variables, and their output is captured up to a
// fixed cap so a chatty script cannot exhaust memory.
package scriptexec
