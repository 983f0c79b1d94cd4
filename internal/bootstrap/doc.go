// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package bootstrap runs the ordered environment setup steps declared in
// the manifest, such as pulling the latest scripts or installing
// dependencies. Quick mode skips the refresh entirely; when it does run,
// step failures are aggregated and reported but never stop the batch.
package bootstrap
