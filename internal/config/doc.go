// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package config holds the immutable run configuration assembled from CLI
// flags and the manifest file that declares the batch: its scripts, setup
// steps and lock settings. Manifests are written in YAML or HCL and decode
// into the same model.
package config
