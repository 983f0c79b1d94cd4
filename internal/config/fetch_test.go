// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		src     string
		wantErr error
	}{
		{
			name:    "empty source returns error",
			src:     "",
			wantErr: ErrFetchManifest,
		},
		{
			name:    "unreachable getter source fails",
			src:     "git::http://notexist//manifest.yaml",
			wantErr: ErrFetchManifest,
		},
		{
			name: "local file succeeds",
			src:  "./testdata/manifest.yaml",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()

			b, err := Fetch(ctx, tc.src)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, b)

				return
			}

			require.NoError(t, err)

			m, err := ParseManifest(tc.src, b)
			require.NoError(t, err)
			assert.Equal(t, "sample", m.Name)
		})
	}
}

func TestSplitFileNameFromGetterURL(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		url      string
		wantURL  string
		wantFile string
	}{
		{
			name:     "too few parts",
			url:      "git::https://example.com/repo.git",
			wantURL:  "",
			wantFile: "",
		},
		{
			name:     "file in repo subdirectory",
			url:      "git::https://example.com/repo.git//manifests/lockstep.yaml",
			wantURL:  "git::https://example.com/repo.git//manifests",
			wantFile: "lockstep.yaml",
		},
		{
			name:     "file at repo root",
			url:      "git::https://example.com/repo.git//lockstep.yaml",
			wantURL:  "git::https://example.com/repo.git",
			wantFile: "lockstep.yaml",
		},
		{
			name:     "ref query parameter is preserved",
			url:      "git::https://example.com/repo.git//manifests/lockstep.yaml?ref=v1.0.0",
			wantURL:  "git::https://example.com/repo.git//manifests?ref=v1.0.0",
			wantFile: "lockstep.yaml",
		},
		{
			name:     "directory only",
			url:      "git::https://example.com/repo.git//manifests/",
			wantURL:  "",
			wantFile: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gotURL, gotFile := splitFileNameFromGetterURL(tc.url)
			assert.Equal(t, tc.wantURL, gotURL)
			assert.Equal(t, tc.wantFile, gotFile)
		})
	}
}
