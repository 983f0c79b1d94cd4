// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlManifest = `
name: nightly
description: Nightly maintenance batch
lock_dir: /var/lock/lockstep
stale_after: 45m
heartbeat: 20s
setup:
  - name: pull
    command_line: git pull
scripts:
  - name: extract
    description: Pull the upstream data
    command_line: ./extract.sh
    env:
      REGION: eu-west-1
    success_exit_codes: [0, 3]
  - name: transform
    command_line: ./transform.sh
    working_directory: /srv/jobs
    ignored: true
`

const hclManifest = `
name        = "nightly"
description = "Nightly maintenance batch"
lock_dir    = "/var/lock/lockstep"
stale_after = "45m"
heartbeat   = "20s"

setup "pull" {
  command_line = "git pull"
}

script "extract" {
  description        = "Pull the upstream data"
  command_line       = "./extract.sh"
  env                = { REGION = "eu-west-1" }
  success_exit_codes = [0, 3]
}

script "transform" {
  command_line      = "./transform.sh"
  working_directory = "/srv/jobs"
  ignored           = true
}
`

func assertNightlyManifest(t *testing.T, m *Manifest) {
	t.Helper()

	assert.Equal(t, "nightly", m.Name)
	assert.Equal(t, "Nightly maintenance batch", m.Description)
	assert.Equal(t, "/var/lock/lockstep", m.LockDir)
	assert.Equal(t, "45m", m.StaleAfter)
	assert.Equal(t, "20s", m.Heartbeat)

	require.Len(t, m.Setup, 1)
	assert.Equal(t, "pull", m.Setup[0].Name)
	assert.Equal(t, "git pull", m.Setup[0].CommandLine)

	require.Len(t, m.Scripts, 2)

	extract := m.Scripts[0]
	assert.Equal(t, "extract", extract.Name)
	assert.Equal(t, "Pull the upstream data", extract.Description)
	assert.Equal(t, "./extract.sh", extract.CommandLine)
	assert.Equal(t, map[string]string{"REGION": "eu-west-1"}, extract.Env)
	assert.Equal(t, []int{0, 3}, extract.SuccessExitCodes)
	assert.False(t, extract.Ignored)

	transform := m.Scripts[1]
	assert.Equal(t, "transform", transform.Name)
	assert.Equal(t, "./transform.sh", transform.CommandLine)
	assert.Equal(t, "/srv/jobs", transform.WorkingDirectory)
	assert.True(t, transform.Ignored)
}

func TestParseManifest_YAML(t *testing.T) {
	m, err := ParseManifest("lockstep.yaml", []byte(yamlManifest))
	require.NoError(t, err)
	assertNightlyManifest(t, m)
}

func TestParseManifest_HCL(t *testing.T) {
	m, err := ParseManifest("lockstep.hcl", []byte(hclManifest))
	require.NoError(t, err)
	assertNightlyManifest(t, m)
}

func TestParseManifest_Errors(t *testing.T) {
	testCases := []struct {
		name      string
		filename  string
		src       string
		errorType error
	}{
		{
			name:      "malformed yaml",
			filename:  "lockstep.yaml",
			src:       "scripts: [",
			errorType: ErrInvalidYaml,
		},
		{
			name:      "malformed hcl",
			filename:  "lockstep.hcl",
			src:       "script {{{",
			errorType: ErrInvalidHCL,
		},
		{
			name:      "missing name",
			filename:  "lockstep.yaml",
			src:       "scripts:\n  - name: a\n    command_line: ./a.sh\n",
			errorType: ErrNoName,
		},
		{
			name:      "no scripts",
			filename:  "lockstep.yaml",
			src:       "name: nightly\n",
			errorType: ErrNoScripts,
		},
		{
			name:      "script without name",
			filename:  "lockstep.yaml",
			src:       "name: nightly\nscripts:\n  - command_line: ./a.sh\n",
			errorType: ErrScriptName,
		},
		{
			name:      "script without command line",
			filename:  "lockstep.yaml",
			src:       "name: nightly\nscripts:\n  - name: a\n",
			errorType: ErrScriptCommand,
		},
		{
			name:     "duplicate script names",
			filename: "lockstep.yaml",
			src: "name: nightly\nscripts:\n" +
				"  - name: a\n    command_line: ./a.sh\n" +
				"  - name: a\n    command_line: ./b.sh\n",
			errorType: ErrDuplicateScript,
		},
		{
			name:     "setup step without command line",
			filename: "lockstep.yaml",
			src: "name: nightly\nsetup:\n  - name: pull\nscripts:\n" +
				"  - name: a\n    command_line: ./a.sh\n",
			errorType: ErrSetupCommand,
		},
		{
			name:     "bad stale_after duration",
			filename: "lockstep.yaml",
			src: "name: nightly\nstale_after: soon\nscripts:\n" +
				"  - name: a\n    command_line: ./a.sh\n",
			errorType: ErrInvalidDuration,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseManifest(tc.filename, []byte(tc.src))
			assert.ErrorIs(t, err, tc.errorType)
		})
	}
}

func TestLoadManifest(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/batch/lockstep.yaml", []byte(yamlManifest), 0o644))

	m, err := LoadManifest(fsys, "/batch/lockstep.yaml")
	require.NoError(t, err)
	assertNightlyManifest(t, m)
}

func TestLoadManifest_MissingFile(t *testing.T) {
	_, err := LoadManifest(afero.NewMemMapFs(), "/nowhere/lockstep.yaml")
	assert.ErrorIs(t, err, ErrManifestRead)
}

func TestManifest_Apply(t *testing.T) {
	base := Default()

	t.Run("overrides lock settings", func(t *testing.T) {
		m := &Manifest{
			LockDir:    "/var/lock/lockstep",
			StaleAfter: "45m",
			Heartbeat:  "20s",
		}

		cfg, err := m.Apply(base)
		require.NoError(t, err)
		assert.Equal(t, "/var/lock/lockstep", cfg.LockDir)
		assert.Equal(t, 45*time.Minute, cfg.StaleAfter)
		assert.Equal(t, 20*time.Second, cfg.Heartbeat)
	})

	t.Run("empty manifest keeps base", func(t *testing.T) {
		cfg, err := (&Manifest{}).Apply(base)
		require.NoError(t, err)
		assert.Equal(t, base, cfg)
	})

	t.Run("bad duration", func(t *testing.T) {
		_, err := (&Manifest{Heartbeat: "sometimes"}).Apply(base)
		assert.ErrorIs(t, err, ErrInvalidDuration)
	})
}
