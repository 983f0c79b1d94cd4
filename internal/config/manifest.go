// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/spf13/afero"
)

// DefaultManifestName is the manifest file looked for when none is given.
const DefaultManifestName = "lockstep.yaml"

var (
	// ErrManifestRead is returned when the manifest file cannot be read.
	ErrManifestRead = errors.New("failed to read manifest")
	// ErrInvalidYaml is returned when the manifest is not valid YAML.
	ErrInvalidYaml = errors.New("invalid YAML")
	// ErrInvalidHCL is returned when the manifest is not valid HCL.
	ErrInvalidHCL = errors.New("invalid HCL")
	// ErrNoName is returned when the manifest does not declare a name.
	ErrNoName = errors.New("manifest must declare a name")
	// ErrNoScripts is returned when the manifest declares no scripts.
	ErrNoScripts = errors.New("manifest must declare at least one script")
	// ErrScriptName is returned when a script entry has no name.
	ErrScriptName = errors.New("script must have a name")
	// ErrScriptCommand is returned when a script entry has no command line.
	ErrScriptCommand = errors.New("script must have a command_line")
	// ErrDuplicateScript is returned when two scripts share a name.
	ErrDuplicateScript = errors.New("duplicate script name")
	// ErrSetupCommand is returned when a setup step has no command line.
	ErrSetupCommand = errors.New("setup step must have a command_line")
	// ErrInvalidDuration is returned when a manifest duration does not
	// parse with time.ParseDuration.
	ErrInvalidDuration = errors.New("invalid duration")
)

// Manifest is the declarative description of a batch: its scripts, the
// setup steps run before them, and the lock settings. The same model
// decodes from YAML and from HCL.
type Manifest struct {
	Name        string      `yaml:"name"        hcl:"name"`
	Description string      `yaml:"description" hcl:"description,optional"`
	LockDir     string      `yaml:"lock_dir"    hcl:"lock_dir,optional"`
	StaleAfter  string      `yaml:"stale_after" hcl:"stale_after,optional"`
	Heartbeat   string      `yaml:"heartbeat"   hcl:"heartbeat,optional"`
	Setup       []SetupStep `yaml:"setup"       hcl:"setup,block"`
	Scripts     []Script    `yaml:"scripts"     hcl:"script,block"`
}

// SetupStep is one environment preparation command, run before the batch
// unless quick mode is on.
type SetupStep struct {
	Name             string            `yaml:"name"              hcl:"name,label"`
	CommandLine      string            `yaml:"command_line"      hcl:"command_line"`
	WorkingDirectory string            `yaml:"working_directory" hcl:"working_directory,optional"`
	Env              map[string]string `yaml:"env"               hcl:"env,optional"`
}

// Script declares one schedulable unit: the shell command it runs and how
// its exit is judged.
type Script struct {
	Name             string            `yaml:"name"               hcl:"name,label"`
	Description      string            `yaml:"description"        hcl:"description,optional"`
	CommandLine      string            `yaml:"command_line"       hcl:"command_line"`
	WorkingDirectory string            `yaml:"working_directory"  hcl:"working_directory,optional"`
	Env              map[string]string `yaml:"env"                hcl:"env,optional"`
	SuccessExitCodes []int             `yaml:"success_exit_codes" hcl:"success_exit_codes,optional"`
	Ignored          bool              `yaml:"ignored"            hcl:"ignored,optional"`
}

// LoadManifest reads and parses the manifest at path. The file extension
// selects the format: `.hcl` is decoded as HCL, everything else as YAML.
func LoadManifest(fsys afero.Fs, path string) (*Manifest, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrManifestRead, err)
	}

	return ParseManifest(path, data)
}

// ParseManifest parses manifest bytes. The filename picks the format and
// labels HCL diagnostics.
func ParseManifest(filename string, src []byte) (*Manifest, error) {
	var m Manifest

	if strings.EqualFold(filepath.Ext(filename), ".hcl") {
		if err := hclsimple.Decode(filename, src, nil, &m); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidHCL, err)
		}
	} else {
		if err := yaml.Unmarshal(src, &m); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidYaml, err)
		}
	}

	if err := m.validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Apply layers the manifest's lock settings onto base and returns the
// result. Fields the manifest leaves empty keep their base value.
func (m *Manifest) Apply(base Config) (Config, error) {
	if m.LockDir != "" {
		base.LockDir = m.LockDir
	}

	if m.StaleAfter != "" {
		d, err := parseDuration("stale_after", m.StaleAfter)
		if err != nil {
			return base, err
		}

		base.StaleAfter = d
	}

	if m.Heartbeat != "" {
		d, err := parseDuration("heartbeat", m.Heartbeat)
		if err != nil {
			return base, err
		}

		base.Heartbeat = d
	}

	return base, nil
}

func (m *Manifest) validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrNoName
	}

	if len(m.Scripts) == 0 {
		return ErrNoScripts
	}

	if _, err := parseDuration("stale_after", m.StaleAfter); err != nil {
		return err
	}

	if _, err := parseDuration("heartbeat", m.Heartbeat); err != nil {
		return err
	}

	for _, s := range m.Setup {
		if strings.TrimSpace(s.CommandLine) == "" {
			return fmt.Errorf("%w: %q", ErrSetupCommand, s.Name)
		}
	}

	seen := make(map[string]struct{}, len(m.Scripts))

	for _, s := range m.Scripts {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			return ErrScriptName
		}

		if strings.TrimSpace(s.CommandLine) == "" {
			return fmt.Errorf("%w: %q", ErrScriptCommand, name)
		}

		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateScript, name)
		}

		seen[name] = struct{}{}
	}

	return nil
}

// parseDuration parses a manifest duration string. Empty strings are
// accepted and mean "not set".
func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", ErrInvalidDuration, field, value)
	}

	return d, nil
}
