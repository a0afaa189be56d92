// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "burrow.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
environment: development
paths:
  root: /srv/burrow
  state: /srv/burrow/state
  datapack: /srv/burrow/datapack
channel:
  mount_path: /mnt/repo
  workers: 6
  max_write: 262144
import:
  workers: 16
  batch_size: 32
  compression: zstd
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Paths.Root != "/srv/burrow" {
		t.Errorf("root = %q", cfg.Paths.Root)
	}
	if cfg.Channel.Workers != 6 || cfg.Channel.MaxWrite != 262144 {
		t.Errorf("channel = %+v", cfg.Channel)
	}
	if cfg.Import.Workers != 16 || cfg.Import.BatchSize != 32 || cfg.Import.Compression != "zstd" {
		t.Errorf("import = %+v", cfg.Import)
	}
}

func TestLoadFileAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "environment: development\n")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Channel.Workers != 4 {
		t.Errorf("default channel workers = %d, want 4", cfg.Channel.Workers)
	}
	if cfg.Import.BatchSize != 1 {
		t.Errorf("default batch size = %d, want 1", cfg.Import.BatchSize)
	}
	if cfg.Import.Compression != "lz4" {
		t.Errorf("default compression = %q", cfg.Import.Compression)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, `
environment: production
channel:
  workers: 2
production:
  channel:
    workers: 12
  import:
    workers: 24
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Channel.Workers != 12 {
		t.Errorf("channel workers = %d, want the production override 12", cfg.Channel.Workers)
	}
	if cfg.Import.Workers != 24 {
		t.Errorf("import workers = %d, want 24", cfg.Import.Workers)
	}
}

func TestOverridesForOtherEnvironmentIgnored(t *testing.T) {
	path := writeConfig(t, `
environment: development
channel:
  workers: 2
production:
  channel:
    workers: 12
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Channel.Workers != 2 {
		t.Errorf("channel workers = %d, want the base value 2", cfg.Channel.Workers)
	}
}

func TestValidateRejectsBadKnobs(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"negative channel workers", "channel:\n  workers: -1\n"},
		{"negative import workers", "import:\n  workers: -1\n"},
		{"negative batch size", "import:\n  batch_size: -1\n"},
		{"bad compression", "import:\n  compression: brotli\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadFile(writeConfig(t, tc.content)); err == nil {
				t.Error("LoadFile accepted an invalid config")
			}
		})
	}
}

func TestVariableExpansion(t *testing.T) {
	path := writeConfig(t, `
paths:
  root: /data/burrow
  state: ${BURROW_ROOT}/state
  datapack: ${BURROW_ROOT}/packs
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Paths.State != "/data/burrow/state" {
		t.Errorf("state = %q", cfg.Paths.State)
	}
	if cfg.Paths.Datapack != "/data/burrow/packs" {
		t.Errorf("datapack = %q", cfg.Paths.Datapack)
	}
}

func TestLoadRequiresEnvVar(t *testing.T) {
	t.Setenv("BURROW_CONFIG", "")
	if _, err := Load(); err == nil {
		t.Error("Load succeeded without BURROW_CONFIG")
	}
}
