package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValues(t *testing.T) {
	cfg := Default()
	if cfg.ImageFormat != "PNG" {
		t.Fatalf("unexpected default image format: %q", cfg.ImageFormat)
	}
	if cfg.OutputDir != "." {
		t.Fatalf("unexpected default output dir: %q", cfg.OutputDir)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error reading an explicit missing path")
	}
	if cfg.ImageFormat != "PNG" {
		t.Fatalf("expected default image format on error, got %q", cfg.ImageFormat)
	}
}

func TestLoadNoCandidateFilesYieldsDefaults(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	tmp := t.TempDir()
	if err := os.Chdir(tmp); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer os.Chdir(wd)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("expected default config, got %+v", cfg)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steganochat.yaml")
	contents := "contacts: /data/contacts.dat\nimageFormat: bmp\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Contacts != "/data/contacts.dat" {
		t.Fatalf("unexpected contacts path: %q", cfg.Contacts)
	}
	if cfg.ImageFormat != "bmp" {
		t.Fatalf("unexpected image format: %q", cfg.ImageFormat)
	}
	if cfg.OutputDir != "." {
		t.Fatalf("expected unset field to keep default, got %q", cfg.OutputDir)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steganochat.yaml")
	if err := os.WriteFile(path, []byte("outputDir: /from/file\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("STEGANOCHAT_OUTPUT_DIR", "/from/env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.OutputDir != "/from/env" {
		t.Fatalf("expected env override to win, got %q", cfg.OutputDir)
	}
}
