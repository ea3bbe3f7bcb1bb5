package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDecodesAxisArray(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "axes.toml")
	body := `
[[axis]]
name = "x"
mres = 0.001
retry_count = 3
retry_mode = "arithmetic"

[[axis]]
name = "y"
dial_high_limit = 10
dial_low_limit = -10
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	defs, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("got %d axes, want 2", len(defs))
	}
	if defs[0].Name != "x" || defs[0].MRES != 0.001 || defs[0].RTRY != 3 || defs[0].RMOD != "arithmetic" {
		t.Errorf("defs[0] = %+v", defs[0])
	}
	if defs[1].Name != "y" || defs[1].DHLM != 10 || defs[1].DLLM != -10 {
		t.Errorf("defs[1] = %+v", defs[1])
	}
}

func TestLoadRejectsUnnamedAxis(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "axes.toml")
	if err := os.WriteFile(path, []byte("[[axis]]\nmres = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an axis entry with no name")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
