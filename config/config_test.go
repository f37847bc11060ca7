package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("SQUADSNEK_STR", "abc")
	t.Setenv("SQUADSNEK_INT", "42")
	t.Setenv("SQUADSNEK_BAD_INT", "forty")
	t.Setenv("SQUADSNEK_DUR", "250ms")
	t.Setenv("SQUADSNEK_BOOL", "yes")

	if got := String("SQUADSNEK_STR", "x"); got != "abc" {
		t.Fatalf("String = %q", got)
	}
	if got := String("SQUADSNEK_UNSET", "x"); got != "x" {
		t.Fatalf("String default = %q", got)
	}
	if got := Int("SQUADSNEK_INT", 1); got != 42 {
		t.Fatalf("Int = %d", got)
	}
	if got := Int("SQUADSNEK_BAD_INT", 7); got != 7 {
		t.Fatalf("Int should fall back on junk, got %d", got)
	}
	if got := Duration("SQUADSNEK_DUR", time.Second); got != 250*time.Millisecond {
		t.Fatalf("Duration = %s", got)
	}
	if !Bool("SQUADSNEK_BOOL", false) || Bool("SQUADSNEK_UNSET", false) {
		t.Fatalf("Bool parsed wrong")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("SQUADSNEK_FROM_FILE=file\nSQUADSNEK_PRESET=file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SQUADSNEK_PRESET", "env")
	// Registered so the value loaded below is cleaned up.
	t.Setenv("SQUADSNEK_FROM_FILE", "")
	os.Unsetenv("SQUADSNEK_FROM_FILE")

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("SQUADSNEK_FROM_FILE"); got != "file" {
		t.Fatalf("file value = %q", got)
	}
	if got := os.Getenv("SQUADSNEK_PRESET"); got != "env" {
		t.Fatalf("preset value overwritten: %q", got)
	}
}
