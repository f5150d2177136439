package cliapp

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigDirUsesXDGWhenSet(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	if got, want := configDir(), filepath.Join("/xdg/config", "swww"); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestConfigDirFallsBackToHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/tester")
	if got, want := configDir(), filepath.Join("/home/tester", ".config", "swww"); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestInstallDefaultConfigWritesOnce(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	if err := InstallDefaultConfig("format = \"\"\n"); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "swww", "swww-daemon.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "format = \"\"\n" {
		t.Fatalf("got %q", data)
	}

	// A second install must not clobber a file the user may have edited.
	if err := os.WriteFile(path, []byte("edited\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := InstallDefaultConfig("format = \"\"\n"); err != nil {
		t.Fatal(err)
	}
	data, err = os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "edited\n" {
		t.Fatalf("install overwrote an existing config: %q", data)
	}
}
