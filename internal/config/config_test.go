package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Port != 8080 {
		t.Errorf("expected port 8080, got %d", c.Port)
	}
	if c.SyncLatency != 1200*time.Millisecond {
		t.Errorf("expected 1.2s sync latency, got %s", c.SyncLatency)
	}
	if c.TokenFile != ".intentlayer-token" {
		t.Errorf("unexpected token file %q", c.TokenFile)
	}
	if loc, _ := c.Location(); loc != time.Local {
		t.Errorf("expected local timezone, got %v", loc)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	body := "port: 9090\nsync_latency: 250ms\ntimezone: UTC\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Port != 9090 || c.SyncLatency != 250*time.Millisecond || c.LogLevel != "debug" {
		t.Errorf("unexpected config %+v", c)
	}
	if loc, _ := c.Location(); loc.String() != "UTC" {
		t.Errorf("expected UTC, got %v", loc)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	if err := os.WriteFile(filepath.Join(dir, DefaultFile), []byte("port: 9090\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("IL_PORT", "7070")

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Port != 7070 {
		t.Errorf("expected env port 7070, got %d", c.Port)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad port":     "port: 70000\n",
		"bad timezone": "timezone: Mars/Olympus\n",
		"bad yaml":     "port: [\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "c.yaml")
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}
