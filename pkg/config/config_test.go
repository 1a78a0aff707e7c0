package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type sample struct {
	Name     string        `yaml:"name"`
	Port     int           `yaml:"port"`
	Throttle time.Duration `yaml:"throttle"`
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_ExpandsEnvAndKeepsDefaults(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "atrium")
	p := writeConfig(t, "name: ${SAMPLE_NAME}\nthrottle: 3s\n")

	cfg := &sample{Port: 8080}
	if err := Load(p, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "atrium" || cfg.Port != 8080 || cfg.Throttle != 3*time.Second {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_RunsValidator(t *testing.T) {
	p := writeConfig(t, "port: 0\n")
	err := Load(p, &sample{Port: 1})
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Errorf("err = %v", err)
	}
}

func TestLoadOptional_MissingFileUsesDefaults(t *testing.T) {
	cfg := &sample{Port: 9000}
	if err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"), cfg); err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if cfg.Port != 9000 {
		t.Errorf("port = %d", cfg.Port)
	}
	if err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"), &sample{}); err == nil {
		t.Error("invalid defaults should still fail validation")
	}
}
