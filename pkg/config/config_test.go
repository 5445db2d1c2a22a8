package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
	fail bool
}

func (s *sample) Validate() error {
	if s.fail || s.Port < 0 {
		return errors.New("port must not be negative")
	}
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ExpandsEnvOverDefaults(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "from-env")
	target := sample{Name: "default", Port: 80}
	if err := Load(writeFile(t, "name: ${SAMPLE_NAME}\n"), &target); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if target.Name != "from-env" || target.Port != 80 {
		t.Errorf("target = %+v", target)
	}
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	var target sample
	err := Load(writeFile(t, "nmae: typo\n"), &target)
	if err == nil || !strings.Contains(err.Error(), "nmae") {
		t.Errorf("err = %v, want unknown field error", err)
	}
}

func TestLoad_Validates(t *testing.T) {
	var target sample
	err := Load(writeFile(t, "port: -1\n"), &target)
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Errorf("err = %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	var target sample
	if err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &target); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want ErrNotExist", err)
	}
}

func TestLoadOptional(t *testing.T) {
	target := sample{Port: 1}
	if err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &target); err != nil {
		t.Errorf("missing optional file: %v", err)
	}
	target.fail = true
	if err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &target); err == nil {
		t.Error("defaults should still be validated")
	}
	if err := Decode([]byte(""), &sample{}); err != nil {
		t.Errorf("empty document: %v", err)
	}
}
