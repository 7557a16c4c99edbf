package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Count int    `yaml:"count"`
}

func (s *sample) Validate() error {
	if s.Count < 0 {
		return errors.New("count must not be negative")
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

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "quire")
	path := writeFile(t, "name: ${SAMPLE_NAME}\ncount: 3\n")

	var s sample
	if err := Load(path, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "quire" || s.Count != 3 {
		t.Errorf("got %+v", s)
	}
}

func TestLoadValidates(t *testing.T) {
	path := writeFile(t, "count: -1\n")
	var s sample
	err := Load(path, &s)
	if err == nil || !strings.Contains(err.Error(), "config validation failed") {
		t.Errorf("err = %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	var s sample
	if err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &s); err == nil {
		t.Error("missing file should fail")
	}
	if err := Load(writeFile(t, "name: [unclosed\n"), &s); err == nil {
		t.Error("bad yaml should fail")
	}
}

func TestLoadOptional(t *testing.T) {
	s := sample{Name: "default"}
	found, err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &s)
	if err != nil || found {
		t.Fatalf("missing file: found=%v err=%v", found, err)
	}
	if s.Name != "default" {
		t.Errorf("defaults changed: %+v", s)
	}

	bad := sample{Count: -5}
	if _, err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &bad); err == nil {
		t.Error("defaults must still be validated")
	}

	found, err = LoadOptional(writeFile(t, "count: 7\n"), &s)
	if err != nil || !found {
		t.Fatalf("existing file: found=%v err=%v", found, err)
	}
	if s.Name != "default" || s.Count != 7 {
		t.Errorf("got %+v", s)
	}
}
