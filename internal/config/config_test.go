package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.Decoder.EnableFieldInfo || !cfg.Decoder.EnableMethodInfo || !cfg.Decoder.EnableAnnotationInfo {
		t.Error("DefaultConfig should enable every optional decoder section")
	}
	if cfg.Output.Format != "yaml" {
		t.Errorf("Output.Format = %q, want yaml", cfg.Output.Format)
	}
	if !cfg.Store.Enabled || cfg.Store.Driver != "sqlite" {
		t.Errorf("Store = %+v, want enabled sqlite", cfg.Store)
	}
	if len(cfg.Filter.AcceptPackages) != 0 {
		t.Error("DefaultConfig should carry no filter seeds")
	}
}

func TestLoadFromPathFindsNearestConfig(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	cfg.Filter.AcceptPackages = []string{"com/example"}
	cfg.Decoder.IgnoreVisibilityFields = true
	if err := Save(root, cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}

	loaded, err := LoadFromPath(sub)
	if err != nil {
		t.Fatalf("load from path: %v", err)
	}
	if len(loaded.Filter.AcceptPackages) != 1 || loaded.Filter.AcceptPackages[0] != "com/example" {
		t.Errorf("AcceptPackages = %v, want [com/example]", loaded.Filter.AcceptPackages)
	}
	if !loaded.Decoder.IgnoreVisibilityFields {
		t.Error("expected IgnoreVisibilityFields to round-trip through yaml")
	}
}

func TestLoadFromPathFallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadFromPath(dir)
	if err != nil {
		t.Fatalf("load from path: %v", err)
	}
	if cfg.Output.Format != "yaml" {
		t.Errorf("expected fallback DefaultConfig, got %+v", cfg)
	}
}

func TestBuildMatcherSplitsGlobsFromLiterals(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Filter.AcceptClasses = []string{"com.example.Foo", "com.example.*Impl"}
	cfg.Filter.AcceptPackages = []string{"com/example"}

	m, err := cfg.BuildMatcher()
	if err != nil {
		t.Fatalf("build matcher: %v", err)
	}
	if !m.Classes.Test("com.example.Foo") {
		t.Error("expected literal class name to be accepted")
	}
	if !m.Classes.Test("com.example.WidgetImpl") {
		t.Error("expected glob class pattern to accept a matching name")
	}
	if m.Classes.Test("com.other.Bar") {
		t.Error("expected an unrelated class name to be rejected once an accept list is non-empty")
	}
}
