package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dkovalov/filter-graph/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Backend != config.BackendCPU {
		t.Fatalf("default backend = %q, want cpu", cfg.Backend)
	}
	if cfg.QueueSize != 64 || cfg.DefaultScale != 1 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unknown backend", func(c *config.Config) { c.Backend = "cuda" }},
		{"negative scale", func(c *config.Config) { c.DefaultScale = -1 }},
		{"negative queue", func(c *config.Config) { c.QueueSize = -1 }},
		{"unknown log level", func(c *config.Config) { c.LogLevel = "verbose" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := config.Validate(cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	doc := []byte(`
backend: cpu
worker_count: 3
queue_size: 8
job_timeout: 10s
default_scale: 0.5
log_level: debug
vips:
  max_cache_size: 128
  report_leaks: true
`)
	if err := os.WriteFile(path, doc, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.WorkerCount != 3 || cfg.QueueSize != 8 {
		t.Fatalf("pool config = %d/%d", cfg.WorkerCount, cfg.QueueSize)
	}
	if cfg.JobTimeout != 10*time.Second {
		t.Fatalf("JobTimeout = %v", cfg.JobTimeout)
	}
	if cfg.DefaultScale != 0.5 || cfg.LogLevel != "debug" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Vips.MaxCacheSize != 128 || !cfg.Vips.ReportLeaks {
		t.Fatalf("vips config = %+v", cfg.Vips)
	}
}

func TestLoadFile_LayersOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	if err := os.WriteFile(path, []byte("worker_count: 2\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.QueueSize != 64 || cfg.Backend != config.BackendCPU {
		t.Fatalf("defaults not preserved: %+v", cfg)
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("backend: cuda\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := config.LoadFile(path); err == nil {
		t.Fatal("invalid file must not load")
	}
	if _, err := config.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("missing file must error")
	}
}
