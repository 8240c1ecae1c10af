package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.App.Name != "recall" {
		t.Errorf("expected app name 'recall', got %s", cfg.App.Name)
	}
	if cfg.App.Environment != "development" {
		t.Errorf("expected environment 'development', got %s", cfg.App.Environment)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected server port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("expected log format 'json', got %s", cfg.Log.Format)
	}
	if cfg.Memory.Dimension != 384 {
		t.Errorf("expected dimension 384, got %d", cfg.Memory.Dimension)
	}
	if cfg.Memory.RRFK != 60 {
		t.Errorf("expected rrf_k 60, got %v", cfg.Memory.RRFK)
	}
	if cfg.Memory.BM25K1 != 1.5 || cfg.Memory.BM25B != 0.75 {
		t.Errorf("unexpected bm25 params: k1=%v b=%v", cfg.Memory.BM25K1, cfg.Memory.BM25B)
	}
	if cfg.Checkpoint.MaxCheckpoints != 10 {
		t.Errorf("expected max_checkpoints 10, got %d", cfg.Checkpoint.MaxCheckpoints)
	}
	if cfg.Session.CheckpointInterval != 25 {
		t.Errorf("expected checkpoint_interval 25, got %d", cfg.Session.CheckpointInterval)
	}
	if cfg.Embedding.Provider != "hash" {
		t.Errorf("expected embedding provider 'hash', got %s", cfg.Embedding.Provider)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{
			name:    "valid defaults",
			cfg:     DefaultConfig(),
			wantErr: false,
		},
		{
			name: "missing app name",
			cfg: func() *Config {
				cfg := DefaultConfig()
				cfg.App.Name = ""
				return cfg
			}(),
			wantErr: true,
		},
		{
			name: "invalid port",
			cfg: func() *Config {
				cfg := DefaultConfig()
				cfg.Server.Port = 99999
				return cfg
			}(),
			wantErr: true,
		},
		{
			name: "invalid log level",
			cfg: func() *Config {
				cfg := DefaultConfig()
				cfg.Log.Level = "trace"
				return cfg
			}(),
			wantErr: true,
		},
		{
			name: "invalid environment",
			cfg: func() *Config {
				cfg := DefaultConfig()
				cfg.App.Environment = "invalid"
				return cfg
			}(),
			wantErr: true,
		},
		{
			name: "zero rrf constant",
			cfg: func() *Config {
				cfg := DefaultConfig()
				cfg.Memory.RRFK = 0
				return cfg
			}(),
			wantErr: true,
		},
		{
			name: "negative fusion weight",
			cfg: func() *Config {
				cfg := DefaultConfig()
				cfg.Memory.Weights.Vector = -1
				return cfg
			}(),
			wantErr: true,
		},
		{
			name: "bm25 b out of range",
			cfg: func() *Config {
				cfg := DefaultConfig()
				cfg.Memory.BM25B = 1.5
				return cfg
			}(),
			wantErr: true,
		},
		{
			name: "unknown embedding provider",
			cfg: func() *Config {
				cfg := DefaultConfig()
				cfg.Embedding.Provider = "quantum"
				return cfg
			}(),
			wantErr: true,
		},
		{
			name: "sample rate above one",
			cfg: func() *Config {
				cfg := DefaultConfig()
				cfg.Tracing.SampleRate = 2
				return cfg
			}(),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWithDetails(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateWithDetails() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoaderDefaultsOnly(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.App.Name != "recall" {
		t.Errorf("expected defaults, got app name %s", cfg.App.Name)
	}
	if cfg.Server.HTTP.ReadTimeout != 30*time.Second {
		t.Errorf("expected read timeout 30s, got %v", cfg.Server.HTTP.ReadTimeout)
	}
}

func TestLoaderFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: 9000
memory:
  dimension: 768
log:
  level: debug
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("file override lost: port = %d", cfg.Server.Port)
	}
	if cfg.Memory.Dimension != 768 {
		t.Errorf("file override lost: dimension = %d", cfg.Memory.Dimension)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("file override lost: level = %s", cfg.Log.Level)
	}
	// Untouched keys keep their defaults.
	if cfg.Memory.RRFK != 60 {
		t.Errorf("default lost after partial file: rrf_k = %v", cfg.Memory.RRFK)
	}
}

func TestLoaderEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("RECALL_SERVER_PORT", "9100")

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("env override lost: port = %d", cfg.Server.Port)
	}
}

func TestLoaderExplicitOverridesWin(t *testing.T) {
	t.Setenv("RECALL_SERVER_PORT", "9100")

	cfg, err := Load("", map[string]interface{}{"server.port": 9200})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9200 {
		t.Errorf("explicit override lost: port = %d", cfg.Server.Port)
	}
}

func TestLoaderRejectsInvalidFile(t *testing.T) {
	if _, err := Load("nope.toml", nil); err == nil {
		t.Error("expected error for unsupported format")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Error("expected error for missing file")
	}
}
