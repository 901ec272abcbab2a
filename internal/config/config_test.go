package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/cashfolio")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.Addr() != "0.0.0.0:8080" {
		t.Errorf("Addr() = %q, want 0.0.0.0:8080", cfg.Server.Addr())
	}
	if cfg.Database.MaxConns != 20 {
		t.Errorf("Database.MaxConns = %d, want 20", cfg.Database.MaxConns)
	}
	if cfg.Worker.Count != 2 {
		t.Errorf("Worker.Count = %d, want 2", cfg.Worker.Count)
	}
	if cfg.Worker.JobTimeout != 5*time.Minute {
		t.Errorf("Worker.JobTimeout = %s, want 5m", cfg.Worker.JobTimeout)
	}
	if cfg.Import.MaxCSVBytes != 10485760 {
		t.Errorf("Import.MaxCSVBytes = %d, want 10485760", cfg.Import.MaxCSVBytes)
	}
	if cfg.Import.PreviewRows != 500 {
		t.Errorf("Import.PreviewRows = %d, want 500", cfg.Import.PreviewRows)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v, want info/text", cfg.Logging)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/cashfolio")
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("WORKER_COUNT", "8")
	t.Setenv("WORKER_JOB_TIMEOUT", "30s")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Worker.Count != 8 {
		t.Errorf("Worker.Count = %d, want 8", cfg.Worker.Count)
	}
	if cfg.Worker.JobTimeout != 30*time.Second {
		t.Errorf("Worker.JobTimeout = %s, want 30s", cfg.Worker.JobTimeout)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want json", cfg.Logging.Format)
	}
}

func TestLoadDatabaseURLAlias(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_URL", "postgres://localhost:5432/alias")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Database.URL != "postgres://localhost:5432/alias" {
		t.Errorf("Database.URL = %q, want the DB_URL value", cfg.Database.URL)
	}
}

func TestLoadRequiredMissing(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load() succeeded without DATABASE_URL")
	}
}

func TestLoadInvalidValue(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/cashfolio")
	t.Setenv("SERVER_PORT", "not-a-number")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "SERVER_PORT") {
		t.Errorf("Load() error = %v, want mention of SERVER_PORT", err)
	}
}

func TestValidateCollectsEveryFailure(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/cashfolio")
	t.Setenv("SERVER_PORT", "0")
	t.Setenv("WORKER_COUNT", "-1")
	t.Setenv("LOG_LEVEL", "loud")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() succeeded with invalid settings")
	}
	for _, want := range []string{"SERVER_PORT", "WORKER_COUNT", "LOG_LEVEL"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}
