package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const fullYAML = `
database:
  driver: postgres
  host: db.internal
  port: 5433
  name: carecal_prod
  user: care
  password: s3cret

materialize:
  horizon: 72h
  shift_lookahead: 12h
  catchup_cron: "*/15 * * * *"

api:
  port: 9090
  jwt_secret: signing-key

log:
  level: debug
`

func TestParse_FullConfig(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Database.Driver != DriverPostgres {
		t.Errorf("Driver = %q, want postgres", cfg.Database.Driver)
	}
	if cfg.Database.Host != "db.internal" || cfg.Database.Port != 5433 {
		t.Errorf("Host:Port = %s:%d, want db.internal:5433", cfg.Database.Host, cfg.Database.Port)
	}
	if cfg.Database.Name != "carecal_prod" || cfg.Database.User != "care" || cfg.Database.Password != "s3cret" {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if cfg.Materialize.Horizon != 72*time.Hour {
		t.Errorf("Horizon = %s, want 72h", cfg.Materialize.Horizon)
	}
	if cfg.Materialize.ShiftLookahead != 12*time.Hour {
		t.Errorf("ShiftLookahead = %s, want 12h", cfg.Materialize.ShiftLookahead)
	}
	if cfg.Materialize.CatchUpCron != "*/15 * * * *" {
		t.Errorf("CatchUpCron = %q", cfg.Materialize.CatchUpCron)
	}
	if cfg.API.Port != 9090 || cfg.API.JWTSecret != "signing-key" {
		t.Errorf("API = %+v", cfg.API)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Driver != DriverSQLite {
		t.Errorf("Driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.Database.DSN != "carecal.db" {
		t.Errorf("DSN = %q, want carecal.db", cfg.Database.DSN)
	}
	if cfg.Materialize.Horizon != 168*time.Hour {
		t.Errorf("Horizon = %s, want 168h", cfg.Materialize.Horizon)
	}
	if cfg.Materialize.ShiftLookahead != 24*time.Hour {
		t.Errorf("ShiftLookahead = %s, want 24h", cfg.Materialize.ShiftLookahead)
	}
	if cfg.Materialize.CatchUpCron != "0 * * * *" {
		t.Errorf("CatchUpCron = %q", cfg.Materialize.CatchUpCron)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("API.Port = %d, want 8080", cfg.API.Port)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
}

func TestParse_DriverPortDefaults(t *testing.T) {
	tests := []struct {
		driver string
		port   int
	}{
		{DriverMySQL, 3306},
		{DriverPostgres, 5432},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			cfg, err := Parse([]byte("database:\n  driver: " + tt.driver + "\n"))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.Database.Port != tt.port {
				t.Errorf("Port = %d, want %d", cfg.Database.Port, tt.port)
			}
			if cfg.Database.Host != "127.0.0.1" || cfg.Database.Name != "carecal" {
				t.Errorf("Database = %+v", cfg.Database)
			}
			if cfg.Database.DSN != "" {
				t.Errorf("DSN = %q, want empty for %s", cfg.Database.DSN, tt.driver)
			}
		})
	}
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv(EnvDatabaseDSN, "file:override.db")
	t.Setenv(EnvJWTSecret, "from-env")

	cfg, err := Parse([]byte("api:\n  jwt_secret: from-file\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.DSN != "file:override.db" {
		t.Errorf("DSN = %q, want env override", cfg.Database.DSN)
	}
	if cfg.API.JWTSecret != "from-env" {
		t.Errorf("JWTSecret = %q, want env override", cfg.API.JWTSecret)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"bad driver", "database:\n  driver: oracle\n", "database.driver"},
		{"bad cron", "materialize:\n  catchup_cron: \"every hour\"\n", "materialize.catchup_cron"},
		{"negative horizon", "materialize:\n  horizon: -1h\n", "materialize.horizon"},
		{"bad port", "api:\n  port: 70000\n", "api.port"},
		{"bad level", "log:\n  level: loud\n", "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestParse_MultipleErrorsJoined(t *testing.T) {
	_, err := Parse([]byte("database:\n  driver: oracle\nlog:\n  level: loud\n"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "database.driver") || !strings.Contains(err.Error(), "log.level") {
		t.Errorf("error should list every problem: %v", err)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("database: [unclosed"))
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "config: parse") {
		t.Errorf("error should mention parse: %v", err)
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "carecal.yaml")
	if err := os.WriteFile(path, []byte(fullYAML), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Name != "carecal_prod" {
		t.Errorf("Name = %q, want carecal_prod", cfg.Database.Name)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/carecal.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "config: read") {
		t.Errorf("error should mention read: %v", err)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := LoadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("missing .env should be ignored: %v", err)
	}

	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("CARECAL_TEST_DOTENV=loaded\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CARECAL_TEST_DOTENV", "")
	os.Unsetenv("CARECAL_TEST_DOTENV")
	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("CARECAL_TEST_DOTENV"); got != "loaded" {
		t.Errorf("CARECAL_TEST_DOTENV = %q, want loaded", got)
	}
}

func TestRequireJWTSecret(t *testing.T) {
	cfg := &Config{}
	if err := cfg.RequireJWTSecret(); err == nil {
		t.Error("expected error without secret")
	}
	cfg.API.JWTSecret = "x"
	if err := cfg.RequireJWTSecret(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
