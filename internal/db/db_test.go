package db

import (
	"strings"
	"testing"

	"github.com/zulandar/carecal/internal/config"
	"github.com/zulandar/carecal/internal/models"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.DatabaseConfig
		want string
	}{
		{
			name: "explicit dsn wins",
			cfg:  config.DatabaseConfig{Driver: config.DriverMySQL, DSN: "u:p@tcp(h:1)/d", Host: "ignored"},
			want: "u:p@tcp(h:1)/d",
		},
		{
			name: "sqlite file",
			cfg:  config.DatabaseConfig{Driver: config.DriverSQLite, DSN: "carecal.db"},
			want: "carecal.db",
		},
		{
			name: "mysql from parts",
			cfg: config.DatabaseConfig{
				Driver: config.DriverMySQL, Host: "10.0.0.5", Port: 3307,
				Name: "carecal", User: "care", Password: "pw",
			},
			want: "care:pw@tcp(10.0.0.5:3307)/carecal?parseTime=true",
		},
		{
			name: "postgres from parts",
			cfg: config.DatabaseConfig{
				Driver: config.DriverPostgres, Host: "db", Port: 5432,
				Name: "carecal", User: "care",
			},
			want: "host=db port=5432 dbname=carecal sslmode=disable TimeZone=UTC user=care",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DSN(tt.cfg); got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDialector_UnsupportedDriver(t *testing.T) {
	_, err := Dialector(config.DatabaseConfig{Driver: "oracle"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "unsupported driver") {
		t.Errorf("error = %v", err)
	}
}

func TestDialector_Names(t *testing.T) {
	tests := []struct {
		driver string
		want   string
	}{
		{config.DriverSQLite, "sqlite"},
		{config.DriverMySQL, "mysql"},
		{config.DriverPostgres, "postgres"},
	}
	for _, tt := range tests {
		d, err := Dialector(config.DatabaseConfig{Driver: tt.driver, DSN: "x"})
		if err != nil {
			t.Fatalf("%s: %v", tt.driver, err)
		}
		if d.Name() != tt.want {
			t.Errorf("Dialector(%s).Name() = %q, want %q", tt.driver, d.Name(), tt.want)
		}
	}
}

func TestAllModels_Count(t *testing.T) {
	if got := len(AllModels()); got != 7 {
		t.Errorf("AllModels() returned %d models, want 7", got)
	}
}

func TestConnectAndMigrate_SQLite(t *testing.T) {
	gormDB, err := Connect(config.DatabaseConfig{Driver: config.DriverSQLite, DSN: ":memory:"})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := AutoMigrate(gormDB); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	for _, m := range AllModels() {
		if !gormDB.Migrator().HasTable(m) {
			t.Errorf("table for %T missing after migrate", m)
		}
	}

	if err := gormDB.Create(&models.Shift{ID: "s1", TeamID: "t1", CaregiverID: "u1"}).Error; err != nil {
		t.Fatalf("seed shift: %v", err)
	}
	if err := Reset(gormDB); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	var count int64
	gormDB.Model(&models.Shift{}).Count(&count)
	if count != 0 {
		t.Errorf("shifts after reset = %d, want 0", count)
	}
}
