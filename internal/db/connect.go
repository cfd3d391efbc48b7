// Package db opens the carecal database and manages its schema.
package db

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/zulandar/carecal/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DSN returns the connection string for cfg. An explicit DSN wins; otherwise
// one is assembled from the host, port, name and credentials.
func DSN(cfg config.DatabaseConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	switch cfg.Driver {
	case config.DriverMySQL:
		mc := gomysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
		mc.DBName = cfg.Name
		mc.ParseTime = true
		return mc.FormatDSN()
	case config.DriverPostgres:
		parts := []string{
			"host=" + cfg.Host,
			"port=" + strconv.Itoa(cfg.Port),
			"dbname=" + cfg.Name,
			"sslmode=disable",
			"TimeZone=UTC",
		}
		if cfg.User != "" {
			parts = append(parts, "user="+cfg.User)
		}
		if cfg.Password != "" {
			parts = append(parts, "password="+cfg.Password)
		}
		return strings.Join(parts, " ")
	}
	return ""
}

// Dialector picks the gorm dialector for the configured driver.
func Dialector(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	dsn := DSN(cfg)
	switch cfg.Driver {
	case config.DriverSQLite, "":
		return sqlite.Open(dsn), nil
	case config.DriverMySQL:
		return mysql.Open(dsn), nil
	case config.DriverPostgres:
		return postgres.Open(dsn), nil
	}
	return nil, fmt.Errorf("db: unsupported driver %q", cfg.Driver)
}

// Connect opens a GORM connection for cfg.
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("db: connect %s: %w", cfg.Driver, err)
	}
	if cfg.Driver == config.DriverSQLite || cfg.Driver == "" {
		// sqlite serializes writers; one connection keeps row locks meaningful.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("db: connect sqlite: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}
