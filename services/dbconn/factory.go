// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dbconn owns every SQL Server connection the service opens.
// Two acquisition modes exist: named pools created at startup from
// configuration ("cls" and "io"), and ad-hoc single-use connections
// synthesized from a hostname for the error fan-out and the test tools.
package dbconn

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/microsoft/go-mssqldb"
)

// Logical pool names. The CLS pool is the primary datasource, the IO
// pool the secondary.
const (
	PoolCLS = "cls"
	PoolIO  = "io"
)

const (
	driverName         = "sqlserver"
	maxOpenConns       = 10
	minIdleConns       = 1
	idleTimeout        = 10 * time.Minute
	maxLifetime        = 30 * time.Minute
	validationTimeout  = 5 * time.Second
	validationQuery    = "SELECT 1"
	startupPingTimeout = 60 * time.Second
)

// PoolConfig describes one named datasource. URL is a full DSN; User and
// Password are ignored when the URL requests integrated authentication.
type PoolConfig struct {
	URL      string `env:"URL"`
	User     string `env:"USER"`
	Password string `env:"PASSWORD"`
}

// Config carries both named datasources.
type Config struct {
	CLS PoolConfig `envPrefix:"WMSOPS_DB_CLS_"`
	IO  PoolConfig `envPrefix:"WMSOPS_DB_IO_"`
}

// DefaultConfig returns the datasources used in the test environment.
func DefaultConfig() Config {
	return Config{
		CLS: PoolConfig{
			URL: "server=WMSSQL-CLS;database=DMSServer;encrypt=true;trustServerCertificate=true;integratedSecurity=true",
		},
		IO: PoolConfig{
			URL: "server=WMSSQL-IO-TEST;database=AAD_IMPORT_ORDER;encrypt=true;trustServerCertificate=true;integratedSecurity=true",
		},
	}
}

// ConnectionInfo is the result of a connectivity probe.
type ConnectionInfo struct {
	Connected      bool   `json:"connected"`
	Message        string `json:"message"`
	ConnectionTime string `json:"connectionTime,omitempty"`
	Driver         string `json:"driverName,omitempty"`
	Error          string `json:"errorMessage,omitempty"`
}

// Factory hands out database handles. Named pools are created once and
// shared by all requests; ad-hoc handles are opened per call and closed
// by the caller.
type Factory struct {
	pools map[string]*sql.DB
}

// NewFactory builds the named pools. Pool creation itself never fails;
// an optimistic test-connect is attempted per pool and logged, but a
// dead backend does not prevent startup.
func NewFactory(cfg Config) *Factory {
	f := &Factory{pools: make(map[string]*sql.DB)}
	f.pools[PoolCLS] = newPool(PoolCLS, cfg.CLS)
	f.pools[PoolIO] = newPool(PoolIO, cfg.IO)
	return f
}

func newPool(name string, cfg PoolConfig) *sql.DB {
	dsn := BuildDSN(cfg)
	// sql.Open does not dial; errors here mean a malformed DSN.
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		slog.Error("Failed to construct datasource, pool will be unusable",
			"pool", name, "error", err)
		db, _ = sql.Open(driverName, "server=invalid")
		return db
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(minIdleConns)
	db.SetConnMaxIdleTime(idleTimeout)
	db.SetConnMaxLifetime(maxLifetime)

	// Optimistic test-connect. Runs off the startup path so a dead
	// backend delays nothing.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), startupPingTimeout)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			slog.Warn("Datasource did not answer the startup test-connect",
				"pool", name, "error", err)
		} else {
			slog.Info("Datasource connected", "pool", name)
		}
	}()
	return db
}

// Pool returns the shared handle for a logical name.
func (f *Factory) Pool(name string) (*sql.DB, error) {
	db, ok := f.pools[name]
	if !ok {
		return nil, fmt.Errorf("unknown datasource %q", name)
	}
	return db, nil
}

// OpenHost opens a fresh single-use handle against host/database using
// integrated authentication. The caller must Close it.
func (f *Factory) OpenHost(host, database string) (*sql.DB, error) {
	dsn := HostDSN(host, database)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("connection unavailable for %s: %w", host, err)
	}
	// Single connection, no idling: these handles live for one query.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(0)
	return db, nil
}

// Test validates a named pool with the validation query and returns
// probe metadata.
func (f *Factory) Test(ctx context.Context, name string) ConnectionInfo {
	db, err := f.Pool(name)
	if err != nil {
		return ConnectionInfo{Connected: false, Message: err.Error()}
	}
	start := time.Now()
	vctx, cancel := context.WithTimeout(ctx, validationTimeout)
	defer cancel()
	var one int
	if err := db.QueryRowContext(vctx, validationQuery).Scan(&one); err != nil {
		slog.Error("Datasource validation failed", "pool", name, "error", err)
		return ConnectionInfo{
			Connected: false,
			Message:   fmt.Sprintf("%s database connection error: %v", strings.ToUpper(name), err),
			Error:     err.Error(),
		}
	}
	return ConnectionInfo{
		Connected:      true,
		Message:        fmt.Sprintf("%s database connection successful", strings.ToUpper(name)),
		ConnectionTime: time.Since(start).String(),
		Driver:         driverName,
	}
}

// Close releases every named pool.
func (f *Factory) Close() {
	for name, db := range f.pools {
		if err := db.Close(); err != nil {
			slog.Warn("Error closing datasource", "pool", name, "error", err)
		}
	}
}

// IsIntegratedAuth reports whether a DSN requests operating-system
// authentication. When true, no credentials may be applied.
func IsIntegratedAuth(url string) bool {
	return strings.Contains(url, "integratedSecurity=true") ||
		strings.Contains(url, "authenticationScheme=JavaKerberos")
}

// BuildDSN appends credentials to a configured URL unless the URL
// requests integrated authentication.
func BuildDSN(cfg PoolConfig) string {
	if IsIntegratedAuth(cfg.URL) {
		return cfg.URL
	}
	dsn := cfg.URL
	if cfg.User != "" {
		dsn += ";user id=" + cfg.User
	}
	if cfg.Password != "" {
		dsn += ";password=" + cfg.Password
	}
	return dsn
}

// HostDSN synthesizes an ad-hoc integrated-auth DSN for a hostname.
func HostDSN(host, database string) string {
	return fmt.Sprintf(
		"server=%s;database=%s;encrypt=true;trustServerCertificate=true;integratedSecurity=true",
		host, database)
}
