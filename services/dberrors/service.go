// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dberrors fans a log-message query out across a fleet of SQL
// Server instances sharing the same schema, then merges and sorts the
// hits. A server that is down or slow costs its own rows, never the
// whole report.
package dberrors

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/roadrats/wmsops/services/fanout"
)

var errTracer = otel.Tracer("wmsops.dberrors")

// Days outside [MinDays, MaxDays] are clamped, not rejected.
const (
	MinDays = 1
	MaxDays = 7
)

// Config names the servers to fan out across. Every server hosts the
// same database and is reached with integrated authentication.
type Config struct {
	Servers  []string `env:"SERVERS" envSeparator:","`
	Database string   `env:"DATABASE" envDefault:"ADV"`
}

// DefaultConfig targets the test fleet.
func DefaultConfig() Config {
	return Config{
		Servers:  []string{"WMSSQL-TEST", "WMSSQL-IO-TEST", "WMSSQL-INTEGRATION-TEST"},
		Database: "ADV",
	}
}

// Entry is one matching row of t_log_message, tagged with the server it
// came from.
type Entry struct {
	ServerName    string     `json:"serverName"`
	LoggedOnLocal *time.Time `json:"loggedOnLocal"`
	MachineID     string     `json:"machineId"`
	UserID        string     `json:"userId"`
	ResourceName  string     `json:"resourceName"`
	Details       string     `json:"details"`
	CallStack     string     `json:"callStack"`
	Arguments     string     `json:"arguments"`
}

// querier is the per-server data access the service fans out over.
type querier interface {
	QueryServer(ctx context.Context, server string, days int) ([]Entry, error)
	TestConnection(ctx context.Context, server string) string
}

// Service queries all configured servers in parallel and aggregates.
type Service struct {
	cfg  Config
	repo querier
}

func NewService(cfg Config, repo querier) *Service {
	return &Service{cfg: cfg, repo: repo}
}

// ClampDays forces the lookback window into the supported range.
func ClampDays(days int) int {
	if days < MinDays {
		return MinDays
	}
	if days > MaxDays {
		return MaxDays
	}
	return days
}

// Servers returns the configured fleet.
func (s *Service) Servers() []string {
	return s.cfg.Servers
}

// QueryAllServers runs the error query against every configured server
// in parallel. Rows are merged newest first; the status map carries one
// entry per server.
func (s *Service) QueryAllServers(ctx context.Context, days int) ([]Entry, map[string]string) {
	clamped := ClampDays(days)
	ctx, span := errTracer.Start(ctx, "QueryAllServers",
		trace.WithAttributes(
			attribute.Int("days", clamped),
			attribute.Int("servers", len(s.cfg.Servers))))
	defer span.End()
	slog.Info("Querying servers for database errors",
		"servers", len(s.cfg.Servers), "days", clamped)

	entries, statuses := fanout.Run(ctx, s.cfg.Servers, func(ctx context.Context, server string) ([]Entry, error) {
		return s.repo.QueryServer(ctx, server, clamped)
	})
	fanout.SortByTimeDesc(entries, func(e Entry) *time.Time { return e.LoggedOnLocal })

	slog.Info("Database error query complete", "totalErrors", len(entries), "statuses", statuses)
	return entries, statuses
}

// QueryServer runs the error query against one server.
func (s *Service) QueryServer(ctx context.Context, server string, days int) ([]Entry, error) {
	return s.repo.QueryServer(ctx, server, ClampDays(days))
}

// TestAllConnections probes every configured server sequentially and
// returns a human-readable status per server.
func (s *Service) TestAllConnections(ctx context.Context) map[string]string {
	results := make(map[string]string, len(s.cfg.Servers))
	for _, server := range s.cfg.Servers {
		results[server] = s.repo.TestConnection(ctx, server)
	}
	return results
}

// WriteCSV streams entries as a spreadsheet-friendly export.
func WriteCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Server", "Time", "Machine", "User", "Resource", "Details", "CallStack", "Arguments"}); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, e := range entries {
		logged := ""
		if e.LoggedOnLocal != nil {
			logged = e.LoggedOnLocal.Format("2006-01-02T15:04:05")
		}
		record := []string{e.ServerName, logged, e.MachineID, e.UserID,
			e.ResourceName, e.Details, e.CallStack, e.Arguments}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportFilename names the CSV download.
func ExportFilename(now time.Time) string {
	return "database-errors_" + now.Format("2006-01-02_15-04-05") + ".csv"
}
