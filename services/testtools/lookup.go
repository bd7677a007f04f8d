// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package testtools

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/roadrats/wmsops/services/dbconn"
)

// LookupResult is the deep order lookup payload: resolved identifiers
// plus one grid per inspected table.
type LookupResult struct {
	SearchType    string  `json:"searchType"`
	SearchValue   string  `json:"searchValue"`
	Stack         string  `json:"stack"`
	QueriedAt     string  `json:"queriedAt"`
	AadConnection string  `json:"aadConnection,omitempty"`
	IoConnection  string  `json:"ioConnection,omitempty"`
	WarehouseID   string  `json:"warehouseId,omitempty"`
	OrderNumber   string  `json:"orderNumber,omitempty"`
	ContainerID   string  `json:"containerId,omitempty"`
	Tables        []Table `json:"tables,omitempty"`
	Error         string  `json:"error,omitempty"`
}

// ConnectionTestResult reports connectivity for both test stacks.
type ConnectionTestResult struct {
	IoServer    string `json:"ioServer"`
	IoDatabase  string `json:"ioDatabase"`
	AadServer   string `json:"aadServer"`
	AadDatabase string `json:"aadDatabase"`
	IoStatus    string `json:"ioStatus"`
	AadStatus   string `json:"aadStatus"`
}

// LookupService answers the deep order lookup across the AAD stack
// (orders, picks, shipping) and the IO stack (import pipeline and
// queues).
type LookupService struct {
	cfg Config
	// open functions are swappable for tests.
	openAad func() (*sql.DB, error)
	openIo  func() (*sql.DB, error)
}

func NewLookupService(cfg Config, factory *dbconn.Factory) *LookupService {
	return &LookupService{
		cfg:     cfg,
		openAad: func() (*sql.DB, error) { return factory.OpenHost(cfg.AadServer, cfg.AadDatabase) },
		openIo:  func() (*sql.DB, error) { return factory.OpenHost(cfg.IoServer, cfg.IoDatabase) },
	}
}

// LookupOrder resolves the order and container identifiers from the
// search value, then pulls every related table from the requested
// stacks. Individual table failures come back as error grids; only a
// failed resolve aborts the lookup.
func (s *LookupService) LookupOrder(ctx context.Context, searchType, searchValue, warehouseID, stack string) LookupResult {
	result := LookupResult{
		SearchType:  searchType,
		SearchValue: searchValue,
		Stack:       stack,
		QueriedAt:   time.Now().Format(time.RFC1123),
	}

	queryAad := stack == "aad" || stack == "both"
	queryIo := stack == "io" || stack == "both"
	if queryAad {
		result.AadConnection = s.cfg.AadConnection()
	}
	if queryIo {
		result.IoConnection = s.cfg.IoConnection()
	}

	// Identifiers resolve on the primary stack.
	openPrimary := s.openAad
	if !queryAad {
		openPrimary = s.openIo
	}
	orderNumber, containerID, resolvedWh, err := s.resolveIdentifiers(ctx, openPrimary, searchType, searchValue, warehouseID)
	if err != nil {
		result.Error = "Failed to resolve identifiers: " + err.Error()
		return result
	}
	result.WarehouseID = resolvedWh
	result.OrderNumber = orderNumber
	result.ContainerID = containerID

	if orderNumber == "" && containerID == "" {
		result.Error = "Could not resolve order/container from search. No matching records found."
		return result
	}
	slog.Info("Resolved order lookup",
		"wh", resolvedWh, "order", orderNumber, "container", containerID, "stack", stack)

	var tables []Table
	if queryAad {
		tables = append(tables, s.stackTables(ctx, s.openAad, "aad_connection", "AAD Connection Error", "AAD",
			s.cfg.AadServer, aadSpecs(orderNumber, containerID, resolvedWh))...)
	}
	if queryIo {
		tables = append(tables, s.stackTables(ctx, s.openIo, "io_connection", "IO Connection Error", "IO",
			s.cfg.IoServer, ioSpecs(orderNumber, containerID, resolvedWh))...)
	}
	result.Tables = tables
	slog.Info("Order lookup complete", "tables", len(tables), "stack", stack)
	return result
}

func (s *LookupService) resolveIdentifiers(ctx context.Context, open func() (*sql.DB, error), searchType, searchValue, warehouseID string) (orderNumber, containerID, resolvedWh string, err error) {
	db, err := open()
	if err != nil {
		return "", "", "", err
	}
	defer db.Close()
	useReadUncommitted(ctx, db)

	resolvedWh = warehouseID
	switch searchType {
	case "oms":
		var on, wh sql.NullString
		scanErr := db.QueryRowContext(ctx,
			"SELECT TOP 1 order_number, wh_id FROM t_order_detail WHERE oms_order_number = @p1",
			searchValue).Scan(&on, &wh)
		if scanErr != nil && scanErr != sql.ErrNoRows {
			return "", "", "", scanErr
		}
		orderNumber = on.String
		if wh.String != "" {
			resolvedWh = wh.String
		}

	case "container":
		containerID = searchValue
		var on sql.NullString
		scanErr := db.QueryRowContext(ctx,
			"SELECT TOP 1 order_number FROM t_pick_container WHERE wh_id = @p1 AND container_id = @p2",
			warehouseID, searchValue).Scan(&on)
		if scanErr != nil && scanErr != sql.ErrNoRows {
			return "", "", "", scanErr
		}
		orderNumber = on.String

	default: // "order"
		orderNumber = searchValue
		var cid sql.NullString
		scanErr := db.QueryRowContext(ctx,
			"SELECT TOP 1 container_id FROM t_pick_container WHERE wh_id = @p1 AND order_number = @p2",
			warehouseID, searchValue).Scan(&cid)
		if scanErr != nil && scanErr != sql.ErrNoRows {
			return "", "", "", scanErr
		}
		containerID = cid.String
	}
	return orderNumber, containerID, resolvedWh, nil
}

// stackTables opens one handle per stack and runs every spec on it. A
// failed open produces a single connection-error grid in its place.
func (s *LookupService) stackTables(ctx context.Context, open func() (*sql.DB, error), errName, errDisplay, source, server string, specs []tableSpec) []Table {
	db, err := open()
	if err != nil {
		slog.Error("Stack connection failed", "source", source, "error", err)
		return []Table{errorTable(errName, errDisplay, source,
			"Failed to connect to "+server+": "+err.Error())}
	}
	defer db.Close()
	useReadUncommitted(ctx, db)
	return runSpecs(ctx, db, specs)
}

// useReadUncommitted puts the session in dirty-read mode. These are
// diagnostic queries against live test systems; blocking writers would
// be worse than a torn read.
func useReadUncommitted(ctx context.Context, db *sql.DB) {
	if _, err := db.ExecContext(ctx, "SET TRANSACTION ISOLATION LEVEL READ UNCOMMITTED"); err != nil {
		slog.Warn("Failed to set read uncommitted", "error", err)
	}
}

func errorTable(name, displayName, source, errMsg string) Table {
	return Table{
		Name:        name,
		DisplayName: displayName,
		Source:      source,
		Group:       "Connection",
		Columns:     []string{},
		Rows:        []map[string]any{},
		Error:       errMsg,
	}
}

// TestConnection probes both stacks.
func (s *LookupService) TestConnection(ctx context.Context) ConnectionTestResult {
	result := ConnectionTestResult{
		IoServer:    s.cfg.IoServer,
		IoDatabase:  s.cfg.IoDatabase,
		AadServer:   s.cfg.AadServer,
		AadDatabase: s.cfg.AadDatabase,
	}
	result.IoStatus = probe(ctx, s.openIo)
	result.AadStatus = probe(ctx, s.openAad)
	return result
}

func probe(ctx context.Context, open func() (*sql.DB, error)) string {
	db, err := open()
	if err != nil {
		return "Failed: " + err.Error()
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return "Failed: " + err.Error()
	}
	return "Connected"
}
