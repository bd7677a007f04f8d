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
	"fmt"
	"log/slog"
	"time"

	"github.com/roadrats/wmsops/services/dbconn"
)

// ShipResult reports the outcome of a ship stored procedure.
type ShipResult struct {
	WarehouseID string `json:"warehouseId"`
	OrderNumber string `json:"orderNumber,omitempty"`
	ContainerID string `json:"containerId,omitempty"`
	ExecutedAt  string `json:"executedAt"`
	ReturnValue int    `json:"returnValue,omitempty"`
	Success     bool   `json:"success"`
	Message     string `json:"message"`
}

// ShipService drives the non-production ship procedures on the AAD
// stack. A zero return status means the procedure shipped the target.
type ShipService struct {
	cfg     Config
	openAad func() (*sql.DB, error)
}

func NewShipService(cfg Config, factory *dbconn.Factory) *ShipService {
	return &ShipService{
		cfg:     cfg,
		openAad: func() (*sql.DB, error) { return factory.OpenHost(cfg.AadServer, cfg.AadDatabase) },
	}
}

// ShipOrder runs usp_nonprod_order_ship for the order.
func (s *ShipService) ShipOrder(ctx context.Context, warehouseID, orderNumber string) ShipResult {
	result := ShipResult{
		WarehouseID: warehouseID,
		OrderNumber: orderNumber,
		ExecutedAt:  time.Now().Format(time.RFC1123),
	}
	slog.Info("Ship order", "wh", warehouseID, "order", orderNumber)

	rc, err := s.callShipProc(ctx, "dbo.usp_nonprod_order_ship", warehouseID, orderNumber)
	if err != nil {
		slog.Error("Error shipping order", "wh", warehouseID, "order", orderNumber, "error", err)
		result.Message = "Database error: " + err.Error()
		return result
	}
	result.ReturnValue = rc
	result.Success = rc == 0
	if rc == 0 {
		result.Message = "Order shipped successfully"
	} else {
		result.Message = fmt.Sprintf("Stored procedure returned %d", rc)
	}
	return result
}

// ShipContainer runs usp_nonprod_container_ship for a single container.
func (s *ShipService) ShipContainer(ctx context.Context, warehouseID, containerID string) ShipResult {
	result := ShipResult{
		WarehouseID: warehouseID,
		ContainerID: containerID,
		ExecutedAt:  time.Now().Format(time.RFC1123),
	}
	slog.Info("Ship container", "wh", warehouseID, "container", containerID)

	rc, err := s.callShipProc(ctx, "dbo.usp_nonprod_container_ship", warehouseID, containerID)
	if err != nil {
		slog.Error("Error shipping container", "wh", warehouseID, "container", containerID, "error", err)
		result.Message = "Database error: " + err.Error()
		return result
	}
	result.ReturnValue = rc
	result.Success = rc == 0
	if rc == 0 {
		result.Message = "Container shipped successfully"
	} else {
		result.Message = fmt.Sprintf("Stored procedure returned %d", rc)
	}
	return result
}

// callShipProc executes the procedure in a batch that surfaces its
// return status as a result set.
func (s *ShipService) callShipProc(ctx context.Context, proc, warehouseID, target string) (int, error) {
	db, err := s.openAad()
	if err != nil {
		return 0, err
	}
	defer db.Close()

	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	batch := fmt.Sprintf("DECLARE @rc INT; EXEC @rc = %s @p1, @p2; SELECT @rc AS return_value;", proc)
	var rc int
	if err := db.QueryRowContext(qctx, batch, warehouseID, target).Scan(&rc); err != nil {
		return 0, err
	}
	return rc, nil
}
