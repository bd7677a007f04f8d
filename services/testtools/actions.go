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

// Setup types for SetupOrder.
const (
	SetupNormal    = "normal"
	SetupShortShip = "short_ship"
	SetupFloorDeny = "floor_deny"
)

// ResolveResult is the quick AAD lookup that backs the order action
// panel.
type ResolveResult struct {
	Success        bool             `json:"success"`
	Error          string           `json:"error,omitempty"`
	OrderNumber    string           `json:"orderNumber,omitempty"`
	ContainerID    string           `json:"containerId,omitempty"`
	WarehouseID    string           `json:"warehouseId,omitempty"`
	Connection     string           `json:"connection,omitempty"`
	PickContainers []map[string]any `json:"pickContainers,omitempty"`
	PickDetails    []map[string]any `json:"pickDetails,omitempty"`
	Orders         []map[string]any `json:"orders,omitempty"`
	HuMaster       []map[string]any `json:"huMaster,omitempty"`
	StoredItems    []map[string]any `json:"storedItems,omitempty"`
}

// SetupResult reports the hu_master/stored_item seeding for an order.
type SetupResult struct {
	WarehouseID         string           `json:"warehouseId"`
	OrderNumber         string           `json:"orderNumber"`
	SetupType           string           `json:"setupType"`
	ContainerID         string           `json:"containerId,omitempty"`
	ExecutedAt          string           `json:"executedAt"`
	Success             bool             `json:"success"`
	Message             string           `json:"message,omitempty"`
	Error               string           `json:"error,omitempty"`
	HuMasterInserted    int              `json:"huMasterInserted"`
	HuMasterSkipped     int              `json:"huMasterSkipped"`
	StoredItemInserted  int              `json:"storedItemInserted"`
	StoredItemSkipped   int              `json:"storedItemSkipped"`
	ContainersProcessed int              `json:"containersProcessed"`
	DetailsProcessed    int              `json:"detailsProcessed"`
	DebugLog            []string         `json:"debugLog,omitempty"`
	VerifyHuMaster      []map[string]any `json:"verifyHuMaster,omitempty"`
	VerifyStoredItem    []map[string]any `json:"verifyStoredItem,omitempty"`
	QuantityUsed        *int             `json:"quantityUsed,omitempty"`
	ItemFiltered        string           `json:"itemFiltered,omitempty"`
}

// FulfillmentResult confirms a fulfillment status event.
type FulfillmentResult struct {
	WarehouseID   string `json:"warehouseId"`
	ContainerID   string `json:"containerId"`
	StatusCode    string `json:"statusCode"`
	ExecutedAt    string `json:"executedAt"`
	Success       bool   `json:"success"`
	Message       string `json:"message,omitempty"`
	Error         string `json:"error,omitempty"`
	OutputMessage string `json:"outputMessage,omitempty"`
}

// ActionService prepares test orders for shipping scenarios on the AAD
// stack: resolving identifiers, seeding handling-unit rows, and firing
// fulfillment status events.
type ActionService struct {
	cfg     Config
	openAad func() (*sql.DB, error)
}

func NewActionService(cfg Config, factory *dbconn.Factory) *ActionService {
	return &ActionService{
		cfg:     cfg,
		openAad: func() (*sql.DB, error) { return factory.OpenHost(cfg.AadServer, cfg.AadDatabase) },
	}
}

// ResolveOrder resolves order and container identifiers from an order
// number, container id, or OMS order number, and returns the pick and
// setup state for the order.
func (s *ActionService) ResolveOrder(ctx context.Context, searchType, searchValue, warehouseID string) ResolveResult {
	slog.Info("Resolve order", "type", searchType, "value", searchValue, "wh", warehouseID)

	db, err := s.openAad()
	if err != nil {
		return ResolveResult{Error: "Database error: " + err.Error()}
	}
	defer db.Close()

	var orderNumber, containerID string
	resolvedWh := warehouseID

	switch searchType {
	case "oms":
		query := "SELECT TOP 1 order_number, wh_id FROM t_order_detail WHERE oms_order_number = @p1"
		args := []any{searchValue}
		if resolvedWh != "" {
			query += " AND wh_id = @p2"
			args = append(args, resolvedWh)
		}
		var on, wh sql.NullString
		if err := db.QueryRowContext(ctx, query, args...).Scan(&on, &wh); err != nil && err != sql.ErrNoRows {
			return ResolveResult{Error: "Database error: " + err.Error()}
		}
		orderNumber = on.String
		if wh.String != "" {
			resolvedWh = wh.String
		}

	case "container":
		containerID = searchValue
		query := "SELECT TOP 1 order_number, wh_id FROM t_pick_container WHERE container_id = @p1"
		args := []any{searchValue}
		if resolvedWh != "" {
			query += " AND wh_id = @p2"
			args = append(args, resolvedWh)
		}
		var on, wh sql.NullString
		if err := db.QueryRowContext(ctx, query, args...).Scan(&on, &wh); err != nil && err != sql.ErrNoRows {
			return ResolveResult{Error: "Database error: " + err.Error()}
		}
		orderNumber = on.String
		if wh.String != "" {
			resolvedWh = wh.String
		}

	default:
		orderNumber = searchValue
	}

	if orderNumber == "" && containerID == "" {
		return ResolveResult{
			Error: fmt.Sprintf("Could not resolve order from %s = %s", searchType, searchValue),
		}
	}

	if containerID == "" && orderNumber != "" {
		var cid sql.NullString
		err := db.QueryRowContext(ctx,
			"SELECT TOP 1 container_id FROM t_pick_container WHERE order_number = @p1 AND wh_id = @p2",
			orderNumber, resolvedWh).Scan(&cid)
		if err != nil && err != sql.ErrNoRows {
			return ResolveResult{Error: "Database error: " + err.Error()}
		}
		containerID = cid.String
	}

	result := ResolveResult{
		Success:     true,
		OrderNumber: orderNumber,
		ContainerID: containerID,
		WarehouseID: resolvedWh,
		Connection:  s.cfg.AadConnection(),
	}

	if orderNumber != "" {
		result.PickContainers, _ = queryRows(ctx, db,
			"SELECT * FROM t_pick_container WHERE wh_id = @p1 AND order_number = @p2", resolvedWh, orderNumber)
		result.PickDetails, _ = queryRows(ctx, db,
			"SELECT * FROM t_pick_detail WHERE wh_id = @p1 AND order_number = @p2", resolvedWh, orderNumber)
		result.Orders, _ = queryRows(ctx, db,
			"SELECT * FROM t_order WHERE wh_id = @p1 AND order_number = @p2", resolvedWh, orderNumber)
	}
	if containerID != "" {
		result.HuMaster, _ = queryRows(ctx, db,
			"SELECT * FROM t_hu_master WHERE wh_id = @p1 AND hu_id = @p2", resolvedWh, containerID)
		result.StoredItems, _ = queryRows(ctx, db,
			"SELECT * FROM t_stored_item WHERE wh_id = @p1 AND hu_id = @p2", resolvedWh, containerID)
	}
	return result
}

// SetupOrder seeds t_hu_master and t_stored_item so an order can be
// shipped, short shipped, or floor denied. Existing rows are skipped,
// never duplicated. A container id narrows the setup to one container,
// itemOverride to one item, and quantityOverride replaces the computed
// quantity.
func (s *ActionService) SetupOrder(ctx context.Context, warehouseID, orderNumber, setupType, containerID, itemOverride string, quantityOverride *int) SetupResult {
	result := SetupResult{
		WarehouseID: warehouseID,
		OrderNumber: orderNumber,
		SetupType:   setupType,
		ContainerID: containerID,
		ExecutedAt:  time.Now().Format(time.RFC1123),
	}
	slog.Info("Setup order data", "wh", warehouseID, "order", orderNumber,
		"type", setupType, "container", containerID, "itemOverride", itemOverride)

	db, err := s.openAad()
	if err != nil {
		result.Error = "Database error: " + err.Error()
		return result
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		result.Error = "Database error: " + err.Error()
		return result
	}
	defer tx.Rollback()

	containerQuery := "SELECT container_id, order_number, wh_id, container_type FROM t_pick_container WHERE wh_id = @p1 AND order_number = @p2"
	containerArgs := []any{warehouseID, orderNumber}
	detailQuery := "SELECT pick_id, item_number, planned_quantity, container_id, order_number, wh_id FROM t_pick_detail WHERE wh_id = @p1 AND order_number = @p2"
	detailArgs := []any{warehouseID, orderNumber}
	if containerID != "" {
		containerQuery += " AND container_id = @p3"
		containerArgs = append(containerArgs, containerID)
		detailQuery += " AND container_id = @p3"
		detailArgs = append(detailArgs, containerID)
	}

	containers, err := queryRows(ctx, tx, containerQuery, containerArgs...)
	if err != nil {
		result.Error = "Database error: " + err.Error()
		return result
	}
	if len(containers) == 0 {
		result.Error = "No pick_container rows found"
		if containerID != "" {
			result.Error += " for container " + containerID
		}
		return result
	}

	details, err := queryRows(ctx, tx, detailQuery, detailArgs...)
	if err != nil {
		result.Error = "Database error: " + err.Error()
		return result
	}

	var debugLog []string

	for _, pkc := range containers {
		cid := asString(pkc["container_id"])
		cType := asString(pkc["container_type"])
		if cType == "" {
			cType = "BOX04"
		}

		exists, err := rowExists(ctx, tx,
			"SELECT 1 FROM t_hu_master WHERE wh_id = @p1 AND hu_id = @p2 AND type = 'SO' AND control_number = @p3",
			warehouseID, cid, orderNumber)
		if err != nil {
			result.Error = "Database error: " + err.Error()
			return result
		}
		if exists {
			result.HuMasterSkipped++
			debugLog = append(debugLog, "HUM skip (exists): hu_id="+cid)
			slog.Info("t_hu_master already exists, skipping", "wh", warehouseID, "hu_id", cid)
			continue
		}

		res, err := tx.ExecContext(ctx,
			"INSERT INTO t_hu_master (hu_id, type, control_number, location_id, subtype, status, fifo_date, wh_id, container_type) "+
				"VALUES (@p1, 'SO', @p2, 'PACKING1', 'T', 'A', CONVERT(DATE, GETDATE()), @p3, @p4)",
			cid, orderNumber, warehouseID, cType)
		if err != nil {
			result.Error = "Database error: " + err.Error()
			return result
		}
		rows, _ := res.RowsAffected()
		result.HuMasterInserted += int(rows)
		debugLog = append(debugLog, fmt.Sprintf("HUM insert: hu_id=%s, ctype=%s, rows=%d", cid, cType, rows))
		slog.Info("t_hu_master inserted", "hu_id", cid, "container_type", cType, "rows", rows)
	}

	for _, pkd := range details {
		pickID := asString(pkd["pick_id"])
		itemNumber := asString(pkd["item_number"])
		if itemOverride != "" && itemNumber != itemOverride {
			continue
		}

		plannedQty := asInt(pkd["planned_quantity"])
		qty := setupQuantity(setupType, plannedQty, quantityOverride)
		cid := asString(pkd["container_id"])

		exists, err := rowExists(ctx, tx,
			"SELECT 1 FROM t_stored_item WHERE type = @p1 AND wh_id = @p2 AND hu_id = @p3",
			pickID, warehouseID, cid)
		if err != nil {
			result.Error = "Database error: " + err.Error()
			return result
		}
		if exists {
			result.StoredItemSkipped++
			debugLog = append(debugLog, "STO skip (exists): pick_id="+pickID+", item="+itemNumber)
			slog.Info("t_stored_item already exists, skipping", "pick_id", pickID)
			continue
		}

		res, err := tx.ExecContext(ctx,
			"INSERT INTO t_stored_item (item_number, actual_qty, status, wh_id, location_id, fifo_date, type, hu_id, lot_number) "+
				"VALUES (@p1, @p2, 'A', @p3, 'PACKING1', CONVERT(DATE, GETDATE()), @p4, @p5, '1')",
			itemNumber, qty, warehouseID, pickID, cid)
		if err != nil {
			result.Error = "Database error: " + err.Error()
			return result
		}
		rows, _ := res.RowsAffected()
		result.StoredItemInserted += int(rows)
		debugLog = append(debugLog,
			fmt.Sprintf("STO insert: pick_id=%s, item=%s, qty=%d (planned=%d), rows=%d", pickID, itemNumber, qty, plannedQty, rows))
		slog.Info("t_stored_item inserted",
			"pick_id", pickID, "item", itemNumber, "actual_qty", qty, "planned", plannedQty, "hu_id", cid, "rows", rows)
	}

	if err := tx.Commit(); err != nil {
		result.Error = "Database error: " + err.Error()
		return result
	}
	slog.Info("Setup committed",
		"huInserted", result.HuMasterInserted, "huSkipped", result.HuMasterSkipped,
		"stoInserted", result.StoredItemInserted, "stoSkipped", result.StoredItemSkipped)

	// Read back the full state for verification.
	verifyHum, _ := queryRows(ctx, db,
		"SELECT TOP 100 * FROM t_hu_master WHERE wh_id = @p1 AND (hu_id = @p2 OR control_number = @p3)",
		warehouseID, containerID, orderNumber)
	verifySto, _ := queryRows(ctx, db,
		"SELECT TOP 100 * FROM t_stored_item WHERE wh_id = @p1 AND hu_id IN "+
			"(SELECT hu_id FROM t_hu_master WHERE wh_id = @p2 AND (hu_id = @p3 OR control_number = @p4))",
		warehouseID, warehouseID, containerID, orderNumber)
	debugLog = append(debugLog, fmt.Sprintf("POST-SETUP: %d HUM rows, %d STO rows", len(verifyHum), len(verifySto)))

	result.Success = true
	result.Message = fmt.Sprintf("%s setup complete: %d HU Master rows, %d Stored Item rows inserted (%d skipped existing)",
		setupTypeLabel(setupType), result.HuMasterInserted, result.StoredItemInserted,
		result.HuMasterSkipped+result.StoredItemSkipped)
	result.ContainersProcessed = len(containers)
	result.DetailsProcessed = len(details)
	result.DebugLog = debugLog
	result.VerifyHuMaster = verifyHum
	result.VerifyStoredItem = verifySto
	result.QuantityUsed = quantityOverride
	result.ItemFiltered = itemOverride
	return result
}

// SendFulfillmentEvent fires the fulfillment status update procedure
// for one container, the same event the sorter hardware would send.
func (s *ActionService) SendFulfillmentEvent(ctx context.Context, warehouseID, containerID, statusCode string) FulfillmentResult {
	result := FulfillmentResult{
		WarehouseID: warehouseID,
		ContainerID: containerID,
		StatusCode:  statusCode,
		ExecutedAt:  time.Now().Format(time.RFC1123),
	}
	slog.Info("Send fulfillment event", "wh", warehouseID, "container", containerID, "status", statusCode)

	db, err := s.openAad()
	if err != nil {
		result.Error = "Database error: " + err.Error()
		return result
	}
	defer db.Close()

	// The procedure takes a table-valued parameter, so the batch
	// declares and fills it inline.
	batch := "DECLARE @v_tvContainers dbo.udtt_container_status_update; " +
		"DECLARE @v_vchMsg dbo.uddt_output_msg; " +
		"INSERT INTO @v_tvContainers(container_id, wh_id, fulfillment_status, fulfillment_status_update_date, profile_name) " +
		"SELECT TOP 1 pkc.container_id, pkc.wh_id, @p1, GETDATE(), NULL " +
		"FROM dbo.t_pick_container pkc WHERE pkc.wh_id = @p2 AND pkc.container_id = @p3; " +
		"EXEC dbo.usp_pick_container_fulfillment_status_update " +
		"@in_vchCaller = 'roadrats-test-tools', " +
		"@in_tvContainerStatus = @v_tvContainers, " +
		"@in_nLogLevel = 3, " +
		"@out_vchMessage = @v_vchMsg OUTPUT; " +
		"SELECT @v_vchMsg AS outputMessage;"

	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := db.QueryContext(qctx, batch, statusCode, warehouseID, containerID)
	if err != nil {
		slog.Error("Error sending fulfillment event",
			"wh", warehouseID, "container", containerID, "status", statusCode, "error", err)
		result.Error = "Database error: " + err.Error()
		return result
	}
	defer rows.Close()

	// The proc emits its own result sets at log level 3; walk them all
	// looking for the output message.
	for {
		cols, err := rows.Columns()
		if err == nil && len(cols) == 1 && cols[0] == "outputMessage" && rows.Next() {
			var msg sql.NullString
			if rows.Scan(&msg) == nil {
				result.OutputMessage = msg.String
			}
		}
		if !rows.NextResultSet() {
			break
		}
	}

	result.Success = true
	result.Message = fmt.Sprintf("Fulfillment event %s sent for container %s", statusCode, containerID)
	return result
}

// setupQuantity computes the stored-item quantity for a setup type.
// Short ship drops one unit when possible, floor deny stores nothing.
func setupQuantity(setupType string, plannedQty int, override *int) int {
	if override != nil {
		return *override
	}
	switch {
	case setupType == SetupShortShip && plannedQty > 1:
		return plannedQty - 1
	case setupType == SetupFloorDeny:
		return 0
	default:
		return plannedQty
	}
}

func setupTypeLabel(setupType string) string {
	switch setupType {
	case SetupNormal:
		return "Normal"
	case SetupShortShip:
		return "Short Ship"
	default:
		return "Floor Deny"
	}
}

func asString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func asInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	case string:
		var parsed int
		fmt.Sscan(n, &parsed)
		return parsed
	default:
		return 0
	}
}
