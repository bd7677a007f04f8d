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
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/roadrats/wmsops/services/dbconn"
)

const gatewayTimeout = 30 * time.Second

// ItemLookupResult reports where an item exists.
type ItemLookupResult struct {
	Success    bool             `json:"success"`
	Error      string           `json:"error,omitempty"`
	Connection string           `json:"connection,omitempty"`
	ItemMaster []map[string]any `json:"itemMaster,omitempty"`
	ItemUom    []map[string]any `json:"itemUom,omitempty"`
	Found      bool             `json:"found"`
	Warehouses []string         `json:"warehouses,omitempty"`
	Message    string           `json:"message,omitempty"`
}

// ImportRequest describes an item to push through the XML gateway.
// Zero-valued dimension fields pick up gateway-friendly defaults.
type ImportRequest struct {
	ItemNumber    string   `json:"itemNumber"`
	Warehouses    []string `json:"warehouses"`
	Description   string   `json:"description"`
	Weight        string   `json:"weight"`
	Length        string   `json:"length"`
	Width         string   `json:"width"`
	Height        string   `json:"height"`
	UOM           string   `json:"uom"`
	InventoryType string   `json:"inventoryType"`
	Frozen        string   `json:"frozen"`
	Fresh         string   `json:"fresh"`
	Hazmat        string   `json:"hazmat"`
}

// WarehouseImportResult is the gateway outcome for one warehouse.
type WarehouseImportResult struct {
	WarehouseID string `json:"warehouseId"`
	XMLSent     string `json:"xmlSent"`
	StatusCode  int    `json:"statusCode,omitempty"`
	Response    string `json:"response,omitempty"`
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
}

// ImportResult aggregates gateway outcomes across warehouses.
type ImportResult struct {
	Success         bool                    `json:"success"`
	Error           string                  `json:"error,omitempty"`
	TotalWarehouses int                     `json:"totalWarehouses,omitempty"`
	SuccessCount    int                     `json:"successCount"`
	FailCount       int                     `json:"failCount"`
	Results         []WarehouseImportResult `json:"results,omitempty"`
}

// ItemService looks items up on the AAD stack and imports new ones
// through the legacy XML link gateway.
type ItemService struct {
	cfg     Config
	client  *http.Client
	openAad func() (*sql.DB, error)
}

func NewItemService(cfg Config, factory *dbconn.Factory) *ItemService {
	return &ItemService{
		cfg:     cfg,
		client:  &http.Client{Timeout: gatewayTimeout},
		openAad: func() (*sql.DB, error) { return factory.OpenHost(cfg.AadServer, cfg.AadDatabase) },
	}
}

// LookupItem searches t_item_master and t_item_uom. A blank warehouse
// searches every warehouse.
func (s *ItemService) LookupItem(ctx context.Context, itemNumber, warehouseID string) ItemLookupResult {
	itemNumber = strings.TrimSpace(itemNumber)
	warehouseID = strings.TrimSpace(warehouseID)
	slog.Info("Item lookup", "item", itemNumber, "wh", warehouseID)

	db, err := s.openAad()
	if err != nil {
		return ItemLookupResult{Error: err.Error()}
	}
	defer db.Close()

	result := ItemLookupResult{Connection: s.cfg.AadConnection()}

	itemQuery := "SELECT TOP 100 * FROM t_item_master WHERE item_number = @p1"
	uomQuery := "SELECT TOP 100 * FROM t_item_uom WHERE item_number = @p1"
	args := []any{itemNumber}
	if warehouseID != "" {
		itemQuery += " AND wh_id = @p2"
		uomQuery += " AND wh_id = @p2"
		args = append(args, warehouseID)
	}

	itemRows, err := queryRows(ctx, db, itemQuery, args...)
	if err != nil {
		slog.Error("Error looking up item", "item", itemNumber, "error", err)
		return ItemLookupResult{Error: err.Error()}
	}
	result.ItemMaster = itemRows

	uomRows, err := queryRows(ctx, db, uomQuery, args...)
	if err != nil {
		slog.Error("Error looking up item UOMs", "item", itemNumber, "error", err)
		return ItemLookupResult{Error: err.Error()}
	}
	result.ItemUom = uomRows

	result.Success = true
	result.Found = len(itemRows) > 0
	if !result.Found {
		if warehouseID != "" {
			result.Message = fmt.Sprintf("Item %s not found in warehouse %s", itemNumber, warehouseID)
		} else {
			result.Message = fmt.Sprintf("Item %s not found in any warehouse", itemNumber)
		}
		return result
	}

	seen := make(map[string]bool)
	for _, row := range itemRows {
		wh := strings.TrimSpace(asString(row["wh_id"]))
		if wh != "" && !seen[wh] {
			seen[wh] = true
			result.Warehouses = append(result.Warehouses, wh)
		}
	}
	result.Message = fmt.Sprintf("Item %s found in %d warehouse(s): %s",
		itemNumber, len(result.Warehouses), strings.Join(result.Warehouses, ", "))
	return result
}

// ImportItem builds the import XML and POSTs it to the gateway once per
// warehouse. The overall call succeeds when at least one warehouse
// accepted the item.
func (s *ItemService) ImportItem(ctx context.Context, req ImportRequest) ImportResult {
	req.applyDefaults()
	if req.ItemNumber == "" {
		return ImportResult{Error: "itemNumber is required"}
	}
	if len(req.Warehouses) == 0 {
		return ImportResult{Error: "At least one warehouse is required"}
	}
	slog.Info("Import item", "item", req.ItemNumber,
		"warehouses", strings.Join(req.Warehouses, ","), "gateway", s.cfg.XMLGatewayURL)

	results := make([]WarehouseImportResult, 0, len(req.Warehouses))
	successCount := 0
	for _, wh := range req.Warehouses {
		whResult := s.importToWarehouse(ctx, req, wh)
		if whResult.Success {
			successCount++
		}
		results = append(results, whResult)
	}

	return ImportResult{
		Success:         successCount > 0,
		TotalWarehouses: len(req.Warehouses),
		SuccessCount:    successCount,
		FailCount:       len(req.Warehouses) - successCount,
		Results:         results,
	}
}

func (s *ItemService) importToWarehouse(ctx context.Context, req ImportRequest, warehouseID string) WarehouseImportResult {
	xml := buildImportXML(req, warehouseID)
	whResult := WarehouseImportResult{WarehouseID: warehouseID, XMLSent: xml}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.XMLGatewayURL, strings.NewReader(xml))
	if err != nil {
		whResult.Error = err.Error()
		return whResult
	}
	httpReq.Header.Set("Content-Type", "text/xml")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		slog.Error("Error importing item", "item", req.ItemNumber, "wh", warehouseID, "error", err)
		whResult.Error = err.Error()
		return whResult
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	whResult.StatusCode = resp.StatusCode
	whResult.Response = string(body)
	whResult.Success = resp.StatusCode >= 200 && resp.StatusCode < 300
	slog.Info("Import item response", "item", req.ItemNumber, "wh", warehouseID, "status", resp.StatusCode)
	return whResult
}

func (r *ImportRequest) applyDefaults() {
	r.ItemNumber = strings.TrimSpace(r.ItemNumber)
	setDefault(&r.Description, "Imported Item "+r.ItemNumber)
	setDefault(&r.Weight, "1.0")
	setDefault(&r.Length, "10.0")
	setDefault(&r.Width, "10.0")
	setDefault(&r.Height, "10.0")
	setDefault(&r.UOM, "EA")
	setDefault(&r.InventoryType, "FG")
	setDefault(&r.Frozen, "N")
	setDefault(&r.Fresh, "N")
	setDefault(&r.Hazmat, "No")
}

func setDefault(field *string, def string) {
	if strings.TrimSpace(*field) == "" {
		*field = def
	}
}

// buildImportXML renders the exact document layout the legacy gateway
// parses, tabs and all.
func buildImportXML(req ImportRequest, warehouseID string) string {
	var sb strings.Builder
	sb.WriteString("<?xml version=\"1.0\"?>\n")
	sb.WriteString("<import_item>\n")
	sb.WriteString("\t<item_master>\n")
	sb.WriteString("\t\t<ItemNumber>" + xmlEscape(req.ItemNumber) + "</ItemNumber>\n")
	sb.WriteString("\t\t<DisplayItemNumber>" + xmlEscape(req.ItemNumber) + "</DisplayItemNumber>\n")
	sb.WriteString("\t\t<WarehouseID>" + xmlEscape(warehouseID) + "</WarehouseID>\n")
	sb.WriteString("\t\t<item_info>\n")
	sb.WriteString("\t\t\t<TransactionCode>NEW</TransactionCode>\n")
	sb.WriteString("\t\t\t<Description>" + xmlEscape(req.Description) + "</Description>\n")
	sb.WriteString("\t\t\t<DefaultBaseUOM>" + xmlEscape(req.UOM) + "</DefaultBaseUOM>\n")
	sb.WriteString("\t\t\t<InventoryType>" + xmlEscape(req.InventoryType) + "</InventoryType>\n")
	sb.WriteString("\t\t\t<Price/>\n")
	sb.WriteString("\t\t\t<AltItemNumber></AltItemNumber>\n")
	sb.WriteString("\t\t\t<UPC>" + xmlEscape(req.ItemNumber) + "</UPC>\n")
	sb.WriteString("\t\t\t<HazMatIndicator>" + xmlEscape(req.Hazmat) + "</HazMatIndicator>\n")
	sb.WriteString("\t\t\t<UnitVolume/>\n")
	sb.WriteString("\t\t\t<Frozen>" + xmlEscape(req.Frozen) + "</Frozen>\n")
	sb.WriteString("\t\t\t<Fresh>" + xmlEscape(req.Fresh) + "</Fresh>\n")
	sb.WriteString("\t\t\t<VelocityCode/>\n")
	sb.WriteString("\t\t\t<SpeciesApplicable></SpeciesApplicable>\n")
	sb.WriteString("\t\t\t<TherapeuticClass></TherapeuticClass>\n")
	sb.WriteString("\t\t</item_info>\n")
	sb.WriteString("\t\t<item_uoms>\n")
	sb.WriteString("\t\t\t<item_uom>\n")
	sb.WriteString("\t\t\t\t<TransactionCode>NEW</TransactionCode>\n")
	sb.WriteString("\t\t\t\t<UOM>" + xmlEscape(req.UOM) + "</UOM>\n")
	sb.WriteString("\t\t\t\t<ConversionFactor>1</ConversionFactor>\n")
	sb.WriteString("\t\t\t\t<Weight>" + xmlEscape(req.Weight) + "</Weight>\n")
	sb.WriteString("\t\t\t\t<Length>" + xmlEscape(req.Length) + "</Length>\n")
	sb.WriteString("\t\t\t\t<Width>" + xmlEscape(req.Width) + "</Width>\n")
	sb.WriteString("\t\t\t\t<Height>" + xmlEscape(req.Height) + "</Height>\n")
	sb.WriteString("\t\t\t\t<Pattern>STANDARD</Pattern>\n")
	sb.WriteString("\t\t\t\t<ExcludeFromMailers>NO</ExcludeFromMailers>\n")
	sb.WriteString("\t\t\t</item_uom>\n")
	sb.WriteString("\t\t</item_uoms>\n")
	sb.WriteString("\t\t<item_orientation>\n")
	sb.WriteString("\t\t\t<TransactionCode>NEW</TransactionCode>\n")
	sb.WriteString("\t\t</item_orientation>\n")
	sb.WriteString("\t</item_master>\n")
	sb.WriteString("</import_item>")
	return sb.String()
}

var xmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func xmlEscape(val string) string {
	return xmlReplacer.Replace(val)
}
