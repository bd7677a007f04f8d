// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/roadrats/wmsops/pkg/validation"
	"github.com/roadrats/wmsops/services/testtools"
)

// TestToolsLookup runs the deep order/container lookup across the AAD
// and IO stacks.
func TestToolsLookup(svc *testtools.LookupService) gin.HandlerFunc {
	return func(c *gin.Context) {
		searchType := c.DefaultQuery("type", "order")
		searchValue := strings.TrimSpace(c.Query("value"))
		warehouseID := strings.TrimSpace(c.Query("warehouseId"))
		stack := testtools.NormalizeStack(c.Query("stack"))

		if searchValue == "" {
			badRequest(c, "Missing parameter", "Search value is required")
			return
		}
		if warehouseID == "" && searchType != "oms" {
			badRequest(c, "Missing parameter", "Warehouse ID is required for order/container search")
			return
		}
		// The warehouse id is interpolated into stack names.
		if warehouseID != "" {
			if err := validation.ValidateWarehouseID(warehouseID); err != nil {
				badRequest(c, "Invalid parameter", err.Error())
				return
			}
		}

		slog.Info("Test tools lookup", "type", searchType, "value", searchValue,
			"wh", warehouseID, "stack", stack)
		result := svc.LookupOrder(c.Request.Context(), searchType, searchValue, warehouseID, stack)
		c.JSON(http.StatusOK, result)
	}
}

// TestToolsConnectionTest probes both non-production stacks.
func TestToolsConnectionTest(svc *testtools.LookupService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.TestConnection(c.Request.Context()))
	}
}

type shipRequest struct {
	WarehouseID string `json:"warehouseId"`
	OrderNumber string `json:"orderNumber"`
	ContainerID string `json:"containerId"`
}

// ShipOrder marks an order shipped via the non-production proc.
func ShipOrder(svc *testtools.ShipService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req shipRequest
		if err := c.BindJSON(&req); err != nil {
			badRequest(c, "Invalid request body", err.Error())
			return
		}
		if req.WarehouseID == "" || req.OrderNumber == "" {
			badRequest(c, "Missing parameters", "warehouseId and orderNumber are required")
			return
		}
		slog.Info("Ship order requested", "wh", req.WarehouseID, "order", req.OrderNumber)
		c.JSON(http.StatusOK, svc.ShipOrder(c.Request.Context(), req.WarehouseID, req.OrderNumber))
	}
}

// ShipContainer marks a container shipped via the non-production proc.
func ShipContainer(svc *testtools.ShipService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req shipRequest
		if err := c.BindJSON(&req); err != nil {
			badRequest(c, "Invalid request body", err.Error())
			return
		}
		if req.WarehouseID == "" || req.ContainerID == "" {
			badRequest(c, "Missing parameters", "warehouseId and containerId are required")
			return
		}
		slog.Info("Ship container requested", "wh", req.WarehouseID, "container", req.ContainerID)
		c.JSON(http.StatusOK, svc.ShipContainer(c.Request.Context(), req.WarehouseID, req.ContainerID))
	}
}

// ResolveOrder resolves a search value to its order, containers, and
// current state without modifying anything.
func ResolveOrder(svc *testtools.ActionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		searchType := c.DefaultQuery("type", "order")
		searchValue := strings.TrimSpace(c.Query("value"))
		warehouseID := strings.TrimSpace(c.Query("warehouseId"))
		if searchValue == "" {
			badRequest(c, "Missing parameter", "Search value is required")
			return
		}
		c.JSON(http.StatusOK, svc.ResolveOrder(c.Request.Context(), searchType, searchValue, warehouseID))
	}
}

type setupOrderRequest struct {
	WarehouseID      string `json:"warehouseId"`
	OrderNumber      string `json:"orderNumber"`
	SetupType        string `json:"setupType"`
	ContainerID      string `json:"containerId"`
	ItemNumber       string `json:"itemNumber"`
	QuantityOverride string `json:"quantityOverride"`
}

// SetupOrder inserts the HU master and stored item rows that put an
// order into a packable state.
func SetupOrder(svc *testtools.ActionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req setupOrderRequest
		if err := c.BindJSON(&req); err != nil {
			badRequest(c, "Invalid request body", err.Error())
			return
		}
		if req.WarehouseID == "" || req.OrderNumber == "" {
			badRequest(c, "Missing parameters", "warehouseId and orderNumber are required")
			return
		}
		if req.SetupType == "" {
			req.SetupType = testtools.SetupNormal
		}

		// A non-numeric override is ignored rather than rejected.
		var override *int
		if req.QuantityOverride != "" {
			if qty, err := strconv.Atoi(strings.TrimSpace(req.QuantityOverride)); err == nil {
				override = &qty
			}
		}

		slog.Info("Setup order requested", "wh", req.WarehouseID, "order", req.OrderNumber,
			"setupType", req.SetupType)
		result := svc.SetupOrder(c.Request.Context(), req.WarehouseID, req.OrderNumber,
			req.SetupType, req.ContainerID, req.ItemNumber, override)
		c.JSON(http.StatusOK, result)
	}
}

type fulfillmentRequest struct {
	WarehouseID string `json:"warehouseId"`
	ContainerID string `json:"containerId"`
	StatusCode  string `json:"statusCode"`
}

// FulfillmentEvent sends a container status event through the
// fulfillment proc.
func FulfillmentEvent(svc *testtools.ActionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req fulfillmentRequest
		if err := c.BindJSON(&req); err != nil {
			badRequest(c, "Invalid request body", err.Error())
			return
		}
		if req.WarehouseID == "" || req.ContainerID == "" || req.StatusCode == "" {
			badRequest(c, "Missing parameters", "warehouseId, containerId, and statusCode are required")
			return
		}
		slog.Info("Fulfillment event requested", "wh", req.WarehouseID,
			"container", req.ContainerID, "status", req.StatusCode)
		result := svc.SendFulfillmentEvent(c.Request.Context(), req.WarehouseID, req.ContainerID, req.StatusCode)
		c.JSON(http.StatusOK, result)
	}
}

// ItemLookup finds an item in the item master, optionally filtered to
// one warehouse.
func ItemLookup(svc *testtools.ItemService) gin.HandlerFunc {
	return func(c *gin.Context) {
		itemNumber := strings.TrimSpace(c.Query("itemNumber"))
		if itemNumber == "" {
			badRequest(c, "Missing parameter", "itemNumber is required")
			return
		}
		warehouseID := strings.TrimSpace(c.Query("warehouseId"))
		c.JSON(http.StatusOK, svc.LookupItem(c.Request.Context(), itemNumber, warehouseID))
	}
}

// ItemImport posts the item XML to the gateway for each warehouse.
func ItemImport(svc *testtools.ItemService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req testtools.ImportRequest
		if err := c.BindJSON(&req); err != nil {
			badRequest(c, "Invalid request body", err.Error())
			return
		}
		slog.Info("Item import requested", "item", req.ItemNumber, "warehouses", len(req.Warehouses))
		result := svc.ImportItem(c.Request.Context(), req)
		if result.Error != "" {
			badRequest(c, "Invalid request", result.Error)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
