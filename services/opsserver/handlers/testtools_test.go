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
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/roadrats/wmsops/services/testtools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testToolsRouter() *gin.Engine {
	cfg := testtools.Config{
		AadServer: "WMSSQL-TEST", AadDatabase: "AAD",
		IoServer: "WMSSQL-IO-TEST", IoDatabase: "AAD_IMPORT_ORDER",
	}
	router := gin.New()
	router.GET("/lookup", TestToolsLookup(testtools.NewLookupService(cfg, nil)))
	router.POST("/ship-order", ShipOrder(testtools.NewShipService(cfg, nil)))
	router.POST("/ship-container", ShipContainer(testtools.NewShipService(cfg, nil)))
	router.GET("/resolve-order", ResolveOrder(testtools.NewActionService(cfg, nil)))
	router.POST("/setup-order", SetupOrder(testtools.NewActionService(cfg, nil)))
	router.POST("/fulfillment-event", FulfillmentEvent(testtools.NewActionService(cfg, nil)))
	router.GET("/item-lookup", ItemLookup(testtools.NewItemService(cfg, nil)))
	return router
}

func TestLookupValidation(t *testing.T) {
	router := testToolsRouter()

	t.Run("missing value", func(t *testing.T) {
		w := perform(t, router, http.MethodGet, "/lookup?type=order&warehouseId=CFF1", "")
		require.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "Search value is required", body["message"])
	})

	t.Run("missing warehouse for order search", func(t *testing.T) {
		w := perform(t, router, http.MethodGet, "/lookup?type=order&value=SO100", "")
		require.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "Warehouse ID is required for order/container search", body["message"])
	})

	t.Run("malformed warehouse id", func(t *testing.T) {
		w := perform(t, router, http.MethodGet, "/lookup?type=order&value=SO100&warehouseId=CFF1%27--", "")
		require.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeBody(t, w)
		assert.Contains(t, body["message"], "invalid warehouse id")
	})
}

func TestShipValidation(t *testing.T) {
	router := testToolsRouter()

	w := perform(t, router, http.MethodPost, "/ship-order", `{"warehouseId":"CFF1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(t, router, http.MethodPost, "/ship-container", `{"containerId":"CONT1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResolveOrderValidation(t *testing.T) {
	router := testToolsRouter()
	w := perform(t, router, http.MethodGet, "/resolve-order?type=order", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetupOrderValidation(t *testing.T) {
	router := testToolsRouter()
	w := perform(t, router, http.MethodPost, "/setup-order", `{"setupType":"short_ship"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Contains(t, body["message"], "warehouseId")
}

func TestFulfillmentEventValidation(t *testing.T) {
	router := testToolsRouter()
	w := perform(t, router, http.MethodPost, "/fulfillment-event",
		`{"warehouseId":"CFF1","containerId":"CONT1"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Contains(t, body["message"], "statusCode")
}

func TestItemLookupValidation(t *testing.T) {
	router := testToolsRouter()
	w := perform(t, router, http.MethodGet, "/item-lookup?warehouseId=CFF1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
