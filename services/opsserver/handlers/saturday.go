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
	"time"

	"github.com/gin-gonic/gin"
	"github.com/roadrats/wmsops/services/orders"
)

// SaturdayDelivery cross-checks the 2nd-rate queue against the routing
// guide for Saturday delivery flags.
func SaturdayDelivery(svc *orders.SaturdayService) gin.HandlerFunc {
	return func(c *gin.Context) {
		slog.Info("Saturday delivery check requested")
		start := time.Now()
		result, err := svc.Check(c.Request.Context())
		if err != nil {
			slog.Error("Error checking Saturday deliveries", "error", err)
			serverError(c, "Failed to check Saturday deliveries", err)
			return
		}
		duration := time.Since(start).Milliseconds()
		slog.Info("Saturday delivery check completed", "durationMs", duration)
		c.JSON(http.StatusOK, gin.H{
			"totalRateOrders":    result.TotalRateOrders,
			"originsChecked":     result.OriginsChecked,
			"saturdayDeliveries": result.SaturdayDeliveries,
			"totalSaturdayFlags": result.TotalSaturdayFlags,
			"groupedByService":   result.GroupedByService,
			"message":            result.Message,
			"queryTimeMs":        duration,
		})
	}
}
