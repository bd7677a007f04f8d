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
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/roadrats/wmsops/services/orders"
)

// XMLLogs returns every t_cls_xml_log row for one order.
func XMLLogs(repo *orders.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderNumber := c.Query("orderNumber")
		whID := c.Query("whId")
		if orderNumber == "" || whID == "" {
			badRequest(c, "Missing parameters", "orderNumber and whId are required")
			return
		}

		slog.Info("Fetching XML logs", "order", orderNumber, "wh", whID)
		logs, err := repo.XMLLogs(c.Request.Context(), orderNumber, whID)
		if err != nil {
			slog.Error("Error fetching XML logs", "error", err)
			serverError(c, "Failed to fetch XML logs", err)
			return
		}
		slog.Info("Found XML log entries", "count", len(logs))
		c.JSON(http.StatusOK, logs)
	}
}

func enrichedRows(c *gin.Context, repo *orders.Repository, hold bool) ([]orders.EnrichedOrder, error) {
	var rows []orders.ImportRow
	var err error
	if hold {
		rows, err = repo.RateHoldRows(c.Request.Context())
	} else {
		rows, err = repo.RateRows(c.Request.Context())
	}
	if err != nil {
		return nil, err
	}
	return orders.Aggregate(rows), nil
}

// RateQuery returns the enriched stuck-order rows. With hold set the
// rate-hold variant of the query runs instead.
func RateQuery(repo *orders.Repository, hold bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		results, err := enrichedRows(c, repo, hold)
		if err != nil {
			slog.Error("Error fetching rate query results", "hold", hold, "error", err)
			serverError(c, "Failed to fetch rate query results", err)
			return
		}
		slog.Info("Retrieved enriched results",
			"count", len(results), "hold", hold, "durationMs", time.Since(start).Milliseconds())
		c.JSON(http.StatusOK, results)
	}
}

// RawRateQuery returns the raw rows without aggregation.
func RawRateQuery(repo *orders.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := repo.RateRows(c.Request.Context())
		if err != nil {
			slog.Error("Error fetching raw rate query results", "error", err)
			serverError(c, "Failed to fetch raw rate query results", err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

// RateQuerySummary returns the error breakdown over the enriched rows.
func RateQuerySummary(repo *orders.Repository, hold bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		results, err := enrichedRows(c, repo, hold)
		if err != nil {
			slog.Error("Error fetching rate query summary", "hold", hold, "error", err)
			serverError(c, "Failed to fetch rate query summary", err)
			return
		}
		c.JSON(http.StatusOK, orders.Summarize(results))
	}
}

// ExportRateQuery streams the enriched rows as a CSV download.
func ExportRateQuery(repo *orders.Repository, hold bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		results, err := enrichedRows(c, repo, hold)
		if err != nil {
			slog.Error("Error exporting rate query results", "hold", hold, "error", err)
			serverError(c, "Failed to export rate query results", err)
			return
		}

		var buf bytes.Buffer
		if err := orders.WriteCSV(&buf, results); err != nil {
			serverError(c, "Failed to export rate query results", err)
			return
		}
		filename := orders.ExportFilename(hold, time.Now())
		c.Header("Content-Disposition", "attachment; filename="+filename)
		c.Data(http.StatusOK, "text/csv", buf.Bytes())
	}
}

// QueueStatus reports the stuck orders in each CLS queue.
func QueueStatus(repo *orders.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		slog.Info("Fetching CLS queue status")
		start := time.Now()
		queues := repo.QueueStatuses(c.Request.Context())
		duration := time.Since(start).Milliseconds()

		total, counts := orders.TotalStuck(queues)
		slog.Info("Queue status collected",
			"totalStuck", total, "queues", len(queues), "durationMs", duration)
		c.JSON(http.StatusOK, gin.H{
			"queryTimeMs": duration,
			"totalStuck":  total,
			"counts":      counts,
			"queues":      queues,
		})
	}
}

// IODatabaseTest runs the rate query as a connectivity check.
func IODatabaseTest(repo *orders.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		slog.Info("Testing IO database connection")
		start := time.Now()
		rows, err := repo.RateRows(c.Request.Context())
		if err != nil {
			slog.Error("IO database connection test failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"connected": false,
				"message":   "IO database connection error: " + err.Error(),
				"error":     err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"connected":            true,
			"message":              "IO database connection successful",
			"queryTime":            fmt.Sprintf("%dms", time.Since(start).Milliseconds()),
			"testQueryResultCount": len(rows),
		})
	}
}
