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
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/roadrats/wmsops/pkg/validation"
	"github.com/roadrats/wmsops/services/dberrors"
)

func daysParam(c *gin.Context) int {
	days, err := strconv.Atoi(c.DefaultQuery("days", "1"))
	if err != nil {
		days = 1
	}
	return days
}

// DatabaseErrors fans the log-message query out to every configured
// server.
func DatabaseErrors(svc *dberrors.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		days := daysParam(c)
		slog.Info("Fetching database errors", "days", days)

		entries, statuses := svc.QueryAllServers(c.Request.Context(), days)
		slog.Info("Returning database errors", "count", len(entries))
		c.JSON(http.StatusOK, gin.H{
			"totalErrors":  len(entries),
			"days":         dberrors.ClampDays(days),
			"servers":      svc.Servers(),
			"serverStatus": statuses,
			"queriedAt":    time.Now().Format(time.RFC3339),
			"errors":       entries,
		})
	}
}

// DatabaseErrorsByServer queries a single server.
func DatabaseErrorsByServer(svc *dberrors.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		server := c.Param("server")
		// The server name is synthesized into a DSN; reject anything
		// that could smuggle extra connection parameters.
		if err := validation.ValidateServerName(server); err != nil {
			badRequest(c, "Invalid Request", err.Error())
			return
		}
		days := daysParam(c)
		slog.Info("Fetching database errors", "server", server, "days", days)

		entries, err := svc.QueryServer(c.Request.Context(), server, days)
		if err != nil {
			slog.Error("Error fetching database errors", "server", server, "error", err)
			serverError(c, "Failed to fetch database errors from "+server, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"totalErrors": len(entries),
			"days":        dberrors.ClampDays(days),
			"server":      server,
			"queriedAt":   time.Now().Format(time.RFC3339),
			"errors":      entries,
		})
	}
}

// ExportDatabaseErrors streams all servers' errors as a CSV download.
func ExportDatabaseErrors(svc *dberrors.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		days := daysParam(c)
		slog.Info("Exporting database errors", "days", days)

		entries, _ := svc.QueryAllServers(c.Request.Context(), days)
		var buf bytes.Buffer
		if err := dberrors.WriteCSV(&buf, entries); err != nil {
			serverError(c, "Failed to export database errors", err)
			return
		}
		filename := dberrors.ExportFilename(time.Now())
		c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
		c.Data(http.StatusOK, "text/csv", buf.Bytes())
	}
}

// DatabaseErrorServers lists the configured servers with a
// connectivity probe per server.
func DatabaseErrorServers(svc *dberrors.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		slog.Info("Testing database error server connections")
		c.JSON(http.StatusOK, gin.H{
			"servers":         svc.Servers(),
			"connectionTests": svc.TestAllConnections(c.Request.Context()),
		})
	}
}
