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

	"github.com/gin-gonic/gin"
	"github.com/roadrats/wmsops/services/dbconn"
)

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "UP",
		"message": "Road Rats Backend is running",
	})
}

// ConfigInfo exposes the datasource settings with secrets masked.
func ConfigInfo(cfg dbconn.Config) gin.HandlerFunc {
	masked := func(p dbconn.PoolConfig) gin.H {
		return gin.H{
			"url":      p.URL,
			"username": p.User,
			"password": "***",
		}
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"cls": masked(cfg.CLS),
			"io":  masked(cfg.IO),
		})
	}
}

// TestPool probes one named datasource and reports driver metadata.
func TestPool(factory *dbconn.Factory, name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		info := factory.Test(c.Request.Context(), name)
		status := http.StatusOK
		if !info.Connected {
			status = http.StatusInternalServerError
		}
		c.JSON(status, info)
	}
}
