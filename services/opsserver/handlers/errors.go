// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the HTTP endpoints of the warehouse
// operations backend. Handlers are gin closures over the service they
// front; every failure path goes through the shared error envelope.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// errorBody builds the standard 500 envelope: context, message, and
// the causal chain walked to its root.
func errorBody(context string, err error) gin.H {
	body := gin.H{
		"error":   context,
		"message": err.Error(),
	}

	cause := errors.Unwrap(err)
	if cause != nil {
		body["cause"] = cause.Error()
	} else {
		body["cause"] = "Unknown"
	}

	root := err
	for {
		next := errors.Unwrap(root)
		if next == nil {
			break
		}
		root = next
	}
	body["rootCause"] = root.Error()

	if strings.Contains(err.Error(), "connection unavailable") ||
		strings.Contains(err.Error(), "Connection is not available") {
		body["hint"] = "Database connection pool timed out. Check if database is accessible and credentials are correct."
	}
	return body
}

func serverError(c *gin.Context, context string, err error) {
	c.JSON(http.StatusInternalServerError, errorBody(context, err))
}

func badRequest(c *gin.Context, context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": context, "message": message})
}

func configError(c *gin.Context, message string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error":   "Configuration Error",
		"message": message,
	})
}
