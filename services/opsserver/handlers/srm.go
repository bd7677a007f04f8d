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

	"github.com/gin-gonic/gin"
	"github.com/roadrats/wmsops/services/srm"
)

// SrmScheduledVersion returns the recent route calendar versions and
// the scheduled one.
func SrmScheduledVersion(client *srm.APIClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := client.ScheduledVersions(c.Request.Context())
		if !result.Success {
			c.JSON(http.StatusInternalServerError, result)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// SrmDeltaSummary returns the delta tables plus the computed rollup
// for one version.
func SrmDeltaSummary(client *srm.APIClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		versionID, err := strconv.Atoi(c.Query("versionId"))
		if err != nil {
			badRequest(c, "Invalid parameter", "versionId must be an integer")
			return
		}
		result := client.DeltaSummary(c.Request.Context(), versionID)
		if !result.Success {
			c.JSON(http.StatusInternalServerError, result)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// SrmDownload prepares the staging directory and unpacks any archives
// already placed there.
func SrmDownload(files *srm.FileService) gin.HandlerFunc {
	return func(c *gin.Context) {
		slog.Info("SRM download requested")
		extracted, err := files.ExtractArchives()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
			return
		}
		status := files.Verify(false)
		if !status.Success {
			c.JSON(http.StatusInternalServerError, status)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":           true,
			"extractedArchives": extracted,
			"fileCount":         status.FileCount,
			"csvFileCount":      status.CsvFileCount,
			"localPath":         status.LocalPath,
			"message":           status.Message,
		})
	}
}

// SrmCopyToLocal unpacks downloaded archives into route CSVs.
func SrmCopyToLocal(files *srm.FileService) gin.HandlerFunc {
	return func(c *gin.Context) {
		extracted, err := files.ExtractArchives()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
			return
		}
		status := files.Verify(false)
		status.Message = "Extracted " + strconv.Itoa(extracted) + " archive(s) to " + status.LocalPath
		c.JSON(http.StatusOK, status)
	}
}

// SrmCheckExisting reports whether staged route files are present.
func SrmCheckExisting(files *srm.FileService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"hasExistingFiles": files.HasExistingFiles(),
			"localPath":        files.LocalPath(),
		})
	}
}

// SrmLoadExisting verifies previously staged files; 404 when none are
// there.
func SrmLoadExisting(files *srm.FileService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !files.HasExistingFiles() {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error":   "No existing SRM files found in " + files.LocalPath(),
			})
			return
		}
		status := files.Verify(false)
		if !status.Success {
			c.JSON(http.StatusInternalServerError, status)
			return
		}
		c.JSON(http.StatusOK, status)
	}
}

// SrmRoutes lists the staged route files.
func SrmRoutes(files *srm.FileService) gin.HandlerFunc {
	return func(c *gin.Context) {
		routes := files.RouteList()
		c.JSON(http.StatusOK, gin.H{
			"totalRoutes": len(routes),
			"routes":      routes,
		})
	}
}

// SrmRouteContents parses one staged route file.
func SrmRouteContents(files *srm.FileService) gin.HandlerFunc {
	return func(c *gin.Context) {
		contents := files.RouteContents(c.Param("routeName"))
		if contents.Error != "" {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": contents.Error})
			return
		}
		c.JSON(http.StatusOK, contents)
	}
}

// SrmValidate compares the staged route files against the production
// routing guides.
func SrmValidate(svc *srm.ValidationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := svc.Validate(c.Request.Context())
		if !result.Success {
			c.JSON(http.StatusInternalServerError, result)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// SrmExecuteFullProcess runs extraction, verification, and validation
// in one shot.
func SrmExecuteFullProcess(files *srm.FileService, validator *srm.ValidationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		slog.Info("SRM full process requested")
		extracted, err := files.ExtractArchives()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
			return
		}
		status := files.Verify(false)
		if !status.Success {
			c.JSON(http.StatusInternalServerError, status)
			return
		}
		result := validator.Validate(c.Request.Context())
		if !result.Success {
			c.JSON(http.StatusInternalServerError, result)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":           true,
			"extractedArchives": extracted,
			"fileCount":         status.FileCount,
			"validation":        result,
		})
	}
}
