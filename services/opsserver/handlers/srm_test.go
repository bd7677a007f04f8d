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
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/roadrats/wmsops/services/srm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func srmRouter(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	dir := t.TempDir()
	files := srm.NewFileService(srm.Config{LocalPath: dir})
	router := gin.New()
	router.GET("/check-existing", SrmCheckExisting(files))
	router.POST("/load-existing", SrmLoadExisting(files))
	router.GET("/routes", SrmRoutes(files))
	router.GET("/routes/:routeName/contents", SrmRouteContents(files))
	router.POST("/copy-to-local", SrmCopyToLocal(files))
	return router, dir
}

func TestSrmCheckExisting(t *testing.T) {
	router, dir := srmRouter(t)

	w := perform(t, router, http.MethodGet, "/check-existing", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, false, body["hasExistingFiles"])
	assert.Equal(t, dir, body["localPath"])

	require.NoError(t, os.WriteFile(filepath.Join(dir, "AVP1_12101_CLSRoute.csv"),
		[]byte("DESTINATION_ZIP\n19111\n"), 0o644))

	w = perform(t, router, http.MethodGet, "/check-existing", "")
	body = decodeBody(t, w)
	assert.Equal(t, true, body["hasExistingFiles"])
}

func TestSrmLoadExistingEmpty(t *testing.T) {
	router, _ := srmRouter(t)
	w := perform(t, router, http.MethodPost, "/load-existing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSrmRoutesAndContents(t *testing.T) {
	router, dir := srmRouter(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "AVP1_12101_CLSRoute.csv"),
		[]byte("DESTINATION_ZIP,SHIPPING_METHOD\n19111,FEDEX_GROUND\n"), 0o644))

	w := perform(t, router, http.MethodGet, "/routes", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(1), body["totalRoutes"])

	w = perform(t, router, http.MethodGet, "/routes/AVP1_12101/contents", "")
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeBody(t, w)
	assert.Equal(t, "AVP1_12101", body["routeName"])
	assert.Equal(t, float64(1), body["rowCount"])

	w = perform(t, router, http.MethodGet, "/routes/NOPE/contents", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSrmDeltaSummaryRejectsBadVersion(t *testing.T) {
	router := gin.New()
	router.GET("/delta-summary", SrmDeltaSummary(srm.NewAPIClient(srm.Config{}, nil)))

	w := perform(t, router, http.MethodGet, "/delta-summary?versionId=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
