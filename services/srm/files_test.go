// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package srm

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRouteCsv(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestRouteNameFromFile(t *testing.T) {
	assert.Equal(t, "AVP1_12101", routeNameFromFile("AVP1_12101_CLSRoute.csv"))
	assert.Equal(t, "manual", routeNameFromFile("manual.csv"))
}

func TestShipperFromFile(t *testing.T) {
	assert.Equal(t, "AVP1", shipperFromFile("AVP1_12101_CLSRoute.csv"))
	assert.Equal(t, "WFC2", shipperFromFile("WFC2_9_CLSRoute.csv"))
	assert.Equal(t, "manual", shipperFromFile("manual.csv"))
}

func TestIsRouteFile(t *testing.T) {
	assert.True(t, isRouteFile("AVP1_12101_CLSRoute.csv"))
	assert.True(t, isRouteFile("manual.csv"))
	assert.False(t, isRouteFile("notes.txt"))
	assert.False(t, isRouteFile("AVP1_12101.zip"))
}

func TestHasExistingFiles(t *testing.T) {
	dir := t.TempDir()
	svc := NewFileService(Config{LocalPath: dir})
	assert.False(t, svc.HasExistingFiles())

	writeRouteCsv(t, dir, "AVP1_12101_CLSRoute.csv", "H\nr\n")
	assert.True(t, svc.HasExistingFiles())
}

func TestVerify(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "srm")
	svc := NewFileService(Config{LocalPath: dir})

	status := svc.Verify(false)
	require.True(t, status.Success, status.Error)
	assert.Equal(t, 0, status.FileCount)

	writeRouteCsv(t, dir, "AVP1_12101_CLSRoute.csv", "H\nr\n")
	writeRouteCsv(t, dir, "notes.txt", "x")

	status = svc.Verify(false)
	require.True(t, status.Success)
	assert.Equal(t, 2, status.FileCount)
	assert.Equal(t, 1, status.CsvFileCount)
	assert.Contains(t, status.Message, "SRM files available")
}

func TestVerifyClear(t *testing.T) {
	dir := t.TempDir()
	svc := NewFileService(Config{LocalPath: dir})
	writeRouteCsv(t, dir, "AVP1_12101_CLSRoute.csv", "H\nr\n")

	status := svc.Verify(true)
	require.True(t, status.Success)
	assert.Equal(t, 0, status.FileCount)
	assert.False(t, svc.HasExistingFiles())
}

func TestExtractArchives(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "AVP1_12101.zip")

	f, err := os.Create(archivePath)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("routes/export.csv")
	require.NoError(t, err)
	_, err = w.Write([]byte("DESTINATION_ZIP,SHIPPING_METHOD\n19111,FEDEX_GROUND\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	svc := NewFileService(Config{LocalPath: dir})
	extracted, err := svc.ExtractArchives()
	require.NoError(t, err)
	assert.Equal(t, 1, extracted)

	_, err = os.Stat(archivePath)
	assert.True(t, os.IsNotExist(err))

	data, err := os.ReadFile(filepath.Join(dir, "AVP1_12101_CLSRoute.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "19111,FEDEX_GROUND")
}

func TestExtractArchivesNoCsvInside(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "empty.zip")

	f, err := os.Create(archivePath)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	_, err = zw.Create("readme.txt")
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	svc := NewFileService(Config{LocalPath: dir})
	extracted, err := svc.ExtractArchives()
	require.NoError(t, err)
	assert.Equal(t, 0, extracted)

	// Failed archives stay on disk for inspection.
	_, err = os.Stat(archivePath)
	assert.NoError(t, err)
}

func TestRouteList(t *testing.T) {
	dir := t.TempDir()
	writeRouteCsv(t, dir, "CFF1_12101_CLSRoute.csv",
		"DESTINATION_ZIP,SHIPPING_METHOD\n60601,FEDEX_GROUND\n60602,FEDEX_GROUND\n")
	writeRouteCsv(t, dir, "AVP1_12101_CLSRoute.csv",
		"DESTINATION_ZIP,SHIPPING_METHOD\n19111,FEDEX_GROUND\n")
	writeRouteCsv(t, dir, "notes.txt", "x")

	svc := NewFileService(Config{LocalPath: dir})
	routes := svc.RouteList()
	require.Len(t, routes, 2)
	assert.Equal(t, "AVP1_12101", routes[0].RouteName)
	assert.Equal(t, 1, routes[0].RowCount)
	assert.Equal(t, "CFF1_12101", routes[1].RouteName)
	assert.Equal(t, 2, routes[1].RowCount)
	assert.NotEmpty(t, routes[0].LastModified)
}

func TestRouteContents(t *testing.T) {
	dir := t.TempDir()
	writeRouteCsv(t, dir, "AVP1_12101_CLSRoute.csv",
		"DESTINATION_ZIP, SHIPPING_METHOD ,TRANSIT_DAYS\n19111, FEDEX_GROUND ,2\n")

	svc := NewFileService(Config{LocalPath: dir})
	contents := svc.RouteContents("AVP1_12101")
	require.Empty(t, contents.Error)
	assert.Equal(t, []string{"DESTINATION_ZIP", "SHIPPING_METHOD", "TRANSIT_DAYS"}, contents.Headers)
	require.Len(t, contents.Rows, 1)
	assert.Equal(t, "FEDEX_GROUND", contents.Rows[0]["SHIPPING_METHOD"])
	assert.Equal(t, 1, contents.RowCount)
	assert.Equal(t, 3, contents.ColumnCount)
}

func TestRouteContentsPrefixMatch(t *testing.T) {
	dir := t.TempDir()
	writeRouteCsv(t, dir, "AVP1_12101_CLSRoute.csv", "H\nr\n")

	svc := NewFileService(Config{LocalPath: dir})
	contents := svc.RouteContents("AVP1")
	assert.Empty(t, contents.Error)
	assert.Equal(t, 1, contents.RowCount)
}

func TestRouteContentsNotFound(t *testing.T) {
	svc := NewFileService(Config{LocalPath: t.TempDir()})
	contents := svc.RouteContents("NOPE")
	assert.Contains(t, contents.Error, "Route file not found")
}
