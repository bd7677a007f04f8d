// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package releases

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestShare(t *testing.T) (*FolderService, string) {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "2026/02-FEB/release-02-19/notes.txt"), "notes")
	writeFile(t, filepath.Join(root, "2026/02-FEB/CHG0261540/DDL/deploy_adv.sql"), "ALTER TABLE")
	writeFile(t, filepath.Join(root, "2026/02-FEB/CHG0261540/DDL/rollback_adv.sql"), "DROP")
	writeFile(t, filepath.Join(root, "2026/02-FEB/CHG0261540/Web/site.config"), "<cfg/>")
	writeFile(t, filepath.Join(root, "2026/02-FEB/CHG0261540/deploy.ps1"), "Write-Host hi")
	writeFile(t, filepath.Join(root, "2026/01-JAN/release-01-08/run.log"), "ok")
	writeFile(t, filepath.Join(root, "2025/12-DEC/release-12-11/run.log"), "ok")
	return NewFolderService(Config{DeploymentsPath: root}), root
}

func TestListYearsAndMonths(t *testing.T) {
	svc, _ := newTestShare(t)

	years, err := svc.ListYears()
	require.NoError(t, err)
	assert.Equal(t, []string{"2026", "2025"}, years)

	months, err := svc.ListMonths("2026")
	require.NoError(t, err)
	assert.Equal(t, []string{"02-FEB", "01-JAN"}, months)
}

func TestListReleases(t *testing.T) {
	svc, _ := newTestShare(t)

	releases, err := svc.ListReleases("2026", "02-FEB")
	require.NoError(t, err)
	require.Len(t, releases, 2)

	// Reverse-name order puts release-* before CHG*.
	assert.Equal(t, "release-02-19", releases[0].Name)
	assert.Equal(t, "release", releases[0].Type)
	assert.Equal(t, 1, releases[0].ChildCount)

	assert.Equal(t, "CHG0261540", releases[1].Name)
	assert.Equal(t, "chg", releases[1].Type)
	assert.Equal(t, "2026/02-FEB/CHG0261540", releases[1].Path)
}

func TestFolderContentsChg(t *testing.T) {
	svc, _ := newTestShare(t)

	got, err := svc.FolderContents("2026/02-FEB/CHG0261540")
	require.NoError(t, err)

	assert.True(t, got.IsChg)
	require.NotNil(t, got.ChgSummary)
	summary := got.ChgSummary

	assert.Equal(t, "CHG0261540", summary.ChgNumber)
	assert.ElementsMatch(t, []string{"DDL", "Web"}, summary.ArtifactTypes)
	assert.Equal(t, 4, summary.FileCount)
	assert.True(t, summary.HasDeployScripts)
	assert.True(t, summary.HasRollbackScripts)

	assert.ElementsMatch(t, []string{"DDL/deploy_adv.sql", "DDL/rollback_adv.sql"}, summary.Categorized["sql"])
	assert.Equal(t, []string{"deploy.ps1"}, summary.Categorized["scripts"])
	assert.Equal(t, []string{"Web/site.config"}, summary.Categorized["config"])

	// Listing itself: two subfolders, one loose script.
	assert.Len(t, got.Folders, 2)
	assert.Equal(t, 1, got.TotalFiles)
	assert.Equal(t, "ps1", got.Files[0].Extension)
}

func TestFolderContentsRelease(t *testing.T) {
	svc, _ := newTestShare(t)

	got, err := svc.FolderContents("2026/02-FEB")
	require.NoError(t, err)
	assert.False(t, got.IsChg)
	assert.Equal(t, 1, got.ChgCount)

	// The CHG subfolder carries an inline summary.
	var chg *SubFolder
	for i := range got.Folders {
		if got.Folders[i].Type == "chg" {
			chg = &got.Folders[i]
		}
	}
	require.NotNil(t, chg)
	require.NotNil(t, chg.Summary)
	assert.Equal(t, 4, chg.Summary.FileCount)
}

func TestReadFile(t *testing.T) {
	svc, _ := newTestShare(t)

	t.Run("reads content", func(t *testing.T) {
		got, err := svc.ReadFile("2026/02-FEB/CHG0261540/deploy.ps1")
		require.NoError(t, err)
		assert.Equal(t, "deploy.ps1", got.Name)
		assert.Equal(t, "Write-Host hi", got.Content)
		assert.False(t, got.Truncated)
	})

	t.Run("rejects directories", func(t *testing.T) {
		_, err := svc.ReadFile("2026/02-FEB")
		assert.Error(t, err)
	})
}

func TestResolveRejectsEscapes(t *testing.T) {
	svc, _ := newTestShare(t)
	_, err := svc.FolderContents("../outside")
	assert.Error(t, err)
	_, err = svc.ReadFile("../../etc/passwd")
	assert.Error(t, err)
}

func TestRootNotConfigured(t *testing.T) {
	svc := NewFolderService(Config{})
	_, err := svc.ListYears()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}
