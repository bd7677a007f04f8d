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
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

const routeSuffix = "_CLSRoute.csv"

var versionSuffix = regexp.MustCompile(`_\d+$`)

// RouteFile describes one staged route file.
type RouteFile struct {
	RouteName    string `json:"routeName"`
	FileName     string `json:"fileName"`
	FileSize     int64  `json:"fileSize"`
	LastModified string `json:"lastModified"`
	RowCount     int    `json:"rowCount"`
}

// RouteContents is a parsed route file.
type RouteContents struct {
	RouteName   string              `json:"routeName"`
	Headers     []string            `json:"headers"`
	Rows        []map[string]string `json:"rows"`
	RowCount    int                 `json:"rowCount"`
	ColumnCount int                 `json:"columnCount"`
	Error       string              `json:"error,omitempty"`
}

// LocalStatus reports the staged files on disk.
type LocalStatus struct {
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
	Message      string `json:"message,omitempty"`
	FileCount    int    `json:"fileCount"`
	CsvFileCount int    `json:"csvFileCount"`
	LocalPath    string `json:"localPath"`
}

// FileService manages the locally staged SRM route files.
type FileService struct {
	cfg Config
}

func NewFileService(cfg Config) *FileService {
	return &FileService{cfg: cfg}
}

// LocalPath returns the staging directory.
func (s *FileService) LocalPath() string {
	return s.cfg.LocalPath
}

// HasExistingFiles reports whether any *_CLSRoute.csv files are staged.
func (s *FileService) HasExistingFiles() bool {
	entries, err := os.ReadDir(s.cfg.LocalPath)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() && isRouteFile(e.Name()) {
			return true
		}
	}
	return false
}

// Verify ensures the staging directory exists and counts its files.
// With clear set, everything staged is deleted first.
func (s *FileService) Verify(clear bool) LocalStatus {
	status := LocalStatus{LocalPath: s.cfg.LocalPath}

	if err := os.MkdirAll(s.cfg.LocalPath, 0o755); err != nil {
		status.Error = err.Error()
		return status
	}
	if clear {
		if err := s.clearLocal(); err != nil {
			status.Error = err.Error()
			return status
		}
	}

	entries, err := os.ReadDir(s.cfg.LocalPath)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	for _, e := range entries {
		status.FileCount++
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			status.CsvFileCount++
		}
	}
	status.Success = true
	status.Message = "SRM files available in " + s.cfg.LocalPath
	return status
}

func (s *FileService) clearLocal() error {
	entries, err := os.ReadDir(s.cfg.LocalPath)
	if err != nil {
		return err
	}
	deleted := 0
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(s.cfg.LocalPath, e.Name())); err != nil {
			slog.Warn("Failed to delete staged file", "file", e.Name(), "error", err)
			continue
		}
		deleted++
	}
	slog.Info("Cleared staged SRM files", "deleted", deleted)
	return nil
}

// ExtractArchives unpacks every downloaded .zip in the staging
// directory, placing each contained CSV next to it as
// <route>_CLSRoute.csv, then removes the archive.
func (s *FileService) ExtractArchives() (int, error) {
	entries, err := os.ReadDir(s.cfg.LocalPath)
	if err != nil {
		return 0, err
	}
	extracted := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".zip") {
			continue
		}
		routeName := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		archivePath := filepath.Join(s.cfg.LocalPath, e.Name())
		if err := s.extractRouteCsv(archivePath, routeName); err != nil {
			slog.Warn("Error extracting archive", "file", e.Name(), "error", err)
			continue
		}
		if err := os.Remove(archivePath); err != nil {
			slog.Warn("Failed to remove archive after extraction", "file", e.Name(), "error", err)
		}
		extracted++
	}
	return extracted, nil
}

func (s *FileService) extractRouteCsv(archivePath, routeName string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer zr.Close()

	for _, f := range zr.File {
		if !strings.HasSuffix(strings.ToLower(f.Name), ".csv") {
			continue
		}
		src, err := f.Open()
		if err != nil {
			return err
		}
		destPath := filepath.Join(s.cfg.LocalPath, routeName+routeSuffix)
		dest, err := os.Create(destPath)
		if err != nil {
			src.Close()
			return err
		}
		_, err = io.Copy(dest, src)
		src.Close()
		dest.Close()
		return err
	}
	return fmt.Errorf("no CSV found in %s", filepath.Base(archivePath))
}

// RouteList returns every staged route file with its row count, sorted
// by route name.
func (s *FileService) RouteList() []RouteFile {
	entries, err := os.ReadDir(s.cfg.LocalPath)
	if err != nil {
		return []RouteFile{}
	}

	routes := []RouteFile{}
	for _, e := range entries {
		if e.IsDir() || !isRouteFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		route := RouteFile{
			RouteName:    routeNameFromFile(e.Name()),
			FileName:     e.Name(),
			FileSize:     info.Size(),
			LastModified: info.ModTime().Format("2006-01-02 15:04:05"),
		}
		if lines, err := countLines(filepath.Join(s.cfg.LocalPath, e.Name())); err == nil && lines > 0 {
			route.RowCount = lines - 1 // minus header
		}
		routes = append(routes, route)
	}
	sort.Slice(routes, func(i, j int) bool { return routes[i].RouteName < routes[j].RouteName })
	return routes
}

// RouteContents parses one staged route file into headers and rows.
func (s *FileService) RouteContents(routeName string) RouteContents {
	path := s.findRouteFile(routeName)
	if path == "" {
		return RouteContents{Error: "Route file not found: " + routeName}
	}

	f, err := os.Open(path)
	if err != nil {
		return RouteContents{Error: "Failed to read route file: " + err.Error()}
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return RouteContents{Error: "Failed to read route file: " + err.Error()}
	}
	if len(records) == 0 {
		return RouteContents{RouteName: routeName, Headers: []string{}, Rows: []map[string]string{}}
	}

	headers := trimmed(records[0])
	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(record) {
				row[h] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, row)
	}
	return RouteContents{
		RouteName:   routeName,
		Headers:     headers,
		Rows:        rows,
		RowCount:    len(rows),
		ColumnCount: len(headers),
	}
}

func (s *FileService) findRouteFile(routeName string) string {
	entries, err := os.ReadDir(s.cfg.LocalPath)
	if err != nil {
		return ""
	}
	lower := strings.ToLower(routeName)
	var prefixMatch string
	for _, e := range entries {
		name := strings.ToLower(e.Name())
		switch {
		case name == lower+"_clsroute.csv" || name == lower+".csv":
			return filepath.Join(s.cfg.LocalPath, e.Name())
		case strings.HasPrefix(name, lower+"_") && strings.HasSuffix(name, ".csv") && prefixMatch == "":
			prefixMatch = filepath.Join(s.cfg.LocalPath, e.Name())
		}
	}
	return prefixMatch
}

// isRouteFile accepts ROUTE_VERSION_CLSRoute.csv files plus plain CSVs
// dropped in by hand.
func isRouteFile(name string) bool {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, "_clsroute.csv") {
		return true
	}
	return strings.HasSuffix(lower, ".csv") && !strings.Contains(lower, "_clsroute")
}

// routeNameFromFile strips the _CLSRoute.csv or .csv suffix.
func routeNameFromFile(name string) string {
	if strings.HasSuffix(strings.ToLower(name), strings.ToLower(routeSuffix)) {
		return name[:len(name)-len(routeSuffix)]
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// shipperFromFile additionally drops the trailing version number:
// AVP1_12101_CLSRoute.csv resolves to shipper AVP1.
func shipperFromFile(name string) string {
	return versionSuffix.ReplaceAllString(routeNameFromFile(name), "")
}

func countLines(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, nil
	}
	lines := strings.Count(string(data), "\n")
	if data[len(data)-1] != '\n' {
		lines++
	}
	return lines, nil
}

func trimmed(fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = strings.TrimSpace(f)
	}
	return out
}
