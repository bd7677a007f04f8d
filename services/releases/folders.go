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
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// chgWalkDepth bounds the summary walk below a CHG folder.
const chgWalkDepth = 3

// fileReadCap bounds how much of a deployment file is returned.
const fileReadCap = 512_000

// FolderService browses the deployment share: year and month folders,
// release and CHG folders inside them, and the artifact files below.
type FolderService struct {
	cfg Config
}

func NewFolderService(cfg Config) *FolderService {
	return &FolderService{cfg: cfg}
}

// ReleaseFolder is one release or CHG folder under a month.
type ReleaseFolder struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Path       string `json:"path"`
	ChildCount int    `json:"childCount"`
}

// SubFolder is one directory inside a release folder.
type SubFolder struct {
	Name      string      `json:"name"`
	Type      string      `json:"type"`
	Path      string      `json:"path"`
	Summary   *ChgSummary `json:"summary,omitempty"`
	FileCount *int        `json:"fileCount,omitempty"`
}

// FileInfo describes one file inside a release folder.
type FileInfo struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	Extension string `json:"extension"`
	Size      int64  `json:"size"`
	Modified  int64  `json:"modified,omitempty"`
}

// FolderContents is the full listing of a release or CHG folder.
type FolderContents struct {
	Path       string      `json:"path"`
	Name       string      `json:"name"`
	FullPath   string      `json:"fullPath"`
	Folders    []SubFolder `json:"folders"`
	Files      []FileInfo  `json:"files"`
	ChgCount   int         `json:"chgCount"`
	TotalFiles int         `json:"totalFiles"`
	IsChg      bool        `json:"isChg"`
	ChgSummary *ChgSummary `json:"chgSummary,omitempty"`
}

// ChgFile is one file found while summarizing a CHG folder.
type ChgFile struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Modified int64  `json:"modified,omitempty"`
}

// ChgSummary inventories a CHG deployment folder: artifact types from
// the directory layout, files bucketed by extension, and whether
// deploy and rollback scripts are present.
type ChgSummary struct {
	ChgNumber          string              `json:"chgNumber"`
	ArtifactTypes      []string            `json:"artifactTypes"`
	FileCount          int                 `json:"fileCount"`
	Files              []ChgFile           `json:"files"`
	Categorized        map[string][]string `json:"categorized"`
	HasDeployScripts   bool                `json:"hasDeployScripts"`
	HasRollbackScripts bool                `json:"hasRollbackScripts"`
}

// FileContent is the payload of a single deployment file.
type FileContent struct {
	Path      string `json:"path"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	Truncated bool   `json:"truncated"`
	Content   string `json:"content"`
}

func (s *FolderService) root() (string, error) {
	if s.cfg.DeploymentsPath == "" {
		return "", fmt.Errorf("deployments path not configured, set WMSOPS_RELEASES_DEPLOYMENTS_PATH")
	}
	return s.cfg.DeploymentsPath, nil
}

// resolve joins a relative request path under the root and rejects
// anything that would escape it.
func (s *FolderService) resolve(relative string) (string, error) {
	root, err := s.root()
	if err != nil {
		return "", err
	}
	cleaned := filepath.Clean(filepath.FromSlash(relative))
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(os.PathSeparator)) || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid path %q", relative)
	}
	return filepath.Join(root, cleaned), nil
}

// ListYears returns the year folders, newest first.
func (s *FolderService) ListYears() ([]string, error) {
	root, err := s.root()
	if err != nil {
		return nil, err
	}
	return listDirNamesDesc(root)
}

// ListMonths returns the month folders under a year, newest first.
func (s *FolderService) ListMonths(year string) ([]string, error) {
	dir, err := s.resolve(year)
	if err != nil {
		return nil, err
	}
	return listDirNamesDesc(dir)
}

// ListReleases returns the release and CHG folders under a month,
// newest first by name.
func (s *FolderService) ListReleases(year, month string) ([]ReleaseFolder, error) {
	dir, err := s.resolve(year + "/" + month)
	if err != nil {
		return nil, err
	}
	names, err := listDirNamesDesc(dir)
	if err != nil {
		return nil, err
	}

	results := make([]ReleaseFolder, 0, len(names))
	for _, name := range names {
		entry := ReleaseFolder{
			Name: name,
			Type: folderType(name),
			Path: year + "/" + month + "/" + name,
		}
		children, err := os.ReadDir(filepath.Join(dir, name))
		if err != nil {
			entry.ChildCount = -1
		} else {
			entry.ChildCount = len(children)
		}
		results = append(results, entry)
	}
	return results, nil
}

func folderType(name string) string {
	switch {
	case strings.HasPrefix(name, "release-"):
		return "release"
	case strings.HasPrefix(name, "CHG"):
		return "chg"
	default:
		return "other"
	}
}

// FolderContents lists a release or CHG folder, summarizing CHG
// subfolders in place.
func (s *FolderService) FolderContents(relativePath string) (FolderContents, error) {
	dir, err := s.resolve(relativePath)
	if err != nil {
		return FolderContents{}, err
	}

	result := FolderContents{
		Path:     relativePath,
		Name:     filepath.Base(dir),
		FullPath: dir,
		Folders:  []SubFolder{},
		Files:    []FileInfo{},
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return FolderContents{}, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		name := entry.Name()
		full := filepath.Join(dir, name)
		if entry.IsDir() {
			child := SubFolder{Name: name, Path: relativePath + "/" + name}
			if strings.HasPrefix(name, "CHG") {
				child.Type = "chg"
				summary, err := s.buildChgSummary(full)
				if err == nil {
					child.Summary = &summary
				}
				result.ChgCount++
			} else {
				child.Type = "folder"
				count := -1
				if sub, err := os.ReadDir(full); err == nil {
					count = len(sub)
				}
				child.FileCount = &count
			}
			result.Folders = append(result.Folders, child)
		} else {
			result.Files = append(result.Files, buildFileInfo(full, relativePath, name))
		}
	}
	result.TotalFiles = len(result.Files)

	if strings.HasPrefix(result.Name, "CHG") {
		result.IsChg = true
		summary, err := s.buildChgSummary(dir)
		if err != nil {
			return FolderContents{}, err
		}
		result.ChgSummary = &summary
	}
	return result, nil
}

func (s *FolderService) buildChgSummary(chgDir string) (ChgSummary, error) {
	summary := ChgSummary{
		ChgNumber:     filepath.Base(chgDir),
		ArtifactTypes: []string{},
		Files:         []ChgFile{},
		Categorized: map[string][]string{
			"scripts": {}, "logs": {}, "data": {},
			"sql": {}, "config": {}, "other": {},
		},
	}
	seenTypes := make(map[string]bool)

	err := filepath.WalkDir(chgDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(chgDir, path)
		if relErr != nil {
			return relErr
		}
		if d.IsDir() {
			if rel != "." && strings.Count(rel, string(os.PathSeparator)) >= chgWalkDepth {
				return fs.SkipDir
			}
			return nil
		}

		relName := filepath.ToSlash(rel)
		file := ChgFile{Name: relName, Size: -1}
		if info, err := d.Info(); err == nil {
			file.Size = info.Size()
			file.Modified = info.ModTime().UnixMilli()
		}
		summary.Files = append(summary.Files, file)

		parentDir := strings.ToLower(filepath.Base(filepath.Dir(path)))
		lowerRel := strings.ToLower(relName)
		for _, artifact := range []struct{ dir, label string }{
			{"ddl", "DDL"}, {"dml", "DML"}, {"web", "Web"},
			{"architect", "Architect"}, {"gateway", "Gateway"}, {"fitnesse", "Fitnesse"},
		} {
			if parentDir == artifact.dir || strings.Contains(lowerRel, artifact.dir) {
				if !seenTypes[artifact.label] {
					seenTypes[artifact.label] = true
					summary.ArtifactTypes = append(summary.ArtifactTypes, artifact.label)
				}
			}
		}

		bucket := categorize(strings.ToLower(filepath.Base(path)))
		summary.Categorized[bucket] = append(summary.Categorized[bucket], relName)

		if strings.Contains(lowerRel, "deploy") {
			summary.HasDeployScripts = true
		}
		if strings.Contains(lowerRel, "rollback") {
			summary.HasRollbackScripts = true
		}
		return nil
	})
	if err != nil {
		return ChgSummary{}, err
	}
	summary.FileCount = len(summary.Files)
	return summary, nil
}

func categorize(fileName string) string {
	switch {
	case hasSuffixAny(fileName, ".ps1", ".psm1", ".bat", ".cmd"):
		return "scripts"
	case hasSuffixAny(fileName, ".log", ".txt"):
		return "logs"
	case hasSuffixAny(fileName, ".xml", ".json", ".csv"):
		return "data"
	case strings.HasSuffix(fileName, ".sql"):
		return "sql"
	case hasSuffixAny(fileName, ".config", ".yml", ".yaml"):
		return "config"
	default:
		return "other"
	}
}

func hasSuffixAny(s string, suffixes ...string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}

// ReadFile returns a deployment file's content, capped at fileReadCap
// bytes.
func (s *FolderService) ReadFile(relativePath string) (FileContent, error) {
	path, err := s.resolve(relativePath)
	if err != nil {
		return FileContent{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return FileContent{}, err
	}
	if !info.Mode().IsRegular() {
		return FileContent{}, fmt.Errorf("not a regular file: %s", relativePath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return FileContent{}, err
	}
	result := FileContent{
		Path: relativePath,
		Name: filepath.Base(path),
		Size: info.Size(),
	}
	if len(data) > fileReadCap {
		result.Truncated = true
		result.Content = string(data[:fileReadCap])
	} else {
		result.Content = string(data)
	}
	return result, nil
}

func buildFileInfo(full, parentRelPath, name string) FileInfo {
	info := FileInfo{
		Name: name,
		Path: parentRelPath + "/" + name,
		Size: -1,
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		info.Extension = strings.ToLower(name[i+1:])
	}
	if stat, err := os.Stat(full); err == nil {
		info.Size = stat.Size()
		info.Modified = stat.ModTime().UnixMilli()
	}
	return info
}

func listDirNamesDesc(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}
