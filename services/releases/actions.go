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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ghTimeout bounds each gh CLI invocation.
const ghTimeout = 30 * time.Second

// maxRunLimit caps how many workflow runs one request can list.
const maxRunLimit = 50

// runFields is the JSON projection requested from gh for run listings.
const runFields = "databaseId,displayTitle,status,conclusion,event,headBranch,createdAt,updatedAt,url,workflowName"

// ActionsService proxies GitHub Actions through the gh CLI, which owns
// authentication. Nothing here talks to the GitHub API directly.
type ActionsService struct {
	cfg Config
	// run is swappable for tests.
	run func(ctx context.Context, args ...string) (string, error)
}

func NewActionsService(cfg Config) *ActionsService {
	s := &ActionsService{cfg: cfg}
	s.run = s.execGh
	return s
}

func (s *ActionsService) repo() (string, error) {
	if s.cfg.GithubRepo == "" {
		return "", fmt.Errorf("github repo not configured, set WMSOPS_RELEASES_GITHUB_REPO (e.g. org/wms-deployments)")
	}
	return s.cfg.GithubRepo, nil
}

// ListRuns lists recent workflow runs, optionally filtered by workflow
// file name.
func (s *ActionsService) ListRuns(ctx context.Context, workflow string, limit int) ([]map[string]any, error) {
	repo, err := s.repo()
	if err != nil {
		return nil, err
	}
	if limit > maxRunLimit {
		limit = maxRunLimit
	}
	args := []string{"run", "list",
		"--repo", repo,
		"--limit", strconv.Itoa(limit),
		"--json", runFields}
	if workflow != "" {
		args = append(args, "--workflow", workflow)
	}

	out, err := s.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	var runs []map[string]any
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		return nil, fmt.Errorf("failed to decode gh run list output: %w", err)
	}
	return runs, nil
}

// RunDetails returns one run with its jobs.
func (s *ActionsService) RunDetails(ctx context.Context, runID int64) (map[string]any, error) {
	repo, err := s.repo()
	if err != nil {
		return nil, err
	}
	out, err := s.run(ctx, "run", "view",
		"--repo", repo,
		strconv.FormatInt(runID, 10),
		"--json", runFields+",jobs")
	if err != nil {
		return nil, err
	}
	var details map[string]any
	if err := json.Unmarshal([]byte(out), &details); err != nil {
		return nil, fmt.Errorf("failed to decode gh run view output: %w", err)
	}
	return details, nil
}

// RunJobs returns the jobs array of one run.
func (s *ActionsService) RunJobs(ctx context.Context, runID int64) ([]map[string]any, error) {
	details, err := s.RunDetails(ctx, runID)
	if err != nil {
		return nil, err
	}
	rawJobs, ok := details["jobs"].([]any)
	if !ok {
		return []map[string]any{}, nil
	}
	jobs := make([]map[string]any, 0, len(rawJobs))
	for _, j := range rawJobs {
		if m, ok := j.(map[string]any); ok {
			jobs = append(jobs, m)
		}
	}
	return jobs, nil
}

// ListWorkflows lists the workflows defined in the repo.
func (s *ActionsService) ListWorkflows(ctx context.Context) ([]map[string]any, error) {
	repo, err := s.repo()
	if err != nil {
		return nil, err
	}
	out, err := s.run(ctx, "workflow", "list", "--repo", repo, "--json", "id,name,state")
	if err != nil {
		return nil, err
	}
	var workflows []map[string]any
	if err := json.Unmarshal([]byte(out), &workflows); err != nil {
		return nil, fmt.Errorf("failed to decode gh workflow list output: %w", err)
	}
	return workflows, nil
}

// TriggerResult confirms a workflow dispatch.
type TriggerResult struct {
	Triggered bool              `json:"triggered"`
	Workflow  string            `json:"workflow"`
	Inputs    map[string]string `json:"inputs"`
}

// TriggerWorkflow dispatches a workflow with the given inputs. An empty
// workflow name falls back to the configured default.
func (s *ActionsService) TriggerWorkflow(ctx context.Context, workflow string, inputs map[string]string) (TriggerResult, error) {
	repo, err := s.repo()
	if err != nil {
		return TriggerResult{}, err
	}
	if workflow == "" {
		workflow = s.cfg.GithubWorkflow
	}
	args := []string{"workflow", "run", workflow, "--repo", repo}
	for k, v := range inputs {
		args = append(args, "-f", k+"="+v)
	}
	if _, err := s.run(ctx, args...); err != nil {
		return TriggerResult{}, err
	}
	return TriggerResult{Triggered: true, Workflow: workflow, Inputs: inputs}, nil
}

func (s *ActionsService) execGh(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, ghTimeout)
	defer cancel()

	slog.Info("Executing gh", "args", strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, "gh", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("gh command timed out after %s", ghTimeout)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		slog.Error("gh command failed", "error", msg)
		return "", fmt.Errorf("gh command failed: %s", msg)
	}
	return stdout.String(), nil
}
