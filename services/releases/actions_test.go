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
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubActions(cfg Config, output string, capture *[]string) *ActionsService {
	s := NewActionsService(cfg)
	s.run = func(_ context.Context, args ...string) (string, error) {
		*capture = append(*capture, strings.Join(args, " "))
		return output, nil
	}
	return s
}

func TestListRuns(t *testing.T) {
	var calls []string
	s := stubActions(Config{GithubRepo: "org/wms-deployments"},
		`[{"databaseId": 7, "status": "completed", "workflowName": "build"}]`, &calls)

	runs, err := s.ListRuns(context.Background(), "build.yaml", 100)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "completed", runs[0]["status"])

	require.Len(t, calls, 1)
	assert.Contains(t, calls[0], "run list --repo org/wms-deployments")
	// Limit caps at 50.
	assert.Contains(t, calls[0], "--limit 50")
	assert.Contains(t, calls[0], "--workflow build.yaml")
}

func TestRunJobs(t *testing.T) {
	var calls []string
	s := stubActions(Config{GithubRepo: "org/wms-deployments"},
		`{"databaseId": 7, "jobs": [{"name": "build"}, {"name": "deploy"}]}`, &calls)

	jobs, err := s.RunJobs(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "deploy", jobs[1]["name"])
	assert.Contains(t, calls[0], "run view --repo org/wms-deployments 7")
}

func TestTriggerWorkflow(t *testing.T) {
	var calls []string
	s := stubActions(Config{
		GithubRepo:     "org/wms-deployments",
		GithubWorkflow: "build-stage-deploy-package-by-CHG.yaml",
	}, "", &calls)

	got, err := s.TriggerWorkflow(context.Background(), "", map[string]string{"CHGNumber": "CHG0261540"})
	require.NoError(t, err)
	assert.True(t, got.Triggered)
	// Empty workflow falls back to the configured default.
	assert.Equal(t, "build-stage-deploy-package-by-CHG.yaml", got.Workflow)
	assert.Contains(t, calls[0], "workflow run build-stage-deploy-package-by-CHG.yaml")
	assert.Contains(t, calls[0], "-f CHGNumber=CHG0261540")
}

func TestActionsRepoNotConfigured(t *testing.T) {
	s := NewActionsService(Config{})
	_, err := s.ListRuns(context.Background(), "", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}
