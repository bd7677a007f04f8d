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
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/roadrats/wmsops/services/jira"
	"github.com/roadrats/wmsops/services/releases"
)

const maxDeploymentDates = 12

func normalizeChg(chgNumber string) string {
	normalized := strings.ToUpper(strings.TrimSpace(chgNumber))
	if !strings.HasPrefix(normalized, "CHG") {
		normalized = "CHG" + normalized
	}
	return normalized
}

// ConfigStatus reports whether the issue-tracker credentials are set.
func ConfigStatus(client *jira.Client, cfg jira.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"configured":      client.Configured(),
			"jiraBaseUrl":     cfg.BaseURL,
			"userConfigured":  cfg.User != "",
			"tokenConfigured": cfg.Token != "",
		})
	}
}

// DeploymentPlan builds a plan for one CHG label.
func DeploymentPlan(client *jira.Client, planner *releases.Planner) gin.HandlerFunc {
	return func(c *gin.Context) {
		chg := c.Query("chg")
		if chg == "" {
			badRequest(c, "Missing parameter", "Provide a 'chg' query parameter")
			return
		}
		if !client.Configured() {
			configError(c, "Jira credentials are not configured")
			return
		}
		normalized := normalizeChg(chg)
		slog.Info("Deployment plan requested", "chg", normalized)

		plan, err := planner.PlanForChg(c.Request.Context(), normalized)
		if err != nil {
			serverError(c, "Failed to build deployment plan", err)
			return
		}
		c.JSON(http.StatusOK, plan)
	}
}

// Tickets returns the raw ticket list for one CHG label without plan
// grouping.
func Tickets(client *jira.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		chg := c.Query("chg")
		if chg == "" {
			badRequest(c, "Missing parameter", "Provide a 'chg' query parameter")
			return
		}
		if !client.Configured() {
			configError(c, "Jira credentials are not configured")
			return
		}
		normalized := normalizeChg(chg)

		tickets, err := client.SearchJQL(c.Request.Context(), releases.BuildChgJql(normalized), normalized)
		if err != nil {
			serverError(c, "Failed to fetch tickets", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"label":   normalized,
			"total":   len(tickets),
			"tickets": tickets,
		})
	}
}

// ReleasePlan builds a plan for a deployment Thursday. Without a date
// parameter the next deployment in the biweekly cycle is used.
func ReleasePlan(client *jira.Client, planner *releases.Planner, cfg releases.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !client.Configured() {
			configError(c, "Jira credentials are not configured")
			return
		}

		var deploymentDate time.Time
		var err error
		if dateStr := c.Query("date"); dateStr != "" {
			deploymentDate, err = time.Parse("2006-01-02", dateStr)
			if err != nil {
				badRequest(c, "Invalid date", "Expected yyyy-MM-dd, got "+dateStr)
				return
			}
		} else {
			offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
			deploymentDate, err = cfg.DeploymentThursday(time.Now(), offset)
			if err != nil {
				configError(c, err.Error())
				return
			}
		}

		jql := releases.BuildReleaseJql(deploymentDate)
		label := "Release " + deploymentDate.Format("01-02")
		slog.Info("Release plan requested", "label", label, "jql", jql)

		plan, err := planner.PlanForJql(c.Request.Context(), jql, label)
		if err != nil {
			serverError(c, "Failed to build release plan", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"deploymentDate":   deploymentDate.Format("2006-01-02"),
			"fixVersionSunday": releases.FixVersionSunday(deploymentDate).Format("2006-01-02"),
			"jql":              jql,
			"plan":             plan,
		})
	}
}

// Presets lists the canned pipeline filters in display order.
func Presets(c *gin.Context) {
	presets := releases.Presets()
	result := make([]gin.H, 0, len(presets))
	for _, key := range releases.PresetOrder {
		preset, ok := presets[key]
		if !ok {
			continue
		}
		result = append(result, gin.H{
			"key":         key,
			"name":        preset.Name,
			"description": preset.Description,
			"jql":         preset.JQL,
		})
	}
	c.JSON(http.StatusOK, gin.H{"presets": result})
}

// PresetPlan runs one preset filter and builds a plan from the result.
func PresetPlan(client *jira.Client, planner *releases.Planner) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.ToLower(c.Query("preset"))
		preset, ok := releases.Presets()[key]
		if !ok {
			available := make([]string, len(releases.PresetOrder))
			copy(available, releases.PresetOrder)
			sort.Strings(available)
			badRequest(c, "Unknown preset",
				"Preset '"+key+"' not found. Available: "+strings.Join(available, ", "))
			return
		}
		if !client.Configured() {
			configError(c, "Jira credentials are not configured")
			return
		}
		slog.Info("Preset plan requested", "preset", key, "name", preset.Name)

		plan, err := planner.PlanForJql(c.Request.Context(), preset.JQL, "Preset:"+preset.Name)
		if err != nil {
			serverError(c, "Failed to execute preset filter", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"preset":      key,
			"name":        preset.Name,
			"description": preset.Description,
			"jql":         preset.JQL,
			"plan":        plan,
		})
	}
}

type customPlanRequest struct {
	JQL   string `json:"jql"`
	Label string `json:"label"`
}

// CustomPlan runs arbitrary JQL and builds a plan from the result.
func CustomPlan(client *jira.Client, planner *releases.Planner) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req customPlanRequest
		if err := c.BindJSON(&req); err != nil {
			badRequest(c, "Invalid request body", err.Error())
			return
		}
		req.JQL = strings.TrimSpace(req.JQL)
		if req.JQL == "" {
			badRequest(c, "Missing JQL", "Provide a 'jql' field in the request body")
			return
		}
		if req.Label == "" {
			req.Label = "Custom JQL"
		}
		if !client.Configured() {
			configError(c, "Jira credentials are not configured")
			return
		}
		slog.Info("Custom JQL plan requested", "label", req.Label, "jql", req.JQL)

		plan, err := planner.PlanForJql(c.Request.Context(), req.JQL, req.Label)
		if err != nil {
			serverError(c, "Failed to execute custom JQL", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"label": req.Label,
			"jql":   req.JQL,
			"plan":  plan,
		})
	}
}

// DeploymentDates lists upcoming deployment Thursdays, capped at 12.
func DeploymentDates(cfg releases.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		count, err := strconv.Atoi(c.DefaultQuery("count", "4"))
		if err != nil || count < 1 {
			count = 4
		}
		if count > maxDeploymentDates {
			count = maxDeploymentDates
		}
		dates, err := cfg.UpcomingDeployments(time.Now(), count)
		if err != nil {
			configError(c, err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"count":       len(dates),
			"deployments": dates,
		})
	}
}

// DeploymentYears lists year folders under the deployments share.
func DeploymentYears(svc *releases.FolderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		years, err := svc.ListYears()
		if err != nil {
			serverError(c, "Failed to list deployment years", err)
			return
		}
		c.JSON(http.StatusOK, years)
	}
}

func DeploymentMonths(svc *releases.FolderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		year := c.Query("year")
		if year == "" {
			badRequest(c, "Missing parameter", "Provide a 'year' query parameter")
			return
		}
		months, err := svc.ListMonths(year)
		if err != nil {
			serverError(c, "Failed to list months", err)
			return
		}
		c.JSON(http.StatusOK, months)
	}
}

func DeploymentReleases(svc *releases.FolderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		year := c.Query("year")
		month := c.Query("month")
		if year == "" || month == "" {
			badRequest(c, "Missing parameters", "Provide 'year' and 'month' query parameters")
			return
		}
		folders, err := svc.ListReleases(year, month)
		if err != nil {
			serverError(c, "Failed to list releases", err)
			return
		}
		c.JSON(http.StatusOK, folders)
	}
}

func DeploymentContents(svc *releases.FolderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Query("path")
		if path == "" {
			badRequest(c, "Missing parameter", "Provide a 'path' query parameter")
			return
		}
		contents, err := svc.FolderContents(path)
		if err != nil {
			serverError(c, "Failed to read folder contents", err)
			return
		}
		c.JSON(http.StatusOK, contents)
	}
}

func DeploymentFile(svc *releases.FolderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Query("path")
		if path == "" {
			badRequest(c, "Missing parameter", "Provide a 'path' query parameter")
			return
		}
		content, err := svc.ReadFile(path)
		if err != nil {
			serverError(c, "Failed to read file", err)
			return
		}
		c.JSON(http.StatusOK, content)
	}
}

// ActionRuns lists recent workflow runs, defaulting to the configured
// deployment workflow.
func ActionRuns(svc *releases.ActionsService, cfg releases.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		workflow := c.Query("workflow")
		if workflow == "" {
			workflow = cfg.GithubWorkflow
		}
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
		if err != nil || limit < 1 {
			limit = 20
		}
		runs, err := svc.ListRuns(c.Request.Context(), workflow, limit)
		if err != nil {
			serverError(c, "Failed to list GitHub Actions runs", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"workflow": workflow, "runs": runs})
	}
}

func ActionRunDetails(svc *releases.ActionsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		runID, err := strconv.ParseInt(c.Param("runId"), 10, 64)
		if err != nil {
			badRequest(c, "Invalid run id", c.Param("runId"))
			return
		}
		details, err := svc.RunDetails(c.Request.Context(), runID)
		if err != nil {
			serverError(c, "Failed to get run details", err)
			return
		}
		c.JSON(http.StatusOK, details)
	}
}

func ActionRunJobs(svc *releases.ActionsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		runID, err := strconv.ParseInt(c.Param("runId"), 10, 64)
		if err != nil {
			badRequest(c, "Invalid run id", c.Param("runId"))
			return
		}
		jobs, err := svc.RunJobs(c.Request.Context(), runID)
		if err != nil {
			serverError(c, "Failed to get run jobs", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"jobs": jobs})
	}
}

func ActionWorkflows(svc *releases.ActionsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		workflows, err := svc.ListWorkflows(c.Request.Context())
		if err != nil {
			serverError(c, "Failed to list workflows", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"workflows": workflows})
	}
}

type triggerRequest struct {
	Workflow string            `json:"workflow"`
	Inputs   map[string]string `json:"inputs"`
}

// TriggerWorkflow dispatches a workflow run.
func TriggerWorkflow(svc *releases.ActionsService, cfg releases.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req triggerRequest
		if err := c.BindJSON(&req); err != nil {
			badRequest(c, "Invalid request body", err.Error())
			return
		}
		if req.Workflow == "" {
			req.Workflow = cfg.GithubWorkflow
		}
		slog.Info("Workflow dispatch requested", "workflow", req.Workflow)

		result, err := svc.TriggerWorkflow(c.Request.Context(), req.Workflow, req.Inputs)
		if err != nil {
			serverError(c, "Failed to trigger workflow", err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
