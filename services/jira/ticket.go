// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package jira is a thin client for the Jira Cloud REST API v3. It runs
// JQL searches and flattens each issue into a deployment-oriented
// ticket: component categories, linked issues, and the custom fields
// the release process cares about.
package jira

import "strings"

// Ticket is one flattened Jira issue.
type Ticket struct {
	Jira                  string `json:"jira"`
	URL                   string `json:"url"`
	Assignee              string `json:"assignee"`
	DevTeam               string `json:"devTeam"`
	ProductManager        string `json:"productManager"`
	DowntimeRequired      string `json:"downtimeRequired"`
	Status                string `json:"status"`
	Title                 string `json:"title"`
	PlannedDeploymentDate string `json:"plannedDeploymentDate"`
	Resolution            string `json:"resolution"`
	Labels                string `json:"labels"`

	// Component categories, comma-joined, "" when none apply.
	Architect       string `json:"architect"`
	DDL             string `json:"ddl"`
	DML             string `json:"dml"`
	Web             string `json:"web"`
	ChewyWmsGateway string `json:"chewyWmsGateway"`
	Fitnesse        string `json:"fitnesse"`
	NonStandard     string `json:"nonStandard"`

	// Linked issues keyed by relationship ("blocks", "created by", ...).
	LinkedIssues map[string][]string `json:"linkedIssues"`

	Description        string `json:"description"`
	ImplementationPlan string `json:"implementationPlan"`
}

// HasComponents reports whether any component category matched.
func (t Ticket) HasComponents() bool {
	for _, v := range []string{t.Architect, t.DDL, t.DML, t.Web,
		t.ChewyWmsGateway, t.Fitnesse, t.NonStandard} {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

// RequiresDowntime reports whether the downtime flag is set to anything
// other than the explicit "No Downtime" value.
func (t Ticket) RequiresDowntime() bool {
	return t.DowntimeRequired != "" &&
		!strings.EqualFold(t.DowntimeRequired, "No Downtime")
}
