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
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roadrats/wmsops/services/jira"
)

// DeploymentPlan groups a CHG's tickets by deployable component and
// surfaces the risks a release captain checks by hand.
type DeploymentPlan struct {
	ChgNumber             string    `json:"chgNumber"`
	GeneratedAt           time.Time `json:"generatedAt"`
	TotalTickets          int       `json:"totalTickets"`
	DowntimeRequired      bool      `json:"downtimeRequired"`
	PlannedDeploymentDate string    `json:"plannedDeploymentDate"`

	ArchitectComponents   []ComponentGroup `json:"architectComponents"`
	DdlComponents         []ComponentGroup `json:"ddlComponents"`
	DmlComponents         []ComponentGroup `json:"dmlComponents"`
	WebComponents         []ComponentGroup `json:"webComponents"`
	GatewayComponents     []ComponentGroup `json:"gatewayComponents"`
	FitnesseComponents    []ComponentGroup `json:"fitnesseComponents"`
	NonStandardComponents []ComponentGroup `json:"nonStandardComponents"`

	AllTickets []jira.Ticket `json:"allTickets"`
	RiskFlags  []RiskFlag    `json:"riskFlags"`

	TeamBreakdown   map[string]int `json:"teamBreakdown"`
	StatusBreakdown map[string]int `json:"statusBreakdown"`
}

// ComponentGroup is the set of tickets touching one deployable artifact.
type ComponentGroup struct {
	ComponentName       string               `json:"componentName"`
	Tickets             []jira.Ticket        `json:"tickets"`
	LinkedIssueWarnings []LinkedIssueWarning `json:"linkedIssueWarnings"`
}

// LinkedIssueWarning records a link from a plan ticket to another
// issue, noting whether that issue rides in the same CHG.
type LinkedIssueWarning struct {
	SourceJira   string `json:"sourceJira"`
	LinkedJira   string `json:"linkedJira"`
	Relationship string `json:"relationship"`
	InChg        bool   `json:"inChg"`
}

// RiskFlag is one finding of the plan analyzer.
type RiskFlag struct {
	Severity    string `json:"severity"`
	Category    string `json:"category"`
	Message     string `json:"message"`
	RelatedJira string `json:"relatedJira,omitempty"`
}

// searcher is the Jira surface the planner needs.
type searcher interface {
	SearchJQL(ctx context.Context, jql, label string) ([]jira.Ticket, error)
}

// Planner builds deployment plans from Jira queries.
type Planner struct {
	cfg    Config
	client searcher
}

func NewPlanner(cfg Config, client searcher) *Planner {
	return &Planner{cfg: cfg, client: client}
}

// PlanForChg builds the plan for every ticket labeled with a CHG.
func (p *Planner) PlanForChg(ctx context.Context, chgNumber string) (DeploymentPlan, error) {
	slog.Info("Building deployment plan", "chg", chgNumber)
	tickets, err := p.client.SearchJQL(ctx, BuildChgJql(chgNumber), "CHG:"+chgNumber)
	if err != nil {
		return DeploymentPlan{}, err
	}
	return BuildPlan(tickets, chgNumber), nil
}

// PlanForJql builds the plan from an arbitrary JQL query.
func (p *Planner) PlanForJql(ctx context.Context, jql, label string) (DeploymentPlan, error) {
	slog.Info("Building deployment plan from JQL", "label", label)
	tickets, err := p.client.SearchJQL(ctx, jql, label)
	if err != nil {
		return DeploymentPlan{}, err
	}
	return BuildPlan(tickets, label), nil
}

// BuildPlan is the core grouping, independent of how the tickets were
// queried.
func BuildPlan(tickets []jira.Ticket, label string) DeploymentPlan {
	keys := make(map[string]bool, len(tickets))
	for _, t := range tickets {
		keys[t.Jira] = true
	}

	plan := DeploymentPlan{
		ChgNumber:    label,
		GeneratedAt:  time.Now(),
		TotalTickets: len(tickets),
		AllTickets:   tickets,
	}

	for _, t := range tickets {
		if t.RequiresDowntime() {
			plan.DowntimeRequired = true
			break
		}
	}
	for _, t := range tickets {
		if t.PlannedDeploymentDate != "" {
			plan.PlannedDeploymentDate = t.PlannedDeploymentDate
			break
		}
	}

	plan.ArchitectComponents = groupByComponent(tickets, func(t jira.Ticket) string { return t.Architect }, keys)
	plan.DdlComponents = groupByComponent(tickets, func(t jira.Ticket) string { return t.DDL }, keys)
	plan.DmlComponents = groupByComponent(tickets, func(t jira.Ticket) string { return t.DML }, keys)
	plan.WebComponents = groupByComponent(tickets, func(t jira.Ticket) string { return t.Web }, keys)
	plan.GatewayComponents = groupByComponent(tickets, func(t jira.Ticket) string { return t.ChewyWmsGateway }, keys)
	plan.FitnesseComponents = groupByComponent(tickets, func(t jira.Ticket) string { return t.Fitnesse }, keys)
	plan.NonStandardComponents = groupByComponent(tickets, func(t jira.Ticket) string { return t.NonStandard }, keys)

	plan.TeamBreakdown = buildBreakdown(tickets, func(t jira.Ticket) string { return t.DevTeam })
	plan.StatusBreakdown = buildBreakdown(tickets, func(t jira.Ticket) string { return t.Status })

	plan.RiskFlags = analyzeRisks(plan, keys)

	slog.Info("Deployment plan complete",
		"label", label, "tickets", len(tickets), "riskFlags", len(plan.RiskFlags))
	return plan
}

// groupByComponent buckets tickets under each component name appearing
// in the comma-joined field, preserving first-seen order.
func groupByComponent(tickets []jira.Ticket, field func(jira.Ticket) string, chgKeys map[string]bool) []ComponentGroup {
	byName := make(map[string][]jira.Ticket)
	var names []string
	for _, t := range tickets {
		value := field(t)
		if strings.TrimSpace(value) == "" {
			continue
		}
		for _, comp := range strings.Split(value, ",") {
			name := strings.TrimSpace(comp)
			if name == "" {
				continue
			}
			if _, ok := byName[name]; !ok {
				names = append(names, name)
			}
			byName[name] = append(byName[name], t)
		}
	}

	groups := make([]ComponentGroup, 0, len(names))
	for _, name := range names {
		groups = append(groups, ComponentGroup{
			ComponentName:       name,
			Tickets:             byName[name],
			LinkedIssueWarnings: checkLinkedIssues(byName[name], chgKeys),
		})
	}
	return groups
}

func checkLinkedIssues(tickets []jira.Ticket, chgKeys map[string]bool) []LinkedIssueWarning {
	var warnings []LinkedIssueWarning
	for _, t := range tickets {
		for relationship, linked := range t.LinkedIssues {
			for _, key := range linked {
				warnings = append(warnings, LinkedIssueWarning{
					SourceJira:   t.Jira,
					LinkedJira:   key,
					Relationship: relationship,
					InChg:        chgKeys[key],
				})
			}
		}
	}
	return warnings
}

func buildBreakdown(tickets []jira.Ticket, field func(jira.Ticket) string) map[string]int {
	breakdown := make(map[string]int)
	for _, t := range tickets {
		value := field(t)
		if value == "" {
			value = "(unset)"
		}
		breakdown[value]++
	}
	return breakdown
}

// analyzeRisks surfaces the checks a release captain runs by eye:
// downtime, links escaping the CHG, manual-step components, and
// tickets with no components at all.
func analyzeRisks(plan DeploymentPlan, chgKeys map[string]bool) []RiskFlag {
	var flags []RiskFlag

	if plan.DowntimeRequired {
		var downtimeJiras []string
		for _, t := range plan.AllTickets {
			if t.RequiresDowntime() {
				downtimeJiras = append(downtimeJiras, t.Jira+" ("+t.DowntimeRequired+")")
			}
		}
		flags = append(flags, RiskFlag{
			Severity: "high", Category: "downtime",
			Message: "Downtime required by: " + strings.Join(downtimeJiras, ", "),
		})
	}

	for _, t := range plan.AllTickets {
		for relationship, linked := range t.LinkedIssues {
			for _, key := range linked {
				if !chgKeys[key] {
					flags = append(flags, RiskFlag{
						Severity: "medium", Category: "linked-issue",
						Message:     t.Jira + " " + relationship + " " + key + " - NOT in CHG",
						RelatedJira: t.Jira,
					})
				}
			}
		}
	}

	if len(plan.NonStandardComponents) > 0 {
		total := 0
		for _, g := range plan.NonStandardComponents {
			total += len(g.Tickets)
		}
		flags = append(flags, RiskFlag{
			Severity: "low", Category: "non-standard",
			Message: fmt.Sprintf("%d ticket(s) have non-standard components requiring manual steps", total),
		})
	}

	noComponents := 0
	for _, t := range plan.AllTickets {
		if !t.HasComponents() {
			noComponents++
		}
	}
	if noComponents > 0 {
		flags = append(flags, RiskFlag{
			Severity: "low", Category: "no-components",
			Message: fmt.Sprintf("%d ticket(s) have no components assigned", noComponents),
		})
	}

	return flags
}
