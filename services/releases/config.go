// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package releases plans bi-weekly WMS deployments. It builds the JQL
// the release process runs, computes the deployment calendar from a
// baseline Thursday, groups Jira tickets into a deployment plan, and
// browses the deployment share for past releases.
package releases

import (
	"fmt"
	"time"
)

// Config carries the release planner settings. The baseline deployment
// anchors the 14-day cycle; every valid deployment Thursday is a whole
// number of cycles away from it.
type Config struct {
	LogsPath           string `env:"LOGS_PATH"`
	DeploymentsPath    string `env:"DEPLOYMENTS_PATH"`
	GithubRepo         string `env:"GITHUB_REPO"`
	GithubWorkflow     string `env:"GITHUB_WORKFLOW" envDefault:"build-stage-deploy-package-by-CHG.yaml"`
	BaselineDeployment string `env:"BASELINE_DEPLOYMENT" envDefault:"2026-02-19"`
}

const cycleLength = 14

// BuildChgJql returns the query for all buildable tickets carrying a
// CHG label.
func BuildChgJql(chgNumber string) string {
	return fmt.Sprintf(
		`(project = "WMS Development" OR project = "WMS Rx") `+
			`AND (issuetype = Bug OR issuetype = Story OR issuetype = Task) `+
			`AND labels = %s `+
			`AND labels != ExcludeFromBuild ORDER BY key ASC`,
		chgNumber)
}

// BuildReleaseJql returns the query for a standard release on the given
// deployment Thursday. The fix version names the Sunday four days
// before, in M/d/yyyy form.
func BuildReleaseJql(deploymentDate time.Time) string {
	fixVersionSunday := deploymentDate.AddDate(0, 0, -4)
	fixVersionDate := shortDate(fixVersionSunday)
	return fmt.Sprintf(
		`(project = 'WMS Development' OR project = 'WMS Rx') `+
			`AND issuetype in standardIssueTypes() `+
			`AND fixVersion in ('WMS Week of %s', 'WMSRx Week of %s') `+
			`AND 'Planned Deployment Date[Date]' = '%s'`,
		fixVersionDate, fixVersionDate, deploymentDate.Format("2006-01-02"))
}

// shortDate formats without zero padding, M/d/yyyy.
func shortDate(t time.Time) string {
	return fmt.Sprintf("%d/%d/%d", int(t.Month()), t.Day(), t.Year())
}

// DeploymentThursday returns the deployment date offset whole cycles
// from the next one. Offset 0 is the next upcoming Thursday on the
// cycle, 1 the one after, -1 the previous.
func (c Config) DeploymentThursday(now time.Time, offset int) (time.Time, error) {
	baseline, err := time.Parse("2006-01-02", c.BaselineDeployment)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid baseline deployment date %q: %w", c.BaselineDeployment, err)
	}
	today := now.Truncate(24 * time.Hour)

	daysUntilThursday := (int(time.Thursday) - int(today.Weekday()) + 7) % 7
	nextThursday := today.AddDate(0, 0, daysUntilThursday)

	daysSinceBaseline := int(nextThursday.Sub(baseline).Hours() / 24)
	cycles := daysSinceBaseline / cycleLength
	if daysSinceBaseline < 0 && daysSinceBaseline%cycleLength != 0 {
		cycles--
	}
	candidate := baseline.AddDate(0, 0, cycles*cycleLength)
	if candidate.Before(nextThursday) {
		candidate = candidate.AddDate(0, 0, cycleLength)
	}
	return candidate.AddDate(0, 0, offset*cycleLength), nil
}

// FixVersionSunday is four days before the deployment Thursday.
func FixVersionSunday(deploymentDate time.Time) time.Time {
	return deploymentDate.AddDate(0, 0, -4)
}

// UpcomingDeployment describes one entry of the deployment calendar.
type UpcomingDeployment struct {
	Label            string `json:"label"`
	DeploymentDate   string `json:"deploymentDate"`
	FixVersionSunday string `json:"fixVersionSunday"`
	FixVersionWMS    string `json:"fixVersionWMS"`
	FixVersionWMSRx  string `json:"fixVersionWMSRx"`
	ReleaseBranch    string `json:"releaseBranch"`
}

// UpcomingDeployments lists the next count deployment dates with their
// fix versions and release branch names.
func (c Config) UpcomingDeployments(now time.Time, count int) ([]UpcomingDeployment, error) {
	out := make([]UpcomingDeployment, 0, count)
	for i := 0; i < count; i++ {
		deployDate, err := c.DeploymentThursday(now, i)
		if err != nil {
			return nil, err
		}
		fixSunday := FixVersionSunday(deployDate)
		label := "Next"
		if i > 0 {
			label = fmt.Sprintf("Next +%d", i)
		}
		out = append(out, UpcomingDeployment{
			Label:            label,
			DeploymentDate:   deployDate.Format("2006-01-02"),
			FixVersionSunday: fixSunday.Format("2006-01-02"),
			FixVersionWMS:    "WMS Week of " + shortDate(fixSunday),
			FixVersionWMSRx:  "WMSRx Week of " + shortDate(fixSunday),
			ReleaseBranch:    "release-" + deployDate.Format("01-02"),
		})
	}
	return out, nil
}
