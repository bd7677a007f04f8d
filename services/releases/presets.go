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

// PresetFilter is a canned JQL query for a pipeline stage.
type PresetFilter struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	JQL         string `json:"jql"`
}

// PresetOrder fixes the display order of the preset filters.
var PresetOrder = []string{
	"dev", "qa", "qa-plus-complete", "review", "complete",
	"blocked", "no-fixversion", "downtime",
}

// Presets returns the canned pipeline-stage queries.
func Presets() map[string]PresetFilter {
	return map[string]PresetFilter{
		"dev": {
			Name:        "Dev",
			Description: "Issues currently in Dev status",
			JQL: `project in (WMSRX, WMS) AND (labels not in (WMS_DONOTCOMPILE) OR labels in (EMPTY)) ` +
				`AND issuetype not in (Epic, subTaskIssueTypes(), Task) ` +
				`AND resolution in (EMPTY, Done) ` +
				`AND fixVersion in (EMPTY, unreleasedVersions()) ` +
				`AND status in ("Dev")`,
		},
		"qa": {
			Name:        "QA",
			Description: "Issues in QA, Stakeholder Review, or Integration Testing",
			JQL: `project in (WMSRX, WMS) AND (labels not in (WMS_DONOTCOMPILE) OR labels in (EMPTY)) ` +
				`AND issuetype not in (Epic, subTaskIssueTypes(), Task) ` +
				`AND resolution in (EMPTY, Done) ` +
				`AND fixVersion in (EMPTY, unreleasedVersions()) ` +
				`AND status in ("QA", "Stakeholder Review", "Integration Testing")`,
		},
		"qa-plus-complete": {
			Name:        "QA + Complete",
			Description: "Issues in QA, Stakeholder Review, Integration Testing, or Complete",
			JQL: `project in (WMSRX, WMS) AND (labels not in (WMS_DONOTCOMPILE) OR labels in (EMPTY)) ` +
				`AND issuetype not in (Epic, subTaskIssueTypes(), Task) ` +
				`AND resolution in (EMPTY, Done) ` +
				`AND fixVersion in (EMPTY, unreleasedVersions()) ` +
				`AND status in ("QA", "Stakeholder Review", "Integration Testing", Complete)`,
		},
		"review": {
			Name:        "Review",
			Description: "Issues currently in Review status",
			JQL: `project in (WMSRX, WMS) AND (labels not in (WMS_DONOTCOMPILE) OR labels in (EMPTY)) ` +
				`AND issuetype not in (Epic, subTaskIssueTypes(), Task) ` +
				`AND resolution in (EMPTY, Done) ` +
				`AND fixVersion in (EMPTY, unreleasedVersions()) ` +
				`AND status in ("Review")`,
		},
		"complete": {
			Name:        "Complete",
			Description: "Issues in Complete status ready for release",
			JQL: `project in (WMSRX, WMS) AND (labels not in (WMS_DONOTCOMPILE) OR labels in (EMPTY)) ` +
				`AND issuetype not in (Epic, subTaskIssueTypes(), Task) ` +
				`AND resolution in (EMPTY, Done) ` +
				`AND fixVersion in (EMPTY, unreleasedVersions()) ` +
				`AND status in ("Complete")`,
		},
		"blocked": {
			Name:        "Blocked",
			Description: "Issues currently in Blocked status",
			JQL: `project in (WMSRX, WMS) ` +
				`AND issuetype not in (Epic, subTaskIssueTypes()) ` +
				`AND resolution = EMPTY ` +
				`AND status in ("Blocked", "Impediment")`,
		},
		"no-fixversion": {
			Name:        "Work with No Fix Version",
			Description: "Done/Complete/UAT issues missing a fix version",
			JQL: `project in ("WMS", "WMS Rx") ` +
				`AND issuetype not in (subTaskIssueTypes(), Epic) ` +
				`AND status in ("Integration Testing", "Stakeholder Review", UAT, Done, Complete) ` +
				`AND (Resolution is EMPTY OR resolution = Done) ` +
				`AND (fixversion is EMPTY) ` +
				`ORDER BY parent ASC, fixVersion, status`,
		},
		"downtime": {
			Name:        "Downtime Required",
			Description: "Issues with downtime required flag set",
			JQL: `project in (WMSRX, WMS) ` +
				`AND issuetype not in (Epic, subTaskIssueTypes()) ` +
				`AND resolution = EMPTY ` +
				`AND 'Downtime Required' is not EMPTY ` +
				`AND fixVersion in (unreleasedVersions())`,
		},
	}
}
