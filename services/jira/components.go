// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package jira

import "strings"

// Component-name to artifact-name mappings per deployment category.
// A component may land in more than one category (Data Upload is both
// web and non-standard).
var (
	architectMapping = map[string]string{
		"Advantage Platform - Architect":             "Advantage Platform",
		"AdvLinkFlatFile - Architect":                "AdvLinkFlatFile",
		"AdvLinkXMLHost - Architect":                 "AdvLinkXMLHost",
		"API - Architect":                            "API",
		"Autobatching - Architect":                   "Autobatching",
		"CFS - Architect":                            "CFS",
		"ChewyLinkForIntegrationService - Architect": "ChewyLinkForIntegrationService",
		"ChewyLinkForJSON - Architect":               "ChewyLinkForJSON",
		"ChewyLinkForSNS - Architect":                "ChewyLinkForSNS",
		"ChewyLinkForSockets - Architect":            "ChewyLinkForSockets",
		"ChewyLinkForXML - Architect":                "ChewyLinkForXML",
		"ChewyPlatformExt - Architect":               "Chewy Platform Ext",
		"ContainerAdv - Architect":                   "ContainerAdv",
		"Create Counts - Architect":                  "CreateCounts",
		"CVP - Architect":                            "CVP",
		"Deploy Manager - Architect":                 "DeployManager",
		"Exacta - Architect":                         "Exacta",
		"Fetch - Architect":                          "Fetch",
		"GPS - Architect":                            "GPS",
		"RF Andon - Architect":                       "RF Andon",
		"SendEmail - Architect":                      "SendEmail",
		"System Monitor - Architect":                 "System Monitor",
		"UnitSorter - Architect":                     "UnitSorter",
		"WA 2G - Architect":                          "WA 2G",
		"WA - Architect":                             "WA",
		"WA Processors - Architect":                  "WA Processors",
		"WA Processors IO - Architect":               "WA Processors IO",
		"WA Rx - Architect":                          "WA Rx",
	}

	ddlMapping = map[string]string{
		"AAD - Database":              "AAD",
		"AAD_IMPORT_ORDER - Database": "AAD_IMPORT_ORDER",
		"AAD_MASTER - Database":       "AAD_MASTER",
		"ADV - Database":              "ADV",
		"ADV IO - Database":           "ADV_IMPORT_ORDER",
		"ADV Master - Database":       "ADV_MASTER",
		"ARCH - Database":             "ARCH",
		"CLS - Database":              "CLS Database",
		"KoerberOne - Database":       "KoerberOne - Database",
		"WMS_LOG - Database":          "WMS_LOG",
		"WMS_LOG IO - Database":       "WMS_LOG IO",
		"WMS_LOG Master - Database":   "WMS_LOG Master",
	}

	dmlMapping = map[string]string{
		"DML - Database": "DML",
	}

	webMapping = map[string]string{
		"Advantage Commander - Web":  "Advantage Commander",
		"Advantage Dashboard - Web":  "Advantage Dashboard",
		"Advantage Link Admin - Web": "Advantage Link Admin",
		"Chewy Commander Ext - Web":  "Chewy Commander Ext",
		"Chewy Platform Ext - Web":   "Chewy Platform Ext",
		"Container Advantage - Web":  "Container Advantage",
		"Data Upload":                "Data Upload",
		"Deploy Manager - Web":       "DeployManager",
		"Email Notification - Web":   "Email Notification",
		"Extended VAS - Web":         "Extended VAS",
		"RF Menu Manager - Web":      "RF Menu Manager",
		"Self Service - Web":         "Self Service",
		"Send Email - Web":           "Send Email",
		"System Monitor - Web":       "System Monitor",
		"WA - Web":                   "WA",
		"WA Appointment - Web":       "WA - Appointment",
	}

	gatewayMapping = map[string]string{
		"ChewyWMSGateway": "ChewyWMSGateway",
	}

	fitnesseMapping = map[string]string{
		"FitNesse": "Fitnesse",
	}

	nonStandardMapping = map[string]string{
		"CLS Script":        "CLS Script",
		"Datahub":           "Datahub",
		"Data Upload":       "Data Upload",
		"Dynatrace":         "Dynatrace",
		"Splunk":            "Splunk",
		"WMS Server Config": "WMS Server Config",
		"AWS":               "AWS",
		"Scheduled Task":    "Scheduled Task",
		"CONTROL.INI":       "CONTROL.INI",
		"Telnet":            "Telnet",
	}
)

// mapComponents fills the ticket's category fields from raw component
// names, preserving the order the components appear on the issue.
func mapComponents(names []string, t *Ticket) {
	var architect, ddl, dml, web, gateway, fitnesse, nonStandard []string
	for _, name := range names {
		if v, ok := architectMapping[name]; ok {
			architect = append(architect, v)
		}
		if v, ok := ddlMapping[name]; ok {
			ddl = append(ddl, v)
		}
		if v, ok := dmlMapping[name]; ok {
			dml = append(dml, v)
		}
		if v, ok := webMapping[name]; ok {
			web = append(web, v)
		}
		if v, ok := gatewayMapping[name]; ok {
			gateway = append(gateway, v)
		}
		if v, ok := fitnesseMapping[name]; ok {
			fitnesse = append(fitnesse, v)
		}
		if v, ok := nonStandardMapping[name]; ok {
			nonStandard = append(nonStandard, v)
		}
	}
	t.Architect = strings.Join(architect, ",")
	t.DDL = strings.Join(ddl, ",")
	t.DML = strings.Join(dml, ",")
	t.Web = strings.Join(web, ",")
	t.ChewyWmsGateway = strings.Join(gateway, ",")
	t.Fitnesse = strings.Join(fitnesse, ",")
	t.NonStandard = strings.Join(nonStandard, ",")
}
