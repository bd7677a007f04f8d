// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// maxContextChars bounds the serialized page data included in a prompt,
// roughly 2000 tokens.
const maxContextChars = 8000

// systemPrompt picks the assistant persona for a page type.
func systemPrompt(pageType string) string {
	switch pageType {
	case "srm-download":
		return "You are an expert in SRM (Supply Route Management) file validation and route management. " +
			"You help analyze SRM route files, identify validation errors, and provide insights about route data."
	case "database-errors":
		return "You are an expert in SQL Server error analysis and troubleshooting. " +
			"You help analyze database errors, identify patterns, and suggest solutions for database issues."
	case "cls-management":
		return "You are an expert in WMS (Warehouse Management System) CLS (Carrier Load Selection) queue management and routing. " +
			"You help analyze CLS queue data, identify stuck orders, and provide insights about routing issues."
	case "release-manager":
		return "You are an expert in deployment planning and Jira ticket management. " +
			"You help analyze deployment plans, summarize release information, and provide insights about deployment schedules."
	default:
		return "You are a helpful assistant that analyzes data and provides insights."
	}
}

// contextPrompt serializes the page data for inclusion in a prompt,
// truncating oversized payloads.
func contextPrompt(pageType string, pageData map[string]any) string {
	data, err := json.MarshalIndent(pageData, "", "  ")
	if err != nil {
		slog.Error("Error serializing page data", "pageType", pageType, "error", err)
		return fmt.Sprintf("Page data for %s is available but could not be serialized.", pageType)
	}
	dataJSON := string(data)
	if len(dataJSON) > maxContextChars {
		slog.Warn("Page data truncated for prompt",
			"pageType", pageType, "chars", len(dataJSON), "limit", maxContextChars)
		dataJSON = dataJSON[:maxContextChars] + "\n\n... (data truncated due to size limits)"
	}
	return fmt.Sprintf(
		"Here is the current page data for %s:\n\n%s\n\nUse this data to answer questions and provide context-aware responses.",
		pageType, dataJSON)
}

func analysisPrompt(pageType string, pageData map[string]any, userQuery string) string {
	return contextPrompt(pageType, pageData) +
		"\n\nUser query: " + userQuery +
		"\n\nPlease analyze the data and provide a detailed response to the user's query."
}

func summaryPrompt(pageType string, pageData map[string]any) string {
	return contextPrompt(pageType, pageData) +
		"\n\nPlease provide a concise summary of the key information in this data. " +
		"Focus on the most important points, statistics, and any notable issues or patterns."
}
