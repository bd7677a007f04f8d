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

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config carries the Jira Cloud connection settings. User and Token
// form the Basic auth pair; both must be set before any search runs.
type Config struct {
	BaseURL    string `env:"BASE_URL" envDefault:"https://chewyinc.atlassian.net"`
	User       string `env:"USER"`
	Token      string `env:"TOKEN"`
	MaxResults int    `env:"MAX_RESULTS" envDefault:"500"`
}

// Client runs JQL searches against Jira Cloud.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	// The default transport drops the Authorization header on
	// cross-host redirects, which is the behavior we want.
	return &Client{cfg: cfg, http: &http.Client{Timeout: 60 * time.Second}}
}

// Configured reports whether credentials are present.
func (c *Client) Configured() bool {
	return c.cfg.User != "" && c.cfg.Token != ""
}

// BrowseURL returns the human-facing issue URL.
func (c *Client) BrowseURL(key string) string {
	return fmt.Sprintf("%s/browse/%s", c.cfg.BaseURL, key)
}

// SearchJQL executes a JQL query and returns the flattened tickets.
// The label only decorates log lines.
func (c *Client) SearchJQL(ctx context.Context, jql, label string) ([]Ticket, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("jira credentials not configured, set WMSOPS_JIRA_USER and WMSOPS_JIRA_TOKEN")
	}

	searchURL := fmt.Sprintf("%s/rest/api/3/search/jql?fields=*all&jql=%s&maxResults=%d",
		c.cfg.BaseURL, url.QueryEscape(jql), c.cfg.MaxResults)
	slog.Info("Querying Jira", "label", label, "jqlLength", len(jql))
	slog.Debug("Jira JQL", "jql", jql)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build jira request: %w", err)
	}
	req.SetBasicAuth(c.cfg.User, c.cfg.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jira request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read jira response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		slog.Error("Jira API error", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("jira API returned status %d%s", resp.StatusCode, apiErrorSuffix(body))
	}

	var root struct {
		Issues []json.RawMessage `json:"issues"`
	}
	if err := json.Unmarshal(body, &root); err != nil {
		return nil, fmt.Errorf("failed to decode jira response: %w", err)
	}
	if root.Issues == nil {
		slog.Warn("No issues array in Jira response", "label", label)
		return []Ticket{}, nil
	}

	tickets := make([]Ticket, 0, len(root.Issues))
	for _, raw := range root.Issues {
		var issue map[string]any
		if err := json.Unmarshal(raw, &issue); err != nil {
			return nil, fmt.Errorf("failed to decode jira issue: %w", err)
		}
		tickets = append(tickets, c.parseIssue(issue))
	}
	slog.Info("Fetched tickets", "label", label, "count", len(tickets))
	return tickets, nil
}

// apiErrorSuffix pulls errorMessages out of an error body when present.
func apiErrorSuffix(body []byte) string {
	var parsed struct {
		ErrorMessages []string `json:"errorMessages"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || len(parsed.ErrorMessages) == 0 {
		return ""
	}
	return ": " + strings.Join(parsed.ErrorMessages, "; ")
}

func (c *Client) parseIssue(issue map[string]any) Ticket {
	var t Ticket
	t.Jira = textField(issue, "key")
	t.URL = c.BrowseURL(t.Jira)

	fields, _ := issue["fields"].(map[string]any)
	t.Title = textField(fields, "summary")
	t.Status = nestedText(fields, "status", "name")
	t.Resolution = nestedText(fields, "resolution", "name")
	t.Assignee = nestedText(fields, "assignee", "displayName")

	t.DevTeam = nestedText(fields, "customfield_12901", "value")
	t.ProductManager = nestedText(fields, "customfield_11700", "displayName")
	t.DowntimeRequired = nestedText(fields, "customfield_11707", "value")
	t.PlannedDeploymentDate = textField(fields, "customfield_13594")

	if labels, ok := fields["labels"].([]any); ok {
		parts := make([]string, 0, len(labels))
		for _, l := range labels {
			if s, ok := l.(string); ok {
				parts = append(parts, s)
			}
		}
		t.Labels = strings.Join(parts, ", ")
	}

	mapComponents(componentNames(fields), &t)
	t.LinkedIssues = linkedIssues(fields)
	t.Description = ExtractDocumentText(fields["description"])
	t.ImplementationPlan = ExtractDocumentText(fields["customfield_11507"])
	return t
}

func componentNames(fields map[string]any) []string {
	comps, ok := fields["components"].([]any)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(comps))
	for _, c := range comps {
		if m, ok := c.(map[string]any); ok {
			names = append(names, textField(m, "name"))
		}
	}
	return names
}

// linkedIssues groups linked keys by relationship name. Inward links
// use the inward phrasing, outward links the outward phrasing.
func linkedIssues(fields map[string]any) map[string][]string {
	links, ok := fields["issueLinks"].([]any)
	if !ok || len(links) == 0 {
		return map[string][]string{}
	}
	linked := make(map[string][]string)
	for _, l := range links {
		link, ok := l.(map[string]any)
		if !ok {
			continue
		}
		linkType, _ := link["type"].(map[string]any)
		if inward, ok := link["inwardIssue"].(map[string]any); ok {
			name := textField(linkType, "inward")
			if name == "" {
				name = "linked"
			}
			if key := textField(inward, "key"); key != "" {
				linked[name] = append(linked[name], key)
			}
		}
		if outward, ok := link["outwardIssue"].(map[string]any); ok {
			name := textField(linkType, "outward")
			if name == "" {
				name = "linked"
			}
			if key := textField(outward, "key"); key != "" {
				linked[name] = append(linked[name], key)
			}
		}
	}
	return linked
}

// ExtractDocumentText flattens an Atlassian Document Format tree into
// plain text, inserting newlines after block-level nodes.
func ExtractDocumentText(doc any) string {
	var sb strings.Builder
	extractTextRecursive(doc, &sb)
	return strings.TrimSpace(sb.String())
}

func extractTextRecursive(node any, sb *strings.Builder) {
	m, ok := node.(map[string]any)
	if !ok {
		return
	}
	if text, ok := m["text"].(string); ok {
		sb.WriteString(text)
	}
	if content, ok := m["content"].([]any); ok {
		for _, child := range content {
			extractTextRecursive(child, sb)
		}
		switch textField(m, "type") {
		case "paragraph", "listItem", "heading":
			sb.WriteString("\n")
		}
	}
}

func textField(m map[string]any, field string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[field].(string); ok {
		return s
	}
	return ""
}

func nestedText(m map[string]any, field, subField string) string {
	if m == nil {
		return ""
	}
	child, ok := m[field].(map[string]any)
	if !ok {
		return ""
	}
	return textField(child, subField)
}
