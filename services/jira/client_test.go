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
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const issueBody = `{
  "issues": [
    {
      "key": "WMS-101",
      "fields": {
        "summary": "Fix divert confirmation",
        "status": {"name": "Complete"},
        "resolution": {"name": "Done"},
        "assignee": {"displayName": "Sam Developer"},
        "customfield_12901": {"value": "Road Rats"},
        "customfield_11700": {"displayName": "Pat Manager"},
        "customfield_11707": {"value": "Full Downtime"},
        "customfield_13594": "2026-03-05",
        "labels": ["CHG0261540", "priority"],
        "components": [
          {"name": "WA - Architect"},
          {"name": "ADV IO - Database"},
          {"name": "Data Upload"}
        ],
        "issueLinks": [
          {
            "type": {"inward": "is blocked by", "outward": "blocks"},
            "outwardIssue": {"key": "WMS-200"}
          },
          {
            "type": {"inward": "created by", "outward": "created"},
            "inwardIssue": {"key": "WMSRX-7"}
          }
        ],
        "description": {
          "type": "doc",
          "content": [
            {"type": "paragraph", "content": [{"type": "text", "text": "Line one"}]},
            {"type": "paragraph", "content": [{"type": "text", "text": "Line two"}]}
          ]
        },
        "customfield_11507": {
          "type": "doc",
          "content": [
            {"type": "paragraph", "content": [{"type": "text", "text": "Deploy WA"}]}
          ]
        }
      }
    }
  ]
}`

func TestSearchJQL(t *testing.T) {
	var gotPath, gotQuery, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(issueBody))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, User: "u", Token: "t", MaxResults: 500})
	tickets, err := c.SearchJQL(context.Background(), `labels = CHG0261540`, "CHG:CHG0261540")
	require.NoError(t, err)

	assert.Equal(t, "/rest/api/3/search/jql", gotPath)
	assert.Contains(t, gotQuery, "fields=%2Aall")
	assert.Contains(t, gotQuery, "maxResults=500")
	assert.Contains(t, gotAuth, "Basic ")

	require.Len(t, tickets, 1)
	tk := tickets[0]
	assert.Equal(t, "WMS-101", tk.Jira)
	assert.Equal(t, srv.URL+"/browse/WMS-101", tk.URL)
	assert.Equal(t, "Fix divert confirmation", tk.Title)
	assert.Equal(t, "Complete", tk.Status)
	assert.Equal(t, "Done", tk.Resolution)
	assert.Equal(t, "Sam Developer", tk.Assignee)
	assert.Equal(t, "Road Rats", tk.DevTeam)
	assert.Equal(t, "Pat Manager", tk.ProductManager)
	assert.Equal(t, "Full Downtime", tk.DowntimeRequired)
	assert.Equal(t, "2026-03-05", tk.PlannedDeploymentDate)
	assert.Equal(t, "CHG0261540, priority", tk.Labels)

	assert.Equal(t, "WA", tk.Architect)
	assert.Equal(t, "ADV_IMPORT_ORDER", tk.DDL)
	// Data Upload belongs to two categories at once.
	assert.Equal(t, "Data Upload", tk.Web)
	assert.Equal(t, "Data Upload", tk.NonStandard)

	assert.Equal(t, []string{"WMS-200"}, tk.LinkedIssues["blocks"])
	assert.Equal(t, []string{"WMSRX-7"}, tk.LinkedIssues["created by"])

	assert.Equal(t, "Line one\nLine two", tk.Description)
	assert.Equal(t, "Deploy WA", tk.ImplementationPlan)
	assert.True(t, tk.HasComponents())
	assert.True(t, tk.RequiresDowntime())
}

func TestSearchJQLErrors(t *testing.T) {
	t.Run("missing credentials", func(t *testing.T) {
		c := NewClient(Config{BaseURL: "https://example.invalid"})
		_, err := c.SearchJQL(context.Background(), "labels = X", "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "credentials not configured")
	})

	t.Run("api error messages surface", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"errorMessages":["The JQL is invalid","Field missing"]}`))
		}))
		defer srv.Close()

		c := NewClient(Config{BaseURL: srv.URL, User: "u", Token: "t"})
		_, err := c.SearchJQL(context.Background(), "bogus ===", "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 400")
		assert.Contains(t, err.Error(), "The JQL is invalid; Field missing")
	})

	t.Run("missing issues array yields empty slice", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"total": 0}`))
		}))
		defer srv.Close()

		c := NewClient(Config{BaseURL: srv.URL, User: "u", Token: "t"})
		tickets, err := c.SearchJQL(context.Background(), "labels = X", "x")
		require.NoError(t, err)
		assert.Empty(t, tickets)
	})
}

func TestExtractDocumentText(t *testing.T) {
	t.Run("nil and empty", func(t *testing.T) {
		assert.Equal(t, "", ExtractDocumentText(nil))
		assert.Equal(t, "", ExtractDocumentText(map[string]any{}))
	})

	t.Run("nested list items", func(t *testing.T) {
		doc := map[string]any{
			"type": "doc",
			"content": []any{
				map[string]any{"type": "heading", "content": []any{
					map[string]any{"type": "text", "text": "Plan"},
				}},
				map[string]any{"type": "bulletList", "content": []any{
					map[string]any{"type": "listItem", "content": []any{
						map[string]any{"type": "text", "text": "step one"},
					}},
					map[string]any{"type": "listItem", "content": []any{
						map[string]any{"type": "text", "text": "step two"},
					}},
				}},
			},
		}
		assert.Equal(t, "Plan\nstep one\nstep two", ExtractDocumentText(doc))
	})
}

func TestMapComponents(t *testing.T) {
	t.Run("no components leaves all categories empty", func(t *testing.T) {
		var tk Ticket
		mapComponents(nil, &tk)
		assert.False(t, tk.HasComponents())
	})

	t.Run("unknown names are ignored", func(t *testing.T) {
		var tk Ticket
		mapComponents([]string{"Mystery Component"}, &tk)
		assert.False(t, tk.HasComponents())
	})

	t.Run("multiple hits comma-join in order", func(t *testing.T) {
		var tk Ticket
		mapComponents([]string{"CLS - Database", "ADV - Database", "FitNesse", "ChewyWMSGateway"}, &tk)
		assert.Equal(t, "CLS Database,ADV", tk.DDL)
		assert.Equal(t, "Fitnesse", tk.Fitnesse)
		assert.Equal(t, "ChewyWMSGateway", tk.ChewyWmsGateway)
	})
}

func TestRequiresDowntime(t *testing.T) {
	assert.False(t, Ticket{}.RequiresDowntime())
	assert.False(t, Ticket{DowntimeRequired: "No Downtime"}.RequiresDowntime())
	assert.False(t, Ticket{DowntimeRequired: "no downtime"}.RequiresDowntime())
	assert.True(t, Ticket{DowntimeRequired: "Full Downtime"}.RequiresDowntime())
}
