// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package srm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, baseURL string) *APIClient {
	t.Helper()
	c := NewAPIClient(Config{APIBaseURL: baseURL}, nil)
	c.token = func(ctx context.Context) (string, error) { return "test-token", nil }
	return c
}

func TestScheduledVersions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, versionAllPath, r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Write([]byte(`{"data":[
			{"id":101,"type":"version","attributes":{"status":"UPLOADED","uploadUser":"alice"}},
			{"id":99,"type":"version","attributes":{"status":"SCHEDULED","scheduleUser":"bob"}}
		]}`))
	}))
	defer srv.Close()

	result := testClient(t, srv.URL).ScheduledVersions(context.Background())
	require.True(t, result.Success, result.Error)
	assert.Equal(t, 2, result.TotalCount)
	require.Len(t, result.Versions, 2)
	assert.Equal(t, "UPLOADED", result.Versions[0].Status)
	assert.Equal(t, "99", result.ScheduledVersion)
}

func TestScheduledVersionsFallsBackToFirst(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[
			{"id":101,"attributes":{"status":"UPLOADED"}},
			{"id":99,"attributes":{"status":"UPLOADED"}}
		]}`))
	}))
	defer srv.Close()

	result := testClient(t, srv.URL).ScheduledVersions(context.Background())
	require.True(t, result.Success)
	assert.Equal(t, "101", result.ScheduledVersion)
}

func TestDeltaSummaryRollup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, deltaPath, r.URL.Path)
		assert.Equal(t, "12101", r.URL.Query().Get("versionId"))
		w.Write([]byte(`{
			"routeChanges":[
				{"changeType":"NEW","fulfillmentCenter":"AVP1","numZips":12},
				{"changeType":"UPDATED","fulfillmentCenter":"AVP1","numZips":3},
				{"fulfillmentCenter":"CFF1","numZips":5}
			],
			"metadata":{"versionId":12101}
		}`))
	}))
	defer srv.Close()

	result := testClient(t, srv.URL).DeltaSummary(context.Background(), 12101)
	require.True(t, result.Success, result.Error)
	assert.Equal(t, 12101, result.VersionID)
	require.NotNil(t, result.Summary)
	assert.Equal(t, 3, result.Summary.TotalChanges)
	assert.Equal(t, 20, result.Summary.TotalZipsAffected)
	assert.Equal(t, 1, result.Summary.ChangeTypeCounts["NEW"])
	assert.Equal(t, 1, result.Summary.ChangeTypeCounts["UPDATED"])
	assert.Equal(t, 1, result.Summary.ChangeTypeCounts["UNKNOWN"])
	assert.Equal(t, 2, result.Summary.FulfillmentCenterCounts["AVP1"])
	assert.Equal(t, 1, result.Summary.FulfillmentCenterCounts["CFF1"])
}

func TestGetFollowsRedirectsWithAuth(t *testing.T) {
	var finalAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/start":
			w.Header().Set("Location", "/moved")
			w.WriteHeader(http.StatusMovedPermanently)
		case "/moved":
			finalAuth = r.Header.Get("Authorization")
			w.Write([]byte(`{"ok":true}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	body, err := testClient(t, srv.URL).get(context.Background(), srv.URL+"/start")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.Equal(t, "Bearer test-token", finalAuth)
}

func TestGetDropsAuthAcrossHosts(t *testing.T) {
	var otherAuth string
	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		otherAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer other.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", other.URL+"/elsewhere")
		w.WriteHeader(http.StatusMovedPermanently)
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL).get(context.Background(), srv.URL+"/start")
	require.NoError(t, err)
	assert.Empty(t, otherAuth)
}

func TestGetRedirectLoop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "/loop")
		w.WriteHeader(http.StatusFound)
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL).get(context.Background(), srv.URL+"/loop")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeded")
}

func TestGetRejectsErrorsAndEmptyBodies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/empty":
			w.WriteHeader(http.StatusOK)
		default:
			http.Error(w, "denied", http.StatusForbidden)
		}
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)

	_, err := c.get(context.Background(), srv.URL+"/empty")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")

	_, err = c.get(context.Background(), srv.URL+"/denied")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 403")
}
