// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package srm manages Supply Route Management files: fetching version
// and delta data from the SRM API, listing the locally staged
// *_CLSRoute.csv files, and validating them against the production
// routing guides.
package srm

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/roadrats/wmsops/services/dbconn"
)

const (
	apiTimeout     = 30 * time.Second
	maxRedirects   = 5
	maxVersions    = 20
	apiUserAgent   = "Mozilla/5.0 (Windows NT; Windows NT 10.0) PowerShell/7.0"
	tokenQuery     = "SELECT token, http_url FROM dbo.t_webservice_info WHERE webservice_name = 'SRM Download'"
	versionAllPath = "/v1/srm/ui/download/history/version/all"
	deltaPath      = "/v1/srm/ui/delta-summary/getTables"
)

// Config carries the SRM settings.
type Config struct {
	APIBaseURL string `env:"API_BASE_URL" envDefault:"https://srm-api.use1.scff.prd.aws.chewy.cloud"`
	LocalPath  string `env:"LOCAL_PATH" envDefault:"SRM"`
}

// Version is one route calendar version from the download history.
type Version struct {
	ID                     any  `json:"id"`
	Type                   any  `json:"type"`
	RouteCalendarVersionID any  `json:"routeCalendarVersionId"`
	Status                 any  `json:"status"`
	UploadTime             any  `json:"uploadTime"`
	UploadUser             any  `json:"uploadUser"`
	ScheduledTime          any  `json:"scheduledTime"`
	ScheduleUser           any  `json:"scheduleUser"`
	Locked                 any  `json:"locked"`
}

// VersionsResult is the version history payload.
type VersionsResult struct {
	Success          bool      `json:"success"`
	Error            string    `json:"error,omitempty"`
	Versions         []Version `json:"versions,omitempty"`
	TotalCount       int       `json:"totalCount,omitempty"`
	ScheduledVersion string    `json:"scheduledVersion,omitempty"`
}

// DeltaSummary aggregates a version's delta tables.
type DeltaSummary struct {
	TotalChanges            int            `json:"totalChanges"`
	TotalZipsAffected       int            `json:"totalZipsAffected"`
	ChangeTypeCounts        map[string]int `json:"changeTypeCounts"`
	FulfillmentCenterCounts map[string]int `json:"fulfillmentCenterCounts"`
}

// DeltaResult is the delta-summary payload: the raw API tables plus
// the computed rollup.
type DeltaResult struct {
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`
	VersionID int            `json:"versionId,omitempty"`
	Raw       map[string]any `json:"raw,omitempty"`
	Summary   *DeltaSummary  `json:"summary,omitempty"`
}

// APIClient talks to the SRM API. The bearer token lives in the IO
// database, not in configuration.
type APIClient struct {
	cfg    Config
	client *http.Client
	// token is swappable for tests.
	token func(ctx context.Context) (string, error)
}

// NewAPIClient builds the client. HTTP/2 is disabled and redirects are
// followed manually: the API gateway 301s on HTTP/2, and Go's client
// strips the Authorization header when a redirect changes hosts.
func NewAPIClient(cfg Config, factory *dbconn.Factory) *APIClient {
	c := &APIClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: apiTimeout,
			Transport: &http.Transport{
				TLSNextProto: map[string]func(string, *tls.Conn) http.RoundTripper{},
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
	c.token = func(ctx context.Context) (string, error) {
		return lookupToken(ctx, factory)
	}
	return c
}

func lookupToken(ctx context.Context, factory *dbconn.Factory) (string, error) {
	db, err := factory.Pool(dbconn.PoolIO)
	if err != nil {
		return "", err
	}
	var token, httpURL string
	if err := db.QueryRowContext(ctx, tokenQuery).Scan(&token, &httpURL); err != nil {
		return "", fmt.Errorf("could not find SRM WebService data in database: %w", err)
	}
	return token, nil
}

// ScheduledVersions returns the most recent route calendar versions
// and picks the scheduled one.
func (c *APIClient) ScheduledVersions(ctx context.Context) VersionsResult {
	slog.Info("Fetching route calendar versions from SRM API")

	body, err := c.get(ctx, c.cfg.APIBaseURL+versionAllPath)
	if err != nil {
		slog.Error("Error fetching route calendar versions", "error", err)
		return VersionsResult{Error: err.Error()}
	}

	var parsed struct {
		Data []struct {
			ID         any            `json:"id"`
			Type       any            `json:"type"`
			Attributes map[string]any `json:"attributes"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return VersionsResult{Error: "failed to decode version response: " + err.Error()}
	}

	limit := len(parsed.Data)
	if limit > maxVersions {
		limit = maxVersions
	}
	versions := make([]Version, 0, limit)
	for _, item := range parsed.Data[:limit] {
		v := Version{ID: item.ID, Type: item.Type}
		if attrs := item.Attributes; attrs != nil {
			v.RouteCalendarVersionID = attrs["routeCalendarVersionId"]
			v.Status = attrs["status"]
			v.UploadTime = attrs["uploadTime"]
			v.UploadUser = attrs["uploadUser"]
			v.ScheduledTime = attrs["scheduledTime"]
			v.ScheduleUser = attrs["scheduleUser"]
			v.Locked = attrs["locked"]
		}
		versions = append(versions, v)
	}

	result := VersionsResult{
		Success:    true,
		Versions:   versions,
		TotalCount: len(parsed.Data),
	}
	for _, v := range versions {
		if s, ok := v.Status.(string); ok && s == "SCHEDULED" {
			result.ScheduledVersion = fmt.Sprint(v.ID)
			break
		}
	}
	if result.ScheduledVersion == "" && len(versions) > 0 {
		result.ScheduledVersion = fmt.Sprint(versions[0].ID)
	}
	slog.Info("Retrieved route calendar versions",
		"total", result.TotalCount, "scheduled", result.ScheduledVersion)
	return result
}

// DeltaSummary fetches a version's delta tables and rolls them up by
// change type and fulfillment center.
func (c *APIClient) DeltaSummary(ctx context.Context, versionID int) DeltaResult {
	slog.Info("Fetching delta summary", "versionId", versionID)

	body, err := c.get(ctx, c.cfg.APIBaseURL+deltaPath+"?versionId="+strconv.Itoa(versionID))
	if err != nil {
		slog.Error("Error fetching delta summary", "versionId", versionID, "error", err)
		return DeltaResult{Error: err.Error()}
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return DeltaResult{Error: "failed to decode delta response: " + err.Error()}
	}

	summary := &DeltaSummary{
		ChangeTypeCounts:        map[string]int{},
		FulfillmentCenterCounts: map[string]int{},
	}
	for _, value := range parsed {
		changes, ok := value.([]any)
		if !ok {
			continue
		}
		summary.TotalChanges += len(changes)
		for _, raw := range changes {
			change, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			changeType := "UNKNOWN"
			if ct, ok := change["changeType"].(string); ok && ct != "" {
				changeType = ct
			}
			summary.ChangeTypeCounts[changeType]++

			if fc, ok := change["fulfillmentCenter"].(string); ok && fc != "" {
				summary.FulfillmentCenterCounts[fc]++
			}
			if numZips, ok := change["numZips"].(float64); ok {
				summary.TotalZipsAffected += int(numZips)
			}
		}
	}

	slog.Info("Delta summary computed", "versionId", versionID,
		"changes", summary.TotalChanges, "zips", summary.TotalZipsAffected)
	return DeltaResult{
		Success:   true,
		VersionID: versionID,
		Raw:       parsed,
		Summary:   summary,
	}
}

// get performs an authorized GET, following redirects by hand so the
// bearer token survives a redirect within the API host. The token is
// never forwarded to a different host.
func (c *APIClient) get(ctx context.Context, rawURL string) ([]byte, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}
	origin, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	currentURL := rawURL
	for attempt := 0; attempt <= maxRedirects; attempt++ {
		slog.Debug("SRM API request", "attempt", attempt, "url", currentURL)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, currentURL, nil)
		if err != nil {
			return nil, err
		}
		if req.URL.Host == origin.Host {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		req.Header.Set("Accept", "*/*")
		req.Header.Set("User-Agent", apiUserAgent)

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}

		switch resp.StatusCode {
		case http.StatusMovedPermanently, http.StatusFound,
			http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
			location := resp.Header.Get("Location")
			if location == "" {
				return nil, fmt.Errorf("SRM API returned HTTP %d but no Location header", resp.StatusCode)
			}
			next, err := url.Parse(location)
			if err != nil {
				return nil, fmt.Errorf("SRM API returned bad redirect location %q: %w", location, err)
			}
			base, _ := url.Parse(currentURL)
			currentURL = base.ResolveReference(next).String()
			slog.Info("Following SRM API redirect", "status", resp.StatusCode, "location", currentURL)
			continue

		case http.StatusOK:
			if len(body) == 0 {
				return nil, fmt.Errorf("empty response from SRM API")
			}
			return body, nil

		default:
			return nil, fmt.Errorf("SRM API returned HTTP %d: %s", resp.StatusCode, string(body))
		}
	}
	return nil, fmt.Errorf("SRM API exceeded %d redirects", maxRedirects)
}
