// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package orders

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// rateOrderQuery joins the 2nd-rate queue with the shipper origin table
// to get the zip and origin for every order awaiting a second rate.
const rateOrderQuery = `
WITH ShipperOrigins AS (
    SELECT 'MCO1'         AS shipper, '34475'         AS origin
    UNION ALL SELECT 'PHX1'         AS shipper, '85338'         AS origin
    UNION ALL SELECT 'PHX2'         AS shipper, '85338_PHX2'    AS origin
    UNION ALL SELECT 'SDF1'         AS shipper, '40299'         AS origin
    UNION ALL SELECT 'DFW7'         AS shipper, '75236_DFW7'    AS origin
    UNION ALL SELECT 'BNA1'         AS shipper, '37122'         AS origin
    UNION ALL SELECT 'AVP1_FRESH'   AS shipper, '18706_FRESH'   AS origin
    UNION ALL SELECT 'RNO1'         AS shipper, '89506'         AS origin
    UNION ALL SELECT 'BKY1'         AS shipper, '85043'         AS origin
    UNION ALL SELECT 'CFC1_FRESH'   AS shipper, '46118_FRESH'   AS origin
    UNION ALL SELECT 'EFC3'         AS shipper, '17050'         AS origin
    UNION ALL SELECT 'CFF1'         AS shipper, '46118'         AS origin
    UNION ALL SELECT 'DFW1'         AS shipper, '75236'         AS origin
    UNION ALL SELECT 'MCO2'         AS shipper, '34475_MCO2'    AS origin
    UNION ALL SELECT 'PHX1_OCEANSIDE'   AS shipper, '92056'     AS origin
    UNION ALL SELECT 'DAY1'         AS shipper, '45377'         AS origin
    UNION ALL SELECT 'MCI1'         AS shipper, '64012'         AS origin
    UNION ALL SELECT 'AVP1'         AS shipper, '18706'         AS origin
    UNION ALL SELECT 'AVP2'         AS shipper, '18434'         AS origin
    UNION ALL SELECT 'PHX1_FULLERTON'  AS shipper, '92835'      AS origin
    UNION ALL SELECT 'PHX1_SUNVALLEY'  AS shipper, '91352'      AS origin
    UNION ALL SELECT 'DFW8'         AS shipper, '75236_DFW8'    AS origin
    UNION ALL SELECT 'CLT1'         AS shipper, '28146'         AS origin
    UNION ALL SELECT 'SDF4'         AS shipper, '40299_SDF4'    AS origin
    UNION ALL SELECT 'AVP4'         AS shipper, '18640'         AS origin
    UNION ALL SELECT 'MDT3'         AS shipper, '17339_MDT3'    AS origin
    UNION ALL SELECT 'DFW3'         AS shipper, '75134'         AS origin
    UNION ALL SELECT 'CHEWYPHX1MM'  AS shipper, '92835_MM'      AS origin
    UNION ALL SELECT 'CFC1'         AS shipper, '46118'         AS origin
    UNION ALL SELECT 'MDT1'         AS shipper, '17339'         AS origin
    UNION ALL SELECT 'MCO4'         AS shipper, '34475_MCO4'    AS origin
    UNION ALL SELECT 'RNF1'         AS shipper, '89506_RNF1'    AS origin
)
SELECT
    '2nd rate'      AS type,
    cls.wh_id       AS wh_id,
    cls.order_number,
    LEFT(pkc.ship_to_zip, 5) AS zip,
    so.origin
FROM t_cls_rate_order_queue AS cls
     JOIN dbo.t_pick_container AS pkc
       ON pkc.order_number = cls.order_number
     JOIN ShipperOrigins AS so
       ON so.shipper = cls.wh_id
WHERE cls.attempts > 0
ORDER BY cls.insert_datetime`

// Routing-guide table names are derived from the origin, so origins are
// restricted to identifier characters before interpolation.
var originPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// SaturdayResult is the response of the full Saturday delivery check.
type SaturdayResult struct {
	TotalRateOrders    int                 `json:"totalRateOrders"`
	OriginsChecked     int                 `json:"originsChecked"`
	SaturdayDeliveries []SaturdayDelivery  `json:"saturdayDeliveries"`
	TotalSaturdayFlags int                 `json:"totalSaturdayFlags"`
	GroupedByService   map[string][]string `json:"groupedByService"`
	Message            string              `json:"message,omitempty"`
}

// SaturdayService cross-checks 2nd-rate orders against the routing
// guide on the CLS server to find postal codes flagged for Saturday
// delivery.
type SaturdayService struct {
	ioDB  *sql.DB
	clsDB *sql.DB
}

func NewSaturdayService(ioDB, clsDB *sql.DB) *SaturdayService {
	return &SaturdayService{ioDB: ioDB, clsDB: clsDB}
}

// RateOrders returns the 2nd-rate queue joined with shipper origins.
func (s *SaturdayService) RateOrders(ctx context.Context) ([]RateOrder, error) {
	rows, err := s.ioDB.QueryContext(ctx, rateOrderQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to execute rate order query: %w", err)
	}
	defer rows.Close()

	var out []RateOrder
	for rows.Next() {
		var r RateOrder
		var whID, orderNumber, zip, origin sql.NullString
		if err := rows.Scan(&r.Type, &whID, &orderNumber, &zip, &origin); err != nil {
			return nil, fmt.Errorf("failed to scan rate order row: %w", err)
		}
		r.WhID = whID.String
		r.OrderNumber = orderNumber.String
		r.Zip = zip.String
		r.Origin = origin.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// Check runs the full Saturday delivery pipeline: rate orders, distinct
// zips per origin, routing-guide lookups, service rollup. A failing
// origin is logged and skipped.
func (s *SaturdayService) Check(ctx context.Context) (SaturdayResult, error) {
	slog.Info("Starting Saturday delivery check")
	result := SaturdayResult{
		SaturdayDeliveries: []SaturdayDelivery{},
		GroupedByService:   map[string][]string{},
	}

	rateOrders, err := s.RateOrders(ctx)
	if err != nil {
		return result, err
	}
	if len(rateOrders) == 0 {
		result.Message = "No rate order results found"
		return result, nil
	}
	result.TotalRateOrders = len(rateOrders)

	zipsByOrigin := groupZipsByOrigin(rateOrders)
	result.OriginsChecked = len(zipsByOrigin.origins)

	// One routing-guide query per origin; failures skip the origin.
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	perOrigin := make(map[string][]SaturdayDelivery)
	for _, origin := range zipsByOrigin.origins {
		origin := origin
		zips := zipsByOrigin.zips[origin]
		g.Go(func() error {
			found, err := s.saturdayByOrigin(gctx, origin, zips)
			if err != nil {
				slog.Error("Error querying routing guide", "origin", origin, "error", err)
				return nil
			}
			mu.Lock()
			perOrigin[origin] = found
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}
	for _, origin := range zipsByOrigin.origins {
		result.SaturdayDeliveries = append(result.SaturdayDeliveries, perOrigin[origin]...)
	}
	result.TotalSaturdayFlags = len(result.SaturdayDeliveries)
	result.GroupedByService = groupByService(result.SaturdayDeliveries)

	slog.Info("Saturday delivery check complete",
		"results", result.TotalSaturdayFlags, "services", len(result.GroupedByService))
	return result, nil
}

func (s *SaturdayService) saturdayByOrigin(ctx context.Context, origin string, zips []string) ([]SaturdayDelivery, error) {
	if len(zips) == 0 {
		return nil, nil
	}
	if !originPattern.MatchString(origin) {
		slog.Warn("Invalid origin value rejected", "origin", origin)
		return nil, nil
	}

	var sb strings.Builder
	args := make([]any, 0, len(zips))
	sb.WriteString("SELECT POSTALCODE, SERVICE, TRANSIT_DAYS FROM DMSServer.dbo.ps_PRIMARY_ROUTING_GUIDE_")
	sb.WriteString(origin)
	sb.WriteString(" WHERE SATURDAYDELIVERY_FLAG = 1 AND POSTALCODE IN (")
	for i, zip := range zips {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "@p%d", i+1)
		args = append(args, zip)
	}
	sb.WriteString(")")

	rows, err := s.clsDB.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SaturdayDelivery
	for rows.Next() {
		var d SaturdayDelivery
		var postal, service, transit sql.NullString
		if err := rows.Scan(&postal, &service, &transit); err != nil {
			return nil, err
		}
		d.PostalCode = postal.String
		d.Service = service.String
		d.TransitDays = transit.String
		out = append(out, d)
	}
	return out, rows.Err()
}

type originZips struct {
	origins []string
	zips    map[string][]string
}

// groupZipsByOrigin collects distinct zips per origin in first-seen
// order, skipping rows missing either value.
func groupZipsByOrigin(rateOrders []RateOrder) originZips {
	grouped := originZips{zips: make(map[string][]string)}
	seen := make(map[string]map[string]bool)
	for _, r := range rateOrders {
		if r.Origin == "" || r.Zip == "" {
			continue
		}
		if seen[r.Origin] == nil {
			seen[r.Origin] = make(map[string]bool)
			grouped.origins = append(grouped.origins, r.Origin)
		}
		if seen[r.Origin][r.Zip] {
			continue
		}
		seen[r.Origin][r.Zip] = true
		grouped.zips[r.Origin] = append(grouped.zips[r.Origin], r.Zip)
	}
	return grouped
}

// groupByService maps service name to the sorted distinct postal codes
// flagged for it.
func groupByService(deliveries []SaturdayDelivery) map[string][]string {
	grouped := make(map[string][]string)
	seen := make(map[string]map[string]bool)
	for _, d := range deliveries {
		if d.Service == "" || d.PostalCode == "" {
			continue
		}
		if seen[d.Service] == nil {
			seen[d.Service] = make(map[string]bool)
		}
		if seen[d.Service][d.PostalCode] {
			continue
		}
		seen[d.Service][d.PostalCode] = true
		grouped[d.Service] = append(grouped[d.Service], d.PostalCode)
	}
	for service := range grouped {
		sort.Strings(grouped[service])
	}
	return grouped
}
