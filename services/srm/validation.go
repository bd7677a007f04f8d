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
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/roadrats/wmsops/services/dbconn"
)

var validationTracer = otel.Tracer("wmsops.srm")

// transitEpsilon is the tolerance when comparing transit days.
const transitEpsilon = 0.01

var originPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Route is one row from a staged SRM route file.
type Route struct {
	Shipper         string
	PostalCode      string
	Code            string
	TransitDays     float64
	DefaultRoute    string
	ZoneSkipService string
}

// ProductionRoute is one row from a production routing guide, and also
// the shape SRM rows are mapped into before comparison.
type ProductionRoute struct {
	Carrier      string
	PostalCode   string
	TransitDays  float64
	DefaultRoute string
	Service      string
}

// CarrierInfo translates an SRM shipping-method code.
type CarrierInfo struct {
	Carrier string
	Service string
}

// ChangeValue carries the fields that differ on an update.
type ChangeValue struct {
	TransitDays  float64 `json:"transitDays"`
	DefaultRoute string  `json:"defaultRoute"`
}

// RouteChange is one postal-code level difference.
type RouteChange struct {
	PostalCode   string       `json:"postalCode"`
	TransitDays  float64      `json:"transitDays"`
	DefaultRoute string       `json:"defaultRoute"`
	Service      string       `json:"service"`
	ChangeType   string       `json:"changeType"`
	OldValue     *ChangeValue `json:"oldValue,omitempty"`
	NewValue     *ChangeValue `json:"newValue,omitempty"`

	carrier string
}

// RouteSummary groups the differences for one shipper, route, and
// service.
type RouteSummary struct {
	Shipper         string        `json:"shipper"`
	Route           string        `json:"route"`
	Service         string        `json:"service"`
	PostalCodeCount int           `json:"postalCodeCount"`
	Differences     []RouteChange `json:"differences"`
}

// DeltaComparableEntry mirrors the SRM delta-summary row shape so the
// local validation can be compared side by side with the API's deltas.
type DeltaComparableEntry struct {
	FulfillmentCenter string `json:"fulfillmentCenter"`
	RouteName         string `json:"routeName"`
	ChangeType        string `json:"changeType"`
	NumZips           int    `json:"numZips"`
}

// ValidationTotals summarizes a validation run.
type ValidationTotals struct {
	TotalRoutesAffected     int      `json:"totalRoutesAffected"`
	TotalPostalCodesChanged int      `json:"totalPostalCodesChanged"`
	ShippersValidated       []string `json:"shippersValidated"`
}

// ValidationResult is the full validation payload.
type ValidationResult struct {
	Success           bool                   `json:"success"`
	Error             string                 `json:"error,omitempty"`
	ValidationResults []RouteSummary         `json:"validationResults,omitempty"`
	DeltaComparable   []DeltaComparableEntry `json:"deltaComparable,omitempty"`
	Summary           *ValidationTotals      `json:"summary,omitempty"`
}

// routeStore is the production-side data the validation needs.
type routeStore interface {
	CarrierTranslations(ctx context.Context) (map[string]CarrierInfo, error)
	OriginForShipper(ctx context.Context, shipper string) (string, error)
	SkipShipper(ctx context.Context, shipper string) (bool, error)
	ProductionRoutes(ctx context.Context, origin string) ([]ProductionRoute, error)
}

// ValidationService compares staged SRM files against the production
// routing guides.
type ValidationService struct {
	localPath string
	store     routeStore
}

func NewValidationService(cfg Config, factory *dbconn.Factory) *ValidationService {
	return &ValidationService{
		localPath: cfg.LocalPath,
		store:     &clsStore{factory: factory},
	}
}

// Validate reads every staged route file, maps it through the carrier
// translations, and diffs it against each shipper's routing guide.
func (s *ValidationService) Validate(ctx context.Context) ValidationResult {
	ctx, span := validationTracer.Start(ctx, "Validate")
	defer span.End()
	slog.Info("Starting SRM validation", "path", s.localPath)

	srmData, err := s.readRouteFiles()
	if err != nil {
		slog.Error("Error validating SRM files", "error", err)
		return ValidationResult{Error: err.Error()}
	}
	if len(srmData) == 0 {
		abs, _ := filepath.Abs(s.localPath)
		return ValidationResult{Error: "No SRM files found in " + abs}
	}
	slog.Info("Read route records from SRM files", "records", len(srmData))
	span.SetAttributes(attribute.Int("records", len(srmData)))

	carrierMap, err := s.store.CarrierTranslations(ctx)
	if err != nil {
		return ValidationResult{Error: err.Error()}
	}

	byShipper := map[string][]Route{}
	for _, r := range srmData {
		byShipper[r.Shipper] = append(byShipper[r.Shipper], r)
	}
	shippers := make([]string, 0, len(byShipper))
	for shipper := range byShipper {
		shippers = append(shippers, shipper)
	}
	sort.Strings(shippers)

	var summaries []RouteSummary
	var validated []string
	for _, shipper := range shippers {
		origin, err := s.store.OriginForShipper(ctx, shipper)
		if err != nil {
			return ValidationResult{Error: err.Error()}
		}
		if origin == "" {
			slog.Warn("No origin found for shipper", "shipper", shipper)
			continue
		}
		skip, err := s.store.SkipShipper(ctx, shipper)
		if err != nil {
			return ValidationResult{Error: err.Error()}
		}
		if skip {
			slog.Info("Skipping shipper", "shipper", shipper)
			continue
		}

		production, err := s.store.ProductionRoutes(ctx, origin)
		if err != nil {
			return ValidationResult{Error: err.Error()}
		}
		mapped := mapToProduction(byShipper[shipper], carrierMap)
		differences := compareRoutes(mapped, production)
		summaries = append(summaries, groupDifferences(shipper, differences)...)
		validated = append(validated, shipper)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		if !strings.EqualFold(a.Shipper, b.Shipper) {
			return strings.ToLower(a.Shipper) < strings.ToLower(b.Shipper)
		}
		return strings.ToLower(a.Route) < strings.ToLower(b.Route)
	})

	totalPostalCodes := 0
	for _, s := range summaries {
		totalPostalCodes += s.PostalCodeCount
	}
	slog.Info("Validation complete",
		"routesAffected", len(summaries), "postalCodesChanged", totalPostalCodes)

	return ValidationResult{
		Success:           true,
		ValidationResults: summaries,
		DeltaComparable:   buildDeltaComparable(summaries),
		Summary: &ValidationTotals{
			TotalRoutesAffected:     len(summaries),
			TotalPostalCodesChanged: totalPostalCodes,
			ShippersValidated:       validated,
		},
	}
}

// readRouteFiles loads every *_CLSRoute.csv in the staging directory.
func (s *ValidationService) readRouteFiles() ([]Route, error) {
	abs, err := filepath.Abs(s.localPath)
	if err != nil {
		abs = s.localPath
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("SRM directory does not exist: %s", abs)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("SRM path is not a directory: %s", abs)
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, err
	}

	var routes []Route
	found := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), "_clsroute.csv") {
			continue
		}
		found++
		shipper := shipperFromFile(e.Name())
		fileRoutes, err := readRouteFile(filepath.Join(abs, e.Name()), shipper)
		if err != nil {
			return nil, err
		}
		routes = append(routes, fileRoutes...)
	}
	if found == 0 {
		return nil, fmt.Errorf("no SRM CSV files found in %s, files must match pattern ROUTE_VERSION_CLSRoute.csv", abs)
	}
	return routes, nil
}

func readRouteFile(path, shipper string) ([]Route, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	headers := trimmed(records[0])
	index := map[string]int{}
	for i, h := range headers {
		index[strings.ToUpper(h)] = i
	}

	field := func(record []string, names ...string) string {
		for _, name := range names {
			if i, ok := index[name]; ok && i < len(record) {
				return strings.TrimSpace(record[i])
			}
		}
		return ""
	}

	var routes []Route
	for lineNo, record := range records[1:] {
		if len(record) != len(headers) {
			slog.Warn("Route file row has wrong field count, skipping",
				"file", filepath.Base(path), "line", lineNo+2,
				"fields", len(record), "headers", len(headers))
			continue
		}
		route := Route{
			Shipper:         shipper,
			PostalCode:      field(record, "DESTINATION_ZIP", "POSTALCODE"),
			Code:            field(record, "SHIPPING_METHOD", "CODE"),
			DefaultRoute:    field(record, "DEFAULT_ROUTE"),
			ZoneSkipService: field(record, "FREIGHT_ZONE", "ZONE_SKIP_SERVICE"),
		}
		route.TransitDays, _ = strconv.ParseFloat(field(record, "TRANSIT_DAYS"), 64)
		if route.PostalCode != "" && route.Code != "" {
			routes = append(routes, route)
		}
	}
	return routes, nil
}

// mapToProduction translates SRM rows into production shape. Rows with
// no carrier translation are dropped.
func mapToProduction(srmData []Route, carrierMap map[string]CarrierInfo) []ProductionRoute {
	mapped := make([]ProductionRoute, 0, len(srmData))
	for _, srm := range srmData {
		info, ok := carrierMap[srm.Code]
		if !ok {
			slog.Warn("No carrier translation found", "code", srm.Code)
			continue
		}
		mapped = append(mapped, ProductionRoute{
			Carrier:      info.Carrier,
			PostalCode:   srm.PostalCode,
			TransitDays:  srm.TransitDays,
			DefaultRoute: srm.DefaultRoute,
			Service:      info.Service,
		})
	}
	return mapped
}

func routeKey(r ProductionRoute) string {
	return r.Carrier + "|" + r.Service + "|" + r.PostalCode
}

// compareRoutes diffs SRM rows against production rows, keyed on
// carrier, service, and postal code. NEW rows exist only in SRM,
// DELETED rows only in production, UPDATED rows in both with a changed
// transit time or default route.
func compareRoutes(srmData, production []ProductionRoute) []RouteChange {
	prodMap := make(map[string]ProductionRoute, len(production))
	for _, p := range production {
		prodMap[routeKey(p)] = p
	}
	srmMap := make(map[string]ProductionRoute, len(srmData))
	for _, r := range srmData {
		srmMap[routeKey(r)] = r
	}

	var differences []RouteChange
	for _, srm := range srmData {
		if _, ok := prodMap[routeKey(srm)]; !ok {
			differences = append(differences, RouteChange{
				PostalCode:   srm.PostalCode,
				TransitDays:  srm.TransitDays,
				DefaultRoute: srm.DefaultRoute,
				Service:      srm.Service,
				ChangeType:   "NEW",
				NewValue:     &ChangeValue{TransitDays: srm.TransitDays, DefaultRoute: srm.DefaultRoute},
				carrier:      srm.Carrier,
			})
		}
	}
	for _, prod := range production {
		if _, ok := srmMap[routeKey(prod)]; !ok {
			differences = append(differences, RouteChange{
				PostalCode:   prod.PostalCode,
				TransitDays:  prod.TransitDays,
				DefaultRoute: prod.DefaultRoute,
				Service:      prod.Service,
				ChangeType:   "DELETED",
				OldValue:     &ChangeValue{TransitDays: prod.TransitDays, DefaultRoute: prod.DefaultRoute},
				carrier:      prod.Carrier,
			})
		}
	}
	for _, srm := range srmData {
		prod, ok := prodMap[routeKey(srm)]
		if !ok {
			continue
		}
		transitChanged := abs(srm.TransitDays-prod.TransitDays) > transitEpsilon
		routeChanged := srm.DefaultRoute != prod.DefaultRoute
		if transitChanged || routeChanged {
			differences = append(differences, RouteChange{
				PostalCode:   srm.PostalCode,
				TransitDays:  srm.TransitDays,
				DefaultRoute: srm.DefaultRoute,
				Service:      srm.Service,
				ChangeType:   "UPDATED",
				OldValue:     &ChangeValue{TransitDays: prod.TransitDays, DefaultRoute: prod.DefaultRoute},
				NewValue:     &ChangeValue{TransitDays: srm.TransitDays, DefaultRoute: srm.DefaultRoute},
				carrier:      srm.Carrier,
			})
		}
	}
	return differences
}

// groupDifferences buckets a shipper's differences by default route and
// service, preserving first-seen order.
func groupDifferences(shipper string, differences []RouteChange) []RouteSummary {
	var order []string
	grouped := map[string]*RouteSummary{}
	for _, diff := range differences {
		key := diff.DefaultRoute + "|" + diff.Service
		summary, ok := grouped[key]
		if !ok {
			summary = &RouteSummary{Shipper: shipper, Route: diff.DefaultRoute, Service: diff.Service}
			grouped[key] = summary
			order = append(order, key)
		}
		summary.PostalCodeCount++
		summary.Differences = append(summary.Differences, diff)
	}
	out := make([]RouteSummary, 0, len(order))
	for _, key := range order {
		out = append(out, *grouped[key])
	}
	return out
}

// buildDeltaComparable rolls the summaries up by shipper, route, and
// change type so they line up with the API's delta summary rows.
func buildDeltaComparable(summaries []RouteSummary) []DeltaComparableEntry {
	var order []string
	rollup := map[string]*DeltaComparableEntry{}
	for _, summary := range summaries {
		for _, diff := range summary.Differences {
			key := summary.Shipper + "|" + summary.Route + "|" + diff.ChangeType
			entry, ok := rollup[key]
			if !ok {
				entry = &DeltaComparableEntry{
					FulfillmentCenter: summary.Shipper,
					RouteName:         summary.Route,
					ChangeType:        diff.ChangeType,
				}
				rollup[key] = entry
				order = append(order, key)
			}
			entry.NumZips++
		}
	}
	out := make([]DeltaComparableEntry, 0, len(order))
	for _, key := range order {
		out = append(out, *rollup[key])
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.FulfillmentCenter != b.FulfillmentCenter {
			return a.FulfillmentCenter < b.FulfillmentCenter
		}
		if a.RouteName != b.RouteName {
			return a.RouteName < b.RouteName
		}
		return a.ChangeType < b.ChangeType
	})
	return out
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// clsStore reads the production side from the CLS datasource.
type clsStore struct {
	factory *dbconn.Factory
}

func (s *clsStore) CarrierTranslations(ctx context.Context) (map[string]CarrierInfo, error) {
	db, err := s.factory.Pool(dbconn.PoolCLS)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, "SELECT CODE, CARRIER, SERVICE FROM dbo.t_carrier_translation")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	carrierMap := map[string]CarrierInfo{}
	for rows.Next() {
		var code string
		var info CarrierInfo
		if err := rows.Scan(&code, &info.Carrier, &info.Service); err != nil {
			return nil, err
		}
		carrierMap[code] = info
	}
	return carrierMap, rows.Err()
}

func (s *clsStore) OriginForShipper(ctx context.Context, shipper string) (string, error) {
	db, err := s.factory.Pool(dbconn.PoolCLS)
	if err != nil {
		return "", err
	}
	var origin string
	err = db.QueryRowContext(ctx,
		"SELECT ORIGIN FROM dbo.ps_SHIPPER_ORIGIN WHERE SHIPPER = @p1", shipper).Scan(&origin)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return origin, err
}

func (s *clsStore) SkipShipper(ctx context.Context, shipper string) (bool, error) {
	db, err := s.factory.Pool(dbconn.PoolCLS)
	if err != nil {
		return false, err
	}
	var one int
	err = db.QueryRowContext(ctx,
		"SELECT 1 FROM dbo.t_skip_shippers WHERE SHIPPER = @p1", shipper).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *clsStore) ProductionRoutes(ctx context.Context, origin string) ([]ProductionRoute, error) {
	if !originPattern.MatchString(origin) {
		slog.Warn("Invalid origin format", "origin", origin)
		return nil, nil
	}
	db, err := s.factory.Pool(dbconn.PoolCLS)
	if err != nil {
		return nil, err
	}

	// The routing guide tables are per origin; confirm this one exists
	// before interpolating the name.
	var one int
	err = db.QueryRowContext(ctx,
		"SELECT 1 FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = 'dbo' AND TABLE_NAME = @p1",
		"ps_PRIMARY_ROUTING_GUIDE_"+origin).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		slog.Warn("Production table does not exist for origin", "origin", origin)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		"SELECT CARRIER, POSTALCODE, TRANSIT_DAYS, DEFAULT_ROUTE, SERVICE FROM dbo.ps_PRIMARY_ROUTING_GUIDE_%s", origin)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var routes []ProductionRoute
	for rows.Next() {
		var r ProductionRoute
		if err := rows.Scan(&r.Carrier, &r.PostalCode, &r.TransitDays, &r.DefaultRoute, &r.Service); err != nil {
			return nil, err
		}
		routes = append(routes, r)
	}
	return routes, rows.Err()
}
