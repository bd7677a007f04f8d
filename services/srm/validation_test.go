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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	translations map[string]CarrierInfo
	origins      map[string]string
	skip         map[string]bool
	production   map[string][]ProductionRoute
}

func (f *fakeStore) CarrierTranslations(ctx context.Context) (map[string]CarrierInfo, error) {
	return f.translations, nil
}

func (f *fakeStore) OriginForShipper(ctx context.Context, shipper string) (string, error) {
	return f.origins[shipper], nil
}

func (f *fakeStore) SkipShipper(ctx context.Context, shipper string) (bool, error) {
	return f.skip[shipper], nil
}

func (f *fakeStore) ProductionRoutes(ctx context.Context, origin string) ([]ProductionRoute, error) {
	return f.production[origin], nil
}

func TestCompareRoutes(t *testing.T) {
	srmData := []ProductionRoute{
		{Carrier: "FDX", Service: "GROUND", PostalCode: "19111", TransitDays: 2, DefaultRoute: "R1"},
		{Carrier: "FDX", Service: "GROUND", PostalCode: "19112", TransitDays: 3, DefaultRoute: "R1"},
		{Carrier: "UPS", Service: "NDA", PostalCode: "19113", TransitDays: 1, DefaultRoute: "R2"},
	}
	production := []ProductionRoute{
		{Carrier: "FDX", Service: "GROUND", PostalCode: "19111", TransitDays: 2, DefaultRoute: "R1"},
		{Carrier: "FDX", Service: "GROUND", PostalCode: "19112", TransitDays: 4, DefaultRoute: "R1"},
		{Carrier: "FDX", Service: "GROUND", PostalCode: "19114", TransitDays: 2, DefaultRoute: "R1"},
	}

	differences := compareRoutes(srmData, production)
	require.Len(t, differences, 3)

	byType := map[string]RouteChange{}
	for _, d := range differences {
		byType[d.ChangeType] = d
	}

	assert.Equal(t, "19113", byType["NEW"].PostalCode)
	require.NotNil(t, byType["NEW"].NewValue)
	assert.Nil(t, byType["NEW"].OldValue)

	assert.Equal(t, "19114", byType["DELETED"].PostalCode)
	require.NotNil(t, byType["DELETED"].OldValue)

	updated := byType["UPDATED"]
	assert.Equal(t, "19112", updated.PostalCode)
	assert.Equal(t, 4.0, updated.OldValue.TransitDays)
	assert.Equal(t, 3.0, updated.NewValue.TransitDays)
}

func TestCompareRoutesTransitTolerance(t *testing.T) {
	srmData := []ProductionRoute{
		{Carrier: "FDX", Service: "GROUND", PostalCode: "19111", TransitDays: 2.005, DefaultRoute: "R1"},
	}
	production := []ProductionRoute{
		{Carrier: "FDX", Service: "GROUND", PostalCode: "19111", TransitDays: 2.0, DefaultRoute: "R1"},
	}
	assert.Empty(t, compareRoutes(srmData, production))

	srmData[0].TransitDays = 2.02
	differences := compareRoutes(srmData, production)
	require.Len(t, differences, 1)
	assert.Equal(t, "UPDATED", differences[0].ChangeType)
}

func TestCompareRoutesDefaultRouteChange(t *testing.T) {
	srmData := []ProductionRoute{
		{Carrier: "FDX", Service: "GROUND", PostalCode: "19111", TransitDays: 2, DefaultRoute: "R2"},
	}
	production := []ProductionRoute{
		{Carrier: "FDX", Service: "GROUND", PostalCode: "19111", TransitDays: 2, DefaultRoute: "R1"},
	}
	differences := compareRoutes(srmData, production)
	require.Len(t, differences, 1)
	assert.Equal(t, "UPDATED", differences[0].ChangeType)
	assert.Equal(t, "R1", differences[0].OldValue.DefaultRoute)
	assert.Equal(t, "R2", differences[0].NewValue.DefaultRoute)
}

func TestMapToProductionSkipsUnknownCodes(t *testing.T) {
	carrierMap := map[string]CarrierInfo{
		"FEDEX_GROUND": {Carrier: "FDX", Service: "GROUND"},
	}
	srmData := []Route{
		{Shipper: "AVP1", PostalCode: "19111", Code: "FEDEX_GROUND", TransitDays: 2, DefaultRoute: "R1"},
		{Shipper: "AVP1", PostalCode: "19112", Code: "MYSTERY", TransitDays: 2, DefaultRoute: "R1"},
	}

	mapped := mapToProduction(srmData, carrierMap)
	require.Len(t, mapped, 1)
	assert.Equal(t, "FDX", mapped[0].Carrier)
	assert.Equal(t, "GROUND", mapped[0].Service)
	assert.Equal(t, "19111", mapped[0].PostalCode)
}

func TestGroupDifferences(t *testing.T) {
	differences := []RouteChange{
		{PostalCode: "19111", DefaultRoute: "R1", Service: "GROUND", ChangeType: "NEW"},
		{PostalCode: "19112", DefaultRoute: "R1", Service: "GROUND", ChangeType: "UPDATED"},
		{PostalCode: "19113", DefaultRoute: "R2", Service: "NDA", ChangeType: "DELETED"},
	}

	summaries := groupDifferences("AVP1", differences)
	require.Len(t, summaries, 2)
	assert.Equal(t, "AVP1", summaries[0].Shipper)
	assert.Equal(t, "R1", summaries[0].Route)
	assert.Equal(t, 2, summaries[0].PostalCodeCount)
	assert.Equal(t, "R2", summaries[1].Route)
	assert.Equal(t, 1, summaries[1].PostalCodeCount)
}

func TestBuildDeltaComparable(t *testing.T) {
	summaries := []RouteSummary{
		{
			Shipper: "CFF1", Route: "R1", Service: "GROUND", PostalCodeCount: 3,
			Differences: []RouteChange{
				{ChangeType: "NEW"}, {ChangeType: "NEW"}, {ChangeType: "UPDATED"},
			},
		},
		{
			Shipper: "AVP1", Route: "R2", Service: "NDA", PostalCodeCount: 1,
			Differences: []RouteChange{{ChangeType: "DELETED"}},
		},
	}

	entries := buildDeltaComparable(summaries)
	require.Len(t, entries, 3)
	assert.Equal(t, DeltaComparableEntry{
		FulfillmentCenter: "AVP1", RouteName: "R2", ChangeType: "DELETED", NumZips: 1,
	}, entries[0])
	assert.Equal(t, DeltaComparableEntry{
		FulfillmentCenter: "CFF1", RouteName: "R1", ChangeType: "NEW", NumZips: 2,
	}, entries[1])
	assert.Equal(t, DeltaComparableEntry{
		FulfillmentCenter: "CFF1", RouteName: "R1", ChangeType: "UPDATED", NumZips: 1,
	}, entries[2])
}

func TestReadRouteFileColumnFallbacks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "AVP1_12101_CLSRoute.csv")
	content := "POSTALCODE,CODE,TRANSIT_DAYS,DEFAULT_ROUTE,ZONE_SKIP_SERVICE\n" +
		"19111,FEDEX_GROUND,2,R1,ZS1\n" +
		",FEDEX_GROUND,2,R1,ZS1\n" +
		"19113,,2,R1,ZS1\n" +
		"19114,FEDEX_GROUND,2\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	routes, err := readRouteFile(path, "AVP1")
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, "AVP1", routes[0].Shipper)
	assert.Equal(t, "19111", routes[0].PostalCode)
	assert.Equal(t, "FEDEX_GROUND", routes[0].Code)
	assert.Equal(t, 2.0, routes[0].TransitDays)
	assert.Equal(t, "ZS1", routes[0].ZoneSkipService)
}

func TestValidateEndToEnd(t *testing.T) {
	dir := t.TempDir()
	avp := "DESTINATION_ZIP,SHIPPING_METHOD,TRANSIT_DAYS,DEFAULT_ROUTE,FREIGHT_ZONE\n" +
		"19111,FEDEX_GROUND,2,R1,ZS1\n" +
		"19112,FEDEX_GROUND,3,R1,ZS1\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "AVP1_12101_CLSRoute.csv"), []byte(avp), 0o644))
	cff := "DESTINATION_ZIP,SHIPPING_METHOD,TRANSIT_DAYS,DEFAULT_ROUTE,FREIGHT_ZONE\n" +
		"60601,FEDEX_GROUND,1,R9,ZS1\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "CFF1_12101_CLSRoute.csv"), []byte(cff), 0o644))

	store := &fakeStore{
		translations: map[string]CarrierInfo{
			"FEDEX_GROUND": {Carrier: "FDX", Service: "GROUND"},
		},
		origins: map[string]string{"AVP1": "AVP1", "CFF1": "CFF1"},
		skip:    map[string]bool{"CFF1": true},
		production: map[string][]ProductionRoute{
			"AVP1": {
				{Carrier: "FDX", Service: "GROUND", PostalCode: "19111", TransitDays: 2, DefaultRoute: "R1"},
				{Carrier: "FDX", Service: "GROUND", PostalCode: "19115", TransitDays: 5, DefaultRoute: "R1"},
			},
		},
	}

	svc := &ValidationService{localPath: dir, store: store}
	result := svc.Validate(context.Background())

	require.True(t, result.Success, result.Error)
	require.NotNil(t, result.Summary)
	assert.Equal(t, []string{"AVP1"}, result.Summary.ShippersValidated)
	assert.Equal(t, 1, result.Summary.TotalRoutesAffected)
	assert.Equal(t, 2, result.Summary.TotalPostalCodesChanged)

	require.Len(t, result.ValidationResults, 1)
	summary := result.ValidationResults[0]
	assert.Equal(t, "AVP1", summary.Shipper)
	assert.Equal(t, "R1", summary.Route)
	assert.Equal(t, "GROUND", summary.Service)
	assert.Equal(t, 2, summary.PostalCodeCount)

	types := map[string]bool{}
	for _, d := range summary.Differences {
		types[d.ChangeType] = true
	}
	assert.True(t, types["NEW"])     // 19112 only in SRM
	assert.True(t, types["DELETED"]) // 19115 only in production

	require.Len(t, result.DeltaComparable, 2)
	assert.Equal(t, "AVP1", result.DeltaComparable[0].FulfillmentCenter)
}

func TestValidateNoFiles(t *testing.T) {
	svc := &ValidationService{localPath: t.TempDir(), store: &fakeStore{}}
	result := svc.Validate(context.Background())
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "no SRM CSV files found")
}

func TestValidateMissingDirectory(t *testing.T) {
	svc := &ValidationService{
		localPath: filepath.Join(t.TempDir(), "missing"),
		store:     &fakeStore{},
	}
	result := svc.Validate(context.Background())
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "SRM directory does not exist")
}
