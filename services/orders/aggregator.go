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
	"sort"
	"strings"
	"time"

	"github.com/roadrats/wmsops/services/clsxml"
)

// Aggregate collapses raw query rows into one EnrichedOrder per
// (warehouse, order) pair. Output order is first-appearance order of
// each pair in the input.
//
// Per group:
//   - item numbers, error texts, and statuses are the de-duplicated
//     non-blank values across all members, joined with ", ";
//   - the representative row for XML is chosen by updated desc then
//     inserted desc (nil timestamps last), preferring a row that
//     carries a SQL error text;
//   - travel fields come from the member with the latest CLS insert
//     timestamp that has a response XML;
//   - the three output timestamps come from the first group member,
//     deliberately reflecting ingestion order rather than the
//     representative row.
func Aggregate(rows []ImportRow) []EnrichedOrder {
	groups := make(map[string][]ImportRow)
	var order []string
	for _, row := range rows {
		key := row.WhID + "|" + row.OrderNumber
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], row)
	}

	enriched := make([]EnrichedOrder, 0, len(order))
	for _, key := range order {
		enriched = append(enriched, buildEnriched(groups[key]))
	}
	return enriched
}

func buildEnriched(group []ImportRow) EnrichedOrder {
	first := group[0]
	out := EnrichedOrder{
		WhID:              first.WhID,
		OrderNumber:       first.OrderNumber,
		ItemNumber:        joinDistinct(group, func(r ImportRow) string { return r.ItemNumber }),
		ErrorText:         joinDistinct(group, func(r ImportRow) string { return r.ErrorText }),
		ImportStatus:      joinDistinct(group, func(r ImportRow) string { return r.ImportStatus }),
		InsertedDatetime:  first.InsertedDatetime,
		UpdatedDatetime:   first.UpdatedDatetime,
		CLSInsertDatetime: first.CLSInsertDatetime,
	}

	rep := representative(group)
	out.XMLMessage = rep.XMLMessage
	out.XMLResponse = rep.XMLResponse

	travelXML := travelResponse(group, rep)

	if strings.TrimSpace(out.ErrorText) == "" {
		out.ErrorText = clsxml.ExtractError(rep.XMLResponse)
	}

	consignee := clsxml.ExtractConsignee(rep.XMLMessage)
	out.ConsigneeContact = consignee.Contact
	out.ConsigneeAddress1 = consignee.Address1
	out.ConsigneeAddress2 = consignee.Address2
	out.City = consignee.City
	out.State = consignee.State
	out.PostalCode = truncatePostal(consignee.PostalCode)

	shipping := clsxml.ExtractShippingInfo(travelXML)
	out.ShipDate = shipping.ShipDate
	out.ArriveDate = shipping.ArriveDate
	out.ShipDay = shipping.ShipDay
	out.ArriveDay = shipping.ArriveDay
	out.TravelDays = shipping.TravelDays
	out.DaysBetween = shipping.DaysBetween
	out.Route = clsxml.ExtractRoute(travelXML)
	out.ServiceLevel = clsxml.ExtractServiceLevel(travelXML)

	return out
}

// representative sorts a copy of the group by updated desc, then
// inserted desc, nil timestamps last, and picks the first row with a
// non-blank error text, falling back to the first row overall.
func representative(group []ImportRow) ImportRow {
	sorted := make([]ImportRow, len(group))
	copy(sorted, group)
	sort.SliceStable(sorted, func(i, j int) bool {
		if c := compareTimeDesc(sorted[i].UpdatedDatetime, sorted[j].UpdatedDatetime); c != 0 {
			return c < 0
		}
		return compareTimeDesc(sorted[i].InsertedDatetime, sorted[j].InsertedDatetime) < 0
	})
	for _, row := range sorted {
		if strings.TrimSpace(row.ErrorText) != "" {
			return row
		}
	}
	return sorted[0]
}

// travelResponse picks the response XML of the member with the greatest
// non-nil CLS insert timestamp, falling back to the representative.
func travelResponse(group []ImportRow, rep ImportRow) string {
	var best *ImportRow
	for i := range group {
		row := &group[i]
		if row.CLSInsertDatetime == nil || row.XMLResponse == "" {
			continue
		}
		if best == nil || row.CLSInsertDatetime.After(*best.CLSInsertDatetime) {
			best = row
		}
	}
	if best != nil {
		return best.XMLResponse
	}
	return rep.XMLResponse
}

// compareTimeDesc orders descending with nils last: negative when a
// sorts before b.
func compareTimeDesc(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case a.After(*b):
		return -1
	case b.After(*a):
		return 1
	default:
		return 0
	}
}

// joinDistinct collects non-blank trimmed values in first-seen order
// and joins them with ", ".
func joinDistinct(group []ImportRow, field func(ImportRow) string) string {
	seen := make(map[string]bool)
	var values []string
	for _, row := range group {
		v := strings.TrimSpace(field(row))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}
	return strings.Join(values, ", ")
}

func truncatePostal(pc string) string {
	if len(pc) >= 5 {
		return pc[:5]
	}
	return pc
}

// Summarize produces the error breakdown projection for a set of
// enriched orders. Comma-joined error texts are split back apart and
// counted per (errorText, warehouse); orders without a warehouse bucket
// under "UNKNOWN". Ties in total count keep first-seen order.
func Summarize(results []EnrichedOrder) ErrorSummary {
	summary := ErrorSummary{TotalOrders: len(results), Errors: []ErrorBreakdown{}}

	type bucket struct {
		byWarehouse map[string]int
	}
	buckets := make(map[string]*bucket)
	var errOrder []string

	warehouseSet := make(map[string]bool)
	for _, r := range results {
		if r.WhID != "" {
			warehouseSet[r.WhID] = true
		}
		if strings.TrimSpace(r.ErrorText) == "" {
			continue
		}
		summary.OrdersWithErrors++
		for _, part := range strings.Split(r.ErrorText, ",") {
			text := strings.TrimSpace(part)
			if text == "" {
				continue
			}
			b, ok := buckets[text]
			if !ok {
				b = &bucket{byWarehouse: make(map[string]int)}
				buckets[text] = b
				errOrder = append(errOrder, text)
			}
			wh := r.WhID
			if wh == "" {
				wh = "UNKNOWN"
			}
			b.byWarehouse[wh]++
		}
	}

	for _, text := range errOrder {
		b := buckets[text]
		total := 0
		for _, n := range b.byWarehouse {
			total += n
		}
		summary.Errors = append(summary.Errors, ErrorBreakdown{
			ErrorText:          text,
			TotalCount:         total,
			WarehouseBreakdown: b.byWarehouse,
		})
	}
	sort.SliceStable(summary.Errors, func(i, j int) bool {
		return summary.Errors[i].TotalCount > summary.Errors[j].TotalCount
	})

	summary.Warehouses = make([]string, 0, len(warehouseSet))
	for wh := range warehouseSet {
		summary.Warehouses = append(summary.Warehouses, wh)
	}
	sort.Strings(summary.Warehouses)
	return summary
}
