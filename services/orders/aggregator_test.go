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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tp(s string) *time.Time {
	v, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &v
}

func TestAggregate(t *testing.T) {
	t.Run("one output per warehouse-order pair", func(t *testing.T) {
		rows := []ImportRow{
			{WhID: "W1", OrderNumber: "O1"},
			{WhID: "W1", OrderNumber: "O2"},
			{WhID: "W2", OrderNumber: "O1"},
			{WhID: "W1", OrderNumber: "O1"},
		}
		got := Aggregate(rows)
		require.Len(t, got, 3)
		assert.Equal(t, "O1", got[0].OrderNumber)
		assert.Equal(t, "W1", got[0].WhID)
		assert.Equal(t, "O2", got[1].OrderNumber)
		assert.Equal(t, "W2", got[2].WhID)
	})

	t.Run("error carrier is representative, travel from latest cls insert", func(t *testing.T) {
		rowA := ImportRow{
			WhID: "W1", OrderNumber: "O1",
			ItemNumber: "I1", ErrorText: "E1",
			XMLMessage:        `<R><CONSIGNEE_CITY>Ocala</CONSIGNEE_CITY></R>`,
			XMLResponse:       `<R><CHE_ROUTE>R1</CHE_ROUTE></R>`,
			InsertedDatetime:  tp("2025-01-01T00:00:00Z"),
			UpdatedDatetime:   tp("2025-01-02T00:00:00Z"),
			CLSInsertDatetime: tp("2025-01-01T00:00:00Z"),
		}
		rowB := ImportRow{
			WhID: "W1", OrderNumber: "O1",
			ItemNumber:        "I2",
			XMLResponse:       `<R><CHE_ROUTE>R9</CHE_ROUTE></R>`,
			InsertedDatetime:  tp("2025-01-02T00:00:00Z"),
			UpdatedDatetime:   tp("2025-01-03T00:00:00Z"),
			CLSInsertDatetime: tp("2025-01-05T00:00:00Z"),
		}

		got := Aggregate([]ImportRow{rowA, rowB})
		require.Len(t, got, 1)
		e := got[0]

		assert.Equal(t, "I1, I2", e.ItemNumber)
		assert.Equal(t, "E1", e.ErrorText)
		// Row A carries the only error text, so its XML is representative.
		assert.Contains(t, e.XMLMessage, "Ocala")
		// Travel fields come from the latest CLS insert (row B).
		assert.Equal(t, "R9", e.Route)
		// Identity timestamps come from the first group member.
		assert.Equal(t, tp("2025-01-02T00:00:00Z"), e.UpdatedDatetime)
		assert.Equal(t, tp("2025-01-01T00:00:00Z"), e.InsertedDatetime)
	})

	t.Run("aggregated fields deduplicate preserving first occurrence", func(t *testing.T) {
		rows := []ImportRow{
			{WhID: "W1", OrderNumber: "O1", ItemNumber: " A ", ErrorText: "late"},
			{WhID: "W1", OrderNumber: "O1", ItemNumber: "B", ErrorText: "late"},
			{WhID: "W1", OrderNumber: "O1", ItemNumber: "A", ErrorText: ""},
			{WhID: "W1", OrderNumber: "O1", ItemNumber: "", ErrorText: "missing rate"},
		}
		got := Aggregate(rows)
		require.Len(t, got, 1)
		assert.Equal(t, "A, B", got[0].ItemNumber)
		assert.Equal(t, "late, missing rate", got[0].ErrorText)
	})

	t.Run("falls back to XML error when no SQL error text", func(t *testing.T) {
		rows := []ImportRow{{
			WhID: "W1", OrderNumber: "O1",
			XMLResponse:     `<R><ERROR_MESSAGE>no rate found</ERROR_MESSAGE></R>`,
			UpdatedDatetime: tp("2025-01-01T00:00:00Z"),
		}}
		got := Aggregate(rows)
		require.Len(t, got, 1)
		assert.Equal(t, "no rate found", got[0].ErrorText)
	})

	t.Run("postal code truncated at five characters", func(t *testing.T) {
		long := []ImportRow{{
			WhID: "W1", OrderNumber: "O1",
			XMLMessage: `<R><CONSIGNEE_POSTALCODE>33004-1234</CONSIGNEE_POSTALCODE></R>`,
		}}
		short := []ImportRow{{
			WhID: "W1", OrderNumber: "O2",
			XMLMessage: `<R><CONSIGNEE_POSTALCODE>330</CONSIGNEE_POSTALCODE></R>`,
		}}
		assert.Equal(t, "33004", Aggregate(long)[0].PostalCode)
		assert.Equal(t, "330", Aggregate(short)[0].PostalCode)
	})

	t.Run("nil update timestamps sort last when picking representative", func(t *testing.T) {
		rows := []ImportRow{
			{WhID: "W1", OrderNumber: "O1", XMLResponse: "<R><SERVICE>NULLROW</SERVICE></R>"},
			{WhID: "W1", OrderNumber: "O1",
				XMLResponse:     "<R><SERVICE>TIMED</SERVICE></R>",
				UpdatedDatetime: tp("2025-01-01T00:00:00Z")},
		}
		got := Aggregate(rows)
		require.Len(t, got, 1)
		// Neither row carries an error, so the newest-by-update wins.
		assert.Contains(t, got[0].XMLResponse, "TIMED")
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, Aggregate(nil))
	})
}

func TestSummarize(t *testing.T) {
	t.Run("splits joined errors and counts per warehouse", func(t *testing.T) {
		results := []EnrichedOrder{
			{WhID: "W1", ErrorText: "late, missing rate"},
			{WhID: "W2", ErrorText: "late"},
			{WhID: "W1", ErrorText: ""},
			{ErrorText: "late"},
		}
		got := Summarize(results)

		assert.Equal(t, 4, got.TotalOrders)
		assert.Equal(t, 3, got.OrdersWithErrors)
		require.Len(t, got.Errors, 2)

		late := got.Errors[0]
		assert.Equal(t, "late", late.ErrorText)
		assert.Equal(t, 3, late.TotalCount)
		assert.Equal(t, 1, late.WarehouseBreakdown["W1"])
		assert.Equal(t, 1, late.WarehouseBreakdown["W2"])
		assert.Equal(t, 1, late.WarehouseBreakdown["UNKNOWN"])

		assert.Equal(t, "missing rate", got.Errors[1].ErrorText)
		assert.Equal(t, 1, got.Errors[1].TotalCount)

		assert.Equal(t, []string{"W1", "W2"}, got.Warehouses)
	})

	t.Run("count ties keep first-seen order", func(t *testing.T) {
		results := []EnrichedOrder{
			{WhID: "W1", ErrorText: "zeta"},
			{WhID: "W1", ErrorText: "alpha"},
		}
		got := Summarize(results)
		require.Len(t, got.Errors, 2)
		assert.Equal(t, "zeta", got.Errors[0].ErrorText)
		assert.Equal(t, "alpha", got.Errors[1].ErrorText)
	})

	t.Run("empty input", func(t *testing.T) {
		got := Summarize(nil)
		assert.Equal(t, 0, got.TotalOrders)
		assert.Empty(t, got.Errors)
		assert.Empty(t, got.Warehouses)
	})
}
