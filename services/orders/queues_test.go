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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupQueueRows(t *testing.T) {
	t.Run("routed row replaces routeless keeper", func(t *testing.T) {
		raw := []rawQueueRow{
			{queueType: "rate", whID: "W1", orderNumber: "O1",
				xmlResponse: `<R><ERROR_MESSAGE>stuck</ERROR_MESSAGE></R>`},
			{queueType: "rate", whID: "W1", orderNumber: "O1",
				xmlResponse: `<R><CHE_ROUTE>R7</CHE_ROUTE></R>`},
		}
		got := dedupQueueRows(raw)
		require.Len(t, got, 1)
		assert.Equal(t, "R7", got[0].Route)
	})

	t.Run("first routeless row wins when no sibling has a route", func(t *testing.T) {
		raw := []rawQueueRow{
			{queueType: "rate", whID: "W1", orderNumber: "O1",
				xmlResponse: `<R><ERROR_MESSAGE>first</ERROR_MESSAGE></R>`},
			{queueType: "rate", whID: "W1", orderNumber: "O1",
				xmlResponse: `<R><ERROR_MESSAGE>second</ERROR_MESSAGE></R>`},
		}
		got := dedupQueueRows(raw)
		require.Len(t, got, 1)
		assert.Equal(t, "first", got[0].ErrorText)
	})

	t.Run("zip backfilled from sibling", func(t *testing.T) {
		raw := []rawQueueRow{
			{queueType: "manifest", whID: "W1", orderNumber: "O1",
				xmlResponse: `<R><CHE_ROUTE>R1</CHE_ROUTE></R>`},
			{queueType: "manifest", whID: "W1", orderNumber: "O1",
				xmlMessage: `<R><CONSIGNEE_POSTALCODE>34475-9000</CONSIGNEE_POSTALCODE></R>`},
		}
		got := dedupQueueRows(raw)
		require.Len(t, got, 1)
		assert.Equal(t, "R1", got[0].Route)
		assert.Equal(t, "34475", got[0].Zip)
	})

	t.Run("distinct orders stay separate in first-seen order", func(t *testing.T) {
		raw := []rawQueueRow{
			{queueType: "rate", whID: "W2", orderNumber: "O9"},
			{queueType: "rate", whID: "W1", orderNumber: "O1"},
		}
		got := dedupQueueRows(raw)
		require.Len(t, got, 2)
		assert.Equal(t, "O9", got[0].OrderNumber)
		assert.Equal(t, "O1", got[1].OrderNumber)
	})
}

func TestTotalStuck(t *testing.T) {
	queues := map[string][]QueueEntry{
		"rate":     {{OrderNumber: "O1"}, {OrderNumber: "O2"}},
		"manifest": {{OrderNumber: "O3"}},
	}
	total, counts := TotalStuck(queues)
	assert.Equal(t, 3, total)
	assert.Equal(t, 2, counts["rate"])
	assert.Equal(t, 1, counts["manifest"])
	assert.Equal(t, 0, counts["release"])
}
