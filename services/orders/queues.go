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
	"log/slog"

	"github.com/roadrats/wmsops/services/clsxml"
)

// QueueTypes lists the six CLS queues in reporting order.
var QueueTypes = []string{"rate", "2nd rate", "rerate", "manifest", "remanifest", "release"}

// queueQueries maps queue type to the stuck-order query for its table.
// Attempts > 2 means the CLS processor has given up retrying.
var queueQueries = map[string]string{
	"rate": "SELECT 'rate' as type, q.wh_id, q.order_number, cls.xml_response, cls.xml_message " +
		"FROM t_cls_rate_queue q " +
		"JOIN dbo.t_cls_xml_log cls ON cls.order_number = q.order_number AND cls.wh_id = q.wh_id " +
		"WHERE q.attempts > 2 ORDER BY q.order_number",
	"2nd rate": "SELECT '2nd rate' as type, q.wh_id, q.order_number, cls.xml_response, cls.xml_message " +
		"FROM t_cls_rate_order_queue q " +
		"JOIN dbo.t_cls_xml_log cls ON cls.order_number = q.order_number AND cls.wh_id = q.wh_id " +
		"WHERE q.attempts > 2 ORDER BY q.order_number",
	"rerate": "SELECT 'rerate' as type, q.wh_id, q.order_number, cls.xml_response, cls.xml_message " +
		"FROM t_cls_rerate_order_queue q " +
		"JOIN dbo.t_cls_xml_log cls ON cls.order_number = q.order_number AND cls.wh_id = q.wh_id " +
		"WHERE q.attempts > 2 ORDER BY q.order_number",
	"manifest": "SELECT 'manifest' as type, q.wh_id, q.order_number, cls.xml_response, cls.xml_message " +
		"FROM t_cls_manifest_queue q " +
		"JOIN dbo.t_cls_xml_log cls ON cls.order_number = q.order_number AND cls.wh_id = q.wh_id " +
		"WHERE q.attempts > 2 ORDER BY q.order_number",
	"remanifest": "SELECT 'remanifest' as type, q.wh_id, q.order_number, cls.xml_response, cls.xml_message " +
		"FROM t_cls_remanifest_queue q " +
		"JOIN dbo.t_cls_xml_log cls ON cls.order_number = q.order_number AND cls.wh_id = q.wh_id " +
		"WHERE q.attempts > 2 ORDER BY q.order_number",
	"release": "SELECT 'release' as type, q.wh_id, q.order_number, cls.xml_response, cls.xml_message " +
		"FROM t_cls_release_queue q " +
		"JOIN dbo.t_cls_xml_log cls ON cls.order_number = q.order_number AND cls.wh_id = q.wh_id " +
		"WHERE q.attempts > 2 ORDER BY q.order_number",
}

// QueueStatuses queries the six CLS queues and returns deduplicated
// entries per queue type. A failing queue contributes an empty list
// instead of failing the whole check.
func (r *Repository) QueueStatuses(ctx context.Context) map[string][]QueueEntry {
	results := make(map[string][]QueueEntry, len(QueueTypes))
	for _, queueType := range QueueTypes {
		entries, err := r.queueEntries(ctx, queueQueries[queueType])
		if err != nil {
			slog.Error("Error querying CLS queue", "queue", queueType, "error", err)
			results[queueType] = []QueueEntry{}
			continue
		}
		slog.Debug("CLS queue checked", "queue", queueType, "stuck", len(entries))
		results[queueType] = entries
	}
	return results
}

type rawQueueRow struct {
	queueType   string
	whID        string
	orderNumber string
	xmlResponse string
	xmlMessage  string
}

func (r *Repository) queueEntries(ctx context.Context, query string) ([]QueueEntry, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var raw []rawQueueRow
	for rows.Next() {
		var (
			row                  rawQueueRow
			whID, orderNumber    sql.NullString
			xmlResponse, xmlMsg  sql.NullString
		)
		if err := rows.Scan(&row.queueType, &whID, &orderNumber, &xmlResponse, &xmlMsg); err != nil {
			return nil, err
		}
		row.whID = whID.String
		row.orderNumber = orderNumber.String
		row.xmlResponse = xmlResponse.String
		row.xmlMessage = xmlMsg.String
		raw = append(raw, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return dedupQueueRows(raw), nil
}

// dedupQueueRows collapses rows sharing (warehouse, order). A row with
// an extracted route replaces a routeless keeper; otherwise the first
// row wins and later siblings may only backfill a missing zip.
func dedupQueueRows(raw []rawQueueRow) []QueueEntry {
	kept := make(map[string]*QueueEntry)
	var order []string
	for _, row := range raw {
		key := row.whID + "|" + row.orderNumber

		route := clsxml.ExtractRoute(row.xmlResponse)
		errorText := clsxml.ExtractError(row.xmlResponse)
		zip := truncatePostal(clsxml.ExtractConsignee(row.xmlMessage).PostalCode)

		existing := kept[key]
		if existing == nil || (route != "" && existing.Route == "") {
			if existing == nil {
				order = append(order, key)
			}
			kept[key] = &QueueEntry{
				Type:        row.queueType,
				WhID:        row.whID,
				OrderNumber: row.orderNumber,
				Zip:         zip,
				Route:       route,
				ErrorText:   errorText,
			}
			continue
		}
		if existing.Zip == "" && zip != "" {
			existing.Zip = zip
		}
	}

	entries := make([]QueueEntry, 0, len(order))
	for _, key := range order {
		entries = append(entries, *kept[key])
	}
	return entries
}

// TotalStuck sums entries across queue types.
func TotalStuck(queues map[string][]QueueEntry) (int, map[string]int) {
	counts := make(map[string]int, len(queues))
	total := 0
	for _, queueType := range QueueTypes {
		n := len(queues[queueType])
		counts[queueType] = n
		total += n
	}
	return total, counts
}
