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
	"time"
)

// rateQuery finds orders stuck in the import queue for more than ten
// minutes that are NOT held in the rate-hold queue, joined to their
// gateway XML and pick details.
const rateQuery = `
;WITH CTE AS (SELECT wh_id, order_number, inserted_datetime, updated_datetime, import_status
FROM t_order_import_queue oiq
WHERE
    ((inserted_datetime < DATEADD(MINUTE, -10, GETDATE()) AND import_status = 'XML_PARSED')
    OR (updated_datetime < DATEADD(MINUTE, -10, GETDATE()) AND import_status <> 'XML_PARSED'))
    AND NOT EXISTS (
        SELECT * FROM dbo.t_cls_rate_hold_queue rhq
        WHERE rhq.wh_id = oiq.wh_id
        AND rhq.order_number = oiq.order_number))
SELECT top 1000 CTE.wh_id,CTE.order_number,pkd.item_number, cls.xml_message, cls.xml_response, error_text, import_status, inserted_datetime, updated_datetime, cls.insert_datetime as cls_insert_datetime from CTE
join dbo.t_cls_xml_log cls on cls.order_number = CTE.order_number and cls.wh_id = CTE.wh_id
left join dbo.t_pick_detail pkd on pkd.order_number = CTE.order_number and pkd.wh_id = CTE.wh_id
order by CTE.order_number`

// rateHoldQuery is the same shape but restricted to orders that ARE in
// the rate-hold queue.
const rateHoldQuery = `
;WITH CTE AS (SELECT wh_id, order_number, inserted_datetime, updated_datetime, import_status
FROM t_order_import_queue oiq
WHERE
    ((inserted_datetime < DATEADD(MINUTE, -10, GETDATE()) AND import_status = 'XML_PARSED')
    OR (updated_datetime < DATEADD(MINUTE, -10, GETDATE()) AND import_status <> 'XML_PARSED'))
    AND EXISTS (
        SELECT * FROM dbo.t_cls_rate_hold_queue rhq
        WHERE rhq.wh_id = oiq.wh_id
        AND rhq.order_number = oiq.order_number))
SELECT top 1000 CTE.wh_id,CTE.order_number,pkd.item_number, cls.xml_message, cls.xml_response, error_text, import_status, inserted_datetime, updated_datetime, cls.insert_datetime as cls_insert_datetime from CTE
join dbo.t_cls_xml_log cls on cls.order_number = CTE.order_number and cls.wh_id = CTE.wh_id
left join dbo.t_pick_detail pkd on pkd.order_number = CTE.order_number and pkd.wh_id = CTE.wh_id
order by CTE.order_number`

const xmlLogQuery = `
SELECT wh_id, order_number, request_type, request_sproc, xml_message, xml_response, error_text, insert_datetime
FROM dbo.t_cls_xml_log
WHERE order_number = @p1 AND wh_id = @p2
ORDER BY insert_datetime DESC`

// Repository runs the stuck-order queries against the IO datasource.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// RateRows returns the raw rows of the rate query.
func (r *Repository) RateRows(ctx context.Context) ([]ImportRow, error) {
	return r.importRows(ctx, "rate", rateQuery)
}

// RateHoldRows returns the raw rows of the rate-hold query.
func (r *Repository) RateHoldRows(ctx context.Context) ([]ImportRow, error) {
	return r.importRows(ctx, "rate hold", rateHoldQuery)
}

func (r *Repository) importRows(ctx context.Context, name, query string) ([]ImportRow, error) {
	slog.Debug("Executing stuck-order query", "query", name)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute %s query: %w", name, err)
	}
	defer rows.Close()

	var out []ImportRow
	for rows.Next() {
		var (
			row                              ImportRow
			item, msg, resp, errText, status sql.NullString
			inserted, updated, clsInsert     sql.NullTime
		)
		if err := rows.Scan(&row.WhID, &row.OrderNumber, &item, &msg, &resp,
			&errText, &status, &inserted, &updated, &clsInsert); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", name, err)
		}
		row.ItemNumber = item.String
		row.XMLMessage = msg.String
		row.XMLResponse = resp.String
		row.ErrorText = errText.String
		row.ImportStatus = status.String
		row.InsertedDatetime = nullableTime(inserted)
		row.UpdatedDatetime = nullableTime(updated)
		row.CLSInsertDatetime = nullableTime(clsInsert)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading %s rows: %w", name, err)
	}
	slog.Debug("Stuck-order query returned", "query", name, "rows", len(out))
	return out, nil
}

// XMLLogs returns the gateway log rows for a single order, newest first.
func (r *Repository) XMLLogs(ctx context.Context, orderNumber, whID string) ([]XMLLogEntry, error) {
	rows, err := r.db.QueryContext(ctx, xmlLogQuery, orderNumber, whID)
	if err != nil {
		return nil, fmt.Errorf("failed to query xml logs: %w", err)
	}
	defer rows.Close()

	var out []XMLLogEntry
	for rows.Next() {
		var (
			entry                                   XMLLogEntry
			reqType, reqSproc, msg, resp, errText   sql.NullString
			inserted                                sql.NullTime
		)
		if err := rows.Scan(&entry.WhID, &entry.OrderNumber, &reqType, &reqSproc,
			&msg, &resp, &errText, &inserted); err != nil {
			return nil, fmt.Errorf("failed to scan xml log row: %w", err)
		}
		entry.RequestType = reqType.String
		entry.RequestSproc = reqSproc.String
		entry.XMLMessage = msg.String
		entry.XMLResponse = resp.String
		entry.ErrorText = errText.String
		entry.InsertDatetime = nullableTime(inserted)
		out = append(out, entry)
	}
	return out, rows.Err()
}

func nullableTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
