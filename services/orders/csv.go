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
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

var exportHeader = []string{
	"Warehouse", "Order Number", "Item Number", "Error Text", "Import Status",
	"Ship Date", "Arrival Date", "TNT", "Travel Time", "Service Level",
	"City", "State", "Postal Code", "Route",
}

// WriteCSV streams the enriched orders as a spreadsheet-friendly export.
func WriteCSV(w io.Writer, results []EnrichedOrder) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, e := range results {
		tnt := ""
		if e.DaysBetween != nil {
			tnt = strconv.Itoa(*e.DaysBetween)
		}
		record := []string{
			e.WhID, e.OrderNumber, e.ItemNumber, e.ErrorText, e.ImportStatus,
			e.ShipDate, e.ArriveDate, tnt, e.TravelDays, e.ServiceLevel,
			e.City, e.State, e.PostalCode, e.Route,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportFilename names the download so repeated exports never collide.
func ExportFilename(hold bool, now time.Time) string {
	prefix := "cls_debugger_export_"
	if hold {
		prefix = "cls_debugger_hold_export_"
	}
	return prefix + now.Format("2006-01-02_150405") + ".csv"
}
