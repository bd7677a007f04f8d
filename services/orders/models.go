// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package orders implements the CLS debugger pipeline: the stuck-order
// queries against the import-order database, the aggregation of raw
// rows into one logical order per (warehouse, order) pair, the queue
// status checks, and the Saturday delivery cross-check against the
// routing guide.
package orders

import "time"

// ImportRow is one raw row from the rate / rate-hold queries. Text
// columns are "" when NULL; timestamps keep nil so ordering rules can
// place them last.
type ImportRow struct {
	WhID             string     `json:"whId"`
	OrderNumber      string     `json:"orderNumber"`
	ItemNumber       string     `json:"itemNumber"`
	XMLMessage       string     `json:"xmlMessage"`
	XMLResponse      string     `json:"xmlResponse"`
	ErrorText        string     `json:"errorText"`
	ImportStatus     string     `json:"importStatus"`
	InsertedDatetime *time.Time `json:"insertedDatetime"`
	UpdatedDatetime  *time.Time `json:"updatedDatetime"`
	CLSInsertDatetime *time.Time `json:"clsInsertDatetime"`
}

// EnrichedOrder is the aggregated, XML-decorated view of all raw rows
// sharing one (warehouse, order) pair.
type EnrichedOrder struct {
	WhID             string     `json:"whId"`
	OrderNumber      string     `json:"orderNumber"`
	ItemNumber       string     `json:"itemNumber"`
	ErrorText        string     `json:"errorText"`
	ImportStatus     string     `json:"importStatus"`
	XMLMessage       string     `json:"xmlMessage"`
	XMLResponse      string     `json:"xmlResponse"`
	InsertedDatetime *time.Time `json:"insertedDatetime"`
	UpdatedDatetime  *time.Time `json:"updatedDatetime"`
	CLSInsertDatetime *time.Time `json:"clsInsertDatetime"`

	// Derived from the response XML.
	ShipDate     string `json:"shipDate"`
	ArriveDate   string `json:"arriveDate"`
	ShipDay      string `json:"shipDay"`
	ArriveDay    string `json:"arriveDay"`
	TravelDays   string `json:"travelDays"`
	DaysBetween  *int   `json:"daysBetween"`
	ServiceLevel string `json:"serviceLevel"`
	Route        string `json:"route"`

	// Derived from the request XML.
	ConsigneeContact  string `json:"consigneeContact"`
	ConsigneeAddress1 string `json:"consigneeAddress1"`
	ConsigneeAddress2 string `json:"consigneeAddress2"`
	City              string `json:"city"`
	State             string `json:"state"`
	PostalCode        string `json:"postalCode"`
}

// QueueEntry is one deduplicated order in a stuck CLS queue.
type QueueEntry struct {
	Type        string `json:"type"`
	WhID        string `json:"whId"`
	OrderNumber string `json:"orderNumber"`
	Zip         string `json:"zip"`
	Route       string `json:"route"`
	ErrorText   string `json:"errorText"`
}

// XMLLogEntry is one row from t_cls_xml_log for a single order.
type XMLLogEntry struct {
	WhID           string     `json:"whId"`
	OrderNumber    string     `json:"orderNumber"`
	RequestType    string     `json:"requestType"`
	RequestSproc   string     `json:"requestSproc"`
	XMLMessage     string     `json:"xmlMessage"`
	XMLResponse    string     `json:"xmlResponse"`
	ErrorText      string     `json:"errorText"`
	InsertDatetime *time.Time `json:"insertDatetime"`
}

// RateOrder is one row from the 2nd-rate queue joined with the shipper
// origin table, used by the Saturday delivery check.
type RateOrder struct {
	Type        string `json:"type"`
	WhID        string `json:"whId"`
	OrderNumber string `json:"orderNumber"`
	Zip         string `json:"zip"`
	Origin      string `json:"origin"`
}

// SaturdayDelivery is one routing-guide row flagged for Saturday
// delivery.
type SaturdayDelivery struct {
	PostalCode  string `json:"postalCode"`
	Service     string `json:"service"`
	TransitDays string `json:"transitDays"`
}

// ErrorBreakdown is one line of the error summary projection.
type ErrorBreakdown struct {
	ErrorText          string         `json:"errorText"`
	TotalCount         int            `json:"totalCount"`
	WarehouseBreakdown map[string]int `json:"warehouseBreakdown"`
}

// ErrorSummary is the summary projection over a set of enriched orders.
type ErrorSummary struct {
	TotalOrders      int              `json:"totalOrders"`
	Errors           []ErrorBreakdown `json:"errors"`
	Warehouses       []string         `json:"warehouses"`
	OrdersWithErrors int              `json:"ordersWithErrors"`
}
