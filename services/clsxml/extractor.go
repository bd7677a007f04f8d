// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package clsxml extracts named fields from the XML payloads that ride
// inside CLS database rows. The documents come from an upstream gateway
// and are treated as untrusted: DOCTYPE declarations and entity
// definitions are rejected outright, and every extractor degrades to an
// empty value instead of returning an error.
package clsxml

import (
	"encoding/xml"
	"strings"
	"time"
)

// Tag names used by the CLS gateway responses.
const (
	tagConsigneeContact    = "CONSIGNEE_CONTACT"
	tagConsigneeAddress1   = "CONSIGNEE_ADDRESS1"
	tagConsigneeAddress2   = "CONSIGNEE_ADDRESS2"
	tagConsigneeCity       = "CONSIGNEE_CITY"
	tagConsigneeState      = "CONSIGNEE_STATE"
	tagConsigneePostalCode = "CONSIGNEE_POSTALCODE"
	tagShipDate            = "SHIPDATE"
	tagArriveDate          = "ARRIVE_DATE"
	tagTravelDays          = "CHE_TRAVEL_DAYS"
	tagRoute               = "CHE_ROUTE"
	tagServiceLevel        = "SERVICE"
	tagErrorMessage        = "ERROR_MESSAGE"
	tagError               = "ERROR"
)

// dateLayouts are tried in order; the first successful parse wins.
var dateLayouts = []string{"1/2/2006", "2006-01-02", "1/2/06"}

// Consignee holds the ship-to fields pulled from a request XML.
type Consignee struct {
	Contact    string `json:"contact"`
	Address1   string `json:"address1"`
	Address2   string `json:"address2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalcode"`
}

// ShippingInfo holds the travel fields pulled from a response XML.
// DaysBetween is nil when either date fails to parse.
type ShippingInfo struct {
	ShipDate    string `json:"shipDate"`
	ArriveDate  string `json:"arriveDate"`
	ShipDay     string `json:"shipDay"`
	ArriveDay   string `json:"arriveDay"`
	TravelDays  string `json:"travelDays"`
	DaysBetween *int   `json:"daysBetween"`
}

// Field returns the trimmed text of the first element named tag, or ""
// when the tag is absent, blank, or the document does not parse.
func Field(doc, tag string) string {
	if strings.TrimSpace(doc) == "" {
		return ""
	}
	text, ok := firstElementText(doc, tag)
	if !ok {
		return ""
	}
	return strings.TrimSpace(text)
}

// ExtractConsignee pulls the ship-to block from a request XML.
func ExtractConsignee(doc string) Consignee {
	return Consignee{
		Contact:    Field(doc, tagConsigneeContact),
		Address1:   Field(doc, tagConsigneeAddress1),
		Address2:   Field(doc, tagConsigneeAddress2),
		City:       Field(doc, tagConsigneeCity),
		State:      Field(doc, tagConsigneeState),
		PostalCode: Field(doc, tagConsigneePostalCode),
	}
}

// ExtractShippingInfo pulls ship/arrive dates and the travel-days string
// from a response XML. Weekday names are upper-case English. DaysBetween
// is the whole-day difference arrive minus ship when both dates parse.
func ExtractShippingInfo(doc string) ShippingInfo {
	info := ShippingInfo{
		ShipDate:   Field(doc, tagShipDate),
		ArriveDate: Field(doc, tagArriveDate),
		TravelDays: Field(doc, tagTravelDays),
	}
	ship, shipOK := parseDate(info.ShipDate)
	arrive, arriveOK := parseDate(info.ArriveDate)
	if shipOK {
		info.ShipDay = strings.ToUpper(ship.Weekday().String())
	}
	if arriveOK {
		info.ArriveDay = strings.ToUpper(arrive.Weekday().String())
	}
	if shipOK && arriveOK {
		days := int(arrive.Sub(ship).Hours() / 24)
		info.DaysBetween = &days
	}
	return info
}

// ExtractRoute returns the CLS route code from a response XML.
func ExtractRoute(doc string) string {
	return Field(doc, tagRoute)
}

// ExtractServiceLevel returns the carrier service level from a response XML.
func ExtractServiceLevel(doc string) string {
	return Field(doc, tagServiceLevel)
}

// ExtractError returns the error text embedded in a response XML.
// ERROR_MESSAGE takes precedence over the legacy ERROR tag.
func ExtractError(doc string) string {
	if msg := Field(doc, tagErrorMessage); msg != "" {
		return msg
	}
	return Field(doc, tagError)
}

func parseDate(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// firstElementText walks the token stream and returns the concatenated
// character data of the first element named tag. The walk aborts on any
// DOCTYPE directive or malformed token; entity expansion is never enabled.
func firstElementText(doc, tag string) (string, bool) {
	dec := xml.NewDecoder(strings.NewReader(doc))
	dec.Strict = true
	// No Entity map: undeclared entities fail the parse instead of
	// expanding.
	depth := 0
	capturing := false
	captureDepth := 0
	var text strings.Builder

	for {
		tok, err := dec.Token()
		if err != nil {
			return "", false
		}
		switch t := tok.(type) {
		case xml.Directive:
			// DOCTYPE can smuggle entity definitions. Reject the
			// whole document.
			return "", false
		case xml.StartElement:
			depth++
			if !capturing && t.Name.Local == tag {
				capturing = true
				captureDepth = depth
			}
		case xml.EndElement:
			if capturing && depth == captureDepth {
				return text.String(), true
			}
			depth--
		case xml.CharData:
			if capturing {
				text.Write(t)
			}
		}
	}
}
