// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation for security-critical
// request parameters.
//
// Server names end up in ad-hoc connection strings and warehouse IDs
// are interpolated into stack names, so both must be validated before
// use to prevent DSN and SQL injection.
package validation

import (
	"fmt"
	"regexp"
)

// serverPattern matches SQL Server hostnames as they appear in the
// fleet: letters, digits, hyphens, optional dotted domain segments.
var serverPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9\-]{0,62}(\.[A-Za-z0-9\-]{1,63})*$`)

// warehousePattern matches warehouse identifiers like AVP1 or CFF1.
var warehousePattern = regexp.MustCompile(`^[A-Za-z0-9]{2,8}$`)

// ValidateServerName validates a database server hostname before it is
// synthesized into a DSN.
//
// Valid names are 1-63 characters per label, letters, digits, and
// hyphens, with optional dotted domain suffixes. Anything else is
// rejected so that semicolons and whitespace can never reach the
// connection string.
func ValidateServerName(server string) error {
	if server == "" {
		return fmt.Errorf("server name is empty")
	}
	if !serverPattern.MatchString(server) {
		return fmt.Errorf("invalid server name %q", server)
	}
	return nil
}

// ValidateWarehouseID validates a warehouse identifier before it is
// used to derive a stack name.
func ValidateWarehouseID(warehouseID string) error {
	if warehouseID == "" {
		return fmt.Errorf("warehouse id is empty")
	}
	if !warehousePattern.MatchString(warehouseID) {
		return fmt.Errorf("invalid warehouse id %q", warehouseID)
	}
	return nil
}
