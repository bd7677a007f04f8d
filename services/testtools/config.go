// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package testtools implements the non-production order manipulation
// tools: deep order lookups across the AAD and IO stacks, ship and
// setup actions backed by stored procedures, fulfillment status
// events, and item import through the XML gateway. Everything here
// targets test databases only.
package testtools

import "strings"

// Config carries the test-tools datasource and gateway settings.
type Config struct {
	AadServer     string `env:"AAD_SERVER" envDefault:"WMSSQL-TEST"`
	AadDatabase   string `env:"AAD_DATABASE" envDefault:"AAD"`
	IoServer      string `env:"IO_SERVER" envDefault:"WMSSQL-IO-TEST"`
	IoDatabase    string `env:"IO_DATABASE" envDefault:"AAD_IMPORT_ORDER"`
	XMLGatewayURL string `env:"XML_GATEWAY_URL" envDefault:"http://wmsapp-is-test/XMLLinkGateway/AlXmlGw.asp"`
}

// AadConnection describes the AAD datasource for response payloads.
func (c Config) AadConnection() string {
	return c.AadServer + " / " + c.AadDatabase
}

// IoConnection describes the IO datasource for response payloads.
func (c Config) IoConnection() string {
	return c.IoServer + " / " + c.IoDatabase
}

// NormalizeStack maps a requested stack name onto "aad", "io", or
// "both". Anything unrecognized falls back to "both".
func NormalizeStack(stack string) string {
	switch s := strings.ToLower(strings.TrimSpace(stack)); s {
	case "aad", "io", "both":
		return s
	default:
		return "both"
	}
}
