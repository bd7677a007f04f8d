// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dberrors

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/roadrats/wmsops/services/dbconn"
)

// errorQuery reads dirty: the log table is hot and the report tolerates
// phantom rows. One known-noisy divert confirmation stack is excluded.
const errorQuery = `
SELECT TOP 10000
    logged_on_local,
    machine_id,
    user_id,
    resource_name,
    details,
    call_stack,
    arguments
FROM dbo.t_log_message WITH (NOLOCK)
WHERE logged_on_utc >= DATEADD(day, @p1, GETUTCDATE())
AND resource_name LIKE 'CANT_EXE_DB%'
AND call_stack <> '1: Process Exacta Divert Confirmation:32'
ORDER BY logged_on_utc DESC`

// Repository opens an ad-hoc connection per server. The fleet shares a
// schema but not a datasource, so the named pools do not apply here.
type Repository struct {
	factory  *dbconn.Factory
	database string
}

func NewRepository(factory *dbconn.Factory, database string) *Repository {
	return &Repository{factory: factory, database: database}
}

// QueryServer fetches the matching log rows from one server. The days
// value is already clamped by the caller.
func (r *Repository) QueryServer(ctx context.Context, server string, days int) ([]Entry, error) {
	slog.Info("Querying server for database errors",
		"server", server, "database", r.database, "days", days)

	db, err := r.factory.OpenHost(server, r.database)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	// Negative offset makes DATEADD look backward.
	rows, err := db.QueryContext(ctx, errorQuery, -days)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", server, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e                                             Entry
			logged                                        sql.NullTime
			machine, user, resource, details, stack, args sql.NullString
		)
		if err := rows.Scan(&logged, &machine, &user, &resource, &details, &stack, &args); err != nil {
			return nil, fmt.Errorf("failed to scan row from %s: %w", server, err)
		}
		e.ServerName = server
		if logged.Valid {
			t := logged.Time
			e.LoggedOnLocal = &t
		}
		e.MachineID = machine.String
		e.UserID = user.String
		e.ResourceName = resource.String
		e.Details = details.String
		e.CallStack = stack.String
		e.Arguments = args.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading rows from %s: %w", server, err)
	}
	slog.Info("Server returned errors", "server", server, "rows", len(out))
	return out, nil
}

// TestConnection probes one server and returns a human-readable status.
func (r *Repository) TestConnection(ctx context.Context, server string) string {
	db, err := r.factory.OpenHost(server, r.database)
	if err != nil {
		return fmt.Sprintf("Failed to connect to %s: %v", server, err)
	}
	defer db.Close()

	var version string
	if err := db.QueryRowContext(ctx, "SELECT @@VERSION").Scan(&version); err != nil {
		return fmt.Sprintf("Failed to connect to %s: %v", server, err)
	}
	return fmt.Sprintf("Connected to %s - %s", server, version)
}
