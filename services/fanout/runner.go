// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package fanout runs one operation against N named backends in
// parallel and tolerates partial failure. A failed backend contributes
// zero rows and a status entry; it never cancels its peers.
package fanout

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"
)

// PerBackendTimeout is the hard deadline for a single backend task.
const PerBackendTimeout = 60 * time.Second

// Op fetches rows from one named backend.
type Op[T any] func(ctx context.Context, backend string) ([]T, error)

type outcome[T any] struct {
	index   int
	backend string
	rows    []T
	status  string
}

// Run schedules one task per backend onto a worker pool sized
// max(1, GOMAXPROCS). Results are merged in submission order; the
// status map records "OK (n rows)", "TIMEOUT", or "ERROR: <message>"
// per backend. Run itself never fails: zero backends yield an empty
// slice and an empty map.
func Run[T any](ctx context.Context, backends []string, op Op[T]) ([]T, map[string]string) {
	statuses := make(map[string]string, len(backends))
	if len(backends) == 0 {
		return []T{}, statuses
	}

	workers := runtime.GOMAXPROCS(0)
	if workers < 1 {
		workers = 1
	}
	if workers > len(backends) {
		workers = len(backends)
	}

	jobs := make(chan int, len(backends))
	results := make(chan outcome[T], len(backends))
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results <- runOne(ctx, idx, backends[idx], op)
			}
		}()
	}
	for i := range backends {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	close(results)

	collected := make([]outcome[T], 0, len(backends))
	for res := range results {
		collected = append(collected, res)
	}
	sort.Slice(collected, func(i, j int) bool { return collected[i].index < collected[j].index })

	var merged []T
	for _, res := range collected {
		statuses[res.backend] = res.status
		merged = append(merged, res.rows...)
	}
	if merged == nil {
		merged = []T{}
	}
	return merged, statuses
}

// runOne executes a single backend task under the per-backend deadline.
// A task that ignores its context still yields TIMEOUT here; its
// goroutine is abandoned, mirroring a thread stuck on blocking I/O.
func runOne[T any](ctx context.Context, idx int, backend string, op Op[T]) outcome[T] {
	taskCtx, cancel := context.WithTimeout(ctx, PerBackendTimeout)
	defer cancel()

	type taskResult struct {
		rows []T
		err  error
	}
	done := make(chan taskResult, 1)
	go func() {
		rows, err := op(taskCtx, backend)
		done <- taskResult{rows: rows, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			slog.Error("Backend task failed", "backend", backend, "error", res.err)
			return outcome[T]{index: idx, backend: backend,
				status: fmt.Sprintf("ERROR: %v", res.err)}
		}
		return outcome[T]{index: idx, backend: backend, rows: res.rows,
			status: fmt.Sprintf("OK (%d rows)", len(res.rows))}
	case <-taskCtx.Done():
		slog.Warn("Backend task hit the deadline", "backend", backend)
		return outcome[T]{index: idx, backend: backend, status: "TIMEOUT"}
	}
}

// SortByTimeDesc orders rows by their primary timestamp, newest first.
// Rows without a timestamp keep their relative order after all
// timestamped rows.
func SortByTimeDesc[T any](rows []T, ts func(T) *time.Time) {
	sort.SliceStable(rows, func(i, j int) bool {
		ti, tj := ts(rows[i]), ts(rows[j])
		switch {
		case ti == nil:
			return false
		case tj == nil:
			return true
		default:
			return ti.After(*tj)
		}
	})
}
