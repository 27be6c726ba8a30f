// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package guard

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Package-level meter for scan operations.
var meter = otel.Meter("aleutian.guard")

// Metrics for scan operations.
var (
	scanLatency   metric.Float64Histogram
	scanTotal     metric.Int64Counter
	findingsTotal metric.Int64Counter
	skipTotal     metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		scanLatency, err = meter.Float64Histogram(
			"guard_scan_duration_seconds",
			metric.WithDescription("Duration of scan operations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		scanTotal, err = meter.Int64Counter(
			"guard_scan_total",
			metric.WithDescription("Total number of scan operations by decision"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		findingsTotal, err = meter.Int64Counter(
			"guard_findings_total",
			metric.WithDescription("Total findings emitted by severity"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		skipTotal, err = meter.Int64Counter(
			"guard_skip_total",
			metric.WithDescription("Total skipped invocations by reason"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordScanMetrics records metrics for a completed scan.
func recordScanMetrics(ctx context.Context, decision string, duration time.Duration, counts map[string]int) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("decision", decision))
	scanLatency.Record(ctx, duration.Seconds(), attrs)
	scanTotal.Add(ctx, 1, attrs)

	for severity, n := range counts {
		findingsTotal.Add(ctx, int64(n),
			metric.WithAttributes(attribute.String("severity", severity)),
		)
	}
}

// recordSkipMetrics records a skipped invocation.
func recordSkipMetrics(ctx context.Context, reason string) {
	if err := initMetrics(); err != nil {
		return
	}

	skipTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}
