// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package guard drives the scan pipeline: load and bounds-check a source
// file, parse it, run the rule traversal, aggregate findings into a
// verdict, and render the payload. The engine is fail-open end to end:
// anything that prevents analysis degrades to a silent skip, never to an
// error that could wedge the calling harness.
package guard

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianGuard/pkg/logging"
	"github.com/AleutianAI/AleutianGuard/services/guard/ast"
	"github.com/AleutianAI/AleutianGuard/services/guard/verdict"
	"github.com/AleutianAI/AleutianGuard/services/guard/walk"
)

// Outcome is the complete result of one engine invocation.
//
// A skipped invocation carries SkipReason and a Silent decision; an
// analyzed one carries the verdict summary plus the rendered payload for
// whichever decision was reached.
type Outcome struct {
	// InvocationID correlates every log line of one invocation.
	InvocationID string `json:"invocation_id"`

	// Path is the analyzed path as supplied by the caller.
	Path string `json:"path"`

	// Decision is the final Silent/Warn/Block classification.
	Decision verdict.Decision `json:"decision"`

	// Skipped is true when the file never reached the parser.
	Skipped bool `json:"skipped,omitempty"`

	// SkipReason explains a skip; empty otherwise.
	SkipReason SkipReason `json:"skip_reason,omitempty"`

	// Summary holds the filtered findings and per-severity counts.
	Summary verdict.Summary `json:"summary"`

	// Feedback is the rendered Warn text; empty unless Decision is Warn.
	Feedback string `json:"feedback,omitempty"`

	// BlockReason is the rendered Block text; empty unless Decision is
	// Block.
	BlockReason string `json:"block_reason,omitempty"`

	// Duration is wall time for the whole invocation.
	Duration time.Duration `json:"duration_ns"`
}

// Engine runs scans under one immutable configuration.
//
// Thread Safety: Engine holds no per-scan state; one Engine may serve
// concurrent AnalyzeFile calls.
type Engine struct {
	cfg    Config
	logger *logging.Logger
}

// NewEngine creates an Engine. A nil logger falls back to the package
// default (stderr, Info).
func NewEngine(cfg Config, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{cfg: cfg, logger: logger}
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// AnalyzeFile scans the file at path, reading its content from disk.
func (e *Engine) AnalyzeFile(ctx context.Context, path string) Outcome {
	return e.run(ctx, path, nil)
}

// AnalyzeContent scans content supplied by the caller under the given
// path, for invocations that carry the written bytes inline. The file need
// not exist on disk.
func (e *Engine) AnalyzeContent(ctx context.Context, path string, content []byte) Outcome {
	return e.run(ctx, path, content)
}

func (e *Engine) run(ctx context.Context, path string, content []byte) Outcome {
	start := time.Now()
	out := Outcome{
		InvocationID: uuid.NewString(),
		Path:         path,
		Decision:     verdict.DecisionSilent,
	}
	logger := e.logger.With("invocation_id", out.InvocationID, "file", path)

	if !e.cfg.Enabled {
		return e.skip(ctx, logger, out, SkipDisabled, start)
	}

	var src *SourceFile
	var reason SkipReason
	if content != nil {
		src, reason = SourceFromContent(e.cfg, path, content)
	} else {
		src, reason = LoadSource(e.cfg, path)
	}
	if reason != SkipNone {
		return e.skip(ctx, logger, out, reason, start)
	}

	tree, err := ast.Build(ctx, src.Content, src.Path)
	if err != nil {
		logger.Debug("parse rejected", "error", err.Error())
		return e.skip(ctx, logger, out, SkipUnparsable, start)
	}
	defer tree.Close()

	findings := walk.Run(tree, logger.Slog())
	out.Summary = verdict.Evaluate(findings, e.cfg.VerdictOptions())
	out.Decision = out.Summary.Decision

	switch out.Decision {
	case verdict.DecisionWarn:
		out.Feedback = verdict.FeedbackText(path, out.Summary, e.cfg.MaxIssues)
	case verdict.DecisionBlock:
		out.BlockReason = verdict.BlockReason(path, out.Summary)
	}

	out.Duration = time.Since(start)

	logger.Info("scan complete",
		"decision", string(out.Decision),
		"lines", src.LineCount,
		"raw_findings", len(findings),
		"reported_findings", len(out.Summary.Findings),
		"duration_ms", out.Duration.Milliseconds())

	recordScanMetrics(ctx, string(out.Decision), out.Duration, severityCounts(out.Summary))
	return out
}

// skip finalizes a silent-skip outcome.
func (e *Engine) skip(ctx context.Context, logger *logging.Logger, out Outcome, reason SkipReason, start time.Time) Outcome {
	out.Skipped = true
	out.SkipReason = reason
	out.Duration = time.Since(start)

	logger.Debug("scan skipped", "reason", string(reason))
	recordSkipMetrics(ctx, string(reason))
	return out
}

func severityCounts(s verdict.Summary) map[string]int {
	counts := make(map[string]int, len(s.Counts))
	for sev, n := range s.Counts {
		counts[string(sev)] = n
	}
	return counts
}
