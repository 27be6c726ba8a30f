// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package hook

import (
	"context"
	"io"

	"github.com/AleutianAI/AleutianGuard/pkg/logging"
	"github.com/AleutianAI/AleutianGuard/services/guard"
)

// Run executes one complete hook invocation: decode stdin, analyze, write
// the response to stdout.
//
// Description:
//
//	Every failure path degrades to the empty (silent) response. A panic
//	anywhere in the pipeline is recovered here, so the returned response
//	is always a valid JSON object and the caller can always exit zero.
//
// Inputs:
//   - ctx: Context for cancellation, passed through to the engine.
//   - in: The invocation payload, normally os.Stdin.
//   - engine: A configured scan engine.
//   - logger: Diagnostics destination. Must not write to the response
//     stream.
//
// Outputs:
//   - Response: The object to write to stdout.
func Run(ctx context.Context, in io.Reader, engine *guard.Engine, logger *logging.Logger) (resp Response) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("hook panicked; responding silent", "panic", rec)
			resp = Response{}
		}
	}()

	inv, err := DecodeInvocation(in)
	if err != nil {
		logger.Warn("hook input rejected", "error", err.Error())
		return Response{}
	}

	if !inv.Succeeded() {
		logger.Debug("triggering tool failed; skipping scan",
			"tool", inv.ToolName, "file", inv.ToolInput.FilePath)
		return Response{}
	}

	var out guard.Outcome
	if inv.ToolInput.Content != "" {
		out = engine.AnalyzeContent(ctx, inv.ToolInput.FilePath, []byte(inv.ToolInput.Content))
	} else {
		out = engine.AnalyzeFile(ctx, inv.ToolInput.FilePath)
	}

	return ResponseFor(out)
}
