// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package hook implements the tool-harness protocol: a JSON invocation on
// stdin describing a completed file write, a JSON response on stdout
// carrying the verdict. The process always exits zero; a crashing or
// erroring analyzer must never break the harness it serves.
package hook

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Invocation is the harness payload describing one tool execution.
type Invocation struct {
	// ToolName identifies the tool that ran (e.g. "Write", "Edit").
	ToolName string `json:"tool_name" validate:"required"`

	// ToolInput carries the tool's arguments.
	ToolInput ToolInput `json:"tool_input" validate:"required"`

	// ToolResponse carries the tool's result, when the harness invokes the
	// hook after execution. Nil for pre-execution hooks.
	ToolResponse *ToolResponse `json:"tool_response,omitempty"`
}

// ToolInput is the file-write portion of the tool's arguments.
type ToolInput struct {
	// FilePath is the path the tool wrote or will write.
	FilePath string `json:"file_path" validate:"required"`

	// Content is the written content when the harness includes it inline.
	// Empty means the hook reads the file from disk.
	Content string `json:"content,omitempty"`
}

// ToolResponse is the tool's execution result.
type ToolResponse struct {
	// Success reports whether the triggering operation succeeded. Nil
	// means the harness did not say; treated as success.
	Success *bool `json:"success,omitempty"`
}

// Succeeded reports whether the triggering tool execution succeeded. A
// failed write means there is nothing meaningful to scan, so the engine
// treats it as an immediate silent skip.
func (inv *Invocation) Succeeded() bool {
	if inv.ToolResponse == nil || inv.ToolResponse.Success == nil {
		return true
	}
	return *inv.ToolResponse.Success
}

// DecodeInvocation parses and validates one invocation from r.
//
// Outputs:
//   - *Invocation: The decoded payload. Nil on error.
//   - error: A wrapped decode or validation error. Callers map any error
//     to an empty (silent) response; malformed input is the harness's
//     problem, not a reason to block.
func DecodeInvocation(r io.Reader) (*Invocation, error) {
	var inv Invocation
	if err := json.NewDecoder(r).Decode(&inv); err != nil {
		return nil, fmt.Errorf("decode hook invocation: %w", err)
	}
	if err := validate.Struct(&inv); err != nil {
		return nil, fmt.Errorf("invalid hook invocation: %w", err)
	}
	return &inv, nil
}
