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
	"encoding/json"
	"fmt"
	"io"

	"github.com/AleutianAI/AleutianGuard/services/guard"
	"github.com/AleutianAI/AleutianGuard/services/guard/verdict"
)

// Response is the JSON object the hook writes to stdout.
//
// Exactly one shape per decision:
//
//	Block:  {"decision": "block", "reason": "..."}
//	Warn:   {"message": "..."}
//	Silent: {}
type Response struct {
	Decision string `json:"decision,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Message  string `json:"message,omitempty"`
}

// ResponseFor maps an engine outcome to the wire response.
func ResponseFor(out guard.Outcome) Response {
	switch out.Decision {
	case verdict.DecisionBlock:
		return Response{Decision: "block", Reason: out.BlockReason}
	case verdict.DecisionWarn:
		return Response{Message: out.Feedback}
	default:
		return Response{}
	}
}

// WriteResponse encodes the response as a single JSON object to w.
func WriteResponse(w io.Writer, resp Response) error {
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		return fmt.Errorf("encode hook response: %w", err)
	}
	return nil
}
