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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianGuard/pkg/logging"
	"github.com/AleutianAI/AleutianGuard/services/guard"
	"github.com/AleutianAI/AleutianGuard/services/guard/verdict"
)

func testEngine(t *testing.T) (*guard.Engine, string) {
	t.Helper()
	root := t.TempDir()
	cfg := guard.DefaultConfig()
	cfg.ProjectRoot = root
	return guard.NewEngine(cfg, quietLogger()), root
}

func quietLogger() *logging.Logger {
	return logging.New(logging.Config{Quiet: true})
}

func writeSource(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func invocationJSON(path, content string) string {
	payload := map[string]any{
		"tool_name":  "Write",
		"tool_input": map[string]any{"file_path": path, "content": content},
	}
	raw, _ := json.Marshal(payload)
	return string(raw)
}

// ===== DECODING =====

func TestDecodeInvocation_Valid(t *testing.T) {
	inv, err := DecodeInvocation(strings.NewReader(
		`{"tool_name":"Write","tool_input":{"file_path":"/tmp/a.py","content":"x = 1"}}`))
	require.NoError(t, err)
	assert.Equal(t, "Write", inv.ToolName)
	assert.Equal(t, "/tmp/a.py", inv.ToolInput.FilePath)
	assert.Equal(t, "x = 1", inv.ToolInput.Content)
	assert.Nil(t, inv.ToolResponse)
}

func TestDecodeInvocation_MalformedJSON(t *testing.T) {
	inv, err := DecodeInvocation(strings.NewReader(`{"tool_name": `))
	assert.Nil(t, inv)
	assert.ErrorContains(t, err, "decode hook invocation")
}

func TestDecodeInvocation_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no tool_name", `{"tool_input":{"file_path":"/tmp/a.py"}}`},
		{"no file_path", `{"tool_name":"Write","tool_input":{}}`},
		{"empty object", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := DecodeInvocation(strings.NewReader(tt.input))
			assert.Nil(t, inv)
			assert.ErrorContains(t, err, "invalid hook invocation")
		})
	}
}

func TestInvocation_Succeeded(t *testing.T) {
	yes, no := true, false
	tests := []struct {
		name string
		resp *ToolResponse
		want bool
	}{
		{"no response", nil, true},
		{"response without success", &ToolResponse{}, true},
		{"success true", &ToolResponse{Success: &yes}, true},
		{"success false", &ToolResponse{Success: &no}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := Invocation{ToolResponse: tt.resp}
			assert.Equal(t, tt.want, inv.Succeeded())
		})
	}
}

// ===== RESPONSE MAPPING =====

func TestResponseFor(t *testing.T) {
	tests := []struct {
		name string
		out  guard.Outcome
		want Response
	}{
		{
			"block",
			guard.Outcome{Decision: verdict.DecisionBlock, BlockReason: "critical stuff"},
			Response{Decision: "block", Reason: "critical stuff"},
		},
		{
			"warn",
			guard.Outcome{Decision: verdict.DecisionWarn, Feedback: "some issues"},
			Response{Message: "some issues"},
		},
		{
			"silent",
			guard.Outcome{Decision: verdict.DecisionSilent},
			Response{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResponseFor(tt.out))
		})
	}
}

func TestWriteResponse_WireShape(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteResponse(&buf, Response{}))
	assert.Equal(t, "{}\n", buf.String(), "silent response is the empty object")

	buf.Reset()
	require.NoError(t, WriteResponse(&buf, Response{Decision: "block", Reason: "r"}))
	assert.JSONEq(t, `{"decision":"block","reason":"r"}`, buf.String())

	buf.Reset()
	require.NoError(t, WriteResponse(&buf, Response{Message: "m"}))
	assert.JSONEq(t, `{"message":"m"}`, buf.String())
}

// ===== END-TO-END RUN =====

func TestRun_MalformedInputIsSilent(t *testing.T) {
	engine, _ := testEngine(t)
	resp := Run(context.Background(), strings.NewReader("not json"), engine, quietLogger())
	assert.Equal(t, Response{}, resp)
}

func TestRun_FailedToolIsSilent(t *testing.T) {
	engine, root := testEngine(t)
	input := fmt.Sprintf(
		`{"tool_name":"Write","tool_input":{"file_path":%q,"content":"eval(x)"},"tool_response":{"success":false}}`,
		filepath.Join(root, "a.py"))

	resp := Run(context.Background(), strings.NewReader(input), engine, quietLogger())
	assert.Equal(t, Response{}, resp)
}

func TestRun_CriticalContentBlocks(t *testing.T) {
	engine, root := testEngine(t)
	source := "def q(db, uid):\n    db.execute(f\"DELETE FROM t WHERE id = {uid}\")\n"
	input := invocationJSON(filepath.Join(root, "dao.py"), source)

	resp := Run(context.Background(), strings.NewReader(input), engine, quietLogger())
	assert.Equal(t, "block", resp.Decision)
	assert.Contains(t, resp.Reason, "injection-heuristic")
	assert.Empty(t, resp.Message)
}

func TestRun_WarnContentCarriesMessage(t *testing.T) {
	engine, root := testEngine(t)
	input := invocationJSON(filepath.Join(root, "defaults.py"), "def f(x=[]):\n    return x\n")

	resp := Run(context.Background(), strings.NewReader(input), engine, quietLogger())
	assert.Empty(t, resp.Decision)
	assert.Contains(t, resp.Message, "mutable-default")
}

func TestRun_CleanContentIsSilent(t *testing.T) {
	engine, root := testEngine(t)
	input := invocationJSON(filepath.Join(root, "clean.py"), "x = 1\n")

	resp := Run(context.Background(), strings.NewReader(input), engine, quietLogger())
	assert.Equal(t, Response{}, resp)
}

func TestRun_NoContentReadsFromDisk(t *testing.T) {
	engine, root := testEngine(t)
	path := filepath.Join(root, "disk.py")
	writeSource(t, path, "def f(x=[]):\n    return x\n")
	input := fmt.Sprintf(`{"tool_name":"Edit","tool_input":{"file_path":%q}}`, path)

	resp := Run(context.Background(), strings.NewReader(input), engine, quietLogger())
	assert.Contains(t, resp.Message, "mutable-default")
}

func TestRun_PathOutsideRootIsSilent(t *testing.T) {
	engine, _ := testEngine(t)
	input := invocationJSON("/etc/other.py", "eval(x)\n")

	resp := Run(context.Background(), strings.NewReader(input), engine, quietLogger())
	assert.Equal(t, Response{}, resp)
}
