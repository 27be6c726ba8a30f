// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runHookWith(t *testing.T, input string) string {
	t.Helper()
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	cmd.SetIn(strings.NewReader(input))
	var out bytes.Buffer
	cmd.SetOut(&out)
	runHookCommand(cmd)
	return out.String()
}

func TestRunHookCommand_WarnResponse(t *testing.T) {
	root := t.TempDir()
	t.Setenv("GUARD_PROJECT_ROOT", root)

	input := fmt.Sprintf(
		`{"tool_name":"Write","tool_input":{"file_path":%q,"content":"def f(x=[]):\n    return x\n"}}`,
		filepath.Join(root, "a.py"))
	out := runHookWith(t, input)

	var resp map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Contains(t, resp["message"], "mutable-default")
}

func TestRunHookCommand_MalformedInputIsSilent(t *testing.T) {
	out := runHookWith(t, "not json")
	assert.JSONEq(t, `{}`, out)
}

func TestRunHookCommand_ClosesLogFile(t *testing.T) {
	root := t.TempDir()
	t.Setenv("GUARD_PROJECT_ROOT", root)

	dir := t.TempDir()
	logDir = dir
	t.Cleanup(func() { logDir = "" })

	// Malformed input produces a warn log line; the log file must be
	// flushed by the time runHookCommand returns, not left to os.Exit.
	_ = runHookWith(t, "not json")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	content, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(content), "hook input rejected")
}
