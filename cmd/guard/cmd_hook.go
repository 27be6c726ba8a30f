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
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianGuard/services/guard"
	"github.com/AleutianAI/AleutianGuard/services/guard/hook"
)

// hookCmd is the harness entrypoint: one JSON invocation on stdin, one
// JSON response on stdout, exit zero no matter what. Diagnostics go to
// stderr and the log file only.
var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Run as a tool-execution hook (JSON on stdin, JSON on stdout)",
	Run: func(cmd *cobra.Command, args []string) {
		runHookCommand(cmd)
		// The harness treats a non-zero exit as a hook failure; a broken
		// analyzer must never take the harness down with it.
		os.Exit(0)
	},
}

// runHookCommand performs one hook invocation. Separated from the Run
// func so the logger's deferred Close runs before os.Exit, which skips
// defers in the frame it is called from.
func runHookCommand(cmd *cobra.Command) {
	logger := newLogger(true)
	defer logger.Close()

	engine := guard.NewEngine(guard.ConfigFromEnv(), logger)
	resp := hook.Run(cmd.Context(), cmd.InOrStdin(), engine, logger)

	if err := hook.WriteResponse(cmd.OutOrStdout(), resp); err != nil {
		logger.Error("failed to write hook response", "error", err.Error())
	}
}
