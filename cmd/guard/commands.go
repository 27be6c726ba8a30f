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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianGuard/pkg/logging"
)

// version is stamped at build time via -ldflags.
var version = "dev"

// --- Global Command Variables ---
var (
	verbose bool
	logDir  string

	rootCmd = &cobra.Command{
		Use:   "guard",
		Short: "Structural antipattern scanner for Python source files",
		Long: `Guard scans Python source for structural antipatterns: swallowed
exceptions, mutable defaults, injection-prone calls, unbounded loops,
unclosed resources, and similar hazards. It runs standalone via 'scan'
or as a tool-execution hook via 'hook'.`,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the guard version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "guard", version)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "",
		"Directory for JSON log files (disabled when empty)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(watchCmd)
}

// newLogger builds the process logger from the global flags. Quiet keeps
// stderr clean for commands whose stderr carries user-facing output.
func newLogger(quiet bool) *logging.Logger {
	level := logging.LevelInfo
	if verbose {
		level = logging.LevelDebug
	}
	return logging.New(logging.Config{
		Level:   level,
		LogDir:  logDir,
		Service: "guard",
		Quiet:   quiet,
	})
}
