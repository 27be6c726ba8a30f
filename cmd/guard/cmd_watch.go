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
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianGuard/services/guard"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Rescan Python files as they change",
	Long: `Watch monitors a directory tree and rescans each Python file after
it is written, printing findings to stdout. Stop with Ctrl-C.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatchCommand,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", guard.DefaultDebounceWindow,
		"Quiet period before a changed file is rescanned")
}

func runWatchCommand(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}

	logger := newLogger(false)
	defer logger.Close()

	engine := guard.NewEngine(guard.ConfigFromEnv(), logger)
	colorize := isatty.IsTerminal(os.Stdout.Fd())

	watcher, err := guard.NewWatcher(engine, func(out guard.Outcome) {
		printOutcome(cmd, out, colorize)
	}, logger, watchDebounce)
	if err != nil {
		return err
	}
	defer watcher.Stop()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := watcher.Start(ctx, root); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
