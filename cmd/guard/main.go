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
)

func main() {
	// Cobra handles parsing the arguments. The hook subcommand manages its
	// own exit semantics (always zero); everything else exits non-zero on
	// error like a normal CLI.
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
