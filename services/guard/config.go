// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package guard

import (
	"os"
	"strconv"
	"strings"

	"github.com/AleutianAI/AleutianGuard/services/guard/rules"
	"github.com/AleutianAI/AleutianGuard/services/guard/verdict"
)

// Environment variables read by ConfigFromEnv. The environment is read
// exactly once, at process entry; the resulting Config is passed by value
// through every stage and never consulted ad hoc.
const (
	EnvEnabled         = "GUARD_ENABLED"
	EnvSeverities      = "GUARD_SEVERITIES"
	EnvBlockOnCritical = "GUARD_BLOCK_ON_CRITICAL"
	EnvDisabledRules   = "GUARD_DISABLED_RULES"
	EnvMaxIssues       = "GUARD_MAX_ISSUES"
	EnvMaxLines        = "GUARD_MAX_LINES"
	EnvProjectRoot     = "GUARD_PROJECT_ROOT"
)

// Default limits.
const (
	DefaultMaxLines  = 10000
	DefaultMaxIssues = 25
)

// Config is the immutable per-invocation configuration.
type Config struct {
	// Enabled turns the whole engine off when false; every invocation is
	// then a silent skip.
	Enabled bool

	// ProjectRoot is the boundary files must live under. Empty means the
	// current working directory.
	ProjectRoot string

	// Extensions is the source-extension allow-list.
	Extensions []string

	// MaxLines is the line-count ceiling above which a file is never
	// promoted to parsing.
	MaxLines int

	// EnabledSeverities filters findings after the scan. Empty means all.
	EnabledSeverities map[rules.Severity]bool

	// DisabledRules drops findings by rule id after the scan.
	DisabledRules map[string]bool

	// BlockOnCritical enables the Block decision for CRITICAL findings.
	BlockOnCritical bool

	// MaxIssues caps how many findings the reporter renders. It never
	// affects the decision.
	MaxIssues int
}

// DefaultConfig returns the configuration used when no environment is set:
// engine on, all severities, block on critical.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		Extensions:      []string{".py", ".pyi"},
		MaxLines:        DefaultMaxLines,
		BlockOnCritical: true,
		MaxIssues:       DefaultMaxIssues,
	}
}

// ConfigFromEnv loads the configuration from the process environment,
// falling back to DefaultConfig values for anything unset or unparsable.
// Unknown severity names and rule ids are kept out of the sets rather than
// causing an error: a typo in configuration must not break the harness.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	cfg.Enabled = envBool(EnvEnabled, cfg.Enabled)
	cfg.BlockOnCritical = envBool(EnvBlockOnCritical, cfg.BlockOnCritical)

	if v := os.Getenv(EnvProjectRoot); v != "" {
		cfg.ProjectRoot = v
	}
	if v := os.Getenv(EnvMaxLines); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxLines = n
		}
	}
	if v := os.Getenv(EnvMaxIssues); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxIssues = n
		}
	}
	if v := os.Getenv(EnvSeverities); v != "" {
		set := make(map[rules.Severity]bool)
		for _, name := range splitCSV(v) {
			sev := rules.Severity(strings.ToUpper(name))
			if sev.Valid() {
				set[sev] = true
			}
		}
		if len(set) > 0 {
			cfg.EnabledSeverities = set
		}
	}
	if v := os.Getenv(EnvDisabledRules); v != "" {
		set := make(map[string]bool)
		for _, id := range splitCSV(v) {
			set[id] = true
		}
		cfg.DisabledRules = set
	}

	return cfg
}

// VerdictOptions projects the policy-relevant fields for the aggregator.
func (c Config) VerdictOptions() verdict.Options {
	return verdict.Options{
		EnabledSeverities: c.EnabledSeverities,
		DisabledRules:     c.DisabledRules,
		BlockOnCritical:   c.BlockOnCritical,
	}
}

// AllowsExtension reports whether the path's extension is on the
// allow-list.
func (c Config) AllowsExtension(ext string) bool {
	for _, allowed := range c.Extensions {
		if strings.EqualFold(ext, allowed) {
			return true
		}
	}
	return false
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		return def
	}
	return b
}

func splitCSV(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
