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
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SkipReason classifies why a file never reached the parser. Skips are a
// normal outcome for this engine, not errors: the harness invokes it for
// every file write, most of which are out of scope.
type SkipReason string

const (
	// SkipNone means the file was loaded and is eligible for analysis.
	SkipNone SkipReason = ""

	// SkipDisabled means the engine is switched off by configuration.
	SkipDisabled SkipReason = "engine disabled"

	// SkipOutsideRoot means the resolved path escapes the project root.
	SkipOutsideRoot SkipReason = "path outside project root"

	// SkipExtension means the extension is not on the allow-list.
	SkipExtension SkipReason = "unsupported extension"

	// SkipMissing means the file does not exist or is not readable.
	SkipMissing SkipReason = "file missing or unreadable"

	// SkipNotRegular means the path is a directory or special file.
	SkipNotRegular SkipReason = "not a regular file"

	// SkipTooLarge means the file exceeds the configured line ceiling.
	SkipTooLarge SkipReason = "file exceeds line ceiling"

	// SkipUnparsable means the content could not be parsed cleanly.
	SkipUnparsable SkipReason = "content unparsable"
)

// SourceFile is one loaded, bounds-checked source file ready for parsing.
type SourceFile struct {
	// Path is the path as the caller supplied it, used in all reporting.
	Path string

	// Content is the raw source bytes.
	Content []byte

	// LineCount is the number of newline-delimited lines in Content.
	LineCount int
}

// LoadSource validates a path against the configuration and reads its
// content from disk.
//
// Description:
//
//	Checks run cheapest-first so oversized or out-of-scope files cost as
//	little as possible: extension, root containment (after resolving
//	symlinks, so a link inside the root pointing outside is still
//	rejected), file type, then a bounded read and the line ceiling.
//
// Outputs:
//   - *SourceFile: The loaded file. Nil when skipped.
//   - SkipReason: SkipNone on success, otherwise why the file is out of
//     scope. Never an error: a skip is a valid verdict input.
func LoadSource(cfg Config, path string) (*SourceFile, SkipReason) {
	if reason := checkPath(cfg, path); reason != SkipNone {
		return nil, reason
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, SkipMissing
	}
	if !info.Mode().IsRegular() {
		return nil, SkipNotRegular
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, SkipMissing
	}

	return boundedSource(cfg, path, content)
}

// SourceFromContent builds a SourceFile from content supplied by the
// caller instead of disk, for invocations that carry the written bytes
// inline. Path checks still apply; the file need not exist on disk yet.
func SourceFromContent(cfg Config, path string, content []byte) (*SourceFile, SkipReason) {
	if reason := checkPath(cfg, path); reason != SkipNone {
		return nil, reason
	}
	return boundedSource(cfg, path, content)
}

// checkPath enforces the extension allow-list and project-root containment.
func checkPath(cfg Config, path string) SkipReason {
	if !cfg.AllowsExtension(filepath.Ext(path)) {
		return SkipExtension
	}

	root := cfg.ProjectRoot
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return SkipOutsideRoot
		}
		root = wd
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return SkipOutsideRoot
	}
	if resolved, err := filepath.EvalSymlinks(rootAbs); err == nil {
		rootAbs = resolved
	}

	pathAbs, err := filepath.Abs(path)
	if err != nil {
		return SkipOutsideRoot
	}
	// Resolve the deepest existing ancestor so symlinked parents cannot
	// smuggle a path outside the root. The leaf itself may not exist yet.
	if resolved, err := resolveExisting(pathAbs); err == nil {
		pathAbs = resolved
	}

	rel, err := filepath.Rel(rootAbs, pathAbs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return SkipOutsideRoot
	}
	return SkipNone
}

// resolveExisting resolves symlinks in the longest existing prefix of path
// and rejoins the non-existing remainder.
func resolveExisting(path string) (string, error) {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved, nil
	}

	dir, base := filepath.Split(filepath.Clean(path))
	dir = filepath.Clean(dir)
	if dir == path {
		return "", fmt.Errorf("cannot resolve %s", path)
	}
	resolvedDir, err := resolveExisting(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedDir, base), nil
}

// boundedSource applies the line ceiling and produces the SourceFile.
func boundedSource(cfg Config, path string, content []byte) (*SourceFile, SkipReason) {
	lines := countLines(content)
	if cfg.MaxLines > 0 && lines > cfg.MaxLines {
		return nil, SkipTooLarge
	}
	return &SourceFile{
		Path:      path,
		Content:   content,
		LineCount: lines,
	}, SkipNone
}

func countLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	n := bytes.Count(content, []byte{'\n'})
	if content[len(content)-1] != '\n' {
		n++
	}
	return n
}
