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
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(root string) Config {
	cfg := DefaultConfig()
	cfg.ProjectRoot = root
	return cfg
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadSource_OK(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "app.py", "x = 1\ny = 2\n")

	src, reason := LoadSource(testConfig(root), path)
	require.Equal(t, SkipNone, reason)
	require.NotNil(t, src)
	assert.Equal(t, path, src.Path)
	assert.Equal(t, 2, src.LineCount)
	assert.Equal(t, "x = 1\ny = 2\n", string(src.Content))
}

func TestLoadSource_UnsupportedExtension(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "main.go", "package main\n")

	src, reason := LoadSource(testConfig(root), path)
	assert.Nil(t, src)
	assert.Equal(t, SkipExtension, reason)
}

func TestLoadSource_Missing(t *testing.T) {
	root := t.TempDir()

	src, reason := LoadSource(testConfig(root), filepath.Join(root, "ghost.py"))
	assert.Nil(t, src)
	assert.Equal(t, SkipMissing, reason)
}

func TestLoadSource_Directory(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "pkg.py")
	require.NoError(t, os.Mkdir(dir, 0755))

	src, reason := LoadSource(testConfig(root), dir)
	assert.Nil(t, src)
	assert.Equal(t, SkipNotRegular, reason)
}

func TestLoadSource_OutsideRoot(t *testing.T) {
	root := t.TempDir()
	elsewhere := t.TempDir()
	path := writeFile(t, elsewhere, "outside.py", "x = 1\n")

	src, reason := LoadSource(testConfig(root), path)
	assert.Nil(t, src)
	assert.Equal(t, SkipOutsideRoot, reason)
}

func TestLoadSource_SymlinkEscape(t *testing.T) {
	root := t.TempDir()
	elsewhere := t.TempDir()
	target := writeFile(t, elsewhere, "secret.py", "x = 1\n")

	link := filepath.Join(root, "inside.py")
	require.NoError(t, os.Symlink(target, link))

	src, reason := LoadSource(testConfig(root), link)
	assert.Nil(t, src)
	assert.Equal(t, SkipOutsideRoot, reason)
}

func TestLoadSource_LineCeiling(t *testing.T) {
	root := t.TempDir()
	cfg := testConfig(root)
	cfg.MaxLines = 10

	path := writeFile(t, root, "big.py", strings.Repeat("x = 1\n", 11))

	src, reason := LoadSource(cfg, path)
	assert.Nil(t, src)
	assert.Equal(t, SkipTooLarge, reason)
}

func TestLoadSource_AtCeilingIsLoaded(t *testing.T) {
	root := t.TempDir()
	cfg := testConfig(root)
	cfg.MaxLines = 10

	path := writeFile(t, root, "fits.py", strings.Repeat("x = 1\n", 10))

	src, reason := LoadSource(cfg, path)
	require.Equal(t, SkipNone, reason)
	assert.Equal(t, 10, src.LineCount)
}

func TestSourceFromContent_OK(t *testing.T) {
	root := t.TempDir()
	// The file deliberately does not exist: content came over the wire.
	path := filepath.Join(root, "pending.py")

	src, reason := SourceFromContent(testConfig(root), path, []byte("x = 1"))
	require.Equal(t, SkipNone, reason)
	assert.Equal(t, 1, src.LineCount, "final line without newline still counts")
}

func TestSourceFromContent_ChecksStillApply(t *testing.T) {
	root := t.TempDir()

	_, reason := SourceFromContent(testConfig(root), filepath.Join(root, "x.txt"), []byte("hi"))
	assert.Equal(t, SkipExtension, reason)

	cfg := testConfig(root)
	cfg.MaxLines = 1
	_, reason = SourceFromContent(cfg, filepath.Join(root, "x.py"), []byte("a = 1\nb = 2\n"))
	assert.Equal(t, SkipTooLarge, reason)
}

func TestCountLines(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"empty", "", 0},
		{"single with newline", "x\n", 1},
		{"single without newline", "x", 1},
		{"multi", "a\nb\nc\n", 3},
		{"trailing partial", "a\nb", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, countLines([]byte(tt.content)))
		})
	}
}
