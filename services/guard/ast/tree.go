// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ast builds line/column-annotated syntax trees for Python source
// using tree-sitter. The tree is built once per invocation, owned by the
// traversal, and never mutated.
package ast

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Sentinel errors returned by Build. Callers map every one of them to a
// skip: an unparsable file is a job for a syntax checker, not this engine.
var (
	// ErrInvalidContent indicates the source is not valid UTF-8.
	ErrInvalidContent = errors.New("content is not valid UTF-8")

	// ErrSyntax indicates the grammar could not parse the source cleanly.
	ErrSyntax = errors.New("source contains syntax errors")
)

// Tree is an immutable parsed representation of one Python source file.
//
// Thread Safety: Tree is read-only after Build and safe to share, but a
// single analysis owns it in practice. Call Close when done to release the
// tree-sitter allocation.
type Tree struct {
	Path string

	tree   *sitter.Tree
	root   *sitter.Node
	source []byte
}

// Build parses Python source into a Tree.
//
// Description:
//
//	Creates a tree-sitter parser per call (parser instances are not safe
//	to share), parses the content, and rejects trees containing syntax
//	errors. Position metadata on every node is preserved for reporting.
//
// Inputs:
//   - ctx: Context for cancellation. Tree-sitter cannot be interrupted
//     mid-parse, but the context is honored between phases.
//   - source: Raw Python source bytes. Must be valid UTF-8.
//   - path: File path, used for error reporting only.
//
// Outputs:
//   - *Tree: The parsed tree. Nil on error.
//   - error: ErrInvalidContent, ErrSyntax, a wrapped parse failure, or a
//     context error.
func Build(ctx context.Context, source []byte, path string) (*Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled before start: %w", err)
	}

	if !utf8.Valid(source) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidContent, path)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed for %s: %w", path, err)
	}

	root := tree.RootNode()
	if root == nil {
		tree.Close()
		return nil, fmt.Errorf("%w: %s: nil root node", ErrSyntax, path)
	}
	if root.HasError() {
		tree.Close()
		return nil, fmt.Errorf("%w: %s", ErrSyntax, path)
	}

	return &Tree{
		Path:   path,
		tree:   tree,
		root:   root,
		source: source,
	}, nil
}

// Root returns the module node.
func (t *Tree) Root() *sitter.Node {
	return t.root
}

// Source returns the bytes the tree was parsed from.
func (t *Tree) Source() []byte {
	return t.source
}

// Close releases the underlying tree-sitter tree.
func (t *Tree) Close() {
	if t.tree != nil {
		t.tree.Close()
		t.tree = nil
	}
}
