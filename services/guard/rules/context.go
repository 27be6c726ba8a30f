// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rules

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// =============================================================================
// FRAMES
// =============================================================================

// FrameKind identifies the construct a context frame represents.
type FrameKind int

const (
	FrameModule FrameKind = iota
	FrameFunction
	FrameAsyncFunction
	FrameLambda
	FrameClass
	FrameLoop
	FrameComprehension
	FrameTry
	FrameExcept
	FrameFinally
	FrameWith
)

// String returns the frame kind name for logs and tests.
func (k FrameKind) String() string {
	switch k {
	case FrameModule:
		return "module"
	case FrameFunction:
		return "function"
	case FrameAsyncFunction:
		return "async_function"
	case FrameLambda:
		return "lambda"
	case FrameClass:
		return "class"
	case FrameLoop:
		return "loop"
	case FrameComprehension:
		return "comprehension"
	case FrameTry:
		return "try"
	case FrameExcept:
		return "except"
	case FrameFinally:
		return "finally"
	case FrameWith:
		return "with"
	default:
		return "unknown"
	}
}

// isScope reports whether the frame starts a new function-like scope.
// Guard and loop lookups stop here: a nested function may run far outside
// the dynamic extent of any lexically enclosing try or loop.
func (k FrameKind) isScope() bool {
	return k == FrameFunction || k == FrameAsyncFunction || k == FrameLambda
}

// Frame records one construct lexically enclosing the current node, plus
// counters the traversal accumulates for scope-triggered rules.
type Frame struct {
	Kind FrameKind

	// Node is the construct's AST node.
	Node *sitter.Node

	// Name is the function or class name, when the construct has one.
	Name string

	// LoopVars are the variables bound by a loop or comprehension frame.
	LoopVars []string

	// WhileTrue marks a `while True:` loop frame.
	WhileTrue bool

	// Counters maintained by the traversal. Branches, Returns, MaxDepth and
	// SawTry are tracked on function-like frames; Breaks, Returns and Raises
	// on loop frames; Imports on the module frame.
	Branches int
	Returns  int
	Breaks   int
	Raises   int
	Imports  int
	SawTry   bool

	// depth is the current block nesting inside a function-like frame.
	depth    int
	MaxDepth int
}

// EnterBlock bumps the nesting depth, tracking the maximum seen.
func (f *Frame) EnterBlock() {
	f.depth++
	if f.depth > f.MaxDepth {
		f.MaxDepth = f.depth
	}
}

// LeaveBlock undoes EnterBlock.
func (f *Frame) LeaveBlock() {
	f.depth--
}

// =============================================================================
// CONTEXT
// =============================================================================

// Context is the stack-shaped traversal state passed read-only to every
// rule check. The walker pushes a frame on entering a scope-relevant
// construct and pops it on leaving; the stack never outlives one traversal.
type Context struct {
	// Path is the file being scanned, for messages and logs.
	Path string

	// Source is the raw file content the tree was parsed from.
	Source []byte

	frames []*Frame
	lines  []string
}

// NewContext creates a Context for one traversal of the given source.
func NewContext(path string, source []byte) *Context {
	return &Context{
		Path:   path,
		Source: source,
		frames: make([]*Frame, 0, 16),
		lines:  strings.Split(string(source), "\n"),
	}
}

// Push adds a frame to the stack. Called only by the walker.
func (c *Context) Push(f *Frame) {
	c.frames = append(c.frames, f)
}

// Pop removes and returns the top frame. Called only by the walker.
func (c *Context) Pop() *Frame {
	if len(c.frames) == 0 {
		return nil
	}
	f := c.frames[len(c.frames)-1]
	c.frames = c.frames[:len(c.frames)-1]
	return f
}

// Depth returns the current stack depth.
func (c *Context) Depth() int {
	return len(c.frames)
}

// Top returns the innermost frame, or nil for an empty stack.
func (c *Context) Top() *Frame {
	if len(c.frames) == 0 {
		return nil
	}
	return c.frames[len(c.frames)-1]
}

// EnclosingFunction returns the innermost function-like frame, or nil at
// module level.
func (c *Context) EnclosingFunction() *Frame {
	for i := len(c.frames) - 1; i >= 0; i-- {
		if c.frames[i].Kind.isScope() {
			return c.frames[i]
		}
	}
	return nil
}

// EnclosingClass returns the innermost class frame that is not separated
// from the current node by a function scope. Used to distinguish class-body
// assignments from method-body assignments.
func (c *Context) EnclosingClass() *Frame {
	for i := len(c.frames) - 1; i >= 0; i-- {
		f := c.frames[i]
		if f.Kind.isScope() {
			return nil
		}
		if f.Kind == FrameClass {
			return f
		}
	}
	return nil
}

// InGuard reports whether the current node is inside a try body. Function
// scopes reset the guard: a nested def inside a try is not considered
// guarded.
func (c *Context) InGuard() bool {
	for i := len(c.frames) - 1; i >= 0; i-- {
		f := c.frames[i]
		if f.Kind.isScope() {
			return false
		}
		if f.Kind == FrameTry || f.Kind == FrameExcept || f.Kind == FrameFinally {
			return true
		}
	}
	return false
}

// InExcept reports whether the current node is inside an except handler
// body, with the same function-scope reset as InGuard.
func (c *Context) InExcept() bool {
	for i := len(c.frames) - 1; i >= 0; i-- {
		f := c.frames[i]
		if f.Kind.isScope() {
			return false
		}
		if f.Kind == FrameExcept {
			return true
		}
	}
	return false
}

// InFinally reports whether the current node is inside a finally clause.
func (c *Context) InFinally() bool {
	for i := len(c.frames) - 1; i >= 0; i-- {
		f := c.frames[i]
		if f.Kind.isScope() {
			return false
		}
		if f.Kind == FrameFinally {
			return true
		}
	}
	return false
}

// InLoop reports whether the current node is inside a loop body within the
// current function scope.
func (c *Context) InLoop() bool {
	return c.NearestLoop() != nil
}

// NearestLoop returns the innermost loop frame within the current function
// scope, or nil.
func (c *Context) NearestLoop() *Frame {
	for i := len(c.frames) - 1; i >= 0; i-- {
		f := c.frames[i]
		if f.Kind.isScope() {
			return nil
		}
		if f.Kind == FrameLoop || f.Kind == FrameComprehension {
			return f
		}
	}
	return nil
}

// LoopDepth counts loop frames enclosing the current node within the
// current function scope.
func (c *Context) LoopDepth() int {
	depth := 0
	for i := len(c.frames) - 1; i >= 0; i-- {
		f := c.frames[i]
		if f.Kind.isScope() {
			break
		}
		if f.Kind == FrameLoop {
			depth++
		}
	}
	return depth
}

// EnclosingLoopVars collects the bound variables of every loop and
// comprehension frame enclosing the current node, crossing function
// boundaries. Closures late-bind free variables regardless of intervening
// defs, so the lookup deliberately does not stop at scope frames.
func (c *Context) EnclosingLoopVars() []string {
	var vars []string
	for i := len(c.frames) - 1; i >= 0; i-- {
		f := c.frames[i]
		if f.Kind == FrameLoop || f.Kind == FrameComprehension {
			vars = append(vars, f.LoopVars...)
		}
	}
	return vars
}

// InWith reports whether the current node is inside a with statement within
// the current function scope.
func (c *Context) InWith() bool {
	for i := len(c.frames) - 1; i >= 0; i-- {
		f := c.frames[i]
		if f.Kind.isScope() {
			return false
		}
		if f.Kind == FrameWith {
			return true
		}
	}
	return false
}

// Module returns the bottom module frame, or nil before the walk starts.
func (c *Context) Module() *Frame {
	if len(c.frames) == 0 {
		return nil
	}
	return c.frames[0]
}

// =============================================================================
// SOURCE HELPERS
// =============================================================================

// Text returns the source text of a node.
func (c *Context) Text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	start, end := n.StartByte(), n.EndByte()
	if int(end) > len(c.Source) || start > end {
		return ""
	}
	return string(c.Source[start:end])
}

// LineText returns the trimmed source line at the given 0-indexed row, for
// finding snippets.
func (c *Context) LineText(row int) string {
	if row < 0 || row >= len(c.lines) {
		return ""
	}
	return strings.TrimSpace(c.lines[row])
}
