// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package walk implements the single context-tracking traversal of a parsed
// source tree.
//
// The walk is pre-order and linear in the number of nodes: every rule is
// dispatched from the same pass via a node-kind table, and scope-level
// rules read counters the walk accumulates on context frames instead of
// re-walking subtrees. Adding a rule never touches this package.
//
// Thread Safety: Run creates all state per call; concurrent runs on
// different trees are independent.
package walk

import (
	"log/slog"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/AleutianAI/AleutianGuard/services/guard/ast"
	"github.com/AleutianAI/AleutianGuard/services/guard/rules"
)

// Run traverses the tree once and returns every finding produced by the
// registered rules, in traversal order.
//
// A panicking rule is isolated: the panic is logged, that rule's potential
// finding is dropped, and the scan continues with all other rules.
func Run(tree *ast.Tree, logger *slog.Logger) []rules.Finding {
	if logger == nil {
		logger = slog.Default()
	}
	w := &walker{
		ctx:    rules.NewContext(tree.Path, tree.Source()),
		logger: logger,
	}
	w.visit(tree.Root())
	return w.findings
}

type walker struct {
	ctx      *rules.Context
	logger   *slog.Logger
	findings []rules.Finding
}

// visit processes one node: update frame counters, dispatch interested
// rules (before the node's own frame is pushed, so rules see strictly
// enclosing context), then recurse.
func (w *walker) visit(n *sitter.Node) {
	kind := n.Type()

	w.count(kind, n)

	for _, r := range rules.ForNode(kind) {
		w.applyNode(r, n)
	}

	frame := w.frameFor(kind, n)
	if frame != nil {
		w.ctx.Push(frame)
	}

	isBlock := kind == "block"
	if isBlock {
		if fn := w.ctx.EnclosingFunction(); fn != nil {
			fn.EnterBlock()
		}
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		w.visit(n.Child(i))
	}

	if isBlock {
		if fn := w.ctx.EnclosingFunction(); fn != nil {
			fn.LeaveBlock()
		}
	}

	if frame != nil {
		popped := w.ctx.Pop()
		for _, r := range rules.ForExit(popped.Kind) {
			w.applyExit(r, popped)
		}
	}
}

// count maintains the per-frame counters scope-triggered rules read.
func (w *walker) count(kind string, n *sitter.Node) {
	switch kind {
	case "if_statement", "elif_clause", "for_statement", "while_statement",
		"except_clause", "boolean_operator", "conditional_expression", "if_clause":
		if fn := w.ctx.EnclosingFunction(); fn != nil {
			fn.Branches++
		}
	case "return_statement":
		if fn := w.ctx.EnclosingFunction(); fn != nil {
			fn.Returns++
		}
		if loop := w.ctx.NearestLoop(); loop != nil {
			loop.Returns++
		}
	case "break_statement":
		if loop := w.ctx.NearestLoop(); loop != nil {
			loop.Breaks++
		}
	case "raise_statement":
		if loop := w.ctx.NearestLoop(); loop != nil {
			loop.Raises++
		}
	case "try_statement":
		if fn := w.ctx.EnclosingFunction(); fn != nil {
			fn.SawTry = true
		}
	case "import_statement", "import_from_statement", "future_import_statement":
		if w.ctx.EnclosingFunction() == nil {
			if mod := w.ctx.Module(); mod != nil {
				mod.Imports++
			}
		}
	}
}

// frameFor returns a new context frame when the node introduces a
// scope-relevant construct, or nil.
func (w *walker) frameFor(kind string, n *sitter.Node) *rules.Frame {
	switch kind {
	case "module":
		return &rules.Frame{Kind: rules.FrameModule, Node: n}
	case "function_definition":
		frame := &rules.Frame{Kind: rules.FrameFunction, Node: n}
		for i := 0; i < int(n.ChildCount()); i++ {
			if n.Child(i).Type() == "async" {
				frame.Kind = rules.FrameAsyncFunction
				break
			}
		}
		if name := n.ChildByFieldName("name"); name != nil {
			frame.Name = w.ctx.Text(name)
		}
		return frame
	case "lambda":
		return &rules.Frame{Kind: rules.FrameLambda, Node: n}
	case "class_definition":
		frame := &rules.Frame{Kind: rules.FrameClass, Node: n}
		if name := n.ChildByFieldName("name"); name != nil {
			frame.Name = w.ctx.Text(name)
		}
		return frame
	case "for_statement":
		return &rules.Frame{
			Kind:     rules.FrameLoop,
			Node:     n,
			LoopVars: boundNames(n.ChildByFieldName("left"), w.ctx),
		}
	case "while_statement":
		frame := &rules.Frame{Kind: rules.FrameLoop, Node: n}
		if cond := n.ChildByFieldName("condition"); cond != nil && cond.Type() == "true" {
			frame.WhileTrue = true
		}
		return frame
	case "for_in_clause":
		return &rules.Frame{
			Kind:     rules.FrameComprehension,
			Node:     n,
			LoopVars: boundNames(n.ChildByFieldName("left"), w.ctx),
		}
	case "try_statement":
		return &rules.Frame{Kind: rules.FrameTry, Node: n}
	case "except_clause":
		return &rules.Frame{Kind: rules.FrameExcept, Node: n}
	case "finally_clause":
		return &rules.Frame{Kind: rules.FrameFinally, Node: n}
	case "with_statement":
		return &rules.Frame{Kind: rules.FrameWith, Node: n}
	}
	return nil
}

// applyNode runs a node-triggered rule with panic isolation.
func (w *walker) applyNode(r *rules.Rule, n *sitter.Node) {
	defer w.recoverRule(r)
	if f := r.Check(n, w.ctx); f != nil {
		w.findings = append(w.findings, *f)
	}
}

// applyExit runs a scope-triggered rule with panic isolation.
func (w *walker) applyExit(r *rules.Rule, frame *rules.Frame) {
	defer w.recoverRule(r)
	if f := r.OnExit(frame, w.ctx); f != nil {
		w.findings = append(w.findings, *f)
	}
}

func (w *walker) recoverRule(r *rules.Rule) {
	if rec := recover(); rec != nil {
		w.logger.Error("rule check panicked; skipping rule at this site",
			slog.String("rule", r.ID),
			slog.String("file", w.ctx.Path),
			slog.Any("panic", rec))
	}
}

// boundNames extracts identifiers bound by a loop target.
func boundNames(target *sitter.Node, ctx *rules.Context) []string {
	if target == nil {
		return nil
	}
	switch target.Type() {
	case "identifier":
		return []string{ctx.Text(target)}
	case "pattern_list", "tuple_pattern", "list_pattern":
		var names []string
		for i := 0; i < int(target.NamedChildCount()); i++ {
			names = append(names, boundNames(target.NamedChild(i), ctx)...)
		}
		return names
	}
	return nil
}
