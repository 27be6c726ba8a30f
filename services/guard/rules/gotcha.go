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
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// pythonBuiltins that are commonly shadowed by accident.
var pythonBuiltins = map[string]bool{
	"list": true, "dict": true, "set": true, "str": true, "int": true,
	"float": true, "id": true, "type": true, "input": true, "len": true,
	"max": true, "min": true, "sum": true, "filter": true, "map": true,
	"range": true, "object": true, "print": true, "bytes": true,
	"hash": true, "next": true, "vars": true, "dir": true, "all": true,
	"any": true, "format": true,
}

// gotchaRules detect legal-but-surprising Python semantics.
func gotchaRules() []*Rule {
	identityComparisonLiteral := &Rule{
		ID:        "identity-comparison-literal",
		Category:  CategoryGotcha,
		Severity:  SeverityMedium,
		Summary:   "is/is not compared against a literal",
		NodeKinds: []string{nodeComparison},
	}
	identityComparisonLiteral.Check = func(n *sitter.Node, ctx *Context) *Finding {
		op, operand := comparisonWith(n, []string{"is", "is not"}, isValueLiteral)
		if op == "" {
			return nil
		}
		return identityComparisonLiteral.finding(n, ctx,
			fmt.Sprintf("%q against the literal %s checks object identity, which is interpreter-dependent for values", op, operand),
			"use == / != for value comparison; reserve `is` for None and sentinels")
	}

	equalityWithNone := &Rule{
		ID:        "equality-with-none",
		Category:  CategoryGotcha,
		Severity:  SeverityLow,
		Summary:   "== / != compared against None",
		NodeKinds: []string{nodeComparison},
	}
	equalityWithNone.Check = func(n *sitter.Node, ctx *Context) *Finding {
		op, _ := comparisonWith(n, []string{"==", "!="}, func(t string) bool { return t == nodeNone })
		if op == "" {
			return nil
		}
		return equalityWithNone.finding(n, ctx,
			fmt.Sprintf("%q against None invokes __eq__, which a class can override arbitrarily", op),
			"use `is None` / `is not None`")
	}

	booleanComparison := &Rule{
		ID:        "boolean-comparison",
		Category:  CategoryGotcha,
		Severity:  SeverityLow,
		Summary:   "== / != compared against True or False",
		NodeKinds: []string{nodeComparison},
	}
	booleanComparison.Check = func(n *sitter.Node, ctx *Context) *Finding {
		op, operand := comparisonWith(n, []string{"==", "!="}, func(t string) bool {
			return t == nodeTrue || t == nodeFalse
		})
		if op == "" {
			return nil
		}
		return booleanComparison.finding(n, ctx,
			fmt.Sprintf("comparing %q against %s is redundant", op, operand),
			"use the value directly in the condition (or `not value`)")
	}

	lateBindingClosure := &Rule{
		ID:        "late-binding-closure",
		Category:  CategoryGotcha,
		Severity:  SeverityHigh,
		Summary:   "closure in a loop captures the loop variable by reference",
		NodeKinds: []string{nodeLambda, nodeFunctionDef},
	}
	lateBindingClosure.Check = func(n *sitter.Node, ctx *Context) *Finding {
		loopVars := ctx.EnclosingLoopVars()
		if len(loopVars) == 0 {
			return nil
		}
		// an explicit default-argument capture (lambda i=i: ...) opts out,
		// and rebinding the name as a parameter shadows the loop variable
		params := n.ChildByFieldName("parameters")
		captured := map[string]bool{}
		if params != nil {
			for i := 0; i < int(params.NamedChildCount()); i++ {
				p := params.NamedChild(i)
				name := ""
				switch p.Type() {
				case nodeIdentifier:
					name = ctx.Text(p)
				case nodeDefaultParameter, nodeTypedDefaultParam, "typed_parameter":
					if id := p.ChildByFieldName("name"); id != nil {
						name = ctx.Text(id)
					}
				}
				if name != "" {
					captured[name] = true
				}
			}
		}
		var free []string
		for _, v := range loopVars {
			if !captured[v] {
				free = append(free, v)
			}
		}
		body := n.ChildByFieldName("body")
		if body == nil || !subtreeHasIdentifier(body, ctx, free) {
			return nil
		}
		return lateBindingClosure.finding(n, ctx,
			"closure reads the loop variable when called, not when defined; every closure sees the final value",
			"bind the current value with a default argument (lambda v=v: ...) or functools.partial")
	}

	mutableClassAttribute := &Rule{
		ID:        "mutable-class-attribute",
		Category:  CategoryGotcha,
		Severity:  SeverityMedium,
		Summary:   "mutable object assigned at class level",
		NodeKinds: []string{nodeAssignment},
	}
	mutableClassAttribute.Check = func(n *sitter.Node, ctx *Context) *Finding {
		if ctx.EnclosingClass() == nil {
			return nil
		}
		right := n.ChildByFieldName("right")
		if right == nil {
			return nil
		}
		switch right.Type() {
		case nodeList, nodeDictionary, nodeSet:
		default:
			return nil
		}
		name := assignmentTargetName(n, ctx)
		return mutableClassAttribute.finding(n, ctx,
			fmt.Sprintf("class attribute %q is a mutable object shared by every instance", name),
			"initialize the attribute in __init__, or use a dataclass field(default_factory=...)")
	}

	callableDefault := &Rule{
		ID:        "callable-default",
		Category:  CategoryGotcha,
		Severity:  SeverityMedium,
		Summary:   "function call in a default parameter value",
		NodeKinds: []string{nodeFunctionDef},
	}
	callableDefault.Check = func(n *sitter.Node, ctx *Context) *Finding {
		for _, p := range defaultParameterNodes(n.ChildByFieldName("parameters")) {
			value := p.ChildByFieldName("value")
			if value == nil || value.Type() != nodeCall {
				continue
			}
			return callableDefault.finding(value, ctx,
				fmt.Sprintf("default %q is evaluated once at definition time, not per call", ctx.Text(value)),
				"default to None and call it inside the function body")
		}
		return nil
	}

	shadowBuiltin := &Rule{
		ID:        "shadow-builtin",
		Category:  CategoryGotcha,
		Severity:  SeverityLow,
		Summary:   "assignment shadows a builtin name",
		NodeKinds: []string{nodeAssignment},
	}
	shadowBuiltin.Check = func(n *sitter.Node, ctx *Context) *Finding {
		name := assignmentTargetName(n, ctx)
		if name == "" || !pythonBuiltins[strings.ToLower(name)] || name != strings.ToLower(name) {
			return nil
		}
		return shadowBuiltin.finding(n, ctx,
			fmt.Sprintf("%q shadows the builtin of the same name for the rest of this scope", name),
			"rename the variable (e.g. items, mapping, text)")
	}

	return []*Rule{
		identityComparisonLiteral,
		equalityWithNone,
		booleanComparison,
		lateBindingClosure,
		mutableClassAttribute,
		callableDefault,
		shadowBuiltin,
	}
}

// isValueLiteral reports whether a node type is a concrete value literal
// (None excluded: `is None` is the correct idiom).
func isValueLiteral(t string) bool {
	switch t {
	case nodeString, nodeInteger, nodeFloat, nodeTrue, nodeFalse:
		return true
	}
	return false
}

// comparisonWith scans a comparison_operator node for one of the given
// operator tokens with an operand satisfying operandOK on either side.
// It returns the matched operator and the operand's source-ish type name,
// or ("", "").
func comparisonWith(n *sitter.Node, operators []string, operandOK func(nodeType string) bool) (string, string) {
	total := int(n.ChildCount())
	for i := 0; i < total; i++ {
		child := n.Child(i)
		matched := ""
		for _, op := range operators {
			if child.Type() == op {
				matched = op
				break
			}
		}
		if matched == "" {
			continue
		}
		if i > 0 && operandOK(n.Child(i-1).Type()) {
			return matched, n.Child(i - 1).Type()
		}
		if i+1 < total && operandOK(n.Child(i+1).Type()) {
			return matched, n.Child(i + 1).Type()
		}
	}
	return "", ""
}
