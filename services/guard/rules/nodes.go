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

// Tree-sitter node type names for the Python grammar. Only the kinds rules
// dispatch on or inspect are named here.
const (
	nodeCall               = "call"
	nodeAttribute          = "attribute"
	nodeIdentifier         = "identifier"
	nodeString             = "string"
	nodeConcatenatedString = "concatenated_string"
	nodeBinaryOperator     = "binary_operator"
	nodeFunctionDef        = "function_definition"
	nodeLambda             = "lambda"
	nodeParameters         = "parameters"
	nodeDefaultParameter   = "default_parameter"
	nodeTypedDefaultParam  = "typed_default_parameter"
	nodeExceptClause       = "except_clause"
	nodeForStatement       = "for_statement"
	nodeWhileStatement     = "while_statement"
	nodeReturnStatement    = "return_statement"
	nodePassStatement      = "pass_statement"
	nodeRaiseStatement     = "raise_statement"
	nodeAssertStatement    = "assert_statement"
	nodeGlobalStatement    = "global_statement"
	nodeImportStatement    = "import_statement"
	nodeImportFrom         = "import_from_statement"
	nodeWildcardImport     = "wildcard_import"
	nodeClassDef           = "class_definition"
	nodeAssignment         = "assignment"
	nodeAugmentedAssign    = "augmented_assignment"
	nodeComparison         = "comparison_operator"
	nodeConditionalExpr    = "conditional_expression"
	nodeAwait              = "await"
	nodeKeywordArgument    = "keyword_argument"
	nodeArgumentList       = "argument_list"
	nodeExpressionStmt     = "expression_statement"
	nodeBlock              = "block"
	nodeComment            = "comment"
	nodeList               = "list"
	nodeDictionary         = "dictionary"
	nodeSet                = "set"
	nodeNone               = "none"
	nodeTrue               = "true"
	nodeFalse              = "false"
	nodeInteger            = "integer"
	nodeFloat              = "float"
	nodeDecoratedDef       = "decorated_definition"
)

// calleeNode returns the function part of a call expression.
func calleeNode(call *sitter.Node) *sitter.Node {
	if call == nil || call.Type() != nodeCall {
		return nil
	}
	return call.ChildByFieldName("function")
}

// calleeName returns the full dotted callee text of a call, e.g.
// "cursor.execute" or "eval". Empty when the callee is not a plain
// identifier or attribute chain.
func calleeName(call *sitter.Node, ctx *Context) string {
	fn := calleeNode(call)
	if fn == nil {
		return ""
	}
	switch fn.Type() {
	case nodeIdentifier, nodeAttribute:
		return ctx.Text(fn)
	}
	return ""
}

// lastSegment returns the final attribute of a dotted name:
// "db.session.commit" -> "commit".
func lastSegment(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

// callArguments returns the argument_list of a call, or nil.
func callArguments(call *sitter.Node) *sitter.Node {
	args := call.ChildByFieldName("arguments")
	if args == nil || args.Type() != nodeArgumentList {
		return nil
	}
	return args
}

// firstPositionalArg returns the first non-keyword argument of a call.
func firstPositionalArg(call *sitter.Node) *sitter.Node {
	args := callArguments(call)
	if args == nil {
		return nil
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		arg := args.NamedChild(i)
		if arg.Type() != nodeKeywordArgument {
			return arg
		}
	}
	return nil
}

// keywordArg returns the value of the named keyword argument, or nil.
func keywordArg(call *sitter.Node, name string, ctx *Context) *sitter.Node {
	args := callArguments(call)
	if args == nil {
		return nil
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		arg := args.NamedChild(i)
		if arg.Type() != nodeKeywordArgument {
			continue
		}
		if key := arg.ChildByFieldName("name"); key != nil && ctx.Text(key) == name {
			return arg.ChildByFieldName("value")
		}
	}
	return nil
}

// isFString reports whether a string node carries an f prefix (f, F, rf,
// fr, ...).
func isFString(n *sitter.Node, ctx *Context) bool {
	if n == nil || n.Type() != nodeString {
		return false
	}
	text := ctx.Text(n)
	for _, r := range text {
		switch r {
		case 'f', 'F':
			return true
		case '"', '\'':
			return false
		}
	}
	return false
}

// isStringLiteral reports whether the node is a plain or concatenated
// string literal.
func isStringLiteral(t string) bool {
	return t == nodeString || t == nodeConcatenatedString
}

// isInterpolatedString reports whether an expression builds a string
// dynamically: an f-string, a "+" or "%" binary expression over a string,
// or a .format() call.
func isInterpolatedString(n *sitter.Node, ctx *Context) bool {
	if n == nil {
		return false
	}
	switch n.Type() {
	case nodeString:
		return isFString(n, ctx)
	case nodeBinaryOperator:
		op := n.ChildByFieldName("operator")
		if op == nil {
			return false
		}
		if t := op.Type(); t != "+" && t != "%" {
			return false
		}
		left := n.ChildByFieldName("left")
		right := n.ChildByFieldName("right")
		return containsStringPiece(left, ctx) || containsStringPiece(right, ctx)
	case nodeCall:
		return lastSegment(calleeName(n, ctx)) == "format"
	}
	return false
}

// containsStringPiece reports whether an operand of a string-building
// expression is, or recursively contains, a string literal.
func containsStringPiece(n *sitter.Node, ctx *Context) bool {
	if n == nil {
		return false
	}
	switch n.Type() {
	case nodeString, nodeConcatenatedString:
		return true
	case nodeBinaryOperator:
		return containsStringPiece(n.ChildByFieldName("left"), ctx) ||
			containsStringPiece(n.ChildByFieldName("right"), ctx)
	}
	return false
}

// defaultParameterNodes collects default_parameter and
// typed_default_parameter children of a parameters node.
func defaultParameterNodes(params *sitter.Node) []*sitter.Node {
	if params == nil {
		return nil
	}
	var out []*sitter.Node
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		switch p.Type() {
		case nodeDefaultParameter, nodeTypedDefaultParam:
			out = append(out, p)
		}
	}
	return out
}

// parameterCount counts named parameters, excluding self and cls.
func parameterCount(params *sitter.Node, ctx *Context) int {
	if params == nil {
		return 0
	}
	count := 0
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		name := ""
		switch p.Type() {
		case nodeIdentifier:
			name = ctx.Text(p)
		case nodeDefaultParameter, nodeTypedDefaultParam, "typed_parameter":
			if id := p.ChildByFieldName("name"); id != nil {
				name = ctx.Text(id)
			} else if p.NamedChildCount() > 0 && p.NamedChild(0).Type() == nodeIdentifier {
				name = ctx.Text(p.NamedChild(0))
			}
		case "list_splat_pattern", "dictionary_splat_pattern":
			count++
			continue
		default:
			continue
		}
		if name == "self" || name == "cls" {
			continue
		}
		count++
	}
	return count
}

// exceptBlock returns the handler body block of an except clause, or nil.
func exceptBlock(clause *sitter.Node) *sitter.Node {
	for i := int(clause.ChildCount()) - 1; i >= 0; i-- {
		if c := clause.Child(i); c.Type() == nodeBlock {
			return c
		}
	}
	return nil
}

// exceptType returns the exception type expression of an except clause,
// or nil for a bare except.
func exceptType(clause *sitter.Node) *sitter.Node {
	for i := 0; i < int(clause.NamedChildCount()); i++ {
		c := clause.NamedChild(i)
		if c.Type() != nodeBlock && c.Type() != nodeComment {
			return c
		}
	}
	return nil
}

// directCallIn reports whether any direct statement of a block is (or
// starts with) a call whose callee satisfies pred. Only the block's own
// statements are inspected, not nested blocks.
func directCallIn(block *sitter.Node, ctx *Context, pred func(callee string) bool) bool {
	if block == nil {
		return false
	}
	for i := 0; i < int(block.NamedChildCount()); i++ {
		stmt := block.NamedChild(i)
		if stmt.Type() != nodeExpressionStmt {
			continue
		}
		for j := 0; j < int(stmt.NamedChildCount()); j++ {
			expr := stmt.NamedChild(j)
			if expr.Type() == nodeCall && pred(calleeName(expr, ctx)) {
				return true
			}
			// await logger.aerror(...) style handlers
			if expr.Type() == nodeAwait && expr.NamedChildCount() > 0 {
				inner := expr.NamedChild(0)
				if inner.Type() == nodeCall && pred(calleeName(inner, ctx)) {
					return true
				}
			}
		}
	}
	return false
}

// subtreeHasIdentifier scans a bounded subtree (a lambda or nested def
// body) for a bare identifier in names. Attribute accesses like obj.name
// do not count: only the object side of an attribute is visited.
func subtreeHasIdentifier(n *sitter.Node, ctx *Context, names []string) bool {
	if n == nil || len(names) == 0 {
		return false
	}
	if n.Type() == nodeIdentifier {
		text := ctx.Text(n)
		for _, name := range names {
			if text == name {
				return true
			}
		}
		return false
	}
	if n.Type() == nodeAttribute {
		return subtreeHasIdentifier(n.ChildByFieldName("object"), ctx, names)
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if subtreeHasIdentifier(n.NamedChild(i), ctx, names) {
			return true
		}
	}
	return false
}

// subtreeHasCall scans a bounded subtree for a call whose callee satisfies
// pred.
func subtreeHasCall(n *sitter.Node, ctx *Context, pred func(callee string) bool) bool {
	if n == nil {
		return false
	}
	if n.Type() == nodeCall && pred(calleeName(n, ctx)) {
		return true
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if subtreeHasCall(n.NamedChild(i), ctx, pred) {
			return true
		}
	}
	return false
}

// assignmentTargetName returns the identifier text of a simple assignment
// target, or "" for tuple/attribute/subscript targets.
func assignmentTargetName(assign *sitter.Node, ctx *Context) string {
	left := assign.ChildByFieldName("left")
	if left == nil || left.Type() != nodeIdentifier {
		return ""
	}
	return ctx.Text(left)
}
