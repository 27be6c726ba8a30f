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

	sitter "github.com/smacker/go-tree-sitter"
)

const (
	maxModuleImports = 20
	maxClassMethods  = 20
)

// organizationRules flag structure that makes a module hard to navigate.
func organizationRules() []*Rule {
	wildcardImport := &Rule{
		ID:        "wildcard-import",
		Category:  CategoryOrganization,
		Severity:  SeverityMedium,
		Summary:   "from module import *",
		NodeKinds: []string{nodeImportFrom},
	}
	wildcardImport.Check = func(n *sitter.Node, ctx *Context) *Finding {
		star := false
		for i := 0; i < int(n.ChildCount()); i++ {
			if n.Child(i).Type() == nodeWildcardImport {
				star = true
				break
			}
		}
		if !star {
			return nil
		}
		return wildcardImport.finding(n, ctx,
			"wildcard import hides where names come from and pollutes the namespace",
			"import the needed names explicitly")
	}

	importInsideFunction := &Rule{
		ID:        "import-inside-function",
		Category:  CategoryOrganization,
		Severity:  SeverityLow,
		Summary:   "import statement inside a function body",
		NodeKinds: []string{nodeImportStatement, nodeImportFrom},
	}
	importInsideFunction.Check = func(n *sitter.Node, ctx *Context) *Finding {
		if ctx.EnclosingFunction() == nil {
			return nil
		}
		return importInsideFunction.finding(n, ctx,
			"imports buried in function bodies hide the module's dependencies",
			"move the import to module level unless it breaks an import cycle")
	}

	tooManyImports := &Rule{
		ID:        "too-many-imports",
		Category:  CategoryOrganization,
		Severity:  SeverityLow,
		Summary:   fmt.Sprintf("more than %d module-level imports", maxModuleImports),
		ExitKinds: []FrameKind{FrameModule},
	}
	tooManyImports.OnExit = func(f *Frame, ctx *Context) *Finding {
		if f.Imports <= maxModuleImports {
			return nil
		}
		return tooManyImports.finding(f.Node, ctx,
			fmt.Sprintf("module imports %d names (limit %d); it likely has too many responsibilities", f.Imports, maxModuleImports),
			"split the module along its responsibilities")
	}

	godClass := &Rule{
		ID:        "god-class",
		Category:  CategoryOrganization,
		Severity:  SeverityMedium,
		Summary:   fmt.Sprintf("class with more than %d methods", maxClassMethods),
		NodeKinds: []string{nodeClassDef},
	}
	godClass.Check = func(n *sitter.Node, ctx *Context) *Finding {
		body := n.ChildByFieldName("body")
		if body == nil {
			return nil
		}
		methods := 0
		for i := 0; i < int(body.NamedChildCount()); i++ {
			child := body.NamedChild(i)
			switch child.Type() {
			case nodeFunctionDef:
				methods++
			case nodeDecoratedDef:
				if def := child.ChildByFieldName("definition"); def != nil && def.Type() == nodeFunctionDef {
					methods++
				}
			}
		}
		if methods <= maxClassMethods {
			return nil
		}
		name := ctx.Text(n.ChildByFieldName("name"))
		return godClass.finding(n, ctx,
			fmt.Sprintf("class %q has %d methods (limit %d)", name, methods, maxClassMethods),
			"split the class by responsibility or extract collaborators")
	}

	printCall := &Rule{
		ID:        "print-call",
		Category:  CategoryOrganization,
		Severity:  SeverityLow,
		Summary:   "print used instead of logging",
		NodeKinds: []string{nodeCall},
	}
	printCall.Check = func(n *sitter.Node, ctx *Context) *Finding {
		if calleeName(n, ctx) != "print" {
			return nil
		}
		// print inside an except handler counts as recording the failure,
		// which except-no-logging already accepts
		if ctx.InExcept() {
			return nil
		}
		if fn := ctx.EnclosingFunction(); fn != nil && isTestName(fn.Name) {
			return nil
		}
		return printCall.finding(n, ctx,
			"print writes unconditionally to stdout and cannot be filtered or redirected like a logger",
			"use the logging module with an appropriate level")
	}

	return []*Rule{
		wildcardImport,
		importInsideFunction,
		tooManyImports,
		godClass,
		printCall,
	}
}
