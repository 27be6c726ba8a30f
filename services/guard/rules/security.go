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

// secretNameHints mark assignment targets that look like credentials.
var secretNameHints = []string{
	"password", "passwd", "secret", "token", "api_key", "apikey",
	"private_key", "auth_key", "credential",
}

// securityRules detect injection, unsafe deserialization and credential
// handling hazards. These carry the only CRITICAL severities in the
// catalogue.
func securityRules() []*Rule {
	injectionHeuristic := &Rule{
		ID:        "injection-heuristic",
		Category:  CategorySecurity,
		Severity:  SeverityCritical,
		Summary:   "SQL/command string built dynamically in an execute call",
		NodeKinds: []string{nodeCall},
	}
	injectionHeuristic.Check = func(n *sitter.Node, ctx *Context) *Finding {
		callee := calleeName(n, ctx)
		if callee == "" || !executeCallees[lastSegment(callee)] {
			return nil
		}
		arg := firstPositionalArg(n)
		if arg == nil || !isInterpolatedString(arg, ctx) {
			return nil
		}
		return injectionHeuristic.finding(n, ctx,
			fmt.Sprintf("%s is called with an interpolated string; attacker-controlled input reaches the query", callee),
			"use a parameterized query with placeholders and pass values separately")
	}

	evalExec := &Rule{
		ID:        "eval-exec",
		Category:  CategorySecurity,
		Severity:  SeverityCritical,
		Summary:   "eval/exec on dynamic input",
		NodeKinds: []string{nodeCall},
	}
	evalExec.Check = func(n *sitter.Node, ctx *Context) *Finding {
		callee := calleeName(n, ctx)
		if callee != "eval" && callee != "exec" {
			return nil
		}
		return evalExec.finding(n, ctx,
			fmt.Sprintf("%s executes arbitrary code from its argument", callee),
			"replace with ast.literal_eval, a dispatch table, or explicit parsing")
	}

	shellTrue := &Rule{
		ID:        "shell-true",
		Category:  CategorySecurity,
		Severity:  SeverityCritical,
		Summary:   "subprocess invoked with shell=True",
		NodeKinds: []string{nodeCall},
	}
	shellTrue.Check = func(n *sitter.Node, ctx *Context) *Finding {
		callee := calleeName(n, ctx)
		if !isSubprocessCallee(callee) {
			return nil
		}
		shell := keywordArg(n, "shell", ctx)
		if shell == nil || shell.Type() != nodeTrue {
			return nil
		}
		return shellTrue.finding(n, ctx,
			"shell=True routes the command line through the shell, enabling injection",
			"pass the command as an argument list with shell=False")
	}

	osSystem := &Rule{
		ID:        "os-system",
		Category:  CategorySecurity,
		Severity:  SeverityCritical,
		Summary:   "os.system shells out with no argument separation",
		NodeKinds: []string{nodeCall},
	}
	osSystem.Check = func(n *sitter.Node, ctx *Context) *Finding {
		if calleeName(n, ctx) != "os.system" {
			return nil
		}
		return osSystem.finding(n, ctx,
			"os.system passes its argument to the shell unescaped",
			"use subprocess.run with an argument list")
	}

	pickleLoad := &Rule{
		ID:        "pickle-load",
		Category:  CategorySecurity,
		Severity:  SeverityHigh,
		Summary:   "pickle deserialization of untrusted data",
		NodeKinds: []string{nodeCall},
	}
	pickleLoad.Check = func(n *sitter.Node, ctx *Context) *Finding {
		callee := calleeName(n, ctx)
		if callee != "pickle.load" && callee != "pickle.loads" {
			return nil
		}
		return pickleLoad.finding(n, ctx,
			"unpickling untrusted data executes arbitrary code during load",
			"use json or another data-only format for untrusted input")
	}

	yamlUnsafeLoad := &Rule{
		ID:        "yaml-unsafe-load",
		Category:  CategorySecurity,
		Severity:  SeverityHigh,
		Summary:   "yaml.load without a safe loader",
		NodeKinds: []string{nodeCall},
	}
	yamlUnsafeLoad.Check = func(n *sitter.Node, ctx *Context) *Finding {
		if calleeName(n, ctx) != "yaml.load" {
			return nil
		}
		if loader := keywordArg(n, "Loader", ctx); loader != nil &&
			strings.Contains(ctx.Text(loader), "Safe") {
			return nil
		}
		return yamlUnsafeLoad.finding(n, ctx,
			"yaml.load without SafeLoader can instantiate arbitrary objects",
			"use yaml.safe_load, or pass Loader=yaml.SafeLoader")
	}

	hardcodedSecret := &Rule{
		ID:        "hardcoded-secret",
		Category:  CategorySecurity,
		Severity:  SeverityHigh,
		Summary:   "credential assigned from a string literal",
		NodeKinds: []string{nodeAssignment},
	}
	hardcodedSecret.Check = func(n *sitter.Node, ctx *Context) *Finding {
		name := strings.ToLower(assignmentTargetName(n, ctx))
		if name == "" || !hasSecretHint(name) {
			return nil
		}
		right := n.ChildByFieldName("right")
		if right == nil || right.Type() != nodeString || isFString(right, ctx) {
			return nil
		}
		// quotes included; "" and "x" are placeholders, not leaks
		if len(ctx.Text(right)) <= 4 {
			return nil
		}
		return hardcodedSecret.finding(n, ctx,
			fmt.Sprintf("%q looks like a credential committed in source", name),
			"read the value from the environment or a secret manager")
	}

	weakHash := &Rule{
		ID:        "weak-hash",
		Category:  CategorySecurity,
		Severity:  SeverityMedium,
		Summary:   "md5/sha1 used for hashing",
		NodeKinds: []string{nodeCall},
	}
	weakHash.Check = func(n *sitter.Node, ctx *Context) *Finding {
		callee := calleeName(n, ctx)
		if callee != "hashlib.md5" && callee != "hashlib.sha1" {
			return nil
		}
		return weakHash.finding(n, ctx,
			fmt.Sprintf("%s is broken for integrity and password use", callee),
			"use hashlib.sha256 or, for passwords, a KDF such as bcrypt/scrypt")
	}

	insecureMktemp := &Rule{
		ID:        "insecure-mktemp",
		Category:  CategorySecurity,
		Severity:  SeverityHigh,
		Summary:   "tempfile.mktemp race condition",
		NodeKinds: []string{nodeCall},
	}
	insecureMktemp.Check = func(n *sitter.Node, ctx *Context) *Finding {
		if calleeName(n, ctx) != "tempfile.mktemp" {
			return nil
		}
		return insecureMktemp.finding(n, ctx,
			"tempfile.mktemp returns a name without creating the file, inviting a symlink race",
			"use tempfile.NamedTemporaryFile or tempfile.mkstemp")
	}

	randomForToken := &Rule{
		ID:        "random-for-token",
		Category:  CategorySecurity,
		Severity:  SeverityMedium,
		Summary:   "non-cryptographic random used for a secret value",
		NodeKinds: []string{nodeAssignment},
	}
	randomForToken.Check = func(n *sitter.Node, ctx *Context) *Finding {
		name := strings.ToLower(assignmentTargetName(n, ctx))
		if name == "" || !hasSecretHint(name) {
			return nil
		}
		right := n.ChildByFieldName("right")
		if right == nil {
			return nil
		}
		usesRandom := subtreeHasCall(right, ctx, func(callee string) bool {
			return strings.HasPrefix(callee, "random.")
		})
		if !usesRandom {
			return nil
		}
		return randomForToken.finding(n, ctx,
			fmt.Sprintf("%q is generated with the predictable random module", name),
			"use the secrets module for anything security sensitive")
	}

	return []*Rule{
		injectionHeuristic,
		evalExec,
		shellTrue,
		osSystem,
		pickleLoad,
		yamlUnsafeLoad,
		hardcodedSecret,
		weakHash,
		insecureMktemp,
		randomForToken,
	}
}

// isSubprocessCallee matches subprocess.<fn> and the commonly star-imported
// spawn helpers.
func isSubprocessCallee(callee string) bool {
	if strings.HasPrefix(callee, "subprocess.") {
		return true
	}
	switch callee {
	case "Popen", "check_output", "check_call", "run", "call":
		return true
	}
	return false
}

// hasSecretHint reports whether a lowercased name looks credential-like.
func hasSecretHint(name string) bool {
	for _, hint := range secretNameHints {
		if strings.Contains(name, hint) {
			return true
		}
	}
	return false
}
