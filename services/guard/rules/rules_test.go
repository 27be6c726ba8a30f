// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rules_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/AleutianAI/AleutianGuard/services/guard/ast"
	"github.com/AleutianAI/AleutianGuard/services/guard/rules"
	"github.com/AleutianAI/AleutianGuard/services/guard/walk"
)

// scan parses source and runs the full rule set over it.
func scan(t *testing.T, source string) []rules.Finding {
	t.Helper()
	tree, err := ast.Build(context.Background(), []byte(source), "test.py")
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	defer tree.Close()
	return walk.Run(tree, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func hasRule(findings []rules.Finding, id string) bool {
	for _, f := range findings {
		if f.RuleID == id {
			return true
		}
	}
	return false
}

// ruleCase is one fires/does-not-fire check for a single rule.
type ruleCase struct {
	name   string
	source string
	rule   string
	want   bool
}

func runRuleCases(t *testing.T, tests []ruleCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := scan(t, tt.source)
			if got := hasRule(findings, tt.rule); got != tt.want {
				t.Errorf("rule %s fired = %v, want %v\nfindings: %+v", tt.rule, got, tt.want, findings)
			}
		})
	}
}

// =============================================================================
// Runtime Rules
// =============================================================================

func TestRuntimeRules(t *testing.T) {
	runRuleCases(t, []ruleCase{
		{
			name:   "mutable default list fires",
			source: "def f(x=[]):\n    return x\n",
			rule:   "mutable-default",
			want:   true,
		},
		{
			name:   "mutable default dict fires",
			source: "def f(cache={}):\n    return cache\n",
			rule:   "mutable-default",
			want:   true,
		},
		{
			name:   "none default does not fire",
			source: "def f(x=None):\n    return x\n",
			rule:   "mutable-default",
			want:   false,
		},
		{
			name:   "bare except fires",
			source: "try:\n    work()\nexcept:\n    handle()\n",
			rule:   "bare-except",
			want:   true,
		},
		{
			name:   "typed except does not fire bare-except",
			source: "try:\n    work()\nexcept ValueError:\n    handle()\n",
			rule:   "bare-except",
			want:   false,
		},
		{
			name:   "except Exception fires broad-except",
			source: "try:\n    work()\nexcept Exception:\n    handle()\n",
			rule:   "broad-except",
			want:   true,
		},
		{
			name:   "except Exception as e fires broad-except",
			source: "try:\n    work()\nexcept Exception as e:\n    handle(e)\n",
			rule:   "broad-except",
			want:   true,
		},
		{
			name:   "narrow except does not fire broad-except",
			source: "try:\n    work()\nexcept KeyError:\n    handle()\n",
			rule:   "broad-except",
			want:   false,
		},
		{
			name:   "pass-only handler fires silent-except",
			source: "try:\n    work()\nexcept ValueError:\n    pass\n",
			rule:   "silent-except",
			want:   true,
		},
		{
			name:   "pass-only handler does not fire except-no-logging",
			source: "try:\n    work()\nexcept ValueError:\n    pass\n",
			rule:   "except-no-logging",
			want:   false,
		},
		{
			name:   "handler without logging fires except-no-logging",
			source: "try:\n    work()\nexcept ValueError:\n    retry()\n",
			rule:   "except-no-logging",
			want:   true,
		},
		{
			name:   "handler with logger.error does not fire except-no-logging",
			source: "try:\n    work()\nexcept ValueError as e:\n    logger.error(e)\n",
			rule:   "except-no-logging",
			want:   false,
		},
		{
			name:   "handler with print does not fire except-no-logging",
			source: "try:\n    work()\nexcept ValueError as e:\n    print(e)\n",
			rule:   "except-no-logging",
			want:   false,
		},
		{
			name:   "async function without try fires",
			source: "async def f():\n    await g()\n",
			rule:   "async-no-error-handling",
			want:   true,
		},
		{
			name:   "async function with try does not fire",
			source: "async def f():\n    try:\n        await g()\n    except OSError as e:\n        logger.error(e)\n",
			rule:   "async-no-error-handling",
			want:   false,
		},
		{
			name:   "sync function without try does not fire async rule",
			source: "def f():\n    return g()\n",
			rule:   "async-no-error-handling",
			want:   false,
		},
		{
			name:   "return in finally fires",
			source: "def f():\n    try:\n        return work()\n    finally:\n        return 0\n",
			rule:   "return-in-finally",
			want:   true,
		},
		{
			name:   "return after try does not fire",
			source: "def f():\n    try:\n        work()\n    finally:\n        cleanup()\n    return 0\n",
			rule:   "return-in-finally",
			want:   false,
		},
		{
			name:   "assert in production function fires",
			source: "def transfer(amount):\n    assert amount > 0\n    return amount\n",
			rule:   "assert-for-validation",
			want:   true,
		},
		{
			name:   "assert in test function does not fire",
			source: "def test_transfer():\n    assert transfer(1) == 1\n",
			rule:   "assert-for-validation",
			want:   false,
		},
		{
			name:   "while True without exit fires",
			source: "while True:\n    poll()\n",
			rule:   "while-true-no-break",
			want:   true,
		},
		{
			name:   "while True with break does not fire",
			source: "while True:\n    if done():\n        break\n    poll()\n",
			rule:   "while-true-no-break",
			want:   false,
		},
		{
			name:   "while True with return does not fire",
			source: "def f():\n    while True:\n        if done():\n            return 1\n",
			rule:   "while-true-no-break",
			want:   false,
		},
		{
			name:   "global statement in function fires",
			source: "def bump():\n    global counter\n    counter += 1\n",
			rule:   "global-mutation",
			want:   true,
		},
	})
}

// =============================================================================
// Security Rules
// =============================================================================

func TestSecurityRules(t *testing.T) {
	runRuleCases(t, []ruleCase{
		{
			name:   "f-string execute fires injection",
			source: "def remove(db, uid):\n    db.execute(f\"DELETE FROM users WHERE id = {uid}\")\n",
			rule:   "injection-heuristic",
			want:   true,
		},
		{
			name:   "concatenated execute fires injection",
			source: "def remove(db, uid):\n    db.execute(\"DELETE FROM users WHERE id = \" + uid)\n",
			rule:   "injection-heuristic",
			want:   true,
		},
		{
			name:   "format execute fires injection",
			source: "def remove(db, uid):\n    db.execute(\"DELETE FROM users WHERE id = {}\".format(uid))\n",
			rule:   "injection-heuristic",
			want:   true,
		},
		{
			name:   "parameterized execute does not fire",
			source: "def remove(db, uid):\n    db.execute(\"DELETE FROM users WHERE id = ?\", (uid,))\n",
			rule:   "injection-heuristic",
			want:   false,
		},
		{
			name:   "eval fires",
			source: "result = eval(expr)\n",
			rule:   "eval-exec",
			want:   true,
		},
		{
			name:   "exec fires",
			source: "exec(code)\n",
			rule:   "eval-exec",
			want:   true,
		},
		{
			name:   "shell=True fires",
			source: "subprocess.run(cmd, shell=True)\n",
			rule:   "shell-true",
			want:   true,
		},
		{
			name:   "shell=False does not fire",
			source: "subprocess.run([\"ls\", \"-l\"], shell=False)\n",
			rule:   "shell-true",
			want:   false,
		},
		{
			name:   "os.system fires",
			source: "os.system(\"rm -rf \" + path)\n",
			rule:   "os-system",
			want:   true,
		},
		{
			name:   "pickle.loads fires",
			source: "obj = pickle.loads(blob)\n",
			rule:   "pickle-load",
			want:   true,
		},
		{
			name:   "yaml.load without loader fires",
			source: "cfg = yaml.load(doc)\n",
			rule:   "yaml-unsafe-load",
			want:   true,
		},
		{
			name:   "yaml.load with SafeLoader does not fire",
			source: "cfg = yaml.load(doc, Loader=yaml.SafeLoader)\n",
			rule:   "yaml-unsafe-load",
			want:   false,
		},
		{
			name:   "yaml.safe_load does not fire",
			source: "cfg = yaml.safe_load(doc)\n",
			rule:   "yaml-unsafe-load",
			want:   false,
		},
		{
			name:   "hardcoded password fires",
			source: "password = \"hunter22-prod\"\n",
			rule:   "hardcoded-secret",
			want:   true,
		},
		{
			name:   "empty password placeholder does not fire",
			source: "password = \"\"\n",
			rule:   "hardcoded-secret",
			want:   false,
		},
		{
			name:   "password from environment does not fire",
			source: "password = os.environ[\"DB_PASSWORD\"]\n",
			rule:   "hardcoded-secret",
			want:   false,
		},
		{
			name:   "md5 fires weak-hash",
			source: "digest = hashlib.md5(data).hexdigest()\n",
			rule:   "weak-hash",
			want:   true,
		},
		{
			name:   "sha256 does not fire weak-hash",
			source: "digest = hashlib.sha256(data).hexdigest()\n",
			rule:   "weak-hash",
			want:   false,
		},
		{
			name:   "tempfile.mktemp fires",
			source: "path = tempfile.mktemp()\n",
			rule:   "insecure-mktemp",
			want:   true,
		},
		{
			name:   "random token fires",
			source: "token = str(random.randint(0, 999999))\n",
			rule:   "random-for-token",
			want:   true,
		},
		{
			name:   "secrets token does not fire",
			source: "token = secrets.token_hex(32)\n",
			rule:   "random-for-token",
			want:   false,
		},
	})
}

// =============================================================================
// Performance Rules
// =============================================================================

func TestPerformanceRules(t *testing.T) {
	runRuleCases(t, []ruleCase{
		{
			name:   "string concat in loop fires",
			source: "def render(items):\n    out = \"\"\n    for x in items:\n        out += str(x)\n    return out\n",
			rule:   "string-concat-in-loop",
			want:   true,
		},
		{
			name:   "numeric accumulation does not fire",
			source: "def total(items):\n    n = 0\n    for x in items:\n        n += 1\n    return n\n",
			rule:   "string-concat-in-loop",
			want:   false,
		},
		{
			name:   "await in loop fires",
			source: "async def fetch_all(urls):\n    try:\n        for u in urls:\n            await fetch(u)\n    except OSError as e:\n        logger.error(e)\n",
			rule:   "await-in-loop",
			want:   true,
		},
		{
			name:   "time.sleep in async fires",
			source: "async def f():\n    time.sleep(1)\n",
			rule:   "sleep-in-async",
			want:   true,
		},
		{
			name:   "time.sleep in sync function does not fire",
			source: "def f():\n    time.sleep(1)\n",
			rule:   "sleep-in-async",
			want:   false,
		},
		{
			name:   "range(len()) fires",
			source: "for i in range(len(xs)):\n    use(xs[i])\n",
			rule:   "range-len-iteration",
			want:   true,
		},
		{
			name:   "range with offset does not fire",
			source: "for i in range(1, len(xs)):\n    use(xs[i])\n",
			rule:   "range-len-iteration",
			want:   false,
		},
		{
			name:   "len in while condition fires",
			source: "while i < len(xs):\n    i += 1\n",
			rule:   "len-in-loop-condition",
			want:   true,
		},
		{
			name:   "triple nested loop fires",
			source: "for a in xs:\n    for b in ys:\n        for c in zs:\n            use(a, b, c)\n",
			rule:   "nested-loops",
			want:   true,
		},
		{
			name:   "double nested loop does not fire",
			source: "for a in xs:\n    for b in ys:\n        use(a, b)\n",
			rule:   "nested-loops",
			want:   false,
		},
		{
			name:   "readlines fires",
			source: "lines = handle.readlines()\n",
			rule:   "readlines-whole-file",
			want:   true,
		},
		{
			name:   "f-string in logger call fires",
			source: "logger.info(f\"processed {n} rows\")\n",
			rule:   "fstring-in-logging",
			want:   true,
		},
		{
			name:   "percent format in logger call does not fire",
			source: "logger.info(\"processed %d rows\", n)\n",
			rule:   "fstring-in-logging",
			want:   false,
		},
	})
}

// =============================================================================
// Complexity Rules
// =============================================================================

func TestComplexityRules(t *testing.T) {
	longBody := "def f():\n" + strings.Repeat("    x = 1\n", 60)

	var branchy strings.Builder
	branchy.WriteString("def f(x):\n")
	for i := 0; i < 11; i++ {
		fmt.Fprintf(&branchy, "    if x == %d:\n        x = %d\n", i, i+1)
	}
	branchy.WriteString("    return x\n")

	manyReturns := "def f(x):\n" +
		"    if x == 1:\n        return 1\n" +
		"    if x == 2:\n        return 2\n" +
		"    if x == 3:\n        return 3\n" +
		"    if x == 4:\n        return 4\n" +
		"    return 0\n"

	deepNest := "def f(a, b, c, d, e):\n" +
		"    if a:\n" +
		"        if b:\n" +
		"            if c:\n" +
		"                if d:\n" +
		"                    if e:\n" +
		"                        work()\n"

	runRuleCases(t, []ruleCase{
		{
			name:   "long function fires",
			source: longBody,
			rule:   "function-too-long",
			want:   true,
		},
		{
			name:   "short function does not fire",
			source: "def f():\n    return 1\n",
			rule:   "function-too-long",
			want:   false,
		},
		{
			name:   "branchy function fires cyclomatic",
			source: branchy.String(),
			rule:   "cyclomatic-complexity",
			want:   true,
		},
		{
			name:   "six parameters fires",
			source: "def f(a, b, c, d, e, g):\n    return a\n",
			rule:   "too-many-params",
			want:   true,
		},
		{
			name:   "self is not counted",
			source: "class A:\n    def f(self, a, b, c, d, e):\n        return a\n",
			rule:   "too-many-params",
			want:   false,
		},
		{
			name:   "five returns fires",
			source: manyReturns,
			rule:   "too-many-returns",
			want:   true,
		},
		{
			name:   "deep nesting fires",
			source: deepNest,
			rule:   "deep-nesting",
			want:   true,
		},
		{
			name:   "flat function does not fire deep-nesting",
			source: "def f(a):\n    if a:\n        return 1\n    return 0\n",
			rule:   "deep-nesting",
			want:   false,
		},
		{
			name:   "conditional lambda fires",
			source: "pick = lambda x: 1 if x else 2\n",
			rule:   "lambda-conditional",
			want:   true,
		},
		{
			name:   "plain lambda does not fire",
			source: "double = lambda x: x * 2\n",
			rule:   "lambda-conditional",
			want:   false,
		},
	})
}

// =============================================================================
// Organization Rules
// =============================================================================

func TestOrganizationRules(t *testing.T) {
	var manyImports strings.Builder
	for i := 0; i < 21; i++ {
		fmt.Fprintf(&manyImports, "import mod%d\n", i)
	}

	var bigClass strings.Builder
	bigClass.WriteString("class Everything:\n")
	for i := 0; i < 21; i++ {
		fmt.Fprintf(&bigClass, "    def method%d(self):\n        return %d\n", i, i)
	}

	runRuleCases(t, []ruleCase{
		{
			name:   "wildcard import fires",
			source: "from os import *\n",
			rule:   "wildcard-import",
			want:   true,
		},
		{
			name:   "explicit import does not fire",
			source: "from os import path\n",
			rule:   "wildcard-import",
			want:   false,
		},
		{
			name:   "import inside function fires",
			source: "def f():\n    import json\n    return json.dumps({})\n",
			rule:   "import-inside-function",
			want:   true,
		},
		{
			name:   "module-level import does not fire",
			source: "import json\n",
			rule:   "import-inside-function",
			want:   false,
		},
		{
			name:   "21 imports fires",
			source: manyImports.String(),
			rule:   "too-many-imports",
			want:   true,
		},
		{
			name:   "21 methods fires god-class",
			source: bigClass.String(),
			rule:   "god-class",
			want:   true,
		},
		{
			name:   "print at module level fires",
			source: "print(\"starting\")\n",
			rule:   "print-call",
			want:   true,
		},
		{
			name:   "print in except handler does not fire",
			source: "try:\n    work()\nexcept ValueError as e:\n    print(e)\n",
			rule:   "print-call",
			want:   false,
		},
		{
			name:   "print in test function does not fire",
			source: "def test_output():\n    print(\"debug\")\n",
			rule:   "print-call",
			want:   false,
		},
	})
}

// =============================================================================
// Resource Rules
// =============================================================================

func TestResourceRules(t *testing.T) {
	runRuleCases(t, []ruleCase{
		{
			name:   "open without with fires",
			source: "f = open(path)\ndata = f.read()\n",
			rule:   "open-no-context",
			want:   true,
		},
		{
			name:   "open inside with does not fire",
			source: "with open(path) as f:\n    data = f.read()\n",
			rule:   "open-no-context",
			want:   false,
		},
		{
			name:   "commit without try fires",
			source: "def save(session):\n    session.commit()\n",
			rule:   "db-op-no-guard",
			want:   true,
		},
		{
			name:   "commit inside try does not fire",
			source: "def save(session):\n    try:\n        session.commit()\n    except OSError as e:\n        logger.error(e)\n",
			rule:   "db-op-no-guard",
			want:   false,
		},
		{
			name:   "bare update call does not fire",
			source: "def merge(d, extra):\n    update(d, extra)\n",
			rule:   "db-op-no-guard",
			want:   false,
		},
		{
			name:   "requests.get without timeout fires",
			source: "resp = requests.get(url)\n",
			rule:   "request-no-timeout",
			want:   true,
		},
		{
			name:   "requests.get with timeout does not fire",
			source: "resp = requests.get(url, timeout=5)\n",
			rule:   "request-no-timeout",
			want:   false,
		},
		{
			name:   "open in loop fires",
			source: "for name in names:\n    with open(name) as f:\n        use(f)\n",
			rule:   "open-in-loop",
			want:   true,
		},
		{
			name:   "socket without with fires",
			source: "s = socket.socket()\ns.connect(addr)\n",
			rule:   "socket-no-context",
			want:   true,
		},
		{
			name:   "socket inside with does not fire",
			source: "with socket.socket() as s:\n    s.connect(addr)\n",
			rule:   "socket-no-context",
			want:   false,
		},
	})
}

// =============================================================================
// Gotcha Rules
// =============================================================================

func TestGotchaRules(t *testing.T) {
	runRuleCases(t, []ruleCase{
		{
			name:   "is against int literal fires",
			source: "if x is 5:\n    work()\n",
			rule:   "identity-comparison-literal",
			want:   true,
		},
		{
			name:   "is None does not fire",
			source: "if x is None:\n    work()\n",
			rule:   "identity-comparison-literal",
			want:   false,
		},
		{
			name:   "== None fires",
			source: "if x == None:\n    work()\n",
			rule:   "equality-with-none",
			want:   true,
		},
		{
			name:   "is None does not fire equality rule",
			source: "if x is None:\n    work()\n",
			rule:   "equality-with-none",
			want:   false,
		},
		{
			name:   "== True fires",
			source: "if ready == True:\n    work()\n",
			rule:   "boolean-comparison",
			want:   true,
		},
		{
			name:   "lambda capturing loop variable fires",
			source: "fns = []\nfor i in range(3):\n    fns.append(lambda: i * 2)\n",
			rule:   "late-binding-closure",
			want:   true,
		},
		{
			name:   "default-argument capture does not fire",
			source: "fns = []\nfor i in range(3):\n    fns.append(lambda i=i: i * 2)\n",
			rule:   "late-binding-closure",
			want:   false,
		},
		{
			name:   "lambda outside loop does not fire",
			source: "double = lambda x: x * 2\n",
			rule:   "late-binding-closure",
			want:   false,
		},
		{
			name:   "mutable class attribute fires",
			source: "class Registry:\n    entries = []\n",
			rule:   "mutable-class-attribute",
			want:   true,
		},
		{
			name:   "instance attribute does not fire",
			source: "class Registry:\n    def __init__(self):\n        self.entries = []\n",
			rule:   "mutable-class-attribute",
			want:   false,
		},
		{
			name:   "call in default parameter fires",
			source: "def log_event(ts=utcnow()):\n    record(ts)\n",
			rule:   "callable-default",
			want:   true,
		},
		{
			name:   "assignment shadowing builtin fires",
			source: "list = [1, 2, 3]\n",
			rule:   "shadow-builtin",
			want:   true,
		},
		{
			name:   "ordinary name does not fire shadow-builtin",
			source: "items = [1, 2, 3]\n",
			rule:   "shadow-builtin",
			want:   false,
		},
	})
}

// =============================================================================
// Finding Metadata
// =============================================================================

func TestFindingPositions(t *testing.T) {
	source := "x = 1\npassword = \"hunter22-prod\"\n"
	findings := scan(t, source)

	if !hasRule(findings, "hardcoded-secret") {
		t.Fatalf("expected hardcoded-secret, got %+v", findings)
	}
	for _, f := range findings {
		if f.RuleID != "hardcoded-secret" {
			continue
		}
		if f.Line != 2 {
			t.Errorf("Line = %d, want 2 (1-indexed)", f.Line)
		}
		if f.Col != 0 {
			t.Errorf("Col = %d, want 0 (0-indexed)", f.Col)
		}
		if f.Snippet == "" || !strings.Contains(f.Snippet, "password") {
			t.Errorf("Snippet = %q, want the offending line", f.Snippet)
		}
		if f.Suggestion == "" {
			t.Error("Suggestion should not be empty")
		}
	}
}

func TestScopeResetsLoopContext(t *testing.T) {
	// A function defined inside a loop starts a fresh scope: calls in its
	// body are not "in a loop" for loop-sensitive rules.
	source := "for name in names:\n" +
		"    def helper(items):\n" +
		"        out = \"\"\n" +
		"        out += \"x\"\n" +
		"        return out\n"
	findings := scan(t, source)
	if hasRule(findings, "string-concat-in-loop") {
		t.Errorf("function scope should reset loop context, got %+v", findings)
	}
}

func TestScopeResetsGuardContext(t *testing.T) {
	// A try block around a function definition does not guard the calls
	// inside that function.
	source := "try:\n" +
		"    def save(session):\n" +
		"        session.commit()\n" +
		"except ImportError:\n" +
		"    logger.error(\"no backend\")\n"
	findings := scan(t, source)
	if !hasRule(findings, "db-op-no-guard") {
		t.Errorf("enclosing try outside function scope should not count as guard, got %+v", findings)
	}
}
