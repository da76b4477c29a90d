// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package script

import (
	"testing"
)

func TestParseSimpleStatements(t *testing.T) {
	tests := []struct {
		name   string
		source string
		check  func(t *testing.T, stmts []Stmt)
	}{
		{
			name:   "assignment with number literal",
			source: "x = 1",
			check: func(t *testing.T, stmts []Stmt) {
				assign, ok := stmts[0].(*AssignStmt)
				if !ok {
					t.Fatalf("expected *AssignStmt, got %T", stmts[0])
				}
				if assign.Target != "x" {
					t.Errorf("expected target 'x', got %q", assign.Target)
				}
				num, ok := assign.Value.(*NumberLit)
				if !ok {
					t.Fatalf("expected *NumberLit value, got %T", assign.Value)
				}
				if num.Value != 1 || num.IsFloat {
					t.Errorf("expected integer 1, got %v (float=%v)", num.Value, num.IsFloat)
				}
			},
		},
		{
			name:   "augmented assignment",
			source: "x //= 2",
			check: func(t *testing.T, stmts []Stmt) {
				assign, ok := stmts[0].(*AssignStmt)
				if !ok {
					t.Fatalf("expected *AssignStmt, got %T", stmts[0])
				}
				if assign.Target != "x" {
					t.Errorf("expected target 'x', got %q", assign.Target)
				}
				if !assign.Augmented {
					t.Error("expected augmented assignment")
				}
			},
		},
		{
			name:   "bare name expression",
			source: "result",
			check: func(t *testing.T, stmts []Stmt) {
				expr, ok := stmts[0].(*ExprStmt)
				if !ok {
					t.Fatalf("expected *ExprStmt, got %T", stmts[0])
				}
				name, ok := expr.Value.(*NameExpr)
				if !ok {
					t.Fatalf("expected *NameExpr, got %T", expr.Value)
				}
				if name.Name != "result" {
					t.Errorf("expected name 'result', got %q", name.Name)
				}
			},
		},
		{
			name:   "return with value",
			source: "return 42",
			check: func(t *testing.T, stmts []Stmt) {
				ret, ok := stmts[0].(*ReturnStmt)
				if !ok {
					t.Fatalf("expected *ReturnStmt, got %T", stmts[0])
				}
				if ret.Value == nil {
					t.Error("expected return value")
				}
			},
		},
		{
			name:   "bare return",
			source: "return",
			check: func(t *testing.T, stmts []Stmt) {
				ret, ok := stmts[0].(*ReturnStmt)
				if !ok {
					t.Fatalf("expected *ReturnStmt, got %T", stmts[0])
				}
				if ret.Value != nil {
					t.Error("expected no return value")
				}
			},
		},
		{
			name:   "method call chain",
			source: "items.append(1)",
			check: func(t *testing.T, stmts []Stmt) {
				expr := stmts[0].(*ExprStmt)
				call, ok := expr.Value.(*CallExpr)
				if !ok {
					t.Fatalf("expected *CallExpr, got %T", expr.Value)
				}
				if calleeName(call.Fn) != "append" {
					t.Errorf("expected callee 'append', got %q", calleeName(call.Fn))
				}
				if len(call.Args) != 1 {
					t.Errorf("expected 1 argument, got %d", len(call.Args))
				}
			},
		},
		{
			name:   "dict literal with string keys",
			source: `{"id": "doc-1", "url": "https://example.com"}`,
			check: func(t *testing.T, stmts []Stmt) {
				expr := stmts[0].(*ExprStmt)
				dict, ok := expr.Value.(*DictLit)
				if !ok {
					t.Fatalf("expected *DictLit, got %T", expr.Value)
				}
				if len(dict.Entries) != 2 {
					t.Fatalf("expected 2 entries, got %d", len(dict.Entries))
				}
				key, ok := dict.Entries[0].Key.(*StringLit)
				if !ok || key.Value != "id" {
					t.Errorf("expected first key 'id', got %v", dict.Entries[0].Key)
				}
			},
		},
		{
			name:   "unmodeled expression degrades to opaque",
			source: "x = a + b * 2",
			check: func(t *testing.T, stmts []Stmt) {
				assign := stmts[0].(*AssignStmt)
				op, ok := assign.Value.(*OpaqueExpr)
				if !ok {
					t.Fatalf("expected *OpaqueExpr, got %T", assign.Value)
				}
				// The embedded numeric literal must still be extracted.
				found := false
				for _, em := range op.Embedded {
					if num, ok := em.(*NumberLit); ok && num.Value == 2 {
						found = true
					}
				}
				if !found {
					t.Error("expected embedded numeric literal 2")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmts, err := Parse(tt.source)
			if err != nil {
				t.Fatalf("Parse() error: %v", err)
			}
			if len(stmts) != 1 {
				t.Fatalf("expected 1 statement, got %d", len(stmts))
			}
			tt.check(t, stmts)
		})
	}
}

func TestParseCompoundStatements(t *testing.T) {
	source := "if data.count > 0:\n" +
		"    x = 1\n" +
		"else:\n" +
		"    x = 2\n" +
		"return x"

	stmts, err := Parse(source)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(stmts))
	}

	blk, ok := stmts[0].(*BlockStmt)
	if !ok {
		t.Fatalf("expected *BlockStmt, got %T", stmts[0])
	}
	if blk.Keyword != "if" {
		t.Errorf("expected keyword 'if', got %q", blk.Keyword)
	}
	// The else branch folds into the if block's body.
	if len(blk.Body) != 2 {
		t.Errorf("expected 2 body statements after folding, got %d", len(blk.Body))
	}

	if _, ok := stmts[1].(*ReturnStmt); !ok {
		t.Errorf("expected trailing *ReturnStmt, got %T", stmts[1])
	}
}

func TestParseFunctionDef(t *testing.T) {
	source := "def helper(x):\n    return x\nhelper(1)"

	stmts, err := Parse(source)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(stmts))
	}

	fn, ok := stmts[0].(*FuncStmt)
	if !ok {
		t.Fatalf("expected *FuncStmt, got %T", stmts[0])
	}
	if fn.Name != "helper" {
		t.Errorf("expected name 'helper', got %q", fn.Name)
	}
	if len(fn.Body) != 1 {
		t.Errorf("expected 1 body statement, got %d", len(fn.Body))
	}
}

func TestParseMultilineContinuation(t *testing.T) {
	source := "x = [\n    1,\n    2,\n    3,\n]"

	stmts, err := Parse(source)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(stmts) != 1 {
		t.Fatalf("expected 1 statement after joining, got %d", len(stmts))
	}

	assign := stmts[0].(*AssignStmt)
	list, ok := assign.Value.(*ListLit)
	if !ok {
		t.Fatalf("expected *ListLit, got %T", assign.Value)
	}
	if len(list.Elems) != 3 {
		t.Errorf("expected 3 elements, got %d", len(list.Elems))
	}
}

func TestParseCommentsAndBlanksDropped(t *testing.T) {
	source := "# setup\n\nx = 1  # trailing\n\n# done"

	stmts, err := Parse(source)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(stmts))
	}
	if stmts[0].StmtLine() != 3 {
		t.Errorf("expected statement on line 3, got %d", stmts[0].StmtLine())
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"unclosed bracket", "x = (1"},
		{"extra closing bracket", "x = 1)"},
		{"unterminated string", `x = "abc`},
		{"missing block body", "if x:"},
		{"unexpected indent", "x = 1\n    y = 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.source)
			if err == nil {
				t.Fatal("expected a parse error")
			}
			if _, ok := err.(*ParseError); !ok {
				t.Errorf("expected *ParseError, got %T", err)
			}
		})
	}
}

func TestWholeStringLiteral(t *testing.T) {
	tests := []struct {
		text string
		want string
		ok   bool
	}{
		{`"hello"`, "hello", true},
		{`'hello'`, "hello", true},
		{`"""multi"""`, "multi", true},
		{`"a" + "b"`, "", false},
		{`x`, "", false},
		{`"esc\"aped"`, `esc\"aped`, true},
	}

	for _, tt := range tests {
		got, ok := wholeStringLiteral(tt.text)
		if ok != tt.ok || got != tt.want {
			t.Errorf("wholeStringLiteral(%q) = (%q, %v), want (%q, %v)", tt.text, got, ok, tt.want, tt.ok)
		}
	}
}
