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

// The syntax tree is deliberately shallow. The analyzers only need statement
// shape, literal structure, and line numbers; anything the parser cannot
// classify degrades to an opaque node rather than a parse failure.

// Stmt is a single statement in the restricted scripting dialect.
type Stmt interface {
	// StmtLine returns the 1-based source line the statement starts on.
	StmtLine() int

	// Source returns the statement's raw text.
	Source() string
}

type stmtBase struct {
	line int
	text string
}

func (s stmtBase) StmtLine() int  { return s.line }
func (s stmtBase) Source() string { return s.text }

// ImportStmt is a plain or from-form import statement.
type ImportStmt struct {
	stmtBase
	// FromForm reports "from x import y" syntax.
	FromForm bool
	// Wildcard reports "from x import *".
	Wildcard bool
	// Aliased reports an "as" clause.
	Aliased bool
}

// ClassStmt is a class definition in any form.
type ClassStmt struct {
	stmtBase
	Name string
}

// FuncStmt is a function definition.
type FuncStmt struct {
	stmtBase
	Name string
	Body []Stmt
}

// AssignStmt binds a value to a name, including augmented assignment.
type AssignStmt struct {
	stmtBase
	// Target is the assigned name (or target expression text).
	Target string
	// Value is the right-hand side.
	Value Expr
	// Augmented reports compound operators such as += and *=.
	Augmented bool
}

// ReturnStmt is an explicit return. Value is nil for a bare return.
type ReturnStmt struct {
	stmtBase
	Value Expr
}

// BlockStmt is a control-flow statement that owns a body: if, for, while,
// with, or try. Keyword distinguishes the construct; Body flattens every
// branch (then/else/handlers) since the analyzers only need reachability of
// nested statements, not branch structure.
type BlockStmt struct {
	stmtBase
	Keyword string
	Body    []Stmt
}

// KeywordStmt is a bare keyword statement: pass, break, continue, or raise.
type KeywordStmt struct {
	stmtBase
	Keyword string
}

// ExprStmt is a bare expression evaluated for its value.
type ExprStmt struct {
	stmtBase
	Value Expr
}

// Expr is an expression node.
type Expr interface {
	// ExprLine returns the 1-based source line the expression starts on.
	ExprLine() int
}

type exprBase struct {
	line int
}

func (e exprBase) ExprLine() int { return e.line }

// StringLit is a string literal. Value holds the unquoted contents.
type StringLit struct {
	exprBase
	Value string
}

// NumberLit is an integer or float literal.
type NumberLit struct {
	exprBase
	Text    string
	Value   float64
	IsFloat bool
	// Negative reports a unary minus applied to the literal.
	Negative bool
}

// BoolLit is True or False.
type BoolLit struct {
	exprBase
	Value bool
}

// NoneLit is the None literal.
type NoneLit struct {
	exprBase
}

// ListLit is a list literal.
type ListLit struct {
	exprBase
	Elems []Expr
}

// DictEntry is one key/value pair of a dict literal.
type DictEntry struct {
	Key   Expr
	Value Expr
}

// DictLit is a dict literal.
type DictLit struct {
	exprBase
	Entries []DictEntry
}

// NameExpr is a bare identifier reference.
type NameExpr struct {
	exprBase
	Name string
}

// AttrExpr is attribute access, e.g. results.items.
type AttrExpr struct {
	exprBase
	X    Expr
	Name string
}

// CallExpr is a function or method call.
type CallExpr struct {
	exprBase
	Fn   Expr
	Args []Expr
}

// OpaqueExpr is any expression the parser does not model (arithmetic,
// comparisons, comprehensions). Literals embedded in the raw text are
// collected so resource checks still see them.
type OpaqueExpr struct {
	exprBase
	Text string
	// Embedded holds string and number literals found lexically inside
	// the unmodeled text.
	Embedded []Expr
}

// calleeName returns the final identifier of a call target, e.g. "sort" for
// both sort(...) and items.sort(...). Empty when the target is not a name
// or attribute chain.
func calleeName(fn Expr) string {
	switch f := fn.(type) {
	case *NameExpr:
		return f.Name
	case *AttrExpr:
		return f.Name
	}
	return ""
}

// walkExprs calls fn for every expression node reachable from e, including
// literals embedded in opaque nodes.
func walkExprs(e Expr, fn func(Expr)) {
	if e == nil {
		return
	}
	fn(e)
	switch v := e.(type) {
	case *ListLit:
		for _, el := range v.Elems {
			walkExprs(el, fn)
		}
	case *DictLit:
		for _, entry := range v.Entries {
			walkExprs(entry.Key, fn)
			walkExprs(entry.Value, fn)
		}
	case *AttrExpr:
		walkExprs(v.X, fn)
	case *CallExpr:
		walkExprs(v.Fn, fn)
		for _, a := range v.Args {
			walkExprs(a, fn)
		}
	case *OpaqueExpr:
		for _, em := range v.Embedded {
			walkExprs(em, fn)
		}
	}
}

// walkStmts calls fn for every statement reachable from the list, descending
// into block and function bodies.
func walkStmts(stmts []Stmt, fn func(Stmt)) {
	for _, s := range stmts {
		fn(s)
		switch v := s.(type) {
		case *BlockStmt:
			walkStmts(v.Body, fn)
		case *FuncStmt:
			walkStmts(v.Body, fn)
		}
	}
}

// stmtExprs returns the expressions directly owned by a statement.
func stmtExprs(s Stmt) []Expr {
	switch v := s.(type) {
	case *AssignStmt:
		return []Expr{v.Value}
	case *ReturnStmt:
		if v.Value != nil {
			return []Expr{v.Value}
		}
	case *ExprStmt:
		return []Expr{v.Value}
	}
	return nil
}
