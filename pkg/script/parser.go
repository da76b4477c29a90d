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
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ParseError reports a script that could not be parsed. The analyzer
// converts it to a structural diagnostic; it never escapes a validation call.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// Parse parses script source into a statement list. The parser is tolerant:
// expressions it cannot model become opaque nodes, and only genuinely
// malformed structure (unbalanced brackets, unterminated strings, missing
// blocks) produces a ParseError.
func Parse(source string) ([]Stmt, error) {
	lines, err := logicalLines(source)
	if err != nil {
		return nil, err
	}
	pos := 0
	stmts, err := parseBlock(lines, &pos, 0)
	if err != nil {
		return nil, err
	}
	if pos < len(lines) {
		return nil, &ParseError{Line: lines[pos].line, Message: "unexpected indent"}
	}
	return stmts, nil
}

// logicalLine is one statement-bearing line after joining continuations.
type logicalLine struct {
	text   string
	line   int // first physical line, 1-based
	indent int
}

// logicalLines splits source into logical lines, joining physical lines
// while brackets remain open or a triple-quoted string is unterminated.
// Comments and blank lines are dropped.
func logicalLines(source string) ([]logicalLine, error) {
	physical := strings.Split(source, "\n")
	var out []logicalLine

	i := 0
	for i < len(physical) {
		raw := physical[i]
		startLine := i + 1
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			i++
			continue
		}

		indent := 0
		for _, r := range raw {
			if r == ' ' {
				indent++
			} else if r == '\t' {
				indent += 4
			} else {
				break
			}
		}

		// Accumulate physical lines until brackets close and strings end.
		var buf strings.Builder
		depth := 0
		var quote byte
		triple := false
		escaped := false
		for {
			line := physical[i]
			stripped := line
			// Strip trailing comment at depth zero outside strings.
			for j := 0; j < len(line); j++ {
				c := line[j]
				if quote != 0 {
					if escaped {
						escaped = false
						continue
					}
					if c == '\\' {
						escaped = true
						continue
					}
					if c == quote {
						if triple {
							if j+2 < len(line) && line[j+1] == quote && line[j+2] == quote {
								quote = 0
								triple = false
								j += 2
							}
						} else {
							quote = 0
						}
					}
					continue
				}
				switch c {
				case '\'', '"':
					quote = c
					if j+2 < len(line) && line[j+1] == c && line[j+2] == c {
						triple = true
						j += 2
					}
				case '(', '[', '{':
					depth++
				case ')', ']', '}':
					depth--
					if depth < 0 {
						return nil, &ParseError{Line: i + 1, Message: "unbalanced closing bracket"}
					}
				case '#':
					stripped = line[:j]
					j = len(line)
				}
			}
			if quote != 0 && !triple {
				return nil, &ParseError{Line: i + 1, Message: "unterminated string literal"}
			}
			if buf.Len() > 0 {
				buf.WriteByte('\n')
			}
			buf.WriteString(stripped)
			i++

			// Explicit backslash continuation.
			if depth == 0 && quote == 0 && strings.HasSuffix(strings.TrimRight(stripped, " \t"), "\\") {
				s := buf.String()
				s = strings.TrimRight(s, " \t")
				s = s[:len(s)-1]
				buf.Reset()
				buf.WriteString(s)
				if i >= len(physical) {
					return nil, &ParseError{Line: i, Message: "line continuation at end of script"}
				}
				continue
			}
			if depth == 0 && quote == 0 {
				break
			}
			if i >= len(physical) {
				if quote != 0 {
					return nil, &ParseError{Line: startLine, Message: "unterminated string literal"}
				}
				return nil, &ParseError{Line: startLine, Message: "unclosed bracket at end of script"}
			}
		}

		text := strings.TrimSpace(buf.String())
		if text == "" {
			continue
		}
		out = append(out, logicalLine{text: text, line: startLine, indent: indent})
	}
	return out, nil
}

// parseBlock parses statements at or beyond the given indent, stopping when
// indentation drops below it.
func parseBlock(lines []logicalLine, pos *int, indent int) ([]Stmt, error) {
	var stmts []Stmt
	blockIndent := -1
	for *pos < len(lines) {
		ln := lines[*pos]
		if ln.indent < indent {
			break
		}
		if blockIndent == -1 {
			blockIndent = ln.indent
		}
		if ln.indent > blockIndent {
			return nil, &ParseError{Line: ln.line, Message: "unexpected indent"}
		}
		if ln.indent < blockIndent {
			break
		}
		stmt, err := parseLine(lines, pos, blockIndent)
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	return stmts, nil
}

var (
	identPattern     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	chainPattern     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)
	numberPattern    = regexp.MustCompile(`^-?(?:[0-9]+(?:\.[0-9]*)?(?:[eE][+-]?[0-9]+)?|\.[0-9]+)$`)
	defHeadPattern   = regexp.MustCompile(`^def\s+([A-Za-z_][A-Za-z0-9_]*)`)
	classHeadPattern = regexp.MustCompile(`^class\s+([A-Za-z_][A-Za-z0-9_]*)`)
)

// parseLine parses one logical line, consuming the nested block when the
// line opens one. Returns nil for branch continuations that were folded
// into the preceding compound statement.
func parseLine(lines []logicalLine, pos *int, indent int) (Stmt, error) {
	ln := lines[*pos]
	text := ln.text
	keyword := firstWord(text)

	header, inline, isCompound := splitCompoundHeader(text)
	if isCompound {
		*pos++
		var body []Stmt
		if inline != "" {
			stmt, err := parseSimple(inline, ln.line)
			if err != nil {
				return nil, err
			}
			body = []Stmt{stmt}
		} else {
			var err error
			body, err = parseBlock(lines, pos, indent+1)
			if err != nil {
				return nil, err
			}
			if len(body) == 0 {
				return nil, &ParseError{Line: ln.line, Message: fmt.Sprintf("expected an indented block after %q", keyword)}
			}
		}

		switch keyword {
		case "def":
			m := defHeadPattern.FindStringSubmatch(header)
			if m == nil {
				return nil, &ParseError{Line: ln.line, Message: "malformed function definition"}
			}
			return &FuncStmt{stmtBase: stmtBase{line: ln.line, text: text}, Name: m[1], Body: body}, nil
		case "class":
			m := classHeadPattern.FindStringSubmatch(header)
			if m == nil {
				return nil, &ParseError{Line: ln.line, Message: "malformed class definition"}
			}
			return &ClassStmt{stmtBase: stmtBase{line: ln.line, text: text}, Name: m[1]}, nil
		case "if", "for", "while", "with", "try":
			// Fold trailing elif/else/except/finally branches into the body.
			blk := &BlockStmt{stmtBase: stmtBase{line: ln.line, text: header}, Keyword: keyword, Body: body}
			for *pos < len(lines) && lines[*pos].indent == indent && isBranchKeyword(firstWord(lines[*pos].text)) {
				branch, err := parseLine(lines, pos, indent)
				if err != nil {
					return nil, err
				}
				if bb, ok := branch.(*BlockStmt); ok {
					blk.Body = append(blk.Body, bb.Body...)
				}
			}
			return blk, nil
		case "elif", "else", "except", "finally":
			return &BlockStmt{stmtBase: stmtBase{line: ln.line, text: header}, Keyword: keyword, Body: body}, nil
		default:
			return nil, &ParseError{Line: ln.line, Message: fmt.Sprintf("unexpected block statement %q", keyword)}
		}
	}

	*pos++
	return parseSimple(text, ln.line)
}

func isBranchKeyword(word string) bool {
	switch word {
	case "elif", "else", "except", "finally":
		return true
	}
	return false
}

// splitCompoundHeader reports whether the line opens a block, returning the
// header before the colon and any inline body after it.
func splitCompoundHeader(text string) (header, inline string, ok bool) {
	switch firstWord(text) {
	case "if", "elif", "else", "for", "while", "with", "try", "except", "finally", "def", "class":
	default:
		return "", "", false
	}
	idx := topLevelIndex(text, ':')
	if idx < 0 {
		return "", "", false
	}
	return strings.TrimSpace(text[:idx]), strings.TrimSpace(text[idx+1:]), true
}

// parseSimple parses a non-compound statement.
func parseSimple(text string, line int) (Stmt, error) {
	base := stmtBase{line: line, text: text}
	word := firstWord(text)

	switch word {
	case "import":
		return &ImportStmt{stmtBase: base, Aliased: hasAsClause(text)}, nil
	case "from":
		return &ImportStmt{
			stmtBase: base,
			FromForm: true,
			Wildcard: strings.HasSuffix(strings.TrimSpace(text), "*"),
			Aliased:  hasAsClause(text),
		}, nil
	case "return":
		rest := strings.TrimSpace(strings.TrimPrefix(text, "return"))
		if rest == "" {
			return &ReturnStmt{stmtBase: base}, nil
		}
		return &ReturnStmt{stmtBase: base, Value: parseExpr(rest, line)}, nil
	case "pass", "break", "continue":
		if strings.TrimSpace(text) == word {
			return &KeywordStmt{stmtBase: base, Keyword: word}, nil
		}
	case "raise", "del", "global", "nonlocal", "assert":
		return &KeywordStmt{stmtBase: base, Keyword: word}, nil
	}

	if target, value, aug, ok := splitAssignment(text); ok {
		return &AssignStmt{
			stmtBase:  base,
			Target:    target,
			Value:     parseExpr(value, line),
			Augmented: aug,
		}, nil
	}

	return &ExprStmt{stmtBase: base, Value: parseExpr(text, line)}, nil
}

func firstWord(text string) string {
	end := 0
	for end < len(text) {
		c := text[end]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' || (end > 0 && c >= '0' && c <= '9') {
			end++
			continue
		}
		break
	}
	return text[:end]
}

func hasAsClause(text string) bool {
	return regexp.MustCompile(`\bas\b`).MatchString(text)
}

// Longest operators first so "//=" is not matched as "/=".
var augmentedOps = []string{"//=", "**=", "+=", "-=", "*=", "/=", "%=", "&=", "|=", "^="}

// splitAssignment finds a top-level assignment operator, ignoring == and
// other comparison operators.
func splitAssignment(text string) (target, value string, augmented bool, ok bool) {
	idx := -1
	var depth int
	var quote byte
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if quote != 0 {
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case '=':
			if depth != 0 {
				continue
			}
			if i+1 < len(text) && text[i+1] == '=' {
				i++ // ==
				continue
			}
			if i > 0 {
				switch text[i-1] {
				case '=', '!', '<', '>':
					continue
				}
			}
			idx = i
			i = len(text)
		}
	}
	if idx <= 0 {
		return "", "", false, false
	}

	left := strings.TrimSpace(text[:idx])
	right := strings.TrimSpace(text[idx+1:])
	for _, op := range augmentedOps {
		if strings.HasSuffix(strings.TrimSpace(text[:idx+1]), op) {
			target = strings.TrimSpace(strings.TrimSuffix(left, op[:len(op)-1]))
			return target, right, true, true
		}
	}
	if left == "" || right == "" {
		return "", "", false, false
	}
	return left, right, false, true
}

// topLevelIndex returns the index of the first occurrence of c outside
// strings and brackets, or -1.
func topLevelIndex(text string, c byte) int {
	var depth int
	var quote byte
	escaped := false
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if quote != 0 {
			if escaped {
				escaped = false
			} else if ch == '\\' {
				escaped = true
			} else if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '\'', '"':
			quote = ch
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		default:
			if ch == c && depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitTopLevel splits text at top-level occurrences of sep, respecting
// strings and every bracket kind.
func splitTopLevel(text string, sep byte) []string {
	var parts []string
	var depth int
	var quote byte
	escaped := false
	start := 0
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if quote != 0 {
			if escaped {
				escaped = false
			} else if ch == '\\' {
				escaped = true
			} else if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '\'', '"':
			quote = ch
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		default:
			if ch == sep && depth == 0 {
				parts = append(parts, text[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, text[start:])
	return parts
}

// parseExpr parses an expression, degrading to an opaque node when the text
// is anything beyond literals, names, and call chains.
func parseExpr(text string, line int) Expr {
	text = strings.TrimSpace(text)
	base := exprBase{line: line}
	if text == "" {
		return &OpaqueExpr{exprBase: base}
	}

	// String literal spanning the whole text.
	if val, ok := wholeStringLiteral(text); ok {
		return &StringLit{exprBase: base, Value: val}
	}

	// Numeric literal.
	if numberPattern.MatchString(text) {
		neg := strings.HasPrefix(text, "-")
		v, err := strconv.ParseFloat(text, 64)
		if err == nil {
			return &NumberLit{
				exprBase: base,
				Text:     text,
				Value:    v,
				IsFloat:  strings.ContainsAny(text, ".eE"),
				Negative: neg,
			}
		}
	}

	switch text {
	case "True":
		return &BoolLit{exprBase: base, Value: true}
	case "False":
		return &BoolLit{exprBase: base, Value: false}
	case "None":
		return &NoneLit{exprBase: base}
	}

	// List literal.
	if strings.HasPrefix(text, "[") && matchingBracket(text, 0) == len(text)-1 {
		inner := strings.TrimSpace(text[1 : len(text)-1])
		lit := &ListLit{exprBase: base}
		if inner != "" {
			for _, part := range splitTopLevel(inner, ',') {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}
				lit.Elems = append(lit.Elems, parseExpr(part, line))
			}
		}
		return lit
	}

	// Dict literal. Set literals and comprehensions fall through to opaque.
	if strings.HasPrefix(text, "{") && matchingBracket(text, 0) == len(text)-1 {
		inner := strings.TrimSpace(text[1 : len(text)-1])
		if dict, ok := parseDictEntries(inner, line); ok {
			dict.exprBase = base
			return dict
		}
	}

	// Name, attribute chain, or call chain.
	if chainPattern.MatchString(text) {
		return parseChain(text, line)
	}
	if open := strings.IndexByte(text, '('); open > 0 && chainPattern.MatchString(text[:open]) && matchingBracket(text, open) == len(text)-1 {
		fn := parseChain(text[:open], line)
		call := &CallExpr{exprBase: base, Fn: fn}
		inner := strings.TrimSpace(text[open+1 : len(text)-1])
		if inner != "" {
			for _, part := range splitTopLevel(inner, ',') {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}
				call.Args = append(call.Args, parseExpr(part, line))
			}
		}
		return call
	}

	return &OpaqueExpr{exprBase: base, Text: text, Embedded: embeddedLiterals(text, line)}
}

func parseDictEntries(inner string, line int) (*DictLit, bool) {
	dict := &DictLit{}
	if inner == "" {
		return dict, true
	}
	if strings.HasPrefix(inner, "**") {
		return nil, false
	}
	for _, part := range splitTopLevel(inner, ',') {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		colon := topLevelIndex(part, ':')
		if colon < 0 {
			return nil, false
		}
		dict.Entries = append(dict.Entries, DictEntry{
			Key:   parseExpr(part[:colon], line),
			Value: parseExpr(part[colon+1:], line),
		})
	}
	return dict, true
}

func parseChain(text string, line int) Expr {
	parts := strings.Split(strings.TrimSpace(text), ".")
	var expr Expr = &NameExpr{exprBase: exprBase{line: line}, Name: parts[0]}
	for _, p := range parts[1:] {
		expr = &AttrExpr{exprBase: exprBase{line: line}, X: expr, Name: p}
	}
	return expr
}

// matchingBracket returns the index of the bracket closing the one at open,
// or -1 when unbalanced.
func matchingBracket(text string, open int) int {
	var depth int
	var quote byte
	escaped := false
	for i := open; i < len(text); i++ {
		ch := text[i]
		if quote != 0 {
			if escaped {
				escaped = false
			} else if ch == '\\' {
				escaped = true
			} else if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '\'', '"':
			quote = ch
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// wholeStringLiteral reports whether text is a single string literal and
// returns its unquoted contents.
func wholeStringLiteral(text string) (string, bool) {
	if len(text) < 2 {
		return "", false
	}
	q := text[0]
	if q != '\'' && q != '"' {
		return "", false
	}
	if strings.HasPrefix(text, string(q)+string(q)+string(q)) {
		if len(text) >= 6 && strings.HasSuffix(text, string(q)+string(q)+string(q)) {
			return text[3 : len(text)-3], true
		}
		return "", false
	}
	if text[len(text)-1] != q {
		return "", false
	}
	// Reject concatenated or multi-token forms like "a" + "b".
	escaped := false
	for i := 1; i < len(text)-1; i++ {
		if escaped {
			escaped = false
			continue
		}
		if text[i] == '\\' {
			escaped = true
			continue
		}
		if text[i] == q {
			return "", false
		}
	}
	return text[1 : len(text)-1], true
}

var embeddedNumberPattern = regexp.MustCompile(`(?:^|[^\w.])(-?(?:[0-9]+(?:\.[0-9]*)?(?:[eE][+-]?[0-9]+)?|\.[0-9]+))`)

// embeddedLiterals lexically extracts string and numeric literals from text
// the expression parser could not model, so resource checks still see them.
func embeddedLiterals(text string, line int) []Expr {
	var out []Expr
	masked := []byte(text)

	// Strings first, masking them out so numbers inside are not re-counted.
	var quote byte
	escaped := false
	start := -1
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if quote != 0 {
			if escaped {
				escaped = false
			} else if ch == '\\' {
				escaped = true
			} else if ch == quote {
				out = append(out, &StringLit{
					exprBase: exprBase{line: line + strings.Count(text[:start], "\n")},
					Value:    text[start+1 : i],
				})
				for j := start; j <= i; j++ {
					masked[j] = ' '
				}
				quote = 0
			}
			continue
		}
		if ch == '\'' || ch == '"' {
			quote = ch
			start = i
		}
	}

	for _, m := range embeddedNumberPattern.FindAllSubmatchIndex(masked, -1) {
		tok := string(masked[m[2]:m[3]])
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			continue
		}
		out = append(out, &NumberLit{
			exprBase: exprBase{line: line + strings.Count(text[:m[2]], "\n")},
			Text:     tok,
			Value:    v,
			IsFloat:  strings.ContainsAny(tok, ".eE"),
			Negative: strings.HasPrefix(tok, "-"),
		})
	}
	return out
}
