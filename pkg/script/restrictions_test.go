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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/composer/pkg/diagnostic"
)

func TestCheckRestrictionsImports(t *testing.T) {
	tests := []struct {
		name        string
		source      string
		wantCount   int
		wantMessage string
	}{
		{
			name:        "plain import",
			source:      "import os",
			wantCount:   1,
			wantMessage: "import is not allowed",
		},
		{
			name:        "aliased import",
			source:      "import json as j",
			wantCount:   1,
			wantMessage: "import is not allowed",
		},
		{
			name:        "from import",
			source:      "from math import sqrt",
			wantCount:   1,
			wantMessage: "from-import is not allowed",
		},
		{
			name:        "wildcard import wins over from rule",
			source:      "from os.path import *",
			wantCount:   1,
			wantMessage: "wildcard import is not allowed",
		},
		{
			name:        "dynamic import via __import__",
			source:      "mod = __import__('os')",
			wantCount:   1,
			wantMessage: "dynamic import is not allowed",
		},
		{
			name:        "importlib reference",
			source:      "importlib.import_module('os')",
			wantCount:   1,
			wantMessage: "dynamic import is not allowed",
		},
		{
			name:      "clean script",
			source:    "x = 1\nreturn x",
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmts, _ := Parse(tt.source)
			diags, _ := checkRestrictions(tt.source, stmts)

			var importDiags []diagnostic.Diagnostic
			for _, d := range diags {
				if d.Category == diagnostic.CategoryRestriction {
					importDiags = append(importDiags, d)
				}
			}
			require.Len(t, importDiags, tt.wantCount)
			if tt.wantCount > 0 {
				assert.Contains(t, importDiags[0].Message, tt.wantMessage)
				assert.Equal(t, diagnostic.SeverityError, importDiags[0].Severity)
				assert.Equal(t, 1, importDiags[0].Line)
				assert.NotEmpty(t, importDiags[0].Rationale)
			}
		})
	}
}

func TestCheckRestrictionsClassDefinition(t *testing.T) {
	source := "class Widget:\n    pass\nreturn 1"
	stmts, err := Parse(source)
	require.NoError(t, err)

	diags, _ := checkRestrictions(source, stmts)
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0].Message, `class definition "Widget" is not allowed`)
	assert.Equal(t, diagnostic.SeverityError, diags[0].Severity)
	assert.Equal(t, 1, diags[0].Line)
}

func TestFindPrivateIdentifiers(t *testing.T) {
	tests := []struct {
		name      string
		source    string
		wantNames []string
	}{
		{
			name:      "leading underscore assignment",
			source:    "_tmp = 1",
			wantNames: []string{"_tmp"},
		},
		{
			name:      "private attribute access",
			source:    "x = obj._secret",
			wantNames: []string{"_secret"},
		},
		{
			name:      "dunder names excluded",
			source:    "x = __name__",
			wantNames: nil,
		},
		{
			name:      "bare underscore excluded",
			source:    "_ = discard()",
			wantNames: nil,
		},
		{
			name:      "interior underscore is fine",
			source:    "total_count = 5",
			wantNames: nil,
		},
		{
			name:      "multiple on one line",
			source:    "_a = _b",
			wantNames: []string{"_a", "_b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			privates := findPrivateIdentifiers(strings.Split(tt.source, "\n"))
			var names []string
			for _, p := range privates {
				names = append(names, p.Name)
			}
			assert.Equal(t, tt.wantNames, names)
		})
	}
}

func TestPrivateIdentifierContext(t *testing.T) {
	source := "a = 1\n_hidden = 2\nb = 3"
	privates := findPrivateIdentifiers(strings.Split(source, "\n"))
	require.Len(t, privates, 1)

	p := privates[0]
	assert.Equal(t, "_hidden", p.Name)
	assert.Equal(t, 2, p.Line)
	assert.Equal(t, 1, p.Column)
	// Context carries the surrounding numbered lines.
	assert.Contains(t, p.Context, "2 | _hidden = 2")
	assert.Contains(t, p.Context, "1 | a = 1")
	assert.Contains(t, p.Context, "3 | b = 3")
}
