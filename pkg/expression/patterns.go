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

package expression

import "regexp"

var looksLikePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$[A-Z][A-Z0-9_]*\s*\(`),
	regexp.MustCompile(`\b(data|meta)\.[A-Za-z_]`),
	regexp.MustCompile(`==|!=|<=|>=|&&|\|\|`),
}

// LooksLikeExpression reports whether a field value appears to use the
// data-mapping language and is worth validating. Plain text values are
// skipped rather than flagged.
func LooksLikeExpression(s string) bool {
	for _, p := range looksLikePatterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}
