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

// Constraints holds the numeric resource ceilings enforced on embedded
// scripts. A Constraints value is immutable after construction; deployments
// that need different limits supply a different version wholesale rather
// than mutating one at runtime.
type Constraints struct {
	// Version identifies the constraint set (e.g. "2025.1").
	Version string `yaml:"version"`

	// MaxScriptBytes is the UTF-8 byte ceiling for a whole script.
	MaxScriptBytes int `yaml:"max_script_bytes"`

	// MaxStringLength is the character ceiling for a single string literal.
	MaxStringLength int `yaml:"max_string_length"`

	// MaxNumericValue is the magnitude ceiling for numeric literals.
	// Integers must fall in [0, MaxNumericValue]; floats may range over
	// the signed equivalent.
	MaxNumericValue float64 `yaml:"max_numeric_value"`

	// MaxSerializedBytes is the ceiling for the estimated serialized size
	// of a container literal.
	MaxSerializedBytes int `yaml:"max_serialized_bytes"`
}

// DefaultConstraints returns the production constraint set.
func DefaultConstraints() Constraints {
	return Constraints{
		Version:            "2025.1",
		MaxScriptBytes:     4096,
		MaxStringLength:    4096,
		MaxNumericValue:    4294967295,
		MaxSerializedBytes: 2096,
	}
}

// Warning thresholds applied against every ceiling. The near threshold adds
// a second, tighter byte-count warning before the hard limit.
const (
	warnThreshold = 0.80
	nearThreshold = 0.95
)

// Heuristic readability limits, independent of the hard ceilings.
const (
	largeStringLength  = 1024
	largeContainerSize = 50
)

// Fallback serialization cost charged for any sub-expression whose value is
// not statically known (calls, names, arithmetic).
const opaqueSerializedCost = 15

// mutatingCalls maps container operations that mutate in place and return
// nothing to an operation-specific remediation. A script whose tail
// statement is one of these calls yields no value at runtime.
var mutatingCalls = map[string]string{
	"append":     "append modifies the list in place; reference the list itself on the next line",
	"extend":     "extend modifies the list in place; reference the list itself on the next line",
	"insert":     "insert modifies the list in place; reference the list itself on the next line",
	"remove":     "remove modifies the container in place; reference the container itself on the next line",
	"pop":        "pop returns the removed element, but mutating as the last statement is fragile; capture the result or reference the container afterward",
	"clear":      "clear empties the container and creates no value; reference the container itself afterward",
	"sort":       "sort orders the list in place and creates no value; reference the list itself, or use sorted(), afterward",
	"reverse":    "reverse reorders the list in place and creates no value; reference the list itself afterward",
	"update":     "update modifies the dict in place; reference the dict itself on the next line",
	"setdefault": "setdefault mutates the dict; reference the dict itself afterward",
	"popitem":    "popitem mutates the dict; capture the result or reference the dict afterward",
}

// Reserved output keys that signal citation-shaped output.
const (
	// OutputKeyResult marks a script expected to yield a single
	// citation mapping.
	OutputKeyResult = "result"

	// OutputKeyResults marks a script expected to yield a list of
	// citation mappings.
	OutputKeyResults = "results"
)

// citationFields is the fixed schema expected under a reserved citation key.
var citationFields = []string{"id", "name", "title", "url", "snippet"}
