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

// FunctionSpec describes one function of the data-mapping vocabulary. The
// table is data, not code: a deployment can supply a different table without
// touching the validator.
type FunctionSpec struct {
	// MinArgs is the minimum argument count.
	MinArgs int `yaml:"min_args"`

	// MaxArgs is the maximum argument count; -1 means unbounded.
	MaxArgs int `yaml:"max_args"`

	// Description summarizes the function for suggestions and docs.
	Description string `yaml:"description"`
}

// DefaultFunctions returns the production function vocabulary.
func DefaultFunctions() map[string]FunctionSpec {
	return map[string]FunctionSpec{
		"GET":       {MinArgs: 1, MaxArgs: 2, Description: "look up a value by path, with an optional default"},
		"MAP":       {MinArgs: 2, MaxArgs: 3, Description: "transform each element of a collection"},
		"FILTER":    {MinArgs: 2, MaxArgs: 2, Description: "keep elements matching a condition"},
		"IF":        {MinArgs: 2, MaxArgs: 3, Description: "choose between two values based on a condition"},
		"CONCAT":    {MinArgs: 2, MaxArgs: -1, Description: "join values into one string"},
		"LENGTH":    {MinArgs: 1, MaxArgs: 1, Description: "count elements or characters"},
		"MERGE":     {MinArgs: 2, MaxArgs: -1, Description: "combine mappings, later keys winning"},
		"FLATTEN":   {MinArgs: 1, MaxArgs: 1, Description: "flatten nested lists one level"},
		"UNIQUE":    {MinArgs: 1, MaxArgs: 1, Description: "drop duplicate elements"},
		"SORT":      {MinArgs: 1, MaxArgs: 2, Description: "order elements, optionally by a key path"},
		"JOIN":      {MinArgs: 2, MaxArgs: 2, Description: "join list elements with a separator"},
		"SPLIT":     {MinArgs: 2, MaxArgs: 2, Description: "split a string on a separator"},
		"DEFAULT":   {MinArgs: 2, MaxArgs: 2, Description: "fall back to a value when the first is empty"},
		"TO_STRING": {MinArgs: 1, MaxArgs: 1, Description: "render a value as text"},
		"TO_NUMBER": {MinArgs: 1, MaxArgs: 1, Description: "parse a value as a number"},
	}
}

// Functions that apply per-argument semantic heuristics during validation.
// These are best-effort nudges, never hard errors.
const (
	fnMap    = "MAP"
	fnFilter = "FILTER"
	fnIf     = "IF"
	fnConcat = "CONCAT"
)
