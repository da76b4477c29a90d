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

package shared

// Error codes for structured JSON output
const (
	// Validation errors (E001-E099)
	ErrorCodeInvalidYAML = "E002" // Invalid YAML syntax

	// Configuration errors (E200-E299)
	ErrorCodeInvalidConfig = "E202" // Invalid constraints configuration

	// Input errors (E300-E399)
	ErrorCodeInvalidInput = "E302" // Invalid input format
	ErrorCodeFileNotFound = "E303" // File not found
)
