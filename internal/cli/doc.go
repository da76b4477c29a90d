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

/*
Package cli provides the root command and shared configuration for Composer's CLI.

This package creates the main Cobra command tree and handles global concerns like
version information, persistent flags, and error handling. Individual commands
are implemented in the internal/commands subpackages.

# Command Tree

The CLI is organized as:

	composer
	├── lint          Validate workflow files before export
	├── vet           Validate a single script or expression
	└── version       Show version information

# Global Flags

Three persistent flags apply to every command:

	--verbose, -v    Enable verbose output
	--json           Output in JSON format
	--constraints    Path to a constraints override file

# Exit Codes

Commands exit 0 when validation passes, 1 when any error-severity finding
is produced, and 2 when input is unreadable or flags are invalid. Warnings
and suggestions never affect the exit code.
*/
package cli
