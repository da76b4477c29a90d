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

// Package version implements the version command, reporting the build
// metadata stamped in at link time.
package version

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/tombee/composer/internal/commands/shared"
	"github.com/tombee/composer/pkg/errors"
)

// VersionInfo is the serializable build-metadata record.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show build version and provenance",
		Long: `Version prints the composer build metadata: the release version, the
commit it was built from, and the build date. Development builds report
"dev" with an unknown commit.

With --json the metadata is emitted as a single JSON object, suitable
for recording alongside exported workflows.`,
		RunE: runVersion,
	}
}

func runVersion(cmd *cobra.Command, _ []string) error {
	version, commit, date := shared.GetVersion()
	info := VersionInfo{Version: version, Commit: commit, BuildDate: date}

	if shared.GetJSON() {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return errors.Wrap(err, "encoding version info")
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("composer version %s (commit %s, built %s)\n",
		info.Version, info.Commit, info.BuildDate)
	return nil
}
