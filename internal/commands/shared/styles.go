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

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/tombee/composer/pkg/diagnostic"
)

// CLI style colors using lipgloss
var (
	// StatusOK styles success indicators
	StatusOK = lipgloss.NewStyle().Foreground(lipgloss.Color("42")) // green

	// StatusWarn styles warning indicators
	StatusWarn = lipgloss.NewStyle().Foreground(lipgloss.Color("214")) // orange

	// StatusError styles error indicators
	StatusError = lipgloss.NewStyle().Foreground(lipgloss.Color("196")) // red

	// StatusInfo styles informational text
	StatusInfo = lipgloss.NewStyle().Foreground(lipgloss.Color("39")) // blue

	// Muted styles secondary/less important text
	Muted = lipgloss.NewStyle().Foreground(lipgloss.Color("245")) // gray

	// Bold styles emphasized text
	Bold = lipgloss.NewStyle().Bold(true)
)

// SeverityStyle returns the style used to render a diagnostic severity.
// Suggestions use the muted style so advisory output stays soft.
func SeverityStyle(sev diagnostic.Severity) lipgloss.Style {
	switch sev {
	case diagnostic.SeverityError:
		return StatusError
	case diagnostic.SeverityWarning:
		return StatusWarn
	default:
		return Muted
	}
}

// SeverityMark returns the indicator character for a diagnostic severity.
func SeverityMark(sev diagnostic.Severity) string {
	switch sev {
	case diagnostic.SeverityError:
		return "✗"
	case diagnostic.SeverityWarning:
		return "⚠"
	default:
		return "•"
	}
}
