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

package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	base := New("disk full")

	wrapped := Wrap(base, "writing report")
	require.Error(t, wrapped)
	assert.Equal(t, "writing report: disk full", wrapped.Error())
	assert.True(t, Is(wrapped, base))
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "anything"))
	assert.NoError(t, Wrapf(nil, "anything %d", 1))
}

func TestWrapf(t *testing.T) {
	base := New("timeout")

	wrapped := Wrapf(base, "fetching %s", "constraints")
	require.Error(t, wrapped)
	assert.Equal(t, "fetching constraints: timeout", wrapped.Error())
}

func TestAs(t *testing.T) {
	err := Wrap(&NotFoundError{Resource: "workflow", ID: "report.yaml"}, "loading")

	var nf *NotFoundError
	require.True(t, As(err, &nf))
	assert.Equal(t, "workflow", nf.Resource)
}
