// Copyright 2024 The pmanager Authors.
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

package proctree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToStrFromStrRoundTrip(t *testing.T) {
	n := &Node{Pid: 123, Ppid: 1, Name: "alpha_1"}
	got, err := FromStr(ToStr(n))
	require.NoError(t, err)
	require.Equal(t, n.Pid, got.Pid)
	require.Equal(t, n.Ppid, got.Ppid)
	require.Equal(t, n.Name, got.Name)
}

func TestFromStrRejectsMalformed(t *testing.T) {
	_, err := FromStr("not-enough-fields")
	require.Error(t, err)

	_, err = FromStr("1;2;3;4")
	require.Error(t, err)

	_, err = FromStr("x;2;name")
	require.Error(t, err)
}
