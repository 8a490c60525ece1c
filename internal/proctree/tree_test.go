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

func newTestTree() *Tree {
	return New(1, 0, "pmanager")
}

func TestAddAndFind(t *testing.T) {
	tr := newTestTree()
	require.NoError(t, tr.Add(&Node{Pid: 2, Ppid: 1, Name: "alpha"}))

	got := tr.FindByPid(2)
	require.NotNil(t, got)
	require.Equal(t, "alpha", got.Name)

	byName := tr.FindByName("alpha")
	require.NotNil(t, byName)
	require.Equal(t, 2, byName.Pid)
}

func TestAddRejectsOrphan(t *testing.T) {
	tr := newTestTree()
	err := tr.Add(&Node{Pid: 2, Ppid: 99, Name: "alpha"})
	require.ErrorIs(t, err, ErrOrphanAdd)
}

func TestAddRejectsDuplicateName(t *testing.T) {
	tr := newTestTree()
	require.NoError(t, tr.Add(&Node{Pid: 2, Ppid: 1, Name: "alpha"}))
	err := tr.Add(&Node{Pid: 3, Ppid: 1, Name: "alpha"})
	require.ErrorIs(t, err, ErrDuplicateName)
}

func TestAddCopiesNode(t *testing.T) {
	tr := newTestTree()
	n := &Node{Pid: 2, Ppid: 1, Name: "alpha"}
	require.NoError(t, tr.Add(n))
	n.Name = "mutated"

	got := tr.FindByPid(2)
	require.Equal(t, "alpha", got.Name, "tree must hold its own copy of the added node")
}

func TestRemoveLeafOnly(t *testing.T) {
	tr := newTestTree()
	require.NoError(t, tr.Add(&Node{Pid: 2, Ppid: 1, Name: "alpha"}))
	require.NoError(t, tr.Add(&Node{Pid: 3, Ppid: 2, Name: "alpha_1"}))

	err := tr.Remove(2)
	require.ErrorIs(t, err, ErrNotLeaf)

	require.NoError(t, tr.Remove(3))
	require.Nil(t, tr.FindByPid(3))
	require.Nil(t, tr.FindByName("alpha_1"))

	require.NoError(t, tr.Remove(2))
	require.Nil(t, tr.FindByPid(2))
}

func TestRemoveUnknownPid(t *testing.T) {
	tr := newTestTree()
	require.ErrorIs(t, tr.Remove(42), ErrNotFound)
}

func TestEnumeratePreOrder(t *testing.T) {
	tr := newTestTree()
	require.NoError(t, tr.Add(&Node{Pid: 2, Ppid: 1, Name: "a"}))
	require.NoError(t, tr.Add(&Node{Pid: 3, Ppid: 2, Name: "b"}))
	require.NoError(t, tr.Add(&Node{Pid: 4, Ppid: 2, Name: "c"}))

	nodes := Enumerate(tr.Root)
	require.Len(t, nodes, 4)
	var names []string
	for _, n := range nodes {
		names = append(names, n.Name)
	}
	require.Equal(t, []string{"pmanager", "a", "b", "c"}, names)
}

func TestEnumerateReturnsCopies(t *testing.T) {
	tr := newTestTree()
	require.NoError(t, tr.Add(&Node{Pid: 2, Ppid: 1, Name: "a"}))

	nodes := Enumerate(tr.Root)
	nodes[1].Name = "mutated"

	require.Equal(t, "a", tr.FindByPid(2).Name)
}
