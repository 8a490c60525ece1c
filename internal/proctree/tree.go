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
	"github.com/google/btree"
	"github.com/mohae/deepcopy"
)

// btreeDegree keeps a small, fixed branching factor in both auxiliary
// indices; the tree sizes here (live user processes on one host) never
// justify tuning it further.
const btreeDegree = 8

// pidItem indexes a Node by pid.
type pidItem struct {
	pid  int
	node *Node
}

func (a pidItem) Less(than btree.Item) bool {
	return a.pid < than.(pidItem).pid
}

// nameItem indexes a Node by name.
type nameItem struct {
	name string
	node *Node
}

func (a nameItem) Less(than btree.Item) bool {
	return a.name < than.(nameItem).name
}

// Tree is the rooted, supervisor-owned process tree. Lookups by pid and
// by name are backed by btree indices; the canonical, authoritative shape
// of the tree remains the Root node's Children pointer graph, which
// Enumerate and PrintTree walk pre-order exactly as
// original_source/src/proc_tree.c does.
type Tree struct {
	Root   *Node
	byPid  *btree.BTree
	byName *btree.BTree
}

// New creates a Tree whose root is the supervisor's own node (pid =
// supervisor pid, ppid = parent of supervisor, name = "pmanager").
func New(pid, ppid int, name string) *Tree {
	root := newNode(pid, ppid, name)
	t := &Tree{
		Root:   root,
		byPid:  btree.New(btreeDegree),
		byName: btree.New(btreeDegree),
	}
	t.index(root)
	return t
}

func (t *Tree) index(n *Node) {
	t.byPid.ReplaceOrInsert(pidItem{pid: n.Pid, node: n})
	t.byName.ReplaceOrInsert(nameItem{name: n.Name, node: n})
}

func (t *Tree) unindex(n *Node) {
	t.byPid.Delete(pidItem{pid: n.Pid})
	t.byName.Delete(nameItem{name: n.Name})
}

// FindByPid returns the node with the given pid, or nil if none exists.
// It is the indexed equivalent of proc_node_find_by_pid.
func (t *Tree) FindByPid(pid int) *Node {
	item := t.byPid.Get(pidItem{pid: pid})
	if item == nil {
		return nil
	}
	return item.(pidItem).node
}

// FindByName returns the node with the given name, or nil if none exists.
// It is the indexed equivalent of proc_node_find_by_name.
func (t *Tree) FindByName(name string) *Node {
	item := t.byName.Get(nameItem{name: name})
	if item == nil {
		return nil
	}
	return item.(nameItem).node
}

// Add inserts node as a child of the tree's node whose pid equals
// node.Ppid. The inserted copy is produced with deepcopy.Copy, matching
// proc_node_add's contract that the caller retains ownership of its
// argument.
//
// Add enforces name uniqueness at this layer, closing the duplicate-name
// race the original protocol otherwise leaves to the ADD/INFO caller to
// avoid.
func (t *Tree) Add(node *Node) error {
	parent := t.FindByPid(node.Ppid)
	if parent == nil {
		return ErrOrphanAdd
	}
	if existing := t.FindByName(node.Name); existing != nil {
		return ErrDuplicateName
	}
	child := deepcopy.Copy(node).(*Node)
	child.Children = nil
	parent.Children = append(parent.Children, child)
	t.index(child)
	return nil
}

// Remove deregisters the leaf node with the given pid; a node with
// children refuses removal.
func (t *Tree) Remove(pid int) error {
	node := t.FindByPid(pid)
	if node == nil {
		return ErrNotFound
	}
	if len(node.Children) != 0 {
		return ErrNotLeaf
	}
	parent := t.FindByPid(node.Ppid)
	if parent == nil {
		// Only the root has no parent, and the root is never removed by
		// this path (the supervisor destroys it directly on shutdown).
		return ErrNotFound
	}
	if err := removeChild(parent, pid); err != nil {
		return err
	}
	t.unindex(node)
	return nil
}

// removeChild splices the child with the given pid out of parent's
// Children slice, mirroring remove_child in proc_tree.c.
func removeChild(parent *Node, pid int) error {
	for i, c := range parent.Children {
		if c.Pid == pid {
			parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// Enumerate returns a pre-order snapshot of the subtree rooted at start
// (copies, so callers cannot mutate the live tree), matching
// proc_node_get_array's contract.
func Enumerate(start *Node) []*Node {
	var out []*Node
	var walk func(*Node)
	walk = func(n *Node) {
		if n == nil {
			return
		}
		out = append(out, n.clone())
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(start)
	return out
}
