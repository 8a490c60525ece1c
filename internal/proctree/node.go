// Copyright 2018 The gVisor Authors.
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

// Package proctree implements the in-memory rooted process tree owned by
// the supervisor. A Node mirrors one live OS process; the tree as a whole
// must always reflect the true parent/child relationships of the fleet the
// supervisor started.
package proctree

import "fmt"

// Node represents one process in the tree. Pid is the OS process id, Ppid
// is the pid of its parent in the tree, and Name is unique across all live
// nodes. A Node exclusively owns its Children; destroying a Node destroys
// its subtree.
type Node struct {
	Pid      int
	Ppid     int
	Name     string
	Children []*Node
}

// newNode allocates a leaf Node with no children.
func newNode(pid, ppid int, name string) *Node {
	return &Node{Pid: pid, Ppid: ppid, Name: name}
}

// clone returns a copy of n with no children, the same shape
// proc_node_init produces in original_source/src/proc_tree.c: callers that
// add a node to the tree never retain a live reference to the caller's
// copy.
func (n *Node) clone() *Node {
	return newNode(n.Pid, n.Ppid, n.Name)
}

// String implements fmt.Stringer for debugging; the wire representation
// used for ADD/INFO/LIST payloads lives in serialize.go.
func (n *Node) String() string {
	return fmt.Sprintf("Node{pid=%d ppid=%d name=%q children=%d}", n.Pid, n.Ppid, n.Name, len(n.Children))
}
