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

import "errors"

var (
	// ErrOrphanAdd is returned by Tree.Add when no node in the tree has a
	// pid matching the new node's Ppid.
	ErrOrphanAdd = errors.New("proctree: no parent with matching pid in tree")

	// ErrDuplicateName is returned by Tree.Add when a live node already
	// carries the name being added. The original protocol left this race
	// to be closed by callers probing INFO before ADD; it is enforced
	// here at the tree layer instead.
	ErrDuplicateName = errors.New("proctree: a node with this name already exists")

	// ErrNotFound is returned by Remove when no node with the given pid
	// exists in the tree.
	ErrNotFound = errors.New("proctree: no node with this pid")

	// ErrNotLeaf is returned by Remove when the target node still has
	// children.
	ErrNotLeaf = errors.New("proctree: node has children, refusing to remove")
)
