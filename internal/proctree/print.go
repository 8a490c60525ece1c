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
	"fmt"
	"io"
	"strings"
)

// PrintTree renders root as a depth-indented name tree, equivalent to
// proc_node_print_tree in proc_tree.c. Plain indentation is used here
// instead of the original's border-mode escape sequences.
func PrintTree(w io.Writer, root *Node) {
	printTreeRec(w, root, 0)
	fmt.Fprintln(w)
}

func printTreeRec(w io.Writer, n *Node, depth int) {
	if n == nil {
		return
	}
	if depth == 0 {
		fmt.Fprint(w, n.Name)
	} else {
		fmt.Fprintf(w, "%s- %s", strings.Repeat("\t", depth), n.Name)
	}
	for _, c := range n.Children {
		fmt.Fprintln(w)
		printTreeRec(w, c, depth+1)
	}
}
