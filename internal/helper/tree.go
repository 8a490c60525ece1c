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

package helper

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"pmanager/internal/proctree"
)

// Tree implements the "tree" command: print the process tree started by
// the shell. It is the Go translation of original_source/src/ptree.c.
type Tree struct{}

// Name implements subcommands.Command.
func (*Tree) Name() string { return "tree" }

// Synopsis implements subcommands.Command.
func (*Tree) Synopsis() string { return "show a tree of processes started by the shell" }

// Usage implements subcommands.Command.
func (*Tree) Usage() string { return "tree\n  Show a tree of processes started by the shell.\n" }

// SetFlags implements subcommands.Command.
func (*Tree) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.
func (*Tree) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	env := args[0].(Env)

	c, err := Connect(ctx, env)
	if err != nil {
		fmt.Println("Error:", err)
		return subcommands.ExitFailure
	}
	defer c.Close()

	nodes, err := streamList(ctx, c, "pmanager")
	if err != nil {
		fmt.Println("Error:", err)
		return subcommands.ExitFailure
	}

	root := rebuildTree(nodes)
	if root == nil {
		fmt.Println("Error: process not found")
		return subcommands.ExitFailure
	}
	proctree.PrintTree(os.Stdout, root)
	return subcommands.ExitSuccess
}

// rebuildTree reconstructs the parent/child shape of a pre-order
// Enumerate stream, since the wire format only carries pid/ppid/name
// per entry (original_source/src/ptree.c's add_process_to_tree, called
// once per received frame).
func rebuildTree(nodes []*proctree.Node) *proctree.Node {
	if len(nodes) == 0 {
		return nil
	}
	byPid := make(map[int]*proctree.Node, len(nodes))
	for _, n := range nodes {
		n.Children = nil
		byPid[n.Pid] = n
	}
	root := nodes[0]
	for _, n := range nodes[1:] {
		parent, ok := byPid[n.Ppid]
		if !ok {
			continue
		}
		parent.Children = append(parent.Children, n)
	}
	return root
}
