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

	"github.com/google/subcommands"

	"pmanager/internal/bus"
	"pmanager/internal/proctree"
)

// RmAll implements the "rmall" command: terminate the named process and
// every one of its descendants, leaves first. It is the Go translation
// of original_source/src/prmall.c.
type RmAll struct{}

// Name implements subcommands.Command.
func (*RmAll) Name() string { return "rmall" }

// Synopsis implements subcommands.Command.
func (*RmAll) Synopsis() string { return "close a process and its children" }

// Usage implements subcommands.Command.
func (*RmAll) Usage() string {
	return "rmall <NAME>\n  Close process with name <NAME>, including its children.\n"
}

// SetFlags implements subcommands.Command.
func (*RmAll) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.
func (*RmAll) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	name := f.Arg(0)
	env := args[0].(Env)

	c, err := Connect(ctx, env)
	if err != nil {
		fmt.Println("Error:", err)
		return subcommands.ExitFailure
	}
	defer c.Close()

	nodes, err := streamList(ctx, c, name)
	if err != nil {
		fmt.Println("Error:", err)
		return subcommands.ExitFailure
	}
	root := rebuildTree(nodes)
	if root == nil {
		fmt.Println("Error: process not found")
		return subcommands.ExitFailure
	}

	killTree(ctx, c, root)
	return subcommands.ExitSuccess
}

// killTree sends a termination request to every node in the subtree,
// children before parents, matching prmall's kill_proc_tree. The node
// that is this client's own supervisor is never targeted.
func killTree(ctx context.Context, c *Client, node *proctree.Node) {
	for _, child := range node.Children {
		killTree(ctx, c, child)
	}
	if node.Pid == c.SupervisorPid {
		return
	}
	fmt.Printf("Sending termination request to %d...\n", node.Pid)
	if err := c.Bus.Send(node.Pid, bus.KindTerm, ""); err != nil {
		fmt.Println("Error: failed to send termination request:", err)
		return
	}
	if _, err := c.Bus.Wait(ctx, node.Pid); err != nil {
		fmt.Println("Error: failed waiting for response:", err)
	}
}
