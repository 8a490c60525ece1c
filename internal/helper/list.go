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

// List implements the "list" command: print a table of every process
// started by the shell. It is the Go translation of
// original_source/src/plist.c.
type List struct{}

// Name implements subcommands.Command.
func (*List) Name() string { return "list" }

// Synopsis implements subcommands.Command.
func (*List) Synopsis() string { return "list all processes started by the shell" }

// Usage implements subcommands.Command.
func (*List) Usage() string { return "list\n  List all processes started by the shell.\n" }

// SetFlags implements subcommands.Command.
func (*List) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.
func (*List) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
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

	fmt.Printf("%-6s %-6s %-20s\n\n", "PID", "PPID", "NAME")
	for _, n := range nodes {
		if n.Pid == c.SupervisorPid {
			continue
		}
		fmt.Printf("%-6d %-6d %-20s\n", n.Pid, n.Ppid, n.Name)
	}
	return subcommands.ExitSuccess
}

// streamList asks the supervisor for every process in the subtree rooted
// at rootName and collects the stream into a slice, acknowledging each
// entry as it arrives.
func streamList(ctx context.Context, c *Client, rootName string) ([]*proctree.Node, error) {
	if err := c.Bus.Send(c.SupervisorPid, bus.KindList, rootName); err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	var nodes []*proctree.Node
	for {
		resp, err := c.Bus.Wait(ctx, c.SupervisorPid)
		if err != nil {
			return nil, fmt.Errorf("failed to read message: %w", err)
		}
		switch resp.Kind {
		case bus.KindInfo:
			node, err := proctree.FromStr(resp.Payload)
			if err != nil {
				return nil, fmt.Errorf("failed to parse process: %w", err)
			}
			nodes = append(nodes, node)
			if err := c.Bus.Send(c.SupervisorPid, bus.KindOK, ""); err != nil {
				return nil, fmt.Errorf("failed to send message: %w", err)
			}
		case bus.KindOK:
			return nodes, nil
		case bus.KindErr:
			return nil, fmt.Errorf("%s", resp.Payload)
		default:
			return nil, fmt.Errorf("unrecognized message")
		}
	}
}
