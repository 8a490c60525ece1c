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
)

// Close implements the "close" command: terminate the named process. It
// is the Go translation of original_source/src/pclose.c, adapted to ask
// the supervisor for the pid directly (an in-process query) rather than
// shelling out to pinfo and scraping its stdout.
type Close struct{}

// Name implements subcommands.Command.
func (*Close) Name() string { return "close" }

// Synopsis implements subcommands.Command.
func (*Close) Synopsis() string { return "close a process" }

// Usage implements subcommands.Command.
func (*Close) Usage() string { return "close <NAME>\n  Close process with name <NAME>.\n" }

// SetFlags implements subcommands.Command.
func (*Close) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.
func (*Close) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
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

	node, err := lookup(ctx, c, name)
	if err != nil {
		fmt.Println("Error:", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Sending termination request to %d...\n", node.Pid)
	if err := c.Bus.Send(node.Pid, bus.KindTerm, ""); err != nil {
		fmt.Println("Error: failed to send termination request:", err)
		return subcommands.ExitFailure
	}
	resp, err := c.Bus.Wait(ctx, node.Pid)
	if err != nil {
		fmt.Println("Error: failed to read response:", err)
		return subcommands.ExitFailure
	}
	if resp.Kind != bus.KindOK {
		fmt.Println("Error: process refused to terminate.")
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
