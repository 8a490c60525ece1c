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

// Info implements the "info" command: show information about the named
// process. It is the Go translation of original_source/src/pinfo.c.
type Info struct {
	pidOnly     bool
	pidPmanager int
}

// Name implements subcommands.Command.
func (*Info) Name() string { return "info" }

// Synopsis implements subcommands.Command.
func (*Info) Synopsis() string { return "show information about a process" }

// Usage implements subcommands.Command.
func (*Info) Usage() string {
	return "info [-p] [-m PID] <NAME>\n" +
		"  Show information about process with name <NAME>.\n" +
		"  -p, --pid-only            print only pid of the process\n" +
		"  -m, --pid-pmanager=PID    use PID as pid for pmanager\n"
}

// SetFlags implements subcommands.Command.
func (i *Info) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&i.pidOnly, "pid-only", false, "print only pid of the process")
	f.BoolVar(&i.pidOnly, "p", false, "print only pid of the process")
	f.IntVar(&i.pidPmanager, "pid-pmanager", 0, "use PID as pid for pmanager")
	f.IntVar(&i.pidPmanager, "m", 0, "use PID as pid for pmanager")
}

// Execute implements subcommands.Command.
func (i *Info) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
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

	// A standalone pinfo (its parent is not the supervisor) cannot rely
	// on Connect's getppid() assumption, so -pid-pmanager overrides it.
	if i.pidPmanager != 0 {
		c.SupervisorPid = i.pidPmanager
	}

	if err := c.Bus.Send(c.SupervisorPid, bus.KindInfo, name); err != nil {
		fmt.Println("Error: failed to send message:", err)
		return subcommands.ExitFailure
	}
	resp, err := c.Bus.Wait(ctx, c.SupervisorPid)
	if err != nil {
		fmt.Println("Error: failed to read message:", err)
		return subcommands.ExitFailure
	}
	if resp.Kind == bus.KindErr {
		fmt.Println("Error:", resp.Payload)
		return subcommands.ExitFailure
	}
	if resp.Kind != bus.KindInfo {
		fmt.Println("Error: unrecognized message.")
		return subcommands.ExitFailure
	}

	node, err := proctree.FromStr(resp.Payload)
	if err != nil {
		fmt.Println("Error: failed to parse process:", err)
		return subcommands.ExitFailure
	}
	if i.pidOnly {
		fmt.Println(node.Pid)
	} else {
		fmt.Printf("Name : %s\nPID  : %d\nPPID : %d\n", node.Name, node.Pid, node.Ppid)
	}
	return subcommands.ExitSuccess
}

// lookup asks the supervisor for the node named name, used by close
// instead of shelling out to a separate query command.
func lookup(ctx context.Context, c *Client, name string) (*proctree.Node, error) {
	if err := c.Bus.Send(c.SupervisorPid, bus.KindInfo, name); err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	resp, err := c.Bus.Wait(ctx, c.SupervisorPid)
	if err != nil {
		return nil, fmt.Errorf("failed to read message: %w", err)
	}
	if resp.Kind == bus.KindErr {
		return nil, fmt.Errorf("%s", resp.Payload)
	}
	if resp.Kind != bus.KindInfo {
		return nil, fmt.Errorf("unrecognized message")
	}
	return proctree.FromStr(resp.Payload)
}
