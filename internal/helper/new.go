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
	"os/exec"
	"syscall"

	"github.com/google/subcommands"

	"pmanager/internal/bus"
)

// New implements the "new" command: start a new process with the given
// name. It is the Go translation of original_source/src/pnew.c: after
// confirming the name is free, it launches a fresh agent process (see
// cmd/agent) to become the new tree node, registers it with the
// supervisor, and exits, leaving the agent running on its own.
type New struct{}

// Name implements subcommands.Command.
func (*New) Name() string { return "new" }

// Synopsis implements subcommands.Command.
func (*New) Synopsis() string { return "start a new process" }

// Usage implements subcommands.Command.
func (*New) Usage() string {
	return "new <NAME>\n  Start a new process with name <NAME>.\n"
}

// SetFlags implements subcommands.Command.
func (*New) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.
func (*New) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
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

	if err := c.Bus.Send(c.SupervisorPid, bus.KindInfo, name); err != nil {
		fmt.Println("Error: failed to check for duplicates:", err)
		return subcommands.ExitFailure
	}
	resp, err := c.Bus.Wait(ctx, c.SupervisorPid)
	if err != nil {
		fmt.Println("Error: failed to read response:", err)
		return subcommands.ExitFailure
	}
	if resp.Kind == bus.KindInfo {
		fmt.Printf("Error: a process with name %q already exists.\n", name)
		return subcommands.ExitFailure
	}

	cmd := exec.Command(env.AgentPath, "--name", name, "--supervisor-pid", fmt.Sprint(c.SupervisorPid), "--fifo", env.FifoPath)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		fmt.Println("Error: failed to start process:", err)
		return subcommands.ExitFailure
	}
	go cmd.Wait() //nolint:errcheck

	proc := fmt.Sprintf("%d;%d;%s", cmd.Process.Pid, c.SupervisorPid, name)
	if err := c.Bus.Send(c.SupervisorPid, bus.KindAdd, proc); err != nil {
		abortFork(c, cmd.Process.Pid)
		fmt.Println("Error: failed to register process:", err)
		return subcommands.ExitFailure
	}
	result, err := c.Bus.Wait(ctx, c.SupervisorPid)
	if err != nil || result.Kind != bus.KindOK {
		abortFork(c, cmd.Process.Pid)
		fmt.Println("Error: failed to add process to pmanager.")
		return subcommands.ExitFailure
	}

	fmt.Printf("Process %q successfully started.\n", name)
	return subcommands.ExitSuccess
}

// abortFork kills pid when it could not be registered with the
// supervisor, keeping the tree and the set of running agents consistent
// (original_source/src/pnew.c's abort_fork).
func abortFork(c *Client, pid int) {
	fmt.Printf("Error: failed to add process in pmanager. Sending SIGTERM to %d...\n", pid)
	_ = c.Signaler.Send(pid, syscall.SIGTERM)
}
