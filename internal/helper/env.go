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

// Package helper implements pmanager's command helpers (new, info, list,
// tree, close, rmall, help) as subcommands.Command implementations, one
// per executable the supervisor forks on a user's behalf. Each is the Go
// translation of the matching original_source/src/p*.c program.
package helper

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"syscall"

	"pmanager/internal/bus"
	"pmanager/internal/signaling"
)

// Env carries the connection parameters every helper needs, populated
// from environment variables the supervisor sets before forking a
// helper (mirroring how the original shell always forked children with
// the FIFO already known by convention at FIFO_NAME).
type Env struct {
	FifoPath    string
	NudgeSignal syscall.Signal
	// AgentPath is the executable new and a cloning agent launch to
	// become a new process tree node (cmd/agent).
	AgentPath string
	// HelperDir is the directory phelp scans for available commands.
	HelperDir string
}

// Environment variable names used to pass Env across the fork/exec
// boundary from supervisor to helper.
const (
	envFifoPath    = "PMANAGER_FIFO"
	envNudgeSignal = "PMANAGER_NUDGE_SIGNAL"
	envAgentPath   = "PMANAGER_AGENT_PATH"
	envHelperDir   = "PMANAGER_HELPER_DIR"
)

// EnvFromEnvironment reads Env from the process environment, falling
// back to the package defaults a standalone invocation (outside the
// shell) would want.
func EnvFromEnvironment() Env {
	e := Env{
		FifoPath:    "/tmp/pmanager.fifo",
		NudgeSignal: syscall.SIGUSR1,
		AgentPath:   "pmanager-agent",
		HelperDir:   "/usr/local/libexec/pmanager",
	}
	if v := os.Getenv(envFifoPath); v != "" {
		e.FifoPath = v
	}
	if v := os.Getenv(envNudgeSignal); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			e.NudgeSignal = syscall.Signal(n)
		}
	}
	if v := os.Getenv(envAgentPath); v != "" {
		e.AgentPath = v
	}
	if v := os.Getenv(envHelperDir); v != "" {
		e.HelperDir = v
	}
	return e
}

// ToEnviron renders e as the PMANAGER_* environment variables a forked
// helper should inherit.
func (e Env) ToEnviron() []string {
	return []string{
		fmt.Sprintf("%s=%s", envFifoPath, e.FifoPath),
		fmt.Sprintf("%s=%d", envNudgeSignal, int(e.NudgeSignal)),
		fmt.Sprintf("%s=%s", envAgentPath, e.AgentPath),
		fmt.Sprintf("%s=%s", envHelperDir, e.HelperDir),
	}
}

// Client is a helper's connection to the shared bus: its own pid, the
// supervisor's pid (assumed to be its parent, exactly as in the
// original), and the Bus itself.
type Client struct {
	Bus           *bus.Bus
	Pid           int
	SupervisorPid int
	Signaler      signaling.Signaler

	transport *bus.FifoTransport
}

// Connect opens the shared FIFO and sets up a Bus for the current
// process, assuming its parent is the supervisor (true for every helper
// forked directly by the shell's exec_command equivalent).
func Connect(ctx context.Context, env Env) (*Client, error) {
	transport, err := bus.OpenFifo(ctx, env.FifoPath)
	if err != nil {
		return nil, fmt.Errorf("helper: connect: %w", err)
	}
	pid := os.Getpid()
	supervisorPid := os.Getppid()
	signaler := signaling.OS{}
	b := bus.New(pid, transport, signaler, env.NudgeSignal)
	return &Client{Bus: b, Pid: pid, SupervisorPid: supervisorPid, Signaler: signaler, transport: transport}, nil
}

// Close releases the client's bus and FIFO handle.
func (c *Client) Close() error {
	return c.Bus.Close()
}
