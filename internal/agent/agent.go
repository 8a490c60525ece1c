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

// Package agent implements the child side of the process tree: a process
// started by pnew (or cloned by another agent), registered with the
// supervisor by whichever of the two started it, that waits for SPAWN and
// termination requests and reaps its own forked clones. It is the Go translation of
// original_source/src/child.c, with two deliberate departures documented
// in DESIGN.md:
//
//   - Spawn execs a fresh copy of the agent binary as a genuine OS child
//     instead of fork()-ing this process's own image in place, and lets
//     a goroutine running os/exec's Wait reap it instead of driving
//     SIGCHLD/wait() by hand.
//   - Termination is requested as an ordinary bus frame (KindTerm) rather
//     than a bare SIGTERM: Go's os/signal exposes no sender pid, so the
//     frame's own SenderPid field is the only way to tell the agent who
//     to resume once it is done.
package agent

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"

	"pmanager/internal/bus"
	"pmanager/internal/signaling"
)

// Agent is one node of the process tree, running as its own OS process.
type Agent struct {
	mu            sync.Mutex
	name          string
	pid           int
	supervisorPid int
	cloneCount    int

	bus      *bus.Bus
	signaler signaling.Signaler
	log      *logrus.Entry

	// exePath and fifoPath let Spawn launch a new agent process that can
	// find the same binary and bus this one was started with.
	exePath  string
	fifoPath string
}

// Config bundles the parameters needed to construct an Agent.
type Config struct {
	Name          string
	SupervisorPid int
	Bus           *bus.Bus
	Signaler      signaling.Signaler
	Log           *logrus.Logger
	ExePath       string
	FifoPath      string
}

// New creates an Agent for the current process.
func New(cfg Config) *Agent {
	return &Agent{
		name:          cfg.Name,
		pid:           os.Getpid(),
		supervisorPid: cfg.SupervisorPid,
		bus:           cfg.Bus,
		signaler:      cfg.Signaler,
		log:           cfg.Log.WithField("agent", cfg.Name),
		exePath:       cfg.ExePath,
		fifoPath:      cfg.FifoPath,
	}
}

// Name returns the agent's current name.
func (a *Agent) Name() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.name
}

// Run services bus messages until the agent terminates itself or ctx is
// cancelled. It returns nil on a clean self-termination, and the context
// error otherwise.
func (a *Agent) Run(ctx context.Context) error {
	a.log.Info("agent ready")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-a.bus.Events():
			if done := a.drainMessages(ctx); done {
				return nil
			}
		}
	}
}

// drainMessages services every message currently queued on the bus. It
// returns true once the agent has terminated itself.
func (a *Agent) drainMessages(ctx context.Context) bool {
	for {
		msg, err := a.bus.Read()
		if err != nil {
			return false
		}
		switch msg.Kind {
		case bus.KindSpawn:
			a.log.WithField("from", msg.SenderPid).Info("clone request received")
			a.Spawn(ctx, msg.SenderPid)
		case bus.KindTerm:
			a.log.WithField("from", msg.SenderPid).Info("termination request received")
			if a.terminate(ctx, msg.SenderPid) {
				return true
			}
		}
	}
}

// resumeCaller sends an OK back to pid, matching child.c's
// resume_process: the caller of SPAWN/terminate is blocked in a Wait
// until this agent replies.
func (a *Agent) resumeCaller(pid int) {
	if err := a.bus.Send(pid, bus.KindOK, ""); err != nil {
		a.log.WithError(err).WithField("to", pid).Error("failed to resume caller")
	}
}

// terminate implements child_terminate: ask the supervisor to remove this
// node, and exit only if it agrees (the node must be a leaf). It returns
// true if the agent should now exit.
func (a *Agent) terminate(ctx context.Context, requester int) bool {
	if err := a.bus.Send(a.supervisorPid, bus.KindRemove, ""); err != nil {
		a.log.WithError(err).Error("failed to request removal")
		a.resumeCaller(requester)
		return false
	}

	resp, err := a.bus.Wait(ctx, a.supervisorPid)
	if err != nil {
		a.log.WithError(err).Error("failed to read supervisor response")
		a.resumeCaller(requester)
		return false
	}

	success := resp.Kind == bus.KindOK
	if success {
		a.log.Info("removed from tree, exiting")
	} else {
		a.log.Warn("cannot terminate: process still has children")
	}

	a.resumeCaller(requester)
	return success
}

// Spawn implements child_clone: create a uniquely-named copy of this
// agent as a new process, register it with the supervisor, and always
// resume the caller that asked for the clone.
func (a *Agent) Spawn(ctx context.Context, caller int) {
	a.mu.Lock()
	a.cloneCount++
	newName := fmt.Sprintf("%s_%d", a.name, a.cloneCount)
	a.mu.Unlock()

	if err := a.bus.Send(a.supervisorPid, bus.KindInfo, newName); err != nil {
		a.log.WithError(err).Error("failed to check for duplicate name")
		a.resumeCaller(caller)
		return
	}
	resp, err := a.bus.Wait(ctx, a.supervisorPid)
	if err != nil {
		a.log.WithError(err).Error("failed to read supervisor response")
		a.resumeCaller(caller)
		return
	}
	if resp.Kind == bus.KindInfo {
		a.log.WithField("name", newName).Warn("a process with this name already exists, clone aborted")
		a.resumeCaller(caller)
		return
	}

	cmd := exec.Command(a.exePath, "--name", newName, "--supervisor-pid", fmt.Sprint(a.supervisorPid), "--fifo", a.fifoPath)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		a.log.WithError(err).Error("failed to start clone")
		a.resumeCaller(caller)
		return
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			a.log.WithField("name", newName).WithError(err).Debug("clone exited")
		}
	}()

	if err := a.bus.Send(a.supervisorPid, bus.KindAdd, fmt.Sprintf("%d;%d;%s", cmd.Process.Pid, a.pid, newName)); err != nil {
		a.log.WithError(err).Error("failed to register clone, terminating it")
		_ = a.signaler.Send(cmd.Process.Pid, syscall.SIGTERM)
		a.resumeCaller(caller)
		return
	}
	addResp, err := a.bus.Wait(ctx, a.supervisorPid)
	if err != nil || addResp.Kind != bus.KindOK {
		a.log.WithField("name", newName).Error("supervisor rejected clone, terminating it")
		_ = a.signaler.Send(cmd.Process.Pid, syscall.SIGTERM)
		a.resumeCaller(caller)
		return
	}

	a.log.WithField("name", newName).Info("clone created")
	a.resumeCaller(caller)
}
