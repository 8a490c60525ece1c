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

// Command agent is the process tree node binary: pnew and Agent.Spawn both
// exec a fresh copy of this binary to become a new node, so it is the Go
// translation of original_source/src/child.c's entry point rather than a
// single long-running daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"pmanager/internal/agent"
	"pmanager/internal/bus"
	"pmanager/internal/signaling"
)

func main() {
	name := flag.String("name", "", "this node's name in the process tree")
	supervisorPid := flag.Int("supervisor-pid", 0, "pid of the supervisor to register with")
	fifoPath := flag.String("fifo", "/tmp/pmanager.fifo", "path to the shared message bus FIFO")
	nudgeSignal := flag.Int("nudge-signal", int(syscall.SIGUSR1), "signal used to nudge peers on the bus")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if *name == "" || *supervisorPid == 0 {
		fmt.Fprintln(os.Stderr, "agent: -name and -supervisor-pid are required")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	transport, err := bus.OpenFifo(ctx, *fifoPath)
	if err != nil {
		log.WithError(err).Fatal("failed to open message bus")
	}
	defer transport.Close()

	signaler := signaling.OS{}
	b := bus.New(os.Getpid(), transport, signaler, syscall.Signal(*nudgeSignal))
	defer b.Close()

	exePath, err := os.Executable()
	if err != nil {
		log.WithError(err).Fatal("failed to resolve own executable path")
	}

	a := agent.New(agent.Config{
		Name:          *name,
		SupervisorPid: *supervisorPid,
		Bus:           b,
		Signaler:      signaler,
		Log:           log,
		ExePath:       exePath,
		FifoPath:      *fifoPath,
	})

	if err := a.Run(ctx); err != nil && err != context.Canceled {
		log.WithError(err).Error("agent stopped")
		os.Exit(1)
	}
}
