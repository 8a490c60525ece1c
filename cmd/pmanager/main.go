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

// Command pmanager is CustomShell's supervisor: it owns the process tree,
// services the shared message bus, and reads a command loop from stdin or
// a script file. It is the Go translation of original_source/src/pmanager.c.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"pmanager/internal/bus"
	"pmanager/internal/config"
	"pmanager/internal/helper"
	"pmanager/internal/signaling"
	"pmanager/internal/supervisor"
)

func main() {
	fs := flag.NewFlagSet("pmanager", flag.ContinueOnError)
	config.RegisterFlags(fs)
	agentPath := fs.String("agent-path", "pmanager-agent", "path to the agent binary new/spawn fork")
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	cfg, err := config.NewFromFlags(fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Enforce a single supervisor per bus, the Go equivalent of the
	// original relying on a second mkfifo() to fail.
	lock := flock.New(cfg.LockPath)
	locked, err := lock.TryLock()
	if err != nil || !locked {
		fmt.Fprintln(os.Stderr, "Error: another pmanager instance is already running.")
		os.Exit(1)
	}
	defer lock.Unlock()

	var input io.ReadCloser
	var prompt bool
	switch fs.NArg() {
	case 0:
		input, prompt = os.Stdin, true
	case 1:
		f, err := os.Open(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot open %q for reading.\n", fs.Arg(0))
			os.Exit(1)
		}
		input = f
	default:
		fmt.Fprintln(os.Stderr, "Usage: pmanager [FILE]")
		os.Exit(1)
	}
	defer input.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	transport, err := bus.OpenFifo(ctx, cfg.FifoPath)
	if err != nil {
		log.WithError(err).Fatal("failed to set up message bus")
	}

	signaler := signaling.OS{}
	pid := os.Getpid()
	b := bus.New(pid, transport, signaler, syscall.Signal(cfg.NudgeSignal))

	sup := supervisor.New(pid, os.Getppid(), b, log)

	env := helper.Env{
		FifoPath:    cfg.FifoPath,
		NudgeSignal: syscall.Signal(cfg.NudgeSignal),
		AgentPath:   *agentPath,
		HelperDir:   cfg.HelperDir,
	}

	// Service the bus concurrently with the command loop below, exactly
	// as exec_command's do/while in pmanager.c polls message_unread()
	// while it waits on the child it just forked. The service goroutine
	// gets its own derived context so runLoop returning ("quit" or EOF)
	// stops it without also tearing down ctx, which shutdown still needs.
	serviceCtx, cancelService := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(serviceCtx)
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-b.Events():
				sup.ServiceOnce(gctx)
			}
		}
	})

	daemon.SdNotify(false, daemon.SdNotifyReady) //nolint:errcheck

	if prompt {
		fmt.Println("Welcome to CustomShell!")
		fmt.Println()
		fmt.Println(`Type "phelp" for information.`)
	}

	runLoop(ctx, bufio.NewReader(input), prompt, env, log)

	// The background servicing goroutine must be fully stopped before
	// shutdown's TerminateSubtree runs: terminateRec becomes the sole
	// reader of the bus while it tears the tree down, dispatching each
	// node's own REMOVE request itself as it waits for that node's ack.
	cancelService()
	g.Wait() //nolint:errcheck

	shutdown(ctx, sup, b, cfg, log)
}

// runLoop reads and executes commands until EOF, a read error, or "quit",
// the translation of pmanager.c's parse_commands.
func runLoop(ctx context.Context, r *bufio.Reader, prompt bool, env helper.Env, log *logrus.Logger) {
	for {
		if prompt {
			fmt.Print("> ")
		}
		line, err := r.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" {
			return
		}
		execCommand(ctx, env, fields, log)
	}
}

// execCommand looks fields[0] up in env.HelperDir and runs it to
// completion, the translation of pmanager.c's exec_command (minus the
// message-servicing loop, now handled by runLoop's caller's background
// goroutine rather than inline polling).
func execCommand(ctx context.Context, env helper.Env, fields []string, log *logrus.Logger) {
	pathname := filepath.Join(env.HelperDir, fields[0])
	info, err := os.Stat(pathname)
	if err != nil || info.Mode()&0o111 == 0 {
		fmt.Println("Error: command not found.")
		return
	}

	cmd := exec.CommandContext(ctx, pathname, fields[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), env.ToEnviron()...)
	if err := cmd.Run(); err != nil {
		log.WithError(err).WithField("command", fields[0]).Debug("command exited with an error")
	}
}

// shutdown mirrors pmanager.c's cleanup(): kill every process the shell
// started, close the bus, and unlink the FIFO.
func shutdown(ctx context.Context, sup *supervisor.Supervisor, b *bus.Bus, cfg config.Config, log *logrus.Logger) {
	fmt.Println("Killing remaining processes...")
	if err := sup.TerminateSubtree(ctx, "pmanager"); err != nil {
		log.WithError(err).Warn("failed to kill remaining processes")
	}
	if err := b.Close(); err != nil {
		log.WithError(err).Warn("failed to close message bus")
	}
	if err := bus.Remove(cfg.FifoPath); err != nil {
		log.WithError(err).Warn("failed to remove fifo")
	}
	fmt.Println("Exiting...")
}
