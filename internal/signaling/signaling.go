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

// Package signaling abstracts the "send a signal to a pid" / "be notified
// when a signal arrives" primitives the bus and the termination protocol
// both depend on. The real implementation is a thin wrapper over
// os/signal and golang.org/x/sys/unix; a fake implementation
// (internal/testbus) lets the coordination protocols be tested without
// forking real OS processes.
package signaling

import (
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
)

// Signaler is the seam between the coordination logic in this module and
// the host's actual signal delivery mechanism.
type Signaler interface {
	// Notify returns a channel that receives a value every time this
	// process is sent sig, and a stop function to release it.
	Notify(sig os.Signal) (events <-chan os.Signal, stop func())

	// Send delivers sig to the process identified by pid.
	Send(pid int, sig syscall.Signal) error
}

// OS is the production Signaler, backed by the real kernel.
type OS struct{}

// Notify implements Signaler.
func (OS) Notify(sig os.Signal) (<-chan os.Signal, func()) {
	ch := make(chan os.Signal, 8)
	signal.Notify(ch, sig)
	return ch, func() { signal.Stop(ch) }
}

// Send implements Signaler.
func (OS) Send(pid int, sig syscall.Signal) error {
	return unix.Kill(pid, sig)
}
