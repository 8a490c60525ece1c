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

package bus

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/containerd/fifo"
	"golang.org/x/sys/unix"
)

// FifoTransport is the production Transport, backed by a single named
// FIFO shared by every process in the fleet. It is opened read-write and
// non-blocking, as the original does, so ReadByte never blocks the
// caller's event loop.
type FifoTransport struct {
	path string
	f    io.ReadWriteCloser
	r    *bufio.Reader
}

// OpenFifo creates path as a FIFO if it does not already exist and opens
// it for non-blocking read-write use.
func OpenFifo(ctx context.Context, path string) (*FifoTransport, error) {
	if err := unix.Mkfifo(path, 0o600); err != nil && !errors.Is(err, os.ErrExist) && !errors.Is(err, unix.EEXIST) {
		return nil, fmt.Errorf("bus: mkfifo %s: %w", path, err)
	}
	f, err := fifo.OpenFifo(ctx, path, unix.O_RDWR|unix.O_NONBLOCK|unix.O_CREAT, 0o600)
	if err != nil {
		return nil, fmt.Errorf("bus: open fifo %s: %w", path, err)
	}
	return &FifoTransport{path: path, f: f, r: bufio.NewReader(f)}, nil
}

// Write implements Transport.
func (t *FifoTransport) Write(b []byte) (int, error) {
	return t.f.Write(b)
}

// ReadByte implements Transport. A non-blocking FIFO with no writer and
// no data returns EAGAIN, which we surface as ErrWouldBlock.
func (t *FifoTransport) ReadByte() (byte, error) {
	c, err := t.r.ReadByte()
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, os.ErrDeadlineExceeded) {
			return 0, ErrWouldBlock
		}
		return 0, err
	}
	return c, nil
}

// Close implements Transport. It does not remove the FIFO path; the owner
// (the supervisor) unlinks it on shutdown once every agent has detached.
func (t *FifoTransport) Close() error {
	return t.f.Close()
}

// Path returns the filesystem path backing this transport.
func (t *FifoTransport) Path() string {
	return t.path
}

// Remove unlinks the FIFO's backing file. Called once by the supervisor
// during its shutdown sequence.
func Remove(path string) error {
	err := os.Remove(path)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
