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

// Transport is the byte-stream seam between Bus and whatever actually
// carries the frames: a real named FIFO (fifo.go) in production, or an
// in-process fake (internal/testbus) under test. It supports the handful
// of operations the shared pipe needs: append bytes, and pull them off
// one at a time in non-blocking fashion.
type Transport interface {
	// Write appends b to the shared pipe.
	Write(b []byte) (int, error)

	// ReadByte returns the next unread byte, or ErrWouldBlock if none is
	// currently available.
	ReadByte() (byte, error)

	// Close releases the transport's underlying resources.
	Close() error
}
