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

import "errors"

// ErrWouldBlock is returned by a Transport's ReadByte when no data is
// currently available, mirroring the EAGAIN a non-blocking FIFO read
// returns.
var ErrWouldBlock = errors.New("bus: would block")

// ErrMalformedFrame is returned when a byte stream terminated by NUL does
// not parse as "<sender_pid>:<kind>:<payload>".
var ErrMalformedFrame = errors.New("bus: malformed frame")

// ErrNudgeFailed wraps a failure to signal the peer that a message is
// waiting for it.
var ErrNudgeFailed = errors.New("bus: nudge failed")

// ErrClosed is returned by Bus operations after Close has been called.
var ErrClosed = errors.New("bus: closed")
