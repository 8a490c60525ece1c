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

package testbus

// Transport adapts a Hub to bus.Transport: every participant writes into
// and reads from the same Hub, exactly as every real process opens the
// same named FIFO.
type Transport struct {
	Hub *Hub
}

// Write implements bus.Transport.
func (t *Transport) Write(b []byte) (int, error) {
	return t.Hub.Write(b)
}

// ReadByte implements bus.Transport.
func (t *Transport) ReadByte() (byte, error) {
	return t.Hub.ReadByte()
}

// Close implements bus.Transport; the fake pipe has no file descriptor to
// release.
func (t *Transport) Close() error {
	return nil
}
