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
	"fmt"
	"strconv"
	"strings"
)

// encode renders m as "<sender_pid>:<kind>:<payload>\0". Payload is
// substituted with the literal string "NULL" when empty, matching the
// original's convention for frames that carry no data (ERR, OK, REMOVE
// acks).
func encode(m Message) []byte {
	payload := m.Payload
	if payload == "" {
		payload = nullPayload
	}
	s := fmt.Sprintf("%d:%s:%s", m.SenderPid, string(m.Kind), payload)
	return append([]byte(s), 0)
}

// decode parses a frame with its trailing NUL already stripped. It returns
// ErrMalformedFrame if the frame has fewer than three colon-separated
// fields (colons after the second belong to the payload), the sender pid
// does not parse as an integer, or the kind is not a single character.
func decode(frame []byte) (Message, error) {
	s := string(frame)
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return Message{}, ErrMalformedFrame
	}
	pid, err := strconv.Atoi(parts[0])
	if err != nil {
		return Message{}, fmt.Errorf("%w: sender pid %q: %v", ErrMalformedFrame, parts[0], err)
	}
	kind := parts[1]
	if len(kind) != 1 {
		return Message{}, fmt.Errorf("%w: kind %q", ErrMalformedFrame, kind)
	}
	payload := parts[2]
	if payload == nullPayload {
		payload = ""
	}
	return Message{SenderPid: pid, Kind: Kind(kind), Payload: payload}, nil
}
