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

package proctree

import (
	"fmt"
	"strconv"
	"strings"
)

// ToStr renders a single node as "<pid>;<ppid>;<name>", the wire format
// used inside ADD/INFO/LIST payloads. It is the Go equivalent of
// proc_node_tostr.
func ToStr(n *Node) string {
	return fmt.Sprintf("%d;%d;%s", n.Pid, n.Ppid, n.Name)
}

// FromStr parses the "<pid>;<ppid>;<name>" format back into a Node. It is
// the Go equivalent of proc_node_fromstr; FromStr(ToStr(n)) reproduces n
// for any valid Node.
func FromStr(s string) (*Node, error) {
	parts := strings.Split(s, ";")
	if len(parts) != 3 {
		return nil, fmt.Errorf("proctree: malformed node string %q", s)
	}
	pid, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, fmt.Errorf("proctree: malformed pid in %q: %w", s, err)
	}
	ppid, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("proctree: malformed ppid in %q: %w", s, err)
	}
	name := parts[2]
	if name == "" {
		return nil, fmt.Errorf("proctree: empty name in %q", s)
	}
	return newNode(pid, ppid, name), nil
}
