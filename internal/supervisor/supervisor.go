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

// Package supervisor implements pmanager's coordination loop: it owns the
// process tree, dispatches ADD/REMOVE/INFO/LIST requests arriving on the
// bus, and sends TERM requests to tear a subtree down. Forking command
// helpers is done by cmd/pmanager. It is the Go translation of original_source/src/pmanager.c and
// handlers.c.
package supervisor

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"pmanager/internal/bus"
	"pmanager/internal/proctree"
)

// Supervisor owns the process tree and services the bus.
type Supervisor struct {
	pid  int
	tree *proctree.Tree
	bus  *bus.Bus
	log  *logrus.Logger
}

// New creates a Supervisor rooted at a node representing the supervisor
// process itself (pid, ppid, "pmanager").
func New(pid, ppid int, b *bus.Bus, log *logrus.Logger) *Supervisor {
	return &Supervisor{
		pid:  pid,
		tree: proctree.New(pid, ppid, "pmanager"),
		bus:  b,
		log:  log,
	}
}

// Tree exposes the process tree for read-only inspection.
func (s *Supervisor) Tree() *proctree.Tree {
	return s.tree
}

// ServiceOnce drains every message currently queued on the bus and
// dispatches each to its handler. cmd/pmanager calls it from its
// bus-servicing goroutine whenever bus.Events() fires, the counterpart of
// exec_command's do/while loop in pmanager.c checking message_unread().
func (s *Supervisor) ServiceOnce(ctx context.Context) {
	for {
		msg, err := s.bus.Read()
		if err != nil {
			return
		}
		s.dispatch(ctx, msg)
	}
}

func (s *Supervisor) dispatch(ctx context.Context, msg bus.Message) {
	switch msg.Kind {
	case bus.KindAdd:
		s.handleAdd(msg)
	case bus.KindInfo:
		s.handleInfo(msg)
	case bus.KindRemove:
		s.handleRemove(msg)
	case bus.KindList:
		s.handleList(ctx, msg)
	default:
		s.reply(msg.SenderPid, bus.KindErr, "unrecognized message type")
	}
}

func (s *Supervisor) reply(to int, kind bus.Kind, payload string) {
	if err := s.bus.Send(to, kind, payload); err != nil {
		s.log.WithError(err).WithField("to", to).Error("failed to send reply")
	}
}

// handleAdd implements msg_add_handler: parse the node in msg.Payload and
// insert it under its ppid.
func (s *Supervisor) handleAdd(msg bus.Message) {
	node, err := proctree.FromStr(msg.Payload)
	if err != nil {
		s.log.WithError(err).Error("failed to parse process for add")
		s.reply(msg.SenderPid, bus.KindErr, "malformed process")
		return
	}
	if err := s.tree.Add(node); err != nil {
		s.log.WithError(err).WithField("name", node.Name).Warn("failed to add process")
		s.reply(msg.SenderPid, bus.KindErr, err.Error())
		return
	}
	s.reply(msg.SenderPid, bus.KindOK, "")
}

// handleInfo implements msg_info_handler: look the named process up and
// reply with its serialized node, or an error if not found.
func (s *Supervisor) handleInfo(msg bus.Message) {
	node := s.tree.FindByName(msg.Payload)
	if node == nil {
		s.reply(msg.SenderPid, bus.KindErr, "process not found")
		return
	}
	s.reply(msg.SenderPid, bus.KindInfo, proctree.ToStr(node))
}

// handleRemove implements msg_remove_handler: the sender is assumed to be
// the process asking to be removed from the tree.
func (s *Supervisor) handleRemove(msg bus.Message) {
	if err := s.tree.Remove(msg.SenderPid); err != nil {
		s.reply(msg.SenderPid, bus.KindErr, err.Error())
		return
	}
	s.reply(msg.SenderPid, bus.KindOK, "")
}

// handleList implements msg_list_handler: stream every process in the
// subtree rooted at msg.Payload's name back to the sender, one frame at a
// time, waiting for an acknowledgement between each, and finish with an
// OK.
func (s *Supervisor) handleList(ctx context.Context, msg bus.Message) {
	root := s.tree.FindByName(msg.Payload)
	if root == nil {
		s.reply(msg.SenderPid, bus.KindErr, "process not found")
		return
	}

	for _, node := range proctree.Enumerate(root) {
		s.reply(msg.SenderPid, bus.KindInfo, proctree.ToStr(node))
		if _, err := s.bus.Wait(ctx, msg.SenderPid); err != nil {
			s.log.WithError(err).WithField("to", msg.SenderPid).Error("list aborted waiting for ack")
			return
		}
	}
	s.reply(msg.SenderPid, bus.KindOK, "")
}

// TerminateSubtree asks every process in the subtree rooted at name to
// terminate, leaves first, matching prmall's kill_proc_tree. It is used
// by the supervisor's own shutdown sequence; the rmall command helper
// (internal/helper/rmall.go) does the equivalent walk from its own
// process instead, since it already has its own bus identity and
// doesn't need to interleave dispatch with a wait the way terminateRec
// does.
func (s *Supervisor) TerminateSubtree(ctx context.Context, name string) error {
	root := s.tree.FindByName(name)
	if root == nil {
		return fmt.Errorf("supervisor: process %q not found", name)
	}
	return s.terminateRec(ctx, root)
}

// terminateRec asks node to terminate and waits for its final OK. A node
// being torn down still sends its own REMOVE request to the supervisor
// before it acks, and both that REMOVE and the eventual OK travel from
// node.Pid to s.pid: Wait only filters by sender, so whoever is driving
// this subtree kill must dispatch the REMOVE itself instead of mistaking
// it for the ack, or the node blocks forever waiting for a reply nobody
// sends.
func (s *Supervisor) terminateRec(ctx context.Context, node *proctree.Node) error {
	// Iterate over a copy: dispatching a child's REMOVE splices node.Children.
	for _, child := range append([]*proctree.Node(nil), node.Children...) {
		if err := s.terminateRec(ctx, child); err != nil {
			return err
		}
	}
	if node.Pid == s.pid {
		return nil
	}
	s.log.WithField("pid", node.Pid).WithField("name", node.Name).Info("sending termination request")
	if err := s.bus.Send(node.Pid, bus.KindTerm, ""); err != nil {
		return fmt.Errorf("supervisor: terminate %s: %w", node.Name, err)
	}
	for {
		msg, err := s.bus.Wait(ctx, node.Pid)
		if err != nil {
			return fmt.Errorf("supervisor: waiting for %s to terminate: %w", node.Name, err)
		}
		if msg.Kind == bus.KindOK {
			return nil
		}
		s.dispatch(ctx, msg)
	}
}
