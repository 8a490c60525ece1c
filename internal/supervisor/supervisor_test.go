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

package supervisor

import (
	"context"
	"sync"
	"syscall"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"pmanager/internal/bus"
	"pmanager/internal/testbus"
)

const nudgeSig = syscall.SIGUSR1

func newTestSupervisor(t *testing.T, hub *testbus.Hub) (*Supervisor, *bus.Bus) {
	t.Helper()
	b := bus.New(1, &testbus.Transport{Hub: hub}, hub.For(1), nudgeSig)
	t.Cleanup(func() { b.Close() })
	log := logrus.New()
	log.SetOutput(discard{})
	return New(1, 0, b, log), b
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func newPeerBus(t *testing.T, hub *testbus.Hub, pid int) *bus.Bus {
	t.Helper()
	b := bus.New(pid, &testbus.Transport{Hub: hub}, hub.For(pid), nudgeSig)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestHandleAddThenInfo(t *testing.T) {
	hub := testbus.NewHub()
	s, _ := newTestSupervisor(t, hub)
	child := newPeerBus(t, hub, 100)

	require.NoError(t, child.Send(1, bus.KindAdd, "100;1;worker"))
	s.ServiceOnce(context.Background())

	resp, err := child.Read()
	require.NoError(t, err)
	require.Equal(t, bus.KindOK, resp.Kind)

	require.NoError(t, child.Send(1, bus.KindInfo, "worker"))
	s.ServiceOnce(context.Background())

	info, err := child.Read()
	require.NoError(t, err)
	require.Equal(t, bus.KindInfo, info.Kind)
	require.Equal(t, "100;1;worker", info.Payload)
}

func TestHandleAddRejectsOrphan(t *testing.T) {
	hub := testbus.NewHub()
	s, _ := newTestSupervisor(t, hub)
	child := newPeerBus(t, hub, 100)

	require.NoError(t, child.Send(1, bus.KindAdd, "100;999;worker"))
	s.ServiceOnce(context.Background())

	resp, err := child.Read()
	require.NoError(t, err)
	require.Equal(t, bus.KindErr, resp.Kind)
}

func TestHandleRemoveRejectsNonLeaf(t *testing.T) {
	hub := testbus.NewHub()
	s, _ := newTestSupervisor(t, hub)
	parent := newPeerBus(t, hub, 100)
	child := newPeerBus(t, hub, 200)

	require.NoError(t, parent.Send(1, bus.KindAdd, "100;1;parent"))
	s.ServiceOnce(context.Background())
	_, _ = parent.Read()

	require.NoError(t, child.Send(1, bus.KindAdd, "200;100;child"))
	s.ServiceOnce(context.Background())
	_, _ = child.Read()

	require.NoError(t, parent.Send(1, bus.KindRemove, ""))
	s.ServiceOnce(context.Background())
	resp, err := parent.Read()
	require.NoError(t, err)
	require.Equal(t, bus.KindErr, resp.Kind)
}

func TestHandleListStreamsSubtreeAndFinishesWithOK(t *testing.T) {
	hub := testbus.NewHub()
	s, _ := newTestSupervisor(t, hub)
	worker := newPeerBus(t, hub, 100)

	require.NoError(t, worker.Send(1, bus.KindAdd, "100;1;worker"))
	s.ServiceOnce(context.Background())
	_, _ = worker.Read()

	lister := newPeerBus(t, hub, 900)
	require.NoError(t, lister.Send(1, bus.KindList, "pmanager"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.handleList(context.Background(), bus.Message{SenderPid: 900, Kind: bus.KindList, Payload: "pmanager"})
	}()

	var kinds []bus.Kind
	for i := 0; i < 3; i++ {
		msg, err := lister.Wait(context.Background(), 1)
		require.NoError(t, err)
		kinds = append(kinds, msg.Kind)
		if msg.Kind == bus.KindInfo {
			require.NoError(t, lister.Send(1, bus.KindOK, ""))
		}
	}
	<-done
	require.Equal(t, []bus.Kind{bus.KindInfo, bus.KindInfo, bus.KindOK}, kinds)
}

func TestTerminateSubtreeKillsLeavesFirst(t *testing.T) {
	hub := testbus.NewHub()
	s, _ := newTestSupervisor(t, hub)
	parent := newPeerBus(t, hub, 100)
	child := newPeerBus(t, hub, 200)

	require.NoError(t, parent.Send(1, bus.KindAdd, "100;1;parent"))
	s.ServiceOnce(context.Background())
	_, _ = parent.Read()
	require.NoError(t, child.Send(1, bus.KindAdd, "200;100;child"))
	s.ServiceOnce(context.Background())
	_, _ = child.Read()

	var order []int
	var mu sync.Mutex
	// fakeAgent mirrors agent.terminate: on KindTerm it asks the
	// supervisor to remove it from the tree and waits for that reply
	// before sending its own final ack, instead of acking immediately.
	fakeAgent := func(b *bus.Bus, pid int) {
		msg, err := b.Wait(context.Background(), 1)
		require.NoError(t, err)
		require.Equal(t, bus.KindTerm, msg.Kind)

		require.NoError(t, b.Send(1, bus.KindRemove, ""))
		resp, err := b.Wait(context.Background(), 1)
		require.NoError(t, err)
		require.Equal(t, bus.KindOK, resp.Kind)

		mu.Lock()
		order = append(order, pid)
		mu.Unlock()
		require.NoError(t, b.Send(1, bus.KindOK, ""))
	}

	done := make(chan struct{})
	go func() { fakeAgent(child, 200); done <- struct{}{} }()
	go func() { fakeAgent(parent, 100); done <- struct{}{} }()

	require.NoError(t, s.TerminateSubtree(context.Background(), "parent"))
	<-done
	<-done

	require.Equal(t, []int{200, 100}, order)
}
