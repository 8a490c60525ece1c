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

package agent

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"pmanager/internal/bus"
	"pmanager/internal/testbus"
)

const nudgeSig = syscall.SIGUSR1

const supervisorPid = 1

func newTestAgent(t *testing.T, hub *testbus.Hub, pid int, name string) *Agent {
	t.Helper()
	b := bus.New(pid, &testbus.Transport{Hub: hub}, hub.For(pid), nudgeSig)
	t.Cleanup(func() { b.Close() })
	log := logrus.New()
	log.SetOutput(nilWriter{})
	return New(Config{
		Name:          name,
		SupervisorPid: supervisorPid,
		Bus:           b,
		Signaler:      hub.For(pid),
		Log:           log,
	})
}

type nilWriter struct{}

func (nilWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestTerminateSucceedsWhenSupervisorAgrees(t *testing.T) {
	hub := testbus.NewHub()
	a := newTestAgent(t, hub, 100, "worker")
	supBus := bus.New(supervisorPid, &testbus.Transport{Hub: hub}, hub.For(supervisorPid), nudgeSig)
	defer supBus.Close()
	callerBus := bus.New(50, &testbus.Transport{Hub: hub}, hub.For(50), nudgeSig)
	defer callerBus.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		msg, err := supBus.Wait(context.Background(), 100)
		require.NoError(t, err)
		require.Equal(t, bus.KindRemove, msg.Kind)
		require.NoError(t, supBus.Send(100, bus.KindOK, ""))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.True(t, a.terminate(ctx, 50))
	<-done

	resp, err := callerBus.Read()
	require.NoError(t, err)
	require.Equal(t, bus.KindOK, resp.Kind)
	require.Equal(t, 100, resp.SenderPid)
}

func TestTerminateFailsWhenSupervisorRejects(t *testing.T) {
	hub := testbus.NewHub()
	a := newTestAgent(t, hub, 100, "worker")
	supBus := bus.New(supervisorPid, &testbus.Transport{Hub: hub}, hub.For(supervisorPid), nudgeSig)
	defer supBus.Close()
	callerBus := bus.New(50, &testbus.Transport{Hub: hub}, hub.For(50), nudgeSig)
	defer callerBus.Close()

	go func() {
		msg, _ := supBus.Wait(context.Background(), 100)
		_ = supBus.Send(msg.SenderPid, bus.KindErr, "has children")
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.False(t, a.terminate(ctx, 50))

	resp, err := callerBus.Read()
	require.NoError(t, err)
	require.Equal(t, bus.KindOK, resp.Kind)
}

func TestSpawnAbortsOnDuplicateName(t *testing.T) {
	hub := testbus.NewHub()
	a := newTestAgent(t, hub, 100, "worker")
	supBus := bus.New(supervisorPid, &testbus.Transport{Hub: hub}, hub.For(supervisorPid), nudgeSig)
	defer supBus.Close()
	callerBus := bus.New(50, &testbus.Transport{Hub: hub}, hub.For(50), nudgeSig)
	defer callerBus.Close()

	go func() {
		msg, _ := supBus.Wait(context.Background(), 100)
		require.Equal(t, bus.KindInfo, msg.Kind)
		_ = supBus.Send(msg.SenderPid, bus.KindInfo, "42;100;worker_1")
	}()

	a.Spawn(context.Background(), 50)

	resp, err := callerBus.Read()
	require.NoError(t, err)
	require.Equal(t, bus.KindOK, resp.Kind)
}
