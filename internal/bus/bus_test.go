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

package bus_test

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pmanager/internal/bus"
	"pmanager/internal/testbus"
)

const nudgeSig = syscall.SIGUSR1

func TestSendAndRead(t *testing.T) {
	hub := testbus.NewHub()
	a := bus.New(100, &testbus.Transport{Hub: hub}, hub.For(100), nudgeSig)
	b := bus.New(200, &testbus.Transport{Hub: hub}, hub.For(200), nudgeSig)
	defer a.Close()
	defer b.Close()

	require.NoError(t, a.Send(200, bus.KindAdd, "42;1;child"))

	msg, err := b.Read()
	require.NoError(t, err)
	require.Equal(t, 100, msg.SenderPid)
	require.Equal(t, bus.KindAdd, msg.Kind)
	require.Equal(t, "42;1;child", msg.Payload)
}

func TestReadEmptyReturnsWouldBlock(t *testing.T) {
	hub := testbus.NewHub()
	a := bus.New(1, &testbus.Transport{Hub: hub}, hub.For(1), nudgeSig)
	defer a.Close()

	_, err := a.Read()
	require.ErrorIs(t, err, bus.ErrWouldBlock)
}

func TestWaitBuffersNonMatchingSenders(t *testing.T) {
	hub := testbus.NewHub()
	sup := bus.New(1, &testbus.Transport{Hub: hub}, hub.For(1), nudgeSig)
	other := bus.New(50, &testbus.Transport{Hub: hub}, hub.For(50), nudgeSig)
	target := bus.New(60, &testbus.Transport{Hub: hub}, hub.For(60), nudgeSig)
	defer sup.Close()
	defer other.Close()
	defer target.Close()

	require.NoError(t, other.Send(1, bus.KindInfo, ""))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		require.NoError(t, target.Send(1, bus.KindOK, "hello"))
	}()

	msg, err := sup.Wait(ctx, 60)
	require.NoError(t, err)
	require.Equal(t, 60, msg.SenderPid)
	require.Equal(t, "hello", msg.Payload)
	<-done

	// The earlier frame from pid 50 must still be retrievable.
	buffered, err := sup.Read()
	require.NoError(t, err)
	require.Equal(t, 50, buffered.SenderPid)
	require.Equal(t, bus.KindInfo, buffered.Kind)
}

func TestWaitTimesOutWhenNoMatch(t *testing.T) {
	hub := testbus.NewHub()
	sup := bus.New(1, &testbus.Transport{Hub: hub}, hub.For(1), nudgeSig)
	defer sup.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := sup.Wait(ctx, 999)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUnreadRestoresMessageToFront(t *testing.T) {
	hub := testbus.NewHub()
	a := bus.New(1, &testbus.Transport{Hub: hub}, hub.For(1), nudgeSig)
	b := bus.New(2, &testbus.Transport{Hub: hub}, hub.For(2), nudgeSig)
	defer a.Close()
	defer b.Close()

	require.NoError(t, b.Send(1, bus.KindList, "start"))
	msg, err := a.Read()
	require.NoError(t, err)

	a.Unread(msg)

	again, err := a.Read()
	require.NoError(t, err)
	require.Equal(t, msg, again)
}

func TestCloseRejectsFurtherOperations(t *testing.T) {
	hub := testbus.NewHub()
	a := bus.New(1, &testbus.Transport{Hub: hub}, hub.For(1), nudgeSig)
	require.NoError(t, a.Close())

	err := a.Send(2, bus.KindInfo, "")
	require.ErrorIs(t, err, bus.ErrClosed)

	_, err = a.Read()
	require.ErrorIs(t, err, bus.ErrClosed)
}
