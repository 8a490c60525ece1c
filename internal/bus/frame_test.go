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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	m := Message{SenderPid: 1234, Kind: KindAdd, Payload: "42;1;worker_3"}
	frame := encode(m)
	require.Equal(t, byte(0), frame[len(frame)-1])

	got, err := decode(frame[:len(frame)-1])
	require.NoError(t, err)
	require.Equal(t, m, got)
}

func TestEncodeSubstitutesNullPayload(t *testing.T) {
	frame := encode(Message{SenderPid: 1, Kind: KindOK})
	got, err := decode(frame[:len(frame)-1])
	require.NoError(t, err)
	require.Equal(t, "", got.Payload)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	_, err := decode([]byte("no-colons-here"))
	require.ErrorIs(t, err, ErrMalformedFrame)

	_, err = decode([]byte("notanumber:a:payload"))
	require.ErrorIs(t, err, ErrMalformedFrame)
}

func TestDecodeAllowsColonsInPayload(t *testing.T) {
	got, err := decode([]byte("1:i:http://example.com"))
	require.NoError(t, err)
	require.Equal(t, "http://example.com", got.Payload)
}
