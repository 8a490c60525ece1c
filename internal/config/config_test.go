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

package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newFlagSetForTest() *flag.FlagSet {
	return flag.NewFlagSet("test", flag.ContinueOnError)
}

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pmanager.toml")
	require.NoError(t, os.WriteFile(path, []byte(`fifo_path = "/var/run/pmanager.fifo"`+"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/var/run/pmanager.fifo", cfg.FifoPath)
	require.Equal(t, Default().LockPath, cfg.LockPath)
}

func TestRegisterAndNewFromFlags(t *testing.T) {
	fs := newFlagSetForTest()
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"-fifo", "/tmp/custom.fifo"}))

	cfg, err := NewFromFlags(fs)
	require.NoError(t, err)
	require.Equal(t, "/tmp/custom.fifo", cfg.FifoPath)
	require.Equal(t, Default().NudgeSignal, cfg.NudgeSignal)
}
