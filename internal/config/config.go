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

// Package config defines pmanager's runtime configuration: the small set
// of paths and tunables every component (supervisor, agents, command
// helpers) needs to agree on in order to find the shared bus and lock
// file. It follows the flags-plus-file split of runsc/config/flags.go:
// RegisterFlags wires defaults onto a flag.FlagSet, and Load layers an
// optional TOML file underneath whatever the flags didn't set.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds every path and tunable pmanager's components share.
// Field names match the TOML keys the config file uses.
type Config struct {
	// FifoPath is the filesystem path of the single named FIFO the whole
	// fleet communicates over.
	FifoPath string `toml:"fifo_path"`

	// LockPath is the path of the flock-based lock file enforcing that
	// only one supervisor runs against a given bus at a time.
	LockPath string `toml:"lock_path"`

	// HelperDir is where command-helper binaries (pnew, pinfo, ...) are
	// looked up when the supervisor forks one on behalf of a client.
	HelperDir string `toml:"helper_dir"`

	// NudgeSignal is the signal number used to wake a peer that has a
	// frame waiting for it. Defaults to SIGUSR1 (10).
	NudgeSignal int `toml:"nudge_signal"`

	// SendTimeout is loaded from the file and flags but is not passed to
	// the bus: Bus.Send retries a nudge for its own fixed 2 seconds.
	SendTimeout time.Duration `toml:"send_timeout"`
}

// Default returns the configuration pmanager uses when no flags or file
// override it, matching the fixed paths the original shell assumes.
func Default() Config {
	return Config{
		FifoPath:    "/tmp/pmanager.fifo",
		LockPath:    "/tmp/pmanager.fifo.lock",
		HelperDir:   "/usr/local/libexec/pmanager",
		NudgeSignal: 10, // SIGUSR1
		SendTimeout: 2 * time.Second,
	}
}

// Load reads a TOML file at path and overlays it on top of Default,
// leaving fields absent from the file at their default value. A missing
// file is not an error; pmanager runs fine on defaults alone.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, nil
}
