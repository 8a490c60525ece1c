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
	"time"
)

// RegisterFlags registers pmanager's flags onto flagSet, each defaulting
// to the corresponding Default() field. It mirrors the flags-registration
// shape of runsc/config/flags.go: one FlagSet, one call, plain defaults.
func RegisterFlags(flagSet *flag.FlagSet) {
	d := Default()
	flagSet.String("fifo", d.FifoPath, "path of the shared message bus FIFO.")
	flagSet.String("lock", d.LockPath, "path of the single-supervisor lock file.")
	flagSet.String("helper-dir", d.HelperDir, "directory containing the pmanager command helper binaries.")
	flagSet.Int("nudge-signal", d.NudgeSignal, "signal number used to notify a peer a message is waiting.")
	flagSet.Duration("send-timeout", d.SendTimeout, "nudge retry limit; stored in Config only, the bus uses a fixed 2s.")
	flagSet.String("config", "", "path to a pmanager.toml file to load before applying flags.")
}

// NewFromFlags builds a Config from a parsed flagSet, first loading
// -config (if set) and then overlaying any flags the caller explicitly
// set on the command line.
func NewFromFlags(flagSet *flag.FlagSet) (Config, error) {
	cfgPath := lookupString(flagSet, "config")
	cfg, err := Load(cfgPath)
	if err != nil {
		return Config{}, err
	}

	set := make(map[string]bool)
	flagSet.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["fifo"] {
		cfg.FifoPath = lookupString(flagSet, "fifo")
	}
	if set["lock"] {
		cfg.LockPath = lookupString(flagSet, "lock")
	}
	if set["helper-dir"] {
		cfg.HelperDir = lookupString(flagSet, "helper-dir")
	}
	if set["nudge-signal"] {
		cfg.NudgeSignal = lookupInt(flagSet, "nudge-signal")
	}
	if set["send-timeout"] {
		cfg.SendTimeout = lookupDuration(flagSet, "send-timeout")
	}
	return cfg, nil
}

func lookupString(fs *flag.FlagSet, name string) string {
	if f := fs.Lookup(name); f != nil {
		return f.Value.String()
	}
	return ""
}

func lookupInt(fs *flag.FlagSet, name string) int {
	f := fs.Lookup(name)
	if f == nil {
		return 0
	}
	getter, ok := f.Value.(flag.Getter)
	if !ok {
		return 0
	}
	v, _ := getter.Get().(int)
	return v
}

func lookupDuration(fs *flag.FlagSet, name string) time.Duration {
	f := fs.Lookup(name)
	if f == nil {
		return 0
	}
	getter, ok := f.Value.(flag.Getter)
	if !ok {
		return 0
	}
	v, _ := getter.Get().(time.Duration)
	return v
}
