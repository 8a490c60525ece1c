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

package helper

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/subcommands"
)

// Help implements the "phelp" command: list every executable command
// helper available in a directory. It is the Go translation of
// original_source/src/phelp.c; unlike subcommands.HelpCommand (which
// lists the verbs compiled into this binary), it lists the directory's
// actual contents, matching the original's directory scan.
type Help struct{}

// Name implements subcommands.Command.
func (*Help) Name() string { return "phelp" }

// Synopsis implements subcommands.Command.
func (*Help) Synopsis() string { return "show available commands" }

// Usage implements subcommands.Command.
func (*Help) Usage() string {
	return "phelp\n  Execute commands from standard input or [FILE]. To show help about a command, use -h.\n"
}

// SetFlags implements subcommands.Command.
func (*Help) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.
func (*Help) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	env := args[0].(Env)

	fmt.Println("Usage:")
	fmt.Println(" pmanager [FILE]")
	fmt.Println(" Execute commands from standard input or [FILE].")
	fmt.Println(" To show help about a command, you can use the -h option.")
	fmt.Println()
	fmt.Println("Commands:")

	entries, err := os.ReadDir(env.HelperDir)
	if err != nil {
		fmt.Println("Error: failed to read directory contents.")
		return subcommands.ExitFailure
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.Mode()&0o111 != 0 {
			fmt.Println(" " + filepath.Base(e.Name()))
		}
	}
	return subcommands.ExitSuccess
}
