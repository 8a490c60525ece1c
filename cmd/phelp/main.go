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

// Command help is the standalone "help" command helper: it wraps
// internal/helper.Help (original_source/src/phelp.c).
package main

import (
	"context"
	"flag"
	"os"

	"pmanager/internal/helper"
)

func main() {
	cmd := &helper.Help{}
	fs := flag.NewFlagSet(cmd.Name(), flag.ExitOnError)
	fs.Usage = func() { os.Stderr.WriteString(cmd.Usage()) }
	cmd.SetFlags(fs)
	fs.Parse(os.Args[1:])
	os.Exit(int(cmd.Execute(context.Background(), fs, helper.EnvFromEnvironment())))
}
