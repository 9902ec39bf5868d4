// Copyright 2024 The sockshim Authors.
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

//go:build linux && (amd64 || arm64 || riscv64)

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	"sockshim.dev/sockshim/pkg/abi/linux"
	"sockshim.dev/sockshim/pkg/socket"
)

// Constants implements subcommands.Command for the "constants" command.
type Constants struct {
	// If true, emit the table as JSON.
	json bool
}

// Name implements subcommands.Command.Name.
func (*Constants) Name() string {
	return "constants"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Constants) Synopsis() string {
	return "dump the layer's ABI constants and capacity bounds"
}

// Usage implements subcommands.Command.Usage.
func (*Constants) Usage() string {
	return `constants [--json]

Prints the accept-flag bits, the descriptor-passing bounds, and the maximum
control-data block size the send path accepts.

OPTIONS:
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (c *Constants) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.json, "json", false, "emit the table as JSON")
}

// abiConstants is the dumped table, in a fixed order so the text output is
// stable.
var abiConstants = []struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}{
	{"SOCK_CLOEXEC", linux.SOCK_CLOEXEC},
	{"SOCK_NONBLOCK", linux.SOCK_NONBLOCK},
	{"SCM_MAX_FD", linux.SCM_MAX_FD},
	{"SCM_MAX_FD_LEGACY", linux.SCM_MAX_FD_LEGACY},
	{"MaxControlLen", socket.MaxControlLen},
}

// dump writes the constants table to w.
func (c *Constants) dump(w io.Writer) error {
	if c.json {
		e := json.NewEncoder(w)
		e.SetIndent("", "  ")
		return e.Encode(abiConstants)
	}
	for _, con := range abiConstants {
		if _, err := fmt.Fprintf(w, "%-18s %#o (%d)\n", con.Name, con.Value, con.Value); err != nil {
			return err
		}
	}
	return nil
}

// Execute implements subcommands.Command.Execute.
func (c *Constants) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	if err := c.dump(os.Stdout); err != nil {
		Fatalf("writing constants: %v", err)
	}
	return subcommands.ExitSuccess
}
