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

// Binary sockshim exercises the socket compatibility layer against the host
// kernel: it passes open file descriptors between processes over unix domain
// sockets through the layer's accept and send paths.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"sockshim.dev/sockshim/pkg/log"
)

var (
	debug     = flag.Bool("debug", false, "enable debug logging.")
	logFormat = flag.String("log-format", "text", "log format: text or json.")
)

// Fatalf logs to stderr and exits. It is used for terminal command errors
// only; transient per-connection errors are logged and survived.
func Fatalf(format string, args ...any) {
	log.Warningf(format, args...)
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	// 128 is the highest exit code reserved by the command itself; everything
	// below is available to subcommand exit statuses.
	os.Exit(128)
}

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(new(Constants), "")
	subcommands.Register(new(SendFD), "")
	subcommands.Register(new(RecvFD), "")

	// All subcommands must be registered before flag parsing.
	flag.Parse()

	if *debug {
		log.SetLevel(log.Debug)
	}
	switch *logFormat {
	case "text":
		log.SetTarget(log.GoogleEmitter{Writer: &log.Writer{Next: os.Stderr}})
	case "json":
		log.SetTarget(log.JSONEmitter{Writer: &log.Writer{Next: os.Stderr}})
	default:
		Fatalf("invalid log format %q, must be 'text' or 'json'", *logFormat)
	}

	os.Exit(int(subcommands.Execute(context.Background())))
}
