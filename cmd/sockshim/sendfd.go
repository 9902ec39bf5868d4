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
	"flag"
	"path/filepath"

	"github.com/google/subcommands"
	"golang.org/x/sys/unix"

	"sockshim.dev/sockshim/pkg/log"
	"sockshim.dev/sockshim/pkg/socket"
	"sockshim.dev/sockshim/pkg/socket/hostsock"
)

// SendFD implements subcommands.Command for the "sendfd" command.
type SendFD struct {
	// Path of the receiver's unix domain socket.
	socketPath string
}

// Name implements subcommands.Command.Name.
func (*SendFD) Name() string {
	return "sendfd"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*SendFD) Synopsis() string {
	return "open a file and pass its descriptor to a receiver over a unix domain socket"
}

// Usage implements subcommands.Command.Usage.
func (*SendFD) Usage() string {
	return `sendfd --socket <path> <file>

Where "<file>" is the file whose open descriptor is passed. The message
payload carries the file's base name so the receiver can label it.

OPTIONS:
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (s *SendFD) SetFlags(f *flag.FlagSet) {
	f.StringVar(&s.socketPath, "socket", "", "path of the receiver's unix domain socket")
}

// Execute implements subcommands.Command.Execute.
func (s *SendFD) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 1 || s.socketPath == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}

	fd, err := unix.Open(f.Arg(0), unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		Fatalf("opening %q: %v", f.Arg(0), err)
	}
	defer unix.Close(fd)

	conn, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		Fatalf("creating socket: %v", err)
	}
	defer unix.Close(conn)
	if err := unix.Connect(conn, &unix.SockaddrUnix{Name: s.socketPath}); err != nil {
		Fatalf("connecting to %q: %v", s.socketPath, err)
	}

	msg := &socket.Message{
		Iov:     [][]byte{[]byte(filepath.Base(f.Arg(0)))},
		Control: socket.PackRights(nil, int32(fd)),
	}
	n, err := socket.SendMsg(hostsock.New(), int32(conn), msg, 0)
	if err != nil {
		Fatalf("sending descriptor: %v", err)
	}
	log.Infof("sent descriptor for %q with a %d-byte label", f.Arg(0), n)
	return subcommands.ExitSuccess
}
