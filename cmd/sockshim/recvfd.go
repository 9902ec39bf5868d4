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
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"sockshim.dev/sockshim/pkg/abi/linux"
	"sockshim.dev/sockshim/pkg/log"
	"sockshim.dev/sockshim/pkg/socket"
	"sockshim.dev/sockshim/pkg/socket/hostsock"
)

// RecvFD implements subcommands.Command for the "recvfd" command.
type RecvFD struct {
	// Path of the unix domain socket to listen on.
	socketPath string
	// Number of senders to serve before exiting.
	count int
	// If true, copy each received file to stdout.
	cat bool
}

// Name implements subcommands.Command.Name.
func (*RecvFD) Name() string {
	return "recvfd"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*RecvFD) Synopsis() string {
	return "receive passed file descriptors over a unix domain socket"
}

// Usage implements subcommands.Command.Usage.
func (*RecvFD) Usage() string {
	return `recvfd --socket <path> [--count <n>] [--cat]

Listens on the given unix domain socket and accepts descriptor-passing
connections from "sendfd" until the requested number has been served.

OPTIONS:
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (r *RecvFD) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.socketPath, "socket", "", "path of the unix domain socket to listen on")
	f.IntVar(&r.count, "count", 1, "number of senders to serve before exiting")
	f.BoolVar(&r.cat, "cat", false, "copy each received file to stdout")
}

// Execute implements subcommands.Command.Execute.
func (r *RecvFD) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 || r.socketPath == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}

	lfd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		Fatalf("creating socket: %v", err)
	}
	defer unix.Close(lfd)
	if err := unix.Bind(lfd, &unix.SockaddrUnix{Name: r.socketPath}); err != nil {
		Fatalf("binding %q: %v", r.socketPath, err)
	}
	defer os.Remove(r.socketPath)
	if err := unix.Listen(lfd, 5); err != nil {
		Fatalf("listening on %q: %v", r.socketPath, err)
	}
	log.Infof("listening on %q for %d senders", r.socketPath, r.count)

	h := hostsock.New()
	var g errgroup.Group
	for i := 0; i < r.count; i++ {
		nfd, _, err := socket.Accept4(h, int32(lfd), nil, linux.SOCK_CLOEXEC)
		if err != nil {
			Fatalf("accepting connection: %v", err)
		}
		g.Go(func() error {
			defer unix.Close(int(nfd))
			return r.serve(h, nfd)
		})
	}
	if err := g.Wait(); err != nil {
		Fatalf("receiving descriptors: %v", err)
	}
	return subcommands.ExitSuccess
}

// serve receives one descriptor-passing message on conn.
func (r *RecvFD) serve(h *hostsock.Host, conn int32) error {
	msg := &socket.Message{
		Iov:     [][]byte{make([]byte, 256)},
		Control: make([]byte, 64),
	}
	n, err := h.RecvMsg(conn, msg, 0)
	if err != nil {
		return fmt.Errorf("receiving message: %w", err)
	}
	fds := socket.ParseRights(msg.Control)
	if len(fds) != 1 {
		return fmt.Errorf("message carried %d descriptors, expected 1", len(fds))
	}
	label := string(msg.Iov[0][:n])

	file := os.NewFile(uintptr(fds[0]), label)
	defer file.Close()
	st, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat of received descriptor: %w", err)
	}
	log.Infof("received %q: %d bytes", label, st.Size())
	if r.cat {
		if _, err := io.Copy(os.Stdout, file); err != nil {
			return fmt.Errorf("copying %q: %w", label, err)
		}
	}
	return nil
}
