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

// Package hostsock provides a socket.Backend backed directly by host system
// calls. It is the production backend: the compatibility layer validates and
// rewrites messages, hostsock moves the bytes.
package hostsock

import (
	"sockshim.dev/sockshim/pkg/socket"
)

// Host issues socket system calls against the host kernel. The zero value is
// ready to use; Host holds no state and is safe for concurrent use.
type Host struct{}

var _ socket.Backend = (*Host)(nil)

// New returns a host-kernel backend.
func New() *Host {
	return &Host{}
}
