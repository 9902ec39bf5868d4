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

package socket

import (
	"sockshim.dev/sockshim/pkg/abi/linux"
	"sockshim.dev/sockshim/pkg/errors/linuxerr"
)

// Accept4 accepts a pending connection on the listening descriptor fd and
// applies the requested descriptor flags to the result.
//
// flags may combine linux.SOCK_CLOEXEC and linux.SOCK_NONBLOCK; any other
// bit fails with EINVAL before the backend is consulted, leaving the pending
// connection queue untouched. The backend accept primitive does not
// understand these flags, so they are applied afterwards with fcntl.
func Accept4(b Backend, fd int32, addr []byte, flags int32) (int32, uint32, error) {
	if flags == 0 {
		return b.Accept(fd, addr)
	}
	if flags&^(linux.SOCK_CLOEXEC|linux.SOCK_NONBLOCK) != 0 {
		return -1, 0, linuxerr.EINVAL
	}
	nfd, addrLen, err := b.Accept(fd, addr)
	if err != nil {
		return nfd, addrLen, err
	}
	// The accepted descriptor is returned even if a flag mutation fails;
	// acceptance is not rolled back.
	if flags&linux.SOCK_CLOEXEC != 0 {
		b.Fcntl(nfd, linux.F_SETFD, linux.FD_CLOEXEC)
	}
	if flags&linux.SOCK_NONBLOCK != 0 {
		b.Fcntl(nfd, linux.F_SETFL, linux.O_NONBLOCK)
	}
	return nfd, addrLen, nil
}
