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
	"time"

	"sockshim.dev/sockshim/pkg/errors/linuxerr"
	"sockshim.dev/sockshim/pkg/hostarch"
	"sockshim.dev/sockshim/pkg/log"
)

// getOptLog rate-limits the getsockopt warning so a caller probing options
// in a loop cannot flood the log. The sink is process-wide, initialized at
// start, and off the send/accept critical path.
var getOptLog = log.BasicRateLimitedLogger(5 * time.Second)

// GetSockOpt implements getsockopt(2). No kernel option state is queryable
// through this layer: every query fails with ENOSYS and opt is left
// untouched.
func GetSockOpt(fd, level, name int32, opt []byte) error {
	getOptLog.Warningf("getsockopt(%d, %d, %d) is not implemented", fd, level, name)
	return linuxerr.ENOSYS
}

// SetSockOpt implements setsockopt(2) as an accepted no-op: the requested
// option is traced and discarded. Nothing is applied, so a later GetSockOpt
// will not observe it; callers that set-and-forget keep working.
func SetSockOpt(fd, level, name int32, opt []byte) error {
	var optVal any = "?"
	if len(opt) >= 4 {
		optVal = int32(hostarch.ByteOrder.Uint32(opt))
	}
	log.Infof("setsockopt stub: fd=%d level=%d optname=%d optval=%v optlen=%d", fd, level, name, optVal, len(opt))
	return nil
}
