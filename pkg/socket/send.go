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

// SendMsg sends msg through fd with the given transmission flags, returning
// the number of payload bytes sent.
//
// On targets where the C library's message-header shape differs from the
// kernel's, the header's reserved words are cleared and a non-empty control
// block is rewritten into call-local scratch storage before the backend
// transmit primitive sees it; a control block larger than MaxControlLen
// fails with ENOMEM without invoking the backend. On targets where the
// shapes coincide the call is a pure passthrough.
func SendMsg(b Backend, fd int32, msg *Message, flags int32) (int, error) {
	if !messageHeaderNeedsRepack || msg == nil {
		return b.SendMsg(fd, msg, flags)
	}
	m := *msg
	m.Pad1 = 0
	m.Pad2 = 0
	if len(m.Control) != 0 {
		var scratch [MaxControlLen]byte
		ctl, err := repackControl(&scratch, m.Control)
		if err != nil {
			return 0, err
		}
		m.Control = ctl
	}
	return b.SendMsg(fd, &m, flags)
}
