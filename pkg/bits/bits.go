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

// Package bits includes bit manipulation and alignment helpers.
package bits

// AlignUp rounds length up to an align boundary.
//
// Preconditions: align is a power of two.
func AlignUp(length int, align uint) int {
	return (length + int(align) - 1) & ^(int(align) - 1)
}

// AlignDown rounds length down to an align boundary.
//
// Preconditions: align is a power of two.
func AlignDown(length int, align uint) int {
	return length & ^(int(align) - 1)
}

// IsOn returns true if *all* bits set in 'bits' are set in 'mask'.
func IsOn(mask, bits uint32) bool {
	return mask&bits == bits
}

// IsAnyOn returns true if *any* bit set in 'bits' is set in 'mask'.
func IsAnyOn(mask, bits uint32) bool {
	return mask&bits != 0
}
