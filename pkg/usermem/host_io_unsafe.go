// Copyright 2026 The gVisor Authors.
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

package usermem

import (
	"unsafe"

	"boxer.dev/boxer/pkg/errors/linuxerr"
	"boxer.dev/boxer/pkg/hostarch"
)

// HostIO implements IO for guests whose memory is mapped at the same
// addresses in the host process. Accesses outside Ranges fail with EFAULT
// before any memory is touched.
type HostIO struct {
	Ranges []hostarch.AddrRange
}

func (h *HostIO) check(addr hostarch.Addr, length int) error {
	ar, ok := addr.ToRange(uint64(length))
	if !ok {
		return linuxerr.EFAULT
	}
	for _, r := range h.Ranges {
		if r.IsSupersetOf(ar) {
			return nil
		}
	}
	return linuxerr.EFAULT
}

// CopyOut implements IO.CopyOut.
func (h *HostIO) CopyOut(addr hostarch.Addr, src []byte) (int, error) {
	if len(src) == 0 {
		return 0, nil
	}
	if err := h.check(addr, len(src)); err != nil {
		return 0, err
	}
	dst := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), len(src))
	return copy(dst, src), nil
}

// CopyIn implements IO.CopyIn.
func (h *HostIO) CopyIn(addr hostarch.Addr, dst []byte) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	if err := h.check(addr, len(dst)); err != nil {
		return 0, err
	}
	src := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), len(dst))
	return copy(dst, src), nil
}
