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

package addrspace

import (
	"bytes"

	"boxer.dev/boxer/pkg/abi/linux"
	"boxer.dev/boxer/pkg/errors/linuxerr"
	"boxer.dev/boxer/pkg/hostarch"
	"boxer.dev/boxer/pkg/usermem"
)

// Validator checks syscall arguments that reference guest memory. Extents
// are checked against the Layout alone; strings and vectors are also read
// through IO.
//
// A Validator is owned by one guest and is not safe for concurrent use.
type Validator struct {
	*Layout

	// IO reads guest memory.
	IO usermem.IO

	scratch [hostarch.PageSize]byte
}

// NewValidator returns a Validator for the given layout and guest memory.
func NewValidator(l *Layout, uio usermem.IO) *Validator {
	return &Validator{Layout: l, IO: uio}
}

// CheckString returns nil iff ptr lies in a valid range and a zero byte
// exists somewhere in [ptr, end of that range).
//
// Memory is read one page at a time and never at or past the end of the
// range, so an unterminated string at the top of a range fails cleanly
// instead of reading beyond it.
func (v *Validator) CheckString(ptr hostarch.Addr) error {
	ar, ok := v.RangeOf(ptr)
	if !ok {
		return linuxerr.EFAULT
	}
	for cur := ptr; cur < ar.End; {
		n := uint64(hostarch.PageSize) - cur.PageOffset()
		if rem := uint64(ar.End - cur); n > rem {
			n = rem
		}
		buf := v.scratch[:n]
		if _, err := v.IO.CopyIn(cur, buf); err != nil {
			return linuxerr.EFAULT
		}
		if bytes.IndexByte(buf, 0) >= 0 {
			return nil
		}
		cur += hostarch.Addr(n)
	}
	return linuxerr.EFAULT
}

// CheckIovec validates an array of n struct iovec at iov: the array itself
// must be a valid extent and so must every (base, len) pair in it.
//
// More than UIO_MAXIOV entries is rejected with EINVAL, as the kernel would.
func (v *Validator) CheckIovec(iov hostarch.Addr, n uint64) error {
	if n > linux.UIO_MAXIOV {
		return linuxerr.EINVAL
	}
	if err := v.CheckExtent(iov, n*linux.SizeOfIovec); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	iovs, err := usermem.CopyInIovecs(v.IO, iov, int(n))
	if err != nil {
		return linuxerr.EFAULT
	}
	for _, e := range iovs {
		if err := v.CheckExtent(e.Base, e.Len); err != nil {
			return err
		}
	}
	return nil
}
