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

// Package usermem governs access to guest memory.
package usermem

import (
	"boxer.dev/boxer/pkg/errors/linuxerr"
	"boxer.dev/boxer/pkg/hostarch"
)

// IO provides access to the contents of a guest address space.
//
// An inaccessible address yields linuxerr.EFAULT together with the number of
// bytes copied before the failure.
type IO interface {
	// CopyOut copies len(src) bytes from src to the memory mapped at addr.
	// It returns the number of bytes copied. If the number of bytes copied
	// is < len(src), it returns a non-nil error explaining why.
	CopyOut(addr hostarch.Addr, src []byte) (int, error)

	// CopyIn copies len(dst) bytes from the memory mapped at addr to dst.
	// It returns the number of bytes copied. If the number of bytes copied
	// is < len(dst), it returns a non-nil error explaining why.
	CopyIn(addr hostarch.Addr, dst []byte) (int, error)
}

// CopyInUint32 reads a native-endian uint32 from addr.
func CopyInUint32(uio IO, addr hostarch.Addr) (uint32, error) {
	var buf [4]byte
	if _, err := uio.CopyIn(addr, buf[:]); err != nil {
		return 0, err
	}
	return hostarch.ByteOrder.Uint32(buf[:]), nil
}

// CopyInUint64 reads a native-endian uint64 from addr.
func CopyInUint64(uio IO, addr hostarch.Addr) (uint64, error) {
	var buf [8]byte
	if _, err := uio.CopyIn(addr, buf[:]); err != nil {
		return 0, err
	}
	return hostarch.ByteOrder.Uint64(buf[:]), nil
}

// CopyOutUint64 writes v to addr in native byte order.
func CopyOutUint64(uio IO, addr hostarch.Addr, v uint64) error {
	var buf [8]byte
	hostarch.ByteOrder.PutUint64(buf[:], v)
	_, err := uio.CopyOut(addr, buf[:])
	return err
}

// Iovec is a guest struct iovec.
type Iovec struct {
	Base hostarch.Addr
	Len  uint64
}

// CopyInIovecs reads n struct iovec from addr.
func CopyInIovecs(uio IO, addr hostarch.Addr, n int) ([]Iovec, error) {
	const sizeofIovec = 16
	buf := make([]byte, n*sizeofIovec)
	if _, err := uio.CopyIn(addr, buf); err != nil {
		return nil, err
	}
	iovs := make([]Iovec, n)
	for i := range iovs {
		b := buf[i*sizeofIovec:]
		iovs[i] = Iovec{
			Base: hostarch.Addr(hostarch.ByteOrder.Uint64(b)),
			Len:  hostarch.ByteOrder.Uint64(b[8:]),
		}
	}
	return iovs, nil
}

// BytesIO implements IO using a byte slice mapped at Base. Addresses outside
// [Base, Base+len(Bytes)) are inaccessible.
type BytesIO struct {
	Base  hostarch.Addr
	Bytes []byte
}

// CopyOut implements IO.CopyOut.
func (b *BytesIO) CopyOut(addr hostarch.Addr, src []byte) (int, error) {
	rngN, rngErr := b.rangeCheck(addr, len(src))
	if rngN == 0 {
		return 0, rngErr
	}
	off := int(addr - b.Base)
	return copy(b.Bytes[off:off+rngN], src), rngErr
}

// CopyIn implements IO.CopyIn.
func (b *BytesIO) CopyIn(addr hostarch.Addr, dst []byte) (int, error) {
	rngN, rngErr := b.rangeCheck(addr, len(dst))
	if rngN == 0 {
		return 0, rngErr
	}
	off := int(addr - b.Base)
	return copy(dst[:rngN], b.Bytes[off:off+rngN]), rngErr
}

// rangeCheck returns the number of bytes of [addr, addr+length) that are
// accessible, and a non-nil error if that is less than length.
func (b *BytesIO) rangeCheck(addr hostarch.Addr, length int) (int, error) {
	if length == 0 {
		return 0, nil
	}
	if addr < b.Base {
		return 0, linuxerr.EFAULT
	}
	off := uint64(addr - b.Base)
	if off >= uint64(len(b.Bytes)) {
		return 0, linuxerr.EFAULT
	}
	if avail := uint64(len(b.Bytes)) - off; uint64(length) > avail {
		return int(avail), linuxerr.EFAULT
	}
	return length, nil
}
