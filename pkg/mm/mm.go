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

// Package mm defines the memory manager that emulates brk, mmap, munmap and
// mprotect for a guest, and provides Simple, a bookkeeping implementation.
package mm

import (
	"boxer.dev/boxer/pkg/hostarch"
)

// Manager emulates the guest's memory management syscalls. Each method
// returns the raw syscall result: a value, or a negated errno.
type Manager interface {
	// Brk moves the program break to addr and returns the new break. An
	// unacceptable addr leaves the break unchanged.
	Brk(addr hostarch.Addr) uintptr

	// Mmap creates a mapping and returns its address.
	Mmap(addr hostarch.Addr, length uint64, prot, flags int, fd int, offset int64) uintptr

	// Munmap removes mappings in [addr, addr+length).
	Munmap(addr hostarch.Addr, length uint64) uintptr

	// Mprotect changes the protection of [addr, addr+length).
	Mprotect(addr hostarch.Addr, length uint64, prot int) uintptr
}
