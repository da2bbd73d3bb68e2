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

// Package platform defines the collaborators the trap layer depends on: the
// virtualization substrate that delivers traps and owns guest state, the host
// kernel that executes forwarded system calls, and the guest address
// translation used when installing page table entries.
package platform

import (
	"context"

	"boxer.dev/boxer/pkg/arch"
	"boxer.dev/boxer/pkg/hostarch"
	"boxer.dev/boxer/pkg/usermem"
)

// Substrate is the per-guest view of the virtualization layer.
type Substrate interface {
	// UserFS returns the guest's user FS segment base.
	UserFS() uint64

	// SetUserFS sets the guest's user FS segment base.
	SetUserFS(base uint64)

	// ReturnFromUser tears down the guest context with the given exit
	// code. The guest is never resumed afterwards.
	ReturnFromUser(code int)

	// Memory returns the accessor for guest memory.
	Memory() usermem.IO
}

// Kernel executes system calls on behalf of the guest.
type Kernel interface {
	// Syscall executes sysno with args and returns the raw result: the
	// return value on success or the negative errno on failure.
	Syscall(sysno uintptr, args *arch.SyscallArguments) uintptr
}

// TrapSource delivers the traps raised by one guest.
//
// Next blocks until a trap is available, ctx is done, or the guest has no
// more traps, in which case it returns io.EOF. Each frame returned by Next
// must be passed back to Complete once handled; Complete re-enters the
// guest with the frame's result.
type TrapSource interface {
	Next(ctx context.Context) (*arch.TrapFrame, error)
	Complete(f *arch.TrapFrame) error
}

// Translator maps a page-aligned guest virtual address to the guest physical
// address that backs it.
type Translator interface {
	Translate(page hostarch.Addr) uintptr
}

// TranslatorFunc adapts a function to the Translator interface.
type TranslatorFunc func(page hostarch.Addr) uintptr

// Translate implements Translator.Translate.
func (fn TranslatorFunc) Translate(page hostarch.Addr) uintptr {
	return fn(page)
}

// OffsetTranslator translates by adding a constant offset. The zero value is
// the identity translation used when guest physical memory aliases host
// virtual memory.
type OffsetTranslator uintptr

// Translate implements Translator.Translate.
func (o OffsetTranslator) Translate(page hostarch.Addr) uintptr {
	return uintptr(page) + uintptr(o)
}
