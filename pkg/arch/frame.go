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

package arch

import (
	"fmt"

	"boxer.dev/boxer/pkg/errors"
	"boxer.dev/boxer/pkg/errors/linuxerr"
	"boxer.dev/boxer/pkg/hostarch"
)

// UserModeMask selects the requested privilege level from a code segment
// selector. A non-zero value means the trap was raised in user mode.
const UserModeMask = 3

// TrapFrame is the machine state saved on a trap.
//
// A TrapFrame is owned by the goroutine handling the trap and must not be
// shared while the trap is in flight.
type TrapFrame struct {
	// Vector is the trap vector. Syscall for system calls.
	Vector Vector

	// Sysno is the system call number (rax on entry).
	Sysno uintptr

	// Args are the system call arguments.
	Args SyscallArguments

	// CS is the code segment selector at the time of the trap.
	CS uint64

	// RIP and RSP are the instruction and stack pointers.
	RIP uint64
	RSP uint64

	// FaultAddr is the faulting address (cr2) for page faults.
	FaultAddr hostarch.Addr

	// ErrorCode is the hardware error code for faults.
	ErrorCode uint64

	ret    uintptr
	retSet bool
}

// NewSyscallFrame returns a frame for system call sysno with the given
// arguments, raised from the privileged guest kernel context.
func NewSyscallFrame(sysno uintptr, args ...uintptr) *TrapFrame {
	f := &TrapFrame{Vector: Syscall, Sysno: sysno}
	for i, a := range args {
		if i >= len(f.Args) {
			panic(fmt.Sprintf("too many syscall arguments: %d", len(args)))
		}
		f.Args[i].Value = a
	}
	return f
}

// Arg returns the argument in slot i.
func (f *TrapFrame) Arg(i ArgIndex) SyscallArgument {
	return f.Args[i]
}

// IsUser returns true if the trap was raised in unprivileged mode.
func (f *TrapFrame) IsUser() bool {
	return f.CS&UserModeMask != 0
}

// Return returns the value of the result slot.
func (f *TrapFrame) Return() uintptr {
	return f.ret
}

// SetReturn sets the result slot.
func (f *TrapFrame) SetReturn(value uintptr) {
	f.ret = value
	f.retSet = true
}

// SetError sets the result slot to the negative errno of err.
func (f *TrapFrame) SetError(err *errors.Error) {
	f.SetReturn(linuxerr.ToReturn(err))
}

// ResetReturn empties the result slot. It is called on trap entry so that a
// frame reused across traps does not carry the previous trap's result.
func (f *TrapFrame) ResetReturn() {
	f.ret = 0
	f.retSet = false
}

// ReturnSet returns true if anything wrote the result slot during this trap.
func (f *TrapFrame) ReturnSet() bool {
	return f.retSet
}

// Error returns the error held in the result slot, or nil if the slot holds
// a success value or was never written.
func (f *TrapFrame) Error() *errors.Error {
	if !f.retSet {
		return nil
	}
	_, err := linuxerr.FromReturn(f.ret)
	return err
}

// String implements fmt.Stringer.String.
func (f *TrapFrame) String() string {
	if f.Vector == Syscall {
		return fmt.Sprintf("syscall %d (%#x, %#x, %#x, %#x, %#x, %#x) rip=%#x", f.Sysno,
			f.Args[0].Value, f.Args[1].Value, f.Args[2].Value, f.Args[3].Value, f.Args[4].Value, f.Args[5].Value, f.RIP)
	}
	return fmt.Sprintf("%v at %v code=%#x cs=%#x rip=%#x rsp=%#x", f.Vector, f.FaultAddr, f.ErrorCode, f.CS, f.RIP, f.RSP)
}
