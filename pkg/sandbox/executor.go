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

package sandbox

import (
	"golang.org/x/sys/unix"

	"boxer.dev/boxer/pkg/abi/linux"
	"boxer.dev/boxer/pkg/arch"
	"boxer.dev/boxer/pkg/errors/linuxerr"
	"boxer.dev/boxer/pkg/log"
	"boxer.dev/boxer/pkg/syscalls"
	"boxer.dev/boxer/pkg/usermem"
)

// HandleSyscall is the built-in system call handler. The call is validated
// against the argument table, submitted to the gate and then executed. The
// first stage to reject the call ends the trap with the frame's result set.
func (s *Sandbox) HandleSyscall(f *arch.TrapFrame) Result {
	switch s.table.CheckParams(s.validator, f) {
	case syscalls.Rejected:
		s.violations.Warningf("%s: %s: bad arguments: %v", s.name, s.table.SyscallName(f.Sysno), f.Error())
		return resume(AddressFault)
	case syscalls.Handled:
		return resume(Handled)
	}
	if !s.gate.Allow(f) {
		if s.log.IsLogging(log.Debug) {
			s.log.Debugf("%s: %s denied: %#x", s.name, s.table.SyscallName(f.Sysno), f.Return())
		}
		return resume(PermissionDenied)
	}
	return s.execute(f)
}

// execute runs a validated and permitted system call.
func (s *Sandbox) execute(f *arch.TrapFrame) Result {
	switch f.Sysno {
	case unix.SYS_ARCH_PRCTL:
		s.archPrctl(f)
	case unix.SYS_BRK, unix.SYS_MMAP, unix.SYS_MUNMAP, unix.SYS_MPROTECT:
		s.memory(f)
	case unix.SYS_EXIT, unix.SYS_EXIT_GROUP:
		code := int(f.Arg(arch.Arg0).Int())
		s.log.Infof("%s: guest exited with code %d", s.name, code)
		s.substrate.ReturnFromUser(code)
		return Result{Action: Exit, Outcome: Exited, ExitCode: code}
	default:
		f.SetReturn(s.kernel.Syscall(f.Sysno, &f.Args))
	}
	return resume(Executed)
}

func (s *Sandbox) archPrctl(f *arch.TrapFrame) {
	switch f.Arg(arch.Arg0).Int() {
	case linux.ARCH_GET_FS:
		if err := usermem.CopyOutUint64(s.substrate.Memory(), f.Arg(arch.Arg1).Pointer(), s.substrate.UserFS()); err != nil {
			f.SetError(linuxerr.EFAULT)
			return
		}
		f.SetReturn(0)
	case linux.ARCH_SET_FS:
		s.substrate.SetUserFS(f.Arg(arch.Arg1).Uint64())
		f.SetReturn(0)
	default:
		f.SetError(linuxerr.EINVAL)
	}
}

// memory routes the memory management calls to the memory manager, which
// validates its own arguments.
func (s *Sandbox) memory(f *arch.TrapFrame) {
	if s.mm == nil {
		f.SetError(linuxerr.ENOSYS)
		return
	}
	a := &f.Args
	switch f.Sysno {
	case unix.SYS_BRK:
		f.SetReturn(s.mm.Brk(a[0].Pointer()))
	case unix.SYS_MMAP:
		f.SetReturn(s.mm.Mmap(a[0].Pointer(), a[1].Uint64(), int(a[2].Int()), int(a[3].Int()), int(a[4].Int()), a[5].Int64()))
	case unix.SYS_MUNMAP:
		f.SetReturn(s.mm.Munmap(a[0].Pointer(), a[1].Uint64()))
	case unix.SYS_MPROTECT:
		f.SetReturn(s.mm.Mprotect(a[0].Pointer(), a[1].Uint64(), int(a[2].Int())))
	}
}
