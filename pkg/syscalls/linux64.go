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

package syscalls

import (
	"boxer.dev/boxer/pkg/abi/linux"
	"boxer.dev/boxer/pkg/addrspace"
	"boxer.dev/boxer/pkg/arch"
	"boxer.dev/boxer/pkg/errors/linuxerr"
	"boxer.dev/boxer/pkg/usermem"
)

// AMD64 is the argument table for amd64 Linux guests.
var AMD64 = NewTable("linux/amd64", map[uintptr]Rule{
	0:   {Name: "read", Checks: []Check{Buffer(arch.Arg1, arch.Arg2)}},
	1:   {Name: "write", Checks: []Check{Buffer(arch.Arg1, arch.Arg2)}},
	2:   {Name: "open", Checks: []Check{String(arch.Arg0)}},
	3:   {Name: "close", Checks: []Check{Custom("fd < 3 succeeds without closing", closeStdio)}, Note: "stdio descriptors are never closed"},
	4:   {Name: "stat", Checks: []Check{String(arch.Arg0), Fixed(arch.Arg1, linux.SizeOfStat)}},
	5:   {Name: "fstat", Checks: []Check{Fixed(arch.Arg1, linux.SizeOfStat)}},
	6:   {Name: "lstat", Checks: []Check{String(arch.Arg0), Fixed(arch.Arg1, linux.SizeOfStat)}},
	8:   {Name: "lseek"},
	9:   {Name: "mmap", Note: "emulated by the memory manager"},
	10:  {Name: "mprotect", Note: "emulated by the memory manager"},
	11:  {Name: "munmap", Note: "emulated by the memory manager"},
	12:  {Name: "brk", Note: "emulated by the memory manager"},
	13:  {Name: "rt_sigaction", Checks: []Check{Fixed(arch.Arg1, linux.SizeOfSigAction), Custom("oldact extent", sigactionOld)}},
	16:  {Name: "ioctl", Checks: []Check{Custom("argument sized by _IOC_SIZE when _IOC_DIR is set", ioctlArg)}},
	19:  {Name: "readv", Checks: []Check{Vector(arch.Arg1, arch.Arg2)}},
	20:  {Name: "writev", Checks: []Check{Vector(arch.Arg1, arch.Arg2)}},
	21:  {Name: "access", Checks: []Check{String(arch.Arg0)}},
	33:  {Name: "dup2"},
	39:  {Name: "getpid"},
	40:  {Name: "sendfile", Checks: []Check{Fixed(arch.Arg2, linux.SizeOfTimeT)}},
	41:  {Name: "socket"},
	42:  {Name: "connect", Checks: []Check{Buffer(arch.Arg1, arch.Arg2)}},
	43:  {Name: "accept", Checks: []Check{Custom("address sized by *addrlen", acceptAddr)}},
	48:  {Name: "shutdown"},
	49:  {Name: "bind", Checks: []Check{Buffer(arch.Arg1, arch.Arg2)}},
	50:  {Name: "listen"},
	54:  {Name: "setsockopt", Checks: []Check{Buffer(arch.Arg3, arch.Arg4)}},
	60:  {Name: "exit", Note: "returns to the monitor"},
	63:  {Name: "uname", Checks: []Check{Fixed(arch.Arg0, linux.SizeOfUtsName)}},
	72:  {Name: "fcntl", Checks: []Check{Custom("command allow-list", fcntlCmd)}},
	78:  {Name: "getdents", Checks: []Check{Buffer(arch.Arg1, arch.Arg2)}},
	79:  {Name: "getcwd", Checks: []Check{Buffer(arch.Arg0, arch.Arg1)}},
	87:  {Name: "unlink", Checks: []Check{String(arch.Arg0)}},
	97:  {Name: "getrlimit", Checks: []Check{Fixed(arch.Arg1, linux.SizeOfRlimit)}},
	102: {Name: "getuid"},
	104: {Name: "getgid"},
	105: {Name: "setuid"},
	106: {Name: "setgid"},
	116: {Name: "setgroups", Checks: []Check{Array(arch.Arg1, arch.Arg0, linux.SizeOfGID)}},
	137: {Name: "statfs", Checks: []Check{String(arch.Arg0), Fixed(arch.Arg1, linux.SizeOfStatfs)}},
	158: {Name: "arch_prctl", Checks: []Check{Custom("ARCH_GET_FS destination", archPrctlGetFS)}, Note: "emulated"},
	201: {Name: "time", Checks: []Check{Fixed(arch.Arg0, linux.SizeOfTimeT)}},
	213: {Name: "epoll_create"},
	231: {Name: "exit_group", Note: "returns to the monitor"},
	232: {Name: "epoll_wait", Checks: []Check{Array(arch.Arg1, arch.Arg2, linux.SizeOfEpollEvent)}},
	233: {Name: "epoll_ctl", Checks: []Check{Fixed(arch.Arg3, linux.SizeOfEpollEvent)}},
	257: {Name: "openat", Checks: []Check{String(arch.Arg1)}},
})

// closeStdio completes close(0), close(1) and close(2) with success so the
// guest cannot close the descriptors it shares with the monitor. The kernel
// takes an unsigned int, so only the low 32 bits name the descriptor.
func closeStdio(_ *addrspace.Validator, f *arch.TrapFrame) (Verdict, error) {
	if f.Arg(arch.Arg0).Uint() < 3 {
		f.SetReturn(0)
		return Handled, nil
	}
	return Continue, nil
}

// sigactionOld checks the oldact destination, which is written by the
// kernel and so is checked even when act is null.
func sigactionOld(v *addrspace.Validator, f *arch.TrapFrame) (Verdict, error) {
	if oldact := f.Arg(arch.Arg2).Pointer(); oldact != 0 {
		return Continue, v.CheckExtent(oldact, linux.SizeOfSigAction)
	}
	return Continue, nil
}

// ioctlArg checks the argument buffer of requests that encode a direction
// and size. Requests without a direction pass the argument by value.
func ioctlArg(v *addrspace.Validator, f *arch.TrapFrame) (Verdict, error) {
	cmd := f.Arg(arch.Arg1).Uint()
	if linux.IOC_DIR(cmd) == linux.IOC_NONE {
		return Continue, nil
	}
	return Continue, v.CheckExtent(f.Arg(arch.Arg2).Pointer(), uint64(linux.IOC_SIZE(cmd)))
}

// fcntlCmd admits only commands whose third argument is an integer. Commands
// taking pointers (locks, owner structures) are refused with EFAULT.
func fcntlCmd(_ *addrspace.Validator, f *arch.TrapFrame) (Verdict, error) {
	switch f.Arg(arch.Arg1).Int() {
	case linux.F_DUPFD, linux.F_DUPFD_CLOEXEC,
		linux.F_GETFD, linux.F_SETFD,
		linux.F_GETFL, linux.F_SETFL,
		linux.F_GETOWN, linux.F_SETOWN:
		return Continue, nil
	default:
		return Continue, linuxerr.EFAULT
	}
}

// acceptAddr checks *addrlen and then the address buffer it sizes.
func acceptAddr(v *addrspace.Validator, f *arch.TrapFrame) (Verdict, error) {
	lenp := f.Arg(arch.Arg2).Pointer()
	if lenp == 0 {
		return Continue, nil
	}
	if err := v.CheckExtent(lenp, linux.SizeOfSocklen); err != nil {
		return Continue, err
	}
	socklen, err := usermem.CopyInUint32(v.IO, lenp)
	if err != nil {
		return Continue, linuxerr.EFAULT
	}
	return Continue, v.CheckExtent(f.Arg(arch.Arg1).Pointer(), uint64(socklen))
}

// archPrctlGetFS checks the destination of ARCH_GET_FS, the only code that
// writes to guest memory.
func archPrctlGetFS(v *addrspace.Validator, f *arch.TrapFrame) (Verdict, error) {
	if f.Arg(arch.Arg0).Int() == linux.ARCH_GET_FS {
		return Continue, v.CheckExtent(f.Arg(arch.Arg1).Pointer(), 8)
	}
	return Continue, nil
}
