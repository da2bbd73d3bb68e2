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

package platform

import (
	"golang.org/x/sys/unix"

	"boxer.dev/boxer/pkg/arch"
	"boxer.dev/boxer/pkg/errors/linuxerr"
)

// HostKernel forwards system calls to the kernel of the running process.
//
// Pointer arguments are passed through unchanged, so HostKernel is only
// meaningful when guest memory is mapped at the same addresses in the host.
type HostKernel struct{}

// Syscall implements Kernel.Syscall.
func (HostKernel) Syscall(sysno uintptr, args *arch.SyscallArguments) uintptr {
	r, _, errno := unix.Syscall6(sysno,
		args[0].Value, args[1].Value, args[2].Value,
		args[3].Value, args[4].Value, args[5].Value)
	if errno != 0 {
		return linuxerr.ReturnErrno(errno)
	}
	return r
}
