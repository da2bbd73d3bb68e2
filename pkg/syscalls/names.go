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
	"github.com/elastic/go-seccomp-bpf/arch"
)

// The guest ABI is always amd64, whatever the host architecture.
var guestArch, guestArchErr = arch.GetInfo("amd64")

// Name returns the amd64 name of sysno.
func Name(sysno uintptr) (string, bool) {
	if guestArchErr != nil {
		return "", false
	}
	name, ok := guestArch.SyscallNumbers[int(sysno)]
	return name, ok
}

// Number returns the amd64 number of the named syscall.
func Number(name string) (uintptr, bool) {
	if guestArchErr != nil {
		return 0, false
	}
	nr, ok := guestArch.SyscallNames[name]
	return uintptr(nr), ok
}
