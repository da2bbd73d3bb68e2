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

package policy

import (
	"fmt"
	"sort"

	seccomp "github.com/elastic/go-seccomp-bpf"
	"golang.org/x/net/bpf"

	"boxer.dev/boxer/pkg/syscalls"
)

// RuntimeSyscalls are the calls the monitor process itself needs to keep
// running: the Go runtime, logging and guest memory management.
var RuntimeSyscalls = []string{
	"arch_prctl",
	"clock_gettime",
	"clone",
	"close",
	"epoll_ctl",
	"epoll_pwait",
	"exit",
	"exit_group",
	"fcntl",
	"futex",
	"getpid",
	"gettid",
	"madvise",
	"mmap",
	"mprotect",
	"munmap",
	"nanosleep",
	"openat",
	"read",
	"rt_sigaction",
	"rt_sigprocmask",
	"rt_sigreturn",
	"sched_yield",
	"sigaltstack",
	"tgkill",
	"write",
}

// HostFilter is the seccomp policy applied to the monitor process: it admits
// the runtime baseline plus every syscall the policy can allow. Argument
// rules are not carried over; the in-process policy still enforces them.
// Everything else fails with EPERM.
func HostFilter(p *Policy) (*seccomp.Policy, error) {
	if p.Default.Kind == ActionAllow {
		return &seccomp.Policy{DefaultAction: seccomp.ActionAllow}, nil
	}
	names := map[string]struct{}{}
	for _, n := range RuntimeSyscalls {
		names[n] = struct{}{}
	}
	for _, g := range p.Groups {
		if g.Action.Kind != ActionAllow {
			continue
		}
		for sysno := range g.Rules {
			name, ok := syscalls.Name(sysno)
			if !ok {
				return nil, fmt.Errorf("syscall %d has no name", sysno)
			}
			names[name] = struct{}{}
		}
	}
	allowed := make([]string, 0, len(names))
	for n := range names {
		allowed = append(allowed, n)
	}
	sort.Strings(allowed)
	return &seccomp.Policy{
		DefaultAction: seccomp.ActionErrno,
		Syscalls: []seccomp.SyscallGroup{
			{
				Action: seccomp.ActionAllow,
				Names:  allowed,
			},
		},
	}, nil
}

// AssembleHostFilter compiles the host filter for p to BPF.
func AssembleHostFilter(p *Policy) ([]bpf.Instruction, error) {
	sp, err := HostFilter(p)
	if err != nil {
		return nil, err
	}
	return sp.Assemble()
}

// InstallHostFilter loads the host filter for p into the calling process,
// synchronized across all threads. It cannot be undone.
func InstallHostFilter(p *Policy) error {
	sp, err := HostFilter(p)
	if err != nil {
		return err
	}
	return seccomp.LoadFilter(seccomp.Filter{
		NoNewPrivs: true,
		Flag:       seccomp.FilterFlagTSync,
		Policy:     *sp,
	})
}
