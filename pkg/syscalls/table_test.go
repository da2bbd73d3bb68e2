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
	"testing"

	"boxer.dev/boxer/pkg/abi/linux"
	"boxer.dev/boxer/pkg/addrspace"
	"boxer.dev/boxer/pkg/arch"
	"boxer.dev/boxer/pkg/errors"
	"boxer.dev/boxer/pkg/errors/linuxerr"
	"boxer.dev/boxer/pkg/hostarch"
	"boxer.dev/boxer/pkg/usermem"
)

const (
	elfMax   = hostarch.Addr(0x100000)
	mmapBase = hostarch.Addr(0x10000000)
	mmapLen  = 0x100000
	mmapEnd  = mmapBase + mmapLen

	// An address in neither range.
	badAddr = hostarch.Addr(0x2000000)
)

func newValidator(t *testing.T) (*addrspace.Validator, *usermem.PagedIO) {
	t.Helper()
	l, err := addrspace.NewLayout(elfMax, mmapBase, mmapLen)
	if err != nil {
		t.Fatalf("NewLayout failed: %v", err)
	}
	mem := usermem.NewPagedIO(l.Ranges()...)
	return addrspace.NewValidator(l, mem), mem
}

func TestTableNamesMatchABI(t *testing.T) {
	for _, e := range AMD64.Entries() {
		name, ok := Name(e.Sysno)
		if !ok {
			t.Errorf("syscall %d (%s) unknown to the amd64 ABI tables", e.Sysno, e.Name)
			continue
		}
		if name != e.Name {
			t.Errorf("syscall %d is %q in the table but %q in the ABI", e.Sysno, e.Name, name)
		}
	}
}

func TestNumber(t *testing.T) {
	if nr, ok := Number("openat"); !ok || nr != 257 {
		t.Errorf("Number(openat) = %d, %t", nr, ok)
	}
	if _, ok := Number("no_such_syscall"); ok {
		t.Errorf("Number(no_such_syscall) succeeded")
	}
}

func TestEntriesSorted(t *testing.T) {
	es := AMD64.Entries()
	if len(es) != AMD64.Size() {
		t.Fatalf("Entries() has %d entries, Size() = %d", len(es), AMD64.Size())
	}
	for i := 1; i < len(es); i++ {
		if es[i-1].Sysno >= es[i].Sysno {
			t.Errorf("entries out of order at %d: %d >= %d", i, es[i-1].Sysno, es[i].Sysno)
		}
	}
}

type checkTest struct {
	name    string
	frame   *arch.TrapFrame
	verdict Verdict
	err     *errors.Error
	ret     uintptr
}

func runCheckTests(t *testing.T, v *addrspace.Validator, tests []checkTest) {
	t.Helper()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := AMD64.CheckParams(v, tc.frame)
			if got != tc.verdict {
				t.Fatalf("CheckParams(%v) = %v, want %v", tc.frame, got, tc.verdict)
			}
			switch tc.verdict {
			case Continue:
				if tc.frame.ReturnSet() {
					t.Errorf("passing check wrote the result: %#x", tc.frame.Return())
				}
			case Rejected:
				if err := tc.frame.Error(); !linuxerr.Equals(tc.err, err) {
					t.Errorf("result error = %v, want %v", err, tc.err)
				}
			case Handled:
				if tc.frame.Return() != tc.ret {
					t.Errorf("result = %#x, want %#x", tc.frame.Return(), tc.ret)
				}
			}
		})
	}
}

func TestGenericChecks(t *testing.T) {
	v, mem := newValidator(t)
	mem.CopyOut(0x1000, []byte("/tmp/x\x00"))

	runCheckTests(t, v, []checkTest{
		{name: "unlisted passes", frame: arch.NewSyscallFrame(186, uintptr(badAddr)), verdict: Continue},
		{name: "read valid", frame: arch.NewSyscallFrame(0, 3, 0x2000, 0x100), verdict: Continue},
		{name: "read into gap", frame: arch.NewSyscallFrame(0, 3, uintptr(badAddr), 0x100), verdict: Rejected, err: linuxerr.EFAULT},
		{name: "read past elf end", frame: arch.NewSyscallFrame(0, 3, uintptr(elfMax-0x10), 0x11), verdict: Rejected, err: linuxerr.EFAULT},
		{name: "write null buffer", frame: arch.NewSyscallFrame(1, 1, 0, 0x100), verdict: Continue},
		{name: "write zero length", frame: arch.NewSyscallFrame(1, 1, uintptr(badAddr), 0), verdict: Continue},
		{name: "write in mmap", frame: arch.NewSyscallFrame(1, 1, uintptr(mmapEnd-0x10), 0x10), verdict: Continue},
		{name: "open valid", frame: arch.NewSyscallFrame(2, 0x1000, 0), verdict: Continue},
		{name: "open bad path", frame: arch.NewSyscallFrame(2, uintptr(badAddr), 0), verdict: Rejected, err: linuxerr.EFAULT},
		{name: "open null path", frame: arch.NewSyscallFrame(2, 0, 0), verdict: Continue},
		{name: "openat uses arg1", frame: arch.NewSyscallFrame(257, uintptr(badAddr), 0x1000, 0), verdict: Continue},
		{name: "stat bad buffer", frame: arch.NewSyscallFrame(4, 0x1000, uintptr(mmapEnd-100)), verdict: Rejected, err: linuxerr.EFAULT},
		{name: "stat valid", frame: arch.NewSyscallFrame(4, 0x1000, uintptr(mmapEnd-linux.SizeOfStat)), verdict: Continue},
		{name: "stat bad path first", frame: arch.NewSyscallFrame(4, uintptr(badAddr), 0x3000), verdict: Rejected, err: linuxerr.EFAULT},
		{name: "uname straddling", frame: arch.NewSyscallFrame(63, uintptr(elfMax-100)), verdict: Rejected, err: linuxerr.EFAULT},
		{name: "time null", frame: arch.NewSyscallFrame(201, 0), verdict: Continue},
		{name: "time bad", frame: arch.NewSyscallFrame(201, uintptr(badAddr)), verdict: Rejected, err: linuxerr.EFAULT},
		{name: "epoll_wait valid", frame: arch.NewSyscallFrame(232, 4, 0x4000, 10, 0), verdict: Continue},
		{name: "epoll_wait overflow", frame: arch.NewSyscallFrame(232, 4, 0x4000, ^uintptr(0)/4, 0), verdict: Rejected, err: linuxerr.EFAULT},
		{name: "epoll_wait too long", frame: arch.NewSyscallFrame(232, 4, uintptr(elfMax-24), 3, 0), verdict: Rejected, err: linuxerr.EFAULT},
		{name: "setgroups negative size", frame: arch.NewSyscallFrame(116, ^uintptr(0), 0x4000), verdict: Rejected, err: linuxerr.EFAULT},
		{name: "setgroups valid", frame: arch.NewSyscallFrame(116, 4, 0x4000), verdict: Continue},
		{name: "setsockopt bad optval", frame: arch.NewSyscallFrame(54, 3, 1, 2, uintptr(badAddr), 4), verdict: Rejected, err: linuxerr.EFAULT},
		{name: "mmap unchecked", frame: arch.NewSyscallFrame(9, uintptr(badAddr), 0x1000, 3, 0x22, ^uintptr(0), 0), verdict: Continue},
	})
}

func putIovec(mem usermem.IO, addr hostarch.Addr, base hostarch.Addr, length uint64) {
	var buf [16]byte
	hostarch.ByteOrder.PutUint64(buf[:], uint64(base))
	hostarch.ByteOrder.PutUint64(buf[8:], length)
	mem.CopyOut(addr, buf[:])
}

func TestVectorChecks(t *testing.T) {
	v, mem := newValidator(t)
	putIovec(mem, 0x5000, 0x6000, 0x10)
	putIovec(mem, 0x5010, mmapBase, 0x20)
	putIovec(mem, 0x7000, badAddr, 1)

	runCheckTests(t, v, []checkTest{
		{name: "writev valid", frame: arch.NewSyscallFrame(20, 1, 0x5000, 2), verdict: Continue},
		{name: "writev bad element", frame: arch.NewSyscallFrame(20, 1, 0x7000, 1), verdict: Rejected, err: linuxerr.EFAULT},
		{name: "readv bad array", frame: arch.NewSyscallFrame(19, 0, uintptr(badAddr), 1), verdict: Rejected, err: linuxerr.EFAULT},
		{name: "readv too many", frame: arch.NewSyscallFrame(19, 0, 0x5000, linux.UIO_MAXIOV+1), verdict: Rejected, err: linuxerr.EINVAL},
	})
}

func TestCustomChecks(t *testing.T) {
	v, mem := newValidator(t)
	var socklen [4]byte
	hostarch.ByteOrder.PutUint32(socklen[:], 16)
	mem.CopyOut(0x8000, socklen[:])
	hostarch.ByteOrder.PutUint32(socklen[:], 0x1000)
	mem.CopyOut(0x8010, socklen[:])

	runCheckTests(t, v, []checkTest{
		{name: "close stdin", frame: arch.NewSyscallFrame(3, 0), verdict: Handled, ret: 0},
		{name: "close stderr", frame: arch.NewSyscallFrame(3, 2), verdict: Handled, ret: 0},
		{name: "close regular", frame: arch.NewSyscallFrame(3, 3), verdict: Continue},
		{name: "close negative", frame: arch.NewSyscallFrame(3, ^uintptr(0)), verdict: Continue},
		{name: "close stdout high bits", frame: arch.NewSyscallFrame(3, 1<<32|1), verdict: Handled, ret: 0},
		{name: "close regular high bits", frame: arch.NewSyscallFrame(3, 1<<32|3), verdict: Continue},
		{name: "fcntl getfl", frame: arch.NewSyscallFrame(72, 3, linux.F_GETFL), verdict: Continue},
		{name: "fcntl dupfd cloexec", frame: arch.NewSyscallFrame(72, 3, linux.F_DUPFD_CLOEXEC, 10), verdict: Continue},
		{name: "fcntl setlk", frame: arch.NewSyscallFrame(72, 3, linux.F_SETLK, uintptr(badAddr)), verdict: Rejected, err: linuxerr.EFAULT},
		{name: "ioctl no direction", frame: arch.NewSyscallFrame(16, 1, linux.TCGETS, uintptr(badAddr)), verdict: Continue},
		{name: "ioctl read valid", frame: arch.NewSyscallFrame(16, 1, linux.TIOCGPTN, 0x9000), verdict: Continue},
		{name: "ioctl read bad", frame: arch.NewSyscallFrame(16, 1, linux.TIOCGPTN, uintptr(badAddr)), verdict: Rejected, err: linuxerr.EFAULT},
		{name: "ioctl size past end", frame: arch.NewSyscallFrame(16, 1, uintptr(linux.IOR('x', 1, 0x100)), uintptr(elfMax-0x80)), verdict: Rejected, err: linuxerr.EFAULT},
		{name: "accept null addrlen", frame: arch.NewSyscallFrame(43, 3, uintptr(badAddr), 0), verdict: Continue},
		{name: "accept bad addrlen", frame: arch.NewSyscallFrame(43, 3, 0x9000, uintptr(badAddr)), verdict: Rejected, err: linuxerr.EFAULT},
		{name: "accept valid", frame: arch.NewSyscallFrame(43, 3, 0x9000, 0x8000), verdict: Continue},
		{name: "accept addr too long", frame: arch.NewSyscallFrame(43, 3, uintptr(elfMax-0x800), 0x8010), verdict: Rejected, err: linuxerr.EFAULT},
		{name: "rt_sigaction valid", frame: arch.NewSyscallFrame(13, 2, 0xa000, 0xb000, 8), verdict: Continue},
		{name: "rt_sigaction bad act", frame: arch.NewSyscallFrame(13, 2, uintptr(badAddr), 0, 8), verdict: Rejected, err: linuxerr.EFAULT},
		{name: "rt_sigaction bad oldact", frame: arch.NewSyscallFrame(13, 2, 0, uintptr(badAddr), 8), verdict: Rejected, err: linuxerr.EFAULT},
		{name: "arch_prctl get_fs bad", frame: arch.NewSyscallFrame(158, linux.ARCH_GET_FS, uintptr(badAddr)), verdict: Rejected, err: linuxerr.EFAULT},
		{name: "arch_prctl get_fs valid", frame: arch.NewSyscallFrame(158, linux.ARCH_GET_FS, 0xc000), verdict: Continue},
		{name: "arch_prctl set_fs unchecked", frame: arch.NewSyscallFrame(158, linux.ARCH_SET_FS, uintptr(badAddr)), verdict: Continue},
	})
}

func TestSyscallName(t *testing.T) {
	if got := AMD64.SyscallName(257); got != "openat" {
		t.Errorf("SyscallName(257) = %q", got)
	}
	if got := AMD64.SyscallName(186); got != "gettid" {
		t.Errorf("SyscallName(gettid) = %q", got)
	}
	if got := AMD64.SyscallName(100000); got != "sys_100000" {
		t.Errorf("SyscallName(100000) = %q", got)
	}
}

func TestNewTableCopies(t *testing.T) {
	checks := []Check{String(arch.Arg0)}
	tbl := NewTable("test", map[uintptr]Rule{2: {Name: "open", Checks: checks}})
	checks[0] = Buffer(arch.Arg1, arch.Arg2)
	r, _ := tbl.Lookup(2)
	if r.Checks[0].Kind != KindString {
		t.Errorf("mutating the caller's slice changed the table: %v", r.Checks[0])
	}
}

func BenchmarkCheckParams(b *testing.B) {
	l, _ := addrspace.NewLayout(elfMax, mmapBase, mmapLen)
	v := addrspace.NewValidator(l, usermem.NewPagedIO(l.Ranges()...))
	f := arch.NewSyscallFrame(0, 3, 0x2000, 0x100)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		AMD64.CheckParams(v, f)
	}
}
