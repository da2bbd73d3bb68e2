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
	"testing"

	"golang.org/x/sys/unix"

	"boxer.dev/boxer/pkg/errors/linuxerr"
	"boxer.dev/boxer/pkg/hostarch"
)

func TestArgumentAccessors(t *testing.T) {
	a := SyscallArgument{Value: ^uintptr(0)}
	if a.Int() != -1 {
		t.Errorf("Int() = %d, want -1", a.Int())
	}
	if a.Uint() != 0xffffffff {
		t.Errorf("Uint() = %#x, want 0xffffffff", a.Uint())
	}
	if a.ModeT() != 0xffff {
		t.Errorf("ModeT() = %#x, want 0xffff", a.ModeT())
	}
	if a.Pointer() != hostarch.Addr(^uintptr(0)) {
		t.Errorf("Pointer() = %v", a.Pointer())
	}
}

func TestFrameReturn(t *testing.T) {
	f := NewSyscallFrame(unix.SYS_READ, 0, 0x1000, 10)
	if f.ReturnSet() {
		t.Fatalf("fresh frame reports a written result")
	}
	if f.Arg(Arg1).Pointer() != 0x1000 || f.Arg(Arg2).SizeT() != 10 {
		t.Errorf("arguments not stored: %v", f)
	}
	f.SetError(linuxerr.EFAULT)
	if !f.ReturnSet() {
		t.Errorf("SetError did not mark the result")
	}
	if got := int64(f.Return()); got != -int64(unix.EFAULT) {
		t.Errorf("Return() = %d, want %d", got, -int64(unix.EFAULT))
	}
	if err := f.Error(); !linuxerr.Equals(linuxerr.EFAULT, err) {
		t.Errorf("Error() = %v, want EFAULT", err)
	}
	f.SetReturn(3)
	if f.Error() != nil {
		t.Errorf("Error() = %v for a success value", f.Error())
	}
	f.ResetReturn()
	if f.ReturnSet() || f.Return() != 0 {
		t.Errorf("after ResetReturn: ReturnSet() = %t, Return() = %#x", f.ReturnSet(), f.Return())
	}
}

func TestIsUser(t *testing.T) {
	for _, tc := range []struct {
		cs   uint64
		user bool
	}{
		{0x10, false},
		{0x33, true},
		{0x2b, true},
		{0x08, false},
	} {
		f := &TrapFrame{Vector: PageFault, CS: tc.cs}
		if f.IsUser() != tc.user {
			t.Errorf("cs=%#x: IsUser() = %t, want %t", tc.cs, f.IsUser(), tc.user)
		}
	}
}

func TestFaultAccessType(t *testing.T) {
	if got := FaultAccessType(PageFaultWrite | PageFaultUser); got != hostarch.Write {
		t.Errorf("write fault decoded as %v", got)
	}
	if got := FaultAccessType(PageFaultInstruction); got != hostarch.Execute {
		t.Errorf("ifetch fault decoded as %v", got)
	}
	if got := FaultAccessType(0); got != hostarch.Read {
		t.Errorf("read fault decoded as %v", got)
	}
}

func TestVectorString(t *testing.T) {
	if PageFault != 14 {
		t.Fatalf("PageFault = %d, want 14", PageFault)
	}
	if got := PageFault.String(); got != "page fault" {
		t.Errorf("PageFault.String() = %q", got)
	}
	if got := Vector(0x42).String(); got != "vector 0x42" {
		t.Errorf("Vector(0x42).String() = %q", got)
	}
}
