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
	"testing"

	"golang.org/x/sys/unix"

	"boxer.dev/boxer/pkg/arch"
	"boxer.dev/boxer/pkg/errors/linuxerr"
	"boxer.dev/boxer/pkg/hostarch"
)

func TestOffsetTranslator(t *testing.T) {
	for _, tc := range []struct {
		t    Translator
		page hostarch.Addr
		want uintptr
	}{
		{OffsetTranslator(0), 0x1000, 0x1000},
		{OffsetTranslator(0x40000000), 0x1000, 0x40001000},
		{TranslatorFunc(func(p hostarch.Addr) uintptr { return uintptr(p) >> 1 }), 0x2000, 0x1000},
	} {
		if got := tc.t.Translate(tc.page); got != tc.want {
			t.Errorf("Translate(%v) = %#x, want %#x", tc.page, got, tc.want)
		}
	}
}

func TestHostKernel(t *testing.T) {
	var k HostKernel
	args := arch.SyscallArguments{}
	if got := k.Syscall(unix.SYS_GETPID, &args); got != uintptr(unix.Getpid()) {
		t.Errorf("getpid = %d, want %d", got, unix.Getpid())
	}

	// close(-1) fails with EBADF.
	args[0].Value = ^uintptr(0)
	_, err := linuxerr.FromReturn(k.Syscall(unix.SYS_CLOSE, &args))
	if !linuxerr.Equals(linuxerr.EBADF, err) {
		t.Errorf("close(-1) error = %v, want EBADF", err)
	}
}
