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

// Package sim provides a scripted platform: a substrate backed by sparse
// in-process memory, a kernel that records instead of executing, and a trap
// source that replays a fixed list of frames.
//
// It drives the trap layer in tests and in "boxer check".
package sim

import (
	"context"
	"io"
	"sync"

	"boxer.dev/boxer/pkg/arch"
	"boxer.dev/boxer/pkg/usermem"
)

// Code segment selectors used for scripted frames.
const (
	KernelCS = 0x10
	UserCS   = 0x33
)

// Substrate implements platform.Substrate for a scripted guest.
type Substrate struct {
	mem usermem.IO

	mu     sync.Mutex
	fs     uint64
	exited bool
	code   int
}

// NewSubstrate returns a substrate whose guest memory is mem.
func NewSubstrate(mem usermem.IO) *Substrate {
	return &Substrate{mem: mem}
}

// UserFS implements platform.Substrate.UserFS.
func (s *Substrate) UserFS() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fs
}

// SetUserFS implements platform.Substrate.SetUserFS.
func (s *Substrate) SetUserFS(base uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fs = base
}

// ReturnFromUser implements platform.Substrate.ReturnFromUser.
func (s *Substrate) ReturnFromUser(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exited {
		panic("ReturnFromUser called twice")
	}
	s.exited = true
	s.code = code
}

// Memory implements platform.Substrate.Memory.
func (s *Substrate) Memory() usermem.IO {
	return s.mem
}

// Exited returns the exit code passed to ReturnFromUser and whether it was
// called.
func (s *Substrate) Exited() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.code, s.exited
}

// Call is one system call received by Kernel.
type Call struct {
	Sysno uintptr
	Args  arch.SyscallArguments
}

// Kernel implements platform.Kernel without executing anything. Every call
// is recorded and answered with Result.
type Kernel struct {
	// Result is returned for every call.
	Result uintptr

	mu    sync.Mutex
	calls []Call
}

// Syscall implements platform.Kernel.Syscall.
func (k *Kernel) Syscall(sysno uintptr, args *arch.SyscallArguments) uintptr {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.calls = append(k.calls, Call{Sysno: sysno, Args: *args})
	return k.Result
}

// Calls returns the calls received so far.
func (k *Kernel) Calls() []Call {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]Call(nil), k.calls...)
}

// Source implements platform.TrapSource over a fixed list of frames.
type Source struct {
	mu        sync.Mutex
	frames    []*arch.TrapFrame
	next      int
	completed []*arch.TrapFrame
}

// NewSource returns a source that delivers frames in order.
func NewSource(frames ...*arch.TrapFrame) *Source {
	return &Source{frames: frames}
}

// Next implements platform.TrapSource.Next.
func (s *Source) Next(ctx context.Context) (*arch.TrapFrame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.next]
	s.next++
	return f, nil
}

// Complete implements platform.TrapSource.Complete.
func (s *Source) Complete(f *arch.TrapFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = append(s.completed, f)
	return nil
}

// Completed returns the frames passed to Complete, in order.
func (s *Source) Completed() []*arch.TrapFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*arch.TrapFrame(nil), s.completed...)
}
