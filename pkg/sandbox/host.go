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
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/sync/errgroup"

	"boxer.dev/boxer/pkg/arch"
	"boxer.dev/boxer/pkg/platform"
)

// Guest pairs a Sandbox with the source of its traps.
type Guest struct {
	Sandbox *Sandbox
	Source  platform.TrapSource

	// Observe, if set, is called after each trap is handled.
	Observe func(f *arch.TrapFrame, r Result)

	traps    uint64
	exited   bool
	exitCode int
}

// Exited returns the guest's exit code and whether it exited. It is valid
// once Host.Run has returned.
func (g *Guest) Exited() (int, bool) {
	return g.exitCode, g.exited
}

// Traps returns the number of traps the guest raised.
func (g *Guest) Traps() uint64 {
	return g.traps
}

// Host runs several guests concurrently, one OS thread each.
type Host struct {
	guests []*Guest
}

// Add registers a guest to be run by h.
func (h *Host) Add(s *Sandbox, src platform.TrapSource) *Guest {
	g := &Guest{Sandbox: s, Source: src}
	h.guests = append(h.guests, g)
	return g
}

// Guests returns the registered guests.
func (h *Host) Guests() []*Guest {
	return h.guests
}

// Run runs all guests until each has exited or run out of traps. A fatal
// paging failure or a trap source error in any guest cancels the others and
// is returned.
func (h *Host) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, guest := range h.guests {
		guest := guest
		g.Go(func() error {
			// Traps are delivered on the vCPU thread.
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			return guest.run(ctx)
		})
	}
	return g.Wait()
}

func (g *Guest) run(ctx context.Context) error {
	name := g.Sandbox.Name()
	for {
		f, err := g.Source.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("guest %q: %w", name, err)
		}
		g.traps++
		r := g.Sandbox.HandleTrap(f)
		if g.Observe != nil {
			g.Observe(f, r)
		}
		switch {
		case r.Outcome == FatalPagingFailure:
			return fmt.Errorf("guest %q: %w", name, r.Err)
		case r.Action == Exit:
			g.exited = true
			g.exitCode = r.ExitCode
			return nil
		}
		if err := g.Source.Complete(f); err != nil {
			return fmt.Errorf("guest %q: resuming: %w", name, err)
		}
	}
}
