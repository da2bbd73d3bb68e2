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

package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/google/subcommands"
	"golang.org/x/sys/unix"

	"boxer.dev/boxer/boxer/config"
	"boxer.dev/boxer/pkg/arch"
	"boxer.dev/boxer/pkg/hostarch"
	"boxer.dev/boxer/pkg/log"
	"boxer.dev/boxer/pkg/mm"
	"boxer.dev/boxer/pkg/platform/sim"
	"boxer.dev/boxer/pkg/policy"
	"boxer.dev/boxer/pkg/ring0/pagetables"
	"boxer.dev/boxer/pkg/sandbox"
	"boxer.dev/boxer/pkg/usermem"
)

// Check implements subcommands.Command for the "check" command.
type Check struct {
	policy       string
	kernelResult int64
}

// Name implements subcommands.Command.Name.
func (*Check) Name() string {
	return "check"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Check) Synopsis() string {
	return "Replay a trap trace through a sandbox and print each outcome."
}

// Usage implements subcommands.Command.Usage.
func (*Check) Usage() string {
	return `check [flags] <trace.yaml> [<trace.yaml>...] - replay trap traces.

Each trace runs as its own guest with simulated memory. Syscalls that pass
validation and policy are answered by a dry-run kernel; nothing is executed
on the host.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (c *Check) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.policy, "policy", "", "policy file, overrides --policy.")
	f.Int64Var(&c.kernelResult, "kernel-result", 0, "value returned by the dry-run kernel for forwarded syscalls.")
}

// Execute implements subcommands.Command.Execute.
func (c *Check) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := confFromArgs(args)
	if conf == nil {
		return Errorf("no configuration")
	}
	if c.policy != "" {
		conf.PolicyFile = c.policy
	}

	gate, pol, err := loadGate(conf)
	if err != nil {
		return Errorf("%v", err)
	}

	var diag *sandbox.Diagnostics
	if conf.DiagnosticsFile != "" {
		unlock, err := lockDiagnostics(conf.DiagnosticsFile)
		if err != nil {
			return Errorf("%v", err)
		}
		defer unlock()
		df, err := os.OpenFile(conf.DiagnosticsFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return Errorf("opening diagnostics file: %v", err)
		}
		defer df.Close()
		diag = sandbox.NewDiagnostics(df)
	}

	var host sandbox.Host
	var reports []*report
	for _, path := range f.Args() {
		rep, err := c.addGuest(&host, conf, gate, diag, path)
		if err != nil {
			return Errorf("%v", err)
		}
		reports = append(reports, rep)
	}

	if conf.HostFilter && pol != nil {
		if err := policy.InstallHostFilter(pol); err != nil {
			return Errorf("installing host filter: %v", err)
		}
		log.Infof("Host seccomp filter installed")
	}

	runErr := host.Run(ctx)
	for i, g := range host.Guests() {
		reports[i].print(os.Stdout, g)
	}
	if runErr != nil {
		return Errorf("%v", runErr)
	}
	return subcommands.ExitSuccess
}

// loadGate returns a gate for the configured policy, or a gate that denies
// everything if there is none.
func loadGate(conf *config.Config) (*policy.Gate, *policy.Policy, error) {
	if conf.PolicyFile == "" {
		log.Warningf("No policy file, every syscall will be denied")
		return policy.NewGate(nil), nil, nil
	}
	p, err := policy.Load(conf.PolicyFile)
	if err != nil {
		return nil, nil, err
	}
	return policy.NewGate(policy.NewRuleMonitor(p).Monitor()), p, nil
}

type traceResult struct {
	trap    string
	outcome sandbox.Outcome
	result  string
}

// report collects the per-trap results of one guest.
type report struct {
	name    string
	results []traceResult
}

func (c *Check) addGuest(host *sandbox.Host, conf *config.Config, gate *policy.Gate, diag *sandbox.Diagnostics, path string) (*report, error) {
	trace, err := sim.LoadTrace(path)
	if err != nil {
		return nil, err
	}
	frames, err := trace.Frames()
	if err != nil {
		return nil, fmt.Errorf("trace %q: %w", path, err)
	}
	layout, err := conf.Layout()
	if err != nil {
		return nil, err
	}
	mem := usermem.NewPagedIO(layout.Ranges()...)
	if err := trace.Populate(mem); err != nil {
		return nil, fmt.Errorf("trace %q: %w", path, err)
	}
	pt, err := pagetables.New(pagetables.NewArenaAllocator(conf.PageTableNodes))
	if err != nil {
		return nil, err
	}

	s, err := sandbox.New(sandbox.Config{
		Name:       path,
		Layout:     layout,
		Substrate:  sim.NewSubstrate(mem),
		Gate:       gate,
		MM:         mm.NewSimple(hostarch.Addr(conf.BrkBase), hostarch.Addr(conf.BrkMax), layout.Mmap()),
		Kernel:     &sim.Kernel{Result: uintptr(c.kernelResult)},
		PageTables: pt,
		Abort: func(err error) {
			log.Warningf("%s: guest aborted: %v", path, err)
		},
		ViolationLogInterval: conf.ViolationLogInterval,
		Diagnostics:          diag,
	})
	if err != nil {
		return nil, err
	}

	rep := &report{name: path}
	g := host.Add(s, sim.NewSource(frames...))
	g.Observe = func(f *arch.TrapFrame, r sandbox.Result) {
		rep.results = append(rep.results, traceResult{
			trap:    describeTrap(s, f),
			outcome: r.Outcome,
			result:  describeResult(f, r),
		})
	}
	return rep, nil
}

func describeTrap(s *sandbox.Sandbox, f *arch.TrapFrame) string {
	switch f.Vector {
	case arch.Syscall:
		return fmt.Sprintf("%s(%#x, %#x, %#x)", s.Table().SyscallName(f.Sysno), f.Args[0].Value, f.Args[1].Value, f.Args[2].Value)
	case arch.PageFault:
		mode := "kernel"
		if f.IsUser() {
			mode = "user"
		}
		return fmt.Sprintf("%s fault at %v", mode, f.FaultAddr)
	default:
		return f.Vector.String()
	}
}

func describeResult(f *arch.TrapFrame, r sandbox.Result) string {
	switch {
	case r.Err != nil:
		return r.Err.Error()
	case r.Outcome == sandbox.Exited:
		return fmt.Sprintf("exit %d", r.ExitCode)
	case !f.ReturnSet():
		return "-"
	}
	if err := f.Error(); err != nil {
		return unix.ErrnoName(err.Errno())
	}
	return fmt.Sprintf("%#x", f.Return())
}

func (rep *report) print(w io.Writer, g *sandbox.Guest) {
	fmt.Fprintf(w, "%s:\n\n", rep.name)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "#\tTRAP\tOUTCOME\tRESULT\n")
	for i, r := range rep.results {
		fmt.Fprintf(tw, "%d\t%s\t%v\t%s\n", i, r.trap, r.outcome, r.result)
	}
	tw.Flush()

	stats := g.Sandbox.Stats()
	outcomes := make([]sandbox.Outcome, 0, len(stats))
	for o := range stats {
		outcomes = append(outcomes, o)
	}
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i] < outcomes[j] })
	fmt.Fprintf(w, "\n%d traps:", g.Traps())
	for _, o := range outcomes {
		fmt.Fprintf(w, " %v=%d", o, stats[o])
	}
	if code, ok := g.Exited(); ok {
		fmt.Fprintf(w, ", exited with code %d", code)
	}
	fmt.Fprintf(w, "\n\n")
}
