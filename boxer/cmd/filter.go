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

	"github.com/google/subcommands"
	"golang.org/x/net/bpf"

	"boxer.dev/boxer/pkg/policy"
)

// Filter implements subcommands.Command for the "filter" command.
type Filter struct {
	policy string
	raw    bool
}

// Name implements subcommands.Command.Name.
func (*Filter) Name() string {
	return "filter"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Filter) Synopsis() string {
	return "Print the host seccomp filter derived from a policy."
}

// Usage implements subcommands.Command.Usage.
func (*Filter) Usage() string {
	return `filter [flags] - print the host seccomp filter.

The filter admits the syscalls boxer itself needs plus every syscall the
policy may allow. It is what --host-filter installs.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (fl *Filter) SetFlags(f *flag.FlagSet) {
	f.StringVar(&fl.policy, "policy", "", "policy file, overrides --policy.")
	f.BoolVar(&fl.raw, "raw", false, "print raw sock_filter tuples instead of assembly.")
}

// Execute implements subcommands.Command.Execute.
func (fl *Filter) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	path := fl.policy
	if conf := confFromArgs(args); path == "" && conf != nil {
		path = conf.PolicyFile
	}
	p := &policy.Policy{Default: policy.Deny}
	if path != "" {
		var err error
		if p, err = policy.Load(path); err != nil {
			return Errorf("%v", err)
		}
	}
	prog, err := policy.AssembleHostFilter(p)
	if err != nil {
		return Errorf("assembling filter: %v", err)
	}
	if err := printFilter(os.Stdout, prog, fl.raw); err != nil {
		return Errorf("writing filter: %v", err)
	}
	return subcommands.ExitSuccess
}

func printFilter(w io.Writer, prog []bpf.Instruction, raw bool) error {
	if !raw {
		for i, ins := range prog {
			if _, err := fmt.Fprintf(w, "%4d: %v\n", i, ins); err != nil {
				return err
			}
		}
		return nil
	}
	rawProg, err := bpf.Assemble(prog)
	if err != nil {
		return err
	}
	for _, ins := range rawProg {
		if _, err := fmt.Fprintf(w, "{ %#04x, %d, %d, %#08x },\n", ins.Op, ins.Jt, ins.Jf, ins.K); err != nil {
			return err
		}
	}
	return nil
}
