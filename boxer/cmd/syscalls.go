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
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/google/subcommands"

	"boxer.dev/boxer/pkg/syscalls"
)

// Syscalls implements subcommands.Command for the "syscalls" command.
type Syscalls struct {
	output string
}

// SyscallDoc describes the validation applied to one syscall.
type SyscallDoc struct {
	Num    uintptr  `json:"num"`
	Name   string   `json:"name"`
	Checks []string `json:"checks,omitempty"`
	Note   string   `json:"note,omitempty"`
}

type outputFunc func(io.Writer, string, []SyscallDoc) error

// A map of output type names to output functions.
var outputMap = map[string]outputFunc{
	"table": outputTable,
	"json":  outputJSON,
	"csv":   outputCSV,
}

// Name implements subcommands.Command.Name.
func (*Syscalls) Name() string {
	return "syscalls"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Syscalls) Synopsis() string {
	return "Print the argument checks applied to each syscall."
}

// Usage implements subcommands.Command.Usage.
func (*Syscalls) Usage() string {
	return `syscalls [options] - Print the argument checks applied to each syscall.

Syscalls that are not listed pass argument validation unchanged.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (s *Syscalls) SetFlags(f *flag.FlagSet) {
	f.StringVar(&s.output, "o", "table", "Output format (table, csv, json).")
}

// Execute implements subcommands.Command.Execute.
func (s *Syscalls) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	out, ok := outputMap[s.output]
	if !ok {
		return Errorf("Unsupported output format %q", s.output)
	}
	if err := out(os.Stdout, syscalls.AMD64.Name, syscallDocs(syscalls.AMD64)); err != nil {
		return Errorf("Error writing output: %v", err)
	}
	return subcommands.ExitSuccess
}

// syscallDocs returns the documentation of t, sorted by syscall number.
func syscallDocs(t *syscalls.Table) []SyscallDoc {
	entries := t.Entries()
	docs := make([]SyscallDoc, 0, len(entries))
	for _, e := range entries {
		d := SyscallDoc{Num: e.Sysno, Name: t.SyscallName(e.Sysno), Note: e.Rule.Note}
		for _, c := range e.Rule.Checks {
			d.Checks = append(d.Checks, c.String())
		}
		docs = append(docs, d)
	}
	return docs
}

// outputTable outputs the syscall info in tabular format.
func outputTable(w io.Writer, table string, docs []SyscallDoc) error {
	fmt.Fprintf(w, "%s:\n\n", table)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", "NUM", "NAME", "CHECKS", "NOTE"); err != nil {
		return err
	}
	for _, d := range docs {
		checks := strings.Join(d.Checks, ", ")
		if checks == "" {
			checks = "none"
		}
		if _, err := fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", d.Num, d.Name, checks, d.Note); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// outputJSON outputs the syscall info in JSON format.
func outputJSON(w io.Writer, table string, docs []SyscallDoc) error {
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(map[string][]SyscallDoc{table: docs})
}

// outputCSV outputs the syscall info in CSV format.
func outputCSV(w io.Writer, table string, docs []SyscallDoc) error {
	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write([]string{"Table", "Num", "Name", "Checks", "Note"}); err != nil {
		return err
	}
	for _, d := range docs {
		row := []string{table, strconv.FormatUint(uint64(d.Num), 10), d.Name, strings.Join(d.Checks, "; "), d.Note}
		if err := csvWriter.Write(row); err != nil {
			return err
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}
