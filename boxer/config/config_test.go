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

package config

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func newFlagSet(t *testing.T, args ...string) *flag.FlagSet {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse(%v) failed: %v", args, err)
	}
	return fs
}

func TestDefaults(t *testing.T) {
	c, err := NewFromFlags(newFlagSet(t))
	if err != nil {
		t.Fatalf("NewFromFlags failed: %v", err)
	}
	want := &Config{
		LogFormat:      "text",
		DebugLogFormat: "text",
		ELFMax:         DefaultELFMax,
		MmapBase:       DefaultMmapBase,
		MmapLen:        DefaultMmapLen,
		BrkBase:        DefaultBrkBase,
		BrkMax:         DefaultBrkMax,
	}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	l, err := c.Layout()
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}
	if got := l.Mmap().Start; uint64(got) != DefaultMmapBase {
		t.Errorf("mmap base = %v", got)
	}
}

func TestToFlagsFromFlags(t *testing.T) {
	args := []string{
		"--debug=true",
		"--elf-max=2147483648",
		"--policy=/etc/boxer/policy.toml",
		"--violation-log-interval=1s",
		"--page-table-nodes=64",
	}
	c, err := NewFromFlags(newFlagSet(t, args...))
	if err != nil {
		t.Fatalf("NewFromFlags failed: %v", err)
	}
	got := c.ToFlags()
	if diff := cmp.Diff(args, got, cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
		t.Errorf("ToFlags mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boxer.toml")
	const file = `
debug = true
log_format = "json"
mmap_base = 0x200000000000
page_table_nodes = 128
violation_log_interval = "250ms"
policy = "/from/file.toml"
`
	if err := os.WriteFile(path, []byte(file), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := NewFromFlags(newFlagSet(t, "--config="+path, "--policy=/from/flag.yaml"))
	if err != nil {
		t.Fatalf("NewFromFlags failed: %v", err)
	}
	if !c.Debug || c.LogFormat != "json" || c.MmapBase != 0x200000000000 || c.PageTableNodes != 128 {
		t.Errorf("file settings not applied: %+v", c)
	}
	if c.ViolationLogInterval != 250*time.Millisecond {
		t.Errorf("ViolationLogInterval = %v, want 250ms", c.ViolationLogInterval)
	}
	if c.PolicyFile != "/from/flag.yaml" {
		t.Errorf("PolicyFile = %q, want the flag value", c.PolicyFile)
	}
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		args []string
		err  string
	}{
		{[]string{"--log-format=xml"}, "invalid log format"},
		{[]string{"--debug-log-format=yaml"}, "invalid log format"},
		{[]string{"--page-table-nodes=-1"}, "page-table-nodes"},
		{[]string{"--mmap-len=0"}, "empty"},
		{[]string{"--mmap-base=0x1000"}, "overlap"},
		{[]string{"--brk-base=0x50000000", "--brk-max=0x20000000"}, "brk range"},
		{[]string{"--brk-max=0x80000000"}, "brk range"},
	} {
		_, err := NewFromFlags(newFlagSet(t, tc.args...))
		if err == nil || !strings.Contains(err.Error(), tc.err) {
			t.Errorf("NewFromFlags(%v) = %v, want error containing %q", tc.args, err, tc.err)
		}
	}
}
