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

// Package config provides basic infrastructure to set configuration settings
// for boxer. Each setting is a flag; the same settings may also be given in
// a TOML file passed with --config, in which case flags given explicitly on
// the command line win.
package config

import (
	"fmt"
	"reflect"
	"time"

	"boxer.dev/boxer/pkg/addrspace"
	"boxer.dev/boxer/pkg/hostarch"
	"boxer.dev/boxer/pkg/log"
)

// Config holds configuration that is not part of the guest itself.
type Config struct {
	// ConfigFile is the TOML file the other settings were read from.
	ConfigFile string `flag:"config" toml:"-"`

	// LogFilename is the filename to log to, if not empty.
	LogFilename string `flag:"log" toml:"log"`

	// LogFormat is the log format: "text" or "json".
	LogFormat string `flag:"log-format" toml:"log_format"`

	// Debug indicates that debug logging should be enabled.
	Debug bool `flag:"debug" toml:"debug"`

	// DebugLog is the path to log debug information to, if not empty.
	// %PID% is replaced with the process ID.
	DebugLog string `flag:"debug-log" toml:"debug_log"`

	// DebugLogFormat is the log format for debug logs.
	DebugLogFormat string `flag:"debug-log-format" toml:"debug_log_format"`

	// ELFMax is the end of the guest's ELF range, which starts at 0.
	ELFMax uint64 `flag:"elf-max" toml:"elf_max"`

	// MmapBase and MmapLen describe the guest's mmap range.
	MmapBase uint64 `flag:"mmap-base" toml:"mmap_base"`
	MmapLen  uint64 `flag:"mmap-len" toml:"mmap_len"`

	// BrkBase and BrkMax bound the guest's program break.
	BrkBase uint64 `flag:"brk-base" toml:"brk_base"`
	BrkMax  uint64 `flag:"brk-max" toml:"brk_max"`

	// PageTableNodes limits the page table nodes per guest. Zero means no
	// limit.
	PageTableNodes int `flag:"page-table-nodes" toml:"page_table_nodes"`

	// PolicyFile is the TOML or YAML policy. Without one every syscall is
	// denied.
	PolicyFile string `flag:"policy" toml:"policy"`

	// DiagnosticsFile receives CBOR frame dumps of guest violations.
	DiagnosticsFile string `flag:"diagnostics" toml:"diagnostics"`

	// HostFilter installs a seccomp filter on the boxer process that allows
	// only the syscalls the policy may forward.
	HostFilter bool `flag:"host-filter" toml:"host_filter"`

	// ViolationLogInterval limits how often guest violations are logged.
	ViolationLogInterval time.Duration `flag:"violation-log-interval" toml:"violation_log_interval"`
}

func (c *Config) validate() error {
	for _, f := range []string{c.LogFormat, c.DebugLogFormat} {
		if f != "text" && f != "json" {
			return fmt.Errorf("invalid log format %q, must be 'text' or 'json'", f)
		}
	}
	if c.PageTableNodes < 0 {
		return fmt.Errorf("page-table-nodes must be non-negative, got %d", c.PageTableNodes)
	}
	if c.ViolationLogInterval < 0 {
		return fmt.Errorf("violation-log-interval must be non-negative, got %v", c.ViolationLogInterval)
	}
	if _, err := c.Layout(); err != nil {
		return err
	}
	if c.BrkBase > c.BrkMax || c.BrkMax > c.ELFMax {
		return fmt.Errorf("brk range [%#x, %#x] must be ordered and below elf-max %#x", c.BrkBase, c.BrkMax, c.ELFMax)
	}
	return nil
}

// Layout returns the guest address layout described by c.
func (c *Config) Layout() (*addrspace.Layout, error) {
	return addrspace.NewLayout(hostarch.Addr(c.ELFMax), hostarch.Addr(c.MmapBase), c.MmapLen)
}

// Log logs important aspects of the configuration to the given log function.
func (c *Config) Log() {
	log.Infof("Config:")
	obj := reflect.ValueOf(c).Elem()
	st := obj.Type()
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if name, ok := f.Tag.Lookup("flag"); ok {
			log.Infof("\t%s: %s", name, getVal(obj.Field(i)))
		}
	}
}
