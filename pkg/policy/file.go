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

package policy

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/sys/unix"
	"gopkg.in/yaml.v3"

	"boxer.dev/boxer/pkg/syscalls"
)

// File is the on-disk form of a Policy.
//
// Example (TOML):
//
//	default = "deny"
//
//	[[syscalls]]
//	action = "allow"
//	names = ["read", "write", "close", "exit_group"]
//
//	[[syscalls]]
//	action = "allow"
//	names = ["fcntl"]
//	args = [["*", "== 0x3"], ["*", "== 0x4"]]
//
//	[[syscalls]]
//	action = "errno"
//	errno = "ENOENT"
//	names = ["open", "openat"]
type File struct {
	Default      string      `toml:"default" yaml:"default"`
	DefaultErrno string      `toml:"default_errno" yaml:"default_errno"`
	Syscalls     []GroupFile `toml:"syscalls" yaml:"syscalls"`
}

// GroupFile is the on-disk form of a Group.
type GroupFile struct {
	Action string `toml:"action" yaml:"action"`
	Errno  string `toml:"errno" yaml:"errno"`
	Value  int64  `toml:"value" yaml:"value"`

	// Names are syscall names, resolved against the amd64 ABI.
	Names []string `toml:"names" yaml:"names"`

	// Args are OR'ed argument rules applied to every name. Each rule is
	// up to six matchers in the form printed by Matcher.String.
	Args [][]string `toml:"args" yaml:"args"`
}

// Load reads a policy file. The format is chosen by extension: .toml, or
// .yaml/.yml.
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy: %w", err)
	}
	var f File
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&f); err != nil {
			return nil, fmt.Errorf("decoding %q: %w", path, err)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("decoding %q: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unknown policy format %q", ext)
	}
	p, err := f.Policy()
	if err != nil {
		return nil, fmt.Errorf("policy %q: %w", path, err)
	}
	return p, nil
}

// Policy converts f to a Policy.
func (f *File) Policy() (*Policy, error) {
	def := f.Default
	if def == "" {
		def = "deny"
	}
	defAction, err := parseAction(def, f.DefaultErrno, 0)
	if err != nil {
		return nil, fmt.Errorf("default: %w", err)
	}
	p := &Policy{Default: defAction}
	for i, gf := range f.Syscalls {
		g, err := gf.group()
		if err != nil {
			return nil, fmt.Errorf("syscalls[%d]: %w", i, err)
		}
		p.Groups = append(p.Groups, g)
	}
	return p, nil
}

func (gf *GroupFile) group() (Group, error) {
	a, err := parseAction(gf.Action, gf.Errno, gf.Value)
	if err != nil {
		return Group{}, err
	}
	if len(gf.Names) == 0 {
		return Group{}, fmt.Errorf("no syscall names")
	}
	var rules []Rule
	for j, args := range gf.Args {
		r, err := ParseRule(args)
		if err != nil {
			return Group{}, fmt.Errorf("args[%d]: %w", j, err)
		}
		rules = append(rules, r)
	}
	g := Group{Action: a, Rules: NewSyscallRules()}
	for _, name := range gf.Names {
		sysno, ok := syscalls.Number(name)
		if !ok {
			return Group{}, fmt.Errorf("unknown syscall %q", name)
		}
		if len(rules) == 0 {
			g.Rules.Merge(SyscallRules{sysno: nil})
			continue
		}
		for _, r := range rules {
			g.Rules.AddRule(sysno, r)
		}
	}
	return g, nil
}

// errnoByName maps "ENOENT" style names to their values.
var errnoByName = func() map[string]unix.Errno {
	m := make(map[string]unix.Errno)
	for e := unix.Errno(1); e < 4096; e++ {
		if name := unix.ErrnoName(e); name != "" {
			m[name] = e
		}
	}
	return m
}()

func parseAction(kind, errno string, value int64) (Action, error) {
	switch kind {
	case "allow":
		return Allow, nil
	case "deny":
		return Deny, nil
	case "errno":
		e, ok := errnoByName[errno]
		if !ok {
			return Action{}, fmt.Errorf("unknown errno %q", errno)
		}
		return Errno(e), nil
	case "return":
		return Return(uintptr(value)), nil
	default:
		return Action{}, fmt.Errorf("unknown action %q", kind)
	}
}

// ParseRule parses up to six matchers, one per argument: "*", "== V",
// "!= V", "> V", ">= V", "< V", "<= V" or "& M == V". Values may be
// negative and accept the prefixes understood by strconv with base 0.
func ParseRule(args []string) (Rule, error) {
	var r Rule
	if len(args) > len(r) {
		return r, fmt.Errorf("%d matchers for %d arguments", len(args), len(r))
	}
	for i, s := range args {
		m, err := ParseMatcher(s)
		if err != nil {
			return r, fmt.Errorf("arg%d: %w", i, err)
		}
		r[i] = m
	}
	return r, nil
}

// ParseMatcher parses the textual form of a single Matcher.
func ParseMatcher(s string) (Matcher, error) {
	fields := strings.Fields(s)
	if len(fields) == 1 && fields[0] == "*" {
		return MatchAny{}, nil
	}
	if len(fields) == 4 && fields[0] == "&" && fields[2] == "==" {
		mask, err := parseValue(fields[1])
		if err != nil {
			return nil, err
		}
		v, err := parseValue(fields[3])
		if err != nil {
			return nil, err
		}
		return MaskedEqual{Mask: mask, Value: v}, nil
	}
	if len(fields) != 2 {
		return nil, fmt.Errorf("malformed matcher %q", s)
	}
	v, err := parseValue(fields[1])
	if err != nil {
		return nil, err
	}
	switch fields[0] {
	case "==":
		return EqualTo(v), nil
	case "!=":
		return NotEqual(v), nil
	case ">":
		return GreaterThan(v), nil
	case ">=":
		return GreaterThanOrEqual(v), nil
	case "<":
		return LessThan(v), nil
	case "<=":
		return LessThanOrEqual(v), nil
	default:
		return nil, fmt.Errorf("unknown operator %q in %q", fields[0], s)
	}
}

func parseValue(s string) (uintptr, error) {
	if strings.HasPrefix(s, "-") {
		v, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return 0, fmt.Errorf("bad value %q: %w", s, err)
		}
		return uintptr(v), nil
	}
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("bad value %q: %w", s, err)
	}
	return uintptr(v), nil
}
