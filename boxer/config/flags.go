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
	"fmt"
	"reflect"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Default guest layout.
const (
	DefaultELFMax   = 0x70000000
	DefaultMmapBase = 0x100000000000
	DefaultMmapLen  = 0x3fc00000
	DefaultBrkBase  = 0x10000000
	DefaultBrkMax   = 0x40000000
)

// RegisterFlags registers flags used to populate Config.
func RegisterFlags(flagSet *flag.FlagSet) {
	flagSet.String("config", "", "TOML file with settings; flags given on the command line take precedence.")

	// Debugging flags.
	flagSet.String("log", "", "file path where internal debug information is written, default is stderr.")
	flagSet.String("log-format", "text", "log format: text (default) or json.")
	flagSet.Bool("debug", false, "enable debug logging.")
	flagSet.String("debug-log", "", "additional location for logs. %PID% is replaced with the process ID.")
	flagSet.String("debug-log-format", "text", "log format: text (default) or json.")
	flagSet.String("diagnostics", "", "file path where CBOR dumps of guest protocol violations are appended.")
	flagSet.Duration("violation-log-interval", 0, "minimum interval between guest violation log messages. Zero logs all.")

	// Guest layout flags.
	flagSet.Uint64("elf-max", DefaultELFMax, "end of the guest ELF range [0, elf-max).")
	flagSet.Uint64("mmap-base", DefaultMmapBase, "start of the guest mmap range.")
	flagSet.Uint64("mmap-len", DefaultMmapLen, "length of the guest mmap range.")
	flagSet.Uint64("brk-base", DefaultBrkBase, "initial program break of the guest.")
	flagSet.Uint64("brk-max", DefaultBrkMax, "highest program break of the guest.")
	flagSet.Int("page-table-nodes", 0, "maximum page table nodes per guest, 0 for no limit.")

	// Policy flags.
	flagSet.String("policy", "", "TOML or YAML syscall policy. Without a policy every syscall is denied.")
	flagSet.Bool("host-filter", false, "install a seccomp filter on boxer itself that allows only syscalls the policy may forward.")
}

// NewFromFlags creates a new Config with values coming from command line
// flags, overlaid on the file named by --config if any.
func NewFromFlags(flagSet *flag.FlagSet) (*Config, error) {
	conf := &Config{}

	obj := reflect.ValueOf(conf).Elem()
	st := obj.Type()
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		name, ok := f.Tag.Lookup("flag")
		if !ok {
			// No flag set for this field.
			continue
		}
		fl := flagSet.Lookup(name)
		if fl == nil {
			panic(fmt.Sprintf("Flag %q not found", name))
		}
		x := reflect.ValueOf(fl.Value.(flag.Getter).Get())
		obj.Field(i).Set(x)
	}

	if conf.ConfigFile != "" {
		if _, err := toml.DecodeFile(conf.ConfigFile, conf); err != nil {
			return nil, fmt.Errorf("reading config %q: %w", conf.ConfigFile, err)
		}
		// Explicit flags override the file.
		var err error
		flagSet.Visit(func(fl *flag.Flag) {
			if err == nil {
				err = conf.set(fl)
			}
		})
		if err != nil {
			return nil, err
		}
	}

	if err := conf.validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// set copies the value of fl into the matching field, if any.
func (c *Config) set(fl *flag.Flag) error {
	obj := reflect.ValueOf(c).Elem()
	st := obj.Type()
	for i := 0; i < st.NumField(); i++ {
		if name, ok := st.Field(i).Tag.Lookup("flag"); ok && name == fl.Name {
			getter, ok := fl.Value.(flag.Getter)
			if !ok {
				return fmt.Errorf("flag %q has no getter", fl.Name)
			}
			obj.Field(i).Set(reflect.ValueOf(getter.Get()))
			return nil
		}
	}
	return nil
}

// ToFlags returns a slice of flags that correspond to the given Config.
func (c *Config) ToFlags() []string {
	var rv []string

	// Construct a temporary set for default plumbing.
	flagSet := flag.NewFlagSet("tmp", flag.ContinueOnError)
	RegisterFlags(flagSet)

	obj := reflect.ValueOf(c).Elem()
	st := obj.Type()
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		name, ok := f.Tag.Lookup("flag")
		if !ok {
			// No flag set for this field.
			continue
		}
		val := getVal(obj.Field(i))

		flag := flagSet.Lookup(name)
		if flag == nil {
			panic(fmt.Sprintf("Flag %q not found", name))
		}
		if val == flag.DefValue {
			continue
		}
		rv = append(rv, fmt.Sprintf("--%s=%s", flag.Name, val))
	}
	return rv
}

func getVal(field reflect.Value) string {
	if str, ok := field.Addr().Interface().(fmt.Stringer); ok {
		return str.String()
	}
	switch field.Kind() {
	case reflect.Bool:
		return strconv.FormatBool(field.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(field.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(field.Uint(), 10)
	case reflect.String:
		return field.String()
	default:
		panic("unknown type " + field.Kind().String())
	}
}
