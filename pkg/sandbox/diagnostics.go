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
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"boxer.dev/boxer/pkg/arch"
)

// FrameRecord is the diagnostic dump of a trap frame.
type FrameRecord struct {
	Time      time.Time `cbor:"time"`
	Guest     string    `cbor:"guest"`
	Vector    uint64    `cbor:"vector"`
	Sysno     uint64    `cbor:"sysno,omitempty"`
	Args      []uint64  `cbor:"args,omitempty"`
	FaultAddr uint64    `cbor:"fault_addr"`
	ErrorCode uint64    `cbor:"error_code"`
	CS        uint64    `cbor:"cs"`
	RIP       uint64    `cbor:"rip"`
	RSP       uint64    `cbor:"rsp"`
}

// encMode is Core Deterministic Encoding with nanosecond timestamps.
var encMode cbor.EncMode

func init() {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	var err error
	encMode, err = opts.EncMode()
	if err != nil {
		panic("sandbox: CBOR encoder initialization failed: " + err.Error())
	}
}

// Diagnostics writes a CBOR sequence of FrameRecords. A nil *Diagnostics
// discards everything.
type Diagnostics struct {
	mu  sync.Mutex
	enc *cbor.Encoder
	now func() time.Time
}

// NewDiagnostics returns a Diagnostics writing to w.
func NewDiagnostics(w io.Writer) *Diagnostics {
	return &Diagnostics{enc: encMode.NewEncoder(w), now: time.Now}
}

// Record appends a dump of f.
func (d *Diagnostics) Record(guest string, f *arch.TrapFrame) error {
	if d == nil {
		return nil
	}
	r := FrameRecord{
		Guest:     guest,
		Vector:    uint64(f.Vector),
		FaultAddr: uint64(f.FaultAddr),
		ErrorCode: f.ErrorCode,
		CS:        f.CS,
		RIP:       f.RIP,
		RSP:       f.RSP,
	}
	if f.Vector == arch.Syscall {
		r.Sysno = uint64(f.Sysno)
		r.Args = make([]uint64, len(f.Args))
		for i, a := range f.Args {
			r.Args[i] = a.Uint64()
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	r.Time = d.now()
	return d.enc.Encode(r)
}

// ReadRecords decodes a CBOR sequence of FrameRecords from r.
func ReadRecords(r io.Reader) ([]FrameRecord, error) {
	dec := cbor.NewDecoder(r)
	var records []FrameRecord
	for {
		var rec FrameRecord
		err := dec.Decode(&rec)
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return records, fmt.Errorf("record %d: %w", len(records), err)
		}
		records = append(records, rec)
	}
}
