// Copyright 2021 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ryzen

import (
	"context"
	"fmt"

	"github.com/u-root/u-smu/pkg/metric"
	"github.com/u-root/u-smu/pkg/smu"
)

// Result is the outcome of Adjust.
type Result int

const (
	OK Result = iota
	// Rejected means the firmware refused the value.
	Rejected
	// Unsupported means the CPU family has no message for the Tunable and
	// nothing was sent.
	Unsupported
)

func (r Result) String() string {
	switch r {
	case OK:
		return "ok"
	case Rejected:
		return "rejected"
	case Unsupported:
		return "unsupported"
	}
	return fmt.Sprintf("result(%d)", int(r))
}

var adjusts = metric.CounterVec(metric.MetricOpts{
	Subsystem: "session",
	Name:      "adjust_total",
	Help:      "Adjust calls by tunable and result.",
}, []string{"tunable", "result"})

// Adjust sets t to value with a single MP1 mailbox request. value is passed
// through unchecked, the firmware decides what is in range. A non-nil error
// means the mailbox transaction itself failed and comes with Rejected.
func (s *Session) Adjust(ctx context.Context, t Tunable, value uint32) (Result, error) {
	if s == nil || s.closed {
		return Rejected, ErrClosed
	}
	op, ok := Opcode(s.family, t)
	if !ok {
		adjusts.WithLabelValues(t.String(), Unsupported.String()).Inc()
		return Unsupported, nil
	}
	_, st, err := s.mp1.Request(ctx, op, smu.Args{value})
	if err != nil {
		adjusts.WithLabelValues(t.String(), Rejected.String()).Inc()
		return Rejected, fmt.Errorf("%v: %w", t, err)
	}
	r := Rejected
	if st == smu.StatusOK {
		r = OK
	}
	adjusts.WithLabelValues(t.String(), r.String()).Inc()
	return r, nil
}
