// Copyright 2021 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package smu talks to the mailboxes of the System Management Unit.
//
// A mailbox is three SMN registers: a message register taking the opcode,
// a response register the firmware sets non-zero when it is done, and six
// consecutive argument registers used in both directions. Only one command
// can be in flight per mailbox, callers must serialize.
package smu

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/u-root/u-smu/config"
	"github.com/u-root/u-smu/pkg/logger"
	"github.com/u-root/u-smu/pkg/metric"
)

var (
	log = logger.LogContainer.GetSimpleLogger()

	requests = metric.CounterVec(metric.MetricOpts{
		Subsystem: "mailbox",
		Name:      "requests_total",
		Help:      "Mailbox requests by endpoint and firmware status.",
	}, []string{"endpoint", "status"})

	ErrTimeout = errors.New("smu mailbox timed out")
	ErrClosed  = errors.New("smu endpoint closed")

	errBusy = errors.New("response register not set")
)

// Opcodes understood by every endpoint.
const (
	OpTestMessage  uint8 = 0x1
	OpGetIfVersion uint8 = 0x3
)

// Kind names one of the two SMU mailboxes.
type Kind int

const (
	MP1 Kind = iota
	PSMU
)

func (k Kind) String() string {
	switch k {
	case MP1:
		return "mp1"
	case PSMU:
		return "psmu"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Status is the response register as left by the firmware. Only the low
// byte carries a defined code, anything above it is garbage and never OK.
type Status uint32

const (
	StatusOK             Status = 0x01
	StatusRejectedBusy   Status = 0xFC
	StatusRejectedPrereq Status = 0xFD
	StatusUnknownCommand Status = 0xFE
	StatusFailed         Status = 0xFF
)

var statusNames = map[Status]string{
	StatusOK:             "ok",
	StatusRejectedBusy:   "rejected_busy",
	StatusRejectedPrereq: "rejected_prereq",
	StatusUnknownCommand: "unknown_command",
	StatusFailed:         "failed",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("%#02x", uint32(s))
}

// Args are the six argument registers of a mailbox.
type Args [6]uint32

// Registers is 32 bit access to the SMN address space.
type Registers interface {
	Read32(addr uint32) (uint32, error)
	Write32(addr uint32, v uint32) error
}

// Mailbox holds the SMN register addresses of one mailbox.
type Mailbox struct {
	Message  uint32
	Response uint32
	Argument uint32
}

// MailboxFromConfig converts configured register addresses.
func MailboxFromConfig(c config.Mailbox) Mailbox {
	return Mailbox{Message: c.Message, Response: c.Response, Argument: c.Argument}
}

// Endpoint is an open mailbox. It is not safe for concurrent use.
type Endpoint struct {
	kind     Kind
	regs     Registers
	mb       Mailbox
	interval time.Duration
	retries  uint64
	closed   bool
}

// Open returns the endpoint after checking the firmware answers a test
// message on it.
func Open(ctx context.Context, regs Registers, kind Kind, mb Mailbox, p config.Poll) (*Endpoint, error) {
	e := newEndpoint(regs, kind, mb, p)
	_, st, err := e.Request(ctx, OpTestMessage, Args{})
	if err != nil {
		return nil, fmt.Errorf("%v test message: %w", kind, err)
	}
	if st != StatusOK {
		return nil, fmt.Errorf("%v test message: status %v", kind, st)
	}
	return e, nil
}

func newEndpoint(regs Registers, kind Kind, mb Mailbox, p config.Poll) *Endpoint {
	e := &Endpoint{kind: kind, regs: regs, mb: mb, interval: p.Interval}
	if p.Interval > 0 {
		e.retries = uint64(p.Timeout / p.Interval)
	}
	return e
}

func (e *Endpoint) Kind() Kind {
	return e.kind
}

// Request runs one mailbox transaction and returns the argument registers
// as left by the firmware together with its status.
func (e *Endpoint) Request(ctx context.Context, op uint8, args Args) (Args, Status, error) {
	if e.closed {
		return Args{}, 0, ErrClosed
	}
	// Wait for any previous command to finish before clobbering it.
	if _, err := e.waitResponse(ctx); err != nil {
		return Args{}, 0, fmt.Errorf("%v idle: %w", e.kind, err)
	}
	if err := e.regs.Write32(e.mb.Response, 0); err != nil {
		return Args{}, 0, err
	}
	for i, a := range args {
		if err := e.regs.Write32(e.mb.Argument+uint32(i)*4, a); err != nil {
			return Args{}, 0, err
		}
	}
	if err := e.regs.Write32(e.mb.Message, uint32(op)); err != nil {
		return Args{}, 0, err
	}
	rep, err := e.waitResponse(ctx)
	if err != nil {
		return Args{}, 0, fmt.Errorf("%v op %#02x: %w", e.kind, op, err)
	}
	var out Args
	for i := range out {
		v, err := e.regs.Read32(e.mb.Argument + uint32(i)*4)
		if err != nil {
			return Args{}, 0, err
		}
		out[i] = v
	}
	st := Status(rep)
	requests.WithLabelValues(e.kind.String(), st.String()).Inc()
	log.Debugf("%v op %#02x args %#x: %v -> %#x", e.kind, op, args, st, out)
	return out, st, nil
}

func (e *Endpoint) waitResponse(ctx context.Context) (uint32, error) {
	var rep uint32
	read := func() error {
		v, err := e.regs.Read32(e.mb.Response)
		if err != nil {
			return backoff.Permanent(err)
		}
		if v == 0 {
			return errBusy
		}
		rep = v
		return nil
	}
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(e.interval), e.retries), ctx)
	if err := backoff.Retry(read, b); err != nil {
		if errors.Is(err, errBusy) {
			return 0, ErrTimeout
		}
		return 0, err
	}
	return rep, nil
}

// Close detaches the endpoint. The mailbox registers are left as they are.
func (e *Endpoint) Close() {
	e.closed = true
}
