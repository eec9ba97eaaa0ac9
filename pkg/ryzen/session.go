// Copyright 2021 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ryzen adjusts power, current, thermal and clock limits of Ryzen
// mobile APUs through the SMU.
//
// Open a Session, call Adjust as often as needed, then Close it. A Session
// drives a single hardware mailbox and is not safe for concurrent use:
// callers sharing one must hold a lock around each call. Two sessions on the
// same machine race on the same registers, so keep at most one open at a
// time. Nothing in this package enforces either rule.
package ryzen

import (
	"context"
	"errors"
	"fmt"

	"github.com/u-root/u-smu/pkg/cpu"
	"github.com/u-root/u-smu/pkg/logger"
	"github.com/u-root/u-smu/pkg/metric"
	"github.com/u-root/u-smu/pkg/smu"
)

// MinInterfaceVersion is the lowest BIOS interface version of an SMU that
// understands the command table.
const MinInterfaceVersion = 0x5

var (
	log = logger.LogContainer.GetSimpleLogger()

	opens = metric.CounterVec(metric.MetricOpts{
		Subsystem: "session",
		Name:      "opens_total",
		Help:      "Session open attempts by outcome.",
	}, []string{"result"})

	ErrUnsupportedCPU       = errors.New("unsupported cpu")
	ErrHardwareUnavailable  = errors.New("hardware unavailable")
	ErrIncompatibleFirmware = errors.New("incompatible firmware")
	ErrClosed               = errors.New("session closed")
)

// Session owns the hardware handles of one Ryzen SMU. It is read-only
// after Open and not safe for concurrent use.
type Session struct {
	family    cpu.Family
	ifVersion uint32

	pci  PCIHandle
	nb   NorthbridgeHandle
	mp1  Endpoint
	psmu Endpoint

	closed bool
}

// releaser holds the release functions of everything acquired so far.
type releaser []func()

func (r *releaser) push(f func()) {
	*r = append(*r, f)
}

func (r releaser) release() {
	for i := len(r) - 1; i >= 0; i-- {
		r[i]()
	}
}

// Open acquires PCI access, the northbridge and both SMU mailboxes, then
// checks the firmware interface version. On any failure everything acquired
// so far is released again, newest first, and the returned error wraps
// ErrUnsupportedCPU, ErrHardwareUnavailable or ErrIncompatibleFirmware.
func Open(ctx context.Context, a Access) (*Session, error) {
	family := a.DetectFamily()
	if family == cpu.Unknown {
		opens.WithLabelValues("unsupported_cpu").Inc()
		return nil, ErrUnsupportedCPU
	}

	var acquired releaser
	unavailable := func(what string, err error) error {
		acquired.release()
		log.Warnf("Unable to get %s: %v", what, err)
		opens.WithLabelValues("hardware_unavailable").Inc()
		return fmt.Errorf("%w: %s: %v", ErrHardwareUnavailable, what, err)
	}

	pci, err := a.OpenPCI()
	if err != nil {
		return nil, unavailable("PCI access", err)
	}
	acquired.push(pci.Close)

	nb, err := a.OpenNorthbridge(pci)
	if err != nil {
		return nil, unavailable("northbridge", err)
	}
	acquired.push(nb.Close)

	mp1, err := a.OpenEndpoint(ctx, nb, smu.MP1)
	if err != nil {
		return nil, unavailable("MP1 SMU", err)
	}
	acquired.push(mp1.Close)

	psmu, err := a.OpenEndpoint(ctx, nb, smu.PSMU)
	if err != nil {
		return nil, unavailable("PSMU SMU", err)
	}
	acquired.push(psmu.Close)

	// The status is not checked, firmware without the query leaves arg0 at 0.
	args, _, err := mp1.Request(ctx, smu.OpGetIfVersion, smu.Args{})
	if err != nil {
		return nil, unavailable("BIOS interface version", err)
	}
	ver := args[0]
	if ver < MinInterfaceVersion {
		acquired.release()
		log.Warnf("Not a Ryzen NB SMU, BIOS interface version %#x", ver)
		opens.WithLabelValues("incompatible_firmware").Inc()
		return nil, fmt.Errorf("%w: BIOS interface version %#x, need %#x", ErrIncompatibleFirmware, ver, MinInterfaceVersion)
	}

	opens.WithLabelValues("ok").Inc()
	log.Infof("Opened %v SMU session, BIOS interface version %#x", family, ver)
	return &Session{
		family:    family,
		ifVersion: ver,
		pci:       pci,
		nb:        nb,
		mp1:       mp1,
		psmu:      psmu,
	}, nil
}

// Close releases the PSMU and MP1 mailboxes, the northbridge and PCI access,
// in that order. Closing a nil or already closed Session does nothing.
func (s *Session) Close() {
	if s == nil || s.closed {
		return
	}
	s.closed = true
	s.psmu.Close()
	s.mp1.Close()
	s.nb.Close()
	s.pci.Close()
	s.psmu, s.mp1, s.nb, s.pci = nil, nil, nil, nil
}

// Family returns the CPU family the session was opened for.
func (s *Session) Family() cpu.Family {
	return s.family
}

// InterfaceVersion returns the SMU interface version reported at Open.
func (s *Session) InterfaceVersion() uint32 {
	return s.ifVersion
}
