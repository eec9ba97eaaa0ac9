// Copyright 2021 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ryzen

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"github.com/u-root/u-smu/config"
	"github.com/u-root/u-smu/pkg/cpu"
	"github.com/u-root/u-smu/pkg/logger"
	"github.com/u-root/u-smu/pkg/nb"
	"github.com/u-root/u-smu/pkg/pci"
	"github.com/u-root/u-smu/pkg/smu"
)

// PCIHandle is an open PCI configuration space accessor.
type PCIHandle interface {
	Close()
}

// NorthbridgeHandle is an open SMN register window.
type NorthbridgeHandle interface {
	Close()
}

// Endpoint is an open SMU mailbox.
type Endpoint interface {
	Request(ctx context.Context, op uint8, args smu.Args) (smu.Args, smu.Status, error)
	Close()
}

// Access is the hardware a Session is built from. Each Open call hands out
// a handle the caller owns until it calls Close on it.
type Access interface {
	DetectFamily() cpu.Family
	OpenPCI() (PCIHandle, error)
	OpenNorthbridge(PCIHandle) (NorthbridgeHandle, error)
	OpenEndpoint(context.Context, NorthbridgeHandle, smu.Kind) (Endpoint, error)
}

type systemAccess struct {
	fs     afero.Fs
	cfg    *config.Config
	detect func() cpu.Family
}

// NewSystemAccess returns the Access for the machine this process runs on,
// reaching the host bridge through sysfs on fs.
func NewSystemAccess(fs afero.Fs, cfg *config.Config) Access {
	return &systemAccess{fs: fs, cfg: cfg, detect: cpu.Detect}
}

// OpenSystem applies the logging settings of cfg and opens a Session on the
// local machine.
func OpenSystem(ctx context.Context, cfg *config.Config) (*Session, error) {
	if err := logger.LogContainer.Configure(cfg.Log); err != nil {
		return nil, err
	}
	return Open(ctx, NewSystemAccess(afero.NewOsFs(), cfg))
}

func (s *systemAccess) DetectFamily() cpu.Family {
	return s.detect()
}

func (s *systemAccess) OpenPCI() (PCIHandle, error) {
	d, err := pci.Open(s.fs, s.cfg.PCI.Address)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *systemAccess) OpenNorthbridge(h PCIHandle) (NorthbridgeHandle, error) {
	cs, ok := h.(nb.ConfigSpace)
	if !ok {
		return nil, fmt.Errorf("%T has no config space access", h)
	}
	return nb.Open(cs, s.cfg.Northbridge.IndexRegister, s.cfg.Northbridge.DataRegister), nil
}

func (s *systemAccess) OpenEndpoint(ctx context.Context, h NorthbridgeHandle, kind smu.Kind) (Endpoint, error) {
	regs, ok := h.(smu.Registers)
	if !ok {
		return nil, fmt.Errorf("%T has no SMN register access", h)
	}
	var mb config.Mailbox
	switch kind {
	case smu.MP1:
		mb = s.cfg.MP1
	case smu.PSMU:
		mb = s.cfg.PSMU
	default:
		return nil, fmt.Errorf("unknown smu endpoint %v", kind)
	}
	e, err := smu.Open(ctx, regs, kind, smu.MailboxFromConfig(mb), s.cfg.Poll)
	if err != nil {
		return nil, err
	}
	return e, nil
}
