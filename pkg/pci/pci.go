// Copyright 2021 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pci gives 32 bit access to the configuration space of one PCI
// function through its sysfs config file.
package pci

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
	upci "github.com/u-root/u-root/pkg/pci"
)

const (
	devicesPath = "/sys/bus/pci/devices"
	// Standard configuration space header, extended space is not needed here.
	configSize = upci.ConfigSize

	VendorAMD = 0x1022
)

var ErrVendor = errors.New("pci function is not an AMD device")

// Device is an open configuration space. Accesses are serialized.
type Device struct {
	m      sync.Mutex
	addr   string
	f      afero.File
	vendor uint16
	device uint16
}

// Open opens the configuration space of the function at addr, e.g.
// "0000:00:00.0", and checks it belongs to an AMD device.
func Open(fs afero.Fs, addr string) (*Device, error) {
	f, err := fs.OpenFile(filepath.Join(devicesPath, addr, "config"), os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("pci %s: %w", addr, err)
	}
	d := &Device{addr: addr, f: f}
	id, err := d.Read32(upci.VID)
	if err != nil {
		f.Close()
		return nil, err
	}
	d.vendor = uint16(id)
	d.device = uint16(id >> ((upci.DID - upci.VID) * 8))
	if d.vendor != VendorAMD {
		f.Close()
		return nil, fmt.Errorf("pci %s: vendor %04x: %w", addr, d.vendor, ErrVendor)
	}
	return d, nil
}

// ID returns the vendor and device ID read when the device was opened.
func (d *Device) ID() (vendor, device uint16) {
	return d.vendor, d.device
}

func checkOffset(off uint32) error {
	if off%4 != 0 || off > configSize-4 {
		return fmt.Errorf("config offset %#x is not an aligned dword", off)
	}
	return nil
}

func (d *Device) Read32(off uint32) (uint32, error) {
	if err := checkOffset(off); err != nil {
		return 0, err
	}
	var b [4]byte
	d.m.Lock()
	defer d.m.Unlock()
	if _, err := d.f.ReadAt(b[:], int64(off)); err != nil {
		return 0, fmt.Errorf("pci %s: read %#x: %w", d.addr, off, err)
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func (d *Device) Write32(off uint32, v uint32) error {
	if err := checkOffset(off); err != nil {
		return err
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	d.m.Lock()
	defer d.m.Unlock()
	if _, err := d.f.WriteAt(b[:], int64(off)); err != nil {
		return fmt.Errorf("pci %s: write %#x: %w", d.addr, off, err)
	}
	return nil
}

// Close closes the config file.
func (d *Device) Close() {
	d.f.Close()
}
