// Copyright 2021 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package nb reaches the System Management Network (SMN) of a Ryzen SoC
// through the index/data register pair in the host bridge config space.
//
// Every access is two config cycles, so the window is locked for the pair.
package nb

import (
	"errors"
	"fmt"
	"sync"
)

var ErrClosed = errors.New("northbridge closed")

// ConfigSpace is 32 bit access to the host bridge configuration space.
type ConfigSpace interface {
	Read32(off uint32) (uint32, error)
	Write32(off uint32, v uint32) error
}

// Northbridge reaches SMN addresses through the index/data register pair
// of the host bridge.
type Northbridge struct {
	m      sync.Mutex
	cs     ConfigSpace
	index  uint32
	data   uint32
	closed bool
}

// Open wraps cs with the index and data registers at the given offsets.
func Open(cs ConfigSpace, index, data uint32) *Northbridge {
	return &Northbridge{cs: cs, index: index, data: data}
}

func (n *Northbridge) Read32(addr uint32) (uint32, error) {
	n.m.Lock()
	defer n.m.Unlock()
	if n.closed {
		return 0, ErrClosed
	}
	if err := n.cs.Write32(n.index, addr); err != nil {
		return 0, fmt.Errorf("smn index %#x: %w", addr, err)
	}
	v, err := n.cs.Read32(n.data)
	if err != nil {
		return 0, fmt.Errorf("smn read %#x: %w", addr, err)
	}
	return v, nil
}

func (n *Northbridge) Write32(addr uint32, v uint32) error {
	n.m.Lock()
	defer n.m.Unlock()
	if n.closed {
		return ErrClosed
	}
	if err := n.cs.Write32(n.index, addr); err != nil {
		return fmt.Errorf("smn index %#x: %w", addr, err)
	}
	if err := n.cs.Write32(n.data, v); err != nil {
		return fmt.Errorf("smn write %#x: %w", addr, err)
	}
	return nil
}

func (n *Northbridge) Close() {
	n.m.Lock()
	n.closed = true
	n.m.Unlock()
}
