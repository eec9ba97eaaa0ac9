// Copyright 2021 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package smu

import (
	"fmt"
	"testing"
)

type op struct {
	write   bool
	address uint32
	data    uint32
	err     error
}

type fakeRegs struct {
	t   *testing.T
	ops []op
}

func opstr(o *op) string {
	t := "read"
	if o.write {
		t = "write"
	}
	return fmt.Sprintf("{%s @ %08x = %08x}", t, o.address, o.data)
}

func (m *fakeRegs) next() (op, bool) {
	if len(m.ops) == 0 {
		return op{}, false
	}
	o := m.ops[0]
	m.ops = m.ops[1:]
	return o, true
}

func (m *fakeRegs) Read32(a uint32) (uint32, error) {
	o, ok := m.next()
	if !ok {
		m.t.Fatalf("Unexpected read on %08x", a)
	}
	if o.write || o.address != a {
		m.t.Errorf("Expected %s, got read on %08x", opstr(&o), a)
	}
	return o.data, o.err
}

func (m *fakeRegs) Write32(a uint32, d uint32) error {
	o, ok := m.next()
	if !ok {
		m.t.Fatalf("Unexpected write of %08x on %08x", d, a)
	}
	if !o.write || o.address != a || o.data != d {
		m.t.Errorf("Expected %s, got write of %08x on %08x", opstr(&o), d, a)
	}
	return o.err
}

func (m *fakeRegs) ExpectWrite32(a uint32, d uint32) {
	m.ops = append(m.ops, op{true, a, d, nil})
}

func (m *fakeRegs) FakeRead32(a uint32, d uint32) {
	m.ops = append(m.ops, op{false, a, d, nil})
}

func (m *fakeRegs) FailRead32(a uint32, err error) {
	m.ops = append(m.ops, op{false, a, 0, err})
}

// ExpectRequest scripts one complete mailbox transaction on mb.
func (m *fakeRegs) ExpectRequest(mb Mailbox, msg uint8, in Args, rep uint32, out Args) {
	m.FakeRead32(mb.Response, 0x1)
	m.ExpectWrite32(mb.Response, 0)
	for i, a := range in {
		m.ExpectWrite32(mb.Argument+uint32(i)*4, a)
	}
	m.ExpectWrite32(mb.Message, uint32(msg))
	m.FakeRead32(mb.Response, rep)
	for i, a := range out {
		m.FakeRead32(mb.Argument+uint32(i)*4, a)
	}
}

func (m *fakeRegs) Done() {
	if len(m.ops) != 0 {
		m.t.Errorf("%d expected register accesses not performed, first %s", len(m.ops), opstr(&m.ops[0]))
	}
}

func fakeRegisters(t *testing.T) *fakeRegs {
	return &fakeRegs{t, make([]op, 0)}
}
