// Copyright 2021 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nb

import (
	"fmt"
	"testing"
)

type op struct {
	write bool
	off   uint32
	data  uint32
	err   error
}

type fakeConfigSpace struct {
	t   *testing.T
	ops []op
}

func opstr(o *op) string {
	t := "read"
	if o.write {
		t = "write"
	}
	return fmt.Sprintf("{%s @ %02x = %08x}", t, o.off, o.data)
}

func (c *fakeConfigSpace) next() (op, bool) {
	if len(c.ops) == 0 {
		return op{}, false
	}
	o := c.ops[0]
	c.ops = c.ops[1:]
	return o, true
}

func (c *fakeConfigSpace) Read32(off uint32) (uint32, error) {
	o, ok := c.next()
	if !ok {
		c.t.Fatalf("Unexpected read on %02x", off)
	}
	if o.write || o.off != off {
		c.t.Errorf("Expected %s, got read on %02x", opstr(&o), off)
	}
	return o.data, o.err
}

func (c *fakeConfigSpace) Write32(off uint32, d uint32) error {
	o, ok := c.next()
	if !ok {
		c.t.Fatalf("Unexpected write of %08x on %02x", d, off)
	}
	if !o.write || o.off != off || o.data != d {
		c.t.Errorf("Expected %s, got write of %08x on %02x", opstr(&o), d, off)
	}
	return o.err
}

func (c *fakeConfigSpace) ExpectWrite32(off uint32, d uint32) {
	c.ops = append(c.ops, op{true, off, d, nil})
}

func (c *fakeConfigSpace) FailWrite32(off uint32, d uint32, err error) {
	c.ops = append(c.ops, op{true, off, d, err})
}

func (c *fakeConfigSpace) FakeRead32(off uint32, d uint32) {
	c.ops = append(c.ops, op{false, off, d, nil})
}

func (c *fakeConfigSpace) Done() {
	if len(c.ops) != 0 {
		c.t.Errorf("%d expected config cycles not performed, first %s", len(c.ops), opstr(&c.ops[0]))
	}
}

func fakeConfig(t *testing.T) *fakeConfigSpace {
	return &fakeConfigSpace{t, make([]op, 0)}
}
