// Copyright 2021 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ryzen

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/u-root/u-smu/pkg/cpu"
	"github.com/u-root/u-smu/pkg/smu"
)

var errInjected = errors.New("injected failure")

type request struct {
	op   uint8
	args smu.Args
}

// fakeAccess records every acquisition and release as an event.
type fakeAccess struct {
	t       *testing.T
	family  cpu.Family
	version uint32
	// failAt names the stage that fails: "pci", "nb", "mp1", "psmu" or
	// "query".
	failAt string
	// status answered to every request except the version query.
	status smu.Status
	err    error

	events []string
	mp1    *fakeEndpoint
}

type fakeHandle struct {
	a        *fakeAccess
	name     string
	released bool
}

func (h *fakeHandle) Close() {
	if h.released {
		h.a.t.Errorf("%s released twice", h.name)
	}
	h.released = true
	h.a.events = append(h.a.events, "release "+h.name)
}

type fakeEndpoint struct {
	fakeHandle
	requests []request
}

func (e *fakeEndpoint) Request(ctx context.Context, op uint8, args smu.Args) (smu.Args, smu.Status, error) {
	a := e.a
	a.events = append(a.events, fmt.Sprintf("request %s %#x", e.name, op))
	e.requests = append(e.requests, request{op, args})
	if op == smu.OpGetIfVersion && e.name == "mp1" {
		if a.failAt == "query" {
			return smu.Args{}, 0, errInjected
		}
		return smu.Args{a.version}, smu.StatusOK, nil
	}
	return args, a.status, a.err
}

func (a *fakeAccess) DetectFamily() cpu.Family {
	return a.family
}

func (a *fakeAccess) acquire(name string) error {
	if a.failAt == name {
		return errInjected
	}
	a.events = append(a.events, "acquire "+name)
	return nil
}

func (a *fakeAccess) OpenPCI() (PCIHandle, error) {
	if err := a.acquire("pci"); err != nil {
		return nil, err
	}
	return &fakeHandle{a: a, name: "pci"}, nil
}

func (a *fakeAccess) OpenNorthbridge(h PCIHandle) (NorthbridgeHandle, error) {
	if p := h.(*fakeHandle); p.released {
		a.t.Errorf("northbridge opened on released pci handle")
	}
	if err := a.acquire("nb"); err != nil {
		return nil, err
	}
	return &fakeHandle{a: a, name: "nb"}, nil
}

func (a *fakeAccess) OpenEndpoint(ctx context.Context, h NorthbridgeHandle, kind smu.Kind) (Endpoint, error) {
	if n := h.(*fakeHandle); n.released {
		a.t.Errorf("%v opened on released northbridge", kind)
	}
	if err := a.acquire(kind.String()); err != nil {
		return nil, err
	}
	e := &fakeEndpoint{fakeHandle: fakeHandle{a: a, name: kind.String()}}
	if kind == smu.MP1 {
		a.mp1 = e
	}
	return e, nil
}

func newFakeAccess(t *testing.T, f cpu.Family) *fakeAccess {
	return &fakeAccess{t: t, family: f, version: MinInterfaceVersion, status: smu.StatusOK}
}

// openFake opens a Session on a fake and forgets the events of opening it.
func openFake(t *testing.T, f cpu.Family) (*Session, *fakeAccess) {
	t.Helper()
	a := newFakeAccess(t, f)
	s, err := Open(context.Background(), a)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(s.Close)
	a.events = nil
	a.mp1.requests = nil
	return s, a
}
