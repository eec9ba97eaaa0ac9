// Copyright 2021 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cpu identifies the Ryzen APU generation of the running machine.
// The generation decides which SMU opcode encodes a given power setting.
package cpu

import (
	"github.com/klauspost/cpuid"
)

// Family is a Ryzen generation with its own SMU message set.
type Family int

const (
	Unknown Family = iota
	Raven
	Picasso
	Renoir
)

// Zen and Zen 2 APUs all report family 17h.
const zenFamily = 0x17

var names = map[Family]string{
	Unknown: "unknown",
	Raven:   "raven",
	Picasso: "picasso",
	Renoir:  "renoir",
}

var models = map[int]Family{
	0x11: Raven,
	0x18: Picasso,
	0x60: Renoir,
	// Lucienne is a Renoir refresh with the same SMU interface.
	0x68: Renoir,
}

func (f Family) String() string {
	if n, ok := names[f]; ok {
		return n
	}
	return names[Unknown]
}

// FromModel maps CPUID vendor, family and model to a Family.
func FromModel(vendor cpuid.Vendor, family, model int) Family {
	if vendor != cpuid.AMD || family != zenFamily {
		return Unknown
	}
	if f, ok := models[model]; ok {
		return f
	}
	return Unknown
}

// Detect returns the Family of the CPU this process runs on.
func Detect() Family {
	return FromModel(cpuid.CPU.VendorID, cpuid.CPU.Family, cpuid.CPU.Model)
}
