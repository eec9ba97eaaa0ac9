// Copyright 2021 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ryzen

import (
	"fmt"

	"github.com/u-root/u-smu/pkg/cpu"
)

// Tunable is a generation independent SMU setting. Power limits are in mW,
// times in seconds, currents in mA, temperatures in degrees Celsius and
// clocks in MHz.
type Tunable int

const (
	StapmLimit Tunable = iota
	FastLimit
	SlowLimit
	SlowTime
	StapmTime
	TctlTemp
	VrmCurrent
	VrmSocCurrent
	VrmMaxCurrent
	VrmSocMaxCurrent
	Psi0Current
	Psi0SocCurrent
	MaxGfxclkFreq
	MinGfxclkFreq
	MaxSocclkFreq
	MinSocclkFreq
	MaxFclkFreq
	MinFclkFreq
	MaxVcn
	MinVcn
	MaxLclk
	MinLclk
	ProchotDeassertionRamp
)

var tunableNames = map[Tunable]string{
	StapmLimit:             "stapm-limit",
	FastLimit:              "fast-limit",
	SlowLimit:              "slow-limit",
	SlowTime:               "slow-time",
	StapmTime:              "stapm-time",
	TctlTemp:               "tctl-temp",
	VrmCurrent:             "vrm-current",
	VrmSocCurrent:          "vrmsoc-current",
	VrmMaxCurrent:          "vrmmax-current",
	VrmSocMaxCurrent:       "vrmsocmax-current",
	Psi0Current:            "psi0-current",
	Psi0SocCurrent:         "psi0soc-current",
	MaxGfxclkFreq:          "max-gfxclk",
	MinGfxclkFreq:          "min-gfxclk",
	MaxSocclkFreq:          "max-socclk-frequency",
	MinSocclkFreq:          "min-socclk-frequency",
	MaxFclkFreq:            "max-fclk-frequency",
	MinFclkFreq:            "min-fclk-frequency",
	MaxVcn:                 "max-vcn",
	MinVcn:                 "min-vcn",
	MaxLclk:                "max-lclk",
	MinLclk:                "min-lclk",
	ProchotDeassertionRamp: "prochot-deassertion-ramp",
}

func (t Tunable) String() string {
	if n, ok := tunableNames[t]; ok {
		return n
	}
	return fmt.Sprintf("tunable(%d)", int(t))
}

// Tunables returns every known Tunable in declaration order.
func Tunables() []Tunable {
	ts := make([]Tunable, 0, len(tunableNames))
	for t := StapmLimit; t <= ProchotDeassertionRamp; t++ {
		ts = append(ts, t)
	}
	return ts
}

// ParseTunable looks a Tunable up by its name, e.g. "stapm-limit".
func ParseTunable(name string) (Tunable, error) {
	for t, n := range tunableNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown tunable %q", name)
}

// commands maps each Tunable to its opcode per family. A family missing
// from the inner map has no way to set that Tunable.
//
// Psi0SocCurrent and ProchotDeassertionRamp share 0x20 on Renoir.
var commands = map[Tunable]map[cpu.Family]uint8{
	StapmLimit:             {cpu.Raven: 0x1a, cpu.Picasso: 0x1a, cpu.Renoir: 0x14},
	FastLimit:              {cpu.Raven: 0x1b, cpu.Picasso: 0x1b, cpu.Renoir: 0x15},
	SlowLimit:              {cpu.Raven: 0x1c, cpu.Picasso: 0x1c, cpu.Renoir: 0x16},
	SlowTime:               {cpu.Raven: 0x1d, cpu.Picasso: 0x1d, cpu.Renoir: 0x17},
	StapmTime:              {cpu.Raven: 0x1e, cpu.Picasso: 0x1e, cpu.Renoir: 0x18},
	TctlTemp:               {cpu.Raven: 0x1f, cpu.Picasso: 0x1f, cpu.Renoir: 0x19},
	VrmCurrent:             {cpu.Raven: 0x20, cpu.Picasso: 0x20, cpu.Renoir: 0x1a},
	VrmSocCurrent:          {cpu.Raven: 0x21, cpu.Picasso: 0x21, cpu.Renoir: 0x1b},
	VrmMaxCurrent:          {cpu.Raven: 0x22, cpu.Picasso: 0x22, cpu.Renoir: 0x1c},
	VrmSocMaxCurrent:       {cpu.Raven: 0x23, cpu.Picasso: 0x23, cpu.Renoir: 0x1d},
	Psi0Current:            {cpu.Raven: 0x24, cpu.Picasso: 0x24, cpu.Renoir: 0x1e},
	Psi0SocCurrent:         {cpu.Raven: 0x25, cpu.Picasso: 0x25, cpu.Renoir: 0x20},
	MaxGfxclkFreq:          {cpu.Raven: 0x46, cpu.Picasso: 0x46},
	MinGfxclkFreq:          {cpu.Raven: 0x47, cpu.Picasso: 0x47},
	MaxSocclkFreq:          {cpu.Raven: 0x48, cpu.Picasso: 0x48},
	MinSocclkFreq:          {cpu.Raven: 0x49, cpu.Picasso: 0x49},
	MaxFclkFreq:            {cpu.Raven: 0x4a, cpu.Picasso: 0x4a},
	MinFclkFreq:            {cpu.Raven: 0x4b, cpu.Picasso: 0x4b},
	MaxVcn:                 {cpu.Raven: 0x4c, cpu.Picasso: 0x4c},
	MinVcn:                 {cpu.Raven: 0x4d, cpu.Picasso: 0x4d},
	MaxLclk:                {cpu.Raven: 0x4e, cpu.Picasso: 0x4e},
	MinLclk:                {cpu.Raven: 0x4f, cpu.Picasso: 0x4f},
	ProchotDeassertionRamp: {cpu.Raven: 0x26, cpu.Picasso: 0x26, cpu.Renoir: 0x20},
}

// Opcode returns the SMU message that sets t on family f. ok is false when
// f has no such message.
func Opcode(f cpu.Family, t Tunable) (op uint8, ok bool) {
	op, ok = commands[t][f]
	return op, ok
}
