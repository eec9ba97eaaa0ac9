// Copyright 2018 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

type PCI struct {
	// Address of the host bridge in sysfs notation, domain:bus:device.function.
	Address string `yaml:"address"`
}

type Northbridge struct {
	IndexRegister uint32 `yaml:"index_register"`
	DataRegister  uint32 `yaml:"data_register"`
}

type Mailbox struct {
	Message  uint32 `yaml:"message"`
	Response uint32 `yaml:"response"`
	Argument uint32 `yaml:"argument"`
}

type Poll struct {
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

type Log struct {
	Level string `yaml:"level"`
	// File receives a JSON copy of the log when set.
	File string `yaml:"file"`
}

type Config struct {
	PCI         PCI         `yaml:"pci"`
	Northbridge Northbridge `yaml:"northbridge"`
	MP1         Mailbox     `yaml:"mp1"`
	PSMU        Mailbox     `yaml:"psmu"`
	Poll        Poll        `yaml:"poll"`
	Log         Log         `yaml:"log"`
}

var DefaultConfig = &Config{
	// The SMN index/data pair lives in the config space of the root complex.
	PCI: PCI{Address: "0000:00:00.0"},

	Northbridge: Northbridge{
		IndexRegister: 0xB8,
		DataRegister:  0xBC,
	},

	// Raven, Picasso and Renoir all place their mailboxes at the same
	// SMN addresses.
	MP1: Mailbox{
		Message:  0x3B10528,
		Response: 0x3B10564,
		Argument: 0x3B10998,
	},
	PSMU: Mailbox{
		Message:  0x3B10A20,
		Response: 0x3B10A80,
		Argument: 0x3B10A88,
	},

	Poll: Poll{
		Interval: time.Millisecond,
		Timeout:  time.Second,
	},

	Log: Log{
		Level: "info",
	},
}

// Load reads a YAML file from fs and overlays it on a copy of DefaultConfig.
// Keys missing from the file keep their default value.
func Load(fs afero.Fs, path string) (*Config, error) {
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	c := *DefaultConfig
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if c.Poll.Interval <= 0 || c.Poll.Timeout < c.Poll.Interval {
		return nil, fmt.Errorf("config %s: poll interval %v must be positive and not exceed timeout %v", path, c.Poll.Interval, c.Poll.Timeout)
	}
	return &c, nil
}
