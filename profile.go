// Copyright (C) 2024  wwhai
//
// This program is free software; you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License along
// with this program; if not, see <https://www.gnu.org/licenses/>.

package scpi

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// InstrumentProfile is a declarative endpoint record for one instrument,
// loadable from a YAML bench file or a CSV table. Profiles only describe how
// to reach an instrument; command semantics stay with the caller.
type InstrumentProfile struct {
	UUID           string `yaml:"uuid" json:"uuid"`
	Tag            string `yaml:"tag" json:"tag"`
	Alias          string `yaml:"alias,omitempty" json:"alias,omitempty"`
	Kind           string `yaml:"kind" json:"kind"`
	NetworkAddress string `yaml:"networkAddress,omitempty" json:"networkAddress,omitempty"`
	BusAddress     int    `yaml:"busAddress,omitempty" json:"busAddress,omitempty"`
	ControllerPort string `yaml:"controllerPort,omitempty" json:"controllerPort,omitempty"`
	TimeoutMs      int    `yaml:"timeoutMs,omitempty" json:"timeoutMs,omitempty"`
	PollCommand    string `yaml:"pollCommand,omitempty" json:"pollCommand,omitempty"`
	FrequencyMs    int64  `yaml:"frequencyMs,omitempty" json:"frequencyMs,omitempty"`
}

// Validate checks the profile for a usable kind/address combination and a
// well-formed UUID. A missing UUID is filled with a generated one.
func (p *InstrumentProfile) Validate() error {
	if p.Tag == "" {
		return fmt.Errorf("profile: 'tag' is required")
	}

	if p.UUID == "" {
		p.UUID = uuid.NewString()
	} else if _, err := uuid.Parse(p.UUID); err != nil {
		return fmt.Errorf("profile %s: invalid uuid: %w", p.Tag, err)
	}

	kind, err := ParseInterfaceKind(p.Kind)
	if err != nil {
		return fmt.Errorf("profile %s: %w", p.Tag, err)
	}

	if kind == KindBus || kind == KindGatewayTunnel {
		if !ValidateBusAddress(p.BusAddress) {
			return fmt.Errorf("profile %s: %w: bus address %d", p.Tag, ErrInvalidAddress, p.BusAddress)
		}
	}
	if kind == KindNetwork || kind == KindGatewayTunnel {
		if !ValidateNetworkAddress(p.NetworkAddress) {
			return fmt.Errorf("profile %s: %w: network address required", p.Tag, ErrInvalidAddress)
		}
	}
	if kind == KindBus && p.ControllerPort == "" {
		return fmt.Errorf("profile %s: 'controllerPort' is required for bus kind", p.Tag)
	}

	return nil
}

// Timeout returns the configured timeout, or the connection default.
func (p *InstrumentProfile) Timeout() time.Duration {
	if p.TimeoutMs <= 0 {
		return DefaultTimeout
	}
	return time.Duration(p.TimeoutMs) * time.Millisecond
}

// Connect validates the profile and builds the connection it describes.
func (p *InstrumentProfile) Connect() (*InstrumentConnection, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	kind, err := ParseInterfaceKind(p.Kind)
	if err != nil {
		return nil, err
	}

	return NewConnection(Config{
		Kind:           kind,
		NetworkAddress: p.NetworkAddress,
		BusAddress:     p.BusAddress,
		Timeout:        p.Timeout(),
		Bus:            BusConfig{Port: p.ControllerPort, Timeout: p.Timeout()},
	})
}

// BenchConfig is the YAML document describing a test bench.
type BenchConfig struct {
	Instruments []InstrumentProfile `yaml:"instruments"`
}

// LoadBenchConfig decodes and validates a YAML bench file. Tags must be
// unique across the bench.
func LoadBenchConfig(r io.Reader) (*BenchConfig, error) {
	var cfg BenchConfig
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("bench config: %w", err)
	}

	tags := make(map[string]bool)
	for i := range cfg.Instruments {
		if err := cfg.Instruments[i].Validate(); err != nil {
			return nil, fmt.Errorf("bench config: %w", err)
		}
		tag := cfg.Instruments[i].Tag
		if tags[tag] {
			return nil, fmt.Errorf("bench config: duplicate tag: %s", tag)
		}
		tags[tag] = true
	}

	return &cfg, nil
}

// DumpBenchConfig encodes a bench configuration as YAML.
func DumpBenchConfig(cfg *BenchConfig, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("bench config: %w", err)
	}
	return nil
}
