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
	"strings"
	"time"
	"unicode/utf8"
)

// InterfaceKind selects the physical/logical interface of a connection.
// Fixed at construction.
type InterfaceKind int

const (
	// KindBus addresses the instrument directly on the local bus through a
	// serial-attached controller.
	KindBus InterfaceKind = iota
	// KindNetwork addresses the instrument directly over TCP.
	KindNetwork
	// KindGatewayTunnel addresses a bus instrument through a network-reachable
	// gateway speaking the framed tunnel protocol.
	KindGatewayTunnel
)

// String returns the construction-parameter spelling of the kind.
func (k InterfaceKind) String() string {
	switch k {
	case KindBus:
		return "bus"
	case KindNetwork:
		return "network"
	case KindGatewayTunnel:
		return "gateway-tunnel"
	default:
		return fmt.Sprintf("InterfaceKind(%d)", int(k))
	}
}

// ParseInterfaceKind parses a case-insensitive interface kind string.
func ParseInterfaceKind(s string) (InterfaceKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bus":
		return KindBus, nil
	case "network":
		return KindNetwork, nil
	case "gateway-tunnel":
		return KindGatewayTunnel, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidInterfaceKind, s)
	}
}

// DefaultTimeout applies when no timeout is configured.
const DefaultTimeout = 1 * time.Second

// Config holds the construction parameters of an InstrumentConnection.
type Config struct {
	Kind           InterfaceKind
	NetworkAddress string        // required for network and gateway-tunnel
	BusAddress     int           // required for bus and gateway-tunnel, 1..29
	Timeout        time.Duration // default 1s
	Bus            BusConfig     // controller port parameters for bus kind
	Logger         io.Writer     // optional debug output
}

// Connection state machine: Ready -> (per-call) Busy -> Ready -> ... -> Closed.
type connState int

const (
	stateReady connState = iota
	stateBusy
	stateClosed
)

// InstrumentConnection is the transport façade for one instrument. It owns
// exactly one transporter whose handle is opened and closed around every
// operation. The connection is not safe for concurrent use; callers must
// serialize operations externally.
type InstrumentConnection struct {
	kind        InterfaceKind
	transporter Transporter
	timeout     time.Duration
	state       connState
	logger      io.Writer
}

// NewConnection validates the configuration and builds the matching
// transporter. Construction is atomic: on any validation failure no usable
// connection object is produced.
func NewConnection(cfg Config) (*InstrumentConnection, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	switch cfg.Kind {
	case KindBus, KindNetwork, KindGatewayTunnel:
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidInterfaceKind, cfg.Kind)
	}

	needsBus := cfg.Kind == KindBus || cfg.Kind == KindGatewayTunnel
	needsNetwork := cfg.Kind == KindNetwork || cfg.Kind == KindGatewayTunnel

	if needsBus && !ValidateBusAddress(cfg.BusAddress) {
		return nil, fmt.Errorf("%w: bus address %d out of range [%d,%d]",
			ErrInvalidAddress, cfg.BusAddress, MinBusAddress, MaxBusAddress)
	}
	if needsNetwork && !ValidateNetworkAddress(cfg.NetworkAddress) {
		return nil, fmt.Errorf("%w: network address required for %v kind",
			ErrInvalidAddress, cfg.Kind)
	}

	var transporter Transporter
	switch cfg.Kind {
	case KindBus:
		busCfg := cfg.Bus
		if busCfg.Timeout <= 0 {
			busCfg.Timeout = cfg.Timeout
		}
		transporter = NewBusTransporter(busCfg, cfg.BusAddress)
	case KindNetwork:
		transporter = NewTCPTransporter(cfg.NetworkAddress, cfg.Timeout, cfg.Logger)
	case KindGatewayTunnel:
		transporter = NewGatewayTransporter(cfg.NetworkAddress, cfg.BusAddress, cfg.Timeout, cfg.Logger)
	}

	return &InstrumentConnection{
		kind:        cfg.Kind,
		transporter: transporter,
		timeout:     cfg.Timeout,
		state:       stateReady,
		logger:      cfg.Logger,
	}, nil
}

// NewNetworkConnection creates a direct TCP connection to the instrument at
// the given host (port 5025 unless specified).
func NewNetworkConnection(networkAddress string) (*InstrumentConnection, error) {
	return NewConnection(Config{Kind: KindNetwork, NetworkAddress: networkAddress})
}

// NewGatewayConnection creates a bus-over-network connection through the
// gateway at the given host to the instrument at busAddress.
func NewGatewayConnection(networkAddress string, busAddress int) (*InstrumentConnection, error) {
	return NewConnection(Config{
		Kind:           KindGatewayTunnel,
		NetworkAddress: networkAddress,
		BusAddress:     busAddress,
	})
}

// NewBusConnection creates a direct bus connection through the local
// controller port to the instrument at busAddress.
func NewBusConnection(bus BusConfig, busAddress int) (*InstrumentConnection, error) {
	return NewConnection(Config{Kind: KindBus, Bus: bus, BusAddress: busAddress})
}

// SetLogger sets the debug log destination for the connection façade.
func (c *InstrumentConnection) SetLogger(logger io.Writer) {
	c.logger = logger
}

// Kind returns the connection's interface kind.
func (c *InstrumentConnection) Kind() InterfaceKind {
	return c.kind
}

// Timeout returns the per-operation timeout.
func (c *InstrumentConnection) Timeout() time.Duration {
	return c.timeout
}

func (c *InstrumentConnection) logf(format string, v ...interface{}) {
	if c.logger != nil {
		fmt.Fprintf(c.logger, format+"\n", v...)
	}
}

// validateMessage rejects payloads that cannot travel the line protocol:
// empty strings, invalid UTF-8, and interior line terminators.
func validateMessage(message string) error {
	trimmed := strings.TrimRight(message, "\r\n")
	if trimmed == "" {
		return fmt.Errorf("%w: empty message", ErrInvalidMessage)
	}
	if !utf8.ValidString(message) {
		return fmt.Errorf("%w: not valid UTF-8", ErrInvalidMessage)
	}
	if strings.ContainsRune(trimmed, rune(LineTerminator)) {
		return fmt.Errorf("%w: interior line terminator", ErrInvalidMessage)
	}
	return nil
}

// transact brackets fn in exactly one open/close cycle on the transporter.
// Close is always attempted; its failure is logged and never overrides a
// prior error from open or fn.
func (c *InstrumentConnection) transact(fn func(Transporter) error) error {
	switch c.state {
	case stateClosed:
		return ErrConnectionClosed
	case stateBusy:
		return fmt.Errorf("scpi: operation already in progress")
	}

	c.state = stateBusy
	defer func() { c.state = stateReady }()

	if err := c.transporter.Open(); err != nil {
		// The handle may be half-acquired; release best-effort.
		if closeErr := c.transporter.Close(); closeErr != nil {
			c.logf("[WARNING] close after failed open: %v", closeErr)
		}
		return commErr("open", err)
	}

	opErr := fn(c.transporter)

	if closeErr := c.transporter.Close(); closeErr != nil {
		c.logf("[WARNING] transport close: %v", closeErr)
	}

	return opErr
}

// Write sends one command line to the instrument and reads nothing back.
func (c *InstrumentConnection) Write(message string) error {
	if err := validateMessage(message); err != nil {
		return err
	}

	return c.transact(func(t Transporter) error {
		return commErr("write", t.WriteLine(message))
	})
}

// Read reads one unsolicited response line. Only bus and gateway-tunnel
// connections offer a direct read path; network instruments are read via
// Query only.
func (c *InstrumentConnection) Read() (string, error) {
	if c.kind == KindNetwork {
		return "", fmt.Errorf("%w: direct read is not offered on %v connections",
			ErrUnsupportedOperation, c.kind)
	}

	var response string
	err := c.transact(func(t Transporter) error {
		line, readErr := t.ReadLine()
		if readErr != nil {
			return commErr("read", readErr)
		}
		response = line
		return nil
	})
	return response, err
}

// Query writes the message and reads the response within a single open/close
// bracket. Some transports tie read and write to the same session, so the
// two exchanges must not be split across brackets. The first error
// encountered wins and skips the remaining exchanges.
func (c *InstrumentConnection) Query(message string) (string, error) {
	if err := validateMessage(message); err != nil {
		return "", err
	}

	var response string
	err := c.transact(func(t Transporter) error {
		if writeErr := t.WriteLine(message); writeErr != nil {
			return commErr("write", writeErr)
		}
		line, readErr := t.ReadLine()
		if readErr != nil {
			return commErr("read", readErr)
		}
		response = line
		return nil
	})
	return response, err
}

// Reset sends the SCPI reset command.
func (c *InstrumentConnection) Reset() error {
	return c.Write("*RST")
}

// Close transitions the connection to its terminal state and force-closes
// the transport handle. Idempotent: repeated calls and calls on an
// already-failed connection are safe, and close failures are logged, never
// returned.
func (c *InstrumentConnection) Close() error {
	if c.state == stateClosed {
		return nil
	}
	c.state = stateClosed

	if err := c.transporter.Close(); err != nil {
		c.logf("[WARNING] close: %v", err)
	}
	return nil
}
