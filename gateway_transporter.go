package scpi

import (
	"io"
	"time"
)

// GatewayTransporter tunnels bus read/write requests through a
// network-reachable gateway device. Every payload line is wrapped into a
// gateway frame before it goes over the TCP channel, and every frame coming
// back carries a status code that is checked here.
type GatewayTransporter struct {
	busAddress int
	channel    *TCPTransporter
	packager   *GatewayPackager
}

// NewGatewayTransporter creates a GatewayTransporter for the given gateway
// network address and instrument bus address.
func NewGatewayTransporter(address string, busAddress int, timeout time.Duration, logger io.Writer) *GatewayTransporter {
	return &GatewayTransporter{
		busAddress: busAddress,
		channel:    NewTCPTransporter(address, timeout, logger),
		packager:   NewGatewayPackager(),
	}
}

// Open dials the gateway.
func (t *GatewayTransporter) Open() error {
	return t.channel.Open()
}

// WriteLine wraps the line into a write frame, sends it, and checks the
// gateway's acknowledgement frame. A nonzero acknowledgement status is
// surfaced as a *GatewayError carrying the gateway-supplied message.
func (t *GatewayTransporter) WriteLine(line string) error {
	frame := t.packager.PackWrite(t.busAddress, line)
	if err := t.channel.WriteLine(frame); err != nil {
		return err
	}

	ack, err := t.channel.ReadLine()
	if err != nil {
		return err
	}

	status, payload, err := t.packager.Unpack(ack)
	if err != nil {
		return err
	}
	if status != GatewayStatusOK {
		return &GatewayError{Status: status, Message: payload}
	}
	return nil
}

// ReadLine sends a read frame for the configured bus address and extracts
// the instrument's response from the gateway frame.
func (t *GatewayTransporter) ReadLine() (string, error) {
	frame := t.packager.PackRead(t.busAddress)
	if err := t.channel.WriteLine(frame); err != nil {
		return "", err
	}

	resp, err := t.channel.ReadLine()
	if err != nil {
		return "", err
	}

	status, payload, err := t.packager.Unpack(resp)
	if err != nil {
		return "", err
	}
	if status != GatewayStatusOK {
		return "", &GatewayError{Status: status, Message: payload}
	}
	return payload, nil
}

// Close closes the gateway channel. Idempotent.
func (t *GatewayTransporter) Close() error {
	return t.channel.Close()
}

// RemoteAddr returns the gateway address and tunneled bus address.
func (t *GatewayTransporter) RemoteAddr() string {
	return t.channel.RemoteAddr()
}
