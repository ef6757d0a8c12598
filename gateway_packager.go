package scpi

import (
	"fmt"
	"strconv"
	"strings"
)

// Gateway tunnel protocol constants. The gateway multiplexes one TCP channel
// into framed bus read/write requests:
//
//	request:  W|<busAddress>|<payload>   write payload to the instrument
//	          R|<busAddress>            read one line from the instrument
//	response: <status>|<payload>         status 0 = success, nonzero = error
//	                                     with payload as the message text
const (
	GatewayWritePrefix = "W"
	GatewayReadPrefix  = "R"
	GatewayDelimiter   = "|"
	GatewayStatusOK    = 0
)

// GatewayPackager handles packing and unpacking of gateway tunnel frames.
type GatewayPackager struct{}

// NewGatewayPackager creates a new GatewayPackager.
func NewGatewayPackager() *GatewayPackager {
	return &GatewayPackager{}
}

// PackWrite builds a write request frame for the given bus address and payload.
// The payload is transmitted byte-faithfully; no termination is added here.
func (p *GatewayPackager) PackWrite(busAddress int, payload string) string {
	return GatewayWritePrefix + GatewayDelimiter + strconv.Itoa(busAddress) + GatewayDelimiter + payload
}

// PackRead builds a read request frame for the given bus address.
func (p *GatewayPackager) PackRead(busAddress int) string {
	return GatewayReadPrefix + GatewayDelimiter + strconv.Itoa(busAddress)
}

// Unpack decodes a gateway response line into its status code and payload.
// The line is split on the first delimiter; everything after it is payload.
// A missing delimiter or a non-integer status field yields ErrMalformedFrame.
// A nonzero status is returned as-is; mapping it to a *GatewayError is the
// caller's responsibility.
func (p *GatewayPackager) Unpack(line string) (status int, payload string, err error) {
	line = strings.TrimRight(line, "\r\n")

	statusField, payload, found := strings.Cut(line, GatewayDelimiter)
	if !found {
		return 0, "", fmt.Errorf("%w: no delimiter in %q", ErrMalformedFrame, line)
	}

	status, convErr := strconv.Atoi(strings.TrimSpace(statusField))
	if convErr != nil {
		return 0, "", fmt.Errorf("%w: bad status field %q", ErrMalformedFrame, statusField)
	}

	return status, payload, nil
}
