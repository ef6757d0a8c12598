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
	"errors"
	"fmt"
)

// Validation and usage errors. These are raised before any I/O is attempted.
var (
	// ErrInvalidInterfaceKind indicates an unrecognized interface kind string.
	ErrInvalidInterfaceKind = errors.New("scpi: invalid interface kind")

	// ErrInvalidAddress indicates a bus address out of range or a missing
	// network address.
	ErrInvalidAddress = errors.New("scpi: invalid address")

	// ErrInvalidMessage indicates a message that is empty, not valid UTF-8,
	// or contains an interior line terminator.
	ErrInvalidMessage = errors.New("scpi: invalid message")

	// ErrUnsupportedOperation indicates an operation not offered by the
	// connection's interface kind, such as Read on a network connection.
	ErrUnsupportedOperation = errors.New("scpi: unsupported operation")

	// ErrMalformedFrame indicates a gateway response line that could not be
	// decoded into a status code and payload.
	ErrMalformedFrame = errors.New("scpi: malformed gateway frame")

	// ErrConnectionClosed indicates an operation on a closed connection.
	ErrConnectionClosed = errors.New("scpi: connection closed")
)

// GatewayError represents a nonzero status reported by the bus gateway.
// Message carries the gateway-supplied text from the response frame payload.
type GatewayError struct {
	Status  int
	Message string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("scpi: gateway status %d: %s", e.Status, e.Message)
}

// CommError represents a failed open, write, or read on the underlying
// transport, including timeouts. Op names the primitive that failed.
type CommError struct {
	Op  string
	Err error
}

func (e *CommError) Error() string {
	return fmt.Sprintf("scpi: communication error during %s: %v", e.Op, e.Err)
}

func (e *CommError) Unwrap() error {
	return e.Err
}

// commErr wraps err into a *CommError unless it already belongs to the
// protocol taxonomy (gateway status, malformed frame, closed connection),
// which must pass through unchanged.
func commErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var ge *GatewayError
	if errors.As(err, &ge) || errors.Is(err, ErrMalformedFrame) || errors.Is(err, ErrConnectionClosed) {
		return err
	}
	var ce *CommError
	if errors.As(err, &ce) {
		return err
	}
	return &CommError{Op: op, Err: err}
}
