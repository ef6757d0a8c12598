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
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	serial "github.com/hootrhino/goserial"
)

// Prologix-compatible controller commands. The bus controller is reached
// through a serial port; instrument selection and unsolicited reads go
// through these controller-level commands, everything else is passed to the
// addressed instrument verbatim.
const (
	busSelectCommand = "++addr"
	busReadCommand   = "++read eoi"
)

// BusConfig holds the serial parameters of the bus controller port.
type BusConfig struct {
	Port     string        // controller device path, e.g. /dev/ttyUSB0
	BaudRate int           // default 115200
	DataBits int           // default 8
	StopBits int           // default 1
	Parity   string        // default "N"
	Timeout  time.Duration // per-I/O timeout on the port
}

// withDefaults fills zero-valued serial parameters.
func (c BusConfig) withDefaults() BusConfig {
	if c.BaudRate <= 0 {
		c.BaudRate = 115200
	}
	if c.DataBits <= 0 {
		c.DataBits = 8
	}
	if c.StopBits <= 0 {
		c.StopBits = 1
	}
	if c.Parity == "" {
		c.Parity = "N"
	}
	if c.Timeout <= 0 {
		c.Timeout = 1 * time.Second
	}
	return c
}

// BusTransporter handles direct bus addressing through a serial-attached
// controller. The controller session is opened per operation and the
// instrument is selected once per session with the controller's address
// command.
type BusTransporter struct {
	busAddress int
	config     BusConfig

	// openPort acquires the controller session. Overridable in tests with an
	// in-memory pipe, mirroring how the serial port is injected elsewhere.
	openPort func() (io.ReadWriteCloser, error)

	port      io.ReadWriteCloser
	reader    *bufio.Reader
	addressed bool
}

// NewBusTransporter creates a BusTransporter for the given controller port
// configuration and instrument bus address.
func NewBusTransporter(config BusConfig, busAddress int) *BusTransporter {
	config = config.withDefaults()
	return &BusTransporter{
		busAddress: busAddress,
		config:     config,
		openPort: func() (io.ReadWriteCloser, error) {
			return serial.Open(&serial.Config{
				Address:  config.Port,
				BaudRate: config.BaudRate,
				DataBits: config.DataBits,
				StopBits: config.StopBits,
				Parity:   config.Parity,
				Timeout:  config.Timeout,
			})
		},
	}
}

// Open acquires the controller session. No-op when already open.
func (t *BusTransporter) Open() error {
	if t.port != nil {
		return nil
	}

	port, err := t.openPort()
	if err != nil {
		return fmt.Errorf("open controller port %s failed: %w", t.config.Port, err)
	}

	t.port = port
	t.reader = bufio.NewReader(port)
	t.addressed = false
	return nil
}

// selectInstrument points the controller at the configured bus address.
// Sent once per session, before the first payload exchange.
func (t *BusTransporter) selectInstrument() error {
	if t.addressed {
		return nil
	}
	cmd := busSelectCommand + " " + strconv.Itoa(t.busAddress) + string(LineTerminator)
	if err := t.writeAll([]byte(cmd)); err != nil {
		return fmt.Errorf("instrument select failed: %w", err)
	}
	t.addressed = true
	return nil
}

func (t *BusTransporter) writeAll(data []byte) error {
	written := 0
	for written < len(data) {
		n, err := t.port.Write(data[written:])
		if err != nil {
			return fmt.Errorf("write failed after %d bytes: %w", written, err)
		}
		written += n
	}
	return nil
}

// WriteLine sends one command line to the addressed instrument.
func (t *BusTransporter) WriteLine(line string) error {
	if t.port == nil {
		return fmt.Errorf("transporter is not open")
	}
	if err := t.selectInstrument(); err != nil {
		return err
	}

	if !strings.HasSuffix(line, string(LineTerminator)) {
		line += string(LineTerminator)
	}
	return t.writeAll([]byte(line))
}

// ReadLine requests one response line from the addressed instrument. The
// controller needs an explicit read command before the instrument's output
// appears on the port.
func (t *BusTransporter) ReadLine() (string, error) {
	if t.port == nil {
		return "", fmt.Errorf("transporter is not open")
	}
	if err := t.selectInstrument(); err != nil {
		return "", err
	}

	if err := t.writeAll([]byte(busReadCommand + string(LineTerminator))); err != nil {
		return "", err
	}

	line, err := t.reader.ReadString(byte(LineTerminator))
	if err != nil {
		return "", fmt.Errorf("read failed: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Close releases the controller session. Idempotent.
func (t *BusTransporter) Close() error {
	if t.port == nil {
		return nil
	}

	err := t.port.Close()
	t.port = nil
	t.reader = nil
	t.addressed = false
	return err
}

// RemoteAddr returns the controller port and bus address.
func (t *BusTransporter) RemoteAddr() string {
	return fmt.Sprintf("%s#%d", t.config.Port, t.busAddress)
}
