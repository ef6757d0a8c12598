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
	"strconv"
)

// Agilent6632B remote-controls an Agilent (HP) 6632B power supply on top of
// an InstrumentConnection. It may work for other 663x units, but only the
// 6632B is covered; output value limits differ across the series.
//
// This is a transport collaborator: command text, numeric formatting, and
// range limits live here, never in the connection core.
type Agilent6632B struct {
	conn *InstrumentConnection
}

// Agilent 6632B output limits.
const (
	Agilent6632BMaxVoltage = 20.475 // volts
	Agilent6632BMaxCurrent = 5.1185 // amperes
)

// NewAgilent6632B wraps an existing connection.
func NewAgilent6632B(conn *InstrumentConnection) *Agilent6632B {
	return &Agilent6632B{conn: conn}
}

// SetVoltage programs the output voltage in volts.
func (d *Agilent6632B) SetVoltage(value float64) error {
	if value < 0 || value > Agilent6632BMaxVoltage {
		return fmt.Errorf("agilent6632b: voltage %g out of range [0,%g]", value, Agilent6632BMaxVoltage)
	}
	return d.conn.Write("VOLT " + strconv.FormatFloat(value, 'f', -1, 64) + "V")
}

// SetCurrent programs the current limit in amperes.
func (d *Agilent6632B) SetCurrent(value float64) error {
	if value < 0 || value > Agilent6632BMaxCurrent {
		return fmt.Errorf("agilent6632b: current %g out of range [0,%g]", value, Agilent6632BMaxCurrent)
	}
	return d.conn.Write("CURR " + strconv.FormatFloat(value, 'f', -1, 64) + "A")
}

// SetOutputState switches the output relay on or off.
func (d *Agilent6632B) SetOutputState(on bool) error {
	if on {
		return d.conn.Write("OUTP 1")
	}
	return d.conn.Write("OUTP 0")
}

// MeasureVoltage reads back the actual output voltage in volts.
func (d *Agilent6632B) MeasureVoltage() (float64, error) {
	response, err := d.conn.Query("MEAS:VOLT?")
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseFloat(response, 64)
	if err != nil {
		return 0, fmt.Errorf("agilent6632b: unparseable voltage reading %q: %w", response, err)
	}
	return value, nil
}

// MeasureCurrent reads back the actual output current in amperes.
func (d *Agilent6632B) MeasureCurrent() (float64, error) {
	response, err := d.conn.Query("MEAS:CURR?")
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseFloat(response, 64)
	if err != nil {
		return 0, fmt.Errorf("agilent6632b: unparseable current reading %q: %w", response, err)
	}
	return value, nil
}

// Reset issues the instrument reset command.
func (d *Agilent6632B) Reset() error {
	return d.conn.Reset()
}
