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

import "strings"

// Bus address bounds. GPIB primary addressing reserves 0 for the controller
// and 30/31 for special purposes, leaving 1..29 for instruments. Other bus
// standards should audit these constants before reusing the validators.
const (
	MinBusAddress = 1
	MaxBusAddress = 29
)

// ValidateBusAddress reports whether v is a usable instrument bus address.
func ValidateBusAddress(v int) bool {
	return v >= MinBusAddress && v <= MaxBusAddress
}

// ValidateNetworkAddress reports whether v is a usable network address.
// Any non-blank host identifier is accepted; reachability is checked at dial
// time, not here.
func ValidateNetworkAddress(v string) bool {
	return strings.TrimSpace(v) != ""
}
