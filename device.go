//----------------------------------------------------------------------
// This file is part of wifiget.
// Copyright (C) 2024-present Bernd Fix   >Y<
//
// wifiget is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License,
// or (at your option) any later version.
//
// wifiget is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.
//
// SPDX-License-Identifier: AGPL3.0-or-later
//----------------------------------------------------------------------

package wifiget

import (
	"log/slog"
	"net"
)

// Device is a hardware abstraction
type Device interface {
	// LED on or off (if applicable)
	LED(on bool)

	// Station returns the WiFi interface of the device.
	Station() Station

	// Dialer for outgoing TCP connections (usable after bootstrap).
	Dialer() Dialer

	// Listen for incoming TCP connections on port (usable after
	// bootstrap). Returns a status code != StatOK on failure.
	Listen(port uint16) (net.Listener, int)
}

// DeviceConfig holds settings for device initialization.
type DeviceConfig struct {
	// DHCP requested hostname.
	Hostname string
	// DHCP requested IP address; used as static IP if DHCP fails.
	RequestedIP string
	Logger      *slog.Logger
}
