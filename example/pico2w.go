//go:build rp2350

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

package main

import (
	"context"
	"fmt"
	"log/slog"
	"machine"
	"strconv"
	"time"

	"github.com/bfix/wifiget"
)

// WiFi credentials, hostname, static IP and 9p port
// (set at build time with '-ldflags "-X main.SSID=..."')
var (
	SSID   string
	Passwd string
	Host   string
	IP     string
	Port   string
)

// bootstrap timeout
const bootTimeout = 2 * time.Minute

// fetch http://ifconfig.me/ every 20 seconds
func main() {
	logger := slog.New(slog.NewTextHandler(machine.Serial, &slog.HandlerOptions{Level: slog.LevelInfo}))
	time.Sleep(2 * time.Second)

	// access device
	dev := wifiget.InitDevice(wifiget.DeviceConfig{
		Hostname:    Host,
		RequestedIP: IP,
		Logger:      logger,
	})
	state := wifiget.NewStatus(dev)
	defer state.Trap(30 * time.Second)

	// connect to WiFi
	ctx := context.Background()
	st := dev.Station()
	err := wifiget.Bootstrap(ctx, st, SSID, Passwd, wifiget.BootConfig{
		Timeout: bootTimeout,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("no network", slog.String("err", err.Error()))
		state.Set(wifiget.BootStatus(st, err), 0)
		return
	}

	// publish results via 9p (optional)
	journal := wifiget.NewJournal(8)
	if len(Port) > 0 {
		port, err := strconv.ParseUint(Port, 10, 16)
		if err != nil {
			state.Set(wifiget.StatLISTEN1, 0)
			return
		}
		lst, stat := dev.Listen(uint16(port))
		if stat != wifiget.StatOK {
			state.Set(stat, 0)
			return
		}
		ns, err := wifiget.NewFetchNamespace(journal, wifiget.DefaultHost, wifiget.DefaultURI)
		if err != nil {
			state.Set(wifiget.StatLISTEN2, 0)
			return
		}
		go func() {
			if err := ns.ServeListener(lst); err != nil {
				logger.Error("9p server failed", slog.String("err", err.Error()))
				state.Set(wifiget.StatLISTEN2, 3)
			}
		}()
	}

	// fetch loop
	cycle := &wifiget.Cycle{
		Client: wifiget.NewClient(dev.Dialer(), logger),
		Report: func(r *wifiget.Result) {
			journal.Add(r)
			state.Report(r)
			if r.OK() {
				fmt.Printf("Body: %s\n", r.Body)
			}
			fmt.Printf("Result: %s\n", wifiget.FormatResult(r))
			fmt.Println("Waiting...")
		},
	}
	cycle.Run(ctx)
}
