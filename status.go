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
	"fmt"
	"sync/atomic"
	"time"
)

// status codes (number of LED blinks)
const (
	StatUNK     = iota // unknown status (init)
	StatOK             // processing active
	StatDEV            // device failure
	StatWIFI           // can't initialize WiFi chip
	StatWPA2           // WPA2 join failed
	StatDHCP1          // DHCP request failed
	StatDHCP2          // no DHCP reply
	StatIP             // invalid IP address
	StatBOOT           // network not connected in time
	StatCONN           // connection to host failed
	StatDROP           // connection dropped
	StatMALF           // malformed response
	StatTIMEOUT        // no response in time
	StatREQ            // invalid request
	StatLISTEN1        // failed to create 9p listener
	StatLISTEN2        // failed to initialize 9p listener
	StatEXCP           // exception (panic) occured
)

// StatusOf returns the status code for a fetch result.
func StatusOf(err error) int {
	if err == nil {
		return StatOK
	}
	kind, ok := KindOf(err)
	if !ok {
		return StatUNK
	}
	switch kind {
	case KindConnectionFailed:
		return StatCONN
	case KindConnectionDropped:
		return StatDROP
	case KindMalformedResponse:
		return StatMALF
	case KindTimeout:
		return StatTIMEOUT
	case KindInvalidRequest:
		return StatREQ
	}
	return StatUNK
}

// BootStatus returns the status code for a bootstrap outcome. Stations
// that track their own failures (Fault() int) report those.
func BootStatus(st Station, err error) int {
	if err == nil {
		return StatOK
	}
	if f, ok := st.(interface{ Fault() int }); ok {
		if s := f.Fault(); s != StatOK && s != StatUNK {
			return s
		}
	}
	if kind, ok := KindOf(err); ok && kind == KindTimeout {
		return StatBOOT
	}
	return StatDEV
}

// Status handler.
// Show current status by blinking the device LED.
type Status struct {
	dev    Device       // reference to device
	curr   atomic.Int32 // current state
	repeat atomic.Int32 // current repeat counter
}

// NewStatus creates a new status display
func NewStatus(dev Device) (state *Status) {
	state = new(Status)
	state.dev = dev
	state.curr.Store(StatOK)
	go state.blink()
	return
}

// blink LED <state>; <repeat> times. Five short blinks are
// combined into one long blink.
func (state *Status) blink() {
	for {
		time.Sleep(5 * time.Second)
		num := state.curr.Load()
		for num > 5 {
			state.dev.LED(true)
			time.Sleep(1000 * time.Millisecond)
			state.dev.LED(false)
			time.Sleep(300 * time.Millisecond)
			num -= 5
		}
		for range num {
			state.dev.LED(true)
			time.Sleep(150 * time.Millisecond)
			state.dev.LED(false)
			time.Sleep(150 * time.Millisecond)
		}
		if state.repeat.Add(-1) == 0 {
			state.curr.Store(StatOK)
		}
	}
}

// Set status and repeat <num> times (0: forever).
func (state *Status) Set(flag, num int) {
	if state != nil {
		state.curr.Store(int32(flag))
		state.repeat.Store(int32(num))
	}
}

// Get current state and repeat counter
func (state *Status) Get() (int, int) {
	return int(state.curr.Load()), int(state.repeat.Load())
}

// Report the outcome of a fetch: failures blink three times.
func (state *Status) Report(r *Result) {
	if s := StatusOf(r.Err); s != StatOK {
		state.Set(s, 3)
	}
}

// Trap critical failures (panic)
func (state *Status) Trap(t time.Duration) {
	s, _ := state.Get()
	if r := recover(); r != nil {
		fmt.Printf("EXCP: %v\n", r)
		if s == StatOK {
			state.Set(StatEXCP, 0)
		}
	} else if s == StatOK {
		state.Set(StatUNK, 0)
	}
	time.Sleep(t)
}
