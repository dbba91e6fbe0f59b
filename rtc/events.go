// rtc-utils: Utilities for managing real-time clocks.
// Copyright (C) 2019  The Cacophony Project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package rtc

import (
	"fmt"

	"github.com/TheCacophonyProject/stm32-rtc/exti"
)

// Event is an RTC interrupt source.
type Event uint8

const (
	AlarmA Event = iota
	AlarmB
	Wakeup
	Timestamp
)

type route struct {
	name   string
	line   uint8
	enable uint32 // RTC_CR interrupt enable
	flag   uint32 // RTC_ISR status flag
}

// Both alarms share line 17, so unpending one alarm clears the line for the
// other as well.
var routes = [...]route{
	AlarmA:    {"alarm A", LineAlarm, CR_ALRAIE, ISR_ALRAF},
	AlarmB:    {"alarm B", LineAlarm, CR_ALRBIE, ISR_ALRBF},
	Wakeup:    {"wakeup", LineWakeup, CR_WUTIE, ISR_WUTF},
	Timestamp: {"timestamp", LineTimestamp, CR_TSIE, ISR_TSF},
}

func (e Event) route() (route, error) {
	if int(e) >= len(routes) {
		return route{}, fmt.Errorf("event %d: %w", uint8(e), ErrUnknownEvent)
	}
	return routes[e], nil
}

func (e Event) String() string {
	if rt, err := e.route(); err == nil {
		return rt.name
	}
	return fmt.Sprintf("Event(%d)", uint8(e))
}

// Line returns the interrupt line e is wired to, or exti.NumLines for an
// unknown event.
func (e Event) Line() uint8 {
	rt, err := e.route()
	if err != nil {
		return exti.NumLines
	}
	return rt.line
}

// Listen routes e to its interrupt line on a rising edge and enables the
// RTC interrupt for it.
func (r *RTC[CS]) Listen(e Event) error {
	rt, err := e.route()
	if err != nil {
		return err
	}
	return r.unlocked(func() error {
		if err := r.lines.Listen(rt.line, exti.Rising); err != nil {
			return fmt.Errorf("listen for %v: %w", e, err)
		}
		r.reg(CR).SetBits(rt.enable)
		return nil
	})
}

// Unpend acknowledges e. Call it from the handler of e's interrupt line or
// the interrupt fires again as soon as the handler returns.
func (r *RTC[CS]) Unpend(e Event) error {
	rt, err := e.route()
	if err != nil {
		return err
	}
	r.pwr(PWR_CR).SetBits(PWR_CR_CWUF)
	r.clearFlags(rt.flag)
	return r.lines.Unpend(rt.line)
}
