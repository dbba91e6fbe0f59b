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

// Package rtc drives the battery-backed calendar peripheral of STM32L1 class
// microcontrollers: clock source bring-up, the BCD calendar, the periodic
// wakeup timer and routing of RTC events to interrupt lines.
//
// Reference manual: RM0038, section "Real-time clock (RTC)".
package rtc

import (
	"io"
	"log"
	"time"

	"github.com/TheCacophonyProject/stm32-rtc/exti"
	"github.com/TheCacophonyProject/stm32-rtc/mmio"
)

// DefaultTimeout bounds every wait on a hardware status flag.
const DefaultTimeout = time.Second

// Lse tags an RTC clocked from the external 32.768 kHz oscillator.
type Lse struct{}

// Lsi tags an RTC clocked from the internal low-speed oscillator.
type Lsi struct{}

func (Lse) String() string { return "LSE" }
func (Lsi) String() string { return "LSI" }

// Source is the set of clock source tags. The tag is fixed by the
// constructor that built the RTC.
type Source interface {
	Lse | Lsi
	String() string
}

// Clock is the time source used to bound hardware waits.
type Clock interface {
	Now() time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// InterruptLines is the part of the interrupt controller the RTC needs.
// *exti.Controller implements it.
type InterruptLines interface {
	Listen(line uint8, edge exti.Edge) error
	Unpend(line uint8) error
}

// Config holds the optional settings shared by every constructor. The zero
// value is usable.
type Config struct {
	// Layout defaults to DefaultLayout.
	Layout Layout
	// Lines defaults to an exti.Controller at Layout.EXTI.
	Lines InterruptLines
	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration
	// Clock defaults to the wall clock.
	Clock Clock
	// Location is attached to times returned by DateTime. Defaults to UTC.
	Location *time.Location
	Logger   *log.Logger
}

// RTC owns the RTC register block. Methods must not be called concurrently;
// interrupt handlers should use an exti.Lines value instead.
type RTC[CS Source] struct {
	bus     mmio.Bus
	layout  Layout
	lines   InterruptLines
	clock   Clock
	timeout time.Duration
	loc     *time.Location
	log     *log.Logger
}

func newRTC[CS Source](bus mmio.Bus, cfg Config) *RTC[CS] {
	r := &RTC[CS]{
		bus:     bus,
		layout:  cfg.Layout,
		lines:   cfg.Lines,
		clock:   cfg.Clock,
		timeout: cfg.Timeout,
		loc:     cfg.Location,
		log:     cfg.Logger,
	}
	if r.layout == (Layout{}) {
		r.layout = DefaultLayout
	}
	if r.lines == nil {
		r.lines = exti.New(bus, r.layout.EXTI)
	}
	if r.clock == nil {
		r.clock = wallClock{}
	}
	if r.timeout <= 0 {
		r.timeout = DefaultTimeout
	}
	if r.loc == nil {
		r.loc = time.UTC
	}
	if r.log == nil {
		r.log = log.New(io.Discard, "", 0)
	}
	return r
}

func (r *RTC[CS]) String() string {
	var cs CS
	return "rtc(" + cs.String() + ")"
}

// Release gives up ownership of the register bus.
func (r *RTC[CS]) Release() mmio.Bus {
	bus := r.bus
	r.bus = nil
	return bus
}

func (r *RTC[CS]) reg(off uintptr) mmio.Reg {
	return mmio.At(r.bus, r.layout.RTC, off)
}

func (r *RTC[CS]) rcc(off uintptr) mmio.Reg {
	return mmio.At(r.bus, r.layout.RCC, off)
}

func (r *RTC[CS]) pwr(off uintptr) mmio.Reg {
	return mmio.At(r.bus, r.layout.PWR, off)
}

// clearFlags clears rc_w0 status flags in a single store, leaving the other
// flags and INIT as they are.
func (r *RTC[CS]) clearFlags(mask uint32) {
	isr := r.reg(ISR)
	isr.Set(ISR_RC_W0&^mask | isr.Get()&ISR_INIT)
}
