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

// Package rtcsim simulates the RTC, RCC, PWR and interrupt controller
// registers closely enough to exercise the rtc driver without hardware.
//
// The simulator enforces write protection, init mode, the wakeup write
// window and the TR-before-DR shadow register read order. Writes the real
// peripheral would ignore are dropped and recorded as violations.
package rtcsim

import (
	"fmt"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/TheCacophonyProject/stm32-rtc/exti"
	"github.com/TheCacophonyProject/stm32-rtc/rtc"
)

// Flag names a status flag that Stall can hold back.
type Flag string

const (
	LSERDY Flag = "LSERDY"
	LSIRDY Flag = "LSIRDY"
	INITF  Flag = "INITF"
	RSF    Flag = "RSF"
	WUTWF  Flag = "WUTWF"
)

// Access is one bus access.
type Access struct {
	Write bool
	Reg   string
	Value uint32
}

func (a Access) String() string {
	if a.Write {
		return fmt.Sprintf("%s<-%#x", a.Reg, a.Value)
	}
	return fmt.Sprintf("%s->%#x", a.Reg, a.Value)
}

// RTC register reset values.
const (
	resetDR   = 0x0000_2101
	resetISR  = rtc.ISR_ALRAWF | rtc.ISR_ALRBWF | rtc.ISR_WUTWF
	resetPRER = 0x007F_00FF
	resetWUTR = 0xFFFF
)

// Sim is an mmio.Bus. It is safe for concurrent use, so interrupt handlers
// may be simulated from other goroutines.
type Sim struct {
	mu     sync.Mutex
	layout rtc.Layout
	mem    map[uintptr]uint32
	names  map[uintptr]string

	wprStage  int
	trLatched bool
	stalled   map[Flag]bool

	accesses     []Access
	violations   []string
	backupResets int
}

// New returns a simulator in the power-on reset state.
func New(layout rtc.Layout) *Sim {
	s := &Sim{
		layout:  layout,
		mem:     map[uintptr]uint32{},
		names:   map[uintptr]string{},
		stalled: map[Flag]bool{},
	}
	for off, name := range map[uintptr]string{
		rtc.TR: "TR", rtc.DR: "DR", rtc.CR: "CR", rtc.ISR: "ISR",
		rtc.PRER: "PRER", rtc.WUTR: "WUTR", rtc.CALIBR: "CALIBR",
		rtc.ALRMAR: "ALRMAR", rtc.ALRMBR: "ALRMBR", rtc.WPR: "WPR", rtc.SSR: "SSR",
	} {
		s.names[layout.RTC+off] = name
	}
	s.names[layout.RCC+rtc.RCC_APB1ENR] = "RCC_APB1ENR"
	s.names[layout.RCC+rtc.RCC_CSR] = "RCC_CSR"
	s.names[layout.PWR+rtc.PWR_CR] = "PWR_CR"
	s.names[layout.PWR+rtc.PWR_CSR] = "PWR_CSR"
	for off, name := range map[uintptr]string{
		exti.IMR: "EXTI_IMR", exti.EMR: "EXTI_EMR", exti.RTSR: "EXTI_RTSR",
		exti.FTSR: "EXTI_FTSR", exti.SWIER: "EXTI_SWIER", exti.PR: "EXTI_PR",
	} {
		s.names[layout.EXTI+off] = name
	}
	s.resetRTC()
	return s
}

func (s *Sim) resetRTC() {
	for off := uintptr(0); off <= rtc.SSR; off += 4 {
		s.mem[s.layout.RTC+off] = 0
	}
	s.mem[s.rtcAddr(rtc.DR)] = resetDR
	s.mem[s.rtcAddr(rtc.ISR)] = resetISR
	s.mem[s.rtcAddr(rtc.PRER)] = resetPRER
	s.mem[s.rtcAddr(rtc.WUTR)] = resetWUTR
	s.wprStage = 0
	s.trLatched = false
}

func (s *Sim) rtcAddr(off uintptr) uintptr { return s.layout.RTC + off }

func (s *Sim) name(addr uintptr) string {
	if n, ok := s.names[addr]; ok {
		return n
	}
	return fmt.Sprintf("%#x", addr)
}

func (s *Sim) violate(format string, args ...interface{}) {
	s.violations = append(s.violations, fmt.Sprintf(format, args...))
}

// Stall holds flag in its not-ready state until Release.
func (s *Sim) Stall(f Flag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stalled[f] = true
}

// Release lets a stalled flag progress again.
func (s *Sim) Release(f Flag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.stalled, f)
}

// Peek returns a register without side effects or logging.
func (s *Sim) Peek(addr uintptr) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mem[addr]
}

// Poke sets a register without side effects or logging.
func (s *Sim) Poke(addr uintptr, v uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mem[addr] = v
}

// PeekRTC returns the RTC register at offset off.
func (s *Sim) PeekRTC(off uintptr) uint32 { return s.Peek(s.rtcAddr(off)) }

// PokeRTC sets the RTC register at offset off.
func (s *Sim) PokeRTC(off uintptr, v uint32) { s.Poke(s.rtcAddr(off), v) }

// PeekEXTI returns the interrupt controller register at offset off.
func (s *Sim) PeekEXTI(off uintptr) uint32 { return s.Peek(s.layout.EXTI + off) }

// Locked reports whether RTC write protection is engaged.
func (s *Sim) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wprStage != 2
}

// Violations returns the protocol violations seen so far.
func (s *Sim) Violations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.violations)
}

// Accesses returns the bus accesses seen so far.
func (s *Sim) Accesses() []Access {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.accesses)
}

// ResetLog forgets recorded accesses and violations.
func (s *Sim) ResetLog() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accesses = nil
	s.violations = nil
}

// Reads returns the names of the registers read, in order.
func (s *Sim) Reads() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, a := range s.accesses {
		if !a.Write {
			out = append(out, a.Reg)
		}
	}
	return out
}

// LastWrite returns the last value stored to the named register.
func (s *Sim) LastWrite(reg string) (uint32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.accesses) - 1; i >= 0; i-- {
		if a := s.accesses[i]; a.Write && a.Reg == reg {
			return a.Value, true
		}
	}
	return 0, false
}

// Wrote reports whether the named register was ever stored to.
func (s *Sim) Wrote(reg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.IndexFunc(s.accesses, func(a Access) bool {
		return a.Write && a.Reg == reg
	}) >= 0
}

// BackupResets counts backup domain reset pulses.
func (s *Sim) BackupResets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backupResets
}

var eventFlags = map[rtc.Event]uint32{
	rtc.AlarmA:    rtc.ISR_ALRAF,
	rtc.AlarmB:    rtc.ISR_ALRBF,
	rtc.Wakeup:    rtc.ISR_WUTF,
	rtc.Timestamp: rtc.ISR_TSF,
}

// Raise sets the status flag of e as the hardware would, pending its
// interrupt line if unmasked. Unknown events are ignored.
func (s *Sim) Raise(e rtc.Event) {
	flag, ok := eventFlags[e]
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mem[s.rtcAddr(rtc.ISR)] |= flag
	s.mem[s.layout.PWR+rtc.PWR_CSR] |= rtc.PWR_CSR_WUF
	bm := uint32(1) << e.Line()
	if s.mem[s.layout.EXTI+exti.IMR]&bm != 0 {
		s.mem[s.layout.EXTI+exti.PR] |= bm
	}
}
