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

	"github.com/TheCacophonyProject/stm32-rtc/mmio"
)

// LSEMode selects how the external low-speed oscillator is driven.
type LSEMode uint8

const (
	// Oscillator drives an external crystal or ceramic resonator.
	Oscillator LSEMode = iota
	// Bypass takes an external clock on OSC32_IN, e.g. from a MEMS
	// resonator.
	Bypass
)

func (m LSEMode) String() string {
	if m == Bypass {
		return "bypass"
	}
	return "oscillator"
}

// Prescalers divide the RTC clock down to the 1 Hz calendar tick:
// f = f_rtcclk / ((Async+1) * (Sync+1)).
type Prescalers struct {
	Sync  uint16 `yaml:"sync"`
	Async uint8  `yaml:"async"`
}

// AN3371 table 3 settings for a 1 Hz calendar.
var (
	DefaultLSEPrescalers = Prescalers{Sync: 255, Async: 127}
	DefaultLSIPrescalers = Prescalers{Sync: 249, Async: 127}
)

func (p Prescalers) validate() error {
	if p.Sync > PRER_S_Msk {
		return invalid("synchronous prescaler", p.Sync)
	}
	if p.Async > PRER_A_Msk {
		return invalid("asynchronous prescaler", p.Async)
	}
	return nil
}

func (p Prescalers) bits() uint32 {
	return uint32(p.Async)<<PRER_A_Pos | uint32(p.Sync)<<PRER_S_Pos
}

// NewLSE brings up the RTC on a crystal driven LSE with the default
// prescalers.
func NewLSE(bus mmio.Bus, cfg Config) (*RTC[Lse], error) {
	return NewLSEWithConfig(bus, cfg, Oscillator, DefaultLSEPrescalers)
}

// NewLSEWithConfig brings up the RTC on the LSE in the given mode with custom
// prescalers.
func NewLSEWithConfig(bus mmio.Bus, cfg Config, mode LSEMode, p Prescalers) (*RTC[Lse], error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	r := newRTC[Lse](bus, cfg)
	r.enableBackupAccess()

	csr := r.rcc(RCC_CSR)
	if !csr.HasBits(CSR_LSERDY) {
		r.log.Printf("starting LSE in %v mode", mode)
		r.backupReset()
		csr.SetBits(CSR_LSEON)
		if mode == Bypass {
			csr.SetBits(CSR_LSEBYP)
		} else {
			csr.ClearBits(CSR_LSEBYP)
		}
		if err := r.waitSet(csr, CSR_LSERDY, "LSERDY"); err != nil {
			return nil, fmt.Errorf("failed to start LSE: %w", err)
		}
	}
	if err := r.start(RTCSEL_LSE, p); err != nil {
		return nil, err
	}
	return r, nil
}

// NewLSI brings up the RTC on the internal oscillator with the default
// prescalers.
func NewLSI(bus mmio.Bus, cfg Config) (*RTC[Lsi], error) {
	return NewLSIWithConfig(bus, cfg, DefaultLSIPrescalers)
}

// NewLSIWithConfig brings up the RTC on the internal oscillator with custom
// prescalers.
func NewLSIWithConfig(bus mmio.Bus, cfg Config, p Prescalers) (*RTC[Lsi], error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	r := newRTC[Lsi](bus, cfg)
	r.enableBackupAccess()

	csr := r.rcc(RCC_CSR)
	if !csr.HasBits(CSR_LSIRDY) {
		r.log.Printf("starting LSI")
		r.backupReset()
		csr.SetBits(CSR_LSION)
		if err := r.waitSet(csr, CSR_LSIRDY, "LSIRDY"); err != nil {
			return nil, fmt.Errorf("failed to start LSI: %w", err)
		}
	}
	if err := r.start(RTCSEL_LSI, p); err != nil {
		return nil, err
	}
	return r, nil
}

// enableBackupAccess clocks the power controller and lifts the backup domain
// write protection.
func (r *RTC[CS]) enableBackupAccess() {
	r.rcc(RCC_APB1ENR).SetBits(APB1ENR_PWREN)
	r.pwr(PWR_CR).SetBits(PWR_CR_DBP)
}

// backupReset pulses the backup domain reset so the oscillator starts from a
// clean state.
func (r *RTC[CS]) backupReset() {
	csr := r.rcc(RCC_CSR)
	csr.SetBits(CSR_BDRST)
	csr.ClearBits(CSR_BDRST)
}

// start selects the clock source, enables the RTC and programs 24 hour mode
// and the prescalers.
func (r *RTC[CS]) start(sel uint32, p Prescalers) error {
	csr := r.rcc(RCC_CSR)
	csr.ReplaceBits(sel, CSR_RTCSEL_Msk, CSR_RTCSEL_Pos)
	csr.SetBits(CSR_RTCEN)
	r.log.Printf("%v enabled, prescalers sync=%d async=%d", r, p.Sync, p.Async)

	err := r.modify(func() {
		r.reg(CR).ClearBits(CR_FMT)
		r.reg(PRER).Set(p.bits())
	})
	if err != nil {
		return fmt.Errorf("failed to configure %v: %w", r, err)
	}
	return nil
}

// SetPrescalers reprograms the calendar prescalers, e.g. for a clock source
// that does not run at 32.768 kHz.
func (r *RTC[CS]) SetPrescalers(sync uint16, async uint8) error {
	p := Prescalers{Sync: sync, Async: async}
	if err := p.validate(); err != nil {
		return err
	}
	return r.modify(func() {
		r.reg(PRER).Set(p.bits())
	})
}
