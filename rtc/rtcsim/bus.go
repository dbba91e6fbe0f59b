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

package rtcsim

import (
	"github.com/TheCacophonyProject/stm32-rtc/exti"
	"github.com/TheCacophonyProject/stm32-rtc/rtc"
)

// RC_W0 flags in RTC_ISR[13:8] are not write protected.
const isrUnprotected = rtc.ISR_ALRAF | rtc.ISR_ALRBF | rtc.ISR_WUTF | rtc.ISR_TSF |
	rtc.ISR_TSOVF | rtc.ISR_TAMP1F

const csrReady = rtc.CSR_LSERDY | rtc.CSR_LSIRDY

const csrBackupBits = rtc.CSR_LSEON | rtc.CSR_LSEBYP | rtc.CSR_RTCSEL_Msk<<rtc.CSR_RTCSEL_Pos |
	rtc.CSR_RTCEN

func setIf(v, mask uint32, on bool) uint32 {
	if on {
		return v | mask
	}
	return v &^ mask
}

func (s *Sim) csrAddr() uintptr { return s.layout.RCC + rtc.RCC_CSR }

func (s *Sim) backupWritable() bool {
	return s.mem[s.layout.PWR+rtc.PWR_CR]&rtc.PWR_CR_DBP != 0
}

// derive recomputes the hardware driven status bits.
func (s *Sim) derive() {
	csr := s.mem[s.csrAddr()]
	csr = setIf(csr, rtc.CSR_LSERDY, csr&rtc.CSR_LSEON != 0 && !s.stalled[LSERDY])
	csr = setIf(csr, rtc.CSR_LSIRDY, csr&rtc.CSR_LSION != 0 && !s.stalled[LSIRDY])
	s.mem[s.csrAddr()] = csr

	isr := s.mem[s.rtcAddr(rtc.ISR)]
	cr := s.mem[s.rtcAddr(rtc.CR)]
	isr = setIf(isr, rtc.ISR_INITF, isr&rtc.ISR_INIT != 0 && !s.stalled[INITF])
	isr = setIf(isr, rtc.ISR_WUTWF, cr&rtc.CR_WUTE == 0 && !s.stalled[WUTWF])
	s.mem[s.rtcAddr(rtc.ISR)] = isr
}

func (s *Sim) initf() bool {
	return s.mem[s.rtcAddr(rtc.ISR)]&rtc.ISR_INITF != 0
}

func (s *Sim) Load32(addr uintptr) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.derive()

	switch addr {
	case s.rtcAddr(rtc.ISR):
		// The shadow registers resynchronise continuously while the
		// calendar runs.
		isr := s.mem[addr]
		running := s.mem[s.csrAddr()]&rtc.CSR_RTCEN != 0
		if running && isr&(rtc.ISR_RSF|rtc.ISR_INIT) == 0 && !s.stalled[RSF] {
			s.mem[addr] = isr | rtc.ISR_RSF
		}
	case s.rtcAddr(rtc.TR):
		if !s.initf() {
			s.trLatched = true
		}
	case s.rtcAddr(rtc.DR):
		if !s.initf() {
			if !s.trLatched {
				s.violate("DR read before TR: snapshot may be torn")
			}
			s.trLatched = false
		}
	case s.rtcAddr(rtc.WPR):
		s.accesses = append(s.accesses, Access{Reg: s.name(addr)})
		return 0
	}
	v := s.mem[addr]
	s.accesses = append(s.accesses, Access{Reg: s.name(addr), Value: v})
	return v
}

func (s *Sim) Store32(addr uintptr, v uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accesses = append(s.accesses, Access{Write: true, Reg: s.name(addr), Value: v})
	s.derive()
	defer s.derive()

	if addr >= s.layout.RTC && addr <= s.rtcAddr(rtc.SSR) {
		s.storeRTC(addr, v)
		return
	}
	switch addr {
	case s.csrAddr():
		s.storeCSR(v)
	case s.layout.PWR + rtc.PWR_CR:
		if s.mem[s.layout.RCC+rtc.RCC_APB1ENR]&rtc.APB1ENR_PWREN == 0 {
			s.violate("PWR_CR written with the power controller clock off")
			return
		}
		if v&rtc.PWR_CR_CWUF != 0 {
			s.mem[s.layout.PWR+rtc.PWR_CSR] &^= rtc.PWR_CSR_WUF
		}
		s.mem[addr] = v &^ rtc.PWR_CR_CWUF
	case s.layout.EXTI + exti.SWIER:
		enabled := s.mem[s.layout.EXTI+exti.IMR] | s.mem[s.layout.EXTI+exti.EMR]
		s.mem[addr] |= v
		s.mem[s.layout.EXTI+exti.PR] |= v & enabled
	case s.layout.EXTI + exti.PR:
		s.mem[addr] &^= v
		s.mem[s.layout.EXTI+exti.SWIER] &^= v
	default:
		s.mem[addr] = v
	}
}

func (s *Sim) storeCSR(v uint32) {
	addr := s.csrAddr()
	old := s.mem[addr]
	v = v&^csrReady | old&csrReady

	if !s.backupWritable() && (old^v)&(csrBackupBits|rtc.CSR_BDRST) != 0 {
		s.violate("RCC_CSR backup domain bits written without DBP")
		v = v&^(csrBackupBits|rtc.CSR_BDRST) | old&(csrBackupBits|rtc.CSR_BDRST)
	}
	if old&rtc.CSR_BDRST != 0 && v&rtc.CSR_BDRST == 0 && old&rtc.CSR_RTCEN == 0 {
		s.backupResets++
		s.resetRTC()
		v &^= csrBackupBits
	}
	s.mem[addr] = v
}

func (s *Sim) storeRTC(addr uintptr, v uint32) {
	if !s.backupWritable() {
		s.violate("%s written without DBP", s.name(addr))
		return
	}
	off := addr - s.layout.RTC
	locked := s.wprStage != 2

	switch off {
	case rtc.WPR:
		switch {
		case v == rtc.WPRKey1:
			s.wprStage = 1
		case v == rtc.WPRKey2 && s.wprStage == 1:
			s.wprStage = 2
		default:
			s.wprStage = 0
		}
	case rtc.ISR:
		s.storeISR(v, locked)
	case rtc.TR, rtc.DR, rtc.PRER:
		if locked {
			s.violate("%s written while write-protected", s.name(addr))
			return
		}
		if !s.initf() {
			s.violate("%s written outside init mode", s.name(addr))
			return
		}
		s.mem[addr] = v
	case rtc.WUTR:
		if locked {
			s.violate("WUTR written while write-protected")
			return
		}
		if s.mem[s.rtcAddr(rtc.ISR)]&rtc.ISR_WUTWF == 0 {
			s.violate("WUTR written while the wakeup timer runs")
			return
		}
		s.mem[addr] = v & 0xFFFF
	case rtc.CR, rtc.CALIBR, rtc.ALRMAR, rtc.ALRMBR:
		if locked {
			s.violate("%s written while write-protected", s.name(addr))
			return
		}
		s.mem[addr] = v
	default:
		// Read-only: SSR.
	}
}

func (s *Sim) storeISR(v uint32, locked bool) {
	addr := s.rtcAddr(rtc.ISR)
	old := s.mem[addr]
	isr := old &^ (isrUnprotected &^ v)

	clearsRSF := old&rtc.ISR_RSF != 0 && v&rtc.ISR_RSF == 0
	changesInit := (old^v)&rtc.ISR_INIT != 0
	if locked {
		if clearsRSF || changesInit {
			s.violate("ISR written while write-protected")
		}
		s.mem[addr] = isr
		return
	}
	if clearsRSF {
		isr &^= rtc.ISR_RSF
	}
	isr = isr&^rtc.ISR_INIT | v&rtc.ISR_INIT
	if old&rtc.ISR_INIT != 0 && v&rtc.ISR_INIT == 0 {
		// Leaving init mode reloads the shadow registers.
		s.trLatched = false
		if !s.stalled[RSF] {
			isr |= rtc.ISR_RSF
		}
	}
	s.mem[addr] = isr
}
