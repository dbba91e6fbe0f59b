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

// Layout holds the base addresses of the peripherals the driver touches.
type Layout struct {
	RTC  uintptr `yaml:"rtc"`
	RCC  uintptr `yaml:"rcc"`
	PWR  uintptr `yaml:"pwr"`
	EXTI uintptr `yaml:"exti"`
}

// DefaultLayout is the STM32L1 memory map.
var DefaultLayout = Layout{
	RTC:  0x4000_2800,
	RCC:  0x4002_3800,
	PWR:  0x4000_7000,
	EXTI: 0x4001_0400,
}

// RTC register offsets.
const (
	TR     = 0x00 // time
	DR     = 0x04 // date
	CR     = 0x08 // control
	ISR    = 0x0C // initialization and status
	PRER   = 0x10 // prescalers
	WUTR   = 0x14 // wakeup timer reload
	CALIBR = 0x18
	ALRMAR = 0x1C
	ALRMBR = 0x20
	WPR    = 0x24 // write protection
	SSR    = 0x28 // sub second
)

// Write protection keys.
const (
	WPRKey1 = 0xCA
	WPRKey2 = 0x53
	WPRLock = 0xFF
)

// RTC_CR bits.
const (
	CR_WUCKSEL_Pos  = 0
	CR_WUCKSEL_Msk  = 0x7
	CR_FMT          = 1 << 6
	CR_ALRAE        = 1 << 8
	CR_ALRBE        = 1 << 9
	CR_WUTE         = 1 << 10
	CR_TSE          = 1 << 11
	CR_ALRAIE       = 1 << 12
	CR_ALRBIE       = 1 << 13
	CR_WUTIE        = 1 << 14
	CR_TSIE         = 1 << 15
	WUCKSEL_SPRE    = 0b100 // ck_spre, usually 1 Hz
	WUCKSEL_SPRE_HI = 0b110 // ck_spre with 2^16 added to the counter
)

// RTC_ISR bits.
const (
	ISR_ALRAWF = 1 << 0
	ISR_ALRBWF = 1 << 1
	ISR_WUTWF  = 1 << 2
	ISR_SHPF   = 1 << 3
	ISR_INITS  = 1 << 4
	ISR_RSF    = 1 << 5
	ISR_INITF  = 1 << 6
	ISR_INIT   = 1 << 7
	ISR_ALRAF  = 1 << 8
	ISR_ALRBF  = 1 << 9
	ISR_WUTF   = 1 << 10
	ISR_TSF    = 1 << 11
	ISR_TSOVF  = 1 << 12
	ISR_TAMP1F = 1 << 13

	// Flags cleared by writing 0; writing 1 leaves them alone.
	ISR_RC_W0 = ISR_RSF | ISR_ALRAF | ISR_ALRBF | ISR_WUTF | ISR_TSF | ISR_TSOVF | ISR_TAMP1F
)

// RTC_PRER fields.
const (
	PRER_S_Pos = 0
	PRER_S_Msk = 0x7FFF
	PRER_A_Pos = 16
	PRER_A_Msk = 0x7F
)

// RCC offsets and RCC_CSR bits.
const (
	RCC_APB1ENR = 0x24
	RCC_CSR     = 0x34

	APB1ENR_PWREN = 1 << 28

	CSR_LSION      = 1 << 0
	CSR_LSIRDY     = 1 << 1
	CSR_LSEON      = 1 << 8
	CSR_LSERDY     = 1 << 9
	CSR_LSEBYP     = 1 << 10
	// The backup domain reset pulse shares bit 16 with RTCSEL[0]. It is
	// only pulsed before RTCSEL is programmed.
	CSR_BDRST      = 1 << 16
	CSR_RTCSEL_Pos = 16
	CSR_RTCSEL_Msk = 0x3
	CSR_RTCEN      = 1 << 22

	RTCSEL_LSE = 1
	RTCSEL_LSI = 2
)

// PWR offsets and bits.
const (
	PWR_CR  = 0x00
	PWR_CSR = 0x04

	PWR_CR_CWUF = 1 << 2
	PWR_CR_DBP  = 1 << 8
	PWR_CSR_WUF = 1 << 0
)

// Interrupt controller lines wired to RTC events.
const (
	LineAlarm     = 17
	LineTimestamp = 19
	LineWakeup    = 20
)
