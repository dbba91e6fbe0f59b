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

import "fmt"

const wakeupSpan = 1 << 16

// MaxWakeupInterval is the longest interval, in ck_spre ticks, EnableWakeup
// accepts.
const MaxWakeupInterval = 2 * wakeupSpan

// wakeupEncoding returns the WUCKSEL mode and WUTR reload for interval ticks.
// Up to 2^16 ticks the reload is loaded directly; above that the counter gets
// 2^16 added by hardware.
func wakeupEncoding(interval uint32) (sel, reload uint32, err error) {
	switch {
	case interval == 0 || interval > MaxWakeupInterval:
		return 0, 0, fmt.Errorf("%d ticks: %w", interval, ErrWakeupRange)
	case interval > wakeupSpan:
		return WUCKSEL_SPRE_HI, interval - wakeupSpan - 1, nil
	default:
		return WUCKSEL_SPRE, interval - 1, nil
	}
}

// EnableWakeup starts the periodic wakeup timer with a period of interval
// ck_spre ticks (seconds with the default prescalers), 1 to
// MaxWakeupInterval.
func (r *RTC[CS]) EnableWakeup(interval uint32) error {
	sel, reload, err := wakeupEncoding(interval)
	if err != nil {
		return err
	}
	return r.unlocked(func() error {
		cr := r.reg(CR)
		cr.ClearBits(CR_WUTE)
		r.clearFlags(ISR_WUTF)
		if err := r.waitSet(r.reg(ISR), ISR_WUTWF, "WUTWF"); err != nil {
			return err
		}
		cr.ReplaceBits(sel, CR_WUCKSEL_Msk, CR_WUCKSEL_Pos)
		r.reg(WUTR).Set(reload)
		cr.SetBits(CR_WUTE)
		return nil
	})
}

// DisableWakeup stops the wakeup timer and clears its flag.
func (r *RTC[CS]) DisableWakeup() error {
	return r.unlocked(func() error {
		r.reg(CR).ClearBits(CR_WUTE)
		r.clearFlags(ISR_WUTF)
		return nil
	})
}

// WakeupTimer loads the low 16 bits of val into WUTR verbatim, selects plain
// ck_spre and enables the wakeup timer together with its interrupt. The
// hardware period is val+1 ticks. A running timer is stopped first.
func (r *RTC[CS]) WakeupTimer(val uint32) error {
	return r.unlocked(func() error {
		isr := r.reg(ISR)
		cr := r.reg(CR)
		cr.ClearBits(CR_WUTE)
		r.clearFlags(ISR_WUTF)
		if err := r.waitClear(isr, ISR_WUTF, "WUTF"); err != nil {
			return err
		}
		if err := r.waitSet(isr, ISR_WUTWF, "WUTWF"); err != nil {
			return err
		}
		r.reg(WUTR).Set(val & 0xFFFF)
		cr.Set(cr.Get()&^(CR_WUCKSEL_Msk<<CR_WUCKSEL_Pos) | WUCKSEL_SPRE | CR_WUTIE | CR_WUTE)
		return nil
	})
}
