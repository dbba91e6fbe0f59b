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

func (r *RTC[CS]) unlock() {
	wpr := r.reg(WPR)
	wpr.Set(WPRKey1)
	wpr.Set(WPRKey2)
}

func (r *RTC[CS]) lock() {
	r.reg(WPR).Set(WPRLock)
}

// unlocked runs fn with write protection lifted. Alarm, wakeup and interrupt
// enable registers can be written this way while the calendar keeps running.
func (r *RTC[CS]) unlocked(fn func() error) error {
	r.unlock()
	defer r.lock()
	return fn()
}

// modify runs fn with write protection lifted and the calendar halted in init
// mode, as required for TR, DR and PRER writes (RM0038 20.3.5). Init mode is
// left and write protection restored whatever happens.
func (r *RTC[CS]) modify(fn func()) error {
	r.unlock()
	defer r.lock()

	isr := r.reg(ISR)
	if !isr.HasBits(ISR_INITF) {
		isr.Set(ISR_RC_W0 | ISR_INIT)
		if err := r.waitSet(isr, ISR_INITF, "INITF"); err != nil {
			isr.Set(ISR_RC_W0)
			return err
		}
	}

	fn()

	isr.Set(ISR_RC_W0)
	// INITF drops once the shadow registers have been reloaded.
	return r.waitClear(isr, ISR_INITF, "INITF")
}
