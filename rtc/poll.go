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

import "github.com/TheCacophonyProject/stm32-rtc/mmio"

// waitFor spins until done reports true or the timeout passes on r.clock.
func (r *RTC[CS]) waitFor(flag string, done func() bool) error {
	start := r.clock.Now()
	for !done() {
		if elapsed := r.clock.Now().Sub(start); elapsed > r.timeout {
			if done() {
				return nil
			}
			return &TimeoutError{Flag: flag, After: elapsed}
		}
	}
	return nil
}

func (r *RTC[CS]) waitSet(reg mmio.Reg, mask uint32, flag string) error {
	return r.waitFor(flag, func() bool { return reg.HasBits(mask) })
}

func (r *RTC[CS]) waitClear(reg mmio.Reg, mask uint32, flag string) error {
	return r.waitFor(flag+" clear", func() bool { return !reg.HasBits(mask) })
}
