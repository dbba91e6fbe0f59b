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
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Calendar is implemented by every RTC regardless of its clock source.
type Calendar interface {
	DateTime() (time.Time, error)
	SetDateTime(time.Time) error
}

// Host lets the system clock be swapped out in tests.
type Host struct {
	Now           func() time.Time
	SetSystemTime func(time.Time) error
}

// System uses the real system clock.
var System = Host{
	Now:           time.Now,
	SetSystemTime: SetSystemTime,
}

// Read sets the system time from the RTC, trying up to attempts times.
func (h Host) Read(c Calendar, attempts int) (time.Time, error) {
	var t time.Time
	err := retry(attempts, func() error {
		var err error
		t, err = c.DateTime()
		if err != nil {
			return err
		}
		return h.SetSystemTime(t)
	})
	return t, err
}

// Write sets the RTC to the current system time in UTC, trying up to
// attempts times.
func (h Host) Write(c Calendar, attempts int) error {
	return retry(attempts, func() error {
		return c.SetDateTime(h.Now().UTC())
	})
}

func retry(attempts int, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		// Bad input will not get better by trying again.
		if errors.Is(err, ErrInvalidInput) {
			break
		}
	}
	return err
}

// SetSystemTime sets the system clock with date(1).
func SetSystemTime(t time.Time) error {
	arg := fmt.Sprintf("@%d", t.Unix())
	out, err := exec.Command("date", "-u", "-s", arg).CombinedOutput()
	if err != nil {
		return fmt.Errorf("date -s %s: %v - %s", arg, err, string(out))
	}
	return nil
}

func IsNTPSynced() (bool, error) {
	out, err := exec.Command("timedatectl").CombinedOutput()
	if err != nil {
		return false, fmt.Errorf("failed check to NTP status: %v - %s", err, string(out))
	}
	return strings.Contains(string(out), "synchronized: yes"), nil
}
