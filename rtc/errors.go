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
	"time"
)

var (
	// ErrInvalidInput is returned for calendar fields or prescalers outside
	// their range. Nothing has been written to the hardware when it is
	// returned.
	ErrInvalidInput = errors.New("invalid input data")

	ErrTimeout         = errors.New("timed out waiting for hardware")
	ErrWakeupRange     = errors.New("wakeup interval out of range")
	ErrInvalidSnapshot = errors.New("calendar registers hold an invalid date")
	ErrUnknownEvent    = errors.New("unknown event")
)

// TimeoutError reports a status flag that did not reach the expected state.
type TimeoutError struct {
	Flag  string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("waiting for %s: no change after %v", e.Flag, e.After)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

func invalid(field string, v interface{}) error {
	return fmt.Errorf("%s %v: %w", field, v, ErrInvalidInput)
}
