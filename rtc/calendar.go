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
	"time"
)

// The year register holds 00-99 counted from this epoch.
const (
	MinYear = 1970
	MaxYear = MinYear + 99
)

// bcdEncode splits v, at most 99, into its tens and units digits. The tens
// digit must fit in tensBits bits.
func bcdEncode(v uint32, tensBits uint8) (tens, units uint32, err error) {
	tens, units = v/10, v%10
	if v > 99 || tens >= 1<<tensBits {
		return 0, 0, invalid("bcd value", v)
	}
	return tens, units, nil
}

func bcdDecode(tens, units uint32) uint32 {
	return tens*10 + units
}

// field is one BCD sub-field of TR or DR. Units always take 4 bits.
type field struct {
	reg      uintptr
	unitsPos uint8
	tensPos  uint8
	tensBits uint8
	// clear lists bits outside the field that a write always clears.
	clear uint32
}

var (
	fieldSeconds = field{reg: TR, unitsPos: 0, tensPos: 4, tensBits: 3}
	fieldMinutes = field{reg: TR, unitsPos: 8, tensPos: 12, tensBits: 3}
	fieldHours   = field{reg: TR, unitsPos: 16, tensPos: 20, tensBits: 2, clear: trPM}
	fieldDay     = field{reg: DR, unitsPos: 0, tensPos: 4, tensBits: 2}
	fieldMonth   = field{reg: DR, unitsPos: 8, tensPos: 12, tensBits: 1}
	fieldYear    = field{reg: DR, unitsPos: 16, tensPos: 20, tensBits: 4}
)

const (
	trPM      = 1 << 22
	drWDU_Pos = 13
	drWDU_Msk = 0x7
)

func (f field) mask() uint32 {
	return (1<<f.tensBits-1)<<f.tensPos | 0xF<<f.unitsPos | f.clear
}

func (f field) encode(v uint32) (uint32, error) {
	tens, units, err := bcdEncode(v, f.tensBits)
	if err != nil {
		return 0, err
	}
	return tens<<f.tensPos | units<<f.unitsPos, nil
}

func (f field) decode(reg uint32) uint32 {
	tens := reg >> f.tensPos & (1<<f.tensBits - 1)
	units := reg >> f.unitsPos & 0xF
	return bcdDecode(tens, units)
}

// setField replaces one field of TR or DR, leaving its neighbours.
func (r *RTC[CS]) setField(f field, v uint32) error {
	bits, err := f.encode(v)
	if err != nil {
		return err
	}
	return r.modify(func() {
		reg := r.reg(f.reg)
		reg.Set(reg.Get()&^f.mask() | bits)
	})
}

// SetSeconds sets the seconds [0-59].
func (r *RTC[CS]) SetSeconds(seconds uint8) error {
	if seconds > 59 {
		return invalid("seconds", seconds)
	}
	return r.setField(fieldSeconds, uint32(seconds))
}

// SetMinutes sets the minutes [0-59].
func (r *RTC[CS]) SetMinutes(minutes uint8) error {
	if minutes > 59 {
		return invalid("minutes", minutes)
	}
	return r.setField(fieldMinutes, uint32(minutes))
}

// SetHours sets the hours [0-23]. The RTC always runs in 24 hour format.
func (r *RTC[CS]) SetHours(hours uint8) error {
	if hours > 23 {
		return invalid("hours", hours)
	}
	return r.setField(fieldHours, uint32(hours))
}

// SetWeekday sets the day of week [1-7], Monday being 1.
func (r *RTC[CS]) SetWeekday(weekday uint8) error {
	if weekday < 1 || weekday > 7 {
		return invalid("weekday", weekday)
	}
	return r.modify(func() {
		r.reg(DR).ReplaceBits(uint32(weekday), drWDU_Msk, drWDU_Pos)
	})
}

// SetDay sets the day of month [1-31].
func (r *RTC[CS]) SetDay(day uint8) error {
	if day < 1 || day > 31 {
		return invalid("day", day)
	}
	return r.setField(fieldDay, uint32(day))
}

// SetMonth sets the month [1-12].
func (r *RTC[CS]) SetMonth(month uint8) error {
	if month < 1 || month > 12 {
		return invalid("month", month)
	}
	return r.setField(fieldMonth, uint32(month))
}

// SetYear sets the year [1970-2069].
func (r *RTC[CS]) SetYear(year uint16) error {
	if year < MinYear || year > MaxYear {
		return invalid("year", year)
	}
	return r.setField(fieldYear, uint32(year-MinYear))
}

func encodeTime(hours, minutes, seconds uint8) (uint32, error) {
	if hours > 23 {
		return 0, invalid("hours", hours)
	}
	if minutes > 59 {
		return 0, invalid("minutes", minutes)
	}
	if seconds > 59 {
		return 0, invalid("seconds", seconds)
	}
	var tr uint32
	for _, fv := range []struct {
		f field
		v uint8
	}{{fieldHours, hours}, {fieldMinutes, minutes}, {fieldSeconds, seconds}} {
		bits, err := fv.f.encode(uint32(fv.v))
		if err != nil {
			return 0, err
		}
		tr |= bits
	}
	// PM stays clear in 24 hour format.
	return tr, nil
}

// isoWeekday maps Sunday to 7 as the weekday field expects.
func isoWeekday(d time.Weekday) uint32 {
	if d == time.Sunday {
		return 7
	}
	return uint32(d)
}

func encodeDate(t time.Time) (uint32, error) {
	year := t.Year()
	if year < MinYear || year > MaxYear {
		return 0, invalid("year", year)
	}
	dr := isoWeekday(t.Weekday()) << drWDU_Pos
	for _, fv := range []struct {
		f field
		v int
	}{{fieldYear, year - MinYear}, {fieldMonth, int(t.Month())}, {fieldDay, t.Day()}} {
		bits, err := fv.f.encode(uint32(fv.v))
		if err != nil {
			return 0, err
		}
		dr |= bits
	}
	return dr, nil
}

// SetTime writes hours, minutes and seconds in a single TR store.
func (r *RTC[CS]) SetTime(hours, minutes, seconds uint8) error {
	tr, err := encodeTime(hours, minutes, seconds)
	if err != nil {
		return err
	}
	return r.modify(func() {
		r.reg(TR).Set(tr)
	})
}

// SetDate writes the calendar date of t, including its weekday, in a single DR
// store. The time of day is left alone.
func (r *RTC[CS]) SetDate(t time.Time) error {
	dr, err := encodeDate(t)
	if err != nil {
		return err
	}
	return r.modify(func() {
		r.reg(DR).Set(dr)
	})
}

// SetDateTime writes the wall clock fields of t. Sub-second precision and
// the location of t are dropped; pass t.UTC() to keep the RTC on UTC.
func (r *RTC[CS]) SetDateTime(t time.Time) error {
	dr, err := encodeDate(t)
	if err != nil {
		return err
	}
	tr, err := encodeTime(uint8(t.Hour()), uint8(t.Minute()), uint8(t.Second()))
	if err != nil {
		return err
	}
	return r.modify(func() {
		r.reg(DR).Set(dr)
		r.reg(TR).Set(tr)
	})
}

// DateTime reads the calendar. TR must be read before DR: reading TR freezes
// the date shadow register until DR has been read.
func (r *RTC[CS]) DateTime() (time.Time, error) {
	isr := r.reg(ISR)
	if err := r.waitSet(isr, ISR_RSF, "RSF"); err != nil {
		return time.Time{}, err
	}
	tr := r.reg(TR).Get()
	dr := r.reg(DR).Get()
	// RSF must be cleared in case of another read within two RTCCLK periods.
	r.unlocked(func() error {
		r.clearFlags(ISR_RSF)
		return nil
	})
	return decodeDateTime(tr, dr, r.loc)
}

func decodeDateTime(tr, dr uint32, loc *time.Location) (time.Time, error) {
	var (
		seconds = int(fieldSeconds.decode(tr))
		minutes = int(fieldMinutes.decode(tr))
		hours   = int(fieldHours.decode(tr))
		day     = int(fieldDay.decode(dr))
		month   = int(fieldMonth.decode(dr))
		year    = int(fieldYear.decode(dr)) + MinYear
	)
	t := time.Date(year, time.Month(month), day, hours, minutes, seconds, 0, loc)
	// time.Date normalises out of range values, so a mismatch means the
	// registers held something no calendar has.
	if seconds > 59 || minutes > 59 || hours > 23 || month < 1 || month > 12 ||
		t.Day() != day || int(t.Month()) != month || t.Year() != year {
		return time.Time{}, fmt.Errorf("%w: TR=%#08x DR=%#08x", ErrInvalidSnapshot, tr, dr)
	}
	return t, nil
}
