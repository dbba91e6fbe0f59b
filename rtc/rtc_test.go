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

package rtc_test

import (
	"errors"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/TheCacophonyProject/stm32-rtc/exti"
	"github.com/TheCacophonyProject/stm32-rtc/mmio"
	"github.com/TheCacophonyProject/stm32-rtc/rtc"
	"github.com/TheCacophonyProject/stm32-rtc/rtc/rtcsim"
)

var layout = rtc.DefaultLayout

// stepClock advances by step every time it is read.
type stepClock struct {
	t    time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

func fastTimeout() rtc.Config {
	return rtc.Config{
		Clock:   &stepClock{step: time.Millisecond},
		Timeout: 20 * time.Millisecond,
	}
}

func newLSE(c *qt.C, cfg rtc.Config) (*rtcsim.Sim, *rtc.RTC[rtc.Lse]) {
	sim := rtcsim.New(layout)
	r, err := rtc.NewLSE(sim, cfg)
	c.Assert(err, qt.IsNil)
	c.Assert(sim.Violations(), qt.HasLen, 0)
	sim.ResetLog()
	return sim, r
}

func csr(sim *rtcsim.Sim) uint32 {
	return sim.Peek(layout.RCC + rtc.RCC_CSR)
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func TestNewLSE(t *testing.T) {
	c := qt.New(t)
	sim, r := newLSE(c, rtc.Config{})

	c.Assert(r.String(), qt.Equals, "rtc(LSE)")
	c.Assert(csr(sim)>>rtc.CSR_RTCSEL_Pos&rtc.CSR_RTCSEL_Msk, qt.Equals, uint32(rtc.RTCSEL_LSE))
	c.Assert(csr(sim)&rtc.CSR_RTCEN, qt.Not(qt.Equals), uint32(0))
	c.Assert(csr(sim)&rtc.CSR_LSEON, qt.Not(qt.Equals), uint32(0))
	c.Assert(csr(sim)&rtc.CSR_LSEBYP, qt.Equals, uint32(0))
	c.Assert(sim.Peek(layout.PWR+rtc.PWR_CR)&rtc.PWR_CR_DBP, qt.Not(qt.Equals), uint32(0))
	c.Assert(sim.PeekRTC(rtc.PRER), qt.Equals, uint32(127<<16|255))
	c.Assert(sim.PeekRTC(rtc.CR)&rtc.CR_FMT, qt.Equals, uint32(0))
	c.Assert(sim.PeekRTC(rtc.ISR)&rtc.ISR_INIT, qt.Equals, uint32(0))
	c.Assert(sim.BackupResets(), qt.Equals, 1)
	c.Assert(sim.Locked(), qt.IsTrue)
}

func TestNewLSEBypassCustomPrescalers(t *testing.T) {
	c := qt.New(t)
	sim := rtcsim.New(layout)
	_, err := rtc.NewLSEWithConfig(sim, rtc.Config{}, rtc.Bypass, rtc.Prescalers{Sync: 7999, Async: 3})
	c.Assert(err, qt.IsNil)
	c.Assert(sim.Violations(), qt.HasLen, 0)
	c.Assert(csr(sim)&rtc.CSR_LSEBYP, qt.Not(qt.Equals), uint32(0))
	c.Assert(sim.PeekRTC(rtc.PRER), qt.Equals, uint32(3<<16|7999))
}

func TestNewLSI(t *testing.T) {
	c := qt.New(t)
	sim := rtcsim.New(layout)
	r, err := rtc.NewLSI(sim, rtc.Config{})
	c.Assert(err, qt.IsNil)
	c.Assert(sim.Violations(), qt.HasLen, 0)
	c.Assert(r.String(), qt.Equals, "rtc(LSI)")
	c.Assert(csr(sim)>>rtc.CSR_RTCSEL_Pos&rtc.CSR_RTCSEL_Msk, qt.Equals, uint32(rtc.RTCSEL_LSI))
	c.Assert(csr(sim)&rtc.CSR_LSION, qt.Not(qt.Equals), uint32(0))
	c.Assert(sim.PeekRTC(rtc.PRER), qt.Equals, uint32(127<<16|249))
	c.Assert(sim.BackupResets(), qt.Equals, 1)
}

func TestRunningOscillatorKeepsCalendar(t *testing.T) {
	c := qt.New(t)
	sim, r := newLSE(c, rtc.Config{})
	want := time.Date(2042, time.March, 3, 4, 5, 6, 0, time.UTC)
	c.Assert(r.SetDateTime(want), qt.IsNil)

	r2, err := rtc.NewLSE(sim, rtc.Config{})
	c.Assert(err, qt.IsNil)
	c.Assert(sim.BackupResets(), qt.Equals, 1)
	got, err := r2.DateTime()
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, want)
}

func TestInvalidPrescalers(t *testing.T) {
	c := qt.New(t)
	for _, p := range []rtc.Prescalers{{Sync: 0x8000, Async: 127}, {Sync: 255, Async: 0x80}} {
		sim := rtcsim.New(layout)
		_, err := rtc.NewLSEWithConfig(sim, rtc.Config{}, rtc.Oscillator, p)
		c.Assert(err, qt.ErrorIs, rtc.ErrInvalidInput)
		_, err = rtc.NewLSIWithConfig(sim, rtc.Config{}, p)
		c.Assert(err, qt.ErrorIs, rtc.ErrInvalidInput)
		c.Assert(sim.Accesses(), qt.HasLen, 0)
	}

	sim, r := newLSE(c, rtc.Config{})
	c.Assert(r.SetPrescalers(0x8000, 0), qt.ErrorIs, rtc.ErrInvalidInput)
	c.Assert(sim.Accesses(), qt.HasLen, 0)
	c.Assert(r.SetPrescalers(0x7FFF, 0x7F), qt.IsNil)
	c.Assert(sim.PeekRTC(rtc.PRER), qt.Equals, uint32(0x7F<<16|0x7FFF))
	c.Assert(sim.Violations(), qt.HasLen, 0)
}

func TestOscillatorTimeout(t *testing.T) {
	c := qt.New(t)
	sim := rtcsim.New(layout)
	sim.Stall(rtcsim.LSERDY)
	_, err := rtc.NewLSE(sim, fastTimeout())
	c.Assert(err, qt.ErrorIs, rtc.ErrTimeout)
	var terr *rtc.TimeoutError
	c.Assert(errors.As(err, &terr), qt.IsTrue)
	c.Assert(terr.Flag, qt.Equals, "LSERDY")

	sim = rtcsim.New(layout)
	sim.Stall(rtcsim.LSIRDY)
	_, err = rtc.NewLSI(sim, fastTimeout())
	c.Assert(err, qt.ErrorIs, rtc.ErrTimeout)
}

func TestInvalidFieldsLeaveHardwareAlone(t *testing.T) {
	c := qt.New(t)
	sim, r := newLSE(c, rtc.Config{})
	c.Assert(r.SetDateTime(time.Date(2000, time.May, 6, 7, 8, 9, 0, time.UTC)), qt.IsNil)
	tr, dr := sim.PeekRTC(rtc.TR), sim.PeekRTC(rtc.DR)
	sim.ResetLog()

	for about, set := range map[string]func() error{
		"seconds 60":    func() error { return r.SetSeconds(60) },
		"minutes 60":    func() error { return r.SetMinutes(60) },
		"hours 24":      func() error { return r.SetHours(24) },
		"weekday 0":     func() error { return r.SetWeekday(0) },
		"weekday 8":     func() error { return r.SetWeekday(8) },
		"day 0":         func() error { return r.SetDay(0) },
		"day 32":        func() error { return r.SetDay(32) },
		"month 0":       func() error { return r.SetMonth(0) },
		"month 13":      func() error { return r.SetMonth(13) },
		"year 1969":     func() error { return r.SetYear(1969) },
		"year 2070":     func() error { return r.SetYear(2070) },
		"time 24:00":    func() error { return r.SetTime(24, 0, 0) },
		"date 1969":     func() error { return r.SetDate(time.Date(1969, time.July, 20, 0, 0, 0, 0, time.UTC)) },
		"datetime 2070": func() error { return r.SetDateTime(time.Date(2070, time.January, 1, 0, 0, 0, 0, time.UTC)) },
	} {
		c.Assert(set(), qt.ErrorIs, rtc.ErrInvalidInput, qt.Commentf("%s", about))
		c.Assert(sim.Accesses(), qt.HasLen, 0, qt.Commentf("%s", about))
	}
	c.Assert(sim.PeekRTC(rtc.TR), qt.Equals, tr)
	c.Assert(sim.PeekRTC(rtc.DR), qt.Equals, dr)
	c.Assert(sim.Wrote("WPR"), qt.IsFalse)
}

func TestBoundaryFieldsAccepted(t *testing.T) {
	c := qt.New(t)
	sim, r := newLSE(c, rtc.Config{})
	for about, set := range map[string]func() error{
		"seconds 59": func() error { return r.SetSeconds(59) },
		"minutes 59": func() error { return r.SetMinutes(59) },
		"hours 23":   func() error { return r.SetHours(23) },
		"weekday 7":  func() error { return r.SetWeekday(7) },
		"day 31":     func() error { return r.SetDay(31) },
		"month 12":   func() error { return r.SetMonth(12) },
		"year 2069":  func() error { return r.SetYear(2069) },
		"year 1970":  func() error { return r.SetYear(1970) },
	} {
		c.Assert(set(), qt.IsNil, qt.Commentf("%s", about))
	}
	c.Assert(sim.Violations(), qt.HasLen, 0)
	c.Assert(sim.Locked(), qt.IsTrue)
	c.Assert(sim.PeekRTC(rtc.TR), qt.Equals, uint32(0x23_59_59))
}

func TestDateTimeRoundTrip(t *testing.T) {
	c := qt.New(t)
	sim, r := newLSE(c, rtc.Config{})
	for _, want := range []time.Time{
		time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2031, time.July, 14, 9, 26, 53, 0, time.UTC),
		time.Date(2024, time.February, 29, 12, 0, 1, 0, time.UTC),
		time.Date(2069, time.December, 31, 23, 59, 59, 0, time.UTC),
	} {
		c.Assert(r.SetDateTime(want.Add(123*time.Millisecond)), qt.IsNil)
		sim.ResetLog()
		got, err := r.DateTime()
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.Equals, want)

		reads := sim.Reads()
		c.Assert(indexOf(reads, "TR") >= 0, qt.IsTrue)
		c.Assert(indexOf(reads, "TR") < indexOf(reads, "DR"), qt.IsTrue, qt.Commentf("reads %v", reads))
		c.Assert(sim.PeekRTC(rtc.ISR)&rtc.ISR_RSF, qt.Equals, uint32(0))
	}
	c.Assert(sim.Violations(), qt.HasLen, 0)
}

func TestDateTimeLocation(t *testing.T) {
	c := qt.New(t)
	nz := time.FixedZone("NZST", 12*60*60)
	_, r := newLSE(c, rtc.Config{Location: nz})
	want := time.Date(2020, time.April, 1, 8, 0, 0, 0, nz)
	c.Assert(r.SetDateTime(want), qt.IsNil)
	got, err := r.DateTime()
	c.Assert(err, qt.IsNil)
	c.Assert(got.Equal(want), qt.IsTrue)
	c.Assert(got.Location(), qt.Equals, nz)
}

func TestDateReadBeforeTimeIsTorn(t *testing.T) {
	c := qt.New(t)
	sim, _ := newLSE(c, rtc.Config{})

	sim.Load32(layout.RTC + rtc.DR)
	sim.Load32(layout.RTC + rtc.TR)
	c.Assert(sim.Violations(), qt.DeepEquals, []string{"DR read before TR: snapshot may be torn"})

	sim.ResetLog()
	sim.Load32(layout.RTC + rtc.TR)
	sim.Load32(layout.RTC + rtc.DR)
	c.Assert(sim.Violations(), qt.HasLen, 0)
}

func TestFieldSetters(t *testing.T) {
	c := qt.New(t)
	sim, r := newLSE(c, rtc.Config{})
	c.Assert(r.SetDateTime(time.Date(2031, time.July, 14, 9, 26, 53, 0, time.UTC)), qt.IsNil)

	c.Assert(r.SetMinutes(7), qt.IsNil)
	c.Assert(r.SetHours(0), qt.IsNil)
	c.Assert(r.SetSeconds(1), qt.IsNil)
	c.Assert(r.SetMonth(12), qt.IsNil)
	c.Assert(r.SetYear(2069), qt.IsNil)
	c.Assert(r.SetDay(31), qt.IsNil)
	got, err := r.DateTime()
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, time.Date(2069, time.December, 31, 0, 7, 1, 0, time.UTC))

	c.Assert(r.SetTime(21, 4, 9), qt.IsNil)
	c.Assert(sim.PeekRTC(rtc.TR), qt.Equals, uint32(0x21_04_09))
	c.Assert(sim.Violations(), qt.HasLen, 0)
}

func TestSetHoursClearsPM(t *testing.T) {
	c := qt.New(t)
	sim, r := newLSE(c, rtc.Config{})
	sim.PokeRTC(rtc.TR, 0x11_30_00|1<<22)
	c.Assert(r.SetHours(5), qt.IsNil)
	c.Assert(sim.PeekRTC(rtc.TR), qt.Equals, uint32(0x05_30_00))
}

func TestWeekday(t *testing.T) {
	c := qt.New(t)
	sim, r := newLSE(c, rtc.Config{})
	c.Assert(r.SetTime(10, 20, 30), qt.IsNil)

	// 2024-06-09 was a Sunday.
	c.Assert(r.SetDate(time.Date(2024, time.June, 9, 23, 0, 0, 0, time.UTC)), qt.IsNil)
	c.Assert(sim.PeekRTC(rtc.DR)>>13&7, qt.Equals, uint32(7))
	c.Assert(sim.PeekRTC(rtc.TR), qt.Equals, uint32(0x10_20_30))

	dr := sim.PeekRTC(rtc.DR)
	c.Assert(r.SetWeekday(3), qt.IsNil)
	c.Assert(sim.PeekRTC(rtc.DR), qt.Equals, dr&^(7<<13)|3<<13)
}

func TestInvalidSnapshot(t *testing.T) {
	c := qt.New(t)
	sim, r := newLSE(c, rtc.Config{})
	// 2023-02-31
	sim.PokeRTC(rtc.DR, 0x53<<16|0x02<<8|0x31)
	_, err := r.DateTime()
	c.Assert(err, qt.ErrorIs, rtc.ErrInvalidSnapshot)
}

func TestSyncFlagTimeout(t *testing.T) {
	c := qt.New(t)
	sim, r := newLSE(c, fastTimeout())
	sim.Stall(rtcsim.RSF)
	_, err := r.DateTime()
	c.Assert(err, qt.IsNil)
	_, err = r.DateTime()
	c.Assert(err, qt.ErrorIs, rtc.ErrTimeout)

	sim.Release(rtcsim.RSF)
	_, err = r.DateTime()
	c.Assert(err, qt.IsNil)
}

func TestInitModeTimeoutRelocks(t *testing.T) {
	c := qt.New(t)
	sim, r := newLSE(c, fastTimeout())
	tr := sim.PeekRTC(rtc.TR)
	sim.Stall(rtcsim.INITF)

	err := r.SetSeconds(30)
	c.Assert(err, qt.ErrorIs, rtc.ErrTimeout)
	c.Assert(sim.Locked(), qt.IsTrue)
	c.Assert(sim.PeekRTC(rtc.ISR)&rtc.ISR_INIT, qt.Equals, uint32(0))
	c.Assert(sim.PeekRTC(rtc.TR), qt.Equals, tr)
	c.Assert(sim.Violations(), qt.HasLen, 0)

	sim.Release(rtcsim.INITF)
	c.Assert(r.SetSeconds(30), qt.IsNil)
	c.Assert(sim.PeekRTC(rtc.TR)&0x7F, qt.Equals, uint32(0x30))
}

func TestEnableWakeup(t *testing.T) {
	c := qt.New(t)
	sim, r := newLSE(c, rtc.Config{})
	for _, test := range []struct {
		interval   uint32
		sel, value uint32
	}{
		{65536, rtc.WUCKSEL_SPRE, 65535},
		{65537, rtc.WUCKSEL_SPRE_HI, 0},
		{1, rtc.WUCKSEL_SPRE, 0},
		{rtc.MaxWakeupInterval, rtc.WUCKSEL_SPRE_HI, 65535},
	} {
		c.Assert(r.EnableWakeup(test.interval), qt.IsNil)
		cr := sim.PeekRTC(rtc.CR)
		c.Assert(cr&rtc.CR_WUCKSEL_Msk, qt.Equals, test.sel, qt.Commentf("interval %d", test.interval))
		c.Assert(sim.PeekRTC(rtc.WUTR), qt.Equals, test.value, qt.Commentf("interval %d", test.interval))
		c.Assert(cr&rtc.CR_WUTE, qt.Not(qt.Equals), uint32(0))
	}
	c.Assert(sim.Violations(), qt.HasLen, 0)
	c.Assert(sim.Locked(), qt.IsTrue)

	sim.ResetLog()
	for _, interval := range []uint32{0, rtc.MaxWakeupInterval + 1} {
		c.Assert(r.EnableWakeup(interval), qt.ErrorIs, rtc.ErrWakeupRange)
	}
	c.Assert(sim.Accesses(), qt.HasLen, 0)
}

func TestWakeupWriteWindowTimeout(t *testing.T) {
	c := qt.New(t)
	sim, r := newLSE(c, fastTimeout())
	sim.Stall(rtcsim.WUTWF)
	c.Assert(r.EnableWakeup(10), qt.ErrorIs, rtc.ErrTimeout)
	c.Assert(sim.Locked(), qt.IsTrue)
	c.Assert(sim.PeekRTC(rtc.CR)&rtc.CR_WUTE, qt.Equals, uint32(0))
}

func TestDisableWakeup(t *testing.T) {
	c := qt.New(t)
	sim, r := newLSE(c, rtc.Config{})
	c.Assert(r.EnableWakeup(5), qt.IsNil)
	sim.Raise(rtc.Wakeup)
	c.Assert(sim.PeekRTC(rtc.ISR)&rtc.ISR_WUTF, qt.Not(qt.Equals), uint32(0))

	c.Assert(r.DisableWakeup(), qt.IsNil)
	c.Assert(sim.PeekRTC(rtc.CR)&rtc.CR_WUTE, qt.Equals, uint32(0))
	c.Assert(sim.PeekRTC(rtc.ISR)&rtc.ISR_WUTF, qt.Equals, uint32(0))
	c.Assert(sim.Violations(), qt.HasLen, 0)
}

func TestWakeupTimerLoadsRawValue(t *testing.T) {
	c := qt.New(t)
	sim, r := newLSE(c, rtc.Config{})
	c.Assert(r.Listen(rtc.AlarmA), qt.IsNil)

	c.Assert(r.WakeupTimer(0x1_2345), qt.IsNil)
	c.Assert(sim.PeekRTC(rtc.WUTR), qt.Equals, uint32(0x2345))
	cr := sim.PeekRTC(rtc.CR)
	c.Assert(cr&rtc.CR_WUCKSEL_Msk, qt.Equals, uint32(rtc.WUCKSEL_SPRE))
	c.Assert(cr&(rtc.CR_WUTIE|rtc.CR_WUTE), qt.Equals, uint32(rtc.CR_WUTIE|rtc.CR_WUTE))
	c.Assert(cr&rtc.CR_ALRAIE, qt.Not(qt.Equals), uint32(0))
	c.Assert(sim.Violations(), qt.HasLen, 0)
}

func TestListen(t *testing.T) {
	c := qt.New(t)
	for _, test := range []struct {
		event  rtc.Event
		line   uint8
		enable uint32
	}{
		{rtc.AlarmA, 17, rtc.CR_ALRAIE},
		{rtc.AlarmB, 17, rtc.CR_ALRBIE},
		{rtc.Wakeup, 20, rtc.CR_WUTIE},
		{rtc.Timestamp, 19, rtc.CR_TSIE},
	} {
		sim, r := newLSE(c, rtc.Config{})
		c.Assert(r.Listen(test.event), qt.IsNil)
		bm := uint32(1) << test.line
		c.Assert(sim.PeekEXTI(exti.RTSR), qt.Equals, bm, qt.Commentf("%v", test.event))
		c.Assert(sim.PeekEXTI(exti.IMR), qt.Equals, bm, qt.Commentf("%v", test.event))
		c.Assert(sim.PeekEXTI(exti.FTSR), qt.Equals, uint32(0))
		c.Assert(sim.PeekRTC(rtc.CR)&test.enable, qt.Not(qt.Equals), uint32(0))
		c.Assert(sim.Violations(), qt.HasLen, 0)
		c.Assert(sim.Locked(), qt.IsTrue)
	}
}

func TestUnpendAlarmA(t *testing.T) {
	c := qt.New(t)
	sim, r := newLSE(c, rtc.Config{})
	c.Assert(r.Listen(rtc.AlarmA), qt.IsNil)
	c.Assert(r.Listen(rtc.AlarmB), qt.IsNil)
	sim.Raise(rtc.AlarmA)
	sim.Raise(rtc.AlarmB)
	c.Assert(sim.PeekEXTI(exti.PR), qt.Equals, uint32(1<<17))

	c.Assert(r.Unpend(rtc.AlarmA), qt.IsNil)
	isr := sim.PeekRTC(rtc.ISR)
	c.Assert(isr&rtc.ISR_ALRAF, qt.Equals, uint32(0))
	c.Assert(isr&rtc.ISR_ALRBF, qt.Not(qt.Equals), uint32(0))
	c.Assert(sim.PeekEXTI(exti.PR), qt.Equals, uint32(0))
	c.Assert(sim.Peek(layout.PWR+rtc.PWR_CSR)&rtc.PWR_CSR_WUF, qt.Equals, uint32(0))
	c.Assert(sim.Violations(), qt.HasLen, 0)
}

func TestUnpendWakeup(t *testing.T) {
	c := qt.New(t)
	sim, r := newLSE(c, rtc.Config{})
	c.Assert(r.EnableWakeup(1), qt.IsNil)
	c.Assert(r.Listen(rtc.Wakeup), qt.IsNil)
	sim.Raise(rtc.Wakeup)
	c.Assert(sim.PeekEXTI(exti.PR), qt.Equals, uint32(1<<20))

	c.Assert(r.Unpend(rtc.Wakeup), qt.IsNil)
	c.Assert(sim.PeekRTC(rtc.ISR)&rtc.ISR_WUTF, qt.Equals, uint32(0))
	c.Assert(sim.PeekEXTI(exti.PR), qt.Equals, uint32(0))
	// The timer keeps running.
	c.Assert(sim.PeekRTC(rtc.CR)&rtc.CR_WUTE, qt.Not(qt.Equals), uint32(0))
}

func TestUnknownEvent(t *testing.T) {
	c := qt.New(t)
	sim, r := newLSE(c, rtc.Config{})
	c.Assert(r.Listen(rtc.Event(7)), qt.ErrorIs, rtc.ErrUnknownEvent)
	c.Assert(r.Unpend(rtc.Event(7)), qt.ErrorIs, rtc.ErrUnknownEvent)
	c.Assert(sim.Accesses(), qt.HasLen, 0)
}

type listenCall struct {
	Line uint8
	Edge exti.Edge
}

type fakeLines struct {
	listened []listenCall
	unpended []uint8
}

func (f *fakeLines) Listen(l uint8, edge exti.Edge) error {
	f.listened = append(f.listened, listenCall{l, edge})
	return nil
}

func (f *fakeLines) Unpend(l uint8) error {
	f.unpended = append(f.unpended, l)
	return nil
}

func TestCustomInterruptLines(t *testing.T) {
	c := qt.New(t)
	lines := &fakeLines{}
	sim, r := newLSE(c, rtc.Config{Lines: lines})
	c.Assert(r.Listen(rtc.Timestamp), qt.IsNil)
	c.Assert(r.Unpend(rtc.Timestamp), qt.IsNil)
	c.Assert(lines.listened, qt.DeepEquals, []listenCall{{19, exti.Rising}})
	c.Assert(lines.unpended, qt.DeepEquals, []uint8{19})
	c.Assert(sim.PeekEXTI(exti.IMR), qt.Equals, uint32(0))
}

func TestRelease(t *testing.T) {
	c := qt.New(t)
	sim, r := newLSE(c, rtc.Config{})
	c.Assert(r.Release(), qt.Equals, mmio.Bus(sim))
}

func TestModifyAlreadyInInitMode(t *testing.T) {
	c := qt.New(t)
	sim, r := newLSE(c, rtc.Config{})
	sim.PokeRTC(rtc.ISR, sim.PeekRTC(rtc.ISR)|rtc.ISR_INIT|rtc.ISR_INITF)

	c.Assert(r.SetSeconds(42), qt.IsNil)
	c.Assert(sim.PeekRTC(rtc.TR)&0x7F, qt.Equals, uint32(0x42))
	for _, a := range sim.Accesses() {
		if a.Write && a.Reg == "ISR" {
			c.Assert(a.Value&rtc.ISR_INIT, qt.Equals, uint32(0), qt.Commentf("%v", a))
		}
	}
	c.Assert(sim.PeekRTC(rtc.ISR)&(rtc.ISR_INIT|rtc.ISR_INITF), qt.Equals, uint32(0))
	c.Assert(sim.Violations(), qt.HasLen, 0)
	c.Assert(sim.Locked(), qt.IsTrue)
}

func TestWakeupTimerStopsRunningTimer(t *testing.T) {
	c := qt.New(t)
	sim, r := newLSE(c, rtc.Config{})
	c.Assert(r.EnableWakeup(100), qt.IsNil)
	c.Assert(sim.PeekRTC(rtc.WUTR), qt.Equals, uint32(99))

	c.Assert(r.WakeupTimer(5), qt.IsNil)
	c.Assert(sim.PeekRTC(rtc.WUTR), qt.Equals, uint32(5))
	c.Assert(sim.PeekRTC(rtc.CR)&rtc.CR_WUTE, qt.Not(qt.Equals), uint32(0))
	c.Assert(sim.Violations(), qt.HasLen, 0)
}

func TestWakeupTimerWriteWindowTimeout(t *testing.T) {
	c := qt.New(t)
	sim, r := newLSE(c, fastTimeout())
	sim.Stall(rtcsim.WUTWF)
	c.Assert(r.WakeupTimer(5), qt.ErrorIs, rtc.ErrTimeout)
	c.Assert(sim.PeekRTC(rtc.WUTR), qt.Equals, uint32(0xFFFF))
	c.Assert(sim.Locked(), qt.IsTrue)
}

func TestRaiseUnknownEvent(t *testing.T) {
	c := qt.New(t)
	sim, r := newLSE(c, rtc.Config{})
	c.Assert(r.Listen(rtc.AlarmA), qt.IsNil)
	sim.Raise(rtc.Event(7))
	c.Assert(sim.PeekEXTI(exti.PR), qt.Equals, uint32(0))
	c.Assert(sim.PeekRTC(rtc.ISR)&(rtc.ISR_ALRAF|rtc.ISR_ALRBF|rtc.ISR_WUTF|rtc.ISR_TSF), qt.Equals, uint32(0))
}
