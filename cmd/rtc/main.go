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

package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/rjeczalik/notify"

	"github.com/TheCacophonyProject/stm32-rtc/internal/config"
	"github.com/TheCacophonyProject/stm32-rtc/internal/device"
	"github.com/TheCacophonyProject/stm32-rtc/rtc"
)

func main() {
	err := runMain()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

var version = "<not set>"

var events = map[string]rtc.Event{
	"alarm-a":   rtc.AlarmA,
	"alarm-b":   rtc.AlarmB,
	"wakeup":    rtc.Wakeup,
	"timestamp": rtc.Timestamp,
}

type ReadCmd struct{}
type WriteCmd struct {
	Force bool `arg:"--force" help:"don't check if NTP is synchronized"`
}
type WakeupCmd struct {
	Interval uint32 `arg:"--interval" help:"wakeup period in seconds, 1 to 131072"`
	Disable  bool   `arg:"--disable" help:"stop the wakeup timer"`
}
type ListenCmd struct {
	Event   string        `arg:"positional,required" help:"alarm-a, alarm-b, wakeup or timestamp"`
	Timeout time.Duration `arg:"--timeout" help:"give up after this long, 0 waits forever"`
}
type WatchCmd struct{}

type Args struct {
	Read     *ReadCmd   `arg:"subcommand:read" help:"read RTC to system time"`
	Write    *WriteCmd  `arg:"subcommand:write" help:"write system time to RTC if NTP is synchronized"`
	Wakeup   *WakeupCmd `arg:"subcommand:wakeup" help:"configure the periodic wakeup timer"`
	Listen   *ListenCmd `arg:"subcommand:listen" help:"wait for an RTC event and acknowledge it"`
	Watch    *WatchCmd  `arg:"subcommand:watch" help:"write system time to RTC once NTP synchronizes"`
	Config   string     `arg:"--config" help:"board configuration file"`
	Simulate bool       `arg:"--simulate" help:"run against the register simulator instead of /dev/mem"`
	Attempts int        `arg:"--attempts" help:"number of times to try reading/writing registers to the RTC"`
	Verbose  bool       `arg:"-v,--verbose" help:"log driver bring-up"`
}

func (Args) Version() string {
	return version
}

func procArgs() Args {
	args := Args{
		Config:   config.DefaultPath,
		Attempts: 1,
	}
	p := arg.MustParse(&args)
	if args.Read == nil && args.Write == nil && args.Wakeup == nil && args.Listen == nil && args.Watch == nil {
		p.Fail("no command given")
	}
	if args.Wakeup != nil && args.Wakeup.Interval == 0 && !args.Wakeup.Disable {
		p.Fail("wakeup needs --interval or --disable")
	}
	if args.Listen != nil {
		if _, ok := events[args.Listen.Event]; !ok {
			p.Fail(fmt.Sprintf("unknown event %q", args.Listen.Event))
		}
	}
	return args
}

func runMain() error {
	args := procArgs()
	log.SetFlags(0)

	conf, err := config.Load(args.Config)
	if err != nil {
		return err
	}
	var logger *log.Logger
	if args.Verbose {
		logger = log.New(os.Stderr, "", 0)
	}
	d, err := device.Open(conf, args.Simulate, logger)
	if err != nil {
		return err
	}
	defer d.Close()

	host := rtc.System
	if args.Simulate {
		host.SetSystemTime = func(t time.Time) error {
			log.Printf("simulated: not setting system time to %v", t)
			return nil
		}
	}

	switch {
	case args.Read != nil:
		t, err := host.Read(d.RTC, args.Attempts)
		if err != nil {
			return err
		}
		log.Printf("system time set to %v", t)
		return nil
	case args.Write != nil:
		if args.Write.Force {
			log.Println("not checking if NTP is synchronized")
			return host.Write(d.RTC, args.Attempts)
		}
		sync, err := rtc.IsNTPSynced()
		if err != nil {
			return err
		}
		if sync {
			log.Println("NTP is synchronized. Writing time to RTC")
			return host.Write(d.RTC, args.Attempts)
		} else {
			log.Println("NTP is not synchronized. Not writing time to RTC")
			return nil
		}
	case args.Wakeup != nil:
		if args.Wakeup.Disable {
			log.Println("stopping wakeup timer")
			return d.RTC.DisableWakeup()
		}
		if err := d.RTC.EnableWakeup(args.Wakeup.Interval); err != nil {
			return err
		}
		log.Printf("waking every %d seconds", args.Wakeup.Interval)
		return nil
	case args.Listen != nil:
		return listen(d, events[args.Listen.Event], args.Listen.Timeout)
	case args.Watch != nil:
		return watchNTP(d, host, conf.NTPMarker, args.Attempts)
	default:
		return errors.New("no options given")
	}
}

const pollInterval = 100 * time.Millisecond

func listen(d *device.Device, e rtc.Event, timeout time.Duration) error {
	if err := d.RTC.Listen(e); err != nil {
		return err
	}
	if d.Sim != nil {
		go func() {
			time.Sleep(time.Second)
			d.Sim.Raise(e)
		}()
	}

	log.Printf("waiting for %v on line %d", e, e.Line())
	start := time.Now()
	for !d.Lines.IsPending(e.Line()) {
		if timeout > 0 && time.Since(start) > timeout {
			return fmt.Errorf("no %v event after %v", e, timeout)
		}
		time.Sleep(pollInterval)
	}
	if err := d.RTC.Unpend(e); err != nil {
		return err
	}
	log.Printf("%v event received", e)
	return nil
}

// watchNTP waits for the timesync marker file and then writes the system
// time to the RTC.
func watchNTP(d *device.Device, host rtc.Host, marker string, attempts int) error {
	marker = filepath.Clean(marker)
	dir := filepath.Dir(marker)
	c := make(chan notify.EventInfo, 1)
	if err := notify.Watch(dir, c, notify.Create); err != nil {
		return fmt.Errorf("failed to watch %s: %v", dir, err)
	}
	defer notify.Stop(c)

	if _, err := os.Stat(marker); err != nil {
		log.Printf("waiting for %s", marker)
		for ei := range c {
			if filepath.Clean(ei.Path()) == marker {
				break
			}
		}
	}
	log.Println("NTP is synchronized. Writing time to RTC")
	return host.Write(d.RTC, attempts)
}
