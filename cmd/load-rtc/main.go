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
	"os"
	"time"

	"github.com/alexflint/go-arg"

	"github.com/TheCacophonyProject/stm32-rtc/internal/config"
	"github.com/TheCacophonyProject/stm32-rtc/internal/device"
	"github.com/TheCacophonyProject/stm32-rtc/rtc"
)

const maxAttempts = 10
const attemptInterval = 6 * time.Second

var version = "<not set>"

type Args struct {
	Config   string `arg:"--config" help:"board configuration file"`
	Simulate bool   `arg:"--simulate" help:"run against the register simulator instead of /dev/mem"`
}

func (Args) Version() string {
	return version
}

func main() {
	err := runMain()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runMain() error {
	args := Args{Config: config.DefaultPath}
	arg.MustParse(&args)

	if !args.Simulate && os.Geteuid() != 0 {
		return errors.New("run as root")
	}
	conf, err := config.Load(args.Config)
	if err != nil {
		return err
	}

	host := rtc.System
	if args.Simulate {
		host.SetSystemTime = func(time.Time) error { return nil }
	}

	var d *device.Device
	remaining := maxAttempts
	for {
		d, err = openClock(conf, args.Simulate)
		if err == nil {
			break
		}
		fmt.Println(err)
		if errors.Is(err, rtc.ErrInvalidInput) {
			return err
		}
		remaining--
		if remaining < 1 {
			return errors.New("giving up initialising RTC")
		}
		fmt.Printf("Will try %d more times...\n", remaining)
		time.Sleep(attemptInterval)
	}
	defer d.Close()

	if isNTP, err := rtc.IsNTPSynced(); err != nil {
		return err
	} else if isNTP {
		fmt.Println("NTP synchronised - syncing system to RTC")
		if err := host.Write(d.RTC, maxAttempts); err != nil {
			return err
		}
	} else {
		fmt.Println("not NTP synchronised - syncing RTC to system")
		if _, err := host.Read(d.RTC, maxAttempts); err != nil {
			return err
		}
	}

	fmt.Println("Clocks initialised")
	return nil
}

// openClock brings up the RTC and checks that the calendar holds a valid
// date.
func openClock(conf config.Config, simulate bool) (*device.Device, error) {
	d, err := device.Open(conf, simulate, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start RTC: %w", err)
	}
	t, err := d.RTC.DateTime()
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to read RTC: %w", err)
	}
	fmt.Printf("RTC time is: %s\n", t.Format("2006-01-02 15:04:05"))
	return d, nil
}
