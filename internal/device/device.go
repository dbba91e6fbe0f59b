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

// Package device opens the RTC described by a board configuration, either
// through /dev/mem or on the register simulator.
package device

import (
	"fmt"
	"log"

	"periph.io/x/periph/host"

	"github.com/TheCacophonyProject/stm32-rtc/exti"
	"github.com/TheCacophonyProject/stm32-rtc/internal/config"
	"github.com/TheCacophonyProject/stm32-rtc/mmio"
	"github.com/TheCacophonyProject/stm32-rtc/rtc"
	"github.com/TheCacophonyProject/stm32-rtc/rtc/rtcsim"
)

// Driver is what the commands need from an RTC of either clock source.
type Driver interface {
	rtc.Calendar
	EnableWakeup(interval uint32) error
	DisableWakeup() error
	Listen(e rtc.Event) error
	Unpend(e rtc.Event) error
	String() string
}

var (
	_ Driver = (*rtc.RTC[rtc.Lse])(nil)
	_ Driver = (*rtc.RTC[rtc.Lsi])(nil)
)

type Device struct {
	RTC   Driver
	Lines exti.Lines
	// Sim is set when running on the simulator.
	Sim *rtcsim.Sim

	close func() error
}

// Open maps the peripherals and brings up the RTC. With simulate set no
// hardware is touched.
func Open(conf config.Config, simulate bool, logger *log.Logger) (*Device, error) {
	d := &Device{close: func() error { return nil }}
	var bus mmio.Bus
	if simulate {
		d.Sim = rtcsim.New(conf.Layout)
		bus = d.Sim
	} else {
		if _, err := host.Init(); err != nil {
			return nil, fmt.Errorf("failed to initialise host: %v", err)
		}
		mem, err := mmio.OpenDevMem(conf.Regions()...)
		if err != nil {
			return nil, err
		}
		d.close = mem.Close
		bus = mem
	}

	r, err := bringUp(bus, conf, logger)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.RTC = r
	d.Lines = exti.New(bus, conf.Layout.EXTI).Lines()
	return d, nil
}

func bringUp(bus mmio.Bus, conf config.Config, logger *log.Logger) (Driver, error) {
	cfg := conf.DriverConfig()
	cfg.Logger = logger
	switch conf.Source {
	case config.SourceLSI:
		p := rtc.DefaultLSIPrescalers
		if conf.Prescalers != nil {
			p = *conf.Prescalers
		}
		return rtc.NewLSIWithConfig(bus, cfg, p)
	default:
		p := rtc.DefaultLSEPrescalers
		if conf.Prescalers != nil {
			p = *conf.Prescalers
		}
		return rtc.NewLSEWithConfig(bus, cfg, conf.LSEMode(), p)
	}
}

// Close releases the register mappings.
func (d *Device) Close() error {
	return d.close()
}
