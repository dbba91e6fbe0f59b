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

// Package config loads the board description used by the rtc commands.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	"github.com/TheCacophonyProject/stm32-rtc/mmio"
	"github.com/TheCacophonyProject/stm32-rtc/rtc"
)

const DefaultPath = "/etc/cacophony/rtc.yaml"

// Clock source names.
const (
	SourceLSE = "lse"
	SourceLSI = "lsi"
)

var sources = []string{SourceLSE, SourceLSI}

// Register window sizes mapped for each peripheral.
const (
	rtcWindow  = 0x400
	rccWindow  = 0x400
	pwrWindow  = 0x400
	extiWindow = 0x400
)

type Config struct {
	Layout rtc.Layout `yaml:"layout"`
	// Source is "lse" or "lsi".
	Source string `yaml:"source"`
	// Bypass feeds the LSE from an external clock instead of a crystal.
	Bypass     bool            `yaml:"bypass"`
	Prescalers *rtc.Prescalers `yaml:"prescalers"`
	Timeout    time.Duration   `yaml:"timeout"`
	// NTPMarker is created by systemd-timesyncd once the clock is synchronised.
	NTPMarker string `yaml:"ntp-marker"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Layout:    rtc.DefaultLayout,
		Source:    SourceLSE,
		Timeout:   rtc.DefaultTimeout,
		NTPMarker: "/run/systemd/timesync/synchronized",
	}
}

// Load reads the YAML file at path over the defaults. A missing file is not
// an error.
func Load(path string) (Config, error) {
	conf := Default()
	buf, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return conf, nil
	}
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(buf, &conf); err != nil {
		return Config{}, fmt.Errorf("failed to parse %s: %v", path, err)
	}
	if err := conf.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %v", path, err)
	}
	return conf, nil
}

func (c Config) Validate() error {
	if !slices.Contains(sources, c.Source) {
		return fmt.Errorf("unknown clock source %q, want one of %v", c.Source, sources)
	}
	if c.Bypass && c.Source != SourceLSE {
		return errors.New("bypass only applies to the lse source")
	}
	for name, base := range map[string]uintptr{
		"rtc": c.Layout.RTC, "rcc": c.Layout.RCC, "pwr": c.Layout.PWR, "exti": c.Layout.EXTI,
	} {
		if base == 0 || base%4 != 0 {
			return fmt.Errorf("bad %s base address %#x", name, base)
		}
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	return nil
}

// Regions lists the register windows to map for c.Layout.
func (c Config) Regions() []mmio.Region {
	return []mmio.Region{
		{Name: "rtc", Base: c.Layout.RTC, Size: rtcWindow},
		{Name: "rcc", Base: c.Layout.RCC, Size: rccWindow},
		{Name: "pwr", Base: c.Layout.PWR, Size: pwrWindow},
		{Name: "exti", Base: c.Layout.EXTI, Size: extiWindow},
	}
}

// DriverConfig returns the rtc.Config for c.
func (c Config) DriverConfig() rtc.Config {
	return rtc.Config{
		Layout:  c.Layout,
		Timeout: c.Timeout,
	}
}

// LSEMode returns the LSE drive mode.
func (c Config) LSEMode() rtc.LSEMode {
	if c.Bypass {
		return rtc.Bypass
	}
	return rtc.Oscillator
}
