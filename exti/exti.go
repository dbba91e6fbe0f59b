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

// Package exti drives the external interrupt controller: edge triggers and
// masks for configurable lines, and the pending register.
package exti

import (
	"errors"
	"fmt"

	"github.com/TheCacophonyProject/stm32-rtc/mmio"
)

// Register offsets from the controller base.
const (
	IMR   = 0x00
	EMR   = 0x04
	RTSR  = 0x08
	FTSR  = 0x0C
	SWIER = 0x10
	PR    = 0x14
)

// NumLines is the number of lines the controller implements.
const NumLines = 24

var ErrInvalidLine = errors.New("invalid interrupt line")

// Edge selects which transitions trigger a line.
type Edge uint8

const (
	Rising Edge = iota + 1
	Falling
	Both
)

func (e Edge) String() string {
	switch e {
	case Rising:
		return "rising"
	case Falling:
		return "falling"
	case Both:
		return "both"
	}
	return fmt.Sprintf("Edge(%d)", uint8(e))
}

// Controller owns the trigger and mask configuration of the interrupt
// controller.
type Controller struct {
	bus  mmio.Bus
	base uintptr
}

func New(bus mmio.Bus, base uintptr) *Controller {
	return &Controller{bus: bus, base: base}
}

func (c *Controller) reg(off uintptr) mmio.Reg {
	return mmio.At(c.bus, c.base, off)
}

// Listen enables the trigger for edge on line and unmasks it.
func (c *Controller) Listen(line uint8, edge Edge) error {
	if line >= NumLines {
		return fmt.Errorf("listen on line %d: %w", line, ErrInvalidLine)
	}
	bm := mmio.Bit(line)
	switch edge {
	case Rising:
		c.reg(RTSR).SetBits(bm)
	case Falling:
		c.reg(FTSR).SetBits(bm)
	case Both:
		c.reg(RTSR).SetBits(bm)
		c.reg(FTSR).SetBits(bm)
	default:
		return fmt.Errorf("listen on line %d: unknown edge %v", line, edge)
	}
	c.reg(IMR).SetBits(bm)
	return nil
}

// Unlisten masks line and disables both of its triggers.
func (c *Controller) Unlisten(line uint8) error {
	if line >= NumLines {
		return fmt.Errorf("unlisten line %d: %w", line, ErrInvalidLine)
	}
	bm := mmio.Bit(line)
	c.reg(IMR).ClearBits(bm)
	c.reg(RTSR).ClearBits(bm)
	c.reg(FTSR).ClearBits(bm)
	return nil
}

// Unpend clears the pending flag of line.
func (c *Controller) Unpend(line uint8) error {
	return c.Lines().Unpend(line)
}

// Lines returns the pending-register capability for this controller.
func (c *Controller) Lines() Lines {
	return Lines{bus: c.bus, base: c.base}
}

// Lines touches only the software-interrupt and pending registers. Both are
// write-1 registers, so each operation is a single store that cannot tear
// against the owner of the Controller. A Lines value may be handed to
// interrupt handlers at startup.
type Lines struct {
	bus  mmio.Bus
	base uintptr
}

// Pend marks line as pending, raising its interrupt if it is unmasked.
func (l Lines) Pend(line uint8) error {
	if line >= NumLines {
		return fmt.Errorf("pend line %d: %w", line, ErrInvalidLine)
	}
	l.bus.Store32(l.base+SWIER, mmio.Bit(line))
	return nil
}

// Unpend clears the pending flag of line. Interrupt handlers call it to keep
// the line from firing again immediately.
func (l Lines) Unpend(line uint8) error {
	if line >= NumLines {
		return fmt.Errorf("unpend line %d: %w", line, ErrInvalidLine)
	}
	l.bus.Store32(l.base+PR, mmio.Bit(line))
	return nil
}

// IsPending reports whether line is pending. Out of range lines never are.
func (l Lines) IsPending(line uint8) bool {
	if line >= NumLines {
		return false
	}
	return l.bus.Load32(l.base+PR)&mmio.Bit(line) != 0
}
