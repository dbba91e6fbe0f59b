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

// Package mmio provides access to memory-mapped peripheral registers.
package mmio

// Bus performs single 32-bit loads and stores at physical peripheral
// addresses. Every call is one bus access; implementations must not merge or
// reorder them.
type Bus interface {
	Load32(addr uintptr) uint32
	Store32(addr uintptr, v uint32)
}

// Reg is one 32-bit register on a Bus.
type Reg struct {
	Bus  Bus
	Addr uintptr
}

// At returns the register at base+offset.
func At(bus Bus, base, offset uintptr) Reg {
	return Reg{Bus: bus, Addr: base + offset}
}

func (r Reg) Get() uint32 {
	return r.Bus.Load32(r.Addr)
}

func (r Reg) Set(v uint32) {
	r.Bus.Store32(r.Addr, v)
}

// SetBits performs a read-modify-write setting every bit in mask.
func (r Reg) SetBits(mask uint32) {
	r.Set(r.Get() | mask)
}

// ClearBits performs a read-modify-write clearing every bit in mask.
func (r Reg) ClearBits(mask uint32) {
	r.Set(r.Get() &^ mask)
}

// HasBits reports whether any bit in mask is set.
func (r Reg) HasBits(mask uint32) bool {
	return r.Get()&mask != 0
}

// ReplaceBits replaces the field mask<<pos with value<<pos.
func (r Reg) ReplaceBits(value, mask uint32, pos uint8) {
	r.Set(r.Get()&^(mask<<pos) | (value&mask)<<pos)
}

// Bit returns a mask with only bit n set.
func Bit(n uint8) uint32 {
	return 1 << n
}
