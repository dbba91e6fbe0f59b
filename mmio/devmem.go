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

package mmio

import (
	"fmt"
	"sync/atomic"

	"periph.io/x/periph/host/pmem"
)

const pageSize = 4096

// Region is a physical address window holding one peripheral.
type Region struct {
	Name string
	Base uintptr
	Size int
}

type window struct {
	Region
	start uintptr
	view  *pmem.View
	words []uint32
}

// DevMem is a Bus backed by /dev/mem mappings of the given regions.
type DevMem struct {
	windows []window
}

// OpenDevMem maps every region. The caller must Close the result.
func OpenDevMem(regions ...Region) (*DevMem, error) {
	d := &DevMem{}
	for _, r := range regions {
		start := r.Base &^ (pageSize - 1)
		size := int(r.Base-start) + r.Size
		size = (size + pageSize - 1) &^ (pageSize - 1)
		v, err := pmem.Map(uint64(start), size)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("failed to map %s at %#x: %v", r.Name, r.Base, err)
		}
		d.windows = append(d.windows, window{
			Region: r,
			start:  start,
			view:   v,
			words:  v.Uint32(),
		})
	}
	return d, nil
}

// Close unmaps all regions.
func (d *DevMem) Close() error {
	var first error
	for _, w := range d.windows {
		if err := w.view.Close(); err != nil && first == nil {
			first = err
		}
	}
	d.windows = nil
	return first
}

func (d *DevMem) word(addr uintptr) *uint32 {
	for i := range d.windows {
		w := &d.windows[i]
		if addr >= w.Base && addr < w.Base+uintptr(w.Size) {
			return &w.words[(addr-w.start)/4]
		}
	}
	panic(fmt.Sprintf("mmio: address %#x is not mapped", addr))
}

func (d *DevMem) Load32(addr uintptr) uint32 {
	return atomic.LoadUint32(d.word(addr))
}

func (d *DevMem) Store32(addr uintptr, v uint32) {
	atomic.StoreUint32(d.word(addr), v)
}
