/*
 * Guam - virtual memory: two-level page map, page cache, framebuffer region.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package memory implements the Pilot guest's virtual address space: a
// two-level page map with map-flag bookkeeping and a small direct-mapped
// translation cache. One Memory belongs to one Machine.
package memory

import "fmt"

const (
	// PageSize is the number of 16-bit words per page.
	PageSize = 256

	bytesPerPage = PageSize * 2

	cacheSize = 256 // power of two direct-mapped cache entries
)

// Page is 256 16-bit words.
type Page [PageSize]uint16

// MapFlags is the three-bit {protect, dirty, referenced} set.
type MapFlags uint8

const (
	FlagProtect MapFlags = 1 << iota
	FlagDirty
	FlagReferenced
)

// Vacant reports whether this flag combination encodes a vacant entry:
// protect set, dirty and referenced both clear.
func (f MapFlags) Vacant() bool {
	return f&FlagProtect != 0 && f&FlagDirty == 0 && f&FlagReferenced == 0
}

// Map pairs MapFlags with a real page number. Invariant: Vacant() ⇒ Real == 0.
type Map struct {
	Flags MapFlags
	Real  uint32
}

// PageFault is raised when an operation touches a vacant virtual page.
type PageFault struct {
	VirtPage uint32
}

func (e *PageFault) Error() string { return fmt.Sprintf("page fault at vp %#x", e.VirtPage) }

// WriteProtectFault is raised when a store targets a protected page.
type WriteProtectFault struct {
	VirtPage uint32
}

func (e *WriteProtectFault) Error() string {
	return fmt.Sprintf("write-protect fault at vp %#x", e.VirtPage)
}

// InvalidAddress is a caller-contract violation: a virtual page number
// outside [0, VirtualPages()). Unlike PageFault/WriteProtectFault this is
// never a guest-recoverable condition, so callers panic with it rather
// than propagate it as an error, matching bytebuffer's OutOfRange/InvalidUse
// convention for caller-contract violations.
type InvalidAddress struct {
	VirtPage uint32
	VpSize   uint32
}

func (e *InvalidAddress) Error() string {
	return fmt.Sprintf("memory: vp %#x out of range [0, %#x)", e.VirtPage, e.VpSize)
}

func (m *Memory) checkVp(vp uint32) {
	if vp >= m.vpSize {
		panic(&InvalidAddress{VirtPage: vp, VpSize: m.vpSize})
	}
}

type cacheEntry struct {
	vpno       uint32
	page       *Page
	valid      bool
	fetchFlag  bool
	storeFlag  bool
}

// Stats counts page-cache traffic, surfaced to the shell's "perf" command.
type Stats struct {
	Hit          uint64
	MissEmpty    uint64
	MissConflict uint64
}

// Memory is the guest's virtual/real page table and page cache. Memory and
// the opcode table are the two process-wide singletons the emulator owns;
// both live inside a single Machine aggregate (see package machine) rather
// than as package-level globals, so nothing forbids constructing more than
// one in tests.
type Memory struct {
	vpSize   uint32 // number of virtual pages
	rpSize   uint32 // number of real pages
	ioRegion uint32 // ioRegionPage

	maps []Map
	real []Page

	cache [cacheSize]cacheEntry
	stats Stats

	displayPageSize uint32
	displayRealPage uint32
}

// New builds a Memory with the power-on boot layout installed: vmBits in
// [20,25], rmBits <= vmBits, capped by maxRealPages.
func New(vmBits, rmBits int, ioRegionPage uint32) *Memory {
	const maxRealPages = 1 << 16 // implementation maximum on real memory

	vpSize := uint32(1) << (vmBits - 8)
	rpSize := uint32(1) << (rmBits - 8)
	if rpSize > maxRealPages {
		rpSize = maxRealPages
	}
	if rpSize > vpSize {
		rpSize = vpSize
	}

	m := &Memory{
		vpSize:   vpSize,
		rpSize:   rpSize,
		ioRegion: ioRegionPage,
		maps:     make([]Map, vpSize),
		real:     make([]Page, rpSize),
	}
	m.bootMap()
	return m
}

// bootMap installs the power-on mapping:
// pages [ioRegionPage..256) map first to real pages [0..256-ioRegionPage);
// pages [0..ioRegionPage) map next; pages [256..rpSize) map 1:1;
// pages [rpSize..vpSize) are vacant.
func (m *Memory) bootMap() {
	rp := uint32(0)
	for vp := m.ioRegion; vp < 256 && vp < m.vpSize; vp++ {
		m.maps[vp] = Map{Flags: 0, Real: rp}
		rp++
	}
	for vp := uint32(0); vp < m.ioRegion && vp < m.vpSize; vp++ {
		m.maps[vp] = Map{Flags: 0, Real: rp}
		rp++
	}
	for vp := uint32(256); vp < m.rpSize && vp < m.vpSize; vp++ {
		m.maps[vp] = Map{Flags: 0, Real: vp}
	}
	for vp := m.rpSize; vp < m.vpSize; vp++ {
		m.maps[vp] = Map{Flags: FlagProtect, Real: 0}
	}
}

// VirtualPages returns the size of the virtual address space in pages.
func (m *Memory) VirtualPages() uint32 { return m.vpSize }

// RealPages returns the size of real memory in pages.
func (m *Memory) RealPages() uint32 { return m.rpSize }

// Stats returns a snapshot of page-cache counters.
func (m *Memory) Stats() Stats { return m.stats }

// ReadMap returns the map entry for a virtual page, administratively.
// vp must be within [0, VirtualPages()); an out-of-range vp is a
// caller-contract violation and panics with *InvalidAddress.
func (m *Memory) ReadMap(vp uint32) Map {
	m.checkVp(vp)
	return m.maps[vp]
}

// WriteMap installs a map entry administratively and invalidates the
// corresponding cache entry so invariant 3 (cache invalidation) holds.
// vp must be within [0, VirtualPages()); an out-of-range vp is a
// caller-contract violation and panics with *InvalidAddress.
func (m *Memory) WriteMap(vp uint32, mp Map) {
	m.checkVp(vp)
	if mp.Flags.Vacant() {
		mp.Real = 0
	}
	m.maps[vp] = mp
	idx := vp % cacheSize
	if m.cache[idx].valid && m.cache[idx].vpno == vp {
		m.cache[idx] = cacheEntry{}
	}
}

func (m *Memory) cacheIndex(vp uint32) uint32 { return vp % cacheSize }

// fetchPage resolves vp for reading, raising PageFault if vacant, and sets
// the referenced bit.
func (m *Memory) fetchPage(vp uint32) (*Page, error) {
	m.checkVp(vp)
	mp := m.maps[vp]
	if mp.Flags.Vacant() {
		return nil, &PageFault{VirtPage: vp}
	}
	m.maps[vp].Flags |= FlagReferenced
	return &m.real[mp.Real], nil
}

// storePage resolves vp for writing, raising PageFault if vacant or
// WriteProtectFault if protected, and sets referenced+dirty.
func (m *Memory) storePage(vp uint32) (*Page, error) {
	m.checkVp(vp)
	mp := m.maps[vp]
	if mp.Flags.Vacant() {
		return nil, &PageFault{VirtPage: vp}
	}
	if mp.Flags&FlagProtect != 0 {
		return nil, &WriteProtectFault{VirtPage: vp}
	}
	m.maps[vp].Flags |= FlagReferenced | FlagDirty
	return &m.real[mp.Real], nil
}

// FetchPage returns a pointer to the real page backing vp for reads,
// going through the page cache.
func (m *Memory) FetchPage(vp uint32) (*Page, error) {
	idx := m.cacheIndex(vp)
	e := &m.cache[idx]

	if e.valid && e.vpno == vp {
		if e.fetchFlag {
			m.stats.Hit++
			return e.page, nil
		}
		// Maintain-flag path: entry matches but fetch flag not set.
		if _, err := m.fetchPage(vp); err != nil {
			return nil, err
		}
		e.fetchFlag = true
		return e.page, nil
	}

	wasEmpty := !e.valid
	page, err := m.fetchPage(vp)
	if err != nil {
		return nil, err
	}
	*e = cacheEntry{vpno: vp, page: page, valid: true, fetchFlag: true, storeFlag: false}
	if wasEmpty {
		m.stats.MissEmpty++
	} else {
		m.stats.MissConflict++
	}
	return page, nil
}

// StorePage returns a pointer to the real page backing vp for writes,
// going through the page cache.
func (m *Memory) StorePage(vp uint32) (*Page, error) {
	idx := m.cacheIndex(vp)
	e := &m.cache[idx]

	if e.valid && e.vpno == vp {
		if e.storeFlag {
			m.stats.Hit++
			return e.page, nil
		}
		if _, err := m.storePage(vp); err != nil {
			return nil, err
		}
		e.storeFlag = true
		return e.page, nil
	}

	wasEmpty := !e.valid
	page, err := m.storePage(vp)
	if err != nil {
		return nil, err
	}
	*e = cacheEntry{vpno: vp, page: page, valid: true, fetchFlag: true, storeFlag: true}
	if wasEmpty {
		m.stats.MissEmpty++
	} else {
		m.stats.MissConflict++
	}
	return page, nil
}

// Peek resolves a virtual address for read-only inspection without
// mutating any map flags. Fatal (panics) if the page is vacant: callers
// are expected to have already validated the address.
func (m *Memory) Peek(va uint32) *uint16 {
	vp := va / PageSize
	off := va % PageSize
	m.checkVp(vp)
	mp := m.maps[vp]
	if mp.Flags.Vacant() {
		panic(&PageFault{VirtPage: vp})
	}
	return &m.real[mp.Real][off]
}

// GetAddress resolves a guest virtual word address to a slice into the
// backing real page, starting at that word and running to the page end.
// Used by agents to copy data in/out of guest memory.
func (m *Memory) GetAddress(va uint32, write bool) ([]uint16, error) {
	vp := va / PageSize
	off := va % PageSize
	var page *Page
	var err error
	if write {
		page, err = m.StorePage(vp)
	} else {
		page, err = m.FetchPage(vp)
	}
	if err != nil {
		return nil, err
	}
	return page[off:], nil
}

// ReserveDisplayPage computes displayPageSize from the framebuffer
// dimensions and marks the last displayPageSize real pages vacant in
// virtual space until the guest maps them. The boot layout maps
// [256..rpSize) one-to-one, so the virtual pages covering the reserved
// real region are [rpSize-displayPageSize, rpSize).
func (m *Memory) ReserveDisplayPage(width, height int) {
	alignedWidth := (width + 31) &^ 31
	bits := alignedWidth * height
	pages := (bits + (8*bytesPerPage - 1)) / (8 * bytesPerPage)
	m.displayPageSize = uint32(pages)
	m.displayRealPage = m.rpSize - m.displayPageSize

	for i := uint32(0); i < m.displayPageSize; i++ {
		vp := m.displayRealPage + i
		if vp < m.vpSize {
			m.WriteMap(vp, Map{Flags: FlagProtect, Real: 0})
		}
	}
}

// DisplayPageSize returns the number of pages reserved for the framebuffer.
func (m *Memory) DisplayPageSize() uint32 { return m.displayPageSize }

// DisplayRealPage returns the first real page of the framebuffer.
func (m *Memory) DisplayRealPage() uint32 { return m.displayRealPage }

// MapDisplay installs clear (non-vacant, non-protected) map entries
// [vp, vp+count) backed by the reserved display real pages.
func (m *Memory) MapDisplay(vp, rp, count uint32) error {
	if rp != m.displayRealPage || count != m.displayPageSize {
		return fmt.Errorf("mapDisplay: rp=%#x count=%d does not match reserved display region rp=%#x count=%d",
			rp, count, m.displayRealPage, m.displayPageSize)
	}
	for i := uint32(0); i < count; i++ {
		m.WriteMap(vp+i, Map{Flags: 0, Real: rp + i})
	}
	return nil
}
