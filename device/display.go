/*
 * Guam - display agent: framebuffer memory region, no IOCB chain.
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

// Package device implements the Pilot device agents addressed directly
// by the scripted commands rather than through an IOCB chain: the
// monochrome display framebuffer and the keyboard/mouse event source.
// Neither has a backing image file to drain a work queue against.
package device

import (
	"fmt"
	"sync"

	"github.com/rcornwell/guam/memory"
)

// Display owns the reserved framebuffer region of a Memory and exposes
// the pixel-copy contract the host UI extracts visible bits through.
type Display struct {
	mem          *memory.Memory
	width        int
	height       int
	alignedWidth int
	wordsPerLine int
}

// NewDisplay reserves the framebuffer pages for a width x height monochrome
// bitmap (1 bit per pixel) and returns a Display bound to mem.
func NewDisplay(mem *memory.Memory, width, height int) *Display {
	mem.ReserveDisplayPage(width, height)
	aligned := (width + 31) &^ 31
	return &Display{
		mem:          mem,
		width:        width,
		height:       height,
		alignedWidth: aligned,
		wordsPerLine: (aligned + 15) / 16,
	}
}

// Width and Height report the configured display geometry.
func (d *Display) Width() int  { return d.width }
func (d *Display) Height() int { return d.height }

// MapDisplay installs the guest-requested mapping of its virtual display
// page range onto the reserved real pages.
func (d *Display) MapDisplay(vp uint32) error {
	return d.mem.MapDisplay(vp, d.mem.DisplayRealPage(), d.mem.DisplayPageSize())
}

// framebufferWords reads every word of the displayPageSize-page region
// starting at virtual page vp, one memory page at a time since GetAddress
// only resolves as far as the current page boundary.
func (d *Display) framebufferWords(vp uint32, write bool) ([]uint16, error) {
	pages := d.mem.DisplayPageSize()
	out := make([]uint16, 0, int(pages)*memory.PageSize)
	for i := uint32(0); i < pages; i++ {
		words, err := d.mem.GetAddress((vp+i)*memory.PageSize, write)
		if err != nil {
			return nil, err
		}
		out = append(out, words[:memory.PageSize]...)
	}
	return out, nil
}

// Snapshot copies the visible framebuffer bits into an RGBA buffer,
// honoring wordsPerLine and the 0=white/1=black monochrome encoding.
func (d *Display) Snapshot(vp uint32) ([]byte, error) {
	words, err := d.framebufferWords(vp, false)
	if err != nil {
		return nil, fmt.Errorf("display: %w", err)
	}
	need := d.wordsPerLine * d.height
	if len(words) < need {
		return nil, fmt.Errorf("display: framebuffer region too short: got %d words, need %d", len(words), need)
	}

	rgba := make([]byte, d.width*d.height*4)
	for y := 0; y < d.height; y++ {
		rowBase := y * d.wordsPerLine
		for x := 0; x < d.width; x++ {
			word := words[rowBase+x/16]
			bit := (word >> (15 - uint(x%16))) & 1
			v := byte(255)
			if bit != 0 {
				v = 0
			}
			off := (y*d.width + x) * 4
			rgba[off], rgba[off+1], rgba[off+2], rgba[off+3] = v, v, v, 255
		}
	}
	return rgba, nil
}

// Fill sets every pixel to black (1) or white (0), for the scripted
// `display fill` command.
func (d *Display) Fill(vp uint32, black bool) error {
	var v uint16
	if black {
		v = 0xFFFF
	}
	pages := d.mem.DisplayPageSize()
	for i := uint32(0); i < pages; i++ {
		words, err := d.mem.GetAddress((vp+i)*memory.PageSize, true)
		if err != nil {
			return fmt.Errorf("display: %w", err)
		}
		for j := 0; j < memory.PageSize; j++ {
			words[j] = v
		}
	}
	return nil
}

// EventKind distinguishes the scripted `event` command's sub-commands.
type EventKind int

const (
	EventMotion EventKind = iota
	EventKeyPress
	EventKeyRelease
	EventButtonPress
	EventButtonRelease
)

// Event is one posted keyboard/mouse event.
type Event struct {
	Kind EventKind
	X, Y int
	Code uint16
}

// Input is the keyboard/mouse agent: it has no IOCB chain or backing
// image, only a queue of posted events and a guest interrupt selector.
type Input struct {
	mu       sync.Mutex
	events   []Event
	notify   func(selector uint16)
	selector uint16
}

// NewInput builds an Input agent raising selector via notify whenever an
// event is posted.
func NewInput(notify func(uint16), selector uint16) *Input {
	return &Input{notify: notify, selector: selector}
}

// Post enqueues ev and raises the configured interrupt selector, the same
// notify-on-completion step agent.Agent.run performs for disk/floppy I/O.
func (in *Input) Post(ev Event) {
	in.mu.Lock()
	in.events = append(in.events, ev)
	in.mu.Unlock()
	in.notify(in.selector)
}

// Drain returns and clears all queued events, the shape the guest's
// keyboard/mouse driver polls through.
func (in *Input) Drain() []Event {
	in.mu.Lock()
	defer in.mu.Unlock()
	ev := in.events
	in.events = nil
	return ev
}
