/*
 * Guam - display/input agent tests.
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

package device

import (
	"testing"

	"github.com/rcornwell/guam/memory"
)

func TestDisplayFillAndSnapshot(t *testing.T) {
	mem := memory.New(20, 20, 0x100)
	d := NewDisplay(mem, 32, 2)

	const vp uint32 = 0
	if err := d.MapDisplay(vp); err != nil {
		t.Fatalf("MapDisplay: %v", err)
	}

	if err := d.Fill(vp, true); err != nil {
		t.Fatalf("Fill(black): %v", err)
	}
	rgba, err := d.Snapshot(vp)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(rgba) != 32*2*4 {
		t.Fatalf("snapshot length = %d, want %d", len(rgba), 32*2*4)
	}
	for i := 0; i < len(rgba); i += 4 {
		if rgba[i] != 0 {
			t.Fatalf("pixel %d = %d, want black (0)", i/4, rgba[i])
		}
	}

	if err := d.Fill(vp, false); err != nil {
		t.Fatalf("Fill(white): %v", err)
	}
	rgba, err = d.Snapshot(vp)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	for i := 0; i < len(rgba); i += 4 {
		if rgba[i] != 255 {
			t.Fatalf("pixel %d = %d, want white (255)", i/4, rgba[i])
		}
	}
}

func TestInputPostDrainNotifies(t *testing.T) {
	var got uint16
	in := NewInput(func(selector uint16) { got = selector }, 0x4)

	in.Post(Event{Kind: EventKeyPress, Code: 65})
	if got != 0x4 {
		t.Fatalf("notify selector = %#x, want 0x4", got)
	}

	events := in.Drain()
	if len(events) != 1 || events[0].Code != 65 {
		t.Fatalf("Drain = %+v, want one keyPress(65)", events)
	}
	if len(in.Drain()) != 0 {
		t.Fatalf("Drain did not clear queue")
	}
}
