/*
 * Guam - ByteBuffer: position/limit/capacity cursor over a byte region.
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

// Package bytebuffer implements the big-endian cursor every wire and
// serialization path in Guam reads and writes through.
package bytebuffer

import "fmt"

// OutOfRange is raised when a read or write would cross limit/capacity.
// It is a caller-contract violation, not a recoverable protocol error.
type OutOfRange struct {
	Op       string
	Offset   int
	Length   int
	Capacity int
}

func (e *OutOfRange) Error() string {
	return fmt.Sprintf("bytebuffer: %s at %d (len %d) exceeds capacity %d", e.Op, e.Offset, e.Length, e.Capacity)
}

// InvalidUse is raised for caller-contract violations that are not
// range errors, such as a double mark.
type InvalidUse struct {
	Op     string
	Reason string
}

func (e *InvalidUse) Error() string {
	return fmt.Sprintf("bytebuffer: invalid use of %s: %s", e.Op, e.Reason)
}

// Buffer is a cursor over (data, capacity, position, limit, mark) with
// 0 <= base <= position <= limit <= capacity.
type Buffer struct {
	data     []byte
	base     int
	capacity int
	position int
	limit    int
	mark     int
	marked   bool
}

// New wraps data starting at word offset 0 for its full length.
func New(data []byte) *Buffer {
	return &Buffer{
		data:     data,
		base:     0,
		capacity: len(data),
		position: 0,
		limit:    len(data),
		mark:     -1,
	}
}

// Range returns a sub-view sharing storage with b, starting at wordOffset
// (in 16-bit words) for wordSize words.
func (b *Buffer) Range(wordOffset, wordSize int) *Buffer {
	off := b.base + wordOffset*2
	size := wordSize * 2
	if off < b.base || off+size > b.capacity {
		panic(&OutOfRange{Op: "range", Offset: off, Length: size, Capacity: b.capacity})
	}
	return &Buffer{
		data:     b.data,
		base:     off,
		capacity: off + size,
		position: off,
		limit:    off + size,
		mark:     -1,
	}
}

func (b *Buffer) checkAccess(op string, offset, length int) {
	if offset < b.base || offset+length > b.limit {
		panic(&OutOfRange{Op: op, Offset: offset, Length: length, Capacity: b.capacity})
	}
}

// Position returns the current cursor position.
func (b *Buffer) Position() int { return b.position }

// Limit returns the current limit.
func (b *Buffer) Limit() int { return b.limit }

// Capacity returns the underlying capacity.
func (b *Buffer) Capacity() int { return b.capacity }

// SetPosition moves the cursor. Any value in [base, limit] is valid.
func (b *Buffer) SetPosition(pos int) {
	if pos < b.base || pos > b.limit {
		panic(&OutOfRange{Op: "setPosition", Offset: pos, Length: 0, Capacity: b.capacity})
	}
	b.position = pos
}

// Remaining returns the number of bytes between position and limit.
func (b *Buffer) Remaining() int { return b.limit - b.position }

// HasRemaining reports whether any bytes remain before the limit.
func (b *Buffer) HasRemaining() bool { return b.position < b.limit }

// Rewind sets position to base, clearing any mark.
func (b *Buffer) Rewind() {
	b.position = b.base
	b.marked = false
}

// Flip sets limit to the current position and position to base.
func (b *Buffer) Flip() {
	b.limit = b.position
	b.position = b.base
	b.marked = false
}

// Clear resets position to base and limit to capacity.
func (b *Buffer) Clear() {
	b.position = b.base
	b.limit = b.capacity
	b.marked = false
}

// Mark records the current position. The mark is single-shot: marking
// twice without an intervening Reset is invalid use.
func (b *Buffer) Mark() {
	if b.marked {
		panic(&InvalidUse{Op: "mark", Reason: "mark already set, call reset first"})
	}
	b.mark = b.position
	b.marked = true
}

// Reset restores position to the mark set by Mark.
func (b *Buffer) Reset() {
	if !b.marked {
		panic(&InvalidUse{Op: "reset", Reason: "no mark set"})
	}
	b.position = b.mark
	b.marked = false
}

// Read8 reads one byte at the current position and advances.
func (b *Buffer) Read8() uint8 {
	b.checkAccess("read8", b.position, 1)
	v := b.data[b.position]
	b.position++
	return v
}

// Read8At reads one byte at offset without advancing the position.
func (b *Buffer) Read8At(offset int) uint8 {
	b.checkAccess("read8At", offset, 1)
	return b.data[offset]
}

// Write8 writes one byte at the current position and advances.
func (b *Buffer) Write8(v uint8) {
	b.checkAccess("write8", b.position, 1)
	b.data[b.position] = v
	b.position++
}

// Write8At writes one byte at offset without advancing the position.
func (b *Buffer) Write8At(offset int, v uint8) {
	b.checkAccess("write8At", offset, 1)
	b.data[offset] = v
}

// Read16 reads a big-endian 16-bit value and advances.
func (b *Buffer) Read16() uint16 {
	b.checkAccess("read16", b.position, 2)
	v := uint16(b.data[b.position])<<8 | uint16(b.data[b.position+1])
	b.position += 2
	return v
}

// Read16At reads a big-endian 16-bit value at offset without advancing.
func (b *Buffer) Read16At(offset int) uint16 {
	b.checkAccess("read16At", offset, 2)
	return uint16(b.data[offset])<<8 | uint16(b.data[offset+1])
}

// Write16 writes a big-endian 16-bit value and advances.
func (b *Buffer) Write16(v uint16) {
	b.checkAccess("write16", b.position, 2)
	b.data[b.position] = uint8(v >> 8)
	b.data[b.position+1] = uint8(v)
	b.position += 2
}

// Write16At writes a big-endian 16-bit value at offset without advancing.
func (b *Buffer) Write16At(offset int, v uint16) {
	b.checkAccess("write16At", offset, 2)
	b.data[offset] = uint8(v >> 8)
	b.data[offset+1] = uint8(v)
}

// Read32 reads a big-endian 32-bit value and advances.
func (b *Buffer) Read32() uint32 {
	b.checkAccess("read32", b.position, 4)
	v := uint32(b.data[b.position])<<24 | uint32(b.data[b.position+1])<<16 |
		uint32(b.data[b.position+2])<<8 | uint32(b.data[b.position+3])
	b.position += 4
	return v
}

// Write32 writes a big-endian 32-bit value and advances.
func (b *Buffer) Write32(v uint32) {
	b.checkAccess("write32", b.position, 4)
	b.data[b.position] = uint8(v >> 24)
	b.data[b.position+1] = uint8(v >> 16)
	b.data[b.position+2] = uint8(v >> 8)
	b.data[b.position+3] = uint8(v)
	b.position += 4
}

// Read48 reads a big-endian 48-bit value (e.g. an XNS host address) into
// the low 48 bits of a uint64, and advances.
func (b *Buffer) Read48() uint64 {
	b.checkAccess("read48", b.position, 6)
	var v uint64
	for i := 0; i < 6; i++ {
		v = v<<8 | uint64(b.data[b.position+i])
	}
	b.position += 6
	return v
}

// Write48 writes the low 48 bits of v big-endian, and advances.
func (b *Buffer) Write48(v uint64) {
	b.checkAccess("write48", b.position, 6)
	for i := 5; i >= 0; i-- {
		b.data[b.position+i] = uint8(v)
		v >>= 8
	}
	b.position += 6
}

// Read reads n bytes at the current position and advances.
func (b *Buffer) Read(n int) []byte {
	b.checkAccess("read", b.position, n)
	out := make([]byte, n)
	copy(out, b.data[b.position:b.position+n])
	b.position += n
	return out
}

// Write writes p at the current position and advances.
func (b *Buffer) Write(p []byte) {
	b.checkAccess("write", b.position, len(p))
	copy(b.data[b.position:], p)
	b.position += len(p)
}

// Bytes returns the live slice between base and limit without copying.
func (b *Buffer) Bytes() []byte {
	return b.data[b.base:b.limit]
}
