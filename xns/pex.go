/*
 * Guam - XNS Packet Exchange protocol codec.
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

package xns

import "github.com/rcornwell/guam/bytebuffer"

// PEXTypeTime selects the Time sub-protocol carried inside a PEX payload.
const PEXTypeTime uint16 = 1

// PEX is the Packet Exchange protocol envelope: an id used to match
// request/reply, a sub-protocol type, and an opaque payload block.
type PEX struct {
	ID      uint32
	Type    uint16
	Payload []byte
}

// DecodePEX decodes a PEX payload.
func DecodePEX(payload []byte) PEX {
	bb := bytebuffer.New(payload)
	return PEX{ID: bb.Read32(), Type: bb.Read16(), Payload: bb.Read(bb.Remaining())}
}

// Encode serializes p back into a PEX payload.
func (p PEX) Encode() []byte {
	buf := make([]byte, 6+len(p.Payload))
	bb := bytebuffer.New(buf)
	bb.Write32(p.ID)
	bb.Write16(p.Type)
	bb.Write(p.Payload)
	return buf
}
