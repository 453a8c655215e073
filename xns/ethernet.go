/*
 * Guam - XNS Ethernet framing.
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

// EthernetHeaderSize is dst(6) + src(6) + type(2).
const EthernetHeaderSize = 14

// EthernetHeader is the frame header wrapping an IDP payload.
type EthernetHeader struct {
	Dst, Src HostAddress
	Type     uint16
}

// DecodeEthernetHeader reads a 14-byte header from the front of bb.
func DecodeEthernetHeader(bb *bytebuffer.Buffer) EthernetHeader {
	return EthernetHeader{
		Dst:  readHostAddress(bb),
		Src:  readHostAddress(bb),
		Type: bb.Read16(),
	}
}

// EncodeTo writes h's header fields to bb at the current position.
func (h EthernetHeader) EncodeTo(bb *bytebuffer.Buffer) {
	writeHostAddress(bb, h.Dst)
	writeHostAddress(bb, h.Src)
	bb.Write16(h.Type)
}

// Frame is a decoded Ethernet frame carrying an XNS IDP payload.
type Frame struct {
	Header  EthernetHeader
	Payload []byte
}

// DecodeFrame reads an Ethernet header followed by the remaining bytes as
// payload.
func DecodeFrame(raw []byte) Frame {
	bb := bytebuffer.New(raw)
	h := DecodeEthernetHeader(bb)
	return Frame{Header: h, Payload: bb.Read(bb.Remaining())}
}

// Encode serializes the frame: header followed by payload, unpadded.
func (f Frame) Encode() []byte {
	buf := make([]byte, EthernetHeaderSize+len(f.Payload))
	bb := bytebuffer.New(buf)
	f.Header.EncodeTo(bb)
	bb.Write(f.Payload)
	return buf
}

// Accepted reports whether a received frame should be handed to the XNS
// decoder: its type must be XNS, its source must not be self, and its
// destination must be broadcast or self, per the receive loop's drop rules.
func (f Frame) Accepted(self HostAddress) bool {
	if f.Header.Type != EtherTypeXNS {
		return false
	}
	if f.Header.Src == self {
		return false
	}
	return f.Header.Dst == Broadcast || f.Header.Dst == self
}
