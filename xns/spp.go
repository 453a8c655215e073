/*
 * Guam - XNS Sequenced Packet Protocol codec.
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

// SPP control bits.
const (
	SPPSystemPacket uint8 = 0x80
	SPPSendAck      uint8 = 0x40
	SPPEndOfMessage uint8 = 0x20
)

// SPPHeaderSize is the fixed portion of an SPP header, excluding payload.
const SPPHeaderSize = 1 + 1 + 2 + 2 + 2 + 2 + 2 // 12

// SPP is the Sequenced Packet Protocol header plus its data payload.
type SPP struct {
	Control uint8
	SST     uint8
	IDSrc   uint16
	IDDst   uint16
	Seq     uint16
	Ack     uint16
	Alloc   uint16
	Payload []byte
}

// IsSystemPacket reports whether Control's system-packet bit is set.
func (s SPP) IsSystemPacket() bool { return s.Control&SPPSystemPacket != 0 }

// SendAck reports whether Control's send-ack bit is set.
func (s SPP) SendAck() bool { return s.Control&SPPSendAck != 0 }

// DecodeSPP decodes an SPP payload.
func DecodeSPP(payload []byte) SPP {
	bb := bytebuffer.New(payload)
	return SPP{
		Control: bb.Read8(),
		SST:     bb.Read8(),
		IDSrc:   bb.Read16(),
		IDDst:   bb.Read16(),
		Seq:     bb.Read16(),
		Ack:     bb.Read16(),
		Alloc:   bb.Read16(),
		Payload: bb.Read(bb.Remaining()),
	}
}

// Encode serializes s back into an SPP payload.
func (s SPP) Encode() []byte {
	buf := make([]byte, SPPHeaderSize+len(s.Payload))
	bb := bytebuffer.New(buf)
	bb.Write8(s.Control)
	bb.Write8(s.SST)
	bb.Write16(s.IDSrc)
	bb.Write16(s.IDDst)
	bb.Write16(s.Seq)
	bb.Write16(s.Ack)
	bb.Write16(s.Alloc)
	bb.Write(s.Payload)
	return buf
}
