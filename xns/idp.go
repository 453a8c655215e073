/*
 * Guam - XNS Internet Datagram Protocol codec.
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

import (
	"fmt"

	"github.com/rcornwell/guam/bytebuffer"
)

// NoChecksum marks an IDP packet as carrying no checksum.
const NoChecksum uint16 = 0xFFFF

// IDPHeaderSize is the fixed portion of the IDP header, excluding payload.
const IDPHeaderSize = 2 + 2 + 1 + 1 + 4 + 6 + 2 + 4 + 6 + 2 // 30

// IDP is the Internet Datagram Protocol header plus its opaque payload,
// which one of the other codecs in this package further decodes by Type.
type IDP struct {
	Checksum  uint16
	Length    uint16
	Control   uint8
	Type      PacketType
	DstNet    uint32
	DstHost   HostAddress
	DstSocket uint16
	SrcNet    uint32
	SrcHost   HostAddress
	SrcSocket uint16
	Payload   []byte
}

// ChecksumError reports an IDP checksum mismatch on decode.
type ChecksumError struct {
	Got, Want uint16
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("xns: IDP checksum mismatch: got %#04x, want %#04x", e.Got, e.Want)
}

// DecodeIDP decodes raw as an IDP packet, verifying its checksum unless it
// is NoChecksum. Returns *ChecksumError on mismatch per the receive loop's
// drop-and-log contract.
func DecodeIDP(raw []byte) (IDP, error) {
	bb := bytebuffer.New(raw)
	idp := IDP{
		Checksum: bb.Read16(),
		Length:   bb.Read16(),
		Control:  bb.Read8(),
		Type:     PacketType(bb.Read8()),
	}
	idp.DstNet = bb.Read32()
	idp.DstHost = readHostAddress(bb)
	idp.DstSocket = bb.Read16()
	idp.SrcNet = bb.Read32()
	idp.SrcHost = readHostAddress(bb)
	idp.SrcSocket = bb.Read16()

	payloadLen := int(idp.Length) - IDPHeaderSize
	if payloadLen < 0 {
		payloadLen = 0
	}
	if payloadLen > bb.Remaining() {
		payloadLen = bb.Remaining()
	}
	idp.Payload = bb.Read(payloadLen)

	if idp.Checksum != NoChecksum {
		want := checksum(raw[2:IDPHeaderSize+len(idp.Payload)])
		if want != idp.Checksum {
			return idp, &ChecksumError{Got: idp.Checksum, Want: want}
		}
	}
	return idp, nil
}

// Encode serializes idp: computes Length from the encoded extent, pads to
// the 30-byte minimum (and to even length), and stores the checksum unless
// the caller set NoChecksum.
func (idp IDP) Encode() []byte {
	unpadded := IDPHeaderSize + len(idp.Payload)
	buf := make([]byte, padLength(unpadded))
	bb := bytebuffer.New(buf)

	bb.Write16(0) // checksum placeholder
	bb.Write16(uint16(unpadded))
	bb.Write8(idp.Control)
	bb.Write8(uint8(idp.Type))
	bb.Write32(idp.DstNet)
	writeHostAddress(bb, idp.DstHost)
	bb.Write16(idp.DstSocket)
	bb.Write32(idp.SrcNet)
	writeHostAddress(bb, idp.SrcHost)
	bb.Write16(idp.SrcSocket)
	bb.Write(idp.Payload)

	if idp.Checksum == NoChecksum {
		buf[0], buf[1] = 0xFF, 0xFF
	} else {
		sum := checksum(buf[2:unpadded])
		buf[0], buf[1] = byte(sum>>8), byte(sum)
	}
	return buf
}
