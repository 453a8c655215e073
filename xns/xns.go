/*
 * Guam - XNS wire codecs: shared constants and the IDP checksum.
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

// Package xns implements the XNS frame stack's wire codecs: Ethernet,
// IDP, RIP, Echo, PEX, SPP, Error, Boot and ExpeditedCourier, one file
// per protocol. Each type offers a Decode/Encode pair over
// bytebuffer.Buffer, the same cursor the floppy decoder uses.
package xns

import "github.com/rcornwell/guam/bytebuffer"

// EtherTypeXNS is the Ethernet frame type carrying an XNS IDP packet.
const EtherTypeXNS = 0x0600

// HostAddress is a 48-bit XNS host address.
type HostAddress uint64

// Broadcast is the all-ones host address.
const Broadcast HostAddress = 0xFFFFFFFFFFFF

// NetAll and HopInfinity are RIP's wildcard net and unreachable-hop values.
const (
	NetAll      uint32 = 0xFFFFFFFF
	HopInfinity uint16 = 16
)

// WellKnownSocketLimit bounds the well-known socket range; ephemeral
// sockets are allocated above it.
const WellKnownSocketLimit uint16 = 20

// Well-known sockets.
const (
	SocketRIP     uint16 = 1
	SocketEcho    uint16 = 2
	SocketErr     uint16 = 3
	SocketBoot    uint16 = 10
	SocketCourier uint16 = 5
	SocketTime    uint16 = 14
)

// PacketType is the IDP.Type discriminator selecting the payload codec.
type PacketType uint8

const (
	TypeRIP   PacketType = 1
	TypeEcho  PacketType = 2
	TypeError PacketType = 3
	TypePEX   PacketType = 4
	TypeSPP   PacketType = 5
	TypeBoot  PacketType = 9
)

// checksum computes the XNS rotate-left-one-and-xor checksum over data,
// padding a trailing odd byte with zero the way the wire format does.
func checksum(data []byte) uint16 {
	var sum uint16
	n := len(data)
	for i := 0; i+1 < n; i += 2 {
		word := uint16(data[i])<<8 | uint16(data[i+1])
		sum = (sum<<1 | sum>>15) ^ word
	}
	if n%2 == 1 {
		word := uint16(data[n-1]) << 8
		sum = (sum<<1 | sum>>15) ^ word
	}
	return sum
}

// padLength returns the padded frame length for an unpadded encoded
// length: zero-padded up to the 30-byte minimum packet, then to even.
func padLength(n int) int {
	if n < 30 {
		n = 30
	}
	if n%2 == 1 {
		n++
	}
	return n
}

// readHostAddress and writeHostAddress wrap bytebuffer's 48-bit accessors.
func readHostAddress(bb *bytebuffer.Buffer) HostAddress {
	return HostAddress(bb.Read48())
}

func writeHostAddress(bb *bytebuffer.Buffer, h HostAddress) {
	bb.Write48(uint64(h))
}
