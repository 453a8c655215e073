/*
 * Guam - XNS Routing Information Protocol codec.
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

// RIPType discriminates a RIP request from a response.
type RIPType uint16

const (
	RIPRequest  RIPType = 1
	RIPResponse RIPType = 2
)

// RIPEntry is one (network, hop-count) pair.
type RIPEntry struct {
	Net uint32
	Hop uint16
}

// RIP is the routing information payload carried inside an IDP packet of
// Type TypeRIP.
type RIP struct {
	Type    RIPType
	Entries []RIPEntry
}

// DecodeRIP decodes a RIP payload: a type word followed by (net,hop) pairs
// filling the rest of the buffer.
func DecodeRIP(payload []byte) RIP {
	bb := bytebuffer.New(payload)
	r := RIP{Type: RIPType(bb.Read16())}
	for bb.Remaining() >= 6 {
		r.Entries = append(r.Entries, RIPEntry{Net: bb.Read32(), Hop: bb.Read16()})
	}
	return r
}

// Encode serializes r back into a RIP payload.
func (r RIP) Encode() []byte {
	buf := make([]byte, 2+6*len(r.Entries))
	bb := bytebuffer.New(buf)
	bb.Write16(uint16(r.Type))
	for _, e := range r.Entries {
		bb.Write32(e.Net)
		bb.Write16(e.Hop)
	}
	return buf
}
