/*
 * Guam - XNS Echo protocol codec.
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

// EchoType discriminates an Echo request from its reply.
type EchoType uint16

const (
	EchoRequest EchoType = 1
	EchoReply   EchoType = 2
)

// Echo is the Echo protocol payload: a type word and an opaque block
// returned unmodified by a REPLY.
type Echo struct {
	Type  EchoType
	Block []byte
}

// DecodeEcho decodes an Echo payload.
func DecodeEcho(payload []byte) Echo {
	bb := bytebuffer.New(payload)
	return Echo{Type: EchoType(bb.Read16()), Block: bb.Read(bb.Remaining())}
}

// Encode serializes e back into an Echo payload.
func (e Echo) Encode() []byte {
	buf := make([]byte, 2+len(e.Block))
	bb := bytebuffer.New(buf)
	bb.Write16(uint16(e.Type))
	bb.Write(e.Block)
	return buf
}
