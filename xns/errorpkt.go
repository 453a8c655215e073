/*
 * Guam - XNS Error protocol codec.
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

// ErrorCode values used by the Error payload.
type ErrorCode uint16

const (
	ErrorUnspecified      ErrorCode = 0
	ErrorBadChecksum      ErrorCode = 1
	ErrorNoSocket         ErrorCode = 2
	ErrorResourceExceeded ErrorCode = 3
)

// XNSError is the Error protocol payload: a code, a parameter, and the
// offending packet's bytes for diagnosis.
type XNSError struct {
	Code      ErrorCode
	Parameter uint16
	Offending []byte
}

// DecodeXNSError decodes an Error payload.
func DecodeXNSError(payload []byte) XNSError {
	bb := bytebuffer.New(payload)
	return XNSError{
		Code:      ErrorCode(bb.Read16()),
		Parameter: bb.Read16(),
		Offending: bb.Read(bb.Remaining()),
	}
}

// Encode serializes e back into an Error payload.
func (e XNSError) Encode() []byte {
	buf := make([]byte, 4+len(e.Offending))
	bb := bytebuffer.New(buf)
	bb.Write16(uint16(e.Code))
	bb.Write16(e.Parameter)
	bb.Write(e.Offending)
	return buf
}
