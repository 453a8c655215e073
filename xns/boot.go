/*
 * Guam - XNS Boot protocol codec: a tagged variant body.
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

// BootType is the wire discriminator selecting Boot's variant body.
type BootType uint16

const (
	BootSimpleRequest BootType = 1
	BootSimpleData    BootType = 2
	BootSPPRequest    BootType = 3
)

// SimpleRequestBody carries no fields.
type SimpleRequestBody struct{}

// SimpleDataBody carries a block of boot image data.
type SimpleDataBody struct {
	Data []byte
}

// SPPRequestBody requests an SPP-based boot file transfer.
type SPPRequestBody struct {
	FileNumber uint32
}

// Boot is a closed tagged-union variant payload: exactly one of the three
// body fields is populated, selected by Type. Accessors assert on tag
// mismatch, per the decision to represent variant payloads as tagged sum
// types with the tag as wire discriminator.
type Boot struct {
	Type BootType

	simpleRequest *SimpleRequestBody
	simpleData    *SimpleDataBody
	sppRequest    *SPPRequestBody
}

// TagMismatchError is raised by a Boot accessor when Type does not select
// that variant.
type TagMismatchError struct {
	Want, Got BootType
}

func (e *TagMismatchError) Error() string {
	return fmt.Sprintf("xns: Boot tag mismatch: want %d, got %d", e.Want, e.Got)
}

// NewSimpleRequest builds a Boot carrying a SimpleRequestBody.
func NewSimpleRequest() Boot {
	return Boot{Type: BootSimpleRequest, simpleRequest: &SimpleRequestBody{}}
}

// NewSimpleData builds a Boot carrying a SimpleDataBody.
func NewSimpleData(data []byte) Boot {
	return Boot{Type: BootSimpleData, simpleData: &SimpleDataBody{Data: data}}
}

// NewSPPRequest builds a Boot carrying an SPPRequestBody.
func NewSPPRequest(fileNumber uint32) Boot {
	return Boot{Type: BootSPPRequest, sppRequest: &SPPRequestBody{FileNumber: fileNumber}}
}

// SimpleRequest returns the SimpleRequestBody, panicking with
// *TagMismatchError if Type is not BootSimpleRequest.
func (b Boot) SimpleRequest() SimpleRequestBody {
	if b.Type != BootSimpleRequest {
		panic(&TagMismatchError{Want: BootSimpleRequest, Got: b.Type})
	}
	return *b.simpleRequest
}

// SimpleData returns the SimpleDataBody, panicking with *TagMismatchError
// if Type is not BootSimpleData.
func (b Boot) SimpleData() SimpleDataBody {
	if b.Type != BootSimpleData {
		panic(&TagMismatchError{Want: BootSimpleData, Got: b.Type})
	}
	return *b.simpleData
}

// SPPRequest returns the SPPRequestBody, panicking with *TagMismatchError
// if Type is not BootSPPRequest.
func (b Boot) SPPRequest() SPPRequestBody {
	if b.Type != BootSPPRequest {
		panic(&TagMismatchError{Want: BootSPPRequest, Got: b.Type})
	}
	return *b.sppRequest
}

// DecodeBoot decodes a Boot payload: a type word followed by the variant
// body it selects.
func DecodeBoot(payload []byte) (Boot, error) {
	bb := bytebuffer.New(payload)
	tag := BootType(bb.Read16())
	switch tag {
	case BootSimpleRequest:
		return NewSimpleRequest(), nil
	case BootSimpleData:
		return NewSimpleData(bb.Read(bb.Remaining())), nil
	case BootSPPRequest:
		return NewSPPRequest(bb.Read32()), nil
	default:
		return Boot{}, &UnknownBootTypeError{Got: tag}
	}
}

// UnknownBootTypeError reports a Boot tag outside the closed variant set.
type UnknownBootTypeError struct {
	Got BootType
}

func (e *UnknownBootTypeError) Error() string {
	return fmt.Sprintf("xns: unknown Boot type %d", e.Got)
}

// Encode serializes b back into a Boot payload.
func (b Boot) Encode() []byte {
	switch b.Type {
	case BootSimpleRequest:
		buf := make([]byte, 2)
		bytebuffer.New(buf).Write16(uint16(b.Type))
		return buf
	case BootSimpleData:
		body := b.SimpleData()
		buf := make([]byte, 2+len(body.Data))
		bb := bytebuffer.New(buf)
		bb.Write16(uint16(b.Type))
		bb.Write(body.Data)
		return buf
	case BootSPPRequest:
		body := b.SPPRequest()
		buf := make([]byte, 6)
		bb := bytebuffer.New(buf)
		bb.Write16(uint16(b.Type))
		bb.Write32(body.FileNumber)
		return buf
	default:
		panic(&UnknownBootTypeError{Got: b.Type})
	}
}
