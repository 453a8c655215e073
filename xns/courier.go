/*
 * Guam - Expedited Courier envelope carried over a reassembled SPP stream.
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

// CourierMessageType is Protocol3Body's message-type discriminator.
type CourierMessageType uint8

const (
	CourierCall   CourierMessageType = 0
	CourierReject CourierMessageType = 1
	CourierReturn CourierMessageType = 2
	CourierAbort  CourierMessageType = 3
)

// Protocol3Body is the Courier message carried inside an
// ExpeditedCourier envelope.
type Protocol3Body struct {
	MessageType   CourierMessageType
	TransactionID uint16
	Payload       []byte
}

// ExpeditedCourier wraps a reassembled SPP data stream's contiguous
// payload with the protocol range and Courier message it carries.
type ExpeditedCourier struct {
	ProtocolRange uint16
	Body          Protocol3Body
}

// DecodeExpeditedCourier decodes the contiguous payload the SPP stream
// delivers to the Courier dispatcher.
func DecodeExpeditedCourier(payload []byte) ExpeditedCourier {
	bb := bytebuffer.New(payload)
	ec := ExpeditedCourier{ProtocolRange: bb.Read16()}
	ec.Body = Protocol3Body{
		MessageType:   CourierMessageType(bb.Read8()),
		TransactionID: bb.Read16(),
		Payload:       bb.Read(bb.Remaining()),
	}
	return ec
}

// Encode serializes ec back into a Courier envelope.
func (ec ExpeditedCourier) Encode() []byte {
	buf := make([]byte, 2+1+2+len(ec.Body.Payload))
	bb := bytebuffer.New(buf)
	bb.Write16(ec.ProtocolRange)
	bb.Write8(uint8(ec.Body.MessageType))
	bb.Write16(ec.Body.TransactionID)
	bb.Write(ec.Body.Payload)
	return buf
}
