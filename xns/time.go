/*
 * Guam - XNS Time protocol, carried inside a PEX payload.
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

// TimeRequestType and TimeReplyType are the Time sub-protocol's message
// types.
const (
	TimeRequestType uint16 = 1
	TimeReplyType   uint16 = 2
)

// Tolerance units for TimeReply.Tolerance.
const ToleranceMilli uint16 = 2

// pilotEpochOffset is the number of seconds the Pilot epoch sits before the
// Unix epoch: (67*365 + 16)*86400 + 731*86400.
const pilotEpochOffset = int64((67*365+16)*86400 + 731*86400)

// TimeRequest carries no fields beyond its message type.
type TimeRequest struct{}

// TimeReply answers a TimeRequest with the current time in Pilot-epoch
// seconds, a local time-zone offset, and an uncertainty tolerance.
type TimeReply struct {
	Seconds    uint32
	Offset     int32
	Tolerance  uint16
	ToleranceV uint16
}

// PilotSeconds converts a Unix timestamp (seconds since 1970) to Pilot
// epoch seconds.
func PilotSeconds(unixSeconds int64) uint32 {
	return uint32(unixSeconds + pilotEpochOffset)
}

// DecodeTimeRequest reads the message type and confirms it is a request;
// the caller is expected to have already read PEX.Type == PEXTypeTime.
func DecodeTimeRequest(payload []byte) (TimeRequest, error) {
	bb := bytebuffer.New(payload)
	if bb.Read16() != TimeRequestType {
		return TimeRequest{}, &UnexpectedMessageError{Protocol: "time", Got: payload}
	}
	return TimeRequest{}, nil
}

// Encode serializes a TimeRequest.
func (TimeRequest) Encode() []byte {
	buf := make([]byte, 2)
	bytebuffer.New(buf).Write16(TimeRequestType)
	return buf
}

// DecodeTimeReply reads a TimeReply, confirming its message type.
func DecodeTimeReply(payload []byte) (TimeReply, error) {
	bb := bytebuffer.New(payload)
	if bb.Read16() != TimeReplyType {
		return TimeReply{}, &UnexpectedMessageError{Protocol: "time", Got: payload}
	}
	return TimeReply{
		Seconds:    bb.Read32(),
		Offset:     int32(bb.Read32()),
		Tolerance:  bb.Read16(),
		ToleranceV: bb.Read16(),
	}, nil
}

// Encode serializes a TimeReply.
func (r TimeReply) Encode() []byte {
	buf := make([]byte, 2+4+4+2+2)
	bb := bytebuffer.New(buf)
	bb.Write16(TimeReplyType)
	bb.Write32(r.Seconds)
	bb.Write32(uint32(r.Offset))
	bb.Write16(r.Tolerance)
	bb.Write16(r.ToleranceV)
	return buf
}

// UnexpectedMessageError reports a Time or Echo message with an
// unrecognized type where the protocol says the behavior is fatal.
type UnexpectedMessageError struct {
	Protocol string
	Got      []byte
}

func (e *UnexpectedMessageError) Error() string {
	return "xns: unexpected " + e.Protocol + " message"
}
