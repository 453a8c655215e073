/*
 * Guam - TimeListener: PEX-wrapped Pilot-epoch time service.
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

package listener

import (
	"time"

	"github.com/rcornwell/guam/xns"
)

// TimeListener answers Time requests carried inside a PEX envelope with
// the current Pilot-epoch time.
type TimeListener struct {
	tx        Transmitter
	localNet  uint32
	localHost xns.HostAddress
	offset    int32
	now       func() time.Time
}

// NewTimeListener builds a TimeListener sourced from (localNet, localHost)
// and reporting a fixed local time-zone offset in seconds.
func NewTimeListener(tx Transmitter, localNet uint32, localHost xns.HostAddress, offset int32) *TimeListener {
	return &TimeListener{tx: tx, localNet: localNet, localHost: localHost, offset: offset, now: time.Now}
}

func (t *TimeListener) Init() error  { return nil }
func (t *TimeListener) Start() error { return nil }
func (t *TimeListener) Stop() error  { return nil }

// Handle answers a Time REQUEST wrapped in PEX with a REPLY carrying the
// current time, configured offset, and tolerance=MILLI, value=10.
func (t *TimeListener) Handle(idp xns.IDP) error {
	pex := xns.DecodePEX(idp.Payload)
	if pex.Type != xns.PEXTypeTime {
		return nil
	}
	if _, err := xns.DecodeTimeRequest(pex.Payload); err != nil {
		return err
	}

	reply := xns.TimeReply{
		Seconds:    xns.PilotSeconds(t.now().Unix()),
		Offset:     t.offset,
		Tolerance:  xns.ToleranceMilli,
		ToleranceV: 10,
	}
	replyPEX := xns.PEX{ID: pex.ID, Type: xns.PEXTypeTime, Payload: reply.Encode()}
	replyIDP := xns.IDP{
		Type:      xns.TypePEX,
		DstNet:    idp.SrcNet,
		DstHost:   idp.SrcHost,
		DstSocket: idp.SrcSocket,
		SrcNet:    t.localNet,
		SrcHost:   t.localHost,
		SrcSocket: xns.SocketTime,
		Payload:   replyPEX.Encode(),
	}
	return t.tx.Transmit(idp.SrcHost, replyIDP)
}
