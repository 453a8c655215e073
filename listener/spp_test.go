/*
 * Guam - SPP connection listener tests: new-connection allocation,
 * ack replies and reassembly into the Courier dispatcher.
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
	"sync"
	"testing"

	"github.com/rcornwell/guam/xns"
)

// recordingCourier captures every dispatched ExpeditedCourier message.
type recordingCourier struct {
	mu  sync.Mutex
	got []xns.ExpeditedCourier
}

func (c *recordingCourier) Dispatch(remote xns.HostAddress, ec xns.ExpeditedCourier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, ec)
}

func (c *recordingCourier) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.got)
}

func (c *recordingCourier) last() xns.ExpeditedCourier {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.got[len(c.got)-1]
}

func sppIDP(remoteHost xns.HostAddress, remoteSocket uint16, spp xns.SPP) xns.IDP {
	return xns.IDP{
		Type:      xns.TypeSPP,
		SrcNet:    1,
		SrcHost:   remoteHost,
		SrcSocket: remoteSocket,
		DstSocket: xns.SocketCourier,
		Payload:   spp.Encode(),
	}
}

func TestSPPConnListenerAllocatesOnFirstPacket(t *testing.T) {
	tx := &fakeTransmitter{}
	reg := NewRegistry()
	a := NewSPPConnListener(tx, reg, nil, 0, 0x0102030405)

	first := xns.SPP{Control: xns.SPPSystemPacket | xns.SPPSendAck, IDSrc: 7}
	if err := a.Handle(sppIDP(0xAAAAAAAAAA, 100, first)); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(a.conns) != 1 {
		t.Fatalf("expected 1 connection allocated, got %d", len(a.conns))
	}
	if tx.count() != 1 {
		t.Fatalf("expected 1 ack reply, got %d", tx.count())
	}

	reply := xns.DecodeSPP(tx.last().Payload)
	if !reply.IsSystemPacket() {
		t.Fatalf("reply not a system packet: %+v", reply)
	}
	if reply.Ack != 0 || reply.Alloc != sppInitialAlloc {
		t.Fatalf("reply ack/alloc = %d/%d, want 0/%d", reply.Ack, reply.Alloc, sppInitialAlloc)
	}
}

func TestSPPConnListenerReassemblesInOrderDelivery(t *testing.T) {
	tx := &fakeTransmitter{}
	reg := NewRegistry()
	courier := &recordingCourier{}
	a := NewSPPConnListener(tx, reg, courier, 0, 0x0102030405)

	ec := xns.ExpeditedCourier{
		ProtocolRange: 1,
		Body:          xns.Protocol3Body{MessageType: xns.CourierCall, TransactionID: 9, Payload: []byte("hello, pilot")},
	}
	payload := ec.Encode()
	mid := len(payload) / 2

	first := xns.SPP{Control: 0, IDSrc: 42, Seq: 0, Payload: payload[:mid]}
	second := xns.SPP{Control: xns.SPPEndOfMessage, IDSrc: 42, Seq: 1, Payload: payload[mid:]}

	// Out-of-order arrival: second packet first, then first.
	if err := a.Handle(sppIDP(0xBBBBBBBBBB, 200, second)); err != nil {
		t.Fatalf("Handle(second): %v", err)
	}
	if courier.count() != 0 {
		t.Fatalf("courier dispatched before contiguous run completed")
	}

	if err := a.Handle(sppIDP(0xBBBBBBBBBB, 200, first)); err != nil {
		t.Fatalf("Handle(first): %v", err)
	}
	if courier.count() != 1 {
		t.Fatalf("expected 1 dispatched message, got %d", courier.count())
	}

	got := courier.last()
	if got.Body.TransactionID != ec.Body.TransactionID || string(got.Body.Payload) != string(ec.Body.Payload) {
		t.Fatalf("reassembled message = %+v, want %+v", got, ec)
	}

	// Both packets were data packets, so the connection should have
	// acked each in turn.
	if tx.count() != 2 {
		t.Fatalf("expected 2 ack replies, got %d", tx.count())
	}
	lastAck := xns.DecodeSPP(tx.last().Payload)
	if lastAck.Ack != 2 {
		t.Fatalf("final ack = %d, want 2", lastAck.Ack)
	}
}

func TestSPPConnListenerReusesConnectionForSameID(t *testing.T) {
	tx := &fakeTransmitter{}
	reg := NewRegistry()
	a := NewSPPConnListener(tx, reg, nil, 0, 0x0102030405)

	sys := xns.SPP{Control: xns.SPPSystemPacket | xns.SPPSendAck, IDSrc: 11}
	if err := a.Handle(sppIDP(0xCCCCCCCCCC, 300, sys)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if err := a.Handle(sppIDP(0xCCCCCCCCCC, 300, sys)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(a.conns) != 1 {
		t.Fatalf("expected connection reuse, got %d distinct connections", len(a.conns))
	}
}
