/*
 * Guam - built-in listener tests: Echo, RIP, Time request/response shapes.
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
	"time"

	"github.com/rcornwell/guam/xns"
)

// fakeTransmitter records every transmitted IDP for inspection.
type fakeTransmitter struct {
	mu  sync.Mutex
	out []struct {
		dst xns.HostAddress
		idp xns.IDP
	}
}

func (f *fakeTransmitter) Transmit(dst xns.HostAddress, idp xns.IDP) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.out = append(f.out, struct {
		dst xns.HostAddress
		idp xns.IDP
	}{dst, idp})
	return nil
}

func (f *fakeTransmitter) last() xns.IDP {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.out[len(f.out)-1].idp
}

func (f *fakeTransmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.out)
}

func TestEchoListenerReplies(t *testing.T) {
	tx := &fakeTransmitter{}
	e := NewEchoListener(tx)

	req := xns.Echo{Type: xns.EchoRequest, Block: []byte{0xDE, 0xAD, 0xBE, 0xEF}}
	idp := xns.IDP{
		Type:      xns.TypeEcho,
		SrcNet:    1,
		SrcHost:   0x0102030405,
		SrcSocket: 7,
		DstNet:    2,
		DstHost:   0x0a0b0c0d0e,
		DstSocket: xns.SocketEcho,
		Payload:   req.Encode(),
	}

	if err := e.Handle(idp); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if tx.count() != 1 {
		t.Fatalf("expected 1 transmit, got %d", tx.count())
	}

	reply := tx.last()
	echo := xns.DecodeEcho(reply.Payload)
	if echo.Type != xns.EchoReply {
		t.Fatalf("reply type = %v, want EchoReply", echo.Type)
	}
	if string(echo.Block) != string(req.Block) {
		t.Fatalf("reply block = %x, want %x", echo.Block, req.Block)
	}
	if reply.DstHost != idp.SrcHost || reply.DstNet != idp.SrcNet || reply.DstSocket != idp.SrcSocket {
		t.Fatalf("reply addressed wrong: %+v", reply)
	}
}

func TestEchoListenerPanicsOnNonRequest(t *testing.T) {
	tx := &fakeTransmitter{}
	e := NewEchoListener(tx)
	bad := xns.Echo{Type: xns.EchoReply, Block: []byte{1}}
	idp := xns.IDP{Type: xns.TypeEcho, Payload: bad.Encode()}

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on non-request Echo type")
		}
	}()
	_ = e.Handle(idp)
}

func TestRIPListenerWildcardRequest(t *testing.T) {
	tx := &fakeTransmitter{}
	table := map[uint32]uint16{1: 1, 2: 2}
	r := NewRIPListener(tx, 9, 0x0102030405, time.Hour, table)

	req := xns.RIP{Type: xns.RIPRequest, Entries: []xns.RIPEntry{{Net: xns.NetAll, Hop: xns.HopInfinity}}}
	idp := xns.IDP{Type: xns.TypeRIP, SrcNet: 5, SrcHost: 0xAAAAAAAAAA, SrcSocket: xns.SocketRIP, Payload: req.Encode()}

	if err := r.Handle(idp); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	resp := xns.DecodeRIP(tx.last().Payload)
	if len(resp.Entries) != 2 {
		t.Fatalf("expected full table (2 entries), got %d", len(resp.Entries))
	}
}

func TestRIPListenerSpecificRequestUnknownNet(t *testing.T) {
	tx := &fakeTransmitter{}
	table := map[uint32]uint16{1: 1}
	r := NewRIPListener(tx, 9, 0x0102030405, time.Hour, table)

	req := xns.RIP{Type: xns.RIPRequest, Entries: []xns.RIPEntry{
		{Net: 1, Hop: xns.HopInfinity},
		{Net: 2, Hop: xns.HopInfinity},
	}}
	idp := xns.IDP{Type: xns.TypeRIP, SrcNet: 5, SrcHost: 0xAAAAAAAAAA, SrcSocket: xns.SocketRIP, Payload: req.Encode()}

	if err := r.Handle(idp); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	resp := xns.DecodeRIP(tx.last().Payload)
	if len(resp.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(resp.Entries))
	}
	if resp.Entries[0].Net != 1 || resp.Entries[0].Hop != 1 {
		t.Fatalf("entry 0 = %+v, want net=1 hop=1", resp.Entries[0])
	}
	if resp.Entries[1].Net != 2 || resp.Entries[1].Hop != xns.HopInfinity {
		t.Fatalf("entry 1 = %+v, want net=2 hop=infinity", resp.Entries[1])
	}
}

func TestTimeListenerReportsConfiguredTolerance(t *testing.T) {
	tx := &fakeTransmitter{}
	tl := NewTimeListener(tx, 1, 0x0102030405, 0)

	reqIDP := xns.IDP{Type: xns.TypePEX, SrcNet: 3, SrcHost: 0xBBBBBBBBBB, SrcSocket: 99,
		Payload: xns.PEX{ID: 42, Type: xns.PEXTypeTime, Payload: xns.TimeRequest{}.Encode()}.Encode()}

	if err := tl.Handle(reqIDP); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	replyPEX := xns.DecodePEX(tx.last().Payload)
	reply, err := xns.DecodeTimeReply(replyPEX.Payload)
	if err != nil {
		t.Fatalf("DecodeTimeReply: %v", err)
	}
	if reply.Tolerance != xns.ToleranceMilli || reply.ToleranceV != 10 {
		t.Fatalf("reply tolerance = %+v, want MILLI/10", reply)
	}
}

func TestRegistryAddStartStop(t *testing.T) {
	reg := NewRegistry()
	tx := &fakeTransmitter{}
	echo := NewEchoListener(tx)

	if err := reg.Add(xns.SocketEcho, echo, false); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if reg.GetListener(xns.SocketEcho) == nil {
		t.Fatalf("GetListener returned nil after Add")
	}
	if err := reg.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	s1 := reg.GetUnusedSocket()
	s2 := reg.GetUnusedSocket()
	if s1 == s2 {
		t.Fatalf("GetUnusedSocket returned the same socket twice before registration")
	}
	if s1 < xns.WellKnownSocketLimit {
		t.Fatalf("unused socket %d below well-known range", s1)
	}

	reg.Stop()
	if reg.GetListener(xns.SocketEcho) == nil {
		t.Fatalf("non-autoDelete listener removed on Stop")
	}
}

func TestRegistryAutoDeleteRemovedOnStop(t *testing.T) {
	reg := NewRegistry()
	tx := &fakeTransmitter{}
	echo := NewEchoListener(tx)
	ephemeral := reg.GetUnusedSocket()

	if err := reg.Add(ephemeral, echo, true); err != nil {
		t.Fatalf("Add: %v", err)
	}
	reg.Stop()
	if reg.GetListener(ephemeral) != nil {
		t.Fatalf("autoDelete listener survived Stop")
	}
}

func TestRIPListenerPeriodicBroadcast(t *testing.T) {
	tx := &fakeTransmitter{}
	table := map[uint32]uint16{1: 1, 2: 2}
	r := NewRIPListener(tx, 9, 0x0102030405, 20*time.Millisecond, table)

	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	deadline := time.After(2 * time.Second)
	for tx.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("no periodic broadcast observed")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if err := r.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	sent := tx.last()
	if sent.DstHost != xns.Broadcast {
		t.Fatalf("broadcast dst = %#x, want broadcast host", uint64(sent.DstHost))
	}
	resp := xns.DecodeRIP(sent.Payload)
	if resp.Type != xns.RIPResponse {
		t.Fatalf("broadcast type = %v, want RESPONSE", resp.Type)
	}
	if len(resp.Entries) != 2 {
		t.Fatalf("broadcast entries = %d, want full table (2)", len(resp.Entries))
	}
}
