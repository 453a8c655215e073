/*
 * Guam - SPP connection listener: per-connection sequencing, reassembly
 * and ack, fronted by a well-known acceptor that spawns ephemeral
 * connection listeners.
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
	"time"

	"github.com/rcornwell/guam/xns"
)

// sppInitialAlloc is the receive window a new connection advertises
// before any data has been exchanged.
const sppInitialAlloc = 4

// CourierDispatcher receives one reassembled SPP message, already
// unwrapped from its sequencing and addressed to the remote host that
// sent it.
type CourierDispatcher interface {
	Dispatch(remote xns.HostAddress, ec xns.ExpeditedCourier)
}

// connKey identifies an SPP connection by its remote endpoint, the key
// the state machine indexes connections by.
type connKey struct {
	host   xns.HostAddress
	socket uint16
	id     uint16
}

// SPPConnListener is the well-known acceptor bound to SocketCourier:
// every packet for a (remoteHost, remoteSocket, remoteID) it has not
// seen before allocates a fresh connection and an ephemeral listener for
// its localSocket; packets for an existing connection are handed
// straight to it.
type SPPConnListener struct {
	tx        Transmitter
	registry  *Registry
	courier   CourierDispatcher
	localNet  uint32
	localHost xns.HostAddress

	mu    sync.Mutex
	conns map[connKey]*sppConnection
}

// NewSPPConnListener builds the acceptor. courier may be nil, in which
// case reassembled messages are dropped after ack (useful for a machine
// with no Courier-speaking agent wired up yet).
func NewSPPConnListener(tx Transmitter, registry *Registry, courier CourierDispatcher, localNet uint32, localHost xns.HostAddress) *SPPConnListener {
	return &SPPConnListener{
		tx:        tx,
		registry:  registry,
		courier:   courier,
		localNet:  localNet,
		localHost: localHost,
		conns:     make(map[connKey]*sppConnection),
	}
}

func (a *SPPConnListener) Init() error  { return nil }
func (a *SPPConnListener) Start() error { return nil }
func (a *SPPConnListener) Stop() error  { return nil }

// Handle looks up (or allocates) the connection for idp's sender and
// forwards the packet to it, per the SPP state machine's "on first
// packet, allocate a new connection" rule.
func (a *SPPConnListener) Handle(idp xns.IDP) error {
	spp := xns.DecodeSPP(idp.Payload)
	key := connKey{host: idp.SrcHost, socket: idp.SrcSocket, id: spp.IDSrc}

	a.mu.Lock()
	conn, ok := a.conns[key]
	a.mu.Unlock()
	if !ok {
		localSocket := a.registry.GetUnusedSocket()
		conn = newSPPConnection(a.tx, a.courier, a.localNet, a.localHost, idp.SrcNet, idp.SrcHost, idp.SrcSocket, spp.IDSrc, localSocket)
		if err := a.registry.Add(localSocket, conn, true); err != nil {
			return err
		}
		a.mu.Lock()
		a.conns[key] = conn
		a.mu.Unlock()
	}
	return conn.Handle(idp)
}

// sppFragment is one buffered data packet awaiting its turn in sequence.
type sppFragment struct {
	payload []byte
	eom     bool
}

// sppConnection is one established SPP stream: it tracks seq/ack/alloc,
// reassembles data packets in order, and delivers each complete message
// (bounded by the end-of-message control bit) to the Courier dispatcher.
type sppConnection struct {
	tx      Transmitter
	courier CourierDispatcher

	localNet     uint32
	localHost    xns.HostAddress
	remoteNet    uint32
	remoteHost   xns.HostAddress
	remoteSocket uint16
	remoteID     uint16
	localSocket  uint16
	localID      uint16

	mu      sync.Mutex
	seq     uint16
	ack     uint16
	alloc   uint16
	pending map[uint16]sppFragment
	partial []byte
}

func newSPPConnection(tx Transmitter, courier CourierDispatcher, localNet uint32, localHost xns.HostAddress, remoteNet uint32, remoteHost xns.HostAddress, remoteSocket, remoteID, localSocket uint16) *sppConnection {
	return &sppConnection{
		tx:           tx,
		courier:      courier,
		localNet:     localNet,
		localHost:    localHost,
		remoteNet:    remoteNet,
		remoteHost:   remoteHost,
		remoteSocket: remoteSocket,
		remoteID:     remoteID,
		localSocket:  localSocket,
		localID:      sppLocalID(),
		alloc:        sppInitialAlloc,
		pending:      make(map[uint16]sppFragment),
	}
}

// sppLocalID derives a connection ID from the clock, per the state
// machine's localID = time/100 rule.
func sppLocalID() uint16 {
	return uint16(time.Now().UnixMilli() / 100)
}

func (c *sppConnection) Init() error  { return nil }
func (c *sppConnection) Start() error { return nil }
func (c *sppConnection) Stop() error  { return nil }

// Handle processes one packet belonging to this connection: a system
// packet with sendAck set gets an immediate ack reply; a data packet is
// buffered, drained in order, and every complete message is delivered to
// the Courier dispatcher before the advanced ack is acknowledged back.
func (c *sppConnection) Handle(idp xns.IDP) error {
	spp := xns.DecodeSPP(idp.Payload)

	c.mu.Lock()
	if spp.IsSystemPacket() {
		sendAck := spp.SendAck()
		c.mu.Unlock()
		if sendAck {
			return c.sendSystem()
		}
		return nil
	}

	c.pending[spp.Seq] = sppFragment{payload: spp.Payload, eom: spp.Control&xns.SPPEndOfMessage != 0}
	for {
		frag, ok := c.pending[c.ack]
		if !ok {
			break
		}
		delete(c.pending, c.ack)
		c.ack++
		c.partial = append(c.partial, frag.payload...)
		if frag.eom {
			message := c.partial
			c.partial = nil
			if c.courier != nil {
				ec := xns.DecodeExpeditedCourier(message)
				c.mu.Unlock()
				c.courier.Dispatch(c.remoteHost, ec)
				c.mu.Lock()
			}
		}
	}
	c.mu.Unlock()

	return c.sendSystem()
}

// sendSystem transmits a system packet carrying the connection's current
// (seq, ack, alloc), the reply every sendAck request and every drained
// data packet gets.
func (c *sppConnection) sendSystem() error {
	c.mu.Lock()
	c.seq++
	resp := xns.SPP{
		Control: xns.SPPSystemPacket,
		IDSrc:   c.localID,
		IDDst:   c.remoteID,
		Seq:     c.seq,
		Ack:     c.ack,
		Alloc:   c.alloc,
	}
	idp := xns.IDP{
		Type:      xns.TypeSPP,
		DstNet:    c.remoteNet,
		DstHost:   c.remoteHost,
		DstSocket: c.remoteSocket,
		SrcNet:    c.localNet,
		SrcHost:   c.localHost,
		SrcSocket: c.localSocket,
		Payload:   resp.Encode(),
	}
	remote := c.remoteHost
	c.mu.Unlock()
	return c.tx.Transmit(remote, idp)
}
