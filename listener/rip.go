/*
 * Guam - RIPListener: periodic broadcast plus request/response.
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

// RIPListener answers RIP requests and periodically broadcasts the
// configured network table.
type RIPListener struct {
	tx                Transmitter
	localNet          uint32
	localHost         xns.HostAddress
	broadcastInterval time.Duration

	mu      sync.Mutex
	table   map[uint32]uint16
	stop    chan struct{}
	stopped chan struct{}
}

// NewRIPListener builds a RIPListener advertising table (net -> hop) every
// broadcastInterval, sourced from (localNet, localHost).
func NewRIPListener(tx Transmitter, localNet uint32, localHost xns.HostAddress, broadcastInterval time.Duration, table map[uint32]uint16) *RIPListener {
	cp := make(map[uint32]uint16, len(table))
	for k, v := range table {
		cp[k] = v
	}
	return &RIPListener{
		tx:                tx,
		localNet:          localNet,
		localHost:         localHost,
		broadcastInterval: broadcastInterval,
		table:             cp,
		stop:              make(chan struct{}),
		stopped:           make(chan struct{}),
	}
}

func (r *RIPListener) Init() error { return nil }

// Start launches the periodic broadcast ticker.
func (r *RIPListener) Start() error {
	go r.broadcastLoop()
	return nil
}

// Stop halts the broadcast ticker.
func (r *RIPListener) Stop() error {
	close(r.stop)
	<-r.stopped
	return nil
}

func (r *RIPListener) broadcastLoop() {
	defer close(r.stopped)
	ticker := time.NewTicker(r.broadcastInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			_ = r.broadcast()
		}
	}
}

func (r *RIPListener) broadcast() error {
	resp := r.response(r.fullTableEntries())
	idp := r.responseIDP(resp, r.localNet, xns.Broadcast, xns.SocketRIP)
	return r.tx.Transmit(xns.Broadcast, idp)
}

func (r *RIPListener) fullTableEntries() []xns.RIPEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := make([]xns.RIPEntry, 0, len(r.table))
	for net, hop := range r.table {
		entries = append(entries, xns.RIPEntry{Net: net, Hop: hop})
	}
	return entries
}

func (r *RIPListener) response(entries []xns.RIPEntry) xns.RIP {
	return xns.RIP{Type: xns.RIPResponse, Entries: entries}
}

func (r *RIPListener) responseIDP(resp xns.RIP, dstNet uint32, dstHost xns.HostAddress, dstSocket uint16) xns.IDP {
	return xns.IDP{
		Type:      xns.TypeRIP,
		DstNet:    dstNet,
		DstHost:   dstHost,
		DstSocket: dstSocket,
		SrcNet:    r.localNet,
		SrcHost:   r.localHost,
		SrcSocket: xns.SocketRIP,
		Payload:   resp.Encode(),
	}
}

// Handle answers a RIP REQUEST: the wildcard request responds with the
// full table; any other request responds with one entry per requested
// net, HopInfinity for nets not in the table.
func (r *RIPListener) Handle(idp xns.IDP) error {
	req := xns.DecodeRIP(idp.Payload)
	if req.Type != xns.RIPRequest {
		return nil
	}

	var entries []xns.RIPEntry
	if len(req.Entries) == 1 && req.Entries[0].Net == xns.NetAll && req.Entries[0].Hop == xns.HopInfinity {
		entries = r.fullTableEntries()
	} else {
		r.mu.Lock()
		for _, e := range req.Entries {
			hop, ok := r.table[e.Net]
			if !ok {
				hop = xns.HopInfinity
			}
			entries = append(entries, xns.RIPEntry{Net: e.Net, Hop: hop})
		}
		r.mu.Unlock()
	}

	resp := r.response(entries)
	replyIDP := r.responseIDP(resp, idp.SrcNet, idp.SrcHost, idp.SrcSocket)
	return r.tx.Transmit(idp.SrcHost, replyIDP)
}
