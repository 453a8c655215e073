/*
 * Guam - XNS listener registry: socket to listener map with lifecycle.
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

// Package listener implements the XNS socket-to-listener registry, the
// receive loop that demultiplexes incoming frames by destination socket,
// and the built-in Echo, RIP, Time and SPP listeners.
package listener

import (
	"sync"

	"github.com/rcornwell/guam/xns"
)

// State is a listener's lifecycle state.
type State int

const (
	StateNew State = iota
	StateInitialized
	StateStarted
	StateStopped
)

// Listener is a handler bound to one XNS socket.
type Listener interface {
	// Init prepares the listener; called once by Registry.Add.
	Init() error
	// Start launches any background activity (e.g. a broadcast ticker).
	Start() error
	// Stop halts background activity; called by Registry.Stop.
	Stop() error
	// Handle processes one received IDP packet addressed to this socket.
	Handle(idp xns.IDP) error
}

// entry pairs a Listener with its registry bookkeeping.
type entry struct {
	listener   Listener
	state      State
	autoDelete bool
}

// Registry is the socket to listener map described by the listener
// registry design: add/remove/getListener/getUnusedSocket plus
// start/stop walking every registered listener.
type Registry struct {
	mu       sync.Mutex
	entries  map[uint16]*entry
	nextSock uint16
}

// NewRegistry returns an empty registry; ephemeral sockets are allocated
// starting just above the well-known range.
func NewRegistry() *Registry {
	return &Registry{
		entries:  make(map[uint16]*entry),
		nextSock: xns.WellKnownSocketLimit,
	}
}

// Add registers listener at socket, initializing it. autoDelete marks the
// entry for removal when Stop walks the table (used for ephemeral SPP
// connection listeners).
func (r *Registry) Add(socket uint16, l Listener, autoDelete bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := l.Init(); err != nil {
		return err
	}
	r.entries[socket] = &entry{listener: l, state: StateInitialized, autoDelete: autoDelete}
	return nil
}

// Remove deletes the listener registered at socket, if any.
func (r *Registry) Remove(socket uint16) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, socket)
}

// GetListener returns the listener registered at socket, or nil.
func (r *Registry) GetListener(socket uint16) Listener {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[socket]
	if !ok {
		return nil
	}
	return e.listener
}

// GetUnusedSocket returns a socket number above the well-known range that
// is not currently mapped.
func (r *Registry) GetUnusedSocket() uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()
	for {
		s := r.nextSock
		r.nextSock++
		if _, ok := r.entries[s]; !ok {
			return s
		}
	}
}

// Start walks the map and starts every listener.
func (r *Registry) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if err := e.listener.Start(); err != nil {
			return err
		}
		e.state = StateStarted
	}
	return nil
}

// Stop walks the map, stops each listener, and deletes any marked
// autoDelete.
func (r *Registry) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for socket, e := range r.entries {
		_ = e.listener.Stop()
		e.state = StateStopped
		if e.autoDelete {
			delete(r.entries, socket)
		}
	}
}
