/*
 * Guam - XNS receive loop: select/receive/decode/checksum/dispatch.
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
	"log/slog"
	"sync"
	"time"

	"github.com/rcornwell/guam/xns"
)

// Driver abstracts the host network transport the receive loop polls and
// transmits through; xnsnet.Socket implements it over a UDP broadcast
// socket.
type Driver interface {
	// Receive waits up to timeout for one raw Ethernet frame. A timeout
	// with no frame available returns (nil, nil).
	Receive(timeout time.Duration) ([]byte, error)
	Transmit(frame []byte) error
	LocalHost() xns.HostAddress
}

// recvTimeout bounds each select() poll so the shutdown flag is checked
// promptly, per the receive loop's "select with a short timeout" step.
const recvTimeout = 200 * time.Millisecond

// Server runs the XNS receive loop on its own goroutine: select, receive,
// decode, checksum, dispatch.
type Server struct {
	driver   Driver
	registry *Registry
	log      *slog.Logger

	wg       sync.WaitGroup
	shutdown chan struct{}
}

// NewServer builds a Server polling driver and dispatching through
// registry.
func NewServer(driver Driver, registry *Registry, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{driver: driver, registry: registry, log: log, shutdown: make(chan struct{})}
}

// Start launches the receive loop goroutine.
func (s *Server) Start() {
	s.wg.Add(1)
	go s.run()
}

// Stop signals the receive loop to exit and waits for it.
func (s *Server) Stop() {
	close(s.shutdown)
	s.wg.Wait()
}

func (s *Server) run() {
	defer s.wg.Done()
	self := s.driver.LocalHost()
	for {
		select {
		case <-s.shutdown:
			return
		default:
		}

		raw, err := s.driver.Receive(recvTimeout)
		if err != nil {
			s.log.Warn("xns receive error", "err", err)
			continue
		}
		if raw == nil {
			continue
		}

		frame := xns.DecodeFrame(raw)
		if !frame.Accepted(self) {
			continue
		}

		idp, err := xns.DecodeIDP(frame.Payload)
		if err != nil {
			s.log.Warn("xns checksum mismatch, dropping", "err", err)
			continue
		}

		l := s.registry.GetListener(idp.DstSocket)
		if l == nil {
			s.log.Warn("xns: NO HANDLER", "socket", idp.DstSocket)
			continue
		}
		if err := l.Handle(idp); err != nil {
			s.log.Warn("xns listener error", "socket", idp.DstSocket, "err", err)
		}
	}
}

// Transmit encodes an Ethernet frame around payload and sends it through
// the driver, the common path every built-in listener's reply takes.
func (s *Server) Transmit(dst xns.HostAddress, idp xns.IDP) error {
	frame := xns.Frame{
		Header: xns.EthernetHeader{Dst: dst, Src: s.driver.LocalHost(), Type: xns.EtherTypeXNS},
		Payload: idp.Encode(),
	}
	return s.driver.Transmit(frame.Encode())
}
