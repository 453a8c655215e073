/*
 * Guam - xnsnet: host network transport for the XNS receive loop.
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

// Package xnsnet implements listener.Driver over a host UDP broadcast
// socket, carrying Ethernet-shaped XNS frames without requiring an actual
// NIC. A read deadline on the PacketConn stands in for a select with a
// short timeout.
package xnsnet

import (
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"github.com/rcornwell/guam/xns"
)

// Socket is a UDP broadcast-capable driver for the XNS receive loop.
type Socket struct {
	conn      *net.UDPConn
	localHost xns.HostAddress
	broadcast *net.UDPAddr
}

// Open binds a UDP socket on iface:port and derives a synthetic 48-bit host
// address from the local address so XNS framing has something host-unique
// to put in EthernetHeader.Src. iface is the host's configured network
// interface/address from the entry's config.network stanza.
func Open(iface string, port int) (*Socket, error) {
	laddr := &net.UDPAddr{Port: port}
	if iface != "" {
		if ip := net.ParseIP(iface); ip != nil {
			laddr.IP = ip
		}
	}
	conn, err := net.ListenUDP("udp4", laddr)
	if err != nil {
		return nil, fmt.Errorf("xnsnet: listen %s:%d: %w", iface, port, err)
	}

	local := conn.LocalAddr().(*net.UDPAddr)
	return &Socket{
		conn:      conn,
		localHost: deriveHostAddress(local),
		broadcast: &net.UDPAddr{IP: net.IPv4bcast, Port: port},
	}, nil
}

// deriveHostAddress packs a local IPv4 address plus port into the low 48
// bits of a HostAddress, giving each bound socket a stable, distinct
// address without depending on a real MAC.
func deriveHostAddress(addr *net.UDPAddr) xns.HostAddress {
	ip4 := addr.IP.To4()
	var b [6]byte
	if ip4 != nil {
		copy(b[0:4], ip4)
	}
	binary.BigEndian.PutUint16(b[4:6], uint16(addr.Port))
	return xns.HostAddress(binary.BigEndian.Uint64(append([]byte{0, 0}, b[:]...)))
}

// LocalHost implements listener.Driver.
func (s *Socket) LocalHost() xns.HostAddress { return s.localHost }

// Receive implements listener.Driver: one UDP datagram per call, bounded by
// timeout the same way the receive loop's select() is bounded.
func (s *Socket) Receive(timeout time.Duration) ([]byte, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}
	buf := make([]byte, 2048)
	n, _, err := s.conn.ReadFromUDP(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, nil
		}
		return nil, err
	}
	return buf[:n], nil
}

// Transmit implements listener.Driver, broadcasting every frame: the XNS
// receive loop's own Accepted() filter is what keeps non-broadcast,
// non-self destined frames from being acted on by other hosts.
func (s *Socket) Transmit(frame []byte) error {
	_, err := s.conn.WriteToUDP(frame, s.broadcast)
	return err
}

// Close releases the socket.
func (s *Socket) Close() error { return s.conn.Close() }
