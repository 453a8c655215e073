/*
 * Guam - shell remote command listener: one TCP accept loop per Shell.
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

package shell

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"
)

// RemoteServer exposes a Shell's Dispatch over a line-oriented TCP
// protocol: one net.Listener, one accept-loop goroutine, one handler
// goroutine per connection, and a shutdown channel bounding Stop() to a
// one-second wait.
type RemoteServer struct {
	shell    *Shell
	listener net.Listener
	log      *slog.Logger

	wg       sync.WaitGroup
	shutdown chan struct{}
}

// NewRemoteServer binds a TCP listener on addr (":port" or "host:port")
// dispatching commands against shell.
func NewRemoteServer(shell *Shell, addr string, log *slog.Logger) (*RemoteServer, error) {
	if log == nil {
		log = slog.Default()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("shell: listen %s: %w", addr, err)
	}
	return &RemoteServer{shell: shell, listener: ln, log: log, shutdown: make(chan struct{})}, nil
}

// Start launches the accept loop.
func (s *RemoteServer) Start() {
	s.wg.Add(1)
	go s.acceptConnections()
}

// Stop closes the listener and waits (bounded to one second) for
// in-flight connections to finish.
func (s *RemoteServer) Stop() {
	close(s.shutdown)
	_ = s.listener.Close()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		s.log.Warn("shell: timed out waiting for remote connections to finish")
	}
}

func (s *RemoteServer) acceptConnections() {
	defer s.wg.Done()
	for {
		select {
		case <-s.shutdown:
			return
		default:
		}
		conn, err := s.listener.Accept()
		if err != nil {
			continue
		}
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *RemoteServer) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		res := s.shell.Dispatch(fields[0], fields[1:])
		fmt.Fprintf(conn, "%d %s\n", res.Status, res.Text)
	}
}
