/*
 * Guam - EchoListener: reply to every Echo REQUEST with the same block.
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

import "github.com/rcornwell/guam/xns"

// Transmitter sends an IDP packet addressed to dst.
type Transmitter interface {
	Transmit(dst xns.HostAddress, idp xns.IDP) error
}

// EchoListener implements the built-in Echo protocol.
type EchoListener struct {
	tx Transmitter
}

// NewEchoListener builds an EchoListener transmitting replies through tx.
func NewEchoListener(tx Transmitter) *EchoListener {
	return &EchoListener{tx: tx}
}

func (e *EchoListener) Init() error  { return nil }
func (e *EchoListener) Start() error { return nil }
func (e *EchoListener) Stop() error  { return nil }

// Handle replies to a REQUEST with a REPLY carrying the same block.
// Any other Echo type is fatal, per the protocol.
func (e *EchoListener) Handle(idp xns.IDP) error {
	echo := xns.DecodeEcho(idp.Payload)
	if echo.Type != xns.EchoRequest {
		panic(&UnexpectedEchoTypeError{Got: echo.Type})
	}

	reply := xns.Echo{Type: xns.EchoReply, Block: echo.Block}
	replyIDP := xns.IDP{
		Type:      xns.TypeEcho,
		DstNet:    idp.SrcNet,
		DstHost:   idp.SrcHost,
		DstSocket: idp.SrcSocket,
		SrcNet:    idp.DstNet,
		SrcHost:   idp.DstHost,
		SrcSocket: idp.DstSocket,
		Payload:   reply.Encode(),
	}
	return e.tx.Transmit(idp.SrcHost, replyIDP)
}
