/*
 * Guam - agent framework: FCB, IOCB queue, one worker goroutine per agent.
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

// Package agent implements the Pilot device-agent worker pattern: a
// guest-visible FCB with an IOCB chain drained by a background worker
// goroutine, which writes completions into guest memory and raises guest
// interrupts.
package agent

import (
	"sync"
	"time"

	"github.com/rcornwell/guam/memory"
)

// Command identifies the operation an IOCB requests.
type Command int

const (
	CmdRead Command = iota
	CmdWrite
	CmdVerify
)

// Status is written back into the guest IOCB on completion.
type Status uint16

const (
	StatusGood Status = iota
	StatusDataVerifyError
)

// IOCB mirrors the guest-memory I/O control block. DataPtr is a guest
// virtual word address; NextIOCB chains to the following entry (0 ends
// the chain).
type IOCB struct {
	Command     Command
	DeviceIndex int
	Block       int64
	PageCount   int
	DataPtr     uint32
	Status      Status
	NextIOCB    uint32
}

// Backend is the per-device image an agent services IOCBs against: a disk
// or floppy image file.
type Backend interface {
	ReadPage(block int64, buf []uint16) error
	WritePage(block int64, buf []uint16) error
	VerifyPage(block int64, buf []uint16) (bool, error)
}

// FCB is the guest-visible function control block: one per agent.
type FCB struct {
	mu                sync.Mutex
	nextIOCB          uint32
	interruptSelector uint16
	stopAgent         bool
	agentStopped      bool
	numberOfDCBs      int
}

// NewFCB returns an FCB wired for interruptSelector and numberOfDCBs
// device control blocks.
func NewFCB(interruptSelector uint16, numberOfDCBs int) *FCB {
	return &FCB{interruptSelector: interruptSelector, numberOfDCBs: numberOfDCBs}
}

// workItem pairs an IOCB's guest address with its decoded contents, so
// the worker can write status/pageCount back without re-walking the
// chain.
type workItem struct {
	addr uint32
	iocb IOCB
}

// Agent drains a FIFO queue of IOCBs against a Backend on its own
// goroutine, following the guest's linked chain and raising an interrupt
// for every completion.
type Agent struct {
	fcb     *FCB
	backend Backend
	mem     *memory.Memory
	notify  func(selector uint16)

	mu     sync.Mutex
	queue  []workItem
	work   chan struct{}
	stop   chan struct{}
	wg     sync.WaitGroup
	maxHop int
}

const defaultMaxChainHop = 4096

// New builds an Agent bound to fcb, servicing backend, operating on mem,
// and raising guest interrupts through notify (typically
// cpu.Scheduler.NotifyInterrupt).
func New(fcb *FCB, backend Backend, mem *memory.Memory, notify func(uint16)) *Agent {
	return &Agent{
		fcb:     fcb,
		backend: backend,
		mem:     mem,
		notify:  notify,
		work:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		maxHop:  defaultMaxChainHop,
	}
}

// Start launches the worker goroutine.
func (a *Agent) Start() {
	a.wg.Add(1)
	go a.run()
}

// Stop sets the cooperative stop flag and waits (bounded by the worker's
// one-second timed wait) for the worker to exit.
func (a *Agent) Stop() {
	a.fcb.mu.Lock()
	a.fcb.stopAgent = true
	a.fcb.agentStopped = true
	a.fcb.mu.Unlock()
	close(a.stop)
	a.wg.Wait()
}

// Stopped reports whether the agent has been stopped: the flag is set by
// Stop, and by a Call that finds the stop flag already set.
func (a *Agent) Stopped() bool {
	a.fcb.mu.Lock()
	defer a.fcb.mu.Unlock()
	return a.fcb.agentStopped
}

// Call is invoked by the processor loop when the guest posts a nonzero
// FCB.nextIOCB: it walks the chain, validates each entry, and enqueues it
// for the worker. A stopped agent drains nothing.
func (a *Agent) Call(rootAddr uint32) error {
	a.fcb.mu.Lock()
	stopped := a.fcb.stopAgent
	a.fcb.mu.Unlock()
	if stopped {
		a.fcb.mu.Lock()
		a.fcb.agentStopped = true
		a.fcb.mu.Unlock()
		return nil
	}

	addr := rootAddr
	hops := 0
	var items []workItem
	for addr != 0 {
		hops++
		if hops > a.maxHop {
			return &CyclicChainError{Root: rootAddr, MaxHop: a.maxHop}
		}
		iocb, next, err := a.readIOCB(addr)
		if err != nil {
			return err
		}
		if iocb.DeviceIndex >= a.fcb.numberOfDCBs {
			return &InvalidDeviceIndexError{Index: iocb.DeviceIndex, Limit: a.fcb.numberOfDCBs}
		}
		if iocb.Command != CmdRead && iocb.Command != CmdWrite && iocb.Command != CmdVerify {
			return &InvalidCommandError{Command: iocb.Command}
		}
		if iocb.PageCount < 0 {
			return &InvalidPageCountError{PageCount: iocb.PageCount}
		}
		items = append(items, workItem{addr: addr, iocb: iocb})
		addr = next
	}

	a.mu.Lock()
	a.queue = append(a.queue, items...)
	a.mu.Unlock()

	select {
	case a.work <- struct{}{}:
	default:
	}
	return nil
}

// readIOCB decodes the 9-word IOCB layout starting at addr: command,
// deviceIndex, block(2 words), pageCount, dataPtr(2 words), status,
// nextIOCB.
func (a *Agent) readIOCB(addr uint32) (IOCB, uint32, error) {
	words, err := a.mem.GetAddress(addr, false)
	if err != nil {
		return IOCB{}, 0, err
	}
	if len(words) < 9 {
		return IOCB{}, 0, &ShortIOCBError{Addr: addr, Got: len(words)}
	}
	iocb := IOCB{
		Command:     Command(words[0]),
		DeviceIndex: int(words[1]),
		Block:       int64(words[2])<<16 | int64(words[3]),
		PageCount:   int(words[4]),
		DataPtr:     uint32(words[5])<<16 | uint32(words[6]),
		Status:      Status(words[7]),
	}
	next := uint32(words[8])
	return iocb, next, nil
}

// writeCompletion stores status and pageCount=0 back into the guest IOCB
// at addr.
func (a *Agent) writeCompletion(addr uint32, status Status) error {
	words, err := a.mem.GetAddress(addr, true)
	if err != nil {
		return err
	}
	if len(words) < 8 {
		return &ShortIOCBError{Addr: addr, Got: len(words)}
	}
	words[7] = uint16(status) // status
	words[4] = 0              // pageCount
	return nil
}

// run is the worker loop: pop, service, complete, notify.
func (a *Agent) run() {
	defer a.wg.Done()
	for {
		a.mu.Lock()
		var item workItem
		have := len(a.queue) > 0
		if have {
			item = a.queue[0]
			a.queue = a.queue[1:]
		}
		a.mu.Unlock()

		if !have {
			select {
			case <-a.work:
				continue
			case <-time.After(time.Second):
				continue
			case <-a.stop:
				return
			}
		}

		status := a.service(item.iocb)
		if err := a.writeCompletion(item.addr, status); err != nil {
			continue
		}
		a.notify(a.fcb.interruptSelector)

		select {
		case <-a.stop:
			return
		default:
		}
	}
}

// service performs the read/write/verify data transfer for one IOCB.
func (a *Agent) service(iocb IOCB) Status {
	buf := make([]uint16, diskPageWords)
	for i := 0; i < iocb.PageCount; i++ {
		block := iocb.Block + int64(i)
		guestAddr := iocb.DataPtr + uint32(i)*diskPageWords

		switch iocb.Command {
		case CmdRead:
			if err := a.backend.ReadPage(block, buf); err != nil {
				return StatusDataVerifyError
			}
			dst, err := a.mem.GetAddress(guestAddr, true)
			if err != nil || len(dst) < diskPageWords {
				return StatusDataVerifyError
			}
			copy(dst[:diskPageWords], buf)

		case CmdWrite:
			src, err := a.mem.GetAddress(guestAddr, false)
			if err != nil || len(src) < diskPageWords {
				return StatusDataVerifyError
			}
			if err := a.backend.WritePage(block, src[:diskPageWords]); err != nil {
				return StatusDataVerifyError
			}

		case CmdVerify:
			src, err := a.mem.GetAddress(guestAddr, false)
			if err != nil || len(src) < diskPageWords {
				return StatusDataVerifyError
			}
			ok, err := a.backend.VerifyPage(block, src[:diskPageWords])
			if err != nil || !ok {
				return StatusDataVerifyError
			}
		}
	}
	return StatusGood
}

const diskPageWords = memory.PageSize
