/*
 * Guam - interrupts and scheduler: WP/WDC/PTC bookkeeping, wakeup signaling.
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

package cpu

import "sync"

// Scheduler tracks pending wakeups (WP), the wakeup-disable count (WDC)
// and the process-timeout counter (PTC), and wakes the processor loop
// when it is idle waiting for WP to become nonzero.
//
// NotifyInterrupt is called from agent worker goroutines; the mutex plus
// the Go memory model's happens-before rule for mutex release/acquire
// guarantees an interrupt raised by a worker is observed by the processor
// no earlier than the memory writes that preceded NotifyInterrupt in
// program order.
type Scheduler struct {
	mu   sync.Mutex
	regs *Registers
	idle chan struct{}
}

// NewScheduler binds a Scheduler to a Registers set.
func NewScheduler(regs *Registers) *Scheduler {
	return &Scheduler{regs: regs, idle: make(chan struct{}, 1)}
}

// NotifyInterrupt ORs selector into WP and wakes the processor loop if it
// is parked waiting for work.
func (s *Scheduler) NotifyInterrupt(selector uint16) {
	s.mu.Lock()
	s.regs.WP |= selector
	s.mu.Unlock()
	select {
	case s.idle <- struct{}{}:
	default:
	}
}

// Pending reports whether any wakeup is pending and WDC permits service.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regs.WP != 0 && s.regs.WDC == 0
}

// DisableWakeups increments WDC, masking interrupt service.
func (s *Scheduler) DisableWakeups() {
	s.mu.Lock()
	s.regs.WDC++
	s.mu.Unlock()
}

// EnableWakeups decrements WDC.
func (s *Scheduler) EnableWakeups() {
	s.mu.Lock()
	if s.regs.WDC > 0 {
		s.regs.WDC--
	}
	s.mu.Unlock()
}

// AckWakeup clears selector from WP once it has been serviced.
func (s *Scheduler) AckWakeup(selector uint16) {
	s.mu.Lock()
	s.regs.WP &^= selector
	s.mu.Unlock()
}

// TickPTC counts PTC down by one, returning true when it reaches zero
// (process-timeout signaled).
func (s *Scheduler) TickPTC() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.regs.PTC == 0 {
		return false
	}
	s.regs.PTC--
	return s.regs.PTC == 0
}

// WaitForWork blocks until NotifyInterrupt wakes it or stop closes.
func (s *Scheduler) WaitForWork(stop <-chan struct{}) {
	if s.Pending() {
		return
	}
	select {
	case <-s.idle:
	case <-stop:
	}
}
