/*
 * Guam - processor registers: evaluation stack, control registers, MP/IT.
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

// StackDepth is the maximum depth of the evaluation stack.
const StackDepth = 20

// LongPointer is a (MDS-relative or absolute) 32-bit code/global pointer.
type LongPointer uint32

// Registers models Mesa's control-link / frame / MDS register set plus
// the device registers (WP, WDC, PTC, XTS, MP, IT). MP and IT are the
// only registers with observer fan-out.
type Registers struct {
	SP    uint8 // stack pointer, 0..StackDepth
	Stack [StackDepth]uint16

	PSB uint16      // process index
	MDS uint16      // main-data-space base
	LF  uint16      // local frame pointer in MDS
	GF  LongPointer // global frame, long pointer
	CB  LongPointer // code-base long pointer
	GFI uint16      // global frame index
	PC  uint16

	SavedPC uint16
	SavedSP uint8

	BreakByte uint8
	Running   bool

	PID [4]uint16

	WP  uint16 // wakeup-pending bitmap
	WDC uint16 // wakeup-disable count
	PTC uint16 // process-timeout counter
	XTS uint16 // xfer-trap status
	MP  uint16 // maintenance panel
	IT  uint16 // interval timer

	mpObservers []func(uint16)
	itObservers []func(uint16)
}

// NewRegisters returns a zeroed register set.
func NewRegisters() *Registers { return &Registers{} }

// Reset restores every register to its power-on value in place, keeping
// the MP/IT observer lists: the callbacks registered during init outlive
// a guest reboot.
func (r *Registers) Reset() {
	mp, it := r.mpObservers, r.itObservers
	*r = Registers{}
	r.mpObservers, r.itObservers = mp, it
}

// ObserveMP registers a callback invoked on every write to MP. Lifetime of
// the callback must outlive the Registers; there is no unregistration.
func (r *Registers) ObserveMP(cb func(uint16)) { r.mpObservers = append(r.mpObservers, cb) }

// ObserveIT registers a callback invoked on every write to IT.
func (r *Registers) ObserveIT(cb func(uint16)) { r.itObservers = append(r.itObservers, cb) }

// SetMP writes MP and fans out to observers.
func (r *Registers) SetMP(v uint16) {
	r.MP = v
	for _, cb := range r.mpObservers {
		cb(v)
	}
}

// SetIT writes IT and fans out to observers.
func (r *Registers) SetIT(v uint16) {
	r.IT = v
	for _, cb := range r.itObservers {
		cb(v)
	}
}

// Push pushes a word onto the evaluation stack, raising StackError on
// overflow.
func (r *Registers) Push(v uint16) error {
	if int(r.SP) >= StackDepth {
		return &GuestTrap{Kind: TrapStackError, Arg: uint16(r.SP)}
	}
	r.Stack[r.SP] = v
	r.SP++
	return nil
}

// Pop pops a word from the evaluation stack, raising StackError on
// underflow.
func (r *Registers) Pop() (uint16, error) {
	if r.SP == 0 {
		return 0, &GuestTrap{Kind: TrapStackError, Arg: 0}
	}
	r.SP--
	return r.Stack[r.SP], nil
}

// Top returns the top-of-stack word without popping.
func (r *Registers) Top() (uint16, error) {
	if r.SP == 0 {
		return 0, &GuestTrap{Kind: TrapStackError, Arg: 0}
	}
	return r.Stack[r.SP-1], nil
}

// SaveRestorePoint captures (PC, SP) into (savedPC, savedSP), as done at
// the top of every fetch/dispatch cycle.
func (r *Registers) SaveRestorePoint() {
	r.SavedPC = r.PC
	r.SavedSP = r.SP
}

// RestoreFromTrap restores (PC, SP) from the last save point, as done
// when a trap unwinds out of dispatch.
func (r *Registers) RestoreFromTrap() {
	r.PC = r.SavedPC
	r.SP = r.SavedSP
}
