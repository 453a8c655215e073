/*
 * Guam - processor loop: fetch one code byte, dispatch, service faults
 * as traps at the loop boundary.
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

// Package cpu implements the Mesa bytecode dispatch core: processor
// registers, the fetch/dispatch loop, trap handling, and the
// interrupt/scheduler bookkeeping that drives it.
package cpu

import (
	"log/slog"

	"github.com/rcornwell/guam/memory"
	"github.com/rcornwell/guam/opcode"
)

// Opcode byte values that escape into the ESC table.
const (
	opESC  uint8 = 0xF0
	opESCL uint8 = 0xF1
)

// XferKind enumerates the kinds of control transfer Mesa's XFER primitive
// can record.
type XferKind int

const (
	XferReturn XferKind = iota
	XferCall
	XferLocalCall
	XferPort
	XferGeneric
	XferTrapKind
	XferProcessSwitch
)

// LinkType enumerates the kind of control link a XFER follows.
type LinkType int

const (
	LinkNewProcedure LinkType = iota
	LinkOldProcedure
	LinkFrame
	LinkIndirect
)

// XferRecord is one entry in the XFER trace buffer. It is consumed only by
// the tracer/disassembler; it plays no role in dispatch correctness.
type XferRecord struct {
	Kind   XferKind
	Link   LinkType
	OldPSB uint16
	SrcGFI uint16
	SrcPC  uint16
	DstMDS uint16
	DstLF  uint16
}

// Processor ties together registers, the two opcode tables, and the
// memory it fetches code and operands from. One Processor belongs to one
// Machine.
type Processor struct {
	Regs      *Registers
	Mop       *opcode.Table
	Esc       *opcode.Table
	Mem       *memory.Memory
	Scheduler *Scheduler

	trace []XferRecord

	log *slog.Logger
}

const traceDepth = 256

// New builds a Processor over the given memory, with fresh registers,
// opcode tables and scheduler.
func New(mem *memory.Memory, log *slog.Logger) *Processor {
	regs := NewRegisters()
	mop := opcode.NewMop()
	mop.Register(StandardEntries())
	esc := opcode.NewEsc()
	esc.Register(EscEntries())
	return &Processor{
		Regs:      regs,
		Mop:       mop,
		Esc:       esc,
		Mem:       mem,
		Scheduler: NewScheduler(regs),
		log:       log,
	}
}

// RecordXfer appends to the trace ring buffer, dropping the oldest entry
// once full.
func (p *Processor) RecordXfer(rec XferRecord) {
	if len(p.trace) >= traceDepth {
		p.trace = p.trace[1:]
	}
	p.trace = append(p.trace, rec)
}

// Trace returns a snapshot of the XFER trace buffer.
func (p *Processor) Trace() []XferRecord {
	out := make([]XferRecord, len(p.trace))
	copy(out, p.trace)
	return out
}

// fetchCodeByte reads one byte from the current code segment at CB+PC/2.
// Code is addressed word-granular with two bytes per word; PC increments
// by one byte, so even PCs read the high byte and odd PCs the low byte of
// the word at CB+PC/2. Goes through FetchPage, not Peek, so a miss on an
// unmapped code page surfaces as a recoverable *memory.PageFault rather
// than a panic.
func (p *Processor) fetchCodeByte(pc uint16) (uint8, error) {
	wordAddr := uint32(p.Regs.CB) + uint32(pc)/2
	vp := wordAddr / memory.PageSize
	off := wordAddr % memory.PageSize
	page, err := p.Mem.FetchPage(vp)
	if err != nil {
		return 0, err
	}
	word := page[off]
	if pc%2 == 0 {
		return uint8(word >> 8), nil
	}
	return uint8(word), nil
}

// fetchCodeWord reads a 16-bit big-endian operand from the instruction
// stream at PC, advancing PC by two bytes.
func (p *Processor) fetchCodeWord() (uint16, error) {
	hi, err := p.fetchCodeByte(p.Regs.PC)
	if err != nil {
		return 0, err
	}
	p.Regs.PC++
	lo, err := p.fetchCodeByte(p.Regs.PC)
	if err != nil {
		return 0, err
	}
	p.Regs.PC++
	return uint16(hi)<<8 | uint16(lo), nil
}

// readWord and writeWord resolve one guest word through the page cache,
// maintaining referenced/dirty flags the way fetch and store must.
func (p *Processor) readWord(va uint32) (uint16, error) {
	w, err := p.Mem.GetAddress(va, false)
	if err != nil {
		return 0, err
	}
	return w[0], nil
}

func (p *Processor) writeWord(va uint32, v uint16) error {
	w, err := p.Mem.GetAddress(va, true)
	if err != nil {
		return err
	}
	w[0] = v
	return nil
}

// mdsAddr forms the long address of a short (MDS-relative) pointer.
func (p *Processor) mdsAddr(ptr uint16) uint32 {
	return uint32(p.Regs.MDS) + uint32(ptr)
}

// SDBase is the fixed MDS-relative address of the System Data table. The
// entry for trap vector sX is one word at SDBase+OFFSET_SD(sX): the
// MDS-relative pointer of the handler's local frame, or zero when the
// guest has not installed a handler for that vector.
const SDBase uint16 = 0x0200

// Local frame overhead: every frame pointer LF is preceded in MDS by six
// words of control state that XFER loads when transferring to the frame,
// and into which XFER saves the outgoing PC so a later transfer back to
// this frame resumes where it left off.
const (
	frameOverhead uint16 = 6

	frameCBHi uint16 = 6 // LF-6: code base, high word
	frameCBLo uint16 = 5 // LF-5: code base, low word
	frameGFHi uint16 = 4 // LF-4: global frame, high word
	frameGFLo uint16 = 3 // LF-3: global frame, low word
	frameGFI  uint16 = 2 // LF-2: global frame index
	framePC   uint16 = 1 // LF-1: resume PC
)

// loadFrame transfers control to the local frame at dst in MDS: CB, GF,
// GFI and PC are loaded from the frame's overhead words and dst becomes
// the current local frame. MDS itself changes only on a process switch,
// never on a frame transfer.
func (p *Processor) loadFrame(dst uint16) error {
	cbHi, err := p.readWord(p.mdsAddr(dst - frameCBHi))
	if err != nil {
		return err
	}
	cbLo, err := p.readWord(p.mdsAddr(dst - frameCBLo))
	if err != nil {
		return err
	}
	gfHi, err := p.readWord(p.mdsAddr(dst - frameGFHi))
	if err != nil {
		return err
	}
	gfLo, err := p.readWord(p.mdsAddr(dst - frameGFLo))
	if err != nil {
		return err
	}
	gfi, err := p.readWord(p.mdsAddr(dst - frameGFI))
	if err != nil {
		return err
	}
	pc, err := p.readWord(p.mdsAddr(dst - framePC))
	if err != nil {
		return err
	}

	p.Regs.CB = LongPointer(uint32(cbHi)<<16 | uint32(cbLo))
	p.Regs.GF = LongPointer(uint32(gfHi)<<16 | uint32(gfLo))
	p.Regs.GFI = gfi
	p.Regs.PC = pc
	p.Regs.LF = dst
	return nil
}

// xferFrame is the universal control transfer: record the trace entry,
// save the outgoing PC into the current frame's overhead (an LF of zero
// means no frame is established yet, as at power-on), and load the
// destination frame's control state.
func (p *Processor) xferFrame(kind XferKind, link LinkType, dst uint16) error {
	p.RecordXfer(XferRecord{
		Kind:   kind,
		Link:   link,
		OldPSB: p.Regs.PSB,
		SrcGFI: p.Regs.GFI,
		SrcPC:  p.Regs.PC,
		DstMDS: p.Regs.MDS,
		DstLF:  dst,
	})
	if p.Regs.LF != 0 {
		if err := p.writeWord(p.mdsAddr(p.Regs.LF-framePC), p.Regs.PC); err != nil {
			return err
		}
	}
	return p.loadFrame(dst)
}

// Step executes one instruction or services a trap raised by dispatch:
// fetch one byte, save (PC,SP), advance PC, dispatch, and at the loop
// boundary catch PageFault/WriteProtectFault/GuestTrap, restore
// (savedPC, savedSP) and XFER to the trap's vector.
// RequestReschedule and Abort are not faults: both return nil so the
// caller yields to the scheduler or refetches.
func (p *Processor) Step() error {
	p.Regs.SaveRestorePoint()

	b, err := p.fetchCodeByte(p.Regs.PC)
	if err != nil {
		return p.fault(err)
	}

	p.Regs.PC++

	dispatchErr := p.dispatchMop(b)
	if dispatchErr == nil {
		return nil
	}

	switch dispatchErr.(type) {
	case RequestReschedule:
		return nil
	case Abort:
		p.Regs.RestoreFromTrap()
		return nil
	}

	return p.fault(dispatchErr)
}

// dispatchMop dispatches a MOP byte, following ESC/ESCL into the ESC table.
func (p *Processor) dispatchMop(b uint8) error {
	if b == opESC || b == opESCL {
		esc, err := p.fetchCodeByte(p.Regs.PC)
		if err != nil {
			return err
		}
		p.Regs.PC++
		return p.Esc.Dispatch(esc, p)
	}
	return p.Mop.Dispatch(b, p)
}

// fault restores (savedPC, savedSP) and XFERs to the trap's vector. Page
// faults and write-protect faults from the memory package, and opcode
// traps, are normalized onto the same GuestTrap shape as any other guest
// trap.
func (p *Processor) fault(err error) error {
	p.Regs.RestoreFromTrap()

	switch e := err.(type) {
	case *memory.PageFault:
		if p.log != nil {
			p.log.Debug("page fault", "vp", e.VirtPage)
		}
		return p.xferTrap(TrapPageFault, uint16(e.VirtPage))
	case *memory.WriteProtectFault:
		if p.log != nil {
			p.log.Debug("write-protect fault", "vp", e.VirtPage)
		}
		return p.xferTrap(TrapWriteProtect, uint16(e.VirtPage))
	case *opcode.Trap:
		if e.Esc {
			return p.xferTrap(TrapEscOpcode, uint16(e.Code))
		}
		return p.xferTrap(TrapOpcode, uint16(e.Code))
	case *GuestTrap:
		return p.xferTrap(e.Kind, e.Arg)
	default:
		if p.log != nil {
			p.log.Error("unhandled processor error", "err", err)
		}
		return err
	}
}

// xferTrap performs the trap XFER: read the handler frame pointer from
// the System Data entry at SD+OFFSET_SD(kind), transfer to that frame,
// and push the trap argument for the handler. Step has already restored
// (savedPC, savedSP), so the PC saved into the faulting frame points back
// at the trapped instruction. A zero SD entry means the guest never
// installed a handler for this vector; the unserviced GuestTrap is
// returned and Run halts the processor, since refetching the same byte
// could only fault again.
func (p *Processor) xferTrap(kind TrapKind, arg uint16) error {
	handler, err := p.readWord(p.mdsAddr(SDBase + kind.vectorIndex()))
	if err != nil {
		return err
	}
	if handler == 0 {
		return &GuestTrap{Kind: kind, Arg: arg}
	}
	if err := p.xferFrame(XferTrapKind, LinkIndirect, handler); err != nil {
		return err
	}
	return p.Regs.Push(arg)
}

// Run drives the fetch/dispatch loop until stop is closed, suspending
// while the processor is not running or WP is empty.
func (p *Processor) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		if !p.Regs.Running {
			p.Scheduler.WaitForWork(stop)
			select {
			case <-stop:
				return
			default:
			}
			continue
		}

		if err := p.Step(); err != nil {
			// Serviced traps already vectored inside Step and return nil;
			// anything surfacing here (unbound trap vector, fault while
			// vectoring) cannot make forward progress.
			if p.log != nil {
				p.log.Warn("unrecoverable processor error", "err", err)
			}
			p.Regs.Running = false
		}
	}
}
