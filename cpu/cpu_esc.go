/*
 * Guam - ESC instruction bodies: interrupt control, device registers,
 * page-map access and block transfer. The ESC space is where Pilot's
 * privileged and I/O-adjacent operations live; the MOP space holds the
 * stack, arithmetic, jump and XFER instructions plus the ESC/ESCL escapes
 * that lead into this table.
 *
 * Copyright (c) 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a
 * copy of this software and associated documentation files (the "Software"),
 * to deal in the Software without restriction, including without limitation
 * the rights to use, copy, modify, merge, publish, distribute, sublicense,
 * and/or sell copies of the Software, and to permit persons to whom the
 * Software is furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
 * RICHARD CORNWELL BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
 * IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
 * CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 *
 */

package cpu

import (
	"github.com/rcornwell/guam/memory"
	"github.com/rcornwell/guam/opcode"
)

// popDouble pops a 32-bit value pushed as (high, low) with the low word
// on top of the stack.
func popDouble(p *Processor) (uint32, error) {
	lo, err := p.Regs.Pop()
	if err != nil {
		return 0, err
	}
	hi, err := p.Regs.Pop()
	if err != nil {
		return 0, err
	}
	return uint32(hi)<<16 | uint32(lo), nil
}

// pushDouble pushes v as (high, low), leaving the low word on top.
func pushDouble(p *Processor, v uint32) error {
	if err := p.Regs.Push(uint16(v >> 16)); err != nil {
		return err
	}
	return p.Regs.Push(uint16(v))
}

// escDI and escEI adjust the wakeup-disable count; interrupts are
// serviced only while WDC is zero.
func escDI(c any) error {
	asProcessor(c).Scheduler.DisableWakeups()
	return nil
}

func escEI(c any) error {
	asProcessor(c).Scheduler.EnableWakeups()
	return nil
}

// escSMP pops a value into the maintenance panel, fanning out to MP
// observers; Pilot writes phase codes here throughout boot.
func escSMP(c any) error {
	p := asProcessor(c)
	v, err := p.Regs.Pop()
	if err != nil {
		return err
	}
	p.Regs.SetMP(v)
	return nil
}

// escRIT pushes the interval timer; escSIT pops a value into it.
func escRIT(c any) error {
	p := asProcessor(c)
	return p.Regs.Push(p.Regs.IT)
}

func escSIT(c any) error {
	p := asProcessor(c)
	v, err := p.Regs.Pop()
	if err != nil {
		return err
	}
	p.Regs.SetIT(v)
	return nil
}

// escRPT and escSPT read and write the process-timeout counter.
func escRPT(c any) error {
	p := asProcessor(c)
	return p.Regs.Push(p.Regs.PTC)
}

func escSPT(c any) error {
	p := asProcessor(c)
	v, err := p.Regs.Pop()
	if err != nil {
		return err
	}
	p.Regs.PTC = v
	return nil
}

// escSM pops (vp double, rp double, flags) and installs the map entry.
// A virtual page outside the address space is a guest error, not an
// emulator bug, so it raises BoundsTrap instead of panicking.
func escSM(c any) error {
	p := asProcessor(c)
	vp, err := popDouble(p)
	if err != nil {
		return err
	}
	rp, err := popDouble(p)
	if err != nil {
		return err
	}
	flags, err := p.Regs.Pop()
	if err != nil {
		return err
	}
	if vp >= p.Mem.VirtualPages() {
		return &GuestTrap{Kind: TrapBoundsCheck, Arg: uint16(vp)}
	}
	p.Mem.WriteMap(vp, memory.Map{Flags: memory.MapFlags(flags & 7), Real: rp})
	return nil
}

// escGM pops a vp double and pushes (rp double, flags) for its map entry.
func escGM(c any) error {
	p := asProcessor(c)
	vp, err := popDouble(p)
	if err != nil {
		return err
	}
	if vp >= p.Mem.VirtualPages() {
		return &GuestTrap{Kind: TrapBoundsCheck, Arg: uint16(vp)}
	}
	mp := p.Mem.ReadMap(vp)
	if err := pushDouble(p, mp.Real); err != nil {
		return err
	}
	return p.Regs.Push(uint16(mp.Flags))
}

// escBLT copies count words between two short pointers in MDS, one word
// at a time so a transfer crossing a page boundary faults on the exact
// page that is missing.
func escBLT(c any) error {
	p := asProcessor(c)
	count, err := p.Regs.Pop()
	if err != nil {
		return err
	}
	dst, err := p.Regs.Pop()
	if err != nil {
		return err
	}
	src, err := p.Regs.Pop()
	if err != nil {
		return err
	}
	for i := uint16(0); i < count; i++ {
		v, err := p.readWord(p.mdsAddr(src + i))
		if err != nil {
			return err
		}
		if err := p.writeWord(p.mdsAddr(dst+i), v); err != nil {
			return err
		}
	}
	return nil
}

// escBLTL is the long-pointer block transfer: count, dst double, src
// double.
func escBLTL(c any) error {
	p := asProcessor(c)
	count, err := p.Regs.Pop()
	if err != nil {
		return err
	}
	dst, err := popDouble(p)
	if err != nil {
		return err
	}
	src, err := popDouble(p)
	if err != nil {
		return err
	}
	for i := uint32(0); i < uint32(count); i++ {
		v, err := p.readWord(src + i)
		if err != nil {
			return err
		}
		if err := p.writeWord(dst+i, v); err != nil {
			return err
		}
	}
	return nil
}

// escRPID pops an index and pushes the corresponding processor ID word.
func escRPID(c any) error {
	p := asProcessor(c)
	i, err := p.Regs.Pop()
	if err != nil {
		return err
	}
	return p.Regs.Push(p.Regs.PID[i&3])
}

// escSTOPEMULATOR halts the fetch loop; the guest has shut down.
func escSTOPEMULATOR(c any) error {
	asProcessor(c).Regs.Running = false
	return nil
}

// EscEntries returns the built-in ESC table. BITBLT is listed but not
// enabled, so it traps at runtime until a raster implementation is
// registered in its place.
func EscEntries() []opcode.Entry {
	return []opcode.Entry{
		{Enable: true, Code: 0x02, Name: "DI", Op: escDI},
		{Enable: true, Code: 0x03, Name: "EI", Op: escEI},
		{Enable: true, Code: 0x05, Name: "SMP", Op: escSMP},
		{Enable: true, Code: 0x06, Name: "RIT", Op: escRIT},
		{Enable: true, Code: 0x07, Name: "SIT", Op: escSIT},
		{Enable: true, Code: 0x08, Name: "RPT", Op: escRPT},
		{Enable: true, Code: 0x09, Name: "SPT", Op: escSPT},
		{Enable: true, Code: 0x0A, Name: "SM", Op: escSM},
		{Enable: true, Code: 0x0B, Name: "GM", Op: escGM},
		{Enable: true, Code: 0x10, Name: "BLT", Op: escBLT},
		{Enable: true, Code: 0x11, Name: "BLTL", Op: escBLTL},
		{Enable: false, Code: 0x12, Name: "BITBLT", Op: nil},
		{Enable: true, Code: 0x30, Name: "RPID", Op: escRPID},
		{Enable: true, Code: 0x31, Name: "STOPEMULATOR", Op: escSTOPEMULATOR},
	}
}
