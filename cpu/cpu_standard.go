/*
 * Guam - Mesa standard MOP instruction bodies: stack, arithmetic, field
 * and transfer primitives, one function per opcode, registered into the
 * MOP dispatch table.
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

import "github.com/rcornwell/guam/opcode"

// asProcessor recovers the concrete *Processor from the opcode.Operation's
// any parameter. Every body in this file calls it first; a bad cast is a
// programming error in table registration, not a guest fault.
func asProcessor(c any) *Processor { return c.(*Processor) }

// opNoop implements NOOP: fetch-dispatch with no effect.
func opNoop(c any) error { return nil }

// makeLoadLocal builds the LLn "load local" family: push the word at
// LF+n in MDS.
func makeLoadLocal(n uint16) opcode.Operation {
	return func(c any) error {
		p := asProcessor(c)
		v, err := p.readWord(p.mdsAddr(p.Regs.LF + n))
		if err != nil {
			return err
		}
		return p.Regs.Push(v)
	}
}

// makeStoreLocal builds the SLn family: pop top-of-stack into LF+n.
func makeStoreLocal(n uint16) opcode.Operation {
	return func(c any) error {
		p := asProcessor(c)
		v, err := p.Regs.Pop()
		if err != nil {
			return err
		}
		return p.writeWord(p.mdsAddr(p.Regs.LF+n), v)
	}
}

// makeLoadImmediate builds the LIn family: push the small constant n.
func makeLoadImmediate(n uint16) opcode.Operation {
	return func(c any) error {
		return asProcessor(c).Regs.Push(n)
	}
}

// opLIB pushes an immediate byte read from the instruction stream.
func opLIB(c any) error {
	p := asProcessor(c)
	b, err := p.fetchCodeByte(p.Regs.PC)
	if err != nil {
		return err
	}
	p.Regs.PC++
	return p.Regs.Push(uint16(b))
}

// opLIW pushes an immediate word read from the instruction stream.
func opLIW(c any) error {
	p := asProcessor(c)
	w, err := p.fetchCodeWord()
	if err != nil {
		return err
	}
	return p.Regs.Push(w)
}

// opLINI pushes the all-ones word.
func opLINI(c any) error { return asProcessor(c).Regs.Push(0xFFFF) }

// opLGB pushes the word at GF+n for an instruction-stream byte n; opSGB
// is the store direction. GF is a long pointer, not MDS-relative.
func opLGB(c any) error {
	p := asProcessor(c)
	b, err := p.fetchCodeByte(p.Regs.PC)
	if err != nil {
		return err
	}
	p.Regs.PC++
	v, err := p.readWord(uint32(p.Regs.GF) + uint32(b))
	if err != nil {
		return err
	}
	return p.Regs.Push(v)
}

func opSGB(c any) error {
	p := asProcessor(c)
	b, err := p.fetchCodeByte(p.Regs.PC)
	if err != nil {
		return err
	}
	p.Regs.PC++
	v, err := p.Regs.Pop()
	if err != nil {
		return err
	}
	return p.writeWord(uint32(p.Regs.GF)+uint32(b), v)
}

// opR pops a short pointer and pushes the word it addresses in MDS.
func opR(c any) error {
	p := asProcessor(c)
	ptr, err := p.Regs.Pop()
	if err != nil {
		return err
	}
	v, err := p.readWord(p.mdsAddr(ptr))
	if err != nil {
		return err
	}
	return p.Regs.Push(v)
}

// opW pops a short pointer, then a value, and stores the value through
// the pointer in MDS.
func opW(c any) error {
	p := asProcessor(c)
	ptr, err := p.Regs.Pop()
	if err != nil {
		return err
	}
	v, err := p.Regs.Pop()
	if err != nil {
		return err
	}
	return p.writeWord(p.mdsAddr(ptr), v)
}

// pop2 pops b then a, the operand order every two-operand body uses.
func pop2(p *Processor) (a, b uint16, err error) {
	b, err = p.Regs.Pop()
	if err != nil {
		return
	}
	a, err = p.Regs.Pop()
	return
}

// opADD pops two words and pushes their sum, raising BoundsTrap on
// 16-bit overflow per the checked-arithmetic MOPs.
func opADD(c any) error {
	p := asProcessor(c)
	a, b, err := pop2(p)
	if err != nil {
		return err
	}
	sum := uint32(a) + uint32(b)
	if sum > 0xFFFF {
		return &GuestTrap{Kind: TrapBoundsCheck, Arg: uint16(sum)}
	}
	return p.Regs.Push(uint16(sum))
}

// opSUB pops two words and pushes their difference.
func opSUB(c any) error {
	p := asProcessor(c)
	a, b, err := pop2(p)
	if err != nil {
		return err
	}
	return p.Regs.Push(a - b)
}

// opMUL pops two words and pushes their 16-bit truncated product.
func opMUL(c any) error {
	p := asProcessor(c)
	a, b, err := pop2(p)
	if err != nil {
		return err
	}
	return p.Regs.Push(uint16(uint32(a) * uint32(b)))
}

// opDIV pops a divisor and dividend and pushes the quotient, raising
// DivZero on a zero divisor.
func opDIV(c any) error {
	p := asProcessor(c)
	a, b, err := pop2(p)
	if err != nil {
		return err
	}
	if b == 0 {
		return &GuestTrap{Kind: TrapDivZero, Arg: 0}
	}
	return p.Regs.Push(a / b)
}

// opMOD pushes the remainder instead of the quotient.
func opMOD(c any) error {
	p := asProcessor(c)
	a, b, err := pop2(p)
	if err != nil {
		return err
	}
	if b == 0 {
		return &GuestTrap{Kind: TrapDivZero, Arg: 0}
	}
	return p.Regs.Push(a % b)
}

// opNEG, opINC and opDEC rewrite the top of stack in place.
func opNEG(c any) error {
	p := asProcessor(c)
	v, err := p.Regs.Pop()
	if err != nil {
		return err
	}
	return p.Regs.Push(-v)
}

func opINC(c any) error {
	p := asProcessor(c)
	v, err := p.Regs.Pop()
	if err != nil {
		return err
	}
	return p.Regs.Push(v + 1)
}

func opDEC(c any) error {
	p := asProcessor(c)
	v, err := p.Regs.Pop()
	if err != nil {
		return err
	}
	return p.Regs.Push(v - 1)
}

// Bitwise bodies.
func opAND(c any) error {
	p := asProcessor(c)
	a, b, err := pop2(p)
	if err != nil {
		return err
	}
	return p.Regs.Push(a & b)
}

func opOR(c any) error {
	p := asProcessor(c)
	a, b, err := pop2(p)
	if err != nil {
		return err
	}
	return p.Regs.Push(a | b)
}

func opXOR(c any) error {
	p := asProcessor(c)
	a, b, err := pop2(p)
	if err != nil {
		return err
	}
	return p.Regs.Push(a ^ b)
}

// opSHIFT pops a signed shift count and a value: positive counts shift
// left, negative shift right, magnitudes of 16 or more produce zero.
func opSHIFT(c any) error {
	p := asProcessor(c)
	v, count, err := pop2(p)
	if err != nil {
		return err
	}
	n := int16(count)
	switch {
	case n >= 16 || n <= -16:
		v = 0
	case n >= 0:
		v <<= uint(n)
	default:
		v >>= uint(-n)
	}
	return p.Regs.Push(v)
}

// opDADD pops two doubles (low word on top) and pushes their 32-bit sum.
func opDADD(c any) error {
	p := asProcessor(c)
	bl, err := p.Regs.Pop()
	if err != nil {
		return err
	}
	bh, err := p.Regs.Pop()
	if err != nil {
		return err
	}
	al, err := p.Regs.Pop()
	if err != nil {
		return err
	}
	ah, err := p.Regs.Pop()
	if err != nil {
		return err
	}
	sum := (uint32(ah)<<16 | uint32(al)) + (uint32(bh)<<16 | uint32(bl))
	if err := p.Regs.Push(uint16(sum >> 16)); err != nil {
		return err
	}
	return p.Regs.Push(uint16(sum))
}

// opBNDCHK pops a limit and a value, pushes the value back, and raises
// BoundsTrap if value >= limit.
func opBNDCHK(c any) error {
	p := asProcessor(c)
	v, limit, err := pop2(p)
	if err != nil {
		return err
	}
	if err := p.Regs.Push(v); err != nil {
		return err
	}
	if v >= limit {
		return &GuestTrap{Kind: TrapBoundsCheck, Arg: v}
	}
	return nil
}

// opDUP duplicates the top of the evaluation stack.
func opDUP(c any) error {
	p := asProcessor(c)
	v, err := p.Regs.Top()
	if err != nil {
		return err
	}
	return p.Regs.Push(v)
}

// opPOP discards the top of the evaluation stack.
func opPOP(c any) error {
	p := asProcessor(c)
	_, err := p.Regs.Pop()
	return err
}

// opEXCH swaps the top two stack words; opEXDIS replaces the word below
// the top with the top.
func opEXCH(c any) error {
	p := asProcessor(c)
	a, b, err := pop2(p)
	if err != nil {
		return err
	}
	if err := p.Regs.Push(b); err != nil {
		return err
	}
	return p.Regs.Push(a)
}

func opEXDIS(c any) error {
	p := asProcessor(c)
	b, err := p.Regs.Pop()
	if err != nil {
		return err
	}
	if _, err := p.Regs.Pop(); err != nil {
		return err
	}
	return p.Regs.Push(b)
}

// makeCompare builds LT/GT/EQ: pop two, push 1 if the relation holds.
func makeCompare(rel func(a, b uint16) bool) opcode.Operation {
	return func(c any) error {
		p := asProcessor(c)
		a, b, err := pop2(p)
		if err != nil {
			return err
		}
		var v uint16
		if rel(a, b) {
			v = 1
		}
		return p.Regs.Push(v)
	}
}

// opJMP is an unconditional relative jump by a signed offset byte.
func opJMP(c any) error {
	p := asProcessor(c)
	b, err := p.fetchCodeByte(p.Regs.PC)
	if err != nil {
		return err
	}
	p.Regs.PC += 1 + uint16(int8(b))
	return nil
}

// opJW jumps by a signed 16-bit offset word.
func opJW(c any) error {
	p := asProcessor(c)
	w, err := p.fetchCodeWord()
	if err != nil {
		return err
	}
	p.Regs.PC += w
	return nil
}

// opJZ pops a word and jumps by the following offset byte if it is zero;
// opJNZ is the complement.
func opJZ(c any) error {
	p := asProcessor(c)
	v, err := p.Regs.Pop()
	if err != nil {
		return err
	}
	b, err := p.fetchCodeByte(p.Regs.PC)
	if err != nil {
		return err
	}
	p.Regs.PC++
	if v == 0 {
		p.Regs.PC += uint16(int8(b))
	}
	return nil
}

func opJNZ(c any) error {
	p := asProcessor(c)
	v, err := p.Regs.Pop()
	if err != nil {
		return err
	}
	b, err := p.fetchCodeByte(p.Regs.PC)
	if err != nil {
		return err
	}
	p.Regs.PC++
	if v != 0 {
		p.Regs.PC += uint16(int8(b))
	}
	return nil
}

// makeCondJump builds the two-operand conditional jump family (JEB, JNEB,
// JLB, JGEB): pop b then a, read a signed offset byte, jump if the
// relation holds.
func makeCondJump(rel func(a, b uint16) bool) opcode.Operation {
	return func(c any) error {
		p := asProcessor(c)
		a, b, err := pop2(p)
		if err != nil {
			return err
		}
		off, err := p.fetchCodeByte(p.Regs.PC)
		if err != nil {
			return err
		}
		p.Regs.PC++
		if rel(a, b) {
			p.Regs.PC += uint16(int8(off))
		}
		return nil
	}
}

// opXFER implements the generic XFER primitive: pop a destination frame
// pointer, save the outgoing PC into the current frame, and load CB, GF,
// GFI and PC from the destination frame's overhead words so execution
// continues in the callee's code segment. A transfer back to the original
// frame resumes at the saved PC, which is how call and return both ride
// this one primitive.
func opXFER(c any) error {
	p := asProcessor(c)
	dst, err := p.Regs.Pop()
	if err != nil {
		return err
	}
	return p.xferFrame(XferGeneric, LinkFrame, dst)
}

// opREQUESTRESCHEDULE yields to the scheduler without faulting; used by
// the idle loop and explicit guest yield points.
func opREQUESTRESCHEDULE(c any) error { return RequestReschedule{} }

// opBRK raises BreakTrap when no break byte is pending; otherwise it
// dispatches the held byte as the instruction the breakpoint displaced
// and clears it.
func opBRK(c any) error {
	p := asProcessor(c)
	if p.Regs.BreakByte == 0 {
		return &GuestTrap{Kind: TrapBreak, Arg: 0}
	}
	b := p.Regs.BreakByte
	p.Regs.BreakByte = 0
	return p.dispatchMop(b)
}

// StandardEntries returns the Entry set for the always-present subset of
// the MOP space: stack, arithmetic, control flow and XFER. Device ops
// live in the ESC space.
func StandardEntries() []opcode.Entry {
	entries := []opcode.Entry{
		{Enable: true, Code: 0x00, Name: "NOOP", Op: opNoop},
		{Enable: true, Code: 0x20, Name: "LIB", Op: opLIB},
		{Enable: true, Code: 0x21, Name: "LIW", Op: opLIW},
		{Enable: true, Code: 0x22, Name: "LINI", Op: opLINI},
		{Enable: true, Code: 0x24, Name: "LGB", Op: opLGB},
		{Enable: true, Code: 0x25, Name: "SGB", Op: opSGB},
		{Enable: true, Code: 0x26, Name: "R", Op: opR},
		{Enable: true, Code: 0x27, Name: "W", Op: opW},
		{Enable: true, Code: 0x30, Name: "ADD", Op: opADD},
		{Enable: true, Code: 0x31, Name: "SUB", Op: opSUB},
		{Enable: true, Code: 0x32, Name: "MUL", Op: opMUL},
		{Enable: true, Code: 0x33, Name: "DIV", Op: opDIV},
		{Enable: true, Code: 0x34, Name: "MOD", Op: opMOD},
		{Enable: true, Code: 0x35, Name: "NEG", Op: opNEG},
		{Enable: true, Code: 0x36, Name: "INC", Op: opINC},
		{Enable: true, Code: 0x37, Name: "DEC", Op: opDEC},
		{Enable: true, Code: 0x38, Name: "AND", Op: opAND},
		{Enable: true, Code: 0x39, Name: "OR", Op: opOR},
		{Enable: true, Code: 0x3A, Name: "XOR", Op: opXOR},
		{Enable: true, Code: 0x3B, Name: "SHIFT", Op: opSHIFT},
		{Enable: true, Code: 0x3C, Name: "DADD", Op: opDADD},
		{Enable: true, Code: 0x3D, Name: "BNDCHK", Op: opBNDCHK},
		{Enable: true, Code: 0x40, Name: "DUP", Op: opDUP},
		{Enable: true, Code: 0x41, Name: "POP", Op: opPOP},
		{Enable: true, Code: 0x42, Name: "EXCH", Op: opEXCH},
		{Enable: true, Code: 0x43, Name: "EXDIS", Op: opEXDIS},
		{Enable: true, Code: 0x48, Name: "LT", Op: makeCompare(func(a, b uint16) bool { return a < b })},
		{Enable: true, Code: 0x49, Name: "GT", Op: makeCompare(func(a, b uint16) bool { return a > b })},
		{Enable: true, Code: 0x4A, Name: "EQ", Op: makeCompare(func(a, b uint16) bool { return a == b })},
		{Enable: true, Code: 0x50, Name: "JMP", Op: opJMP},
		{Enable: true, Code: 0x51, Name: "JZ", Op: opJZ},
		{Enable: true, Code: 0x52, Name: "JNZ", Op: opJNZ},
		{Enable: true, Code: 0x53, Name: "JW", Op: opJW},
		{Enable: true, Code: 0x54, Name: "JEB", Op: makeCondJump(func(a, b uint16) bool { return a == b })},
		{Enable: true, Code: 0x55, Name: "JNEB", Op: makeCondJump(func(a, b uint16) bool { return a != b })},
		{Enable: true, Code: 0x56, Name: "JLB", Op: makeCondJump(func(a, b uint16) bool { return int16(a) < int16(b) })},
		{Enable: true, Code: 0x57, Name: "JGEB", Op: makeCondJump(func(a, b uint16) bool { return int16(a) >= int16(b) })},
		{Enable: true, Code: 0x60, Name: "XFER", Op: opXFER},
		{Enable: true, Code: 0x61, Name: "REQUESTRESCHEDULE", Op: opREQUESTRESCHEDULE},
		{Enable: true, Code: 0x62, Name: "BRK", Op: opBRK},
	}
	for n := uint16(0); n < 8; n++ {
		entries = append(entries,
			opcode.Entry{Enable: true, Code: uint8(0x10 + n), Name: "LL" + string(rune('0'+n)), Op: makeLoadLocal(n)},
			opcode.Entry{Enable: true, Code: uint8(0x18 + n), Name: "SL" + string(rune('0'+n)), Op: makeStoreLocal(n)},
			opcode.Entry{Enable: true, Code: uint8(0x28 + n), Name: "LI" + string(rune('0'+n)), Op: makeLoadImmediate(n)},
		)
	}
	return entries
}
