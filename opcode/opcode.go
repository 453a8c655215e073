/*
 * Guam - opcode dispatch tables for the MOP and ESC opcode spaces.
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

// Package opcode holds the MOP and ESC dispatch tables: two 256-slot
// jump tables with runtime registration, per-opcode statistics, and trap
// fallthrough for unregistered slots.
package opcode

import "fmt"

// Trap is raised by dispatching an unregistered opcode.
type Trap struct {
	Esc  bool
	Code uint8
}

func (e *Trap) Error() string {
	if e.Esc {
		return fmt.Sprintf("EscOpcodeTrap(%#02x)", e.Code)
	}
	return fmt.Sprintf("OpcodeTrap(%#02x)", e.Code)
}

// Operation is the function body bound to an opcode. The processor state
// it operates on is opaque to this package (cpu.Processor implements it).
type Operation func(cpu any) error

// Formatter renders an opcode's mnemonic and operand state for the trace
// scripted command. It receives the same opaque cpu value Operation does.
type Formatter func(cpu any) string

type slot struct {
	op         Operation
	name       string
	format     Formatter
	registered bool
	count      uint64
}

// Table holds one opcode space (256 slots), statistics, and a last-opcode
// trap hook for tracing.
type Table struct {
	esc      bool
	slots    [256]slot
	lastCode uint8
}

// NewMop constructs the MOP (single-byte) opcode table.
func NewMop() *Table { return &Table{esc: false} }

// NewEsc constructs the ESC (escape-prefixed) opcode table.
func NewEsc() *Table { return &Table{esc: true} }

// Entry is one row of a static registration table: (enable, code, name,
// operation, optional formatter); the prefix is implied by the table it is
// registered into. Entries with Enable=false are skipped, so a build can elide
// unimplemented instructions while still trapping at runtime.
type Entry struct {
	Enable bool
	Code   uint8
	Name   string
	Op     Operation
	Format Formatter
}

// Register installs a table of entries. Panics (duplicate registration is
// a caller-contract violation) if any enabled code is already registered.
func (t *Table) Register(entries []Entry) {
	for _, e := range entries {
		if !e.Enable {
			continue
		}
		if t.slots[e.Code].registered {
			panic(fmt.Sprintf("opcode: duplicate registration of %#02x (%s)", e.Code, e.Name))
		}
		t.slots[e.Code] = slot{op: e.Op, name: e.Name, format: e.Format, registered: true}
	}
}

func (t *Table) trapName(code uint8) string {
	if t.esc {
		return fmt.Sprintf("esc-%03o", code)
	}
	return fmt.Sprintf("mop-%03o", code)
}

// Dispatch records the byte as the last opcode dispatched in this table,
// increments its statistics counter, and invokes the registered operation
// or the trap if none is registered.
func (t *Table) Dispatch(code uint8, cpu any) error {
	t.lastCode = code
	s := &t.slots[code]
	s.count++
	if !s.registered {
		return &Trap{Esc: t.esc, Code: code}
	}
	return s.op(cpu)
}

// LastCode returns the byte most recently dispatched (lastMop/lastEsc).
func (t *Table) LastCode() uint8 { return t.lastCode }

// Name returns the opcode's registered name, or its default trap name.
func (t *Table) Name(code uint8) string {
	s := &t.slots[code]
	if s.registered && s.name != "" {
		return s.name
	}
	return t.trapName(code)
}

// Count returns the number of times code has been dispatched.
func (t *Table) Count(code uint8) uint64 { return t.slots[code].count }

// Disassemble renders code's mnemonic for the trace scripted command,
// using its registered Formatter against cpu if one was supplied at
// registration, falling back to the bare name otherwise.
func (t *Table) Disassemble(code uint8, cpu any) string {
	s := &t.slots[code]
	if s.registered && s.format != nil {
		return s.format(cpu)
	}
	return t.Name(code)
}

// StatLine is one row of a statistics dump.
type StatLine struct {
	Code      uint8
	Name      string
	Count     uint64
	IsTrapped bool
}

// Stats returns a dump of every opcode that has executed at least once,
// marking those still pointing at a trap handler.
func (t *Table) Stats() []StatLine {
	var out []StatLine
	for code := 0; code < 256; code++ {
		s := &t.slots[code]
		if s.count == 0 {
			continue
		}
		out = append(out, StatLine{
			Code:      uint8(code),
			Name:      t.Name(uint8(code)),
			Count:     s.count,
			IsTrapped: !s.registered,
		})
	}
	return out
}
