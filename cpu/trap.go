/*
 * Guam - guest trap taxonomy and System Data vector indices.
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

import "fmt"

// TrapKind enumerates the guest trap vectors named in the System Data
// table. Each has a fixed OFFSET_SD(sX) index.
type TrapKind int

const (
	TrapBoundsCheck TrapKind = iota
	TrapDivCheck
	TrapDivZero
	TrapStackError
	TrapControl
	TrapUnboundTrap
	TrapInterruptError
	TrapHardwareError
	TrapBreak
	TrapXfer
	TrapProcess
	TrapCode
	TrapPointer
	TrapOpcode
	TrapEscOpcode
	TrapPageFault
	TrapWriteProtect
	TrapReschedule
)

var trapNames = map[TrapKind]string{
	TrapBoundsCheck:    "BoundsTrap",
	TrapDivCheck:       "DivCheckTrap",
	TrapDivZero:        "DivZeroTrap",
	TrapStackError:     "StackError",
	TrapControl:        "ControlTrap",
	TrapUnboundTrap:    "UnboundTrap",
	TrapInterruptError: "InterruptError",
	TrapHardwareError:  "HardwareError",
	TrapBreak:          "BreakTrap",
	TrapXfer:           "XferTrap",
	TrapProcess:        "ProcessTrap",
	TrapCode:           "CodeTrap",
	TrapPointer:        "PointerTrap",
	TrapOpcode:         "OpcodeTrap",
	TrapEscOpcode:      "EscOpcodeTrap",
	TrapPageFault:      "PageFault",
	TrapWriteProtect:   "WriteProtectFault",
	TrapReschedule:     "RescheduleError",
}

// vectorIndex is OFFSET_SD(sX): the trap's fixed index into the guest
// System Data table.
func (k TrapKind) vectorIndex() uint16 { return uint16(k) }

// GuestTrap is a non-fatal guest-visible fault: PC/SP are restored to
// (savedPC, savedSP) and control XFERs to SD + OFFSET_SD(kind).
type GuestTrap struct {
	Kind TrapKind
	Arg  uint16
}

func (e *GuestTrap) Error() string {
	return fmt.Sprintf("%s(%#04x)", trapNames[e.Kind], e.Arg)
}

// VectorIndex returns the trap's fixed System Data vector index.
func (e *GuestTrap) VectorIndex() uint16 { return e.Kind.vectorIndex() }

// RequestReschedule is an unwind token, not an error: it causes the
// processor loop to yield to the interrupt/scheduler path without
// invoking any trap handler. Only the processor thread may raise it.
type RequestReschedule struct{}

func (RequestReschedule) Error() string { return "request reschedule" }

// Abort is a non-local exit used by dispatch to unwind to the fetch loop
// without reaching a trap vector (e.g. an instruction that discovers
// mid-execution it must retry after a fault has already been serviced).
type Abort struct{}

func (Abort) Error() string { return "abort" }
