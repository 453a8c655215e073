package cpu

import (
	"testing"
	"time"

	"github.com/rcornwell/guam/memory"
)

func newTestProcessor(t *testing.T) *Processor {
	t.Helper()
	mem := memory.New(20, 20, 0x10)
	return New(mem, nil)
}

// putCode writes a sequence of opcode bytes starting at word address 0,
// packing two bytes per word big-endian the same way fetchCodeByte reads
// them back out.
func putCode(t *testing.T, p *Processor, bytes ...uint8) {
	t.Helper()
	for i := 0; i < len(bytes); i += 2 {
		word, err := p.Mem.GetAddress(uint32(i)/2, true)
		if err != nil {
			t.Fatalf("GetAddress: %v", err)
		}
		hi := uint16(bytes[i]) << 8
		var lo uint16
		if i+1 < len(bytes) {
			lo = uint16(bytes[i+1])
		}
		word[0] = hi | lo
	}
}

func TestRegistersPushPopRoundTrip(t *testing.T) {
	r := NewRegisters()
	if err := r.Push(0x1234); err != nil {
		t.Fatalf("push: %v", err)
	}
	v, err := r.Top()
	if err != nil || v != 0x1234 {
		t.Fatalf("top = %#x, %v", v, err)
	}
	v, err = r.Pop()
	if err != nil || v != 0x1234 {
		t.Fatalf("pop = %#x, %v", v, err)
	}
	if r.SP != 0 {
		t.Fatalf("SP = %d, want 0", r.SP)
	}
}

func TestRegistersStackOverflowTraps(t *testing.T) {
	r := NewRegisters()
	for i := 0; i < StackDepth; i++ {
		if err := r.Push(uint16(i)); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	err := r.Push(0xFFFF)
	trap, ok := err.(*GuestTrap)
	if !ok || trap.Kind != TrapStackError {
		t.Fatalf("err = %v, want StackError trap", err)
	}
}

func TestRegistersPopUnderflowTraps(t *testing.T) {
	r := NewRegisters()
	_, err := r.Pop()
	trap, ok := err.(*GuestTrap)
	if !ok || trap.Kind != TrapStackError {
		t.Fatalf("err = %v, want StackError trap", err)
	}
}

func TestStepExecutesLiteralAdd(t *testing.T) {
	p := newTestProcessor(t)
	// LIB 5; LIB 7; ADD
	putCode(t, p, 0x20, 5, 0x20, 7, 0x30, 0)

	for i := 0; i < 3; i++ {
		if err := p.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	v, err := p.Regs.Top()
	if err != nil || v != 12 {
		t.Fatalf("top = %d, %v, want 12", v, err)
	}
}

func TestStepDivZeroTraps(t *testing.T) {
	p := newTestProcessor(t)
	// LIB 5; LIB 0; DIV
	putCode(t, p, 0x20, 5, 0x20, 0, 0x33, 0)

	for i := 0; i < 2; i++ {
		if err := p.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	err := p.Step()
	trap, ok := err.(*GuestTrap)
	if !ok || trap.Kind != TrapDivZero {
		t.Fatalf("err = %v, want DivZero trap", err)
	}
}

func TestStepRestoresPCOnTrap(t *testing.T) {
	p := newTestProcessor(t)
	putCode(t, p, 0xFE) // unregistered MOP

	startPC := p.Regs.PC
	err := p.Step()
	if err == nil {
		t.Fatal("expected trap")
	}
	trap, ok := err.(*GuestTrap)
	if !ok || trap.Kind != TrapOpcode {
		t.Fatalf("err = %v, want OpcodeTrap", err)
	}
	if trap.Arg != 0xFE {
		t.Fatalf("trap arg = %#x, want 0xFE", trap.Arg)
	}
	if p.Mop.LastCode() != 0xFE {
		t.Fatalf("lastMop = %#x, want 0xFE", p.Mop.LastCode())
	}
	if p.Regs.PC != startPC {
		t.Fatalf("PC = %d, want restored to %d", p.Regs.PC, startPC)
	}
}

func TestStepJZSkipsOnZero(t *testing.T) {
	p := newTestProcessor(t)
	// LIB 0; JZ +2; LIB 9 (skipped); LIB 3
	putCode(t, p, 0x20, 0, 0x51, 2, 0x20, 9, 0x20, 3)

	for i := 0; i < 2; i++ {
		if err := p.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	if err := p.Step(); err != nil {
		t.Fatalf("step after jump: %v", err)
	}
	v, err := p.Regs.Top()
	if err != nil || v != 3 {
		t.Fatalf("top = %d, %v, want 3", v, err)
	}
}

// installFrame writes the six overhead words of a local frame at lf in
// MDS, so an XFER to lf loads (cb, gf, gfi, pc).
func installFrame(t *testing.T, p *Processor, lf uint16, cb, gf uint32, gfi, pc uint16) {
	t.Helper()
	words := []uint16{
		uint16(cb >> 16), uint16(cb), // CB
		uint16(gf >> 16), uint16(gf), // GF
		gfi, pc,
	}
	for i, w := range words {
		if err := p.writeWord(uint32(lf-frameOverhead)+uint32(i), w); err != nil {
			t.Fatalf("installFrame word %d: %v", i, err)
		}
	}
}

func TestTrapVectorsThroughSystemData(t *testing.T) {
	p := newTestProcessor(t)
	putCode(t, p, 0xFE) // unregistered MOP

	// Install a handler frame and point the OpcodeTrap SD entry at it.
	const handlerLF uint16 = 0x1000
	installFrame(t, p, handlerLF, 0x40, 0x500, 7, 2)
	if err := p.writeWord(uint32(SDBase)+uint32(TrapOpcode.vectorIndex()), handlerLF); err != nil {
		t.Fatalf("install SD entry: %v", err)
	}

	if err := p.Step(); err != nil {
		t.Fatalf("step: %v (trap should vector, not surface)", err)
	}
	if p.Regs.LF != handlerLF {
		t.Fatalf("LF = %#x, want handler frame %#x", p.Regs.LF, handlerLF)
	}
	if uint32(p.Regs.CB) != 0x40 || p.Regs.PC != 2 {
		t.Fatalf("CB/PC = %#x/%d, want handler's 0x40/2", uint32(p.Regs.CB), p.Regs.PC)
	}
	if uint32(p.Regs.GF) != 0x500 || p.Regs.GFI != 7 {
		t.Fatalf("GF/GFI = %#x/%d, want handler's 0x500/7", uint32(p.Regs.GF), p.Regs.GFI)
	}
	arg, err := p.Regs.Top()
	if err != nil || arg != 0xFE {
		t.Fatalf("trap arg on stack = %#x, %v, want 0xFE", arg, err)
	}
}

func TestXferTransfersToFrameAndBack(t *testing.T) {
	p := newTestProcessor(t)
	const callerLF uint16 = 0x900
	const calleeLF uint16 = 0x1000
	installFrame(t, p, callerLF, 0, 0, 0, 0)
	installFrame(t, p, calleeLF, 0x80, 0, 3, 5)
	p.Regs.LF = callerLF

	// LIW calleeLF; XFER
	putCode(t, p, 0x21, uint8(calleeLF>>8), uint8(calleeLF&0xFF), 0x60)
	for i := 0; i < 2; i++ {
		if err := p.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	if p.Regs.LF != calleeLF || uint32(p.Regs.CB) != 0x80 || p.Regs.PC != 5 || p.Regs.GFI != 3 {
		t.Fatalf("after XFER: LF=%#x CB=%#x PC=%d GFI=%d, want callee frame state",
			p.Regs.LF, uint32(p.Regs.CB), p.Regs.PC, p.Regs.GFI)
	}
	// The caller frame's resume PC points past the XFER opcode, so a
	// transfer back continues where the caller left off.
	saved, err := p.readWord(uint32(callerLF - framePC))
	if err != nil {
		t.Fatalf("read saved PC: %v", err)
	}
	if saved != 4 {
		t.Fatalf("saved caller PC = %d, want 4", saved)
	}
}

func TestRunHaltsOnUnboundTrapVector(t *testing.T) {
	p := newTestProcessor(t)
	putCode(t, p, 0xFE) // unregistered MOP with no SD handler installed
	p.Regs.Running = true

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		p.Run(stop)
		close(done)
	}()

	// An unbound trap vector cannot make forward progress, so Run halts
	// the processor rather than refetching the same byte forever.
	time.Sleep(20 * time.Millisecond)
	close(stop)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not exit after stop was closed")
	}
	if p.Regs.Running {
		t.Fatal("processor did not halt on unbound trap vector")
	}
}

func TestSchedulerWakesRunLoop(t *testing.T) {
	p := newTestProcessor(t)
	stop := make(chan struct{})
	woke := make(chan struct{})

	go func() {
		p.Scheduler.WaitForWork(stop)
		close(woke)
	}()

	time.Sleep(10 * time.Millisecond)
	p.Scheduler.NotifyInterrupt(1)

	select {
	case <-woke:
	case <-time.After(time.Second):
		t.Fatal("WaitForWork did not wake on NotifyInterrupt")
	}
	close(stop)
}

func TestEscDispatchRecordsLastEsc(t *testing.T) {
	p := newTestProcessor(t)
	putCode(t, p, 0xF0, 0xFE) // ESC, unregistered esc byte

	err := p.Step()
	trap, ok := err.(*GuestTrap)
	if !ok || trap.Kind != TrapEscOpcode {
		t.Fatalf("err = %v, want EscOpcodeTrap", err)
	}
	if p.Esc.LastCode() != 0xFE {
		t.Fatalf("lastEsc = %#x, want 0xFE", p.Esc.LastCode())
	}
}

func TestEscSetMPFansOutToObservers(t *testing.T) {
	p := newTestProcessor(t)
	var seen []uint16
	p.Regs.ObserveMP(func(v uint16) { seen = append(seen, v) })

	// LIB 0x37; ESC SMP
	putCode(t, p, 0x20, 0x37, 0xF0, 0x05)
	for i := 0; i < 2; i++ {
		if err := p.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	if p.Regs.MP != 0x37 {
		t.Fatalf("MP = %#x, want 0x37", p.Regs.MP)
	}
	if len(seen) != 1 || seen[0] != 0x37 {
		t.Fatalf("observer saw %v, want [0x37]", seen)
	}
}

func TestEscBlockTransferCopiesWords(t *testing.T) {
	p := newTestProcessor(t)
	// Source data at MDS+0x200.
	for i := uint16(0); i < 4; i++ {
		if err := p.writeWord(uint32(0x200+i), 0x1111*(i+1)); err != nil {
			t.Fatalf("seed word %d: %v", i, err)
		}
	}
	// LIW src; LIW dst; LIB count; ESC BLT
	putCode(t, p,
		0x21, 0x02, 0x00, // LIW 0x0200
		0x21, 0x03, 0x00, // LIW 0x0300
		0x20, 4, // LIB 4
		0xF0, 0x10) // ESC BLT
	for i := 0; i < 4; i++ {
		if err := p.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	for i := uint16(0); i < 4; i++ {
		v, err := p.readWord(uint32(0x300 + i))
		if err != nil {
			t.Fatalf("read back word %d: %v", i, err)
		}
		if v != 0x1111*(i+1) {
			t.Fatalf("word %d = %#x, want %#x", i, v, 0x1111*(i+1))
		}
	}
}

func TestEscMapReadBack(t *testing.T) {
	p := newTestProcessor(t)
	// Push vp=3 as a double, ESC GM: expect (rp double, flags) with the
	// boot layout's identity-ish mapping in force.
	putCode(t, p,
		0x28,       // LI0 (vp high)
		0x20, 3,    // LIB 3 (vp low)
		0xF0, 0x0B) // ESC GM
	for i := 0; i < 3; i++ {
		if err := p.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	flags, err := p.Regs.Pop()
	if err != nil {
		t.Fatalf("pop flags: %v", err)
	}
	rpLo, err := p.Regs.Pop()
	if err != nil {
		t.Fatalf("pop rp low: %v", err)
	}
	want := p.Mem.ReadMap(3)
	if uint16(want.Flags) != flags&7 {
		t.Fatalf("flags = %#x, want %#x", flags, uint16(want.Flags))
	}
	if uint32(rpLo) != want.Real&0xFFFF {
		t.Fatalf("rp low = %#x, want %#x", rpLo, want.Real&0xFFFF)
	}
}

func TestConditionalJumpCompares(t *testing.T) {
	p := newTestProcessor(t)
	// LIB 2; LIB 5; JLB +2; LIB 9 (skipped); LIB 3
	putCode(t, p, 0x20, 2, 0x20, 5, 0x56, 2, 0x20, 9, 0x20, 3)
	for i := 0; i < 4; i++ {
		if err := p.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	v, err := p.Regs.Top()
	if err != nil || v != 3 {
		t.Fatalf("top = %d, %v, want 3", v, err)
	}
}

func TestBreakWithNoBreakByteTraps(t *testing.T) {
	p := newTestProcessor(t)
	putCode(t, p, 0x62) // BRK

	err := p.Step()
	trap, ok := err.(*GuestTrap)
	if !ok || trap.Kind != TrapBreak {
		t.Fatalf("err = %v, want BreakTrap", err)
	}
}

func TestBreakDispatchesHeldByte(t *testing.T) {
	p := newTestProcessor(t)
	putCode(t, p, 0x28, 0x62) // LI0; BRK holding a DUP
	p.Regs.BreakByte = 0x40

	for i := 0; i < 2; i++ {
		if err := p.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	if p.Regs.BreakByte != 0 {
		t.Fatalf("BreakByte = %#x, want cleared", p.Regs.BreakByte)
	}
	if p.Regs.SP != 2 {
		t.Fatalf("SP = %d, want 2 (LI0 then duplicated)", p.Regs.SP)
	}
}

func TestRegistersResetKeepsObservers(t *testing.T) {
	r := NewRegisters()
	var fired int
	r.ObserveMP(func(uint16) { fired++ })

	r.PC = 0x1234
	if err := r.Push(7); err != nil {
		t.Fatalf("push: %v", err)
	}
	r.Reset()

	if r.PC != 0 || r.SP != 0 {
		t.Fatalf("PC/SP = %#x/%d, want zeroed", r.PC, r.SP)
	}
	r.SetMP(1)
	if fired != 1 {
		t.Fatal("MP observer lost across Reset")
	}
}
