package opcode

import "testing"

func TestUnregisteredMopTraps(t *testing.T) {
	tbl := NewMop()
	err := tbl.Dispatch(0xfe, nil)
	if err == nil {
		t.Fatal("expected trap")
	}
	trap, ok := err.(*Trap)
	if !ok {
		t.Fatalf("expected *Trap, got %T", err)
	}
	if trap.Esc || trap.Code != 0xfe {
		t.Errorf("trap = %+v, want esc=false code=fe", trap)
	}
	if tbl.LastCode() != 0xfe {
		t.Errorf("lastMop = %#x, want fe", tbl.LastCode())
	}
}

func TestEscTableDispatch(t *testing.T) {
	esc := NewEsc()
	called := false
	esc.Register([]Entry{
		{Enable: true, Code: 0x10, Name: "test-op", Op: func(_ any) error {
			called = true
			return nil
		}},
	})
	if err := esc.Dispatch(0x10, nil); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !called {
		t.Fatal("expected operation to run")
	}
	if esc.LastCode() != 0x10 {
		t.Errorf("lastEsc = %#x, want 10", esc.LastCode())
	}
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	tbl := NewMop()
	tbl.Register([]Entry{{Enable: true, Code: 1, Name: "a", Op: func(any) error { return nil }}})
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	tbl.Register([]Entry{{Enable: true, Code: 1, Name: "b", Op: func(any) error { return nil }}})
}

func TestDisabledEntrySkippedAndTraps(t *testing.T) {
	tbl := NewMop()
	tbl.Register([]Entry{{Enable: false, Code: 2, Name: "disabled", Op: func(any) error { return nil }}})
	if err := tbl.Dispatch(2, nil); err == nil {
		t.Fatal("expected disabled opcode to trap at runtime")
	}
}

func TestDefaultNameIsOctal(t *testing.T) {
	tbl := NewMop()
	if got, want := tbl.Name(8), "mop-010"; got != want {
		t.Errorf("Name(8) = %q, want %q", got, want)
	}
	esc := NewEsc()
	if got, want := esc.Name(8), "esc-010"; got != want {
		t.Errorf("Name(8) = %q, want %q", got, want)
	}
}

func TestDisassembleUsesFormatterWhenPresent(t *testing.T) {
	tbl := NewMop()
	tbl.Register([]Entry{
		{Enable: true, Code: 0x20, Name: "push-local", Op: func(any) error { return nil },
			Format: func(cpu any) string { return "push-local(lf+4)" }},
	})
	if got, want := tbl.Disassemble(0x20, nil), "push-local(lf+4)"; got != want {
		t.Errorf("Disassemble = %q, want %q", got, want)
	}
}

func TestDisassembleFallsBackToName(t *testing.T) {
	tbl := NewMop()
	tbl.Register([]Entry{{Enable: true, Code: 0x21, Name: "no-formatter", Op: func(any) error { return nil }}})
	if got, want := tbl.Disassemble(0x21, nil), "no-formatter"; got != want {
		t.Errorf("Disassemble = %q, want %q", got, want)
	}
	if got, want := tbl.Disassemble(0x22, nil), "mop-042"; got != want {
		t.Errorf("Disassemble(unregistered) = %q, want %q", got, want)
	}
}

func TestStatsMarksTrapped(t *testing.T) {
	tbl := NewMop()
	_ = tbl.Dispatch(3, nil)
	stats := tbl.Stats()
	if len(stats) != 1 || !stats[0].IsTrapped || stats[0].Count != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}
