package bytebuffer

import "testing"

func TestReadWrite16RoundTrip(t *testing.T) {
	buf := New(make([]byte, 16))
	buf.Write16(0x1234)
	buf.Write32(0xdeadbeef)
	buf.Flip()
	if v := buf.Read16(); v != 0x1234 {
		t.Errorf("read16 = %04x, want 1234", v)
	}
	if v := buf.Read32(); v != 0xdeadbeef {
		t.Errorf("read32 = %08x, want deadbeef", v)
	}
}

func TestWrite48(t *testing.T) {
	buf := New(make([]byte, 6))
	buf.Write48(0x0102030405_06)
	buf.Rewind()
	if v := buf.Read48(); v != 0x010203040506 {
		t.Errorf("read48 = %012x, want 010203040506", v)
	}
}

func TestOutOfRangePanics(t *testing.T) {
	buf := New(make([]byte, 2))
	buf.SetPosition(1)
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic on out of range read16")
		}
		if _, ok := r.(*OutOfRange); !ok {
			t.Fatalf("expected *OutOfRange, got %T", r)
		}
	}()
	buf.Read16()
}

func TestDoubleMarkIsInvalidUse(t *testing.T) {
	buf := New(make([]byte, 4))
	buf.Mark()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic on double mark")
		}
		if _, ok := r.(*InvalidUse); !ok {
			t.Fatalf("expected *InvalidUse, got %T", r)
		}
	}()
	buf.Mark()
}

func TestMarkResetSingleShot(t *testing.T) {
	buf := New(make([]byte, 4))
	buf.SetPosition(2)
	buf.Mark()
	buf.SetPosition(0)
	buf.Reset()
	if buf.Position() != 2 {
		t.Errorf("position after reset = %d, want 2", buf.Position())
	}
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on reset without mark")
		}
	}()
	buf.Reset()
}

func TestRangeSharesStorage(t *testing.T) {
	data := make([]byte, 8)
	buf := New(data)
	view := buf.Range(1, 2)
	view.Write16(0xaaaa)
	if data[2] != 0xaa || data[3] != 0xaa {
		t.Errorf("range view did not share storage: %v", data)
	}
}

func TestSetPositionAcceptsLimitBoundary(t *testing.T) {
	buf := New(make([]byte, 4))
	buf.SetPosition(4)
	if buf.Position() != 4 {
		t.Errorf("position = %d, want 4", buf.Position())
	}
}
