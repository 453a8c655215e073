package agent

import (
	"testing"
	"time"

	"github.com/rcornwell/guam/memory"
)

type fakeBackend struct {
	pages map[int64][]uint16
}

func newFakeBackend() *fakeBackend { return &fakeBackend{pages: map[int64][]uint16{}} }

func (f *fakeBackend) ReadPage(block int64, buf []uint16) error {
	src, ok := f.pages[block]
	if !ok {
		src = make([]uint16, len(buf))
	}
	copy(buf, src)
	return nil
}

func (f *fakeBackend) WritePage(block int64, buf []uint16) error {
	cp := make([]uint16, len(buf))
	copy(cp, buf)
	f.pages[block] = cp
	return nil
}

func (f *fakeBackend) VerifyPage(block int64, buf []uint16) (bool, error) {
	src := f.pages[block]
	if len(src) != len(buf) {
		return false, nil
	}
	for i := range buf {
		if src[i] != buf[i] {
			return false, nil
		}
	}
	return true, nil
}

func writeIOCB(t *testing.T, mem *memory.Memory, addr uint32, iocb IOCB, next uint32) {
	t.Helper()
	words, err := mem.GetAddress(addr, true)
	if err != nil {
		t.Fatalf("GetAddress: %v", err)
	}
	words[0] = uint16(iocb.Command)
	words[1] = uint16(iocb.DeviceIndex)
	words[2] = uint16(iocb.Block >> 16)
	words[3] = uint16(iocb.Block)
	words[4] = uint16(iocb.PageCount)
	words[5] = uint16(iocb.DataPtr >> 16)
	words[6] = uint16(iocb.DataPtr)
	words[7] = uint16(iocb.Status)
	words[8] = uint16(next)
}

func TestAgentServicesReadCompletion(t *testing.T) {
	mem := memory.New(20, 20, 0x10)
	backend := newFakeBackend()
	page := make([]uint16, memory.PageSize)
	for i := range page {
		page[i] = uint16(i + 1)
	}
	backend.pages[5] = page

	var notified uint16
	notify := func(sel uint16) { notified = sel }

	fcb := NewFCB(0x4, 1)
	a := New(fcb, backend, mem, notify)
	a.Start()
	defer a.Stop()

	const iocbAddr = 0x2000
	const dataAddr = 0x3000 // page-aligned: 0x3000 % 256 == 0
	writeIOCB(t, mem, iocbAddr, IOCB{Command: CmdRead, DeviceIndex: 0, Block: 5, PageCount: 1, DataPtr: dataAddr}, 0)

	if err := a.Call(iocbAddr); err != nil {
		t.Fatalf("Call: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		words, _ := mem.GetAddress(iocbAddr, false)
		if words[4] == 0 && words[7] == uint16(StatusGood) && notified == 0x4 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("completion not observed: pageCount=%d status=%d notified=%#x", words[4], words[7], notified)
		case <-time.After(5 * time.Millisecond):
		}
	}

	dst, err := mem.GetAddress(dataAddr, false)
	if err != nil {
		t.Fatalf("GetAddress: %v", err)
	}
	for i := 0; i < memory.PageSize; i++ {
		if dst[i] != page[i] {
			t.Fatalf("dst[%d] = %d, want %d", i, dst[i], page[i])
		}
	}
}

func TestAgentRejectsInvalidDeviceIndex(t *testing.T) {
	mem := memory.New(20, 20, 0x10)
	backend := newFakeBackend()
	fcb := NewFCB(0x1, 1)
	a := New(fcb, backend, mem, func(uint16) {})

	const iocbAddr = 0x2000
	writeIOCB(t, mem, iocbAddr, IOCB{Command: CmdRead, DeviceIndex: 9, PageCount: 0}, 0)

	err := a.Call(iocbAddr)
	if _, ok := err.(*InvalidDeviceIndexError); !ok {
		t.Fatalf("err = %v, want *InvalidDeviceIndexError", err)
	}
}

func TestAgentRejectsUnrecognizedCommand(t *testing.T) {
	mem := memory.New(20, 20, 0x10)
	fcb := NewFCB(0x1, 1)
	a := New(fcb, newFakeBackend(), mem, func(uint16) {})

	const iocbAddr = 0x2000
	writeIOCB(t, mem, iocbAddr, IOCB{Command: Command(99), DeviceIndex: 0}, 0)

	err := a.Call(iocbAddr)
	if _, ok := err.(*InvalidCommandError); !ok {
		t.Fatalf("err = %v, want *InvalidCommandError", err)
	}
}

func TestAgentStopIsCooperative(t *testing.T) {
	mem := memory.New(20, 20, 0x10)
	fcb := NewFCB(0x1, 1)
	a := New(fcb, newFakeBackend(), mem, func(uint16) {})
	a.Start()
	a.Stop()
	if !a.Stopped() {
		t.Fatal("expected Stopped() true after Stop()")
	}
}
