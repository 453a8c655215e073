/*
 * Guam - Machine: the single process-wide aggregate of every subsystem.
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

// Package machine wires every subsystem package into a single aggregate:
// virtual memory, opcode tables, processor registers and the rest are
// process-wide singletons, owned here and handed out to every subsystem
// instead of living as package-level globals.
package machine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/rcornwell/guam/agent"
	"github.com/rcornwell/guam/config"
	"github.com/rcornwell/guam/cpu"
	"github.com/rcornwell/guam/device"
	"github.com/rcornwell/guam/diskfile"
	"github.com/rcornwell/guam/listener"
	"github.com/rcornwell/guam/logger"
	"github.com/rcornwell/guam/memory"
	"github.com/rcornwell/guam/opcode"
	"github.com/rcornwell/guam/xns"
	"github.com/rcornwell/guam/xnsnet"
)

// defaultHeads/SectorsPerTrack fix the CHS geometry; diskfile.Open
// derives cylinders from the image file size.
const (
	defaultHeads           = 2
	defaultSectorsPerTrack = 16

	interruptSelectorDisk    uint16 = 1 << 0
	interruptSelectorFloppy  uint16 = 1 << 1
	interruptSelectorInput   uint16 = 1 << 2
	interruptSelectorTimeout uint16 = 1 << 15

	// ptcInterval is the wall-clock length of one process-timeout tick.
	ptcInterval = 40 * time.Millisecond

	ripBroadcastInterval = 30 * time.Second
	timeZoneOffset       = 0

	// mpBootComplete is the Maintenance-Panel code Pilot's Germ writes once
	// cold-boot initialization finishes. The logger's MP observer keeps the
	// log at Error level through the noisy pre-boot phase and restores the
	// configured level once the guest writes this code.
	mpBootComplete uint16 = 1
)

// Machine is the aggregate owning memory, processor, devices and network
// state; nothing here is a package-level singleton. There is no guard
// against constructing more than one Machine in a process: each call to
// New builds an independent one.
type Machine struct {
	Name string

	Mem       *memory.Memory
	CPU       *cpu.Processor
	Display   *device.Display
	Input     *device.Input
	Disk      *agent.Agent
	Floppy    *agent.Agent
	diskImg   *diskfile.File
	floppyImg *diskfile.File

	Registry *listener.Registry
	Server   *listener.Server
	net      *xnsnet.Socket

	log *slog.Logger

	running chan struct{}
}

// New builds a Machine from a config.Entry: memory, processor, display,
// disk/floppy agents and the XNS listener registry, in the leaves-first
// order the system overview names.
func New(entry config.Entry, log *slog.Logger) (*Machine, error) {
	if log == nil {
		log = slog.Default()
	}

	vmBits := entry.Memory.VMBits
	rmBits := entry.Memory.RMBits
	if vmBits == 0 {
		vmBits = 22
	}
	if rmBits == 0 {
		rmBits = 20
	}
	mem := memory.New(vmBits, rmBits, 0x100)

	proc := cpu.New(mem, log)
	if lh, ok := log.Handler().(*logger.LogHandler); ok {
		proc.Regs.ObserveMP(lh.SuppressUntilMP(mpBootComplete))
	}

	m := &Machine{
		Name:    entry.Name,
		Mem:     mem,
		CPU:     proc,
		log:     log,
		running: make(chan struct{}),
	}

	if entry.Display.Width > 0 && entry.Display.Height > 0 {
		m.Display = device.NewDisplay(mem, entry.Display.Width, entry.Display.Height)
	}
	m.Input = device.NewInput(proc.Scheduler.NotifyInterrupt, interruptSelectorInput)

	if entry.File.Disk != "" {
		img, err := diskfile.Open(entry.File.Disk, defaultHeads, defaultSectorsPerTrack)
		if err != nil {
			return nil, fmt.Errorf("machine: disk image: %w", err)
		}
		m.diskImg = img
		fcb := agent.NewFCB(interruptSelectorDisk, 1)
		m.Disk = agent.New(fcb, img, mem, proc.Scheduler.NotifyInterrupt)
	}

	if entry.File.Floppy != "" {
		img, err := diskfile.Open(entry.File.Floppy, 2, 18)
		if err != nil {
			return nil, fmt.Errorf("machine: floppy image: %w", err)
		}
		m.floppyImg = img
		fcb := agent.NewFCB(interruptSelectorFloppy, 1)
		m.Floppy = agent.New(fcb, img, mem, proc.Scheduler.NotifyInterrupt)
	}

	proc.Esc.Register([]opcode.Entry{
		{Enable: true, Code: escCallAgent, Name: "CALLAGENT", Op: m.callAgent},
	})

	if entry.Network.Interface != "" || entry.Network.Address != "" {
		sock, err := xnsnet.Open(entry.Network.Interface, xnsPort)
		if err != nil {
			return nil, fmt.Errorf("machine: network: %w", err)
		}
		m.net = sock
		m.Registry = listener.NewRegistry()
		m.Server = listener.NewServer(sock, m.Registry, log)

		echo := listener.NewEchoListener(m.Server)
		if err := m.Registry.Add(xns.SocketEcho, echo, false); err != nil {
			return nil, err
		}

		rip := listener.NewRIPListener(m.Server, 0, sock.LocalHost(), ripBroadcastInterval, map[uint32]uint16{})
		if err := m.Registry.Add(xns.SocketRIP, rip, false); err != nil {
			return nil, err
		}

		timeListener := listener.NewTimeListener(m.Server, 0, sock.LocalHost(), timeZoneOffset)
		if err := m.Registry.Add(xns.SocketTime, timeListener, false); err != nil {
			return nil, err
		}

		spp := listener.NewSPPConnListener(m.Server, m.Registry, nil, 0, sock.LocalHost())
		if err := m.Registry.Add(xns.SocketCourier, spp, false); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// xnsPort is the well-known UDP port the XNS broadcast socket binds.
const xnsPort = 42424

// escCallAgent is the ESC opcode the guest executes after storing a
// nonzero FCB.nextIOCB, handing the chain to the named agent.
const escCallAgent = 0x20

// Agent numbers the guest passes to CALLAGENT.
const (
	agentDisk uint16 = iota
	agentFloppy
)

// callAgent pops (iocb root double, agent number) and walks the chain
// into the agent's work queue. An unknown or unconfigured agent is a
// guest error and raises HardwareError.
func (m *Machine) callAgent(c any) error {
	p := c.(*cpu.Processor)
	lo, err := p.Regs.Pop()
	if err != nil {
		return err
	}
	hi, err := p.Regs.Pop()
	if err != nil {
		return err
	}
	root := uint32(hi)<<16 | uint32(lo)
	which, err := p.Regs.Pop()
	if err != nil {
		return err
	}

	var a *agent.Agent
	switch which {
	case agentDisk:
		a = m.Disk
	case agentFloppy:
		a = m.Floppy
	}
	if a == nil {
		return &cpu.GuestTrap{Kind: cpu.TrapHardwareError, Arg: which}
	}
	return a.Call(root)
}

// StopAtMP registers an MP observer that halts the processor when the
// guest writes code to the maintenance panel, so an operator can stop at
// a known boot phase or error code.
func (m *Machine) StopAtMP(code uint16) {
	m.CPU.Regs.ObserveMP(func(mp uint16) {
		if mp == code {
			m.CPU.Regs.Running = false
			m.log.Info("stopped at MP", "mp", mp)
		}
	})
}

// Start launches every background thread: the processor loop, each
// configured agent's worker, and the XNS receive/registry threads.
func (m *Machine) Start() {
	if m.Disk != nil {
		m.Disk.Start()
	}
	if m.Floppy != nil {
		m.Floppy.Start()
	}
	if m.Registry != nil {
		if err := m.Registry.Start(); err != nil {
			m.log.Warn("listener registry start", "err", err)
		}
	}
	if m.Server != nil {
		m.Server.Start()
	}
	go m.CPU.Run(m.running)
	go m.tickPTC()
}

// tickPTC counts the process-timeout register down on a wall-clock tick,
// signaling a timeout wakeup when it reaches zero.
func (m *Machine) tickPTC() {
	t := time.NewTicker(ptcInterval)
	defer t.Stop()
	for {
		select {
		case <-m.running:
			return
		case <-t.C:
			if m.CPU.Scheduler.TickPTC() {
				m.CPU.Scheduler.NotifyInterrupt(interruptSelectorTimeout)
			}
		}
	}
}

// Stop signals every thread to exit and waits, bounded by each
// component's own one-second timed wait.
func (m *Machine) Stop() {
	close(m.running)
	if m.Disk != nil {
		m.Disk.Stop()
	}
	if m.Floppy != nil {
		m.Floppy.Stop()
	}
	if m.Server != nil {
		m.Server.Stop()
	}
	if m.Registry != nil {
		m.Registry.Stop()
	}
	if m.net != nil {
		_ = m.net.Close()
	}
	if m.diskImg != nil {
		_ = m.diskImg.Close()
	}
	if m.floppyImg != nil {
		_ = m.floppyImg.Close()
	}
}

// Reboot resets processor state to its power-on values without touching
// Memory or the opcode tables; only processor state resets on a guest
// reboot.
func (m *Machine) Reboot() {
	m.CPU.Regs.Reset()
}
