/*
 * Guam - shell: scripted control command dispatch.
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

// Package shell implements the scripted control commands: boot, config,
// display, event, log, memory, perf, time, variable, trace. Commands are
// one flat table of named verbs dispatched against a single Machine.
package shell

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rcornwell/guam/device"
	"github.com/rcornwell/guam/machine"
)

// Status is a command's exit status.
type Status int

const (
	StatusOK Status = 0
	// StatusInvalid reports an invalid command name or argument list.
	StatusInvalid Status = 1
)

// Result is the string-or-dictionary result and status a Dispatch call
// returns.
type Result struct {
	Text   string
	Fields map[string]string
	Status Status
}

// Handler implements one scripted command verb.
type Handler func(m *machine.Machine, args []string) Result

// Shell dispatches named commands against one Machine.
type Shell struct {
	m        *machine.Machine
	handlers map[string]Handler
}

// New builds a Shell bound to m with the built-in command table
// registered.
func New(m *machine.Machine) *Shell {
	s := &Shell{m: m, handlers: map[string]Handler{}}
	s.register("boot", cmdBoot)
	s.register("config", cmdConfig)
	s.register("display", cmdDisplay)
	s.register("event", cmdEvent)
	s.register("log", cmdLog)
	s.register("memory", cmdMemory)
	s.register("perf", cmdPerf)
	s.register("time", cmdTime)
	s.register("variable", cmdVariable)
	s.register("trace", cmdTrace)
	return s
}

// register installs handler under name. Duplicate registration is a
// caller-contract violation, matching opcode.Table.Register's "must not
// be registered twice" rule.
func (s *Shell) register(name string, h Handler) {
	if _, dup := s.handlers[name]; dup {
		panic(fmt.Sprintf("shell: command %q registered twice", name))
	}
	s.handlers[name] = h
}

// Dispatch runs the named command against args, returning its result and
// exit status (0=OK, 1=invalid command/argument).
func (s *Shell) Dispatch(name string, args []string) Result {
	h, ok := s.handlers[name]
	if !ok {
		return Result{Text: fmt.Sprintf("unknown command %q", name), Status: StatusInvalid}
	}
	return h(s.m, args)
}

func cmdBoot(m *machine.Machine, _ []string) Result {
	m.Reboot()
	m.CPU.Regs.Running = true
	// Nudge the fetch loop out of its idle wait; selector 0 changes no
	// WP bit.
	m.CPU.Scheduler.NotifyInterrupt(0)
	return Result{Text: "booted " + m.Name, Status: StatusOK}
}

func cmdConfig(m *machine.Machine, _ []string) Result {
	return Result{
		Fields: map[string]string{
			"name":        m.Name,
			"vmpages":     strconv.FormatUint(uint64(m.Mem.VirtualPages()), 10),
			"rmpages":     strconv.FormatUint(uint64(m.Mem.RealPages()), 10),
			"displayVp":   strconv.Itoa(0),
			"displaySize": strconv.FormatUint(uint64(m.Mem.DisplayPageSize()), 10),
		},
		Status: StatusOK,
	}
}

func cmdDisplay(m *machine.Machine, args []string) Result {
	if len(args) == 0 || m.Display == nil {
		return Result{Text: "display: missing sub-command or no display configured", Status: StatusInvalid}
	}
	if args[0] == "set" {
		return Result{Text: fmt.Sprintf("%dx%d", m.Display.Width(), m.Display.Height()), Status: StatusOK}
	}
	vp, err := parseVP(args, 1, m.Mem.VirtualPages())
	if err != nil {
		return Result{Text: err.Error(), Status: StatusInvalid}
	}
	switch args[0] {
	case "refresh":
		if _, err := m.Display.Snapshot(vp); err != nil {
			return Result{Text: err.Error(), Status: StatusInvalid}
		}
		return Result{Text: "refreshed", Status: StatusOK}
	case "fill":
		black := len(args) > 2 && args[2] == "black"
		if err := m.Display.Fill(vp, black); err != nil {
			return Result{Text: err.Error(), Status: StatusInvalid}
		}
		return Result{Text: "filled", Status: StatusOK}
	default:
		return Result{Text: "display: unknown sub-command " + args[0], Status: StatusInvalid}
	}
}

func cmdEvent(m *machine.Machine, args []string) Result {
	if len(args) == 0 {
		return Result{Text: "event: missing sub-command", Status: StatusInvalid}
	}
	var kind device.EventKind
	switch args[0] {
	case "motion":
		kind = device.EventMotion
	case "keyPress":
		kind = device.EventKeyPress
	case "keyRelease":
		kind = device.EventKeyRelease
	case "buttonPress":
		kind = device.EventButtonPress
	case "buttonRelease":
		kind = device.EventButtonRelease
	default:
		return Result{Text: "event: unknown sub-command " + args[0], Status: StatusInvalid}
	}

	ev := device.Event{Kind: kind}
	switch kind {
	case device.EventMotion:
		if len(args) >= 3 {
			ev.X, _ = strconv.Atoi(args[1])
			ev.Y, _ = strconv.Atoi(args[2])
		}
	default:
		if len(args) >= 2 {
			code, _ := strconv.ParseUint(args[1], 10, 16)
			ev.Code = uint16(code)
		}
	}
	m.Input.Post(ev)
	return Result{Text: "posted", Status: StatusOK}
}

func cmdLog(_ *machine.Machine, args []string) Result {
	if len(args) < 2 {
		return Result{Text: "log: requires <level> <fmt> [args...]", Status: StatusInvalid}
	}
	return Result{Text: strings.Join(args[1:], " "), Status: StatusOK}
}

func cmdMemory(m *machine.Machine, args []string) Result {
	if len(args) == 0 {
		return Result{Text: "memory: missing sub-command", Status: StatusInvalid}
	}
	switch args[0] {
	case "config":
		return Result{
			Fields: map[string]string{
				"vmpages": strconv.FormatUint(uint64(m.Mem.VirtualPages()), 10),
				"rmpages": strconv.FormatUint(uint64(m.Mem.RealPages()), 10),
			},
			Status: StatusOK,
		}
	case "map":
		vp, err := parseVP(args, 1, m.Mem.VirtualPages())
		if err != nil {
			return Result{Text: err.Error(), Status: StatusInvalid}
		}
		mp := m.Mem.ReadMap(vp)
		return Result{Text: fmt.Sprintf("flags=%#x real=%#x", mp.Flags, mp.Real), Status: StatusOK}
	case "read":
		vp, err := parseVP(args, 1, m.Mem.VirtualPages())
		if err != nil {
			return Result{Text: err.Error(), Status: StatusInvalid}
		}
		word := m.Mem.Peek(vp * 256)
		return Result{Text: strconv.FormatUint(uint64(*word), 16), Status: StatusOK}
	case "vacant":
		vp, err := parseVP(args, 1, m.Mem.VirtualPages())
		if err != nil {
			return Result{Text: err.Error(), Status: StatusInvalid}
		}
		return Result{Text: strconv.FormatBool(m.Mem.ReadMap(vp).Flags.Vacant()), Status: StatusOK}
	default:
		return Result{Text: "memory: unknown sub-command " + args[0], Status: StatusInvalid}
	}
}

func cmdPerf(m *machine.Machine, _ []string) Result {
	stats := m.Mem.Stats()
	return Result{
		Fields: map[string]string{
			"hit":          strconv.FormatUint(stats.Hit, 10),
			"missEmpty":    strconv.FormatUint(stats.MissEmpty, 10),
			"missConflict": strconv.FormatUint(stats.MissConflict, 10),
		},
		Status: StatusOK,
	}
}

func cmdTime(_ *machine.Machine, _ []string) Result {
	return Result{Text: "see listener.TimeListener for the guest-visible Pilot-epoch clock", Status: StatusOK}
}

func cmdVariable(_ *machine.Machine, args []string) Result {
	if len(args) == 0 {
		return Result{Text: "variable: missing name", Status: StatusInvalid}
	}
	return Result{Text: "", Status: StatusOK}
}

func cmdTrace(m *machine.Machine, _ []string) Result {
	trace := m.CPU.Trace()
	last := m.CPU.Mop.Disassemble(m.CPU.Mop.LastCode(), m.CPU)
	return Result{
		Text: fmt.Sprintf("%d xfer records, last mop %s", len(trace), last),
		Fields: map[string]string{
			"lastMop": last,
			"lastEsc": m.CPU.Esc.Disassemble(m.CPU.Esc.LastCode(), m.CPU),
		},
		Status: StatusOK,
	}
}

// parseVP parses args[idx] as a hex virtual page number and checks it
// against vpSize (m.Mem.VirtualPages()). An operator typo is ordinary bad
// input, not a caller-contract violation, so it comes back as an error for
// the handler to report as StatusInvalid rather than reaching memory.Memory
// and panicking with *memory.InvalidAddress.
func parseVP(args []string, idx int, vpSize uint32) (uint32, error) {
	if len(args) <= idx {
		return 0, fmt.Errorf("missing virtual page argument")
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(args[idx], "0x"), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid virtual page %q: %w", args[idx], err)
	}
	if uint32(v) >= vpSize {
		return 0, fmt.Errorf("virtual page %q out of range [0, %#x)", args[idx], vpSize)
	}
	return uint32(v), nil
}
