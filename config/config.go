/*
 * Guam - configuration: JSON entry list, boot-switch parsing.
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

// Package config loads the JSON configuration document naming each
// machine's display geometry, image files, boot switch, memory sizing and
// network interface, and parses Pilot boot switch literals.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Display describes the framebuffer geometry for one entry.
type Display struct {
	Type   string `json:"type"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Files names the backing image files for one entry.
type Files struct {
	Disk   string `json:"disk"`
	Germ   string `json:"germ"`
	Boot   string `json:"boot"`
	Floppy string `json:"floppy"`
}

// Boot carries the boot switch value and target device.
type Boot struct {
	Switch string `json:"switch"`
	Device string `json:"device"`
}

// Memory carries virtual/real address space sizing in bits
// (20 <= vmBits <= 25, rmBits <= vmBits).
type Memory struct {
	VMBits int `json:"vmbits"`
	RMBits int `json:"rmbits"`
}

// Network names the host interface and XNS address used by the entry's
// network agent.
type Network struct {
	Interface string `json:"interface"`
	Address   string `json:"address"`
}

// Entry is one named machine configuration.
type Entry struct {
	Name    string  `json:"name"`
	Display Display `json:"display"`
	File    Files   `json:"file"`
	Boot    Boot    `json:"boot"`
	Memory  Memory  `json:"memory"`
	Network Network `json:"network"`
}

// File is the top-level document: an array of entries.
type File struct {
	Entries []Entry `json:"entries"`
}

// Load reads and parses the JSON configuration document at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &f, nil
}

// Find returns the entry named name, or an error if none matches.
func (f *File) Find(name string) (Entry, error) {
	for _, e := range f.Entries {
		if e.Name == name {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("config: no entry named %q", name)
}

// ParseBootSwitch parses a boot switch string: hex (leading "0x" or
// trailing "H"), octal (leading "0" or trailing "B"), or decimal.
func ParseBootSwitch(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("config: empty boot switch")
	}

	upper := strings.ToUpper(s)
	switch {
	case strings.HasPrefix(upper, "0X"):
		v, err := strconv.ParseUint(s[2:], 16, 32)
		return uint32(v), wrapBootErr(s, err)
	case strings.HasSuffix(upper, "H"):
		v, err := strconv.ParseUint(s[:len(s)-1], 16, 32)
		return uint32(v), wrapBootErr(s, err)
	case strings.HasSuffix(upper, "B"):
		v, err := strconv.ParseUint(s[:len(s)-1], 8, 32)
		return uint32(v), wrapBootErr(s, err)
	case strings.HasPrefix(s, "0") && len(s) > 1:
		v, err := strconv.ParseUint(s[1:], 8, 32)
		return uint32(v), wrapBootErr(s, err)
	default:
		v, err := strconv.ParseUint(s, 10, 32)
		return uint32(v), wrapBootErr(s, err)
	}
}

func wrapBootErr(s string, err error) error {
	if err != nil {
		return fmt.Errorf("config: invalid boot switch %q: %w", s, err)
	}
	return nil
}
