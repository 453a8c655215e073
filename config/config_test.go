/*
 * Guam - config package tests: JSON load, boot switch parsing.
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

package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleConfig = `{
  "entries": [
    {
      "name": "station1",
      "display": {"type": "mono", "width": 606, "height": 808},
      "file": {"disk": "disk.img", "germ": "germ.img", "boot": "boot.img", "floppy": "floppy.img"},
      "boot": {"switch": "0x1F", "device": "disk"},
      "memory": {"vmbits": 22, "rmbits": 20},
      "network": {"interface": "eth0", "address": "10.0.0.1"}
    }
  ]
}`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "guam.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadAndFind(t *testing.T) {
	path := writeTemp(t, sampleConfig)
	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(f.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(f.Entries))
	}

	e, err := f.Find("station1")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if e.Display.Width != 606 || e.Display.Height != 808 {
		t.Fatalf("display geometry = %+v, want 606x808", e.Display)
	}
	if e.Memory.VMBits != 22 || e.Memory.RMBits != 20 {
		t.Fatalf("memory sizing = %+v, want 22/20", e.Memory)
	}
	if e.File.Disk != "disk.img" {
		t.Fatalf("file.disk = %q, want disk.img", e.File.Disk)
	}

	if _, err := f.Find("nope"); err == nil {
		t.Fatalf("Find(nope) succeeded, want error")
	}
}

func TestParseBootSwitch(t *testing.T) {
	cases := []struct {
		in   string
		want uint32
	}{
		{"0x1F", 0x1F},
		{"1FH", 0x1F},
		{"017", 0xF},
		{"17B", 0xF},
		{"42", 42},
	}
	for _, c := range cases {
		got, err := ParseBootSwitch(c.in)
		if err != nil {
			t.Fatalf("ParseBootSwitch(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("ParseBootSwitch(%q) = %#x, want %#x", c.in, got, c.want)
		}
	}
}

func TestParseBootSwitchInvalid(t *testing.T) {
	for _, in := range []string{"", "zzz"} {
		if _, err := ParseBootSwitch(in); err == nil {
			t.Fatalf("ParseBootSwitch(%q) succeeded, want error", in)
		}
	}
}
