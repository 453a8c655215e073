/*
 * Guam - floppy leader page and file list decoder.
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

// Package floppy decodes Pilot's floppy volume descriptor, file list and
// leader pages, reading through bytebuffer the same way the XNS codecs
// do. Sector bytes are word-swapped on disk, so every sector is swapped
// before decoding. Seal and version mismatches panic, matching
// bytebuffer's fatal-caller-contract-violation convention: a floppy
// image with a bad seal is corrupt, not recoverable.
package floppy

import (
	"fmt"

	"github.com/rcornwell/guam/bytebuffer"
)

const (
	sealVolumeDescriptor = 0o141414
	sealFileList         = 0o131313
	sealLeaderPage       = 0o125252

	// VolumeDescriptorSector is the fixed sector holding the volume
	// descriptor.
	VolumeDescriptorSector = 9

	// TypeLeaderPage identifies a file-list entry that is a leader page.
	TypeLeaderPage = 1
)

// DecodeError reports a seal or version mismatch.
type DecodeError struct {
	What     string
	Got      uint16
	Expected uint16
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("floppy: %s mismatch: got %#o, want %#o", e.What, e.Got, e.Expected)
}

func checkSeal(bb *bytebuffer.Buffer, what string, want uint16) {
	got := bb.Read16()
	if got != want {
		panic(&DecodeError{What: what + " seal", Got: got, Expected: want})
	}
	version := bb.Read16()
	if version != 1 {
		panic(&DecodeError{What: what + " version", Got: version, Expected: 1})
	}
}

// byteswapSector returns a copy of a raw on-disk sector with the two bytes
// of every 16-bit word swapped, leaving raw unchanged: the image stores
// each sector word-swapped relative to the in-memory layout the decoder
// expects.
func byteswapSector(raw []byte) []byte {
	buf := make([]byte, len(raw))
	copy(buf, raw)
	for i := 0; i+1 < len(buf); i += 2 {
		buf[i], buf[i+1] = buf[i+1], buf[i]
	}
	return buf
}

// VolumeDescriptor is decoded from sector 9.
type VolumeDescriptor struct {
	FileListLoc  uint32
	FileListSize uint32
}

// DecodeVolumeDescriptor byteswaps raw and decodes it as sector 9's
// volume descriptor. Panics with *DecodeError on a seal/version mismatch.
func DecodeVolumeDescriptor(raw []byte) VolumeDescriptor {
	bb := bytebuffer.New(byteswapSector(raw))
	checkSeal(bb, "volume descriptor", sealVolumeDescriptor)
	return VolumeDescriptor{
		FileListLoc:  bb.Read32(),
		FileListSize: bb.Read32(),
	}
}

// FileListEntry is one entry of the decoded file list.
type FileListEntry struct {
	File     uint32
	Type     uint16
	Location uint32
	Size     uint32
}

// FileList is the decoded file-list sector.
type FileList struct {
	Count      uint16
	MaxEntries uint16
	Entries    []FileListEntry
}

// DecodeFileList byteswaps raw and decodes it as a file-list sector.
// Panics with *DecodeError on a seal/version mismatch.
func DecodeFileList(raw []byte) FileList {
	bb := bytebuffer.New(byteswapSector(raw))
	checkSeal(bb, "file list", sealFileList)

	count := bb.Read16()
	maxEntries := bb.Read16()

	fl := FileList{Count: count, MaxEntries: maxEntries}
	for i := uint16(0); i < count; i++ {
		fl.Entries = append(fl.Entries, FileListEntry{
			File:     bb.Read32(),
			Type:     bb.Read16(),
			Location: bb.Read32(),
			Size:     bb.Read32(),
		})
	}
	return fl
}

// LeaderPage is the decoded per-file leader page.
type LeaderPage struct {
	Name       string
	CreateDate uint32
	WriteDate  uint32
	ClientData [8]uint16
	Contents   []byte
}

const leaderNameLen = 40

// DecodeLeaderPage byteswaps raw and decodes it as a file's leader page.
// Panics with *DecodeError on a seal/version mismatch.
func DecodeLeaderPage(raw []byte) LeaderPage {
	bb := bytebuffer.New(byteswapSector(raw))
	checkSeal(bb, "leader page", sealLeaderPage)

	nameBytes := bb.Read(leaderNameLen)
	nameLen := int(nameBytes[0])
	if nameLen > leaderNameLen-1 {
		nameLen = leaderNameLen - 1
	}
	name := string(nameBytes[1 : 1+nameLen])

	createDate := bb.Read32()
	writeDate := bb.Read32()

	var clientData [8]uint16
	for i := range clientData {
		clientData[i] = bb.Read16()
	}

	return LeaderPage{
		Name:       name,
		CreateDate: createDate,
		WriteDate:  writeDate,
		ClientData: clientData,
		Contents:   bb.Read(bb.Remaining()),
	}
}
