/*
 * Guam - page-addressable disk/floppy image files.
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

// Package diskfile implements the page-addressable disk and floppy image
// files Pilot's disk agent services IOCBs against: fixed-block random
// access addressed by block number, with CHS geometry derived from the
// image size.
package diskfile

import (
	"errors"
	"fmt"
	"os"
)

// PageSize is the byte size of one Pilot page on the host disk image (256
// words of 2 bytes each).
const PageSize = 512

// CHS is the cylinder/head/sector geometry derived from an image's size.
type CHS struct {
	Heads           int
	SectorsPerTrack int
	Cylinders       int
}

var errNotAttached = errors.New("diskfile: not attached")

// File is a page-addressable image file.
type File struct {
	f      *os.File
	name   string
	blocks int64
	geo    CHS
}

// Open attaches name as a disk/floppy image, computing the block count
// from its size. heads/sectorsPerTrack describe the fixed geometry used
// to derive Cylinders; pass 0 for either to skip CHS validation.
func Open(name string, heads, sectorsPerTrack int) (*File, error) {
	f, err := os.OpenFile(name, os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	size := info.Size()
	if size%PageSize != 0 {
		return nil, fmt.Errorf("diskfile: %s: size %d not a multiple of page size", name, size)
	}
	blocks := size / PageSize

	var geo CHS
	if heads > 0 && sectorsPerTrack > 0 {
		perCyl := int64(heads * sectorsPerTrack)
		if blocks%perCyl != 0 {
			return nil, fmt.Errorf("diskfile: %s: %d blocks not exact multiple of %d heads * %d sectors",
				name, blocks, heads, sectorsPerTrack)
		}
		geo = CHS{Heads: heads, SectorsPerTrack: sectorsPerTrack, Cylinders: int(blocks / perCyl)}
	}

	return &File{f: f, name: name, blocks: blocks, geo: geo}, nil
}

// Create makes a new zero-filled image of the given block count.
func Create(name string, blocks int64, heads, sectorsPerTrack int) (*File, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, err
	}
	if err := f.Truncate(blocks * PageSize); err != nil {
		f.Close()
		return nil, err
	}
	var geo CHS
	if heads > 0 && sectorsPerTrack > 0 {
		geo = CHS{Heads: heads, SectorsPerTrack: sectorsPerTrack, Cylinders: int(blocks / int64(heads*sectorsPerTrack))}
	}
	return &File{f: f, name: name, blocks: blocks, geo: geo}, nil
}

// Close detaches the file.
func (d *File) Close() error {
	if d.f == nil {
		return errNotAttached
	}
	err := d.f.Close()
	d.f = nil
	return err
}

// Blocks returns the number of pages in the image.
func (d *File) Blocks() int64 { return d.blocks }

// Geometry returns the CHS descriptor populated at open/create time.
func (d *File) Geometry() CHS { return d.geo }

// Name returns the attached file's path.
func (d *File) Name() string { return d.name }

// checkBlock validates block is in range; an out-of-range block request
// is a caller contract violation and fatal.
func (d *File) checkBlock(block int64, count int) {
	if d.f == nil {
		panic(errNotAttached)
	}
	if block < 0 || block+int64(count) > d.blocks {
		panic(fmt.Errorf("diskfile: %s: block range [%d,%d) out of range [0,%d)",
			d.name, block, block+int64(count), d.blocks))
	}
}

// ReadPage reads one page into buf, which must be exactly PageSize/2
// words long.
func (d *File) ReadPage(block int64, buf []uint16) error {
	d.checkBlock(block, 1)
	raw := make([]byte, PageSize)
	if _, err := d.f.ReadAt(raw, block*PageSize); err != nil {
		return err
	}
	for i := range buf {
		buf[i] = uint16(raw[2*i])<<8 | uint16(raw[2*i+1])
	}
	return nil
}

// WritePage writes one page from buf.
func (d *File) WritePage(block int64, buf []uint16) error {
	d.checkBlock(block, 1)
	raw := make([]byte, PageSize)
	for i, w := range buf {
		raw[2*i] = byte(w >> 8)
		raw[2*i+1] = byte(w)
	}
	_, err := d.f.WriteAt(raw, block*PageSize)
	return err
}

// ZeroPage zero-fills one page.
func (d *File) ZeroPage(block int64) error {
	d.checkBlock(block, 1)
	raw := make([]byte, PageSize)
	_, err := d.f.WriteAt(raw, block*PageSize)
	return err
}

// VerifyPage reports whether the on-disk page equals buf.
func (d *File) VerifyPage(block int64, buf []uint16) (bool, error) {
	d.checkBlock(block, 1)
	onDisk := make([]uint16, len(buf))
	if err := d.ReadPage(block, onDisk); err != nil {
		return false, err
	}
	for i := range buf {
		if buf[i] != onDisk[i] {
			return false, nil
		}
	}
	return true, nil
}
