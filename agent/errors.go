/*
 * Guam - agent framework error types.
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

package agent

import "fmt"

// CyclicChainError is raised when an IOCB chain exceeds MaxHop links
// without terminating. Guest chains may cycle; a chain longer than the
// iteration bound is treated as fatal rather than walked forever.
type CyclicChainError struct {
	Root   uint32
	MaxHop int
}

func (e *CyclicChainError) Error() string {
	return fmt.Sprintf("agent: IOCB chain at %#x exceeded %d links", e.Root, e.MaxHop)
}

// InvalidDeviceIndexError is raised when an IOCB names a deviceIndex not
// less than FCB.numberOfDCBs.
type InvalidDeviceIndexError struct {
	Index int
	Limit int
}

func (e *InvalidDeviceIndexError) Error() string {
	return fmt.Sprintf("agent: deviceIndex %d out of range [0,%d)", e.Index, e.Limit)
}

// InvalidCommandError is raised when an IOCB names a command other than
// read, write or verify.
type InvalidCommandError struct {
	Command Command
}

func (e *InvalidCommandError) Error() string {
	return fmt.Sprintf("agent: unrecognized IOCB command %d", e.Command)
}

// InvalidPageCountError is raised when an IOCB names a negative page
// count.
type InvalidPageCountError struct {
	PageCount int
}

func (e *InvalidPageCountError) Error() string {
	return fmt.Sprintf("agent: negative pageCount %d", e.PageCount)
}

// ShortIOCBError is raised when the guest region backing an IOCB does not
// span the full IOCB layout.
type ShortIOCBError struct {
	Addr uint32
	Got  int
}

func (e *ShortIOCBError) Error() string {
	return fmt.Sprintf("agent: IOCB at %#x has only %d words available", e.Addr, e.Got)
}
