/*
 * header.go, part of gmolsim/xtc
 *
 * Copyright 2024 The gmolsim authors
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License  as published by
 * the Free Software Foundation; either version 2.1 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General Public License
 * along with this program; if not, write to the Free Software
 * Foundation, Inc., 51 Franklin Street, Fifth Floor, Boston,
 * MA 02110-1301, USA.
 */

package xtc

import (
	"encoding/binary"
	"io"
)

// Magic is the format-identifying constant at the start of every frame record.
const Magic int32 = 1995

// Frames with at most this many atoms store their positions as plain
// big-endian floats, with no precision word and no compressed block.
const maxUncompressedAtoms = 9

const (
	//magic, natoms, step, time, 9 box floats, natoms repeated.
	headerBaseSize = 14 * 4
	//precision, minint[3], maxint[3], smallidx, byte count of the compressed block.
	compressedPreludeSize = 9 * 4
)

// Header is the fixed-layout preamble of one frame record. Immutable once
// parsed. The compression fields (Precision and onwards) are only meaningful
// when Compressed() is true.
type Header struct {
	Natoms         int
	Step           int64
	Time           float64
	Box            [3][3]float64
	Precision      float32
	MinInt         [3]int32
	MaxInt         [3]int32
	SmallIdx       int32
	CompressedSize uint32
}

// Compressed tells whether the positions that follow this header are stored
// as a compressed block rather than as plain floats.
func (h *Header) Compressed() bool {
	return h.Natoms > maxUncompressedAtoms
}

// padding returns the number of bytes needed to round n up to the 32-bit
// blocks XDR works in.
func padding(n int) int {
	return (4 - n%4) % 4
}

// RecordLen returns the byte length of the whole frame record, header and
// payload included, which is what an index scan must skip to land on the
// next frame.
func (h *Header) RecordLen() int64 {
	if !h.Compressed() {
		return headerBaseSize + int64(h.Natoms)*3*4
	}
	n := int(h.CompressedSize)
	return headerBaseSize + compressedPreludeSize + int64(n+padding(n))
}

// readErr translates the io errors of a partial header read into the package
// taxonomy. Running out of bytes mid-record is TruncatedInput; the caller
// decides whether that is a tolerable tail or a fatal condition.
func readErr(err error, filename string, caller string) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return Error{TruncatedInput, filename, []string{caller}, true}
	}
	return Error{err.Error(), filename, []string{caller}, true}
}

// parseHeader reads one frame header from r, which must be positioned at the
// start of a frame record. All multi-byte values are big-endian.
func parseHeader(r io.Reader, filename string) (*Header, error) {
	var magic int32
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return nil, readErr(err, filename, "parseHeader")
	}
	if magic != Magic {
		return nil, Error{WrongMagicNumber, filename, []string{"parseHeader"}, true}
	}
	var fixed struct {
		Natoms  int32
		Step    int32
		Time    float32
		Box     [9]float32
		Natoms2 int32
	}
	if err := binary.Read(r, binary.BigEndian, &fixed); err != nil {
		return nil, readErr(err, filename, "parseHeader")
	}
	if fixed.Natoms < 0 || fixed.Natoms != fixed.Natoms2 {
		return nil, Error{CorruptFrame, filename, []string{"parseHeader"}, true}
	}
	h := new(Header)
	h.Natoms = int(fixed.Natoms)
	h.Step = int64(fixed.Step)
	h.Time = float64(fixed.Time)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			h.Box[i][j] = float64(fixed.Box[i*3+j])
		}
	}
	if !h.Compressed() {
		return h, nil
	}
	var prelude struct {
		Precision float32
		MinInt    [3]int32
		MaxInt    [3]int32
		SmallIdx  int32
		Nbytes    uint32
	}
	if err := binary.Read(r, binary.BigEndian, &prelude); err != nil {
		return nil, readErr(err, filename, "parseHeader")
	}
	if prelude.Precision <= 0 || prelude.SmallIdx < 0 || int(prelude.SmallIdx) >= len(magicints) {
		return nil, Error{CorruptFrame, filename, []string{"parseHeader"}, true}
	}
	if prelude.Nbytes > 1<<30 {
		return nil, Error{CorruptFrame, filename, []string{"parseHeader"}, true}
	}
	h.Precision = prelude.Precision
	h.MinInt = prelude.MinInt
	h.MaxInt = prelude.MaxInt
	h.SmallIdx = prelude.SmallIdx
	h.CompressedSize = prelude.Nbytes
	return h, nil
}
