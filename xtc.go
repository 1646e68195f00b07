/*
 * xtc.go, part of gmolsim/xtc
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
	"runtime"

	"gonum.org/v1/gonum/mat"
)

// Frame is one decoded timestep: positions in nanometers, the box matrix,
// and the time and step metadata. Frames are created fresh per read call and
// never shared with the reader afterwards.
type Frame struct {
	Step      int64
	Time      float64
	Precision float32
	Box       [3][3]float32
	//Positions holds natoms*3 values, xyz per atom, in nanometers.
	Positions []float32
}

// Natoms returns the number of atoms in the frame.
func (F *Frame) Natoms() int {
	return len(F.Positions) / 3
}

// Dense returns the positions as a freshly allocated natoms x 3 gonum
// matrix, still in nanometers.
func (F *Frame) Dense() *mat.Dense {
	n := F.Natoms()
	data := make([]float64, len(F.Positions))
	for i, v := range F.Positions {
		data[i] = float64(v)
	}
	return mat.NewDense(n, 3, data)
}

// XTC is a reader for a GROMACS XTC binary trajectory file. It owns the
// underlying file exclusively, keeps a frame index for random access, and a
// sequential cursor for ReadFrame/PopFrame. One XTC must not be used from
// several goroutines at once without external synchronization; the batch
// reads parallelize internally.
type XTC struct {
	ra       io.ReaderAt
	closer   io.Closer
	size     int64
	filename string
	natoms   int
	index    *frameIndex
	cursor   int //next sequential frame ordinal
	closed   bool
	buffered bool
	workers  int
	scratch  []byte //payload buffer reused by sequential reads
}

// New opens an XTC trajectory for reading and builds its frame index. The
// error from os.Open is passed through when the file cannot be opened at
// all; an unrecognizable or frameless file fails with WrongMagicNumber or
// EmptyOrInvalidTrajectory.
func New(filename string) (*XTC, error) {
	X := new(XTC)
	X.filename = filename
	var err error
	X.ra, X.closer, X.size, err = prepSource(filename)
	if err != nil {
		return nil, err
	}
	X.index, err = buildIndex(X.ra, X.size, filename)
	if err != nil {
		X.Close()
		return nil, errDecorate(err, "New")
	}
	h, err := parseHeader(io.NewSectionReader(X.ra, 0, X.size), filename)
	if err != nil {
		X.Close()
		return nil, errDecorate(err, "New")
	}
	X.natoms = h.Natoms
	X.buffered = true
	X.workers = runtime.NumCPU()
	//This should close the file if the caller never does.
	runtime.SetFinalizer(X, func(X *XTC) {
		X.Close()
	})
	return X, nil
}

// Readable returns true if the object is ready to be read from. It doesn't
// guarantee that there is something to read.
func (X *XTC) Readable() bool {
	return !X.closed && X.index != nil
}

// Len returns the number of atoms per frame. 0 means an uninitialized object.
func (X *XTC) Len() int {
	return X.natoms
}

// FrameCount returns the number of complete frames in the trajectory, as
// counted by the index.
func (X *XTC) FrameCount() int {
	if X.index == nil {
		return 0
	}
	return X.index.frameCount()
}

// Offsets returns the byte offset of every indexed frame, in ordinal order.
func (X *XTC) Offsets() []int64 {
	if X.index == nil {
		return nil
	}
	out := make([]int64, len(X.index.offsets))
	copy(out, X.index.offsets)
	return out
}

// Buffered reports whether compressed blocks are read in chunks as decoding
// consumes them, rather than whole.
func (X *XTC) Buffered() bool {
	return X.buffered
}

// SetBuffered switches between chunked and whole-block payload reads.
// Buffered reads let a prefix atom selection skip most of a big frame's
// payload; unbuffered reads can be faster when most atoms are wanted.
func (X *XTC) SetBuffered(buffered bool) {
	X.buffered = buffered
}

// SetConcurrency caps the number of frames that ReadFrames and ReadIntoArray
// decode in parallel. Values below 1 reset the cap to the number of CPUs.
func (X *XTC) SetConcurrency(n int) {
	if n < 1 {
		n = runtime.NumCPU()
	}
	X.workers = n
}

// Home resets the sequential cursor back to the first frame.
func (X *XTC) Home() error {
	if X.closed {
		return Error{ReaderClosed, X.filename, []string{"Home"}, true}
	}
	X.cursor = 0
	return nil
}

// Refresh rebuilds the frame index from the file. It is needed when the file
// may have been appended to since the index was built; growth is never
// detected automatically. The sequential cursor keeps its position.
func (X *XTC) Refresh() error {
	if X.closed {
		return Error{ReaderClosed, X.filename, []string{"Refresh"}, true}
	}
	if X.ra == nil {
		return Error{TrajUnIni, X.filename, []string{"Refresh"}, true}
	}
	if f, ok := X.ra.(sizer); ok {
		size, err := f.sourceSize()
		if err != nil {
			return Error{err.Error(), X.filename, []string{"Refresh"}, true}
		}
		X.size = size
	}
	index, err := buildIndex(X.ra, X.size, X.filename)
	if err != nil {
		return errDecorate(err, "Refresh")
	}
	X.index = index
	return nil
}

// ReadFrame decodes the frame at the sequential cursor, advances the cursor
// by one and returns the frame. Past the last frame it returns an error
// satisfying LastFrameError, which signals normal termination rather than a
// real failure.
func (X *XTC) ReadFrame() (*Frame, error) {
	if X.closed {
		return nil, Error{ReaderClosed, X.filename, []string{"ReadFrame"}, true}
	}
	if X.index == nil {
		return nil, Error{TrajUnIni, X.filename, []string{"ReadFrame"}, true}
	}
	if X.cursor >= X.index.frameCount() {
		return nil, newlastFrameError(X.filename, "ReadFrame")
	}
	fr, err := X.frameAt(X.index.offsetOf(X.cursor), X.natoms, &X.scratch)
	if err != nil {
		return nil, errDecorate(err, "ReadFrame")
	}
	X.cursor++
	return fr, nil
}

// PopFrame reads the next sequential frame. It is ReadFrame under the name
// streaming call sites expect.
func (X *XTC) PopFrame() (*Frame, error) {
	return X.ReadFrame()
}

// Next reads the next frame into the given gonum matrix, which must have at
// least natoms rows and 3 columns, converting from nanometers to Angstroms.
// If a box slice of at least 9 elements is given, the box vectors are put
// there, also in Angstroms. A nil output matrix discards the coordinates but
// still checks and consumes the frame.
func (X *XTC) Next(output *mat.Dense, box ...[]float64) error {
	fr, err := X.ReadFrame()
	if err != nil {
		return err
	}
	if output != nil {
		r, c := output.Dims()
		if r < fr.Natoms() || c < 3 {
			panic("Buffer matrix too small to hold trajectory frame")
		}
		for j := 0; j < fr.Natoms(); j++ {
			for k := 0; k < 3; k++ {
				output.Set(j, k, 10*float64(fr.Positions[j*3+k])) //nm to Angstroms
			}
		}
	}
	if len(box) > 0 && len(box[0]) >= 9 {
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				box[0][i*3+j] = 10 * float64(fr.Box[i][j])
			}
		}
	}
	return nil
}

// Close closes the underlying file and marks the reader as unusable. Any
// operation after Close fails with ReaderClosed.
func (X *XTC) Close() {
	if X.closed {
		return
	}
	if X.closer != nil {
		X.closer.Close()
	}
	X.closed = true
}

// sizer is satisfied by sources whose length can change under the reader,
// which in practice means plain files. In-memory decompressed sources are
// fixed for the reader's lifetime.
type sizer interface {
	sourceSize() (int64, error)
}

// frameAt decodes the frame record at the given byte offset. Decoding stops
// after the first need atoms; pass the frame's atom count for a full decode.
// Each call works on its own section reader, so concurrent calls are safe.
func (X *XTC) frameAt(offset int64, need int, scratch *[]byte) (*Frame, error) {
	sr := io.NewSectionReader(X.ra, offset, X.size-offset)
	h, err := parseHeader(sr, X.filename)
	if err != nil {
		return nil, err
	}
	fr := &Frame{
		Step:      h.Step,
		Time:      h.Time,
		Precision: h.Precision,
		Positions: make([]float32, h.Natoms*3),
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			fr.Box[i][j] = float32(h.Box[i][j])
		}
	}
	if !h.Compressed() {
		if err := binary.Read(sr, binary.BigEndian, fr.Positions); err != nil {
			return nil, readErr(err, X.filename, "frameAt")
		}
		return fr, nil
	}
	if need > h.Natoms {
		need = h.Natoms
	}
	nbytes := int(h.CompressedSize)
	var br *bitReader
	if X.buffered {
		br = newBufferedBitReader(payloadBlocks(sr, nbytes, X.filename), X.filename)
	} else {
		var buf []byte
		if scratch != nil {
			if cap(*scratch) < nbytes {
				*scratch = make([]byte, nbytes)
			}
			buf = (*scratch)[:nbytes]
		} else {
			buf = make([]byte, nbytes)
		}
		if _, err := io.ReadFull(sr, buf); err != nil {
			return nil, readErr(err, X.filename, "frameAt")
		}
		br = newBitReader(buf, X.filename)
	}
	if _, err := decodeCoords(br, h, fr.Positions, need); err != nil {
		return nil, err
	}
	if need >= h.Natoms {
		//A full decode must account for the declared block, short of the
		//final flush byte and the XDR padding.
		if slack := nbytes - br.tell(); slack < 0 || slack > 3 {
			return nil, Error{CorruptFrame, X.filename, []string{"frameAt"}, true}
		}
	}
	return fr, nil
}

// payloadBlockSize bounds how much of a compressed block a buffered read
// pulls in at a time.
const payloadBlockSize = 0x20000

// payloadBlocks returns the grow callback a buffered bitReader pulls payload
// chunks through. Short reads against the declared byte count surface as
// TruncatedInput.
func payloadBlocks(r io.Reader, nbytes int, filename string) func([]byte) ([]byte, error) {
	remain := nbytes
	return func(data []byte) ([]byte, error) {
		if remain == 0 {
			return data, nil //no progress; the caller reports TruncatedInput
		}
		n := payloadBlockSize
		if n > remain {
			n = remain
		}
		old := len(data)
		data = append(data, make([]byte, n)...)
		if _, err := io.ReadFull(r, data[old:]); err != nil {
			return nil, readErr(err, filename, "payloadBlocks")
		}
		remain -= n
		return data, nil
	}
}

// filterAtoms assembles a new frame holding only the selected atom rows, in
// the selection's order. A nil selection returns the frame untouched.
func filterAtoms(fr *Frame, atoms []int) *Frame {
	if atoms == nil {
		return fr
	}
	sel := &Frame{
		Step:      fr.Step,
		Time:      fr.Time,
		Precision: fr.Precision,
		Box:       fr.Box,
		Positions: make([]float32, len(atoms)*3),
	}
	for i, a := range atoms {
		copy(sel.Positions[i*3:i*3+3], fr.Positions[a*3:a*3+3])
	}
	return sel
}
