/*
 * writer_test.go, part of gmolsim/xtc
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

// A minimal XTC encoder, enough to synthesize the fixture trajectories the
// tests read back. It understands two encodings per atom: full-width literal
// triplets, and two-atom runs of small deltas, which together cover the
// decoder's hot paths. Not part of the public API; writing is out of scope.

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

type bitWriter struct {
	out  []byte
	acc  uint64
	bits uint
}

func (w *bitWriter) writeBits(v uint32, nbits int) {
	w.acc = w.acc<<uint(nbits) | uint64(v&(uint32(1)<<uint(nbits)-1))
	w.bits += uint(nbits)
	for w.bits >= 8 {
		w.out = append(w.out, byte(w.acc>>(w.bits-8)))
		w.bits -= 8
	}
}

func (w *bitWriter) writeInts(nbits int, sizes [3]uint32, nums [3]int32) {
	v := (uint64(uint32(nums[0]))*uint64(sizes[1])+uint64(uint32(nums[1])))*uint64(sizes[2]) + uint64(uint32(nums[2]))
	for nbits >= 8 {
		w.writeBits(uint32(v&0xff), 8)
		v >>= 8
		nbits -= 8
	}
	if nbits > 0 {
		w.writeBits(uint32(v)&(uint32(1)<<uint(nbits)-1), nbits)
	}
}

func (w *bitWriter) flush() []byte {
	if w.bits > 0 {
		w.out = append(w.out, byte(w.acc<<(8-w.bits)))
		w.bits = 0
	}
	return w.out
}

// testFrame is the input to the fixture encoder, plus the values a decoder
// is expected to reproduce after quantization.
type testFrame struct {
	step   int32
	time   float32
	box    [9]float32
	coords []float32 //natoms*3, nanometers
	//Filled by encodeFrame: the coordinates after the lossy fixed-precision
	//round trip, and the integer bounds the frame was encoded against.
	want   []float32
	minint [3]int32
	maxint [3]int32
}

const testPrecision = 1000.0

// encodeFrame appends one frame record for f to buf. With pairRuns set,
// consecutive atom pairs whose deltas are small enough ride the run-length
// path; everything else is encoded as literal triplets.
func encodeFrame(t *testing.T, buf *bytes.Buffer, f *testFrame, pairRuns bool) {
	t.Helper()
	natoms := len(f.coords) / 3
	be := binary.BigEndian
	w := func(v interface{}) {
		if err := binary.Write(buf, be, v); err != nil {
			t.Fatalf("encoding fixture: %v", err)
		}
	}
	w(Magic)
	w(int32(natoms))
	w(f.step)
	w(f.time)
	w(f.box)
	w(int32(natoms))
	f.want = make([]float32, len(f.coords))
	if natoms <= maxUncompressedAtoms {
		copy(f.want, f.coords)
		w(f.coords)
		return
	}
	prec := float32(testPrecision)
	ints := make([][3]int32, natoms)
	minint := [3]int32{math.MaxInt32, math.MaxInt32, math.MaxInt32}
	maxint := [3]int32{math.MinInt32, math.MinInt32, math.MinInt32}
	for i := 0; i < natoms; i++ {
		for d := 0; d < 3; d++ {
			v := int32(math.Round(float64(f.coords[i*3+d]) * testPrecision))
			ints[i][d] = v
			if v < minint[d] {
				minint[d] = v
			}
			if v > maxint[d] {
				maxint[d] = v
			}
			f.want[i*3+d] = float32(v) * (1.0 / prec)
		}
	}
	f.minint, f.maxint = minint, maxint
	var sizeint, bitsizeint [3]uint32
	bitsize := calcSizeint(minint, maxint, &sizeint, &bitsizeint)
	smallidx := firstidx + 1
	smallnum := magicints[smallidx] / 2
	sizesmall := [3]uint32{uint32(magicints[smallidx]), uint32(magicints[smallidx]), uint32(magicints[smallidx])}

	bw := new(bitWriter)
	writeBig := func(v [3]int32) {
		diff := [3]int32{v[0] - minint[0], v[1] - minint[1], v[2] - minint[2]}
		if bitsize == 0 {
			for d := 0; d < 3; d++ {
				bw.writeBits(uint32(diff[d]), int(bitsizeint[d]))
			}
		} else {
			bw.writeInts(int(bitsize), sizeint, diff)
		}
	}
	smallFits := func(a, b [3]int32) bool {
		for d := 0; d < 3; d++ {
			s := a[d] - b[d] + smallnum
			if s < 0 || s >= magicints[smallidx] {
				return false
			}
		}
		return true
	}
	for i := 0; i < natoms; {
		if pairRuns && i+1 < natoms && smallFits(ints[i], ints[i+1]) {
			//The run path stores the second atom of the pair as the big
			//triplet and the first as a small delta against it, which the
			//decoder swaps back.
			writeBig(ints[i+1])
			bw.writeBits(1, 1)
			bw.writeBits(4, 5) //one small triplet, no width change
			small := [3]int32{
				ints[i][0] - ints[i+1][0] + smallnum,
				ints[i][1] - ints[i+1][1] + smallnum,
				ints[i][2] - ints[i+1][2] + smallnum,
			}
			bw.writeInts(smallidx, sizesmall, small)
			i += 2
			continue
		}
		writeBig(ints[i])
		bw.writeBits(0, 1)
		i++
	}
	payload := bw.flush()
	w(prec)
	w(minint)
	w(maxint)
	w(int32(smallidx))
	w(uint32(len(payload)))
	w(payload)
	for p := 0; p < padding(len(payload)); p++ {
		w(byte(0))
	}
}

// makeFrames builds nframes deterministic frames of natoms atoms each. When
// tight is true, consecutive atoms sit close together so the run-length path
// gets exercised; otherwise atoms are spread out and encode as literals.
func makeFrames(nframes, natoms int, tight bool) []*testFrame {
	spread := float32(0.1)
	if tight {
		spread = 0.002
	}
	frames := make([]*testFrame, nframes)
	for fi := 0; fi < nframes; fi++ {
		f := &testFrame{
			step: int32(fi * 10),
			time: float32(fi) * 0.5,
			box: [9]float32{
				3.0 + float32(fi)*0.01, 0, 0,
				0, 3.0, 0,
				0, 0, 3.0,
			},
			coords: make([]float32, natoms*3),
		}
		for ai := 0; ai < natoms; ai++ {
			for d := 0; d < 3; d++ {
				f.coords[ai*3+d] = float32(ai)*spread + float32(d)*0.001 + float32(fi)*0.011
			}
		}
		frames[fi] = f
	}
	return frames
}

// encodeTrajectory encodes the frames and returns the raw file bytes.
func encodeTrajectory(t *testing.T, frames []*testFrame, pairRuns bool) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	for _, f := range frames {
		encodeFrame(t, buf, f, pairRuns)
	}
	return buf.Bytes()
}

// writeTrajectory writes a synthetic trajectory under the test's temp dir
// and returns its path along with the encoded frames.
func writeTrajectory(t *testing.T, name string, nframes, natoms int, tight, pairRuns bool) (string, []*testFrame) {
	t.Helper()
	frames := makeFrames(nframes, natoms, tight)
	data := encodeTrajectory(t, frames, pairRuns)
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing fixture %s: %v", path, err)
	}
	return path, frames
}

// almostEqual compares two coordinate slices within the tolerance the lossy
// fixed-precision scheme warrants.
func almostEqual(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		d := float64(a[i] - b[i])
		if d < -1e-5 || d > 1e-5 {
			return false
		}
	}
	return true
}
