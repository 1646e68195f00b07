/*
 * selection.go, part of gmolsim/xtc
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

import "github.com/RoaringBitmap/roaring/v2"

// FrameSelection chooses which frame ordinals of a trajectory to read, and
// in what order. A nil FrameSelection selects every frame. Resolving a
// selection needs the total frame count, so the frame index must be built
// first.
type FrameSelection interface {
	resolve(frameCount int, filename string) ([]int, error)
}

// FrameRange selects frames with Python slice semantics: Start and Stop may
// be nil for open bounds, negative values count from the end, and a negative
// Step walks the trajectory backwards. A Step of 0 is taken as 1. The zero
// value selects every frame.
type FrameRange struct {
	Start *int
	Stop  *int
	Step  int
}

// Span returns a FrameRange covering [start, stop) with the given step.
func Span(start, stop, step int) *FrameRange {
	return &FrameRange{Start: &start, Stop: &stop, Step: step}
}

// From returns a FrameRange covering every frame from start onwards.
func From(start int) *FrameRange {
	return &FrameRange{Start: &start, Step: 1}
}

// UpTo returns a FrameRange covering frames [0, stop) with the given step.
func UpTo(stop, step int) *FrameRange {
	return &FrameRange{Stop: &stop, Step: step}
}

func (s *FrameRange) resolve(n int, filename string) ([]int, error) {
	step := s.Step
	if step == 0 {
		step = 1
	}
	//Bound and clamp exactly as Python's slice machinery does.
	var lower, upper int
	if step < 0 {
		lower, upper = -1, n-1
	} else {
		lower, upper = 0, n
	}
	begin := lower
	if step < 0 {
		begin = upper
	}
	if s.Start != nil {
		begin = *s.Start
		if begin < 0 {
			begin += n
			if begin < lower {
				begin = lower
			}
		} else if begin > upper {
			begin = upper
		}
	}
	end := upper
	if step < 0 {
		end = lower
	}
	if s.Stop != nil {
		end = *s.Stop
		if end < 0 {
			end += n
			if end < lower {
				end = lower
			}
		} else if end > upper {
			end = upper
		}
	}
	var ordinals []int
	if step > 0 {
		for i := begin; i < end; i += step {
			ordinals = append(ordinals, i)
		}
	} else {
		for i := begin; i > end; i += step {
			ordinals = append(ordinals, i)
		}
	}
	return ordinals, nil
}

// FrameList selects frames by explicit ordinals, visited in the given order.
// Repeats are allowed; negative ordinals count from the end.
type FrameList []int

func (l FrameList) resolve(n int, filename string) ([]int, error) {
	ordinals := make([]int, len(l))
	for i, ord := range l {
		if ord < 0 {
			ord += n
		}
		if ord < 0 || ord >= n {
			return nil, Error{OutOfRangeSelection, filename, []string{"FrameList.resolve"}, true}
		}
		ordinals[i] = ord
	}
	return ordinals, nil
}

func resolveFrameSelection(sel FrameSelection, n int, filename string) ([]int, error) {
	if sel == nil {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all, nil
	}
	return sel.resolve(n, filename)
}

// AtomSelection chooses which atom rows of each decoded frame to keep. A nil
// AtomSelection keeps every atom. The resolved index sequence is applied
// uniformly to every selected frame.
type AtomSelection interface {
	resolve(natoms int, filename string) ([]int, error)
}

// AtomList selects atoms by index, preserving the given order and allowing
// repeats. Every index must be in [0, natoms).
type AtomList []int

func (l AtomList) resolve(natoms int, filename string) ([]int, error) {
	indices := make([]int, len(l))
	for i, a := range l {
		if a < 0 || a >= natoms {
			return nil, Error{OutOfRangeSelection, filename, []string{"AtomList.resolve"}, true}
		}
		indices[i] = a
	}
	return indices, nil
}

// AtomMask selects atoms through a membership mask; the selected atoms come
// out in ascending index order. The mask is held as a compressed bitmap.
type AtomMask struct {
	bm *roaring.Bitmap
}

// NewAtomMask builds an AtomMask from a bool per atom. The mask may be
// shorter than the frame; atoms beyond its end are excluded.
func NewAtomMask(mask []bool) *AtomMask {
	bm := roaring.New()
	for i, in := range mask {
		if in {
			bm.Add(uint32(i))
		}
	}
	return &AtomMask{bm: bm}
}

// AtomMaskOf builds an AtomMask containing the given atom indices.
func AtomMaskOf(indices ...uint32) *AtomMask {
	return &AtomMask{bm: roaring.BitmapOf(indices...)}
}

func (m *AtomMask) resolve(natoms int, filename string) ([]int, error) {
	if !m.bm.IsEmpty() && int(m.bm.Maximum()) >= natoms {
		return nil, Error{OutOfRangeSelection, filename, []string{"AtomMask.resolve"}, true}
	}
	indices := make([]int, 0, m.bm.GetCardinality())
	it := m.bm.Iterator()
	for it.HasNext() {
		indices = append(indices, int(it.Next()))
	}
	return indices, nil
}

// AtomsUntil selects the first n atoms of every frame. Reads can stop
// decoding a frame's compressed block as soon as those atoms are out.
type AtomsUntil int

func (u AtomsUntil) resolve(natoms int, filename string) ([]int, error) {
	n := int(u)
	if n < 0 || n > natoms {
		return nil, Error{OutOfRangeSelection, filename, []string{"AtomsUntil.resolve"}, true}
	}
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	return indices, nil
}

// resolveAtomSelection returns the atom indices to keep (nil meaning all of
// them) plus the number of leading atoms that must be decoded to satisfy the
// selection.
func resolveAtomSelection(sel AtomSelection, natoms int, filename string) ([]int, int, error) {
	if sel == nil {
		return nil, natoms, nil
	}
	indices, err := sel.resolve(natoms, filename)
	if err != nil {
		return nil, 0, err
	}
	need := 0
	for _, a := range indices {
		if a+1 > need {
			need = a + 1
		}
	}
	return indices, need, nil
}
