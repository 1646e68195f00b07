/*
 * conc.go, part of gmolsim/xtc
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
	"golang.org/x/sync/errgroup"
)

// ReadFrames resolves the selections against the frame index and returns the
// selected frames in the selection's order, each holding only the selected
// atoms. Frames are decoded independently and in parallel; the sequential
// cursor is not touched. A failing frame aborts the whole call with no
// partial result. Nil selections mean all frames and all atoms.
func (X *XTC) ReadFrames(frames FrameSelection, atoms AtomSelection) ([]*Frame, error) {
	if X.closed {
		return nil, Error{ReaderClosed, X.filename, []string{"ReadFrames"}, true}
	}
	if X.index == nil {
		return nil, Error{TrajUnIni, X.filename, []string{"ReadFrames"}, true}
	}
	ordinals, err := resolveFrameSelection(frames, X.index.frameCount(), X.filename)
	if err != nil {
		return nil, errDecorate(err, "ReadFrames")
	}
	rows, need, err := resolveAtomSelection(atoms, X.natoms, X.filename)
	if err != nil {
		return nil, errDecorate(err, "ReadFrames")
	}
	out := make([]*Frame, len(ordinals))
	var g errgroup.Group
	g.SetLimit(X.workers)
	for i, ord := range ordinals {
		i, ord := i, ord
		g.Go(func() error {
			fr, err := X.frameAt(X.index.offsetOf(ord), need, nil)
			if err != nil {
				return errDecorate(err, "ReadFrames")
			}
			if fr.Natoms() != X.natoms {
				return Error{ShapeMismatch, X.filename, []string{"ReadFrames"}, true}
			}
			out[i] = filterAtoms(fr, rows)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ReadIntoArray works like ReadFrames but writes the decoded values into
// caller-owned, pre-shaped flat buffers instead of allocating frames:
// coords must hold nframes*natoms*3 values, boxvecs nframes*3*3, and times,
// if not nil, nframes, where nframes and natoms are the counts the resolved
// selections produce. Any disagreement fails with ShapeMismatch before
// anything is read. Either every selected frame is written or none is;
// on error the buffer contents are unspecified.
func (X *XTC) ReadIntoArray(coords []float32, boxvecs []float32, times []float64, frames FrameSelection, atoms AtomSelection) error {
	if X.closed {
		return Error{ReaderClosed, X.filename, []string{"ReadIntoArray"}, true}
	}
	if X.index == nil {
		return Error{TrajUnIni, X.filename, []string{"ReadIntoArray"}, true}
	}
	ordinals, err := resolveFrameSelection(frames, X.index.frameCount(), X.filename)
	if err != nil {
		return errDecorate(err, "ReadIntoArray")
	}
	rows, need, err := resolveAtomSelection(atoms, X.natoms, X.filename)
	if err != nil {
		return errDecorate(err, "ReadIntoArray")
	}
	nframes := len(ordinals)
	nsel := X.natoms
	if rows != nil {
		nsel = len(rows)
	}
	if len(coords) != nframes*nsel*3 {
		return Error{ShapeMismatch, X.filename, []string{"ReadIntoArray"}, true}
	}
	if len(boxvecs) != nframes*9 {
		return Error{ShapeMismatch, X.filename, []string{"ReadIntoArray"}, true}
	}
	if times != nil && len(times) != nframes {
		return Error{ShapeMismatch, X.filename, []string{"ReadIntoArray"}, true}
	}
	var g errgroup.Group
	g.SetLimit(X.workers)
	for i, ord := range ordinals {
		i, ord := i, ord
		g.Go(func() error {
			fr, err := X.frameAt(X.index.offsetOf(ord), need, nil)
			if err != nil {
				return errDecorate(err, "ReadIntoArray")
			}
			if fr.Natoms() != X.natoms {
				return Error{ShapeMismatch, X.filename, []string{"ReadIntoArray"}, true}
			}
			dst := coords[i*nsel*3 : (i+1)*nsel*3]
			if rows == nil {
				copy(dst, fr.Positions)
			} else {
				for j, a := range rows {
					copy(dst[j*3:j*3+3], fr.Positions[a*3:a*3+3])
				}
			}
			for bi := 0; bi < 3; bi++ {
				for bj := 0; bj < 3; bj++ {
					boxvecs[i*9+bi*3+bj] = fr.Box[bi][bj]
				}
			}
			if times != nil {
				times[i] = fr.Time
			}
			return nil
		})
	}
	return g.Wait()
}
