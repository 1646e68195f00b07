/*
 * index.go, part of gmolsim/xtc
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

import "io"

// frameIndex maps frame ordinals to the byte offsets of their records. It is
// a derived cache: rebuilt wholesale from the file, never patched in place.
// Offsets are strictly increasing with the ordinal.
type frameIndex struct {
	offsets []int64
}

func (x *frameIndex) frameCount() int {
	return len(x.offsets)
}

func (x *frameIndex) offsetOf(ordinal int) int64 {
	return x.offsets[ordinal]
}

// buildIndex scans the trajectory from byte 0, parsing each header and
// skipping each record, until the end of the source. A record that runs out
// of bytes at the tail is taken as an incomplete final frame and left out;
// if not even one complete frame exists the trajectory is empty or invalid.
// Any structural mismatch before the tail is fatal.
func buildIndex(ra io.ReaderAt, size int64, filename string) (*frameIndex, error) {
	var offsets []int64
	pos := int64(0)
	for pos < size {
		sr := io.NewSectionReader(ra, pos, size-pos)
		h, err := parseHeader(sr, filename)
		if err != nil {
			if terr, ok := err.(Error); ok && terr.Message() == TruncatedInput {
				break //incomplete record at the tail
			}
			return nil, errDecorate(err, "buildIndex")
		}
		rec := h.RecordLen()
		if pos+rec > size {
			break //the payload is cut short; drop the final frame
		}
		offsets = append(offsets, pos)
		pos += rec
	}
	if len(offsets) == 0 {
		return nil, Error{EmptyOrInvalidTrajectory, filename, []string{"buildIndex"}, true}
	}
	return &frameIndex{offsets: offsets}, nil
}
