/*
 * doc.go, part of gmolsim/xtc
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

/*
Package xtc reads GROMACS XTC binary trajectory files in pure Go.

An XTC trajectory is a sequence of frames, each carrying the simulation box,
the time and step, and the atomic positions stored with the format's lossy
fixed-precision bit-packing scheme. The reader indexes the frames of a file
once on open, after which frames can be consumed sequentially (ReadFrame,
PopFrame, Next) or extracted in bulk by frame and atom selections
(ReadFrames, ReadIntoArray) with random access and parallel decoding.

Distances are in nanometers, except in the gonum adapter Next, which follows
the goChem convention of Angstroms.
*/
package xtc
