/*
 * codec.go, part of gmolsim/xtc
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

// The XTC coordinate block stores fixed-point integers (coordinate times
// precision) as a bit-packed stream. Most atoms ride in runs of small deltas
// against the previously decoded triplet, with the delta bit-width adapting
// up and down through the magicints table; atoms that a small delta cannot
// reach are stored as full-width literal triplets. The stream is
// self-contained per frame.

var magicints = [...]int32{
	0, 0, 0, 0, 0, 0, 0, 0, 0, 8,
	10, 12, 16, 20, 25, 32, 40, 50, 64, 80,
	101, 128, 161, 203, 256, 322, 406, 512, 645, 812,
	1024, 1290, 1625, 2048, 2580, 3250, 4096, 5060, 6501, 8192,
	10321, 13003, 16384, 20642, 26007, 32768, 41285, 52015, 65536, 82570,
	104031, 131072, 165140, 208063, 262144, 330280, 416127, 524287, 660561, 832255,
	1048576, 1321122, 1664510, 2097152, 2642245, 3329021, 4194304, 5284491, 6658042, 8388607,
	10568983, 13316085, 16777216,
}

const firstidx = 9 //note that magicints[firstidx-1] == 0

// sizeofint returns the number of bits needed to store values in [0, size].
func sizeofint(size uint32) uint32 {
	n := uint32(1)
	nbits := uint32(0)
	for size >= n && nbits < 32 {
		nbits++
		n <<= 1
	}
	return nbits
}

// sizeofints returns the number of bits needed to store three multiplexed
// values with the given sizes, computed with schoolbook multiplication so the
// product may exceed 64 bits.
func sizeofints(sizes [3]uint32) uint32 {
	nbytes := 1
	var bytes [32]byte
	bytes[0] = 1
	nbits := uint32(0)
	for _, size := range sizes {
		tmp := uint32(0)
		bytecount := 0
		for bytecount < nbytes {
			tmp += uint32(bytes[bytecount]) * size
			bytes[bytecount] = byte(tmp)
			tmp >>= 8
			bytecount++
		}
		for tmp != 0 {
			bytes[bytecount] = byte(tmp)
			bytecount++
			tmp >>= 8
		}
		nbytes = bytecount
	}
	nbytes--
	num := uint32(1)
	for uint32(bytes[nbytes]) >= num {
		nbits++
		num *= 2
	}
	return uint32(nbytes)*8 + nbits
}

// calcSizeint derives the per-frame integer ranges from the header's min and
// max integers. A return of 0 flags that the ranges are too large to be
// multiplexed, in which case each axis is stored with its own literal width
// from bitsizeint.
func calcSizeint(minint, maxint [3]int32, sizeint, bitsizeint *[3]uint32) uint32 {
	sizeint[0] = uint32(maxint[0]-minint[0]) + 1
	sizeint[1] = uint32(maxint[1]-minint[1]) + 1
	sizeint[2] = uint32(maxint[2]-minint[2]) + 1
	*bitsizeint = [3]uint32{}
	if (sizeint[0]|sizeint[1]|sizeint[2]) > 0xffffff {
		bitsizeint[0] = sizeofint(sizeint[0])
		bitsizeint[1] = sizeofint(sizeint[1])
		bitsizeint[2] = sizeofint(sizeint[2])
		return 0
	}
	return sizeofints(*sizeint)
}

// decodeCoords decompresses the coordinate block for one frame into out,
// which must hold natoms*3 values. Decoding stops early once need atoms have
// been produced; pass need == natoms for a full decode. Returns the number of
// atoms actually written.
func decodeCoords(br *bitReader, h *Header, out []float32, need int) (int, error) {
	natoms := h.Natoms
	smallidx := int(h.SmallIdx)
	if smallidx < firstidx || smallidx >= len(magicints) {
		return 0, Error{CorruptFrame, br.filename, []string{"decodeCoords"}, true}
	}
	minint := h.MinInt
	var sizeint, bitsizeint [3]uint32
	bitsize := calcSizeint(minint, h.MaxInt, &sizeint, &bitsizeint)

	tmpidx := smallidx - 1
	if firstidx > tmpidx {
		tmpidx = firstidx
	}
	smaller := magicints[tmpidx] / 2
	smallnum := magicints[smallidx] / 2
	sizesmall := [3]uint32{uint32(magicints[smallidx]), uint32(magicints[smallidx]), uint32(magicints[smallidx])}
	invPrecision := 1.0 / h.Precision

	var prevcoord, thiscoord [3]int32
	writeIdx := 0
	readIdx := 0
	for readIdx < natoms {
		if bitsize == 0 {
			for d := 0; d < 3; d++ {
				v, err := br.readBits(int(bitsizeint[d]))
				if err != nil {
					return writeIdx, err
				}
				thiscoord[d] = int32(v)
			}
		} else {
			if err := br.readInts(int(bitsize), sizeint, &thiscoord); err != nil {
				return writeIdx, err
			}
		}
		thiscoord[0] += minint[0]
		thiscoord[1] += minint[1]
		thiscoord[2] += minint[2]
		prevcoord = thiscoord

		flag, err := br.readBits(1)
		if err != nil {
			return writeIdx, err
		}
		run := 0
		isSmaller := 0
		if flag != 0 {
			v, err := br.readBits(5)
			if err != nil {
				return writeIdx, err
			}
			run = int(v)
			isSmaller = run % 3
			run -= isSmaller
			isSmaller--
		}
		//A run of run/3 small triplets writes run/3 + 1 atoms, the big
		//triplet included.
		if run > 0 && writeIdx*3+run+3 > len(out) {
			return writeIdx, Error{CorruptFrame, br.filename, []string{"decodeCoords"}, true}
		}
		if run > 0 {
			thiscoord = [3]int32{}
			for k := 0; k < run; k += 3 {
				if err := br.readInts(smallidx, sizesmall, &thiscoord); err != nil {
					return writeIdx, err
				}
				readIdx++
				thiscoord[0] += prevcoord[0] - smallnum
				thiscoord[1] += prevcoord[1] - smallnum
				thiscoord[2] += prevcoord[2] - smallnum
				if k == 0 {
					//The first pair of a run is stored swapped. Waters are
					//stored as OHH; the swap turns them back into HOH, which
					//compresses better on the way in.
					thiscoord, prevcoord = prevcoord, thiscoord
					out[writeIdx*3+0] = float32(prevcoord[0]) * invPrecision
					out[writeIdx*3+1] = float32(prevcoord[1]) * invPrecision
					out[writeIdx*3+2] = float32(prevcoord[2]) * invPrecision
					writeIdx++
				} else {
					prevcoord = thiscoord
				}
				out[writeIdx*3+0] = float32(thiscoord[0]) * invPrecision
				out[writeIdx*3+1] = float32(thiscoord[1]) * invPrecision
				out[writeIdx*3+2] = float32(thiscoord[2]) * invPrecision
				writeIdx++
				if (writeIdx+1)*3 > len(out) {
					break
				}
			}
		} else {
			out[writeIdx*3+0] = float32(thiscoord[0]) * invPrecision
			out[writeIdx*3+1] = float32(thiscoord[1]) * invPrecision
			out[writeIdx*3+2] = float32(thiscoord[2]) * invPrecision
			writeIdx++
		}

		if isSmaller < 0 {
			smallidx--
			smallnum = smaller
			if smallidx > firstidx {
				smaller = magicints[smallidx-1] / 2
			} else {
				smaller = 0
			}
		} else if isSmaller > 0 {
			smallidx++
			smaller = smallnum
			smallnum = magicints[smallidx] / 2
		}
		if smallidx < 0 || smallidx >= len(magicints) || magicints[smallidx] == 0 {
			return writeIdx, Error{CorruptFrame, br.filename, []string{"decodeCoords"}, true}
		}
		sizesmall[0] = uint32(magicints[smallidx])
		sizesmall[1] = sizesmall[0]
		sizesmall[2] = sizesmall[0]
		readIdx++

		if writeIdx >= need && need < natoms {
			return writeIdx, nil
		}
	}
	if need >= natoms && writeIdx != natoms {
		return writeIdx, Error{CorruptFrame, br.filename, []string{"decodeCoords"}, true}
	}
	return writeIdx, nil
}
