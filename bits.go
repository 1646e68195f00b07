/*
 * bits.go, part of gmolsim/xtc
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

// bitReader is a cursor over the compressed coordinate payload. Values are
// packed MSB-first with no byte alignment between them. The payload may be
// handed over complete, or grown on demand through the more callback when the
// reader is in buffered mode.
type bitReader struct {
	data     []byte
	more     func([]byte) ([]byte, error) //appends the next payload block to data. nil once exhausted.
	count    int                          //bytes consumed so far
	lastbits uint
	lastbyte uint32
	filename string
}

func newBitReader(data []byte, filename string) *bitReader {
	return &bitReader{data: data, filename: filename}
}

// newBufferedBitReader returns a bitReader that pulls payload bytes through
// more only as decoding consumes them, so a prefix atom selection does not
// pay for the whole compressed block.
func newBufferedBitReader(more func([]byte) ([]byte, error), filename string) *bitReader {
	return &bitReader{more: more, filename: filename}
}

// tell returns the number of payload bytes consumed so far.
func (b *bitReader) tell() int {
	return b.count
}

func (b *bitReader) byteAt(count int) (byte, error) {
	for count >= len(b.data) {
		if b.more == nil {
			return 0, Error{TruncatedInput, b.filename, []string{"byteAt"}, true}
		}
		grown, err := b.more(b.data)
		if err != nil {
			return 0, err
		}
		if len(grown) == len(b.data) {
			b.more = nil
			return 0, Error{TruncatedInput, b.filename, []string{"byteAt"}, true}
		}
		b.data = grown
	}
	return b.data[count], nil
}

// readBits extracts an unsigned integer of nbits (0 <= nbits <= 32) and
// advances the cursor. Returns a TruncatedInput Error if fewer bits remain.
func (b *bitReader) readBits(nbits int) (uint32, error) {
	mask := uint32(1)<<uint(nbits) - 1
	count, lastbits, lastbyte := b.count, b.lastbits, b.lastbyte
	var num uint32
	for nbits >= 8 {
		by, err := b.byteAt(count)
		if err != nil {
			return 0, err
		}
		lastbyte = lastbyte<<8 | uint32(by)
		count++
		num |= (lastbyte >> lastbits) << uint(nbits-8)
		nbits -= 8
	}
	if nbits > 0 {
		if lastbits < uint(nbits) {
			lastbits += 8
			by, err := b.byteAt(count)
			if err != nil {
				return 0, err
			}
			lastbyte = lastbyte<<8 | uint32(by)
			count++
		}
		lastbits -= uint(nbits)
		num |= (lastbyte >> lastbits) & mask
	}
	num &= mask
	b.count = count
	b.lastbits = lastbits
	b.lastbyte = lastbyte & 0xff
	return num, nil
}

// readInts unpacks three unsigned integers that were multiplexed into a
// single nbits-wide number with the given per-axis sizes. The packed number
// is stored in little-endian byte order within the bit stream.
func (b *bitReader) readInts(nbits int, sizes [3]uint32, nums *[3]int32) error {
	if nbits <= 32 {
		return b.readIntsSmall(nbits, sizes, nums)
	}
	if nbits <= 64 {
		return b.readIntsWide(nbits, sizes, nums)
	}
	//More than 64 bits. Unpack into a little-endian byte array and divide out
	//the sizes with schoolbook arithmetic.
	var bytes [32]byte
	nbytes := 0
	for nbits >= 8 {
		by, err := b.readBits(8)
		if err != nil {
			return err
		}
		bytes[nbytes] = byte(by)
		nbytes++
		nbits -= 8
	}
	if nbits > 0 {
		by, err := b.readBits(nbits)
		if err != nil {
			return err
		}
		bytes[nbytes] = byte(by)
		nbytes++
	}
	for i := 2; i > 0; i-- {
		var num uint32
		for j := nbytes - 1; j >= 0; j-- {
			num = num<<8 | uint32(bytes[j])
			p := num / sizes[i]
			bytes[j] = byte(p)
			num -= p * sizes[i]
		}
		nums[i] = int32(num)
	}
	nums[0] = int32(uint32(bytes[0]) | uint32(bytes[1])<<8 | uint32(bytes[2])<<16 | uint32(bytes[3])<<24)
	return nil
}

func (b *bitReader) readIntsSmall(nbits int, sizes [3]uint32, nums *[3]int32) error {
	var v uint32
	shift := uint(0)
	for nbits >= 8 {
		by, err := b.readBits(8)
		if err != nil {
			return err
		}
		v |= by << shift
		shift += 8
		nbits -= 8
	}
	if nbits > 0 {
		by, err := b.readBits(nbits)
		if err != nil {
			return err
		}
		v |= by << shift
	}
	szy := sizes[2] * sizes[1]
	x := v / szy
	q := v - x*szy
	y := q / sizes[2]
	z := q - y*sizes[2]
	nums[0] = int32(x)
	nums[1] = int32(y)
	nums[2] = int32(z)
	return nil
}

func (b *bitReader) readIntsWide(nbits int, sizes [3]uint32, nums *[3]int32) error {
	var v uint64
	shift := uint(0)
	for nbits >= 8 {
		by, err := b.readBits(8)
		if err != nil {
			return err
		}
		v |= uint64(by) << shift
		shift += 8
		nbits -= 8
	}
	if nbits > 0 {
		by, err := b.readBits(nbits)
		if err != nil {
			return err
		}
		v |= uint64(by) << shift
	}
	sz := uint64(sizes[2])
	szy := sz * uint64(sizes[1])
	x := v / szy
	q := v - x*szy
	y := q / sz
	z := q - y*sz
	nums[0] = int32(x)
	nums[1] = int32(y)
	nums[2] = int32(z)
	return nil
}
