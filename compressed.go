/*
 * compressed.go, part of gmolsim/xtc
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
	"bytes"
	"compress/gzip"
	"io"
	"log"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// fileSource is a plain file source. Unlike decompressed in-memory sources
// it can grow under the reader, so it reports its current size for Refresh.
type fileSource struct {
	*os.File
}

func (f fileSource) sourceSize() (int64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// prepSource opens fname and returns a random-access byte source for it,
// plus its total length. A trajectory compressed as a whole with gzip, zstd
// or lz4 (extensions .gz, .zst, .lz4 after the usual .xtc) is decompressed
// into memory first, since frame indexing needs to seek. If the extension is
// not recognized, a message is logged and a plain XTC file is assumed.
// The returned closer may be nil when there is nothing left to close.
func prepSource(fname string) (io.ReaderAt, io.Closer, int64, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, nil, 0, err
	}
	temp := strings.Split(fname, ".")
	fk := strings.ToLower(temp[len(temp)-1])

	var unc io.Reader
	switch fk {
	case "xtc":
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, nil, 0, Error{err.Error(), fname, []string{"os.File.Stat", "prepSource"}, true}
		}
		return fileSource{f}, f, info.Size(), nil
	case "gz":
		unc, err = gzip.NewReader(f)
	case "zst":
		var dec *zstd.Decoder
		dec, err = zstd.NewReader(f)
		if err == nil {
			unc = dec
		}
	case "lz4":
		unc = lz4.NewReader(f)
	default:
		log.Printf("Extension %s not supported. %s will be assumed to be a plain XTC file", fk, fname)
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, nil, 0, Error{err.Error(), fname, []string{"os.File.Stat", "prepSource"}, true}
		}
		return fileSource{f}, f, info.Size(), nil
	}
	if err != nil {
		f.Close()
		return nil, nil, 0, Error{err.Error(), fname, []string{"prepSource"}, true}
	}
	data, err := io.ReadAll(unc)
	f.Close()
	if err != nil {
		return nil, nil, 0, Error{err.Error(), fname, []string{"prepSource"}, true}
	}
	return bytes.NewReader(data), nil, int64(len(data)), nil
}
