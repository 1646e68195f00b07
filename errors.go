/*
 * errors.go, part of gmolsim/xtc
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

import "fmt"

// TrajError is the interface satisfied by every error this package returns,
// aside from the passed-through os.Open errors. The Decorate method adds
// information about the calling function when the error is passed up, without
// changing the error's type or wrapping it.
type TrajError interface {
	Error() string
	Decorate(string) []string
	FileName() string
	Format() string
	Critical() bool
}

// LastFrameError is satisfied only by the error returned when a sequential
// read goes past the last frame. It is not a real error; callers should
// filter it out in a type switch looking for this interface.
type LastFrameError interface {
	TrajError
	NormalLastFrameTermination()
}

// Error is the general structure for XTC trajectory errors. It fulfills TrajError.
type Error struct {
	message  string
	filename string //the input file that has problems, or empty string if none.
	deco     []string
	critical bool
}

func (err Error) Error() string {
	return fmt.Sprintf("xtc file %s error: %s", err.filename, err.message)
}

// Message returns the message constant the error was built with, so callers
// can tell the failure modes apart (WrongMagicNumber, CorruptFrame, etc).
func (err Error) Message() string { return err.message }

// Decorate Adds new information to the error
func (E Error) Decorate(deco string) []string {
	//Even though this method does not use a pointer as a receiver, and tries to alter the receiver,
	//it should work, since E.deco is a slice, and hence a pointer itself.
	if deco != "" {
		E.deco = append(E.deco, deco)
	}
	return E.deco
}

// FileName returns the file to which the failing trajectory was associated
func (err Error) FileName() string { return err.filename }

// Format returns the format of the file (always "xtc") associated to the error
func (err Error) Format() string { return "xtc" }

// Critical returns true if the error is critical, false otherwise
func (err Error) Critical() bool { return err.critical }

// The message constants for Error. Checking the Message of a returned Error
// against these tells the failure modes apart.
const (
	TrajUnIni                = "Traj object uninitialized to read"
	WrongMagicNumber         = "Wrong magic number"
	EmptyOrInvalidTrajectory = "Empty or invalid trajectory"
	TruncatedInput           = "Truncated input"
	CorruptFrame             = "Corrupt frame"
	ShapeMismatch            = "Shape mismatch"
	OutOfRangeSelection      = "Selection out of range"
	ReaderClosed             = "Reader is closed"
)

// errDecorate asserts that err is a TrajError and decorates it with the
// caller's name before returning it.
func errDecorate(err error, caller string) error {
	err2 := err.(TrajError)
	err2.Decorate(caller)
	return err2
}

// lastFrameError implements LastFrameError
type lastFrameError struct {
	deco     []string
	fileName string
}

// lastFrameError does nothing
func (E lastFrameError) NormalLastFrameTermination() {}

func (E lastFrameError) FileName() string { return E.fileName }

func (E lastFrameError) Error() string { return "EOF" }

func (E lastFrameError) Critical() bool { return false }

func (E lastFrameError) Format() string { return "xtc" }

func (E lastFrameError) Decorate(deco string) []string {
	//Even though this method does not use a pointer as a receiver, and tries to alter the receiver,
	//it should work, since E.deco is a slice, and hence a pointer itself.
	if deco != "" {
		E.deco = append(E.deco, deco)
	}
	return E.deco
}

func newlastFrameError(filename string, caller string) *lastFrameError {
	e := new(lastFrameError)
	e.fileName = filename
	e.deco = []string{caller}
	return e
}
