/*
 * selection_test.go, part of gmolsim/xtc
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
	"reflect"
	"testing"
)

func intp(v int) *int { return &v }

// The expectations below are the outputs of the corresponding Python slice
// expressions on list(range(10)).
func TestFrameRangeResolve(t *testing.T) {
	cases := []struct {
		name string
		sel  FrameRange
		want []int
	}{
		{"full", FrameRange{}, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}},
		{"2:8:2", FrameRange{intp(2), intp(8), 2}, []int{2, 4, 6}},
		{"-3:", FrameRange{Start: intp(-3), Step: 1}, []int{7, 8, 9}},
		{"::-1", FrameRange{Step: -1}, []int{9, 8, 7, 6, 5, 4, 3, 2, 1, 0}},
		{"::-2", FrameRange{Step: -2}, []int{9, 7, 5, 3, 1}},
		{"8:2:-2", FrameRange{intp(8), intp(2), -2}, []int{8, 6, 4}},
		{"-1::-1", FrameRange{Start: intp(-1), Step: -1}, []int{9, 8, 7, 6, 5, 4, 3, 2, 1, 0}},
		{"5:5", FrameRange{intp(5), intp(5), 1}, nil},
		{"8:2", FrameRange{intp(8), intp(2), 1}, nil},
		{"2:8:-1", FrameRange{intp(2), intp(8), -1}, nil},
		{":-11:-1", FrameRange{Stop: intp(-11), Step: -1}, []int{9, 8, 7, 6, 5, 4, 3, 2, 1, 0}},
		{"100:", FrameRange{Start: intp(100), Step: 1}, nil},
		{":100:3", FrameRange{Stop: intp(100), Step: 3}, []int{0, 3, 6, 9}},
		{"-100:3", FrameRange{intp(-100), intp(3), 1}, []int{0, 1, 2}},
		{"step0", FrameRange{intp(1), intp(4), 0}, []int{1, 2, 3}},
	}
	for _, c := range cases {
		got, err := c.sel.resolve(10, "test")
		if err != nil {
			t.Errorf("%s: %v", c.name, err)
			continue
		}
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("%s: got %v, want %v", c.name, got, c.want)
		}
	}
}

func TestFrameRangeEmptyTrajectory(t *testing.T) {
	got, err := (&FrameRange{}).resolve(0, "test")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("full range over 0 frames: got %v", got)
	}
}

func TestFrameListResolve(t *testing.T) {
	got, err := FrameList{0, 5, 5, -1, -10}.resolve(10, "test")
	if err != nil {
		t.Fatal(err)
	}
	want := []int{0, 5, 5, 9, 0}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	for _, bad := range []FrameList{{10}, {-11}} {
		_, err := bad.resolve(10, "test")
		terr, ok := err.(Error)
		if !ok || terr.Message() != OutOfRangeSelection {
			t.Errorf("%v: got %v, want OutOfRangeSelection", bad, err)
		}
	}
}

func TestResolveFrameSelectionNil(t *testing.T) {
	got, err := resolveFrameSelection(nil, 4, "test")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []int{0, 1, 2, 3}) {
		t.Errorf("nil selection: got %v", got)
	}
}

func TestAtomListResolve(t *testing.T) {
	indices, need, err := resolveAtomSelection(AtomList{5, 0, 5}, 10, "test")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(indices, []int{5, 0, 5}) {
		t.Errorf("order/repeats not preserved: got %v", indices)
	}
	if need != 6 {
		t.Errorf("need = %d, want 6", need)
	}
	if _, _, err := resolveAtomSelection(AtomList{10}, 10, "test"); err == nil {
		t.Error("out-of-range atom index did not fail")
	}
	if _, _, err := resolveAtomSelection(AtomList{-1}, 10, "test"); err == nil {
		t.Error("negative atom index did not fail")
	}
}

func TestAtomMaskResolve(t *testing.T) {
	mask := NewAtomMask([]bool{true, false, false, true, true})
	indices, need, err := resolveAtomSelection(mask, 10, "test")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(indices, []int{0, 3, 4}) {
		t.Errorf("got %v, want [0 3 4]", indices)
	}
	if need != 5 {
		t.Errorf("need = %d, want 5", need)
	}

	indices, _, err = resolveAtomSelection(AtomMaskOf(7, 2, 2), 10, "test")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(indices, []int{2, 7}) {
		t.Errorf("mask order: got %v, want ascending [2 7]", indices)
	}

	if _, _, err := resolveAtomSelection(AtomMaskOf(10), 10, "test"); err == nil {
		t.Error("mask beyond the frame did not fail")
	}
	if _, _, err := resolveAtomSelection(AtomMaskOf(), 10, "test"); err != nil {
		t.Errorf("empty mask: %v", err)
	}
}

func TestAtomsUntilResolve(t *testing.T) {
	indices, need, err := resolveAtomSelection(AtomsUntil(3), 10, "test")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(indices, []int{0, 1, 2}) {
		t.Errorf("got %v", indices)
	}
	if need != 3 {
		t.Errorf("need = %d, want 3", need)
	}
	if _, _, err := resolveAtomSelection(AtomsUntil(11), 10, "test"); err == nil {
		t.Error("AtomsUntil past natoms did not fail")
	}
}

func TestResolveAtomSelectionNil(t *testing.T) {
	indices, need, err := resolveAtomSelection(nil, 7, "test")
	if err != nil {
		t.Fatal(err)
	}
	if indices != nil {
		t.Errorf("nil selection should keep all atoms, got %v", indices)
	}
	if need != 7 {
		t.Errorf("need = %d, want 7", need)
	}
}
