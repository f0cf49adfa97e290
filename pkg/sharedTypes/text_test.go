// coedit - collaborative document editing core
// Copyright (C) 2025 the coedit authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package sharedTypes

import (
	"testing"
)

func TestSnapshotApply(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		op      Operation
		want    string
		wantErr bool
	}{
		{
			name: "insertMiddle",
			in:   "ABCD",
			op:   Operation{Type: OpInsert, Position: 2, Content: "XY"},
			want: "ABXYCD",
		},
		{
			name: "insertAtEnd",
			in:   "ABCD",
			op:   Operation{Type: OpInsert, Position: 4, Content: "E"},
			want: "ABCDE",
		},
		{
			name: "insertMultiRune",
			in:   "fünf",
			op:   Operation{Type: OpInsert, Position: 4, Content: " äpfel"},
			want: "fünf äpfel",
		},
		{
			name:    "insertPastEnd",
			in:      "AB",
			op:      Operation{Type: OpInsert, Position: 3, Content: "X"},
			wantErr: true,
		},
		{
			name: "deleteRange",
			in:   "ABCD",
			op:   Operation{Type: OpDelete, Position: 1, Length: 2},
			want: "AD",
		},
		{
			name:    "deletePastEnd",
			in:      "ABCD",
			op:      Operation{Type: OpDelete, Position: 3, Length: 2},
			wantErr: true,
		},
		{
			name: "retainLeavesBodyAlone",
			in:   "ABCD",
			op:   Operation{Type: OpRetain, Position: 1},
			want: "ABCD",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := Snapshot(c.in).Apply(c.op)
			if c.wantErr {
				if err == nil {
					t.Fatalf("Apply() = %q, want error", string(got))
				}
				return
			}
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			if string(got) != c.want {
				t.Errorf("Apply() = %q, want %q", string(got), c.want)
			}
		})
	}
}

func TestSnapshotApplyDoesNotMutateSource(t *testing.T) {
	src := Snapshot("ABCD")
	_, err := src.Apply(Operation{Type: OpInsert, Position: 2, Content: "X"})
	if err != nil {
		t.Fatal(err)
	}
	if string(src) != "ABCD" {
		t.Errorf("source snapshot changed to %q", string(src))
	}
}
