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
	"encoding/json"

	"github.com/coedit-dev/coedit-go/pkg/errors"
)

const maxDocLength = 2 * 1024 * 1024

var ErrDocIsTooLarge = &errors.ValidationError{Msg: "doc is too large"}

// Snapshot is the settled document body. The core treats it as opaque
// text and only ever touches rune offsets within it.
type Snapshot []rune

func (s Snapshot) Validate() error {
	if len(s) > maxDocLength {
		return ErrDocIsTooLarge
	}
	return nil
}

func (s *Snapshot) UnmarshalJSON(bytes []byte) error {
	var raw string
	if err := json.Unmarshal(bytes, &raw); err != nil {
		return err
	}
	*s = Snapshot(raw)
	return nil
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// Apply splices a single operation into the snapshot. The operation must
// already be rebased onto the version this snapshot is at.
func (s Snapshot) Apply(op Operation) (Snapshot, error) {
	switch op.Type {
	case OpInsert:
		if op.Position > len(s) {
			return nil, &errors.ValidationError{
				Msg: "insert past end of doc",
			}
		}
		insertion := []rune(op.Content)
		next := make(Snapshot, 0, len(s)+len(insertion))
		next = append(next, s[:op.Position]...)
		next = append(next, insertion...)
		next = append(next, s[op.Position:]...)
		if err := next.Validate(); err != nil {
			return nil, err
		}
		return next, nil
	case OpDelete:
		if op.Position+op.Length > len(s) {
			return nil, &errors.ValidationError{
				Msg: "delete past end of doc",
			}
		}
		next := make(Snapshot, 0, len(s)-op.Length)
		next = append(next, s[:op.Position]...)
		next = append(next, s[op.Position+op.Length:]...)
		return next, nil
	case OpRetain:
		return s, nil
	default:
		return nil, &errors.ValidationError{Msg: "unknown op type"}
	}
}

func (s Snapshot) Slice(start, end int) Snapshot {
	l := len(s)
	if l < start {
		return Snapshot("")
	}
	if l < end {
		end = l
	}
	return s[start:end]
}
