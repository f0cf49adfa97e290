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

// Package transform rebases an edit onto operations it did not see.
//
// The scheme is centrally sequenced: history is the list of committed
// operations with sequence number >= the edit's base version, in commit
// order. When two operations target the same position the committed one
// counts as sitting to the left and the incoming one is pushed right.
// Text inserted strictly inside a range that a concurrent delete
// targets is removed along with the range: the later committer loses,
// whether that is the delete widening over a committed insertion or the
// insertion collapsing into a committed removal. Both commit orders
// land on the same document.
package transform

import (
	"github.com/coedit-dev/coedit-go/pkg/sharedTypes"
)

// Rebase is pure apart from assigning a fresh id to the result. The id
// the author submitted only serves for acknowledgment correlation and
// duplicate detection, the committed operation gets its own identity.
// The sequence number is stamped at commit time, not here.
func Rebase(op sharedTypes.Operation, history []sharedTypes.Operation) (sharedTypes.Operation, error) {
	for i := range history {
		op = rebaseOnto(op, &history[i])
	}
	if op.Type == sharedTypes.OpDelete && op.Length == 0 {
		// The whole range was already removed by committed operations.
		op.Type = sharedTypes.OpRetain
	}
	id, err := sharedTypes.GenerateUUID()
	if err != nil {
		return sharedTypes.Operation{}, err
	}
	op.Id = id
	return op, nil
}

func rebaseOnto(op sharedTypes.Operation, h *sharedTypes.Operation) sharedTypes.Operation {
	switch h.Type {
	case sharedTypes.OpInsert:
		// h.Position == op.Position is the tie-break: the committed
		// insertion stays to the left.
		if h.Position <= op.Position {
			op.Position += h.ContentLength()
		} else if op.Type == sharedTypes.OpDelete && h.Position < op.End() {
			// The committed insertion landed strictly inside op's range.
			// The range widens to cover it, otherwise the mirror case
			// below would disagree with this one and the two commit
			// orders would produce different documents.
			op.Length += h.ContentLength()
		}
	case sharedTypes.OpDelete:
		if op.Type == sharedTypes.OpDelete {
			op = narrowDelete(op, h)
			break
		}
		if h.Position < op.Position {
			if op.Type == sharedTypes.OpInsert && op.Position < h.Position+h.Length {
				// op targeted a spot strictly inside the removed range,
				// its content goes with it.
				op.Type = sharedTypes.OpRetain
				op.Content = ""
				op.Position = h.Position
				break
			}
			shift := op.Position - h.Position
			if h.Length < shift {
				shift = h.Length
			}
			op.Position -= shift
		}
	case sharedTypes.OpRetain:
		// retains never shift offsets
	}
	return op
}

// narrowDelete drops the part of op's range that h already removed and
// shifts what is left. The range stays contiguous: h removed a
// contiguous stretch, so the survivors on either side of it become
// adjacent.
func narrowDelete(op sharedTypes.Operation, h *sharedTypes.Operation) sharedTypes.Operation {
	hEnd := h.Position + h.Length
	opEnd := op.Position + op.Length

	if hEnd <= op.Position {
		op.Position -= h.Length
		return op
	}
	if h.Position >= opEnd {
		return op
	}

	overlap := min(opEnd, hEnd) - max(op.Position, h.Position)
	op.Length -= overlap
	if op.Position > h.Position {
		op.Position = h.Position
	}
	return op
}
