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
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/coedit-dev/coedit-go/pkg/errors"
)

type Timestamp int64

func (t Timestamp) Validate() error {
	if t < 0 {
		return &errors.ValidationError{Msg: "ts must be greater zero"}
	}
	return nil
}

func (t *Timestamp) ParseIfSet(s string) error {
	if s == "" {
		return nil
	}
	raw, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return &errors.ValidationError{Msg: "invalid timestamp (int)"}
	}
	*t = Timestamp(raw)
	return nil
}

func (t Timestamp) ToTime() time.Time {
	ms := int64(t)
	return time.Unix(ms/1000, ms%1000*int64(time.Millisecond))
}

func Now() Timestamp {
	return Timestamp(time.Now().UnixMilli())
}

type OpType string

const (
	OpInsert OpType = "insert"
	OpDelete OpType = "delete"
	OpRetain OpType = "retain"
)

// Operation is a single plain-text edit. Position and Length count runes.
// BaseVersion is the document version the author observed when composing
// the operation; it decides which committed operations the edit still has
// to be rebased onto.
type Operation struct {
	Id          UUID      `json:"id"`
	Type        OpType    `json:"type"`
	Position    int       `json:"p"`
	Content     string    `json:"content,omitempty"`
	Length      int       `json:"length,omitempty"`
	AuthorId    UUID      `json:"author_id"`
	SubmittedAt Timestamp `json:"ts,omitempty"`
	BaseVersion Version   `json:"v"`
}

func (o *Operation) ContentLength() int {
	return utf8.RuneCountInString(o.Content)
}

func (o *Operation) IsNoop() bool {
	return o.Type == OpRetain
}

// End returns the first position past the affected range.
func (o *Operation) End() int {
	switch o.Type {
	case OpInsert:
		return o.Position + o.ContentLength()
	case OpDelete:
		return o.Position + o.Length
	default:
		return o.Position
	}
}

func (o *Operation) Validate() error {
	if o.Id.IsZero() {
		return &errors.ValidationError{Msg: "missing operation id"}
	}
	if o.AuthorId.IsZero() {
		return &errors.ValidationError{Msg: "missing author id"}
	}
	if o.Position < 0 {
		return &errors.ValidationError{Msg: "position is negative"}
	}
	if o.BaseVersion < 0 {
		return &errors.ValidationError{Msg: "base version is negative"}
	}
	if err := o.SubmittedAt.Validate(); err != nil {
		return err
	}
	switch o.Type {
	case OpInsert:
		if len(o.Content) == 0 {
			return &errors.ValidationError{Msg: "insert without content"}
		}
		if o.Length != 0 {
			return &errors.ValidationError{Msg: "insert with length"}
		}
	case OpDelete:
		if o.Length < 1 {
			return &errors.ValidationError{Msg: "delete without length"}
		}
		if len(o.Content) != 0 {
			return &errors.ValidationError{Msg: "delete with content"}
		}
	case OpRetain:
		if len(o.Content) != 0 || o.Length != 0 {
			return &errors.ValidationError{Msg: "retain with payload"}
		}
	default:
		return &errors.ValidationError{Msg: "unknown op type"}
	}
	return nil
}

// maxOpAge caps how far behind the current version an operation may be.
// Anything older cannot be rebased, the operation log window has passed.
const maxOpAge = Version(100)

func (o *Operation) CheckBaseVersion(current Version) error {
	if o.BaseVersion > current {
		return &errors.ValidationError{
			Msg: "op at future version: " +
				o.BaseVersion.String() + " vs " + current.String(),
		}
	}
	if o.BaseVersion+maxOpAge < current {
		return &errors.ValidationError{
			Msg: "op too old: " +
				o.BaseVersion.String() + " vs " + current.String(),
		}
	}
	return nil
}
