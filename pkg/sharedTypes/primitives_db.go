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
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// UUIDs are stored as their string form in the db. Raw 16 byte blobs are
// not grep-able in a mongo shell and the space savings do not matter at
// the scale of the collections in this repo.

func (u UUID) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(u.String())
}

func (u *UUID) UnmarshalBSONValue(t bsontype.Type, b []byte) error {
	rv := bson.RawValue{Type: t, Value: b}
	s := ""
	if err := rv.Unmarshal(&s); err != nil {
		return err
	}
	u2, err := ParseUUID(s)
	if err != nil {
		return err
	}
	*u = u2
	return nil
}

// Snapshots persist as plain strings, not rune arrays.

func (s Snapshot) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(string(s))
}

func (s *Snapshot) UnmarshalBSONValue(t bsontype.Type, b []byte) error {
	rv := bson.RawValue{Type: t, Value: b}
	raw := ""
	if err := rv.Unmarshal(&raw); err != nil {
		return err
	}
	*s = Snapshot(raw)
	return nil
}
