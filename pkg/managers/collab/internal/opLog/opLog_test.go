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

package opLog

import (
	"encoding/json"
	"testing"

	"github.com/coedit-dev/coedit-go/pkg/sharedTypes"
)

func encodeEntries(t *testing.T, entries ...Entry) []string {
	t.Helper()
	raw := make([]string, len(entries))
	for i, e := range entries {
		blob, err := json.Marshal(e)
		if err != nil {
			t.Fatal(err)
		}
		raw[i] = string(blob)
	}
	return raw
}

func TestParseEntries(t *testing.T) {
	op := sharedTypes.Operation{
		Type: sharedTypes.OpInsert, Position: 0, Content: "x",
	}

	t.Run("contiguousWindow", func(t *testing.T) {
		raw := encodeEntries(t,
			Entry{Op: op, Seq: 3},
			Entry{Op: op, Seq: 4},
		)
		entries, err := parseEntries(raw, 3, 5)
		if err != nil {
			t.Fatalf("parseEntries() error = %v", err)
		}
		if len(entries) != 2 || entries[0].Seq != 3 || entries[1].Seq != 4 {
			t.Errorf("parseEntries() = %+v", entries)
		}
	})

	t.Run("trimmedWindow", func(t *testing.T) {
		// version 5, asking since 2, but only two entries survived
		raw := encodeEntries(t,
			Entry{Op: op, Seq: 3},
			Entry{Op: op, Seq: 4},
		)
		if _, err := parseEntries(raw, 2, 5); err != ErrLogWindowPassed {
			t.Errorf("parseEntries() error = %v, want ErrLogWindowPassed", err)
		}
	})

	t.Run("sequenceGap", func(t *testing.T) {
		raw := encodeEntries(t,
			Entry{Op: op, Seq: 3},
			Entry{Op: op, Seq: 5},
		)
		if _, err := parseEntries(raw, 3, 5); err != ErrLogWindowPassed {
			t.Errorf("parseEntries() error = %v, want ErrLogWindowPassed", err)
		}
	})

	t.Run("emptyExpiredLog", func(t *testing.T) {
		if _, err := parseEntries(nil, 0, 2); err != ErrLogWindowPassed {
			t.Errorf("parseEntries() error = %v, want ErrLogWindowPassed", err)
		}
	})
}
