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

// Package opLog keeps the append-only transform history per document.
//
// The log lives in redis for a bounded window only; the document store
// remains the system of record for the settled body. All appends for a
// document happen while its lock is held, so a ReadSince followed by an
// Append inside one critical section is atomic as far as other editors
// are concerned.
package opLog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/coedit-dev/coedit-go/pkg/errors"
	"github.com/coedit-dev/coedit-go/pkg/sharedTypes"
)

// Entry is a committed operation. Seq is assigned at commit time,
// monotonic per document and never reused. SourceId is the id the
// author submitted, kept around for at-most-once retry detection
// within the log window.
type Entry struct {
	Op       sharedTypes.Operation `json:"op"`
	Seq      sharedTypes.Version   `json:"seq"`
	SourceId sharedTypes.UUID      `json:"source_id"`
}

type Manager interface {
	// Append commits the entry, stamping Entry.Seq, and returns the new
	// document version. Must only be called while holding the document
	// lock.
	Append(ctx context.Context, docId sharedTypes.UUID, entry *Entry) (sharedTypes.Version, error)

	// ReadSince returns the committed entries with Seq >= since, in
	// commit order. A since older than the retained window yields
	// ErrLogWindowPassed.
	ReadSince(ctx context.Context, docId sharedTypes.UUID, since sharedTypes.Version) ([]Entry, error)

	// Version returns the number of operations committed so far.
	Version(ctx context.Context, docId sharedTypes.UUID) (sharedTypes.Version, error)

	// Drop forgets the log of a document, e.g. after archival.
	Drop(ctx context.Context, docId sharedTypes.UUID) error
}

// Options makes truncation explicit: entries beyond MaxLength are
// trimmed on append and the whole log expires TTL after the last edit.
type Options struct {
	TTL       time.Duration
	MaxLength int64
}

func (o Options) withDefaults() Options {
	if o.TTL == 0 {
		o.TTL = 60 * time.Minute
	}
	if o.MaxLength == 0 {
		o.MaxLength = 128
	}
	return o
}

var ErrLogWindowPassed = &errors.ValidationError{
	Msg: "base version older than the retained operation log",
}

func New(rClient redis.UniversalClient, o Options) Manager {
	return &manager{rClient: rClient, o: o.withDefaults()}
}

type manager struct {
	rClient redis.UniversalClient
	o       Options
}

func getOpsKey(docId sharedTypes.UUID) string {
	return "docOps:{" + docId.String() + "}"
}

func getVersionKey(docId sharedTypes.UUID) string {
	return "docVersion:{" + docId.String() + "}"
}

func (m *manager) Version(ctx context.Context, docId sharedTypes.UUID) (sharedTypes.Version, error) {
	raw, err := m.rClient.Get(ctx, getVersionKey(docId)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Tag(err, "get doc version")
	}
	v := sharedTypes.Version(0)
	if err = v.ParseIfSet(raw); err != nil {
		return 0, errors.Tag(err, "parse doc version")
	}
	return v, nil
}

func (m *manager) Append(ctx context.Context, docId sharedTypes.UUID, entry *Entry) (sharedTypes.Version, error) {
	v, err := m.Version(ctx, docId)
	if err != nil {
		return 0, err
	}
	entry.Seq = v
	blob, err := json.Marshal(entry)
	if err != nil {
		return 0, errors.Tag(err, "serialize log entry")
	}

	next := v + 1
	_, err = m.rClient.TxPipelined(ctx, func(p redis.Pipeliner) error {
		opsKey := getOpsKey(docId)
		p.RPush(ctx, opsKey, blob)
		p.LTrim(ctx, opsKey, -m.o.MaxLength, -1)
		p.Expire(ctx, opsKey, m.o.TTL)
		p.Set(ctx, getVersionKey(docId), next.String(), m.o.TTL)
		return nil
	})
	if err != nil {
		return 0, errors.Tag(err, "append to op log")
	}
	return next, nil
}

func (m *manager) ReadSince(ctx context.Context, docId sharedTypes.UUID, since sharedTypes.Version) ([]Entry, error) {
	v, err := m.Version(ctx, docId)
	if err != nil {
		return nil, err
	}
	n := v - since
	if n <= 0 {
		return nil, nil
	}
	raw, err := m.rClient.LRange(ctx, getOpsKey(docId), -int64(n), -1).Result()
	if err != nil {
		return nil, errors.Tag(err, "read op log")
	}
	return parseEntries(raw, since, v)
}

func (m *manager) Drop(ctx context.Context, docId sharedTypes.UUID) error {
	err := m.rClient.Del(ctx, getOpsKey(docId), getVersionKey(docId)).Err()
	if err != nil {
		return errors.Tag(err, "drop op log")
	}
	return nil
}

// parseEntries decodes raw list items and checks that the window still
// covers `since`: trimmed or expired entries surface as
// ErrLogWindowPassed rather than a silent gap.
func parseEntries(raw []string, since, version sharedTypes.Version) ([]Entry, error) {
	if int64(len(raw)) != int64(version-since) {
		return nil, ErrLogWindowPassed
	}
	entries := make([]Entry, len(raw))
	for i, s := range raw {
		if err := json.Unmarshal([]byte(s), &entries[i]); err != nil {
			return nil, errors.Tag(err, "parse log entry")
		}
		if want := since + sharedTypes.Version(i); entries[i].Seq != want {
			return nil, ErrLogWindowPassed
		}
	}
	return entries, nil
}
