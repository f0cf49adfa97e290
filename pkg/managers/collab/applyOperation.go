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

package collab

import (
	"context"
	"time"

	"github.com/coedit-dev/coedit-go/pkg/errors"
	"github.com/coedit-dev/coedit-go/pkg/managers/collab/internal/opLog"
	"github.com/coedit-dev/coedit-go/pkg/managers/collab/internal/transform"
	"github.com/coedit-dev/coedit-go/pkg/models/doc"
	"github.com/coedit-dev/coedit-go/pkg/sharedTypes"
)

const applyRetryDelay = 10 * time.Millisecond

func (m *manager) ApplyOperation(ctx context.Context, docId sharedTypes.UUID, op sharedTypes.Operation) (*CommittedOp, error) {
	if err := op.Validate(); err != nil {
		return nil, err
	}
	if err := m.checkPermission(ctx, docId, op.AuthorId, doc.PermissionWrite); err != nil {
		return nil, err
	}
	if op.SubmittedAt == 0 {
		op.SubmittedAt = sharedTypes.Now()
	}

	var committed *CommittedOp
	delay := applyRetryDelay
	for attempt := 0; ; attempt++ {
		err := m.locker.RunWithLock(ctx, docId, func(ctx context.Context) error {
			var err error
			committed, err = m.commit(ctx, docId, op)
			return err
		})
		if err == nil {
			return committed, nil
		}
		if !errors.IsRetryableError(err) || attempt >= m.maxApplyRetries {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}

// commit runs the actual transform-and-persist cycle. The caller holds
// the document lock.
func (m *manager) commit(ctx context.Context, docId sharedTypes.UUID, op sharedTypes.Operation) (*CommittedOp, error) {
	d, err := m.dm.Get(ctx, docId)
	if err != nil {
		return nil, err
	}
	if err = op.CheckBaseVersion(d.Version); err != nil {
		return nil, err
	}

	entries, err := m.log.ReadSince(ctx, docId, op.BaseVersion)
	if err != nil {
		return nil, err
	}
	if got := sharedTypes.Version(len(entries)); got != d.Version-op.BaseVersion {
		if got > d.Version-op.BaseVersion {
			// The log ran ahead of the store: a writer went down between
			// the log append and the store write. Drop the stale window
			// and let the retry start over from the store alone.
			if err = m.log.Drop(ctx, docId); err != nil {
				return nil, err
			}
			return nil, &errors.VersionConflictError{}
		}
		return nil, opLog.ErrLogWindowPassed
	}

	history := make([]sharedTypes.Operation, 0, len(entries))
	for i := range entries {
		if entries[i].SourceId == op.Id {
			// resubmission of an already committed operation
			return &entries[i], nil
		}
		history = append(history, entries[i].Op)
	}

	rebased, err := transform.Rebase(op, history)
	if err != nil {
		return nil, err
	}
	newSnapshot, err := d.Snapshot.Apply(rebased)
	if err != nil {
		return nil, err
	}

	entry := &CommittedOp{Op: rebased, SourceId: op.Id}
	if _, err = m.log.Append(ctx, docId, entry); err != nil {
		return nil, err
	}
	err = m.dm.UpdateContent(ctx, docId, newSnapshot, entry.Seq, op.AuthorId)
	if err != nil {
		return nil, errors.Tag(err, "persist snapshot")
	}
	return entry, nil
}
