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

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/coedit-dev/coedit-go/pkg/errors"
	"github.com/coedit-dev/coedit-go/pkg/models/annotation"
	"github.com/coedit-dev/coedit-go/pkg/models/doc"
	"github.com/coedit-dev/coedit-go/pkg/sharedTypes"
)

func (m *manager) AddComment(ctx context.Context, docId, authorId sharedTypes.UUID, c *annotation.Comment) error {
	if err := m.checkPermission(ctx, docId, authorId, doc.PermissionComment); err != nil {
		return err
	}
	c.DocId = docId
	c.AuthorId = authorId
	if c.ParentId != nil {
		parent, err := m.am.GetComment(ctx, docId, *c.ParentId)
		if err != nil {
			return errors.Tag(err, "get parent comment")
		}
		if parent.ParentId != nil {
			return &errors.ValidationError{
				Msg: "replies cannot be nested",
			}
		}
		// replies hang off the thread anchor, they carry no own position
		c.Position = nil
	}
	return m.am.CreateComment(ctx, c)
}

func (m *manager) ReplyToComment(ctx context.Context, docId, parentId, authorId sharedTypes.UUID, c *annotation.Comment) error {
	c.ParentId = &parentId
	return m.AddComment(ctx, docId, authorId, c)
}

func (m *manager) AddSuggestion(ctx context.Context, docId, authorId sharedTypes.UUID, s *annotation.Suggestion) error {
	if err := m.checkPermission(ctx, docId, authorId, doc.PermissionSuggest); err != nil {
		return err
	}
	s.DocId = docId
	s.AuthorId = authorId
	return m.am.CreateSuggestion(ctx, s)
}

func (m *manager) AcceptSuggestion(ctx context.Context, docId, suggestionId, reviewerId sharedTypes.UUID) error {
	if err := m.checkPermission(ctx, docId, reviewerId, doc.PermissionWrite); err != nil {
		return err
	}
	s, err := m.am.GetSuggestion(ctx, docId, suggestionId)
	if err != nil {
		return err
	}
	if s.Status != annotation.SuggestionPending {
		return &errors.InvalidStateError{
			Msg: "suggestion is already " + string(s.Status),
		}
	}
	d, err := m.dm.Get(ctx, docId)
	if err != nil {
		return err
	}

	// Flip the status before editing the document. A concurrent accept
	// of the same suggestion loses on this guard, so the edits below
	// happen at most once even when the apply fails half way.
	err = m.am.Resolve(
		ctx, docId, suggestionId, annotation.SuggestionAccepted, reviewerId,
	)
	if err != nil {
		return err
	}

	ops := suggestionOps(s)
	base := d.Version
	for i := range ops {
		ops[i].AuthorId = reviewerId
		ops[i].BaseVersion = base
		id, err2 := sharedTypes.GenerateUUID()
		if err2 != nil {
			return err2
		}
		ops[i].Id = id
		committed, err2 := m.ApplyOperation(ctx, docId, ops[i])
		if err2 != nil {
			return errors.Tag(err2, "apply suggested edit")
		}
		base = committed.Seq + 1
	}
	return nil
}

func (m *manager) RejectSuggestion(ctx context.Context, docId, suggestionId, reviewerId sharedTypes.UUID) error {
	err := m.checkPermission(ctx, docId, reviewerId, doc.PermissionWrite)
	if err != nil {
		return err
	}
	return m.am.Resolve(
		ctx, docId, suggestionId, annotation.SuggestionRejected, reviewerId,
	)
}

// suggestionOps turns an accepted suggestion into the edit operations
// that realize it. Positions are relative to the anchor and assume the
// previous operation in the slice has been committed already; the
// returned operations still need author, id and base version stamped.
func suggestionOps(s *annotation.Suggestion) []sharedTypes.Operation {
	switch s.Type {
	case annotation.SuggestionAddition:
		return []sharedTypes.Operation{{
			Type:     sharedTypes.OpInsert,
			Position: s.Position.Offset,
			Content:  s.Content,
		}}
	case annotation.SuggestionDeletion:
		return []sharedTypes.Operation{{
			Type:     sharedTypes.OpDelete,
			Position: s.Position.Offset,
			Length:   len([]rune(s.OriginalContent)),
		}}
	case annotation.SuggestionModification:
		return diffOps(s.OriginalContent, s.Content, s.Position.Offset)
	default:
		return nil
	}
}

// diffOps computes a minimal edit script between the replaced stretch
// and its replacement instead of a blunt delete-and-reinsert, keeping
// concurrent edits inside the stretch rebasable.
func diffOps(before, after string, offset int) []sharedTypes.Operation {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupEfficiency(dmp.DiffMainRunes(
		[]rune(before), []rune(after), false,
	))

	ops := make([]sharedTypes.Operation, 0, len(diffs))
	pos := offset
	for _, d := range diffs {
		n := len([]rune(d.Text))
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			pos += n
		case diffmatchpatch.DiffDelete:
			ops = append(ops, sharedTypes.Operation{
				Type:     sharedTypes.OpDelete,
				Position: pos,
				Length:   n,
			})
		case diffmatchpatch.DiffInsert:
			ops = append(ops, sharedTypes.Operation{
				Type:     sharedTypes.OpInsert,
				Position: pos,
				Content:  d.Text,
			})
			pos += n
		}
	}
	return ops
}
