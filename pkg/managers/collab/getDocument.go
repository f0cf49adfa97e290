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

	"golang.org/x/sync/errgroup"

	"github.com/coedit-dev/coedit-go/pkg/models/annotation"
	"github.com/coedit-dev/coedit-go/pkg/models/doc"
	"github.com/coedit-dev/coedit-go/pkg/sharedTypes"
)

// CommentThread is a top-level comment with its direct replies. Threads
// are one level deep, replies to replies do not exist.
type CommentThread struct {
	annotation.Comment
	Replies []annotation.Comment `json:"replies,omitempty"`
}

type DocumentView struct {
	Doc         *doc.Doc                `json:"doc"`
	Threads     []CommentThread         `json:"threads,omitempty"`
	Suggestions []annotation.Suggestion `json:"suggestions,omitempty"`
}

func (m *manager) GetDocument(ctx context.Context, docId, userId sharedTypes.UUID) (*DocumentView, error) {
	if err := m.checkPermission(ctx, docId, userId, doc.PermissionRead); err != nil {
		return nil, err
	}

	v := DocumentView{}
	var comments []annotation.Comment
	eg, pCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		d, err := m.dm.Get(pCtx, docId)
		if err != nil {
			return err
		}
		v.Doc = d
		return nil
	})
	eg.Go(func() error {
		var err error
		comments, err = m.am.ListComments(pCtx, docId)
		return err
	})
	eg.Go(func() error {
		var err error
		v.Suggestions, err = m.am.ListSuggestions(pCtx, docId)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	v.Threads = buildThreads(comments)
	return &v, nil
}

// buildThreads groups flat comments into threads, preserving the
// creation order the store returned. Replies whose parent is gone are
// dropped rather than promoted.
func buildThreads(comments []annotation.Comment) []CommentThread {
	threads := make([]CommentThread, 0, len(comments))
	byParent := make(map[sharedTypes.UUID]int, len(comments))
	for _, c := range comments {
		if c.ParentId == nil {
			byParent[c.Id] = len(threads)
			threads = append(threads, CommentThread{Comment: c})
		}
	}
	for _, c := range comments {
		if c.ParentId == nil {
			continue
		}
		if i, ok := byParent[*c.ParentId]; ok {
			threads[i].Replies = append(threads[i].Replies, c)
		}
	}
	return threads
}
