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

	"github.com/coedit-dev/coedit-go/pkg/models/doc"
	"github.com/coedit-dev/coedit-go/pkg/sharedTypes"
)

func (m *manager) StartSession(ctx context.Context, docId, userId sharedTypes.UUID) (*Session, error) {
	if err := m.checkPermission(ctx, docId, userId, doc.PermissionRead); err != nil {
		return nil, err
	}
	return m.sessions.Start(ctx, docId, userId)
}

// EndSession is deliberately permission free: a user whose access was
// just revoked must still be able to drop their own presence entry.
func (m *manager) EndSession(ctx context.Context, docId, userId sharedTypes.UUID) error {
	return m.sessions.End(ctx, docId, userId)
}

func (m *manager) TouchSession(ctx context.Context, docId, userId sharedTypes.UUID, cursor *Cursor) error {
	if err := m.checkPermission(ctx, docId, userId, doc.PermissionRead); err != nil {
		return err
	}
	return m.sessions.Touch(ctx, docId, userId, cursor)
}

func (m *manager) ListActiveSessions(ctx context.Context, docId, userId sharedTypes.UUID) ([]Session, error) {
	if err := m.checkPermission(ctx, docId, userId, doc.PermissionRead); err != nil {
		return nil, err
	}
	return m.sessions.List(ctx, docId)
}
