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
	"github.com/coedit-dev/coedit-go/pkg/models/doc"
	"github.com/coedit-dev/coedit-go/pkg/sharedTypes"
)

func (m *manager) CreateDocument(ctx context.Context, ownerId sharedTypes.UUID, content sharedTypes.Snapshot) (*doc.Doc, error) {
	if ownerId.IsZero() {
		return nil, &errors.ValidationError{Msg: "missing owner id"}
	}
	if err := content.Validate(); err != nil {
		return nil, err
	}
	return m.dm.Create(ctx, ownerId, content, m.rolePermissions)
}

func (m *manager) InviteCollaborator(ctx context.Context, docId, inviterId, userId sharedTypes.UUID, role doc.Role, permissions doc.Permissions) (*doc.Collaborator, error) {
	if userId.IsZero() {
		return nil, &errors.ValidationError{Msg: "missing user id"}
	}
	if err := role.ValidateInvitable(); err != nil {
		return nil, err
	}
	if permissions == nil {
		permissions = m.rolePermissions[role]
	} else if err := permissions.Validate(); err != nil {
		return nil, err
	}
	inviterRole, err := m.getRole(ctx, docId, inviterId)
	if err != nil {
		return nil, err
	}
	if !inviterRole.IsAtLeast(doc.RoleEditor) {
		return nil, &errors.NotAuthorizedError{}
	}
	c := doc.Collaborator{
		UserId:      userId,
		Role:        role,
		Permissions: append(doc.Permissions(nil), permissions...),
		InvitedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
	if err = m.dm.AddCollaborator(ctx, docId, c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (m *manager) AcceptInvitation(ctx context.Context, docId, userId sharedTypes.UUID) (*doc.Collaborator, error) {
	if err := m.dm.AcceptInvitation(ctx, docId, userId); err != nil {
		return nil, err
	}
	m.forgetRole(docId, userId)
	d, err := m.dm.Get(ctx, docId)
	if err != nil {
		return nil, err
	}
	c := d.Collaborator(userId)
	if c == nil {
		return nil, &errors.NotFoundError{}
	}
	return c, nil
}

func (m *manager) RemoveCollaborator(ctx context.Context, docId, removerId, userId sharedTypes.UUID) error {
	removerRole, err := m.getRole(ctx, docId, removerId)
	if err != nil {
		return err
	}
	if removerRole != doc.RoleOwner {
		return &errors.NotAuthorizedError{}
	}
	d, err := m.dm.Get(ctx, docId)
	if err != nil {
		return err
	}
	target := d.Collaborator(userId)
	if target == nil {
		return &errors.NotFoundError{}
	}
	if target.Role == doc.RoleOwner {
		return &errors.ValidationError{Msg: "cannot remove the owner"}
	}
	if err = m.dm.RemoveCollaborator(ctx, docId, userId); err != nil {
		return err
	}
	m.forgetRole(docId, userId)
	return nil
}
