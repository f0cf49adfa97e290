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

package doc

import (
	"github.com/coedit-dev/coedit-go/pkg/errors"
	"github.com/coedit-dev/coedit-go/pkg/sharedTypes"
)

type Role string

const (
	RoleOwner    Role = "owner"
	RoleEditor   Role = "editor"
	RoleReviewer Role = "reviewer"
	RoleViewer   Role = "viewer"
)

func (r Role) score() int {
	switch r {
	case RoleOwner:
		return 3
	case RoleEditor:
		return 2
	case RoleReviewer:
		return 1
	case RoleViewer:
		return 0
	default:
		return -1
	}
}

func (r Role) IsAtLeast(other Role) bool {
	return r.score() >= other.score()
}

func (r Role) Validate() error {
	if r.score() == -1 {
		return &errors.ValidationError{Msg: "invalid role"}
	}
	return nil
}

// ValidateInvitable rejects roles that cannot be granted via invitation.
// Ownership is established at document creation and never re-assigned
// through the invite flow.
func (r Role) ValidateInvitable() error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r == RoleOwner {
		return &errors.ValidationError{Msg: "cannot invite as owner"}
	}
	return nil
}

type Permission string

const (
	PermissionRead    Permission = "read"
	PermissionWrite   Permission = "write"
	PermissionComment Permission = "comment"
	PermissionSuggest Permission = "suggest"
)

func (p Permission) Validate() error {
	switch p {
	case PermissionRead, PermissionWrite, PermissionComment, PermissionSuggest:
		return nil
	default:
		return &errors.ValidationError{Msg: "invalid permission"}
	}
}

type Permissions []Permission

func (p Permissions) Validate() error {
	for _, perm := range p {
		if err := perm.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (p Permissions) Contains(perm Permission) bool {
	for _, existing := range p {
		if existing == perm {
			return true
		}
	}
	return false
}

// RolePermissions maps a role to the permissions it grants by default.
// The coordinator receives one at construction and treats it as
// immutable; there is no process wide mutable policy state.
type RolePermissions map[Role]Permissions

func DefaultRolePermissions() RolePermissions {
	return RolePermissions{
		RoleOwner: {
			PermissionRead, PermissionWrite,
			PermissionComment, PermissionSuggest,
		},
		RoleEditor: {
			PermissionRead, PermissionWrite,
			PermissionComment, PermissionSuggest,
		},
		RoleReviewer: {
			PermissionRead, PermissionComment, PermissionSuggest,
		},
		RoleViewer: {
			PermissionRead,
		},
	}
}

// Clone deep-copies the table so that callers cannot mutate a shared
// instance after handing it over.
func (rp RolePermissions) Clone() RolePermissions {
	cloned := make(RolePermissions, len(rp))
	for role, perms := range rp {
		cloned[role] = append(Permissions(nil), perms...)
	}
	return cloned
}

// CheckPermission resolves userId's membership on d and verifies the
// requested permission. Pending invitations grant nothing.
func (d *Doc) CheckPermission(userId sharedTypes.UUID, perm Permission) error {
	c := d.Collaborator(userId)
	if c == nil || !c.HasAccepted() {
		return &errors.NotAuthorizedError{}
	}
	if !c.Permissions.Contains(perm) {
		return &errors.NotAuthorizedError{}
	}
	return nil
}
