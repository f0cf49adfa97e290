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
	"time"

	"github.com/coedit-dev/coedit-go/pkg/sharedTypes"
)

type Doc struct {
	Id            sharedTypes.UUID     `bson:"_id" json:"id"`
	Snapshot      sharedTypes.Snapshot `bson:"snapshot" json:"snapshot"`
	Version       sharedTypes.Version  `bson:"version" json:"version"`
	Collaborators []Collaborator       `bson:"collaborators" json:"collaborators"`
	CreatedAt     time.Time            `bson:"created_at" json:"created_at"`
	LastUpdatedAt time.Time            `bson:"last_updated_at" json:"last_updated_at"`
	LastUpdatedBy sharedTypes.UUID     `bson:"last_updated_by,omitempty" json:"last_updated_by,omitempty"`
}

type Collaborator struct {
	UserId      sharedTypes.UUID `bson:"user_id" json:"user_id"`
	Role        Role             `bson:"role" json:"role"`
	Permissions Permissions      `bson:"permissions" json:"permissions"`
	InvitedAt   time.Time        `bson:"invited_at" json:"invited_at"`
	AcceptedAt  *time.Time       `bson:"accepted_at,omitempty" json:"accepted_at,omitempty"`
}

// HasAccepted reports whether the invitation was accepted. A pending
// collaborator has no rights beyond accepting.
func (c *Collaborator) HasAccepted() bool {
	return c.AcceptedAt != nil
}

// Collaborator returns the entry for userId, accepted or pending.
func (d *Doc) Collaborator(userId sharedTypes.UUID) *Collaborator {
	for i := range d.Collaborators {
		if d.Collaborators[i].UserId == userId {
			return &d.Collaborators[i]
		}
	}
	return nil
}
