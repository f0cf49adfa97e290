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
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/coedit-dev/coedit-go/pkg/errors"
	"github.com/coedit-dev/coedit-go/pkg/sharedTypes"
)

type Manager interface {
	Create(ctx context.Context, ownerId sharedTypes.UUID, snapshot sharedTypes.Snapshot, rolePermissions RolePermissions) (*Doc, error)
	Get(ctx context.Context, docId sharedTypes.UUID) (*Doc, error)

	// UpdateContent persists a new snapshot iff the stored version still
	// equals expectedVersion, bumping the version by one.
	UpdateContent(ctx context.Context, docId sharedTypes.UUID, snapshot sharedTypes.Snapshot, expectedVersion sharedTypes.Version, updatedBy sharedTypes.UUID) error

	AddCollaborator(ctx context.Context, docId sharedTypes.UUID, c Collaborator) error
	AcceptInvitation(ctx context.Context, docId, userId sharedTypes.UUID) error
	RemoveCollaborator(ctx context.Context, docId, userId sharedTypes.UUID) error
}

func New(db *mongo.Database) Manager {
	return &manager{
		c: db.Collection("docs"),
	}
}

func rewriteMongoError(err error) error {
	if err == mongo.ErrNoDocuments {
		return &errors.NotFoundError{}
	}
	return err
}

type manager struct {
	c *mongo.Collection
}

func (m *manager) Create(ctx context.Context, ownerId sharedTypes.UUID, snapshot sharedTypes.Snapshot, rolePermissions RolePermissions) (*Doc, error) {
	id, err := sharedTypes.GenerateUUID()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	d := &Doc{
		Id:       id,
		Snapshot: snapshot,
		Version:  0,
		Collaborators: []Collaborator{
			{
				UserId:      ownerId,
				Role:        RoleOwner,
				Permissions: rolePermissions[RoleOwner],
				InvitedAt:   now,
				AcceptedAt:  &now,
			},
		},
		CreatedAt:     now,
		LastUpdatedAt: now,
		LastUpdatedBy: ownerId,
	}
	if _, err = m.c.InsertOne(ctx, d); err != nil {
		return nil, errors.Tag(err, "insert doc")
	}
	return d, nil
}

func (m *manager) Get(ctx context.Context, docId sharedTypes.UUID) (*Doc, error) {
	d := &Doc{}
	err := m.c.FindOne(ctx, bson.M{"_id": docId}).Decode(d)
	if err != nil {
		return nil, rewriteMongoError(err)
	}
	return d, nil
}

func (m *manager) UpdateContent(ctx context.Context, docId sharedTypes.UUID, snapshot sharedTypes.Snapshot, expectedVersion sharedTypes.Version, updatedBy sharedTypes.UUID) error {
	q := bson.M{
		"_id":     docId,
		"version": expectedVersion,
	}
	u := bson.M{
		"$set": bson.M{
			"snapshot":        snapshot,
			"last_updated_at": time.Now().UTC().Truncate(time.Millisecond),
			"last_updated_by": updatedBy,
		},
		"$inc": bson.M{"version": 1},
	}
	r, err := m.c.UpdateOne(ctx, q, u)
	if err != nil {
		return rewriteMongoError(err)
	}
	if r.MatchedCount != 1 {
		// either the doc is gone or someone else persisted first
		n, err2 := m.c.CountDocuments(ctx, bson.M{"_id": docId})
		if err2 != nil {
			return rewriteMongoError(err2)
		}
		if n == 0 {
			return &errors.NotFoundError{}
		}
		return &errors.VersionConflictError{}
	}
	return nil
}

func (m *manager) AddCollaborator(ctx context.Context, docId sharedTypes.UUID, c Collaborator) error {
	q := bson.M{
		"_id": docId,
		"collaborators.user_id": bson.M{
			"$ne": c.UserId,
		},
	}
	u := bson.M{
		"$push": bson.M{"collaborators": c},
	}
	r, err := m.c.UpdateOne(ctx, q, u)
	if err != nil {
		return rewriteMongoError(err)
	}
	if r.MatchedCount != 1 {
		n, err2 := m.c.CountDocuments(ctx, bson.M{"_id": docId})
		if err2 != nil {
			return rewriteMongoError(err2)
		}
		if n == 0 {
			return &errors.NotFoundError{}
		}
		return &errors.AlreadyCollaboratorError{}
	}
	return nil
}

func (m *manager) AcceptInvitation(ctx context.Context, docId, userId sharedTypes.UUID) error {
	q := bson.M{
		"_id": docId,
		"collaborators": bson.M{
			"$elemMatch": bson.M{
				"user_id":     userId,
				"accepted_at": nil,
			},
		},
	}
	u := bson.M{
		"$set": bson.M{
			"collaborators.$.accepted_at": time.Now().UTC().Truncate(time.Millisecond),
		},
	}
	r, err := m.c.UpdateOne(ctx, q, u)
	if err != nil {
		return rewriteMongoError(err)
	}
	if r.MatchedCount != 1 {
		return &errors.NotFoundError{}
	}
	return nil
}

func (m *manager) RemoveCollaborator(ctx context.Context, docId, userId sharedTypes.UUID) error {
	q := bson.M{"_id": docId}
	u := bson.M{
		"$pull": bson.M{
			"collaborators": bson.M{"user_id": userId},
		},
	}
	r, err := m.c.UpdateOne(ctx, q, u)
	if err != nil {
		return rewriteMongoError(err)
	}
	if r.MatchedCount != 1 {
		return &errors.NotFoundError{}
	}
	if r.ModifiedCount != 1 {
		return &errors.NotFoundError{}
	}
	return nil
}
