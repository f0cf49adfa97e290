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

package annotation

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/coedit-dev/coedit-go/pkg/errors"
	"github.com/coedit-dev/coedit-go/pkg/sharedTypes"
)

type Manager interface {
	CreateComment(ctx context.Context, c *Comment) error
	GetComment(ctx context.Context, docId, commentId sharedTypes.UUID) (*Comment, error)
	ListComments(ctx context.Context, docId sharedTypes.UUID) ([]Comment, error)

	CreateSuggestion(ctx context.Context, s *Suggestion) error
	GetSuggestion(ctx context.Context, docId, suggestionId sharedTypes.UUID) (*Suggestion, error)
	ListSuggestions(ctx context.Context, docId sharedTypes.UUID) ([]Suggestion, error)

	// Resolve flips a pending suggestion into a terminal status. A
	// suggestion that is already resolved stays as it is.
	Resolve(ctx context.Context, docId, suggestionId sharedTypes.UUID, status SuggestionStatus, resolvedBy sharedTypes.UUID) error
}

func New(db *mongo.Database) Manager {
	return &manager{
		cComments:    db.Collection("comments"),
		cSuggestions: db.Collection("suggestions"),
	}
}

func rewriteMongoError(err error) error {
	if err == mongo.ErrNoDocuments {
		return &errors.NotFoundError{}
	}
	return err
}

type manager struct {
	cComments    *mongo.Collection
	cSuggestions *mongo.Collection
}

func (m *manager) CreateComment(ctx context.Context, c *Comment) error {
	if err := c.Validate(); err != nil {
		return err
	}
	id, err := sharedTypes.GenerateUUID()
	if err != nil {
		return err
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	c.Id = id
	c.CreatedAt = now
	c.UpdatedAt = now
	if _, err = m.cComments.InsertOne(ctx, c); err != nil {
		return errors.Tag(err, "insert comment")
	}
	return nil
}

func (m *manager) GetComment(ctx context.Context, docId, commentId sharedTypes.UUID) (*Comment, error) {
	c := &Comment{}
	err := m.cComments.FindOne(
		ctx, bson.M{"_id": commentId, "doc_id": docId},
	).Decode(c)
	if err != nil {
		return nil, rewriteMongoError(err)
	}
	return c, nil
}

func (m *manager) ListComments(ctx context.Context, docId sharedTypes.UUID) ([]Comment, error) {
	r, err := m.cComments.Find(
		ctx, bson.M{"doc_id": docId},
		options.Find().SetSort(bson.M{"created_at": 1}),
	)
	if err != nil {
		return nil, rewriteMongoError(err)
	}
	comments := make([]Comment, 0)
	if err = r.All(ctx, &comments); err != nil {
		return nil, rewriteMongoError(err)
	}
	return comments, nil
}

func (m *manager) CreateSuggestion(ctx context.Context, s *Suggestion) error {
	if err := s.Validate(); err != nil {
		return err
	}
	id, err := sharedTypes.GenerateUUID()
	if err != nil {
		return err
	}
	s.Id = id
	s.Status = SuggestionPending
	s.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if _, err = m.cSuggestions.InsertOne(ctx, s); err != nil {
		return errors.Tag(err, "insert suggestion")
	}
	return nil
}

func (m *manager) GetSuggestion(ctx context.Context, docId, suggestionId sharedTypes.UUID) (*Suggestion, error) {
	s := &Suggestion{}
	err := m.cSuggestions.FindOne(
		ctx, bson.M{"_id": suggestionId, "doc_id": docId},
	).Decode(s)
	if err != nil {
		return nil, rewriteMongoError(err)
	}
	return s, nil
}

func (m *manager) ListSuggestions(ctx context.Context, docId sharedTypes.UUID) ([]Suggestion, error) {
	r, err := m.cSuggestions.Find(
		ctx, bson.M{"doc_id": docId},
		options.Find().SetSort(bson.M{"created_at": 1}),
	)
	if err != nil {
		return nil, rewriteMongoError(err)
	}
	suggestions := make([]Suggestion, 0)
	if err = r.All(ctx, &suggestions); err != nil {
		return nil, rewriteMongoError(err)
	}
	return suggestions, nil
}

func (m *manager) Resolve(ctx context.Context, docId, suggestionId sharedTypes.UUID, status SuggestionStatus, resolvedBy sharedTypes.UUID) error {
	if status != SuggestionAccepted && status != SuggestionRejected {
		return &errors.ValidationError{Msg: "invalid terminal status"}
	}
	q := bson.M{
		"_id":    suggestionId,
		"doc_id": docId,
		"status": SuggestionPending,
	}
	u := bson.M{
		"$set": bson.M{
			"status":      status,
			"resolved_at": time.Now().UTC().Truncate(time.Millisecond),
			"resolved_by": resolvedBy,
		},
	}
	r, err := m.cSuggestions.UpdateOne(ctx, q, u)
	if err != nil {
		return rewriteMongoError(err)
	}
	if r.MatchedCount != 1 {
		// distinguish "unknown id" from "already resolved"
		s, err2 := m.GetSuggestion(ctx, docId, suggestionId)
		if err2 != nil {
			return err2
		}
		return &errors.InvalidStateError{
			Msg: "suggestion is already " + string(s.Status),
		}
	}
	return nil
}
