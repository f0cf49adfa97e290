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
	"time"

	"github.com/coedit-dev/coedit-go/pkg/errors"
	"github.com/coedit-dev/coedit-go/pkg/sharedTypes"
)

// Anchor pins an annotation to a place in the document.
type Anchor struct {
	Section string `bson:"section,omitempty" json:"section,omitempty"`
	Offset  int    `bson:"offset" json:"offset"`
}

type Comment struct {
	Id        sharedTypes.UUID  `bson:"_id" json:"id"`
	DocId     sharedTypes.UUID  `bson:"doc_id" json:"doc_id"`
	ParentId  *sharedTypes.UUID `bson:"parent_id,omitempty" json:"parent_id,omitempty"`
	AuthorId  sharedTypes.UUID  `bson:"author_id" json:"author_id"`
	Content   string            `bson:"content" json:"content"`
	Position  *Anchor           `bson:"position,omitempty" json:"position,omitempty"`
	CreatedAt time.Time         `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time         `bson:"updated_at" json:"updated_at"`
}

func (c *Comment) Validate() error {
	if c.Content == "" {
		return &errors.ValidationError{Msg: "comment content missing"}
	}
	if c.Position != nil && c.Position.Offset < 0 {
		return &errors.ValidationError{Msg: "comment position is negative"}
	}
	return nil
}

type SuggestionType string

const (
	SuggestionAddition     SuggestionType = "addition"
	SuggestionDeletion     SuggestionType = "deletion"
	SuggestionModification SuggestionType = "modification"
)

type SuggestionStatus string

const (
	SuggestionPending  SuggestionStatus = "pending"
	SuggestionAccepted SuggestionStatus = "accepted"
	SuggestionRejected SuggestionStatus = "rejected"
)

type Suggestion struct {
	Id              sharedTypes.UUID `bson:"_id" json:"id"`
	DocId           sharedTypes.UUID `bson:"doc_id" json:"doc_id"`
	AuthorId        sharedTypes.UUID `bson:"author_id" json:"author_id"`
	Type            SuggestionType   `bson:"type" json:"type"`
	Content         string           `bson:"content,omitempty" json:"content,omitempty"`
	OriginalContent string           `bson:"original_content,omitempty" json:"original_content,omitempty"`
	Position        Anchor           `bson:"position" json:"position"`
	Status          SuggestionStatus `bson:"status" json:"status"`
	CreatedAt       time.Time        `bson:"created_at" json:"created_at"`
	ResolvedAt      *time.Time       `bson:"resolved_at,omitempty" json:"resolved_at,omitempty"`
	ResolvedBy      sharedTypes.UUID `bson:"resolved_by,omitempty" json:"resolved_by,omitempty"`
}

func (s *Suggestion) Validate() error {
	if s.Position.Offset < 0 {
		return &errors.ValidationError{Msg: "suggestion position is negative"}
	}
	switch s.Type {
	case SuggestionAddition:
		if s.Content == "" {
			return &errors.ValidationError{Msg: "addition without content"}
		}
	case SuggestionDeletion:
		if s.OriginalContent == "" {
			return &errors.ValidationError{
				Msg: "deletion without original content",
			}
		}
	case SuggestionModification:
		if s.Content == "" || s.OriginalContent == "" {
			return &errors.ValidationError{
				Msg: "modification needs content and original content",
			}
		}
	default:
		return &errors.ValidationError{Msg: "invalid suggestion type"}
	}
	return nil
}
