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

// Package collab coordinates all edits on shared documents.
//
// It owns the commit path: every mutation of a document body flows
// through a per-document redis lock, gets rebased onto the committed
// operations its author had not seen and is then persisted with a
// version check. Membership, presence and annotations hang off the same
// coordinator so that permission checks sit in one place.
package collab

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/coedit-dev/coedit-go/pkg/errors"
	"github.com/coedit-dev/coedit-go/pkg/managers/collab/internal/opLog"
	"github.com/coedit-dev/coedit-go/pkg/managers/collab/internal/sessionRegistry"
	"github.com/coedit-dev/coedit-go/pkg/models/annotation"
	"github.com/coedit-dev/coedit-go/pkg/models/doc"
	"github.com/coedit-dev/coedit-go/pkg/redisLocker"
	"github.com/coedit-dev/coedit-go/pkg/sharedTypes"
)

// Aliases for the internal types that surface in the public API.
type (
	CommittedOp = opLog.Entry
	Session     = sessionRegistry.Session
	Cursor      = sessionRegistry.Cursor
)

type Manager interface {
	CreateDocument(ctx context.Context, ownerId sharedTypes.UUID, content sharedTypes.Snapshot) (*doc.Doc, error)
	GetDocument(ctx context.Context, docId, userId sharedTypes.UUID) (*DocumentView, error)

	// ApplyOperation commits op on docId, rebasing it onto any committed
	// operations past op.BaseVersion. Resubmitting an operation id that
	// already committed within the log window returns the prior commit.
	ApplyOperation(ctx context.Context, docId sharedTypes.UUID, op sharedTypes.Operation) (*CommittedOp, error)

	// InviteCollaborator adds a pending collaborator. A nil permissions
	// slice grants the role's default permission set.
	InviteCollaborator(ctx context.Context, docId, inviterId, userId sharedTypes.UUID, role doc.Role, permissions doc.Permissions) (*doc.Collaborator, error)
	AcceptInvitation(ctx context.Context, docId, userId sharedTypes.UUID) (*doc.Collaborator, error)
	RemoveCollaborator(ctx context.Context, docId, removerId, userId sharedTypes.UUID) error

	StartSession(ctx context.Context, docId, userId sharedTypes.UUID) (*Session, error)
	EndSession(ctx context.Context, docId, userId sharedTypes.UUID) error
	TouchSession(ctx context.Context, docId, userId sharedTypes.UUID, cursor *Cursor) error
	ListActiveSessions(ctx context.Context, docId, userId sharedTypes.UUID) ([]Session, error)

	AddComment(ctx context.Context, docId, authorId sharedTypes.UUID, c *annotation.Comment) error
	ReplyToComment(ctx context.Context, docId, parentId, authorId sharedTypes.UUID, c *annotation.Comment) error
	AddSuggestion(ctx context.Context, docId, authorId sharedTypes.UUID, s *annotation.Suggestion) error
	AcceptSuggestion(ctx context.Context, docId, suggestionId, reviewerId sharedTypes.UUID) error
	RejectSuggestion(ctx context.Context, docId, suggestionId, reviewerId sharedTypes.UUID) error
}

type Options struct {
	// RolePermissions is copied at construction time; later mutation of
	// the passed table has no effect.
	RolePermissions doc.RolePermissions

	// MaxApplyRetries bounds how often a conflicted commit is retried
	// before the conflict surfaces to the caller.
	MaxApplyRetries int

	AuthCacheSize int

	LockTTL     time.Duration
	LockMaxWait time.Duration

	OpLogTTL       time.Duration
	OpLogMaxLength int64

	SessionIdleTTL time.Duration
}

func (o Options) withDefaults() Options {
	if o.RolePermissions == nil {
		o.RolePermissions = doc.DefaultRolePermissions()
	}
	if o.MaxApplyRetries == 0 {
		o.MaxApplyRetries = 3
	}
	if o.AuthCacheSize == 0 {
		o.AuthCacheSize = 1024
	}
	return o
}

func New(db *mongo.Database, rClient redis.UniversalClient, o Options) (Manager, error) {
	o = o.withDefaults()
	locker, err := redisLocker.New(rClient, "docLock", redisLocker.Options{
		TTL:     o.LockTTL,
		MaxWait: o.LockMaxWait,
	})
	if err != nil {
		return nil, errors.Tag(err, "create doc locker")
	}
	authCache, err := lru.New[string, membership](o.AuthCacheSize)
	if err != nil {
		return nil, errors.Tag(err, "create auth cache")
	}
	return &manager{
		dm: doc.New(db),
		am: annotation.New(db),
		log: opLog.New(rClient, opLog.Options{
			TTL:       o.OpLogTTL,
			MaxLength: o.OpLogMaxLength,
		}),
		sessions: sessionRegistry.New(rClient, sessionRegistry.Options{
			IdleTTL: o.SessionIdleTTL,
		}),
		locker:          locker,
		rolePermissions: o.RolePermissions.Clone(),
		authCache:       authCache,
		maxApplyRetries: o.MaxApplyRetries,
	}, nil
}

type manager struct {
	dm       doc.Manager
	am       annotation.Manager
	log      opLog.Manager
	sessions sessionRegistry.Manager
	locker   redisLocker.Locker

	rolePermissions doc.RolePermissions
	authCache       *lru.Cache[string, membership]
	maxApplyRetries int
}

// membership is the cached access decision for one (doc, user) pair.
// Permissions are the collaborator's effective set, which may deviate
// from the role defaults when the invite customized them.
type membership struct {
	role        doc.Role
	permissions doc.Permissions
}

func authCacheKey(docId, userId sharedTypes.UUID) string {
	return docId.String() + ":" + userId.String()
}

// getMembership resolves userId's accepted membership on docId, via the
// cache when possible. Pending invitations and non-members yield
// NotAuthorizedError and are never cached.
func (m *manager) getMembership(ctx context.Context, docId, userId sharedTypes.UUID) (membership, error) {
	key := authCacheKey(docId, userId)
	if mem, ok := m.authCache.Get(key); ok {
		return mem, nil
	}
	d, err := m.dm.Get(ctx, docId)
	if err != nil {
		return membership{}, err
	}
	c := d.Collaborator(userId)
	if c == nil || !c.HasAccepted() {
		return membership{}, &errors.NotAuthorizedError{}
	}
	mem := membership{role: c.Role, permissions: c.Permissions}
	m.authCache.Add(key, mem)
	return mem, nil
}

func (m *manager) getRole(ctx context.Context, docId, userId sharedTypes.UUID) (doc.Role, error) {
	mem, err := m.getMembership(ctx, docId, userId)
	if err != nil {
		return "", err
	}
	return mem.role, nil
}

func (m *manager) checkPermission(ctx context.Context, docId, userId sharedTypes.UUID, perm doc.Permission) error {
	mem, err := m.getMembership(ctx, docId, userId)
	if err != nil {
		return err
	}
	if !mem.permissions.Contains(perm) {
		return &errors.NotAuthorizedError{}
	}
	return nil
}

// forgetRole drops the cached membership after a membership change. Only
// the touched (doc, user) pair is invalidated, other cached entries stay.
func (m *manager) forgetRole(docId, userId sharedTypes.UUID) {
	m.authCache.Remove(authCacheKey(docId, userId))
}
