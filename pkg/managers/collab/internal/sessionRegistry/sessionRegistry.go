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

// Package sessionRegistry tracks who has a document open.
//
// One redis hash per document: one field per user holding the session
// blob, plus a <userId>:age field with the last-activity time. Starting
// a session for a (doc, user) pair that already has one replaces it,
// which is what a duplicated tab or a reconnect looks like. Expiry is
// lazy: listing filters idle entries and prunes them in the background.
package sessionRegistry

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/coedit-dev/coedit-go/pkg/errors"
	"github.com/coedit-dev/coedit-go/pkg/sharedTypes"
)

type Cursor struct {
	Position  int `json:"p"`
	Selection int `json:"s,omitempty"`
}

type Session struct {
	UserId       sharedTypes.UUID `json:"user_id"`
	SessionId    sharedTypes.UUID `json:"session_id"`
	StartedAt    int64            `json:"started_at"`
	LastActivity int64            `json:"-"`
	Cursor       *Cursor          `json:"cursor,omitempty"`
}

type Manager interface {
	// Start opens a session, superseding any prior one of the same user.
	Start(ctx context.Context, docId, userId sharedTypes.UUID) (*Session, error)

	End(ctx context.Context, docId, userId sharedTypes.UUID) error

	// Touch refreshes the idle timer, optionally moving the cursor.
	Touch(ctx context.Context, docId, userId sharedTypes.UUID, cursor *Cursor) error

	// List returns the sessions that were active within the idle TTL.
	List(ctx context.Context, docId sharedTypes.UUID) ([]Session, error)
}

type Options struct {
	// IdleTTL is how long a session survives without a Touch.
	IdleTTL time.Duration
}

func (o Options) withDefaults() Options {
	if o.IdleTTL == 0 {
		o.IdleTTL = time.Hour
	}
	return o
}

func New(rClient redis.UniversalClient, o Options) Manager {
	return &manager{rClient: rClient, o: o.withDefaults()}
}

type manager struct {
	rClient redis.UniversalClient
	o       Options
}

func getSessionsKey(docId sharedTypes.UUID) string {
	return "docSessions:{" + docId.String() + "}"
}

func ageField(userId sharedTypes.UUID) string {
	return userId.String() + ":age"
}

func encodeAge(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 36)
}

func (m *manager) Start(ctx context.Context, docId, userId sharedTypes.UUID) (*Session, error) {
	sessionId, err := sharedTypes.GenerateUUID()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	s := Session{
		UserId:       userId,
		SessionId:    sessionId,
		StartedAt:    now.Unix(),
		LastActivity: now.Unix(),
	}
	if err = m.persist(ctx, docId, &s, now); err != nil {
		return nil, errors.Tag(err, "persist session")
	}
	return &s, nil
}

func (m *manager) persist(ctx context.Context, docId sharedTypes.UUID, s *Session, now time.Time) error {
	blob, err := json.Marshal(s)
	if err != nil {
		return errors.Tag(err, "serialize session")
	}
	key := getSessionsKey(docId)
	_, err = m.rClient.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key,
			s.UserId.String(), blob,
			ageField(s.UserId), encodeAge(now),
		)
		p.Expire(ctx, key, 2*m.o.IdleTTL)
		return nil
	})
	return err
}

func (m *manager) End(ctx context.Context, docId, userId sharedTypes.UUID) error {
	err := m.rClient.HDel(
		ctx, getSessionsKey(docId), userId.String(), ageField(userId),
	).Err()
	if err != nil {
		return errors.Tag(err, "end session")
	}
	return nil
}

func (m *manager) Touch(ctx context.Context, docId, userId sharedTypes.UUID, cursor *Cursor) error {
	key := getSessionsKey(docId)
	now := time.Now()

	// Writing the age field for a user without a session blob would leave
	// an orphan field in the hash, so both paths insist on the blob.
	raw, err := m.rClient.HGet(ctx, key, userId.String()).Result()
	if err == redis.Nil {
		return &errors.NotFoundError{}
	}
	if err != nil {
		return errors.Tag(err, "get session")
	}

	if cursor == nil {
		_, err = m.rClient.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, key, ageField(userId), encodeAge(now))
			p.Expire(ctx, key, 2*m.o.IdleTTL)
			return nil
		})
		if err != nil {
			return errors.Tag(err, "touch session")
		}
		return nil
	}

	s := Session{}
	if err = json.Unmarshal([]byte(raw), &s); err != nil {
		return errors.Tag(err, "parse session")
	}
	s.Cursor = cursor
	if err = m.persist(ctx, docId, &s, now); err != nil {
		return errors.Tag(err, "touch session")
	}
	return nil
}

func (m *manager) List(ctx context.Context, docId sharedTypes.UUID) ([]Session, error) {
	entries, err := m.rClient.HGetAll(ctx, getSessionsKey(docId)).Result()
	if err != nil {
		return nil, errors.Tag(err, "list sessions")
	}
	sessions, stale, err := parseSessions(entries, time.Now(), m.o.IdleTTL)
	if err != nil {
		return nil, err
	}
	if len(stale) > 0 {
		go m.cleanupStaleSessionsInBackground(docId, stale)
	}
	return sessions, nil
}

// parseSessions splits a raw hash into live sessions and the user ids
// whose last activity is older than the idle TTL.
func parseSessions(entries map[string]string, now time.Time, idleTTL time.Duration) ([]Session, []string, error) {
	tStale := now.Add(-idleTTL).Unix()
	lastActivity := make(map[string]int64, len(entries)/2)
	var stale []string
	for k, v := range entries {
		userId, _, isAge := strings.Cut(k, ":age")
		if !isAge {
			continue
		}
		delete(entries, k)
		t, _ := strconv.ParseInt(v, 36, 64)
		if t < tStale {
			stale = append(stale, userId)
			delete(entries, userId)
		} else {
			lastActivity[userId] = t
		}
	}

	sessions := make([]Session, 0, len(entries))
	for userId, blob := range entries {
		s := Session{}
		if err := json.Unmarshal([]byte(blob), &s); err != nil {
			return nil, stale, errors.Tag(err, "parse session")
		}
		if _, live := lastActivity[userId]; !live {
			// session blob without age field, e.g. a half-deleted entry
			stale = append(stale, userId)
			continue
		}
		s.LastActivity = lastActivity[userId]
		sessions = append(sessions, s)
	}
	return sessions, stale, nil
}

func (m *manager) cleanupStaleSessionsInBackground(docId sharedTypes.UUID, stale []string) {
	ctx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()

	fields := make([]string, 0, 2*len(stale))
	for _, userId := range stale {
		fields = append(fields, userId, userId+":age")
	}
	err := m.rClient.HDel(ctx, getSessionsKey(docId), fields...).Err()
	if err != nil {
		log.Printf(
			"%s: %s",
			docId, errors.Tag(err, "clear stale sessions"),
		)
	}
}
