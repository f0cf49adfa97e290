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

package sessionRegistry

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/coedit-dev/coedit-go/pkg/errors"
	"github.com/coedit-dev/coedit-go/pkg/sharedTypes"
)

func newTestManager(t *testing.T) (Manager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, Options{IdleTTL: time.Hour}), mr
}

func mustUUID(t *testing.T) sharedTypes.UUID {
	t.Helper()
	id, err := sharedTypes.GenerateUUID()
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func hashEntry(t *testing.T, s Session, lastActivity time.Time) (string, string, string, string) {
	t.Helper()
	blob, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	return s.UserId.String(), string(blob),
		ageField(s.UserId), strconv.FormatInt(lastActivity.Unix(), 36)
}

func TestParseSessions(t *testing.T) {
	now := time.Now()
	idleTTL := time.Hour

	liveUser := mustUUID(t)
	idleUser := mustUUID(t)

	live := Session{UserId: liveUser, SessionId: mustUUID(t), StartedAt: now.Unix()}
	idle := Session{UserId: idleUser, SessionId: mustUUID(t), StartedAt: now.Add(-3 * time.Hour).Unix()}

	entries := map[string]string{}
	k1, v1, k2, v2 := hashEntry(t, live, now.Add(-time.Minute))
	entries[k1], entries[k2] = v1, v2
	// idle user last touched two idle TTLs ago and never called End
	k1, v1, k2, v2 = hashEntry(t, idle, now.Add(-2*idleTTL))
	entries[k1], entries[k2] = v1, v2

	sessions, stale, err := parseSessions(entries, now, idleTTL)
	if err != nil {
		t.Fatalf("parseSessions() error = %v", err)
	}
	if len(sessions) != 1 || sessions[0].UserId != liveUser {
		t.Errorf("parseSessions() sessions = %+v, want only live user", sessions)
	}
	if sessions[0].LastActivity == 0 {
		t.Errorf("parseSessions() did not set LastActivity")
	}
	if len(stale) != 1 || stale[0] != idleUser.String() {
		t.Errorf("parseSessions() stale = %v, want [%s]", stale, idleUser)
	}
}

func TestParseSessionsMissingAgeIsStale(t *testing.T) {
	now := time.Now()
	userId := mustUUID(t)
	blob, err := json.Marshal(Session{UserId: userId, SessionId: mustUUID(t)})
	if err != nil {
		t.Fatal(err)
	}
	entries := map[string]string{userId.String(): string(blob)}

	sessions, stale, err := parseSessions(entries, now, time.Hour)
	if err != nil {
		t.Fatalf("parseSessions() error = %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("parseSessions() sessions = %+v, want none", sessions)
	}
	if len(stale) != 1 || stale[0] != userId.String() {
		t.Errorf("parseSessions() stale = %v, want [%s]", stale, userId)
	}
}

func TestTouchWithoutSession(t *testing.T) {
	m, mr := newTestManager(t)
	ctx := context.Background()
	docId := mustUUID(t)
	userId := mustUUID(t)

	if err := m.Touch(ctx, docId, userId, nil); !errors.IsNotFoundError(err) {
		t.Errorf("Touch() error = %v, want NotFoundError", err)
	}
	// No age field may appear for a user without a session blob.
	if mr.Exists(getSessionsKey(docId)) {
		t.Errorf("Touch() of unknown user wrote to the registry")
	}

	cursor := Cursor{Position: 3}
	if err := m.Touch(ctx, docId, userId, &cursor); !errors.IsNotFoundError(err) {
		t.Errorf("Touch() with cursor error = %v, want NotFoundError", err)
	}
	if mr.Exists(getSessionsKey(docId)) {
		t.Errorf("Touch() of unknown user wrote to the registry")
	}
}

func TestTouchRefreshesExistingSession(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	docId := mustUUID(t)
	userId := mustUUID(t)

	s, err := m.Start(ctx, docId, userId)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err = m.Touch(ctx, docId, userId, nil); err != nil {
		t.Fatalf("Touch() error = %v", err)
	}
	if err = m.Touch(ctx, docId, userId, &Cursor{Position: 7}); err != nil {
		t.Fatalf("Touch() with cursor error = %v", err)
	}

	sessions, err := m.List(ctx, docId)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(sessions) != 1 || sessions[0].SessionId != s.SessionId {
		t.Fatalf("List() = %+v, want the started session", sessions)
	}
	if sessions[0].Cursor == nil || sessions[0].Cursor.Position != 7 {
		t.Errorf("List() cursor = %+v, want position 7", sessions[0].Cursor)
	}
}
