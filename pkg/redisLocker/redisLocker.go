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

// Package redisLocker provides a short-lived per-document advisory lock.
//
// The lock value is unique per acquisition attempt and release happens
// via a compare-and-delete script. A holder that overran the lock TTL
// cannot delete a lock that was re-acquired by someone else in the
// meantime, and its own release reports an error instead of silently
// succeeding.
package redisLocker

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/coedit-dev/coedit-go/pkg/errors"
	"github.com/coedit-dev/coedit-go/pkg/sharedTypes"
)

type Runner func(ctx context.Context) error

type Token struct {
	key          string
	value        string
	expiredAfter time.Time
}

type Locker interface {
	// Acquire polls for the lock until maxWait has passed. On success the
	// returned Token must be passed back to Release on every exit path.
	Acquire(ctx context.Context, docId sharedTypes.UUID) (*Token, error)

	// Release frees the lock iff the token still owns it.
	Release(token *Token) error

	// RunWithLock runs runner while holding the lock for docId. The ctx
	// handed to runner expires before the lock TTL does.
	RunWithLock(ctx context.Context, docId sharedTypes.UUID, runner Runner) error
}

type Options struct {
	// TTL must exceed the expected critical section duration with margin.
	TTL time.Duration

	// MaxWait bounds a single Acquire call including polling.
	MaxWait time.Duration
}

func (o Options) withDefaults() Options {
	if o.TTL == 0 {
		o.TTL = 30 * time.Second
	}
	if o.MaxWait == 0 {
		o.MaxWait = 10 * time.Second
	}
	return o
}

const (
	testInterval    = 50 * time.Millisecond
	maxTestInterval = 1 * time.Second
	maxRedisRequest = 5 * time.Second
)

var (
	ErrLocked         = &errors.EditConflictError{}
	ErrReleaseExpired = errors.New("tried to release expired lock")
)

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

func New(client redis.UniversalClient, namespace string, o Options) (Locker, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, errors.Tag(err, "get hostname")
	}
	salt := make([]byte, 4)
	if _, err = rand.Read(salt); err != nil {
		return nil, errors.Tag(err, "get random salt")
	}
	return &locker{
		client: client,
		o:      o.withDefaults(),
		valuePrefix: "locked:host=" + hostname +
			":pid=" + strconv.Itoa(os.Getpid()) +
			":random=" + hex.EncodeToString(salt),
		namespace: namespace,
	}, nil
}

type locker struct {
	client      redis.UniversalClient
	o           Options
	counter     atomic.Int64
	valuePrefix string
	namespace   string
}

func (l *locker) key(docId sharedTypes.UUID) string {
	return l.namespace + ":{" + docId.String() + "}"
}

func (l *locker) uniqueValue() string {
	now := strconv.FormatInt(time.Now().UnixNano(), 10)
	n := strconv.FormatInt(l.counter.Add(1), 10)
	return l.valuePrefix + ":time=" + now + ":count=" + n
}

func (l *locker) Acquire(ctx context.Context, docId sharedTypes.UUID) (*Token, error) {
	t := &Token{key: l.key(docId), value: l.uniqueValue()}

	deadline := time.Now().Add(l.o.MaxWait)
	acquireCtx, done := context.WithDeadline(ctx, deadline)
	defer done()

	interval := testInterval
	for {
		gotLock, err := l.tryAcquire(acquireCtx, t)
		if err != nil {
			return nil, errors.Tag(err, "check/acquire lock")
		}
		if gotLock {
			return t, nil
		}
		if time.Now().Add(interval).After(deadline) {
			return nil, ErrLocked
		}
		time.Sleep(interval)
		if interval *= 2; interval > maxTestInterval {
			interval = maxTestInterval
		}
	}
}

func (l *locker) tryAcquire(ctx context.Context, t *Token) (bool, error) {
	attemptCtx, done := context.WithTimeout(ctx, maxRedisRequest)
	defer done()

	// The expiry estimate must be taken before the request goes out, a
	// slow SET could otherwise leave us believing we hold an already
	// expired lock.
	expiredAfter := time.Now().Add(l.o.TTL)
	ok, err := l.client.SetNX(attemptCtx, t.key, t.value, l.o.TTL).Result()
	if err != nil {
		return false, err
	}
	if ok {
		t.expiredAfter = expiredAfter
	}
	return ok, nil
}

func (l *locker) Release(t *Token) error {
	if time.Now().After(t.expiredAfter) {
		// The store dropped the lock already, nothing left to delete.
		return ErrReleaseExpired
	}

	ctx, done := context.WithDeadline(context.Background(), t.expiredAfter)
	defer done()
	res, err := releaseScript.Run(ctx, l.client, []string{t.key}, t.value).Result()
	if time.Now().After(t.expiredAfter) {
		return nil
	}
	if err != nil {
		return errors.Tag(err, "release lock")
	}
	if n, ok := res.(int64); !ok || n != 1 {
		return ErrReleaseExpired
	}
	return nil
}

func (l *locker) RunWithLock(ctx context.Context, docId sharedTypes.UUID, runner Runner) error {
	t, err := l.Acquire(ctx, docId)
	if err != nil {
		return err
	}

	// Bound the critical section so that work cannot overrun the lock.
	workCtx, workDone := context.WithDeadline(ctx, t.expiredAfter.Add(-time.Second))
	defer workDone()
	runnerErr := runner(workCtx)

	if releaseErr := l.Release(t); runnerErr == nil {
		return releaseErr
	}
	return runnerErr
}
