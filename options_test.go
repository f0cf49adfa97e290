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

package main

import (
	"testing"
	"time"
)

func TestGetOptions(t *testing.T) {
	t.Setenv("LISTEN_ADDRESS", "0.0.0.0")
	t.Setenv("PORT", "4040")
	t.Setenv("MONGO_CONNECTION_STRING", "mongodb://mongo.internal/coeditTest")
	t.Setenv("REDIS_HOST", "redis.internal:6379")
	t.Setenv("DOC_LOCK_TTL", "15000")
	t.Setenv("OP_LOG_MAX_LENGTH", "64")

	address, _, dbName, redisOptions, collabOptions := getOptions()
	if address != "0.0.0.0:4040" {
		t.Errorf("address = %q", address)
	}
	if dbName != "coeditTest" {
		t.Errorf("dbName = %q", dbName)
	}
	if len(redisOptions.Addrs) != 1 || redisOptions.Addrs[0] != "redis.internal:6379" {
		t.Errorf("redis addrs = %v", redisOptions.Addrs)
	}
	if collabOptions.LockTTL != 15*time.Second {
		t.Errorf("lock ttl = %s", collabOptions.LockTTL)
	}
	if collabOptions.OpLogMaxLength != 64 {
		t.Errorf("op log max length = %d", collabOptions.OpLogMaxLength)
	}
	if collabOptions.SessionIdleTTL != time.Hour {
		t.Errorf("session idle ttl = %s", collabOptions.SessionIdleTTL)
	}
}
