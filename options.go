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
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/coedit-dev/coedit-go/pkg/managers/collab"
)

func getIntFromEnv(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		panic(err)
	}
	return int(parsed)
}

func getStringFromEnv(key, fallback string) string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	return raw
}

func getDurationFromEnv(key string, fallback time.Duration) time.Duration {
	if v, exists := os.LookupEnv(key); !exists || v == "" {
		return fallback
	}
	return time.Duration(getIntFromEnv(key, 0) * int(time.Millisecond))
}

func getOptions() (
	address string,
	mongoOptions *options.ClientOptions,
	dbName string,
	redisOptions *redis.UniversalOptions,
	collabOptions collab.Options,
) {
	listenAddress := getStringFromEnv("LISTEN_ADDRESS", "localhost")
	port := getIntFromEnv("PORT", 3016)
	address = fmt.Sprintf("%s:%d", listenAddress, port)

	mongoConnectionString := os.Getenv("MONGO_CONNECTION_STRING")
	if mongoConnectionString == "" {
		mongoHost := os.Getenv("MONGO_HOST")
		if mongoHost == "" {
			mongoHost = "localhost"
		}
		mongoConnectionString = fmt.Sprintf(
			"mongodb://%s/coedit", mongoHost,
		)
	}
	mongoOptions = options.Client()
	mongoOptions.ApplyURI(mongoConnectionString)
	mongoOptions.SetAppName(os.Getenv("SERVICE_NAME"))
	mongoOptions.SetMaxPoolSize(
		uint64(getIntFromEnv("MONGO_POOL_SIZE", 10)),
	)
	mongoOptions.SetSocketTimeout(
		getDurationFromEnv("MONGO_SOCKET_TIMEOUT", 30*time.Second),
	)
	mongoOptions.SetServerSelectionTimeout(getDurationFromEnv(
		"MONGO_SERVER_SELECTION_TIMEOUT",
		60*time.Second,
	))

	cs, err := connstring.Parse(mongoConnectionString)
	if err != nil {
		panic(err)
	}
	dbName = cs.Database

	redisOptions = &redis.UniversalOptions{
		Addrs: []string{
			getStringFromEnv("REDIS_HOST", "localhost:6379"),
		},
		Password:   getStringFromEnv("REDIS_PASSWORD", ""),
		MaxRetries: 10,
		PoolSize:   getIntFromEnv("REDIS_POOL_SIZE", 0),
	}

	collabOptions = collab.Options{
		MaxApplyRetries: getIntFromEnv("MAX_APPLY_RETRIES", 3),
		AuthCacheSize:   getIntFromEnv("AUTH_CACHE_SIZE", 1024),
		LockTTL: getDurationFromEnv(
			"DOC_LOCK_TTL", 30*time.Second,
		),
		LockMaxWait: getDurationFromEnv(
			"DOC_LOCK_MAX_WAIT", 10*time.Second,
		),
		OpLogTTL: getDurationFromEnv(
			"OP_LOG_TTL", 60*time.Minute,
		),
		OpLogMaxLength: int64(getIntFromEnv("OP_LOG_MAX_LENGTH", 128)),
		SessionIdleTTL: getDurationFromEnv(
			"SESSION_IDLE_TTL", time.Hour,
		),
	}
	return
}
