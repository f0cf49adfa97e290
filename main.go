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
	"context"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/coedit-dev/coedit-go/pkg/managers/collab"
)

func waitForDb(ctx context.Context, client *mongo.Client) error {
	return client.Ping(ctx, readpref.Primary())
}

func main() {
	address, mongoOptions, dbName, redisOptions, collabOptions := getOptions()
	ctx := context.Background()
	client, err := mongo.Connect(ctx, mongoOptions)
	if err != nil {
		panic(err)
	}
	err = waitForDb(ctx, client)
	if err != nil {
		panic(err)
	}
	db := client.Database(dbName)

	redisClient := redis.NewUniversalClient(redisOptions)
	if err = redisClient.Ping(ctx).Err(); err != nil {
		panic(err)
	}

	cm, err := collab.New(db, redisClient, collabOptions)
	if err != nil {
		panic(err)
	}
	handler := newHttpController(cm)

	server := http.Server{
		Addr:    address,
		Handler: handler.GetRouter(),
	}
	err = server.ListenAndServe()
	if err != nil {
		panic(err)
	}
}
