// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cloud provides components for interacting with Google Cloud
// services. This file initializes every external client the service talks
// to and bundles them into one ServiceClients container that is handed to
// the API handlers and workflows at startup.
//
// Logic Flow:
//  1. NewCloudServiceClients is called once at startup with the loaded
//     configuration.
//  2. Clients for Storage, Pub/Sub, BigQuery, IAM credentials and Redis are
//     created in order; any failure aborts startup.
//  3. A PubSubListener is created per configured subscription. Listeners
//     start with no command attached; the workflow wiring attaches one
//     before Listen is called.
package cloud

import (
	"context"

	"cloud.google.com/go/bigquery"
	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"github.com/redis/go-redis/v9"
)

// ServiceClients is the container for every external service connection the
// application holds. One instance is created at startup and shared.
type ServiceClients struct {
	StorageClient   *storage.Client
	PubsubClient    *pubsub.Client
	BigQueryClient  *bigquery.Client
	IAMClient       *credentials.IamCredentialsClient
	RedisClient     *redis.Client
	PubSubListeners map[string]*PubSubListener // Active listeners, keyed by the logical name from the config.
}

// Close releases every client connection. Useful in tests and controlled
// shutdowns; in production the root context usually manages lifetimes.
func (c *ServiceClients) Close() {
	_ = c.StorageClient.Close()
	_ = c.PubsubClient.Close()
	_ = c.BigQueryClient.Close()
	_ = c.IAMClient.Close()
	_ = c.RedisClient.Close()
}

// NewCloudServiceClients initializes all external clients from the
// configuration.
func NewCloudServiceClients(ctx context.Context, config *Config) (*ServiceClients, error) {
	sc, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}

	pc, err := pubsub.NewClient(ctx, config.Application.GoogleProjectId)
	if err != nil {
		return nil, err
	}

	bc, err := bigquery.NewClient(ctx, config.Application.GoogleProjectId)
	if err != nil {
		return nil, err
	}

	ic, err := credentials.NewIamCredentialsClient(ctx)
	if err != nil {
		return nil, err
	}

	rc := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})

	subscriptions := make(map[string]*PubSubListener)
	for subKey := range config.TopicSubscriptions {
		values := config.TopicSubscriptions[subKey]
		actual, err := NewPubSubListener(pc, values.Name, nil)
		if err != nil {
			return nil, err
		}
		subscriptions[subKey] = actual
	}

	return &ServiceClients{
		StorageClient:   sc,
		PubsubClient:    pc,
		BigQueryClient:  bc,
		IAMClient:       ic,
		RedisClient:     rc,
		PubSubListeners: subscriptions,
	}, nil
}
