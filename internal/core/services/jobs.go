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

// Package services contains the business logic for interacting with data
// sources. This file defines the JobStore, which keeps the live state of
// extraction jobs in Redis. Jobs are polled frequently while running and
// become uninteresting shortly after they finish, which is a cache shape,
// not a warehouse shape; the durable record of a finished job lives in the
// BigQuery manifest, so job entries simply expire.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/slidecast/media-extract/internal/core/model"
)

// DefaultJobTTL is how long a job record stays readable after its last
// update. Running jobs refresh the TTL on every progress save.
const DefaultJobTTL = 24 * time.Hour

// ErrJobNotFound is returned when a job ID is unknown or has expired.
var ErrJobNotFound = errors.New("job not found")

// JobStore keeps extraction job state in Redis, keyed by job ID.
type JobStore struct {
	Client *redis.Client
	TTL    time.Duration // Expiry per job record; default DefaultJobTTL.
}

// NewJobStore creates a store around an existing Redis client.
func NewJobStore(client *redis.Client) *JobStore {
	return &JobStore{Client: client, TTL: DefaultJobTTL}
}

func jobKey(id string) string {
	return "job:" + id
}

// Save writes the full job record, refreshing its expiry.
func (s *JobStore) Save(ctx context.Context, job *model.ExtractionJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job %s: %w", job.ID, err)
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = DefaultJobTTL
	}
	return s.Client.Set(ctx, jobKey(job.ID), data, ttl).Err()
}

// Get retrieves a job by ID. Unknown and expired IDs both surface as
// ErrJobNotFound.
func (s *JobStore) Get(ctx context.Context, id string) (*model.ExtractionJob, error) {
	data, err := s.Client.Get(ctx, jobKey(id)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	job := &model.ExtractionJob{}
	if err := json.Unmarshal(data, job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job %s: %w", id, err)
	}
	return job, nil
}

// Delete removes a job record. Deleting an unknown ID is not an error.
func (s *JobStore) Delete(ctx context.Context, id string) error {
	return s.Client.Del(ctx, jobKey(id)).Err()
}
