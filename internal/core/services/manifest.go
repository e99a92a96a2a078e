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
// sources. This file defines the ManifestService, which persists the durable
// outcome of finished extraction jobs to BigQuery. The manifest is the
// queryable record of what was extracted from which source: frame URLs with
// their timestamps and the audio chunk plan. Binary payloads never reach
// this layer, only storage references.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/slidecast/media-extract/internal/core/model"
)

// ManifestFrame is the persisted shape of one extracted frame.
type ManifestFrame struct {
	Timestamp string `bigquery:"timestamp"`
	ImageURL  string `bigquery:"image_url"`
}

// ManifestChunk is the persisted shape of one audio chunk plan entry.
type ManifestChunk struct {
	Index     int     `bigquery:"index"`
	StartTime float64 `bigquery:"start_time"`
	EndTime   float64 `bigquery:"end_time"`
	Duration  float64 `bigquery:"duration"`
	AudioPath string  `bigquery:"audio_path"`
	Status    string  `bigquery:"status"`
}

// Manifest is one row of the manifest table: the durable summary of a
// finished extraction job.
type Manifest struct {
	JobID        string          `bigquery:"job_id"`
	Kind         string          `bigquery:"kind"`
	State        string          `bigquery:"state"`
	SourceBucket string          `bigquery:"source_bucket"`
	SourceObject string          `bigquery:"source_object"`
	AudioURL     string          `bigquery:"audio_url"`
	Frames       []ManifestFrame `bigquery:"frames"`
	Chunks       []ManifestChunk `bigquery:"chunks"`
	CreatedAt    time.Time       `bigquery:"created_at"`
	CompletedAt  time.Time       `bigquery:"completed_at"`
}

// ManifestService reads and writes job manifests in BigQuery.
type ManifestService struct {
	BigqueryClient *bigquery.Client
	DatasetName    string // The name of the BigQuery dataset (e.g., "media_extract_ds").
	ManifestTable  string // The name of the manifest table.
}

// GetFQN returns the complete, queryable name for the manifest table,
// formatted with dots instead of colons.
func (s *ManifestService) GetFQN() string {
	fqn := s.BigqueryClient.Dataset(s.DatasetName).Table(s.ManifestTable).FullyQualifiedName()
	return strings.Replace(fqn, ":", ".", -1)
}

// Save writes the manifest for a terminal job. Jobs that are still running
// have nothing durable to record yet and are rejected.
func (s *ManifestService) Save(ctx context.Context, job *model.ExtractionJob) error {
	if !job.State.Terminal() {
		return fmt.Errorf("job %s is in non-terminal state %s, refusing to persist manifest", job.ID, job.State)
	}

	row := &Manifest{
		JobID:        job.ID,
		Kind:         string(job.Kind),
		State:        string(job.State),
		SourceBucket: job.SourceBucket,
		SourceObject: job.SourceObject,
		AudioURL:     job.AudioURL,
		CreatedAt:    job.CreatedAt,
	}
	if job.CompletedAt != nil {
		row.CompletedAt = *job.CompletedAt
	}
	for _, f := range job.Frames {
		row.Frames = append(row.Frames, ManifestFrame{Timestamp: f.Timestamp, ImageURL: f.ImageURL})
	}
	for _, c := range job.Chunks {
		row.Chunks = append(row.Chunks, ManifestChunk{
			Index:     c.Index,
			StartTime: c.StartTime,
			EndTime:   c.EndTime,
			Duration:  c.Duration,
			AudioPath: c.AudioPath,
			Status:    string(c.Status),
		})
	}

	inserter := s.BigqueryClient.Dataset(s.DatasetName).Table(s.ManifestTable).Inserter()
	return inserter.Put(ctx, row)
}

// Get retrieves the manifest for a single job by its ID.
func (s *ManifestService) Get(ctx context.Context, jobID string) (*Manifest, error) {
	q := s.BigqueryClient.Query(fmt.Sprintf(QryFindManifestByJobId, s.GetFQN()))
	q.Parameters = []bigquery.QueryParameter{{Name: "job_id", Value: jobID}}
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}
	out := &Manifest{}
	if err := itr.Next(out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListBySource retrieves the manifests of every job run against one source
// object, newest first.
func (s *ManifestService) ListBySource(ctx context.Context, bucket, object string) ([]*Manifest, error) {
	q := s.BigqueryClient.Query(fmt.Sprintf(QryListManifestsBySource, s.GetFQN()))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "source_bucket", Value: bucket},
		{Name: "source_object", Value: object},
	}
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*Manifest, 0)
	for {
		m := &Manifest{}
		err := itr.Next(m)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return out, fmt.Errorf("failed to iterate manifests: %w", err)
		}
		out = append(out, m)
	}
	return out, nil
}
