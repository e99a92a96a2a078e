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

// Package model defines the core data structures for the extraction service.
// This file defines the extraction job: the unit of orchestration state that
// moves through loading, extracting and uploading, ends in a terminal state,
// and is what callers poll for progress.
package model

import "time"

// JobState is the orchestration state machine for one extraction job.
type JobState string

const (
	JobStateIdle           JobState = "idle"
	JobStateLoadingSource  JobState = "loading-source"
	JobStateExtracting     JobState = "extracting"
	JobStateUploading      JobState = "uploading"
	JobStateDone           JobState = "done"
	JobStatePartialFailure JobState = "partial-failure"
	JobStateFatalFailure   JobState = "fatal-failure"
)

// Terminal reports whether the state is one of the three end states.
func (s JobState) Terminal() bool {
	return s == JobStateDone || s == JobStatePartialFailure || s == JobStateFatalFailure
}

// JobKind distinguishes the two extraction pipelines.
type JobKind string

const (
	JobKindFrames JobKind = "frames"
	JobKindAudio  JobKind = "audio"
)

// JobProgress is the aggregate progress a caller sees. Percent is a weighted
// composite across sub-phases and is monotonically non-decreasing for the
// lifetime of the job.
type JobProgress struct {
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Percent   float64 `json:"percent"`
	Phase     string  `json:"phase,omitempty"`
}

// ExtractionJob is the full record of one extraction run. Every input
// timestamp or chunk appears exactly once in the result: either among the
// successes (Frames, Chunks) or among the tagged failures (FailedTimestamps,
// failed chunk statuses). A job never silently loses data.
type ExtractionJob struct {
	ID               string               `json:"id"`
	Kind             JobKind              `json:"kind"`
	State            JobState             `json:"state"`
	SourceBucket     string               `json:"sourceBucket,omitempty"`
	SourceObject     string               `json:"sourceObject,omitempty"`
	Progress         JobProgress          `json:"progress"`
	Frames           []*ExtractedFrame    `json:"frames,omitempty"`
	Placeholders     []*PlaceholderFrame  `json:"placeholders,omitempty"`
	FailedTimestamps []FailedTimestamp    `json:"failedTimestamps,omitempty"`
	InvalidInputs    []string             `json:"invalidInputs,omitempty"`
	AudioURL         string               `json:"audioUrl,omitempty"` // Durable URL of the full extracted track.
	Chunks           []AudioChunkMetadata `json:"chunks,omitempty"`
	Error            string               `json:"error,omitempty"` // Set on fatal failure.
	CreatedAt        time.Time            `json:"createdAt"`
	CompletedAt      *time.Time           `json:"completedAt,omitempty"`
}
