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
// This file holds the audio-side models: the persisted chunk metadata plan
// and the transient chunk payloads that flow through materialization and
// upload.
package model

// ChunkStatus tracks a chunk through the materialize-and-upload pipeline.
type ChunkStatus string

const (
	ChunkStatusPending    ChunkStatus = "pending"
	ChunkStatusProcessing ChunkStatus = "processing"
	ChunkStatusComplete   ChunkStatus = "complete"
	ChunkStatusFailed     ChunkStatus = "failed"
)

// AudioChunkMetadata is one entry of a chunk plan. The plan partitions
// [0, duration) exactly: chunks are sequential, non-overlapping, and the
// final chunk is truncated to the remaining tail. The metadata array (never
// the binary payloads) is what gets persisted alongside a project.
type AudioChunkMetadata struct {
	Index     int         `json:"index"`
	StartTime float64     `json:"startTime"`
	EndTime   float64     `json:"endTime"`
	Duration  float64     `json:"duration"`
	AudioPath string      `json:"audioPath,omitempty"` // Durable storage URL once uploaded.
	Status    ChunkStatus `json:"status"`
	Error     string      `json:"error,omitempty"` // Populated when Status is failed.
}

// AudioChunk is a transient materialized slice of the full audio track. It is
// produced by re-slicing the decoded sample buffer according to the plan,
// consumed by the upload step, then discarded.
type AudioChunk struct {
	Data      []byte
	MIMEType  string
	Index     int
	StartTime float64
	EndTime   float64
	Duration  float64
	Size      int
}
