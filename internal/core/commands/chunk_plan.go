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

// Package commands provides the concrete workflow steps of the extraction
// pipelines. This file plans the audio chunking: it turns the decoded
// track's duration and data rate into the chunk metadata plan that the
// materialize and upload steps execute against. The plan is recorded on the
// job immediately, so a caller polling the job sees the chunk list with
// pending statuses before any chunk bytes move.
package commands

import (
	"fmt"

	"github.com/slidecast/media-extract/internal/core/cor"
	"github.com/slidecast/media-extract/internal/media/audio"
)

// ChunkPlan computes the chunk metadata plan for the decoded track.
type ChunkPlan struct {
	cor.BaseCommand
	maxChunkSeconds float64
	maxChunkBytes   int
}

// NewChunkPlan creates the planning command. maxChunkMB bounds the encoded
// size of each chunk.
func NewChunkPlan(name string, maxChunkSeconds float64, maxChunkMB int) *ChunkPlan {
	return &ChunkPlan{
		BaseCommand:     *cor.NewBaseCommand(name),
		maxChunkSeconds: maxChunkSeconds,
		maxChunkBytes:   maxChunkMB * 1024 * 1024,
	}
}

// Execute plans the chunks and records the plan on the job.
func (c *ChunkPlan) Execute(context cor.Context) {
	track := context.Get(c.GetInputParam()).(*audio.Track)
	j := job(context)
	if j == nil {
		context.AddError(c.GetName(), fmt.Errorf("no job attached to workflow context"))
		return
	}

	plan, err := audio.PlanChunks(track.Duration(), track.BytesPerSecond(), c.maxChunkSeconds, c.maxChunkBytes)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	j.Chunks = plan
	context.Add(c.GetOutputParam(), plan)
}
