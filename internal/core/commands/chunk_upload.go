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
// pipelines. This file uploads the materialized audio chunks through a
// bounded worker pool.
//
// Logic Flow:
//  1. A fixed pool of workers pulls chunks from a jobs channel, so a long
//     recording's worth of chunks uploads with bounded concurrency while
//     the uploader's rate limiter paces the actual requests.
//  2. Workers send per-chunk outcomes back on a results channel; only the
//     collecting goroutine touches the job record, so chunk statuses need
//     no locking.
//  3. Each chunk transitions processing -> complete (with its durable URL)
//     or processing -> failed (with its reason). A failed chunk never stops
//     its siblings.
//  4. The job ends done when every chunk completed, partial-failure
//     otherwise. The transient chunk payloads are dropped either way.
package commands

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/slidecast/media-extract/internal/core/cor"
	"github.com/slidecast/media-extract/internal/core/model"
	"github.com/slidecast/media-extract/internal/core/services"
)

// PhaseUploadChunks is the progress phase name for chunk uploads.
const PhaseUploadChunks = "upload-chunks"

// ChunkUpload uploads materialized chunks concurrently.
type ChunkUpload struct {
	cor.BaseCommand
	uploader        services.Uploader
	numberOfWorkers int
}

// NewChunkUpload creates the upload command with the given pool size.
func NewChunkUpload(name string, uploader services.Uploader, numberOfWorkers int) *ChunkUpload {
	if numberOfWorkers <= 0 {
		numberOfWorkers = 4
	}
	return &ChunkUpload{
		BaseCommand:     *cor.NewBaseCommand(name),
		uploader:        uploader,
		numberOfWorkers: numberOfWorkers,
	}
}

// chunkResult carries one worker outcome back to the collector.
type chunkResult struct {
	index int
	url   string
	err   error
}

// Execute uploads every chunk and finalizes the job's chunk statuses.
func (c *ChunkUpload) Execute(context cor.Context) {
	chunks := context.Get(c.GetInputParam()).([]*model.AudioChunk)
	j := job(context)
	if j == nil {
		context.AddError(c.GetName(), fmt.Errorf("no job attached to workflow context"))
		return
	}

	rep := reporter(context)
	rep.EnterPhase(PhaseUploadChunks)

	for _, chunk := range chunks {
		j.Chunks[chunk.Index].Status = model.ChunkStatusProcessing
	}

	var wg sync.WaitGroup
	jobs := make(chan *model.AudioChunk, len(chunks))
	results := make(chan chunkResult, len(chunks))

	for w := 0; w < c.numberOfWorkers; w++ {
		wg.Add(1)
		go c.uploadWorker(context.GetContext(), j.ID, jobs, results, &wg)
	}

	for _, chunk := range chunks {
		jobs <- chunk
	}
	close(jobs)

	wg.Wait()
	close(results)

	completed := 0
	for r := range results {
		if r.err != nil {
			c.GetErrorCounter().Add(context.GetContext(), 1)
			j.Chunks[r.index].Status = model.ChunkStatusFailed
			j.Chunks[r.index].Error = r.err.Error()
		} else {
			j.Chunks[r.index].Status = model.ChunkStatusComplete
			j.Chunks[r.index].AudioPath = r.url
		}
		completed++
		rep.Step(completed, len(chunks))
	}

	j.State = model.JobStateDone
	for _, meta := range j.Chunks {
		if meta.Status != model.ChunkStatusComplete {
			j.State = model.JobStatePartialFailure
			break
		}
	}
	now := time.Now()
	j.CompletedAt = &now

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), j)
}

func (c *ChunkUpload) uploadWorker(ctx context.Context, jobID string, jobs <-chan *model.AudioChunk, results chan<- chunkResult, wg *sync.WaitGroup) {
	defer wg.Done()
	for chunk := range jobs {
		objectPath := fmt.Sprintf("jobs/%s/audio/chunks/%04d.wav", jobID, chunk.Index)
		url, err := c.uploader.Upload(ctx, chunk.Data, objectPath, chunk.MIMEType)
		results <- chunkResult{index: chunk.Index, url: url, err: err}
	}
}
