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

// Package workflow defines the high-level business logic orchestrations,
// combining extraction commands into coherent pipelines. This file implements
// the job tracker that turns per-phase progress callbacks into the single
// weighted percentage a caller polls for.
package workflow

import (
	"context"
	"log/slog"
	"sync"

	"github.com/slidecast/media-extract/internal/core/commands"
	"github.com/slidecast/media-extract/internal/core/model"
	"github.com/slidecast/media-extract/internal/core/services"
)

// PhaseWeight assigns one named phase a slice of the overall percentage and
// the job state a caller should see while that phase runs.
type PhaseWeight struct {
	Phase string
	Start float64
	End   float64
	State model.JobState
}

// JobTracker receives progress callbacks from the commands of a running
// pipeline and folds them into the job record. The percentage is a weighted
// composite of the phase table and never moves backwards, even when a phase
// re-reports or reports out of order. Every update is persisted to the job
// store so pollers observe progress while the chain is still running.
type JobTracker struct {
	mu      sync.Mutex
	job     *model.ExtractionJob
	store   *services.JobStore
	ctx     context.Context
	cancel  context.CancelFunc
	weights []PhaseWeight
	current *PhaseWeight
	percent float64
}

// NewJobTracker creates a tracker bound to a job record. The returned
// tracker owns a derived context; Cancel releases it and marks the run as
// abandoned for any in-flight commands that check it.
func NewJobTracker(ctx context.Context, job *model.ExtractionJob, store *services.JobStore, weights []PhaseWeight) *JobTracker {
	runCtx, cancel := context.WithCancel(ctx)
	return &JobTracker{
		job:     job,
		store:   store,
		ctx:     runCtx,
		cancel:  cancel,
		weights: weights,
	}
}

// Context returns the run context. Commands executing under this tracker
// observe cancellation through it.
func (t *JobTracker) Context() context.Context {
	return t.ctx
}

// Cancel abandons the run. Progress reported after cancellation is ignored
// so a late in-flight result cannot resurrect an abandoned job.
func (t *JobTracker) Cancel() {
	t.cancel()
}

// Job returns the tracked job record.
func (t *JobTracker) Job() *model.ExtractionJob {
	return t.job
}

// EnterPhase switches the tracker to the named phase. Unknown phases are
// tolerated and contribute nothing to the percentage.
func (t *JobTracker) EnterPhase(phase string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ctx.Err() != nil {
		return
	}
	t.current = nil
	for i := range t.weights {
		if t.weights[i].Phase == phase {
			t.current = &t.weights[i]
			break
		}
	}
	t.job.Progress.Phase = phase
	t.job.Progress.Completed = 0
	t.job.Progress.Total = 0
	if t.current != nil {
		t.job.State = t.current.State
		t.advance(t.current.Start)
	}
	t.persist()
}

// Step records that completed of total work items in the current phase are
// done. The composite percentage only ever increases.
func (t *JobTracker) Step(completed int, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ctx.Err() != nil || t.current == nil || total <= 0 {
		return
	}
	t.job.Progress.Completed = completed
	t.job.Progress.Total = total
	fraction := float64(completed) / float64(total)
	if fraction > 1 {
		fraction = 1
	}
	t.advance(t.current.Start + (t.current.End-t.current.Start)*fraction)
	t.persist()
}

// Finish pushes the terminal job record to the store. The percentage is
// forced to 100 only for fully successful jobs; partial failures keep the
// composite value their completed work earned.
func (t *JobTracker) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.job.State == model.JobStateDone {
		t.advance(100)
	}
	t.persist()
}

func (t *JobTracker) advance(percent float64) {
	if percent > t.percent {
		t.percent = percent
	}
	t.job.Progress.Percent = t.percent
}

func (t *JobTracker) persist() {
	if t.store == nil {
		return
	}
	if err := t.store.Save(t.ctx, t.job); err != nil {
		slog.Warn("failed to persist job progress", "job", t.job.ID, "error", err)
	}
}

// FramePhaseWeights is the phase table for the frame pipeline: extraction
// earns the first half of the percentage, uploads the second.
func FramePhaseWeights() []PhaseWeight {
	return []PhaseWeight{
		{Phase: commands.PhaseExtractFrames, Start: 0, End: 50, State: model.JobStateExtracting},
		{Phase: commands.PhaseUploadFrames, Start: 50, End: 100, State: model.JobStateUploading},
	}
}

// AudioPhaseWeights is the phase table for the audio pipeline. Extraction
// dominates because decode time scales with source length, while the three
// later phases split the remainder evenly.
func AudioPhaseWeights() []PhaseWeight {
	return []PhaseWeight{
		{Phase: commands.PhaseExtractAudio, Start: 0, End: 40, State: model.JobStateExtracting},
		{Phase: commands.PhaseUploadTrack, Start: 40, End: 60, State: model.JobStateUploading},
		{Phase: commands.PhaseChunkAudio, Start: 60, End: 80, State: model.JobStateUploading},
		{Phase: commands.PhaseUploadChunks, Start: 80, End: 100, State: model.JobStateUploading},
	}
}
