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

package workflow

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/slidecast/media-extract/internal/cloud"
	"github.com/slidecast/media-extract/internal/core/commands"
	"github.com/slidecast/media-extract/internal/core/cor"
	"github.com/slidecast/media-extract/internal/core/model"
	"github.com/slidecast/media-extract/internal/core/services"
	"github.com/slidecast/media-extract/internal/media/frames"
	"github.com/slidecast/media-extract/internal/media/source"
)

// FrameExtractionWorkflow orchestrates the frame pipeline for one uploaded
// source. It is structured as a Chain of Responsibility (cor.Chain) that
// stages the source from GCS, captures one frame per requested timestamp,
// uploads the survivors, and persists the manifest.
//
// The workflow is typically triggered by a Pub/Sub notification for an
// object landing in the media input bucket with a "timestamps" metadata
// entry.
type FrameExtractionWorkflow struct {
	cor.BaseCommand
	config   *cloud.Config
	clients  *cloud.ServiceClients
	jobs     *services.JobStore
	registry *Registry
	persist  cor.Command
	chain    cor.Chain
}

// NewFrameExtractionPipeline wires the frame pipeline from configuration.
func NewFrameExtractionPipeline(
	config *cloud.Config,
	serviceClients *cloud.ServiceClients,
	registry *Registry) *FrameExtractionWorkflow {

	pipeline := &FrameExtractionWorkflow{
		BaseCommand: *cor.NewBaseCommand("frame-extraction-pipeline"),
		config:      config,
		clients:     serviceClients,
		jobs:        services.NewJobStore(serviceClients.RedisClient),
		registry:    registry,
	}
	pipeline.initializeChain()
	return pipeline
}

// initializeChain builds the sequence of commands that make up the frame
// pipeline. The output of each command pipes into the next.
func (w *FrameExtractionWorkflow) initializeChain() {
	cfg := w.config

	out := cor.NewBaseChain(w.GetName())

	// Step 1: Parse the incoming Pub/Sub notification into a GCS object
	// reference and pull the requested timestamps from its metadata.
	out.AddCommand(commands.NewExtractionTriggerToGCSObject("extraction-trigger-to-gcs-object"))

	// Step 2: Stage the source object to a local temp file and verify it is
	// actually playable media before handing it to the decoder.
	out.AddCommand(commands.NewSourceToTempFile("source-to-temp-file", w.clients.StorageClient, "frame-extract-"))

	// Step 3: Capture one frame per requested timestamp, with blank-frame
	// retries and bounded seek waits.
	decoder := source.NewFFmpegDecoder(cfg.Tools.FFmpegPath, cfg.Tools.FFprobePath)
	out.AddCommand(commands.NewFrameExtraction("extract-frames", decoder, frames.Config{
		SeekTimeout:    cfg.Extraction.SeekTimeout(),
		BlankThreshold: uint8(cfg.Extraction.BlankThreshold),
		RetryOffsets:   cfg.Extraction.RetryOffsets,
		JPEGQuality:    cfg.Extraction.JPEGQuality,
		AcceptBlank:    cfg.Extraction.AcceptBlank,
		SkipBlankCheck: cfg.Extraction.SkipBlankCheck,
	}))

	// Step 4: Upload the captured frames to the artifact bucket, degrade
	// failures to placeholders or tagged skips, and settle the job's
	// terminal state.
	uploader := w.newUploader()
	out.AddCommand(commands.NewFrameUpload("upload-frames", uploader, cfg.Extraction.UsePlaceholders, cfg.Extraction.JPEGQuality))

	// The manifest writer runs outside the chain so fatal failures are
	// persisted too.
	w.persist = commands.NewManifestPersist("persist-manifest", &services.ManifestService{
		BigqueryClient: w.clients.BigQueryClient,
		DatasetName:    cfg.BigQueryDataSource.DatasetName,
		ManifestTable:  cfg.BigQueryDataSource.ManifestTable,
	})

	w.chain = out
}

func (w *FrameExtractionWorkflow) newUploader() services.Uploader {
	u := services.NewGCSUploader(w.clients.StorageClient, w.config.Storage.ArtifactOutputBucket)
	if w.config.Uploads.MaxAttempts > 0 {
		u.MaxAttempts = w.config.Uploads.MaxAttempts
	}
	if w.config.Uploads.RetryDelayMillis > 0 {
		u.RetryDelay = time.Duration(w.config.Uploads.RetryDelayMillis) * time.Millisecond
	}
	if w.config.Uploads.PerSecond > 0 {
		u.Limiter = rate.NewLimiter(rate.Limit(w.config.Uploads.PerSecond), w.config.Uploads.PerSecond)
	}
	return u
}

// Execute runs the frame pipeline for one trigger message. Each run gets
// its own job record and tracker; the tracker's context flows into every
// command so a cancelled job stops the chain.
func (w *FrameExtractionWorkflow) Execute(context cor.Context) {
	j := &model.ExtractionJob{
		ID:        uuid.NewString(),
		Kind:      model.JobKindFrames,
		State:     model.JobStateLoadingSource,
		CreatedAt: time.Now(),
	}
	tracker := NewJobTracker(context.GetContext(), j, w.jobs, FramePhaseWeights())
	w.registry.Track(tracker)
	defer w.registry.Release(j.ID)

	context.SetContext(tracker.Context())
	context.Add(commands.GetJobParameterName(), j)
	context.Add(commands.GetTrackerParameterName(), tracker)

	// Persist the initial record so pollers see the job before any phase
	// reports progress.
	if err := w.jobs.Save(tracker.Context(), j); err != nil {
		slog.Warn("failed to persist new job", "job", j.ID, "error", err)
	}

	w.chain.Execute(context)
	finalize(context, j, tracker)
	w.persist.Execute(context)
}
