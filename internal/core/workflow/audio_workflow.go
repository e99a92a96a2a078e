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
	"github.com/slidecast/media-extract/internal/media/audio"
)

// AudioExtractionWorkflow orchestrates the audio pipeline for one uploaded
// source: decode the track to PCM, upload the full WAV, plan and cut the
// transcription-sized chunks, upload them through a worker pool, and
// persist the manifest.
type AudioExtractionWorkflow struct {
	cor.BaseCommand
	config   *cloud.Config
	clients  *cloud.ServiceClients
	jobs     *services.JobStore
	registry *Registry
	persist  cor.Command
	chain    cor.Chain
}

// NewAudioExtractionPipeline wires the audio pipeline from configuration.
func NewAudioExtractionPipeline(
	config *cloud.Config,
	serviceClients *cloud.ServiceClients,
	registry *Registry) *AudioExtractionWorkflow {

	pipeline := &AudioExtractionWorkflow{
		BaseCommand: *cor.NewBaseCommand("audio-extraction-pipeline"),
		config:      config,
		clients:     serviceClients,
		jobs:        services.NewJobStore(serviceClients.RedisClient),
		registry:    registry,
	}
	pipeline.initializeChain()
	return pipeline
}

// initializeChain builds the audio command sequence. Chunk slicing and
// uploading continue past per-chunk failures, so the chain itself only
// stops on fatal steps (staging, decode, planning).
func (w *AudioExtractionWorkflow) initializeChain() {
	cfg := w.config

	out := cor.NewBaseChain(w.GetName())

	out.AddCommand(commands.NewExtractionTriggerToGCSObject("extraction-trigger-to-gcs-object"))
	out.AddCommand(commands.NewSourceToTempFile("source-to-temp-file", w.clients.StorageClient, "audio-extract-"))

	// Decode the source's audio stream to a PCM track at the configured
	// rate and channel layout.
	extractor := audio.NewFFmpegExtractor(cfg.Tools.FFmpegPath, cfg.Audio.SampleRate, cfg.Audio.NumChannels)
	out.AddCommand(commands.NewAudioTrackExtraction("extract-audio", extractor))

	uploader := w.newUploader()
	out.AddCommand(commands.NewAudioTrackUpload("upload-track", uploader))
	out.AddCommand(commands.NewChunkPlan("plan-chunks", cfg.Audio.MaxChunkSeconds, cfg.Audio.MaxChunkMB))
	out.AddCommand(commands.NewChunkMaterialize("chunk-audio"))
	out.AddCommand(commands.NewChunkUpload("upload-chunks", uploader, cfg.Application.ThreadPoolSize))

	w.persist = commands.NewManifestPersist("persist-manifest", &services.ManifestService{
		BigqueryClient: w.clients.BigQueryClient,
		DatasetName:    cfg.BigQueryDataSource.DatasetName,
		ManifestTable:  cfg.BigQueryDataSource.ManifestTable,
	})

	w.chain = out
}

func (w *AudioExtractionWorkflow) newUploader() services.Uploader {
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

// Execute runs the audio pipeline for one trigger message.
func (w *AudioExtractionWorkflow) Execute(context cor.Context) {
	j := &model.ExtractionJob{
		ID:        uuid.NewString(),
		Kind:      model.JobKindAudio,
		State:     model.JobStateLoadingSource,
		CreatedAt: time.Now(),
	}
	tracker := NewJobTracker(context.GetContext(), j, w.jobs, AudioPhaseWeights())
	w.registry.Track(tracker)
	defer w.registry.Release(j.ID)

	context.SetContext(tracker.Context())
	context.Add(commands.GetJobParameterName(), j)
	context.Add(commands.GetTrackerParameterName(), tracker)

	if err := w.jobs.Save(tracker.Context(), j); err != nil {
		slog.Warn("failed to persist new job", "job", j.ID, "error", err)
	}

	w.chain.Execute(context)
	finalize(context, j, tracker)
	w.persist.Execute(context)
}
