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

// Package cloud defines the data structures for application configuration,
// loaded from TOML files, plus the clients and listeners built from them.
// This file centralizes every configurable parameter of the extraction
// service: storage buckets, pipeline tuning, chunking limits, upload policy,
// the Redis job store, BigQuery manifests, Pub/Sub triggers, and the paths
// of the external media tools.
package cloud

import "time"

// Storage holds the GCS bucket layout. Source media arrives in the input
// bucket; every artifact the pipelines produce (frames, placeholders, audio
// tracks, chunks) lands in the artifact bucket.
type Storage struct {
	MediaInputBucket     string `toml:"media_input_bucket"`
	ArtifactOutputBucket string `toml:"artifact_output_bucket"`
}

// Extraction tunes the frame capture engine.
type Extraction struct {
	SeekTimeoutSeconds float64   `toml:"seek_timeout_seconds"` // Bounded wait per seek before the timestamp is skipped.
	BlankThreshold     int       `toml:"blank_threshold"`      // Per-channel brightness ceiling for blank classification (0-255).
	SkipBlankCheck     bool      `toml:"skip_blank_check"`     // Turn blank classification and its offset retries off.
	JPEGQuality        int       `toml:"jpeg_quality"`         // Encode quality for captured frames.
	RetryOffsets       []float64 `toml:"retry_offsets"`        // Seek offsets tried when a frame classifies blank.
	AcceptBlank        bool      `toml:"accept_blank"`         // Keep a frame that stays blank after all retries.
	UsePlaceholders    bool      `toml:"use_placeholders"`     // Synthesize placeholder slates for failed interactive captures.
	DuplicateTolerance float64   `toml:"duplicate_tolerance"`  // Seconds within which interactive captures count as duplicates.
	SettleDelayMillis  int       `toml:"settle_delay_millis"`  // Pause before an interactive snapshot.
}

// SeekTimeout converts the configured seconds to a duration without losing
// the fractional part, so seek_timeout_seconds = 2.5 means 2.5s, not 2s.
func (e Extraction) SeekTimeout() time.Duration {
	return time.Duration(e.SeekTimeoutSeconds * float64(time.Second))
}

// Audio tunes the audio extraction and chunking pipeline.
type Audio struct {
	SampleRate      int     `toml:"sample_rate"`       // Decode rate; transcription services want 16000.
	NumChannels     int     `toml:"num_channels"`      // Decode channels; mono keeps chunks small.
	MaxChunkSeconds float64 `toml:"max_chunk_seconds"` // Duration cap per chunk.
	MaxChunkMB      int     `toml:"max_chunk_mb"`      // Size cap per chunk in megabytes.
}

// Uploads configures the storage upload adapter.
type Uploads struct {
	MaxAttempts      int `toml:"max_attempts"`       // Attempts per object before giving up.
	RetryDelayMillis int `toml:"retry_delay_millis"` // Fixed delay between attempts.
	PerSecond        int `toml:"per_second"`         // Rate limit across all uploads.
}

// Redis configures the job state store.
type Redis struct {
	Addr        string `toml:"addr"`
	Password    string `toml:"password"`
	DB          int    `toml:"db"`
	JobTTLHours int    `toml:"job_ttl_hours"` // Expiry for job records after their last update.
}

// BigQueryDataSource holds the dataset and table for job manifests.
type BigQueryDataSource struct {
	DatasetName   string `toml:"dataset"`
	ManifestTable string `toml:"manifest_table"`
}

// TopicSubscription configures one Pub/Sub subscription the service listens
// on for upload-triggered extraction.
type TopicSubscription struct {
	Name             string `toml:"name"`
	DeadLetterTopic  string `toml:"dead_letter_topic"`
	TimeoutInSeconds int    `toml:"timeout_in_seconds"`
}

// Tools holds the paths of the external media binaries.
type Tools struct {
	FFmpegPath  string `toml:"ffmpeg_path"`
	FFprobePath string `toml:"ffprobe_path"`
}

// Config is the root of the application configuration.
type Config struct {
	Application struct {
		Name                      string `toml:"name"`
		GoogleProjectId           string `toml:"google_project_id"`
		GoogleLocation            string `toml:"location"`
		ThreadPoolSize            int    `toml:"thread_pool_size"`             // Worker pool size for chunk uploads.
		SignerServiceAccountEmail string `toml:"signer_service_account_email"` // Service account used for signing GCS URLs.
	} `toml:"application"`
	Storage            Storage                      `toml:"storage"`
	Extraction         Extraction                   `toml:"extraction"`
	Audio              Audio                        `toml:"audio"`
	Uploads            Uploads                      `toml:"uploads"`
	Redis              Redis                        `toml:"redis"`
	BigQueryDataSource BigQueryDataSource           `toml:"big_query_data_source"`
	TopicSubscriptions map[string]TopicSubscription `toml:"topic_subscriptions"`
	Tools              Tools                        `toml:"tools"`
}

// NewConfig creates a Config with its map fields initialized so the TOML
// decoder can populate them.
func NewConfig() *Config {
	return &Config{
		TopicSubscriptions: make(map[string]TopicSubscription),
	}
}
