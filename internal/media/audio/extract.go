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

// Package audio extracts the audio track of a media source and splits it
// into bounded-size chunks for downstream transcription.
// This file runs FFmpeg to demux and decode the audio track. Extraction is
// all-or-nothing: a partial audio track is useless for transcription, so any
// decode failure fails the whole job.
package audio

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"

	"github.com/slidecast/media-extract/internal/core/model"
)

// Decode defaults. Transcription services want mono 16 kHz input; decoding
// straight to that shape keeps the chunks small.
const (
	DefaultSampleRate  = 16000
	DefaultNumChannels = 1
)

// Extractor pulls the audio track out of a media file as PCM.
type Extractor interface {
	ExtractTrack(ctx context.Context, path string) (*Track, error)
}

// FFmpegExtractor shells out to ffmpeg for the demux and decode.
type FFmpegExtractor struct {
	ffmpegPath  string
	sampleRate  int
	numChannels int
}

// NewFFmpegExtractor creates an extractor using the given ffmpeg binary.
// Zero rate or channel count selects the defaults.
func NewFFmpegExtractor(ffmpegPath string, sampleRate, numChannels int) *FFmpegExtractor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if numChannels <= 0 {
		numChannels = DefaultNumChannels
	}
	return &FFmpegExtractor{ffmpegPath: ffmpegPath, sampleRate: sampleRate, numChannels: numChannels}
}

// ExtractTrack decodes the audio track of the file at path into PCM.
// -vn drops the video stream; the WAV container goes to stdout and is
// parsed in memory.
func (e *FFmpegExtractor) ExtractTrack(ctx context.Context, path string) (*Track, error) {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", path,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ac", strconv.Itoa(e.numChannels),
		"-ar", strconv.Itoa(e.sampleRate),
		"-f", "wav",
		"-",
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &model.SourceLoadError{
			Source: path,
			Reason: "audio decode failed: " + strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}

	track, err := DecodeWAV(stdout.Bytes())
	if err != nil {
		return nil, &model.SourceLoadError{Source: path, Reason: "unreadable decoder output", Err: err}
	}
	return track, nil
}
