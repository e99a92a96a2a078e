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
//
// Logic Flow (chunking):
//  1. PlanChunks turns a duration and a data rate into a metadata plan. The
//     effective chunk length is the smaller of the caller's duration cap and
//     the duration implied by the byte cap, so every chunk respects both
//     limits. The plan partitions [0, duration) exactly: no gaps, no
//     overlaps, final chunk truncated to the tail.
//  2. Slice materializes one planned chunk from the decoded track. Sample
//     indices are floor(time * sampleRate); the slice length is exactly
//     endSample - startSample, so re-joining all chunks reproduces the
//     original sample buffer.
package audio

import (
	"fmt"
	"math"

	"github.com/slidecast/media-extract/internal/core/model"
)

// PlanChunks builds a chunk metadata plan for a track of the given duration.
// bytesPerSecond is the encoded data rate (see Track.BytesPerSecond);
// maxChunkSeconds and maxChunkBytes cap each chunk's length and encoded
// size. A cap of zero or less means that cap does not bind.
func PlanChunks(duration float64, bytesPerSecond int, maxChunkSeconds float64, maxChunkBytes int) ([]model.AudioChunkMetadata, error) {
	if duration <= 0 {
		return nil, &model.PlanningError{Reason: fmt.Sprintf("non-positive duration %.3f", duration)}
	}

	chunkSeconds := math.Inf(1)
	if maxChunkSeconds > 0 {
		chunkSeconds = maxChunkSeconds
	}
	if maxChunkBytes > 0 {
		if bytesPerSecond <= 0 {
			return nil, &model.PlanningError{Reason: "size cap given without a data rate"}
		}
		if bySize := float64(maxChunkBytes) / float64(bytesPerSecond); bySize < chunkSeconds {
			chunkSeconds = bySize
		}
	}
	if math.IsInf(chunkSeconds, 1) {
		chunkSeconds = duration
	}
	if chunkSeconds <= 0 {
		return nil, &model.PlanningError{Reason: "caps imply a zero-length chunk"}
	}

	var plan []model.AudioChunkMetadata
	for start := 0.0; start < duration; start += chunkSeconds {
		end := start + chunkSeconds
		if end > duration {
			end = duration
		}
		plan = append(plan, model.AudioChunkMetadata{
			Index:     len(plan),
			StartTime: start,
			EndTime:   end,
			Duration:  end - start,
			Status:    model.ChunkStatusPending,
		})
	}
	return plan, nil
}

// Slice materializes the [start, end) range of the track as an encoded WAV
// chunk. The range is clamped to the track; an inverted or empty range is a
// planning error.
func Slice(t *Track, start, end float64) (*model.AudioChunk, error) {
	if t == nil || t.SampleRate <= 0 || t.NumChannels <= 0 {
		return nil, &model.PlanningError{Reason: "cannot slice an empty track"}
	}
	if end <= start {
		return nil, &model.PlanningError{Reason: fmt.Sprintf("inverted chunk range [%.3f, %.3f)", start, end)}
	}

	// Per-channel sample positions, scaled to interleaved buffer indices.
	startSample := int(math.Floor(start*float64(t.SampleRate))) * t.NumChannels
	endSample := int(math.Floor(end*float64(t.SampleRate))) * t.NumChannels
	if startSample < 0 {
		startSample = 0
	}
	if endSample > len(t.Samples) {
		endSample = len(t.Samples)
	}
	if endSample <= startSample {
		return nil, &model.PlanningError{Reason: fmt.Sprintf("chunk range [%.3f, %.3f) is outside the track", start, end)}
	}

	data, err := EncodeWAV(&Track{
		SampleRate:  t.SampleRate,
		NumChannels: t.NumChannels,
		Samples:     t.Samples[startSample:endSample],
	})
	if err != nil {
		return nil, &model.EncodeError{What: "audio chunk", Err: err}
	}

	return &model.AudioChunk{
		Data:      data,
		MIMEType:  MIMEType,
		StartTime: start,
		EndTime:   end,
		Duration:  end - start,
		Size:      len(data),
	}, nil
}

// Materialize slices the track according to one plan entry, carrying the
// plan's index onto the chunk.
func Materialize(t *Track, meta model.AudioChunkMetadata) (*model.AudioChunk, error) {
	chunk, err := Slice(t, meta.StartTime, meta.EndTime)
	if err != nil {
		return nil, err
	}
	chunk.Index = meta.Index
	return chunk, nil
}
