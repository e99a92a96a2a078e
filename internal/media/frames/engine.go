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

// Package frames captures validated still images from a media timeline.
// This file implements the batch frame capture engine.
//
// Logic Flow:
// Given a media path and a set of requested timestamps, the engine:
//
//  1. Parses, deduplicates, and sorts the timestamps; malformed inputs are
//     reported back, never silently included or dropped.
//  2. Loads the source through the Controller; an undecodable source is fatal
//     for the whole batch before any per-item work starts.
//  3. Filters out timestamps beyond the probed duration and reports them.
//  4. Processes the surviving timestamps strictly sequentially. Sequencing is
//     a deliberate design decision, not a limitation: overlapping seeks make
//     decoders coalesce or drop completion events, which corrupts the
//     pipeline in ways that are close to undebuggable.
//  5. For each timestamp: seek, decode, validate. A blank frame triggers
//     retries at small offsets around the requested position (a decoder that
//     returned black at t often has real pixels at t±0.1s). A seek timeout
//     or decode error skips the item. Validated frames are JPEG-encoded.
//  6. Progress fires exactly once per timestamp, success or not, so the
//     caller's (completed, total) counters are monotonic and complete.
//
// Partial success is the expected steady state. The engine only fails the
// batch for a dead source or a cancelled context; everything else lands in
// the per-item success and failure lists of the Result.
package frames

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"time"

	"github.com/google/uuid"

	"github.com/slidecast/media-extract/internal/core/model"
	"github.com/slidecast/media-extract/internal/media/source"
	"github.com/slidecast/media-extract/internal/media/timecode"
)

// DefaultJPEGQuality is the encode quality for captured frames.
const DefaultJPEGQuality = 92

// DefaultRetryOffsets are the relative seek offsets tried, in order, when the
// frame at the requested position classifies as blank. The zero offset (the
// original position) is always attempted first and is not listed here.
var DefaultRetryOffsets = []float64{-0.1, 0.1, -0.2, 0.2}

// Progress receives (completed, total) after each timestamp is processed,
// regardless of that timestamp's outcome. Invocations are monotonically
// non-decreasing in completed.
type Progress func(completed, total int)

// Config tunes the engine. Zero values select the defaults.
type Config struct {
	SeekTimeout    time.Duration // Bounded wait per seek; default source.DefaultSeekTimeout.
	BlankThreshold uint8         // Brightness ceiling for blank classification; default DefaultBlankThreshold.
	RetryOffsets   []float64     // Offsets tried after a blank frame; default DefaultRetryOffsets.
	JPEGQuality    int           // Encode quality; default DefaultJPEGQuality.
	AcceptBlank    bool          // Accept a frame that stays blank after all retries instead of skipping it.
	SkipBlankCheck bool          // Disable blank classification and its offset retries entirely.
}

func (c Config) withDefaults() Config {
	if c.SeekTimeout <= 0 {
		c.SeekTimeout = source.DefaultSeekTimeout
	}
	if c.BlankThreshold == 0 {
		c.BlankThreshold = DefaultBlankThreshold
	}
	if c.RetryOffsets == nil {
		c.RetryOffsets = DefaultRetryOffsets
	}
	if c.JPEGQuality <= 0 {
		c.JPEGQuality = DefaultJPEGQuality
	}
	return c
}

// Skipped records one timestamp that produced no frame and why.
type Skipped struct {
	Stamp timecode.Stamp
	Err   error
}

// Result is the complete outcome of one batch. Every requested timestamp
// appears exactly once across Frames, Skipped, OutOfRange, and Invalid.
type Result struct {
	Frames     []*model.CapturedFrame
	Skipped    []Skipped        // Seek timeouts, decode failures, rejected blanks.
	OutOfRange []timecode.Stamp // Beyond the probed duration; reported, not captured.
	Invalid    []string         // Unparseable inputs, echoed verbatim.
	Duration   float64          // Probed source duration in seconds.
}

// Extractor is the batch frame capture engine. One Extractor may run many
// batches; each batch gets its own Controller so no seek state leaks between
// jobs.
type Extractor struct {
	dec source.Decoder
	cfg Config
}

// NewExtractor creates an engine around the given decoder.
func NewExtractor(dec source.Decoder, cfg Config) *Extractor {
	return &Extractor{dec: dec, cfg: cfg.withDefaults()}
}

// ExtractFrames captures one validated frame per requested timestamp.
//
// A *model.SourceLoadError (or a cancelled context) fails the whole batch
// with zero partial results. All other failures are per-item and recorded in
// the Result.
func (e *Extractor) ExtractFrames(ctx context.Context, path string, stamps []string, progress Progress) (*Result, error) {
	valid, invalid := timecode.ParseSet(stamps)

	ctrl := source.NewController(e.dec, e.cfg.SeekTimeout)
	info, err := ctrl.Load(ctx, path)
	if err != nil {
		return nil, err
	}

	inRange, outOfRange := timecode.SplitByDuration(valid, info.Duration)
	res := &Result{
		Invalid:    invalid,
		OutOfRange: outOfRange,
		Duration:   info.Duration,
	}

	total := len(inRange)
	for i, stamp := range inRange {
		if err := ctx.Err(); err != nil {
			// Cancellation abandons the batch; partially produced frames are
			// discarded by the caller, never uploaded.
			return res, err
		}

		frame, captureErr := e.captureOne(ctx, ctrl, stamp, info.Duration)
		if captureErr != nil {
			if errors.Is(captureErr, context.Canceled) || errors.Is(captureErr, context.DeadlineExceeded) {
				return res, captureErr
			}
			res.Skipped = append(res.Skipped, Skipped{Stamp: stamp, Err: captureErr})
		} else {
			res.Frames = append(res.Frames, frame)
		}

		if progress != nil {
			progress(i+1, total)
		}
	}
	return res, nil
}

// captureOne runs the seek-validate-encode pipeline for a single timestamp,
// retrying at offsets when the frame classifies blank.
func (e *Extractor) captureOne(ctx context.Context, ctrl *source.Controller, stamp timecode.Stamp, duration float64) (*model.CapturedFrame, error) {
	offsets := append([]float64{0}, e.cfg.RetryOffsets...)

	var lastBlank image.Image
	attempts := 0
	for _, off := range offsets {
		pos := stamp.Seconds + off
		if pos < 0 || (duration > 0 && pos > duration) {
			continue
		}
		attempts++

		img, err := ctrl.FrameAt(ctx, pos)
		if err != nil {
			var timeout *model.SeekTimeoutError
			if errors.As(err, &timeout) {
				// A stuck seek is skippable, not retryable: the offsets exist
				// for decode lag, not for a wedged demuxer.
				return nil, err
			}
			return nil, err
		}

		if !e.cfg.SkipBlankCheck && IsBlank(img, e.cfg.BlankThreshold) {
			lastBlank = img
			continue
		}
		return e.encode(img, stamp)
	}

	if e.cfg.AcceptBlank && lastBlank != nil {
		return e.encode(lastBlank, stamp)
	}
	return nil, &model.BlankFrameError{Seconds: stamp.Seconds, Attempts: attempts}
}

func (e *Extractor) encode(img image.Image, stamp timecode.Stamp) (*model.CapturedFrame, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: e.cfg.JPEGQuality}); err != nil {
		return nil, &model.EncodeError{What: "jpeg frame", Err: err}
	}
	return &model.CapturedFrame{
		ExtractedFrame: model.ExtractedFrame{
			ID:        uuid.NewString(),
			Timestamp: stamp.Label(),
			Seconds:   stamp.Seconds,
		},
		Data:     buf.Bytes(),
		MIMEType: "image/jpeg",
	}, nil
}
