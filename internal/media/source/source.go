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

// Package source wraps a media decoder with deterministic, serialized
// lifecycle operations.
//
// Logic Flow:
// Media decoders are the least deterministic collaborator in the extraction
// pipeline: a seek can stall indefinitely on a damaged stream, and issuing a
// second seek while the first is still settling makes completion results
// arrive out of order. The Controller therefore enforces two disciplines on
// behalf of every caller:
//
//  1. **Fail fast on load**: Load probes the stream and rejects sources that
//     report zero pixel dimensions, which is how undecodable or
//     permission-blocked media presents itself. Nothing downstream runs
//     against a source that never became playable.
//  2. **Serialized, bounded seeks**: FrameAt holds a mutex for the duration
//     of one seek-and-decode, and races the decode against a bounded timer.
//     A seek that never settles is abandoned and reported as a
//     SeekTimeoutError; the decode goroutine's late result is discarded into
//     a buffered channel so it cannot mutate anything after the caller has
//     moved on. The controller remains usable for the next timestamp, which
//     is the core bounded-wait-then-skip resilience mechanism of the whole
//     pipeline.
package source

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/slidecast/media-extract/internal/core/model"
)

// DefaultSeekTimeout is the bounded wait applied to a single seek-and-decode
// before it is abandoned as failed-but-skippable.
const DefaultSeekTimeout = 5 * time.Second

// Info describes a probed media source.
type Info struct {
	Duration float64 // Total playable duration in seconds.
	Width    int     // Native pixel width of the video stream, 0 if none.
	Height   int     // Native pixel height of the video stream, 0 if none.
	MIMEType string  // Container MIME type when known.
}

// Decoder is the seam between the controller and an actual media engine. The
// production implementation shells out to ffmpeg/ffprobe; tests substitute a
// scripted fake.
type Decoder interface {
	// Probe inspects the media at path and returns its stream info.
	Probe(ctx context.Context, path string) (*Info, error)

	// DecodeFrame decodes the frame nearest to the given position. It must
	// honor context cancellation, but the Controller does not rely on it:
	// a DecodeFrame that ignores its context is still abandoned after the
	// bounded wait.
	DecodeFrame(ctx context.Context, path string, seconds float64) (image.Image, error)
}

// Controller owns one media source for the lifetime of one extraction job.
// It is safe for concurrent use, but concurrent FrameAt calls serialize: the
// decoder never sees overlapping seeks.
type Controller struct {
	dec         Decoder
	seekTimeout time.Duration

	mu   sync.Mutex
	path string
	info *Info
}

// NewController creates a controller around the given decoder. A
// non-positive seekTimeout falls back to DefaultSeekTimeout.
func NewController(dec Decoder, seekTimeout time.Duration) *Controller {
	if seekTimeout <= 0 {
		seekTimeout = DefaultSeekTimeout
	}
	return &Controller{dec: dec, seekTimeout: seekTimeout}
}

// Load probes the source and records its info. A probe error or a stream with
// zero pixel dimensions yields a *model.SourceLoadError: the media is
// considered undecodable and the whole job must not proceed.
func (c *Controller) Load(ctx context.Context, path string) (*Info, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	info, err := c.dec.Probe(ctx, path)
	if err != nil {
		return nil, &model.SourceLoadError{Source: path, Reason: "probe failed", Err: err}
	}
	if info.Width <= 0 || info.Height <= 0 {
		return nil, &model.SourceLoadError{Source: path, Reason: "zero pixel dimensions"}
	}
	c.path = path
	c.info = info
	return info, nil
}

// Info returns the probed stream info, or nil before Load succeeds.
func (c *Controller) Info() *Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

// Duration returns the probed duration in seconds, or 0 before Load.
func (c *Controller) Duration() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.info == nil {
		return 0
	}
	return c.info.Duration
}

type decodeResult struct {
	img image.Image
	err error
}

// FrameAt seeks to the given position and returns the decoded frame. Seeks
// are serialized; a seek that does not settle within the bounded wait returns
// *model.SeekTimeoutError and leaves the controller ready for the next call.
func (c *Controller) FrameAt(ctx context.Context, seconds float64) (image.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.info == nil {
		return nil, &model.SourceLoadError{Source: c.path, Reason: "source not loaded"}
	}

	seekCtx, cancel := context.WithTimeout(ctx, c.seekTimeout)
	defer cancel()

	// Buffered so a late decode result is dropped instead of leaking the
	// goroutine or mutating state after the seek was abandoned.
	done := make(chan decodeResult, 1)
	go func() {
		img, err := c.dec.DecodeFrame(seekCtx, c.path, seconds)
		done <- decodeResult{img: img, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil && errors.Is(res.err, context.DeadlineExceeded) && ctx.Err() == nil {
			// A context-honoring decoder may surface the seek deadline
			// itself before the timer branch fires. Same outcome, same
			// error type: the position is skippable, not a cancellation.
			return nil, &model.SeekTimeoutError{Seconds: seconds, Wait: c.seekTimeout}
		}
		return res.img, res.err
	case <-seekCtx.Done():
		if ctx.Err() != nil {
			// The caller cancelled the job, not the timer.
			return nil, ctx.Err()
		}
		return nil, &model.SeekTimeoutError{Seconds: seconds, Wait: c.seekTimeout}
	}
}
