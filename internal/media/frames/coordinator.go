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
// This file implements the interactive capture-and-upload coordinator: the
// path behind a user-driven "capture this moment" action, as opposed to the
// batch engine's list-of-timestamps contract.
//
// Logic Flow:
//  1. Capture is exclusive. A second request while one is in flight is
//     rejected immediately rather than queued: two captures against the same
//     shared source race, and the user pressing a button twice expects one
//     frame, not two.
//  2. A request within the duplicate tolerance of an already-captured
//     timestamp is rejected as a duplicate rather than silently overwriting
//     the earlier capture.
//  3. A short settle delay runs before the snapshot so a just-issued pause
//     or seek has a chance to land.
//  4. Capture, validate, encode, and upload as in the batch engine.
//  5. If any step fails and placeholder fallback is enabled, a labeled
//     placeholder slate is uploaded instead so the caller always has
//     something to show. The placeholder comes back as a distinct type;
//     nothing downstream can mistake it for verified imagery.
package frames

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/slidecast/media-extract/internal/core/model"
	"github.com/slidecast/media-extract/internal/media/source"
	"github.com/slidecast/media-extract/internal/media/timecode"
)

// DefaultDuplicateTolerance is how close (in seconds) a new capture may be to
// an existing one before it is rejected as a duplicate.
const DefaultDuplicateTolerance = 0.5

// DefaultSettleDelay is the pause between accepting a capture request and
// snapshotting the frame.
const DefaultSettleDelay = 150 * time.Millisecond

// Sentinel errors for the coordinator's admission checks.
var (
	ErrCaptureInFlight    = errors.New("a capture is already in flight")
	ErrDuplicateTimestamp = errors.New("timestamp duplicates an existing capture")
)

// Uploader persists a blob under a logical path and returns a durable URL.
// It is the only seam the coordinator needs to the storage layer.
type Uploader interface {
	Upload(ctx context.Context, data []byte, objectPath, contentType string) (string, error)
}

// CoordinatorConfig tunes the interactive coordinator.
type CoordinatorConfig struct {
	SettleDelay        time.Duration // Default DefaultSettleDelay.
	DuplicateTolerance float64       // Seconds; default DefaultDuplicateTolerance.
	BlankThreshold     uint8         // Default DefaultBlankThreshold.
	SkipBlankCheck     bool          // Disable blank classification for interactive captures.
	JPEGQuality        int           // Default DefaultJPEGQuality.
	UsePlaceholders    bool          // Synthesize a placeholder when real capture fails.
	KeyPrefix          string        // Logical path prefix, e.g. "projects/1234".
}

func (c CoordinatorConfig) withDefaults() CoordinatorConfig {
	if c.SettleDelay <= 0 {
		c.SettleDelay = DefaultSettleDelay
	}
	if c.DuplicateTolerance <= 0 {
		c.DuplicateTolerance = DefaultDuplicateTolerance
	}
	if c.BlankThreshold == 0 {
		c.BlankThreshold = DefaultBlankThreshold
	}
	if c.JPEGQuality <= 0 {
		c.JPEGQuality = DefaultJPEGQuality
	}
	return c
}

// Coordinator serializes interactive captures against one loaded controller
// and pushes results through the Uploader.
type Coordinator struct {
	ctrl     *source.Controller
	uploader Uploader
	cfg      CoordinatorConfig

	mu       sync.Mutex
	inFlight bool
	captured []float64
}

// NewCoordinator wires a coordinator around a loaded controller and an
// uploader.
func NewCoordinator(ctrl *source.Controller, uploader Uploader, cfg CoordinatorConfig) *Coordinator {
	return &Coordinator{ctrl: ctrl, uploader: uploader, cfg: cfg.withDefaults()}
}

// Capture snapshots the frame at the given position, uploads it, and returns
// the resulting artifact. The error cases ErrCaptureInFlight and
// ErrDuplicateTimestamp are admission rejections: nothing was captured and
// nothing changed.
func (c *Coordinator) Capture(ctx context.Context, seconds float64) (model.FrameArtifact, error) {
	if err := c.admit(seconds); err != nil {
		return nil, err
	}
	defer c.release()

	// Give a just-issued pause/seek a moment to settle before snapshotting.
	select {
	case <-time.After(c.cfg.SettleDelay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	frame, err := c.captureAndUpload(ctx, seconds)
	if err == nil {
		c.record(seconds)
		return frame, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}

	if c.cfg.UsePlaceholders {
		if ph, phErr := c.placeholder(ctx, seconds, err); phErr == nil {
			c.record(seconds)
			return ph, nil
		}
	}
	return nil, err
}

func (c *Coordinator) admit(seconds float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		return ErrCaptureInFlight
	}
	for _, prev := range c.captured {
		if math.Abs(prev-seconds) < c.cfg.DuplicateTolerance {
			return fmt.Errorf("%w: %.3fs is within %.2fs of %.3fs",
				ErrDuplicateTimestamp, seconds, c.cfg.DuplicateTolerance, prev)
		}
	}
	c.inFlight = true
	return nil
}

func (c *Coordinator) release() {
	c.mu.Lock()
	c.inFlight = false
	c.mu.Unlock()
}

func (c *Coordinator) record(seconds float64) {
	c.mu.Lock()
	c.captured = append(c.captured, seconds)
	c.mu.Unlock()
}

func (c *Coordinator) captureAndUpload(ctx context.Context, seconds float64) (*model.ExtractedFrame, error) {
	stamp := timecode.Stamp{Raw: timecode.FromSeconds(seconds), Seconds: seconds}

	engine := &Extractor{cfg: Config{
		BlankThreshold: c.cfg.BlankThreshold,
		JPEGQuality:    c.cfg.JPEGQuality,
	}.withDefaults()}

	img, err := c.ctrl.FrameAt(ctx, seconds)
	if err != nil {
		return nil, err
	}
	if !c.cfg.SkipBlankCheck && IsBlank(img, c.cfg.BlankThreshold) {
		return nil, &model.BlankFrameError{Seconds: seconds, Attempts: 1}
	}

	captured, err := engine.encode(img, stamp)
	if err != nil {
		return nil, err
	}

	url, err := c.uploader.Upload(ctx, captured.Data, c.objectPath("frames", captured.ID), captured.MIMEType)
	if err != nil {
		return nil, err
	}
	captured.ImageURL = url
	// Drop the transient bytes; only the durable reference survives.
	out := captured.ExtractedFrame
	return &out, nil
}

func (c *Coordinator) placeholder(ctx context.Context, seconds float64, cause error) (*model.PlaceholderFrame, error) {
	data, err := RenderPlaceholder(c.cfg.JPEGQuality)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	url, err := c.uploader.Upload(ctx, data, c.objectPath("placeholders", id), "image/jpeg")
	if err != nil {
		return nil, err
	}
	return &model.PlaceholderFrame{
		Timestamp: timecode.FromSeconds(seconds),
		Seconds:   seconds,
		ImageURL:  url,
		Label:     fmt.Sprintf("capture failed: %v", cause),
	}, nil
}

func (c *Coordinator) objectPath(kind, id string) string {
	if c.cfg.KeyPrefix != "" {
		return fmt.Sprintf("%s/%s/%s.jpg", c.cfg.KeyPrefix, kind, id)
	}
	return fmt.Sprintf("%s/%s.jpg", kind, id)
}
