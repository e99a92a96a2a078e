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
// pipelines. This file turns the frame engine's transient captures into
// durable results: every captured frame is uploaded, every timestamp the
// engine skipped is accounted for, and the job ends with each requested
// position tagged exactly once as a frame, a placeholder, or a failure.
//
// Logic Flow:
//  1. Upload each captured frame and record its durable URL on the job.
//     The binary payload is dropped once the URL exists.
//  2. A frame whose upload fails, and every timestamp the engine skipped,
//     either gets a placeholder slate (when configured) or is recorded as a
//     failed timestamp with its reason.
//  3. The job's terminal state is derived from the tally: done when every
//     requested position produced a verified frame, partial-failure when
//     anything degraded, fatal-failure when not a single position did.
//     Partial success is the steady state for long recordings, not an
//     error; zero success is a broken source and must read as one.
package commands

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/slidecast/media-extract/internal/core/cor"
	"github.com/slidecast/media-extract/internal/core/model"
	"github.com/slidecast/media-extract/internal/core/services"
	"github.com/slidecast/media-extract/internal/media/frames"
)

// PhaseUploadFrames is the progress phase name for frame uploads.
const PhaseUploadFrames = "upload-frames"

// FrameUpload persists captured frames and accounts for skipped timestamps.
type FrameUpload struct {
	cor.BaseCommand
	uploader        services.Uploader
	usePlaceholders bool
	jpegQuality     int
}

// NewFrameUpload creates the upload command.
func NewFrameUpload(name string, uploader services.Uploader, usePlaceholders bool, jpegQuality int) *FrameUpload {
	if jpegQuality <= 0 {
		jpegQuality = frames.DefaultJPEGQuality
	}
	return &FrameUpload{
		BaseCommand:     *cor.NewBaseCommand(name),
		uploader:        uploader,
		usePlaceholders: usePlaceholders,
		jpegQuality:     jpegQuality,
	}
}

// Execute uploads the batch result and finalizes the job's frame lists.
func (c *FrameUpload) Execute(context cor.Context) {
	result := context.Get(c.GetInputParam()).(*frames.Result)
	j := job(context)
	if j == nil {
		context.AddError(c.GetName(), fmt.Errorf("no job attached to workflow context"))
		return
	}

	rep := reporter(context)
	rep.EnterPhase(PhaseUploadFrames)

	total := len(result.Frames) + len(result.Skipped)
	step := 0

	for _, frame := range result.Frames {
		objectPath := fmt.Sprintf("jobs/%s/frames/%s.jpg", j.ID, frame.ID)
		url, err := c.uploader.Upload(context.GetContext(), frame.Data, objectPath, frame.MIMEType)
		if err != nil {
			c.GetErrorCounter().Add(context.GetContext(), 1)
			c.degrade(context, j, frame.Timestamp, frame.Seconds, fmt.Sprintf("upload failed: %v", err))
		} else {
			persisted := frame.ExtractedFrame
			persisted.ImageURL = url
			j.Frames = append(j.Frames, &persisted)
		}
		step++
		rep.Step(step, total)
	}

	for _, skipped := range result.Skipped {
		c.degrade(context, j, skipped.Stamp.Raw, skipped.Stamp.Seconds, skipped.Err.Error())
		step++
		rep.Step(step, total)
	}

	requested := total + len(j.FailedTimestamps) + len(j.InvalidInputs)
	switch {
	case len(j.Frames) == 0 && requested > 0:
		// Every requested position degraded. A batch that verifies nothing
		// is a hard failure of the source, not a partial result.
		j.State = model.JobStateFatalFailure
		j.Error = fmt.Sprintf(
			"no verified frames captured: %d failed, %d placeholder, %d invalid input; check that the source decodes and the timestamps land on playable content",
			len(j.FailedTimestamps), len(j.Placeholders), len(j.InvalidInputs))
	case len(j.FailedTimestamps) == 0 && len(j.Placeholders) == 0 && len(j.InvalidInputs) == 0:
		j.State = model.JobStateDone
	default:
		j.State = model.JobStatePartialFailure
	}
	now := time.Now()
	j.CompletedAt = &now

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), j)
}

// degrade records a position that produced no verified frame: placeholder
// when configured and uploadable, failed timestamp otherwise.
func (c *FrameUpload) degrade(context cor.Context, j *model.ExtractionJob, timestamp string, seconds float64, reason string) {
	if c.usePlaceholders {
		if ph := c.placeholder(context, j, timestamp, seconds, reason); ph != nil {
			j.Placeholders = append(j.Placeholders, ph)
			return
		}
	}
	j.FailedTimestamps = append(j.FailedTimestamps, model.FailedTimestamp{
		Timestamp: timestamp,
		Seconds:   seconds,
		Reason:    reason,
	})
}

func (c *FrameUpload) placeholder(context cor.Context, j *model.ExtractionJob, timestamp string, seconds float64, reason string) *model.PlaceholderFrame {
	data, err := frames.RenderPlaceholder(c.jpegQuality)
	if err != nil {
		return nil
	}
	objectPath := fmt.Sprintf("jobs/%s/placeholders/%s.jpg", j.ID, uuid.NewString())
	url, err := c.uploader.Upload(context.GetContext(), data, objectPath, "image/jpeg")
	if err != nil {
		return nil
	}
	return &model.PlaceholderFrame{
		Timestamp: timestamp,
		Seconds:   seconds,
		ImageURL:  url,
		Label:     reason,
	}
}
