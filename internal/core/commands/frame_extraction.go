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
// pipelines. This file wraps the frame capture engine as a chain command:
// staged file in, batch capture result out, one progress step per requested
// timestamp.
package commands

import (
	"errors"
	"fmt"

	"github.com/slidecast/media-extract/internal/core/cor"
	"github.com/slidecast/media-extract/internal/core/model"
	"github.com/slidecast/media-extract/internal/media/frames"
	"github.com/slidecast/media-extract/internal/media/source"
)

// PhaseExtractFrames is the progress phase name for batch frame capture.
const PhaseExtractFrames = "extract-frames"

// FrameExtraction runs the batch frame engine against a staged source file.
type FrameExtraction struct {
	cor.BaseCommand
	dec source.Decoder
	cfg frames.Config
}

// NewFrameExtraction creates the capture command around a decoder.
func NewFrameExtraction(name string, dec source.Decoder, cfg frames.Config) *FrameExtraction {
	return &FrameExtraction{BaseCommand: *cor.NewBaseCommand(name), dec: dec, cfg: cfg}
}

// Execute captures one frame per requested timestamp. A source that cannot
// be loaded is fatal for the job; everything else degrades per item inside
// the engine's result. A trigger that carried no timestamps at all is fatal
// too, since the job cannot produce anything.
func (c *FrameExtraction) Execute(context cor.Context) {
	path := context.Get(c.GetInputParam()).(string)
	stamps, ok := context.Get(GetTimestampsParameterName()).([]string)
	if !ok || len(stamps) == 0 {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("no capture timestamps requested"))
		return
	}

	rep := reporter(context)
	rep.EnterPhase(PhaseExtractFrames)

	engine := frames.NewExtractor(c.dec, c.cfg)
	result, err := engine.ExtractFrames(context.GetContext(), path, stamps, func(completed, total int) {
		rep.Step(completed, total)
	})
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		var load *model.SourceLoadError
		if errors.As(err, &load) {
			context.AddError(c.GetName(), err)
		} else {
			context.AddError(c.GetName(), fmt.Errorf("frame extraction aborted: %w", err))
		}
		return
	}

	if j := job(context); j != nil {
		j.InvalidInputs = result.Invalid
		for _, s := range result.OutOfRange {
			j.FailedTimestamps = append(j.FailedTimestamps, model.FailedTimestamp{
				Timestamp: s.Raw,
				Seconds:   s.Seconds,
				Reason:    "beyond source duration",
			})
		}
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), result)
}
