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
// pipelines. This file holds the shared context keys the commands use to
// exchange state beyond the chain's default input/output piping, and the
// progress seam the orchestration layer plugs into.
package commands

import (
	"github.com/slidecast/media-extract/internal/core/cor"
	"github.com/slidecast/media-extract/internal/core/model"
)

// GetJobParameterName returns the context key holding the *model.ExtractionJob
// being built by the running workflow. Commands append their results to it.
func GetJobParameterName() string {
	return "__JOB__"
}

// GetTrackerParameterName returns the context key holding the workflow's
// ProgressReporter, when one is attached.
func GetTrackerParameterName() string {
	return "__TRACKER__"
}

// GetTimestampsParameterName returns the context key holding the requested
// capture timestamps for a frame job.
func GetTimestampsParameterName() string {
	return "__TIMESTAMPS__"
}

// GetAudioTrackParameterName returns the context key holding the decoded
// *audio.Track shared by the chunking commands.
func GetAudioTrackParameterName() string {
	return "__AUDIO_TRACK__"
}

// ProgressReporter is how commands surface progress without depending on the
// orchestration layer. The reporter owns the phase weighting; commands only
// announce which phase they are in and how far along it is.
type ProgressReporter interface {
	// EnterPhase marks the start of a named sub-phase.
	EnterPhase(phase string)
	// Step reports completion of item `completed` of `total` within the
	// current phase.
	Step(completed, total int)
}

// noopReporter keeps commands free of nil checks when no tracker is wired,
// as in unit tests.
type noopReporter struct{}

func (noopReporter) EnterPhase(string) {}
func (noopReporter) Step(int, int)     {}

// reporter returns the attached ProgressReporter or a no-op.
func reporter(ctx cor.Context) ProgressReporter {
	if r, ok := ctx.Get(GetTrackerParameterName()).(ProgressReporter); ok {
		return r
	}
	return noopReporter{}
}

// job returns the workflow's job record, or nil when none is attached.
func job(ctx cor.Context) *model.ExtractionJob {
	j, _ := ctx.Get(GetJobParameterName()).(*model.ExtractionJob)
	return j
}
