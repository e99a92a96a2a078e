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
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slidecast/media-extract/internal/core/model"
)

func newAudioTracker(t *testing.T) *JobTracker {
	t.Helper()
	j := &model.ExtractionJob{ID: "job-1", Kind: model.JobKindAudio, State: model.JobStateLoadingSource}
	return NewJobTracker(context.Background(), j, nil, AudioPhaseWeights())
}

func TestTrackerWeightsPhases(t *testing.T) {
	tr := newAudioTracker(t)

	tr.EnterPhase("extract-audio")
	assert.Equal(t, model.JobStateExtracting, tr.Job().State)
	assert.Equal(t, 0.0, tr.Job().Progress.Percent)

	tr.Step(1, 1)
	assert.Equal(t, 40.0, tr.Job().Progress.Percent)

	tr.EnterPhase("upload-track")
	assert.Equal(t, model.JobStateUploading, tr.Job().State)
	tr.Step(1, 1)
	assert.Equal(t, 60.0, tr.Job().Progress.Percent)

	tr.EnterPhase("chunk-audio")
	tr.Step(1, 4)
	assert.Equal(t, 65.0, tr.Job().Progress.Percent)
	tr.Step(4, 4)
	assert.Equal(t, 80.0, tr.Job().Progress.Percent)

	tr.EnterPhase("upload-chunks")
	tr.Step(2, 4)
	assert.Equal(t, 90.0, tr.Job().Progress.Percent)
}

func TestTrackerPercentNeverDecreases(t *testing.T) {
	tr := newAudioTracker(t)

	tr.EnterPhase("upload-track")
	tr.Step(1, 1)
	assert.Equal(t, 60.0, tr.Job().Progress.Percent)

	// Re-entering an earlier phase must not roll the percentage back.
	tr.EnterPhase("extract-audio")
	tr.Step(1, 2)
	assert.Equal(t, 60.0, tr.Job().Progress.Percent)
}

func TestTrackerUnknownPhaseIsInert(t *testing.T) {
	tr := newAudioTracker(t)

	tr.EnterPhase("extract-audio")
	tr.Step(1, 2)
	assert.Equal(t, 20.0, tr.Job().Progress.Percent)

	tr.EnterPhase("reticulate-splines")
	tr.Step(1, 1)
	assert.Equal(t, 20.0, tr.Job().Progress.Percent)
	assert.Equal(t, "reticulate-splines", tr.Job().Progress.Phase)
}

func TestTrackerIgnoresProgressAfterCancel(t *testing.T) {
	tr := newAudioTracker(t)

	tr.EnterPhase("extract-audio")
	tr.Step(1, 2)
	tr.Cancel()

	tr.Step(2, 2)
	assert.Equal(t, 20.0, tr.Job().Progress.Percent)
	assert.Error(t, tr.Context().Err())
}

func TestTrackerFinishCompletesOnlySuccess(t *testing.T) {
	done := newAudioTracker(t)
	done.EnterPhase("extract-audio")
	done.Step(1, 1)
	done.Job().State = model.JobStateDone
	done.Finish()
	assert.Equal(t, 100.0, done.Job().Progress.Percent)

	partial := newAudioTracker(t)
	partial.EnterPhase("extract-audio")
	partial.Step(1, 1)
	partial.Job().State = model.JobStatePartialFailure
	partial.Finish()
	assert.Equal(t, 40.0, partial.Job().Progress.Percent)
}

func TestRegistryCancelByJobID(t *testing.T) {
	reg := NewRegistry()
	tr := newAudioTracker(t)
	reg.Track(tr)

	assert.False(t, reg.Cancel("no-such-job"))
	assert.True(t, reg.Cancel("job-1"))
	assert.Error(t, tr.Context().Err())

	reg.Release("job-1")
	assert.False(t, reg.Cancel("job-1"))
}
