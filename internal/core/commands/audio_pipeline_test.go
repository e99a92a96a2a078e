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

package commands

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/bridges/otelslog"

	"github.com/slidecast/media-extract/internal/core/cor"
	"github.com/slidecast/media-extract/internal/core/model"
	"github.com/slidecast/media-extract/internal/media/audio"
)

var logger = otelslog.NewLogger("github.com/slidecast/media-extract/tests/commands")

// fakeExtractor returns a canned track regardless of the source path.
type fakeExtractor struct {
	track *audio.Track
	err   error
}

func (f *fakeExtractor) ExtractTrack(_ context.Context, _ string) (*audio.Track, error) {
	return f.track, f.err
}

// fakeUploader records uploaded paths and can fail selectively.
type fakeUploader struct {
	mu     sync.Mutex
	paths  []string
	failOn string
}

func (f *fakeUploader) Upload(_ context.Context, data []byte, objectPath string, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != "" && strings.Contains(objectPath, f.failOn) {
		return "", &model.UploadError{Path: objectPath, Attempts: 3, Err: fmt.Errorf("simulated outage")}
	}
	if len(data) == 0 {
		return "", fmt.Errorf("empty payload for %s", objectPath)
	}
	f.paths = append(f.paths, objectPath)
	return "https://storage.googleapis.com/artifacts/" + objectPath, nil
}

func testTone(seconds float64) *audio.Track {
	const rate = 8000
	n := int(seconds * rate)
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(8000 * math.Sin(2*math.Pi*440*float64(i)/rate))
	}
	return &audio.Track{SampleRate: rate, NumChannels: 1, Samples: samples}
}

// phaseRecorder captures the phase sequence commands report.
type phaseRecorder struct {
	phases []string
	steps  int
}

func (r *phaseRecorder) EnterPhase(phase string) { r.phases = append(r.phases, phase) }

func (r *phaseRecorder) Step(int, int) { r.steps++ }

func newAudioChain(extractor audio.Extractor, uploader *fakeUploader) cor.Chain {
	chain := cor.NewBaseChain("audio-pipeline-under-test")
	chain.AddCommand(NewAudioTrackExtraction("extract-audio", extractor))
	chain.AddCommand(NewAudioTrackUpload("upload-track", uploader))
	chain.AddCommand(NewChunkPlan("plan-chunks", 4, 0))
	chain.AddCommand(NewChunkMaterialize("chunk-audio"))
	chain.AddCommand(NewChunkUpload("upload-chunks", uploader, 2))
	return chain
}

func newAudioContext(t *testing.T, j *model.ExtractionJob, rec *phaseRecorder) cor.Context {
	t.Helper()
	ctx := cor.NewBaseContext()
	ctx.SetContext(context.Background())
	ctx.Add(cor.CtxIn, "/tmp/irrelevant.mp4")
	ctx.Add(GetJobParameterName(), j)
	ctx.Add(GetTrackerParameterName(), rec)
	return ctx
}

func TestAudioChainHappyPath(t *testing.T) {
	uploader := &fakeUploader{}
	rec := &phaseRecorder{}
	j := &model.ExtractionJob{ID: "aud-1", Kind: model.JobKindAudio, State: model.JobStateLoadingSource, CreatedAt: time.Now()}

	chain := newAudioChain(&fakeExtractor{track: testTone(10)}, uploader)
	ctx := newAudioContext(t, j, rec)
	chain.Execute(ctx)
	logger.Info("audio chain complete", "job", j.ID, "state", j.State)

	require.False(t, ctx.HasErrors(), "chain errors: %v", ctx.GetErrors())
	assert.Equal(t, model.JobStateDone, j.State)
	require.NotNil(t, j.CompletedAt)
	assert.Contains(t, j.AudioURL, "jobs/aud-1/audio/full.wav")

	// A 10 second track with a 4 second cap cuts into 4+4+2.
	require.Len(t, j.Chunks, 3)
	for i, meta := range j.Chunks {
		assert.Equal(t, model.ChunkStatusComplete, meta.Status)
		assert.Contains(t, meta.AudioPath, fmt.Sprintf("jobs/aud-1/audio/chunks/%04d.wav", i))
	}

	assert.Equal(t, []string{PhaseExtractAudio, PhaseUploadTrack, PhaseChunkAudio, PhaseUploadChunks}, rec.phases)
}

func TestAudioChainPartialChunkFailure(t *testing.T) {
	uploader := &fakeUploader{failOn: "/0001.wav"}
	rec := &phaseRecorder{}
	j := &model.ExtractionJob{ID: "aud-2", Kind: model.JobKindAudio, State: model.JobStateLoadingSource, CreatedAt: time.Now()}

	chain := newAudioChain(&fakeExtractor{track: testTone(10)}, uploader)
	ctx := newAudioContext(t, j, rec)
	chain.Execute(ctx)

	require.False(t, ctx.HasErrors(), "a failed chunk must not fail the chain: %v", ctx.GetErrors())
	assert.Equal(t, model.JobStatePartialFailure, j.State)

	require.Len(t, j.Chunks, 3)
	assert.Equal(t, model.ChunkStatusComplete, j.Chunks[0].Status)
	assert.Equal(t, model.ChunkStatusFailed, j.Chunks[1].Status)
	assert.Contains(t, j.Chunks[1].Error, "simulated outage")
	assert.Empty(t, j.Chunks[1].AudioPath)
	assert.Equal(t, model.ChunkStatusComplete, j.Chunks[2].Status)
}

func TestAudioChainDecodeFailureIsFatal(t *testing.T) {
	uploader := &fakeUploader{}
	rec := &phaseRecorder{}
	j := &model.ExtractionJob{ID: "aud-3", Kind: model.JobKindAudio, State: model.JobStateLoadingSource, CreatedAt: time.Now()}

	fail := &fakeExtractor{err: &model.SourceLoadError{Source: "/tmp/irrelevant.mp4", Reason: "no audio stream"}}
	chain := newAudioChain(fail, uploader)
	ctx := newAudioContext(t, j, rec)
	chain.Execute(ctx)

	require.True(t, ctx.HasErrors())
	assert.Empty(t, j.AudioURL)
	assert.Empty(t, j.Chunks)
	assert.Empty(t, uploader.paths)
}
