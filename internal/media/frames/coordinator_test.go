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

package frames

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slidecast/media-extract/internal/core/model"
	"github.com/slidecast/media-extract/internal/media/source"
)

type recordingUploader struct {
	mu    sync.Mutex
	paths []string
	types []string
	err   error
}

func (u *recordingUploader) Upload(ctx context.Context, data []byte, objectPath, contentType string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return "", u.err
	}
	u.paths = append(u.paths, objectPath)
	u.types = append(u.types, contentType)
	return fmt.Sprintf("https://storage.googleapis.com/captures/%s", objectPath), nil
}

func loadedController(t *testing.T, dec source.Decoder) *source.Controller {
	t.Helper()
	ctrl := source.NewController(dec, source.DefaultSeekTimeout)
	_, err := ctrl.Load(context.Background(), "lecture.mp4")
	require.NoError(t, err)
	return ctrl
}

func quickConfig() CoordinatorConfig {
	return CoordinatorConfig{SettleDelay: time.Millisecond, KeyPrefix: "projects/42"}
}

func TestCoordinatorCaptureHappyPath(t *testing.T) {
	up := &recordingUploader{}
	co := NewCoordinator(loadedController(t, probedDecoder(600)), up, quickConfig())

	art, err := co.Capture(context.Background(), 12.5)
	require.NoError(t, err)

	frame, ok := art.(*model.ExtractedFrame)
	require.True(t, ok)
	assert.Equal(t, 12.5, frame.Seconds)
	assert.Equal(t, "00:00:12", frame.Timestamp)
	assert.Contains(t, frame.ImageURL, "https://storage.googleapis.com/captures/projects/42/frames/")

	require.Len(t, up.paths, 1)
	assert.True(t, strings.HasPrefix(up.paths[0], "projects/42/frames/"))
	assert.Equal(t, "image/jpeg", up.types[0])
}

func TestCoordinatorRejectsConcurrentCapture(t *testing.T) {
	dec := probedDecoder(600)
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	dec.frame = func(float64) (image.Image, error) {
		once.Do(func() { close(entered) })
		<-release
		return uniformImage(64, 36, 200), nil
	}

	up := &recordingUploader{}
	co := NewCoordinator(loadedController(t, dec), up, quickConfig())

	done := make(chan error, 1)
	go func() {
		_, err := co.Capture(context.Background(), 10)
		done <- err
	}()

	<-entered
	_, err := co.Capture(context.Background(), 30)
	assert.ErrorIs(t, err, ErrCaptureInFlight)

	close(release)
	require.NoError(t, <-done)

	// With the first capture finished, a fresh position is admitted again.
	_, err = co.Capture(context.Background(), 30)
	assert.NoError(t, err)
}

func TestCoordinatorRejectsDuplicateTimestamp(t *testing.T) {
	up := &recordingUploader{}
	co := NewCoordinator(loadedController(t, probedDecoder(600)), up, quickConfig())

	_, err := co.Capture(context.Background(), 10.0)
	require.NoError(t, err)

	_, err = co.Capture(context.Background(), 10.3)
	assert.ErrorIs(t, err, ErrDuplicateTimestamp)

	_, err = co.Capture(context.Background(), 10.6)
	assert.NoError(t, err)

	assert.Len(t, up.paths, 2)
}

func TestCoordinatorFailedCaptureIsNotRecorded(t *testing.T) {
	dec := probedDecoder(600)
	fail := true
	dec.frame = func(float64) (image.Image, error) {
		if fail {
			return nil, errors.New("decode pipeline stalled")
		}
		return uniformImage(64, 36, 200), nil
	}

	co := NewCoordinator(loadedController(t, dec), &recordingUploader{}, quickConfig())

	_, err := co.Capture(context.Background(), 10)
	require.Error(t, err)

	// The failed attempt must not count as a capture for dedup purposes.
	fail = false
	_, err = co.Capture(context.Background(), 10)
	assert.NoError(t, err)
}

func TestCoordinatorPlaceholderFallback(t *testing.T) {
	dec := probedDecoder(600)
	dec.frame = func(float64) (image.Image, error) {
		return uniformImage(64, 36, 3), nil
	}

	up := &recordingUploader{}
	cfg := quickConfig()
	cfg.UsePlaceholders = true
	co := NewCoordinator(loadedController(t, dec), up, cfg)

	art, err := co.Capture(context.Background(), 42)
	require.NoError(t, err)

	ph, ok := art.(*model.PlaceholderFrame)
	require.True(t, ok)
	assert.Equal(t, "00:00:42", ph.Timestamp)
	assert.Contains(t, ph.Label, "capture failed")
	assert.Contains(t, ph.ImageURL, "/placeholders/")

	// A placeholder occupies its timestamp like a real capture would.
	_, err = co.Capture(context.Background(), 42.2)
	assert.ErrorIs(t, err, ErrDuplicateTimestamp)

	// And it never passes a verified-only gate.
	assert.Empty(t, model.VerifiedOnly([]model.FrameArtifact{art}))
}

func TestCoordinatorBlankWithoutPlaceholderFails(t *testing.T) {
	dec := probedDecoder(600)
	dec.frame = func(float64) (image.Image, error) {
		return uniformImage(64, 36, 3), nil
	}
	co := NewCoordinator(loadedController(t, dec), &recordingUploader{}, quickConfig())

	_, err := co.Capture(context.Background(), 42)
	var blank *model.BlankFrameError
	assert.True(t, errors.As(err, &blank))
}

func TestCoordinatorSkipBlankCheckAcceptsDarkFrame(t *testing.T) {
	dec := probedDecoder(600)
	dec.frame = func(float64) (image.Image, error) {
		return uniformImage(64, 36, 3), nil
	}
	cfg := quickConfig()
	cfg.SkipBlankCheck = true
	co := NewCoordinator(loadedController(t, dec), &recordingUploader{}, cfg)

	art, err := co.Capture(context.Background(), 42)
	require.NoError(t, err)
	_, ok := art.(*model.ExtractedFrame)
	assert.True(t, ok, "expected a verified frame, not a placeholder")
}

func TestCoordinatorUploadFailureSurfaces(t *testing.T) {
	up := &recordingUploader{err: errors.New("bucket unavailable")}
	co := NewCoordinator(loadedController(t, probedDecoder(600)), up, quickConfig())

	_, err := co.Capture(context.Background(), 10)
	assert.ErrorContains(t, err, "bucket unavailable")
}
