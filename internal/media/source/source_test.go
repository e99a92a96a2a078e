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

package source

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slidecast/media-extract/internal/core/model"
)

// fakeDecoder scripts per-seek behavior so controller semantics can be tested
// without real media.
type fakeDecoder struct {
	info     *Info
	probeErr error

	mu       sync.Mutex
	inFlight int
	maxSeen  int

	// hang lists positions whose decode blocks until the context expires.
	hang map[float64]bool
	// fail lists positions whose decode returns an error.
	fail map[float64]error
	// delay slows every decode down by the given amount.
	delay time.Duration
}

func solidFrame(c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func (f *fakeDecoder) Probe(_ context.Context, _ string) (*Info, error) {
	if f.probeErr != nil {
		return nil, f.probeErr
	}
	return f.info, nil
}

func (f *fakeDecoder) DecodeFrame(ctx context.Context, _ string, seconds float64) (image.Image, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.hang[seconds] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := f.fail[seconds]; err != nil {
		return nil, err
	}
	return solidFrame(color.White), nil
}

func TestLoadRejectsZeroDimensions(t *testing.T) {
	ctrl := NewController(&fakeDecoder{info: &Info{Duration: 60}}, time.Second)

	_, err := ctrl.Load(context.Background(), "dead.mp4")
	var loadErr *model.SourceLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "zero pixel dimensions", loadErr.Reason)
}

func TestLoadWrapsProbeErrors(t *testing.T) {
	boom := errors.New("boom")
	ctrl := NewController(&fakeDecoder{probeErr: boom}, time.Second)

	_, err := ctrl.Load(context.Background(), "missing.mp4")
	var loadErr *model.SourceLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.ErrorIs(t, err, boom)
}

func TestFrameAtRequiresLoad(t *testing.T) {
	ctrl := NewController(&fakeDecoder{info: &Info{Duration: 60, Width: 640, Height: 360}}, time.Second)

	_, err := ctrl.FrameAt(context.Background(), 1)
	var loadErr *model.SourceLoadError
	require.ErrorAs(t, err, &loadErr)
}

func TestFrameAtTimesOutAndRecovers(t *testing.T) {
	dec := &fakeDecoder{
		info: &Info{Duration: 60, Width: 640, Height: 360},
		hang: map[float64]bool{10: true},
	}
	ctrl := NewController(dec, 50*time.Millisecond)
	_, err := ctrl.Load(context.Background(), "ok.mp4")
	require.NoError(t, err)

	_, err = ctrl.FrameAt(context.Background(), 10)
	var timeoutErr *model.SeekTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, 10.0, timeoutErr.Seconds)

	// The controller must stay usable for the next timestamp.
	img, err := ctrl.FrameAt(context.Background(), 20)
	require.NoError(t, err)
	assert.NotNil(t, img)
}

func TestFrameAtMapsDecoderDeadlineToTimeout(t *testing.T) {
	// A decoder that honors its context can return the deadline error itself
	// instead of hanging until the timer branch fires. The caller must see
	// the same skippable timeout either way, never a raw context error.
	dec := &fakeDecoder{
		info: &Info{Duration: 60, Width: 640, Height: 360},
		fail: map[float64]error{
			10: context.DeadlineExceeded,
			20: fmt.Errorf("decode at 20s: %w", context.DeadlineExceeded),
		},
	}
	ctrl := NewController(dec, 50*time.Millisecond)
	_, err := ctrl.Load(context.Background(), "ok.mp4")
	require.NoError(t, err)

	for _, pos := range []float64{10, 20} {
		_, err = ctrl.FrameAt(context.Background(), pos)
		var timeoutErr *model.SeekTimeoutError
		require.ErrorAs(t, err, &timeoutErr, "position %v", pos)
		assert.Equal(t, pos, timeoutErr.Seconds)
	}
}

func TestFrameAtCancellationIsNotATimeout(t *testing.T) {
	dec := &fakeDecoder{
		info: &Info{Duration: 60, Width: 640, Height: 360},
		hang: map[float64]bool{5: true},
	}
	ctrl := NewController(dec, time.Minute)
	_, err := ctrl.Load(context.Background(), "ok.mp4")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err = ctrl.FrameAt(ctx, 5)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFrameAtSerializesSeeks(t *testing.T) {
	dec := &fakeDecoder{
		info:  &Info{Duration: 60, Width: 640, Height: 360},
		delay: 20 * time.Millisecond,
	}
	ctrl := NewController(dec, time.Second)
	_, err := ctrl.Load(context.Background(), "ok.mp4")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(pos float64) {
			defer wg.Done()
			_, _ = ctrl.FrameAt(context.Background(), pos)
		}(float64(i))
	}
	wg.Wait()

	dec.mu.Lock()
	defer dec.mu.Unlock()
	assert.Equal(t, 1, dec.maxSeen, "decoder must never see overlapping seeks")
}
