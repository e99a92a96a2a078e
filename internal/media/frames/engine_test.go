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
	"image"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slidecast/media-extract/internal/core/model"
	"github.com/slidecast/media-extract/internal/media/source"
)

// scriptedDecoder lets each test decide, per seek position, whether the
// decoder returns a bright frame, a blank frame, an error, or hangs until
// the seek deadline fires.
type scriptedDecoder struct {
	info     source.Info
	probeErr error
	frame    func(seconds float64) (image.Image, error)
	hang     func(seconds float64) bool
}

func (d *scriptedDecoder) Probe(ctx context.Context, path string) (*source.Info, error) {
	if d.probeErr != nil {
		return nil, d.probeErr
	}
	info := d.info
	return &info, nil
}

func (d *scriptedDecoder) DecodeFrame(ctx context.Context, path string, seconds float64) (image.Image, error) {
	if d.hang != nil && d.hang(seconds) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if d.frame != nil {
		return d.frame(seconds)
	}
	return uniformImage(64, 36, 200), nil
}

func probedDecoder(duration float64) *scriptedDecoder {
	return &scriptedDecoder{info: source.Info{Duration: duration, Width: 1280, Height: 720}}
}

// isWholeSecond reports whether a seek position landed exactly on a requested
// timestamp rather than on one of the retry offsets.
func isWholeSecond(seconds float64) bool {
	return seconds == math.Trunc(seconds)
}

func TestExtractFramesHappyPath(t *testing.T) {
	dec := probedDecoder(600)
	ex := NewExtractor(dec, Config{})

	res, err := ex.ExtractFrames(context.Background(), "lecture.mp4",
		[]string{"00:00:10", "00:01:00", "00:05:30"}, nil)
	require.NoError(t, err)
	require.Len(t, res.Frames, 3)
	assert.Empty(t, res.Skipped)
	assert.Empty(t, res.OutOfRange)
	assert.Empty(t, res.Invalid)
	assert.Equal(t, 600.0, res.Duration)

	for _, f := range res.Frames {
		assert.NotEmpty(t, f.ID)
		assert.Equal(t, "image/jpeg", f.MIMEType)
		require.True(t, len(f.Data) > 2)
		assert.Equal(t, byte(0xFF), f.Data[0])
		assert.Equal(t, byte(0xD8), f.Data[1])
	}
	assert.Equal(t, "00:00:10", res.Frames[0].Timestamp)
	assert.Equal(t, 10.0, res.Frames[0].Seconds)
}

func TestExtractFramesBlankRetryRecovers(t *testing.T) {
	// Blank exactly at every requested position, bright at the retry
	// offsets. Every timestamp must still yield a frame.
	dec := probedDecoder(600)
	dec.frame = func(seconds float64) (image.Image, error) {
		if isWholeSecond(seconds) {
			return uniformImage(64, 36, 3), nil
		}
		return uniformImage(64, 36, 200), nil
	}
	ex := NewExtractor(dec, Config{})

	stamps := []string{"00:00:05", "00:00:15", "00:00:25", "00:00:35", "00:00:45"}
	res, err := ex.ExtractFrames(context.Background(), "lecture.mp4", stamps, nil)
	require.NoError(t, err)
	assert.Len(t, res.Frames, 5)
	assert.Empty(t, res.Skipped)

	// The frame is labeled with the requested timestamp even though the
	// pixels came from an offset position.
	assert.Equal(t, "00:00:05", res.Frames[0].Timestamp)
}

func TestExtractFramesPersistentBlankSkips(t *testing.T) {
	dec := probedDecoder(600)
	dec.frame = func(float64) (image.Image, error) {
		return uniformImage(64, 36, 3), nil
	}
	ex := NewExtractor(dec, Config{})

	res, err := ex.ExtractFrames(context.Background(), "lecture.mp4",
		[]string{"00:00:10"}, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Frames)
	require.Len(t, res.Skipped, 1)

	var blank *model.BlankFrameError
	require.True(t, errors.As(res.Skipped[0].Err, &blank))
	assert.Equal(t, 10.0, blank.Seconds)
	assert.Equal(t, 5, blank.Attempts)
}

func TestExtractFramesSkipBlankCheckKeepsDarkFrames(t *testing.T) {
	// With classification off, a pitch-dark frame is a valid frame and no
	// offset retries run: every timestamp decodes exactly once.
	dec := probedDecoder(600)
	var seeks []float64
	dec.frame = func(seconds float64) (image.Image, error) {
		seeks = append(seeks, seconds)
		return uniformImage(64, 36, 3), nil
	}
	ex := NewExtractor(dec, Config{SkipBlankCheck: true})

	res, err := ex.ExtractFrames(context.Background(), "lecture.mp4",
		[]string{"00:00:10", "00:00:20"}, nil)
	require.NoError(t, err)
	assert.Len(t, res.Frames, 2)
	assert.Empty(t, res.Skipped)
	assert.Equal(t, []float64{10, 20}, seeks)
}

func TestExtractFramesAcceptBlankFallback(t *testing.T) {
	dec := probedDecoder(600)
	dec.frame = func(float64) (image.Image, error) {
		return uniformImage(64, 36, 3), nil
	}
	ex := NewExtractor(dec, Config{AcceptBlank: true})

	res, err := ex.ExtractFrames(context.Background(), "lecture.mp4",
		[]string{"00:00:10"}, nil)
	require.NoError(t, err)
	require.Len(t, res.Frames, 1)
	assert.Empty(t, res.Skipped)
}

func TestExtractFramesSeekTimeoutSkipsWithoutRetry(t *testing.T) {
	// Ten timestamps, two of which wedge the decoder. The wedged positions
	// are skipped immediately (no offset retries against a stuck seek) and
	// the other eight still come through.
	dec := probedDecoder(600)
	decodes := 0
	dec.hang = func(seconds float64) bool {
		return seconds == 20 || seconds == 50
	}
	dec.frame = func(float64) (image.Image, error) {
		decodes++
		return uniformImage(64, 36, 200), nil
	}
	ex := NewExtractor(dec, Config{SeekTimeout: 30 * time.Millisecond})

	stamps := []string{
		"00:00:10", "00:00:20", "00:00:30", "00:00:40", "00:00:50",
		"00:01:00", "00:01:10", "00:01:20", "00:01:30", "00:01:40",
	}

	var calls [][2]int
	progress := func(completed, total int) {
		calls = append(calls, [2]int{completed, total})
	}

	res, err := ex.ExtractFrames(context.Background(), "lecture.mp4", stamps, progress)
	require.NoError(t, err)
	assert.Len(t, res.Frames, 8)
	require.Len(t, res.Skipped, 2)
	assert.Equal(t, 8, decodes)

	for _, s := range res.Skipped {
		var timeout *model.SeekTimeoutError
		assert.True(t, errors.As(s.Err, &timeout))
	}

	// Progress fires exactly once per timestamp, monotonically, regardless
	// of outcome.
	require.Len(t, calls, 10)
	for i, c := range calls {
		assert.Equal(t, i+1, c[0])
		assert.Equal(t, 10, c[1])
	}
}

func TestExtractFramesLoadFailureProducesNothing(t *testing.T) {
	dec := probedDecoder(0)
	dec.probeErr = errors.New("moov atom not found")
	ex := NewExtractor(dec, Config{})

	res, err := ex.ExtractFrames(context.Background(), "corrupt.mp4",
		[]string{"00:00:10", "00:00:20"}, nil)
	require.Error(t, err)
	assert.Nil(t, res)

	var load *model.SourceLoadError
	assert.True(t, errors.As(err, &load))
}

func TestExtractFramesPartitionsInput(t *testing.T) {
	dec := probedDecoder(120)
	ex := NewExtractor(dec, Config{})

	res, err := ex.ExtractFrames(context.Background(), "short.mp4",
		[]string{"00:00:30", "bogus", "01:00:00", "00:01:30"}, nil)
	require.NoError(t, err)

	assert.Len(t, res.Frames, 2)
	assert.Equal(t, []string{"bogus"}, res.Invalid)
	require.Len(t, res.OutOfRange, 1)
	assert.Equal(t, 3600.0, res.OutOfRange[0].Seconds)
}

func TestExtractFramesClampsOffsetsAtTimelineEdges(t *testing.T) {
	// At 00:00:00 the negative offsets fall outside the timeline and must
	// not be attempted.
	dec := probedDecoder(600)
	var positions []float64
	dec.frame = func(seconds float64) (image.Image, error) {
		positions = append(positions, seconds)
		return uniformImage(64, 36, 3), nil
	}
	ex := NewExtractor(dec, Config{})

	_, err := ex.ExtractFrames(context.Background(), "lecture.mp4",
		[]string{"00:00:00"}, nil)
	require.NoError(t, err)
	for _, pos := range positions {
		assert.GreaterOrEqual(t, pos, 0.0)
	}
}

func TestExtractFramesCancelAbandonsBatch(t *testing.T) {
	dec := probedDecoder(600)
	ctx, cancel := context.WithCancel(context.Background())

	captured := 0
	dec.frame = func(float64) (image.Image, error) {
		captured++
		if captured == 2 {
			cancel()
		}
		return uniformImage(64, 36, 200), nil
	}
	ex := NewExtractor(dec, Config{})

	_, err := ex.ExtractFrames(ctx, "lecture.mp4",
		[]string{"00:00:10", "00:00:20", "00:00:30", "00:00:40"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.LessOrEqual(t, captured, 3)
}
