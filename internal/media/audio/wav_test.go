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

package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// toneTrack builds a deterministic mono track of the given length.
func toneTrack(sampleRate int, seconds float64) *Track {
	n := int(seconds * float64(sampleRate))
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16((i % 200) - 100)
	}
	return &Track{SampleRate: sampleRate, NumChannels: 1, Samples: samples}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := toneTrack(16000, 2.5)

	data, err := EncodeWAV(in)
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))

	out, err := DecodeWAV(data)
	require.NoError(t, err)
	assert.Equal(t, in.SampleRate, out.SampleRate)
	assert.Equal(t, in.NumChannels, out.NumChannels)
	assert.Equal(t, in.Samples, out.Samples)
}

func TestTrackDurationAndRate(t *testing.T) {
	tr := toneTrack(16000, 2.5)
	assert.InDelta(t, 2.5, tr.Duration(), 1e-9)
	assert.Equal(t, 32000, tr.BytesPerSecond())

	stereo := &Track{SampleRate: 44100, NumChannels: 2, Samples: make([]int16, 44100*2)}
	assert.InDelta(t, 1.0, stereo.Duration(), 1e-9)
	assert.Equal(t, 176400, stereo.BytesPerSecond())
}

func TestEncodeWAVRejectsInvalidTrack(t *testing.T) {
	_, err := EncodeWAV(nil)
	assert.Error(t, err)
	_, err = EncodeWAV(&Track{SampleRate: 0, NumChannels: 1})
	assert.Error(t, err)
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	_, err := DecodeWAV([]byte("not audio"))
	assert.Error(t, err)

	// A valid header with a non-PCM format code.
	data, err := EncodeWAV(toneTrack(8000, 0.1))
	require.NoError(t, err)
	data[20] = 3 // IEEE float format code.
	_, err = DecodeWAV(data)
	assert.ErrorContains(t, err, "format code")
}
