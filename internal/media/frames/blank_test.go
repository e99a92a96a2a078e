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
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func uniformImage(w, h int, v uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	c := color.RGBA{R: v, G: v, B: v, A: 255}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestIsBlankUniformDark(t *testing.T) {
	assert.True(t, IsBlank(uniformImage(640, 360, 5), DefaultBlankThreshold))
}

func TestIsBlankUniformBright(t *testing.T) {
	assert.False(t, IsBlank(uniformImage(640, 360, 200), DefaultBlankThreshold))
}

func TestIsBlankSingleBrightPixel(t *testing.T) {
	// A 16x16 image is sampled exhaustively, so one lit pixel is enough.
	img := uniformImage(16, 16, 2)
	img.SetRGBA(7, 9, color.RGBA{R: 240, G: 240, B: 240, A: 255})
	assert.False(t, IsBlank(img, DefaultBlankThreshold))
}

func TestIsBlankThresholdBoundary(t *testing.T) {
	// Channels at the threshold value count as lit; one step below counts
	// as dark.
	assert.False(t, IsBlank(uniformImage(16, 16, DefaultBlankThreshold), DefaultBlankThreshold))
	assert.True(t, IsBlank(uniformImage(16, 16, DefaultBlankThreshold-1), DefaultBlankThreshold))
}

func TestIsBlankDegenerateInputs(t *testing.T) {
	assert.True(t, IsBlank(nil, DefaultBlankThreshold))
	assert.True(t, IsBlank(image.NewRGBA(image.Rect(0, 0, 0, 0)), DefaultBlankThreshold))
}

func TestRenderPlaceholderIsNotBlank(t *testing.T) {
	data, err := RenderPlaceholder(DefaultJPEGQuality)
	assert.NoError(t, err)
	assert.True(t, len(data) > 2)
	// JPEG SOI marker.
	assert.Equal(t, byte(0xFF), data[0])
	assert.Equal(t, byte(0xD8), data[1])
}
