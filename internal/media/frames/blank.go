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

// Package frames captures validated still images from a media timeline.
// This file holds the blank-frame classifier, the non-obvious heuristic at
// the heart of frame validation: decoders frequently hand back an all-black
// frame immediately after a seek, before the decode pipeline has caught up
// with the new position. Such a frame is structurally a perfectly valid
// image, so the only way to detect it is to look at the pixels.
package frames

import "image"

// DefaultBlankThreshold is the per-channel brightness (0-255) below which a
// sampled pixel counts as dark. A frame whose every sampled channel falls
// below the threshold is classified blank.
const DefaultBlankThreshold = 16

// blankSampleGrid is the number of sample positions per axis. Sampling a grid
// rather than every pixel keeps classification O(1) in the frame size while
// still covering the full area, including letterboxed content away from the
// borders.
const blankSampleGrid = 16

// IsBlank samples a grid of pixels across the frame and reports whether every
// sampled channel is below the threshold. A nil or empty image is blank by
// definition. A threshold of 0 classifies nothing as blank.
func IsBlank(img image.Image, threshold uint8) bool {
	if img == nil {
		return true
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return true
	}

	stepX := bounds.Dx() / blankSampleGrid
	if stepX < 1 {
		stepX = 1
	}
	stepY := bounds.Dy() / blankSampleGrid
	if stepY < 1 {
		stepY = 1
	}

	// color.Color.RGBA returns 16-bit channels; scale the 8-bit threshold up.
	limit := uint32(threshold) << 8
	for y := bounds.Min.Y; y < bounds.Max.Y; y += stepY {
		for x := bounds.Min.X; x < bounds.Max.X; x += stepX {
			r, g, b, _ := img.At(x, y).RGBA()
			if r >= limit || g >= limit || b >= limit {
				return false
			}
		}
	}
	return true
}
