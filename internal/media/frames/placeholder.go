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
// This file synthesizes placeholder imagery for degraded-mode operation:
// when a real capture fails, the coordinator can still hand the UI something
// to show. The rendered pattern is deliberately artificial (a striped slate)
// so a placeholder is visually unmistakable even before the type system
// keeps it out of verified-only paths.
package frames

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"

	"github.com/slidecast/media-extract/internal/core/model"
)

// Placeholder render dimensions; a 16:9 slate matching typical video frames.
const (
	placeholderWidth  = 320
	placeholderHeight = 180
)

// RenderPlaceholder produces the encoded JPEG bytes of a labeled placeholder
// slate for the given timeline position.
func RenderPlaceholder(quality int) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, placeholderWidth, placeholderHeight))

	slate := color.RGBA{R: 38, G: 42, B: 48, A: 255}
	stripe := color.RGBA{R: 72, G: 78, B: 88, A: 255}
	band := color.RGBA{R: 120, G: 128, B: 140, A: 255}

	for y := 0; y < placeholderHeight; y++ {
		for x := 0; x < placeholderWidth; x++ {
			switch {
			// A horizontal band across the middle where a caption would sit.
			case y >= placeholderHeight/2-8 && y < placeholderHeight/2+8:
				img.SetRGBA(x, y, band)
			// Diagonal stripes everywhere else.
			case (x+y)/12%2 == 0:
				img.SetRGBA(x, y, stripe)
			default:
				img.SetRGBA(x, y, slate)
			}
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, &model.EncodeError{What: "placeholder jpeg", Err: err}
	}
	return buf.Bytes(), nil
}
