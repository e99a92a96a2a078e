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

// Package source wraps a media decoder with deterministic, serialized
// lifecycle operations. This file provides the production Decoder backed by
// the ffmpeg and ffprobe command-line tools.
//
// Logic Flow:
//  1. Probe runs ffprobe with JSON output and reads the container duration
//     plus the first video stream's pixel dimensions. Sources without a video
//     stream report 0x0 and are rejected upstream by the Controller.
//  2. DecodeFrame runs ffmpeg with an input seek (-ss before -i, the fast
//     keyframe-accurate form every extractor in this codebase's lineage
//     settled on) and pipes exactly one MJPEG frame to stdout, which is then
//     decoded into an image.Image. An empty pipe or an undecodable payload is
//     an error; the caller decides whether the frame content itself is usable.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg" // Register the JPEG decoder for image.Decode.
	"os/exec"
	"strconv"
)

// Default tool names; resolved against PATH unless the config overrides them.
const (
	DefaultFFmpegPath  = "ffmpeg"
	DefaultFFprobePath = "ffprobe"
)

// FFmpegDecoder implements Decoder by shelling out to ffmpeg/ffprobe.
type FFmpegDecoder struct {
	ffmpegPath  string
	ffprobePath string
}

// NewFFmpegDecoder creates a decoder using the given tool paths; empty paths
// fall back to resolving the bare tool names on PATH.
func NewFFmpegDecoder(ffmpegPath, ffprobePath string) *FFmpegDecoder {
	if ffmpegPath == "" {
		ffmpegPath = DefaultFFmpegPath
	}
	if ffprobePath == "" {
		ffprobePath = DefaultFFprobePath
	}
	return &FFmpegDecoder{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}
}

// probeOutput mirrors the subset of ffprobe's -print_format json output the
// decoder cares about.
type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// Probe inspects the media file with ffprobe and returns duration and the
// first video stream's dimensions.
func (d *FFmpegDecoder) Probe(ctx context.Context, path string) (*Info, error) {
	cmd := exec.CommandContext(ctx, d.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration:stream=codec_type,width,height",
		"-print_format", "json",
		path,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w (%s)", path, err, stderr.String())
	}

	var probed probeOutput
	if err := json.Unmarshal(out, &probed); err != nil {
		return nil, fmt.Errorf("parse ffprobe output for %s: %w", path, err)
	}

	info := &Info{}
	if probed.Format.Duration != "" {
		if dur, err := strconv.ParseFloat(probed.Format.Duration, 64); err == nil {
			info.Duration = dur
		}
	}
	for _, s := range probed.Streams {
		if s.CodecType == "video" {
			info.Width = s.Width
			info.Height = s.Height
			break
		}
	}
	return info, nil
}

// DecodeFrame extracts the single frame nearest the given position as MJPEG
// on stdout and decodes it.
func (d *FFmpegDecoder) DecodeFrame(ctx context.Context, path string, seconds float64) (image.Image, error) {
	cmd := exec.CommandContext(ctx, d.ffmpegPath,
		"-hide_banner",
		"-loglevel", "error",
		"-ss", fmt.Sprintf("%.3f", seconds),
		"-i", path,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "2",
		"-",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg frame grab at %.3fs: %w (%s)", seconds, err, stderr.String())
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no frame data at %.3fs", seconds)
	}

	img, _, err := image.Decode(bytes.NewReader(stdout.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("decode frame at %.3fs: %w", seconds, err)
	}
	return img, nil
}
