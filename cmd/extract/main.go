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

// Package main implements the extract command line tool, a local-only
// version of the extraction pipelines. It runs the same frame capture and
// audio chunking engines the server uses, but reads a file from disk and
// writes the artifacts to a local directory instead of GCS. It is the
// quickest way to check what a given source will produce before uploading
// it.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/slidecast/media-extract/internal/media/audio"
	"github.com/slidecast/media-extract/internal/media/frames"
	"github.com/slidecast/media-extract/internal/media/source"
)

var (
	flagFFmpeg  string
	flagFFprobe string
	flagOut     string
)

func main() {
	// A .env file can carry FFMPEG_PATH and FFPROBE_PATH so the flags do
	// not need repeating on every invocation.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "extract",
		Short: "Run the media extraction pipelines against a local file",
	}
	root.PersistentFlags().StringVar(&flagFFmpeg, "ffmpeg", envOr("FFMPEG_PATH", "ffmpeg"), "path to the ffmpeg binary")
	root.PersistentFlags().StringVar(&flagFFprobe, "ffprobe", envOr("FFPROBE_PATH", "ffprobe"), "path to the ffprobe binary")
	root.PersistentFlags().StringVarP(&flagOut, "out", "o", "out", "directory to write artifacts into")

	root.AddCommand(newFramesCommand())
	root.AddCommand(newAudioCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newFramesCommand() *cobra.Command {
	var (
		timestamps     string
		quality        int
		acceptBlank    bool
		skipBlankCheck bool
	)

	cmd := &cobra.Command{
		Use:   "frames <source>",
		Short: "Capture one JPEG frame per timestamp",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if timestamps == "" {
				return errors.New("at least one timestamp is required")
			}
			stamps := strings.Split(timestamps, ",")
			for i := range stamps {
				stamps[i] = strings.TrimSpace(stamps[i])
			}
			if err := os.MkdirAll(flagOut, 0o755); err != nil {
				return err
			}

			dec := source.NewFFmpegDecoder(flagFFmpeg, flagFFprobe)
			engine := frames.NewExtractor(dec, frames.Config{
				JPEGQuality:    quality,
				AcceptBlank:    acceptBlank,
				SkipBlankCheck: skipBlankCheck,
			})

			result, err := engine.ExtractFrames(cmd.Context(), args[0], stamps, func(completed, total int) {
				fmt.Printf("\rcaptured %d/%d", completed, total)
			})
			fmt.Println()
			if err != nil {
				return err
			}

			for _, frame := range result.Frames {
				name := filepath.Join(flagOut, strings.ReplaceAll(frame.Timestamp, ":", "-")+".jpg")
				if err := os.WriteFile(name, frame.Data, 0o644); err != nil {
					return err
				}
				fmt.Printf("wrote %s\n", name)
			}
			for _, skipped := range result.Skipped {
				fmt.Printf("skipped %s: %v\n", skipped.Stamp.Raw, skipped.Err)
			}
			for _, invalid := range result.Invalid {
				fmt.Printf("invalid timestamp %q\n", invalid)
			}
			for _, oor := range result.OutOfRange {
				fmt.Printf("out of range %s\n", oor.Raw)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&timestamps, "timestamps", "t", "", "comma-separated capture positions, e.g. 00:00:05,00:01:30")
	cmd.Flags().IntVar(&quality, "quality", frames.DefaultJPEGQuality, "JPEG encode quality")
	cmd.Flags().BoolVar(&acceptBlank, "accept-blank", false, "keep frames that stay blank after all retry offsets")
	cmd.Flags().BoolVar(&skipBlankCheck, "skip-blank-check", false, "disable blank classification and retry offsets")
	return cmd
}

func newAudioCommand() *cobra.Command {
	var (
		sampleRate   int
		channels     int
		chunkSeconds float64
		chunkMB      int
	)

	cmd := &cobra.Command{
		Use:   "audio <source>",
		Short: "Extract the audio track and cut it into WAV chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(flagOut, 0o755); err != nil {
				return err
			}

			extractor := audio.NewFFmpegExtractor(flagFFmpeg, sampleRate, channels)
			track, err := extractor.ExtractTrack(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("extracted %.1fs of audio at %d Hz\n", track.Duration(), track.SampleRate)

			full, err := audio.EncodeWAV(track)
			if err != nil {
				return err
			}
			fullPath := filepath.Join(flagOut, "full.wav")
			if err := os.WriteFile(fullPath, full, 0o644); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", fullPath)

			plan, err := audio.PlanChunks(track.Duration(), track.BytesPerSecond(), chunkSeconds, chunkMB*1024*1024)
			if err != nil {
				return err
			}
			for _, meta := range plan {
				chunk, err := audio.Materialize(track, meta)
				if err != nil {
					return err
				}
				name := filepath.Join(flagOut, fmt.Sprintf("chunk-%04d.wav", meta.Index))
				if err := os.WriteFile(name, chunk.Data, 0o644); err != nil {
					return err
				}
				fmt.Printf("wrote %s [%.1fs - %.1fs]\n", name, meta.StartTime, meta.EndTime)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&sampleRate, "sample-rate", audio.DefaultSampleRate, "PCM sample rate")
	cmd.Flags().IntVar(&channels, "channels", audio.DefaultNumChannels, "channel count")
	cmd.Flags().Float64Var(&chunkSeconds, "chunk-seconds", 60, "maximum chunk length in seconds")
	cmd.Flags().IntVar(&chunkMB, "chunk-mb", 0, "maximum chunk size in MB, 0 for no cap")
	return cmd
}
