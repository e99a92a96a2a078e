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

// Package test provides utility functions and mock data to support the
// application's test suite: a shared test configuration singleton and
// canned GCS notification payloads for the extraction triggers.
package test

import (
	"log"
	"os"
	"testing"

	"github.com/slidecast/media-extract/internal/cloud"
)

// StateManager caches the loaded test configuration so the TOML files are
// parsed once per test run rather than once per test.
type StateManager struct {
	config *cloud.Config
}

var state = &StateManager{}

// HandleErr fails the current test when err is set. It exists to cut
// boilerplate in tests that stage fixtures.
func HandleErr(err error, t *testing.T) {
	if err != nil {
		t.Errorf("Error reading config file: %v", err)
	}
}

// GetTestFrameTriggerText returns a GCS finalize notification for an upload
// to the media input bucket carrying a "timestamps" metadata entry, the
// shape that triggers a frame extraction job.
func GetTestFrameTriggerText() string {
	return `{
  "kind": "storage#object",
  "id": "media_input_resources/lecture-042.mp4/1728615848664286",
  "selfLink": "https://www.googleapis.com/storage/v1/b/media_input_resources/o/lecture-042.mp4",
  "name": "lecture-042.mp4",
  "bucket": "media_input_resources",
  "generation": "1728615848664286",
  "metageneration": "1",
  "contentType": "video/mp4",
  "timeCreated": "2024-10-11T03:04:08.672Z",
  "updated": "2024-10-11T03:04:08.672Z",
  "storageClass": "STANDARD",
  "timeStorageClassUpdated": "2024-10-11T03:04:08.672Z",
  "size": "259348037",
  "md5Hash": "67c1rAU+1RYZzK5zp8iBkA==",
  "mediaLink": "https://storage.googleapis.com/download/storage/v1/b/media_input_resources/o/lecture-042.mp4?generation=1728615848664286&alt=media",
  "metadata": { "timestamps": "00:00:05, 00:01:30, 00:12:45" },
  "crc32c": "IYeSTw==",
  "etag": "CN658+yrhYkDEAE="
	}`
}

// GetTestAudioTriggerText returns a GCS finalize notification for an upload
// without capture metadata, the shape that drives the audio pipeline.
func GetTestAudioTriggerText() string {
	return `{
  "kind": "storage#object",
  "id": "media_input_resources/podcast-117.mp3/1728615848664301",
  "selfLink": "https://www.googleapis.com/storage/v1/b/media_input_resources/o/podcast-117.mp3",
  "name": "podcast-117.mp3",
  "bucket": "media_input_resources",
  "generation": "1728615848664301",
  "metageneration": "1",
  "contentType": "audio/mpeg",
  "timeCreated": "2024-10-11T03:09:12.115Z",
  "updated": "2024-10-11T03:09:12.115Z",
  "storageClass": "STANDARD",
  "timeStorageClassUpdated": "2024-10-11T03:09:12.115Z",
  "size": "48211990",
  "md5Hash": "q1c5rAU+1RYZzK5zp8iBkA==",
  "mediaLink": "https://storage.googleapis.com/download/storage/v1/b/media_input_resources/o/podcast-117.mp3?generation=1728615848664301&alt=media",
  "metadata": {},
  "crc32c": "IYeSTw==",
  "etag": "CN658+yrhYkDEAF="
}
`
}

// SetupOS points the configuration loader at the test TOML files under
// configs/ with the "test" runtime overlay.
func SetupOS() (err error) {
	err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	err = os.Setenv(cloud.EnvConfigRuntime, "test")
	return err
}

// GetConfig is the singleton accessor tests use for configuration. The
// first call loads the TOML files; later calls return the cached struct.
func GetConfig() *cloud.Config {
	if state.config == nil {
		err := SetupOS()
		if err != nil {
			log.Fatalf("failed to setup environment for test: %v\n", err)
		}
		config := cloud.NewConfig()
		cloud.LoadConfig(&config)
		state.config = config
	}
	return state.config
}
