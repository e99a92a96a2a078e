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

package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObjectRef(t *testing.T) {
	tests := []struct {
		name   string
		uri    string
		bucket string
		object string
	}{
		{
			name:   "gs scheme",
			uri:    "gs://media_extract_artifacts/jobs/abc/frames/f1.jpg",
			bucket: "media_extract_artifacts",
			object: "jobs/abc/frames/f1.jpg",
		},
		{
			name:   "public https form as persisted on job records",
			uri:    "https://storage.googleapis.com/media_extract_artifacts/jobs/abc/audio/full.wav",
			bucket: "media_extract_artifacts",
			object: "jobs/abc/audio/full.wav",
		},
		{
			name:   "single path segment object",
			uri:    "gs://bucket/object.mp4",
			bucket: "bucket",
			object: "object.mp4",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			bucket, object, err := ParseObjectRef(tc.uri)
			require.NoError(t, err)
			assert.Equal(t, tc.bucket, bucket)
			assert.Equal(t, tc.object, object)
		})
	}
}

func TestParseObjectRefRejectsMalformedURIs(t *testing.T) {
	for _, uri := range []string{
		"",
		"bucket/object.mp4",
		"gs://",
		"gs://bucket",
		"gs://bucket/",
		"https://storage.googleapis.com/bucket",
		"https://example.com/bucket/object.mp4",
	} {
		_, _, err := ParseObjectRef(uri)
		assert.Error(t, err, "uri %q", uri)
	}
}
