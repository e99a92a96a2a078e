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

// Package model defines the core data structures for the extraction service.
// This file defines the error taxonomy shared by the media engines, the
// upload adapter, and the workflow layer. The taxonomy separates job-level
// failures (the source cannot be decoded at all) from item-level failures
// (one seek timed out, one chunk upload was rejected). Item-level errors are
// recorded against the item and the batch continues; job-level errors reject
// the whole operation.
package model

import (
	"fmt"
	"time"
)

// SourceLoadError indicates the media source could not be loaded or decoded
// at all (zero pixel dimensions, unreadable container, dead URL). It is fatal
// for the entire job: no partial results are produced.
type SourceLoadError struct {
	Source string // The URL or path of the media that failed to load.
	Reason string // A short human-readable cause (e.g., "zero pixel dimensions").
	Err    error  // The underlying error, if any.
}

func (e *SourceLoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("source load failed for %q: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("source load failed for %q: %s", e.Source, e.Reason)
}

func (e *SourceLoadError) Unwrap() error { return e.Err }

// SeekTimeoutError indicates a single seek/decode never settled within the
// bounded wait. Recoverable: the item is skipped and the batch proceeds.
type SeekTimeoutError struct {
	Seconds float64       // The timeline position of the abandoned seek.
	Wait    time.Duration // The bounded wait that expired.
}

func (e *SeekTimeoutError) Error() string {
	return fmt.Sprintf("seek to %.3fs did not settle within %s", e.Seconds, e.Wait)
}

// BlankFrameError indicates a captured frame failed content validation after
// exhausting all offset retries. Recoverable per item; the caller policy
// decides between skip and accept-with-warning.
type BlankFrameError struct {
	Seconds  float64 // The requested timeline position.
	Attempts int     // How many offset attempts were made, including the first.
}

func (e *BlankFrameError) Error() string {
	return fmt.Sprintf("frame at %.3fs is blank after %d attempts", e.Seconds, e.Attempts)
}

// EncodeError indicates a frame-to-JPEG or sample-buffer-to-WAV conversion
// failed. Recoverable per item.
type EncodeError struct {
	What string // What was being encoded (e.g., "jpeg frame", "wav chunk").
	Err  error
}

func (e *EncodeError) Error() string { return fmt.Sprintf("encode %s: %v", e.What, e.Err) }
func (e *EncodeError) Unwrap() error { return e.Err }

// UploadError indicates the upload adapter rejected a blob after all retry
// attempts. Recoverable per item: the item is marked failed and the batch
// continues.
type UploadError struct {
	Path     string // The logical storage path of the rejected blob.
	Attempts int    // Total attempts made, including the first.
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload of %q failed after %d attempts: %v", e.Path, e.Attempts, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// PlanningError indicates chunk or timestamp planning produced an invalid
// range (zero or negative duration, inverted bounds). Fatal for that job.
type PlanningError struct {
	Reason string
}

func (e *PlanningError) Error() string { return "chunk planning failed: " + e.Reason }
