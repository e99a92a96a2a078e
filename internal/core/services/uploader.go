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

// Package services contains the business logic for interacting with data
// sources. This file defines the upload adapter: the single seam through
// which every captured frame, placeholder, audio track, and audio chunk
// becomes a durable storage reference.
//
// Logic Flow:
//  1. A rate limiter gates each attempt so a burst of chunk uploads from a
//     worker pool does not overwhelm the storage backend.
//  2. Each upload is tried up to MaxAttempts times with a fixed short delay
//     between attempts. The retry budget covers transient network failures;
//     it is intentionally distinct from the blank-frame retry offsets, which
//     address a different problem.
//  3. On success the adapter returns the public HTTPS URL of the object.
//     Local temp paths never leave this layer, which is what keeps the
//     durable-reference invariant: anything persisted downstream points at
//     storage, not at a disk that may have been cleaned up.
package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"golang.org/x/time/rate"

	"github.com/slidecast/media-extract/internal/core/model"
)

// Upload retry defaults.
const (
	DefaultUploadAttempts  = 3
	DefaultUploadDelay     = 500 * time.Millisecond
	DefaultUploadPerSecond = 8
)

// Uploader persists a blob under a logical object path and returns a durable
// URL for it.
type Uploader interface {
	Upload(ctx context.Context, data []byte, objectPath string, contentType string) (string, error)
}

// GCSUploader is the Google Cloud Storage implementation of Uploader.
type GCSUploader struct {
	StorageClient *storage.Client
	Bucket        string        // The name of the destination GCS bucket.
	MaxAttempts   int           // Attempts per object; default DefaultUploadAttempts.
	RetryDelay    time.Duration // Fixed delay between attempts; default DefaultUploadDelay.
	Limiter       *rate.Limiter // Gates attempt starts; nil means unlimited.
}

// NewGCSUploader creates an uploader for the given bucket with the default
// retry policy and rate limit.
func NewGCSUploader(client *storage.Client, bucket string) *GCSUploader {
	return &GCSUploader{
		StorageClient: client,
		Bucket:        bucket,
		MaxAttempts:   DefaultUploadAttempts,
		RetryDelay:    DefaultUploadDelay,
		Limiter:       rate.NewLimiter(rate.Limit(DefaultUploadPerSecond), DefaultUploadPerSecond),
	}
}

// Upload writes the blob to GCS and returns its public HTTPS URL. A
// cancelled context stops retrying immediately; any other failure is retried
// up to MaxAttempts before being reported as a *model.UploadError.
func (u *GCSUploader) Upload(ctx context.Context, data []byte, objectPath string, contentType string) (string, error) {
	attempts := u.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultUploadAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if u.Limiter != nil {
			if err := u.Limiter.Wait(ctx); err != nil {
				return "", err
			}
		}

		if err := u.writeObject(ctx, data, objectPath, contentType); err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if attempt < attempts {
				select {
				case <-time.After(u.RetryDelay):
				case <-ctx.Done():
					return "", ctx.Err()
				}
			}
			continue
		}
		return fmt.Sprintf("https://storage.googleapis.com/%s/%s", u.Bucket, objectPath), nil
	}
	return "", &model.UploadError{Path: objectPath, Attempts: attempts, Err: lastErr}
}

func (u *GCSUploader) writeObject(ctx context.Context, data []byte, objectPath string, contentType string) error {
	w := u.StorageClient.Bucket(u.Bucket).Object(objectPath).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
