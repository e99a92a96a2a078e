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
// sources. This file defines the URL signer, which turns a private GCS
// object into a time-limited playable URL. Extraction jobs accept signed
// URLs as sources, and the API hands them out so callers can preview media
// without holding storage credentials.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/iam/credentials/apiv1/credentialspb"
	"cloud.google.com/go/storage"
)

// DefaultSignedURLTTL bounds how long a playback URL stays valid. Long
// enough to play a full lecture recording, short enough that a leaked URL
// goes stale the same day.
const DefaultSignedURLTTL = 4 * time.Hour

// URLSigner generates V4 signed URLs for private GCS objects. Signing goes
// through the IAM Credentials API so no service account key ever touches
// local disk.
type URLSigner struct {
	StorageClient *storage.Client
	IAMClient     *credentials.IamCredentialsClient
	SignerEmail   string // The service account that performs the signing.
}

// SignedURL returns a time-limited GET URL for the given bucket and object.
// A non-positive TTL selects DefaultSignedURLTTL.
func (s *URLSigner) SignedURL(ctx context.Context, bucket, object string, ttl time.Duration) (string, error) {
	if bucket == "" || object == "" {
		return "", fmt.Errorf("signed url requires bucket and object, got %q / %q", bucket, object)
	}
	if ttl <= 0 {
		ttl = DefaultSignedURLTTL
	}

	opts := &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4,
		Method:         "GET",
		Expires:        time.Now().Add(ttl),
		GoogleAccessID: s.SignerEmail,
		SignBytes: func(b []byte) ([]byte, error) {
			req := &credentialspb.SignBlobRequest{
				Name:    fmt.Sprintf("projects/-/serviceAccounts/%s", s.SignerEmail),
				Payload: b,
			}
			resp, err := s.IAMClient.SignBlob(ctx, req)
			if err != nil {
				return nil, fmt.Errorf("IAMClient.SignBlob: %w", err)
			}
			return resp.SignedBlob, nil
		},
	}

	u, err := s.StorageClient.Bucket(bucket).SignedURL(object, opts)
	if err != nil {
		return "", fmt.Errorf("Bucket(%q).SignedURL(%q): %w", bucket, object, err)
	}
	return u, nil
}

// SignGCSURI signs an object reference in either the "gs://bucket/object"
// form or the public "https://storage.googleapis.com/bucket/object" form, so
// the artifact URLs persisted on job records can be passed back verbatim.
func (s *URLSigner) SignGCSURI(ctx context.Context, uri string, ttl time.Duration) (string, error) {
	bucket, object, err := ParseObjectRef(uri)
	if err != nil {
		return "", err
	}
	return s.SignedURL(ctx, bucket, object, ttl)
}

// ParseObjectRef resolves a GCS reference to its bucket and object name.
// Accepted forms are "gs://<bucket>/<object>" and
// "https://storage.googleapis.com/<bucket>/<object>".
func ParseObjectRef(uri string) (bucket, object string, err error) {
	rest := ""
	switch {
	case strings.HasPrefix(uri, "gs://"):
		rest = strings.TrimPrefix(uri, "gs://")
	case strings.HasPrefix(uri, "https://storage.googleapis.com/"):
		rest = strings.TrimPrefix(uri, "https://storage.googleapis.com/")
	default:
		return "", "", fmt.Errorf("invalid GCS URI format: %s", uri)
	}
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI: unable to determine bucket and object from %s", uri)
	}
	return parts[0], parts[1], nil
}
