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
// This file holds the frame-side models. The central design point is the
// type-level split between verified captures and placeholders: a placeholder
// is a different Go type, not a boolean on the frame, so code that assembles
// a final slide deck cannot accidentally consume a synthetic stand-in image.
package model

// ExtractedFrame is a verified still image captured from a video timeline and
// persisted to durable storage. Once persisted it is immutable except for
// replacement: re-capturing the same timestamp overwrites the object behind
// ImageURL.
type ExtractedFrame struct {
	ID        string  `json:"id,omitempty"`
	Timestamp string  `json:"timestamp"` // Human-readable HH:MM:SS label.
	Seconds   float64 `json:"seconds"`   // Canonical position on the timeline.
	ImageURL  string  `json:"imageUrl"`  // Durable storage URL, never a local path.
}

// CapturedFrame is the transient extension of ExtractedFrame that carries the
// raw encoded bytes between capture and upload. It exists only inside the
// capture-to-upload pipeline; the Data field is discarded once a durable URL
// is obtained.
type CapturedFrame struct {
	ExtractedFrame
	Data     []byte // Encoded JPEG bytes, pending upload.
	MIMEType string // e.g. "image/jpeg".
}

// PlaceholderFrame is a synthetic, clearly labeled stand-in produced when a
// real capture fails and the caller asked for degraded-mode output. It is
// deliberately NOT an ExtractedFrame: downstream verified-only paths select
// on the concrete type and placeholders fall out for free.
type PlaceholderFrame struct {
	Timestamp string  `json:"timestamp"`
	Seconds   float64 `json:"seconds"`
	ImageURL  string  `json:"imageUrl"`
	Label     string  `json:"label"` // Why the placeholder exists (e.g., "capture failed").
}

// FrameArtifact is the common view over verified and placeholder frames used
// where the UI just needs "something to show" for a timestamp.
type FrameArtifact interface {
	ArtifactURL() string
	ArtifactSeconds() float64
}

func (f *ExtractedFrame) ArtifactURL() string        { return f.ImageURL }
func (f *ExtractedFrame) ArtifactSeconds() float64   { return f.Seconds }
func (p *PlaceholderFrame) ArtifactURL() string      { return p.ImageURL }
func (p *PlaceholderFrame) ArtifactSeconds() float64 { return p.Seconds }

// VerifiedOnly filters a mixed artifact list down to the verified captures.
// This is the gate in front of any "apply to slide" action that requires
// permanent, validated imagery.
func VerifiedOnly(artifacts []FrameArtifact) []*ExtractedFrame {
	out := make([]*ExtractedFrame, 0, len(artifacts))
	for _, a := range artifacts {
		if f, ok := a.(*ExtractedFrame); ok {
			out = append(out, f)
		}
	}
	return out
}

// FailedTimestamp records an input timestamp that produced no frame, with the
// reason attached so a job result never silently loses an input.
type FailedTimestamp struct {
	Timestamp string  `json:"timestamp"`
	Seconds   float64 `json:"seconds"`
	Reason    string  `json:"reason"`
}
