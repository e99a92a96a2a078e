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

// Package main contains the interactive capture API. A capture session
// stages one source object locally and holds a frame coordinator over it,
// so a client scrubbing through the media can snapshot single frames on
// demand without starting a batch job.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/slidecast/media-extract/internal/core/services"
	"github.com/slidecast/media-extract/internal/media/frames"
	"github.com/slidecast/media-extract/internal/media/source"
	"github.com/slidecast/media-extract/internal/media/timecode"
)

// captureSession pairs a staged source file with the coordinator serving
// snapshot requests against it.
type captureSession struct {
	ID          string  `json:"id"`
	Bucket      string  `json:"bucket"`
	Object      string  `json:"object"`
	Duration    float64 `json:"duration"`
	coordinator *frames.Coordinator
	tempPath    string
}

// sessionManager tracks the open capture sessions of this process.
type sessionManager struct {
	mu       sync.Mutex
	sessions map[string]*captureSession
}

func newSessionManager() *sessionManager {
	return &sessionManager{sessions: make(map[string]*captureSession)}
}

func (m *sessionManager) add(s *captureSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
}

func (m *sessionManager) get(id string) (*captureSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *sessionManager) remove(id string) (*captureSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	return s, ok
}

var captureSessions = newSessionManager()

// stageSource downloads one GCS object to a local temp file for decoding.
func stageSource(c *gin.Context, bucket, object string) (string, error) {
	rdr, err := state.cloud.StorageClient.Bucket(bucket).Object(object).NewReader(c)
	if err != nil {
		return "", fmt.Errorf("failed to open gs://%s/%s: %w", bucket, object, err)
	}
	defer func() { _ = rdr.Close() }()

	tmp, err := os.CreateTemp("", "capture-")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, rdr); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	return tmp.Name(), nil
}

// CaptureRouter sets up the interactive capture endpoints.
//
// This function defines the following endpoints:
//   - POST /capture/sessions: Opens a session over a source object
//     ({"bucket": ..., "object": ...}) and returns its id and duration.
//   - POST /capture/sessions/:id: Snapshots one frame at the requested
//     position ({"timestamp": "00:01:05"} or {"seconds": 65}). A capture
//     already in flight or a position within the duplicate tolerance of a
//     recent capture is rejected with 409.
//   - DELETE /capture/sessions/:id: Closes the session and removes its
//     staged file.
func CaptureRouter(r *gin.RouterGroup) {
	capture := r.Group("/capture")
	{
		capture.POST("/sessions", func(c *gin.Context) {
			var req struct {
				Bucket string `json:"bucket"`
				Object string `json:"object" binding:"required"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if req.Bucket == "" {
				req.Bucket = state.config.Storage.MediaInputBucket
			}

			path, err := stageSource(c, req.Bucket, req.Object)
			if err != nil {
				slog.Error("failed to stage capture source", "object", req.Object, "error", err)
				c.JSON(http.StatusBadGateway, gin.H{"error": "could not stage source"})
				return
			}

			cfg := state.config.Extraction
			ctrl := source.NewController(
				source.NewFFmpegDecoder(state.config.Tools.FFmpegPath, state.config.Tools.FFprobePath),
				cfg.SeekTimeout(),
			)
			info, err := ctrl.Load(c, path)
			if err != nil {
				_ = os.Remove(path)
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}

			id := uuid.NewString()
			uploader := services.NewGCSUploader(state.cloud.StorageClient, state.config.Storage.ArtifactOutputBucket)
			coordinator := frames.NewCoordinator(ctrl, uploader, frames.CoordinatorConfig{
				SettleDelay:        time.Duration(cfg.SettleDelayMillis) * time.Millisecond,
				DuplicateTolerance: cfg.DuplicateTolerance,
				BlankThreshold:     uint8(cfg.BlankThreshold),
				SkipBlankCheck:     cfg.SkipBlankCheck,
				JPEGQuality:        cfg.JPEGQuality,
				UsePlaceholders:    cfg.UsePlaceholders,
				KeyPrefix:          "sessions/" + id,
			})

			session := &captureSession{
				ID:          id,
				Bucket:      req.Bucket,
				Object:      req.Object,
				Duration:    info.Duration,
				coordinator: coordinator,
				tempPath:    path,
			}
			captureSessions.add(session)
			c.JSON(http.StatusCreated, session)
		})

		capture.POST("/sessions/:id", func(c *gin.Context) {
			session, ok := captureSessions.get(c.Param("id"))
			if !ok {
				c.Status(http.StatusNotFound)
				return
			}

			var req struct {
				Timestamp string   `json:"timestamp"`
				Seconds   *float64 `json:"seconds"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var seconds float64
			switch {
			case req.Seconds != nil:
				seconds = *req.Seconds
			case req.Timestamp != "":
				s, err := timecode.ToSeconds(req.Timestamp)
				if err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				seconds = s
			default:
				c.JSON(http.StatusBadRequest, gin.H{"error": "timestamp or seconds is required"})
				return
			}

			artifact, err := session.coordinator.Capture(c, seconds)
			if err != nil {
				if errors.Is(err, frames.ErrCaptureInFlight) || errors.Is(err, frames.ErrDuplicateTimestamp) {
					c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
					return
				}
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"url":     artifact.ArtifactURL(),
				"seconds": artifact.ArtifactSeconds(),
			})
		})

		capture.DELETE("/sessions/:id", func(c *gin.Context) {
			session, ok := captureSessions.remove(c.Param("id"))
			if !ok {
				c.Status(http.StatusNotFound)
				return
			}
			if err := os.Remove(session.tempPath); err != nil {
				slog.Warn("failed to remove staged source", "path", session.tempPath, "error", err)
			}
			c.Status(http.StatusNoContent)
		})
	}
}
