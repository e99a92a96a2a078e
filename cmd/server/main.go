// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package main is the entry point for the media extraction backend server.
//
// The server exposes a REST API for uploading source media, polling and
// cancelling extraction jobs, reading the persisted manifests, and minting
// signed URLs for the produced artifacts. The extraction work itself runs
// in background Pub/Sub listeners: an upload notification on the frame
// topic starts a frame capture job, one on the audio topic starts an audio
// extraction job. The process is instrumented with OpenTelemetry for
// logging, tracing, and metrics.
package main

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/slidecast/media-extract/internal/core/services"
	"github.com/slidecast/media-extract/internal/telemetry"
)

func main() {
	telemetry.SetupLogging()
	slog.Info("Logging initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config := GetConfig()

	_, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		slog.Error("Failed to setup OpenTelemetry", "error", err)
		log.Fatal(err)
	}
	slog.Info("Tracing initialized")

	InitState(ctx)
	slog.Info("Initialized State")

	r := gin.Default()
	r.Use(otelgin.Middleware("media-extract-server"))
	r.Use(cors.Default())

	apiV1 := r.Group("/api/v1")
	{
		JobRouter(apiV1)
		ManifestRouter(apiV1)
		ArtifactRouter(apiV1)
		CaptureRouter(apiV1)
		FileUpload(apiV1)
	}

	srv := &http.Server{
		Addr:         ":8080",
		Handler:      r,
		ReadTimeout:  20 * time.Second,
		WriteTimeout: 20 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to listen: ", "error", err)
		}
	}()
	slog.Info("Server Ready on port 8080")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutdown Server ...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server Shutdown Failed:", "error", err)
	}

	log.Println("Server exiting")
}

// JobRouter sets up the job polling and cancellation endpoints.
//
// This function defines the following endpoints:
//   - GET /jobs/:id: Returns the current job record, including its weighted
//     progress, from the job store.
//   - POST /jobs/:id/cancel: Abandons a running job. Finished jobs cannot
//     be cancelled.
//   - DELETE /jobs/:id: Removes a job record from the store.
func JobRouter(r *gin.RouterGroup) {
	jobs := r.Group("/jobs")
	{
		jobs.GET("/:id", func(c *gin.Context) {
			id := c.Param("id")
			out, err := state.jobs.Get(c, id)
			if err != nil {
				if errors.Is(err, services.ErrJobNotFound) {
					c.Status(http.StatusNotFound)
					return
				}
				slog.Error("failed to read job", "job", id, "error", err)
				c.Status(http.StatusInternalServerError)
				return
			}
			c.JSON(http.StatusOK, out)
		})

		jobs.POST("/:id/cancel", func(c *gin.Context) {
			id := c.Param("id")
			if !state.registry.Cancel(id) {
				c.JSON(http.StatusConflict, gin.H{"error": "job is not running"})
				return
			}
			c.Status(http.StatusAccepted)
		})

		jobs.DELETE("/:id", func(c *gin.Context) {
			id := c.Param("id")
			if err := state.jobs.Delete(c, id); err != nil {
				slog.Error("failed to delete job", "job", id, "error", err)
				c.Status(http.StatusInternalServerError)
				return
			}
			c.Status(http.StatusNoContent)
		})
	}
}

// ManifestRouter sets up read access to the persisted manifests.
//
// This function defines the following endpoints:
//   - GET /manifests/:job_id: Returns the manifest persisted for a finished job.
//   - GET /manifests?bucket=<b>&object=<o>: Lists the manifests recorded for
//     one source object, newest first.
func ManifestRouter(r *gin.RouterGroup) {
	manifests := r.Group("/manifests")
	{
		manifests.GET("/:job_id", func(c *gin.Context) {
			out, err := state.manifests.Get(c, c.Param("job_id"))
			if err != nil {
				c.Status(http.StatusNotFound)
				return
			}
			c.JSON(http.StatusOK, out)
		})

		manifests.GET("", func(c *gin.Context) {
			bucket := c.Query("bucket")
			object := c.Query("object")
			if bucket == "" || object == "" {
				c.Status(http.StatusBadRequest)
				return
			}
			out, err := state.manifests.ListBySource(c, bucket, object)
			if err != nil {
				slog.Error("failed to list manifests", "bucket", bucket, "object", object, "error", err)
				c.Status(http.StatusInternalServerError)
				return
			}
			c.JSON(http.StatusOK, out)
		})
	}
}

// ArtifactRouter sets up signed URL generation for produced artifacts.
//
// This function defines the following endpoint:
//   - GET /artifacts/sign?uri=gs://bucket/object: Returns a time-limited
//     signed URL so a browser can fetch a frame or audio chunk directly
//     from the artifact bucket.
func ArtifactRouter(r *gin.RouterGroup) {
	artifacts := r.Group("/artifacts")
	{
		artifacts.GET("/sign", func(c *gin.Context) {
			uri := c.Query("uri")
			if uri == "" {
				c.Status(http.StatusBadRequest)
				return
			}
			signedURL, err := state.signer.SignGCSURI(c, uri, 15*time.Minute)
			if err != nil {
				slog.Error("failed to sign artifact url", "uri", uri, "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate signed URL"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"url": signedURL})
		})
	}
}

// FileUpload sets up the source media upload endpoint.
//
// POST /uploads accepts multipart/form-data with one or more files under
// the "files" field. An optional "timestamps" form value (a comma-separated
// list like "00:00:05,00:01:30") is attached as object metadata; the GCS
// notification for an object carrying that metadata starts a frame
// extraction job, while a plain upload drives the audio pipeline.
func FileUpload(r *gin.RouterGroup) {
	upload := r.Group("/uploads")
	{
		upload.POST("", func(c *gin.Context) {
			form, err := c.MultipartForm()
			if err != nil {
				c.String(http.StatusBadRequest, "get form err: %s", err.Error())
				return
			}
			files := form.File["files"]
			timestamps := c.PostForm("timestamps")
			bucket := state.cloud.StorageClient.Bucket(state.config.Storage.MediaInputBucket)

			for _, file := range files {
				src, err := file.Open()
				if err != nil {
					c.String(http.StatusBadRequest, "upload file err: %s", err.Error())
					return
				}

				wc := bucket.Object(file.Filename).NewWriter(c)
				wc.ContentType = file.Header.Get("Content-Type")
				if timestamps != "" {
					wc.Metadata = map[string]string{"timestamps": timestamps}
				}
				if _, err = io.Copy(wc, src); err != nil {
					_ = src.Close()
					c.String(http.StatusInternalServerError, "write file to bucket err: %s", err.Error())
					return
				}
				_ = src.Close()
				if err := wc.Close(); err != nil {
					slog.Error("failed to close bucket handle", "object", file.Filename, "error", err)
					c.Status(http.StatusInternalServerError)
					return
				}
			}
			c.String(http.StatusOK, "Uploaded successfully %d files.", len(files))
		})
	}
}
