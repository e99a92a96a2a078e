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

// Package commands provides the concrete workflow steps of the extraction
// pipelines. This file defines the source staging command, the bridge
// between GCS and the local media tools: it downloads the source object to a
// temp file and verifies it actually is media before any decoder touches it.
//
// Logic Flow:
//  1. Receive the GCSObject from the previous command.
//  2. Stream the object into a local temp file with io.Copy, so large
//     recordings never sit fully in memory.
//  3. Sniff the file header with the filetype library. Declared content
//     types on uploads are unreliable; the bytes decide. A non-media file
//     fails the job here, with a clearer error than ffmpeg would give.
//  4. Rename the temp file to carry the detected extension. The downstream
//     tools infer the demuxer from it.
//  5. Register the temp file for cleanup and pipe its path onward.
package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"cloud.google.com/go/storage"
	"github.com/h2non/filetype"

	"github.com/slidecast/media-extract/internal/cloud"
	"github.com/slidecast/media-extract/internal/core/cor"
	"github.com/slidecast/media-extract/internal/core/model"
)

// SourceToTempFile downloads a GCS source object to local disk and
// validates that it is playable media.
type SourceToTempFile struct {
	cor.BaseCommand
	client         *storage.Client
	tempFilePrefix string
}

// NewSourceToTempFile creates the staging command.
func NewSourceToTempFile(name string, client *storage.Client, tempFilePrefix string) *SourceToTempFile {
	return &SourceToTempFile{
		BaseCommand:    *cor.NewBaseCommand(name),
		client:         client,
		tempFilePrefix: tempFilePrefix,
	}
}

// Execute stages the source object locally.
func (c *SourceToTempFile) Execute(context cor.Context) {
	msg := context.Get(c.GetInputParam()).(*cloud.GCSObject)

	obj := c.client.Bucket(msg.Bucket).Object(msg.Name)
	reader, err := obj.NewReader(context.GetContext())
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), &model.SourceLoadError{
			Source: fmt.Sprintf("gs://%s/%s", msg.Bucket, msg.Name),
			Reason: "failed to open source object",
			Err:    err,
		})
		return
	}
	defer func() {
		if err := reader.Close(); err != nil {
			slog.Warn("failed to close GCS reader", "error", err)
		}
	}()

	tempFile, err := os.CreateTemp("", c.tempFilePrefix)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("could not create temp file: %w", err))
		return
	}

	written, err := io.Copy(tempFile, reader)
	_ = tempFile.Close()
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddTempFile(tempFile.Name())
		context.AddError(c.GetName(), &model.SourceLoadError{
			Source: fmt.Sprintf("gs://%s/%s", msg.Bucket, msg.Name),
			Reason: fmt.Sprintf("download failed after %d bytes", written),
			Err:    err,
		})
		return
	}

	staged, err := c.validateAndRename(tempFile.Name(), msg)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddTempFile(tempFile.Name())
		context.AddError(c.GetName(), err)
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	slog.Info("staged source object",
		"source", fmt.Sprintf("gs://%s/%s", msg.Bucket, msg.Name),
		"file", staged, "bytes", written)
	context.AddTempFile(staged)
	context.Add(c.GetOutputParam(), staged)
}

// validateAndRename sniffs the staged file and gives it the extension the
// detected type implies.
func (c *SourceToTempFile) validateAndRename(path string, msg *cloud.GCSObject) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("could not reopen staged file: %w", err)
	}
	head := make([]byte, 261)
	n, _ := io.ReadFull(f, head)
	_ = f.Close()

	kind, err := filetype.Match(head[:n])
	if err != nil || kind == filetype.Unknown {
		return "", &model.SourceLoadError{
			Source: fmt.Sprintf("gs://%s/%s", msg.Bucket, msg.Name),
			Reason: "unrecognized file type",
			Err:    err,
		}
	}
	if !filetype.IsVideo(head[:n]) && !filetype.IsAudio(head[:n]) {
		return "", &model.SourceLoadError{
			Source: fmt.Sprintf("gs://%s/%s", msg.Bucket, msg.Name),
			Reason: fmt.Sprintf("object is %s, not playable media", kind.MIME.Value),
		}
	}

	renamed := fmt.Sprintf("%s.%s", path, kind.Extension)
	if err := os.Rename(path, renamed); err != nil {
		return "", fmt.Errorf("could not rename staged file: %w", err)
	}
	return renamed, nil
}
