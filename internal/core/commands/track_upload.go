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
// pipelines. This file uploads the full extracted audio track. The durable
// full-track URL is the anchor of the audio job: even if every chunk upload
// later fails, the track itself survives and chunking can be re-run.
package commands

import (
	"fmt"

	"github.com/slidecast/media-extract/internal/core/cor"
	"github.com/slidecast/media-extract/internal/core/services"
	"github.com/slidecast/media-extract/internal/media/audio"
)

// PhaseUploadTrack is the progress phase name for the full-track upload.
const PhaseUploadTrack = "upload-track"

// AudioTrackUpload encodes the decoded track as WAV and uploads it.
type AudioTrackUpload struct {
	cor.BaseCommand
	uploader services.Uploader
}

// NewAudioTrackUpload creates the upload command.
func NewAudioTrackUpload(name string, uploader services.Uploader) *AudioTrackUpload {
	return &AudioTrackUpload{BaseCommand: *cor.NewBaseCommand(name), uploader: uploader}
}

// Execute uploads the full track and records its URL on the job.
func (c *AudioTrackUpload) Execute(context cor.Context) {
	track := context.Get(c.GetInputParam()).(*audio.Track)
	j := job(context)
	if j == nil {
		context.AddError(c.GetName(), fmt.Errorf("no job attached to workflow context"))
		return
	}

	rep := reporter(context)
	rep.EnterPhase(PhaseUploadTrack)
	rep.Step(0, 1)

	data, err := audio.EncodeWAV(track)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}

	objectPath := fmt.Sprintf("jobs/%s/audio/full.wav", j.ID)
	url, err := c.uploader.Upload(context.GetContext(), data, objectPath, audio.MIMEType)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}

	rep.Step(1, 1)
	c.GetSuccessCounter().Add(context.GetContext(), 1)
	j.AudioURL = url
	context.Add(c.GetOutputParam(), track)
}
