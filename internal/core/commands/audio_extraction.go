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
// pipelines. This file wraps audio track extraction as a chain command. Any
// decode failure here is fatal for the audio job: a partial track cannot be
// chunked or transcribed, so there is nothing to degrade to.
package commands

import (
	"github.com/slidecast/media-extract/internal/core/cor"
	"github.com/slidecast/media-extract/internal/media/audio"
)

// PhaseExtractAudio is the progress phase name for audio track extraction.
const PhaseExtractAudio = "extract-audio"

// AudioTrackExtraction decodes the audio track of a staged source file.
type AudioTrackExtraction struct {
	cor.BaseCommand
	extractor audio.Extractor
}

// NewAudioTrackExtraction creates the extraction command.
func NewAudioTrackExtraction(name string, extractor audio.Extractor) *AudioTrackExtraction {
	return &AudioTrackExtraction{BaseCommand: *cor.NewBaseCommand(name), extractor: extractor}
}

// Execute decodes the full audio track into memory as PCM.
func (c *AudioTrackExtraction) Execute(context cor.Context) {
	path := context.Get(c.GetInputParam()).(string)

	rep := reporter(context)
	rep.EnterPhase(PhaseExtractAudio)
	rep.Step(0, 1)

	track, err := c.extractor.ExtractTrack(context.GetContext(), path)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}

	rep.Step(1, 1)
	c.GetSuccessCounter().Add(context.GetContext(), 1)
	// Chunking commands read the track from its own key; the piped output
	// stays the track too so the chain flows naturally.
	context.Add(GetAudioTrackParameterName(), track)
	context.Add(c.GetOutputParam(), track)
}
