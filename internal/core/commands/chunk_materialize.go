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
// pipelines. This file materializes the planned audio chunks: each plan
// entry is sliced out of the decoded track at exact sample boundaries and
// re-encoded as its own WAV payload. A chunk that fails to materialize is
// marked failed on the job and the rest proceed; the upload step only sees
// the chunks that exist.
package commands

import (
	"fmt"

	"github.com/slidecast/media-extract/internal/core/cor"
	"github.com/slidecast/media-extract/internal/core/model"
	"github.com/slidecast/media-extract/internal/media/audio"
)

// PhaseChunkAudio is the progress phase name for chunk materialization.
const PhaseChunkAudio = "chunk-audio"

// ChunkMaterialize slices the decoded track according to the chunk plan.
type ChunkMaterialize struct {
	cor.BaseCommand
}

// NewChunkMaterialize creates the materialization command.
func NewChunkMaterialize(name string) *ChunkMaterialize {
	return &ChunkMaterialize{BaseCommand: *cor.NewBaseCommand(name)}
}

// IsExecutable additionally requires the decoded track.
func (c *ChunkMaterialize) IsExecutable(context cor.Context) bool {
	return c.BaseCommand.IsExecutable(context) &&
		context.Get(GetAudioTrackParameterName()) != nil
}

// Execute materializes every plan entry that can be sliced.
func (c *ChunkMaterialize) Execute(context cor.Context) {
	plan := context.Get(c.GetInputParam()).([]model.AudioChunkMetadata)
	track := context.Get(GetAudioTrackParameterName()).(*audio.Track)
	j := job(context)
	if j == nil {
		context.AddError(c.GetName(), fmt.Errorf("no job attached to workflow context"))
		return
	}

	rep := reporter(context)
	rep.EnterPhase(PhaseChunkAudio)

	chunks := make([]*model.AudioChunk, 0, len(plan))
	for i, meta := range plan {
		chunk, err := audio.Materialize(track, meta)
		if err != nil {
			c.GetErrorCounter().Add(context.GetContext(), 1)
			j.Chunks[i].Status = model.ChunkStatusFailed
			j.Chunks[i].Error = err.Error()
		} else {
			chunks = append(chunks, chunk)
		}
		rep.Step(i+1, len(plan))
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), chunks)
}
