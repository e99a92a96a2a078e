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

package commands

import (
	"fmt"
	"log/slog"

	"github.com/slidecast/media-extract/internal/core/cor"
	"github.com/slidecast/media-extract/internal/core/services"
)

// ManifestPersist writes the finished job's manifest to BigQuery. It runs
// last in a workflow, after an earlier command has moved the job to a
// terminal state.
type ManifestPersist struct {
	cor.BaseCommand
	manifests *services.ManifestService
}

func NewManifestPersist(name string, manifests *services.ManifestService) *ManifestPersist {
	return &ManifestPersist{
		BaseCommand: *cor.NewBaseCommand(name),
		manifests:   manifests,
	}
}

// IsExecutable requires a job on the context; the manifest is derived from
// the job record alone.
func (c *ManifestPersist) IsExecutable(context cor.Context) bool {
	return job(context) != nil
}

func (c *ManifestPersist) Execute(context cor.Context) {
	j := job(context)
	if err := c.manifests.Save(context.GetContext(), j); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to persist manifest for job %s: %w", j.ID, err))
		return
	}
	slog.Info("persisted job manifest", "job", j.ID, "state", j.State)
	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), j)
}
