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

package workflow

import (
	"fmt"
	"sync"
	"time"

	"github.com/slidecast/media-extract/internal/cloud"
	"github.com/slidecast/media-extract/internal/core/cor"
	"github.com/slidecast/media-extract/internal/core/model"
)

// Registry holds the trackers of currently running jobs so an API caller
// can cancel a run by job id. Finished jobs leave the registry; their
// records live on in the job store.
type Registry struct {
	mu       sync.Mutex
	trackers map[string]*JobTracker
}

func NewRegistry() *Registry {
	return &Registry{trackers: make(map[string]*JobTracker)}
}

// Track registers a running job's tracker.
func (r *Registry) Track(t *JobTracker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trackers[t.Job().ID] = t
}

// Release removes a finished job from the registry.
func (r *Registry) Release(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.trackers, jobID)
}

// Cancel abandons the named run. It reports whether the job was running.
func (r *Registry) Cancel(jobID string) bool {
	r.mu.Lock()
	t, ok := r.trackers[jobID]
	r.mu.Unlock()
	if ok {
		t.Cancel()
	}
	return ok
}

// finalize settles a job record after its chain has run. Source coordinates
// come from the parsed trigger; a chain error that left the job short of a
// terminal state marks it as a fatal failure.
func finalize(context cor.Context, j *model.ExtractionJob, tracker *JobTracker) {
	if obj, ok := context.Get(cloud.GetGCSObjectName()).(*cloud.GCSObject); ok {
		j.SourceBucket = obj.Bucket
		j.SourceObject = obj.Name
	}
	if context.HasErrors() && !j.State.Terminal() {
		j.State = model.JobStateFatalFailure
		for name, err := range context.GetErrors() {
			j.Error = fmt.Sprintf("%s: %v", name, err)
			break
		}
		now := time.Now()
		j.CompletedAt = &now
	}
	tracker.Finish()
}
