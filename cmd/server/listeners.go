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

// Package main contains the logic for starting the Pub/Sub listeners that
// turn GCS upload notifications into extraction jobs.
package main

import (
	"context"

	"github.com/slidecast/media-extract/internal/cloud"
	"github.com/slidecast/media-extract/internal/core/workflow"
)

// SetupListeners attaches the frame and audio pipelines to their configured
// subscriptions and starts both listeners as background goroutines. An
// upload that carries a "timestamps" metadata entry lands on the frame
// topic; plain media uploads land on the audio topic.
func SetupListeners(config *cloud.Config, cloudClients *cloud.ServiceClients, registry *workflow.Registry, ctx context.Context) {
	framePipeline := workflow.NewFrameExtractionPipeline(config, cloudClients, registry)
	cloudClients.PubSubListeners["FrameTopic"].SetCommand(framePipeline)
	cloudClients.PubSubListeners["FrameTopic"].Listen(ctx)

	audioPipeline := workflow.NewAudioExtractionPipeline(config, cloudClients, registry)
	cloudClients.PubSubListeners["AudioTopic"].SetCommand(audioPipeline)
	cloudClients.PubSubListeners["AudioTopic"].Listen(ctx)
}
