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
// pipelines. This file defines the entry command for upload-triggered jobs:
// it parses the GCS Pub/Sub notification into the lightweight GCSObject
// reference the rest of the chain works with.
//
// Logic Flow:
//  1. The raw Pub/Sub message body arrives as a JSON string under the
//     command's input key.
//  2. It is unmarshaled into the full GCSPubSubNotification shape.
//  3. The essentials (bucket, object name, content type, user metadata) are
//     repacked into a GCSObject, stored both under the well-known GCS object
//     key and under the output key for the next command.
//  4. If the uploader attached a "timestamps" metadata entry, its value is
//     parsed into the requested capture positions so an upload alone can
//     drive a frame extraction job.
package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/slidecast/media-extract/internal/cloud"
	"github.com/slidecast/media-extract/internal/core/cor"
)

// ExtractionTriggerToGCSObject parses a GCS notification into a GCSObject.
type ExtractionTriggerToGCSObject struct {
	cor.BaseCommand
}

// NewExtractionTriggerToGCSObject creates the trigger parsing command.
func NewExtractionTriggerToGCSObject(name string) *ExtractionTriggerToGCSObject {
	return &ExtractionTriggerToGCSObject{BaseCommand: *cor.NewBaseCommand(name)}
}

// Execute parses the notification JSON from the input key.
func (c *ExtractionTriggerToGCSObject) Execute(context cor.Context) {
	in := context.Get(c.GetInputParam()).(string)

	var out cloud.GCSPubSubNotification
	if err := json.Unmarshal([]byte(in), &out); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to unmarshal GCS notification: %w", err))
		return
	}

	msg := &cloud.GCSObject{
		Bucket:   out.Bucket,
		Name:     out.Name,
		MIMEType: out.ContentType,
		MetaData: out.MetaData,
	}

	// A "timestamps" metadata entry on the uploaded object carries the
	// requested capture positions as a comma-separated list.
	if raw, ok := out.MetaData["timestamps"].(string); ok && raw != "" {
		stamps := strings.Split(raw, ",")
		for i := range stamps {
			stamps[i] = strings.TrimSpace(stamps[i])
		}
		context.Add(GetTimestampsParameterName(), stamps)
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(cloud.GetGCSObjectName(), msg)
	context.Add(c.GetOutputParam(), msg)
}
